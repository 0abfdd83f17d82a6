package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"astrobot/internal/storage"
)

// handleStart shows welcome message and available commands
func (b *Bot) handleStart(message *tgbotapi.Message) {
	text := `Добро пожаловать! 🌙

Доступные команды:
/natal - Ввести данные для натальной карты
/profile - Мои данные и записи
/booking - Записаться на консультацию
/cancel - Отменить текущее действие`

	if b.isAdmin(message.From.ID) {
		text += "\n/schedule - Записи на выбранный день"
		text += "\n/report - Статистика за период"
	}
	b.sendText(message.Chat.ID, text)
}

// handleNatalStart initiates the natal data conversation
func (b *Bot) handleNatalStart(ctx context.Context, message *tgbotapi.Message) {
	b.endConversation(ctx, message.Chat.ID, message.From.ID)
	b.beginNatal(ctx, message.Chat.ID, message.From.ID)
}

// handleProfile shows the saved natal data and upcoming consultations
func (b *Bot) handleProfile(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID
	userID := message.From.ID

	var sb strings.Builder
	profile, err := b.db.GetNatalProfile(ctx, userID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		sb.WriteString("Данные для натальной карты ещё не заполнены. Используйте /natal")
	case err != nil:
		b.logger.Error("Failed to get natal profile", zap.Error(err), zap.Int64("user_id", userID))
		b.sendText(chatID, "Не удалось загрузить данные. Попробуйте позже.")
		return
	default:
		sb.WriteString(formatProfile(*profile))
	}

	bookings, err := b.db.ListUserBookings(ctx, userID, b.now().UTC())
	if err != nil {
		b.logger.Error("Failed to list user bookings", zap.Error(err), zap.Int64("user_id", userID))
	} else if len(bookings) > 0 {
		sb.WriteString("\n\n🗓 Ваши консультации:")
		for _, bk := range bookings {
			fmt.Fprintf(&sb, "\n• %s", bk.StartsAt.In(b.location()).Format("02.01.2006 15:04"))
		}
	}

	b.sendText(chatID, sb.String())
}

// handleBookingStart initiates the consultation booking conversation
func (b *Bot) handleBookingStart(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID
	userID := message.From.ID

	b.endConversation(ctx, chatID, userID)
	state := b.startConversation(userID, cmdBooking, stepBookingSlot)

	msgID, err := b.sendPicker(ctx, chatID, sessionKey(chatID, userID), widgetBooking,
		"📅 Выберите дату и время консультации.")
	if err != nil {
		b.logger.Error("Failed to show booking picker", zap.Error(err), zap.Int64("user_id", userID))
		b.sendText(chatID, "Произошла ошибка. Пожалуйста, попробуйте ещё раз.")
		b.endConversation(ctx, chatID, userID)
		return
	}
	state.MessageID = msgID
}

// handleScheduleStart lets an admin pick a day to list its bookings
func (b *Bot) handleScheduleStart(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID
	userID := message.From.ID

	if !b.isAdmin(userID) {
		b.sendText(chatID, "Команда доступна только администраторам.")
		return
	}

	b.endConversation(ctx, chatID, userID)
	state := b.startConversation(userID, cmdSchedule, stepScheduleDate)

	msgID, err := b.sendPicker(ctx, chatID, sessionKey(chatID, userID), widgetScheduleDate,
		"📋 Выберите день для просмотра записей.")
	if err != nil {
		b.logger.Error("Failed to show schedule picker", zap.Error(err), zap.Int64("user_id", userID))
		b.sendText(chatID, "Произошла ошибка. Пожалуйста, попробуйте ещё раз.")
		b.endConversation(ctx, chatID, userID)
		return
	}
	state.MessageID = msgID
}
