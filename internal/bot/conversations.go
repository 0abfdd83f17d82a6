package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"astrobot/internal/models"
	"astrobot/internal/picker"
)

const maxNameLength = 64

// handleConversation processes multi-step conversations
func (b *Bot) handleConversation(ctx context.Context, message *tgbotapi.Message, state *ConversationState) {
	switch state.Command {
	case cmdNatal:
		b.handleNatalConversation(ctx, message, state)
	default:
		// Booking and schedule are driven by buttons only
		b.sendText(message.Chat.ID, "Пожалуйста, используйте кнопки выше или /cancel для отмены.")
	}
}

// beginNatal starts the natal data conversation
func (b *Bot) beginNatal(ctx context.Context, chatID, userID int64) {
	b.startConversation(userID, cmdNatal, stepNatalName)
	b.sendText(chatID, "✨ Давайте составим вашу натальную карту.\n\nКак вас зовут?")
}

// handleNatalConversation handles the text steps of the natal flow
func (b *Bot) handleNatalConversation(ctx context.Context, message *tgbotapi.Message, state *ConversationState) {
	chatID := message.Chat.ID
	userID := message.From.ID

	switch state.Step {
	case stepNatalName:
		name := strings.TrimSpace(message.Text)
		if name == "" || utf8.RuneCountInString(name) > maxNameLength {
			b.sendText(chatID, fmt.Sprintf("Введите имя текстом (до %d символов):", maxNameLength))
			return
		}
		state.Data["name"] = name
		state.Step = stepNatalDate

		msgID, err := b.sendPicker(ctx, chatID, sessionKey(chatID, userID), widgetBirthDate,
			fmt.Sprintf("Приятно познакомиться, %s!\n\n📅 Выберите дату рождения:", name))
		if err != nil {
			b.logger.Error("Failed to show birth date picker", zap.Error(err), zap.Int64("user_id", userID))
			b.sendText(chatID, "Произошла ошибка. Попробуйте ещё раз: /natal")
			b.endConversation(ctx, chatID, userID)
			return
		}
		state.MessageID = msgID

	case stepNatalDate, stepNatalTime:
		b.sendText(chatID, "Пожалуйста, выберите значение с помощью кнопок выше.")

	case stepNatalPlace:
		switch {
		case message.Location != nil:
			state.Data["latitude"] = message.Location.Latitude
			state.Data["longitude"] = message.Location.Longitude
			state.Data["place"] = fmt.Sprintf("%.4f, %.4f", message.Location.Latitude, message.Location.Longitude)
		case strings.TrimSpace(message.Text) != "":
			state.Data["place"] = strings.TrimSpace(message.Text)
		default:
			b.sendText(chatID, "Напишите город рождения или отправьте геолокацию.")
			return
		}
		state.Step = stepNatalConfirm

		profile, err := profileFromState(userID, state)
		if err != nil {
			b.logger.Error("Incomplete natal data", zap.Error(err), zap.Int64("user_id", userID))
			b.sendText(chatID, "Данные неполные, начните заново: /natal")
			b.endConversation(ctx, chatID, userID)
			return
		}
		msg := tgbotapi.NewMessage(chatID, "Проверьте данные:\n\n"+formatProfile(profile))
		msg.ReplyMarkup = confirmMarkup("✅ Сохранить", cmdNatal+":save", "✏️ Заново", cmdNatal+":restart")
		sent, _ := b.sendMessage(msg)
		state.MessageID = sent.MessageID

	case stepNatalConfirm:
		b.sendText(chatID, "Подтвердите данные кнопками выше или начните заново: /natal")
	}
}

// profileFromState assembles a profile from the conversation data
func profileFromState(userID int64, state *ConversationState) (models.NatalProfile, error) {
	name, _ := state.Data["name"].(string)
	date, okDate := state.Data["birth_date"].(time.Time)
	birthTime, okTime := state.Data["birth_time"].(picker.Result)
	place, _ := state.Data["place"].(string)
	if name == "" || !okDate || !okTime || place == "" {
		return models.NatalProfile{}, errors.New("natal conversation is missing fields")
	}

	profile := models.NatalProfile{
		UserID:    userID,
		Name:      name,
		BirthDate: date,
		Place:     place,
	}
	if !birthTime.IsUnknown() {
		profile.TimeKnown = true
		profile.BirthHour = birthTime.Clock.Hour
		profile.BirthMinute = birthTime.Clock.Minute
	}
	lat, okLat := state.Data["latitude"].(float64)
	lng, okLng := state.Data["longitude"].(float64)
	if okLat && okLng {
		profile.Latitude, profile.Longitude, profile.HasLocation = lat, lng, true
	}
	return profile, nil
}

func formatProfile(p models.NatalProfile) string {
	birthTime := "неизвестно"
	if p.TimeKnown {
		birthTime = p.BirthTimeString()
	}
	return fmt.Sprintf("👤 Имя: %s\n📅 Дата рождения: %s\n🕐 Время рождения: %s\n📍 Место: %s",
		p.Name, p.BirthDate.Format("02.01.2006"), birthTime, p.Place)
}
