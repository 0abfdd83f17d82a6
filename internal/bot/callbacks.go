package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"astrobot/internal/models"
	"astrobot/internal/picker"
	"astrobot/internal/storage"
)

type callbackKey struct{}

// withCallback attaches the query being handled to ctx so picker completion
// handlers know which message to edit
func withCallback(ctx context.Context, query *tgbotapi.CallbackQuery) context.Context {
	return context.WithValue(ctx, callbackKey{}, query)
}

func callbackFrom(ctx context.Context) (*tgbotapi.CallbackQuery, error) {
	query, ok := ctx.Value(callbackKey{}).(*tgbotapi.CallbackQuery)
	if !ok || query == nil || query.Message == nil {
		return nil, errors.New("no callback query in context")
	}
	return query, nil
}

// widgetSteps maps each picker to the conversation step it belongs to
var widgetSteps = map[string]struct {
	command string
	step    int
}{
	widgetBirthDate:    {cmdNatal, stepNatalDate},
	widgetBirthTime:    {cmdNatal, stepNatalTime},
	widgetBooking:      {cmdBooking, stepBookingSlot},
	widgetScheduleDate: {cmdSchedule, stepScheduleDate},
	widgetReportStart:  {cmdReport, stepReportStart},
	widgetReportEnd:    {cmdReport, stepReportEnd},
}

// handlePickerCallback feeds a click to a picker and redraws its keyboard
func (b *Bot) handlePickerCallback(ctx context.Context, query *tgbotapi.CallbackQuery, state *ConversationState, widgetID, item string) {
	expected := widgetSteps[widgetID]
	if state.Command != expected.command || state.Step != expected.step {
		b.logger.Debug("Ignoring click on inactive picker",
			zap.Int64("user_id", query.From.ID),
			zap.String("widget", widgetID),
			zap.String("command", state.Command),
			zap.Int("step", state.Step),
		)
		return
	}

	chatID := query.Message.Chat.ID
	session := sessionKey(chatID, query.From.ID)

	out, grid, err := b.widgets[widgetID].Click(ctx, session, item)
	if err != nil {
		b.logger.Error("Picker click failed",
			zap.Error(err),
			zap.Int64("user_id", query.From.ID),
			zap.String("callback_data", query.Data),
		)
		b.sendText(chatID, "Произошла ошибка. Пожалуйста, попробуйте ещё раз.")
		return
	}

	// Completion handlers redraw the message themselves
	if out.Done || !out.Changed {
		return
	}
	b.request(tgbotapi.NewEditMessageReplyMarkup(chatID, query.Message.MessageID, pickerMarkup(widgetID, grid)))
}

// onBirthDate stores the birth date and moves on to the birth time
func (b *Bot) onBirthDate(ctx context.Context, c picker.Completion) error {
	query, err := callbackFrom(ctx)
	if err != nil {
		return err
	}
	state, ok := b.getState(query.From.ID)
	if !ok {
		return errors.New("conversation is gone")
	}
	chatID := query.Message.Chat.ID

	// The step moves only once the time picker is on screen, so a failed
	// send leaves the date grid clickable.
	msgID, err := b.sendPicker(ctx, chatID, c.Session, widgetBirthTime,
		"🕐 Укажите время рождения. Если не знаете точное время, нажмите «Не знаю».")
	if err != nil {
		return fmt.Errorf("failed to show time picker: %w", err)
	}

	state.Data["birth_date"] = c.Result.Date
	state.Step = stepNatalTime
	state.MessageID = msgID
	b.editText(chatID, query.Message.MessageID, "📅 Дата рождения: "+c.Result.Date.Format("02.01.2006"))
	return nil
}

// onBirthTime stores the birth time (or its absence) and asks for the place
func (b *Bot) onBirthTime(ctx context.Context, c picker.Completion) error {
	query, err := callbackFrom(ctx)
	if err != nil {
		return err
	}
	state, ok := b.getState(query.From.ID)
	if !ok {
		return errors.New("conversation is gone")
	}
	chatID := query.Message.Chat.ID

	state.Data["birth_time"] = c.Result
	state.Step = stepNatalPlace

	text := "🕐 Время рождения: неизвестно"
	if !c.Result.IsUnknown() {
		text = "🕐 Время рождения: " + c.Result.Clock.String()
	}
	b.editText(chatID, query.Message.MessageID, text)
	b.sendText(chatID, "📍 Напишите город рождения или отправьте геолокацию.")
	return nil
}

// onBookingSlot asks to confirm the chosen consultation time
func (b *Bot) onBookingSlot(ctx context.Context, c picker.Completion) error {
	query, err := callbackFrom(ctx)
	if err != nil {
		return err
	}
	state, ok := b.getState(query.From.ID)
	if !ok {
		return errors.New("conversation is gone")
	}

	startsAt := b.slotStart(c.Result.Date, c.Result.Date.Hour())
	state.Data["starts_at"] = startsAt
	state.Step = stepBookingConfirm

	text := fmt.Sprintf("Консультация %s в %s. Подтвердить запись?",
		startsAt.Format("02.01.2006"), startsAt.Format("15:04"))
	b.editTextWithMarkup(query.Message.Chat.ID, query.Message.MessageID, text,
		confirmMarkup("✅ Подтвердить", cmdBooking+":confirm", "◀️ Изменить", cmdBooking+":change"))
	return nil
}

// onScheduleDate shows the bookings of the chosen day
func (b *Bot) onScheduleDate(ctx context.Context, c picker.Completion) error {
	query, err := callbackFrom(ctx)
	if err != nil {
		return err
	}
	chatID := query.Message.Chat.ID

	day := b.localDay(c.Result.Date)
	bookings, err := b.db.ListBookings(ctx, day, day.AddDate(0, 0, 1))
	if err != nil {
		return fmt.Errorf("failed to list bookings: %w", err)
	}

	b.editText(chatID, query.Message.MessageID, formatSchedule(day, bookings))
	b.endConversation(ctx, chatID, query.From.ID)
	return nil
}

func formatSchedule(day time.Time, bookings []models.Booking) string {
	var sb strings.Builder
	sb.WriteString("📋 Записи на " + day.Format("02.01.2006") + ":\n")
	if len(bookings) == 0 {
		sb.WriteString("\nЗаписей нет.")
		return sb.String()
	}
	for _, bk := range bookings {
		fmt.Fprintf(&sb, "\n%s — %s (id %d)", bk.StartsAt.In(day.Location()).Format("15:04"), bk.Name, bk.UserID)
	}
	return sb.String()
}

// handleNatalCallback processes the confirmation buttons of the natal flow
func (b *Bot) handleNatalCallback(ctx context.Context, query *tgbotapi.CallbackQuery, state *ConversationState, action string) {
	if state.Command != cmdNatal || state.Step != stepNatalConfirm {
		return
	}
	chatID := query.Message.Chat.ID
	userID := query.From.ID

	switch action {
	case "save":
		profile, err := profileFromState(userID, state)
		if err != nil {
			b.logger.Error("Incomplete natal data", zap.Error(err), zap.Int64("user_id", userID))
			b.editText(chatID, query.Message.MessageID, "Данные неполные, начните заново: /natal")
			b.endConversation(ctx, chatID, userID)
			return
		}
		profile.UpdatedAt = b.now().UTC()
		if err := b.db.SaveNatalProfile(ctx, profile); err != nil {
			b.logger.Error("Failed to save natal profile", zap.Error(err), zap.Int64("user_id", userID))
			b.sendText(chatID, "Не удалось сохранить данные. Попробуйте ещё раз.")
			return
		}
		b.logger.Info("Natal profile saved", zap.Int64("user_id", userID))
		b.editText(chatID, query.Message.MessageID, "✅ Данные сохранены!\n\n"+formatProfile(profile))
		b.endConversation(ctx, chatID, userID)

	case "restart":
		b.editText(chatID, query.Message.MessageID, "Начинаем заново.")
		b.endConversation(ctx, chatID, userID)
		b.beginNatal(ctx, chatID, userID)
	}
}

// handleBookingCallback processes the confirmation buttons of the booking flow
func (b *Bot) handleBookingCallback(ctx context.Context, query *tgbotapi.CallbackQuery, state *ConversationState, action string) {
	if state.Command != cmdBooking || state.Step != stepBookingConfirm {
		return
	}
	chatID := query.Message.Chat.ID
	userID := query.From.ID
	session := sessionKey(chatID, userID)

	switch action {
	case "confirm":
		startsAt, ok := state.Data["starts_at"].(time.Time)
		if !ok {
			b.endConversation(ctx, chatID, userID)
			return
		}
		booking := models.Booking{
			ID:       uuid.NewString(),
			UserID:   userID,
			ChatID:   chatID,
			Name:     displayName(query.From),
			StartsAt: startsAt,
		}
		err := b.db.CreateBooking(ctx, booking)
		b.slots.invalidate(dayKey(startsAt))
		if errors.Is(err, storage.ErrSlotTaken) {
			// Back to the day grid of the same calendar
			if _, _, err := b.widgets[widgetBooking].Click(ctx, session, "back:days"); err != nil {
				b.logger.Warn("Failed to rewind booking picker", zap.Error(err))
			}
			state.Step = stepBookingSlot
			b.showBookingPicker(ctx, query, "😔 Это время уже заняли. Выберите другое.")
			return
		}
		if err != nil {
			b.logger.Error("Failed to create booking", zap.Error(err), zap.Int64("user_id", userID))
			b.sendText(chatID, "Не удалось записаться. Попробуйте ещё раз.")
			return
		}
		b.logger.Info("Booking created",
			zap.String("booking_id", booking.ID),
			zap.Int64("user_id", userID),
			zap.Time("starts_at", startsAt),
		)
		b.editText(chatID, query.Message.MessageID, fmt.Sprintf("✅ Вы записаны на консультацию %s в %s.",
			startsAt.Format("02.01.2006"), startsAt.Format("15:04")))
		b.endConversation(ctx, chatID, userID)

	case "change":
		state.Step = stepBookingSlot
		b.showBookingPicker(ctx, query, "📅 Выберите дату и время консультации.")
	}
}

// showBookingPicker redraws the booking calendar in the message of query
func (b *Bot) showBookingPicker(ctx context.Context, query *tgbotapi.CallbackQuery, text string) {
	chatID := query.Message.Chat.ID
	grid, err := b.widgets[widgetBooking].Render(ctx, sessionKey(chatID, query.From.ID))
	if err != nil {
		b.logger.Error("Failed to render booking picker", zap.Error(err))
		b.sendText(chatID, "Произошла ошибка. Пожалуйста, попробуйте ещё раз.")
		return
	}
	b.editTextWithMarkup(chatID, query.Message.MessageID, text, pickerMarkup(widgetBooking, grid))
}

func displayName(u *tgbotapi.User) string {
	if u == nil {
		return ""
	}
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		name = u.UserName
	}
	return name
}
