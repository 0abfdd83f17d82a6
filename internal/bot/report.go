package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"astrobot/internal/picker"
)

// defaultReportDays is the period shown when the admin skips the date pickers
const defaultReportDays = 30

// periodReport holds the numbers of the admin report. Start and End are
// calendar days, both included
type periodReport struct {
	Start, End time.Time

	Bookings int // consultations starting in the period
	Clients  int // distinct users among them
	Profiles int // natal profiles saved in the period

	TotalBookings int
	TotalProfiles int
}

// periodBounds orders two chosen days so that start is not after end
func periodBounds(start, end time.Time) (time.Time, time.Time) {
	if end.Before(start) {
		return end, start
	}
	return start, end
}

// defaultPeriod is the last defaultReportDays days up to and including today
func defaultPeriod(now time.Time) (time.Time, time.Time) {
	end := startOfDay(now)
	return end.AddDate(0, 0, -defaultReportDays), end
}

// handleReportStart lets an admin pick the first day of the report period
func (b *Bot) handleReportStart(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID
	userID := message.From.ID

	if !b.isAdmin(userID) {
		b.sendText(chatID, "Команда доступна только администраторам.")
		return
	}

	b.endConversation(ctx, chatID, userID)
	state := b.startConversation(userID, cmdReport, stepReportStart)

	msgID, err := b.sendPicker(ctx, chatID, sessionKey(chatID, userID), widgetReportStart,
		"📊 Выберите начало периода или нажмите «За последние 30 дней».")
	if err != nil {
		b.logger.Error("Failed to show report picker", zap.Error(err), zap.Int64("user_id", userID))
		b.sendText(chatID, "Произошла ошибка. Пожалуйста, попробуйте ещё раз.")
		b.endConversation(ctx, chatID, userID)
		return
	}
	state.MessageID = msgID
}

// onReportStart stores the first day and shows the picker of the last one
func (b *Bot) onReportStart(ctx context.Context, c picker.Completion) error {
	query, err := callbackFrom(ctx)
	if err != nil {
		return err
	}
	state, ok := b.getState(query.From.ID)
	if !ok {
		return errors.New("conversation is gone")
	}

	grid, err := b.widgets[widgetReportEnd].Render(ctx, c.Session)
	if err != nil {
		return fmt.Errorf("failed to render report end picker: %w", err)
	}

	state.Data["report_start"] = c.Result.Date
	state.Step = stepReportEnd
	text := fmt.Sprintf("📊 Начало периода: %s\nВыберите конец периода.", c.Result.Date.Format("02.01.2006"))
	b.editTextWithMarkup(query.Message.Chat.ID, query.Message.MessageID, text, pickerMarkup(widgetReportEnd, grid))
	return nil
}

// onReportEnd builds the report for the chosen period
func (b *Bot) onReportEnd(ctx context.Context, c picker.Completion) error {
	query, err := callbackFrom(ctx)
	if err != nil {
		return err
	}
	state, ok := b.getState(query.From.ID)
	if !ok {
		return errors.New("conversation is gone")
	}
	start, ok := state.Data["report_start"].(time.Time)
	if !ok {
		return errors.New("report start is missing")
	}

	start, end := periodBounds(b.localDay(start), b.localDay(c.Result.Date))
	return b.showReport(ctx, query, start, end)
}

// handleReportCallback handles the shortcut button of the report flow
func (b *Bot) handleReportCallback(ctx context.Context, query *tgbotapi.CallbackQuery, state *ConversationState, action string) {
	if state.Command != cmdReport || action != "default" {
		return
	}
	start, end := defaultPeriod(b.now().In(b.location()))
	if err := b.showReport(ctx, query, start, end); err != nil {
		b.logger.Error("Failed to build report", zap.Error(err), zap.Int64("user_id", query.From.ID))
		b.sendText(query.Message.Chat.ID, "Не удалось собрать статистику. Попробуйте позже.")
	}
}

// showReport replaces the picker message with the report and ends the conversation
func (b *Bot) showReport(ctx context.Context, query *tgbotapi.CallbackQuery, start, end time.Time) error {
	r, err := b.buildReport(ctx, start, end)
	if err != nil {
		return err
	}

	b.logger.Info("Report built",
		zap.Int64("user_id", query.From.ID),
		zap.String("from", dayKey(start)),
		zap.String("to", dayKey(end)),
		zap.Int("bookings", r.Bookings),
	)
	chatID := query.Message.Chat.ID
	b.editText(chatID, query.Message.MessageID, formatReport(r))
	b.endConversation(ctx, chatID, query.From.ID)
	return nil
}

// buildReport collects the numbers for the days start..end
func (b *Bot) buildReport(ctx context.Context, start, end time.Time) (periodReport, error) {
	r := periodReport{Start: start, End: end}
	from, to := start, end.AddDate(0, 0, 1)

	bookings, err := b.db.ListBookings(ctx, from, to)
	if err != nil {
		return r, fmt.Errorf("failed to list bookings: %w", err)
	}
	clients := make(map[int64]bool, len(bookings))
	for _, bk := range bookings {
		clients[bk.UserID] = true
	}
	r.Bookings, r.Clients = len(bookings), len(clients)

	profiles, err := b.db.ListNatalProfiles(ctx, from, to)
	if err != nil {
		return r, fmt.Errorf("failed to list natal profiles: %w", err)
	}
	r.Profiles = len(profiles)

	if r.TotalBookings, err = b.db.CountBookings(ctx); err != nil {
		return r, fmt.Errorf("failed to count bookings: %w", err)
	}
	if r.TotalProfiles, err = b.db.CountNatalProfiles(ctx); err != nil {
		return r, fmt.Errorf("failed to count natal profiles: %w", err)
	}
	return r, nil
}

func formatReport(r periodReport) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "📊 Статистика с %s по %s\n\n", r.Start.Format("02.01.2006"), r.End.Format("02.01.2006"))
	fmt.Fprintf(&sb, "🗓 Консультаций: %d\n", r.Bookings)
	fmt.Fprintf(&sb, "👥 Клиентов: %d\n", r.Clients)
	fmt.Fprintf(&sb, "✨ Заполнено анкет: %d\n\n", r.Profiles)
	sb.WriteString("За всё время:\n")
	fmt.Fprintf(&sb, "🗓 Консультаций: %d\n", r.TotalBookings)
	fmt.Fprintf(&sb, "✨ Анкет: %d", r.TotalProfiles)
	return sb.String()
}
