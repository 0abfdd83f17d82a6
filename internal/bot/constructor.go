package bot

import (
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"astrobot/internal/picker"
	"astrobot/internal/storage"
)

// NewBot creates a new Telegram bot
func NewBot(token string, db storage.Storage, store picker.Store, opts Options, logger *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		logger.Error("Failed to create bot API", zap.Error(err))
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	b, err := newBot(api, db, store, opts, logger)
	if err != nil {
		return nil, err
	}
	b.client = api
	b.token = token

	logger.Info("Bot created", zap.String("bot_username", api.Self.UserName))
	return b, nil
}

// newBot wires everything except the Telegram client
func newBot(api telegramAPI, db storage.Storage, store picker.Store, opts Options, logger *zap.Logger) (*Bot, error) {
	b := &Bot{
		api:          api,
		db:           db,
		allowedUsers: toSet(opts.AllowedUserIDs),
		adminUsers:   toSet(opts.AdminUserIDs),
		states:       make(map[int64]*ConversationState),
		userLocks:    make(map[int64]*userLock),
		pickerStore:  store,
		widgets:      make(map[string]*picker.Widget),
		booking:      opts.Booking,
		slots:        newSlotCache(30 * time.Second),
		logger:       logger,
		now:          opts.Now,
	}
	if b.now == nil {
		b.now = time.Now
	}
	if err := b.initWidgets(opts); err != nil {
		return nil, err
	}
	return b, nil
}

// initWidgets creates the pickers used by the conversations
func (b *Bot) initWidgets(opts Options) error {
	year := b.now().Year()
	minYear := opts.MinBirthYear
	if minYear == 0 {
		minYear = 1920
	}

	birthDate, err := picker.NewDatePicker(widgetBirthDate, picker.WithYearRange(minYear, year))
	if err != nil {
		return fmt.Errorf("failed to create birth date picker: %w", err)
	}

	birthTime, err := picker.NewTimePicker(widgetBirthTime, picker.WithUnknown(true))
	if err != nil {
		return fmt.Errorf("failed to create birth time picker: %w", err)
	}

	bookingOpts := []picker.Option{
		picker.WithYearRange(year, year+1),
		picker.WithHeader(picker.ScopeYears, "Выберите год:"),
		picker.WithHourRange(opts.Booking.HourStart, opts.Booking.HourEnd),
		picker.WithDisabledHours(opts.Booking.DisabledHours...),
		picker.WithDayAvailability(b.dayAvailable),
		picker.WithHourAvailability(b.slotAvailable),
		picker.WithStyle(opts.Booking.Style),
	}
	if len(opts.Booking.PopularHours) > 0 {
		bookingOpts = append(bookingOpts, picker.WithPopularHours(opts.Booking.PopularHours...))
	}
	booking, err := picker.NewCalendarWithTime(widgetBooking, bookingOpts...)
	if err != nil {
		return fmt.Errorf("failed to create booking calendar: %w", err)
	}

	scheduleDate, err := picker.NewDatePicker(widgetScheduleDate,
		picker.WithYearRange(year-1, year+1),
		picker.WithHeader(picker.ScopeYears, "Выберите год:"),
	)
	if err != nil {
		return fmt.Errorf("failed to create schedule date picker: %w", err)
	}

	reportStart, err := picker.NewDatePicker(widgetReportStart,
		picker.WithYearRange(year-1, year),
		picker.WithHeader(picker.ScopeYears, "Начало периода. Выберите год:"),
	)
	if err != nil {
		return fmt.Errorf("failed to create report start picker: %w", err)
	}
	reportEnd, err := picker.NewDatePicker(widgetReportEnd,
		picker.WithYearRange(year-1, year),
		picker.WithHeader(picker.ScopeYears, "Конец периода. Выберите год:"),
	)
	if err != nil {
		return fmt.Errorf("failed to create report end picker: %w", err)
	}

	b.widgets[widgetBirthDate] = picker.NewWidget(birthDate, b.pickerStore, b.onBirthDate)
	b.widgets[widgetBirthTime] = picker.NewWidget(birthTime, b.pickerStore, b.onBirthTime)
	b.widgets[widgetBooking] = picker.NewWidget(booking, b.pickerStore, b.onBookingSlot)
	b.widgets[widgetScheduleDate] = picker.NewWidget(scheduleDate, b.pickerStore, b.onScheduleDate)
	b.widgets[widgetReportStart] = picker.NewWidget(reportStart, b.pickerStore, b.onReportStart)
	b.widgets[widgetReportEnd] = picker.NewWidget(reportEnd, b.pickerStore, b.onReportEnd)
	return nil
}

func toSet(ids []int64) map[int64]bool {
	set := make(map[int64]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

// GetAPI returns the bot API client
func (b *Bot) GetAPI() *tgbotapi.BotAPI {
	return b.client
}
