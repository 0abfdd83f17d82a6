package bot

import (
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"astrobot/internal/picker"
	"astrobot/internal/storage"
)

// telegramAPI is the part of tgbotapi.BotAPI the handlers use
type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Bot represents the Telegram bot wrapper
type Bot struct {
	api    telegramAPI
	client *tgbotapi.BotAPI // nil in tests
	token  string
	db     storage.Storage

	allowedUsers map[int64]bool // empty means everyone
	adminUsers   map[int64]bool

	states   map[int64]*ConversationState
	statesMu sync.RWMutex

	userLocks   map[int64]*userLock
	userLocksMu sync.Mutex

	pickerStore picker.Store
	widgets     map[string]*picker.Widget
	booking     BookingOptions
	slots       *slotCache

	logger *zap.Logger
	now    func() time.Time
}

// ConversationState tracks the state of multi-step commands
type ConversationState struct {
	Command string
	Step    int
	Data    map[string]interface{}
	// MessageID is the message whose keyboard the current step edits
	MessageID int
}

// Options configures the bot
type Options struct {
	AllowedUserIDs []int64
	AdminUserIDs   []int64
	MinBirthYear   int
	Booking        BookingOptions
	// Now replaces time.Now, mainly for tests
	Now func() time.Time
}

// BookingOptions describes consultation hours
type BookingOptions struct {
	HourStart     int
	HourEnd       int
	DisabledHours []int
	ClosedDays    []time.Weekday
	Style         picker.Style
	PopularHours  []int
	// Location is the zone of HourStart..HourEnd; nil means UTC
	Location      *time.Location
}

// Conversation commands
const (
	cmdNatal    = "natal"
	cmdBooking  = "booking"
	cmdSchedule = "schedule"
	cmdReport   = "report"
)

// Conversation steps
const (
	stepNatalName    = 1
	stepNatalDate    = 2
	stepNatalTime    = 3
	stepNatalPlace   = 4
	stepNatalConfirm = 5

	stepBookingSlot    = 1
	stepBookingConfirm = 2

	stepScheduleDate = 1

	stepReportStart = 1
	stepReportEnd   = 2
)

// Picker widget IDs, used as callback data prefixes
const (
	widgetBirthDate    = "bd"
	widgetBirthTime    = "bt"
	widgetBooking      = "bk"
	widgetScheduleDate = "sd"
	widgetReportStart  = "rs"
	widgetReportEnd    = "re"
)

// ignoreData is the callback data of inert buttons
const ignoreData = "ignore"
