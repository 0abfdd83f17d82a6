package picker

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Style selects the look of the hour grid of a calendar with time.
type Style int

const (
	StyleStandard Style = iota
	StyleMobile
	StyleQuick
)

// ParseStyle maps a configuration value to a Style.
func ParseStyle(s string) (Style, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "standard", "enhanced":
		return StyleStandard, nil
	case "mobile":
		return StyleMobile, nil
	case "quick":
		return StyleQuick, nil
	}
	return StyleStandard, fmt.Errorf("unknown picker style %q", s)
}

var monthNames = [...]string{
	"Январь", "Февраль", "Март", "Апрель", "Май", "Июнь",
	"Июль", "Август", "Сентябрь", "Октябрь", "Ноябрь", "Декабрь",
}

// MonthName returns the display name of month (1-12).
func MonthName(month int) string {
	if month < 1 || month > 12 {
		return ""
	}
	return monthNames[month-1]
}

// DefaultPopularHours are the hours offered first by the Quick style.
var DefaultPopularHours = []int{9, 10, 11, 14, 15, 16, 17, 18, 19}

var defaultLabels = Labels{
	Prev:    "<< Назад",
	Next:    "Вперед >>",
	Unknown: "Не знаю точное время...",
	ShowAll: "🕐 Показать все часы",
}

var (
	ErrEmptyID        = errors.New("picker id is empty")
	ErrYearRange      = errors.New("min year is after max year")
	ErrHourRange      = errors.New("hour range must satisfy 0 <= start <= end <= 23")
	ErrIDHasSeparator = errors.New("picker id must not contain ':'")
)

type config struct {
	now func() time.Time

	minYear, maxYear int
	yearsSet         bool
	allowUnknown     bool

	hourStart, hourEnd int
	disabledHours      []int
	hourAvailable      func(ctx context.Context, date time.Time, hour int) bool
	dayAvailable       func(ctx context.Context, date time.Time) bool

	style   Style
	popular []int

	headers map[Scope]string
	labels  Labels
}

// Option configures a picker.
type Option func(*config)

// WithYearRange limits the year grid to [minYear, maxYear].
func WithYearRange(minYear, maxYear int) Option {
	return func(c *config) {
		c.minYear, c.maxYear = minYear, maxYear
		c.yearsSet = true
	}
}

// WithUnknown toggles the "unknown time" escape of a time picker.
func WithUnknown(allow bool) Option {
	return func(c *config) { c.allowUnknown = allow }
}

// WithHourRange restricts selectable hours to [start, end].
func WithHourRange(start, end int) Option {
	return func(c *config) { c.hourStart, c.hourEnd = start, end }
}

// WithDisabledHours marks hours that are shown but cannot be chosen.
func WithDisabledHours(hours ...int) Option {
	return func(c *config) { c.disabledHours = append(c.disabledHours, hours...) }
}

// WithHourAvailability installs a per-date hour predicate. It only applies
// to calendars with time; the context is the one passed to ApplyContext or
// RenderContext.
func WithHourAvailability(fn func(ctx context.Context, date time.Time, hour int) bool) Option {
	return func(c *config) { c.hourAvailable = fn }
}

// WithDayAvailability installs a day predicate for the day grid.
func WithDayAvailability(fn func(ctx context.Context, date time.Time) bool) Option {
	return func(c *config) { c.dayAvailable = fn }
}

// WithStyle picks the hour grid style.
func WithStyle(s Style) Option {
	return func(c *config) { c.style = s }
}

// WithPopularHours sets the Quick style subset.
func WithPopularHours(hours ...int) Option {
	return func(c *config) { c.popular = slices.Clone(hours) }
}

// WithHeader overrides the header text of a scope.
func WithHeader(s Scope, text string) Option {
	return func(c *config) { c.headers[s] = text }
}

// WithLabels overrides navigation texts. Empty fields keep the defaults.
func WithLabels(l Labels) Option {
	return func(c *config) {
		if l.Prev != "" {
			c.labels.Prev = l.Prev
		}
		if l.Next != "" {
			c.labels.Next = l.Next
		}
		if l.Unknown != "" {
			c.labels.Unknown = l.Unknown
		}
		if l.ShowAll != "" {
			c.labels.ShowAll = l.ShowAll
		}
	}
}

// WithClock replaces time.Now for default year bounds.
func WithClock(now func() time.Time) Option {
	return func(c *config) { c.now = now }
}

func newConfig(opts []Option) *config {
	c := &config{
		now:       time.Now,
		hourStart: 0,
		hourEnd:   23,
		popular:   DefaultPopularHours,
		headers:   make(map[Scope]string),
		labels:    defaultLabels,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *config) validate(id string) error {
	if id == "" {
		return ErrEmptyID
	}
	if strings.Contains(id, ":") {
		return ErrIDHasSeparator
	}
	if c.minYear > c.maxYear {
		return fmt.Errorf("%w: %d > %d", ErrYearRange, c.minYear, c.maxYear)
	}
	if c.hourStart < 0 || c.hourEnd > 23 || c.hourStart > c.hourEnd {
		return fmt.Errorf("%w: got %d-%d", ErrHourRange, c.hourStart, c.hourEnd)
	}
	return nil
}

// hourAllowed applies the static hour policy: range and disabled hours.
func (c *config) hourAllowed(h int) bool {
	return h >= c.hourStart && h <= c.hourEnd && !slices.Contains(c.disabledHours, h)
}

func (c *config) header(s Scope, def string) func(*State) string {
	text := def
	if h, ok := c.headers[s]; ok {
		text = h
	}
	return func(*State) string { return text }
}

func bracket(label string) string { return "[ " + label + " ]" }
func check(label string) string   { return "✅ " + label }

func seq(from, to int) []int {
	out := make([]int, 0, to-from+1)
	for v := from; v <= to; v++ {
		out = append(out, v)
	}
	return out
}

func twoDigits(v int) string { return fmt.Sprintf("%02d", v) }
func hourLabel(v int) string { return fmt.Sprintf("%02d:00", v) }

// dateScopes builds the YEARS -> MONTHS -> DAYS sequence shared by the date
// picker and the calendar with time.
func dateScopes(c *config, yearHeader string) []scopeDef {
	years := make([]int, 0, c.maxYear-c.minYear+1)
	for y := c.maxYear; y >= c.minYear; y-- {
		years = append(years, y)
	}
	months := seq(1, 12)

	days := scopeDef{
		scope:  ScopeDays,
		perRow: 6,
		domain: func(st *State) []int {
			y, ok1 := st.Value(ScopeYears)
			m, ok2 := st.Value(ScopeMonths)
			if !ok1 || !ok2 {
				return nil
			}
			return seq(1, DaysInMonth(y, m))
		},
		label:  strconv.Itoa,
		header: c.header(ScopeDays, "Выберите день:"),
		back:   "<< Вернуться к выбору месяца",
	}
	if c.dayAvailable != nil {
		days.available = func(ctx context.Context, st *State, d int) bool {
			y, _ := st.Value(ScopeYears)
			m, _ := st.Value(ScopeMonths)
			return c.dayAvailable(ctx, time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC))
		}
	}

	return []scopeDef{
		{
			scope:    ScopeYears,
			perRow:   3,
			pageSize: 24,
			domain:   func(*State) []int { return years },
			label:    strconv.Itoa,
			header:   c.header(ScopeYears, yearHeader),
		},
		{
			scope:  ScopeMonths,
			perRow: 2,
			domain: func(*State) []int { return months },
			label:  MonthName,
			header: c.header(ScopeMonths, "Выберите месяц: "),
			back:   "<< Вернуться к выбору года",
		},
		days,
	}
}

// NewDatePicker builds a YEARS -> MONTHS -> DAYS picker. Years run from the
// current year down to 1920 unless WithYearRange says otherwise.
func NewDatePicker(id string, opts ...Option) (*Picker, error) {
	c := newConfig(opts)
	if !c.yearsSet {
		c.minYear, c.maxYear = 1920, c.now().Year()
	}
	if err := c.validate(id); err != nil {
		return nil, err
	}
	return &Picker{
		id:       id,
		result:   ResultDate,
		scopes:   dateScopes(c, "Выберите год рождения:"),
		decorate: bracket,
		labels:   c.labels,
	}, nil
}

// NewTimePicker builds an HOURS -> MINUTES picker. Hours outside
// WithHourRange or listed in WithDisabledHours render as placeholders.
func NewTimePicker(id string, opts ...Option) (*Picker, error) {
	c := newConfig(opts)
	if err := c.validate(id); err != nil {
		return nil, err
	}
	c.disabledHours = slices.Clone(c.disabledHours)
	hours, minutes := seq(0, 23), seq(0, 59)
	hourOK := func(_ context.Context, _ *State, h int) bool { return c.hourAllowed(h) }
	return &Picker{
		id:     id,
		result: ResultClock,
		scopes: []scopeDef{
			{
				scope:     ScopeHours,
				perRow:    4,
				pageSize:  12,
				domain:    func(*State) []int { return hours },
				label:     twoDigits,
				available: hourOK,
				header:    c.header(ScopeHours, "Выберите час рождения:"),
			},
			{
				scope:    ScopeMinutes,
				perRow:   5,
				pageSize: 30,
				domain:   func(*State) []int { return minutes },
				label:    twoDigits,
				header:   c.header(ScopeMinutes, "Выберите минуты:"),
				back:     "<< Вернуться к выбору часа",
			},
		},
		decorate:     bracket,
		allowUnknown: c.allowUnknown,
		labels:       c.labels,
	}, nil
}

// NewCalendarWithTime builds a calendar whose last step is an hour grid.
// The result is the chosen date at HH:00.
func NewCalendarWithTime(id string, opts ...Option) (*Picker, error) {
	c := newConfig(opts)
	if !c.yearsSet {
		year := c.now().Year()
		c.minYear, c.maxYear = year, year+1
	}
	if err := c.validate(id); err != nil {
		return nil, err
	}

	hours := seq(0, 23)
	c.disabledHours = slices.Clone(c.disabledHours)
	hourOK := func(ctx context.Context, st *State, h int) bool {
		if !c.hourAllowed(h) {
			return false
		}
		if c.hourAvailable == nil {
			return true
		}
		date, ok := dateOf(st)
		return ok && c.hourAvailable(ctx, date, h)
	}
	stamp := func(st *State) string {
		date, _ := dateOf(st)
		return date.Format("02.01.2006")
	}

	def := scopeDef{
		scope:     ScopeHours,
		perRow:    3,
		domain:    func(*State) []int { return hours },
		label:     hourLabel,
		available: hourOK,
		header: func(st *State) string {
			return "🕐 Выберите час для " + stamp(st)
		},
		emptyHeader: func(st *State) string {
			return "😔 На " + stamp(st) + " нет свободного времени"
		},
		back: "◀️ Вернуться назад",
	}
	decorate := bracket

	switch c.style {
	case StyleMobile:
		def.perRow = 4
		def.header = func(st *State) string {
			return "📅 " + stamp(st) + "\n🕐 Выберите время:"
		}
		def.back = "◀️ Изменить дату"
		decorate = check
	case StyleQuick:
		def.perRow = 4
		def.featured = slices.Clone(c.popular)
		def.featuredHeader = func(st *State) string {
			return "📅 " + stamp(st) + "\n⭐ Популярное время"
		}
		def.header = func(st *State) string {
			return "📅 " + stamp(st)
		}
		def.back = "◀️ Изменить дату"
		decorate = check
	}
	if h, ok := c.headers[ScopeHours]; ok {
		def.header = func(*State) string { return h }
	}

	return &Picker{
		id:       id,
		result:   ResultDateTime,
		scopes:   append(dateScopes(c, "Выберите год:"), def),
		decorate: decorate,
		labels:   c.labels,
	}, nil
}
