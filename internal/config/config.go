package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"astrobot/internal/picker"
)

// Config holds the application configuration
type Config struct {
	TelegramToken  string
	AllowedUserIDs []int64 // empty means the bot is open to everyone
	AdminUserIDs   []int64

	// Bot mode configuration
	WebhookMode bool   // If true, use webhook mode; if false, use polling mode
	WebhookURL  string // URL for webhook (required if WebhookMode is true)
	Port        string
	LogLevel    string

	// ClickHouse configuration
	ClickHouseHost     string
	ClickHousePort     int
	ClickHouseDatabase string
	ClickHouseUser     string
	ClickHousePassword string
	ClickHouseUseTLS   bool

	UseMockDB bool

	// Picker state storage
	StateBackend  string // "memory" or "redis"
	StateTTL      time.Duration
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Birth date picker
	MinBirthYear int

	// Consultation booking
	BookingHourStart     int
	BookingHourEnd       int
	BookingDisabledHours []int
	BookingClosedDays    []time.Weekday
	BookingStyle         picker.Style
	BookingPopularHours  []int
	// BookingLocation is the zone BOOKING_HOURS are given in
	BookingLocation      *time.Location
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() (*Config, error) {
	config := &Config{}

	// Telegram Bot Token (required)
	config.TelegramToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	if config.TelegramToken == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}

	var err error
	if config.AllowedUserIDs, err = parseIDs("ALLOWED_USER_IDS"); err != nil {
		return nil, err
	}
	if config.AdminUserIDs, err = parseIDs("ADMIN_USER_IDS"); err != nil {
		return nil, err
	}

	// Bot mode configuration
	config.WebhookMode = os.Getenv("WEBHOOK_MODE") == "true"
	if config.WebhookMode {
		config.WebhookURL = os.Getenv("WEBHOOK_URL")
		if config.WebhookURL == "" {
			return nil, fmt.Errorf("WEBHOOK_URL is required when WEBHOOK_MODE is true")
		}
	}
	config.Port = getEnv("PORT", "8080")
	config.LogLevel = getEnv("LOG_LEVEL", "info")

	// Use Mock DB (default: false)
	config.UseMockDB = os.Getenv("USE_MOCK_DB") == "true"

	// ClickHouse configuration (required if not using mock)
	if !config.UseMockDB {
		config.ClickHouseHost = os.Getenv("CLICKHOUSE_HOST")
		if config.ClickHouseHost == "" {
			return nil, fmt.Errorf("CLICKHOUSE_HOST is required when USE_MOCK_DB is not set")
		}

		if config.ClickHousePort, err = getInt("CLICKHOUSE_PORT", 9000); err != nil {
			return nil, err
		}

		config.ClickHouseDatabase = getEnv("CLICKHOUSE_DATABASE", "default")
		config.ClickHouseUser = getEnv("CLICKHOUSE_USER", "default")
		config.ClickHousePassword = os.Getenv("CLICKHOUSE_PASSWORD")
		config.ClickHouseUseTLS = os.Getenv("CLICKHOUSE_USE_TLS") == "true"
	}

	// Picker state storage
	config.StateBackend = getEnv("STATE_BACKEND", "memory")
	switch config.StateBackend {
	case "memory":
	case "redis":
		config.RedisAddr = os.Getenv("REDIS_ADDR")
		if config.RedisAddr == "" {
			return nil, fmt.Errorf("REDIS_ADDR is required when STATE_BACKEND is redis")
		}
		config.RedisPassword = os.Getenv("REDIS_PASSWORD")
		if config.RedisDB, err = getInt("REDIS_DB", 0); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("invalid STATE_BACKEND: %s (expected memory or redis)", config.StateBackend)
	}

	config.StateTTL = 24 * time.Hour
	if ttl := os.Getenv("STATE_TTL"); ttl != "" {
		if config.StateTTL, err = time.ParseDuration(ttl); err != nil {
			return nil, fmt.Errorf("invalid STATE_TTL: %w", err)
		}
	}

	if config.MinBirthYear, err = getInt("MIN_BIRTH_YEAR", 1920); err != nil {
		return nil, err
	}
	if config.MinBirthYear > time.Now().Year() {
		return nil, fmt.Errorf("MIN_BIRTH_YEAR %d is in the future", config.MinBirthYear)
	}

	// Consultation booking
	if config.BookingHourStart, config.BookingHourEnd, err = parseHourRange(getEnv("BOOKING_HOURS", "9-18")); err != nil {
		return nil, err
	}
	if config.BookingDisabledHours, err = parseHours("BOOKING_DISABLED_HOURS", "13"); err != nil {
		return nil, err
	}
	if config.BookingPopularHours, err = parseHours("BOOKING_POPULAR_HOURS", ""); err != nil {
		return nil, err
	}
	if len(config.BookingPopularHours) == 0 {
		config.BookingPopularHours = picker.DefaultPopularHours
	}

	closed, err := parseInts("BOOKING_CLOSED_WEEKDAYS", "0,6")
	if err != nil {
		return nil, err
	}
	for _, d := range closed {
		if d < 0 || d > 6 {
			return nil, fmt.Errorf("invalid weekday in BOOKING_CLOSED_WEEKDAYS: %d (0=Sunday ... 6=Saturday)", d)
		}
		config.BookingClosedDays = append(config.BookingClosedDays, time.Weekday(d))
	}

	if config.BookingStyle, err = picker.ParseStyle(os.Getenv("BOOKING_PICKER_STYLE")); err != nil {
		return nil, fmt.Errorf("invalid BOOKING_PICKER_STYLE: %w", err)
	}
	if config.BookingLocation, err = time.LoadLocation(getEnv("BOOKING_TZ", "UTC")); err != nil {
		return nil, fmt.Errorf("invalid BOOKING_TZ: %w", err)
	}

	return config, nil
}

// getEnv retrieves environment variable or returns default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) (int, error) {
	str := os.Getenv(key)
	if str == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(strings.TrimSpace(str))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

// parseIDs reads a comma-separated list of Telegram user IDs
func parseIDs(key string) ([]int64, error) {
	str := os.Getenv(key)
	if str == "" {
		return nil, nil
	}

	var ids []int64
	for _, idStr := range strings.Split(str, ",") {
		if strings.TrimSpace(idStr) == "" {
			continue
		}
		id, err := strconv.ParseInt(strings.TrimSpace(idStr), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid user ID in %s: %s", key, idStr)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func parseInts(key, defaultValue string) ([]int, error) {
	str := getEnv(key, defaultValue)
	if str == "none" {
		return nil, nil
	}
	var out []int
	for _, part := range strings.Split(str, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid value in %s: %s", key, part)
		}
		out = append(out, v)
	}
	return out, nil
}

func parseHours(key, defaultValue string) ([]int, error) {
	hours, err := parseInts(key, defaultValue)
	if err != nil {
		return nil, err
	}
	for _, h := range hours {
		if h < 0 || h > 23 {
			return nil, fmt.Errorf("invalid hour in %s: %d", key, h)
		}
	}
	return hours, nil
}

// parseHourRange parses "9-18" into an inclusive hour range
func parseHourRange(str string) (int, int, error) {
	startStr, endStr, ok := strings.Cut(str, "-")
	if !ok {
		return 0, 0, fmt.Errorf("invalid BOOKING_HOURS: %s (expected start-end, e.g. 9-18)", str)
	}
	start, err1 := strconv.Atoi(strings.TrimSpace(startStr))
	end, err2 := strconv.Atoi(strings.TrimSpace(endStr))
	if err1 != nil || err2 != nil || start < 0 || end > 23 || start > end {
		return 0, 0, fmt.Errorf("invalid BOOKING_HOURS: %s (expected start-end, e.g. 9-18)", str)
	}
	return start, end, nil
}
