package ch

import (
	"context"
	"crypto/tls"
	"fmt"
	"sync"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/pressly/goose/v3"

	"astrobot/internal/models"
	"astrobot/internal/storage"
	"astrobot/migrations"
)

type ClickHouseDB struct {
	conn    clickhouse.Conn
	options *clickhouse.Options

	// bookingMu makes the slot check and the insert of CreateBooking one
	// step for this process. Several bot replicas are not covered.
	bookingMu sync.Mutex
}

// NewClickHouseDB creates a new ClickHouse database connection
func NewClickHouseDB(host string, port int, database, user, password string, useTLS bool) (*ClickHouseDB, error) {
	addr := fmt.Sprintf("%s:%d", host, port)

	options := &clickhouse.Options{
		Addr:     []string{addr},
		Protocol: clickhouse.Native,
		Auth: clickhouse.Auth{
			Database: database,
			Username: user,
			Password: password,
		},
	}

	// Configure TLS if enabled
	if useTLS {
		options.TLS = &tls.Config{
			InsecureSkipVerify: false,
		}
	}

	conn, err := clickhouse.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	// Test the connection
	if err := conn.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	return &ClickHouseDB{conn: conn, options: options}, nil
}

// Initialize applies the embedded goose migrations
func (db *ClickHouseDB) Initialize(ctx context.Context) error {
	sqlDB := clickhouse.OpenDB(db.options)
	defer sqlDB.Close()

	goose.SetBaseFS(migrations.FS)
	defer goose.SetBaseFS(nil)

	if err := goose.SetDialect("clickhouse"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, sqlDB, "."); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// SaveNatalProfile inserts a new version of the user's profile.
// natal_profiles is a ReplacingMergeTree, the newest updated_at wins
func (db *ClickHouseDB) SaveNatalProfile(ctx context.Context, p models.NatalProfile) error {
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = time.Now().UTC()
	}
	err := db.conn.Exec(ctx, `
		INSERT INTO natal_profiles (user_id, name, birth_date, birth_hour, birth_minute, time_known,
			place, latitude, longitude, has_location, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.UserID, p.Name, p.BirthDate, uint8(p.BirthHour), uint8(p.BirthMinute), p.TimeKnown,
		p.Place, p.Latitude, p.Longitude, p.HasLocation, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save natal profile: %w", err)
	}
	return nil
}

// GetNatalProfile returns the latest profile of a user or storage.ErrNotFound
func (db *ClickHouseDB) GetNatalProfile(ctx context.Context, userID int64) (*models.NatalProfile, error) {
	rows, err := db.conn.Query(ctx, `
		SELECT user_id, name, birth_date, birth_hour, birth_minute, time_known,
			place, latitude, longitude, has_location, updated_at
		FROM natal_profiles FINAL
		WHERE user_id = ?
		ORDER BY updated_at DESC
		LIMIT 1`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get natal profile: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("failed to get natal profile: %w", err)
		}
		return nil, storage.ErrNotFound
	}

	var (
		p            models.NatalProfile
		hour, minute uint8
	)
	if err := rows.Scan(&p.UserID, &p.Name, &p.BirthDate, &hour, &minute, &p.TimeKnown,
		&p.Place, &p.Latitude, &p.Longitude, &p.HasLocation, &p.UpdatedAt); err != nil {
		return nil, fmt.Errorf("failed to scan natal profile: %w", err)
	}
	p.BirthHour, p.BirthMinute = int(hour), int(minute)
	return &p, nil
}

// ListNatalProfiles returns the latest profiles last saved in [from, to)
func (db *ClickHouseDB) ListNatalProfiles(ctx context.Context, from, to time.Time) ([]models.NatalProfile, error) {
	rows, err := db.conn.Query(ctx, `
		SELECT user_id, name, birth_date, birth_hour, birth_minute, time_known,
			place, latitude, longitude, has_location, updated_at
		FROM (SELECT * FROM natal_profiles FINAL)
		WHERE updated_at >= ? AND updated_at < ?
		ORDER BY updated_at`, from.UTC(), to.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to list natal profiles: %w", err)
	}
	defer rows.Close()

	var profiles []models.NatalProfile
	for rows.Next() {
		var (
			p            models.NatalProfile
			hour, minute uint8
		)
		if err := rows.Scan(&p.UserID, &p.Name, &p.BirthDate, &hour, &minute, &p.TimeKnown,
			&p.Place, &p.Latitude, &p.Longitude, &p.HasLocation, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan natal profile: %w", err)
		}
		p.BirthHour, p.BirthMinute = int(hour), int(minute)
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

// CountNatalProfiles returns the number of users with a profile
func (db *ClickHouseDB) CountNatalProfiles(ctx context.Context) (int, error) {
	var n uint64
	if err := db.conn.QueryRow(ctx, `SELECT uniqExact(user_id) FROM natal_profiles`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count natal profiles: %w", err)
	}
	return int(n), nil
}

// CreateBooking stores a booking unless its slot is already taken
func (db *ClickHouseDB) CreateBooking(ctx context.Context, b models.Booking) error {
	db.bookingMu.Lock()
	defer db.bookingMu.Unlock()

	b.StartsAt = b.StartsAt.UTC()
	var taken uint64
	err := db.conn.QueryRow(ctx, `SELECT count() FROM bookings WHERE starts_at = ?`, b.StartsAt).Scan(&taken)
	if err != nil {
		return fmt.Errorf("failed to check slot: %w", err)
	}
	if taken > 0 {
		return storage.ErrSlotTaken
	}

	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}
	err = db.conn.Exec(ctx, `
		INSERT INTO bookings (id, user_id, chat_id, name, starts_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		b.ID, b.UserID, b.ChatID, b.Name, b.StartsAt, b.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create booking: %w", err)
	}
	return nil
}

// ListBookings returns bookings starting in [from, to)
func (db *ClickHouseDB) ListBookings(ctx context.Context, from, to time.Time) ([]models.Booking, error) {
	return db.queryBookings(ctx, `
		SELECT id, user_id, chat_id, name, starts_at, created_at
		FROM bookings
		WHERE starts_at >= ? AND starts_at < ?
		ORDER BY starts_at`, from.UTC(), to.UTC())
}

// CountBookings returns the number of bookings ever made
func (db *ClickHouseDB) CountBookings(ctx context.Context) (int, error) {
	var n uint64
	if err := db.conn.QueryRow(ctx, `SELECT count() FROM bookings`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count bookings: %w", err)
	}
	return int(n), nil
}

// ListUserBookings returns bookings of a user starting at or after since
func (db *ClickHouseDB) ListUserBookings(ctx context.Context, userID int64, since time.Time) ([]models.Booking, error) {
	return db.queryBookings(ctx, `
		SELECT id, user_id, chat_id, name, starts_at, created_at
		FROM bookings
		WHERE user_id = ? AND starts_at >= ?
		ORDER BY starts_at`, userID, since.UTC())
}

func (db *ClickHouseDB) queryBookings(ctx context.Context, query string, args ...any) ([]models.Booking, error) {
	rows, err := db.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	defer rows.Close()

	var bookings []models.Booking
	for rows.Next() {
		var b models.Booking
		if err := rows.Scan(&b.ID, &b.UserID, &b.ChatID, &b.Name, &b.StartsAt, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

// Close closes the database connection
func (db *ClickHouseDB) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}
