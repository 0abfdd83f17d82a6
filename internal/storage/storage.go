package storage

import (
	"context"
	"errors"
	"time"

	"astrobot/internal/models"
)

// ErrNotFound is returned when a requested record does not exist
var ErrNotFound = errors.New("not found")

// ErrSlotTaken is returned when a booking overlaps an existing one
var ErrSlotTaken = errors.New("slot already booked")

// Storage defines the interface for data storage operations
type Storage interface {
	// Natal profile operations
	SaveNatalProfile(ctx context.Context, profile models.NatalProfile) error
	GetNatalProfile(ctx context.Context, userID int64) (*models.NatalProfile, error)
	// ListNatalProfiles returns profiles whose latest version was saved in [from, to)
	ListNatalProfiles(ctx context.Context, from, to time.Time) ([]models.NatalProfile, error)
	CountNatalProfiles(ctx context.Context) (int, error)

	// Booking operations

	// CreateBooking stores a booking for a one-hour slot starting at StartsAt.
	// Returns ErrSlotTaken if the slot is already booked
	CreateBooking(ctx context.Context, booking models.Booking) error
	// ListBookings returns bookings with StartsAt in [from, to), ordered by start time
	ListBookings(ctx context.Context, from, to time.Time) ([]models.Booking, error)
	// ListUserBookings returns upcoming bookings of a user starting at or after since
	ListUserBookings(ctx context.Context, userID int64, since time.Time) ([]models.Booking, error)
	CountBookings(ctx context.Context) (int, error)

	// Lifecycle
	Initialize(ctx context.Context) error
	Close() error
}

// BookedHours returns the set of hours already booked on the given day.
// The day and the hours are taken in the location of day.
func BookedHours(ctx context.Context, db Storage, day time.Time) (map[int]bool, error) {
	loc := day.Location()
	from := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, loc)
	bookings, err := db.ListBookings(ctx, from, from.AddDate(0, 0, 1))
	if err != nil {
		return nil, err
	}
	hours := make(map[int]bool, len(bookings))
	for _, b := range bookings {
		hours[b.StartsAt.In(loc).Hour()] = true
	}
	return hours, nil
}
