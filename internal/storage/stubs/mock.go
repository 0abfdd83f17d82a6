package stubs

import (
	"context"
	"sort"
	"sync"
	"time"

	"astrobot/internal/models"
	"astrobot/internal/storage"
)

// MockDB is an in-memory implementation of the Storage interface for testing
// and local runs
type MockDB struct {
	mu       sync.RWMutex
	profiles map[int64]models.NatalProfile
	bookings []models.Booking
}

// NewMockDB creates a new mock database
func NewMockDB() *MockDB {
	return &MockDB{
		profiles: make(map[int64]models.NatalProfile),
		bookings: make([]models.Booking, 0),
	}
}

// Initialize is a no-op for the in-memory database
func (m *MockDB) Initialize(ctx context.Context) error {
	return nil
}

// SaveNatalProfile creates or replaces the profile of a user
func (m *MockDB) SaveNatalProfile(ctx context.Context, profile models.NatalProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if profile.UpdatedAt.IsZero() {
		profile.UpdatedAt = time.Now().UTC()
	}
	m.profiles[profile.UserID] = profile
	return nil
}

// GetNatalProfile returns the profile of a user or storage.ErrNotFound
func (m *MockDB) GetNatalProfile(ctx context.Context, userID int64) (*models.NatalProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	profile, ok := m.profiles[userID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &profile, nil
}

// ListNatalProfiles returns profiles saved in [from, to), oldest first
func (m *MockDB) ListNatalProfiles(ctx context.Context, from, to time.Time) ([]models.NatalProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []models.NatalProfile
	for _, p := range m.profiles {
		if !p.UpdatedAt.Before(from) && p.UpdatedAt.Before(to) {
			result = append(result, p)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].UpdatedAt.Before(result[j].UpdatedAt)
	})
	return result, nil
}

// CountNatalProfiles returns the number of stored profiles
func (m *MockDB) CountNatalProfiles(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.profiles), nil
}

// CreateBooking stores a booking unless its slot is already taken
func (m *MockDB) CreateBooking(ctx context.Context, booking models.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, b := range m.bookings {
		if b.StartsAt.Equal(booking.StartsAt) {
			return storage.ErrSlotTaken
		}
	}
	if booking.CreatedAt.IsZero() {
		booking.CreatedAt = time.Now().UTC()
	}
	m.bookings = append(m.bookings, booking)
	return nil
}

// ListBookings returns bookings starting in [from, to)
func (m *MockDB) ListBookings(ctx context.Context, from, to time.Time) ([]models.Booking, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []models.Booking
	for _, b := range m.bookings {
		if !b.StartsAt.Before(from) && b.StartsAt.Before(to) {
			result = append(result, b)
		}
	}
	sortByStart(result)
	return result, nil
}

// ListUserBookings returns bookings of a user starting at or after since
func (m *MockDB) ListUserBookings(ctx context.Context, userID int64, since time.Time) ([]models.Booking, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []models.Booking
	for _, b := range m.bookings {
		if b.UserID == userID && !b.StartsAt.Before(since) {
			result = append(result, b)
		}
	}
	sortByStart(result)
	return result, nil
}

// CountBookings returns the number of stored bookings
func (m *MockDB) CountBookings(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.bookings), nil
}

// Close is a no-op for the in-memory database
func (m *MockDB) Close() error {
	return nil
}

func sortByStart(bookings []models.Booking) {
	sort.Slice(bookings, func(i, j int) bool {
		return bookings[i].StartsAt.Before(bookings[j].StartsAt)
	})
}
