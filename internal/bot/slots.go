package bot

import (
	"context"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"astrobot/internal/storage"
)

// slotCache remembers booked hours per day for a short time, so one hour grid
// render costs one storage query
type slotCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]slotEntry
}

type slotEntry struct {
	hours   map[int]bool
	fetched time.Time
}

func newSlotCache(ttl time.Duration) *slotCache {
	return &slotCache{ttl: ttl, entries: make(map[string]slotEntry)}
}

func (c *slotCache) get(day string, now time.Time) (map[int]bool, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[day]
	if !ok || now.Sub(e.fetched) > c.ttl {
		return nil, false
	}
	return e.hours, true
}

func (c *slotCache) put(day string, hours map[int]bool, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[day] = slotEntry{hours: hours, fetched: now}
}

func (c *slotCache) invalidate(day string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, day)
}

func dayKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// startOfDay is midnight of the calendar day of t in the location of t
func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// location is the zone consultation hours are given in
func (b *Bot) location() *time.Location {
	if b.booking.Location == nil {
		return time.UTC
	}
	return b.booking.Location
}

// localDay reads the calendar date of a picker result (or a parsed
// YYYY-MM-DD) as midnight in the booking location
func (b *Bot) localDay(d time.Time) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, b.location())
}

// slotStart is the instant hour:00 of the calendar date of d starts at in
// the booking location
func (b *Bot) slotStart(d time.Time, hour int) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(), hour, 0, 0, 0, b.location())
}

// bookedHours returns booked hours of a day, going to storage on a cache miss
func (b *Bot) bookedHours(ctx context.Context, day time.Time) (map[int]bool, error) {
	day = b.localDay(day)
	now := b.now()
	if hours, ok := b.slots.get(dayKey(day), now); ok {
		return hours, nil
	}
	hours, err := storage.BookedHours(ctx, b.db, day)
	if err != nil {
		return nil, err
	}
	b.slots.put(dayKey(day), hours, now)
	return hours, nil
}

// dayAvailable reports whether a day can be booked: not in the past and not
// a closed weekday
func (b *Bot) dayAvailable(_ context.Context, day time.Time) bool {
	if b.localDay(day).Before(startOfDay(b.now().In(b.location()))) {
		return false
	}
	return !slices.Contains(b.booking.ClosedDays, day.Weekday())
}

// slotAvailable reports whether the hour of a day is free and in the future.
// Business hours and disabled hours are checked by the picker itself
func (b *Bot) slotAvailable(ctx context.Context, day time.Time, hour int) bool {
	if !b.slotStart(day, hour).After(b.now()) {
		return false
	}
	booked, err := b.bookedHours(ctx, day)
	if err != nil {
		b.logger.Error("Failed to load booked hours", zap.Error(err), zap.String("day", dayKey(day)))
		return false
	}
	return !booked[hour]
}

// availableHours lists bookable hours of a day with the same rules the
// booking calendar applies
func (b *Bot) availableHours(ctx context.Context, day time.Time) []int {
	if !b.dayAvailable(ctx, day) {
		return []int{}
	}
	hours := []int{}
	for h := b.booking.HourStart; h <= b.booking.HourEnd; h++ {
		if slices.Contains(b.booking.DisabledHours, h) {
			continue
		}
		if b.slotAvailable(ctx, day, h) {
			hours = append(hours, h)
		}
	}
	return hours
}
