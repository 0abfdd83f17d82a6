package models

import "time"

// NatalProfile holds the birth data a user entered for a natal chart
type NatalProfile struct {
	UserID    int64     `json:"user_id"`
	Name      string    `json:"name"`
	BirthDate time.Time `json:"birth_date"`
	// TimeKnown is false when the user does not know the exact birth time
	BirthHour   int       `json:"birth_hour"`
	BirthMinute int       `json:"birth_minute"`
	TimeKnown   bool      `json:"time_known"`
	Place       string    `json:"place"`
	Latitude    float64   `json:"latitude,omitempty"`
	Longitude   float64   `json:"longitude,omitempty"`
	HasLocation bool      `json:"has_location"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// BirthTimeString formats the birth time or returns "unknown"
func (p NatalProfile) BirthTimeString() string {
	if !p.TimeKnown {
		return "unknown"
	}
	return time.Date(0, 1, 1, p.BirthHour, p.BirthMinute, 0, 0, time.UTC).Format("15:04")
}

// Booking is a reserved consultation slot
type Booking struct {
	ID        string    `json:"id"`
	UserID    int64     `json:"user_id"`
	ChatID    int64     `json:"chat_id"`
	Name      string    `json:"name"`
	StartsAt  time.Time `json:"starts_at"`
	CreatedAt time.Time `json:"created_at"`
}
