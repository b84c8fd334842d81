package booking

import (
	"context"
	"time"
)

// Contact is who the booking is for.
type Contact struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
	Notes string `json:"notes,omitempty"`
}

// Booking is an admitted reservation, ready for the persistence sink.
// ID and CreatedAt are assigned by the sink.
type Booking struct {
	ID               string    `json:"id"`
	SlotID           string    `json:"slot_id"`
	Contact          Contact   `json:"contact"`
	ClientType       string    `json:"client_type"`
	MeetingType      string    `json:"meeting_type"`
	DurationMinutes  int       `json:"duration_minutes"`
	DurationFallback bool      `json:"duration_fallback,omitempty"`
	Start            time.Time `json:"start"`
	End              time.Time `json:"end"`
	CreatedAt        time.Time `json:"created_at"`
	CalendarEventID  string    `json:"calendar_event_id,omitempty"`
}

// Sink persists admitted bookings and enforces its own conflict rules.
type Sink interface {
	CreateBooking(ctx context.Context, b Booking) (Booking, error)
}
