package app

import (
	"context"
	"time"

	"timeslot-service/internal/booking"
	"timeslot-service/internal/slot"
)

// SlotStore is the record store behind the handlers. *store.Store implements it.
type SlotStore interface {
	UpsertSlots(ctx context.Context, slots []slot.TimeWindow) (int, error)
	ListSlots(ctx context.Context, from, to time.Time) ([]slot.TimeWindow, error)
	GetSlot(ctx context.Context, id string) (slot.TimeWindow, error)
	CreateBooking(ctx context.Context, b booking.Booking) (booking.Booking, error)
	SetCalendarEvent(ctx context.Context, bookingID, eventID string) error
	ListBookings(ctx context.Context, from, to time.Time, limit int) ([]booking.Booking, error)
}

// Calendar is the slot calendar. *gcal.Source implements it.
type Calendar interface {
	FetchSlots(ctx context.Context, from, to time.Time) ([]slot.TimeWindow, error)
	InsertBooking(ctx context.Context, b booking.Booking, w slot.TimeWindow) (string, error)
}

type pinger interface {
	Ping(ctx context.Context) error
}
