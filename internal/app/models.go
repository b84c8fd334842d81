package app

import (
	"time"

	"timeslot-service/internal/booking"
	"timeslot-service/internal/catalog"
	"timeslot-service/internal/slot"
)

// Slot is a visible slot as the booking page sees it, in the scheduling zone.
type Slot struct {
	ID           string    `json:"id"`
	Start        time.Time `json:"start"`
	End          time.Time `json:"end"`
	ClientType   string    `json:"client_type"`
	MeetingTypes []string  `json:"meeting_types"`
	Available    bool      `json:"available"`
}

type Day struct {
	Date  string `json:"date"`
	Slots []Slot `json:"slots"`
}

type SlotsResponse struct {
	View     string `json:"view"`
	From     string `json:"from"`
	To       string `json:"to"`
	Timezone string `json:"timezone"`
	Days     []Day  `json:"days"`
	Count    int    `json:"count"`
}

type MeetingType struct {
	Name     string `json:"name"`
	Minutes  int    `json:"minutes,omitempty"`
	Fallback bool   `json:"fallback,omitempty"`
}

type SegmentsResponse struct {
	SlotID          string      `json:"slot_id"`
	MeetingType     string      `json:"meeting_type"`
	DurationMinutes int         `json:"duration_minutes,omitempty"`
	Atomic          bool        `json:"atomic"`
	Starts          []time.Time `json:"starts"`
	Default         *time.Time  `json:"default,omitempty"`
}

type ClientTypeResponse struct {
	ID           *int     `json:"id,omitempty"`
	Type         string   `json:"type"`
	DisplayName  string   `json:"display_name,omitempty"`
	MeetingTypes []string `json:"meeting_types"`
}

type RulesResponse struct {
	Rules        []catalog.ClientRule            `json:"rules"`
	MeetingTypes []catalog.MeetingTypeDefinition `json:"meeting_types"`
	LoadedAt     time.Time                       `json:"loaded_at"`
}

type createBookingReq struct {
	SlotID      string         `json:"slot_id" binding:"required"`
	ClientType  string         `json:"client_type" binding:"required"`
	MeetingType string         `json:"meeting_type" binding:"required"`
	Start       string         `json:"start" binding:"required"` // RFC3339
	Contact     contactPayload `json:"contact" binding:"required"`
}

type contactPayload struct {
	Name  string `json:"name" binding:"required"`
	Email string `json:"email" binding:"required,email"`
	Phone string `json:"phone"`
	Notes string `json:"notes"`
}

func (p contactPayload) toContact() booking.Contact {
	return booking.Contact{Name: p.Name, Email: p.Email, Phone: p.Phone, Notes: p.Notes}
}

func (a *App) toSlot(w slot.TimeWindow) Slot {
	start, _ := a.Norm.In(w.Start)
	end, _ := a.Norm.In(w.End)
	types := w.MeetingTypeList()
	if types == nil {
		types = []string{}
	}
	return Slot{
		ID:           w.ID,
		Start:        start,
		End:          end,
		ClientType:   w.ClientType,
		MeetingTypes: types,
		Available:    w.Available,
	}
}
