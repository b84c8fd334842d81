package booking

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"timeslot-service/internal/catalog"
	"timeslot-service/internal/segment"
	"timeslot-service/internal/slot"
	"timeslot-service/internal/timezone"
)

// Reason identifies why a booking was not admitted.
type Reason string

const (
	ReasonMeetingTypeNotAllowed Reason = "meeting_type_not_allowed"
	ReasonDurationUnresolved    Reason = "duration_unresolved"
	ReasonSegmentNotOffered     Reason = "segment_not_offered"
	ReasonOverrun               Reason = "overrun"
)

// Rejection is returned by Admit when a candidate booking fails a check.
type Rejection struct {
	Reason      Reason
	MeetingType string
	Start       time.Time
	Err         error
}

func (r *Rejection) Error() string {
	if r.Err != nil {
		return fmt.Sprintf("booking: rejected (%s): %v", r.Reason, r.Err)
	}
	return fmt.Sprintf("booking: rejected (%s)", r.Reason)
}

func (r *Rejection) Unwrap() error { return r.Err }

// Message is the user-facing text for the rejection.
func (r *Rejection) Message() string {
	switch r.Reason {
	case ReasonMeetingTypeNotAllowed:
		return fmt.Sprintf("The meeting type %q is not available for this time slot.", r.MeetingType)
	case ReasonDurationUnresolved:
		return fmt.Sprintf("We could not determine how long a %q meeting takes. Please contact us to book it.", r.MeetingType)
	case ReasonSegmentNotOffered:
		return fmt.Sprintf("%s is not one of the offered start times for this slot.", r.Start.Format("15:04"))
	case ReasonOverrun:
		return fmt.Sprintf("A %q meeting starting at %s would run past the end of the slot.", r.MeetingType, r.Start.Format("15:04"))
	}
	return "The booking could not be accepted."
}

// AsRejection unwraps err into a *Rejection.
func AsRejection(err error) (*Rejection, bool) {
	var r *Rejection
	if errors.As(err, &r) {
		return r, true
	}
	return nil, false
}

// Checker validates candidate bookings against the rule catalog and the slot.
type Checker struct {
	catalog *catalog.Catalog
	logger  *zap.Logger
}

func NewChecker(c *catalog.Catalog, logger *zap.Logger) *Checker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Checker{catalog: c, logger: logger}
}

// Admit runs every admission check and returns the booking of record. It does
// not persist. Check failures come back as *Rejection; an unknown client type
// or the wildcard as catalog.ErrNotFound; malformed instants as timezone.ErrInvalidInstant.
func (c *Checker) Admit(w slot.TimeWindow, meetingType string, start time.Time, clientType string, contact Contact) (Booking, error) {
	if err := w.Validate(); err != nil {
		return Booking{}, err
	}
	if err := timezone.Check(start); err != nil {
		return Booking{}, fmt.Errorf("booking start: %w", err)
	}
	meetingType = strings.TrimSpace(meetingType)
	clientType = strings.TrimSpace(clientType)

	// One snapshot for every lookup below.
	view := c.catalog.View()

	// A booking belongs to exactly one client rule; the wildcard only lists.
	if clientType == slot.Wildcard {
		return Booking{}, fmt.Errorf("%w: %q cannot book, name a client type", catalog.ErrNotFound, clientType)
	}
	rule, err := view.Resolve(clientType)
	if err != nil {
		return Booking{}, err
	}
	canonical := rule.Type

	allowed, err := view.AllowedMeetingTypes(canonical, w.MeetingTypeList())
	if err != nil {
		return Booking{}, err
	}
	if !contains(allowed, meetingType) {
		return Booking{}, &Rejection{Reason: ReasonMeetingTypeNotAllowed, MeetingType: meetingType, Start: start}
	}

	d, err := view.DurationFor(canonical, meetingType)
	if err != nil || d.Minutes <= 0 {
		if err == nil {
			err = catalog.ErrDurationUnresolved
		}
		return Booking{}, &Rejection{Reason: ReasonDurationUnresolved, MeetingType: meetingType, Start: start, Err: err}
	}

	plan, err := segment.NewResolver(view).Resolve(w, meetingType, canonical)
	if err != nil {
		if errors.Is(err, catalog.ErrDurationUnresolved) {
			return Booking{}, &Rejection{Reason: ReasonDurationUnresolved, MeetingType: meetingType, Start: start, Err: err}
		}
		return Booking{}, err
	}
	if !plan.Contains(start) {
		return Booking{}, &Rejection{Reason: ReasonSegmentNotOffered, MeetingType: meetingType, Start: start}
	}

	end := start.Add(d.Value())
	if end.After(w.End) {
		return Booking{}, &Rejection{Reason: ReasonOverrun, MeetingType: meetingType, Start: start}
	}

	if d.Fallback {
		c.logger.Warn("admitting booking with fallback duration",
			zap.String("slot_id", w.ID),
			zap.String("client_type", canonical),
			zap.String("meeting_type", meetingType),
			zap.Int("minutes", d.Minutes))
	}

	return Booking{
		SlotID:           w.ID,
		Contact:          contact,
		ClientType:       canonical,
		MeetingType:      meetingType,
		DurationMinutes:  d.Minutes,
		DurationFallback: d.Fallback,
		Start:            start.UTC(),
		End:              end.UTC(),
	}, nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
