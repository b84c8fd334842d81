package gcal

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"timeslot-service/internal/booking"
	"timeslot-service/internal/slot"
	"timeslot-service/internal/timezone"
)

// Private extended property keys carried by slot and booking events.
const (
	PropClientType    = "clientType"
	PropMeetingTypes  = "meetingTypes"
	PropAvailable     = "available"
	PropParentEventID = "parentEventId"
	PropBookingID     = "bookingId"
)

// Source reads bookable slots from a Google Calendar and writes bookings back into it.
type Source struct {
	svc        *calendar.Service
	calendarID string
	norm       *timezone.Normalizer
	logger     *zap.Logger
}

// NewSource builds a calendar client from a service-account (or authorized user) credentials file.
func NewSource(ctx context.Context, credentialsFile, calendarID string, norm *timezone.Normalizer, logger *zap.Logger) (*Source, error) {
	data, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("gcal: read credentials: %w", err)
	}
	creds, err := google.CredentialsFromJSON(ctx, data, calendar.CalendarEventsScope)
	if err != nil {
		return nil, fmt.Errorf("gcal: parse credentials: %w", err)
	}
	svc, err := calendar.NewService(ctx, option.WithCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("gcal: create calendar service: %w", err)
	}
	return NewSourceFromService(svc, calendarID, norm, logger), nil
}

func NewSourceFromService(svc *calendar.Service, calendarID string, norm *timezone.Normalizer, logger *zap.Logger) *Source {
	if calendarID == "" {
		calendarID = "primary"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Source{svc: svc, calendarID: calendarID, norm: norm, logger: logger}
}

// FetchSlots lists the calendar's slot events overlapping [from, to).
// Booking events and events with unusable times are skipped.
func (s *Source) FetchSlots(ctx context.Context, from, to time.Time) ([]slot.TimeWindow, error) {
	call := s.svc.Events.List(s.calendarID).
		SingleEvents(true).
		OrderBy("startTime").
		MaxResults(250).
		TimeMin(from.UTC().Format(time.RFC3339)).
		TimeMax(to.UTC().Format(time.RFC3339))

	var out []slot.TimeWindow
	err := call.Pages(ctx, func(page *calendar.Events) error {
		for _, item := range page.Items {
			w, ok, err := ToWindow(item, s.norm)
			if err != nil {
				s.logger.Warn("skipping calendar event", zap.String("event_id", item.Id), zap.Error(err))
				continue
			}
			if ok {
				out = append(out, w)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("gcal: list events: %w", err)
	}
	return out, nil
}

// ToWindow converts a calendar event into a slot. ok is false for events
// that are not slots (cancelled, or written by InsertBooking).
func ToWindow(item *calendar.Event, norm *timezone.Normalizer) (w slot.TimeWindow, ok bool, err error) {
	if item == nil || item.Status == "cancelled" {
		return slot.TimeWindow{}, false, nil
	}
	props := privateProps(item)
	if props[PropBookingID] != "" {
		return slot.TimeWindow{}, false, nil
	}

	w = slot.TimeWindow{
		ID:            item.Id,
		ClientType:    props[PropClientType],
		MeetingTypes:  props[PropMeetingTypes],
		Available:     true,
		OriginEventID: item.RecurringEventId,
		ParentEventID: props[PropParentEventID],
	}
	if raw := strings.TrimSpace(props[PropAvailable]); raw != "" {
		avail, err := strconv.ParseBool(raw)
		if err != nil {
			return slot.TimeWindow{}, false, fmt.Errorf("gcal: event %s: bad %s %q", item.Id, PropAvailable, raw)
		}
		w.Available = avail
	}

	if w.Start, err = eventTime(item.Start, norm, false); err != nil {
		return slot.TimeWindow{}, false, fmt.Errorf("gcal: event %s start: %w", item.Id, err)
	}
	if w.End, err = eventTime(item.End, norm, true); err != nil {
		return slot.TimeWindow{}, false, fmt.Errorf("gcal: event %s end: %w", item.Id, err)
	}
	if err := w.Validate(); err != nil {
		return slot.TimeWindow{}, false, err
	}
	return w, true, nil
}

// eventTime parses a timed or all-day boundary. An all-day end date is
// exclusive, so it becomes the last instant of the previous day.
func eventTime(dt *calendar.EventDateTime, norm *timezone.Normalizer, isEnd bool) (time.Time, error) {
	if dt == nil {
		return time.Time{}, timezone.ErrInvalidInstant
	}
	if dt.DateTime != "" {
		return time.Parse(time.RFC3339, dt.DateTime)
	}
	if dt.Date != "" {
		day, err := norm.ParseDayKey(dt.Date)
		if err != nil {
			return time.Time{}, err
		}
		if isEnd {
			return norm.EndOfDay(day.AddDate(0, 0, -1))
		}
		return day, nil
	}
	return time.Time{}, timezone.ErrInvalidInstant
}

func privateProps(item *calendar.Event) map[string]string {
	if item.ExtendedProperties == nil || item.ExtendedProperties.Private == nil {
		return map[string]string{}
	}
	return item.ExtendedProperties.Private
}

// BookingEvent builds the calendar event written for an admitted booking.
func BookingEvent(b booking.Booking, w slot.TimeWindow, zone string) *calendar.Event {
	parent := w.ID
	if w.OriginEventID != "" {
		parent = w.OriginEventID
	}
	desc := fmt.Sprintf("Client type: %s\nMeeting type: %s (%d min)\nEmail: %s",
		b.ClientType, b.MeetingType, b.DurationMinutes, b.Contact.Email)
	if b.Contact.Phone != "" {
		desc += "\nPhone: " + b.Contact.Phone
	}
	if b.Contact.Notes != "" {
		desc += "\n\n" + b.Contact.Notes
	}
	return &calendar.Event{
		Summary:     fmt.Sprintf("%s: %s", b.MeetingType, b.Contact.Name),
		Description: desc,
		Start:       &calendar.EventDateTime{DateTime: b.Start.Format(time.RFC3339), TimeZone: zone},
		End:         &calendar.EventDateTime{DateTime: b.End.Format(time.RFC3339), TimeZone: zone},
		Attendees:   []*calendar.EventAttendee{{Email: b.Contact.Email, DisplayName: b.Contact.Name}},
		ExtendedProperties: &calendar.EventExtendedProperties{
			Private: map[string]string{
				PropBookingID:     b.ID,
				PropParentEventID: parent,
				PropAvailable:     "false",
			},
		},
	}
}

// InsertBooking writes the booking into the calendar and returns the new event id.
func (s *Source) InsertBooking(ctx context.Context, b booking.Booking, w slot.TimeWindow) (string, error) {
	ev := BookingEvent(b, w, s.norm.Location().String())
	created, err := s.svc.Events.Insert(s.calendarID, ev).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("gcal: insert booking event: %w", err)
	}
	return created.Id, nil
}
