package timezone

import (
	"errors"
	"fmt"
	"time"
)

// DayKeyLayout is the canonical day key format (YYYY-MM-DD in the scheduling zone).
const DayKeyLayout = "2006-01-02"

// ErrInvalidInstant is returned for zero or otherwise non-comparable instants.
var ErrInvalidInstant = errors.New("timezone: invalid instant")

// Normalizer converts instants to and from the scheduling timezone.
type Normalizer struct {
	loc *time.Location
	now func() time.Time
}

type Option func(*Normalizer)

// WithClock replaces the wall clock, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(n *Normalizer) {
		if now != nil {
			n.now = now
		}
	}
}

// New loads the named IANA zone ("Asia/Jerusalem").
func New(zone string, opts ...Option) (*Normalizer, error) {
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return nil, fmt.Errorf("timezone: load %q: %w", zone, err)
	}
	return NewInLocation(loc, opts...), nil
}

func NewInLocation(loc *time.Location, opts ...Option) *Normalizer {
	if loc == nil {
		loc = time.UTC
	}
	n := &Normalizer{loc: loc, now: time.Now}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

func (n *Normalizer) Location() *time.Location { return n.loc }

// Now is the only clock the core uses for "is this still bookable" decisions.
func (n *Normalizer) Now() time.Time {
	return n.now().In(n.loc)
}

// In converts t to the scheduling zone.
func (n *Normalizer) In(t time.Time) (time.Time, error) {
	if err := Check(t); err != nil {
		return time.Time{}, err
	}
	return t.In(n.loc), nil
}

func (n *Normalizer) DayKey(t time.Time) (string, error) {
	local, err := n.In(t)
	if err != nil {
		return "", err
	}
	return local.Format(DayKeyLayout), nil
}

func (n *Normalizer) StartOfDay(t time.Time) (time.Time, error) {
	local, err := n.In(t)
	if err != nil {
		return time.Time{}, err
	}
	y, m, d := local.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, n.loc), nil
}

// EndOfDay returns the last representable instant of t's day in the zone.
func (n *Normalizer) EndOfDay(t time.Time) (time.Time, error) {
	start, err := n.StartOfDay(t)
	if err != nil {
		return time.Time{}, err
	}
	return start.AddDate(0, 0, 1).Add(-time.Nanosecond), nil
}

func (n *Normalizer) Weekday(t time.Time) (time.Weekday, error) {
	local, err := n.In(t)
	if err != nil {
		return 0, err
	}
	return local.Weekday(), nil
}

// ParseDayKey parses a day key as midnight in the scheduling zone.
func (n *Normalizer) ParseDayKey(key string) (time.Time, error) {
	t, err := time.ParseInLocation(DayKeyLayout, key, n.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: day key %q", ErrInvalidInstant, key)
	}
	return t, nil
}

// DaysTouched lists every day key from dayKey(start) to dayKey(end), inclusive.
// Days are stepped by calendar date so DST transitions never skip or repeat a key.
func (n *Normalizer) DaysTouched(start, end time.Time) ([]string, error) {
	first, err := n.StartOfDay(start)
	if err != nil {
		return nil, err
	}
	lastKey, err := n.DayKey(end)
	if err != nil {
		return nil, err
	}
	if end.Before(start) {
		return nil, fmt.Errorf("%w: end %s before start %s", ErrInvalidInstant,
			end.Format(time.RFC3339), start.Format(time.RFC3339))
	}

	var keys []string
	for day := first; ; day = day.AddDate(0, 0, 1) {
		key := day.Format(DayKeyLayout)
		keys = append(keys, key)
		if key >= lastKey {
			break
		}
	}
	return keys, nil
}

// Check rejects the zero instant, which is how a malformed timestamp surfaces after parsing.
func Check(t time.Time) error {
	if t.IsZero() {
		return ErrInvalidInstant
	}
	return nil
}
