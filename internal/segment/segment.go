package segment

import (
	"fmt"
	"time"

	"timeslot-service/internal/catalog"
	"timeslot-service/internal/slot"
)

// AtomicSpan is the longest slot that is never subdivided.
const AtomicSpan = 15 * time.Minute

// Durations is the part of the rule catalog the resolver needs. Both
// *catalog.Catalog and a pinned *catalog.View satisfy it.
type Durations interface {
	DurationFor(clientType, meetingType string) (catalog.Duration, error)
}

// Plan is the bookable breakdown of one slot for one meeting type.
type Plan struct {
	Starts   []time.Time
	Duration catalog.Duration
	// Atomic is set for short slots offered whole, without resolving a duration.
	Atomic bool
}

// Default is the start preselected when a meeting type is first chosen.
func (p Plan) Default() time.Time {
	if len(p.Starts) == 0 {
		return time.Time{}
	}
	return p.Starts[0]
}

// Contains reports whether start is one of the offered starts, by instant.
func (p Plan) Contains(start time.Time) bool {
	for _, s := range p.Starts {
		if s.Equal(start) {
			return true
		}
	}
	return false
}

type Resolver struct {
	durations Durations
}

func NewResolver(d Durations) *Resolver {
	return &Resolver{durations: d}
}

// Segments returns the candidate start instants for a slot and meeting type.
func (r *Resolver) Segments(w slot.TimeWindow, meetingType, clientType string) ([]time.Time, error) {
	plan, err := r.Resolve(w, meetingType, clientType)
	if err != nil {
		return nil, err
	}
	return plan.Starts, nil
}

// Resolve partitions w into back-to-back segments of the meeting type's
// duration, starting at w.Start. A tail shorter than one duration is dropped.
// Every call recomputes from the slot's own bounds.
func (r *Resolver) Resolve(w slot.TimeWindow, meetingType, clientType string) (Plan, error) {
	if err := w.Validate(); err != nil {
		return Plan{}, err
	}
	span := w.Span()
	if span <= AtomicSpan {
		return Plan{Starts: []time.Time{w.Start}, Atomic: true}, nil
	}

	d, err := r.durations.DurationFor(clientType, meetingType)
	if err != nil {
		return Plan{}, fmt.Errorf("%w: %q for %q: %w", catalog.ErrDurationUnresolved, meetingType, clientType, err)
	}
	step := d.Value()
	if step <= 0 {
		return Plan{}, fmt.Errorf("%w: %q for %q has no length", catalog.ErrDurationUnresolved, meetingType, clientType)
	}

	totalMinutes := int(span / time.Minute)
	count := totalMinutes / d.Minutes
	starts := make([]time.Time, 0, count)
	for i := 0; i < count; i++ {
		starts = append(starts, w.Start.Add(time.Duration(i)*step))
	}
	return Plan{Starts: starts, Duration: d}, nil
}
