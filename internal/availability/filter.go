package availability

import (
	"time"

	"go.uber.org/zap"

	"timeslot-service/internal/slot"
	"timeslot-service/internal/timezone"
)

// DayPredicate reports whether slots starting on the given local day are always
// offered, whatever availability calendar sync recorded for them.
type DayPredicate func(day time.Time) bool

// WeekdayPolicy marks one weekday (in the scheduling zone) as always available.
func WeekdayPolicy(wd time.Weekday) DayPredicate {
	return func(day time.Time) bool { return day.Weekday() == wd }
}

// Filter decides which slots a set of client types may see.
type Filter struct {
	norm            *timezone.Normalizer
	alwaysAvailable DayPredicate
	logger          *zap.Logger
}

type FilterOption func(*Filter)

// WithAlwaysAvailableDay installs the override-day policy. Nil disables it.
func WithAlwaysAvailableDay(p DayPredicate) FilterOption {
	return func(f *Filter) { f.alwaysAvailable = p }
}

func WithLogger(logger *zap.Logger) FilterOption {
	return func(f *Filter) {
		if logger != nil {
			f.logger = logger
		}
	}
}

func NewFilter(norm *timezone.Normalizer, opts ...FilterOption) *Filter {
	f := &Filter{norm: norm, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Visible reports whether w should be shown to the active client types at now.
// A zero now means the normalizer's clock.
func (f *Filter) Visible(w slot.TimeWindow, now time.Time, active []string) bool {
	visible, _ := f.decide(w, now, active)
	return visible
}

// Apply returns request-scoped copies of the visible slots, in input order.
// Copies that fall on the override day carry Available=true; the inputs are untouched.
func (f *Filter) Apply(slots []slot.TimeWindow, now time.Time, active []string) []slot.TimeWindow {
	out := make([]slot.TimeWindow, 0, len(slots))
	for _, w := range slots {
		visible, overridden := f.decide(w, now, active)
		if !visible {
			continue
		}
		if overridden {
			w.Available = true
		}
		out = append(out, w)
	}
	return out
}

func (f *Filter) decide(w slot.TimeWindow, now time.Time, active []string) (visible, overridden bool) {
	if err := w.Validate(); err != nil {
		f.logger.Warn("excluding malformed slot", zap.String("slot_id", w.ID), zap.Error(err))
		return false, false
	}
	if now.IsZero() {
		now = f.norm.Now()
	}

	if f.alwaysAvailable != nil {
		local, err := f.norm.In(w.Start)
		if err == nil && f.alwaysAvailable(local) {
			return true, true
		}
	}
	if !w.Available {
		return false, false
	}
	if !matchesClient(w, active) {
		return false, false
	}
	// Only fully past slots are hidden; one still running stays visible.
	if w.End.Before(now) {
		return false, false
	}
	return true, false
}

func matchesClient(w slot.TimeWindow, active []string) bool {
	if w.IsWildcard() {
		return true
	}
	set := make(map[string]struct{}, len(active))
	for _, t := range active {
		if t == slot.Wildcard {
			return true
		}
		set[t] = struct{}{}
	}
	for _, tag := range w.ClientTypes() {
		if _, ok := set[tag]; ok {
			return true
		}
	}
	return false
}
