package availability

import (
	"fmt"
	"sort"
	"time"

	"timeslot-service/internal/slot"
	"timeslot-service/internal/timezone"
)

// Buckets groups slots by day key. Slots live once in an arena; each day holds
// indices into it, so a multi-day slot is the same *TimeWindow on every day.
type Buckets struct {
	arena []slot.TimeWindow
	days  map[string][]int
	keys  []string
}

// Keys returns the day keys in chronological order.
func (b *Buckets) Keys() []string {
	return append([]string(nil), b.keys...)
}

// Day returns the slots touching key in input order.
func (b *Buckets) Day(key string) []*slot.TimeWindow {
	idx := b.days[key]
	out := make([]*slot.TimeWindow, len(idx))
	for i, j := range idx {
		out[i] = &b.arena[j]
	}
	return out
}

// Slots returns the arena, one entry per input slot.
func (b *Buckets) Slots() []slot.TimeWindow { return b.arena }

// Entries counts bucket memberships (a slot on three days counts three times).
func (b *Buckets) Entries() int {
	n := 0
	for _, idx := range b.days {
		n += len(idx)
	}
	return n
}

// Bucketer places pre-filtered slots into day buckets. It never filters.
type Bucketer struct {
	norm *timezone.Normalizer
}

func NewBucketer(norm *timezone.Normalizer) *Bucketer {
	return &Bucketer{norm: norm}
}

// Bucket builds fresh buckets from slots. A slot is placed on every day from
// its start's day key to its end's day key, inclusive.
func (b *Bucketer) Bucket(slots []slot.TimeWindow) (*Buckets, error) {
	out := &Buckets{
		arena: make([]slot.TimeWindow, len(slots)),
		days:  make(map[string][]int),
	}
	copy(out.arena, slots)

	for i, w := range out.arena {
		if err := w.Validate(); err != nil {
			return nil, err
		}
		keys, err := b.norm.DaysTouched(w.Start, w.End)
		if err != nil {
			return nil, fmt.Errorf("bucket slot %s: %w", w.ID, err)
		}
		for _, key := range keys {
			if _, seen := out.days[key]; !seen {
				out.keys = append(out.keys, key)
			}
			out.days[key] = append(out.days[key], i)
		}
	}
	sort.Strings(out.keys)
	return out, nil
}

// View is a calendar granularity.
type View string

const (
	ViewWeek  View = "week"
	ViewMonth View = "month"
)

func ParseView(raw string) (View, error) {
	switch View(raw) {
	case "", ViewWeek:
		return ViewWeek, nil
	case ViewMonth:
		return ViewMonth, nil
	}
	return "", fmt.Errorf("availability: unknown view %q", raw)
}

// ViewRange returns the [from, to) window a view shows around anchor. Weeks
// start on Sunday in the scheduling zone.
func ViewRange(norm *timezone.Normalizer, view View, anchor time.Time) (time.Time, time.Time, error) {
	day, err := norm.StartOfDay(anchor)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	switch view {
	case ViewMonth:
		first := time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, norm.Location())
		return first, first.AddDate(0, 1, 0), nil
	case ViewWeek, "":
		sunday := day.AddDate(0, 0, -int(day.Weekday()))
		return sunday, sunday.AddDate(0, 0, 7), nil
	}
	return time.Time{}, time.Time{}, fmt.Errorf("availability: unknown view %q", view)
}
