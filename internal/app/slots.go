package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"timeslot-service/internal/availability"
	"timeslot-service/internal/catalog"
	"timeslot-service/internal/slot"
	"timeslot-service/internal/timezone"
)

// activeClientTypes resolves the client-type parameters of a listing request
// into the canonical active set. The wildcard and the multi-type client_types
// override are admin-only.
func activeClientTypes(c *gin.Context, view *catalog.View) ([]string, error) {
	raw := strings.TrimSpace(c.Query("client_types"))
	if raw == "" {
		_, active, err := resolveToken(c, view, strings.TrimSpace(c.Query("client_type")))
		return active, err
	}
	if !isAdmin(c) {
		return nil, errAdminOnly
	}
	var active []string
	for _, token := range slot.ParseList(raw) {
		if token == slot.Wildcard {
			return []string{slot.Wildcard}, nil
		}
		rule, err := view.Resolve(token)
		if err != nil {
			return nil, err
		}
		active = append(active, rule.Type)
	}
	return active, nil
}

// resolveToken returns the canonical client type for token (or the wildcard,
// admin-only) and the matching active set.
func resolveToken(c *gin.Context, view *catalog.View, token string) (string, []string, error) {
	switch token {
	case "":
		return "", nil, badInput("client_type required", nil)
	case slot.Wildcard:
		if !isAdmin(c) {
			return "", nil, errAdminOnly
		}
		return slot.Wildcard, []string{slot.Wildcard}, nil
	}
	rule, err := view.Resolve(token)
	if err != nil {
		return "", nil, err
	}
	return rule.Type, []string{rule.Type}, nil
}

// slotsForView runs fetch -> filter -> bucket for one calendar view.
func (a *App) slotsForView(ctx context.Context, view availability.View, anchor time.Time, active []string) (*availability.Buckets, time.Time, time.Time, error) {
	from, to, err := availability.ViewRange(a.Norm, view, anchor)
	if err != nil {
		return nil, time.Time{}, time.Time{}, err
	}
	stored, err := a.Store.ListSlots(ctx, from, to)
	if err != nil {
		return nil, time.Time{}, time.Time{}, err
	}
	visible := a.Filter.Apply(stored, time.Time{}, active)
	buckets, err := a.Bucketer.Bucket(visible)
	if err != nil {
		return nil, time.Time{}, time.Time{}, err
	}
	return buckets, from, to, nil
}

// visibleSlot loads one slot and returns its request-scoped copy when the
// active client types may see it.
func (a *App) visibleSlot(ctx context.Context, id string, active []string) (slot.TimeWindow, error) {
	w, err := a.Store.GetSlot(ctx, id)
	if err != nil {
		return slot.TimeWindow{}, err
	}
	visible := a.Filter.Apply([]slot.TimeWindow{w}, time.Time{}, active)
	if len(visible) == 0 {
		return slot.TimeWindow{}, fmt.Errorf("%w: %s", errSlotNotVisible, id)
	}
	return visible[0], nil
}

// parseAnchor reads a YYYY-MM-DD day key; empty means today in the scheduling zone.
func (a *App) parseAnchor(raw string) (time.Time, error) {
	if raw == "" {
		return a.Norm.Now(), nil
	}
	day, err := a.Norm.ParseDayKey(raw)
	if err != nil {
		return time.Time{}, badInput("date must be YYYY-MM-DD", err)
	}
	return day, nil
}

// parseRange reads from/to day keys into a [from, to+1day) window. Missing
// bounds default to the current week.
func (a *App) parseRange(fromStr, toStr string) (time.Time, time.Time, error) {
	if fromStr == "" && toStr == "" {
		return availability.ViewRange(a.Norm, availability.ViewWeek, a.Norm.Now())
	}
	if fromStr == "" || toStr == "" {
		return time.Time{}, time.Time{}, badInput("from and to required together (YYYY-MM-DD)", nil)
	}
	from, err := a.Norm.ParseDayKey(fromStr)
	if err != nil {
		return time.Time{}, time.Time{}, badInput("invalid from", err)
	}
	to, err := a.Norm.ParseDayKey(toStr)
	if err != nil {
		return time.Time{}, time.Time{}, badInput("invalid to", err)
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, badInput("from must not be after to", nil)
	}
	return from, to.AddDate(0, 0, 1), nil
}

func (a *App) daysInRange(b *availability.Buckets, from, to time.Time) []Day {
	days := []Day{}
	for _, key := range b.Keys() {
		day, err := a.Norm.ParseDayKey(key)
		if err != nil || day.Before(from) || !day.Before(to) {
			continue
		}
		entries := b.Day(key)
		out := Day{Date: key, Slots: make([]Slot, 0, len(entries))}
		for _, w := range entries {
			out.Slots = append(out.Slots, a.toSlot(*w))
		}
		days = append(days, out)
	}
	return days
}

func dayKey(norm *timezone.Normalizer, t time.Time) string {
	key, _ := norm.DayKey(t)
	return key
}
