package slot

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"timeslot-service/internal/timezone"
)

// Wildcard is the client-type tag (and active-type token) meaning "every client type".
const Wildcard = "all"

// ErrInvalidWindow wraps timezone.ErrInvalidInstant for slots with unusable bounds.
var ErrInvalidWindow = fmt.Errorf("slot: invalid window: %w", timezone.ErrInvalidInstant)

// TimeWindow is a bookable calendar interval produced by calendar synchronization.
// The core reads it; nothing in the core writes it back.
type TimeWindow struct {
	ID            string    `json:"id"`
	Start         time.Time `json:"start"`
	End           time.Time `json:"end"`
	ClientType    string    `json:"client_type"`
	MeetingTypes  string    `json:"meeting_types"`
	Available     bool      `json:"available"`
	OriginEventID string    `json:"origin_event_id,omitempty"`
	ParentEventID string    `json:"parent_event_id,omitempty"`
}

// Validate checks that both instants are set and end > start.
func (w TimeWindow) Validate() error {
	if err := timezone.Check(w.Start); err != nil {
		return fmt.Errorf("%w: slot %s has no start", ErrInvalidWindow, w.ID)
	}
	if err := timezone.Check(w.End); err != nil {
		return fmt.Errorf("%w: slot %s has no end", ErrInvalidWindow, w.ID)
	}
	if !w.End.After(w.Start) {
		return fmt.Errorf("%w: slot %s ends at or before its start", ErrInvalidWindow, w.ID)
	}
	return nil
}

func (w TimeWindow) Span() time.Duration {
	return w.End.Sub(w.Start)
}

// ClientTypes returns the slot's tag as a set; an empty tag is the wildcard.
func (w TimeWindow) ClientTypes() []string {
	tags := ParseList(w.ClientType)
	if len(tags) == 0 {
		return []string{Wildcard}
	}
	return tags
}

func (w TimeWindow) IsWildcard() bool {
	for _, tag := range w.ClientTypes() {
		if tag == Wildcard {
			return true
		}
	}
	return false
}

// MeetingTypeList returns the permitted meeting types, or nil when the slot restricts nothing.
func (w TimeWindow) MeetingTypeList() []string {
	return ParseList(w.MeetingTypes)
}

// ParseList splits a comma-delimited list, trimming blanks and dropping duplicates.
func ParseList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	seen := make(map[string]struct{})
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if _, dup := seen[part]; dup {
			continue
		}
		seen[part] = struct{}{}
		out = append(out, part)
	}
	return out
}

// IsInvalid reports whether err came from malformed slot instants.
func IsInvalid(err error) bool {
	return errors.Is(err, timezone.ErrInvalidInstant)
}
