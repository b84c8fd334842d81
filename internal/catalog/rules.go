package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned when a client-type token resolves to no rule.
	ErrNotFound = errors.New("catalog: client type not found")
	// ErrNotOffered is returned when a known client type does not offer a meeting type.
	ErrNotOffered = errors.New("catalog: meeting type not offered")
	// ErrDurationUnresolved is returned when an offered meeting type has no duration anywhere.
	ErrDurationUnresolved = errors.New("catalog: duration unresolved")
	// ErrInvalidRules is returned when a fetched rule set cannot be published.
	ErrInvalidRules = errors.New("catalog: invalid rule set")
)

// ClientRule maps meeting types to durations for one client type.
// A duration of 0 means "not offered".
type ClientRule struct {
	ID          *int           `json:"id,omitempty"`
	Type        string         `json:"type"`
	DisplayName string         `json:"display_name,omitempty"`
	Durations   map[string]int `json:"durations"`
}

// Offered returns the meeting types with a positive duration, sorted by name.
func (r ClientRule) Offered() []string {
	var out []string
	for name, minutes := range r.Durations {
		if minutes > 0 {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

func (r ClientRule) clone() ClientRule {
	cp := r
	if r.ID != nil {
		id := *r.ID
		cp.ID = &id
	}
	cp.Durations = make(map[string]int, len(r.Durations))
	for k, v := range r.Durations {
		cp.Durations[k] = v
	}
	return cp
}

// MeetingTypeDefinition is an entry of the global fallback catalog.
type MeetingTypeDefinition struct {
	Name    string `json:"name"`
	Minutes int    `json:"minutes"`
}

// RuleSet is what a rule source hands to the catalog in one pull.
type RuleSet struct {
	Rules        []ClientRule            `json:"rules"`
	MeetingTypes []MeetingTypeDefinition `json:"meeting_types,omitempty"`
}

// RuleSource is the external rule provider (a spreadsheet, a cache, a fixture).
type RuleSource interface {
	FetchRules(ctx context.Context) (RuleSet, error)
	RefreshRules(ctx context.Context) (RuleSet, error)
}

// StaticSource serves a fixed rule set.
type StaticSource struct {
	Set RuleSet
}

func (s StaticSource) FetchRules(context.Context) (RuleSet, error)   { return s.Set, nil }
func (s StaticSource) RefreshRules(context.Context) (RuleSet, error) { return s.Set, nil }

// Duration is a resolved meeting length. Fallback marks a value taken from the
// global catalog instead of the client's own rule.
type Duration struct {
	Minutes  int  `json:"minutes"`
	Fallback bool `json:"fallback,omitempty"`
}

func (d Duration) Value() time.Duration {
	return time.Duration(d.Minutes) * time.Minute
}

// RefreshError reports a failed load or refresh. The previous snapshot stays published.
type RefreshError struct {
	Op  string
	Err error
}

func (e *RefreshError) Error() string {
	return fmt.Sprintf("catalog: %s rules: %v", e.Op, e.Err)
}

func (e *RefreshError) Unwrap() error { return e.Err }

// ParseMeetingTypes parses "phone:15,video:30" into definitions.
func ParseMeetingTypes(raw string) ([]MeetingTypeDefinition, error) {
	var defs []MeetingTypeDefinition
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, minutes, ok := strings.Cut(part, ":")
		if !ok {
			return nil, fmt.Errorf("meeting type %q: expected name:minutes", part)
		}
		var m int
		if _, err := fmt.Sscanf(strings.TrimSpace(minutes), "%d", &m); err != nil || m < 0 {
			return nil, fmt.Errorf("meeting type %q: invalid minutes", part)
		}
		defs = append(defs, MeetingTypeDefinition{Name: strings.TrimSpace(name), Minutes: m})
	}
	return defs, nil
}
