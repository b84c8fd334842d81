package catalog

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"timeslot-service/internal/slot"
)

// Snapshot is an immutable, published rule set.
type Snapshot struct {
	rules    []ClientRule
	byID     map[int]int
	byName   map[string]int
	global   map[string]int
	loadedAt time.Time
}

// Rules returns copies of the published rules in source order.
func (s *Snapshot) Rules() []ClientRule {
	out := make([]ClientRule, len(s.rules))
	for i, r := range s.rules {
		out[i] = r.clone()
	}
	return out
}

func (s *Snapshot) MeetingTypes() []MeetingTypeDefinition {
	out := make([]MeetingTypeDefinition, 0, len(s.global))
	for name, minutes := range s.global {
		out = append(out, MeetingTypeDefinition{Name: name, Minutes: minutes})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (s *Snapshot) LoadedAt() time.Time { return s.loadedAt }

func newSnapshot(set RuleSet, defaults []MeetingTypeDefinition, now time.Time) (*Snapshot, error) {
	s := &Snapshot{
		byID:     make(map[int]int),
		byName:   make(map[string]int),
		global:   make(map[string]int),
		loadedAt: now,
	}
	for i, raw := range set.Rules {
		r := raw.clone()
		r.Type = strings.TrimSpace(r.Type)
		if r.Type == "" {
			return nil, fmt.Errorf("%w: rule %d has no type name", ErrInvalidRules, i)
		}
		if r.Type == slot.Wildcard {
			return nil, fmt.Errorf("%w: %q is reserved", ErrInvalidRules, slot.Wildcard)
		}
		if _, dup := s.byName[r.Type]; dup {
			return nil, fmt.Errorf("%w: duplicate type %q", ErrInvalidRules, r.Type)
		}
		if r.ID != nil {
			if _, dup := s.byID[*r.ID]; dup {
				return nil, fmt.Errorf("%w: duplicate id %d", ErrInvalidRules, *r.ID)
			}
			s.byID[*r.ID] = len(s.rules)
		}
		for name, minutes := range r.Durations {
			if strings.TrimSpace(name) == "" {
				return nil, fmt.Errorf("%w: type %q has an unnamed meeting type", ErrInvalidRules, r.Type)
			}
			if minutes < 0 {
				return nil, fmt.Errorf("%w: type %q meeting %q has negative duration", ErrInvalidRules, r.Type, name)
			}
		}
		s.byName[r.Type] = len(s.rules)
		s.rules = append(s.rules, r)
	}

	defs := set.MeetingTypes
	if len(defs) == 0 {
		defs = defaults
	}
	for _, d := range defs {
		name := strings.TrimSpace(d.Name)
		if name == "" || d.Minutes < 0 {
			return nil, fmt.Errorf("%w: bad global meeting type %q", ErrInvalidRules, d.Name)
		}
		s.global[name] = d.Minutes
	}
	return s, nil
}

// Catalog holds the current rule snapshot behind an atomic pointer.
// Load and Refresh replace the snapshot wholesale; readers never see a partial one.
type Catalog struct {
	source   RuleSource
	current  atomic.Pointer[Snapshot]
	matchers []Matcher
	defaults []MeetingTypeDefinition
	logger   *zap.Logger
	now      func() time.Time

	writeMu sync.Mutex
}

type Option func(*Catalog)

func WithLogger(logger *zap.Logger) Option {
	return func(c *Catalog) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithLegacyPrefix enables or disables the one-character resolution tier.
func WithLegacyPrefix(enabled bool) Option {
	return func(c *Catalog) { c.matchers = defaultMatchers(enabled) }
}

// WithMatchers replaces the resolution tiers entirely.
func WithMatchers(m ...Matcher) Option {
	return func(c *Catalog) { c.matchers = m }
}

// WithMeetingTypes sets the global catalog used when a rule set carries none.
func WithMeetingTypes(defs []MeetingTypeDefinition) Option {
	return func(c *Catalog) { c.defaults = defs }
}

func WithClock(now func() time.Time) Option {
	return func(c *Catalog) {
		if now != nil {
			c.now = now
		}
	}
}

func New(source RuleSource, opts ...Option) *Catalog {
	c := &Catalog{
		source:   source,
		matchers: defaultMatchers(true),
		logger:   zap.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	empty, err := newSnapshot(RuleSet{}, c.defaults, time.Time{})
	if err != nil {
		c.logger.Error("ignoring invalid global meeting types", zap.Error(err))
		c.defaults = nil
		empty, _ = newSnapshot(RuleSet{}, nil, time.Time{})
	}
	c.current.Store(empty)
	return c
}

// Load performs the initial pull through FetchRules.
func (c *Catalog) Load(ctx context.Context) error {
	return c.publish(ctx, "load", c.source.FetchRules)
}

// Refresh re-pulls through RefreshRules and replaces the whole snapshot.
// On failure the previous snapshot stays authoritative and the error is returned.
func (c *Catalog) Refresh(ctx context.Context) error {
	return c.publish(ctx, "refresh", c.source.RefreshRules)
}

func (c *Catalog) publish(ctx context.Context, op string, pull func(context.Context) (RuleSet, error)) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	set, err := pull(ctx)
	if err != nil {
		c.logger.Error("rule pull failed, keeping previous snapshot", zap.String("op", op), zap.Error(err))
		return &RefreshError{Op: op, Err: err}
	}
	snap, err := newSnapshot(set, c.defaults, c.now())
	if err != nil {
		c.logger.Error("rule set rejected, keeping previous snapshot", zap.String("op", op), zap.Error(err))
		return &RefreshError{Op: op, Err: err}
	}
	c.current.Store(snap)
	c.logger.Info("rule snapshot published",
		zap.String("op", op),
		zap.Int("rules", len(snap.rules)),
		zap.Int("meeting_types", len(snap.global)))
	return nil
}

// Watch refreshes every interval until ctx is done. Failures are logged and
// the previous snapshot keeps serving.
func (c *Catalog) Watch(ctx context.Context, every time.Duration) {
	if every <= 0 {
		return
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = c.Refresh(ctx)
		}
	}
}

func (c *Catalog) Snapshot() *Snapshot { return c.current.Load() }

// View pins the current snapshot so a multi-step operation reads one rule set.
func (c *Catalog) View() *View {
	return &View{snap: c.current.Load(), c: c}
}

func (c *Catalog) Resolve(token string) (ClientRule, error) {
	return c.View().Resolve(token)
}

func (c *Catalog) AllowedMeetingTypes(token string, restrict []string) ([]string, error) {
	return c.View().AllowedMeetingTypes(token, restrict)
}

func (c *Catalog) DurationFor(token, meetingType string) (Duration, error) {
	return c.View().DurationFor(token, meetingType)
}

// View answers lookups against one snapshot.
type View struct {
	snap *Snapshot
	c    *Catalog
}

func (v *View) Snapshot() *Snapshot { return v.snap }

// Resolve runs the resolution tiers: numeric id, exact type name, then the
// legacy one-character prefix when enabled.
func (v *View) Resolve(token string) (ClientRule, error) {
	token = strings.TrimSpace(token)
	if token == "" || token == slot.Wildcard {
		return ClientRule{}, fmt.Errorf("%w: %q", ErrNotFound, token)
	}
	for _, m := range v.c.matchers {
		rule, ok := m.Match(v.snap, token)
		if !ok {
			continue
		}
		if _, legacy := m.(LegacyPrefixMatcher); legacy {
			v.c.logger.Warn("client type resolved by legacy prefix",
				zap.String("token", token), zap.String("type", rule.Type))
		}
		return rule.clone(), nil
	}
	return ClientRule{}, fmt.Errorf("%w: %q", ErrNotFound, token)
}

// AllowedMeetingTypes returns the meeting types offered to token, optionally
// intersected with a slot's allow-list. The wildcard token yields the union of
// every rule's offered types.
func (v *View) AllowedMeetingTypes(token string, restrict []string) ([]string, error) {
	offered := make(map[string]struct{})
	if strings.TrimSpace(token) == slot.Wildcard {
		for _, r := range v.snap.rules {
			for _, name := range r.Offered() {
				offered[name] = struct{}{}
			}
		}
	} else {
		rule, err := v.Resolve(token)
		if err != nil {
			return nil, err
		}
		for _, name := range rule.Offered() {
			offered[name] = struct{}{}
		}
	}

	if len(restrict) > 0 {
		allowed := make(map[string]struct{}, len(restrict))
		for _, name := range restrict {
			if _, ok := offered[name]; ok {
				allowed[name] = struct{}{}
			}
		}
		offered = allowed
	}

	out := make([]string, 0, len(offered))
	for name := range offered {
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

// DurationFor resolves the meeting length for token. A client rule's own
// positive duration wins; an explicit 0 is ErrNotOffered; an absent entry falls
// back to the global catalog and is flagged as such.
func (v *View) DurationFor(token, meetingType string) (Duration, error) {
	meetingType = strings.TrimSpace(meetingType)
	if meetingType == "" {
		return Duration{}, fmt.Errorf("%w: empty meeting type", ErrNotOffered)
	}

	if strings.TrimSpace(token) == slot.Wildcard {
		return v.wildcardDuration(meetingType)
	}

	rule, err := v.Resolve(token)
	if err != nil {
		return Duration{}, err
	}
	minutes, present := rule.Durations[meetingType]
	switch {
	case present && minutes > 0:
		return Duration{Minutes: minutes}, nil
	case present:
		return Duration{}, fmt.Errorf("%w: %q for %q", ErrNotOffered, meetingType, rule.Type)
	}

	if d, ok := v.fallback(rule.Type, meetingType); ok {
		return d, nil
	}
	return Duration{}, fmt.Errorf("%w: %q for %q", ErrNotOffered, meetingType, rule.Type)
}

func (v *View) wildcardDuration(meetingType string) (Duration, error) {
	agreed := 0
	for _, r := range v.snap.rules {
		minutes := r.Durations[meetingType]
		if minutes <= 0 {
			continue
		}
		if agreed != 0 && agreed != minutes {
			agreed = -1
			break
		}
		agreed = minutes
	}
	if agreed > 0 {
		return Duration{Minutes: agreed}, nil
	}
	if d, ok := v.fallback(slot.Wildcard, meetingType); ok {
		return d, nil
	}
	return Duration{}, fmt.Errorf("%w: %q has no duration for %q", ErrDurationUnresolved, meetingType, slot.Wildcard)
}

func (v *View) fallback(clientType, meetingType string) (Duration, bool) {
	minutes, ok := v.snap.global[meetingType]
	if !ok || minutes <= 0 {
		return Duration{}, false
	}
	v.c.logger.Warn("duration taken from global meeting type catalog",
		zap.String("client_type", clientType),
		zap.String("meeting_type", meetingType),
		zap.Int("minutes", minutes))
	return Duration{Minutes: minutes, Fallback: true}, true
}
