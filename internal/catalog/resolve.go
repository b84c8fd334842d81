package catalog

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// Matcher is one resolution tier. Tiers run in order; the first match wins.
type Matcher interface {
	Name() string
	Match(s *Snapshot, token string) (ClientRule, bool)
}

type idMatcher struct{}

func (idMatcher) Name() string { return "id" }

func (idMatcher) Match(s *Snapshot, token string) (ClientRule, bool) {
	id, err := strconv.Atoi(token)
	if err != nil {
		return ClientRule{}, false
	}
	idx, ok := s.byID[id]
	if !ok {
		return ClientRule{}, false
	}
	return s.rules[idx], true
}

type nameMatcher struct{}

func (nameMatcher) Name() string { return "name" }

func (nameMatcher) Match(s *Snapshot, token string) (ClientRule, bool) {
	idx, ok := s.byName[token]
	if !ok {
		return ClientRule{}, false
	}
	return s.rules[idx], true
}

// LegacyPrefixMatcher resolves old one-character links ("n" for "new_customer").
// It picks the first rule, in source order, whose type starts with the character,
// so two types sharing an initial are ambiguous. Keep it last and disable it where
// old links are no longer in circulation.
type LegacyPrefixMatcher struct{}

func (LegacyPrefixMatcher) Name() string { return "legacy-prefix" }

func (LegacyPrefixMatcher) Match(s *Snapshot, token string) (ClientRule, bool) {
	if utf8.RuneCountInString(token) != 1 {
		return ClientRule{}, false
	}
	for _, r := range s.rules {
		if strings.HasPrefix(r.Type, token) {
			return r, true
		}
	}
	return ClientRule{}, false
}

func defaultMatchers(legacy bool) []Matcher {
	m := []Matcher{idMatcher{}, nameMatcher{}}
	if legacy {
		m = append(m, LegacyPrefixMatcher{})
	}
	return m
}
