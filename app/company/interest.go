package company

import (
	"sort"
	"strings"
)

// InterestSet holds the normalized names and aliases of the companies a user
// follows. It is built once per scrape run and only read afterwards.
type InterestSet struct {
	entries map[string]struct{}
}

// NewInterestSet normalizes every name and every non-empty alias. Inputs that
// normalize to the empty string are dropped, and the order of the inputs does
// not affect the resulting set.
func NewInterestSet(names, aliases []string) *InterestSet {
	s := &InterestSet{entries: make(map[string]struct{}, len(names)+len(aliases))}

	for _, name := range names {
		s.add(name)
	}
	for _, alias := range aliases {
		if strings.TrimSpace(alias) == "" {
			continue
		}
		s.add(alias)
	}

	return s
}

func (s *InterestSet) add(raw string) {
	if n := Normalize(raw); n != "" {
		s.entries[n] = struct{}{}
	}
}

func (s *InterestSet) Len() int {
	return len(s.entries)
}

// Contains reports exact membership of an already normalized string.
func (s *InterestSet) Contains(normalized string) bool {
	_, ok := s.entries[normalized]
	return ok
}

// Entries returns the set contents in sorted order.
func (s *InterestSet) Entries() []string {
	out := make([]string, 0, len(s.entries))
	for e := range s.entries {
		out = append(out, e)
	}
	sort.Strings(out)
	return out
}

// Match reports whether a raw company name from the feed refers to one of the
// companies in the set. A name that normalizes to "" never matches. Otherwise
// an exact hit wins, and failing that, containment in either direction is
// accepted so that "삼성전자" matches an entry "삼성전자서비스" and vice versa.
//
// Short entries therefore match broadly: an alias like "lg" accepts any feed
// name containing it.
func (s *InterestSet) Match(name string) bool {
	n := Normalize(name)
	if n == "" {
		return false
	}

	if _, ok := s.entries[n]; ok {
		return true
	}

	for entry := range s.entries {
		if entry == "" {
			continue
		}
		if strings.Contains(n, entry) || strings.Contains(entry, n) {
			return true
		}
	}

	return false
}
