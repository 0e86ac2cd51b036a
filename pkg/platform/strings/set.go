// Package strings provides small string collection helpers.
package strings

import (
	"sort"
	"strings"
)

// Set is an exact-match string set. Membership is case-sensitive.
type Set map[string]struct{}

// NewSet builds a Set from values, trimming whitespace and dropping empty entries.
func NewSet(values ...string) Set {
	s := make(Set, len(values))
	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			continue
		}
		s[trimmed] = struct{}{}
	}
	return s
}

// Contains reports whether v is a member. v is not normalized.
func (s Set) Contains(v string) bool {
	_, ok := s[v]
	return ok
}

// Sorted returns the members in lexical order.
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for v := range s {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// DedupeAndTrim removes duplicates and empty strings from a slice,
// trimming whitespace from each element. Order is preserved.
func DedupeAndTrim(values []string) []string {
	if len(values) == 0 {
		return values
	}
	seen := make(Set, len(values))
	result := make([]string, 0, len(values))
	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed == "" || seen.Contains(trimmed) {
			continue
		}
		seen[trimmed] = struct{}{}
		result = append(result, trimmed)
	}
	return result
}
