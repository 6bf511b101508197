// Package stats derives view models from journal entries. Every builder is a
// total function of its inputs and an explicit "now"; none read the clock.
package stats

import (
	"time"

	"github.com/sadopc/moodlog/internal/mood"
	"github.com/sadopc/moodlog/internal/store"
)

// DuplicatePolicy decides which entry represents a day when several entries
// share a day key.
type DuplicatePolicy int

const (
	// LastInInput keeps the entry that appears last in the input slice.
	LastInInput DuplicatePolicy = iota
	// NewestCreated keeps the entry with the latest CreatedAt. Entries without
	// a timestamp lose to timestamped ones; otherwise input order decides.
	NewestCreated
)

// ParseDuplicatePolicy maps a config value to a policy. Unknown values fall
// back to LastInInput.
func ParseDuplicatePolicy(s string) DuplicatePolicy {
	switch s {
	case "newest", "newest_created", "created":
		return NewestCreated
	}
	return LastInInput
}

func (p DuplicatePolicy) String() string {
	if p == NewestCreated {
		return "newest"
	}
	return "last"
}

// indexByDay maps day keys to entries, resolving duplicates with policy.
// Entries whose date cannot be read are skipped.
func indexByDay(entries []store.Entry, loc *time.Location, policy DuplicatePolicy) map[string]*store.Entry {
	lookup := make(map[string]*store.Entry, len(entries))
	for i := range entries {
		e := &entries[i]
		key, ok := mood.NormalizeKey(e.Date, loc)
		if !ok {
			continue
		}
		if prev, exists := lookup[key]; exists && policy == NewestCreated && newer(prev, e) {
			continue
		}
		lookup[key] = e
	}
	return lookup
}

// newer reports whether a was created strictly after b.
func newer(a, b *store.Entry) bool {
	switch {
	case a.CreatedAt == nil:
		return false
	case b.CreatedAt == nil:
		return true
	default:
		return a.CreatedAt.After(*b.CreatedAt)
	}
}
