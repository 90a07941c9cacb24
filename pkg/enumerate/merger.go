package enumerate

import (
	"sync"

	"github.com/channelvisor/tg-members/pkg/telegram"
)

// Set accumulates members unique by identity in discovery order.
// Merging is append-only and first-seen wins: the API returns slightly
// different attribute completeness across filters, and a later duplicate
// observation must not overwrite what the first one carried. Safe for
// concurrent use by parallel drains.
type Set struct {
	mu      sync.Mutex
	index   map[int64]struct{}
	members []telegram.Member
}

// NewSet creates an empty member set.
func NewSet() *Set {
	return &Set{
		index: make(map[int64]struct{}),
	}
}

// Merge folds a batch into the set and returns how many members were new.
// Runs in time proportional to len(batch).
func (s *Set) Merge(batch []telegram.Member) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	added := 0
	for _, m := range batch {
		if _, seen := s.index[m.ID]; seen {
			continue
		}
		s.index[m.ID] = struct{}{}
		s.members = append(s.members, m)
		added++
	}
	return added
}

// Len returns the current unique member count.
func (s *Set) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.members)
}

// Members returns a copy of the unique members in discovery order.
func (s *Set) Members() []telegram.Member {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]telegram.Member, len(s.members))
	copy(out, s.members)
	return out
}
