package history

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps the most recent entries in a fixed-size ring.
// Once full, each Append overwrites the oldest entry.
type MemoryStore struct {
	mu      sync.Mutex
	entries []Entry
	next    int
	full    bool
	now     func() time.Time
}

// NewMemoryStore creates a MemoryStore holding at most capacity entries.
//
// Precondition: capacity > 0.
func NewMemoryStore(capacity int) *MemoryStore {
	if capacity <= 0 {
		panic("history: NewMemoryStore precondition violated: capacity must be > 0")
	}
	return &MemoryStore{
		entries: make([]Entry, capacity),
		now:     time.Now,
	}
}

// Append stores e, evicting the oldest entry when the ring is full.
func (s *MemoryStore) Append(_ context.Context, e Entry) (Entry, error) {
	e, err := Prepare(e, s.now())
	if err != nil {
		return Entry{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[s.next] = e
	s.next = (s.next + 1) % len(s.entries)
	if s.next == 0 {
		s.full = true
	}
	return e, nil
}

// Recent walks the ring backwards from the newest entry.
func (s *MemoryStore) Recent(_ context.Context, actor string, limit int) ([]Entry, error) {
	if limit <= 0 {
		return []Entry{}, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	n := s.next
	if s.full {
		n = len(s.entries)
	}
	out := make([]Entry, 0, min(limit, n))
	for i := 1; i <= n && len(out) < limit; i++ {
		e := s.entries[(s.next-i+len(s.entries))%len(s.entries)]
		if e.Actor == actor {
			out = append(out, e)
		}
	}
	return out, nil
}

// Len returns the number of entries currently held.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.full {
		return len(s.entries)
	}
	return s.next
}
