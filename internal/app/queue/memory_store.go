package queue

import (
	"context"
	"sync"
	"time"

	"github.com/osa030/tunechat/internal/domain/track"
)

type memoryEntry struct {
	cursor    Cursor
	expiresAt time.Time
}

// MemoryStore keeps cursors in process memory. Entries expire after the TTL
// since their last save.
type MemoryStore struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	entries map[string]memoryEntry
}

// NewMemoryStore creates a memory store. A zero ttl never expires entries.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]memoryEntry),
	}
}

func (s *MemoryStore) Load(_ context.Context, listenerID string) (*Cursor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[listenerID]
	if !ok {
		return nil, nil
	}
	if s.expired(e) {
		delete(s.entries, listenerID)
		return nil, nil
	}
	c := copyCursor(e.cursor)
	return &c, nil
}

func (s *MemoryStore) Save(_ context.Context, listenerID string, c *Cursor) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[listenerID] = memoryEntry{
		cursor:    copyCursor(*c),
		expiresAt: s.now().Add(s.ttl),
	}
	s.sweep()
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, listenerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, listenerID)
	return nil
}

// Len returns the number of live entries.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweep()
	return len(s.entries)
}

func (s *MemoryStore) expired(e memoryEntry) bool {
	return s.ttl > 0 && !s.now().Before(e.expiresAt)
}

// sweep drops expired entries. Caller holds mu.
func (s *MemoryStore) sweep() {
	for id, e := range s.entries {
		if s.expired(e) {
			delete(s.entries, id)
		}
	}
}

// copyCursor keeps callers from mutating stored track slices.
func copyCursor(c Cursor) Cursor {
	return Cursor{
		Tracks: append([]track.Track(nil), c.Tracks...),
		Index:  c.Index,
	}
}
