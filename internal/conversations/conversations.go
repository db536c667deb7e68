// Package conversations holds in-flight wizard dialogue state. The store is
// an explicit dependency injected into the pipeline, never ambient state; in
// a multi-instance deployment it would need to move to a shared store, since
// conversation continuity breaks if a follow-up lands on another instance.
//
// Entries expire a fixed interval after their last activity and are removed
// by a background sweep. Concurrent turns on the same conversation id are not
// expected and are not made safe beyond map-level locking.
package conversations

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/crewplan/crewplan/pkg/models"
)

const (
	// DefaultTTL is how long a conversation survives after its last turn.
	DefaultTTL = 30 * time.Minute

	// DefaultSweepInterval is how often expired conversations are evicted.
	DefaultSweepInterval = 5 * time.Minute
)

type entry struct {
	conv       models.Conversation
	lastActive time.Time
}

// Store is a TTL-bounded in-memory conversation cache.
type Store struct {
	mu      sync.Mutex
	entries map[string]*entry
	ttl     time.Duration
	now     func() time.Time
}

// NewStore creates a conversation store. A non-positive ttl falls back to
// DefaultTTL.
func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{
		entries: make(map[string]*entry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// NewStoreAt creates a store with a fixed clock, for tests.
func NewStoreAt(ttl time.Duration, now func() time.Time) *Store {
	s := NewStore(ttl)
	s.now = now
	return s
}

// Get returns a copy of the conversation, or false when it does not exist or
// has expired. Reading does not refresh the TTL; only Append does.
func (s *Store) Get(id string) (models.Conversation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return models.Conversation{}, false
	}
	if s.now().Sub(e.lastActive) > s.ttl {
		delete(s.entries, id)
		return models.Conversation{}, false
	}
	cp := e.conv
	cp.Turns = append([]models.ChatTurn(nil), e.conv.Turns...)
	return cp, true
}

// Append records turns on a conversation, creating it when id is empty or
// unknown, and returns the conversation id. Appending refreshes the TTL.
func (s *Store) Append(id, orgID, userID string, turns ...models.ChatTurn) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if id == "" || !ok {
		id = uuid.NewString()
		e = &entry{conv: models.Conversation{
			ID:        id,
			OrgID:     orgID,
			UserID:    userID,
			CreatedAt: s.now(),
		}}
		s.entries[id] = e
	}
	e.conv.Turns = append(e.conv.Turns, turns...)
	e.lastActive = s.now()
	return id
}

// Clear drops a conversation's stored history.
func (s *Store) Clear(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, id)
}

// Len reports the number of live entries, expired or not.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Run sweeps expired conversations on a fixed interval until ctx is
// cancelled. The sweep only removes entries past the TTL; it never touches
// in-flight state.
func (s *Store) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Info().Dur("ttl", s.ttl).Dur("interval", interval).Msg("conversation sweep started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("conversation sweep stopped")
			return
		case <-ticker.C:
			if n := s.sweep(); n > 0 {
				log.Debug().Int("evicted", n).Msg("conversation sweep")
			}
		}
	}
}

func (s *Store) sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-s.ttl)
	evicted := 0
	for id, e := range s.entries {
		if e.lastActive.Before(cutoff) {
			delete(s.entries, id)
			evicted++
		}
	}
	return evicted
}
