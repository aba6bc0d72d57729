// Package store provides the in-memory match-state repository consulted and
// mutated by the poll driver.
package store

import (
	"fmt"
	"sync"

	"github.com/primaltree/piratenation/internal/matchstate"
)

// Store is the state-store contract (spec §4.2): get, upsert, and a
// terminal-status query. Implementations must be safe for concurrent use
// from multiple worker goroutines.
//
// Deliberately interface-first, following the teacher's storage layer
// (interfaces.StorageManager / interfaces.JobQueueStore): there is exactly
// one implementation here (Memory, since spec.md §6 states "Persisted
// state: none"), but the poll driver depends on this interface rather than
// the concrete type so a durable backend could be substituted later without
// touching orchestrator or queue code.
type Store interface {
	Get(matchID string) (matchstate.MatchState, bool)
	Upsert(matchID, home, away string, homeScore, awayScore int, status matchstate.Status, minute int) matchstate.MatchState
	IsFinished(matchID string) bool
	All() []matchstate.MatchState
}

// Memory is a sync.RWMutex-guarded map implementation of Store. Reads
// observe a consistent snapshot of a single record; writes are
// last-writer-wins across concurrent upserts for the same key.
type Memory struct {
	mu   sync.RWMutex
	byID map[string]matchstate.MatchState
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{byID: make(map[string]matchstate.MatchState)}
}

// Get returns the last observed state for matchID, if any.
func (s *Memory) Get(matchID string) (matchstate.MatchState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.byID[matchID]
	return st, ok
}

// Upsert replaces any existing entry for matchID and returns the canonical
// stored value. Once a match has reached FT, further upserts are rejected —
// an upsert after FT is an invariant violation in a correct provider, and
// silently accepting it would let an observer witness a FT match un-finish.
func (s *Memory) Upsert(matchID, home, away string, homeScore, awayScore int, status matchstate.Status, minute int) matchstate.MatchState {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.byID[matchID]; ok && existing.Status == matchstate.StatusFullTime {
		panic(fmt.Sprintf("invariant violation: upsert after FT for match %s", matchID))
	}

	st := matchstate.MatchState{
		MatchID:   matchID,
		Home:      home,
		Away:      away,
		HomeScore: homeScore,
		AwayScore: awayScore,
		Status:    status,
		Minute:    minute,
	}
	s.byID[matchID] = st
	return st
}

// IsFinished reports whether matchID has an entry whose status is FT.
func (s *Memory) IsFinished(matchID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.byID[matchID]
	return ok && st.Status == matchstate.StatusFullTime
}

// All returns every tracked match state, in no particular order.
func (s *Memory) All() []matchstate.MatchState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]matchstate.MatchState, 0, len(s.byID))
	for _, st := range s.byID {
		out = append(out, st)
	}
	return out
}

var _ Store = (*Memory)(nil)
