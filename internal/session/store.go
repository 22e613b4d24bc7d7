// Package session holds the latest merged session snapshot.
package session

import (
	"sync"

	"github.com/cardtable/pokersync/internal/game"
	"k8s.io/klog/v2"
)

// Store holds the client-visible session state.
//
// Merge is the only writer. The snapshot returned by State must be treated
// as read-only: merges never mutate a snapshot once it is held, they swap
// in a new one.
type Store struct {
	mu    sync.RWMutex
	state *game.Snapshot
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{}
}

// State returns the current snapshot, or nil before the first merge.
func (s *Store) State() *game.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Merge folds an inbound snapshot into the held state and returns the result.
//
// Seats are already normalized by game.Seats decoding. A snapshot carrying
// winners keeps the previously held seats, because the server sends the
// already vacated seat list alongside the round-end notice, and its status
// becomes game.StatusEnded. Any other snapshot replaces the state wholesale.
// The snapshot is trusted as is: no consistency checks are done.
func (s *Store) Merge(incoming *game.Snapshot) *game.Snapshot {
	if incoming == nil {
		return s.State()
	}
	next := *incoming
	next.Seats = normalizeSeats(incoming.Seats)

	s.mu.Lock()
	defer s.mu.Unlock()
	if next.Terminal() {
		var held game.Seats
		if s.state != nil {
			held = s.state.Seats.Clone()
		}
		klog.V(1).Infof("session.Merge: round over, winners %v; keeping seats %v", next.Winners, held)
		next.Seats = held
		next.Status = game.StatusEnded
	}
	s.state = &next
	return s.state
}

// Reset forgets the held state.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = nil
}

func normalizeSeats(seats game.Seats) game.Seats {
	if seats == nil {
		return nil
	}
	out := make(game.Seats, len(seats))
	for i, id := range seats {
		out[i] = game.NormalizeSeat(string(id))
	}
	return out
}
