package chat

import (
	"slices"
	"sync"

	"github.com/cardtable/pokersync/internal/game"
)

// TypingSet tracks who is composing a message. It only relays discrete
// start/end notifications; how long "started" lasts is up to the sender.
type TypingSet struct {
	mu      sync.RWMutex
	members map[game.PlayerID]struct{}
}

// NewTypingSet creates an empty TypingSet.
func NewTypingSet() *TypingSet {
	return &TypingSet{members: make(map[game.PlayerID]struct{})}
}

// Start adds id. Repeated starts are idempotent.
func (t *TypingSet) Start(id game.PlayerID) {
	if id == game.NoPlayer {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.members[id] = struct{}{}
}

// End removes id.
func (t *TypingSet) End(id game.PlayerID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.members, id)
}

// Contains reports whether id is typing.
func (t *TypingSet) Contains(id game.PlayerID) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.members[id]
	return ok
}

// Members returns the ids currently typing, sorted.
func (t *TypingSet) Members() []game.PlayerID {
	t.mu.RLock()
	defer t.mu.RUnlock()
	ids := make([]game.PlayerID, 0, len(t.members))
	for id := range t.members {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Reset empties the set.
func (t *TypingSet) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	clear(t.members)
}
