// Package chat holds the session chat history and the set of players currently typing.
package chat

import (
	"fmt"
	"sync"

	"github.com/cardtable/pokersync/internal/codec"
	"github.com/cardtable/pokersync/internal/game"
	"k8s.io/klog/v2"
)

// Log is the append-only, arrival-ordered chat history.
//
// The connection manager is its only writer; readers get copies.
type Log struct {
	mu      sync.RWMutex
	entries []game.ChatEntry
}

// NewLog creates an empty Log.
func NewLog() *Log {
	return &Log{}
}

// SetHistory replaces the whole log with the decoded lines, in order.
// If any line fails to decode the log is left untouched.
func (l *Log) SetHistory(lines []string) error {
	entries := make([]game.ChatEntry, 0, len(lines))
	for i, line := range lines {
		entry, err := codec.ParseChatLine(line)
		if err != nil {
			return fmt.Errorf("chat history line %d: %w", i, err)
		}
		entries = append(entries, entry)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = entries
	klog.V(1).Infof("chat.SetHistory: %d entries", len(entries))
	return nil
}

// Append decodes one line and adds it to the end of the log.
func (l *Log) Append(line string) (game.ChatEntry, error) {
	entry, err := codec.ParseChatLine(line)
	if err != nil {
		return game.ChatEntry{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, entry)
	return entry, nil
}

// Entries returns a copy of the log.
func (l *Log) Entries() []game.ChatEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]game.ChatEntry(nil), l.entries...)
}

// Len returns the number of entries.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Reset drops the log when leaving a session.
func (l *Log) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = nil
}
