package session

import (
	"testing"

	"github.com/cardtable/pokersync/internal/game"
	"github.com/stretchr/testify/assert"
)

func set(types ...game.MessageType) map[game.MessageType]bool {
	m := make(map[game.MessageType]bool, len(types))
	for _, t := range types {
		m[t] = true
	}
	return m
}

var chatCommands = []game.MessageType{game.MsgTypeNewMessage, game.MsgTypeTypingStart, game.MsgTypeTypingEnd}

func TestAllowedCommandsLobby(t *testing.T) {
	state := &game.Snapshot{
		Status: game.StatusLobby,
		Owner:  "p1",
		Seats:  game.Seats{"p1", game.NoPlayer, game.NoPlayer, game.NoPlayer},
	}

	// Owner seated alone: cannot start yet.
	assert.Equal(t, set(append(chatCommands, game.MsgTypeExit)...), AllowedCommands(state, "p1"))

	// Spectator may take a seat.
	assert.Equal(t, set(game.MsgTypeTakeSeat, game.MsgTypeExit), AllowedCommands(state, "p2"))

	// Second player seated: owner may start.
	state.Seats[2] = "p2"
	assert.Equal(t, set(append(chatCommands, game.MsgTypeExit, game.MsgTypeStart)...), AllowedCommands(state, "p1"))
	assert.Equal(t, set(append(chatCommands, game.MsgTypeExit)...), AllowedCommands(state, "p2"))
}

func TestAllowedCommandsFullTable(t *testing.T) {
	state := &game.Snapshot{Status: game.StatusLobby, Seats: game.Seats{"p1", "p2"}}
	assert.False(t, AllowedCommands(state, "p3")[game.MsgTypeTakeSeat])
}

func TestAllowedCommandsTurn(t *testing.T) {
	state := &game.Snapshot{
		Status:        game.StatusActive,
		Seats:         game.Seats{"p1", game.NoPlayer, "p2"},
		CurrentPlayer: 2,
	}

	got := AllowedCommands(state, "p2")
	for _, action := range game.TurnActions {
		assert.True(t, got[action], "current player may %s", action)
	}
	assert.False(t, got[game.MsgTypeStart])
	assert.False(t, got[game.MsgTypeTakeSeat])

	got = AllowedCommands(state, "p1")
	for _, action := range game.TurnActions {
		assert.False(t, got[action], "waiting player may not %s", action)
	}
	assert.True(t, got[game.MsgTypeNewMessage])

	// Spectators get nothing while a hand is played.
	assert.Empty(t, AllowedCommands(state, "p9"))
}

func TestAllowedCommandsRestrictedByServerActions(t *testing.T) {
	state := &game.Snapshot{
		Status:        game.StatusActive,
		Seats:         game.Seats{"p1", "p2"},
		CurrentPlayer: 0,
		Actions:       []game.MessageType{game.MsgTypeCall, game.MsgTypePass},
	}
	got := AllowedCommands(state, "p1")
	assert.True(t, got[game.MsgTypeCall])
	assert.True(t, got[game.MsgTypePass])
	assert.False(t, got[game.MsgTypeCheck])
	assert.False(t, got[game.MsgTypeBet])
	assert.False(t, got[game.MsgTypeRaise])
}

func TestAllowedCommandsNoState(t *testing.T) {
	assert.Empty(t, AllowedCommands(nil, "p1"))
	assert.Empty(t, AllowedCommands(&game.Snapshot{Status: game.StatusLobby}, game.NoPlayer))
}

func TestAllowedCommandsEnded(t *testing.T) {
	state := &game.Snapshot{Status: game.StatusEnded, Seats: game.Seats{"p1", "p2"}, CurrentPlayer: 0, Winners: []int{1}}
	assert.Equal(t, set(append(chatCommands, game.MsgTypeExit)...), AllowedCommands(state, "p1"))
}
