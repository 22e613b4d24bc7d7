package main

import (
	"strings"
	"testing"

	"github.com/cardtable/pokersync/internal/client"
	"github.com/cardtable/pokersync/internal/game"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	sent []game.Command
}

func (r *recordingSender) Send(cmd game.Command) error {
	r.sent = append(r.sent, cmd)
	return nil
}

func TestRunLine(t *testing.T) {
	cases := []struct {
		line string
		want game.Command
		quit bool
	}{
		{"start", game.NewCommand(game.MsgTypeStart), false},
		{"seat 3", game.NewTakeSeat(3), false},
		{"bet 40", game.NewAmountCommand(game.MsgTypeBet, 40), false},
		{"RAISE 80", game.NewAmountCommand(game.MsgTypeRaise, 80), false},
		{"call", game.NewCommand(game.MsgTypeCall), false},
		{"check", game.NewCommand(game.MsgTypeCheck), false},
		{"fold", game.NewCommand(game.MsgTypePass), false},
		{"say good  luck", game.NewChatMessage("good  luck"), false},
		{"typing", game.NewCommand(game.MsgTypeTypingStart), false},
		{"idle", game.NewCommand(game.MsgTypeTypingEnd), false},
		{"exit", game.NewCommand(game.MsgTypeExit), true},
	}
	for _, tc := range cases {
		t.Run(strings.Fields(tc.line)[0], func(t *testing.T) {
			sender := &recordingSender{}
			quit, err := runLine(client.NewCommands(sender), tc.line)
			require.NoError(t, err)
			assert.Equal(t, tc.quit, quit)
			assert.Equal(t, []game.Command{tc.want}, sender.sent)
		})
	}
}

func TestRunLineRejects(t *testing.T) {
	sender := &recordingSender{}
	commands := client.NewCommands(sender)

	for _, line := range []string{"bet", "seat two", "say", "shuffle"} {
		_, err := runLine(commands, line)
		assert.Error(t, err, line)
	}
	assert.Empty(t, sender.sent)

	quit, err := runLine(commands, "quit")
	require.NoError(t, err)
	assert.True(t, quit)
	assert.Empty(t, sender.sent)
}

func TestWinnersLine(t *testing.T) {
	state := &game.Snapshot{
		Seats: game.Seats{"p1", game.NoPlayer, "p2"},
		Players: []*game.Player{
			{ID: "p1", Name: "Alice", Balance: 1200},
			{ID: "p2", Name: "Bob", Balance: 800},
		},
		Winners: []int{2},
	}
	assert.Equal(t, "winners: Bob (800)", winnersLine(state))

	state.Winners = nil
	assert.Empty(t, winnersLine(state))
}
