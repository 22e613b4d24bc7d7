package client

import (
	"testing"

	"github.com/cardtable/pokersync/internal/game"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	sent []game.Command
	err  error
}

func (f *fakeSender) Send(cmd game.Command) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, cmd)
	return nil
}

func TestCommandsBuildEnvelopes(t *testing.T) {
	sender := &fakeSender{}
	c := NewCommands(sender)

	require.NoError(t, c.Start())
	require.NoError(t, c.TakeSeat(2))
	require.NoError(t, c.Bet(50))
	require.NoError(t, c.Call())
	require.NoError(t, c.Raise(100))
	require.NoError(t, c.Check())
	require.NoError(t, c.Pass())
	require.NoError(t, c.Exit())
	require.NoError(t, c.SendMessage("gg"))
	require.NoError(t, c.TypingStart())
	require.NoError(t, c.TypingEnd())

	want := []game.Command{
		game.NewCommand(game.MsgTypeStart),
		game.NewTakeSeat(2),
		game.NewAmountCommand(game.MsgTypeBet, 50),
		game.NewCommand(game.MsgTypeCall),
		game.NewAmountCommand(game.MsgTypeRaise, 100),
		game.NewCommand(game.MsgTypeCheck),
		game.NewCommand(game.MsgTypePass),
		game.NewCommand(game.MsgTypeExit),
		game.NewChatMessage("gg"),
		game.NewCommand(game.MsgTypeTypingStart),
		game.NewCommand(game.MsgTypeTypingEnd),
	}
	assert.Equal(t, want, sender.sent)
}

func TestCommandsPropagateSendFailure(t *testing.T) {
	c := NewCommands(&fakeSender{err: ErrNotConnected})
	assert.ErrorIs(t, c.Call(), ErrNotConnected)
	assert.ErrorIs(t, c.TakeSeat(0), ErrNotConnected)
}
