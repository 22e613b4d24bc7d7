package client

import "github.com/cardtable/pokersync/internal/game"

// Sender delivers an outbound command. *Manager implements it.
type Sender interface {
	Send(cmd game.Command) error
}

// Commands turns user intents into outbound commands. It is stateless and
// does not check legality; see session.AllowedCommands for UI gating.
type Commands struct {
	sender Sender
}

// NewCommands creates a Commands bound to sender.
func NewCommands(sender Sender) *Commands {
	return &Commands{sender: sender}
}

// Start asks the server to start the game (owner only).
func (c *Commands) Start() error { return c.sender.Send(game.NewCommand(game.MsgTypeStart)) }

// TakeSeat asks for seat index seat.
func (c *Commands) TakeSeat(seat int) error { return c.sender.Send(game.NewTakeSeat(seat)) }

// Bet places a bet of amount.
func (c *Commands) Bet(amount int) error {
	return c.sender.Send(game.NewAmountCommand(game.MsgTypeBet, amount))
}

// Raise raises by amount.
func (c *Commands) Raise(amount int) error {
	return c.sender.Send(game.NewAmountCommand(game.MsgTypeRaise, amount))
}

// Call matches the current bet.
func (c *Commands) Call() error { return c.sender.Send(game.NewCommand(game.MsgTypeCall)) }

// Check passes the turn without betting.
func (c *Commands) Check() error { return c.sender.Send(game.NewCommand(game.MsgTypeCheck)) }

// Pass folds.
func (c *Commands) Pass() error { return c.sender.Send(game.NewCommand(game.MsgTypePass)) }

// Exit leaves the session.
func (c *Commands) Exit() error { return c.sender.Send(game.NewCommand(game.MsgTypeExit)) }

// SendMessage posts a chat message.
func (c *Commands) SendMessage(text string) error {
	return c.sender.Send(game.NewChatMessage(text))
}

// TypingStart tells the other players this one is composing a message.
func (c *Commands) TypingStart() error { return c.sender.Send(game.NewCommand(game.MsgTypeTypingStart)) }

// TypingEnd withdraws TypingStart.
func (c *Commands) TypingEnd() error { return c.sender.Send(game.NewCommand(game.MsgTypeTypingEnd)) }
