package game

import (
	"encoding/json"
	"fmt"
)

// MessageType for WebSocket communication between client and server.
type MessageType string

const (
	// Outbound: client intents.
	MsgTypeStart       MessageType = "start"        // Owner starts the game
	MsgTypeTakeSeat    MessageType = "take_seat"    // Sit at seat_num
	MsgTypeBet         MessageType = "bet"          // Bet value
	MsgTypeCall        MessageType = "call"         // Match the current bet
	MsgTypeRaise       MessageType = "raise"        // Raise by value
	MsgTypePass        MessageType = "pass"         // Fold
	MsgTypeCheck       MessageType = "check"        // Check
	MsgTypeExit        MessageType = "exit"         // Leave the session
	MsgTypeNewMessage  MessageType = "new_message"  // Chat message
	MsgTypeTypingStart MessageType = "typing_start" // Started composing a chat message
	MsgTypeTypingEnd   MessageType = "typing_end"   // Stopped composing

	// Inbound markers. Anything else is a game-state snapshot.
	MsgTypeChatHistory  MessageType = "chat_history"
	MsgTypeChatIncoming MessageType = "chat_incoming"
)

// TurnActions are the commands only the player to act may send.
var TurnActions = []MessageType{MsgTypeBet, MsgTypeCall, MsgTypeRaise, MsgTypePass, MsgTypeCheck}

// Command is the outbound envelope: {"type": ..., "value"?: ...}.
type Command struct {
	Type    MessageType `json:"type"`
	SeatNum *int        `json:"seat_num,omitempty"` // take_seat only
	Value   *int        `json:"value,omitempty"`    // bet and raise only
	Message string      `json:"message,omitempty"`  // new_message only
}

// NewCommand creates a Command without arguments.
func NewCommand(msgType MessageType) Command {
	return Command{Type: msgType}
}

// NewTakeSeat creates a take_seat Command.
func NewTakeSeat(seat int) Command {
	return Command{Type: MsgTypeTakeSeat, SeatNum: &seat}
}

// NewAmountCommand creates a bet or raise Command.
func NewAmountCommand(msgType MessageType, value int) Command {
	return Command{Type: msgType, Value: &value}
}

// NewChatMessage creates a new_message Command.
func NewChatMessage(text string) Command {
	return Command{Type: MsgTypeNewMessage, Message: text}
}

// Validate checks that the Command carries the arguments its type requires.
func (c Command) Validate() error {
	switch c.Type {
	case MsgTypeStart, MsgTypeCall, MsgTypePass, MsgTypeCheck, MsgTypeExit, MsgTypeTypingStart, MsgTypeTypingEnd:
		return nil
	case MsgTypeTakeSeat:
		if c.SeatNum == nil {
			return fmt.Errorf("%s requires seat_num", c.Type)
		}
	case MsgTypeBet, MsgTypeRaise:
		if c.Value == nil {
			return fmt.Errorf("%s requires value", c.Type)
		}
	case MsgTypeNewMessage:
		if c.Message == "" {
			return fmt.Errorf("%s requires message", c.Type)
		}
	default:
		return fmt.Errorf("unknown command type: %q", c.Type)
	}
	return nil
}

// InboundMessage is the logical (doubly-decoded) inbound object.
// Payload is set for chat messages; ID for typing notifications.
// For game state the whole object is the Snapshot.
type InboundMessage struct {
	Type    MessageType     `json:"type,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
	ID      PlayerID        `json:"id,omitempty"`
}
