// Package codec decodes and classifies inbound frames and encodes outbound commands.
//
// Inbound frames are doubly encoded: the frame is a JSON string whose content
// is the JSON document of the logical message. Both passes are required to
// stay compatible with the session server.
package codec

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cardtable/pokersync/internal/game"
)

// KindGameState is the Kind of a GameStateEvent. It never appears on the wire.
const KindGameState game.MessageType = "game_state"

// ErrProtocol is wrapped by every decode failure.
var ErrProtocol = errors.New("protocol decode failure")

// Event is a classified inbound message. It is one of *ChatHistoryEvent,
// *ChatIncomingEvent, *TypingEvent or *GameStateEvent.
type Event interface {
	Kind() game.MessageType
}

// ChatHistoryEvent carries the ordered backlog of raw chat lines.
type ChatHistoryEvent struct {
	Lines []string
}

// ChatIncomingEvent carries a single raw chat line.
type ChatIncomingEvent struct {
	Line string
}

// TypingEvent relays a typing_start or typing_end notification.
type TypingEvent struct {
	Started  bool
	PlayerID game.PlayerID
}

// GameStateEvent carries a full snapshot. This is the fallback classification.
type GameStateEvent struct {
	Snapshot *game.Snapshot
}

func (*ChatHistoryEvent) Kind() game.MessageType  { return game.MsgTypeChatHistory }
func (*ChatIncomingEvent) Kind() game.MessageType { return game.MsgTypeChatIncoming }
func (*GameStateEvent) Kind() game.MessageType    { return KindGameState }
func (e *TypingEvent) Kind() game.MessageType {
	if e.Started {
		return game.MsgTypeTypingStart
	}
	return game.MsgTypeTypingEnd
}

func protocolErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrProtocol, fmt.Sprintf(format, args...))
}

// Unwrap performs the first decode pass: the frame must be a JSON string.
func Unwrap(frame []byte) ([]byte, error) {
	var inner string
	if err := json.Unmarshal(frame, &inner); err != nil {
		return nil, protocolErrorf("outer frame is not an encoded document: %v", err)
	}
	return []byte(inner), nil
}

// Wrap is the inverse of Unwrap, used by the session server side.
func Wrap(v any) ([]byte, error) {
	inner, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal message: %w", err)
	}
	frame, err := json.Marshal(string(inner))
	if err != nil {
		return nil, fmt.Errorf("failed to wrap message: %w", err)
	}
	return frame, nil
}

// Decode classifies one raw inbound frame.
func Decode(frame []byte) (Event, error) {
	doc, err := Unwrap(frame)
	if err != nil {
		return nil, err
	}

	var msg game.InboundMessage
	if err := json.Unmarshal(doc, &msg); err != nil {
		return nil, protocolErrorf("inner document: %v", err)
	}

	switch msg.Type {
	case game.MsgTypeChatHistory:
		var lines []string
		if len(msg.Payload) > 0 {
			if err := json.Unmarshal(msg.Payload, &lines); err != nil {
				return nil, protocolErrorf("chat history payload: %v", err)
			}
		}
		return &ChatHistoryEvent{Lines: lines}, nil

	case game.MsgTypeChatIncoming:
		var line string
		if err := json.Unmarshal(msg.Payload, &line); err != nil {
			return nil, protocolErrorf("chat incoming payload: %v", err)
		}
		return &ChatIncomingEvent{Line: line}, nil

	case game.MsgTypeTypingStart, game.MsgTypeTypingEnd:
		return &TypingEvent{Started: msg.Type == game.MsgTypeTypingStart, PlayerID: msg.ID}, nil
	}

	snapshot := &game.Snapshot{}
	if err := json.Unmarshal(doc, snapshot); err != nil {
		return nil, protocolErrorf("game state: %v", err)
	}
	return &GameStateEvent{Snapshot: snapshot}, nil
}

// Encode serializes an outbound Command. Outbound frames are encoded once.
func Encode(cmd game.Command) ([]byte, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	data, err := json.Marshal(cmd)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal command: %w", err)
	}
	return data, nil
}

// timestampLayouts accepted for the first field of a chat line.
// The server writes Python's str(datetime), which has no zone.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999",
	"2006-01-02T15:04:05.999999",
}

// DisplayTimeLayout is the local wall-clock format of ChatEntry.DisplayTime.
const DisplayTimeLayout = "15:04:05"

// ParseChatLine splits "timestamp::player_id::username::text" into a ChatEntry.
// The text may itself contain the separator.
func ParseChatLine(line string) (game.ChatEntry, error) {
	parts := strings.SplitN(line, game.ChatSeparator, 4)
	if len(parts) != 4 {
		return game.ChatEntry{}, protocolErrorf("chat line has %d fields, want 4: %q", len(parts), line)
	}

	ts, err := parseTimestamp(parts[0])
	if err != nil {
		return game.ChatEntry{}, err
	}
	return game.ChatEntry{
		Timestamp:   ts,
		PlayerID:    game.PlayerID(parts[1]),
		Username:    parts[2],
		Text:        parts[3],
		DisplayTime: ts.Local().Format(DisplayTimeLayout),
	}, nil
}

// FormatChatLine is the inverse of ParseChatLine.
func FormatChatLine(ts time.Time, playerID game.PlayerID, username, text string) string {
	return strings.Join([]string{ts.Format(time.RFC3339Nano), string(playerID), username, text}, game.ChatSeparator)
}

func parseTimestamp(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range timestampLayouts {
		if ts, err := time.ParseInLocation(layout, raw, time.Local); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, protocolErrorf("bad chat timestamp %q", raw)
}
