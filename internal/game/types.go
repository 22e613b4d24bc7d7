package game

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// PlayerID identifies a player (a user uuid on the wire).
type PlayerID string

// NoPlayer is the canonical value of an empty seat.
const NoPlayer PlayerID = ""

// emptySeatSentinels are the wire spellings the server uses for an unoccupied seat.
var emptySeatSentinels = map[string]bool{
	"":     true,
	"None": true,
	"null": true,
}

// NormalizeSeat maps any "unoccupied" wire sentinel to NoPlayer.
func NormalizeSeat(raw string) PlayerID {
	if emptySeatSentinels[strings.TrimSpace(raw)] {
		return NoPlayer
	}
	return PlayerID(raw)
}

// Seats is the fixed-length ordered list of seat occupants.
// Empty seats always hold NoPlayer, whatever the wire sent.
type Seats []PlayerID

// UnmarshalJSON accepts strings and nulls, normalizing every empty-seat sentinel.
func (s *Seats) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*s = nil
		return nil
	}
	var raw []*string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to decode seats: %w", err)
	}
	seats := make(Seats, len(raw))
	for i, r := range raw {
		if r == nil {
			seats[i] = NoPlayer
			continue
		}
		seats[i] = NormalizeSeat(*r)
	}
	*s = seats
	return nil
}

// MarshalJSON encodes empty seats as null.
func (s Seats) MarshalJSON() ([]byte, error) {
	if s == nil {
		return []byte("null"), nil
	}
	raw := make([]*string, len(s))
	for i, id := range s {
		if id == NoPlayer {
			continue
		}
		v := string(id)
		raw[i] = &v
	}
	return json.Marshal(raw)
}

// IndexOf returns the seat held by id, or -1.
func (s Seats) IndexOf(id PlayerID) int {
	if id == NoPlayer {
		return -1
	}
	for i, occupant := range s {
		if occupant == id {
			return i
		}
	}
	return -1
}

// Occupied returns the number of non-empty seats.
func (s Seats) Occupied() int {
	n := 0
	for _, occupant := range s {
		if occupant != NoPlayer {
			n++
		}
	}
	return n
}

// Clone returns an independent copy.
func (s Seats) Clone() Seats {
	if s == nil {
		return nil
	}
	return append(Seats(nil), s...)
}

// SessionStatus of a game session.
type SessionStatus int

const (
	StatusUnknown SessionStatus = 0
	StatusLobby   SessionStatus = 1
	StatusActive  SessionStatus = 2
	StatusPaused  SessionStatus = 3
	StatusEnded   SessionStatus = 4 // Set client-side when a round ends with winners.
)

func (s SessionStatus) String() string {
	switch s {
	case StatusLobby:
		return "lobby"
	case StatusActive:
		return "active"
	case StatusPaused:
		return "paused"
	case StatusEnded:
		return "ended"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// Stage of the betting round.
type Stage int

const (
	StagePreflop  Stage = 0
	StageFlop     Stage = 1
	StageTurn     Stage = 2
	StageRiver    Stage = 3
	StageShowdown Stage = 4
)

func (s Stage) String() string {
	switch s {
	case StagePreflop:
		return "preflop"
	case StageFlop:
		return "flop"
	case StageTurn:
		return "turn"
	case StageRiver:
		return "river"
	case StageShowdown:
		return "showdown"
	}
	return fmt.Sprintf("stage(%d)", int(s))
}

// PlayerStatus as reported by the server.
type PlayerStatus int

const (
	PlayerNotReady PlayerStatus = 0
	PlayerReady    PlayerStatus = 1
	PlayerPlaying  PlayerStatus = 2
	PlayerStaying  PlayerStatus = 3
	PlayerPassed   PlayerStatus = 4
	PlayerAllIn    PlayerStatus = 5
)

// Player represents a user in the session roster.
type Player struct {
	ID         PlayerID     `json:"id"`
	Name       string       `json:"name"`
	Balance    float64      `json:"balance"`
	CurrentBet float64      `json:"currentbet"`
	Status     PlayerStatus `json:"status"`
	Hand       Hand         `json:"hand"`
}

// Snapshot is the complete, authoritative session state pushed by the server.
type Snapshot struct {
	ID            string        `json:"id"`
	Status        SessionStatus `json:"status"`
	Seats         Seats         `json:"seats"`
	Owner         PlayerID      `json:"owner"`
	SmallBlind    float64       `json:"small_blind"`
	BigBlind      float64       `json:"big_blind"`
	Players       []*Player     `json:"players"`
	Board         Hand          `json:"board"`
	Stage         Stage         `json:"stage"`
	CurrentPlayer int           `json:"current_player"` // Seat index of the player to act.
	Dealer        *int          `json:"dealer"`         // Seat index, nil before the first deal.
	TotalBet      float64       `json:"total_bet"`      // Pot.
	Actions       []MessageType `json:"actions,omitempty"`
	Winners       []int         `json:"winners,omitempty"` // Seat indices, only on a terminal round.
}

// Player returns the roster entry for id, or nil.
func (s *Snapshot) Player(id PlayerID) *Player {
	if s == nil || id == NoPlayer {
		return nil
	}
	for _, p := range s.Players {
		if p != nil && p.ID == id {
			return p
		}
	}
	return nil
}

// Terminal reports whether the snapshot marks the end of a round.
func (s *Snapshot) Terminal() bool {
	return s != nil && len(s.Winners) > 0
}

// WinnerPlayers resolves the winning seat indices to roster entries through
// Seats. Indices that are out of range, empty or unknown are skipped.
func (s *Snapshot) WinnerPlayers() []*Player {
	if s == nil {
		return nil
	}
	var winners []*Player
	for _, seat := range s.Winners {
		if seat < 0 || seat >= len(s.Seats) {
			continue
		}
		if p := s.Player(s.Seats[seat]); p != nil {
			winners = append(winners, p)
		}
	}
	return winners
}

func (s *Snapshot) String() string {
	if s == nil {
		return "<no session>"
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Session %s: status=%s, stage=%s, pot=%g, current=%d, seats=[", s.ID, s.Status, s.Stage, s.TotalBet, s.CurrentPlayer)
	for i, id := range s.Seats {
		if i > 0 {
			sb.WriteString(", ")
		}
		if id == NoPlayer {
			sb.WriteString("-")
			continue
		}
		if p := s.Player(id); p != nil {
			fmt.Fprintf(&sb, "%s (%g)", p.Name, p.Balance)
		} else {
			sb.WriteString(string(id))
		}
	}
	sb.WriteString("]")
	if len(s.Winners) > 0 {
		fmt.Fprintf(&sb, ", winners=%v", s.Winners)
	}
	return sb.String()
}

// ChatEntry is one decoded chat line.
type ChatEntry struct {
	Timestamp   time.Time `json:"timestamp"`
	PlayerID    PlayerID  `json:"player_id"`
	Username    string    `json:"username"`
	Text        string    `json:"text"`
	DisplayTime string    `json:"display_time"` // Local wall-clock time, derived at decode time.
}
