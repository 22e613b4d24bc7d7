package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/cardtable/pokersync/internal/codec"
	"github.com/cardtable/pokersync/internal/game"
	"github.com/coder/websocket"
	"github.com/google/uuid"
	"k8s.io/klog/v2"
)

const (
	startBalance = 1000
	smallBlind   = 10
	bigBlind     = 20
	writeTimeout = 2 * time.Second
)

// ServerState holds every session served.
type ServerState struct {
	Address string

	mu       sync.RWMutex
	seats    int
	Sessions map[string]*Session
}

// Session is the server-side view of one game session.
type Session struct {
	Snapshot *game.Snapshot
	Chat     []string
	conns    map[string]*peer
}

type peer struct {
	id     string
	player game.PlayerID
	conn   *websocket.Conn
}

// NewServerState creates an empty state whose sessions have the given number of seats.
func NewServerState(seats int) *ServerState {
	if seats <= 0 {
		seats = 4
	}
	return &ServerState{
		seats:    seats,
		Sessions: make(map[string]*Session),
	}
}

// sessionLocked returns (creating if needed) the session id. s.mu must be held.
func (s *ServerState) sessionLocked(id string) *Session {
	sess, ok := s.Sessions[id]
	if !ok {
		sess = &Session{
			Snapshot: &game.Snapshot{
				ID:         id,
				Status:     game.StatusLobby,
				Seats:      make(game.Seats, s.seats),
				SmallBlind: smallBlind,
				BigBlind:   bigBlind,
			},
			conns: make(map[string]*peer),
		}
		s.Sessions[id] = sess
	}
	return sess
}

// HandleWS upgrades a client connection to /{session}/{token}. The token is
// taken as the player id; the optional "name" query parameter is the display name.
func (s *ServerState) HandleWS(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("session")
	token := r.PathValue("token")
	if sessionID == "" || token == "" {
		http.Error(w, "missing session or token", http.StatusBadRequest)
		return
	}
	name := r.URL.Query().Get("name")
	if name == "" {
		name = token
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		klog.Errorf("HandleWS: accept failed: %v", err)
		return
	}
	p := &peer{id: uuid.NewString(), player: game.PlayerID(token), conn: conn}
	klog.Infof("HandleWS: %s joined session %s (conn %s)", token, sessionID, p.id)

	s.mu.Lock()
	sess := s.sessionLocked(sessionID)
	sess.conns[p.id] = p
	if sess.Snapshot.Owner == game.NoPlayer {
		sess.Snapshot.Owner = p.player
	}
	if sess.Snapshot.Player(p.player) == nil {
		sess.Snapshot.Players = append(sess.Snapshot.Players, &game.Player{ID: p.player, Name: name, Balance: startBalance})
	}
	history := append([]string{}, sess.Chat...)
	snapshot := encodeSnapshot(sess.Snapshot)
	s.mu.Unlock()

	ctx := r.Context()
	s.write(ctx, p, map[string]any{"type": game.MsgTypeChatHistory, "payload": history})
	s.writeFrame(ctx, p, snapshot)

	defer func() {
		s.mu.Lock()
		delete(sess.conns, p.id)
		s.mu.Unlock()
		conn.CloseNow()
		klog.Infof("HandleWS: %s left session %s (conn %s)", token, sessionID, p.id)
	}()

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			klog.V(1).Infof("HandleWS: read from %s ended: %v", p.id, err)
			return
		}
		var cmd game.Command
		if err := json.Unmarshal(data, &cmd); err != nil {
			klog.Errorf("HandleWS: bad command from %s: %v", p.id, err)
			continue
		}
		if err := cmd.Validate(); err != nil {
			klog.Errorf("HandleWS: invalid command from %s: %v", p.id, err)
			continue
		}
		s.handleCommand(ctx, sessionID, p, cmd)
	}
}

func (s *ServerState) handleCommand(ctx context.Context, sessionID string, p *peer, cmd game.Command) {
	s.mu.Lock()
	sess := s.sessionLocked(sessionID)
	snap := sess.Snapshot

	switch cmd.Type {
	case game.MsgTypeNewMessage:
		name := string(p.player)
		if pl := snap.Player(p.player); pl != nil {
			name = pl.Name
		}
		line := codec.FormatChatLine(time.Now(), p.player, name, cmd.Message)
		sess.Chat = append(sess.Chat, line)
		s.mu.Unlock()
		s.Broadcast(ctx, sessionID, map[string]any{"type": game.MsgTypeChatIncoming, "payload": line})
		return

	case game.MsgTypeTypingStart, game.MsgTypeTypingEnd:
		s.mu.Unlock()
		s.Broadcast(ctx, sessionID, map[string]any{"type": cmd.Type, "id": p.player})
		return

	case game.MsgTypeTakeSeat:
		seat := *cmd.SeatNum
		if snap.Status != game.StatusLobby || seat < 0 || seat >= len(snap.Seats) ||
			snap.Seats[seat] != game.NoPlayer || snap.Seats.IndexOf(p.player) >= 0 {
			klog.Warningf("handleCommand: %s cannot take seat %d", p.player, seat)
			s.mu.Unlock()
			return
		}
		snap.Seats[seat] = p.player

	case game.MsgTypeStart:
		if p.player != snap.Owner || snap.Status != game.StatusLobby || snap.Seats.Occupied() < game.MinPlayersToStart {
			klog.Warningf("handleCommand: %s cannot start session %s", p.player, sessionID)
			s.mu.Unlock()
			return
		}
		first := nextOccupied(snap.Seats, -1)
		snap.Status = game.StatusActive
		snap.Stage = game.StagePreflop
		snap.Dealer = &first
		snap.CurrentPlayer = nextOccupied(snap.Seats, first)

	case game.MsgTypeExit:
		if i := snap.Seats.IndexOf(p.player); i >= 0 {
			snap.Seats[i] = game.NoPlayer
		}

	default: // Turn actions.
		if snap.Status != game.StatusActive || snap.Seats.IndexOf(p.player) != snap.CurrentPlayer {
			klog.Warningf("handleCommand: %s acted out of turn", p.player)
			s.mu.Unlock()
			return
		}
		pl := snap.Player(p.player)
		switch cmd.Type {
		case game.MsgTypeBet, game.MsgTypeRaise:
			amount := float64(*cmd.Value)
			if pl != nil {
				pl.Balance -= amount
				pl.CurrentBet += amount
			}
			snap.TotalBet += amount
		case game.MsgTypePass:
			if pl != nil {
				pl.Status = game.PlayerPassed
			}
		}
		snap.CurrentPlayer = nextOccupied(snap.Seats, snap.CurrentPlayer)
	}

	klog.V(1).Infof("handleCommand: %s by %s, now %s", cmd.Type, p.player, sess)
	frame := encodeSnapshot(snap)
	s.mu.Unlock()
	s.broadcastFrame(ctx, sessionID, frame)
}

// nextOccupied returns the first occupied seat after from, wrapping around.
func nextOccupied(seats game.Seats, from int) int {
	for i := 1; i <= len(seats); i++ {
		idx := (from + i) % len(seats)
		if idx < 0 {
			idx += len(seats)
		}
		if seats[idx] != game.NoPlayer {
			return idx
		}
	}
	return -1
}

// wireSnapshot shadows Seats so empty seats go out as "None", as the
// production server writes them.
type wireSnapshot struct {
	*game.Snapshot
	Seats []string `json:"seats"`
}

func encodeSnapshot(snap *game.Snapshot) []byte {
	w := wireSnapshot{Snapshot: snap, Seats: make([]string, len(snap.Seats))}
	for i, id := range snap.Seats {
		if id == game.NoPlayer {
			w.Seats[i] = "None"
		} else {
			w.Seats[i] = string(id)
		}
	}
	frame, err := codec.Wrap(w)
	if err != nil {
		klog.Errorf("encodeSnapshot: %v", err)
		return nil
	}
	return frame
}

// Broadcast sends v, doubly encoded, to every connection of a session.
func (s *ServerState) Broadcast(ctx context.Context, sessionID string, v any) {
	frame, err := codec.Wrap(v)
	if err != nil {
		klog.Errorf("Broadcast: %v", err)
		return
	}
	s.broadcastFrame(ctx, sessionID, frame)
}

// BroadcastSnapshot sends snap to every connection of a session, without
// changing the session's own state.
func (s *ServerState) BroadcastSnapshot(ctx context.Context, sessionID string, snap *game.Snapshot) {
	s.broadcastFrame(ctx, sessionID, encodeSnapshot(snap))
}

// BroadcastRaw sends frame as is, bypassing the encoding.
func (s *ServerState) BroadcastRaw(ctx context.Context, sessionID string, frame []byte) {
	s.broadcastFrame(ctx, sessionID, frame)
}

func (s *ServerState) broadcastFrame(ctx context.Context, sessionID string, frame []byte) {
	if frame == nil {
		return
	}
	for _, p := range s.peers(sessionID) {
		s.writeFrame(ctx, p, frame)
	}
}

func (s *ServerState) peers(sessionID string) []*peer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.Sessions[sessionID]
	if !ok {
		return nil
	}
	peers := make([]*peer, 0, len(sess.conns))
	for _, p := range sess.conns {
		peers = append(peers, p)
	}
	return peers
}

func (s *ServerState) write(ctx context.Context, p *peer, v any) {
	frame, err := codec.Wrap(v)
	if err != nil {
		klog.Errorf("write: %v", err)
		return
	}
	s.writeFrame(ctx, p, frame)
}

func (s *ServerState) writeFrame(ctx context.Context, p *peer, frame []byte) {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	if err := p.conn.Write(ctx, websocket.MessageText, frame); err != nil {
		klog.V(1).Infof("writeFrame: to %s failed: %v", p.id, err)
	}
}

// SeedChat appends raw chat lines to a session, creating it if needed.
func (s *ServerState) SeedChat(sessionID string, lines ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.sessionLocked(sessionID)
	sess.Chat = append(sess.Chat, lines...)
}

// Snapshot returns a copy of a session's current snapshot, or nil.
func (s *ServerState) Snapshot(sessionID string) *game.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.Sessions[sessionID]
	if !ok {
		return nil
	}
	snap := *sess.Snapshot
	snap.Seats = sess.Snapshot.Seats.Clone()
	return &snap
}

// ConnectionCount returns the number of live connections to a session.
func (s *ServerState) ConnectionCount(sessionID string) int {
	return len(s.peers(sessionID))
}

// Kick drops every connection of a session without a close handshake,
// as a network failure would.
func (s *ServerState) Kick(sessionID string) {
	for _, p := range s.peers(sessionID) {
		p.conn.CloseNow()
	}
}

// CloseAll drops every connection of every session.
func (s *ServerState) CloseAll() {
	s.mu.RLock()
	ids := make([]string, 0, len(s.Sessions))
	for id := range s.Sessions {
		ids = append(ids, id)
	}
	s.mu.RUnlock()
	for _, id := range ids {
		s.Kick(id)
	}
}

func (sess *Session) String() string {
	return fmt.Sprintf("%s (%d connections)", sess.Snapshot, len(sess.conns))
}
