// Package client owns the single live connection to the session server.
//
// The Manager drives the connection lifecycle (connect, retry with a fixed
// backoff, give up and evict), feeds decoded inbound messages to the chat
// and session stores, and sends outbound commands.
package client

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/cardtable/pokersync/internal/chat"
	"github.com/cardtable/pokersync/internal/codec"
	"github.com/cardtable/pokersync/internal/game"
	"github.com/cardtable/pokersync/internal/session"
	"github.com/coder/websocket"
	"k8s.io/klog/v2"
)

var (
	// ErrNotConnected is returned by Send outside the Open state. Nothing is queued.
	ErrNotConnected = errors.New("not connected")

	// ErrRetryExhausted is passed to Hooks.OnEvict once reconnection gives up.
	ErrRetryExhausted = errors.New("reconnection attempts exhausted")
)

// readLimit for inbound frames: snapshots with full rosters exceed the library default.
const readLimit = 1 << 20

// State of the connection lifecycle.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateOpen
	StateReconnecting // Waiting out the backoff before the next attempt.
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateReconnecting:
		return "reconnecting"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Config for a Manager.
type Config struct {
	// URL is the base websocket URL; the session id and token are appended as path segments.
	URL          string
	MaxRetries   int
	RetryBackoff time.Duration
	DialTimeout  time.Duration
	WriteTimeout time.Duration

	// DialOptions are passed to websocket.Dial (custom HTTP client, headers).
	DialOptions *websocket.DialOptions
}

// Hooks are optional callbacks. They run on the manager's goroutines and
// must not call back into Connect or Close synchronously.
type Hooks struct {
	// OnStatus reports the connection indicator: true when open, false when lost.
	OnStatus func(connected bool)

	// OnEvent is called after an inbound event has been applied to the stores.
	OnEvent func(codec.Event)

	// OnEvict is called once when reconnection is given up. Local identity and
	// stores are already cleared; the caller should return to its landing state.
	OnEvict func(err error)
}

// Manager owns at most one live connection at a time.
type Manager struct {
	cfg   Config
	hooks Hooks

	chat    *chat.Log
	typing  *chat.TypingSet
	session *session.Store

	mu        sync.Mutex
	state     State
	conn      *websocket.Conn
	gen       uint64 // Bumped by Connect and Close; stale goroutines compare against it.
	cancel    context.CancelFunc
	sessionID string
	token     string
	attempts  int
}

// New creates an idle Manager writing into the given stores.
func New(cfg Config, hooks Hooks, log *chat.Log, typing *chat.TypingSet, store *session.Store) *Manager {
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 10 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 2 * time.Second
	}
	return &Manager{
		cfg:     cfg,
		hooks:   hooks,
		chat:    log,
		typing:  typing,
		session: store,
	}
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Identity returns the session id and token of the current connect request.
// Both are empty before Connect and after an eviction.
func (m *Manager) Identity() (sessionID, token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessionID, m.token
}

// SessionURL builds the websocket URL for a session and bearer token.
func SessionURL(base, sessionID, token string) string {
	return fmt.Sprintf("%s/%s/%s", strings.TrimRight(base, "/"), url.PathEscape(sessionID), url.PathEscape(token))
}

// Connect opens a connection to sessionID authenticated by token.
//
// It is idempotent and always wins: any previous connection, pending attempt
// or backoff is closed and discarded before the new attempt starts. Connect
// returns immediately; the outcome is reported through Hooks.OnStatus.
func (m *Manager) Connect(sessionID, token string) {
	m.mu.Lock()
	m.releaseLocked()
	m.gen++
	gen := m.gen
	m.sessionID, m.token = sessionID, token
	m.attempts = 0
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.state = StateConnecting
	m.mu.Unlock()

	klog.Infof("Connect: session %s", sessionID)
	go m.run(ctx, gen)
}

// Close closes the connection on request. No retry follows.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.state == StateIdle || m.state == StateClosed {
		m.mu.Unlock()
		return
	}
	wasOpen := m.state == StateOpen
	m.gen++
	gen := m.gen
	m.state = StateClosing
	conn, cancel := m.conn, m.cancel
	m.conn, m.cancel = nil, nil
	m.mu.Unlock()

	klog.Infof("Close: closing connection")
	if conn != nil {
		if err := conn.Close(websocket.StatusNormalClosure, "leaving"); err != nil {
			klog.V(1).Infof("Close: %v", err)
		}
	}
	if cancel != nil {
		cancel()
	}

	m.finishClose(gen)
	if wasOpen {
		m.notifyStatus(false)
	}
}

// finishClose marks the manager closed unless a Connect has superseded the
// close started at generation gen.
func (m *Manager) finishClose(gen uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gen == m.gen {
		m.state = StateClosed
	}
}

// releaseLocked drops the current connection and cancels its goroutine. m.mu must be held.
func (m *Manager) releaseLocked() {
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	if m.conn != nil {
		klog.Infof("Connect: Closing existing connection")
		m.conn.CloseNow()
		m.conn = nil
	}
}

// Send writes cmd to the live connection. It fails with ErrNotConnected
// outside the Open state; commands are never buffered.
func (m *Manager) Send(cmd game.Command) error {
	m.mu.Lock()
	conn := m.conn
	open := m.state == StateOpen && conn != nil
	m.mu.Unlock()
	if !open {
		klog.V(1).Infof("Send: dropping %s, not connected", cmd.Type)
		return ErrNotConnected
	}

	data, err := codec.Encode(cmd)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.WriteTimeout)
	defer cancel()
	if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
		klog.Errorf("Send: failed to send %s: %v", cmd.Type, err)
		return fmt.Errorf("failed to send %s: %w", cmd.Type, err)
	}
	return nil
}

// run owns one connect request: it dials, reads until the connection drops,
// and applies the retry policy until superseded, closed or evicted.
func (m *Manager) run(ctx context.Context, gen uint64) {
	for {
		conn, err := m.dial(ctx)
		if err != nil {
			klog.Errorf("run: dial failed: %v", err)
		} else if m.opened(gen, conn) {
			m.readLoop(ctx, gen, conn)
			conn.CloseNow()
		} else {
			conn.CloseNow()
			return
		}
		if !m.retry(ctx, gen) {
			return
		}
	}
}

func (m *Manager) dial(ctx context.Context) (*websocket.Conn, error) {
	m.mu.Lock()
	wsURL := SessionURL(m.cfg.URL, m.sessionID, m.token)
	m.mu.Unlock()

	dialCtx, cancel := context.WithTimeout(ctx, m.cfg.DialTimeout)
	defer cancel()
	klog.V(1).Infof("dial: connecting to %s", wsURL)
	conn, _, err := websocket.Dial(dialCtx, wsURL, m.cfg.DialOptions)
	if err != nil {
		return nil, fmt.Errorf("dial failed: %w", err)
	}
	conn.SetReadLimit(readLimit)
	return conn, nil
}

// opened installs conn if gen is still current.
func (m *Manager) opened(gen uint64, conn *websocket.Conn) bool {
	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		return false
	}
	m.conn = conn
	m.state = StateOpen
	m.attempts = 0
	m.mu.Unlock()

	klog.Infof("opened: connected")
	m.notifyStatus(true)
	return true
}

// retry handles an unexpected closure or failed attempt. It returns true
// when the caller should dial again.
func (m *Manager) retry(ctx context.Context, gen uint64) bool {
	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		return false
	}
	wasOpen := m.state == StateOpen
	m.conn = nil

	if m.attempts >= m.cfg.MaxRetries {
		klog.Warningf("retry: giving up after %d attempts", m.attempts)
		m.gen++
		m.state = StateClosed
		m.sessionID, m.token = "", ""
		m.attempts = 0
		if m.cancel != nil {
			m.cancel()
			m.cancel = nil
		}
		m.mu.Unlock()

		if wasOpen {
			m.notifyStatus(false)
		}
		m.evict()
		return false
	}

	m.attempts++
	attempt := m.attempts
	m.state = StateReconnecting
	m.mu.Unlock()

	if wasOpen {
		m.notifyStatus(false)
	}
	klog.Infof("retry: attempt %d/%d in %s", attempt, m.cfg.MaxRetries, m.cfg.RetryBackoff)

	timer := time.NewTimer(m.cfg.RetryBackoff)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.gen {
		return false
	}
	m.state = StateConnecting
	return true
}

func (m *Manager) evict() {
	if m.session != nil {
		m.session.Reset()
	}
	if m.chat != nil {
		m.chat.Reset()
	}
	if m.typing != nil {
		m.typing.Reset()
	}
	if m.hooks.OnEvict != nil {
		m.hooks.OnEvict(ErrRetryExhausted)
	}
}

func (m *Manager) readLoop(ctx context.Context, gen uint64, conn *websocket.Conn) {
	klog.V(1).Infof("readLoop: started")
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			if ctx.Err() == nil {
				klog.Errorf("readLoop: WS read error: %v", err)
			}
			return
		}
		if !m.current(gen) {
			return
		}
		m.handleFrame(data)
	}
}

func (m *Manager) current(gen uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return gen == m.gen && m.state == StateOpen
}

// handleFrame decodes one frame and applies it. Bad frames are logged and dropped.
func (m *Manager) handleFrame(data []byte) {
	event, err := codec.Decode(data)
	if err != nil {
		klog.Errorf("handleFrame: dropping frame: %v", err)
		return
	}
	klog.V(2).Infof("handleFrame: received %s", event.Kind())
	if err := m.apply(event); err != nil {
		klog.Errorf("handleFrame: dropping %s: %v", event.Kind(), err)
		return
	}
	if m.hooks.OnEvent != nil {
		m.hooks.OnEvent(event)
	}
}

func (m *Manager) apply(event codec.Event) error {
	switch e := event.(type) {
	case *codec.ChatHistoryEvent:
		return m.chat.SetHistory(e.Lines)

	case *codec.ChatIncomingEvent:
		_, err := m.chat.Append(e.Line)
		return err

	case *codec.TypingEvent:
		if e.Started {
			m.typing.Start(e.PlayerID)
		} else {
			m.typing.End(e.PlayerID)
		}

	case *codec.GameStateEvent:
		state := m.session.Merge(e.Snapshot)
		klog.V(1).Infof("apply: %s", state)

	default:
		return fmt.Errorf("unhandled event %T", event)
	}
	return nil
}

func (m *Manager) notifyStatus(connected bool) {
	if m.hooks.OnStatus != nil {
		m.hooks.OnStatus(connected)
	}
}
