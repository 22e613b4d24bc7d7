package server

import (
	"context"
	"net"
	"net/http"
	"testing"
	"testing/synctest"
	"time"

	"github.com/cardtable/pokersync/internal/codec"
	"github.com/cardtable/pokersync/internal/game"
	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pipeListener serves HTTP connections over net.Pipe
type pipeListener struct {
	ch   chan net.Conn
	done chan struct{}
}

func (l *pipeListener) Accept() (net.Conn, error) {
	select {
	case c := <-l.ch:
		return c, nil
	case <-l.done:
		return nil, net.ErrClosed
	}
}

func (l *pipeListener) Close() error {
	select {
	case <-l.done:
	default:
		close(l.done)
	}
	return nil
}

func (l *pipeListener) Addr() net.Addr { return &net.TCPAddr{} }

func TestTurnOrderAndSeats(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		s := NewServerState(4)
		srv := &http.Server{Handler: s.Handler()}
		listener := &pipeListener{ch: make(chan net.Conn, 10), done: make(chan struct{})}
		defer listener.Close()
		go srv.Serve(listener)
		defer srv.Close()

		connect := func(player string) *websocket.Conn {
			opts := &websocket.DialOptions{
				HTTPClient: &http.Client{
					Transport: &http.Transport{
						DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
							cli, srv := net.Pipe()
							listener.ch <- srv
							return cli, nil
						},
					},
				},
			}
			conn, _, err := websocket.Dial(ctx, "http://localhost"+SessionPath+"/S1/"+player, opts)
			require.NoError(t, err)

			// Drain everything the server sends: writes on the unbuffered
			// net.Pipe block until read.
			go func() {
				for {
					if _, _, err := conn.Read(ctx); err != nil {
						return
					}
				}
			}()
			return conn
		}
		send := func(conn *websocket.Conn, cmd game.Command) {
			data, err := codec.Encode(cmd)
			require.NoError(t, err)
			require.NoError(t, conn.Write(ctx, websocket.MessageText, data))
			synctest.Wait()
		}

		conn1 := connect("p1")
		defer conn1.CloseNow()
		conn2 := connect("p2")
		defer conn2.CloseNow()
		synctest.Wait()
		require.Equal(t, 2, s.ConnectionCount("S1"))

		send(conn1, game.NewTakeSeat(0))
		send(conn2, game.NewTakeSeat(0)) // Taken.
		send(conn2, game.NewTakeSeat(1))
		send(conn2, game.NewTakeSeat(3)) // Already seated.
		snap := s.Snapshot("S1")
		assert.Equal(t, game.Seats{"p1", "p2", game.NoPlayer, game.NoPlayer}, snap.Seats)

		send(conn2, game.NewCommand(game.MsgTypeStart)) // Not the owner.
		assert.Equal(t, game.StatusLobby, s.Snapshot("S1").Status)

		send(conn1, game.NewCommand(game.MsgTypeStart))
		snap = s.Snapshot("S1")
		assert.Equal(t, game.StatusActive, snap.Status)
		assert.Equal(t, 1, snap.CurrentPlayer)

		send(conn1, game.NewCommand(game.MsgTypeCheck)) // Out of turn.
		assert.Equal(t, 1, s.Snapshot("S1").CurrentPlayer)

		send(conn2, game.NewCommand(game.MsgTypePass))
		snap = s.Snapshot("S1")
		assert.Equal(t, 0, snap.CurrentPlayer)
		assert.Equal(t, game.PlayerPassed, snap.Player("p2").Status)

		send(conn1, game.NewCommand(game.MsgTypeExit))
		assert.Equal(t, game.Seats{game.NoPlayer, "p2", game.NoPlayer, game.NoPlayer}, s.Snapshot("S1").Seats)

		// Kick drops both connections, as a network failure would.
		s.Kick("S1")
		synctest.Wait()
		assert.Equal(t, 0, s.ConnectionCount("S1"))
	})
}
