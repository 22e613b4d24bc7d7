// Package server is a development session server speaking the client wire
// protocol. It keeps just enough table state to exercise the client end to
// end; it does not implement poker rules.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
	"k8s.io/klog/v2"
)

// SessionPath is the websocket route; clients append /{session}/{token}.
const SessionPath = "/poker_game/game"

// Handler returns the HTTP handler serving s.
func (s *ServerState) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET "+SessionPath+"/{session}/{token}", s.HandleWS)
	return mux
}

// Run starts the server and blocks until the context is canceled.
// If addr is empty an ephemeral localhost port is used. Once listening, the
// state (with Address filled in) is sent to started, if not nil.
func Run(ctx context.Context, addr string, seats int, started chan<- *ServerState) error {
	if addr == "" {
		addr = "127.0.0.1:0"
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	s := NewServerState(seats)
	s.Address = ln.Addr().String()
	srv := &http.Server{Handler: s.Handler()}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		klog.Infof("Server started on %s", s.Address)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		// Graceful shutdown with 5 second timeout
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		klog.Infof("Shutting down server...")
		s.CloseAll()
		return srv.Shutdown(shutdownCtx)
	})

	if started != nil {
		started <- s
	}
	return g.Wait()
}
