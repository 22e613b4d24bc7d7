package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cardtable/pokersync/internal/codec"
	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServerRun(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start the server on an ephemeral port.
	started := make(chan *ServerState, 1)
	errCh := make(chan error, 1)
	go func() {
		errCh <- Run(ctx, "", 4, started)
	}()
	s := <-started
	require.NotEmpty(t, s.Address)

	dialCtx, dialCancel := context.WithTimeout(ctx, 5*time.Second)
	defer dialCancel()
	conn, _, err := websocket.Dial(dialCtx, "ws://"+s.Address+SessionPath+"/S1/p1", nil)
	require.NoError(t, err)
	defer conn.CloseNow()

	_, data, err := conn.Read(dialCtx)
	require.NoError(t, err)
	event, err := codec.Decode(data)
	require.NoError(t, err)
	assert.IsType(t, &codec.ChatHistoryEvent{}, event)

	// Cancel the context to stop the server.
	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Server took too long to shut down")
	}
}

func TestHandlerRoutes(t *testing.T) {
	srv := httptest.NewServer(NewServerState(4).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/elsewhere")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// A plain HTTP request on the session route is refused by the upgrade.
	resp, err = http.Get(srv.URL + SessionPath + "/S1/p1")
	require.NoError(t, err)
	resp.Body.Close()
	assert.GreaterOrEqual(t, resp.StatusCode, 400)
}
