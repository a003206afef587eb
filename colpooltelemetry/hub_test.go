package colpooltelemetry_test

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/colpool/colpool/colpooltelemetry"
)

func TestHubBroadcastsEventToConnectedClient(t *testing.T) {
	hub := colpooltelemetry.NewHub(16, nil)
	defer hub.Close()

	srv := httptest.NewServer(hub)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	// give the server goroutine time to register the client before
	// publishing, since registration happens asynchronously relative to
	// the dial returning.
	time.Sleep(50 * time.Millisecond)

	hub.Publish(colpooltelemetry.EventPoolCreated, map[string]any{"pool_id": 7})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var got colpooltelemetry.Event
	require.NoError(t, conn.ReadJSON(&got))
	require.Equal(t, colpooltelemetry.EventPoolCreated, got.Type)
	require.Contains(t, string(got.Payload), "pool_id")
}
