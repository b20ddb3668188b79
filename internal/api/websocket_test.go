package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fish-tracker/backend/internal/models"
	"github.com/fish-tracker/backend/internal/testutil"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T, cfg HubConfig) (*Hub, *httptest.Server, func() models.View, func(models.Snapshot)) {
	t.Helper()
	store := newStore()
	hub := NewHub(store, testRenderer(), cfg)

	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	e := echo.New()
	e.GET("/api/ws", hub.HandleWebSocket)
	srv := httptest.NewServer(e)

	t.Cleanup(func() {
		cancel()
		srv.Close()
	})
	return hub, srv, store.View, store.ReplaceSnapshot
}

func dial(t *testing.T, srv *httptest.Server, header http.Header) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) WSMessage {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg WSMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestHub_ConnectedThenCurrentView(t *testing.T) {
	_, srv, _, _ := startHub(t, HubConfig{})
	conn := dial(t, srv, nil)

	assert.Equal(t, MsgTypeConnected, readMessage(t, conn).Type)

	msg := readMessage(t, conn)
	require.Equal(t, MsgTypeViewUpdate, msg.Type)
	var view ViewResponse
	require.NoError(t, json.Unmarshal(msg.Payload, &view))
	assert.Equal(t, "sess-1", view.SessionID)
	assert.Empty(t, view.Snapshot.Entities)
	require.NotNil(t, view.Page)
}

func TestHub_InitialViewReadAtRegistration(t *testing.T) {
	store := newStore()
	hub := NewHub(store, testRenderer(), HubConfig{})

	e := echo.New()
	e.GET("/api/ws", hub.HandleWebSocket)
	srv := httptest.NewServer(e)
	defer srv.Close()

	// The hub is not running yet, so the client cannot be registered.
	conn := dial(t, srv, nil)
	store.ReplaceSnapshot(models.Snapshot{Entities: []models.Fish{testutil.Salmon()}, CapturedAt: time.Now()})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	assert.Equal(t, MsgTypeConnected, readMessage(t, conn).Type)

	msg := readMessage(t, conn)
	require.Equal(t, MsgTypeViewUpdate, msg.Type)
	var view ViewResponse
	require.NoError(t, json.Unmarshal(msg.Payload, &view))
	require.Len(t, view.Snapshot.Entities, 1)
	require.NotNil(t, view.Page)
	assert.Equal(t, store.View().Revision, view.Page.Revision)
}

func TestHub_BroadcastsOnChange(t *testing.T) {
	hub, srv, _, replace := startHub(t, HubConfig{})
	conn := dial(t, srv, nil)
	readMessage(t, conn)
	readMessage(t, conn)

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	replace(models.Snapshot{Entities: []models.Fish{testutil.Salmon()}, CapturedAt: time.Now()})

	msg := readMessage(t, conn)
	require.Equal(t, MsgTypeViewUpdate, msg.Type)
	var view ViewResponse
	require.NoError(t, json.Unmarshal(msg.Payload, &view))
	require.Len(t, view.Snapshot.Entities, 1)
	assert.Equal(t, "Salmon", view.Page.Markers[0].Title)
}

func TestHub_PingPong(t *testing.T) {
	_, srv, _, _ := startHub(t, HubConfig{})
	conn := dial(t, srv, nil)
	readMessage(t, conn)
	readMessage(t, conn)

	require.NoError(t, conn.WriteJSON(WSMessage{Type: MsgTypePing}))
	assert.Equal(t, MsgTypePong, readMessage(t, conn).Type)

	require.NoError(t, conn.WriteJSON(WSMessage{Type: "upload:init"}))
	msg := readMessage(t, conn)
	assert.Equal(t, MsgTypeError, msg.Type)
	assert.Contains(t, string(msg.Payload), "INVALID_TYPE")
}

func TestHub_UnregistersOnClose(t *testing.T) {
	hub, srv, _, _ := startHub(t, HubConfig{})
	conn := dial(t, srv, nil)
	readMessage(t, conn)

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)
	conn.Close()
	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, 2*time.Second, 5*time.Millisecond)
}

func TestHub_OriginCheck(t *testing.T) {
	_, srv, _, _ := startHub(t, HubConfig{AllowOrigins: []string{"http://allowed.example"}})
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws"

	_, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": []string{"http://evil.example"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	conn := dial(t, srv, http.Header{"Origin": []string{"http://allowed.example"}})
	assert.Equal(t, MsgTypeConnected, readMessage(t, conn).Type)
}

func TestOriginChecker(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "http://x")

	assert.True(t, originChecker(nil)(req))
	assert.True(t, originChecker([]string{"*"})(req))
	assert.False(t, originChecker([]string{"http://y"})(req))
	assert.True(t, originChecker([]string{"http://x"})(req))

	req.Header.Del("Origin")
	assert.True(t, originChecker([]string{"http://y"})(req))
}
