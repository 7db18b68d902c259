package notify

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mailnight/internal/model"
	"mailnight/pkg/util"
)

const testSecret = "test-secret"

func dial(t *testing.T, srv *httptest.Server, token string) (*websocket.Conn, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Cleanup(func() { _ = conn.Close() })
	}
	return conn, err
}

func waitForConnections(t *testing.T, hub *Hub, userID, want int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return hub.ActiveConnections(userID) == want
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWSHandlerRejectsMissingAndInvalidTokens(t *testing.T) {
	hub := NewHub(2, nil)
	srv := httptest.NewServer(NewWSHandler(hub, testSecret, nil))
	defer srv.Close()

	_, err := dial(t, srv, "")
	require.Error(t, err)

	bad, err := util.GenerateJWT(1, "other-secret", time.Hour)
	require.NoError(t, err)
	_, err = dial(t, srv, bad)
	require.Error(t, err)

	assert.Equal(t, 0, hub.ActiveConnections(1))
}

func TestHubDeliversToEveryConnectionOfUser(t *testing.T) {
	hub := NewHub(5, nil)
	srv := httptest.NewServer(NewWSHandler(hub, testSecret, nil))
	defer srv.Close()

	token, err := util.GenerateJWT(7, testSecret, time.Hour)
	require.NoError(t, err)

	first, err := dial(t, srv, token)
	require.NoError(t, err)
	second, err := dial(t, srv, token)
	require.NoError(t, err)
	waitForConnections(t, hub, 7, 2)

	require.NoError(t, hub.SendJSON(7, model.Notification{Type: model.PushUnreadCount, Data: 3}))
	// nobody listening for user 8
	require.NoError(t, hub.SendJSON(8, model.Notification{Type: model.PushUnreadCount, Data: 1}))

	for _, conn := range []*websocket.Conn{first, second} {
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, msg, err := conn.ReadMessage()
		require.NoError(t, err)

		var got struct {
			Type string `json:"type"`
			Data int    `json:"data"`
		}
		require.NoError(t, json.Unmarshal(msg, &got))
		assert.Equal(t, model.PushUnreadCount, got.Type)
		assert.Equal(t, 3, got.Data)
	}

	_ = first.Close()
	waitForConnections(t, hub, 7, 1)
}

func TestHubEnforcesPerUserLimit(t *testing.T) {
	hub := NewHub(1, nil)
	srv := httptest.NewServer(NewWSHandler(hub, testSecret, nil))
	defer srv.Close()

	token, err := util.GenerateJWT(3, testSecret, time.Hour)
	require.NoError(t, err)

	_, err = dial(t, srv, token)
	require.NoError(t, err)
	waitForConnections(t, hub, 3, 1)

	extra, err := dial(t, srv, token)
	require.NoError(t, err)

	_ = extra.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = extra.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.ClosePolicyViolation))
	assert.Equal(t, 1, hub.ActiveConnections(3))
}

func TestUnregisterNilClientIsNoop(t *testing.T) {
	hub := NewHub(0, nil)
	hub.Unregister(1, nil)
	assert.Equal(t, 0, hub.ActiveConnections(1))
	assert.Error(t, hub.SendJSON(1, make(chan int)))
}
