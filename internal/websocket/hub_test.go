package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"neuropulse/internal/middleware"
	"neuropulse/internal/models"
	"neuropulse/internal/observers"
)

func setupHub(t *testing.T, auth *middleware.JWTAuth) (*Hub, *miniredis.Miniredis, *redis.Client, string) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	hub := NewHub(client, observers.UpdatesChannel, auth, zaptest.NewLogger(t))
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	t.Cleanup(func() {
		hub.Close()
		srv.Close()
	})

	return hub, mr, client, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestHub_RelaysPublishedUpdates(t *testing.T) {
	hub, mr, client, url := setupHub(t, nil)

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool {
		return mr.PubSubNumSub(observers.UpdatesChannel)[observers.UpdatesChannel] == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, hub.Clients())

	pub := observers.NewPublisher(client)
	require.NoError(t, pub.Publish(context.Background(), models.WSMessage{
		Type:    models.MessageStatusChanged,
		Payload: models.StatusUpdate{Status: "running"},
	}))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg struct {
		Type    string              `json:"type"`
		Payload models.StatusUpdate `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, models.MessageStatusChanged, msg.Type)
	assert.Equal(t, "running", msg.Payload.Status)
}

func TestHub_DropsSubscriptionWhenLastClientLeaves(t *testing.T) {
	hub, mr, _, url := setupHub(t, nil)

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return mr.PubSubNumSub(observers.UpdatesChannel)[observers.UpdatesChannel] == 1
	}, 2*time.Second, 10*time.Millisecond)

	conn.Close()

	require.Eventually(t, func() bool {
		return hub.Clients() == 0 && mr.PubSubNumSub(observers.UpdatesChannel)[observers.UpdatesChannel] == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestHub_RequiresToken(t *testing.T) {
	auth := middleware.NewJWTAuth("secret")
	_, _, _, url := setupHub(t, auth)

	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	_, resp, err = websocket.DefaultDialer.Dial(url+"?token=garbage", nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	token, err := auth.GenerateDeviceToken(uuid.New(), time.Hour)
	require.NoError(t, err)
	conn, _, err := websocket.DefaultDialer.Dial(url+"?token="+token, nil)
	require.NoError(t, err)
	conn.Close()
}
