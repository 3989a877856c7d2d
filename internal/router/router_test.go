package router

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
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"neuropulse/internal/handlers"
	"neuropulse/internal/middleware"
	"neuropulse/internal/models"
	"neuropulse/internal/observers"
	"neuropulse/internal/services"
	"neuropulse/internal/websocket"
)

type memStore struct {
	sessions []models.SessionRecord
}

func (s *memStore) Insert(ctx context.Context, rec *models.SessionRecord) error {
	rec.ID = int64(len(s.sessions) + 1)
	s.sessions = append(s.sessions, *rec)
	return nil
}

func (s *memStore) GetAllSessions(ctx context.Context) ([]models.SessionRecord, error) {
	return append([]models.SessionRecord(nil), s.sessions...), nil
}

func setupRouter(t *testing.T, auth *middleware.JWTAuth, limit int) (http.Handler, *services.UsageMonitor) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	logger := zaptest.NewLogger(t)
	unlocks := observers.NewUnlockObserver(client)
	notifications := observers.NewNotificationObserver(client)
	feed := observers.NewUsageFeed(client, 24*time.Hour, logger)

	cfg := services.DefaultMonitorConfig()
	cfg.Interval = time.Hour
	monitor := services.NewUsageMonitor(
		services.NewUsageAggregator(feed, 24*time.Hour),
		&memStore{}, unlocks, notifications, observers.NewPublisher(client), cfg, logger,
	)
	t.Cleanup(monitor.Stop)

	limiter := middleware.NewRateLimiter(limit, time.Minute)
	t.Cleanup(limiter.Close)

	hub := websocket.NewHub(client, observers.UpdatesChannel, auth, logger)
	t.Cleanup(hub.Close)

	return New(
		auth,
		limiter,
		handlers.NewMonitorHandler(monitor, logger),
		handlers.NewSessionHandler(monitor, logger),
		handlers.NewEventsHandler(unlocks, notifications, feed, logger),
		hub,
		"http://localhost:5173",
	), monitor
}

func do(h http.Handler, method, path, body, token string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestRouter_Health(t *testing.T) {
	h, _ := setupRouter(t, nil, 0)

	rr := do(h, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
}

func TestRouter_Metrics(t *testing.T) {
	h, _ := setupRouter(t, nil, 0)

	rr := do(h, http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "neuropulse_monitor_running")
}

func TestRouter_EndToEnd(t *testing.T) {
	h, monitor := setupRouter(t, nil, 0)

	require.Equal(t, http.StatusAccepted,
		do(h, http.MethodPost, "/api/v1/usage", `{"app_id":"com.google.android.youtube","foreground_ms":7800000}`, "").Code)
	require.Equal(t, http.StatusAccepted, do(h, http.MethodPost, "/api/v1/events/unlock", "", "").Code)
	require.Equal(t, http.StatusAccepted, do(h, http.MethodPost, "/api/v1/events/notification", "", "").Code)

	_, err := monitor.RunOnce(context.Background())
	require.NoError(t, err)

	rr := do(h, http.MethodGet, "/api/v1/sessions", "", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		Sessions []models.SessionRecord `json:"sessions"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	require.Len(t, body.Sessions, 1)

	s := body.Sessions[0]
	assert.Equal(t, "com.google.android.youtube", s.DominantApp)
	assert.Equal(t, int64(7800), s.ActiveSeconds)
	assert.Equal(t, models.RiskMedium, s.RiskLevel)
	assert.Equal(t, 1, s.UnlocksLastHour)
	assert.Equal(t, 1, s.NotificationsLast30Min)
	assert.Equal(t, "Video", s.Category)
}

func TestRouter_MonitorLifecycle(t *testing.T) {
	h, _ := setupRouter(t, nil, 0)

	assert.JSONEq(t, `{"status":"stopped"}`, do(h, http.MethodGet, "/api/v1/monitor/status", "", "").Body.String())
	assert.JSONEq(t, `{"status":"running"}`, do(h, http.MethodPost, "/api/v1/monitor/start", "", "").Body.String())
	assert.JSONEq(t, `{"status":"running"}`, do(h, http.MethodPost, "/api/v1/monitor/start", "", "").Body.String())
	assert.JSONEq(t, `{"status":"stopped"}`, do(h, http.MethodPost, "/api/v1/monitor/stop", "", "").Body.String())
	assert.JSONEq(t, `{"status":"stopped"}`, do(h, http.MethodPost, "/api/v1/monitor/stop", "", "").Body.String())
}

func TestRouter_RequiresTokenWhenConfigured(t *testing.T) {
	auth := middleware.NewJWTAuth("secret")
	h, _ := setupRouter(t, auth, 0)

	assert.Equal(t, http.StatusUnauthorized, do(h, http.MethodGet, "/api/v1/sessions", "", "").Code)
	assert.Equal(t, http.StatusOK, do(h, http.MethodGet, "/health", "", "").Code)

	token, err := auth.GenerateDeviceToken(uuid.New(), time.Hour)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, do(h, http.MethodGet, "/api/v1/sessions", "", token).Code)
}

func TestRouter_IngestRateLimited(t *testing.T) {
	h, _ := setupRouter(t, nil, 2)

	assert.Equal(t, http.StatusAccepted, do(h, http.MethodPost, "/api/v1/events/unlock", "", "").Code)
	assert.Equal(t, http.StatusAccepted, do(h, http.MethodPost, "/api/v1/events/unlock", "", "").Code)
	assert.Equal(t, http.StatusTooManyRequests, do(h, http.MethodPost, "/api/v1/events/unlock", "", "").Code)

	// Reads are not limited.
	assert.Equal(t, http.StatusOK, do(h, http.MethodGet, "/api/v1/sessions", "", "").Code)
}
