package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Device", GetDeviceID(r.Context()).String())
		w.WriteHeader(http.StatusOK)
	})
}

func decodeErrorCode(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	return body.Error.Code
}

func TestJWTAuth_ValidToken(t *testing.T) {
	auth := NewJWTAuth("secret")
	device := uuid.New()
	token, err := auth.GenerateDeviceToken(device, time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	auth.Middleware(okHandler()).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, device.String(), rr.Header().Get("X-Device"))
}

func TestJWTAuth_Rejects(t *testing.T) {
	auth := NewJWTAuth("secret")
	expired, err := auth.GenerateDeviceToken(uuid.New(), -time.Minute)
	require.NoError(t, err)
	foreign, err := NewJWTAuth("other").GenerateDeviceToken(uuid.New(), time.Hour)
	require.NoError(t, err)
	noDevice, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"exp": time.Now().Add(time.Hour).Unix()}).SignedString([]byte("secret"))
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		code   string
	}{
		{"missing header", "", "UNAUTHORIZED"},
		{"wrong scheme", "Basic abc", "UNAUTHORIZED"},
		{"garbage", "Bearer abc", "UNAUTHORIZED"},
		{"expired", "Bearer " + expired, "TOKEN_EXPIRED"},
		{"wrong secret", "Bearer " + foreign, "UNAUTHORIZED"},
		{"no device claim", "Bearer " + noDevice, "UNAUTHORIZED"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rr := httptest.NewRecorder()
			auth.Middleware(okHandler()).ServeHTTP(rr, req)

			assert.Equal(t, http.StatusUnauthorized, rr.Code)
			assert.Equal(t, tc.code, decodeErrorCode(t, rr))
		})
	}
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	defer rl.Close()

	now := time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	h := rl.Middleware(okHandler())

	send := func(addr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.RemoteAddr = addr
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr
	}

	assert.Equal(t, http.StatusOK, send("10.0.0.1").Code)
	assert.Equal(t, http.StatusOK, send("10.0.0.1").Code)

	limited := send("10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.Equal(t, "RATE_LIMITED", decodeErrorCode(t, limited))
	assert.NotEmpty(t, limited.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusOK, send("10.0.0.2").Code, "other clients are unaffected")

	now = now.Add(time.Minute)
	assert.Equal(t, http.StatusOK, send("10.0.0.1").Code, "window resets")
}

func TestRateLimiter_SameHostDifferentPorts(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)
	defer rl.Close()
	h := chimiddleware.RealIP(rl.Middleware(okHandler()))

	codes := make([]int, 0, 3)
	for _, addr := range []string{"10.0.0.1:40001", "10.0.0.1:40002", "10.0.0.1:40003"} {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.RemoteAddr = addr
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		codes = append(codes, rr.Code)
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusTooManyRequests, http.StatusTooManyRequests}, codes)
}

func TestClientIP(t *testing.T) {
	assert.Equal(t, "10.0.0.1", clientIP("10.0.0.1:40001"))
	assert.Equal(t, "::1", clientIP("[::1]:8080"))
	assert.Equal(t, "10.0.0.1", clientIP("10.0.0.1"))
}

func TestRateLimiter_Disabled(t *testing.T) {
	rl := NewRateLimiter(0, time.Minute)
	defer rl.Close()

	for i := 0; i < 5; i++ {
		rr := httptest.NewRecorder()
		rl.Middleware(okHandler()).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/", nil))
		assert.Equal(t, http.StatusOK, rr.Code)
	}
}

func TestRequestID(t *testing.T) {
	rr := httptest.NewRecorder()
	RequestID(okHandler()).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	_, err := uuid.Parse(rr.Header().Get(RequestIDHeader))
	assert.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc")
	rr = httptest.NewRecorder()
	RequestID(okHandler()).ServeHTTP(rr, req)
	assert.Equal(t, "abc", rr.Header().Get(RequestIDHeader))
}

func TestCORS_Preflight(t *testing.T) {
	rr := httptest.NewRecorder()
	CORS("http://localhost:5173")(okHandler()).ServeHTTP(rr, httptest.NewRequest(http.MethodOptions, "/", nil))

	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, "http://localhost:5173", rr.Header().Get("Access-Control-Allow-Origin"))
}
