package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiter_Allow(t *testing.T) {
	limiter := NewRateLimiter(5, time.Second)
	sessionID := "test-session"

	for i := 0; i < 5; i++ {
		if !limiter.Allow(sessionID) {
			t.Errorf("Request %d should be allowed", i+1)
		}
	}

	if limiter.Allow(sessionID) {
		t.Error("6th request should be denied")
	}
}

func TestRateLimiter_WindowReset(t *testing.T) {
	limiter := NewRateLimiter(2, 100*time.Millisecond)
	sessionID := "test-session"

	limiter.Allow(sessionID)
	limiter.Allow(sessionID)

	if limiter.Allow(sessionID) {
		t.Error("Request should be denied when limit reached")
	}

	time.Sleep(150 * time.Millisecond)

	if !limiter.Allow(sessionID) {
		t.Error("Request should be allowed after window reset")
	}
}

func TestRateLimiter_MultipleSessions(t *testing.T) {
	limiter := NewRateLimiter(2, time.Second)

	limiter.Allow("session1")
	limiter.Allow("session1")

	if !limiter.Allow("session2") {
		t.Error("session2 should be allowed (separate limit)")
	}

	if limiter.Allow("session1") {
		t.Error("session1 should be denied")
	}
}

func TestRateLimiter_RemoveSession(t *testing.T) {
	limiter := NewRateLimiter(1, time.Hour)

	limiter.Allow("session1")
	assert.False(t, limiter.Allow("session1"))

	limiter.RemoveSession("session1")
	assert.True(t, limiter.Allow("session1"))
}

func TestConnectionHealth(t *testing.T) {
	assert := assert.New(t)
	health := NewConnectionHealth()

	assert.False(health.IsInactive("never-seen", time.Millisecond))

	health.UpdateActivity("quiet")
	time.Sleep(20 * time.Millisecond)
	health.UpdateActivity("busy")

	assert.True(health.IsInactive("quiet", 10*time.Millisecond))
	assert.False(health.IsInactive("busy", time.Hour))
	assert.Equal([]string{"quiet"}, health.InactiveSessions(10*time.Millisecond))

	health.RemoveSession("quiet")
	assert.Empty(health.InactiveSessions(10 * time.Millisecond))
}

func TestCORSMiddleware(t *testing.T) {
	s := newTestServer(t)
	handler := s.corsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodOptions, "/ws", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusTeapot, rr.Code)
}
