package server

import (
	"net/http"
	"sync"
	"time"
)

// RateLimiter implements per-session rate limiting using a sliding window.
type RateLimiter struct {
	maxRequests int
	window      time.Duration
	requests    map[string][]time.Time // session ID -> recent message times
	mu          sync.Mutex
}

// NewRateLimiter allows maxRequests messages per window for each session.
func NewRateLimiter(maxRequests int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		maxRequests: maxRequests,
		window:      window,
		requests:    make(map[string][]time.Time),
	}
}

// Allow records a message and reports whether it is within the limit.
func (r *RateLimiter) Allow(sessionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-r.window)

	recent := r.requests[sessionID][:0]
	for _, ts := range r.requests[sessionID] {
		if ts.After(cutoff) {
			recent = append(recent, ts)
		}
	}

	if len(recent) >= r.maxRequests {
		r.requests[sessionID] = recent
		return false
	}
	r.requests[sessionID] = append(recent, now)
	return true
}

// RemoveSession drops the history of a closed session.
func (r *RateLimiter) RemoveSession(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.requests, sessionID)
}

// ConnectionHealth tracks when each session last sent anything. The away sweep
// reads it.
type ConnectionHealth struct {
	lastActivity map[string]time.Time
	mu           sync.RWMutex
}

func NewConnectionHealth() *ConnectionHealth {
	return &ConnectionHealth{
		lastActivity: make(map[string]time.Time),
	}
}

func (h *ConnectionHealth) UpdateActivity(sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lastActivity[sessionID] = time.Now()
}

// IsInactive is false for sessions that were never seen.
func (h *ConnectionHealth) IsInactive(sessionID string, timeout time.Duration) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	last, exists := h.lastActivity[sessionID]
	if !exists {
		return false
	}
	return time.Since(last) > timeout
}

// InactiveSessions returns every session quiet for longer than timeout.
func (h *ConnectionHealth) InactiveSessions(timeout time.Duration) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	inactive := make([]string, 0)
	now := time.Now()
	for id, last := range h.lastActivity {
		if now.Sub(last) > timeout {
			inactive = append(inactive, id)
		}
	}
	return inactive
}

func (h *ConnectionHealth) RemoveSession(sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.lastActivity, sessionID)
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type")
		w.Header().Set("Access-Control-Allow-Credentials", "false")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
