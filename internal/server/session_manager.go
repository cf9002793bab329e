package server

import (
	"sync"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// SessionManager is the registry of live connections keyed by session ID.
type SessionManager struct {
	sessions map[string]*Session
	mu       sync.RWMutex
	log      *logrus.Entry
}

func NewSessionManager(log *logrus.Entry) *SessionManager {
	return &SessionManager{
		sessions: make(map[string]*Session),
		log:      log,
	}
}

// Register creates a session for an authenticated connection and starts its
// writer. conn may be nil for sessions that are only observed through their
// send queue.
func (sm *SessionManager) Register(conn *websocket.Conn, userID, username string) *Session {
	sess := newSession(uuid.New().String(), conn, userID, username, sm.log)

	sm.mu.Lock()
	sm.sessions[sess.ID] = sess
	sm.mu.Unlock()

	if conn != nil {
		go sess.writePump()
	}
	return sess
}

func (sm *SessionManager) Get(id string) (*Session, error) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	sess, exists := sm.sessions[id]
	if !exists {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// GetByUser returns the live session of a user, if any.
func (sm *SessionManager) GetByUser(userID string) *Session {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	for _, sess := range sm.sessions {
		if sess.UserID == userID {
			return sess
		}
	}
	return nil
}

// Unregister reports whether the session was still registered, so a
// disconnect is only processed once.
func (sm *SessionManager) Unregister(id string) bool {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if _, exists := sm.sessions[id]; !exists {
		return false
	}
	delete(sm.sessions, id)
	return true
}

func (sm *SessionManager) All() []*Session {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	sessions := make([]*Session, 0, len(sm.sessions))
	for _, sess := range sm.sessions {
		sessions = append(sessions, sess)
	}
	return sessions
}

func (sm *SessionManager) Len() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.sessions)
}
