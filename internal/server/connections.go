package server

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"hanabi-server/internal/hanabi"

	"github.com/coder/websocket"
	"github.com/sirupsen/logrus"
)

const (
	sendBufferSize = 64
	writeTimeout   = 10 * time.Second
)

// Session is one authenticated websocket connection. Outbound messages are
// queued on send and written by a single writer goroutine, so callers never
// block on a slow client.
type Session struct {
	ID       string
	UserID   string
	Username string

	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
	log  *logrus.Entry

	mu         sync.Mutex
	tableID    uint64 // 0 when not at a table
	spectating bool
	away       bool
}

func newSession(id string, conn *websocket.Conn, userID, username string, log *logrus.Entry) *Session {
	return &Session{
		ID:       id,
		UserID:   userID,
		Username: username,
		conn:     conn,
		send:     make(chan []byte, sendBufferSize),
		done:     make(chan struct{}),
		log: log.WithFields(logrus.Fields{
			"session": id,
			"user":    userID,
		}),
	}
}

func (sess *Session) TableID() uint64 {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.tableID
}

func (sess *Session) Spectating() bool {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.spectating
}

// Location returns the table and role together so they are read consistently.
func (sess *Session) Location() (uint64, bool) {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.tableID, sess.spectating
}

func (sess *Session) setTable(id uint64, spectating bool) {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.tableID = id
	sess.spectating = spectating
}

// clearTable detaches the session, but only if it is still at id.
func (sess *Session) clearTable(id uint64) {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.tableID == id {
		sess.tableID = 0
		sess.spectating = false
	}
}

func (sess *Session) Away() bool {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.away
}

// setAway reports whether the flag changed.
func (sess *Session) setAway(away bool) bool {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.away == away {
		return false
	}
	sess.away = away
	return true
}

// Send queues a message. A client that cannot keep up with its queue is
// disconnected rather than allowed to stall the server.
func (sess *Session) Send(msgType string, payload any) {
	data, err := json.Marshal(ServerMessage{Type: msgType, Payload: payload})
	if err != nil {
		sess.log.WithError(err).WithField("type", msgType).Error("Failed to marshal message")
		return
	}

	select {
	case <-sess.done:
	case sess.send <- data:
	default:
		sess.log.Warn("Send buffer full, closing slow connection")
		sess.Close(websocket.StatusPolicyViolation, "too slow")
	}
}

func (sess *Session) SendError(err error) {
	sess.Send(msgError, ErrorMessage{Message: err.Error(), Code: hanabi.Code(err)})
}

// writePump drains the send queue onto the socket until the session closes.
func (sess *Session) writePump() {
	for {
		select {
		case <-sess.done:
			return
		case data := <-sess.send:
			ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
			err := sess.conn.Write(ctx, websocket.MessageText, data)
			cancel()
			if err != nil {
				sess.log.WithError(err).Debug("Write failed")
				sess.Close(websocket.StatusInternalError, "write failed")
				return
			}
		}
	}
}

// Close is idempotent. Messages still queued are flushed with a short
// deadline first so a kick or shutdown warning reaches the client.
func (sess *Session) Close(code websocket.StatusCode, reason string) {
	sess.once.Do(func() {
		close(sess.done)
		if sess.conn == nil {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
	flush:
		for {
			select {
			case data := <-sess.send:
				if err := sess.conn.Write(ctx, websocket.MessageText, data); err != nil {
					break flush
				}
			default:
				break flush
			}
		}
		sess.conn.Close(code, reason)
	})
}

func (sess *Session) closed() bool {
	select {
	case <-sess.done:
		return true
	default:
		return false
	}
}
