package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/coder/websocket"
)

func (s *Server) RegisterRoutes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/", s.HelloWorldHandler)
	mux.HandleFunc("/health", s.healthHandler)
	mux.HandleFunc("/ws", s.websocketHandler)

	return s.corsMiddleware(mux)
}

func (s *Server) HelloWorldHandler(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, map[string]string{"message": "Hello World"})
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, HealthResponse{
		Status:   "ok",
		Sessions: s.sessionManager.Len(),
		Tables:   s.tableManager.Len(),
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	resp, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write(resp); err != nil {
		s.log.WithError(err).Warn("Failed to write response")
	}
}

func (s *Server) websocketHandler(w http.ResponseWriter, r *http.Request) {
	claims, err := s.auth.Verify(tokenFromRequest(r))
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}
	if s.isShuttingDown() {
		http.Error(w, ErrShuttingDown.Error(), http.StatusServiceUnavailable)
		return
	}

	socket, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		s.log.WithError(err).Warn("Failed to open websocket")
		return
	}
	socket.SetReadLimit(s.cfg.MaxMessageSize)

	sess := s.connect(socket, claims)
	defer func() {
		s.disconnect(sess)
		sess.Close(websocket.StatusGoingAway, "Server closing")
	}()

	ctx := r.Context()
	for {
		msgType, data, err := socket.Read(ctx)
		if err != nil {
			sess.log.WithError(err).Debug("Connection closed")
			return
		}
		if msgType != websocket.MessageText {
			sess.log.Debug("Ignoring non-text message")
			continue
		}
		s.dispatch(sess, data)
	}
}

// dispatch decodes one inbound message and runs its command. Commands from a
// single session run one at a time, in arrival order.
func (s *Server) dispatch(sess *Session, data []byte) {
	s.connectMu.RLock()
	defer s.connectMu.RUnlock()

	// A kicked session keeps reading until its socket closes.
	if _, err := s.sessionManager.Get(sess.ID); err != nil {
		return
	}

	s.connectionHealth.UpdateActivity(sess.ID)
	if sess.setAway(false) {
		s.broadcastStatus(sess, statusOnline)
	}

	if !s.rateLimiter.Allow(sess.ID) {
		sess.SendError(ErrRateLimited)
		return
	}

	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		sess.SendError(ErrInvalidPayload)
		return
	}

	cmd, ok := s.commands[msg.Type]
	if !ok {
		sess.SendError(fmt.Errorf("%w: %s", ErrUnknownCommand, msg.Type))
		return
	}

	if !s.beginCommand() {
		sess.SendError(ErrShuttingDown)
		return
	}
	defer s.commandWG.Done()

	if err := cmd(s, sess, msg.Payload); err != nil {
		s.reportCommandError(sess, msg.Type, err)
	}
}

// connect registers a new session. An older session of the same user is
// kicked first so each user has at most one connection.
func (s *Server) connect(conn *websocket.Conn, claims *Claims) *Session {
	s.connectMu.Lock()
	defer s.connectMu.Unlock()

	if old := s.sessionManager.GetByUser(claims.Subject); old != nil {
		old.Send(msgKicked, KickedMessage{Reason: "You logged in from somewhere else"})
		s.dropSession(old)
		go old.Close(websocket.StatusPolicyViolation, "logged in elsewhere")
	}

	sess := s.sessionManager.Register(conn, claims.Subject, claims.Name)
	s.connectionHealth.UpdateActivity(sess.ID)
	sess.log.Info("Session connected")

	sess.Send(msgTableList, s.tableSummaries())
	s.broadcastStatus(sess, statusOnline)
	return sess
}

func (s *Server) disconnect(sess *Session) {
	s.connectMu.Lock()
	defer s.connectMu.Unlock()

	if !s.dropSession(sess) {
		return
	}
	sess.log.Info("Session disconnected")
	s.broadcastStatus(sess, statusOffline)
}

// dropSession unregisters a session and takes it away from its table. It
// reports false if the session was already gone. Must be called with
// connectMu held.
func (s *Server) dropSession(sess *Session) bool {
	if !s.sessionManager.Unregister(sess.ID) {
		return false
	}
	s.rateLimiter.RemoveSession(sess.ID)
	s.connectionHealth.RemoveSession(sess.ID)

	tableID, _ := sess.Location()
	if tableID == 0 {
		return true
	}

	err := s.withTable(tableID, func(t *Table, o *outbox) error {
		return s.detachLocked(t, sess, o, !t.Running)
	})
	if err != nil && !errors.Is(err, ErrInconsistentState) {
		sess.log.WithError(err).WithField("table", tableID).Warn("Failed to detach session from table")
	}
	sess.clearTable(tableID)
	return true
}
