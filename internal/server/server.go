package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"hanabi-server/internal/config"
	"hanabi-server/internal/storage"

	"github.com/coder/websocket"
	"github.com/sirupsen/logrus"
)

type Server struct {
	cfg                config.Config
	log                *logrus.Logger
	auth               *Authenticator
	sessionManager     *SessionManager
	tableManager       *TableManager
	persistenceManager *PersistenceManager
	rateLimiter        *RateLimiter
	connectionHealth   *ConnectionHealth
	commands           map[string]commandFunc

	// connectMu serializes connects and disconnects. Commands hold it for
	// reading so a session cannot be dropped while one of its commands runs.
	connectMu sync.RWMutex

	// commandMu guards shuttingDown and the Add side of commandWG, so no
	// command can start once Shutdown is waiting for the group.
	commandMu    sync.RWMutex
	commandWG    sync.WaitGroup
	shuttingDown bool

	ctx    context.Context
	cancel context.CancelFunc
}

// NewServer wires the registries and restores the tables saved by the last
// run. A restore failure is returned; the process must not start without its
// saved games.
func NewServer(ctx context.Context, cfg config.Config, store storage.TableStore, logger *logrus.Logger) (*Server, error) {
	bg, cancel := context.WithCancel(context.Background())

	s := &Server{
		cfg:                cfg,
		log:                logger,
		auth:               NewAuthenticator(cfg.JWTSecret),
		sessionManager:     NewSessionManager(logrus.NewEntry(logger)),
		tableManager:       NewTableManager(),
		persistenceManager: NewPersistenceManager(store),
		rateLimiter:        NewRateLimiter(cfg.RateLimit, time.Second),
		connectionHealth:   NewConnectionHealth(),
		ctx:                bg,
		cancel:             cancel,
	}
	s.registerCommands()

	if err := s.RestoreTables(ctx); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to restore tables: %w", err)
	}

	go s.sweepAway(bg)
	return s, nil
}

// HTTPServer returns the listener configuration for the server's routes.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:        fmt.Sprintf(":%d", s.cfg.Port),
		Handler:     s.RegisterRoutes(),
		IdleTimeout: time.Minute,
		ReadTimeout: 10 * time.Second,
	}
}

func (s *Server) beginCommand() bool {
	s.commandMu.RLock()
	defer s.commandMu.RUnlock()

	if s.shuttingDown {
		return false
	}
	s.commandWG.Add(1)
	return true
}

func (s *Server) isShuttingDown() bool {
	s.commandMu.RLock()
	defer s.commandMu.RUnlock()
	return s.shuttingDown
}

// Shutdown stops accepting commands, warns every session, waits for commands
// in flight, then serializes the games in progress. The serialization error,
// if any, is returned so the operator learns that games were lost.
func (s *Server) Shutdown(ctx context.Context) error {
	s.commandMu.Lock()
	s.shuttingDown = true
	s.commandMu.Unlock()

	var o outbox
	o.broadcast(msgWarning, WarningMessage{Message: "The server is restarting. Your game will be saved."})
	s.deliver(&o)

	drained := make(chan struct{})
	go func() {
		s.commandWG.Wait()
		close(drained)
	}()
	select {
	case <-drained:
	case <-ctx.Done():
		return fmt.Errorf("timed out waiting for commands to finish: %w", ctx.Err())
	}

	// No turn may advance while tables are written.
	s.cancel()
	s.tableManager.ForEach(func(t *Table) {
		t.mu.Lock()
		t.timer.Stop()
		t.mu.Unlock()
	})

	err := s.SerializeTables(ctx)

	for _, sess := range s.sessionManager.All() {
		sess.Close(websocket.StatusServiceRestart, "Server restarting")
	}
	return err
}
