package server

import (
	"context"
	"time"
)

// watchIdle removes a table once nothing has happened at it for the idle
// timeout. The watcher ends when the table is removed or the server stops.
func (s *Server) watchIdle(t *Table) {
	t.mu.Lock()
	stop := t.idleStop
	t.mu.Unlock()

	go func() {
		wait := s.cfg.IdleTimeout
		for {
			timer := time.NewTimer(wait)
			select {
			case <-s.ctx.Done():
				timer.Stop()
				return
			case <-stop:
				timer.Stop()
				return
			case <-timer.C:
			}

			t.mu.Lock()
			idle := time.Since(t.DatetimeLastAction)
			t.mu.Unlock()

			if idle >= s.cfg.IdleTimeout {
				s.tableLog(t, nil).WithField("idle", idle.Round(time.Second)).Info("Removing idle table")
				s.removeTable(t)
				return
			}
			wait = s.cfg.IdleTimeout - idle
		}
	}()
}

// removeTable takes a table out of the registry and detaches everybody still
// at it. The session registry is only consulted after the table lock is
// released.
func (s *Server) removeTable(t *Table) {
	var o outbox

	t.mu.Lock()
	t.timer.Stop()
	members := t.memberSessions()
	t.mu.Unlock()

	for _, id := range members {
		if sess, err := s.sessionManager.Get(id); err == nil {
			sess.clearTable(t.ID)
		}
	}

	s.tableManager.Remove(t.ID)
	t.stopIdle()

	o.broadcast(msgTableGone, TableGoneMessage{TableID: t.ID})
	s.deliver(&o)
}

// sweepAway flags sessions that have been quiet for the away timeout and
// tells everybody.
func (s *Server) sweepAway(ctx context.Context) {
	interval := s.cfg.AwayTimeout / 5
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.markAway()
		}
	}
}

func (s *Server) markAway() {
	for _, id := range s.connectionHealth.InactiveSessions(s.cfg.AwayTimeout) {
		sess, err := s.sessionManager.Get(id)
		if err != nil {
			continue
		}
		if sess.setAway(true) {
			s.broadcastStatus(sess, statusAway)
		}
	}
}

func (s *Server) broadcastStatus(sess *Session, status string) {
	var o outbox
	o.broadcast(msgUserStatus, UserStatusMessage{
		UserID:  sess.UserID,
		Name:    sess.Username,
		Status:  status,
		TableID: sess.TableID(),
	})
	s.deliver(&o)
}
