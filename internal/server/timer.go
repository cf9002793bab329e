package server

import (
	"errors"
	"sync"
	"time"

	"hanabi-server/internal/hanabi"

	"github.com/sirupsen/logrus"
)

// TurnTimer is the countdown of one timed table. Arming replaces the previous
// countdown; a replaced or stopped countdown never fires.
type TurnTimer struct {
	mu     sync.Mutex
	cancel chan struct{}
}

func (tt *TurnTimer) Arm(d time.Duration, fire func()) {
	tt.mu.Lock()
	defer tt.mu.Unlock()

	if tt.cancel != nil {
		close(tt.cancel)
	}
	cancel := make(chan struct{})
	tt.cancel = cancel

	go func() {
		timer := time.NewTimer(d)
		defer timer.Stop()

		select {
		case <-timer.C:
			fire()
		case <-cancel:
		}
	}()
}

func (tt *TurnTimer) Stop() {
	tt.mu.Lock()
	defer tt.mu.Unlock()

	if tt.cancel != nil {
		close(tt.cancel)
		tt.cancel = nil
	}
}

// Armed reports whether a countdown is pending.
func (tt *TurnTimer) Armed() bool {
	tt.mu.Lock()
	defer tt.mu.Unlock()
	return tt.cancel != nil
}

// armTurnTimer starts the countdown for the active player of a timed table.
// The turn number is captured so a countdown that loses the race against a
// real move does nothing. Must be called with t.mu held.
func (s *Server) armTurnTimer(t *Table) {
	if !t.Options.Timed || !t.inProgress() || t.Game == nil {
		t.timer.Stop()
		return
	}

	turn := t.Game.Turn
	remaining := t.Game.TimeRemaining(time.Now())
	t.timer.Arm(remaining, func() {
		s.onTurnTimeout(t, turn)
	})
}

// onTurnTimeout makes the default move for a player whose clock ran out. It
// goes through the same path as a move sent by a client.
func (s *Server) onTurnTimeout(t *Table, turn int) {
	if !s.beginCommand() {
		return
	}
	defer s.commandWG.Done()

	err := s.executeMove(t, func(g *hanabi.Game) (hanabi.Move, error) {
		if g.Turn != turn {
			return hanabi.Move{}, errStaleTimer
		}
		return g.DefaultMove(), nil
	})
	if err != nil && !errors.Is(err, errStaleTimer) {
		s.log.WithError(err).WithFields(logrus.Fields{
			"table": t.ID,
			"turn":  turn,
		}).Error("Timeout move failed")
	}
}
