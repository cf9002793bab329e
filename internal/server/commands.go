package server

import (
	"encoding/json"
	"errors"
	"math/rand/v2"
	"time"

	"hanabi-server/internal/hanabi"

	"github.com/sirupsen/logrus"
)

type commandFunc func(s *Server, sess *Session, payload json.RawMessage) error

func (s *Server) registerCommands() {
	s.commands = map[string]commandFunc{
		cmdPing:           (*Server).commandPing,
		cmdTableCreate:    (*Server).commandTableCreate,
		cmdTableJoin:      (*Server).commandTableJoin,
		cmdTableLeave:     (*Server).commandTableLeave,
		cmdTableSpectate:  (*Server).commandTableSpectate,
		cmdTableUnattend:  (*Server).commandTableUnattend,
		cmdTableReconnect: (*Server).commandTableReconnect,
		cmdTableStart:     (*Server).commandTableStart,
		cmdAction:         (*Server).commandAction,
		cmdNote:           (*Server).commandNote,
		cmdTableTerminate: (*Server).commandTableTerminate,
		cmdTableList:      (*Server).commandTableList,
	}
}

func decodePayload[T any](payload json.RawMessage) (T, error) {
	var req T
	if err := json.Unmarshal(payload, &req); err != nil {
		return req, ErrInvalidPayload
	}
	return req, nil
}

// withTable runs fn with the table locked and delivers what fn queued once
// the lock is released. Nothing is delivered when fn fails.
func (s *Server) withTable(id uint64, fn func(t *Table, o *outbox) error) error {
	t, err := s.tableManager.Get(id)
	if err != nil {
		return err
	}
	return s.locked(t, fn)
}

func (s *Server) locked(t *Table, fn func(t *Table, o *outbox) error) error {
	var o outbox

	t.mu.Lock()
	err := fn(t, &o)
	t.mu.Unlock()

	if err != nil {
		return err
	}
	if o.remove != nil {
		s.tableManager.Remove(o.remove.ID)
		o.remove.stopIdle()
	}
	s.deliver(&o)
	return nil
}

func (s *Server) tableLog(t *Table, sess *Session) *logrus.Entry {
	fields := logrus.Fields{"table": t.ID}
	if sess != nil {
		fields["session"] = sess.ID
		fields["user"] = sess.UserID
	}
	return s.log.WithFields(fields)
}

func (s *Server) commandPing(sess *Session, _ json.RawMessage) error {
	sess.Send(msgPong, struct{}{})
	return nil
}

func (s *Server) commandTableCreate(sess *Session, payload json.RawMessage) error {
	req, err := decodePayload[TableCreateRequest](payload)
	if err != nil {
		return err
	}
	if sess.TableID() != 0 {
		return ErrAlreadyAtTable
	}

	t, err := s.tableManager.Create(req.Name, sess.UserID, req.Options)
	if err != nil {
		return err
	}

	err = s.locked(t, func(t *Table, o *outbox) error {
		t.Players = append(t.Players, &TablePlayer{
			UserID:    sess.UserID,
			Name:      sess.Username,
			Present:   true,
			sessionID: sess.ID,
		})
		sess.setTable(t.ID, false)
		o.broadcast(msgTableUpdate, t.summary())
		return nil
	})
	if err != nil {
		return err
	}

	s.watchIdle(t)
	s.tableLog(t, sess).WithField("variant", t.Options.Variant).Info("Table created")
	return nil
}

func (s *Server) commandTableJoin(sess *Session, payload json.RawMessage) error {
	req, err := decodePayload[TableRequest](payload)
	if err != nil {
		return err
	}
	if sess.TableID() != 0 {
		return ErrAlreadyAtTable
	}

	return s.withTable(req.TableID, func(t *Table, o *outbox) error {
		if t.Running {
			return ErrTableStarted
		}
		if t.playerIndex(sess.UserID) >= 0 {
			return ErrAlreadyJoined
		}
		if len(t.Players) >= hanabi.MaxPlayers {
			return ErrTableFull
		}

		t.Players = append(t.Players, &TablePlayer{
			UserID:    sess.UserID,
			Name:      sess.Username,
			Present:   true,
			sessionID: sess.ID,
		})
		sess.setTable(t.ID, false)
		t.touch(time.Now())
		o.broadcast(msgTableUpdate, t.summary())
		return nil
	})
}

func (s *Server) commandTableLeave(sess *Session, payload json.RawMessage) error {
	req, err := decodePayload[TableRequest](payload)
	if err != nil {
		return err
	}
	return s.withTable(req.TableID, func(t *Table, o *outbox) error {
		return s.detachLocked(t, sess, o, true)
	})
}

// commandTableUnattend leaves the game screen without giving up a seat.
func (s *Server) commandTableUnattend(sess *Session, payload json.RawMessage) error {
	req, err := decodePayload[TableRequest](payload)
	if err != nil {
		return err
	}
	return s.withTable(req.TableID, func(t *Table, o *outbox) error {
		if !t.Running {
			return ErrTableNotStarted
		}
		return s.detachLocked(t, sess, o, false)
	})
}

// detachLocked takes a session away from a table. Spectators are removed from
// the spectator mapping. A player of a started game only stops being present;
// a lobby player who leaves gives up the seat. Must be called with t.mu held.
func (s *Server) detachLocked(t *Table, sess *Session, o *outbox, leave bool) error {
	tableID, spectating := sess.Location()
	if tableID != t.ID {
		return ErrNotAtTable
	}

	if spectating {
		if _, ok := t.Spectators[sess.ID]; !ok {
			s.tableLog(t, sess).Error("Session is marked as spectating but is not in the spectator list")
			return ErrInconsistentState
		}
		delete(t.Spectators, sess.ID)
		sess.clearTable(t.ID)

		o.sendMany(t.memberSessions(), msgSpectators, t.spectatorsMessage())
		o.broadcast(msgTableUpdate, t.summary())
		return nil
	}

	i := t.playerIndex(sess.UserID)
	if i < 0 {
		s.tableLog(t, sess).Error("Session is marked as a player but has no seat")
		return ErrInconsistentState
	}
	sess.clearTable(t.ID)

	if leave && !t.Running {
		t.removePlayer(i)
		if len(t.Players) == 0 {
			o.remove = t
			o.broadcast(msgTableGone, TableGoneMessage{TableID: t.ID})
			return nil
		}
		if t.Owner == sess.UserID {
			t.Owner = t.Players[0].UserID
		}
		o.broadcast(msgTableUpdate, t.summary())
		return nil
	}

	p := t.Players[i]
	p.Present = false
	p.sessionID = ""
	o.sendMany(t.memberSessions(), msgConnected, t.connectedMessage())
	return nil
}

func (s *Server) commandTableSpectate(sess *Session, payload json.RawMessage) error {
	req, err := decodePayload[TableRequest](payload)
	if err != nil {
		return err
	}
	if sess.TableID() != 0 {
		return ErrAlreadyAtTable
	}

	return s.withTable(req.TableID, func(t *Table, o *outbox) error {
		if !t.Running {
			return ErrTableNotStarted
		}
		if t.playerIndex(sess.UserID) >= 0 {
			return ErrAlreadyJoined
		}

		t.Spectators[sess.ID] = &Spectator{UserID: sess.UserID, Name: sess.Username}
		sess.setTable(t.ID, true)

		queueSnapshot(o, t, sess.ID, -1, sess.UserID)
		o.sendMany(t.memberSessions(), msgSpectators, t.spectatorsMessage())
		o.broadcast(msgTableUpdate, t.summary())
		return nil
	})
}

// commandTableReconnect returns a player to their seat, for example after a
// disconnect or a server restart.
func (s *Server) commandTableReconnect(sess *Session, payload json.RawMessage) error {
	req, err := decodePayload[TableRequest](payload)
	if err != nil {
		return err
	}

	return s.withTable(req.TableID, func(t *Table, o *outbox) error {
		i := t.playerIndex(sess.UserID)
		if i < 0 {
			return ErrNotAPlayer
		}
		if current := sess.TableID(); current != 0 && current != t.ID {
			return ErrAlreadyAtTable
		}

		p := t.Players[i]
		p.Present = true
		p.sessionID = sess.ID
		sess.setTable(t.ID, false)

		if t.Running {
			queueSnapshot(o, t, sess.ID, i, sess.UserID)
		} else {
			o.send(sess.ID, msgTableUpdate, t.summary())
		}
		o.sendMany(t.memberSessions(), msgConnected, t.connectedMessage())
		return nil
	})
}

func (s *Server) commandTableStart(sess *Session, payload json.RawMessage) error {
	req, err := decodePayload[TableRequest](payload)
	if err != nil {
		return err
	}

	return s.withTable(req.TableID, func(t *Table, o *outbox) error {
		if t.Owner != sess.UserID {
			return ErrNotOwner
		}
		if t.Running {
			return ErrTableStarted
		}
		if len(t.Players) < hanabi.MinPlayers {
			return ErrNotEnoughPlayer
		}

		seats := make([]hanabi.PlayerInit, 0, len(t.Players))
		for _, p := range t.Players {
			seats = append(seats, hanabi.PlayerInit{UserID: p.UserID, Name: p.Name})
		}
		now := time.Now()
		game, err := hanabi.NewGame(&t.Options, rand.Uint64(), seats, now)
		if err != nil {
			return err
		}

		t.Game = game
		t.Running = true
		t.touch(now)
		s.armTurnTimer(t)

		for i, p := range t.Players {
			if p.Present && p.sessionID != "" {
				queueSnapshot(o, t, p.sessionID, i, p.UserID)
			}
		}
		o.broadcast(msgTableUpdate, t.summary())

		s.tableLog(t, sess).WithField("seed", game.Seed).Info("Game started")
		return nil
	})
}

func (s *Server) commandAction(sess *Session, payload json.RawMessage) error {
	req, err := decodePayload[ActionRequest](payload)
	if err != nil {
		return err
	}
	if tableID, spectating := sess.Location(); tableID != req.TableID || spectating {
		return ErrNotAtTable
	}

	t, err := s.tableManager.Get(req.TableID)
	if err != nil {
		return err
	}
	return s.executeMove(t, func(g *hanabi.Game) (hanabi.Move, error) {
		idx := g.PlayerIndexByUser(sess.UserID)
		if idx < 0 {
			return hanabi.Move{}, ErrNotAPlayer
		}
		return hanabi.Move{
			PlayerIndex: idx,
			Type:        req.Type,
			Target:      req.Target,
			Value:       req.Value,
		}, nil
	})
}

// executeMove is the single path by which moves reach a game, whether sent by
// a client or made on a player's behalf when their clock runs out. resolve
// builds the move once the table is locked.
func (s *Server) executeMove(t *Table, resolve func(*hanabi.Game) (hanabi.Move, error)) error {
	return s.locked(t, func(t *Table, o *outbox) error {
		if !t.Running || t.Game == nil {
			return ErrTableNotStarted
		}
		if t.Replay {
			return ErrTableFinished
		}

		move, err := resolve(t.Game)
		if err != nil {
			return err
		}
		now := time.Now()
		actions, err := t.Game.Apply(move, now)
		if err != nil {
			return err
		}
		t.touch(now)
		queueGameActions(o, t, actions)

		if t.Game.Running() {
			s.armTurnTimer(t)
			return nil
		}

		t.Replay = true
		t.timer.Stop()
		o.broadcast(msgTableUpdate, t.summary())
		s.tableLog(t, nil).WithFields(logrus.Fields{
			"score":        t.Game.Score(),
			"endCondition": t.Game.EndCondition,
		}).Info("Game over")
		return nil
	})
}

func (s *Server) commandNote(sess *Session, payload json.RawMessage) error {
	req, err := decodePayload[NoteRequest](payload)
	if err != nil {
		return err
	}

	return s.withTable(req.TableID, func(t *Table, o *outbox) error {
		if sess.TableID() != t.ID {
			return ErrNotAtTable
		}
		if t.Game == nil {
			return ErrTableNotStarted
		}

		note, err := t.Game.SetNote(sess.UserID, req.Order, req.Note)
		if err != nil {
			return err
		}
		o.send(sess.ID, msgNoteUpdate, NoteUpdateMessage{TableID: t.ID, Order: req.Order, Note: note})
		return nil
	})
}

// commandTableTerminate lets the owner abandon a game in progress.
func (s *Server) commandTableTerminate(sess *Session, payload json.RawMessage) error {
	req, err := decodePayload[TableRequest](payload)
	if err != nil {
		return err
	}

	return s.withTable(req.TableID, func(t *Table, o *outbox) error {
		if t.Owner != sess.UserID {
			return ErrNotOwner
		}
		if !t.Running || t.Game == nil {
			return ErrTableNotStarted
		}
		if t.Replay {
			return ErrTableFinished
		}

		actions, err := t.Game.Abort(t.Game.PlayerIndexByUser(sess.UserID))
		if err != nil {
			return err
		}
		t.Replay = true
		t.timer.Stop()
		t.touch(time.Now())

		queueGameActions(o, t, actions)
		o.broadcast(msgTableUpdate, t.summary())
		s.tableLog(t, sess).Info("Game terminated by owner")
		return nil
	})
}

func (s *Server) commandTableList(sess *Session, _ json.RawMessage) error {
	sess.Send(msgTableList, s.tableSummaries())
	return nil
}

func (s *Server) tableSummaries() []TableSummary {
	list := make([]TableSummary, 0, s.tableManager.Len())
	s.tableManager.ForEach(func(t *Table) {
		t.mu.Lock()
		list = append(list, t.summary())
		t.mu.Unlock()
	})
	return list
}

// reportCommandError sends a failed command's error back to its sender.
// Consistency errors were already logged and stay internal.
func (s *Server) reportCommandError(sess *Session, msgType string, err error) {
	if errors.Is(err, ErrInconsistentState) {
		return
	}
	sess.log.WithError(err).WithField("type", msgType).Debug("Command rejected")
	sess.SendError(err)
}
