package server

import (
	"time"

	"hanabi-server/internal/hanabi"
)

type envelope struct {
	sessionID string
	msgType   string
	payload   any
}

// outbox collects the notifications produced while a table is locked. They
// are delivered only after the lock is released.
type outbox struct {
	envelopes []envelope
	// toAll are sent to every connected session, e.g. lobby changes.
	toAll []envelope
	// remove is set when the table must leave the registry.
	remove *Table
}

func (o *outbox) send(sessionID, msgType string, payload any) {
	o.envelopes = append(o.envelopes, envelope{sessionID: sessionID, msgType: msgType, payload: payload})
}

func (o *outbox) sendMany(sessionIDs []string, msgType string, payload any) {
	for _, id := range sessionIDs {
		o.send(id, msgType, payload)
	}
}

func (o *outbox) broadcast(msgType string, payload any) {
	o.toAll = append(o.toAll, envelope{msgType: msgType, payload: payload})
}

// deliver sends everything in o. Sessions that have gone away in the meantime
// are skipped.
func (s *Server) deliver(o *outbox) {
	for _, env := range o.envelopes {
		sess, err := s.sessionManager.Get(env.sessionID)
		if err != nil {
			continue
		}
		sess.Send(env.msgType, env.payload)
	}

	if len(o.toAll) == 0 {
		return
	}
	for _, sess := range s.sessionManager.All() {
		for _, env := range o.toAll {
			sess.Send(env.msgType, env.payload)
		}
	}
}

// queueGameActions fans a slice of new log entries out to the table, hiding
// each player's own draws from them. Must be called with t.mu held.
func queueGameActions(o *outbox, t *Table, actions []hanabi.Action) {
	if len(actions) == 0 {
		return
	}
	running := t.Game.Running()

	for i, p := range t.Players {
		if !p.Present || p.sessionID == "" {
			continue
		}
		list := make([]hanabi.Action, len(actions))
		for j, a := range actions {
			list[j] = hanabi.Censor(a, i, running)
		}
		o.send(p.sessionID, msgGameAction, GameActionMessage{TableID: t.ID, List: list})
	}

	for sessionID := range t.Spectators {
		o.send(sessionID, msgGameAction, GameActionMessage{TableID: t.ID, List: actions})
	}
}

// queueSnapshot sends init followed by the full game state to one session.
// Must be called with t.mu held.
func queueSnapshot(o *outbox, t *Table, sessionID string, playerIndex int, userID string) {
	spectating := playerIndex < 0
	o.send(sessionID, msgInit, t.initMessage(playerIndex, spectating))
	if t.Game != nil {
		o.send(sessionID, msgGameState, GameStateMessage{
			TableID: t.ID,
			State:   t.Game.ClientState(playerIndex, userID, time.Now()),
		})
	}
}
