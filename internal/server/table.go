package server

import (
	"sort"
	"sync"
	"time"

	"hanabi-server/internal/hanabi"
)

// TablePlayer is a seat at a table. Present is false while the player is not
// attending, for example after a disconnect; the seat is kept.
type TablePlayer struct {
	UserID  string `json:"userID"`
	Name    string `json:"name"`
	Present bool   `json:"present"`

	sessionID string
}

type Spectator struct {
	UserID string
	Name   string
}

// Table is a game room. Exported fields are its persisted form; everything
// bound to live connections or goroutines is unexported and rebuilt on
// restore. All access goes through mu.
type Table struct {
	ID      uint64 `json:"id"`
	Name    string `json:"name"`
	Owner   string `json:"owner"`
	Running bool   `json:"running"`
	Replay  bool   `json:"replay"`

	Players    []*TablePlayer        `json:"players"`
	Spectators map[string]*Spectator `json:"-"` // session ID -> spectator

	Options hanabi.Options `json:"options"`
	Game    *hanabi.Game   `json:"game,omitempty"`

	DatetimeCreated    time.Time `json:"datetimeCreated"`
	DatetimeLastAction time.Time `json:"datetimeLastAction"`

	mu       sync.Mutex
	timer    TurnTimer
	idleStop chan struct{}
	idleOnce sync.Once
}

func newTable(id uint64, name, owner string, opts hanabi.Options, now time.Time) *Table {
	t := &Table{
		ID:                 id,
		Name:               name,
		Owner:              owner,
		Players:            make([]*TablePlayer, 0, hanabi.MaxPlayers),
		Options:            opts,
		DatetimeCreated:    now,
		DatetimeLastAction: now,
	}
	t.init()
	return t
}

// init prepares the non-persisted part of a table.
func (t *Table) init() {
	if t.Spectators == nil {
		t.Spectators = make(map[string]*Spectator)
	}
	t.idleStop = make(chan struct{})
}

// NumSpectators is derived from the spectator mapping so the two can never
// disagree.
func (t *Table) NumSpectators() int {
	return len(t.Spectators)
}

func (t *Table) playerIndex(userID string) int {
	for i, p := range t.Players {
		if p.UserID == userID {
			return i
		}
	}
	return -1
}

func (t *Table) removePlayer(i int) {
	t.Players = append(t.Players[:i], t.Players[i+1:]...)
}

// inProgress is a started game that has not ended.
func (t *Table) inProgress() bool {
	return t.Running && !t.Replay
}

// stopIdle ends the table's idle watcher. Safe to call more than once.
func (t *Table) stopIdle() {
	t.idleOnce.Do(func() { close(t.idleStop) })
}

func (t *Table) touch(now time.Time) {
	t.DatetimeLastAction = now
}

// memberSessions lists the sessions attending the table: present players and
// spectators.
func (t *Table) memberSessions() []string {
	ids := make([]string, 0, len(t.Players)+len(t.Spectators))
	for _, p := range t.Players {
		if p.Present && p.sessionID != "" {
			ids = append(ids, p.sessionID)
		}
	}
	for sessionID := range t.Spectators {
		ids = append(ids, sessionID)
	}
	return ids
}

func (t *Table) summary() TableSummary {
	names := make([]string, 0, len(t.Players))
	for _, p := range t.Players {
		names = append(names, p.Name)
	}
	return TableSummary{
		ID:            t.ID,
		Name:          t.Name,
		Owner:         t.Owner,
		Players:       names,
		NumSpectators: t.NumSpectators(),
		Running:       t.Running,
		Replay:        t.Replay,
		Variant:       t.Options.Variant,
		Timed:         t.Options.Timed,
	}
}

func (t *Table) spectatorsMessage() SpectatorsMessage {
	names := make([]string, 0, len(t.Spectators))
	for _, sp := range t.Spectators {
		names = append(names, sp.Name)
	}
	sort.Strings(names)
	return SpectatorsMessage{TableID: t.ID, Count: t.NumSpectators(), Names: names}
}

func (t *Table) connectedMessage() ConnectedMessage {
	list := make([]bool, len(t.Players))
	for i, p := range t.Players {
		list[i] = p.Present
	}
	return ConnectedMessage{TableID: t.ID, List: list}
}

func (t *Table) initMessage(ourIndex int, spectating bool) InitMessage {
	names := make([]string, 0, len(t.Players))
	for _, p := range t.Players {
		names = append(names, p.Name)
	}
	msg := InitMessage{
		TableID:        t.ID,
		Name:           t.Name,
		PlayerNames:    names,
		OurPlayerIndex: ourIndex,
		Spectating:     spectating,
		Replay:         t.Replay,
		Options:        t.Options,
	}
	if t.Game != nil {
		msg.DatetimeStarted = t.Game.DatetimeStarted
	}
	return msg
}
