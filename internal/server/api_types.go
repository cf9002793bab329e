package server

import (
	"time"

	"hanabi-server/internal/hanabi"
)

// ============================================================================
// ERROR RESPONSES
// ============================================================================
// tygo:generate
type ErrorMessage struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// ============================================================================
// REQUESTS
// ============================================================================
// tygo:generate
type TableCreateRequest struct {
	Name    string         `json:"name"`
	Options hanabi.Options `json:"options"`
}

// TableRequest is the payload of every command that only names a table:
// tableJoin, tableLeave, tableSpectate, tableUnattend, tableReconnect,
// tableStart and tableTerminate.
// tygo:generate
type TableRequest struct {
	TableID uint64 `json:"tableID"`
}

// tygo:generate
type ActionRequest struct {
	TableID uint64          `json:"tableID"`
	Type    hanabi.MoveType `json:"type"`
	Target  int             `json:"target"`
	Value   int             `json:"value"`
}

// tygo:generate
type NoteRequest struct {
	TableID uint64 `json:"tableID"`
	Order   int    `json:"order"`
	Note    string `json:"note"`
}

// ============================================================================
// LOBBY
// ============================================================================
// tygo:generate
type TableSummary struct {
	ID            uint64   `json:"id"`
	Name          string   `json:"name"`
	Owner         string   `json:"owner"`
	Players       []string `json:"players"`
	NumSpectators int      `json:"numSpectators"`
	Running       bool     `json:"running"`
	Replay        bool     `json:"replay"`
	Variant       string   `json:"variant"`
	Timed         bool     `json:"timed"`
}

// tygo:generate
type TableGoneMessage struct {
	TableID uint64 `json:"tableID"`
}

// tygo:generate
type UserStatusMessage struct {
	UserID  string `json:"userID"`
	Name    string `json:"name"`
	Status  string `json:"status"`
	TableID uint64 `json:"tableID"`
}

const (
	statusOnline  = "online"
	statusAway    = "away"
	statusOffline = "offline"
)

// tygo:generate
type KickedMessage struct {
	Reason string `json:"reason"`
}

// tygo:generate
type WarningMessage struct {
	Message string `json:"message"`
}

// ============================================================================
// TABLE MEMBERSHIP
// ============================================================================
// tygo:generate
type SpectatorsMessage struct {
	TableID uint64   `json:"tableID"`
	Count   int      `json:"count"`
	Names   []string `json:"names"`
}

// tygo:generate
type ConnectedMessage struct {
	TableID uint64 `json:"tableID"`
	List    []bool `json:"list"`
}

// ============================================================================
// GAME
// ============================================================================
// tygo:generate
type InitMessage struct {
	TableID         uint64         `json:"tableID"`
	Name            string         `json:"name"`
	PlayerNames     []string       `json:"playerNames"`
	OurPlayerIndex  int            `json:"ourPlayerIndex"`
	Spectating      bool           `json:"spectating"`
	Replay          bool           `json:"replay"`
	Options         hanabi.Options `json:"options"`
	DatetimeStarted time.Time      `json:"datetimeStarted"`
}

// tygo:generate
type GameStateMessage struct {
	TableID uint64              `json:"tableID"`
	State   *hanabi.ClientState `json:"state"`
}

// tygo:generate
type GameActionMessage struct {
	TableID uint64          `json:"tableID"`
	List    []hanabi.Action `json:"list"`
}

// tygo:generate
type NoteUpdateMessage struct {
	TableID uint64 `json:"tableID"`
	Order   int    `json:"order"`
	Note    string `json:"note"`
}

// ============================================================================
// HTTP
// ============================================================================
type HealthResponse struct {
	Status   string `json:"status"`
	Sessions int    `json:"sessions"`
	Tables   int    `json:"tables"`
}
