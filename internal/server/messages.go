package server

import "encoding/json"

type ClientMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type ServerMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Commands accepted from clients.
const (
	cmdPing           = "ping"
	cmdTableCreate    = "tableCreate"
	cmdTableJoin      = "tableJoin"
	cmdTableLeave     = "tableLeave"
	cmdTableSpectate  = "tableSpectate"
	cmdTableUnattend  = "tableUnattend"
	cmdTableReconnect = "tableReconnect"
	cmdTableStart     = "tableStart"
	cmdAction         = "action"
	cmdNote           = "note"
	cmdTableTerminate = "tableTerminate"
	cmdTableList      = "tableList"
)

// Notifications sent to clients.
const (
	msgError       = "error"
	msgPong        = "pong"
	msgTableUpdate = "tableUpdate"
	msgTableGone   = "tableGone"
	msgSpectators  = "spectators"
	msgConnected   = "connected"
	msgInit        = "init"
	msgGameState   = "gameState"
	msgGameAction  = "gameAction"
	msgUserStatus  = "userStatus"
	msgKicked      = "kicked"
	msgNoteUpdate  = "noteUpdate"
	msgTableList   = "tableList"
	msgWarning     = "warning"
)
