package server

import "errors"

var (
	ErrSessionNotFound = errors.New("SESSION_NOT_FOUND: No such session")
	ErrTableNotFound   = errors.New("TABLE_NOT_FOUND: Table does not exist")
	ErrTableFull       = errors.New("TABLE_FULL: Table already has the maximum number of players")
	ErrTableStarted    = errors.New("TABLE_STARTED: Table has already started")
	ErrTableNotStarted = errors.New("TABLE_NOT_STARTED: Table has not started yet")
	ErrTableFinished   = errors.New("TABLE_FINISHED: The game at this table is over")
	ErrAlreadyAtTable  = errors.New("ALREADY_AT_TABLE: Leave your current table first")
	ErrAlreadyJoined   = errors.New("ALREADY_JOINED: You are already a player at this table")
	ErrNotAtTable      = errors.New("NOT_AT_TABLE: You are not at this table")
	ErrNotAPlayer      = errors.New("NOT_A_PLAYER: You are not a player at this table")
	ErrNotOwner        = errors.New("NOT_OWNER: Only the table owner can do that")
	ErrNotEnoughPlayer = errors.New("NOT_ENOUGH_PLAYERS: At least 2 players are needed to start")
	ErrInvalidPayload  = errors.New("INVALID_PAYLOAD: Could not parse the message payload")
	ErrUnknownCommand  = errors.New("INVALID_MESSAGE_TYPE: Unknown message type")
	ErrRateLimited     = errors.New("RATE_LIMIT_EXCEEDED: Too many messages, slow down")
	ErrShuttingDown    = errors.New("SERVER_SHUTTING_DOWN: The server is restarting, try again shortly")
	ErrUnauthorized    = errors.New("UNAUTHORIZED: Missing or invalid token")
	ErrInvalidName     = errors.New("NAME_INVALID: Name must be between 1 and 32 characters")

	// ErrInconsistentState marks an internal invariant violation. It is logged
	// and aborts the single operation; it is never sent to a client.
	ErrInconsistentState = errors.New("INCONSISTENT_STATE: Internal table state is inconsistent")

	errStaleTimer = errors.New("turn already advanced")
)
