package hanabi

import (
	"errors"
	"strings"
)

var (
	ErrUnknownVariant      = errors.New("UNKNOWN_VARIANT: Variant does not exist")
	ErrInvalidTimeSettings = errors.New("INVALID_OPTIONS: Timed games need a positive base time")
	ErrPlayerCount         = errors.New("INVALID_PLAYER_COUNT: Games need between 2 and 6 players")

	ErrGameOver        = errors.New("GAME_OVER: The game has already ended")
	ErrNotYourTurn     = errors.New("NOT_YOUR_TURN: It is not your turn")
	ErrUnknownMove     = errors.New("INVALID_MOVE: Unknown move type")
	ErrCardNotInHand   = errors.New("CARD_NOT_IN_HAND: That card is not in your hand")
	ErrNoClueTokens    = errors.New("NO_CLUES: There are no clue tokens left")
	ErrCluesAtMax      = errors.New("CLUES_AT_MAX: Cannot discard while at the maximum number of clue tokens")
	ErrInvalidTarget   = errors.New("INVALID_TARGET: Invalid clue target")
	ErrInvalidClue     = errors.New("INVALID_CLUE: Invalid clue value for this variant")
	ErrClueTouchesNone = errors.New("CLUE_TOUCHES_NOTHING: Clues must touch at least one card")
	ErrInvalidPlayer   = errors.New("INVALID_PLAYER: Player index out of range")

	ErrInvalidCard = errors.New("INVALID_CARD: Card does not exist")
	ErrNoteTooLong = errors.New("NOTE_TOO_LONG: Notes are limited to 1000 characters")
)

// Code extracts the machine readable prefix of an error built in the
// "CODE: message" convention.
func Code(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	if i := strings.Index(msg, ":"); i > 0 {
		code := msg[:i]
		if strings.ToUpper(code) == code && !strings.Contains(code, " ") {
			return code
		}
	}
	return ""
}
