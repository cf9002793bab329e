package hanabi

import (
	"encoding/json"
	"fmt"

	"github.com/mitchellh/mapstructure"
)

type ActionType string

const (
	ActionTypeDraw     ActionType = "draw"
	ActionTypeClue     ActionType = "clue"
	ActionTypePlay     ActionType = "play"
	ActionTypeDiscard  ActionType = "discard"
	ActionTypeStrike   ActionType = "strike"
	ActionTypeTurn     ActionType = "turn"
	ActionTypeGameOver ActionType = "gameOver"
)

// Action is one entry of the append-only game log.
type Action interface {
	Kind() ActionType
}

type ClueType int

const (
	ClueTypeColor ClueType = iota
	ClueTypeRank
)

type Clue struct {
	Type  ClueType `json:"type"`
	Value int      `json:"value"`
}

type ActionDraw struct {
	Type        ActionType `json:"type"`
	PlayerIndex int        `json:"playerIndex"`
	Order       int        `json:"order"`
	Suit        int        `json:"suit"`
	Rank        int        `json:"rank"`
}

type ActionClue struct {
	Type   ActionType `json:"type"`
	Giver  int        `json:"giver"`
	Target int        `json:"target"`
	Clue   Clue       `json:"clue"`
	List   []int      `json:"list"`
	Turn   int        `json:"turn"`
}

type ActionPlay struct {
	Type        ActionType `json:"type"`
	PlayerIndex int        `json:"playerIndex"`
	Order       int        `json:"order"`
	Suit        int        `json:"suit"`
	Rank        int        `json:"rank"`
}

type ActionDiscard struct {
	Type        ActionType `json:"type"`
	PlayerIndex int        `json:"playerIndex"`
	Order       int        `json:"order"`
	Suit        int        `json:"suit"`
	Rank        int        `json:"rank"`
	Failed      bool       `json:"failed"`
}

type ActionStrike struct {
	Type  ActionType `json:"type"`
	Num   int        `json:"num"`
	Turn  int        `json:"turn"`
	Order int        `json:"order"`
}

type ActionTurn struct {
	Type               ActionType `json:"type"`
	Num                int        `json:"num"`
	CurrentPlayerIndex int        `json:"currentPlayerIndex"`
}

type ActionGameOver struct {
	Type         ActionType   `json:"type"`
	EndCondition EndCondition `json:"endCondition"`
	PlayerIndex  int          `json:"playerIndex"`
	Score        int          `json:"score"`
}

func (ActionDraw) Kind() ActionType     { return ActionTypeDraw }
func (ActionClue) Kind() ActionType     { return ActionTypeClue }
func (ActionPlay) Kind() ActionType     { return ActionTypePlay }
func (ActionDiscard) Kind() ActionType  { return ActionTypeDiscard }
func (ActionStrike) Kind() ActionType   { return ActionTypeStrike }
func (ActionTurn) Kind() ActionType     { return ActionTypeTurn }
func (ActionGameOver) Kind() ActionType { return ActionTypeGameOver }

// actionDecoders maps every kind to the concrete type it must come back as.
// A kind missing here is a decode error, never a generic map.
var actionDecoders = map[ActionType]func(map[string]any) (Action, error){
	ActionTypeDraw:     decodeAs[ActionDraw],
	ActionTypeClue:     decodeAs[ActionClue],
	ActionTypePlay:     decodeAs[ActionPlay],
	ActionTypeDiscard:  decodeAs[ActionDiscard],
	ActionTypeStrike:   decodeAs[ActionStrike],
	ActionTypeTurn:     decodeAs[ActionTurn],
	ActionTypeGameOver: decodeAs[ActionGameOver],
}

func decodeAs[T Action](raw map[string]any) (Action, error) {
	var action T
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:     "json",
		ErrorUnused: true,
		Result:      &action,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, err
	}
	return action, nil
}

// DecodeAction turns a generically decoded log entry back into its typed form.
func DecodeAction(raw map[string]any) (Action, error) {
	kind, ok := raw["type"].(string)
	if !ok {
		return nil, fmt.Errorf("action has no type discriminator")
	}
	decode, ok := actionDecoders[ActionType(kind)]
	if !ok {
		return nil, fmt.Errorf("unknown action type %q", kind)
	}
	return decode(raw)
}

// ActionLog is the ordered action history of a game.
type ActionLog []Action

func (l *ActionLog) UnmarshalJSON(data []byte) error {
	var raws []map[string]any
	if err := json.Unmarshal(data, &raws); err != nil {
		return err
	}

	log := make(ActionLog, 0, len(raws))
	for i, raw := range raws {
		action, err := DecodeAction(raw)
		if err != nil {
			return fmt.Errorf("failed to decode action %d: %w", i, err)
		}
		log = append(log, action)
	}
	*l = log
	return nil
}

// Since returns the entries appended after the first n.
func (l ActionLog) Since(n int) []Action {
	if n >= len(l) {
		return nil
	}
	out := make([]Action, len(l)-n)
	copy(out, l[n:])
	return out
}
