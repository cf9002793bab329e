package hanabi

type MoveType string

const (
	MovePlay      MoveType = "play"
	MoveDiscard   MoveType = "discard"
	MoveColorClue MoveType = "colorClue"
	MoveRankClue  MoveType = "rankClue"
)

// Move is a player's request before validation. Target is a card order for
// plays and discards and a player index for clues.
type Move struct {
	PlayerIndex int      `json:"playerIndex"`
	Type        MoveType `json:"type"`
	Target      int      `json:"target"`
	Value       int      `json:"value"`
}

func (m Move) clue() Clue {
	if m.Type == MoveColorClue {
		return Clue{Type: ClueTypeColor, Value: m.Value}
	}
	return Clue{Type: ClueTypeRank, Value: m.Value}
}
