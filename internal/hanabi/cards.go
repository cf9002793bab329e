package hanabi

import "math/rand/v2"

// Card is one physical card. Order is its position in the shuffled deck and
// doubles as its identity for the rest of the game.
type Card struct {
	Order int `json:"order"`
	Suit  int `json:"suit"`
	Rank  int `json:"rank"`
}

// touchedBy reports whether a clue would touch this card.
func (c Card) touchedBy(clue Clue) bool {
	switch clue.Type {
	case ClueTypeColor:
		return c.Suit == clue.Value
	case ClueTypeRank:
		return c.Rank == clue.Value
	}
	return false
}

// NewDeck builds the full deck for a variant and shuffles it with a PCG source
// seeded from seed, so the same seed always yields the same order.
func NewDeck(v *Variant, seed uint64) []Card {
	deck := make([]Card, 0, len(v.Suits)*10)
	for suit := range v.Suits {
		for rank := 1; rank <= v.MaxRank; rank++ {
			for range v.copiesOf(rank) {
				deck = append(deck, Card{Suit: suit, Rank: rank})
			}
		}
	}

	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	r.Shuffle(len(deck), func(i, j int) {
		deck[i], deck[j] = deck[j], deck[i]
	})

	for i := range deck {
		deck[i].Order = i
	}
	return deck
}
