package hanabi

import "time"

type ClientState struct {
	Variant           string         `json:"variant"`
	Suits             []string       `json:"suits"`
	Turn              int            `json:"turn"`
	ActivePlayerIndex int            `json:"activePlayerIndex"`
	OurPlayerIndex    int            `json:"ourPlayerIndex"`
	DeckCount         int            `json:"deckCount"`
	ClueTokens        int            `json:"clueTokens"`
	Strikes           int            `json:"strikes"`
	Stacks            []int          `json:"stacks"`
	DiscardPile       []Card         `json:"discardPile"`
	Players           []PlayerState  `json:"players"`
	Score             int            `json:"score"`
	MaxScore          int            `json:"maxScore"`
	EndCondition      EndCondition   `json:"endCondition"`
	Notes             map[int]string `json:"notes"`
}

type PlayerState struct {
	Name string         `json:"name"`
	Hand []Card         `json:"hand"`
	Time *time.Duration `json:"time,omitempty"`
}

// HiddenRank and HiddenSuit mark a card the viewer is not allowed to see.
const (
	HiddenSuit = -1
	HiddenRank = -1
)

// ClientState builds the snapshot for one viewer. Players never see their own
// hand while the game runs; viewerIndex -1 is a spectator who sees everything.
func (g *Game) ClientState(viewerIndex int, viewerUserID string, now time.Time) *ClientState {
	players := make([]PlayerState, 0, len(g.Players))
	for i, p := range g.Players {
		hidden := i == viewerIndex && g.Running()
		hand := make([]Card, 0, len(p.Hand))
		for _, order := range p.Hand {
			c := g.Deck[order]
			if hidden {
				c.Suit, c.Rank = HiddenSuit, HiddenRank
			}
			hand = append(hand, c)
		}

		state := PlayerState{Name: p.Name, Hand: hand}
		if g.timed() {
			left := p.Time
			if i == g.ActivePlayerIndex && g.Running() {
				left = g.TimeRemaining(now)
			}
			state.Time = &left
		}
		players = append(players, state)
	}

	discards := make([]Card, 0, len(g.DiscardPile))
	for _, order := range g.DiscardPile {
		discards = append(discards, g.Deck[order])
	}

	return &ClientState{
		Variant:           g.variant.Name,
		Suits:             g.variant.Suits,
		Turn:              g.Turn,
		ActivePlayerIndex: g.ActivePlayerIndex,
		OurPlayerIndex:    viewerIndex,
		DeckCount:         g.DeckSize(),
		ClueTokens:        g.ClueTokens,
		Strikes:           g.Strikes,
		Stacks:            append([]int(nil), g.Stacks...),
		DiscardPile:       discards,
		Players:           players,
		Score:             g.Score(),
		MaxScore:          g.variant.maxScore(),
		EndCondition:      g.EndCondition,
		Notes:             g.NotesFor(viewerUserID),
	}
}

// Censor hides the card identity of a draw action for the player who drew it.
func Censor(a Action, viewerIndex int, running bool) Action {
	draw, ok := a.(ActionDraw)
	if !ok || !running || draw.PlayerIndex != viewerIndex {
		return a
	}
	draw.Suit, draw.Rank = HiddenSuit, HiddenRank
	return draw
}
