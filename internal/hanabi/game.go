package hanabi

import (
	"slices"
	"time"
)

type EndCondition int

const (
	EndConditionInProgress EndCondition = iota
	EndConditionNormal
	EndConditionStrikeout
	EndConditionAbandoned
)

// Game is the authoritative rules state of one table. It is not safe for
// concurrent use; the owning table serializes access.
type Game struct {
	Seed    uint64    `json:"seed"`
	Players []*Player `json:"players"`

	Deck        []Card `json:"deck"`
	DeckIndex   int    `json:"deckIndex"`
	Stacks      []int  `json:"stacks"`
	DiscardPile []int  `json:"discardPile"`

	ClueTokens int `json:"clueTokens"`
	Strikes    int `json:"strikes"`

	Turn              int          `json:"turn"`
	ActivePlayerIndex int          `json:"activePlayerIndex"`
	EndTurn           int          `json:"endTurn"`
	EndCondition      EndCondition `json:"endCondition"`

	Actions ActionLog                 `json:"actions"`
	Notes   map[string]map[int]string `json:"notes"`

	DatetimeStarted   time.Time `json:"datetimeStarted"`
	DatetimeTurnBegin time.Time `json:"datetimeTurnBegin"`

	// Derived from the owning table's options; re-established by Attach.
	options *Options
	variant *Variant
}

// Player is the per-seat rules state.
type Player struct {
	Name   string        `json:"name"`
	UserID string        `json:"userID"`
	Hand   []int         `json:"hand"`
	Time   time.Duration `json:"time"`

	index int
}

func (p *Player) Index() int { return p.index }

// PlayerInit seats one participant.
type PlayerInit struct {
	UserID string
	Name   string
}

// NewGame creates a game from the table options, shuffles with seed and deals
// the opening hands.
func NewGame(opts *Options, seed uint64, seats []PlayerInit, now time.Time) (*Game, error) {
	if len(seats) < MinPlayers || len(seats) > MaxPlayers {
		return nil, ErrPlayerCount
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	variant, err := GetVariant(opts.Variant)
	if err != nil {
		return nil, err
	}

	g := &Game{
		Seed:              seed,
		Deck:              NewDeck(variant, seed),
		Stacks:            make([]int, len(variant.Suits)),
		DiscardPile:       make([]int, 0),
		ClueTokens:        variant.MaxClues,
		EndTurn:           -1,
		Actions:           make(ActionLog, 0),
		Notes:             make(map[string]map[int]string),
		DatetimeStarted:   now,
		DatetimeTurnBegin: now,
	}

	for _, seat := range seats {
		p := &Player{
			Name:   seat.Name,
			UserID: seat.UserID,
			Hand:   make([]int, 0, handSize(len(seats))),
		}
		if opts.Timed {
			p.Time = opts.BaseTime
		}
		g.Players = append(g.Players, p)
	}
	if err := g.Attach(opts); err != nil {
		return nil, err
	}

	for range handSize(len(seats)) {
		for i := range g.Players {
			g.draw(i)
		}
	}
	g.Actions = append(g.Actions, ActionTurn{
		Type:               ActionTypeTurn,
		Num:                0,
		CurrentPlayerIndex: 0,
	})

	return g, nil
}

// Attach re-links the state that is derived rather than stored: the table's
// options, the resolved variant and each player's seat index.
func (g *Game) Attach(opts *Options) error {
	variant, err := GetVariant(opts.Variant)
	if err != nil {
		return err
	}
	g.options = opts
	g.variant = variant
	for i, p := range g.Players {
		p.index = i
	}
	if g.Notes == nil {
		g.Notes = make(map[string]map[int]string)
	}
	return nil
}

func (g *Game) Variant() *Variant { return g.variant }

func (g *Game) ActivePlayer() *Player {
	return g.Players[g.ActivePlayerIndex]
}

func (g *Game) Running() bool {
	return g.EndCondition == EndConditionInProgress
}

func (g *Game) DeckSize() int {
	return len(g.Deck) - g.DeckIndex
}

// Score is the sum of the stacks; a strikeout scores nothing.
func (g *Game) Score() int {
	if g.EndCondition == EndConditionStrikeout {
		return 0
	}
	score := 0
	for _, s := range g.Stacks {
		score += s
	}
	return score
}

func (g *Game) PlayerIndexByUser(userID string) int {
	for i, p := range g.Players {
		if p.UserID == userID {
			return i
		}
	}
	return -1
}

func (g *Game) card(order int) (Card, bool) {
	if order < 0 || order >= len(g.Deck) {
		return Card{}, false
	}
	return g.Deck[order], true
}

// draw moves the top of the deck into a player's hand. The draw that empties
// the deck starts the final round.
func (g *Game) draw(playerIndex int) {
	if g.DeckSize() == 0 {
		return
	}
	c := g.Deck[g.DeckIndex]
	g.DeckIndex++

	p := g.Players[playerIndex]
	p.Hand = append(p.Hand, c.Order)
	g.Actions = append(g.Actions, ActionDraw{
		Type:        ActionTypeDraw,
		PlayerIndex: playerIndex,
		Order:       c.Order,
		Suit:        c.Suit,
		Rank:        c.Rank,
	})

	if g.DeckSize() == 0 && g.EndTurn < 0 {
		g.EndTurn = g.Turn + len(g.Players)
	}
}

func (g *Game) removeFromHand(p *Player, order int) bool {
	i := slices.Index(p.Hand, order)
	if i < 0 {
		return false
	}
	p.Hand = slices.Delete(p.Hand, i, i+1)
	return true
}

func (g *Game) allStacksComplete() bool {
	for _, s := range g.Stacks {
		if s < g.variant.MaxRank {
			return false
		}
	}
	return true
}

func (g *Game) end(condition EndCondition, playerIndex int) {
	g.EndCondition = condition
	g.Actions = append(g.Actions, ActionGameOver{
		Type:         ActionTypeGameOver,
		EndCondition: condition,
		PlayerIndex:  playerIndex,
		Score:        g.Score(),
	})
}
