package hanabi

import (
	"slices"
	"time"
)

/*
 * Validation
 */

func (g *Game) validate(m Move) error {
	if !g.Running() {
		return ErrGameOver
	}
	if m.PlayerIndex < 0 || m.PlayerIndex >= len(g.Players) {
		return ErrInvalidPlayer
	}
	if m.PlayerIndex != g.ActivePlayerIndex {
		return ErrNotYourTurn
	}
	p := g.Players[m.PlayerIndex]

	switch m.Type {
	case MovePlay:
		if !slices.Contains(p.Hand, m.Target) {
			return ErrCardNotInHand
		}

	case MoveDiscard:
		if g.ClueTokens >= g.variant.MaxClues {
			return ErrCluesAtMax
		}
		if !slices.Contains(p.Hand, m.Target) {
			return ErrCardNotInHand
		}

	case MoveColorClue, MoveRankClue:
		if g.ClueTokens < 1 {
			return ErrNoClueTokens
		}
		if m.Target < 0 || m.Target >= len(g.Players) || m.Target == m.PlayerIndex {
			return ErrInvalidTarget
		}
		if m.Type == MoveColorClue && (m.Value < 0 || m.Value >= len(g.variant.Suits)) {
			return ErrInvalidClue
		}
		if m.Type == MoveRankClue && (m.Value < 1 || m.Value > g.variant.MaxRank) {
			return ErrInvalidClue
		}
		if len(g.touched(g.Players[m.Target], m.clue())) == 0 {
			return ErrClueTouchesNone
		}

	default:
		return ErrUnknownMove
	}

	return nil
}

func (g *Game) touched(p *Player, clue Clue) []int {
	list := make([]int, 0)
	for _, order := range p.Hand {
		if g.Deck[order].touchedBy(clue) {
			list = append(list, order)
		}
	}
	return list
}

/*
 * Application
 */

// Apply validates a move and, only if it is legal, applies it. The returned
// actions are the entries appended to the log by this move. On error the game
// is left untouched.
func (g *Game) Apply(m Move, now time.Time) ([]Action, error) {
	if err := g.validate(m); err != nil {
		return nil, err
	}

	before := len(g.Actions)
	p := g.Players[m.PlayerIndex]
	g.chargeTime(now)

	switch m.Type {
	case MovePlay:
		g.play(p, m.Target)
	case MoveDiscard:
		g.discard(p, m.Target)
	case MoveColorClue, MoveRankClue:
		g.clue(p, m)
	}

	if g.Running() {
		g.advanceTurn(now)
	}

	return g.Actions.Since(before), nil
}

func (g *Game) play(p *Player, order int) {
	c := g.Deck[order]
	g.removeFromHand(p, order)

	if g.Stacks[c.Suit] == c.Rank-1 {
		g.Stacks[c.Suit] = c.Rank
		g.Actions = append(g.Actions, ActionPlay{
			Type:        ActionTypePlay,
			PlayerIndex: p.index,
			Order:       c.Order,
			Suit:        c.Suit,
			Rank:        c.Rank,
		})
		// Completing a suit gives a clue back
		if c.Rank == g.variant.MaxRank && g.ClueTokens < g.variant.MaxClues {
			g.ClueTokens++
		}
	} else {
		g.DiscardPile = append(g.DiscardPile, c.Order)
		g.Actions = append(g.Actions, ActionDiscard{
			Type:        ActionTypeDiscard,
			PlayerIndex: p.index,
			Order:       c.Order,
			Suit:        c.Suit,
			Rank:        c.Rank,
			Failed:      true,
		})
		g.Strikes++
		g.Actions = append(g.Actions, ActionStrike{
			Type:  ActionTypeStrike,
			Num:   g.Strikes,
			Turn:  g.Turn,
			Order: c.Order,
		})
		if g.Strikes >= g.variant.MaxStrikes {
			g.end(EndConditionStrikeout, p.index)
			return
		}
	}

	g.draw(p.index)
}

func (g *Game) discard(p *Player, order int) {
	c := g.Deck[order]
	g.removeFromHand(p, order)
	g.DiscardPile = append(g.DiscardPile, c.Order)
	g.ClueTokens++
	g.Actions = append(g.Actions, ActionDiscard{
		Type:        ActionTypeDiscard,
		PlayerIndex: p.index,
		Order:       c.Order,
		Suit:        c.Suit,
		Rank:        c.Rank,
	})

	g.draw(p.index)
}

func (g *Game) clue(p *Player, m Move) {
	clue := m.clue()
	g.ClueTokens--
	g.Actions = append(g.Actions, ActionClue{
		Type:   ActionTypeClue,
		Giver:  p.index,
		Target: m.Target,
		Clue:   clue,
		List:   g.touched(g.Players[m.Target], clue),
		Turn:   g.Turn,
	})
}

// advanceTurn passes the turn to the next seat. Presence is not consulted:
// an absent player keeps their turn.
func (g *Game) advanceTurn(now time.Time) {
	if g.allStacksComplete() {
		g.end(EndConditionNormal, g.ActivePlayerIndex)
		return
	}
	if g.EndTurn >= 0 && g.Turn >= g.EndTurn {
		g.end(EndConditionNormal, g.ActivePlayerIndex)
		return
	}

	g.Turn++
	g.ActivePlayerIndex = (g.ActivePlayerIndex + 1) % len(g.Players)
	g.DatetimeTurnBegin = now
	g.Actions = append(g.Actions, ActionTurn{
		Type:               ActionTypeTurn,
		Num:                g.Turn,
		CurrentPlayerIndex: g.ActivePlayerIndex,
	})
}

// Abort ends a running game at a player's request.
func (g *Game) Abort(playerIndex int) ([]Action, error) {
	if !g.Running() {
		return nil, ErrGameOver
	}
	before := len(g.Actions)
	g.end(EndConditionAbandoned, playerIndex)
	return g.Actions.Since(before), nil
}

// DefaultMove is the move made on behalf of a player whose time ran out:
// discard the oldest card, or when discarding is illegal, a rank clue to the
// next player on their oldest card.
func (g *Game) DefaultMove() Move {
	p := g.ActivePlayer()
	if g.ClueTokens < g.variant.MaxClues && len(p.Hand) > 0 {
		return Move{PlayerIndex: p.index, Type: MoveDiscard, Target: p.Hand[0]}
	}

	for i := 1; i < len(g.Players); i++ {
		target := g.Players[(p.index+i)%len(g.Players)]
		if len(target.Hand) == 0 {
			continue
		}
		return Move{
			PlayerIndex: p.index,
			Type:        MoveRankClue,
			Target:      target.index,
			Value:       g.Deck[target.Hand[0]].Rank,
		}
	}

	return Move{PlayerIndex: p.index, Type: MovePlay, Target: p.Hand[0]}
}

/*
 * Clock
 */

func (g *Game) timed() bool {
	return g.options != nil && g.options.Timed
}

// chargeTime bills the active player for the turn that is ending and credits
// the per-turn bonus.
func (g *Game) chargeTime(now time.Time) {
	if !g.timed() {
		return
	}
	p := g.ActivePlayer()
	p.Time -= now.Sub(g.DatetimeTurnBegin)
	if p.Time < 0 {
		p.Time = 0
	}
	p.Time += g.options.TimePerTurn
}

// SettleClock folds the elapsed part of the current turn into the active
// player's budget so the budget is accurate on its own.
func (g *Game) SettleClock(now time.Time) {
	if !g.timed() || !g.Running() {
		return
	}
	p := g.ActivePlayer()
	p.Time -= now.Sub(g.DatetimeTurnBegin)
	if p.Time < 0 {
		p.Time = 0
	}
	g.DatetimeTurnBegin = now
}

// TimeRemaining is what the active player has left at now.
func (g *Game) TimeRemaining(now time.Time) time.Duration {
	left := g.ActivePlayer().Time - now.Sub(g.DatetimeTurnBegin)
	if left < 0 {
		return 0
	}
	return left
}
