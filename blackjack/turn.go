package blackjack

import "fmt"

// CurrentPlayer returns the player whose turn it is.
func (g *Game) CurrentPlayer() (Player, error) {
	if g.phase != PhasePlaying {
		return Player{}, errInvalidPhase("current player", g.phase)
	}
	if g.current < 0 || g.current >= len(g.playerOrder) {
		return Player{}, fmt.Errorf("%w: index %d", ErrPlayerNotFound, g.current)
	}
	p := g.playerByIdentity(g.playerOrder[g.current])
	if p == nil {
		return Player{}, fmt.Errorf("%w: %s", ErrPlayerNotFound, g.playerOrder[g.current])
	}
	return p.clone(), nil
}

func (g *Game) currentIdentity() string {
	if g.current < 0 || g.current >= len(g.playerOrder) {
		return ""
	}
	return g.playerOrder[g.current]
}

// CurrentIdentity is empty outside of play.
func (g *Game) CurrentIdentity() string {
	if g.phase != PhasePlaying {
		return ""
	}
	return g.currentIdentity()
}

// Hit draws one card for the current player. The turn stays unless the hand busts.
func (g *Game) Hit(identity string) error {
	p, err := g.actor(identity)
	if err != nil {
		return err
	}
	c, err := g.deck.Draw()
	if err != nil {
		return fmt.Errorf("hit: %w", err)
	}
	p.Hand = append(p.Hand, c)
	if p.Value().Bust() {
		p.HasBusted = true
		p.Done = true
		g.advance()
	}
	return nil
}

// Stand ends the current player's turn.
func (g *Game) Stand(identity string) error {
	p, err := g.actor(identity)
	if err != nil {
		return err
	}
	p.IsStanding = true
	p.Done = true
	g.advance()
	return nil
}

func (g *Game) actor(identity string) (*Player, error) {
	if g.phase != PhasePlaying || identity == "" || g.currentIdentity() != identity {
		return nil, ErrOutOfTurn
	}
	p := g.playerByIdentity(identity)
	if p == nil || p.Done {
		return nil, ErrOutOfTurn
	}
	return p, nil
}

// advance moves the cursor to the next undone player after the current one.
// An order entry without a seat record counts as done. When nobody is left
// the round moves to the dealer.
func (g *Game) advance() {
	for i := g.current + 1; i < len(g.playerOrder); i++ {
		p := g.playerByIdentity(g.playerOrder[i])
		if p == nil || p.Done {
			continue
		}
		g.current = i
		return
	}
	g.current = -1
	g.phase = PhaseDealerTurn
}
