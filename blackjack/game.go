package blackjack

import (
	"blackjack-lite/card"
)

// Game is the authoritative state of one blackjack table: seats, deck,
// dealer hand and turn cursor. It is not safe for concurrent use; the owning
// table actor is its only writer.
type Game struct {
	cfg     Config
	payout  PayoutFunc
	newDeck func() *card.Deck

	seats      map[int]*Player
	identities map[string]int // identity -> seat

	deck   *card.Deck
	dealer []card.Card

	playerOrder []string
	current     int

	phase   Phase
	round   uint32
	roundID string
}

func NewGame(cfg Config) (*Game, error) {
	if cfg.LowWaterMark == 0 {
		cfg.LowWaterMark = card.LowWaterMark
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	g := &Game{
		cfg:        cfg,
		payout:     cfg.Payout,
		newDeck:    cfg.deckFactory(),
		seats:      make(map[int]*Player, MaxPlayers),
		identities: make(map[string]int, MaxPlayers),
		current:    -1,
		phase:      PhaseWaiting,
	}
	if g.payout == nil {
		g.payout = DefaultPayout
	}
	g.deck = g.newDeck()
	return g, nil
}

func (g *Game) Phase() Phase {
	return g.phase
}

func (g *Game) Round() uint32 {
	return g.round
}

// RoundID is empty between rounds.
func (g *Game) RoundID() string {
	return g.roundID
}

func (g *Game) CardsRemaining() int {
	return g.deck.Remaining()
}

func (g *Game) DealerHand() []card.Card {
	return append([]card.Card(nil), g.dealer...)
}

// PlayerOrder returns seat-ascending identities.
func (g *Game) PlayerOrder() []string {
	return append([]string(nil), g.playerOrder...)
}

func (g *Game) CurrentIndex() int {
	if g.phase != PhasePlaying {
		return -1
	}
	return g.current
}

func (g *Game) SeatedCount() int {
	return len(g.seats)
}

// Player returns a copy of the identity's seat record.
func (g *Game) Player(identity string) (Player, bool) {
	p := g.playerByIdentity(identity)
	if p == nil {
		return Player{}, false
	}
	return p.clone(), true
}

func (g *Game) playerByIdentity(identity string) *Player {
	seat, ok := g.identities[identity]
	if !ok {
		return nil
	}
	return g.seats[seat]
}

func (g *Game) participants() []*Player {
	out := make([]*Player, 0, len(g.playerOrder))
	for _, id := range g.playerOrder {
		p := g.playerByIdentity(id)
		if p == nil || p.SittingOut {
			continue
		}
		out = append(out, p)
	}
	return out
}
