package blackjack

import (
	"fmt"
	"math/rand"

	"blackjack-lite/card"
)

type Config struct {
	// Deck is replaced at round start when fewer cards remain.
	LowWaterMark int

	// Payout settles a non-losing result. Nil uses DefaultPayout.
	Payout PayoutFunc

	// RNG seed for shuffles (0 => global source)
	Seed int64

	// NewDeck overrides deck creation. Nil shuffles a full 52-card deck.
	NewDeck func() *card.Deck
}

func DefaultConfig() Config {
	return Config{LowWaterMark: card.LowWaterMark}
}

func (c Config) validate() error {
	if c.LowWaterMark < 0 || c.LowWaterMark > 52 {
		return fmt.Errorf("LowWaterMark must be within 0..52, got %d", c.LowWaterMark)
	}
	// Five players and the dealer take twelve cards on the deal.
	if c.NewDeck == nil && c.LowWaterMark < 2*(MaxPlayers+1) {
		return fmt.Errorf("LowWaterMark %d cannot cover a full deal", c.LowWaterMark)
	}
	return nil
}

func (c Config) deckFactory() func() *card.Deck {
	if c.NewDeck != nil {
		return c.NewDeck
	}
	if c.Seed != 0 {
		rng := rand.New(rand.NewSource(c.Seed))
		return func() *card.Deck { return card.NewDeck(rng) }
	}
	return card.CreateDeck
}
