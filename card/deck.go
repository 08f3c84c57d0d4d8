package card

import (
	"errors"
	"math/rand"
)

// LowWaterMark is the remaining-card count below which a round starts on a fresh deck.
const LowWaterMark = 15

var ErrDeckExhausted = errors.New("deck exhausted")

// CardList is a stack of cards; the top is the last element.
type CardList []Card

func (ds CardList) Count() int {
	return len(ds)
}

func (ds *CardList) Add(cards ...Card) {
	*ds = append(*ds, cards...)
}

// PopCard removes the top card, CardInvalid when empty.
func (ds *CardList) PopCard() Card {
	total := ds.Count()
	if total == 0 {
		return CardInvalid
	}
	c := (*ds)[total-1]
	*ds = (*ds)[:total-1]
	return c
}

// Deck is one shoe of 52 unique cards, consumed from the top.
type Deck struct {
	cards CardList
}

// CreateDeck returns a freshly shuffled 52-card deck.
func CreateDeck() *Deck {
	return NewDeck(nil)
}

// NewDeck shuffles a full deck with rng; nil uses the global source.
func NewDeck(rng *rand.Rand) *Deck {
	intn := rand.Intn
	if rng != nil {
		intn = rng.Intn
	}
	cards := FullDeck()
	// Fisher-Yates: j drawn from [0, i].
	for i := len(cards) - 1; i > 0; i-- {
		j := intn(i + 1)
		cards[i], cards[j] = cards[j], cards[i]
	}
	return &Deck{cards: cards}
}

// NewDeckFrom builds a deck with an explicit order. The last element is drawn first.
func NewDeckFrom(cards []Card) *Deck {
	cl := make(CardList, len(cards))
	copy(cl, cards)
	return &Deck{cards: cl}
}

// StackedDeck builds a deck whose first draw is draws[0], then draws[1] and so on.
func StackedDeck(draws []Card) *Deck {
	cl := make(CardList, len(draws))
	for i, c := range draws {
		cl[len(draws)-1-i] = c
	}
	return &Deck{cards: cl}
}

// FullDeck lists all 52 rank x suit combinations in a fixed order.
func FullDeck() CardList {
	out := make(CardList, 0, 52)
	for _, s := range Suits {
		for r := byte(1); r <= 13; r++ {
			out = append(out, New(r, s))
		}
	}
	return out
}

func (d *Deck) Draw() (Card, error) {
	if d == nil || d.cards.Count() == 0 {
		return CardInvalid, ErrDeckExhausted
	}
	return d.cards.PopCard(), nil
}

func (d *Deck) Remaining() int {
	if d == nil {
		return 0
	}
	return d.cards.Count()
}

// Cards returns a copy of the remaining cards, bottom first.
func (d *Deck) Cards() []Card {
	if d == nil {
		return nil
	}
	out := make([]Card, len(d.cards))
	copy(out, d.cards)
	return out
}
