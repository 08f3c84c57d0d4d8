package card

import "fmt"

type Suit byte

const (
	Club Suit = iota
	Diamond
	Heart
	Spade
)

var Suits = []Suit{Club, Diamond, Heart, Spade}

func (s Suit) String() string {
	switch s {
	case Club:
		return "c"
	case Diamond:
		return "d"
	case Heart:
		return "h"
	case Spade:
		return "s"
	}
	return "?"
}

func ParseSuit(ch byte) (Suit, error) {
	switch ch {
	case 'c', 'C':
		return Club, nil
	case 'd', 'D':
		return Diamond, nil
	case 'h', 'H':
		return Heart, nil
	case 's', 'S':
		return Spade, nil
	default:
		return 0, fmt.Errorf("invalid suit: %c", ch)
	}
}
