package card

import (
	"fmt"
	"strings"
)

// Card is a single playing card.
//
// Encoding:
// - high 4 bits: suit (0:Club, 1:Diamond, 2:Heart, 3:Spade)
// - low 4 bits: rank (1:A, 2..9, 10:T, 11:J, 12:Q, 13:K)
type Card byte

const CardInvalid Card = 0

// MaskedToken is what a hidden card looks like on the wire.
const MaskedToken = "XX"

const rankChars = "A23456789TJQK"

// New builds a card from a rank (1..13, A=1) and a suit.
func New(rank byte, suit Suit) Card {
	if rank < 1 || rank > 13 || suit > Spade {
		return CardInvalid
	}
	return Card(byte(suit)<<4 | rank)
}

// Rank returns 1-13 (A=1, K=13), 0 for invalid cards.
func (c Card) Rank() byte {
	r := byte(c & 0x0F)
	if r < 1 || r > 13 {
		return 0
	}
	return r
}

func (c Card) Suit() Suit {
	return Suit(c >> 4)
}

func (c Card) IsAce() bool {
	return c.Rank() == 1
}

func (c Card) Valid() bool {
	return c.Rank() != 0 && c.Suit() <= Spade
}

// Points is the blackjack count before ace promotion: faces 10, ace 1.
func (c Card) Points() int {
	r := int(c.Rank())
	if r > 10 {
		return 10
	}
	return r
}

// String renders the two-character token, rank then suit ("Ah", "Tc").
func (c Card) String() string {
	if !c.Valid() {
		return "??"
	}
	return string(rankChars[c.Rank()-1]) + c.Suit().String()
}

func (c Card) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("invalid card 0x%02x", byte(c))
	}
	return []byte(c.String()), nil
}

func (c *Card) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Parse converts a token such as "As", "Td" or "9h" into a Card.
func Parse(token string) (Card, error) {
	token = strings.TrimSpace(token)
	if len(token) != 2 {
		return CardInvalid, fmt.Errorf("invalid card string: %q", token)
	}

	idx := strings.IndexByte(rankChars, strings.ToUpper(token[:1])[0])
	if idx < 0 {
		return CardInvalid, fmt.Errorf("invalid rank: %c", token[0])
	}
	suit, err := ParseSuit(token[1])
	if err != nil {
		return CardInvalid, err
	}
	return New(byte(idx+1), suit), nil
}

// ParseList parses tokens in order.
func ParseList(tokens ...string) ([]Card, error) {
	out := make([]Card, 0, len(tokens))
	for _, tok := range tokens {
		c, err := Parse(tok)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// MustParseList is ParseList for fixtures; it panics on a bad token.
func MustParseList(tokens ...string) []Card {
	out, err := ParseList(tokens...)
	if err != nil {
		panic(err)
	}
	return out
}

// Tokens renders cards as their string tokens.
func Tokens(cards []Card) []string {
	out := make([]string, 0, len(cards))
	for _, c := range cards {
		out = append(out, c.String())
	}
	return out
}
