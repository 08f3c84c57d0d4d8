package blackjack

import (
	"time"

	"blackjack-lite/card"
)

// Player is one occupied seat.
type Player struct {
	Identity string
	Seat     int
	ConnID   string
	Online   bool
	LastSeen time.Time

	Bet  float64
	Hand []card.Card

	Done       bool
	HasBusted  bool
	IsStanding bool
	// SittingOut players hold a seat but take no part in the current round.
	SittingOut bool

	Result *RoundResult
}

func (p *Player) Value() card.Value {
	return card.HandValue(p.Hand)
}

// resetHand clears per-round state and keeps the bet.
func (p *Player) resetHand() {
	p.Hand = nil
	p.Done = false
	p.HasBusted = false
	p.IsStanding = false
	p.SittingOut = false
	p.Result = nil
}

func (p *Player) resetForNewRound() {
	p.resetHand()
	p.Bet = 0
}

func (p *Player) sitOut() {
	p.resetHand()
	p.SittingOut = true
	p.Done = true
}

func (p *Player) clone() Player {
	cp := *p
	cp.Hand = append([]card.Card(nil), p.Hand...)
	if p.Result != nil {
		r := *p.Result
		cp.Result = &r
	}
	return cp
}
