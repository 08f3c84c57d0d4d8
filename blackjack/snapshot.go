package blackjack

import (
	"time"

	"blackjack-lite/card"
)

type PlayerSnapshot struct {
	Identity   string
	Seat       int
	ConnID     string
	Online     bool
	LastSeen   time.Time
	Bet        float64
	Hand       []card.Card
	Value      card.Value
	Done       bool
	HasBusted  bool
	IsStanding bool
	SittingOut bool
	Result     *RoundResult
}

// Snapshot is the full server-side view, including the dealer hole card.
type Snapshot struct {
	Phase              Phase
	Round              uint32
	RoundID            string
	Players            []PlayerSnapshot // seat ascending
	PlayerOrder        []string
	CurrentPlayerIndex int
	DealerHand         []card.Card
	CardsRemaining     int
}

func (g *Game) Snapshot() Snapshot {
	snap := Snapshot{
		Phase:              g.phase,
		Round:              g.round,
		RoundID:            g.roundID,
		PlayerOrder:        g.PlayerOrder(),
		CurrentPlayerIndex: g.CurrentIndex(),
		DealerHand:         g.DealerHand(),
		CardsRemaining:     g.deck.Remaining(),
	}
	for _, id := range g.playerOrder {
		p := g.playerByIdentity(id)
		if p == nil {
			continue
		}
		cp := p.clone()
		snap.Players = append(snap.Players, PlayerSnapshot{
			Identity:   cp.Identity,
			Seat:       cp.Seat,
			ConnID:     cp.ConnID,
			Online:     cp.Online,
			LastSeen:   cp.LastSeen,
			Bet:        cp.Bet,
			Hand:       cp.Hand,
			Value:      cp.Value(),
			Done:       cp.Done,
			HasBusted:  cp.HasBusted,
			IsStanding: cp.IsStanding,
			SittingOut: cp.SittingOut,
			Result:     cp.Result,
		})
	}
	return snap
}
