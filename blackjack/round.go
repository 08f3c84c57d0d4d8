package blackjack

import (
	"fmt"
	"time"

	"blackjack-lite/card"

	"github.com/google/uuid"
)

// SeatResult is one settled player in a finished round.
type SeatResult struct {
	Identity string
	Seat     int
	Hand     []card.Card
	Value    card.Value
	Result   RoundResult
}

// RoundSummary describes a settled round.
type RoundSummary struct {
	RoundID   string
	Round     uint32
	Dealer    []card.Card
	DealerVal card.Value
	Players   []SeatResult
	SettledAt time.Time
}

// OpenBetting moves a waiting table into its betting window.
func (g *Game) OpenBetting() error {
	if g.phase != PhaseWaiting {
		return errInvalidPhase("open betting", g.phase)
	}
	if len(g.seats) == 0 {
		return ErrNoPlayers
	}
	g.phase = PhaseBetting
	return nil
}

// StartRound deals a new round to every seated player with a bet. Players
// without a bet sit the round out.
func (g *Game) StartRound() error {
	if !g.phase.AcceptsBets() {
		return errInvalidPhase("start round", g.phase)
	}
	if len(g.seats) == 0 {
		return ErrNoPlayers
	}

	var dealt []*Player
	for _, id := range g.playerOrder {
		p := g.playerByIdentity(id)
		if p == nil {
			return fmt.Errorf("start round: %w: %s", ErrPlayerNotFound, id)
		}
		if p.Bet > 0 {
			dealt = append(dealt, p)
		}
	}
	if len(dealt) == 0 {
		return ErrNoBets
	}

	if g.deck.Remaining() < g.cfg.LowWaterMark {
		g.deck = g.newDeck()
	}
	need := 2 * (len(dealt) + 1)
	if g.deck.Remaining() < need {
		return fmt.Errorf("start round: need %d cards, have %d: %w", need, g.deck.Remaining(), card.ErrDeckExhausted)
	}

	for _, p := range g.seats {
		if p.Bet > 0 {
			p.resetHand()
		} else {
			p.sitOut()
		}
	}
	g.dealer = nil
	for pass := 0; pass < 2; pass++ {
		for _, p := range dealt {
			p.Hand = append(p.Hand, g.mustDraw())
		}
		g.dealer = append(g.dealer, g.mustDraw())
	}

	g.round++
	g.roundID = uuid.NewString()
	g.phase = PhasePlaying
	g.current = -1
	g.advance()
	return nil
}

// mustDraw is only called after the supply check.
func (g *Game) mustDraw() card.Card {
	c, err := g.deck.Draw()
	if err != nil {
		panic(err)
	}
	return c
}

// PlayDealer draws the dealer to DealerStandsOn or bust, settles every
// dealt player and moves to roundover. Running out of cards aborts the round.
func (g *Game) PlayDealer() (RoundSummary, error) {
	if g.phase != PhaseDealerTurn {
		return RoundSummary{}, errInvalidPhase("dealer turn", g.phase)
	}
	for card.HandValue(g.dealer).Total < DealerStandsOn {
		c, err := g.deck.Draw()
		if err != nil {
			g.AbortRound()
			return RoundSummary{}, fmt.Errorf("dealer draw: %w", err)
		}
		g.dealer = append(g.dealer, c)
	}
	summary := g.settle()
	g.phase = PhaseRoundOver
	return summary, nil
}

func (g *Game) settle() RoundSummary {
	summary := RoundSummary{
		RoundID:   g.roundID,
		Round:     g.round,
		Dealer:    append([]card.Card(nil), g.dealer...),
		DealerVal: card.HandValue(g.dealer),
		SettledAt: time.Now().UTC(),
	}
	for _, p := range g.participants() {
		state := Outcome(p.Hand, p.HasBusted, g.dealer)
		p.Result = &RoundResult{
			State:  state,
			Bet:    p.Bet,
			Reward: g.payout(state, p.Bet),
		}
		summary.Players = append(summary.Players, SeatResult{
			Identity: p.Identity,
			Seat:     p.Seat,
			Hand:     append([]card.Card(nil), p.Hand...),
			Value:    p.Value(),
			Result:   *p.Result,
		})
	}
	return summary
}

// ResetRound clears the finished round and returns the table to waiting.
func (g *Game) ResetRound() {
	for _, p := range g.seats {
		p.resetForNewRound()
	}
	g.dealer = nil
	g.current = -1
	g.roundID = ""
	g.phase = PhaseWaiting
}

// AbortRound discards the in-flight round without results. Bets stay in place.
func (g *Game) AbortRound() {
	for _, p := range g.seats {
		p.resetHand()
	}
	g.dealer = nil
	g.current = -1
	g.roundID = ""
	g.phase = PhaseWaiting
}

// CancelBetting closes an open window without dealing.
func (g *Game) CancelBetting() {
	if g.phase == PhaseBetting {
		g.phase = PhaseWaiting
	}
}
