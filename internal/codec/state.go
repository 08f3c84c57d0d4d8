package codec

import (
	"strconv"

	"blackjack-lite/blackjack"
	"blackjack-lite/card"
)

// StateUpdate is the client-safe projection of a table.
type StateUpdate struct {
	Table              string                `json:"table"`
	Phase              blackjack.Phase       `json:"phase"`
	Round              uint32                `json:"round"`
	RoundID            string                `json:"roundId,omitempty"`
	Players            map[string]PlayerView `json:"players"`
	PlayerOrder        []string              `json:"playerOrder"`
	CurrentPlayerIndex int                   `json:"currentPlayerIndex"`
	Dealer             DealerView            `json:"dealer"`
	CardsRemaining     int                   `json:"cardsRemaining"`
}

type PlayerView struct {
	UserID      string                 `json:"userId"`
	Seat        int                    `json:"seat"`
	Online      bool                   `json:"online"`
	Bet         float64                `json:"bet"`
	Hand        []string               `json:"hand"`
	Value       int                    `json:"value"`
	IsSoft      bool                   `json:"isSoft"`
	Done        bool                   `json:"done"`
	HasBusted   bool                   `json:"hasBusted"`
	IsStanding  bool                   `json:"isStanding"`
	SittingOut  bool                   `json:"sittingOut"`
	RoundResult *blackjack.RoundResult `json:"roundResult,omitempty"`
}

type DealerView struct {
	Hand       []string `json:"hand"`
	Value      int      `json:"value"`
	IsSoft     bool     `json:"isSoft"`
	HoleHidden bool     `json:"holeHidden"`
}

// holeIndex is the dealer card kept face down while players act.
const holeIndex = 1

// BuildStateUpdate projects a full snapshot for clients. The dealer hole card
// is masked while phase is playing and the dealer value only counts visible cards.
func BuildStateUpdate(tableID string, snap blackjack.Snapshot) StateUpdate {
	out := StateUpdate{
		Table:              tableID,
		Phase:              snap.Phase,
		Round:              snap.Round,
		RoundID:            snap.RoundID,
		Players:            make(map[string]PlayerView, len(snap.Players)),
		PlayerOrder:        append([]string{}, snap.PlayerOrder...),
		CurrentPlayerIndex: snap.CurrentPlayerIndex,
		Dealer:             dealerView(snap.Phase, snap.DealerHand),
		CardsRemaining:     snap.CardsRemaining,
	}
	for _, p := range snap.Players {
		out.Players[strconv.Itoa(p.Seat)] = PlayerView{
			UserID:      p.Identity,
			Seat:        p.Seat,
			Online:      p.Online,
			Bet:         p.Bet,
			Hand:        tokens(p.Hand),
			Value:       p.Value.Total,
			IsSoft:      p.Value.Soft,
			Done:        p.Done,
			HasBusted:   p.HasBusted,
			IsStanding:  p.IsStanding,
			SittingOut:  p.SittingOut,
			RoundResult: p.Result,
		}
	}
	return out
}

func dealerView(phase blackjack.Phase, hand []card.Card) DealerView {
	if phase != blackjack.PhasePlaying || len(hand) <= holeIndex {
		v := card.HandValue(hand)
		return DealerView{Hand: tokens(hand), Value: v.Total, IsSoft: v.Soft}
	}
	visible := make([]card.Card, 0, len(hand)-1)
	view := DealerView{Hand: make([]string, 0, len(hand)), HoleHidden: true}
	for i, c := range hand {
		if i == holeIndex {
			view.Hand = append(view.Hand, card.MaskedToken)
			continue
		}
		visible = append(visible, c)
		view.Hand = append(view.Hand, c.String())
	}
	v := card.HandValue(visible)
	view.Value, view.IsSoft = v.Total, v.Soft
	return view
}

func tokens(cards []card.Card) []string {
	out := card.Tokens(cards)
	if out == nil {
		return []string{}
	}
	return out
}
