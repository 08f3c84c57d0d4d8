package blackjack

import "blackjack-lite/card"

// PayoutFunc returns the reward paid on top of the returned stake.
type PayoutFunc func(state ResultState, bet float64) float64

// DefaultPayout pays 1:1 on a win and 3:2 on a blackjack.
func DefaultPayout(state ResultState, bet float64) float64 {
	switch state {
	case ResultWin:
		return bet
	case ResultBlackjack:
		return bet * 1.5
	default:
		return 0
	}
}

// Outcome compares a finished player hand against the dealer's final hand.
func Outcome(hand []card.Card, busted bool, dealer []card.Card) ResultState {
	if busted {
		return ResultLoss
	}
	pv := card.HandValue(hand)
	if pv.Bust() {
		return ResultLoss
	}
	if card.IsNatural(hand) && !card.IsNatural(dealer) {
		return ResultBlackjack
	}
	dv := card.HandValue(dealer)
	switch {
	case dv.Bust() || pv.Total > dv.Total:
		return ResultWin
	case pv.Total == dv.Total:
		return ResultPush
	default:
		return ResultLoss
	}
}
