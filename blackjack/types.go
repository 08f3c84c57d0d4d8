package blackjack

const (
	MinSeat    = 1
	MaxSeat    = 5
	MaxPlayers = MaxSeat - MinSeat + 1

	// DealerStandsOn is the total at which the dealer stops drawing, soft or hard.
	DealerStandsOn = 17
	BlackjackTotal = 21
)

// Guest is the identity of an unauthenticated observer. Guests cannot hold a seat.
const Guest = "guest"

// Phase is the stage of the current round.
type Phase string

const (
	// PhaseWaiting: between rounds, bets may be placed.
	PhaseWaiting Phase = "waiting"
	// PhaseBetting: the betting window is open.
	PhaseBetting Phase = "betting"
	// PhasePlaying: cards are dealt and players act in seat order.
	PhasePlaying Phase = "playing"
	// PhaseDealerTurn: every player is done; the dealer draws next.
	PhaseDealerTurn Phase = "dealerTurn"
	// PhaseRoundOver: results are settled and shown until the table resets.
	PhaseRoundOver Phase = "roundover"
)

func (p Phase) AcceptsBets() bool {
	return p == PhaseWaiting || p == PhaseBetting
}

// InRound reports whether hands are live.
func (p Phase) InRound() bool {
	return p == PhasePlaying || p == PhaseDealerTurn
}

type ResultState string

const (
	ResultWin       ResultState = "win"
	ResultLoss      ResultState = "loss"
	ResultPush      ResultState = "push"
	ResultBlackjack ResultState = "blackjack"
)

// RoundResult is the settled outcome for one player.
type RoundResult struct {
	State  ResultState `json:"state"`
	Bet    float64     `json:"bet"`
	Reward float64     `json:"reward"`
}

func ValidSeat(seat int) bool {
	return seat >= MinSeat && seat <= MaxSeat
}
