package blackjack

import "errors"

var (
	ErrSeatTaken       = errors.New("seat taken")
	ErrTableFull       = errors.New("table full")
	ErrAlreadySeated   = errors.New("already seated")
	ErrInvalidSeat     = errors.New("invalid seat")
	ErrNotSeated       = errors.New("not seated")
	ErrGuestNotAllowed = errors.New("guests cannot take a seat")
	ErrPlayerNotFound  = errors.New("player not found")
	ErrInvalidBet      = errors.New("invalid bet")
	ErrBettingClosed   = errors.New("betting closed")
	ErrOutOfTurn       = errors.New("action out of turn")
	ErrNoPlayers       = errors.New("no seated players")
	ErrNoBets          = errors.New("no bets placed")
)

// InvalidPhaseError is returned when an operation is not allowed in the current phase.
type InvalidPhaseError struct {
	Op    string
	Phase Phase
}

func (e InvalidPhaseError) Error() string {
	return "invalid phase for " + e.Op + ": " + string(e.Phase)
}

func errInvalidPhase(op string, phase Phase) error {
	return InvalidPhaseError{Op: op, Phase: phase}
}
