package codec

import (
	"errors"

	"blackjack-lite/blackjack"
	"blackjack-lite/card"
)

// Error codes sent in error acknowledgements.
const (
	CodeMalformed    = "malformed"
	CodeUnknownRoom  = "unknown_room"
	CodeUnknownType  = "unknown_type"
	CodeUnauthorized = "unauthorized"
	CodeSeatTaken    = "seat_taken"
	CodeTableFull    = "table_full"
	CodeAlreadySeat  = "already_seated"
	CodeInvalidSeat  = "invalid_seat"
	CodeNotSeated    = "not_seated"
	CodeInvalidBet   = "invalid_bet"
	CodeBetClosed    = "betting_closed"
	CodeOutOfTurn    = "out_of_turn"
	CodeNoPlayers    = "no_players"
	CodeNoBets       = "no_bets"
	CodeInvalidPhase = "invalid_phase"
	CodeDeck         = "deck_exhausted"
	CodeInternal     = "internal"
)

var codeBySentinel = []struct {
	err  error
	code string
}{
	{ErrMalformed, CodeMalformed},
	{ErrUnknownRoom, CodeUnknownRoom},
	{ErrUnknownType, CodeUnknownType},
	{blackjack.ErrGuestNotAllowed, CodeUnauthorized},
	{blackjack.ErrSeatTaken, CodeSeatTaken},
	{blackjack.ErrTableFull, CodeTableFull},
	{blackjack.ErrAlreadySeated, CodeAlreadySeat},
	{blackjack.ErrInvalidSeat, CodeInvalidSeat},
	{blackjack.ErrNotSeated, CodeNotSeated},
	{blackjack.ErrInvalidBet, CodeInvalidBet},
	{blackjack.ErrBettingClosed, CodeBetClosed},
	{blackjack.ErrOutOfTurn, CodeOutOfTurn},
	{blackjack.ErrNoPlayers, CodeNoPlayers},
	{blackjack.ErrNoBets, CodeNoBets},
	{card.ErrDeckExhausted, CodeDeck},
}

// ErrorCode maps an error to its wire code.
func ErrorCode(err error) string {
	for _, m := range codeBySentinel {
		if errors.Is(err, m.err) {
			return m.code
		}
	}
	var phaseErr blackjack.InvalidPhaseError
	if errors.As(err, &phaseErr) {
		return CodeInvalidPhase
	}
	return CodeInternal
}

// EncodeError builds an error acknowledgement frame.
func EncodeError(code string, err error) []byte {
	msg := code
	if err != nil {
		msg = err.Error()
	}
	data, _ := Encode(TypeError, ErrorMessage{Code: code, Message: msg})
	return data
}
