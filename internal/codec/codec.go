package codec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Room is the channel name carried by every game message.
const Room = "blackjack"

// Inbound message types.
const (
	TypePlayerJoin = "playerJoin"
	TypePlaceBet   = "placeBet"
	TypeStartRound = "startRound"
	TypeHit        = "hit"
	TypeStand      = "stand"
	TypeLeave      = "leave"
)

// Outbound message types.
const (
	TypeStateUpdate      = "stateUpdate"
	TypeBetTimerStart    = "betTimerStart"
	TypeBetTimerEnd      = "betTimerEnd"
	TypePlayerTimerStart = "playerTimerStart"
	TypePlayerTimerEnd   = "playerTimerEnd"
	TypeError            = "error"
	TypeWelcome          = "welcome"
)

var (
	ErrMalformed   = errors.New("malformed message")
	ErrUnknownRoom = errors.New("unknown room")
	ErrUnknownType = errors.New("unknown message type")
)

// Envelope is the wire frame in both directions.
type Envelope struct {
	Room string          `json:"room"`
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Action is a validated inbound game action.
type Action interface {
	Type() string
}

type PlayerJoin struct {
	Seat int
}

type PlaceBet struct {
	Bet float64
}

type StartRound struct{}

type Hit struct{}

type Stand struct{}

type Leave struct{}

func (PlayerJoin) Type() string { return TypePlayerJoin }
func (PlaceBet) Type() string   { return TypePlaceBet }
func (StartRound) Type() string { return TypeStartRound }
func (Hit) Type() string        { return TypeHit }
func (Stand) Type() string      { return TypeStand }
func (Leave) Type() string      { return TypeLeave }

type playerJoinData struct {
	Seat *int `json:"seat"`
}

type placeBetData struct {
	Bet *float64 `json:"bet"`
}

type emptyData struct{}

// DecodeAction parses and validates one inbound frame.
func DecodeAction(raw []byte) (Action, error) {
	var env Envelope
	if err := decodeStrict(raw, &env); err != nil {
		return nil, err
	}
	if env.Room != Room {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRoom, env.Room)
	}

	switch env.Type {
	case TypePlayerJoin:
		var d playerJoinData
		if err := decodeData(env.Data, &d); err != nil {
			return nil, err
		}
		if d.Seat == nil {
			return nil, fmt.Errorf("%w: playerJoin requires seat", ErrMalformed)
		}
		return PlayerJoin{Seat: *d.Seat}, nil
	case TypePlaceBet:
		var d placeBetData
		if err := decodeData(env.Data, &d); err != nil {
			return nil, err
		}
		if d.Bet == nil || *d.Bet <= 0 {
			return nil, fmt.Errorf("%w: placeBet requires bet > 0", ErrMalformed)
		}
		return PlaceBet{Bet: *d.Bet}, nil
	case TypeStartRound, TypeHit, TypeStand, TypeLeave:
		if err := decodeData(env.Data, &emptyData{}); err != nil {
			return nil, err
		}
		switch env.Type {
		case TypeStartRound:
			return StartRound{}, nil
		case TypeHit:
			return Hit{}, nil
		case TypeStand:
			return Stand{}, nil
		default:
			return Leave{}, nil
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, env.Type)
	}
}

func decodeData(raw json.RawMessage, dst any) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	return decodeStrict(trimmed, dst)
}

func decodeStrict(raw []byte, dst any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: trailing data", ErrMalformed)
	}
	return nil
}

// Encode wraps data into a room envelope.
func Encode(msgType string, data any) ([]byte, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Room: Room, Type: msgType, Data: payload})
}

type BetTimerStart struct {
	StartedAt  int64 `json:"startedAt"`
	DurationMs int64 `json:"durationMs"`
}

type BetTimerEnd struct {
	EndedAt int64 `json:"endedAt"`
}

type PlayerTimerStart struct {
	UserID     string `json:"userId"`
	StartedAt  int64  `json:"startedAt"`
	DurationMs int64  `json:"durationMs"`
}

type PlayerTimerEnd struct {
	UserID  string `json:"userId"`
	EndedAt int64  `json:"endedAt"`
}

type ErrorMessage struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type Welcome struct {
	ConnectionID string `json:"connectionId"`
	Identity     string `json:"identity"`
	IsPlayer     bool   `json:"isPlayer"`
	Table        string `json:"table"`
}

func EpochMs(t time.Time) int64 {
	return t.UnixMilli()
}
