package blackjack

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

// Join seats identity at seat. A player joining a live round sits out until the next one.
func (g *Game) Join(identity string, seat int, connID string) (Player, error) {
	identity = strings.TrimSpace(identity)
	if identity == "" || identity == Guest {
		return Player{}, ErrGuestNotAllowed
	}
	if !ValidSeat(seat) {
		return Player{}, fmt.Errorf("%w: %d", ErrInvalidSeat, seat)
	}
	if _, ok := g.identities[identity]; ok {
		return Player{}, ErrAlreadySeated
	}
	if len(g.seats) >= MaxPlayers {
		return Player{}, ErrTableFull
	}
	if g.seats[seat] != nil {
		return Player{}, fmt.Errorf("%w: %d", ErrSeatTaken, seat)
	}

	p := &Player{
		Identity: identity,
		Seat:     seat,
		ConnID:   connID,
		Online:   connID != "",
		LastSeen: time.Now(),
	}
	if g.phase != PhaseWaiting && g.phase != PhaseBetting {
		p.sitOut()
	}
	g.seats[seat] = p
	g.identities[identity] = seat
	g.recomputeOrder()
	return p.clone(), nil
}

// Leave vacates the identity's seat. During play the leaver counts as done:
// if it was their turn the turn moves to the next undone player.
func (g *Game) Leave(identity string) error {
	seat, ok := g.identities[identity]
	if !ok {
		return ErrNotSeated
	}
	wasCurrent := g.phase == PhasePlaying && g.currentIdentity() == identity

	delete(g.seats, seat)
	delete(g.identities, identity)
	g.recomputeOrder()

	if !wasCurrent {
		return nil
	}
	// Resume the scan from the last seat before the leaver.
	g.current = -1
	for i, id := range g.playerOrder {
		if g.identities[id] < seat {
			g.current = i
		}
	}
	g.advance()
	return nil
}

// Rebind points the identity's seat at a new connection and returns the
// previous connection id so the caller can close it. Unseated identities are a no-op.
func (g *Game) Rebind(identity, connID string) string {
	p := g.playerByIdentity(identity)
	if p == nil {
		return ""
	}
	prev := p.ConnID
	p.ConnID = connID
	p.Online = connID != ""
	p.LastSeen = time.Now()
	if prev == connID {
		return ""
	}
	return prev
}

// SetOffline marks the seat offline if it is still bound to connID.
func (g *Game) SetOffline(identity, connID string, at time.Time) bool {
	p := g.playerByIdentity(identity)
	if p == nil || p.ConnID != connID {
		return false
	}
	p.Online = false
	p.ConnID = ""
	p.LastSeen = at
	return true
}

// PlaceBet records a bet. The phase is left to the round lifecycle.
func (g *Game) PlaceBet(identity string, amount float64) error {
	if !g.phase.AcceptsBets() {
		return ErrBettingClosed
	}
	p := g.playerByIdentity(identity)
	if p == nil {
		return ErrNotSeated
	}
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount <= 0 {
		return fmt.Errorf("%w: %v", ErrInvalidBet, amount)
	}
	p.Bet = amount
	return nil
}

// OfflineSince lists seated identities offline since before cutoff.
func (g *Game) OfflineSince(cutoff time.Time) []string {
	var out []string
	for _, id := range g.playerOrder {
		p := g.playerByIdentity(id)
		if p != nil && !p.Online && p.LastSeen.Before(cutoff) {
			out = append(out, id)
		}
	}
	return out
}

func (g *Game) recomputeOrder() {
	cur := ""
	if g.phase == PhasePlaying {
		cur = g.currentIdentity()
	}

	seats := make([]int, 0, len(g.seats))
	for seat := range g.seats {
		seats = append(seats, seat)
	}
	sort.Ints(seats)
	order := make([]string, 0, len(seats))
	for _, seat := range seats {
		order = append(order, g.seats[seat].Identity)
	}
	g.playerOrder = order

	if g.phase != PhasePlaying {
		return
	}
	g.current = -1
	for i, id := range order {
		if id == cur {
			g.current = i
			break
		}
	}
}
