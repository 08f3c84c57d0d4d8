package table

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"blackjack-lite/blackjack"
	"blackjack-lite/internal/codec"
	"blackjack-lite/internal/ledger"

	"go.uber.org/zap"
)

// Table runs one blackjack room as an actor. Every inbound event and
// timer tick is applied to the game under mu, one at a time.
type Table struct {
	ID     string
	Config Config

	mu       sync.RWMutex
	game     *blackjack.Game
	conns    map[string]*session // connID -> session
	timers   timers
	closed   bool
	stopOnce sync.Once

	events chan Event
	done   chan struct{}

	// Sequence of broadcast frames, used as the tape order.
	serverSeq  uint64
	emptySince time.Time

	sender Sender
	ledger ledger.Service
	tape   chan tapeEntry
	logger *zap.Logger
	now    func() time.Time

	roundEndHooks []RoundEndHook
}

// Sender delivers frames to live connections. Close evicts a connection
// whose seat was rebound elsewhere.
type Sender interface {
	Send(connID string, data []byte)
	Close(connID string)
}

// Config contains room timing. A zero BetWindow deals on the first
// startRound, a zero TurnTimeout disables auto-stand and a zero
// OfflineSeatTTL keeps offline seats forever.
type Config struct {
	Game            blackjack.Config
	BetWindow       time.Duration
	TurnTimeout     time.Duration
	RoundEndDelay   time.Duration
	OfflineSeatTTL  time.Duration
	TickInterval    time.Duration
	AutoOpenBetting bool
}

func DefaultConfig() Config {
	return Config{
		Game:            blackjack.DefaultConfig(),
		BetWindow:       15 * time.Second,
		TurnTimeout:     30 * time.Second,
		RoundEndDelay:   5 * time.Second,
		OfflineSeatTTL:  2 * time.Minute,
		TickInterval:    250 * time.Millisecond,
		AutoOpenBetting: true,
	}
}

type session struct {
	identity string
	guest    bool
}

type EventType int

const (
	EventAttach EventType = iota
	EventDetach
	EventAction
	EventClose
)

// Event represents a message to the table actor
type Event struct {
	Type      EventType
	ConnID    string
	Identity  string
	Guest     bool
	Action    codec.Action
	Timestamp time.Time
	Response  chan error
}

// RoundEndInfo is emitted after a round settles.
type RoundEndInfo struct {
	TableID string
	EndedAt time.Time
	Summary blackjack.RoundSummary
}

type RoundEndHook func(info RoundEndInfo)

var (
	ErrTableClosed = errors.New("table closed")
	ErrNotAttached = errors.New("connection not attached")
)

// New creates a table and starts its actor goroutine.
func New(id string, cfg Config, sender Sender, ledgerService ledger.Service, logger *zap.Logger) (*Table, error) {
	t, err := newTable(id, cfg, sender, ledgerService, logger, time.Now)
	if err != nil {
		return nil, err
	}
	if t.ledger != nil {
		go t.writeTape()
	}
	go t.run()
	t.logger.Info("table created",
		zap.Duration("bet_window", cfg.BetWindow),
		zap.Duration("turn_timeout", cfg.TurnTimeout))
	return t, nil
}

func newTable(id string, cfg Config, sender Sender, ledgerService ledger.Service, logger *zap.Logger, clock func() time.Time) (*Table, error) {
	if sender == nil {
		return nil, fmt.Errorf("table %s: sender is required", id)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = 250 * time.Millisecond
	}
	game, err := blackjack.NewGame(cfg.Game)
	if err != nil {
		return nil, fmt.Errorf("table %s: %w", id, err)
	}
	return &Table{
		ID:         id,
		Config:     cfg,
		game:       game,
		conns:      make(map[string]*session),
		timers:     make(timers),
		events:     make(chan Event, 256),
		done:       make(chan struct{}),
		sender:     sender,
		ledger:     ledgerService,
		tape:       make(chan tapeEntry, 256),
		logger:     logger.Named("table").With(zap.String("table", id)),
		now:        clock,
		emptySince: clock(),
	}, nil
}

// run is the main actor loop
func (t *Table) run() {
	ticker := time.NewTicker(t.Config.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case event := <-t.events:
			err := t.handleEvent(event)
			if event.Response != nil {
				event.Response <- err
			}
		case <-ticker.C:
			t.tick()
		case <-t.done:
			t.logger.Info("actor stopped")
			return
		}
	}
}

func (t *Table) handleEvent(e Event) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed && e.Type != EventClose {
		return ErrTableClosed
	}
	now := e.Timestamp
	if now.IsZero() {
		now = t.now()
	}

	switch e.Type {
	case EventAttach:
		return t.handleAttach(e.ConnID, e.Identity, e.Guest)
	case EventDetach:
		return t.handleDetach(e.ConnID, now)
	case EventAction:
		return t.handleAction(e.ConnID, e.Action, now)
	case EventClose:
		t.stopLocked()
		return nil
	default:
		return fmt.Errorf("unknown event type: %d", e.Type)
	}
}

func (t *Table) handleAttach(connID, identity string, guest bool) error {
	if connID == "" {
		return fmt.Errorf("attach: empty connection id")
	}
	if guest || identity == "" || identity == blackjack.Guest {
		identity, guest = blackjack.Guest, true
	}
	t.conns[connID] = &session{identity: identity, guest: guest}
	t.emptySince = time.Time{}

	isPlayer := false
	if !guest {
		if prev := t.game.Rebind(identity, connID); prev != "" {
			delete(t.conns, prev)
			t.sender.Close(prev)
			t.logger.Info("seat rebound",
				zap.String("identity", identity),
				zap.String("old_conn", prev),
				zap.String("conn", connID))
		}
		_, isPlayer = t.game.Player(identity)
	}

	t.sendTo(connID, codec.TypeWelcome, codec.Welcome{
		ConnectionID: connID,
		Identity:     identity,
		IsPlayer:     isPlayer,
		Table:        t.ID,
	})
	if isPlayer {
		// Online flag changed for everyone.
		t.broadcastState()
	} else {
		t.sendTo(connID, codec.TypeStateUpdate, codec.BuildStateUpdate(t.ID, t.game.Snapshot()))
	}
	t.sendPendingTimers(connID)
	t.logger.Debug("connection attached",
		zap.String("conn", connID),
		zap.String("identity", identity),
		zap.Bool("player", isPlayer))
	return nil
}

func (t *Table) handleDetach(connID string, now time.Time) error {
	s, ok := t.conns[connID]
	if !ok {
		return nil
	}
	delete(t.conns, connID)
	if !s.guest && t.game.SetOffline(s.identity, connID, now) {
		t.logger.Info("player connection lost", zap.String("identity", s.identity))
		t.broadcastState()
	}
	t.updateEmptySinceLocked(now)
	return nil
}

func (t *Table) handleAction(connID string, action codec.Action, now time.Time) error {
	s, ok := t.conns[connID]
	if !ok {
		return ErrNotAttached
	}
	if s.guest {
		return blackjack.ErrGuestNotAllowed
	}

	switch a := action.(type) {
	case codec.PlayerJoin:
		if _, err := t.game.Join(s.identity, a.Seat, connID); err != nil {
			return err
		}
		t.logger.Info("player joined", zap.String("identity", s.identity), zap.Int("seat", a.Seat))
		t.updateEmptySinceLocked(now)
		t.broadcastState()
		return nil
	case codec.PlaceBet:
		if err := t.game.PlaceBet(s.identity, a.Bet); err != nil {
			return err
		}
		t.broadcastState()
		return nil
	case codec.StartRound:
		return t.startRoundLocked(now)
	case codec.Hit:
		return t.hitLocked(s.identity, now)
	case codec.Stand:
		if err := t.game.Stand(s.identity); err != nil {
			return err
		}
		t.afterTurnLocked(now, false)
		return nil
	case codec.Leave:
		if err := t.game.Leave(s.identity); err != nil {
			return err
		}
		t.logger.Info("player left", zap.String("identity", s.identity))
		t.afterLeaveLocked(now)
		return nil
	default:
		return fmt.Errorf("%w: %T", codec.ErrUnknownType, action)
	}
}

// SubmitEvent sends an event to the actor
func (t *Table) SubmitEvent(e Event) error {
	e.Timestamp = t.now()
	if e.Response == nil {
		e.Response = make(chan error, 1)
	}

	t.mu.RLock()
	closed := t.closed
	t.mu.RUnlock()
	if closed {
		return ErrTableClosed
	}

	select {
	case t.events <- e:
	case <-t.done:
		return ErrTableClosed
	}

	select {
	case err := <-e.Response:
		return err
	case <-t.done:
		return ErrTableClosed
	}
}

func (t *Table) Attach(connID, identity string, guest bool) error {
	return t.SubmitEvent(Event{Type: EventAttach, ConnID: connID, Identity: identity, Guest: guest})
}

func (t *Table) Detach(connID string) error {
	return t.SubmitEvent(Event{Type: EventDetach, ConnID: connID})
}

func (t *Table) Act(connID string, action codec.Action) error {
	return t.SubmitEvent(Event{Type: EventAction, ConnID: connID, Action: action})
}

// Stop shuts down the table actor
func (t *Table) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopLocked()
}

func (t *Table) stopLocked() {
	t.closed = true
	t.timers.clear()
	t.stopOnce.Do(func() {
		close(t.done)
	})
}

func (t *Table) updateEmptySinceLocked(now time.Time) {
	if len(t.conns) == 0 && t.game.SeatedCount() == 0 {
		if t.emptySince.IsZero() {
			t.emptySince = now
		}
		return
	}
	t.emptySince = time.Time{}
}

func (t *Table) IsIdleFor(ttl time.Duration) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.closed {
		return true
	}
	if len(t.conns) > 0 || t.game.SeatedCount() > 0 {
		return false
	}
	if t.emptySince.IsZero() {
		return false
	}
	return t.now().Sub(t.emptySince) >= ttl
}

func (t *Table) IsClosed() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.closed
}

// Snapshot returns the full server-side state, hole card included.
func (t *Table) Snapshot() blackjack.Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.game.Snapshot()
}

// Connections maps each attached connection id to its identity.
func (t *Table) Connections() map[string]string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[string]string, len(t.conns))
	for connID, s := range t.conns {
		out[connID] = s.identity
	}
	return out
}

// AddRoundEndHook registers a post-settlement callback.
func (t *Table) AddRoundEndHook(hook RoundEndHook) {
	if hook == nil {
		return
	}
	t.mu.Lock()
	t.roundEndHooks = append(t.roundEndHooks, hook)
	t.mu.Unlock()
}
