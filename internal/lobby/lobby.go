package lobby

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"sync"
	"time"

	"blackjack-lite/internal/ledger"
	"blackjack-lite/internal/table"

	"go.uber.org/zap"
)

// DefaultTableID is used when a client does not name a table.
const DefaultTableID = "main"

var (
	ErrLobbyFull      = errors.New("table limit reached")
	ErrInvalidTableID = errors.New("invalid table id")
)

var tableIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

type Options struct {
	Table        table.Config
	MaxTables    int
	IdleTableTTL time.Duration
	Ledger       ledger.Service
	Logger       *zap.Logger
}

// Lobby manages all tables by id
type Lobby struct {
	mu     sync.RWMutex
	tables map[string]*table.Table

	opts   Options
	base   *zap.Logger
	logger *zap.Logger
}

// New creates a new lobby
func New(opts Options) *Lobby {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Lobby{
		tables: make(map[string]*table.Table),
		opts:   opts,
		base:   logger,
		logger: logger.Named("lobby"),
	}
}

// GetOrCreate returns the table with id, creating it on first use.
func (l *Lobby) GetOrCreate(id string, sender table.Sender) (*table.Table, error) {
	if id == "" {
		id = DefaultTableID
	}
	if !tableIDPattern.MatchString(id) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTableID, id)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if t := l.tables[id]; t != nil && !t.IsClosed() {
		return t, nil
	}
	if l.opts.MaxTables > 0 && len(l.tables) >= l.opts.MaxTables {
		return nil, ErrLobbyFull
	}

	t, err := table.New(id, l.opts.Table, sender, l.opts.Ledger, l.base)
	if err != nil {
		return nil, err
	}
	if l.opts.Ledger != nil {
		t.AddRoundEndHook(table.RecordRoundHook(l.opts.Ledger, l.base.Named("ledger")))
	}
	l.tables[id] = t
	l.logger.Info("table created", zap.String("table", id), zap.Int("tables", len(l.tables)))
	return t, nil
}

// GetTable returns a table by ID
func (l *Lobby) GetTable(tableID string) *table.Table {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.tables[tableID]
}

// ListTables returns all table IDs
func (l *Lobby) ListTables() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	ids := make([]string, 0, len(l.tables))
	for id := range l.tables {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ReapIdle stops and removes tables idle for at least IdleTableTTL.
func (l *Lobby) ReapIdle() int {
	if l.opts.IdleTableTTL <= 0 {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	reaped := 0
	for id, t := range l.tables {
		if !t.IsIdleFor(l.opts.IdleTableTTL) {
			continue
		}
		t.Stop()
		delete(l.tables, id)
		reaped++
		l.logger.Info("idle table reaped", zap.String("table", id))
	}
	return reaped
}

// Run reaps idle tables until ctx is done.
func (l *Lobby) Run(ctx context.Context, every time.Duration) {
	if every <= 0 {
		every = time.Minute
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.ReapIdle()
		}
	}
}

// Close stops every table.
func (l *Lobby) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for id, t := range l.tables {
		t.Stop()
		delete(l.tables, id)
	}
}
