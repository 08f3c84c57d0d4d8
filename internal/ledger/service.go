package ledger

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	defaultRecentLimit = 200
	maxListLimit       = 100
	writeTimeout       = 3 * time.Second
)

const (
	ModeNoop     = "noop"
	ModeSQLite   = "sqlite"
	ModePostgres = "postgres"
	ModeRedis    = "redis"
)

var ErrNotFound = errors.New("not found")

// Service stores settled rounds and the broadcast tape of each round.
type Service interface {
	Close() error
	RecordRound(ctx context.Context, round RoundRecord) error
	AppendEvent(roundID string, seq uint64, eventType string, payload []byte)
	ListRecent(ctx context.Context, identity string, limit int) ([]HistoryItem, error)
	GetRoundEvents(ctx context.Context, roundID string) ([]EventItem, error)
}

// RoundRecord is the round-result event emitted by a table after settlement.
type RoundRecord struct {
	RoundID     string    `json:"round_id"`
	TableID     string    `json:"table_id"`
	Round       uint32    `json:"round"`
	PlayedAt    time.Time `json:"played_at"`
	Dealer      []string  `json:"dealer"`
	DealerValue int       `json:"dealer_value"`
	Entries     []Entry   `json:"entries"`
}

type Entry struct {
	Identity string   `json:"identity"`
	Seat     int      `json:"seat"`
	Hand     []string `json:"hand"`
	Value    int      `json:"value"`
	State    string   `json:"state"`
	Bet      float64  `json:"bet"`
	Reward   float64  `json:"reward"`
}

type HistoryItem struct {
	RoundID  string         `json:"round_id"`
	TableID  string         `json:"table_id"`
	PlayedAt time.Time      `json:"played_at"`
	Summary  map[string]any `json:"summary"`
}

type EventItem struct {
	Seq         uint64 `json:"seq"`
	EventType   string `json:"event_type"`
	EnvelopeB64 string `json:"envelope_b64"`
	ServerTsMs  *int64 `json:"server_ts_ms,omitempty"`
}

type Options struct {
	Mode        string
	SQLitePath  string
	PostgresDSN string
	RedisURL    string
	RedisPrefix string
	RecentLimit int
	Logger      *zap.Logger
}

// NewService opens the sink selected by opts.Mode and reports the resolved mode.
func NewService(ctx context.Context, opts Options) (Service, string, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("ledger")
	if opts.RecentLimit <= 0 {
		opts.RecentLimit = defaultRecentLimit
	}

	mode := strings.ToLower(strings.TrimSpace(opts.Mode))
	switch mode {
	case "", ModeNoop, "memory":
		return &noopService{}, ModeNoop, nil
	case ModeSQLite, "local":
		s, err := NewSQLiteService(ctx, opts.SQLitePath, opts.RecentLimit, logger)
		if err != nil {
			return nil, ModeSQLite, err
		}
		return s, ModeSQLite, nil
	case ModePostgres, "postgresql":
		s, err := NewPostgresService(ctx, opts.PostgresDSN, opts.RecentLimit, logger)
		if err != nil {
			return nil, ModePostgres, err
		}
		return s, ModePostgres, nil
	case ModeRedis:
		s, err := NewRedisService(ctx, opts.RedisURL, opts.RedisPrefix, opts.RecentLimit, logger)
		if err != nil {
			return nil, ModeRedis, err
		}
		return s, ModeRedis, nil
	default:
		return nil, mode, fmt.Errorf("invalid ledger mode %q (supported: %s, %s, %s, %s)",
			mode, ModeNoop, ModeSQLite, ModePostgres, ModeRedis)
	}
}

type noopService struct{}

func (n *noopService) Close() error { return nil }

func (n *noopService) RecordRound(_ context.Context, _ RoundRecord) error { return nil }

func (n *noopService) AppendEvent(_ string, _ uint64, _ string, _ []byte) {}

func (n *noopService) ListRecent(_ context.Context, _ string, _ int) ([]HistoryItem, error) {
	return []HistoryItem{}, nil
}

func (n *noopService) GetRoundEvents(_ context.Context, _ string) ([]EventItem, error) {
	return nil, ErrNotFound
}

// EncodeEnvelope stores a JSON wire frame as a base64 protobuf Struct.
func EncodeEnvelope(payload []byte) (string, error) {
	var fields map[string]any
	if err := json.Unmarshal(payload, &fields); err != nil {
		return "", fmt.Errorf("decode envelope json: %w", err)
	}
	st, err := structpb.NewStruct(fields)
	if err != nil {
		return "", fmt.Errorf("build envelope struct: %w", err)
	}
	raw, err := proto.Marshal(st)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// DecodeEnvelope reverses EncodeEnvelope.
func DecodeEnvelope(b64 string) (map[string]any, error) {
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, err
	}
	var st structpb.Struct
	if err := proto.Unmarshal(raw, &st); err != nil {
		return nil, err
	}
	return st.AsMap(), nil
}

// entrySummary is the per-identity history row of a round.
func entrySummary(round RoundRecord, e Entry) map[string]any {
	return map[string]any{
		"table_id":     round.TableID,
		"round":        round.Round,
		"seat":         e.Seat,
		"hand":         e.Hand,
		"value":        e.Value,
		"state":        e.State,
		"bet":          e.Bet,
		"reward":       e.Reward,
		"dealer":       round.Dealer,
		"dealer_value": round.DealerValue,
	}
}

func normalizeLimit(limit int) int {
	if limit <= 0 || limit > maxListLimit {
		return 20
	}
	return limit
}

func nullableInt64(v int64) any {
	if v <= 0 {
		return nil
	}
	return v
}
