package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

const defaultLocalDBName = "blackjack_local.db"

type SQLiteService struct {
	db          *sql.DB
	recentLimit int
	logger      *zap.Logger
}

func NewSQLiteService(ctx context.Context, dbPath string, recentLimit int, logger *zap.Logger) (*SQLiteService, error) {
	dbPath = strings.TrimSpace(dbPath)
	if dbPath == "" {
		resolved, err := defaultSQLitePath()
		if err != nil {
			return nil, err
		}
		dbPath = resolved
	}
	if dbPath != ":memory:" {
		parent := filepath.Dir(dbPath)
		if parent != "" && parent != "." {
			if err := os.MkdirAll(parent, 0o755); err != nil {
				return nil, err
			}
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	for _, pragma := range []string{
		`PRAGMA busy_timeout = 5000;`,
		`PRAGMA journal_mode = WAL;`,
		`PRAGMA foreign_keys = ON;`,
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	if err := ensureSQLiteSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SQLiteService{db: db, recentLimit: recentLimit, logger: logger}, nil
}

func (s *SQLiteService) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteService) AppendEvent(roundID string, seq uint64, eventType string, payload []byte) {
	if strings.TrimSpace(roundID) == "" || len(payload) == 0 {
		return
	}
	envelope, err := EncodeEnvelope(payload)
	if err != nil {
		s.logger.Warn("encode round event failed", zap.String("round", roundID), zap.Error(err))
		return
	}
	nowMs := time.Now().UTC().UnixMilli()

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	_, err = s.db.ExecContext(ctx, `
INSERT INTO round_event_stream (round_id, seq, event_type, envelope_b64, server_ts_ms, created_at_ms)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (round_id, seq) DO NOTHING
`, roundID, int64(seq), eventType, envelope, nullableInt64(nowMs), nowMs)
	if err != nil {
		s.logger.Warn("append round event failed", zap.String("round", roundID), zap.Uint64("seq", seq), zap.Error(err))
	}
}

func (s *SQLiteService) RecordRound(ctx context.Context, round RoundRecord) error {
	if strings.TrimSpace(round.RoundID) == "" {
		return fmt.Errorf("round id is required")
	}
	playedAt := round.PlayedAt
	if playedAt.IsZero() {
		playedAt = time.Now().UTC()
	}
	nowMs := time.Now().UTC().UnixMilli()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, e := range round.Entries {
		summaryRaw, err := json.Marshal(entrySummary(round, e))
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
INSERT INTO round_history (identity, round_id, table_id, played_at_ms, summary_json, created_at_ms)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (identity, round_id) DO UPDATE
SET played_at_ms = excluded.played_at_ms,
    summary_json = excluded.summary_json
`, e.Identity, round.RoundID, round.TableID, playedAt.UnixMilli(), string(summaryRaw), nowMs); err != nil {
			return err
		}
		if s.recentLimit > 0 {
			if _, err := tx.ExecContext(ctx, `
DELETE FROM round_history
WHERE identity = ?
  AND id IN (
      SELECT id FROM round_history
      WHERE identity = ?
      ORDER BY played_at_ms DESC, id DESC
      LIMIT -1 OFFSET ?
  )
`, e.Identity, e.Identity, s.recentLimit); err != nil {
				return err
			}
		}
	}
	return tx.Commit()
}

func (s *SQLiteService) ListRecent(ctx context.Context, identity string, limit int) ([]HistoryItem, error) {
	if strings.TrimSpace(identity) == "" {
		return []HistoryItem{}, nil
	}
	limit = normalizeLimit(limit)

	rows, err := s.db.QueryContext(ctx, `
SELECT round_id, table_id, played_at_ms, summary_json
FROM round_history
WHERE identity = ?
ORDER BY played_at_ms DESC, id DESC
LIMIT ?
`, identity, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]HistoryItem, 0, limit)
	for rows.Next() {
		var item HistoryItem
		var playedAtMs int64
		var summaryRaw string
		if err := rows.Scan(&item.RoundID, &item.TableID, &playedAtMs, &summaryRaw); err != nil {
			return nil, err
		}
		item.PlayedAt = time.UnixMilli(playedAtMs).UTC()
		if summaryRaw != "" {
			if err := json.Unmarshal([]byte(summaryRaw), &item.Summary); err != nil {
				s.logger.Warn("skip corrupt history item",
					zap.String("identity", identity),
					zap.String("round_id", item.RoundID),
					zap.Error(err))
				continue
			}
		}
		if item.Summary == nil {
			item.Summary = map[string]any{}
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (s *SQLiteService) GetRoundEvents(ctx context.Context, roundID string) ([]EventItem, error) {
	if strings.TrimSpace(roundID) == "" {
		return nil, ErrNotFound
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT seq, event_type, envelope_b64, server_ts_ms
FROM round_event_stream
WHERE round_id = ?
ORDER BY seq ASC
`, roundID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]EventItem, 0, 32)
	for rows.Next() {
		var e EventItem
		var seq int64
		var serverTs sql.NullInt64
		if err := rows.Scan(&seq, &e.EventType, &e.EnvelopeB64, &serverTs); err != nil {
			return nil, err
		}
		e.Seq = uint64(seq)
		if serverTs.Valid {
			v := serverTs.Int64
			e.ServerTsMs = &v
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, ErrNotFound
	}
	return events, nil
}

func ensureSQLiteSchema(ctx context.Context, db *sql.DB) error {
	statements := []string{
		`
CREATE TABLE IF NOT EXISTS round_event_stream (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    round_id TEXT NOT NULL,
    seq INTEGER NOT NULL,
    event_type TEXT NOT NULL,
    envelope_b64 TEXT NOT NULL DEFAULT '',
    server_ts_ms INTEGER,
    created_at_ms INTEGER NOT NULL,
    UNIQUE (round_id, seq)
)`,
		`
CREATE TABLE IF NOT EXISTS round_history (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    identity TEXT NOT NULL,
    round_id TEXT NOT NULL,
    table_id TEXT NOT NULL,
    played_at_ms INTEGER NOT NULL,
    summary_json TEXT NOT NULL DEFAULT '{}',
    created_at_ms INTEGER NOT NULL,
    UNIQUE (identity, round_id)
)`,
		`CREATE INDEX IF NOT EXISTS idx_round_history_recent ON round_history(identity, played_at_ms DESC)`,
	}
	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func defaultSQLitePath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "blackjack-lite", defaultLocalDBName), nil
}
