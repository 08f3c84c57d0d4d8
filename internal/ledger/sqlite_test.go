package ledger

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func newTestSQLite(t *testing.T, recentLimit int) *SQLiteService {
	t.Helper()
	s, err := NewSQLiteService(context.Background(), filepath.Join(t.TempDir(), "ledger.db"), recentLimit, nil)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleRound(id string, at time.Time) RoundRecord {
	return RoundRecord{
		RoundID:     id,
		TableID:     "main",
		Round:       3,
		PlayedAt:    at,
		Dealer:      []string{"Kd", "Tc"},
		DealerValue: 20,
		Entries: []Entry{
			{Identity: "alice", Seat: 1, Hand: []string{"Ts", "9c"}, Value: 19, State: "loss", Bet: 10, Reward: 0},
			{Identity: "bob", Seat: 2, Hand: []string{"Th", "8d", "3s"}, Value: 21, State: "win", Bet: 10, Reward: 20},
		},
	}
}

func TestSQLiteRecordAndListRecent(t *testing.T) {
	s := newTestSQLite(t, 0)
	ctx := context.Background()
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	if err := s.RecordRound(ctx, sampleRound("r1", base)); err != nil {
		t.Fatalf("record r1: %v", err)
	}
	if err := s.RecordRound(ctx, sampleRound("r2", base.Add(time.Minute))); err != nil {
		t.Fatalf("record r2: %v", err)
	}

	items, err := s.ListRecent(ctx, "bob", 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].RoundID != "r2" || items[1].RoundID != "r1" {
		t.Fatalf("expected newest first, got %s,%s", items[0].RoundID, items[1].RoundID)
	}
	if items[0].Summary["state"] != "win" {
		t.Fatalf("expected win summary, got %v", items[0].Summary["state"])
	}
	if items[0].Summary["reward"] != float64(20) {
		t.Fatalf("expected reward 20, got %v", items[0].Summary["reward"])
	}
	if !items[1].PlayedAt.Equal(base) {
		t.Fatalf("played_at mismatch: %v", items[1].PlayedAt)
	}

	none, err := s.ListRecent(ctx, "carol", 10)
	if err != nil || len(none) != 0 {
		t.Fatalf("expected empty history for unknown identity, got %v %v", none, err)
	}
}

func TestSQLiteRecordRoundIsIdempotent(t *testing.T) {
	s := newTestSQLite(t, 0)
	ctx := context.Background()
	round := sampleRound("r1", time.Now().UTC())
	for i := 0; i < 2; i++ {
		if err := s.RecordRound(ctx, round); err != nil {
			t.Fatalf("record %d: %v", i, err)
		}
	}
	items, err := s.ListRecent(ctx, "alice", 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected one row per identity and round, got %d", len(items))
	}
}

func TestSQLiteTrimsHistory(t *testing.T) {
	s := newTestSQLite(t, 2)
	ctx := context.Background()
	base := time.Now().UTC()
	for i, id := range []string{"r1", "r2", "r3"} {
		if err := s.RecordRound(ctx, sampleRound(id, base.Add(time.Duration(i)*time.Second))); err != nil {
			t.Fatalf("record %s: %v", id, err)
		}
	}
	items, err := s.ListRecent(ctx, "alice", 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 2 || items[0].RoundID != "r3" || items[1].RoundID != "r2" {
		t.Fatalf("expected r3,r2 after trim, got %+v", items)
	}
}

func TestSQLiteRecordRequiresRoundID(t *testing.T) {
	s := newTestSQLite(t, 0)
	if err := s.RecordRound(context.Background(), RoundRecord{}); err == nil {
		t.Fatalf("expected error for empty round id")
	}
}

func TestSQLiteEventTape(t *testing.T) {
	s := newTestSQLite(t, 0)
	ctx := context.Background()

	s.AppendEvent("r1", 2, "stateUpdate", []byte(`{"room":"blackjack","type":"stateUpdate","data":{"phase":"playing"}}`))
	s.AppendEvent("r1", 1, "betTimerEnd", []byte(`{"room":"blackjack","type":"betTimerEnd","data":{"endedAt":5}}`))
	// duplicate seq is ignored
	s.AppendEvent("r1", 1, "betTimerEnd", []byte(`{"room":"blackjack","type":"other"}`))
	// not json, dropped
	s.AppendEvent("r1", 3, "bad", []byte(`nope`))

	events, err := s.GetRoundEvents(ctx, "r1")
	if err != nil {
		t.Fatalf("get events: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Seq != 1 || events[1].Seq != 2 {
		t.Fatalf("expected seq order 1,2, got %d,%d", events[0].Seq, events[1].Seq)
	}
	if events[0].ServerTsMs == nil {
		t.Fatalf("expected server timestamp")
	}
	frame, err := DecodeEnvelope(events[0].EnvelopeB64)
	if err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if frame["type"] != "betTimerEnd" {
		t.Fatalf("expected first stored frame to win, got %v", frame["type"])
	}

	if _, err := s.GetRoundEvents(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSQLiteListRecentSkipsCorruptSummary(t *testing.T) {
	s := newTestSQLite(t, 0)
	ctx := context.Background()
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	if err := s.RecordRound(ctx, sampleRound("r1", base)); err != nil {
		t.Fatalf("record r1: %v", err)
	}
	if _, err := s.db.ExecContext(ctx, `
INSERT INTO round_history (identity, round_id, table_id, played_at_ms, summary_json, created_at_ms)
VALUES (?, ?, ?, ?, ?, ?)`, "bob", "r-bad", "main", base.Add(time.Minute).UnixMilli(), `{"state":`, base.UnixMilli()); err != nil {
		t.Fatalf("insert corrupt row: %v", err)
	}

	items, err := s.ListRecent(ctx, "bob", 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 1 || items[0].RoundID != "r1" {
		t.Fatalf("expected only the intact round, got %+v", items)
	}
}
