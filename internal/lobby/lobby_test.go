package lobby

import (
	"context"
	"errors"
	"testing"
	"time"

	"blackjack-lite/blackjack"
	"blackjack-lite/internal/codec"
	"blackjack-lite/internal/ledger"
	"blackjack-lite/internal/table"
)

type nopSender struct{}

func (nopSender) Send(string, []byte) {}
func (nopSender) Close(string)        {}

func testOptions() Options {
	cfg := table.DefaultConfig()
	cfg.TickInterval = time.Hour
	return Options{Table: cfg, MaxTables: 2}
}

func TestGetOrCreate(t *testing.T) {
	l := New(testOptions())
	defer l.Close()

	a, err := l.GetOrCreate("", nopSender{})
	if err != nil {
		t.Fatalf("create default: %v", err)
	}
	if a.ID != DefaultTableID {
		t.Fatalf("expected default id, got %s", a.ID)
	}
	again, err := l.GetOrCreate(DefaultTableID, nopSender{})
	if err != nil || again != a {
		t.Fatalf("expected the same table, got %v %v", again, err)
	}
	if _, err := l.GetOrCreate("high-rollers", nopSender{}); err != nil {
		t.Fatalf("create second: %v", err)
	}
	if _, err := l.GetOrCreate("third", nopSender{}); !errors.Is(err, ErrLobbyFull) {
		t.Fatalf("expected ErrLobbyFull, got %v", err)
	}
	if _, err := l.GetOrCreate("bad id!", nopSender{}); !errors.Is(err, ErrInvalidTableID) {
		t.Fatalf("expected ErrInvalidTableID, got %v", err)
	}
	ids := l.ListTables()
	if len(ids) != 2 || ids[0] != "high-rollers" || ids[1] != "main" {
		t.Fatalf("unexpected tables %v", ids)
	}
}

func TestReapIdle(t *testing.T) {
	opts := testOptions()
	opts.IdleTableTTL = time.Nanosecond
	l := New(opts)
	defer l.Close()

	empty, err := l.GetOrCreate("empty", nopSender{})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	busy, err := l.GetOrCreate("busy", nopSender{})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := busy.Attach("c1", "alice", false); err != nil {
		t.Fatalf("attach: %v", err)
	}
	time.Sleep(time.Millisecond)

	if n := l.ReapIdle(); n != 1 {
		t.Fatalf("expected one reaped table, got %d", n)
	}
	if !empty.IsClosed() || l.GetTable("empty") != nil {
		t.Fatalf("idle table should be stopped and removed")
	}
	if l.GetTable("busy") == nil {
		t.Fatalf("busy table must survive")
	}
}

type roundSink struct {
	rounds chan ledger.RoundRecord
}

func (r *roundSink) Close() error { return nil }

func (r *roundSink) RecordRound(_ context.Context, round ledger.RoundRecord) error {
	r.rounds <- round
	return nil
}

func (r *roundSink) AppendEvent(string, uint64, string, []byte) {}

func (r *roundSink) ListRecent(context.Context, string, int) ([]ledger.HistoryItem, error) {
	return nil, nil
}

func (r *roundSink) GetRoundEvents(context.Context, string) ([]ledger.EventItem, error) {
	return nil, ledger.ErrNotFound
}

func TestTablesRecordSettledRounds(t *testing.T) {
	sink := &roundSink{rounds: make(chan ledger.RoundRecord, 1)}
	opts := testOptions()
	opts.Table.BetWindow = 0
	opts.Table.TurnTimeout = 0
	opts.Ledger = sink
	l := New(opts)
	defer l.Close()

	tbl, err := l.GetOrCreate("felt", nopSender{})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := tbl.Attach("c1", "alice", false); err != nil {
		t.Fatalf("attach: %v", err)
	}
	for _, a := range []codec.Action{codec.PlayerJoin{Seat: 1}, codec.PlaceBet{Bet: 10}, codec.StartRound{}} {
		if err := tbl.Act("c1", a); err != nil {
			t.Fatalf("%s: %v", a.Type(), err)
		}
	}
	// A natural can end the turn on the deal.
	if tbl.Snapshot().Phase == blackjack.PhasePlaying {
		if err := tbl.Act("c1", codec.Stand{}); err != nil {
			t.Fatalf("stand: %v", err)
		}
	}

	select {
	case round := <-sink.rounds:
		if round.TableID != "felt" || len(round.Entries) != 1 || round.Entries[0].Identity != "alice" {
			t.Fatalf("unexpected round record %+v", round)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("settled round was not recorded")
	}
}
