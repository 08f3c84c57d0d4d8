package table

import (
	"context"
	"time"

	"blackjack-lite/blackjack"
	"blackjack-lite/card"
	"blackjack-lite/internal/codec"
	"blackjack-lite/internal/ledger"

	"go.uber.org/zap"
)

type tapeEntry struct {
	roundID   string
	seq       uint64
	eventType string
	payload   []byte
}

// broadcast fans a frame out to every attached connection. The sender
// must not block; a slow connection only loses its own copy.
func (t *Table) broadcast(msgType string, data any) {
	frame, err := codec.Encode(msgType, data)
	if err != nil {
		t.logger.Error("encode broadcast failed", zap.String("type", msgType), zap.Error(err))
		return
	}
	for connID := range t.conns {
		t.sender.Send(connID, frame)
	}
	t.appendTape(msgType, frame)
}

func (t *Table) broadcastState() {
	t.broadcast(codec.TypeStateUpdate, codec.BuildStateUpdate(t.ID, t.game.Snapshot()))
}

func (t *Table) sendTo(connID, msgType string, data any) {
	frame, err := codec.Encode(msgType, data)
	if err != nil {
		t.logger.Error("encode frame failed", zap.String("type", msgType), zap.Error(err))
		return
	}
	t.sender.Send(connID, frame)
}

// sendPendingTimers replays running timers to a late joiner.
func (t *Table) sendPendingTimers(connID string) {
	if tm, ok := t.timers.get(timerBetting); ok {
		t.sendTo(connID, codec.TypeBetTimerStart, codec.BetTimerStart{
			StartedAt:  codec.EpochMs(tm.started),
			DurationMs: tm.deadline.Sub(tm.started).Milliseconds(),
		})
	}
	if tm, ok := t.timers.get(timerPlayerTurn); ok {
		t.sendTo(connID, codec.TypePlayerTimerStart, codec.PlayerTimerStart{
			UserID:     tm.owner,
			StartedAt:  codec.EpochMs(tm.started),
			DurationMs: tm.deadline.Sub(tm.started).Milliseconds(),
		})
	}
}

func (t *Table) nextSeq() uint64 {
	t.serverSeq++
	return t.serverSeq
}

func (t *Table) appendTape(msgType string, frame []byte) {
	roundID := t.game.RoundID()
	if t.ledger == nil || roundID == "" {
		return
	}
	entry := tapeEntry{roundID: roundID, seq: t.nextSeq(), eventType: msgType, payload: frame}
	select {
	case t.tape <- entry:
	default:
		t.logger.Warn("tape buffer full, dropping event", zap.String("round_id", roundID), zap.Uint64("seq", entry.seq))
	}
}

// writeTape drains tape entries into the ledger outside the actor.
func (t *Table) writeTape() {
	for {
		select {
		case e := <-t.tape:
			t.ledger.AppendEvent(e.roundID, e.seq, e.eventType, e.payload)
		case <-t.done:
			return
		}
	}
}

// RecordRoundHook persists every settled round to svc.
func RecordRoundHook(svc ledger.Service, logger *zap.Logger) RoundEndHook {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(info RoundEndInfo) {
		record := roundRecord(info.TableID, info.Summary)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := svc.RecordRound(ctx, record); err != nil {
			logger.Warn("persist round failed",
				zap.String("table", info.TableID),
				zap.String("round_id", record.RoundID),
				zap.Error(err))
		}
	}
}

func roundRecord(tableID string, summary blackjack.RoundSummary) ledger.RoundRecord {
	record := ledger.RoundRecord{
		RoundID:     summary.RoundID,
		TableID:     tableID,
		Round:       summary.Round,
		PlayedAt:    summary.SettledAt,
		Dealer:      card.Tokens(summary.Dealer),
		DealerValue: summary.DealerVal.Total,
		Entries:     make([]ledger.Entry, 0, len(summary.Players)),
	}
	for _, p := range summary.Players {
		record.Entries = append(record.Entries, ledger.Entry{
			Identity: p.Identity,
			Seat:     p.Seat,
			Hand:     card.Tokens(p.Hand),
			Value:    p.Value.Total,
			State:    string(p.Result.State),
			Bet:      p.Result.Bet,
			Reward:   p.Result.Reward,
		})
	}
	return record
}
