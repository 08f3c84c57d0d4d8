package table

import (
	"errors"
	"time"

	"blackjack-lite/blackjack"
	"blackjack-lite/card"
	"blackjack-lite/internal/codec"

	"go.uber.org/zap"
)

// startRoundLocked opens the betting window from waiting, deals from
// betting, and from roundover resets before opening the next window.
func (t *Table) startRoundLocked(now time.Time) error {
	switch t.game.Phase() {
	case blackjack.PhaseRoundOver:
		t.timers.cancel(timerRoundEnd)
		t.game.ResetRound()
		t.broadcastState()
		if t.Config.BetWindow <= 0 {
			return nil
		}
		return t.openBettingLocked(now)
	case blackjack.PhaseWaiting:
		if t.Config.BetWindow > 0 {
			return t.openBettingLocked(now)
		}
		return t.dealLocked(now, false)
	case blackjack.PhaseBetting:
		return t.dealLocked(now, false)
	default:
		return t.game.StartRound()
	}
}

func (t *Table) openBettingLocked(now time.Time) error {
	if err := t.game.OpenBetting(); err != nil {
		return err
	}
	tm := t.timers.arm(timerBetting, "", now, t.Config.BetWindow)
	t.logger.Info("betting opened", zap.Duration("window", t.Config.BetWindow))
	t.broadcast(codec.TypeBetTimerStart, codec.BetTimerStart{
		StartedAt:  codec.EpochMs(tm.started),
		DurationMs: t.Config.BetWindow.Milliseconds(),
	})
	t.broadcastState()
	return nil
}

// dealLocked starts the round. When the betting window expired with no
// bets the table falls back to waiting instead of failing.
func (t *Table) dealLocked(now time.Time, expired bool) error {
	err := t.game.StartRound()
	if err != nil {
		switch {
		case isFatal(err):
			t.abortRoundLocked(now, err)
			return err
		case expired && errors.Is(err, blackjack.ErrNoBets):
			t.logger.Info("betting window closed without bets")
			t.game.CancelBetting()
			t.endBettingLocked(now)
			t.broadcastState()
			return nil
		default:
			return err
		}
	}
	t.endBettingLocked(now)
	t.logger.Info("round started",
		zap.Uint32("round", t.game.Round()),
		zap.String("round_id", t.game.RoundID()),
		zap.Int("cards_remaining", t.game.CardsRemaining()))
	t.afterTurnLocked(now, false)
	return nil
}

func (t *Table) hitLocked(identity string, now time.Time) error {
	if err := t.game.Hit(identity); err != nil {
		if isFatal(err) {
			t.abortRoundLocked(now, err)
		}
		return err
	}
	t.afterTurnLocked(now, true)
	return nil
}

func (t *Table) afterLeaveLocked(now time.Time) {
	if t.game.SeatedCount() == 0 && t.game.Phase() == blackjack.PhaseBetting {
		t.game.CancelBetting()
		t.endBettingLocked(now)
	}
	t.updateEmptySinceLocked(now)
	t.afterTurnLocked(now, false)
}

// afterTurnLocked broadcasts the new state and keeps the turn timer on the
// current player. Reaching dealerTurn plays the dealer out immediately.
func (t *Table) afterTurnLocked(now time.Time, rearm bool) {
	switch t.game.Phase() {
	case blackjack.PhasePlaying:
		t.broadcastState()
		t.syncTurnTimerLocked(now, rearm)
	case blackjack.PhaseDealerTurn:
		t.endTurnTimerLocked(now)
		t.broadcastState()
		t.playDealerLocked(now)
	default:
		t.endTurnTimerLocked(now)
		t.broadcastState()
	}
}

func (t *Table) syncTurnTimerLocked(now time.Time, rearm bool) {
	cur := t.game.CurrentIdentity()
	tm, ok := t.timers.get(timerPlayerTurn)
	if ok && tm.owner == cur && !rearm {
		return
	}
	if ok {
		t.endTurnTimerLocked(now)
	}
	if cur == "" || t.Config.TurnTimeout <= 0 {
		return
	}
	tm = t.timers.arm(timerPlayerTurn, cur, now, t.Config.TurnTimeout)
	t.broadcast(codec.TypePlayerTimerStart, codec.PlayerTimerStart{
		UserID:     cur,
		StartedAt:  codec.EpochMs(tm.started),
		DurationMs: t.Config.TurnTimeout.Milliseconds(),
	})
}

func (t *Table) endTurnTimerLocked(now time.Time) {
	tm, ok := t.timers.cancel(timerPlayerTurn)
	if !ok {
		return
	}
	t.broadcast(codec.TypePlayerTimerEnd, codec.PlayerTimerEnd{
		UserID:  tm.owner,
		EndedAt: codec.EpochMs(now),
	})
}

func (t *Table) endBettingLocked(now time.Time) {
	if _, ok := t.timers.cancel(timerBetting); !ok {
		return
	}
	t.broadcast(codec.TypeBetTimerEnd, codec.BetTimerEnd{EndedAt: codec.EpochMs(now)})
}

func (t *Table) playDealerLocked(now time.Time) {
	summary, err := t.game.PlayDealer()
	if err != nil {
		t.logger.Error("dealer turn aborted", zap.Error(err))
		t.broadcastState()
		return
	}
	t.logger.Info("round settled",
		zap.Uint32("round", summary.Round),
		zap.String("round_id", summary.RoundID),
		zap.Int("dealer_value", summary.DealerVal.Total),
		zap.Int("players", len(summary.Players)))
	t.broadcastState()
	t.timers.arm(timerRoundEnd, "", now, t.Config.RoundEndDelay)
	t.dispatchRoundEndHooks(summary)
}

// abortRoundLocked returns the table to waiting after an invariant failure.
func (t *Table) abortRoundLocked(now time.Time, cause error) {
	t.logger.Error("round aborted",
		zap.Uint32("round", t.game.Round()),
		zap.String("phase", string(t.game.Phase())),
		zap.Error(cause))
	t.game.AbortRound()
	t.endBettingLocked(now)
	t.endTurnTimerLocked(now)
	t.timers.cancel(timerRoundEnd)
	t.broadcastState()
}

func isFatal(err error) bool {
	return errors.Is(err, card.ErrDeckExhausted) || errors.Is(err, blackjack.ErrPlayerNotFound)
}

func (t *Table) dispatchRoundEndHooks(summary blackjack.RoundSummary) {
	if len(t.roundEndHooks) == 0 {
		return
	}
	info := RoundEndInfo{
		TableID: t.ID,
		EndedAt: summary.SettledAt,
		Summary: summary,
	}
	hooks := append([]RoundEndHook(nil), t.roundEndHooks...)
	for _, hook := range hooks {
		go func(cb RoundEndHook) {
			defer func() {
				if r := recover(); r != nil {
					t.logger.Error("round end hook panic", zap.Any("panic", r))
				}
			}()
			cb(info)
		}(hook)
	}
}

func (t *Table) tick() {
	t.tickAt(t.now())
}

func (t *Table) tickAt(now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return
	}
	if _, ok := t.timers.due(timerBetting, now); ok {
		if t.game.Phase() != blackjack.PhaseBetting {
			t.timers.cancel(timerBetting)
		} else if err := t.dealLocked(now, true); err != nil {
			t.logger.Warn("deal after betting window failed", zap.Error(err))
			t.game.CancelBetting()
			t.endBettingLocked(now)
			t.broadcastState()
		}
	}
	if tm, ok := t.timers.due(timerPlayerTurn, now); ok {
		t.handleTurnTimeout(tm, now)
	}
	if _, ok := t.timers.due(timerRoundEnd, now); ok {
		t.handleRoundEnd(now)
	}
	t.releaseOfflineSeats(now)
}

func (t *Table) handleTurnTimeout(tm timer, now time.Time) {
	if t.game.Phase() != blackjack.PhasePlaying || t.game.CurrentIdentity() != tm.owner {
		t.timers.cancel(timerPlayerTurn)
		return
	}
	t.logger.Info("turn timeout, auto-stand", zap.String("identity", tm.owner))
	if err := t.game.Stand(tm.owner); err != nil {
		t.logger.Warn("auto-stand failed", zap.String("identity", tm.owner), zap.Error(err))
		t.timers.cancel(timerPlayerTurn)
		return
	}
	t.afterTurnLocked(now, false)
}

func (t *Table) handleRoundEnd(now time.Time) {
	t.timers.cancel(timerRoundEnd)
	if t.game.Phase() != blackjack.PhaseRoundOver {
		return
	}
	t.game.ResetRound()
	t.broadcastState()
	if t.Config.AutoOpenBetting && t.Config.BetWindow > 0 && t.game.SeatedCount() > 0 {
		if err := t.openBettingLocked(now); err != nil {
			t.logger.Warn("auto-open betting failed", zap.Error(err))
		}
	}
}

// releaseOfflineSeats frees seats whose connection has been gone longer
// than OfflineSeatTTL. Seats are never released mid-hand.
func (t *Table) releaseOfflineSeats(now time.Time) {
	if t.Config.OfflineSeatTTL <= 0 {
		return
	}
	if phase := t.game.Phase(); phase == blackjack.PhasePlaying || phase == blackjack.PhaseDealerTurn {
		return
	}
	released := 0
	for _, identity := range t.game.OfflineSince(now.Add(-t.Config.OfflineSeatTTL)) {
		if err := t.game.Leave(identity); err != nil {
			continue
		}
		released++
		t.logger.Info("released offline seat",
			zap.String("identity", identity),
			zap.Duration("ttl", t.Config.OfflineSeatTTL))
	}
	if released > 0 {
		t.afterLeaveLocked(now)
	}
}
