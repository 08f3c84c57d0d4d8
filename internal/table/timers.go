package table

import "time"

type timerKind int

const (
	timerBetting timerKind = iota
	timerPlayerTurn
	timerRoundEnd
)

func (k timerKind) String() string {
	switch k {
	case timerBetting:
		return "betting"
	case timerPlayerTurn:
		return "playerTurn"
	case timerRoundEnd:
		return "roundEnd"
	default:
		return "unknown"
	}
}

type timer struct {
	owner    string
	started  time.Time
	deadline time.Time
}

// timers holds at most one pending timer per kind.
type timers map[timerKind]timer

// arm replaces any pending timer of the same kind.
func (ts timers) arm(kind timerKind, owner string, now time.Time, d time.Duration) timer {
	tm := timer{owner: owner, started: now, deadline: now.Add(d)}
	ts[kind] = tm
	return tm
}

func (ts timers) cancel(kind timerKind) (timer, bool) {
	tm, ok := ts[kind]
	if ok {
		delete(ts, kind)
	}
	return tm, ok
}

func (ts timers) get(kind timerKind) (timer, bool) {
	tm, ok := ts[kind]
	return tm, ok
}

// due reports the timer of kind if its deadline has passed. The handler
// is expected to cancel or re-arm it.
func (ts timers) due(kind timerKind, now time.Time) (timer, bool) {
	tm, ok := ts[kind]
	if !ok || now.Before(tm.deadline) {
		return timer{}, false
	}
	return tm, true
}

func (ts timers) clear() {
	for k := range ts {
		delete(ts, k)
	}
}
