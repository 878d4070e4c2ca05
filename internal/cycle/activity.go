package cycle

import (
	"sort"
	"time"
)

// historyEvent is a status or health change flattened into one stream.
type historyEvent struct {
	ts     time.Time
	status string // new status, or "" if this event is not a status change
	health string // new health, or "" if this event is not a health change
	isStat bool
	isHeal bool
}

// AccumulateActiveTime replays status and health transitions between the
// resolved cycle boundaries and splits the calendar span into active and
// inactive days.
//
// The state machine starts Active at the cycle start: the discovery entry is
// itself the transition that started the clock, even if the stored current
// status says otherwise until the next transition. Fields not touched by a
// transition keep their previous value.
//
// endIsNow marks an open cycle; its inactive tail is not accrued, so a
// currently-active open cycle is not penalized for the time elapsed since
// the last recorded transition.
func AccumulateActiveTime(
	statuses []StatusTransition,
	healths []HealthTransition,
	start, end time.Time,
	endIsNow bool,
	opts Options,
) (inactiveDays int, periods []InactivePeriod) {
	events := mergeTransitions(statuses, healths)

	// Seed carry-forward state from the latest values at or before start.
	currentStatus := ""
	currentHealth := ""
	for _, e := range events {
		if e.ts.After(start) {
			break
		}
		if e.isStat {
			currentStatus = e.status
		}
		if e.isHeal {
			currentHealth = e.health
		}
	}

	inactive := false // entering discovery presumes active work
	lastTS := start

	i := 0
	for i < len(events) {
		e := events[i]
		if !e.ts.After(start) {
			i++
			continue
		}
		if e.ts.After(end) {
			break
		}

		// Time spent since the previous transition belongs to the regime we
		// were in, whether or not this transition changes it.
		if inactive {
			gap := floorDays(e.ts.Sub(lastTS))
			inactiveDays += gap
			if gap >= 1 {
				periods = append(periods, InactivePeriod{Start: lastTS, End: e.ts})
			}
		}

		// Apply every change sharing this timestamp before re-evaluating, so
		// a record that touches both fields is atomic.
		ts := e.ts
		for i < len(events) && events[i].ts.Equal(ts) {
			if events[i].isStat {
				currentStatus = events[i].status
			}
			if events[i].isHeal {
				currentHealth = events[i].health
			}
			i++
		}

		inactive = isInactiveState(currentStatus, currentHealth, opts)
		lastTS = ts
	}

	// Close the tail only for completed cycles.
	if inactive && !endIsNow {
		gap := floorDays(end.Sub(lastTS))
		inactiveDays += gap
		if gap >= 1 {
			periods = append(periods, InactivePeriod{Start: lastTS, End: end})
		}
	}

	return inactiveDays, periods
}

// mergeTransitions interleaves both transition kinds ascending by timestamp.
func mergeTransitions(statuses []StatusTransition, healths []HealthTransition) []historyEvent {
	events := make([]historyEvent, 0, len(statuses)+len(healths))
	for _, tr := range statuses {
		events = append(events, historyEvent{ts: tr.Timestamp, status: tr.To, isStat: true})
	}
	for _, tr := range healths {
		events = append(events, historyEvent{ts: tr.Timestamp, health: tr.To, isHeal: true})
	}
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].ts.Before(events[j].ts)
	})
	return events
}
