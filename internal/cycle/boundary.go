package cycle

import "time"

// Boundary is the resolved start/end of an issue's discovery cycle.
// End is nil while the cycle is still open.
type Boundary struct {
	Start *time.Time
	End   *time.Time
	Logic EndDateLogic
}

// ResolveBoundary scans status transitions (ascending) for the first entry
// into any discovery status and the first subsequent qualifying exit.
//
// The engine models a single cycle per issue: even if the project re-enters
// discovery after leaving, the earliest entry and the first qualifying exit
// after it win.
func ResolveBoundary(transitions []StatusTransition) Boundary {
	if len(transitions) == 0 {
		return Boundary{Logic: LogicNoStatusChanges}
	}

	// First entry into any discovery status.
	startIdx := -1
	for i, tr := range transitions {
		if IsDiscoveryStatus(tr.To) {
			startIdx = i
			break
		}
	}

	if startIdx == -1 {
		// Never entered discovery. A transition straight into build still
		// marks an end date; otherwise there is nothing to measure.
		for _, tr := range transitions {
			if IsBuildStatus(tr.To) {
				end := tr.Timestamp
				return Boundary{End: &end, Logic: LogicDirectToBuild}
			}
		}
		return Boundary{Logic: LogicNoDiscovery}
	}

	start := transitions[startIdx].Timestamp

	// First exit from a discovery status into build, won't-do, live or a
	// generic done status, strictly after the cycle start.
	for _, tr := range transitions[startIdx+1:] {
		if !IsDiscoveryStatus(tr.From) {
			continue
		}
		if logic := endLogicFor(tr.To); logic != "" {
			end := tr.Timestamp
			return Boundary{Start: &start, End: &end, Logic: logic}
		}
	}

	return Boundary{Start: &start, Logic: LogicStillInDiscovery}
}

// ceilDays converts a duration into calendar days, rounding any partial day
// up. Used only for the top-level calendar total.
func ceilDays(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	days := int(d / (24 * time.Hour))
	if d%(24*time.Hour) > 0 {
		days++
	}
	return days
}

// floorDays converts a duration into whole elapsed days, discarding the
// partial day. Used for interior accrual so boundary days are not counted
// twice across adjacent transitions.
func floorDays(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(d / (24 * time.Hour))
}
