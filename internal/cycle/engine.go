package cycle

import (
	"time"

	"dcycle/internal/tracker"
)

// Compute derives the full cycle info and inactive periods for one issue
// from its raw change history. It never fails: any history, including an
// empty one, maps to a sentinel result, because computation always runs
// inside a larger batch that must keep making progress.
//
// Only open cycles depend on now; completed cycles are a pure function of
// the history.
func Compute(issueKey string, records []tracker.ChangeRecord, now time.Time, opts Options) (CycleInfo, []InactivePeriod) {
	statuses, healths := Normalize(issueKey, records)
	boundary := ResolveBoundary(statuses)

	info := CycleInfo{
		IssueKey:       issueKey,
		DiscoveryStart: boundary.Start,
		DiscoveryEnd:   boundary.End,
		EndLogic:       boundary.Logic,
	}

	if boundary.Start == nil {
		// NoStatusChanges, NoDiscovery, or DirectToBuild: no measurable span.
		return info, nil
	}

	endIsNow := boundary.End == nil
	end := now
	if boundary.End != nil {
		end = *boundary.End
	}

	calendar := ceilDays(end.Sub(*boundary.Start))
	inactive, periods := AccumulateActiveTime(statuses, healths, *boundary.Start, end, endIsNow, opts)

	active := calendar - inactive
	if active < 0 {
		// Accumulated inactive days exceeding the calendar total is an
		// impossible arithmetic state; clamp rather than propagate.
		active = 0
	}

	info.CalendarDays = &calendar
	info.ActiveDays = &active
	return info, periods
}

// ErrorInfo is the degraded result for an issue whose history could not be
// fetched or resolved: zeroed days with today as both boundary dates.
func ErrorInfo(issueKey string, now time.Time) CycleInfo {
	today := now.Truncate(24 * time.Hour)
	zero := 0
	return CycleInfo{
		IssueKey:       issueKey,
		DiscoveryStart: &today,
		DiscoveryEnd:   &today,
		EndLogic:       LogicError,
		CalendarDays:   &zero,
		ActiveDays:     &zero,
	}
}
