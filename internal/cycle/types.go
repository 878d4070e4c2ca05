// Package cycle derives discovery cycle-time metrics from an issue's change
// history: when discovery started and ended, how many calendar days elapsed,
// and how many of those days the project was actively worked.
package cycle

import "time"

// EndDateLogic classifies how a discovery cycle's end date was determined.
type EndDateLogic string

const (
	// LogicNoStatusChanges means the issue has no usable status history at all.
	LogicNoStatusChanges EndDateLogic = "NoStatusChanges"
	// LogicDirectToBuild means the issue entered build without ever entering discovery.
	LogicDirectToBuild EndDateLogic = "DirectToBuild"
	// LogicNoDiscovery means the issue never entered discovery or build.
	LogicNoDiscovery EndDateLogic = "NoDiscovery"
	// LogicBuildTransition means discovery ended by moving into build.
	LogicBuildTransition EndDateLogic = "BuildTransition"
	// LogicWontDo means discovery ended by abandoning the project.
	LogicWontDo EndDateLogic = "WontDo"
	// LogicLive means discovery ended by going straight to the live terminal state.
	LogicLive EndDateLogic = "Live"
	// LogicCompleted means discovery ended via a generic done/resolved status.
	LogicCompleted EndDateLogic = "Completed"
	// LogicStillInDiscovery means the cycle is open; "now" substitutes for the
	// end date in calculations but is never persisted as one.
	LogicStillInDiscovery EndDateLogic = "StillInDiscovery"
	// LogicError is the degraded sentinel for issues whose history could not
	// be resolved; a batch never aborts because of one bad issue.
	LogicError EndDateLogic = "Error"
)

// StatusTransition is a single status change. From is empty only for the
// very first status a project ever had.
type StatusTransition struct {
	Timestamp time.Time `json:"timestamp"`
	From      string    `json:"from,omitempty"`
	To        string    `json:"to"`
}

// HealthTransition is a single health change.
type HealthTransition struct {
	Timestamp time.Time `json:"timestamp"`
	From      string    `json:"from,omitempty"`
	To        string    `json:"to"`
}

// InactivePeriod is a closed interval of at least one day during which the
// project was not being actively progressed.
type InactivePeriod struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// CycleInfo is the engine's primary output, one per issue.
//
// DiscoveryEnd is nil if and only if the cycle is open (StillInDiscovery).
// Day counts are nil when no discovery cycle exists for the issue.
type CycleInfo struct {
	IssueKey       string       `json:"issueKey"`
	DiscoveryStart *time.Time   `json:"discoveryStartDate"`
	DiscoveryEnd   *time.Time   `json:"discoveryEndDate"`
	EndLogic       EndDateLogic `json:"endDateLogic"`
	CalendarDays   *int         `json:"calendarDaysInDiscovery"`
	ActiveDays     *int         `json:"activeDaysInDiscovery"`
}

// Completed reports whether the issue has a finished discovery cycle with
// both boundary dates resolved.
func (ci CycleInfo) Completed() bool {
	switch ci.EndLogic {
	case LogicBuildTransition, LogicWontDo, LogicLive, LogicCompleted:
		return ci.DiscoveryStart != nil && ci.DiscoveryEnd != nil
	default:
		return false
	}
}
