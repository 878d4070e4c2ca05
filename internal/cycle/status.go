package cycle

import "strings"

// Workflow statuses used by the discovery board.
const (
	StatusInbox               = "00 Inbox"
	StatusCommitted           = "01 Committed"
	StatusGenerativeDiscovery = "02 Generative Discovery"
	StatusProblemDiscovery    = "03 Problem Discovery"
	StatusSolutionDiscovery   = "04 Solution Discovery"
	StatusBuild               = "06 Build"
	StatusBeta                = "07 Beta"
	StatusLive                = "08 Live"
	StatusWontDo              = "Won't Do"
	StatusDone                = "Done"
)

// Health values carried by the tracker's health field. Only OnHold affects
// activity accounting.
const (
	HealthOnTrack  = "On Track"
	HealthAtRisk   = "At Risk"
	HealthOffTrack = "Off Track"
	HealthOnHold   = "On Hold"
	HealthMystery  = "Mystery"
	HealthComplete = "Complete"
	HealthUnknown  = "Unknown"
)

var discoveryStatuses = []string{
	StatusGenerativeDiscovery,
	StatusProblemDiscovery,
	StatusSolutionDiscovery,
}

// inactiveStatuses are states in which the project is explicitly not being
// worked regardless of health: backlog, committed-but-not-started, and the
// terminal won't-do / live-and-forgotten states.
var inactiveStatuses = []string{
	StatusInbox,
	StatusCommitted,
	StatusWontDo,
	StatusLive,
}

// doneStatuses are generic resolved states that close a discovery cycle with
// the Completed logic.
var doneStatuses = []string{
	StatusDone,
	"Resolved",
}

// IsDiscoveryStatus reports whether the status means the project is being
// investigated. Unknown statuses pass through as neither group.
func IsDiscoveryStatus(status string) bool {
	return containsFold(discoveryStatuses, status)
}

// IsBuildStatus reports whether the status is the build state that marks the
// start of implementation.
func IsBuildStatus(status string) bool {
	return strings.EqualFold(status, StatusBuild)
}

// IsInactiveStatus reports whether the status renders the project inactive.
func IsInactiveStatus(status string) bool {
	return containsFold(inactiveStatuses, status)
}

// Options controls the edge-case policies where engine revisions disagreed.
type Options struct {
	// HoldOverridesDiscoveryStatus controls whether "On Hold" health
	// inactivates a project even while its status is a discovery status.
	// When false, hold only counts outside discovery statuses.
	HoldOverridesDiscoveryStatus bool
}

// DefaultOptions returns the engine's reference policy: hold pauses the
// clock even during discovery.
func DefaultOptions() Options {
	return Options{HoldOverridesDiscoveryStatus: true}
}

// endLogicFor classifies a qualifying exit from discovery, or "" if the
// target status does not end a cycle.
func endLogicFor(toStatus string) EndDateLogic {
	switch {
	case IsBuildStatus(toStatus):
		return LogicBuildTransition
	case strings.EqualFold(toStatus, StatusWontDo):
		return LogicWontDo
	case strings.EqualFold(toStatus, StatusLive):
		return LogicLive
	case containsFold(doneStatuses, toStatus):
		return LogicCompleted
	default:
		return ""
	}
}

// isInactiveState derives the active/inactive regime from the current status
// and health values.
func isInactiveState(status, health string, opts Options) bool {
	if IsInactiveStatus(status) {
		return true
	}
	if strings.EqualFold(health, HealthOnHold) {
		if opts.HoldOverridesDiscoveryStatus {
			return true
		}
		return !IsDiscoveryStatus(status)
	}
	return false
}

func containsFold(list []string, s string) bool {
	for _, item := range list {
		if strings.EqualFold(item, s) {
			return true
		}
	}
	return false
}
