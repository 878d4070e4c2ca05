package cycle

import "testing"

func TestStatusClassification(t *testing.T) {
	tests := []struct {
		status    string
		discovery bool
		build     bool
		inactive  bool
	}{
		{StatusGenerativeDiscovery, true, false, false},
		{StatusProblemDiscovery, true, false, false},
		{StatusSolutionDiscovery, true, false, false},
		{"02 generative discovery", true, false, false}, // case-insensitive
		{StatusBuild, false, true, false},
		{StatusBeta, false, false, false},
		{StatusInbox, false, false, true},
		{StatusCommitted, false, false, true},
		{StatusWontDo, false, false, true},
		{StatusLive, false, false, true},
		{"Some Custom Status", false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			if got := IsDiscoveryStatus(tt.status); got != tt.discovery {
				t.Errorf("IsDiscoveryStatus = %v, want %v", got, tt.discovery)
			}
			if got := IsBuildStatus(tt.status); got != tt.build {
				t.Errorf("IsBuildStatus = %v, want %v", got, tt.build)
			}
			if got := IsInactiveStatus(tt.status); got != tt.inactive {
				t.Errorf("IsInactiveStatus = %v, want %v", got, tt.inactive)
			}
		})
	}
}

func TestIsInactiveState(t *testing.T) {
	holdWins := Options{HoldOverridesDiscoveryStatus: true}
	statusAware := Options{HoldOverridesDiscoveryStatus: false}

	tests := []struct {
		name   string
		status string
		health string
		opts   Options
		want   bool
	}{
		{"ActiveDiscovery", StatusGenerativeDiscovery, HealthOnTrack, holdWins, false},
		{"InactiveStatusAlwaysWins", StatusInbox, HealthOnTrack, statusAware, true},
		{"HoldInDiscoveryHoldWins", StatusGenerativeDiscovery, HealthOnHold, holdWins, true},
		{"HoldInDiscoveryStatusAware", StatusGenerativeDiscovery, HealthOnHold, statusAware, false},
		{"HoldOutsideDiscoveryStatusAware", StatusBeta, HealthOnHold, statusAware, true},
		{"OffTrackStillActive", StatusProblemDiscovery, HealthOffTrack, holdWins, false},
		{"UnknownStatusActive", "Some Custom Status", HealthOnTrack, holdWins, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isInactiveState(tt.status, tt.health, tt.opts); got != tt.want {
				t.Errorf("isInactiveState(%q, %q) = %v, want %v", tt.status, tt.health, got, tt.want)
			}
		})
	}
}
