package visuals

import (
	"strings"
	"testing"
	"time"

	"dcycle/internal/cycle"
)

func sampleCohorts() []cycle.QuarterCohort {
	return []cycle.QuarterCohort{
		{
			Quarter: "Q1_2024",
			Data:    []int{5, 10, 15},
			Size:    3,
			Stats:   cycle.CohortStats{Min: 5, Q1: 7.5, Median: 10, Q3: 12.5, Max: 15, Mean: 10},
		},
		{
			Quarter: "Q2_2024",
			Size:    0,
		},
	}
}

func TestGenerateCohortBoxChart(t *testing.T) {
	chart := GenerateCohortBoxChart(sampleCohorts(), cycle.MetricCalendar)
	for _, want := range []string{"xychart-beta", "Q1_2024", "Q2_2024", "Calendar Days", "bar [10.0, 0.0]"} {
		if !strings.Contains(chart, want) {
			t.Errorf("chart missing %q:\n%s", want, chart)
		}
	}

	active := GenerateCohortBoxChart(sampleCohorts(), cycle.MetricActive)
	if !strings.Contains(active, "Active Days") {
		t.Error("active-metric chart should carry an Active Days title")
	}
}

func TestGenerateChartsEmptyInput(t *testing.T) {
	if GenerateCohortBoxChart(nil, cycle.MetricCalendar) != "" {
		t.Error("box chart for no cohorts should be empty")
	}
	if GenerateTrendChart(nil) != "" {
		t.Error("trend chart for no cohorts should be empty")
	}
	if GenerateCohortSizeChart(nil) != "" {
		t.Error("size chart for no cohorts should be empty")
	}
}

func TestGenerateCohortSizeChart(t *testing.T) {
	chart := GenerateCohortSizeChart(sampleCohorts())
	if !strings.Contains(chart, "bar [3, 0]") {
		t.Errorf("size chart missing counts:\n%s", chart)
	}
}

func TestGenerateInactivityGantt(t *testing.T) {
	start := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 10)
	info := cycle.CycleInfo{
		IssueKey:       "PROJ-1",
		DiscoveryStart: &start,
		DiscoveryEnd:   &end,
		EndLogic:       cycle.LogicBuildTransition,
	}
	periods := []cycle.InactivePeriod{{Start: start.AddDate(0, 0, 2), End: start.AddDate(0, 0, 5)}}

	chart := GenerateInactivityGantt(info, periods)
	for _, want := range []string{"gantt", "PROJ-1", "2024-03-01", "2024-03-11", "Pause 1", "2024-03-03"} {
		if !strings.Contains(chart, want) {
			t.Errorf("gantt missing %q:\n%s", want, chart)
		}
	}

	if GenerateInactivityGantt(cycle.CycleInfo{IssueKey: "PROJ-2"}, nil) != "" {
		t.Error("gantt without boundary dates should be empty")
	}
}
