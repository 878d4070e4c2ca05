package cycle

import (
	"reflect"
	"testing"
	"time"
)

func completedInfo(key string, end time.Time, calendar, active int) CycleInfo {
	start := end.AddDate(0, 0, -calendar)
	return CycleInfo{
		IssueKey:       key,
		DiscoveryStart: &start,
		DiscoveryEnd:   &end,
		EndLogic:       LogicBuildTransition,
		CalendarDays:   &calendar,
		ActiveDays:     &active,
	}
}

func TestQuarterOf(t *testing.T) {
	tests := []struct {
		name string
		date time.Time
		want string
	}{
		{"LastDayOfMarch", time.Date(2024, 3, 31, 23, 0, 0, 0, time.UTC), "Q1_2024"},
		{"FirstDayOfApril", time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), "Q2_2024"},
		{"MidSummer", time.Date(2023, 8, 15, 0, 0, 0, 0, time.UTC), "Q3_2023"},
		{"NewYearsEve", time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC), "Q4_2023"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := QuarterOf(tt.date).String(); got != tt.want {
				t.Errorf("QuarterOf(%v) = %s, want %s", tt.date, got, tt.want)
			}
		})
	}
}

func TestParseQuarter(t *testing.T) {
	q, err := ParseQuarter("Q3_2024")
	if err != nil {
		t.Fatalf("ParseQuarter failed: %v", err)
	}
	if q.Q != 3 || q.Year != 2024 {
		t.Errorf("ParseQuarter = %+v, want Q3 2024", q)
	}

	for _, bad := range []string{"Q5_2024", "2024_Q1", "nonsense"} {
		if _, err := ParseQuarter(bad); err == nil {
			t.Errorf("ParseQuarter(%q) succeeded, want error", bad)
		}
	}
}

func TestBuildQuarterCohortsOutlierRule(t *testing.T) {
	end := time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC)
	var infos []CycleInfo
	for i, v := range []int{1, 2, 3, 4, 5, 100} {
		infos = append(infos, completedInfo(keyFor(i), end, v, v))
	}

	cohorts := BuildQuarterCohorts(infos, MetricCalendar, nil)
	if len(cohorts) != 1 {
		t.Fatalf("cohorts = %d, want 1", len(cohorts))
	}

	c := cohorts[0]
	if c.Quarter != "Q1_2024" {
		t.Errorf("Quarter = %s, want Q1_2024", c.Quarter)
	}
	if c.Size != 6 {
		t.Errorf("Size = %d, want 6 (outliers included)", c.Size)
	}
	if !reflect.DeepEqual(c.Outliers, []int{100}) {
		t.Errorf("Outliers = %v, want [100]", c.Outliers)
	}
	if !reflect.DeepEqual(c.Data, []int{1, 2, 3, 4, 5}) {
		t.Errorf("Data = %v, want [1 2 3 4 5]", c.Data)
	}
	if c.Stats.Max != 5 {
		t.Errorf("Stats.Max = %v, want 5 (outlier excluded)", c.Stats.Max)
	}
	if c.Stats.Min != 1 || c.Stats.Median != 3 {
		t.Errorf("Stats = %+v, want min 1 median 3", c.Stats)
	}
}

func TestBuildQuarterCohortsSpanIncludesEmptyQuarters(t *testing.T) {
	infos := []CycleInfo{
		completedInfo("DISC-1", time.Date(2023, 11, 5, 0, 0, 0, 0, time.UTC), 12, 10),
		completedInfo("DISC-2", time.Date(2024, 5, 20, 0, 0, 0, 0, time.UTC), 20, 15),
	}

	cohorts := BuildQuarterCohorts(infos, MetricActive, nil)

	want := []string{"Q4_2023", "Q1_2024", "Q2_2024"}
	if len(cohorts) != len(want) {
		t.Fatalf("cohorts = %d, want %d", len(cohorts), len(want))
	}
	for i, c := range cohorts {
		if c.Quarter != want[i] {
			t.Errorf("cohort[%d].Quarter = %s, want %s (chronological order)", i, c.Quarter, want[i])
		}
	}

	empty := cohorts[1]
	if empty.Size != 0 || len(empty.Data) != 0 {
		t.Errorf("empty quarter has data: %+v", empty)
	}
	if empty.Stats != (CohortStats{}) {
		t.Errorf("empty quarter stats = %+v, want all-zero", empty.Stats)
	}

	if cohorts[0].Stats.Median != 10 {
		t.Errorf("active metric not used: median = %v, want 10", cohorts[0].Stats.Median)
	}
}

func TestBuildQuarterCohortsFilters(t *testing.T) {
	end := time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC)
	start := end.AddDate(0, 0, -5)

	infos := []CycleInfo{
		completedInfo("DISC-1", end, 5, 5),
		completedInfo("DISC-2", end, 7, 7),
		{IssueKey: "DISC-3", DiscoveryStart: &start, EndLogic: LogicStillInDiscovery},
		{IssueKey: "DISC-4", EndLogic: LogicNoDiscovery},
		ErrorInfo("DISC-5", end),
	}

	cohorts := BuildQuarterCohorts(infos, MetricCalendar, map[string]bool{"DISC-2": true})
	if len(cohorts) != 1 {
		t.Fatalf("cohorts = %d, want 1", len(cohorts))
	}
	if cohorts[0].Size != 1 {
		t.Errorf("Size = %d, want 1 (open, errored and excluded issues skipped)", cohorts[0].Size)
	}
}

func TestBuildQuarterCohortsEmptyInput(t *testing.T) {
	if got := BuildQuarterCohorts(nil, MetricCalendar, nil); got != nil {
		t.Errorf("BuildQuarterCohorts(nil) = %v, want nil", got)
	}
}

func keyFor(i int) string {
	return string(rune('A'+i)) + "-1"
}
