package cycle

import (
	"fmt"
	"slices"
	"time"
)

// Metric selects which day count a cohort aggregates.
type Metric string

const (
	// MetricCalendar aggregates calendarDaysInDiscovery.
	MetricCalendar Metric = "calendar"
	// MetricActive aggregates activeDaysInDiscovery.
	MetricActive Metric = "active"
)

// Quarter identifies a calendar quarter, e.g. Q1_2024.
type Quarter struct {
	Year int
	Q    int
}

// QuarterOf buckets a date by its month.
func QuarterOf(t time.Time) Quarter {
	return Quarter{Year: t.Year(), Q: (int(t.Month())-1)/3 + 1}
}

func (q Quarter) String() string {
	return fmt.Sprintf("Q%d_%d", q.Q, q.Year)
}

// ParseQuarter parses the Q{1-4}_{year} form.
func ParseQuarter(s string) (Quarter, error) {
	var q Quarter
	if _, err := fmt.Sscanf(s, "Q%d_%d", &q.Q, &q.Year); err != nil {
		return Quarter{}, fmt.Errorf("invalid quarter %q: %w", s, err)
	}
	if q.Q < 1 || q.Q > 4 {
		return Quarter{}, fmt.Errorf("invalid quarter %q: quarter number out of range", s)
	}
	return q, nil
}

// Next returns the chronologically following quarter.
func (q Quarter) Next() Quarter {
	if q.Q == 4 {
		return Quarter{Year: q.Year + 1, Q: 1}
	}
	return Quarter{Year: q.Year, Q: q.Q + 1}
}

// Compare orders quarters chronologically by (year, quarter number).
func (q Quarter) Compare(other Quarter) int {
	if q.Year != other.Year {
		return q.Year - other.Year
	}
	return q.Q - other.Q
}

// CohortStats is the box-plot statistics for one quarter's inlier series.
type CohortStats struct {
	Min    float64 `json:"min"`
	Q1     float64 `json:"q1"`
	Median float64 `json:"median"`
	Q3     float64 `json:"q3"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
}

// QuarterCohort aggregates the completed cycles sharing a completion
// quarter. Outliers fall outside [Q1 - 1.5*IQR, Q3 + 1.5*IQR]; they are
// excluded from Data and Stats but included in Size.
type QuarterCohort struct {
	Quarter  string      `json:"quarter"`
	Data     []int       `json:"data"`
	Outliers []int       `json:"outliers"`
	Size     int         `json:"size"`
	Stats    CohortStats `json:"stats"`
}

// BuildQuarterCohorts buckets completed cycles by completion quarter and
// computes box-plot statistics for the chosen metric. Quarters inside the
// observed span with zero data still appear with all-zero stats so consumers
// render empty cohorts uniformly. Issues in exclude are skipped.
func BuildQuarterCohorts(infos []CycleInfo, metric Metric, exclude map[string]bool) []QuarterCohort {
	groups := make(map[Quarter][]int)
	var first, last Quarter
	seen := false

	for _, info := range infos {
		if exclude[info.IssueKey] || !info.Completed() {
			continue
		}
		value := info.CalendarDays
		if metric == MetricActive {
			value = info.ActiveDays
		}
		if value == nil {
			continue
		}

		q := QuarterOf(*info.DiscoveryEnd)
		groups[q] = append(groups[q], *value)
		if !seen || q.Compare(first) < 0 {
			first = q
		}
		if !seen || q.Compare(last) > 0 {
			last = q
		}
		seen = true
	}

	if !seen {
		return nil
	}

	var cohorts []QuarterCohort
	for q := first; q.Compare(last) <= 0; q = q.Next() {
		cohorts = append(cohorts, buildCohort(q, groups[q]))
	}
	return cohorts
}

func buildCohort(q Quarter, values []int) QuarterCohort {
	cohort := QuarterCohort{
		Quarter:  q.String(),
		Data:     []int{},
		Outliers: []int{},
		Size:     len(values),
	}
	if len(values) == 0 {
		return cohort
	}

	sorted := make([]int, len(values))
	copy(sorted, values)
	slices.Sort(sorted)

	floats := make([]float64, len(sorted))
	for i, v := range sorted {
		floats[i] = float64(v)
	}

	q1 := quantile(floats, 25)
	q3 := quantile(floats, 75)
	iqr := q3 - q1
	lower := q1 - 1.5*iqr
	upper := q3 + 1.5*iqr

	for _, v := range sorted {
		if float64(v) < lower || float64(v) > upper {
			cohort.Outliers = append(cohort.Outliers, v)
		} else {
			cohort.Data = append(cohort.Data, v)
		}
	}

	if len(cohort.Data) > 0 {
		inliers := make([]float64, len(cohort.Data))
		for i, v := range cohort.Data {
			inliers[i] = float64(v)
		}
		cohort.Stats = CohortStats{
			Min:    inliers[0],
			Q1:     quantile(inliers, 25),
			Median: quantile(inliers, 50),
			Q3:     quantile(inliers, 75),
			Max:    inliers[len(inliers)-1],
			Mean:   meanInts(cohort.Data),
		}
	}
	return cohort
}
