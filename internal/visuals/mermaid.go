// Package visuals renders cycle-time analytics as Mermaid text charts for
// clients that can display fenced mermaid blocks.
package visuals

import (
	"fmt"
	"math"
	"strings"

	"dcycle/internal/cycle"
)

// GenerateCohortBoxChart creates a Mermaid xychart-beta of the per-quarter
// distribution: median as a bar, Q1/Q3 and whiskers as lines.
func GenerateCohortBoxChart(cohorts []cycle.QuarterCohort, metric cycle.Metric) string {
	if len(cohorts) == 0 {
		return ""
	}

	var labels []string
	var medians []string
	var q1s []string
	var q3s []string
	var maxes []string

	maxY := 0.0
	for _, c := range cohorts {
		labels = append(labels, fmt.Sprintf("\"%s\"", c.Quarter))
		medians = append(medians, fmt.Sprintf("%.1f", c.Stats.Median))
		q1s = append(q1s, fmt.Sprintf("%.1f", c.Stats.Q1))
		q3s = append(q3s, fmt.Sprintf("%.1f", c.Stats.Q3))
		maxes = append(maxes, fmt.Sprintf("%.1f", c.Stats.Max))
		if c.Stats.Max > maxY {
			maxY = c.Stats.Max
		}
	}

	title := "Discovery Cycle Time by Quarter (Calendar Days)"
	if metric == cycle.MetricActive {
		title = "Discovery Cycle Time by Quarter (Active Days)"
	}

	var sb strings.Builder
	sb.WriteString("```mermaid\n")
	sb.WriteString("xychart-beta\n")
	sb.WriteString(fmt.Sprintf("    title \"%s\"\n", title))
	sb.WriteString(fmt.Sprintf("    x-axis [%s]\n", strings.Join(labels, ", ")))
	sb.WriteString(fmt.Sprintf("    y-axis \"Days\" 0 --> %d\n", int(math.Ceil(maxY*1.2))+1))
	sb.WriteString(fmt.Sprintf("    bar [%s]\n", strings.Join(medians, ", ")))
	sb.WriteString(fmt.Sprintf("    line [%s]\n", strings.Join(q1s, ", ")))
	sb.WriteString(fmt.Sprintf("    line [%s]\n", strings.Join(q3s, ", ")))
	sb.WriteString(fmt.Sprintf("    line [%s]\n", strings.Join(maxes, ", ")))
	sb.WriteString("```")
	return sb.String()
}

// GenerateTrendChart creates a Mermaid line chart of mean and median cycle
// time across quarters.
func GenerateTrendChart(cohorts []cycle.QuarterCohort) string {
	if len(cohorts) == 0 {
		return ""
	}

	var labels []string
	var means []string
	var medians []string

	maxY := 0.0
	for _, c := range cohorts {
		labels = append(labels, fmt.Sprintf("\"%s\"", c.Quarter))
		means = append(means, fmt.Sprintf("%.1f", c.Stats.Mean))
		medians = append(medians, fmt.Sprintf("%.1f", c.Stats.Median))
		if c.Stats.Mean > maxY {
			maxY = c.Stats.Mean
		}
		if c.Stats.Median > maxY {
			maxY = c.Stats.Median
		}
	}

	var sb strings.Builder
	sb.WriteString("```mermaid\n")
	sb.WriteString("xychart-beta\n")
	sb.WriteString("    title \"Cycle Time Trend (Mean vs Median)\"\n")
	sb.WriteString(fmt.Sprintf("    x-axis [%s]\n", strings.Join(labels, ", ")))
	sb.WriteString(fmt.Sprintf("    y-axis \"Days\" 0 --> %d\n", int(math.Ceil(maxY*1.2))+1))
	sb.WriteString(fmt.Sprintf("    line [%s]\n", strings.Join(means, ", ")))
	sb.WriteString(fmt.Sprintf("    line [%s]\n", strings.Join(medians, ", ")))
	sb.WriteString("```")
	return sb.String()
}

// GenerateCohortSizeChart creates a Mermaid bar chart of how many cycles
// completed in each quarter, outliers included.
func GenerateCohortSizeChart(cohorts []cycle.QuarterCohort) string {
	if len(cohorts) == 0 {
		return ""
	}

	var labels []string
	var values []string
	maxVal := 0
	for _, c := range cohorts {
		labels = append(labels, fmt.Sprintf("\"%s\"", c.Quarter))
		values = append(values, fmt.Sprintf("%d", c.Size))
		if c.Size > maxVal {
			maxVal = c.Size
		}
	}

	var sb strings.Builder
	sb.WriteString("```mermaid\n")
	sb.WriteString("xychart-beta\n")
	sb.WriteString("    title \"Completed Discovery Cycles per Quarter\"\n")
	sb.WriteString(fmt.Sprintf("    x-axis [%s]\n", strings.Join(labels, ", ")))
	sb.WriteString(fmt.Sprintf("    y-axis \"Cycles\" 0 --> %d\n", maxVal+int(math.Max(1, float64(maxVal)*0.2))))
	sb.WriteString(fmt.Sprintf("    bar [%s]\n", strings.Join(values, ", ")))
	sb.WriteString("```")
	return sb.String()
}

// GenerateInactivityGantt creates a Mermaid gantt chart of one issue's cycle,
// showing inactive spans against the overall discovery window.
func GenerateInactivityGantt(info cycle.CycleInfo, periods []cycle.InactivePeriod) string {
	if info.DiscoveryStart == nil || info.DiscoveryEnd == nil {
		return ""
	}

	const layout = "2006-01-02"
	var sb strings.Builder
	sb.WriteString("```mermaid\n")
	sb.WriteString("gantt\n")
	sb.WriteString(fmt.Sprintf("    title %s Discovery Cycle\n", info.IssueKey))
	sb.WriteString("    dateFormat YYYY-MM-DD\n")
	sb.WriteString("    section Cycle\n")
	sb.WriteString(fmt.Sprintf("    Discovery : %s, %s\n",
		info.DiscoveryStart.Format(layout), info.DiscoveryEnd.Format(layout)))

	if len(periods) > 0 {
		sb.WriteString("    section Inactive\n")
		for i, p := range periods {
			sb.WriteString(fmt.Sprintf("    Pause %d :crit, %s, %s\n",
				i+1, p.Start.Format(layout), p.End.Format(layout)))
		}
	}
	sb.WriteString("```")
	return sb.String()
}
