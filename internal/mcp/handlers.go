package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"dcycle/internal/cycle"
	"dcycle/internal/visuals"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"
)

// CycleInfoResult is the payload for get_cycle_info.
type CycleInfoResult struct {
	cycle.CycleInfo
	InactivePeriods []cycle.InactivePeriod `json:"inactivePeriods"`
}

func (s *Server) handleGetCycleInfo(ctx context.Context, _ *mcp.CallToolRequest, input GetCycleInfoInput) (*mcp.CallToolResult, CycleInfoResult, error) {
	key := strings.TrimSpace(input.IssueKey)
	if key == "" {
		return nil, CycleInfoResult{}, fmt.Errorf("issue_key is required")
	}

	info, err := s.orch.CycleInfo(ctx, key)
	if err != nil {
		return nil, CycleInfoResult{}, err
	}
	periods, err := s.orch.InactivePeriods(ctx, key)
	if err != nil {
		log.Warn().Err(err).Str("issue", key).Msg("Inactive period lookup failed")
		periods = []cycle.InactivePeriod{}
	}
	if periods == nil {
		periods = []cycle.InactivePeriod{}
	}

	result := CycleInfoResult{CycleInfo: info, InactivePeriods: periods}
	return textResult(result), result, nil
}

// CycleListResult is the payload for list_cycle_times.
type CycleListResult struct {
	Count  int               `json:"count"`
	Cycles []cycle.CycleInfo `json:"cycles"`
}

func (s *Server) handleListCycleTimes(_ context.Context, _ *mcp.CallToolRequest, input ListCycleTimesInput) (*mcp.CallToolResult, CycleListResult, error) {
	records, err := s.orch.AllCached()
	if err != nil {
		return nil, CycleListResult{}, err
	}

	var quarterFilter *cycle.Quarter
	if input.Quarter != "" {
		q, err := cycle.ParseQuarter(input.Quarter)
		if err != nil {
			return nil, CycleListResult{}, err
		}
		quarterFilter = &q
	}

	cycles := make([]cycle.CycleInfo, 0, len(records))
	for _, info := range records {
		if input.CompletedOnly && !info.Completed() {
			continue
		}
		if quarterFilter != nil {
			if info.DiscoveryEnd == nil || cycle.QuarterOf(*info.DiscoveryEnd) != *quarterFilter {
				continue
			}
		}
		cycles = append(cycles, info)
	}

	result := CycleListResult{Count: len(cycles), Cycles: cycles}
	return textResult(result), result, nil
}

// CohortStatsResult is the payload for cohort_stats.
type CohortStatsResult struct {
	Metric  string                `json:"metric"`
	Cohorts []cycle.QuarterCohort `json:"cohorts"`
	Charts  []string              `json:"charts,omitempty"`
}

func (s *Server) handleCohortStats(_ context.Context, _ *mcp.CallToolRequest, input CohortStatsInput) (*mcp.CallToolResult, CohortStatsResult, error) {
	metric := cycle.MetricCalendar
	switch strings.ToLower(input.Metric) {
	case "", "calendar":
	case "active":
		metric = cycle.MetricActive
	default:
		return nil, CohortStatsResult{}, fmt.Errorf("unknown metric %q, want calendar or active", input.Metric)
	}

	var exclude map[string]bool
	if len(input.ExcludeKeys) > 0 {
		exclude = make(map[string]bool, len(input.ExcludeKeys))
		for _, key := range input.ExcludeKeys {
			exclude[strings.TrimSpace(key)] = true
		}
	}

	cohorts, err := s.orch.CohortStats(metric, exclude)
	if err != nil {
		return nil, CohortStatsResult{}, err
	}

	if !input.IncludeDetails {
		for i := range cohorts {
			cohorts[i].Data = nil
		}
	}

	result := CohortStatsResult{Metric: string(metric), Cohorts: cohorts}
	if input.IncludeCharts || s.cfg.EnableMermaidCharts {
		result.Charts = []string{
			visuals.GenerateCohortBoxChart(cohorts, metric),
			visuals.GenerateTrendChart(cohorts),
			visuals.GenerateCohortSizeChart(cohorts),
		}
	}
	return textResult(result), result, nil
}

// RefreshResult is the payload for refresh_issues.
type RefreshResult struct {
	Total    int    `json:"total"`
	Computed int    `json:"computed"`
	Failed   int    `json:"failed"`
	Duration string `json:"duration"`
}

func (s *Server) handleRefreshIssues(ctx context.Context, _ *mcp.CallToolRequest, _ RefreshIssuesInput) (*mcp.CallToolResult, RefreshResult, error) {
	summary, err := s.orch.Resync(ctx)
	if err != nil {
		return nil, RefreshResult{}, err
	}
	result := RefreshResult{
		Total:    summary.Total,
		Computed: summary.Computed,
		Failed:   summary.Failed,
		Duration: summary.Duration,
	}
	return textResult(result), result, nil
}

// ClearCacheResult is the payload for clear_cache.
type ClearCacheResult struct {
	Cleared string `json:"cleared"`
}

func (s *Server) handleClearCache(_ context.Context, _ *mcp.CallToolRequest, input ClearCacheInput) (*mcp.CallToolResult, ClearCacheResult, error) {
	var result ClearCacheResult
	switch {
	case input.IssueKey != "":
		if err := s.orch.ClearIssue(input.IssueKey); err != nil {
			return nil, ClearCacheResult{}, err
		}
		result.Cleared = input.IssueKey
	case input.Quarter != "":
		q, err := cycle.ParseQuarter(input.Quarter)
		if err != nil {
			return nil, ClearCacheResult{}, err
		}
		if err := s.orch.ClearQuarter(q); err != nil {
			return nil, ClearCacheResult{}, err
		}
		result.Cleared = q.String()
	default:
		if err := s.orch.ClearAll(); err != nil {
			return nil, ClearCacheResult{}, err
		}
		result.Cleared = "all"
	}
	return textResult(result), result, nil
}

// textResult mirrors the structured output as pretty JSON text for clients
// that only render content blocks.
func textResult(v any) *mcp.CallToolResult {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		data = []byte(fmt.Sprintf("%+v", v))
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}
}
