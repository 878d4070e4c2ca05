package mcp

import (
	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"
)

// GetCycleInfoInput selects one issue.
type GetCycleInfoInput struct {
	IssueKey string `json:"issue_key" jsonschema:"the issue key, e.g. PROJ-123"`
}

// ListCycleTimesInput filters the cached cycle list.
type ListCycleTimesInput struct {
	Quarter       string `json:"quarter,omitempty" jsonschema:"optional quarter filter in Q<n>_<year> form, e.g. Q1_2024"`
	CompletedOnly bool   `json:"completed_only,omitempty" jsonschema:"when true, only cycles with both boundary dates"`
}

// CohortStatsInput selects the metric and output shape.
type CohortStatsInput struct {
	Metric         string   `json:"metric,omitempty" jsonschema:"calendar (default) or active"`
	ExcludeKeys    []string `json:"exclude_keys,omitempty" jsonschema:"issue keys to leave out of the cohorts"`
	IncludeCharts  bool     `json:"include_charts,omitempty" jsonschema:"append Mermaid charts to the response"`
	IncludeDetails bool     `json:"include_details,omitempty" jsonschema:"include the raw per-cohort data series"`
}

// ClearCacheInput scopes a cache wipe.
type ClearCacheInput struct {
	IssueKey string `json:"issue_key,omitempty" jsonschema:"clear just this issue"`
	Quarter  string `json:"quarter,omitempty" jsonschema:"clear just this quarter, Q<n>_<year> form"`
}

// RefreshIssuesInput has no parameters; the query comes from configuration.
type RefreshIssuesInput struct{}

func (s *Server) registerTools() {
	// Schemas are derived from the input structs; a derivation failure is a
	// programming error, so fail loudly at startup.
	cycleInfoSchema, err := jsonschema.For[GetCycleInfoInput](nil)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to derive tool input schema")
	}

	mcp.AddTool(s.impl, &mcp.Tool{
		Name: "get_cycle_info",
		Description: "Get the discovery cycle time for a single issue: discovery start and end dates, " +
			"the rule that determined the end date, calendar days, active days and inactive periods. " +
			"Served from cache when available; computed from the issue's change history otherwise.",
		InputSchema: cycleInfoSchema,
	}, s.handleGetCycleInfo)

	mcp.AddTool(s.impl, &mcp.Tool{
		Name: "list_cycle_times",
		Description: "List cached discovery cycle times across all issues, optionally filtered to one " +
			"quarter or to completed cycles only. Run refresh_issues first if the cache is stale or empty.",
	}, s.handleListCycleTimes)

	mcp.AddTool(s.impl, &mcp.Tool{
		Name: "cohort_stats",
		Description: "Group completed discovery cycles into quarter cohorts and report box-plot statistics " +
			"(min, Q1, median, Q3, max, mean) per quarter, with 1.5*IQR outliers listed separately. " +
			"Metric is 'calendar' or 'active' days. Optionally renders Mermaid charts.",
	}, s.handleCohortStats)

	mcp.AddTool(s.impl, &mcp.Tool{
		Name: "refresh_issues",
		Description: "Wipe the cycle-time cache and recompute every issue matched by the configured query. " +
			"Slow on large projects; the tracker is throttled between requests.",
	}, s.handleRefreshIssues)

	mcp.AddTool(s.impl, &mcp.Tool{
		Name: "clear_cache",
		Description: "Clear cached cycle times. With no arguments clears everything; pass issue_key or " +
			"quarter to scope the wipe.",
	}, s.handleClearCache)
}
