// Package orchestrator coordinates the tracker client, the cycle engine and
// the persistent cache into the pipeline behind every analytics request.
package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"dcycle/internal/cache"
	"dcycle/internal/cycle"
	"dcycle/internal/tracker"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const (
	// defaultBatchSize is how many issues each resync page requests.
	defaultBatchSize = 50
	// defaultConcurrency bounds parallel changelog fetches within a batch.
	defaultConcurrency = 4
	// periodsTimeout bounds a single on-demand inactive-period derivation.
	periodsTimeout = 30 * time.Second
)

// Orchestrator answers cycle-time queries from cache, computing and caching
// on misses, and owns full resynchronization runs.
type Orchestrator struct {
	client tracker.Client
	store  *cache.Store
	query  string
	opts   cycle.Options
	now    func() time.Time

	batchSize   int
	concurrency int

	// histories memoizes raw changelogs for the duration of one bulk run so
	// the two per-issue derivations do not fetch twice. Wiped afterwards.
	mu        sync.Mutex
	histories map[string][]tracker.ChangeRecord
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// WithBatchSize overrides the resync page size.
func WithBatchSize(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.batchSize = n
		}
	}
}

// WithConcurrency overrides the per-batch fetch parallelism.
func WithConcurrency(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

// New creates an Orchestrator over the given tracker client and cache store.
// The query selects the issue population a resync walks.
func New(client tracker.Client, store *cache.Store, query string, opts cycle.Options, options ...Option) *Orchestrator {
	o := &Orchestrator{
		client:      client,
		store:       store,
		query:       query,
		opts:        opts,
		now:         time.Now,
		batchSize:   defaultBatchSize,
		concurrency: defaultConcurrency,
		histories:   make(map[string][]tracker.ChangeRecord),
	}
	for _, opt := range options {
		opt(o)
	}
	return o
}

// CycleInfo returns the cycle info for one issue, from cache when present.
// On a miss it fetches the changelog, runs the engine and persists the result.
func (o *Orchestrator) CycleInfo(ctx context.Context, issueKey string) (cycle.CycleInfo, error) {
	rec, err := o.store.Get(issueKey)
	if err == nil {
		return rec.Info, nil
	}
	if !errors.Is(err, cache.ErrNotFound) {
		return cycle.CycleInfo{}, fmt.Errorf("cache lookup for %s: %w", issueKey, err)
	}

	rec, err = o.compute(ctx, issueKey)
	if err != nil {
		return cycle.CycleInfo{}, err
	}
	return rec.Info, nil
}

// InactivePeriods returns the inactive spans inside an issue's cycle. The
// derivation is bounded by a timeout; on expiry it degrades to an empty list
// rather than failing the caller.
func (o *Orchestrator) InactivePeriods(ctx context.Context, issueKey string) ([]cycle.InactivePeriod, error) {
	rec, err := o.store.Get(issueKey)
	if err == nil {
		return rec.InactivePeriods, nil
	}
	if !errors.Is(err, cache.ErrNotFound) {
		return nil, fmt.Errorf("cache lookup for %s: %w", issueKey, err)
	}

	ctx, cancel := context.WithTimeout(ctx, periodsTimeout)
	defer cancel()

	rec, err = o.compute(ctx, issueKey)
	if errors.Is(err, context.DeadlineExceeded) {
		log.Warn().Str("issue", issueKey).Msg("Inactive period derivation timed out, returning empty set")
		return []cycle.InactivePeriod{}, nil
	}
	if err != nil {
		return nil, err
	}
	return rec.InactivePeriods, nil
}

// CohortStats groups every cached completed cycle into quarter cohorts for
// the given metric. Issues in exclude are left out of the cohorts entirely.
func (o *Orchestrator) CohortStats(metric cycle.Metric, exclude map[string]bool) ([]cycle.QuarterCohort, error) {
	infos, err := o.AllCached()
	if err != nil {
		return nil, err
	}
	return cycle.BuildQuarterCohorts(infos, metric, exclude), nil
}

// AllCached returns every cached cycle info.
func (o *Orchestrator) AllCached() ([]cycle.CycleInfo, error) {
	records, err := o.store.All()
	if err != nil {
		return nil, fmt.Errorf("failed to read cycle cache: %w", err)
	}
	infos := make([]cycle.CycleInfo, 0, len(records))
	for _, rec := range records {
		infos = append(infos, rec.Info)
	}
	return infos, nil
}

// ClearAll wipes the whole cache.
func (o *Orchestrator) ClearAll() error { return o.store.ClearAll() }

// ClearIssue drops one issue's cached result.
func (o *Orchestrator) ClearIssue(issueKey string) error { return o.store.ClearIssue(issueKey) }

// ClearQuarter drops cached results completed in the given quarter.
func (o *Orchestrator) ClearQuarter(q cycle.Quarter) error { return o.store.ClearQuarter(q) }

// QuarterDetails returns the detail payload for one quarter: every completed
// cycle whose end date falls inside it. The rendered payload is cached in the
// store and invalidated together with the cycle cache.
func (o *Orchestrator) QuarterDetails(q cycle.Quarter) ([]byte, error) {
	if payload, err := o.store.QuarterDetails(q.String()); err == nil {
		return payload, nil
	} else if !errors.Is(err, cache.ErrNotFound) {
		return nil, err
	}

	infos, err := o.AllCached()
	if err != nil {
		return nil, err
	}

	cycles := make([]cycle.CycleInfo, 0)
	for _, info := range infos {
		if info.Completed() && cycle.QuarterOf(*info.DiscoveryEnd) == q {
			cycles = append(cycles, info)
		}
	}

	payload, err := json.Marshal(struct {
		Quarter string            `json:"quarter"`
		Count   int               `json:"count"`
		Cycles  []cycle.CycleInfo `json:"cycles"`
	}{Quarter: q.String(), Count: len(cycles), Cycles: cycles})
	if err != nil {
		return nil, err
	}

	if err := o.store.PutQuarterDetails(q.String(), payload); err != nil {
		log.Warn().Err(err).Str("quarter", q.String()).Msg("Failed to cache quarter details")
	}
	return payload, nil
}

// ResyncSummary reports what a full resynchronization did.
type ResyncSummary struct {
	Total    int       `json:"total"`
	Computed int       `json:"computed"`
	Failed   int       `json:"failed"`
	Duration string    `json:"duration"`
	RanAt    time.Time `json:"ranAt"`
}

// Resync wipes the cache and recomputes every issue matched by the query.
// Issues whose history cannot be fetched are cached with the Error sentinel
// so one flaky issue never aborts the run.
func (o *Orchestrator) Resync(ctx context.Context) (ResyncSummary, error) {
	started := o.now()
	if err := o.store.ClearAll(); err != nil {
		return ResyncSummary{}, fmt.Errorf("failed to clear cache before resync: %w", err)
	}
	defer o.clearMemo()

	summary := ResyncSummary{RanAt: started}
	startAt := 0
	for {
		issues, total, err := o.client.SearchIssues(ctx, o.query, startAt, o.batchSize)
		if err != nil {
			return summary, fmt.Errorf("issue search failed at offset %d: %w", startAt, err)
		}
		if len(issues) == 0 {
			break
		}

		computed, failed := o.resyncBatch(ctx, issues)
		summary.Computed += computed
		summary.Failed += failed
		summary.Total = total

		startAt += len(issues)
		if startAt >= total {
			break
		}
		if err := ctx.Err(); err != nil {
			return summary, err
		}
	}

	summary.Duration = o.now().Sub(started).Round(time.Millisecond).String()
	log.Info().
		Int("total", summary.Total).
		Int("computed", summary.Computed).
		Int("failed", summary.Failed).
		Str("duration", summary.Duration).
		Msg("Resync complete")
	return summary, nil
}

// resyncBatch computes one page of issues with bounded parallelism. Fetch
// failures become Error sentinels instead of aborting the group, so the
// original ctx is passed through and goroutines never return an error.
func (o *Orchestrator) resyncBatch(ctx context.Context, issues []tracker.Issue) (computed, failed int) {
	var g errgroup.Group
	g.SetLimit(o.concurrency)

	var mu sync.Mutex
	for _, issue := range issues {
		g.Go(func() error {
			if _, err := o.compute(ctx, issue.Key); err != nil {
				log.Warn().Err(err).Str("issue", issue.Key).Msg("Falling back to error sentinel")
				info := cycle.ErrorInfo(issue.Key, o.now())
				if putErr := o.store.Put(cache.Record{Info: info, CalculatedAt: o.now()}); putErr != nil {
					log.Error().Err(putErr).Str("issue", issue.Key).Msg("Failed to cache error sentinel")
				}
				mu.Lock()
				failed++
				mu.Unlock()
				return nil
			}
			mu.Lock()
			computed++
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return computed, failed
}

// compute fetches (or recalls) an issue's changelog, runs the engine and
// persists the result.
func (o *Orchestrator) compute(ctx context.Context, issueKey string) (cache.Record, error) {
	records, err := o.history(ctx, issueKey)
	if err != nil {
		return cache.Record{}, err
	}

	info, periods := cycle.Compute(issueKey, records, o.now(), o.opts)
	rec := cache.Record{Info: info, InactivePeriods: periods, CalculatedAt: o.now()}
	if err := o.store.Put(rec); err != nil {
		return cache.Record{}, fmt.Errorf("failed to cache result for %s: %w", issueKey, err)
	}
	return rec, nil
}

func (o *Orchestrator) history(ctx context.Context, issueKey string) ([]tracker.ChangeRecord, error) {
	o.mu.Lock()
	records, ok := o.histories[issueKey]
	o.mu.Unlock()
	if ok {
		return records, nil
	}

	records, err := o.client.ChangeHistory(ctx, issueKey)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch change history for %s: %w", issueKey, err)
	}

	o.mu.Lock()
	o.histories[issueKey] = records
	o.mu.Unlock()
	return records, nil
}

func (o *Orchestrator) clearMemo() {
	o.mu.Lock()
	o.histories = make(map[string][]tracker.ChangeRecord)
	o.mu.Unlock()
}
