package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"dcycle/internal/cache"
	"dcycle/internal/cycle"
	"dcycle/internal/tracker"
)

// fakeClient serves canned issues and histories and counts fetches.
type fakeClient struct {
	mu        sync.Mutex
	issues    []tracker.Issue
	histories map[string][]tracker.ChangeRecord
	failKeys  map[string]bool

	historyCalls map[string]int
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		histories:    make(map[string][]tracker.ChangeRecord),
		failKeys:     make(map[string]bool),
		historyCalls: make(map[string]int),
	}
}

func (f *fakeClient) SearchIssues(_ context.Context, _ string, startAt, maxResults int) ([]tracker.Issue, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if startAt >= len(f.issues) {
		return nil, len(f.issues), nil
	}
	end := startAt + maxResults
	if end > len(f.issues) {
		end = len(f.issues)
	}
	return f.issues[startAt:end], len(f.issues), nil
}

func (f *fakeClient) ChangeHistory(_ context.Context, issueKey string) ([]tracker.ChangeRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.historyCalls[issueKey]++
	if f.failKeys[issueKey] {
		return nil, errors.New("tracker unavailable")
	}
	return f.histories[issueKey], nil
}

var testNow = time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC)

func statusRec(ts time.Time, from, to string) tracker.ChangeRecord {
	return tracker.ChangeRecord{
		Timestamp: ts,
		Changes:   []tracker.FieldChange{{Field: "status", From: from, To: to}},
	}
}

// buildHistory is a ten-day discovery cycle ending in a Build transition.
func buildHistory(start time.Time) []tracker.ChangeRecord {
	return []tracker.ChangeRecord{
		statusRec(start, "00 Inbox", "02 Generative Discovery"),
		statusRec(start.AddDate(0, 0, 10), "02 Generative Discovery", "06 Build"),
	}
}

func newTestOrchestrator(t *testing.T, client tracker.Client, options ...Option) (*Orchestrator, *cache.Store) {
	t.Helper()
	store, err := cache.Open(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("cache.Open failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	options = append([]Option{WithClock(func() time.Time { return testNow })}, options...)
	return New(client, store, "project = PROJ", cycle.DefaultOptions(), options...), store
}

func TestCycleInfoComputesOnMissAndCachesResult(t *testing.T) {
	client := newFakeClient()
	client.histories["PROJ-1"] = buildHistory(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC))
	o, _ := newTestOrchestrator(t, client)

	info, err := o.CycleInfo(context.Background(), "PROJ-1")
	if err != nil {
		t.Fatalf("CycleInfo failed: %v", err)
	}
	if info.EndLogic != cycle.LogicBuildTransition {
		t.Errorf("EndLogic = %q, want %q", info.EndLogic, cycle.LogicBuildTransition)
	}
	if info.CalendarDays == nil || *info.CalendarDays != 10 {
		t.Errorf("CalendarDays = %v, want 10", info.CalendarDays)
	}

	// Second call must be served from cache, but the memo was never part of a
	// bulk run, so assert via fetch count after a fresh call.
	o.clearMemo()
	if _, err := o.CycleInfo(context.Background(), "PROJ-1"); err != nil {
		t.Fatalf("second CycleInfo failed: %v", err)
	}
	if client.historyCalls["PROJ-1"] != 1 {
		t.Errorf("ChangeHistory called %d times, want 1", client.historyCalls["PROJ-1"])
	}
}

func TestCycleInfoPropagatesFetchError(t *testing.T) {
	client := newFakeClient()
	client.failKeys["PROJ-2"] = true
	o, _ := newTestOrchestrator(t, client)

	if _, err := o.CycleInfo(context.Background(), "PROJ-2"); err == nil {
		t.Fatal("expected error for unreachable issue, got nil")
	}
}

func TestInactivePeriodsFromCache(t *testing.T) {
	client := newFakeClient()
	start := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	client.histories["PROJ-3"] = []tracker.ChangeRecord{
		statusRec(start, "00 Inbox", "02 Generative Discovery"),
		statusRec(start.AddDate(0, 0, 2), "02 Generative Discovery", "01 Committed"),
		statusRec(start.AddDate(0, 0, 6), "01 Committed", "02 Generative Discovery"),
		statusRec(start.AddDate(0, 0, 10), "02 Generative Discovery", "06 Build"),
	}
	o, _ := newTestOrchestrator(t, client)

	periods, err := o.InactivePeriods(context.Background(), "PROJ-3")
	if err != nil {
		t.Fatalf("InactivePeriods failed: %v", err)
	}
	if len(periods) != 1 {
		t.Fatalf("got %d inactive periods, want 1", len(periods))
	}
	if !periods[0].Start.Equal(start.AddDate(0, 0, 2)) {
		t.Errorf("period start = %v, want %v", periods[0].Start, start.AddDate(0, 0, 2))
	}
}

func TestResyncPopulatesCacheAndCachesErrorSentinels(t *testing.T) {
	client := newFakeClient()
	client.issues = []tracker.Issue{{Key: "PROJ-1"}, {Key: "PROJ-2"}, {Key: "PROJ-3"}}
	start := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	client.histories["PROJ-1"] = buildHistory(start)
	client.histories["PROJ-3"] = buildHistory(start.AddDate(0, 1, 0))
	client.failKeys["PROJ-2"] = true

	o, store := newTestOrchestrator(t, client, WithBatchSize(2))

	summary, err := o.Resync(context.Background())
	if err != nil {
		t.Fatalf("Resync failed: %v", err)
	}
	if summary.Total != 3 || summary.Computed != 2 || summary.Failed != 1 {
		t.Errorf("summary = %+v, want Total 3 Computed 2 Failed 1", summary)
	}

	all, err := store.All()
	if err != nil {
		t.Fatalf("All failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("cache holds %d rows after resync, want 3", len(all))
	}

	rec, err := store.Get("PROJ-2")
	if err != nil {
		t.Fatalf("Get sentinel failed: %v", err)
	}
	if rec.Info.EndLogic != cycle.LogicError {
		t.Errorf("failed issue EndLogic = %q, want %q", rec.Info.EndLogic, cycle.LogicError)
	}
}

func TestResyncWipesStaleRows(t *testing.T) {
	client := newFakeClient()
	client.issues = []tracker.Issue{{Key: "PROJ-1"}}
	client.histories["PROJ-1"] = buildHistory(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC))

	o, store := newTestOrchestrator(t, client)
	stale := cache.Record{
		Info:         cycle.CycleInfo{IssueKey: "GONE-99", EndLogic: cycle.LogicNoDiscovery},
		CalculatedAt: testNow,
	}
	if err := store.Put(stale); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	if _, err := o.Resync(context.Background()); err != nil {
		t.Fatalf("Resync failed: %v", err)
	}
	if _, err := store.Get("GONE-99"); !errors.Is(err, cache.ErrNotFound) {
		t.Errorf("stale row survived resync: %v", err)
	}
}

func TestResyncClearsHistoryMemo(t *testing.T) {
	client := newFakeClient()
	client.issues = []tracker.Issue{{Key: "PROJ-1"}}
	client.histories["PROJ-1"] = buildHistory(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC))

	o, _ := newTestOrchestrator(t, client)
	if _, err := o.Resync(context.Background()); err != nil {
		t.Fatalf("Resync failed: %v", err)
	}

	o.mu.Lock()
	size := len(o.histories)
	o.mu.Unlock()
	if size != 0 {
		t.Errorf("history memo holds %d entries after resync, want 0", size)
	}
}

func TestCohortStats(t *testing.T) {
	client := newFakeClient()
	client.issues = []tracker.Issue{{Key: "PROJ-1"}, {Key: "PROJ-2"}}
	client.histories["PROJ-1"] = buildHistory(time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC))
	client.histories["PROJ-2"] = buildHistory(time.Date(2024, 2, 10, 9, 0, 0, 0, time.UTC))

	o, _ := newTestOrchestrator(t, client)
	if _, err := o.Resync(context.Background()); err != nil {
		t.Fatalf("Resync failed: %v", err)
	}

	cohorts, err := o.CohortStats(cycle.MetricCalendar, nil)
	if err != nil {
		t.Fatalf("CohortStats failed: %v", err)
	}
	if len(cohorts) != 1 {
		t.Fatalf("got %d cohorts, want 1", len(cohorts))
	}
	if cohorts[0].Quarter != "Q1_2024" {
		t.Errorf("cohort quarter = %s, want Q1_2024", cohorts[0].Quarter)
	}
	if cohorts[0].Size != 2 {
		t.Errorf("cohort size = %d, want 2", cohorts[0].Size)
	}

	filtered, err := o.CohortStats(cycle.MetricCalendar, map[string]bool{"PROJ-1": true})
	if err != nil {
		t.Fatalf("CohortStats with exclusion failed: %v", err)
	}
	if filtered[0].Size != 1 {
		t.Errorf("excluded cohort size = %d, want 1", filtered[0].Size)
	}
}

func TestQuarterDetailsBuildsAndCaches(t *testing.T) {
	client := newFakeClient()
	client.issues = []tracker.Issue{{Key: "PROJ-1"}}
	client.histories["PROJ-1"] = buildHistory(time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC))

	o, store := newTestOrchestrator(t, client)
	if _, err := o.Resync(context.Background()); err != nil {
		t.Fatalf("Resync failed: %v", err)
	}

	q := cycle.Quarter{Year: 2024, Q: 1}
	payload, err := o.QuarterDetails(q)
	if err != nil {
		t.Fatalf("QuarterDetails failed: %v", err)
	}

	var body struct {
		Quarter string            `json:"quarter"`
		Count   int               `json:"count"`
		Cycles  []cycle.CycleInfo `json:"cycles"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		t.Fatalf("payload decode failed: %v", err)
	}
	if body.Quarter != "Q1_2024" || body.Count != 1 {
		t.Errorf("payload = %+v, want Q1_2024 with one cycle", body)
	}

	// The rendered payload must now be served from the details cache.
	if _, err := store.QuarterDetails("Q1_2024"); err != nil {
		t.Errorf("details not cached after build: %v", err)
	}

	// Clearing the quarter invalidates both rows.
	if err := o.ClearQuarter(q); err != nil {
		t.Fatalf("ClearQuarter failed: %v", err)
	}
	if _, err := store.QuarterDetails("Q1_2024"); !errors.Is(err, cache.ErrNotFound) {
		t.Errorf("details survived ClearQuarter: %v", err)
	}
}
