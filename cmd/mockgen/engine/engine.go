// Package engine generates synthetic issue change histories for offline
// evaluation of the cycle-time pipeline.
package engine

import (
	"bufio"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"dcycle/internal/tracker"
)

type GeneratorConfig struct {
	Scenario string // "smooth", "stalled" or "churn"
	Count    int
	Seed     int64
	Now      time.Time
}

const (
	statusInbox      = "00 Inbox"
	statusCommitted  = "01 Committed"
	statusGenerative = "02 Generative Discovery"
	statusProblem    = "03 Problem Discovery"
	statusSolution   = "04 Solution Discovery"
	statusBuild      = "06 Build"
	statusLive       = "08 Live"
	statusWontDo     = "Won't Do"
)

// Generate builds Count issues whose histories follow the chosen scenario:
// smooth runs discovery without pauses, stalled inserts On Hold and Committed
// spans, churn bounces between discovery statuses and sometimes abandons.
func Generate(cfg GeneratorConfig) []tracker.FileIssue {
	if cfg.Now.IsZero() {
		cfg.Now = time.Now()
	}
	rng := rand.New(rand.NewSource(cfg.Seed))

	var issues []tracker.FileIssue

	// Spread arrivals so completions land across several quarters.
	tArrival := cfg.Now.AddDate(0, 0, -cfg.Count*2)

	for i := 0; i < cfg.Count; i++ {
		key := fmt.Sprintf("MOCK-%d", i+1)
		arrival := tArrival.Add(time.Duration(i*48) * time.Hour)

		var records []tracker.ChangeRecord
		switch cfg.Scenario {
		case "stalled":
			records = stalledHistory(rng, arrival, cfg.Now)
		case "churn":
			records = churnHistory(rng, arrival, cfg.Now)
		default:
			records = smoothHistory(rng, arrival, cfg.Now)
		}

		issues = append(issues, tracker.FileIssue{
			Key:     key,
			Summary: fmt.Sprintf("Synthetic issue %d (%s)", i+1, cfg.Scenario),
			Status:  finalStatus(records),
			Records: records,
		})
	}
	return issues
}

func statusChange(ts time.Time, from, to string) tracker.ChangeRecord {
	return tracker.ChangeRecord{
		Timestamp: ts,
		Author:    "mockgen",
		Changes:   []tracker.FieldChange{{Field: "status", From: from, To: to}},
	}
}

func healthChange(ts time.Time, from, to string) tracker.ChangeRecord {
	return tracker.ChangeRecord{
		Timestamp: ts,
		Author:    "mockgen",
		Changes:   []tracker.FieldChange{{Field: "health", From: from, To: to}},
	}
}

// smoothHistory: Inbox -> Generative -> Problem -> Solution -> Build in
// 10-30 days, no pauses.
func smoothHistory(rng *rand.Rand, arrival, now time.Time) []tracker.ChangeRecord {
	duration := 10 + rng.Float64()*20
	records := []tracker.ChangeRecord{
		statusChange(arrival, statusInbox, statusGenerative),
	}

	tProblem := arrival.Add(days(duration * 0.3))
	tSolution := arrival.Add(days(duration * 0.6))
	tBuild := arrival.Add(days(duration))

	if tProblem.Before(now) {
		records = append(records, statusChange(tProblem, statusGenerative, statusProblem))
	}
	if tSolution.Before(now) {
		records = append(records, statusChange(tSolution, statusProblem, statusSolution))
	}
	if tBuild.Before(now) {
		records = append(records, statusChange(tBuild, statusSolution, statusBuild))
		if tLive := tBuild.Add(days(20)); tLive.Before(now) {
			records = append(records, statusChange(tLive, statusBuild, statusLive))
		}
	}
	return records
}

// stalledHistory inserts an On Hold span and a Committed parking span inside
// discovery, stretching the calendar time well past the active time.
func stalledHistory(rng *rand.Rand, arrival, now time.Time) []tracker.ChangeRecord {
	activeDays := 8 + rng.Float64()*10
	holdDays := 5 + rng.Float64()*20
	parkedDays := 4 + rng.Float64()*12

	t := arrival
	records := []tracker.ChangeRecord{
		statusChange(t, statusInbox, statusGenerative),
	}

	t = t.Add(days(activeDays * 0.4))
	if t.Before(now) {
		records = append(records, healthChange(t, "On Track", "On Hold"))
	}
	t = t.Add(days(holdDays))
	if t.Before(now) {
		records = append(records, healthChange(t, "On Hold", "On Track"))
	}

	t = t.Add(days(activeDays * 0.3))
	if t.Before(now) {
		records = append(records, statusChange(t, statusGenerative, statusCommitted))
	}
	t = t.Add(days(parkedDays))
	if t.Before(now) {
		records = append(records, statusChange(t, statusCommitted, statusSolution))
	}

	t = t.Add(days(activeDays * 0.3))
	if t.Before(now) {
		records = append(records, statusChange(t, statusSolution, statusBuild))
	}
	return records
}

// churnHistory bounces between discovery statuses; 30% of issues end Won't Do.
func churnHistory(rng *rand.Rand, arrival, now time.Time) []tracker.ChangeRecord {
	t := arrival
	records := []tracker.ChangeRecord{
		statusChange(t, statusInbox, statusProblem),
	}

	current := statusProblem
	hops := 2 + rng.Intn(5)
	pool := []string{statusGenerative, statusProblem, statusSolution}
	for i := 0; i < hops; i++ {
		t = t.Add(days(2 + rng.Float64()*8))
		if !t.Before(now) {
			return records
		}
		next := pool[rng.Intn(len(pool))]
		if next == current {
			continue
		}
		records = append(records, statusChange(t, current, next))
		current = next
	}

	t = t.Add(days(3 + rng.Float64()*10))
	if t.Before(now) {
		if rng.Float64() < 0.3 {
			records = append(records, statusChange(t, current, statusWontDo))
		} else {
			records = append(records, statusChange(t, current, statusBuild))
		}
	}
	return records
}

func finalStatus(records []tracker.ChangeRecord) string {
	status := statusInbox
	for _, rec := range records {
		for _, ch := range rec.Changes {
			if ch.Field == "status" {
				status = ch.To
			}
		}
	}
	return status
}

func days(d float64) time.Duration {
	return time.Duration(d * 24 * float64(time.Hour))
}

// Save writes the issues as a JSONL snapshot readable by the file client.
func Save(outPath string, issues []tracker.FileIssue) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
		return err
	}

	f, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for _, issue := range issues {
		if err := enc.Encode(issue); err != nil {
			return err
		}
	}
	return w.Flush()
}
