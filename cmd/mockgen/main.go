package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"dcycle/cmd/mockgen/engine"
)

func main() {
	scenario := flag.String("scenario", "smooth", "Scenario to generate: smooth, stalled, churn")
	out := flag.String("out", "./.cache/snapshot.jsonl", "Output snapshot path")
	count := flag.Int("count", 100, "Number of issues to generate")
	seed := flag.Int64("seed", time.Now().UnixNano(), "Random seed")
	flag.Parse()

	cfg := engine.GeneratorConfig{
		Scenario: *scenario,
		Count:    *count,
		Seed:     *seed,
		Now:      time.Now(),
	}

	fmt.Printf("Generating scenario '%s' (Count: %d) to %s...\n", cfg.Scenario, cfg.Count, *out)

	issues := engine.Generate(cfg)
	if err := engine.Save(*out, issues); err != nil {
		fmt.Printf("Failed to save snapshot: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Done.")
}
