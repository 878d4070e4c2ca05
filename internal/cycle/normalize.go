package cycle

import (
	"sort"

	"dcycle/internal/tracker"

	"github.com/rs/zerolog/log"
)

// Normalize extracts the status and health transition subsequences from a raw
// change history. Source order is not guaranteed ascending, so records are
// sorted by timestamp first. Records with an unusable timestamp are skipped
// and reported, never fatal.
func Normalize(issueKey string, records []tracker.ChangeRecord) ([]StatusTransition, []HealthTransition) {
	sorted := make([]tracker.ChangeRecord, 0, len(records))
	skipped := 0
	for _, rec := range records {
		if rec.Timestamp.IsZero() {
			skipped++
			continue
		}
		sorted = append(sorted, rec)
	}
	if skipped > 0 {
		log.Warn().Str("issue", issueKey).Int("skipped", skipped).
			Msg("Dropped change records with missing timestamps")
	}

	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	var statuses []StatusTransition
	var healths []HealthTransition
	for _, rec := range sorted {
		for _, change := range rec.Changes {
			switch change.Field {
			case "status":
				statuses = append(statuses, StatusTransition{
					Timestamp: rec.Timestamp,
					From:      change.From,
					To:        change.To,
				})
			case "health":
				healths = append(healths, HealthTransition{
					Timestamp: rec.Timestamp,
					From:      change.From,
					To:        change.To,
				})
			}
		}
	}
	return statuses, healths
}
