package tracker

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
)

// FileIssue is one line of a JSONL snapshot: an issue plus its full change
// history. cmd/mockgen emits this format.
type FileIssue struct {
	Key     string         `json:"key"`
	Summary string         `json:"summary,omitempty"`
	Status  string         `json:"status,omitempty"`
	Records []ChangeRecord `json:"records"`
}

// FileClient serves issues and change histories from a JSONL snapshot file.
// It exists for offline evaluation and tests; no network involved.
type FileClient struct {
	issues    []Issue
	histories map[string][]ChangeRecord
}

var _ Client = (*FileClient)(nil)

// NewFileClient loads a JSONL snapshot. Invalid lines are skipped and logged.
func NewFileClient(path string) (*FileClient, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer file.Close()

	fc := &FileClient{histories: make(map[string][]ChangeRecord)}
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		var fi FileIssue
		if err := json.Unmarshal(scanner.Bytes(), &fi); err != nil {
			log.Warn().Err(err).Msg("Skipping invalid JSON line in snapshot")
			continue
		}
		fc.issues = append(fc.issues, Issue{
			Key:     fi.Key,
			Summary: fi.Summary,
			Status:  fi.Status,
		})
		fc.histories[fi.Key] = fi.Records
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading snapshot: %w", err)
	}

	log.Info().Str("path", path).Int("issues", len(fc.issues)).Msg("Loaded tracker snapshot")
	return fc, nil
}

// SearchIssues returns a page of the snapshot's issues. The query is ignored;
// a snapshot already is the result set.
func (fc *FileClient) SearchIssues(_ context.Context, _ string, startAt, maxResults int) ([]Issue, int, error) {
	total := len(fc.issues)
	if startAt >= total {
		return nil, total, nil
	}
	end := startAt + maxResults
	if end > total {
		end = total
	}
	page := make([]Issue, end-startAt)
	copy(page, fc.issues[startAt:end])
	return page, total, nil
}

// ChangeHistory returns the recorded history for an issue.
func (fc *FileClient) ChangeHistory(_ context.Context, issueKey string) ([]ChangeRecord, error) {
	records, ok := fc.histories[issueKey]
	if !ok {
		return nil, fmt.Errorf("issue %s not found in snapshot", issueKey)
	}
	return records, nil
}
