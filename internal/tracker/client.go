// Package tracker talks to the upstream issue tracker and converts its wire
// payloads into the canonical change-history types used by the engine.
package tracker

import (
	"context"
	"time"
)

// FieldChange is a single field edit inside a change record.
type FieldChange struct {
	Field string `json:"field"`
	From  string `json:"from"`
	To    string `json:"to"`
}

// ChangeRecord is one historical edit event on an issue. Records are
// normalized at this boundary; downstream code never sees wire shapes.
type ChangeRecord struct {
	Timestamp time.Time     `json:"timestamp"`
	Author    string        `json:"author,omitempty"`
	Changes   []FieldChange `json:"changes"`
}

// Issue is the subset of issue data the dashboard needs.
type Issue struct {
	Key     string
	Summary string
	Status  string
	Health  string
	Created time.Time
	Updated time.Time
}

// Client is the interface for interacting with the issue tracker.
type Client interface {
	// SearchIssues returns one page of issues matching the query plus the
	// total match count for pagination.
	SearchIssues(ctx context.Context, query string, startAt, maxResults int) ([]Issue, int, error)
	// ChangeHistory returns the full change history for an issue. Order is
	// not guaranteed; callers must sort before processing.
	ChangeHistory(ctx context.Context, issueKey string) ([]ChangeRecord, error)
}

// Config holds the connection settings for the tracker.
type Config struct {
	BaseURL string
	Token   string

	// HealthField is the provider-specific field identifier carrying the
	// project health value ("On Track", "On Hold", ...).
	HealthField string

	// RequestDelay spaces out non-metadata requests to respect upstream
	// rate limits.
	RequestDelay time.Duration
}

// NewClient creates a tracker client for the provided configuration.
func NewClient(cfg Config) Client {
	return newHTTPClient(cfg)
}
