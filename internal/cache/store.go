// Package cache persists computed cycle info in a local SQLite database.
package cache

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"dcycle/internal/cycle"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite" // pure-Go SQLite driver
)

// ErrNotFound is returned when no cache row exists for an issue.
var ErrNotFound = errors.New("cache: issue not found")

// Record is one cached engine result plus its bookkeeping columns.
type Record struct {
	Info            cycle.CycleInfo
	InactivePeriods []cycle.InactivePeriod
	CalculatedAt    time.Time
}

// Store is the persistent cycle-time cache, keyed by issue identifier.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the cache database at the given path.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache db at %q: %w", dbPath, err)
	}
	// One writer avoids "database is locked" under concurrent batch writes.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS cycle_cache (
		issue_key TEXT PRIMARY KEY,
		start_date TIMESTAMP,
		end_date TIMESTAMP,
		end_logic TEXT NOT NULL,
		calendar_days INTEGER,
		active_days INTEGER,
		inactive_periods TEXT,
		calculated_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS quarter_details (
		quarter TEXT PRIMARY KEY,
		payload TEXT NOT NULL,
		calculated_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_cycle_cache_end_date ON cycle_cache(end_date);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create cache schema: %w", err)
	}
	return nil
}

// Put inserts or replaces the cache row for an issue.
func (s *Store) Put(rec Record) error {
	periodsJSON, err := json.Marshal(rec.InactivePeriods)
	if err != nil {
		return fmt.Errorf("failed to encode inactive periods: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO cycle_cache
			(issue_key, start_date, end_date, end_logic, calendar_days, active_days, inactive_periods, calculated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (issue_key) DO UPDATE SET
			start_date = excluded.start_date,
			end_date = excluded.end_date,
			end_logic = excluded.end_logic,
			calendar_days = excluded.calendar_days,
			active_days = excluded.active_days,
			inactive_periods = excluded.inactive_periods,
			calculated_at = excluded.calculated_at`,
		rec.Info.IssueKey,
		nullableTime(rec.Info.DiscoveryStart),
		nullableTime(rec.Info.DiscoveryEnd),
		string(rec.Info.EndLogic),
		nullableInt(rec.Info.CalendarDays),
		nullableInt(rec.Info.ActiveDays),
		string(periodsJSON),
		rec.CalculatedAt,
	)
	return err
}

// Get returns the cache row for an issue, or ErrNotFound.
func (s *Store) Get(issueKey string) (Record, error) {
	row := s.db.QueryRow(`
		SELECT issue_key, start_date, end_date, end_logic, calendar_days, active_days, inactive_periods, calculated_at
		FROM cycle_cache WHERE issue_key = ?`, issueKey)

	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	return rec, err
}

// All returns every cached row.
func (s *Store) All() ([]Record, error) {
	rows, err := s.db.Query(`
		SELECT issue_key, start_date, end_date, end_logic, calendar_days, active_days, inactive_periods, calculated_at
		FROM cycle_cache ORDER BY issue_key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// ClearAll wipes the cycle cache and the per-quarter details cache together.
// Clearing only one would let them disagree.
func (s *Store) ClearAll() error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM cycle_cache`); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM quarter_details`); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	log.Info().Msg("Cleared cycle-time cache")
	return nil
}

// ClearIssue removes the cache row for one issue.
func (s *Store) ClearIssue(issueKey string) error {
	_, err := s.db.Exec(`DELETE FROM cycle_cache WHERE issue_key = ?`, issueKey)
	return err
}

// ClearQuarter removes all rows whose completion date falls inside the given
// quarter, plus that quarter's details cache entry.
func (s *Store) ClearQuarter(q cycle.Quarter) error {
	start := time.Date(q.Year, time.Month((q.Q-1)*3+1), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 3, 0)

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM cycle_cache WHERE end_date >= ? AND end_date < ?`, start, end); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM quarter_details WHERE quarter = ?`, q.String()); err != nil {
		return err
	}
	return tx.Commit()
}

// PutQuarterDetails caches a rendered per-quarter details payload.
func (s *Store) PutQuarterDetails(quarter string, payload []byte) error {
	_, err := s.db.Exec(`
		INSERT INTO quarter_details (quarter, payload, calculated_at) VALUES (?, ?, ?)
		ON CONFLICT (quarter) DO UPDATE SET
			payload = excluded.payload,
			calculated_at = excluded.calculated_at`,
		quarter, string(payload), time.Now().UTC())
	return err
}

// QuarterDetails returns the cached payload for a quarter, or ErrNotFound.
func (s *Store) QuarterDetails(quarter string) ([]byte, error) {
	var payload string
	err := s.db.QueryRow(`SELECT payload FROM quarter_details WHERE quarter = ?`, quarter).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return []byte(payload), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (Record, error) {
	var rec Record
	var start, end sql.NullTime
	var calendar, active sql.NullInt64
	var logic, periodsJSON string

	if err := row.Scan(&rec.Info.IssueKey, &start, &end, &logic, &calendar, &active, &periodsJSON, &rec.CalculatedAt); err != nil {
		return Record{}, err
	}

	rec.Info.EndLogic = cycle.EndDateLogic(logic)
	if start.Valid {
		t := start.Time
		rec.Info.DiscoveryStart = &t
	}
	if end.Valid {
		t := end.Time
		rec.Info.DiscoveryEnd = &t
	}
	if calendar.Valid {
		v := int(calendar.Int64)
		rec.Info.CalendarDays = &v
	}
	if active.Valid {
		v := int(active.Int64)
		rec.Info.ActiveDays = &v
	}
	if periodsJSON != "" && periodsJSON != "null" {
		if err := json.Unmarshal([]byte(periodsJSON), &rec.InactivePeriods); err != nil {
			return Record{}, fmt.Errorf("corrupt inactive periods for %s: %w", rec.Info.IssueKey, err)
		}
	}
	return rec, nil
}

func nullableTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return *t
}

func nullableInt(v *int) interface{} {
	if v == nil {
		return nil
	}
	return *v
}
