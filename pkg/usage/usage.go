// Package usage logs outbound places-provider calls to SQLite.
package usage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/nestfind/nestfind/pkg/models"
)

// Log records and queries provider calls.
type Log interface {
	// RecordCall stores one provider call.
	RecordCall(ctx context.Context, call models.ProviderCall) error
	// CountSince returns how many calls were made at or after since.
	CountSince(ctx context.Context, since time.Time) (int64, error)
	// Summary aggregates calls per endpoint at or after since.
	Summary(ctx context.Context, since time.Time) ([]models.UsageSummary, error)
	// Recent returns the latest calls, newest first.
	Recent(ctx context.Context, limit int) ([]models.ProviderCall, error)
	// Cleanup deletes calls older than before and reports how many.
	Cleanup(ctx context.Context, before time.Time) (int64, error)
	// Close releases resources.
	Close() error
}

// SQLiteLog implements Log with a SQLite database.
type SQLiteLog struct {
	db *sql.DB
}

const createCallsTable = `
CREATE TABLE IF NOT EXISTS provider_calls (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	endpoint TEXT NOT NULL,
	category TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL,
	latency_ms INTEGER NOT NULL,
	created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_calls_time ON provider_calls(created_at);
`

// New opens a SQLiteLog and runs auto-migration.
func New(dbPath string) (*SQLiteLog, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open usage db: %w", err)
	}

	if _, err := db.Exec(createCallsTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate usage db: %w", err)
	}

	return &SQLiteLog{db: db}, nil
}

// RecordCall stores a provider call.
func (l *SQLiteLog) RecordCall(ctx context.Context, call models.ProviderCall) error {
	if call.CreatedAt.IsZero() {
		call.CreatedAt = time.Now()
	}
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO provider_calls (endpoint, category, status, latency_ms, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		string(call.Endpoint), call.Category, call.Status, call.LatencyMs, call.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("record provider call: %w", err)
	}
	return nil
}

// CountSince returns the number of calls made at or after since.
func (l *SQLiteLog) CountSince(ctx context.Context, since time.Time) (int64, error) {
	var n int64
	err := l.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM provider_calls WHERE created_at >= ?`, since.UTC(),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count provider calls: %w", err)
	}
	return n, nil
}

// Summary returns per-endpoint call counts, error counts and mean latency.
func (l *SQLiteLog) Summary(ctx context.Context, since time.Time) ([]models.UsageSummary, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT endpoint, COUNT(*), SUM(CASE WHEN status = 'ok' THEN 0 ELSE 1 END), AVG(latency_ms)
		 FROM provider_calls WHERE created_at >= ?
		 GROUP BY endpoint ORDER BY endpoint`,
		since.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("usage summary: %w", err)
	}
	defer rows.Close()

	var summaries []models.UsageSummary
	for rows.Next() {
		var (
			s        models.UsageSummary
			endpoint string
		)
		if err := rows.Scan(&endpoint, &s.Calls, &s.Errors, &s.AvgLatency); err != nil {
			return nil, fmt.Errorf("scan usage summary: %w", err)
		}
		s.Endpoint = models.ProviderEndpoint(endpoint)
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

// Recent returns the latest calls, newest first.
func (l *SQLiteLog) Recent(ctx context.Context, limit int) ([]models.ProviderCall, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT id, endpoint, category, status, latency_ms, created_at
		 FROM provider_calls ORDER BY created_at DESC, id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("recent provider calls: %w", err)
	}
	defer rows.Close()

	var calls []models.ProviderCall
	for rows.Next() {
		var (
			c        models.ProviderCall
			endpoint string
		)
		if err := rows.Scan(&c.ID, &endpoint, &c.Category, &c.Status, &c.LatencyMs, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan provider call: %w", err)
		}
		c.Endpoint = models.ProviderEndpoint(endpoint)
		calls = append(calls, c)
	}
	return calls, rows.Err()
}

// Cleanup deletes calls recorded before the cutoff.
func (l *SQLiteLog) Cleanup(ctx context.Context, before time.Time) (int64, error) {
	res, err := l.db.ExecContext(ctx,
		`DELETE FROM provider_calls WHERE created_at < ?`, before.UTC())
	if err != nil {
		return 0, fmt.Errorf("cleanup provider calls: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("cleanup provider calls: %w", err)
	}
	return n, nil
}

// Close releases the database connection.
func (l *SQLiteLog) Close() error {
	return l.db.Close()
}
