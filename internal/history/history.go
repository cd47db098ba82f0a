// Package history records every RUN and STOP the robot handled.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Status values stored in the runs table.
const (
	StatusLoaded   = "loaded"
	StatusRejected = "rejected"
	StatusStopped  = "stopped"
)

// DefaultLimit and MaxLimit bound Recent.
const (
	DefaultLimit = 50
	MaxLimit     = 500
)

// timeLayout is fixed-width so created_at sorts correctly as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Run is one history entry.
type Run struct {
	ID         string    `json:"id"`
	RoutineID  string    `json:"routine_id,omitempty"`
	Status     string    `json:"status"`
	Error      string    `json:"error,omitempty"`
	ScriptSize int       `json:"script_size"`
	CreatedAt  time.Time `json:"created_at"`
}

// Repository persists run history.
type Repository interface {
	Insert(ctx context.Context, run Run) error
	Recent(ctx context.Context, limit int) ([]Run, error)
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a history repository over db.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Insert stores run.
func (r *SQLiteRepository) Insert(ctx context.Context, run Run) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO runs (id, routine_id, status, error, script_size, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.RoutineID, run.Status, run.Error, run.ScriptSize,
		run.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("inserting run %s: %w", run.ID, err)
	}
	return nil
}

// Recent returns up to limit runs, newest first. limit <= 0 selects
// DefaultLimit; larger values are capped at MaxLimit.
func (r *SQLiteRepository) Recent(ctx context.Context, limit int) ([]Run, error) {
	switch {
	case limit <= 0:
		limit = DefaultLimit
	case limit > MaxLimit:
		limit = MaxLimit
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, routine_id, status, error, script_size, created_at
		 FROM runs ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	result := []Run{}
	for rows.Next() {
		var run Run
		var created string
		if err := rows.Scan(&run.ID, &run.RoutineID, &run.Status, &run.Error, &run.ScriptSize, &created); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		run.CreatedAt, _ = time.Parse(time.RFC3339Nano, created) //nolint:errcheck // written by Insert
		result = append(result, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating runs: %w", err)
	}
	return result, nil
}
