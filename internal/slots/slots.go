// Package slots stores the saved programs offered by the web editor.
//
// Slots are an ordered list of named program texts. The list is replaced as
// a whole; a fresh database is seeded with five empty slots.
package slots

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// MaxSlots bounds the number of slots a Replace may store.
const MaxSlots = 32

// ErrInvalidSlots is returned by Replace for an unusable slot list.
var ErrInvalidSlots = errors.New("slots: invalid slot list")

// Slot is one saved program.
type Slot struct {
	Name      string    `json:"name"`
	Data      string    `json:"data"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// Repository persists slots.
type Repository interface {
	List(ctx context.Context) ([]Slot, error)
	Replace(ctx context.Context, slots []Slot) error
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a slot repository over db.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// List returns the slots in position order.
func (r *SQLiteRepository) List(ctx context.Context) ([]Slot, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT name, data, updated_at FROM slots ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("querying slots: %w", err)
	}
	defer rows.Close()

	result := []Slot{}
	for rows.Next() {
		var s Slot
		var updated string
		if err := rows.Scan(&s.Name, &s.Data, &updated); err != nil {
			return nil, fmt.Errorf("scanning slot: %w", err)
		}
		s.UpdatedAt, _ = time.Parse(time.RFC3339, updated) //nolint:errcheck // written by Replace or the seed
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating slots: %w", err)
	}
	return result, nil
}

// Replace stores slots as the complete list.
func (r *SQLiteRepository) Replace(ctx context.Context, slots []Slot) error {
	if err := Validate(slots); err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx, `DELETE FROM slots`); err != nil {
		return fmt.Errorf("clearing slots: %w", err)
	}
	now := time.Now().UTC().Format(time.RFC3339)
	for i, s := range slots {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO slots (position, name, data, updated_at) VALUES (?, ?, ?, ?)`,
			i+1, strings.TrimSpace(s.Name), s.Data, now,
		); err != nil {
			return fmt.Errorf("inserting slot %d: %w", i+1, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing slots: %w", err)
	}
	return nil
}

// Validate checks a slot list before it is stored.
func Validate(slots []Slot) error {
	if len(slots) == 0 {
		return fmt.Errorf("%w: at least one slot is required", ErrInvalidSlots)
	}
	if len(slots) > MaxSlots {
		return fmt.Errorf("%w: at most %d slots", ErrInvalidSlots, MaxSlots)
	}
	for i, s := range slots {
		if strings.TrimSpace(s.Name) == "" {
			return fmt.Errorf("%w: slot %d has no name", ErrInvalidSlots, i+1)
		}
	}
	return nil
}
