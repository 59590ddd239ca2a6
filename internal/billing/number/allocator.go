// Package number allocates sequential, human-readable bill numbers of the
// form PREFIX-YYYYMMDD-NNNN. Sequences are scoped per prefix and calendar
// day and reserved atomically in Postgres, so the guarantee holds across
// process instances. Gaps are acceptable; repeats are not.
package number

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// MaxPerDay is the largest sequence the four-digit suffix can represent.
const MaxPerDay = 9999

// ErrExhausted indicates the daily sequence for a prefix is used up.
var ErrExhausted = errors.New("number: daily sequence exhausted")

// Allocator reserves the next bill number for a prefix and issue date.
type Allocator interface {
	Next(ctx context.Context, prefix string, issueDate time.Time) (string, error)
}

// Format renders a reserved sequence as a bill number.
func Format(prefix string, issueDate time.Time, seq int64) string {
	return fmt.Sprintf("%s-%s-%04d", prefix, issueDate.Format("20060102"), seq)
}

// PGAllocator reserves sequences via an atomic upsert on bill_sequences.
type PGAllocator struct {
	pool *pgxpool.Pool
}

// NewPGAllocator constructs a Postgres-backed allocator.
func NewPGAllocator(pool *pgxpool.Pool) *PGAllocator {
	return &PGAllocator{pool: pool}
}

// Next atomically increments and returns the sequence for (prefix, day).
// The INSERT .. ON CONFLICT DO UPDATE runs as a single statement, so two
// concurrent calls can never observe the same value.
func (a *PGAllocator) Next(ctx context.Context, prefix string, issueDate time.Time) (string, error) {
	var seq int64
	err := a.pool.QueryRow(ctx, `
		INSERT INTO bill_sequences (prefix, seq_date, last_value)
		VALUES ($1, $2, 1)
		ON CONFLICT (prefix, seq_date)
		DO UPDATE SET last_value = bill_sequences.last_value + 1
		RETURNING last_value`,
		prefix, issueDate.Format("2006-01-02"),
	).Scan(&seq)
	if err != nil {
		return "", fmt.Errorf("number: reserve sequence: %w", err)
	}
	if seq > MaxPerDay {
		return "", ErrExhausted
	}
	return Format(prefix, issueDate, seq), nil
}
