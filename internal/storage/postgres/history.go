package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/diceengine/internal/history"
)

// HistoryRepository persists roll history entries in the roll_history table.
type HistoryRepository struct {
	db *pgxpool.Pool
}

// NewHistoryRepository creates a HistoryRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool with the
// roll_history migration applied.
func NewHistoryRepository(db *pgxpool.Pool) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// Append inserts e.
//
// Precondition: e passes history.Entry.Validate.
// Postcondition: Returns the stored entry with ID and CreatedAt set,
// or an error wrapping history.ErrInvalidEntry or the database failure.
func (r *HistoryRepository) Append(ctx context.Context, e history.Entry) (history.Entry, error) {
	e, err := history.Prepare(e, time.Now())
	if err != nil {
		return history.Entry{}, err
	}

	var kind string
	err = r.db.QueryRow(ctx,
		`INSERT INTO roll_history (id, actor, kind, expression, summary, total, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, actor, kind, expression, summary, total, created_at`,
		e.ID, e.Actor, string(e.Kind), e.Expression, e.Summary, e.Total, e.CreatedAt,
	).Scan(&e.ID, &e.Actor, &kind, &e.Expression, &e.Summary, &e.Total, &e.CreatedAt)
	if err != nil {
		return history.Entry{}, fmt.Errorf("inserting history entry: %w", err)
	}
	e.Kind = history.Kind(kind)
	return e, nil
}

// Recent returns up to limit entries for actor, newest first.
//
// Postcondition: Returns an empty slice for a non-positive limit.
func (r *HistoryRepository) Recent(ctx context.Context, actor string, limit int) ([]history.Entry, error) {
	if limit <= 0 {
		return []history.Entry{}, nil
	}

	rows, err := r.db.Query(ctx,
		`SELECT id, actor, kind, expression, summary, total, created_at
		 FROM roll_history
		 WHERE actor = $1
		 ORDER BY created_at DESC
		 LIMIT $2`,
		actor, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}

	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (history.Entry, error) {
		var (
			e    history.Entry
			kind string
		)
		if err := row.Scan(&e.ID, &e.Actor, &kind, &e.Expression, &e.Summary, &e.Total, &e.CreatedAt); err != nil {
			return history.Entry{}, err
		}
		e.Kind = history.Kind(kind)
		return e, nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning history: %w", err)
	}
	return entries, nil
}
