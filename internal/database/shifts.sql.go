package database

import (
	"context"

	"github.com/google/uuid"
)

const openShift = `
INSERT INTO shifts (opened_by) VALUES ($1)
RETURNING id, opened_by, opened_at, closed_at
`

func (q *Queries) OpenShift(ctx context.Context, openedBy uuid.UUID) (Shift, error) {
	var s Shift
	err := q.db.QueryRow(ctx, openShift, openedBy).Scan(&s.ID, &s.OpenedBy, &s.OpenedAt, &s.ClosedAt)
	return s, err
}

const getShift = `
SELECT id, opened_by, opened_at, closed_at FROM shifts WHERE id = $1
`

func (q *Queries) GetShift(ctx context.Context, id uuid.UUID) (Shift, error) {
	var s Shift
	err := q.db.QueryRow(ctx, getShift, id).Scan(&s.ID, &s.OpenedBy, &s.OpenedAt, &s.ClosedAt)
	return s, err
}

const getOpenShift = `
SELECT id, opened_by, opened_at, closed_at FROM shifts
WHERE closed_at IS NULL ORDER BY opened_at DESC LIMIT 1
`

func (q *Queries) GetOpenShift(ctx context.Context) (Shift, error) {
	var s Shift
	err := q.db.QueryRow(ctx, getOpenShift).Scan(&s.ID, &s.OpenedBy, &s.OpenedAt, &s.ClosedAt)
	return s, err
}

const closeShift = `
UPDATE shifts SET closed_at = now() WHERE id = $1 AND closed_at IS NULL
RETURNING id, opened_by, opened_at, closed_at
`

// CloseShift marks the shift closed; pgx.ErrNoRows means it was already closed
// or never existed.
func (q *Queries) CloseShift(ctx context.Context, id uuid.UUID) (Shift, error) {
	var s Shift
	err := q.db.QueryRow(ctx, closeShift, id).Scan(&s.ID, &s.OpenedBy, &s.OpenedAt, &s.ClosedAt)
	return s, err
}
