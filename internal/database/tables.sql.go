package database

import (
	"context"

	"github.com/google/uuid"
)

const getDineTable = `
SELECT table_number, order_id, updated_at FROM dine_tables WHERE table_number = $1
`

func (q *Queries) GetDineTable(ctx context.Context, tableNumber int32) (DineTable, error) {
	var t DineTable
	err := q.db.QueryRow(ctx, getDineTable, tableNumber).Scan(&t.TableNumber, &t.OrderID, &t.UpdatedAt)
	return t, err
}

const reserveDineTable = `
INSERT INTO dine_tables (table_number, order_id)
VALUES ($1, $2)
ON CONFLICT (table_number) DO UPDATE
	SET order_id = EXCLUDED.order_id, updated_at = now()
	WHERE dine_tables.order_id IS NULL
RETURNING table_number, order_id, updated_at
`

// ReserveDineTable assigns a table to an order in a single conditional write:
// the row is created on first use, and an existing row is only taken over when
// its order_id is null. pgx.ErrNoRows means the table is held by another order.
func (q *Queries) ReserveDineTable(ctx context.Context, tableNumber int32, orderID uuid.UUID) (DineTable, error) {
	var t DineTable
	err := q.db.QueryRow(ctx, reserveDineTable, tableNumber, orderID).
		Scan(&t.TableNumber, &t.OrderID, &t.UpdatedAt)
	return t, err
}

const freeDineTable = `
UPDATE dine_tables SET order_id = NULL, updated_at = now() WHERE table_number = $1
`

// FreeDineTable is idempotent; freeing an unknown or already-free table is a no-op.
func (q *Queries) FreeDineTable(ctx context.Context, tableNumber int32) error {
	_, err := q.db.Exec(ctx, freeDineTable, tableNumber)
	return err
}

const listDineTables = `
SELECT table_number, order_id, updated_at FROM dine_tables ORDER BY table_number
`

func (q *Queries) ListDineTables(ctx context.Context) ([]DineTable, error) {
	rows, err := q.db.Query(ctx, listDineTables)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var tables []DineTable
	for rows.Next() {
		var t DineTable
		if err := rows.Scan(&t.TableNumber, &t.OrderID, &t.UpdatedAt); err != nil {
			return nil, err
		}
		tables = append(tables, t)
	}
	return tables, rows.Err()
}
