package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const createPayment = `
INSERT INTO payments (order_id, shift_id, method, amount, created_by)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, order_id, shift_id, method, amount, created_by, created_at
`

type CreatePaymentParams struct {
	OrderID   uuid.UUID
	ShiftID   uuid.UUID
	Method    string
	Amount    pgtype.Numeric
	CreatedBy uuid.UUID
}

func (q *Queries) CreatePayment(ctx context.Context, arg CreatePaymentParams) (Payment, error) {
	var p Payment
	err := q.db.QueryRow(ctx, createPayment,
		arg.OrderID, arg.ShiftID, arg.Method, arg.Amount, arg.CreatedBy,
	).Scan(&p.ID, &p.OrderID, &p.ShiftID, &p.Method, &p.Amount, &p.CreatedBy, &p.CreatedAt)
	return p, err
}

const listPaymentsByOrder = `
SELECT id, order_id, shift_id, method, amount, created_by, created_at
FROM payments WHERE order_id = $1 ORDER BY created_at
`

func (q *Queries) ListPaymentsByOrder(ctx context.Context, orderID uuid.UUID) ([]Payment, error) {
	rows, err := q.db.Query(ctx, listPaymentsByOrder, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var payments []Payment
	for rows.Next() {
		var p Payment
		if err := rows.Scan(&p.ID, &p.OrderID, &p.ShiftID, &p.Method, &p.Amount,
			&p.CreatedBy, &p.CreatedAt); err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

const sumPaymentsByOrder = `
SELECT COALESCE(SUM(amount), 0) FROM payments WHERE order_id = $1
`

func (q *Queries) SumPaymentsByOrder(ctx context.Context, orderID uuid.UUID) (pgtype.Numeric, error) {
	var sum pgtype.Numeric
	err := q.db.QueryRow(ctx, sumPaymentsByOrder, orderID).Scan(&sum)
	return sum, err
}

const deletePaymentsByOrder = `
DELETE FROM payments WHERE order_id = $1
`

func (q *Queries) DeletePaymentsByOrder(ctx context.Context, orderID uuid.UUID) (int64, error) {
	tag, err := q.db.Exec(ctx, deletePaymentsByOrder, orderID)
	return tag.RowsAffected(), err
}
