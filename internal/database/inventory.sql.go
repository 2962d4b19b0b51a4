package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const createInventoryMovement = `
INSERT INTO inventory_movements (product_id, operation, quantity, reason, note, origin_kind, origin_id)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id, product_id, operation, quantity, reason, note, origin_kind, origin_id, created_at
`

type CreateInventoryMovementParams struct {
	ProductID  uuid.UUID
	Operation  string
	Quantity   pgtype.Numeric
	Reason     string
	Note       pgtype.Text
	OriginKind string
	OriginID   pgtype.UUID
}

func (q *Queries) CreateInventoryMovement(ctx context.Context, arg CreateInventoryMovementParams) (InventoryMovement, error) {
	var m InventoryMovement
	err := q.db.QueryRow(ctx, createInventoryMovement,
		arg.ProductID, arg.Operation, arg.Quantity, arg.Reason, arg.Note,
		arg.OriginKind, arg.OriginID,
	).Scan(&m.ID, &m.ProductID, &m.Operation, &m.Quantity, &m.Reason, &m.Note,
		&m.OriginKind, &m.OriginID, &m.CreatedAt)
	return m, err
}

const listInventoryMovements = `
SELECT id, product_id, operation, quantity, reason, note, origin_kind, origin_id, created_at
FROM inventory_movements
WHERE ($1::uuid IS NULL OR product_id = $1)
  AND ($2::text IS NULL OR reason = $2)
ORDER BY created_at DESC
LIMIT $3 OFFSET $4
`

type ListInventoryMovementsParams struct {
	ProductID pgtype.UUID
	Reason    pgtype.Text
	Limit     int32
	Offset    int32
}

func (q *Queries) ListInventoryMovements(ctx context.Context, arg ListInventoryMovementsParams) ([]InventoryMovement, error) {
	rows, err := q.db.Query(ctx, listInventoryMovements, arg.ProductID, arg.Reason, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var movements []InventoryMovement
	for rows.Next() {
		var m InventoryMovement
		if err := rows.Scan(&m.ID, &m.ProductID, &m.Operation, &m.Quantity, &m.Reason,
			&m.Note, &m.OriginKind, &m.OriginID, &m.CreatedAt); err != nil {
			return nil, err
		}
		movements = append(movements, m)
	}
	return movements, rows.Err()
}

// --- Daily rollups ---

const upsertMovementDay = `
INSERT INTO inventory_movement_days
	(product_id, day, start_qty, incoming, sales, return_sales, return_waste, end_qty)
VALUES ($1, $2, $3, $4, $5, $6, $7, $3 + $4 + $6 - $5 - $7)
ON CONFLICT (product_id, day) DO UPDATE SET
	incoming     = inventory_movement_days.incoming + EXCLUDED.incoming,
	sales        = inventory_movement_days.sales + EXCLUDED.sales,
	return_sales = inventory_movement_days.return_sales + EXCLUDED.return_sales,
	return_waste = inventory_movement_days.return_waste + EXCLUDED.return_waste,
	end_qty      = inventory_movement_days.end_qty
	               + EXCLUDED.incoming + EXCLUDED.return_sales
	               - EXCLUDED.sales - EXCLUDED.return_waste
WHERE inventory_movement_days.closed_at IS NULL
RETURNING product_id, day, start_qty, incoming, sales, return_sales, return_waste, end_qty, closed_at
`

type UpsertMovementDayParams struct {
	ProductID   uuid.UUID
	Day         pgtype.Date
	StartQty    pgtype.Numeric
	Incoming    pgtype.Numeric
	Sales       pgtype.Numeric
	ReturnSales pgtype.Numeric
	ReturnWaste pgtype.Numeric
}

// UpsertMovementDay folds one movement into the product's rollup for the day.
// pgx.ErrNoRows means the day was already closed for that product.
func (q *Queries) UpsertMovementDay(ctx context.Context, arg UpsertMovementDayParams) (InventoryMovementDay, error) {
	var d InventoryMovementDay
	err := q.db.QueryRow(ctx, upsertMovementDay,
		arg.ProductID, arg.Day, arg.StartQty, arg.Incoming, arg.Sales,
		arg.ReturnSales, arg.ReturnWaste,
	).Scan(&d.ProductID, &d.Day, &d.StartQty, &d.Incoming, &d.Sales,
		&d.ReturnSales, &d.ReturnWaste, &d.EndQty, &d.ClosedAt)
	return d, err
}

const listMovementDays = `
SELECT product_id, day, start_qty, incoming, sales, return_sales, return_waste, end_qty, closed_at
FROM inventory_movement_days WHERE day = $1 ORDER BY product_id
`

func (q *Queries) ListMovementDays(ctx context.Context, day pgtype.Date) ([]InventoryMovementDay, error) {
	rows, err := q.db.Query(ctx, listMovementDays, day)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var days []InventoryMovementDay
	for rows.Next() {
		var d InventoryMovementDay
		if err := rows.Scan(&d.ProductID, &d.Day, &d.StartQty, &d.Incoming, &d.Sales,
			&d.ReturnSales, &d.ReturnWaste, &d.EndQty, &d.ClosedAt); err != nil {
			return nil, err
		}
		days = append(days, d)
	}
	return days, rows.Err()
}

const closeMovementDay = `
UPDATE inventory_movement_days SET closed_at = now()
WHERE day = $1 AND closed_at IS NULL
`

// CloseMovementDay finalizes every product rollup for the day. Closed rows
// reject further movement upserts.
func (q *Queries) CloseMovementDay(ctx context.Context, day pgtype.Date) (int64, error) {
	tag, err := q.db.Exec(ctx, closeMovementDay, day)
	return tag.RowsAffected(), err
}

// --- Stock adjustment outbox ---

const createStockOutboxEntry = `
INSERT INTO stock_adjustment_outbox (order_id, operation, items, last_error)
VALUES ($1, $2, $3, $4)
RETURNING id, order_id, operation, items, last_error, created_at, retried_at
`

type CreateStockOutboxEntryParams struct {
	OrderID   uuid.UUID
	Operation string
	Items     []byte
	LastError string
}

func (q *Queries) CreateStockOutboxEntry(ctx context.Context, arg CreateStockOutboxEntryParams) (StockAdjustmentOutbox, error) {
	var e StockAdjustmentOutbox
	err := q.db.QueryRow(ctx, createStockOutboxEntry,
		arg.OrderID, arg.Operation, arg.Items, arg.LastError,
	).Scan(&e.ID, &e.OrderID, &e.Operation, &e.Items, &e.LastError, &e.CreatedAt, &e.RetriedAt)
	return e, err
}

const listPendingStockOutbox = `
SELECT id, order_id, operation, items, last_error, created_at, retried_at
FROM stock_adjustment_outbox WHERE retried_at IS NULL ORDER BY created_at
`

func (q *Queries) ListPendingStockOutbox(ctx context.Context) ([]StockAdjustmentOutbox, error) {
	rows, err := q.db.Query(ctx, listPendingStockOutbox)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []StockAdjustmentOutbox
	for rows.Next() {
		var e StockAdjustmentOutbox
		if err := rows.Scan(&e.ID, &e.OrderID, &e.Operation, &e.Items, &e.LastError,
			&e.CreatedAt, &e.RetriedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

const markStockOutboxRetried = `
UPDATE stock_adjustment_outbox SET retried_at = now() WHERE id = $1 AND retried_at IS NULL
`

func (q *Queries) MarkStockOutboxRetried(ctx context.Context, id uuid.UUID) (int64, error) {
	tag, err := q.db.Exec(ctx, markStockOutboxRetried, id)
	return tag.RowsAffected(), err
}
