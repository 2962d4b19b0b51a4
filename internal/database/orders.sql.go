package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const orderColumns = `id, shift_id, order_number, order_type, status, payment_status,
	customer_id, driver_id, table_number, sub_total, service, tax, discount,
	temp_discount_percent, total, profit, notes, created_by, created_at, updated_at, completed_at`

func scanOrder(row interface{ Scan(dest ...any) error }) (Order, error) {
	var o Order
	err := row.Scan(
		&o.ID, &o.ShiftID, &o.OrderNumber, &o.OrderType, &o.Status, &o.PaymentStatus,
		&o.CustomerID, &o.DriverID, &o.TableNumber, &o.SubTotal, &o.Service, &o.Tax,
		&o.Discount, &o.TempDiscountPercent, &o.Total, &o.Profit, &o.Notes,
		&o.CreatedBy, &o.CreatedAt, &o.UpdatedAt, &o.CompletedAt,
	)
	return o, err
}

const nextOrderNumber = `
SELECT COALESCE(MAX(order_number), 0) + 1 FROM orders WHERE shift_id = $1
`

// NextOrderNumber returns the next order number within a shift. Callers must
// run this inside the same transaction as the insert and retry on a unique
// violation, since two concurrent transactions can observe the same MAX.
func (q *Queries) NextOrderNumber(ctx context.Context, shiftID uuid.UUID) (int32, error) {
	var n int32
	err := q.db.QueryRow(ctx, nextOrderNumber, shiftID).Scan(&n)
	return n, err
}

const createOrder = `
INSERT INTO orders (
	shift_id, order_number, order_type, status, payment_status, customer_id,
	driver_id, table_number, sub_total, service, tax, discount,
	temp_discount_percent, total, profit, notes, created_by
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
RETURNING ` + orderColumns

type CreateOrderParams struct {
	ShiftID             uuid.UUID
	OrderNumber         int32
	OrderType           string
	Status              string
	PaymentStatus       string
	CustomerID          pgtype.UUID
	DriverID            pgtype.UUID
	TableNumber         pgtype.Int4
	SubTotal            pgtype.Numeric
	Service             pgtype.Numeric
	Tax                 pgtype.Numeric
	Discount            pgtype.Numeric
	TempDiscountPercent pgtype.Numeric
	Total               pgtype.Numeric
	Profit              pgtype.Numeric
	Notes               pgtype.Text
	CreatedBy           uuid.UUID
}

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx, createOrder,
		arg.ShiftID, arg.OrderNumber, arg.OrderType, arg.Status, arg.PaymentStatus,
		arg.CustomerID, arg.DriverID, arg.TableNumber, arg.SubTotal, arg.Service,
		arg.Tax, arg.Discount, arg.TempDiscountPercent, arg.Total, arg.Profit,
		arg.Notes, arg.CreatedBy,
	)
	return scanOrder(row)
}

const getOrder = `
SELECT ` + orderColumns + ` FROM orders WHERE id = $1
`

func (q *Queries) GetOrder(ctx context.Context, id uuid.UUID) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrder, id))
}

const getOrderForUpdate = `
SELECT ` + orderColumns + ` FROM orders WHERE id = $1 FOR NO KEY UPDATE
`

// GetOrderForUpdate locks the order row so concurrent lifecycle operations
// on the same order serialize inside their transactions.
func (q *Queries) GetOrderForUpdate(ctx context.Context, id uuid.UUID) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrderForUpdate, id))
}

const listOrders = `
SELECT ` + orderColumns + ` FROM orders
WHERE ($1::uuid IS NULL OR shift_id = $1)
  AND ($2::text IS NULL OR status = $2)
  AND ($3::text IS NULL OR order_type = $3)
ORDER BY created_at DESC
LIMIT $4 OFFSET $5
`

type ListOrdersParams struct {
	ShiftID   pgtype.UUID
	Status    pgtype.Text
	OrderType pgtype.Text
	Limit     int32
	Offset    int32
}

func (q *Queries) ListOrders(ctx context.Context, arg ListOrdersParams) ([]Order, error) {
	rows, err := q.db.Query(ctx, listOrders, arg.ShiftID, arg.Status, arg.OrderType, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var orders []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

const updateOrderTotals = `
UPDATE orders SET
	sub_total = $2, service = $3, tax = $4, discount = $5,
	temp_discount_percent = $6, total = $7, profit = $8, updated_at = now()
WHERE id = $1
RETURNING ` + orderColumns

type UpdateOrderTotalsParams struct {
	ID                  uuid.UUID
	SubTotal            pgtype.Numeric
	Service             pgtype.Numeric
	Tax                 pgtype.Numeric
	Discount            pgtype.Numeric
	TempDiscountPercent pgtype.Numeric
	Total               pgtype.Numeric
	Profit              pgtype.Numeric
}

func (q *Queries) UpdateOrderTotals(ctx context.Context, arg UpdateOrderTotalsParams) (Order, error) {
	row := q.db.QueryRow(ctx, updateOrderTotals,
		arg.ID, arg.SubTotal, arg.Service, arg.Tax, arg.Discount,
		arg.TempDiscountPercent, arg.Total, arg.Profit,
	)
	return scanOrder(row)
}

const updateOrderStatus = `
UPDATE orders SET status = $2, updated_at = now() WHERE id = $1
RETURNING ` + orderColumns

func (q *Queries) UpdateOrderStatus(ctx context.Context, id uuid.UUID, status string) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, updateOrderStatus, id, status))
}

const updateOrderPaymentStatus = `
UPDATE orders SET payment_status = $2, updated_at = now() WHERE id = $1
RETURNING ` + orderColumns

func (q *Queries) UpdateOrderPaymentStatus(ctx context.Context, id uuid.UUID, paymentStatus string) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, updateOrderPaymentStatus, id, paymentStatus))
}

const markOrderCompleted = `
UPDATE orders SET status = $2, completed_at = now(), updated_at = now() WHERE id = $1
RETURNING ` + orderColumns

// MarkOrderCompleted stamps completed_at alongside the terminal status so the
// ledger and reports can attribute the sale to the right day.
func (q *Queries) MarkOrderCompleted(ctx context.Context, id uuid.UUID, status string) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, markOrderCompleted, id, status))
}

const markOrderCancelled = `
UPDATE orders SET status = $2, profit = 0, updated_at = now() WHERE id = $1
RETURNING ` + orderColumns

func (q *Queries) MarkOrderCancelled(ctx context.Context, id uuid.UUID, status string) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, markOrderCancelled, id, status))
}

const updateOrderType = `
UPDATE orders SET order_type = $2, table_number = $3, updated_at = now() WHERE id = $1
RETURNING ` + orderColumns

func (q *Queries) UpdateOrderType(ctx context.Context, id uuid.UUID, orderType string, tableNumber pgtype.Int4) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, updateOrderType, id, orderType, tableNumber))
}

const updateOrderCustomer = `
UPDATE orders SET customer_id = $2, updated_at = now() WHERE id = $1
RETURNING ` + orderColumns

func (q *Queries) UpdateOrderCustomer(ctx context.Context, id uuid.UUID, customerID pgtype.UUID) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, updateOrderCustomer, id, customerID))
}

const updateOrderDriver = `
UPDATE orders SET driver_id = $2, updated_at = now() WHERE id = $1
RETURNING ` + orderColumns

func (q *Queries) UpdateOrderDriver(ctx context.Context, id uuid.UUID, driverID pgtype.UUID) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, updateOrderDriver, id, driverID))
}

// --- Order items ---

const createOrderItem = `
INSERT INTO order_items (order_id, product_id, quantity, price, cost, discount, discount_percent, total)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING id, order_id, product_id, quantity, price, cost, discount, discount_percent, total
`

type CreateOrderItemParams struct {
	OrderID         uuid.UUID
	ProductID       uuid.UUID
	Quantity        pgtype.Numeric
	Price           pgtype.Numeric
	Cost            pgtype.Numeric
	Discount        pgtype.Numeric
	DiscountPercent pgtype.Numeric
	Total           pgtype.Numeric
}

func (q *Queries) CreateOrderItem(ctx context.Context, arg CreateOrderItemParams) (OrderItem, error) {
	var i OrderItem
	err := q.db.QueryRow(ctx, createOrderItem,
		arg.OrderID, arg.ProductID, arg.Quantity, arg.Price, arg.Cost,
		arg.Discount, arg.DiscountPercent, arg.Total,
	).Scan(&i.ID, &i.OrderID, &i.ProductID, &i.Quantity, &i.Price, &i.Cost,
		&i.Discount, &i.DiscountPercent, &i.Total)
	return i, err
}

const listOrderItemsByOrder = `
SELECT id, order_id, product_id, quantity, price, cost, discount, discount_percent, total
FROM order_items WHERE order_id = $1 ORDER BY id
`

func (q *Queries) ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]OrderItem, error) {
	rows, err := q.db.Query(ctx, listOrderItemsByOrder, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []OrderItem
	for rows.Next() {
		var i OrderItem
		if err := rows.Scan(&i.ID, &i.OrderID, &i.ProductID, &i.Quantity, &i.Price,
			&i.Cost, &i.Discount, &i.DiscountPercent, &i.Total); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const deleteOrderItemsByOrder = `
DELETE FROM order_items WHERE order_id = $1
`

func (q *Queries) DeleteOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) error {
	_, err := q.db.Exec(ctx, deleteOrderItemsByOrder, orderID)
	return err
}
