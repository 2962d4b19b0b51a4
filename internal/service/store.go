package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/sajian-pos/api/internal/database"
	"github.com/shopspring/decimal"
)

// TxBeginner starts a new database transaction. Satisfied by *pgxpool.Pool.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// CalcStore is what the totals calculation needs.
type CalcStore interface {
	ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error)
	GetSetting(ctx context.Context, key string) (database.Setting, error)
	GetCustomer(ctx context.Context, id uuid.UUID) (database.Customer, error)
	UpdateOrderTotals(ctx context.Context, arg database.UpdateOrderTotalsParams) (database.Order, error)
}

// PaymentStore is what payment allocation needs.
type PaymentStore interface {
	ListPaymentsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.Payment, error)
	SumPaymentsByOrder(ctx context.Context, orderID uuid.UUID) (pgtype.Numeric, error)
	CreatePayment(ctx context.Context, arg database.CreatePaymentParams) (database.Payment, error)
	DeletePaymentsByOrder(ctx context.Context, orderID uuid.UUID) (int64, error)
	UpdateOrderPaymentStatus(ctx context.Context, id uuid.UUID, paymentStatus string) (database.Order, error)
}

// TableStore is what table reservation needs.
type TableStore interface {
	GetDineTable(ctx context.Context, tableNumber int32) (database.DineTable, error)
	ReserveDineTable(ctx context.Context, tableNumber int32, orderID uuid.UUID) (database.DineTable, error)
	FreeDineTable(ctx context.Context, tableNumber int32) error
}

// CatalogStore is what BOM expansion needs.
type CatalogStore interface {
	GetProduct(ctx context.Context, id uuid.UUID) (database.Product, error)
	ListComponentsByProduct(ctx context.Context, productID uuid.UUID) ([]database.ProductComponent, error)
}

// LedgerStore is what the stock ledger needs.
type LedgerStore interface {
	GetProductStock(ctx context.Context, id uuid.UUID) (pgtype.Numeric, error)
	AdjustProductStock(ctx context.Context, id uuid.UUID, delta pgtype.Numeric) (pgtype.Numeric, error)
	CreateInventoryMovement(ctx context.Context, arg database.CreateInventoryMovementParams) (database.InventoryMovement, error)
	UpsertMovementDay(ctx context.Context, arg database.UpsertMovementDayParams) (database.InventoryMovementDay, error)
}

// Store is the full set of database methods the order lifecycle drives.
// Satisfied by *database.Queries (pool- or tx-backed).
type Store interface {
	CalcStore
	PaymentStore
	TableStore
	CatalogStore
	LedgerStore

	NextOrderNumber(ctx context.Context, shiftID uuid.UUID) (int32, error)
	CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
	GetOrderForUpdate(ctx context.Context, id uuid.UUID) (database.Order, error)
	UpdateOrderStatus(ctx context.Context, id uuid.UUID, status string) (database.Order, error)
	MarkOrderCompleted(ctx context.Context, id uuid.UUID, status string) (database.Order, error)
	MarkOrderCancelled(ctx context.Context, id uuid.UUID, status string) (database.Order, error)
	UpdateOrderType(ctx context.Context, id uuid.UUID, orderType string, tableNumber pgtype.Int4) (database.Order, error)
	UpdateOrderCustomer(ctx context.Context, id uuid.UUID, customerID pgtype.UUID) (database.Order, error)
	UpdateOrderDriver(ctx context.Context, id uuid.UUID, driverID pgtype.UUID) (database.Order, error)
	CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error)
	DeleteOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) error
	GetShift(ctx context.Context, id uuid.UUID) (database.Shift, error)
	CreateStockOutboxEntry(ctx context.Context, arg database.CreateStockOutboxEntryParams) (database.StockAdjustmentOutbox, error)
	ListPendingStockOutbox(ctx context.Context) ([]database.StockAdjustmentOutbox, error)
	MarkStockOutboxRetried(ctx context.Context, id uuid.UUID) (int64, error)
}

// NewStore creates a Store from a DBTX (pool or tx), so the same queries run
// inside a transaction started by the service.
type NewStore func(db database.DBTX) Store

// --- Numeric boundary helpers ---

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func decimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(d.StringFixed(2))
	return n
}

// decimalToNumericExact keeps full precision, for quantities of weighed goods.
func decimalToNumericExact(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(d.String())
	return n
}
