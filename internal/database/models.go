package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type User struct {
	ID           uuid.UUID
	Name         string
	Email        string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
}

type Setting struct {
	Key       string
	Value     string
	UpdatedAt time.Time
}

type Product struct {
	ID            uuid.UUID
	Name          string
	ProductType   string
	Price         pgtype.Numeric
	Cost          pgtype.Numeric
	StockQuantity pgtype.Numeric
	MinStock      pgtype.Numeric
	Active        bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ProductComponent is one edge of a manufactured product's bill of materials:
// building one unit of ProductID consumes Quantity units of ComponentID.
type ProductComponent struct {
	ID          uuid.UUID
	ProductID   uuid.UUID
	ComponentID uuid.UUID
	Quantity    pgtype.Numeric
}

type Shift struct {
	ID       uuid.UUID
	OpenedBy uuid.UUID
	OpenedAt time.Time
	ClosedAt pgtype.Timestamptz
}

type Customer struct {
	ID           uuid.UUID
	Name         string
	Phone        pgtype.Text
	Address      pgtype.Text
	DeliveryCost pgtype.Numeric
	CreatedAt    time.Time
}

type Driver struct {
	ID        uuid.UUID
	Name      string
	Phone     pgtype.Text
	CreatedAt time.Time
}

// DineTable maps a physical table to at most one active order.
// A null OrderID means the table is free.
type DineTable struct {
	TableNumber int32
	OrderID     pgtype.UUID
	UpdatedAt   time.Time
}

type Order struct {
	ID                  uuid.UUID
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
	CreatedAt           time.Time
	UpdatedAt           time.Time
	CompletedAt         pgtype.Timestamptz
}

type OrderItem struct {
	ID              uuid.UUID
	OrderID         uuid.UUID
	ProductID       uuid.UUID
	Quantity        pgtype.Numeric
	Price           pgtype.Numeric
	Cost            pgtype.Numeric
	Discount        pgtype.Numeric
	DiscountPercent pgtype.Numeric
	Total           pgtype.Numeric
}

type Payment struct {
	ID        uuid.UUID
	OrderID   uuid.UUID
	ShiftID   uuid.UUID
	Method    string
	Amount    pgtype.Numeric
	CreatedBy uuid.UUID
	CreatedAt time.Time
}

// InventoryMovement is one append-only ledger entry. OriginKind/OriginID form
// a typed reference to the document that caused the movement.
type InventoryMovement struct {
	ID         uuid.UUID
	ProductID  uuid.UUID
	Operation  string
	Quantity   pgtype.Numeric
	Reason     string
	Note       pgtype.Text
	OriginKind string
	OriginID   pgtype.UUID
	CreatedAt  time.Time
}

// InventoryMovementDay is the per-product per-date rollup derived from
// movements. Once ClosedAt is set the row is immutable.
type InventoryMovementDay struct {
	ProductID   uuid.UUID
	Day         pgtype.Date
	StartQty    pgtype.Numeric
	Incoming    pgtype.Numeric
	Sales       pgtype.Numeric
	ReturnSales pgtype.Numeric
	ReturnWaste pgtype.Numeric
	EndQty      pgtype.Numeric
	ClosedAt    pgtype.Timestamptz
}

// StockAdjustmentOutbox records a post-commit stock adjustment that failed,
// so an operator can retry it instead of losing the deduction silently.
type StockAdjustmentOutbox struct {
	ID        uuid.UUID
	OrderID   uuid.UUID
	Operation string
	Items     []byte
	LastError string
	CreatedAt time.Time
	RetriedAt pgtype.Timestamptz
}
