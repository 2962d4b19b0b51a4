package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/sajian-pos/api/internal/database"
	"github.com/sajian-pos/api/internal/enum"
	"github.com/shopspring/decimal"
)

var (
	ErrDayClosed       = errors.New("inventory day is closed")
	ErrInvalidMovement = errors.New("invalid inventory movement")
)

// MovementOrigin identifies the document a movement traces back to.
type MovementOrigin struct {
	Kind string
	ID   pgtype.UUID
}

func validMovement(operation, reason string) bool {
	switch operation {
	case enum.MovementOpIn, enum.MovementOpOut:
	default:
		return false
	}
	switch reason {
	case enum.MovementReasonPurchase, enum.MovementReasonPurchaseReturn,
		enum.MovementReasonOrder, enum.MovementReasonOrderReturn,
		enum.MovementReasonWaste, enum.MovementReasonStocktaking,
		enum.MovementReasonAdjustment, enum.MovementReasonTransfer,
		enum.MovementReasonInitialStock, enum.MovementReasonManual:
		return true
	}
	return false
}

// rollupBuckets maps a movement onto the daily rollup columns. Sales out and
// their returns get their own columns; everything else lands in the generic
// incoming / return-waste buckets.
func rollupBuckets(operation, reason string, qty decimal.Decimal) (incoming, sales, returnSales, returnWaste decimal.Decimal) {
	zero := decimal.Zero
	if operation == enum.MovementOpIn {
		if reason == enum.MovementReasonOrderReturn {
			return zero, zero, qty, zero
		}
		return qty, zero, zero, zero
	}
	if reason == enum.MovementReasonOrder {
		return zero, qty, zero, zero
	}
	return zero, zero, zero, qty
}

// recordMovement appends one ledger entry: adjusts the product's stock,
// writes the movement row, and folds the quantity into the day's rollup.
// Must run inside a transaction so the three writes land together.
func recordMovement(ctx context.Context, store LedgerStore, productID uuid.UUID, operation string, qty decimal.Decimal, reason, note string, origin MovementOrigin) error {
	if !validMovement(operation, reason) {
		return fmt.Errorf("%w: %s/%s", ErrInvalidMovement, operation, reason)
	}
	if !qty.IsPositive() {
		return fmt.Errorf("%w: quantity must be positive", ErrInvalidMovement)
	}

	delta := qty
	if operation == enum.MovementOpOut {
		delta = qty.Neg()
	}

	newStock, err := store.AdjustProductStock(ctx, productID, decimalToNumericExact(delta))
	if err != nil {
		return fmt.Errorf("adjust stock: %w", err)
	}

	noteVal := pgtype.Text{}
	if note != "" {
		noteVal = pgtype.Text{String: note, Valid: true}
	}
	if _, err := store.CreateInventoryMovement(ctx, database.CreateInventoryMovementParams{
		ProductID:  productID,
		Operation:  operation,
		Quantity:   decimalToNumericExact(qty),
		Reason:     reason,
		Note:       noteVal,
		OriginKind: origin.Kind,
		OriginID:   origin.ID,
	}); err != nil {
		return fmt.Errorf("create movement: %w", err)
	}

	// start_qty only matters on the day's first row: the stock level before
	// this movement applied.
	startQty := numericToDecimal(newStock).Sub(delta)
	incoming, sales, returnSales, returnWaste := rollupBuckets(operation, reason, qty)

	_, err = store.UpsertMovementDay(ctx, database.UpsertMovementDayParams{
		ProductID:   productID,
		Day:         pgtype.Date{Time: time.Now().UTC(), Valid: true},
		StartQty:    decimalToNumericExact(startQty),
		Incoming:    decimalToNumericExact(incoming),
		Sales:       decimalToNumericExact(sales),
		ReturnSales: decimalToNumericExact(returnSales),
		ReturnWaste: decimalToNumericExact(returnWaste),
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrDayClosed
	}
	if err != nil {
		return fmt.Errorf("upsert movement day: %w", err)
	}
	return nil
}

// removeStock writes OUT movements for every expanded stock item.
func removeStock(ctx context.Context, store LedgerStore, items []StockItem, reason, note string, origin MovementOrigin) error {
	for _, item := range items {
		if err := recordMovement(ctx, store, item.ProductID, enum.MovementOpOut, item.Quantity, reason, note, origin); err != nil {
			return err
		}
	}
	return nil
}

// addStock writes IN movements for every expanded stock item.
func addStock(ctx context.Context, store LedgerStore, items []StockItem, reason, note string, origin MovementOrigin) error {
	for _, item := range items {
		if err := recordMovement(ctx, store, item.ProductID, enum.MovementOpIn, item.Quantity, reason, note, origin); err != nil {
			return err
		}
	}
	return nil
}
