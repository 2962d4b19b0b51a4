package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var (
	ErrTableRequired = errors.New("order type requires a table number")
	ErrTableOccupied = errors.New("table is occupied by another order")
)

// reserveTable claims a table for an order. The claim is a single conditional
// write, so two orders racing for the same table cannot both win: the loser
// gets ErrTableOccupied. Reserving a table the order already holds is a no-op.
func reserveTable(ctx context.Context, store TableStore, tableNumber int32, orderID uuid.UUID) error {
	table, err := store.GetDineTable(ctx, tableNumber)
	if err == nil && table.OrderID.Valid {
		if uuid.UUID(table.OrderID.Bytes) == orderID {
			return nil
		}
		return ErrTableOccupied
	}
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("get table: %w", err)
	}

	_, err = store.ReserveDineTable(ctx, tableNumber, orderID)
	if errors.Is(err, pgx.ErrNoRows) {
		// Another order claimed the table between the read and the write.
		return ErrTableOccupied
	}
	if err != nil {
		return fmt.Errorf("reserve table: %w", err)
	}
	return nil
}

// freeTable releases a table. Safe to call for tables that were never reserved.
func freeTable(ctx context.Context, store TableStore, tableNumber int32) error {
	if err := store.FreeDineTable(ctx, tableNumber); err != nil {
		return fmt.Errorf("free table: %w", err)
	}
	return nil
}
