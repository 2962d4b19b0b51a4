package service

import (
	"context"
	"fmt"

	"github.com/sajian-pos/api/internal/enum"
	"github.com/shopspring/decimal"
)

// AdjustStockRequest is a manual ledger entry: a purchase delivery, waste,
// a stocktaking correction, or a plain adjustment.
type AdjustStockRequest struct {
	ProductID string
	Operation string
	Quantity  string
	Reason    string
	Note      string
	OriginID  string
}

// InventoryService records stock movements outside the order lifecycle.
type InventoryService struct {
	pool     TxBeginner
	newStore NewStore
}

func NewInventoryService(pool TxBeginner, newStore NewStore) *InventoryService {
	return &InventoryService{pool: pool, newStore: newStore}
}

// originKindFor maps a movement reason to the document kind it points at.
func originKindFor(reason string) string {
	switch reason {
	case enum.MovementReasonPurchase, enum.MovementReasonPurchaseReturn:
		return enum.OriginKindPurchaseInvoice
	case enum.MovementReasonWaste:
		return enum.OriginKindWaste
	case enum.MovementReasonStocktaking:
		return enum.OriginKindStocktaking
	default:
		return enum.OriginKindManual
	}
}

// Adjust validates and records a single stock movement atomically.
func (s *InventoryService) Adjust(ctx context.Context, req AdjustStockRequest) error {
	productID, err := parseOptionalUUID(req.ProductID, ErrInvalidProductID)
	if err != nil || !productID.Valid {
		return ErrInvalidProductID
	}
	qty, err := decimal.NewFromString(req.Quantity)
	if err != nil {
		return fmt.Errorf("%w: bad quantity", ErrInvalidMovement)
	}
	originID, err := parseOptionalUUID(req.OriginID, ErrInvalidMovement)
	if err != nil {
		return err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)
	origin := MovementOrigin{Kind: originKindFor(req.Reason), ID: originID}
	if err := recordMovement(ctx, store, productID.Bytes, req.Operation, qty, req.Reason, req.Note, origin); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
