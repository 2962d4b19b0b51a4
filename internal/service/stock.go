package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/sajian-pos/api/internal/database"
	"github.com/sajian-pos/api/internal/enum"
	"github.com/shopspring/decimal"
)

var (
	ErrComponentCycle    = errors.New("product component cycle detected")
	ErrInsufficientStock = errors.New("insufficient stock")
)

// StockItem is one aggregated stock requirement after expansion.
type StockItem struct {
	ProductID uuid.UUID       `json:"product_id"`
	Quantity  decimal.Decimal `json:"quantity"`
}

// StockShortfall reports a product whose stock cannot cover a requirement.
type StockShortfall struct {
	ProductID uuid.UUID       `json:"product_id"`
	Name      string          `json:"name"`
	Required  decimal.Decimal `json:"required"`
	Available decimal.Decimal `json:"available"`
}

// stockAccumulator aggregates expanded quantities per product while keeping
// first-seen order, so movement rows come out deterministic.
type stockAccumulator struct {
	order []uuid.UUID
	seen  map[uuid.UUID]decimal.Decimal
}

func newStockAccumulator() *stockAccumulator {
	return &stockAccumulator{seen: make(map[uuid.UUID]decimal.Decimal)}
}

func (a *stockAccumulator) add(productID uuid.UUID, qty decimal.Decimal) {
	if _, ok := a.seen[productID]; !ok {
		a.order = append(a.order, productID)
	}
	a.seen[productID] = a.seen[productID].Add(qty)
}

func (a *stockAccumulator) items() []StockItem {
	items := make([]StockItem, 0, len(a.order))
	for _, id := range a.order {
		items = append(items, StockItem{ProductID: id, Quantity: a.seen[id]})
	}
	return items
}

// expandOrderItems converts sold order lines into the raw stock they consume.
// Manufactured products recurse into their components (a recipe of other
// manufactured products keeps expanding); consumables deduct as themselves.
// Raw materials only reach stock through recipes: a raw material sold as a
// direct order line is logged and skipped. Quantities multiply down the tree.
func expandOrderItems(ctx context.Context, store CatalogStore, items []database.OrderItem) ([]StockItem, error) {
	acc := newStockAccumulator()
	for _, item := range items {
		qty := numericToDecimal(item.Quantity)
		if !qty.IsPositive() {
			continue
		}
		visited := map[uuid.UUID]bool{}
		if err := expandProduct(ctx, store, item.ProductID, qty, visited, acc, true); err != nil {
			return nil, err
		}
	}
	return acc.items(), nil
}

// sold marks a top-level order line, as opposed to a component reached
// through a recipe.
func expandProduct(ctx context.Context, store CatalogStore, productID uuid.UUID, qty decimal.Decimal, visited map[uuid.UUID]bool, acc *stockAccumulator, sold bool) error {
	if visited[productID] {
		return fmt.Errorf("product %s: %w", productID, ErrComponentCycle)
	}

	product, err := store.GetProduct(ctx, productID)
	if errors.Is(err, pgx.ErrNoRows) {
		// Product removed from the catalog after the sale; nothing to deduct.
		return nil
	}
	if err != nil {
		return fmt.Errorf("get product %s: %w", productID, err)
	}

	if product.ProductType != enum.ProductTypeManufactured {
		if sold && product.ProductType == enum.ProductTypeRawMaterial {
			log.Printf("WARN: order line sells raw material %s (%s) directly, skipping stock deduction", product.Name, product.ID)
			return nil
		}
		acc.add(productID, qty)
		return nil
	}

	components, err := store.ListComponentsByProduct(ctx, productID)
	if err != nil {
		return fmt.Errorf("list components of %s: %w", productID, err)
	}

	visited[productID] = true
	defer delete(visited, productID)

	for _, c := range components {
		need := qty.Mul(numericToDecimal(c.Quantity))
		if err := expandProduct(ctx, store, c.ComponentID, need, visited, acc, false); err != nil {
			return err
		}
	}
	return nil
}

// checkStockAvailability returns the products whose current stock cannot
// cover the expanded requirements.
func checkStockAvailability(ctx context.Context, store Store, items []StockItem) ([]StockShortfall, error) {
	var shortfalls []StockShortfall
	for _, item := range items {
		stock, err := store.GetProductStock(ctx, item.ProductID)
		if err != nil {
			return nil, fmt.Errorf("get stock for %s: %w", item.ProductID, err)
		}
		available := numericToDecimal(stock)
		if available.LessThan(item.Quantity) {
			product, err := store.GetProduct(ctx, item.ProductID)
			if err != nil {
				return nil, fmt.Errorf("get product %s: %w", item.ProductID, err)
			}
			shortfalls = append(shortfalls, StockShortfall{
				ProductID: item.ProductID,
				Name:      product.Name,
				Required:  item.Quantity,
				Available: available,
			})
		}
	}
	return shortfalls, nil
}
