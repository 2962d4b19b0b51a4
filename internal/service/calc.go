package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/sajian-pos/api/internal/database"
	"github.com/sajian-pos/api/internal/enum"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidDiscountType = errors.New("invalid discount type")
	ErrNegativeDiscount    = errors.New("discount must not be negative")
)

var oneHundred = decimal.NewFromInt(100)

// requiresTable reports whether an order type is served at a table and so
// carries the service charge.
func requiresTable(orderType string) bool {
	return orderType == enum.OrderTypeDineIn
}

// hasDeliveryFee reports whether an order type bills the customer's delivery cost.
func hasDeliveryFee(orderType string) bool {
	return orderType == enum.OrderTypeDelivery || orderType == enum.OrderTypeWebDelivery
}

// isWebOrder reports whether an order originated from the web storefront.
// Web orders arrive with totals already fixed and are never recalculated.
func isWebOrder(orderType string) bool {
	return orderType == enum.OrderTypeWebDelivery || orderType == enum.OrderTypeWebTakeaway
}

// settingRate reads a rate setting, defaulting to zero when unset.
func settingRate(ctx context.Context, store CalcStore, key string) (decimal.Decimal, error) {
	s, err := store.GetSetting(ctx, key)
	if errors.Is(err, pgx.ErrNoRows) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("read setting %s: %w", key, err)
	}
	rate, err := decimal.NewFromString(s.Value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("setting %s is not a number: %w", key, err)
	}
	return rate, nil
}

// recalculateTotals recomputes an order's monetary fields from its items and
// persists them. The grand total always rounds up to the next whole unit so
// fractional charge amounts never undercharge.
func recalculateTotals(ctx context.Context, store CalcStore, order database.Order) (database.Order, error) {
	if isWebOrder(order.OrderType) {
		return order, nil
	}

	items, err := store.ListOrderItemsByOrder(ctx, order.ID)
	if err != nil {
		return database.Order{}, fmt.Errorf("list order items: %w", err)
	}

	subTotal := decimal.Zero
	cost := decimal.Zero
	for _, item := range items {
		subTotal = subTotal.Add(numericToDecimal(item.Total))
		cost = cost.Add(numericToDecimal(item.Cost).Mul(numericToDecimal(item.Quantity)))
	}

	service := decimal.Zero
	switch {
	case requiresTable(order.OrderType):
		rate, err := settingRate(ctx, store, enum.SettingServiceChargeRate)
		if err != nil {
			return database.Order{}, err
		}
		service = subTotal.Mul(rate)
	case hasDeliveryFee(order.OrderType) && order.CustomerID.Valid:
		customer, err := store.GetCustomer(ctx, order.CustomerID.Bytes)
		if err != nil {
			return database.Order{}, fmt.Errorf("get customer: %w", err)
		}
		service = numericToDecimal(customer.DeliveryCost)
	}

	taxRate, err := settingRate(ctx, store, enum.SettingTaxRate)
	if err != nil {
		return database.Order{}, err
	}
	tax := subTotal.Mul(taxRate)

	// A percentage discount overrides any fixed amount.
	discount := numericToDecimal(order.Discount)
	tempPercent := numericToDecimal(order.TempDiscountPercent)
	if tempPercent.IsPositive() {
		discount = subTotal.Mul(tempPercent).Div(oneHundred)
	}

	total := subTotal.Add(service).Add(tax).Sub(discount).Ceil()
	if total.IsNegative() {
		total = decimal.Zero
	}
	profit := total.Sub(cost)
	if profit.IsNegative() {
		profit = decimal.Zero
	}

	return store.UpdateOrderTotals(ctx, database.UpdateOrderTotalsParams{
		ID:                  order.ID,
		SubTotal:            decimalToNumeric(subTotal),
		Service:             decimalToNumeric(service),
		Tax:                 decimalToNumeric(tax),
		Discount:            decimalToNumeric(discount),
		TempDiscountPercent: order.TempDiscountPercent,
		Total:               decimalToNumeric(total),
		Profit:              decimalToNumeric(profit),
	})
}

// applyDiscount sets the order's discount fields and recomputes totals.
// The two discount kinds are mutually exclusive: setting one clears the other.
func applyDiscount(ctx context.Context, store CalcStore, order database.Order, discountType string, amount decimal.Decimal) (database.Order, error) {
	if amount.IsNegative() {
		return database.Order{}, ErrNegativeDiscount
	}
	switch discountType {
	case enum.DiscountTypeFixed:
		order.Discount = decimalToNumeric(amount)
		order.TempDiscountPercent = decimalToNumeric(decimal.Zero)
	case enum.DiscountTypePercent:
		order.Discount = decimalToNumeric(decimal.Zero)
		order.TempDiscountPercent = decimalToNumeric(amount)
	default:
		return database.Order{}, ErrInvalidDiscountType
	}
	return recalculateTotals(ctx, store, order)
}
