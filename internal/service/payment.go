package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sajian-pos/api/internal/database"
	"github.com/sajian-pos/api/internal/enum"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidPaymentMethod = errors.New("invalid payment method")
	ErrPaymentNotPositive   = errors.New("payment amount must be positive")
	ErrPaymentsExceedTotal  = errors.New("payments exceed remaining balance")
	ErrOrderFullyPaid       = errors.New("order is already fully paid")
)

// PaymentRequest is one tender line, applied in the order given.
type PaymentRequest struct {
	Method string
	Amount decimal.Decimal
}

func validPaymentMethod(method string) bool {
	switch method {
	case enum.PaymentMethodCash, enum.PaymentMethodCard, enum.PaymentMethodThirdPartyCard:
		return true
	}
	return false
}

// paymentStatusFor derives the order's payment status from amounts paid.
func paymentStatusFor(paid, total decimal.Decimal) string {
	switch {
	case total.IsPositive() && paid.GreaterThanOrEqual(total):
		return enum.PaymentStatusFull
	case paid.IsPositive():
		return enum.PaymentStatusPartial
	default:
		return enum.PaymentStatusPending
	}
}

// applyPayment records a single payment against the order. Amounts above the
// remaining balance are capped so cash overpayment never inflates revenue;
// change is the caller's concern. Paying an order with nothing left to pay is
// a no-op: the order comes back unchanged with a zero-valued payment and no
// record is created.
func applyPayment(ctx context.Context, store PaymentStore, order database.Order, req PaymentRequest, createdBy uuid.UUID) (database.Order, database.Payment, error) {
	if !validPaymentMethod(req.Method) {
		return database.Order{}, database.Payment{}, ErrInvalidPaymentMethod
	}
	if !req.Amount.IsPositive() {
		return database.Order{}, database.Payment{}, ErrPaymentNotPositive
	}

	total := numericToDecimal(order.Total)
	paidNum, err := store.SumPaymentsByOrder(ctx, order.ID)
	if err != nil {
		return database.Order{}, database.Payment{}, fmt.Errorf("sum payments: %w", err)
	}
	paid := numericToDecimal(paidNum)

	remaining := total.Sub(paid)
	if !remaining.IsPositive() {
		return order, database.Payment{}, nil
	}

	amount := req.Amount
	if amount.GreaterThan(remaining) {
		amount = remaining
	}

	payment, err := store.CreatePayment(ctx, database.CreatePaymentParams{
		OrderID:   order.ID,
		ShiftID:   order.ShiftID,
		Method:    req.Method,
		Amount:    decimalToNumeric(amount),
		CreatedBy: createdBy,
	})
	if err != nil {
		return database.Order{}, database.Payment{}, fmt.Errorf("create payment: %w", err)
	}

	order, err = store.UpdateOrderPaymentStatus(ctx, order.ID, paymentStatusFor(paid.Add(amount), total))
	if err != nil {
		return database.Order{}, database.Payment{}, fmt.Errorf("update payment status: %w", err)
	}
	return order, payment, nil
}

// applyPayments records a split tender. The whole batch is validated against
// the remaining balance up front, then lines are applied in the order given,
// stopping once the balance reaches zero. Zero and negative lines are dropped.
func applyPayments(ctx context.Context, store PaymentStore, order database.Order, reqs []PaymentRequest, createdBy uuid.UUID) (database.Order, []database.Payment, error) {
	lines := make([]PaymentRequest, 0, len(reqs))
	batch := decimal.Zero
	for _, req := range reqs {
		if !validPaymentMethod(req.Method) {
			return database.Order{}, nil, ErrInvalidPaymentMethod
		}
		if !req.Amount.IsPositive() {
			continue
		}
		lines = append(lines, req)
		batch = batch.Add(req.Amount)
	}
	if len(lines) == 0 {
		return database.Order{}, nil, ErrPaymentNotPositive
	}

	total := numericToDecimal(order.Total)
	paidNum, err := store.SumPaymentsByOrder(ctx, order.ID)
	if err != nil {
		return database.Order{}, nil, fmt.Errorf("sum payments: %w", err)
	}
	paid := numericToDecimal(paidNum)
	remaining := total.Sub(paid)
	if !remaining.IsPositive() {
		return database.Order{}, nil, ErrOrderFullyPaid
	}
	if batch.GreaterThan(remaining) {
		return database.Order{}, nil, ErrPaymentsExceedTotal
	}

	payments := make([]database.Payment, 0, len(lines))
	for _, req := range lines {
		amount := req.Amount
		if amount.GreaterThan(remaining) {
			amount = remaining
		}
		payment, err := store.CreatePayment(ctx, database.CreatePaymentParams{
			OrderID:   order.ID,
			ShiftID:   order.ShiftID,
			Method:    req.Method,
			Amount:    decimalToNumeric(amount),
			CreatedBy: createdBy,
		})
		if err != nil {
			return database.Order{}, nil, fmt.Errorf("create payment: %w", err)
		}
		payments = append(payments, payment)
		paid = paid.Add(amount)
		remaining = remaining.Sub(amount)
		if !remaining.IsPositive() {
			break
		}
	}

	order, err = store.UpdateOrderPaymentStatus(ctx, order.ID, paymentStatusFor(paid, total))
	if err != nil {
		return database.Order{}, nil, fmt.Errorf("update payment status: %w", err)
	}
	return order, payments, nil
}
