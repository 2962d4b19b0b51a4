package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/sajian-pos/api/internal/database"
	"github.com/sajian-pos/api/internal/enum"
	"github.com/shopspring/decimal"
)

const maxOrderNumberRetries = 3

// Errors returned by the order service.
var (
	ErrEmptyItems          = errors.New("items are required")
	ErrInvalidOrderType    = errors.New("invalid order_type")
	ErrInvalidQuantity     = errors.New("quantity must be > 0")
	ErrInvalidProductID    = errors.New("invalid product_id")
	ErrInvalidCustomerID   = errors.New("invalid customer_id")
	ErrInvalidDriverID     = errors.New("invalid driver_id")
	ErrProductNotFound     = errors.New("product not found")
	ErrOrderNotFound       = errors.New("order not found")
	ErrOrderNotEditable    = errors.New("order can no longer be modified")
	ErrOrderNotCompletable = errors.New("order cannot be completed from its current status")
	ErrOrderNotCancellable = errors.New("order is already cancelled")
	ErrOrderNotPaid        = errors.New("order is not fully paid")
	ErrInvalidStatusChange = errors.New("invalid status change")
	ErrShiftClosed         = errors.New("shift is closed")
)

// InsufficientStockError carries the per-product shortfalls that blocked a
// completion.
type InsufficientStockError struct {
	Shortfalls []StockShortfall
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %d product(s)", len(e.Shortfalls))
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

// CreateOrderRequest is the validated input for creating an order.
type CreateOrderRequest struct {
	ShiftID     uuid.UUID
	CreatedBy   uuid.UUID
	OrderType   string
	TableNumber int32
	CustomerID  string
	DriverID    string
	Notes       string
	// Total is only honored for web order types, whose totals are fixed by
	// the storefront and never recalculated.
	Total string
	Items []OrderItemRequest
}

// OrderItemRequest is a single line in the order. Quantity and money fields
// arrive as decimal strings.
type OrderItemRequest struct {
	ProductID       string
	Quantity        string
	Discount        string
	DiscountPercent string
}

// OrderService drives the order lifecycle. Every mutation runs in its own
// transaction; stock adjustments happen after commit and fail soft.
type OrderService struct {
	pool                   TxBeginner
	store                  Store
	newStore               NewStore
	notifier               Notifier
	allowInsufficientStock bool
}

// NewOrderService creates a new OrderService. store must be pool-backed; it
// is used for work outside lifecycle transactions.
func NewOrderService(pool TxBeginner, store Store, newStore NewStore, notifier Notifier, allowInsufficientStock bool) *OrderService {
	return &OrderService{
		pool:                   pool,
		store:                  store,
		newStore:               newStore,
		notifier:               notifier,
		allowInsufficientStock: allowInsufficientStock,
	}
}

func validateOrderType(orderType string) error {
	switch orderType {
	case enum.OrderTypeDineIn, enum.OrderTypeTakeaway, enum.OrderTypeDelivery,
		enum.OrderTypeWebDelivery, enum.OrderTypeWebTakeaway, enum.OrderTypeDirectSale:
		return nil
	}
	return ErrInvalidOrderType
}

// statusEditable reports whether items and discounts may still change.
func statusEditable(status string) bool {
	return status == enum.OrderStatusPending || status == enum.OrderStatusProcessing
}

// statusCompletable reports whether the order can be marked completed.
func statusCompletable(status string) bool {
	return status == enum.OrderStatusProcessing || status == enum.OrderStatusOutForDelivery
}

// forwardTransitions are the plain status moves; completion and cancellation
// have their own entry points with extra side effects.
var forwardTransitions = map[string]string{
	enum.OrderStatusPending:    enum.OrderStatusProcessing,
	enum.OrderStatusProcessing: enum.OrderStatusOutForDelivery,
}

// CreateOrder validates, prices, and creates an order atomically. Dine-in
// orders claim their table inside the same transaction. Retries up to
// maxOrderNumberRetries times on order_number unique constraint violations
// (concurrent transactions can read the same MAX).
func (s *OrderService) CreateOrder(ctx context.Context, req CreateOrderRequest) (database.Order, error) {
	if err := validateOrderType(req.OrderType); err != nil {
		return database.Order{}, err
	}
	if len(req.Items) == 0 {
		return database.Order{}, ErrEmptyItems
	}
	if requiresTable(req.OrderType) && req.TableNumber <= 0 {
		return database.Order{}, ErrTableRequired
	}

	var lastErr error
	for attempt := 0; attempt < maxOrderNumberRetries; attempt++ {
		order, err := s.createOrderTx(ctx, req)
		if err == nil {
			s.notifier.OrderCreated(order)
			return order, nil
		}
		if isOrderNumberConflict(err) {
			lastErr = err
			continue
		}
		return database.Order{}, err
	}
	return database.Order{}, lastErr
}

// isOrderNumberConflict checks if the error is a unique constraint violation
// on the per-shift order number (pgconn error code 23505).
func isOrderNumberConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && pgErr.ConstraintName == "orders_shift_id_order_number_key"
	}
	return false
}

func (s *OrderService) createOrderTx(ctx context.Context, req CreateOrderRequest) (database.Order, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.Order{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	shift, err := store.GetShift(ctx, req.ShiftID)
	if err != nil {
		return database.Order{}, fmt.Errorf("get shift: %w", err)
	}
	if shift.ClosedAt.Valid {
		return database.Order{}, ErrShiftClosed
	}

	nextNum, err := store.NextOrderNumber(ctx, req.ShiftID)
	if err != nil {
		return database.Order{}, fmt.Errorf("next order number: %w", err)
	}

	customerID, err := parseOptionalUUID(req.CustomerID, ErrInvalidCustomerID)
	if err != nil {
		return database.Order{}, err
	}
	driverID, err := parseOptionalUUID(req.DriverID, ErrInvalidDriverID)
	if err != nil {
		return database.Order{}, err
	}

	tableNumber := pgtype.Int4{}
	if requiresTable(req.OrderType) {
		tableNumber = pgtype.Int4{Int32: req.TableNumber, Valid: true}
	}

	// Web orders arrive already accepted by the storefront and wait for the
	// kitchen to pick them up; counter orders go straight to the kitchen.
	status := enum.OrderStatusProcessing
	total := decimal.Zero
	if isWebOrder(req.OrderType) {
		status = enum.OrderStatusPending
		if total, err = decimal.NewFromString(req.Total); err != nil {
			return database.Order{}, fmt.Errorf("invalid total: %w", err)
		}
	}

	notes := pgtype.Text{}
	if req.Notes != "" {
		notes = pgtype.Text{String: req.Notes, Valid: true}
	}

	order, err := store.CreateOrder(ctx, database.CreateOrderParams{
		ShiftID:             req.ShiftID,
		OrderNumber:         nextNum,
		OrderType:           req.OrderType,
		Status:              status,
		PaymentStatus:       enum.PaymentStatusPending,
		CustomerID:          customerID,
		DriverID:            driverID,
		TableNumber:         tableNumber,
		SubTotal:            decimalToNumeric(total),
		Service:             decimalToNumeric(decimal.Zero),
		Tax:                 decimalToNumeric(decimal.Zero),
		Discount:            decimalToNumeric(decimal.Zero),
		TempDiscountPercent: decimalToNumeric(decimal.Zero),
		Total:               decimalToNumeric(total),
		Profit:              decimalToNumeric(decimal.Zero),
		Notes:               notes,
		CreatedBy:           req.CreatedBy,
	})
	if err != nil {
		return database.Order{}, fmt.Errorf("create order: %w", err)
	}

	if err := s.insertItems(ctx, store, order.ID, req.Items); err != nil {
		return database.Order{}, err
	}

	order, err = recalculateTotals(ctx, store, order)
	if err != nil {
		return database.Order{}, err
	}

	if requiresTable(order.OrderType) {
		if err := reserveTable(ctx, store, req.TableNumber, order.ID); err != nil {
			return database.Order{}, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return database.Order{}, fmt.Errorf("commit tx: %w", err)
	}
	return order, nil
}

// insertItems validates and prices each requested line and inserts it.
// Price and cost are captured from the catalog at sale time.
func (s *OrderService) insertItems(ctx context.Context, store Store, orderID uuid.UUID, items []OrderItemRequest) error {
	for i, item := range items {
		productID, err := uuid.Parse(item.ProductID)
		if err != nil {
			return fmt.Errorf("item[%d]: %w", i, ErrInvalidProductID)
		}
		qty, err := decimal.NewFromString(item.Quantity)
		if err != nil || !qty.IsPositive() {
			return fmt.Errorf("item[%d]: %w", i, ErrInvalidQuantity)
		}

		product, err := store.GetProduct(ctx, productID)
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("item[%d]: %w", i, ErrProductNotFound)
		}
		if err != nil {
			return fmt.Errorf("item[%d]: get product: %w", i, err)
		}

		price := numericToDecimal(product.Price)
		gross := price.Mul(qty)

		discount := decimal.Zero
		if item.Discount != "" {
			if discount, err = decimal.NewFromString(item.Discount); err != nil {
				return fmt.Errorf("item[%d]: invalid discount: %w", i, err)
			}
		}
		discountPercent := decimal.Zero
		if item.DiscountPercent != "" {
			if discountPercent, err = decimal.NewFromString(item.DiscountPercent); err != nil {
				return fmt.Errorf("item[%d]: invalid discount_percent: %w", i, err)
			}
		}
		if discountPercent.IsPositive() {
			discount = gross.Mul(discountPercent).Div(oneHundred)
		}

		lineTotal := gross.Sub(discount)
		if lineTotal.IsNegative() {
			lineTotal = decimal.Zero
		}

		if _, err := store.CreateOrderItem(ctx, database.CreateOrderItemParams{
			OrderID:         orderID,
			ProductID:       productID,
			Quantity:        decimalToNumericExact(qty),
			Price:           product.Price,
			Cost:            product.Cost,
			Discount:        decimalToNumeric(discount),
			DiscountPercent: decimalToNumeric(discountPercent),
			Total:           decimalToNumeric(lineTotal),
		}); err != nil {
			return fmt.Errorf("item[%d]: create: %w", i, err)
		}
	}
	return nil
}

// UpdateItems replaces the order's lines and reprices it. Only pending and
// processing orders may change.
func (s *OrderService) UpdateItems(ctx context.Context, orderID uuid.UUID, items []OrderItemRequest) (database.Order, error) {
	if len(items) == 0 {
		return database.Order{}, ErrEmptyItems
	}

	order, err := s.inOrderTx(ctx, orderID, func(store Store, order database.Order) (database.Order, error) {
		if !statusEditable(order.Status) {
			return database.Order{}, ErrOrderNotEditable
		}
		if err := store.DeleteOrderItemsByOrder(ctx, order.ID); err != nil {
			return database.Order{}, fmt.Errorf("delete items: %w", err)
		}
		if err := s.insertItems(ctx, store, order.ID, items); err != nil {
			return database.Order{}, err
		}
		return recalculateTotals(ctx, store, order)
	})
	if err != nil {
		return database.Order{}, err
	}
	s.notifier.OrderUpdated(order)
	return order, nil
}

// ApplyDiscount sets a fixed or percentage discount and reprices the order.
func (s *OrderService) ApplyDiscount(ctx context.Context, orderID uuid.UUID, discountType, amount string) (database.Order, error) {
	value, err := decimal.NewFromString(amount)
	if err != nil {
		return database.Order{}, fmt.Errorf("invalid discount amount: %w", err)
	}

	order, err := s.inOrderTx(ctx, orderID, func(store Store, order database.Order) (database.Order, error) {
		if !statusEditable(order.Status) {
			return database.Order{}, ErrOrderNotEditable
		}
		return applyDiscount(ctx, store, order, discountType, value)
	})
	if err != nil {
		return database.Order{}, err
	}
	s.notifier.OrderUpdated(order)
	return order, nil
}

// AssignCustomer links a customer and reprices delivery orders, whose
// delivery fee comes from the customer record.
func (s *OrderService) AssignCustomer(ctx context.Context, orderID uuid.UUID, customerID string) (database.Order, error) {
	cid, err := parseOptionalUUID(customerID, ErrInvalidCustomerID)
	if err != nil {
		return database.Order{}, err
	}

	order, err := s.inOrderTx(ctx, orderID, func(store Store, order database.Order) (database.Order, error) {
		if !statusEditable(order.Status) {
			return database.Order{}, ErrOrderNotEditable
		}
		order, err := store.UpdateOrderCustomer(ctx, order.ID, cid)
		if err != nil {
			return database.Order{}, fmt.Errorf("update customer: %w", err)
		}
		if hasDeliveryFee(order.OrderType) {
			return recalculateTotals(ctx, store, order)
		}
		return order, nil
	})
	if err != nil {
		return database.Order{}, err
	}
	s.notifier.OrderUpdated(order)
	return order, nil
}

// AssignDriver links a delivery driver to the order.
func (s *OrderService) AssignDriver(ctx context.Context, orderID uuid.UUID, driverID string) (database.Order, error) {
	did, err := parseOptionalUUID(driverID, ErrInvalidDriverID)
	if err != nil {
		return database.Order{}, err
	}

	order, err := s.inOrderTx(ctx, orderID, func(store Store, order database.Order) (database.Order, error) {
		if order.Status == enum.OrderStatusCompleted || order.Status == enum.OrderStatusCancelled {
			return database.Order{}, ErrOrderNotEditable
		}
		order, err := store.UpdateOrderDriver(ctx, order.ID, did)
		if err != nil {
			return database.Order{}, fmt.Errorf("update driver: %w", err)
		}
		return order, nil
	})
	if err != nil {
		return database.Order{}, err
	}
	s.notifier.OrderUpdated(order)
	return order, nil
}

// ChangeType converts the order to another type, moving its table claim and
// repricing. Switching away from dine-in frees the table; switching to
// dine-in claims the requested one.
func (s *OrderService) ChangeType(ctx context.Context, orderID uuid.UUID, newType string, tableNumber int32) (database.Order, error) {
	if err := validateOrderType(newType); err != nil {
		return database.Order{}, err
	}
	if requiresTable(newType) && tableNumber <= 0 {
		return database.Order{}, ErrTableRequired
	}

	order, err := s.inOrderTx(ctx, orderID, func(store Store, order database.Order) (database.Order, error) {
		if !statusEditable(order.Status) {
			return database.Order{}, ErrOrderNotEditable
		}

		if order.TableNumber.Valid && (!requiresTable(newType) || order.TableNumber.Int32 != tableNumber) {
			if err := freeTable(ctx, store, order.TableNumber.Int32); err != nil {
				return database.Order{}, err
			}
		}

		newTable := pgtype.Int4{}
		if requiresTable(newType) {
			if err := reserveTable(ctx, store, tableNumber, order.ID); err != nil {
				return database.Order{}, err
			}
			newTable = pgtype.Int4{Int32: tableNumber, Valid: true}
		}

		order, err := store.UpdateOrderType(ctx, order.ID, newType, newTable)
		if err != nil {
			return database.Order{}, fmt.Errorf("update order type: %w", err)
		}
		return recalculateTotals(ctx, store, order)
	})
	if err != nil {
		return database.Order{}, err
	}
	s.notifier.OrderUpdated(order)
	return order, nil
}

// UpdateStatus advances the order one step forward. Out-for-delivery is only
// reachable for delivery types; completion and cancellation have their own
// entry points.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID uuid.UUID, newStatus string) (database.Order, error) {
	order, err := s.inOrderTx(ctx, orderID, func(store Store, order database.Order) (database.Order, error) {
		next, ok := forwardTransitions[order.Status]
		if !ok || next != newStatus {
			return database.Order{}, ErrInvalidStatusChange
		}
		if newStatus == enum.OrderStatusOutForDelivery && !hasDeliveryFee(order.OrderType) {
			return database.Order{}, ErrInvalidStatusChange
		}
		order, err := store.UpdateOrderStatus(ctx, order.ID, newStatus)
		if err != nil {
			return database.Order{}, fmt.Errorf("update status: %w", err)
		}
		// Web totals stay fixed at acceptance; only counter orders reprice.
		if newStatus == enum.OrderStatusProcessing && !isWebOrder(order.OrderType) {
			return recalculateTotals(ctx, store, order)
		}
		return order, nil
	})
	if err != nil {
		return database.Order{}, err
	}
	s.notifier.OrderUpdated(order)
	return order, nil
}

// ProcessPayment records one payment against the order in its own
// transaction. Overpayment is capped at the remaining balance.
func (s *OrderService) ProcessPayment(ctx context.Context, orderID uuid.UUID, method, amount string, createdBy uuid.UUID) (database.Order, error) {
	value, err := decimal.NewFromString(amount)
	if err != nil {
		return database.Order{}, fmt.Errorf("invalid amount: %w", err)
	}

	var payment database.Payment
	order, err := s.inOrderTx(ctx, orderID, func(store Store, order database.Order) (database.Order, error) {
		if order.Status == enum.OrderStatusCancelled {
			return database.Order{}, ErrOrderNotEditable
		}
		var err error
		order, payment, err = applyPayment(ctx, store, order, PaymentRequest{Method: method, Amount: value}, createdBy)
		return order, err
	})
	if err != nil {
		return database.Order{}, err
	}
	if payment.ID != uuid.Nil {
		s.notifier.PaymentProcessed(order, payment)
	}
	return order, nil
}

// Complete settles and closes the order: allocates the given payments,
// verifies full payment, frees the table, and marks it completed. The row
// lock makes concurrent completions serialize; the loser sees the terminal
// status and fails. Stock is deducted after commit and never blocks the sale
// unless insufficient stock is configured to.
func (s *OrderService) Complete(ctx context.Context, orderID uuid.UUID, payments []PaymentRequest, completedBy uuid.UUID) (database.Order, error) {
	var stockItems []StockItem
	var recorded []database.Payment

	order, err := s.inOrderTx(ctx, orderID, func(store Store, order database.Order) (database.Order, error) {
		if !statusCompletable(order.Status) {
			return database.Order{}, ErrOrderNotCompletable
		}

		// Rate settings may have moved since the last edit; reprice before
		// settling. Web orders keep their storefront totals.
		order, err := recalculateTotals(ctx, store, order)
		if err != nil {
			return database.Order{}, err
		}

		items, err := store.ListOrderItemsByOrder(ctx, order.ID)
		if err != nil {
			return database.Order{}, fmt.Errorf("list items: %w", err)
		}
		stockItems, err = expandOrderItems(ctx, store, items)
		if err != nil {
			return database.Order{}, err
		}
		if !s.allowInsufficientStock {
			shortfalls, err := checkStockAvailability(ctx, store, stockItems)
			if err != nil {
				return database.Order{}, err
			}
			if len(shortfalls) > 0 {
				return database.Order{}, &InsufficientStockError{Shortfalls: shortfalls}
			}
		}

		switch len(payments) {
		case 0:
			// Settled earlier through ProcessPayment.
		case 1:
			paid, payment, err := applyPayment(ctx, store, order, payments[0], completedBy)
			if err != nil {
				return database.Order{}, err
			}
			order = paid
			if payment.ID != uuid.Nil {
				recorded = append(recorded, payment)
			}
		default:
			var batch []database.Payment
			order, batch, err = applyPayments(ctx, store, order, payments, completedBy)
			if err != nil {
				return database.Order{}, err
			}
			recorded = append(recorded, batch...)
		}
		if order.PaymentStatus != enum.PaymentStatusFull {
			return database.Order{}, ErrOrderNotPaid
		}

		if order.TableNumber.Valid {
			if err := freeTable(ctx, store, order.TableNumber.Int32); err != nil {
				return database.Order{}, err
			}
		}

		order, err = store.MarkOrderCompleted(ctx, order.ID, enum.OrderStatusCompleted)
		if err != nil {
			return database.Order{}, fmt.Errorf("mark completed: %w", err)
		}
		return order, nil
	})
	if err != nil {
		return database.Order{}, err
	}

	s.notifier.OrderCompleted(order)
	for _, p := range recorded {
		s.notifier.PaymentProcessed(order, p)
	}
	s.adjustStockForOrder(ctx, order, stockItems, enum.MovementOpOut)
	return order, nil
}

// Cancel voids the order: payments are deleted, the table is freed, and
// profit drops to zero. Cancelling an already completed order additionally
// returns its deducted stock. Only already-cancelled orders are rejected.
func (s *OrderService) Cancel(ctx context.Context, orderID uuid.UUID) (database.Order, error) {
	var stockItems []StockItem
	wasCompleted := false

	order, err := s.inOrderTx(ctx, orderID, func(store Store, order database.Order) (database.Order, error) {
		if order.Status == enum.OrderStatusCancelled {
			return database.Order{}, ErrOrderNotCancellable
		}
		wasCompleted = order.Status == enum.OrderStatusCompleted

		if wasCompleted {
			items, err := store.ListOrderItemsByOrder(ctx, order.ID)
			if err != nil {
				return database.Order{}, fmt.Errorf("list items: %w", err)
			}
			if stockItems, err = expandOrderItems(ctx, store, items); err != nil {
				return database.Order{}, err
			}
		}

		if _, err := store.DeletePaymentsByOrder(ctx, order.ID); err != nil {
			return database.Order{}, fmt.Errorf("delete payments: %w", err)
		}
		if _, err := store.UpdateOrderPaymentStatus(ctx, order.ID, enum.PaymentStatusPending); err != nil {
			return database.Order{}, fmt.Errorf("reset payment status: %w", err)
		}

		if order.TableNumber.Valid {
			if err := freeTable(ctx, store, order.TableNumber.Int32); err != nil {
				return database.Order{}, err
			}
		}

		order, err := store.MarkOrderCancelled(ctx, order.ID, enum.OrderStatusCancelled)
		if err != nil {
			return database.Order{}, fmt.Errorf("mark cancelled: %w", err)
		}
		return order, nil
	})
	if err != nil {
		return database.Order{}, err
	}

	s.notifier.OrderCancelled(order)
	if wasCompleted {
		s.adjustStockForOrder(ctx, order, stockItems, enum.MovementOpIn)
	}
	return order, nil
}

// inOrderTx runs fn inside a transaction holding a row lock on the order.
func (s *OrderService) inOrderTx(ctx context.Context, orderID uuid.UUID, fn func(store Store, order database.Order) (database.Order, error)) (database.Order, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.Order{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	order, err := store.GetOrderForUpdate(ctx, orderID)
	if errors.Is(err, pgx.ErrNoRows) {
		return database.Order{}, ErrOrderNotFound
	}
	if err != nil {
		return database.Order{}, fmt.Errorf("get order: %w", err)
	}

	order, err = fn(store, order)
	if err != nil {
		return database.Order{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return database.Order{}, fmt.Errorf("commit tx: %w", err)
	}
	return order, nil
}

// adjustStockForOrder applies the expanded stock change in its own
// transaction, after the lifecycle change committed. A failure here must not
// undo the sale: it is logged and parked in the outbox for manual retry.
func (s *OrderService) adjustStockForOrder(ctx context.Context, order database.Order, items []StockItem, operation string) {
	if len(items) == 0 {
		return
	}

	err := s.adjustStockTx(ctx, order, items, operation)
	if err == nil {
		return
	}
	log.Printf("ERROR: stock adjustment (%s) for order %s failed: %v", operation, order.ID, err)

	payload, merr := json.Marshal(items)
	if merr != nil {
		log.Printf("ERROR: marshal outbox items for order %s: %v", order.ID, merr)
		return
	}
	if _, oerr := s.store.CreateStockOutboxEntry(ctx, database.CreateStockOutboxEntryParams{
		OrderID:   order.ID,
		Operation: operation,
		Items:     payload,
		LastError: err.Error(),
	}); oerr != nil {
		log.Printf("ERROR: record stock outbox entry for order %s: %v", order.ID, oerr)
	}
}

func (s *OrderService) adjustStockTx(ctx context.Context, order database.Order, items []StockItem, operation string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)
	origin := MovementOrigin{Kind: enum.OriginKindOrder, ID: pgtype.UUID{Bytes: order.ID, Valid: true}}
	note := fmt.Sprintf("order #%d", order.OrderNumber)

	if operation == enum.MovementOpOut {
		err = removeStock(ctx, store, items, enum.MovementReasonOrder, note, origin)
	} else {
		err = addStock(ctx, store, items, enum.MovementReasonOrderReturn, note, origin)
	}
	if err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// RetryStockOutbox replays parked stock adjustments. Entries that apply
// cleanly are marked retried; the rest stay pending with their error logged.
func (s *OrderService) RetryStockOutbox(ctx context.Context) (int, error) {
	entries, err := s.store.ListPendingStockOutbox(ctx)
	if err != nil {
		return 0, fmt.Errorf("list outbox: %w", err)
	}

	applied := 0
	for _, entry := range entries {
		var items []StockItem
		if err := json.Unmarshal(entry.Items, &items); err != nil {
			log.Printf("ERROR: outbox entry %s has malformed items: %v", entry.ID, err)
			continue
		}
		order, err := s.store.GetOrder(ctx, entry.OrderID)
		if err != nil {
			log.Printf("ERROR: outbox entry %s: get order: %v", entry.ID, err)
			continue
		}
		if err := s.adjustStockTx(ctx, order, items, entry.Operation); err != nil {
			log.Printf("ERROR: outbox entry %s retry failed: %v", entry.ID, err)
			continue
		}
		if _, err := s.store.MarkStockOutboxRetried(ctx, entry.ID); err != nil {
			log.Printf("ERROR: outbox entry %s: mark retried: %v", entry.ID, err)
			continue
		}
		applied++
	}
	return applied, nil
}

func parseOptionalUUID(s string, invalid error) (pgtype.UUID, error) {
	if s == "" {
		return pgtype.UUID{}, nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return pgtype.UUID{}, invalid
	}
	return pgtype.UUID{Bytes: id, Valid: true}, nil
}
