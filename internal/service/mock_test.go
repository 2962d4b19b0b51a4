package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/sajian-pos/api/internal/database"
	"github.com/sajian-pos/api/internal/enum"
	"github.com/shopspring/decimal"
)

// --- Mock implementations ---

// mockTx implements pgx.Tx with only the methods we need.
// The unused methods panic so we catch accidental calls.
type mockTx struct {
	commitErr   error
	rollbackErr error
	commits     int
}

func (m *mockTx) Begin(ctx context.Context) (pgx.Tx, error) { panic("not implemented") }
func (m *mockTx) Commit(ctx context.Context) error {
	if m.commitErr == nil {
		m.commits++
	}
	return m.commitErr
}
func (m *mockTx) Rollback(ctx context.Context) error { return m.rollbackErr }
func (m *mockTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	panic("not implemented")
}
func (m *mockTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	panic("not implemented")
}
func (m *mockTx) LargeObjects() pgx.LargeObjects { panic("not implemented") }
func (m *mockTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	panic("not implemented")
}
func (m *mockTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	panic("not implemented")
}
func (m *mockTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	panic("not implemented")
}
func (m *mockTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	panic("not implemented")
}
func (m *mockTx) Conn() *pgx.Conn { panic("not implemented") }

// mockTxBeginner implements TxBeginner.
type mockTxBeginner struct {
	tx  pgx.Tx
	err error
}

func (m *mockTxBeginner) Begin(ctx context.Context) (pgx.Tx, error) {
	return m.tx, m.err
}

// fakeStore is an in-memory Store. All lifecycle paths run against the same
// maps, so tests can assert cross-cutting effects (table freed, movements
// written, outbox populated) after a service call.
type fakeStore struct {
	shifts     map[uuid.UUID]database.Shift
	products   map[uuid.UUID]database.Product
	components map[uuid.UUID][]database.ProductComponent
	settings   map[string]string
	customers  map[uuid.UUID]database.Customer
	orders     map[uuid.UUID]database.Order
	items      map[uuid.UUID][]database.OrderItem
	payments   map[uuid.UUID][]database.Payment
	tables     map[int32]database.DineTable
	movements  []database.InventoryMovement
	days       map[uuid.UUID]database.InventoryMovementDay
	closedDays map[uuid.UUID]bool
	outbox     []database.StockAdjustmentOutbox

	orderNumber int32

	// Failure injection. When set, the corresponding method fails once per call.
	adjustStockErr   error
	createPaymentErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		shifts:     map[uuid.UUID]database.Shift{},
		products:   map[uuid.UUID]database.Product{},
		components: map[uuid.UUID][]database.ProductComponent{},
		settings:   map[string]string{},
		customers:  map[uuid.UUID]database.Customer{},
		orders:     map[uuid.UUID]database.Order{},
		items:      map[uuid.UUID][]database.OrderItem{},
		payments:   map[uuid.UUID][]database.Payment{},
		tables:     map[int32]database.DineTable{},
		days:       map[uuid.UUID]database.InventoryMovementDay{},
		closedDays: map[uuid.UUID]bool{},
	}
}

// --- seed helpers ---

func (f *fakeStore) addShift() uuid.UUID {
	id := uuid.New()
	f.shifts[id] = database.Shift{ID: id, OpenedBy: uuid.New(), OpenedAt: time.Now()}
	return id
}

func (f *fakeStore) addProduct(name, productType, price, cost, stock string) uuid.UUID {
	id := uuid.New()
	f.products[id] = database.Product{
		ID:            id,
		Name:          name,
		ProductType:   productType,
		Price:         makeNumeric(price),
		Cost:          makeNumeric(cost),
		StockQuantity: makeNumeric(stock),
		Active:        true,
	}
	return id
}

func (f *fakeStore) addComponent(productID, componentID uuid.UUID, qty string) {
	f.components[productID] = append(f.components[productID], database.ProductComponent{
		ID:          uuid.New(),
		ProductID:   productID,
		ComponentID: componentID,
		Quantity:    makeNumeric(qty),
	})
}

// --- CalcStore ---

func (f *fakeStore) ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error) {
	return f.items[orderID], nil
}

func (f *fakeStore) GetSetting(ctx context.Context, key string) (database.Setting, error) {
	v, ok := f.settings[key]
	if !ok {
		return database.Setting{}, pgx.ErrNoRows
	}
	return database.Setting{Key: key, Value: v}, nil
}

func (f *fakeStore) GetCustomer(ctx context.Context, id uuid.UUID) (database.Customer, error) {
	c, ok := f.customers[id]
	if !ok {
		return database.Customer{}, pgx.ErrNoRows
	}
	return c, nil
}

func (f *fakeStore) UpdateOrderTotals(ctx context.Context, arg database.UpdateOrderTotalsParams) (database.Order, error) {
	o, ok := f.orders[arg.ID]
	if !ok {
		return database.Order{}, pgx.ErrNoRows
	}
	o.SubTotal = arg.SubTotal
	o.Service = arg.Service
	o.Tax = arg.Tax
	o.Discount = arg.Discount
	o.TempDiscountPercent = arg.TempDiscountPercent
	o.Total = arg.Total
	o.Profit = arg.Profit
	f.orders[arg.ID] = o
	return o, nil
}

// --- PaymentStore ---

func (f *fakeStore) ListPaymentsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.Payment, error) {
	return f.payments[orderID], nil
}

func (f *fakeStore) SumPaymentsByOrder(ctx context.Context, orderID uuid.UUID) (pgtype.Numeric, error) {
	sum := decimal.Zero
	for _, p := range f.payments[orderID] {
		sum = sum.Add(numericToDecimal(p.Amount))
	}
	return decimalToNumeric(sum), nil
}

func (f *fakeStore) CreatePayment(ctx context.Context, arg database.CreatePaymentParams) (database.Payment, error) {
	if f.createPaymentErr != nil {
		return database.Payment{}, f.createPaymentErr
	}
	p := database.Payment{
		ID:        uuid.New(),
		OrderID:   arg.OrderID,
		ShiftID:   arg.ShiftID,
		Method:    arg.Method,
		Amount:    arg.Amount,
		CreatedBy: arg.CreatedBy,
		CreatedAt: time.Now(),
	}
	f.payments[arg.OrderID] = append(f.payments[arg.OrderID], p)
	return p, nil
}

func (f *fakeStore) DeletePaymentsByOrder(ctx context.Context, orderID uuid.UUID) (int64, error) {
	n := int64(len(f.payments[orderID]))
	delete(f.payments, orderID)
	return n, nil
}

func (f *fakeStore) UpdateOrderPaymentStatus(ctx context.Context, id uuid.UUID, paymentStatus string) (database.Order, error) {
	o, ok := f.orders[id]
	if !ok {
		return database.Order{}, pgx.ErrNoRows
	}
	o.PaymentStatus = paymentStatus
	f.orders[id] = o
	return o, nil
}

// --- TableStore ---

func (f *fakeStore) GetDineTable(ctx context.Context, tableNumber int32) (database.DineTable, error) {
	t, ok := f.tables[tableNumber]
	if !ok {
		return database.DineTable{}, pgx.ErrNoRows
	}
	return t, nil
}

func (f *fakeStore) ReserveDineTable(ctx context.Context, tableNumber int32, orderID uuid.UUID) (database.DineTable, error) {
	t, ok := f.tables[tableNumber]
	if ok && t.OrderID.Valid {
		return database.DineTable{}, pgx.ErrNoRows
	}
	t = database.DineTable{
		TableNumber: tableNumber,
		OrderID:     pgtype.UUID{Bytes: orderID, Valid: true},
		UpdatedAt:   time.Now(),
	}
	f.tables[tableNumber] = t
	return t, nil
}

func (f *fakeStore) FreeDineTable(ctx context.Context, tableNumber int32) error {
	t, ok := f.tables[tableNumber]
	if !ok {
		return nil
	}
	t.OrderID = pgtype.UUID{}
	f.tables[tableNumber] = t
	return nil
}

// --- CatalogStore ---

func (f *fakeStore) GetProduct(ctx context.Context, id uuid.UUID) (database.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return database.Product{}, pgx.ErrNoRows
	}
	return p, nil
}

func (f *fakeStore) ListComponentsByProduct(ctx context.Context, productID uuid.UUID) ([]database.ProductComponent, error) {
	return f.components[productID], nil
}

// --- LedgerStore ---

func (f *fakeStore) GetProductStock(ctx context.Context, id uuid.UUID) (pgtype.Numeric, error) {
	p, ok := f.products[id]
	if !ok {
		return pgtype.Numeric{}, pgx.ErrNoRows
	}
	return p.StockQuantity, nil
}

func (f *fakeStore) AdjustProductStock(ctx context.Context, id uuid.UUID, delta pgtype.Numeric) (pgtype.Numeric, error) {
	if f.adjustStockErr != nil {
		return pgtype.Numeric{}, f.adjustStockErr
	}
	p, ok := f.products[id]
	if !ok {
		return pgtype.Numeric{}, pgx.ErrNoRows
	}
	newStock := numericToDecimal(p.StockQuantity).Add(numericToDecimal(delta))
	p.StockQuantity = decimalToNumericExact(newStock)
	f.products[id] = p
	return p.StockQuantity, nil
}

func (f *fakeStore) CreateInventoryMovement(ctx context.Context, arg database.CreateInventoryMovementParams) (database.InventoryMovement, error) {
	m := database.InventoryMovement{
		ID:         uuid.New(),
		ProductID:  arg.ProductID,
		Operation:  arg.Operation,
		Quantity:   arg.Quantity,
		Reason:     arg.Reason,
		Note:       arg.Note,
		OriginKind: arg.OriginKind,
		OriginID:   arg.OriginID,
		CreatedAt:  time.Now(),
	}
	f.movements = append(f.movements, m)
	return m, nil
}

func (f *fakeStore) UpsertMovementDay(ctx context.Context, arg database.UpsertMovementDayParams) (database.InventoryMovementDay, error) {
	if f.closedDays[arg.ProductID] {
		return database.InventoryMovementDay{}, pgx.ErrNoRows
	}
	d, ok := f.days[arg.ProductID]
	if !ok {
		d = database.InventoryMovementDay{
			ProductID: arg.ProductID,
			Day:       arg.Day,
			StartQty:  arg.StartQty,
		}
	}
	add := func(a, b pgtype.Numeric) pgtype.Numeric {
		return decimalToNumericExact(numericToDecimal(a).Add(numericToDecimal(b)))
	}
	d.Incoming = add(d.Incoming, arg.Incoming)
	d.Sales = add(d.Sales, arg.Sales)
	d.ReturnSales = add(d.ReturnSales, arg.ReturnSales)
	d.ReturnWaste = add(d.ReturnWaste, arg.ReturnWaste)
	end := numericToDecimal(d.StartQty).
		Add(numericToDecimal(d.Incoming)).
		Add(numericToDecimal(d.ReturnSales)).
		Sub(numericToDecimal(d.Sales)).
		Sub(numericToDecimal(d.ReturnWaste))
	d.EndQty = decimalToNumericExact(end)
	f.days[arg.ProductID] = d
	return d, nil
}

// --- order lifecycle ---

func (f *fakeStore) NextOrderNumber(ctx context.Context, shiftID uuid.UUID) (int32, error) {
	f.orderNumber++
	return f.orderNumber, nil
}

func (f *fakeStore) CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
	o := database.Order{
		ID:                  uuid.New(),
		ShiftID:             arg.ShiftID,
		OrderNumber:         arg.OrderNumber,
		OrderType:           arg.OrderType,
		Status:              arg.Status,
		PaymentStatus:       arg.PaymentStatus,
		CustomerID:          arg.CustomerID,
		DriverID:            arg.DriverID,
		TableNumber:         arg.TableNumber,
		SubTotal:            arg.SubTotal,
		Service:             arg.Service,
		Tax:                 arg.Tax,
		Discount:            arg.Discount,
		TempDiscountPercent: arg.TempDiscountPercent,
		Total:               arg.Total,
		Profit:              arg.Profit,
		Notes:               arg.Notes,
		CreatedBy:           arg.CreatedBy,
		CreatedAt:           time.Now(),
	}
	f.orders[o.ID] = o
	return o, nil
}

func (f *fakeStore) GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error) {
	o, ok := f.orders[id]
	if !ok {
		return database.Order{}, pgx.ErrNoRows
	}
	return o, nil
}

func (f *fakeStore) GetOrderForUpdate(ctx context.Context, id uuid.UUID) (database.Order, error) {
	return f.GetOrder(ctx, id)
}

func (f *fakeStore) UpdateOrderStatus(ctx context.Context, id uuid.UUID, status string) (database.Order, error) {
	o, ok := f.orders[id]
	if !ok {
		return database.Order{}, pgx.ErrNoRows
	}
	o.Status = status
	f.orders[id] = o
	return o, nil
}

func (f *fakeStore) MarkOrderCompleted(ctx context.Context, id uuid.UUID, status string) (database.Order, error) {
	o, ok := f.orders[id]
	if !ok {
		return database.Order{}, pgx.ErrNoRows
	}
	o.Status = status
	o.CompletedAt = pgtype.Timestamptz{Time: time.Now(), Valid: true}
	f.orders[id] = o
	return o, nil
}

func (f *fakeStore) MarkOrderCancelled(ctx context.Context, id uuid.UUID, status string) (database.Order, error) {
	o, ok := f.orders[id]
	if !ok {
		return database.Order{}, pgx.ErrNoRows
	}
	o.Status = status
	o.Profit = makeNumeric("0")
	f.orders[id] = o
	return o, nil
}

func (f *fakeStore) UpdateOrderType(ctx context.Context, id uuid.UUID, orderType string, tableNumber pgtype.Int4) (database.Order, error) {
	o, ok := f.orders[id]
	if !ok {
		return database.Order{}, pgx.ErrNoRows
	}
	o.OrderType = orderType
	o.TableNumber = tableNumber
	f.orders[id] = o
	return o, nil
}

func (f *fakeStore) UpdateOrderCustomer(ctx context.Context, id uuid.UUID, customerID pgtype.UUID) (database.Order, error) {
	o, ok := f.orders[id]
	if !ok {
		return database.Order{}, pgx.ErrNoRows
	}
	o.CustomerID = customerID
	f.orders[id] = o
	return o, nil
}

func (f *fakeStore) UpdateOrderDriver(ctx context.Context, id uuid.UUID, driverID pgtype.UUID) (database.Order, error) {
	o, ok := f.orders[id]
	if !ok {
		return database.Order{}, pgx.ErrNoRows
	}
	o.DriverID = driverID
	f.orders[id] = o
	return o, nil
}

func (f *fakeStore) CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error) {
	i := database.OrderItem{
		ID:              uuid.New(),
		OrderID:         arg.OrderID,
		ProductID:       arg.ProductID,
		Quantity:        arg.Quantity,
		Price:           arg.Price,
		Cost:            arg.Cost,
		Discount:        arg.Discount,
		DiscountPercent: arg.DiscountPercent,
		Total:           arg.Total,
	}
	f.items[arg.OrderID] = append(f.items[arg.OrderID], i)
	return i, nil
}

func (f *fakeStore) DeleteOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) error {
	delete(f.items, orderID)
	return nil
}

func (f *fakeStore) GetShift(ctx context.Context, id uuid.UUID) (database.Shift, error) {
	s, ok := f.shifts[id]
	if !ok {
		return database.Shift{}, pgx.ErrNoRows
	}
	return s, nil
}

func (f *fakeStore) CreateStockOutboxEntry(ctx context.Context, arg database.CreateStockOutboxEntryParams) (database.StockAdjustmentOutbox, error) {
	e := database.StockAdjustmentOutbox{
		ID:        uuid.New(),
		OrderID:   arg.OrderID,
		Operation: arg.Operation,
		Items:     arg.Items,
		LastError: arg.LastError,
		CreatedAt: time.Now(),
	}
	f.outbox = append(f.outbox, e)
	return e, nil
}

func (f *fakeStore) ListPendingStockOutbox(ctx context.Context) ([]database.StockAdjustmentOutbox, error) {
	var pending []database.StockAdjustmentOutbox
	for _, e := range f.outbox {
		if !e.RetriedAt.Valid {
			pending = append(pending, e)
		}
	}
	return pending, nil
}

func (f *fakeStore) MarkStockOutboxRetried(ctx context.Context, id uuid.UUID) (int64, error) {
	for i, e := range f.outbox {
		if e.ID == id {
			f.outbox[i].RetriedAt = pgtype.Timestamptz{Time: time.Now(), Valid: true}
			return 1, nil
		}
	}
	return 0, nil
}

// recordNotifier captures published events.
type recordNotifier struct {
	created   []database.Order
	updated   []database.Order
	completed []database.Order
	cancelled []database.Order
	payments  []database.Payment
}

func (n *recordNotifier) OrderCreated(o database.Order)   { n.created = append(n.created, o) }
func (n *recordNotifier) OrderUpdated(o database.Order)   { n.updated = append(n.updated, o) }
func (n *recordNotifier) OrderCompleted(o database.Order) { n.completed = append(n.completed, o) }
func (n *recordNotifier) OrderCancelled(o database.Order) { n.cancelled = append(n.cancelled, o) }
func (n *recordNotifier) PaymentProcessed(o database.Order, p database.Payment) {
	n.payments = append(n.payments, p)
}

// --- Test helpers ---

func makeNumeric(val string) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(val)
	return n
}

func numericEquals(n pgtype.Numeric, expected string) bool {
	d := numericToDecimal(n)
	exp, _ := decimal.NewFromString(expected)
	return d.Equal(exp)
}

// newTestService wires an OrderService onto a fakeStore.
func newTestService(store *fakeStore) (*OrderService, *recordNotifier) {
	tx := &mockTx{}
	pool := &mockTxBeginner{tx: tx}
	notifier := &recordNotifier{}
	newStore := func(db database.DBTX) Store { return store }
	return NewOrderService(pool, store, newStore, notifier, true), notifier
}

func newBlockingTestService(store *fakeStore) (*OrderService, *recordNotifier) {
	tx := &mockTx{}
	pool := &mockTxBeginner{tx: tx}
	notifier := &recordNotifier{}
	newStore := func(db database.DBTX) Store { return store }
	return NewOrderService(pool, store, newStore, notifier, false), notifier
}

// seedOrder creates an order with one line of the given product directly in
// the fake, bypassing CreateOrder, so tests control the starting status.
func seedOrder(f *fakeStore, shiftID, productID uuid.UUID, qty, total string, status string) database.Order {
	o := database.Order{
		ID:            uuid.New(),
		ShiftID:       shiftID,
		OrderNumber:   1,
		OrderType:     enum.OrderTypeTakeaway,
		Status:        status,
		PaymentStatus: enum.PaymentStatusPending,
		SubTotal:      makeNumeric(total),
		Total:         makeNumeric(total),
		CreatedBy:     uuid.New(),
		CreatedAt:     time.Now(),
	}
	f.orders[o.ID] = o
	p := f.products[productID]
	f.items[o.ID] = []database.OrderItem{{
		ID:        uuid.New(),
		OrderID:   o.ID,
		ProductID: productID,
		Quantity:  makeNumeric(qty),
		Price:     p.Price,
		Cost:      p.Cost,
		Total:     makeNumeric(total),
	}}
	return o
}
