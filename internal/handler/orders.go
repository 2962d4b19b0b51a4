package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/sajian-pos/api/internal/database"
	"github.com/sajian-pos/api/internal/middleware"
	"github.com/sajian-pos/api/internal/service"
)

// OrderServicer defines the service methods needed by order handlers.
// Satisfied by *service.OrderService; narrow interface for testability.
type OrderServicer interface {
	CreateOrder(ctx context.Context, req service.CreateOrderRequest) (database.Order, error)
	UpdateItems(ctx context.Context, orderID uuid.UUID, items []service.OrderItemRequest) (database.Order, error)
	ApplyDiscount(ctx context.Context, orderID uuid.UUID, discountType, amount string) (database.Order, error)
	AssignCustomer(ctx context.Context, orderID uuid.UUID, customerID string) (database.Order, error)
	AssignDriver(ctx context.Context, orderID uuid.UUID, driverID string) (database.Order, error)
	ChangeType(ctx context.Context, orderID uuid.UUID, newType string, tableNumber int32) (database.Order, error)
	UpdateStatus(ctx context.Context, orderID uuid.UUID, newStatus string) (database.Order, error)
	ProcessPayment(ctx context.Context, orderID uuid.UUID, method, amount string, createdBy uuid.UUID) (database.Order, error)
	Complete(ctx context.Context, orderID uuid.UUID, payments []service.PaymentRequest, completedBy uuid.UUID) (database.Order, error)
	Cancel(ctx context.Context, orderID uuid.UUID) (database.Order, error)
}

// OrderStore defines the database methods needed by order read handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type OrderStore interface {
	GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
	ListOrders(ctx context.Context, arg database.ListOrdersParams) ([]database.Order, error)
	ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error)
	ListPaymentsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.Payment, error)
}

// OrderHandler handles order endpoints.
type OrderHandler struct {
	svc   OrderServicer
	store OrderStore
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(svc OrderServicer, store OrderStore) *OrderHandler {
	return &OrderHandler{svc: svc, store: store}
}

// RegisterRoutes registers order endpoints on the given Chi router.
// Expected to be mounted at /orders.
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Put("/{id}/items", h.UpdateItems)
	r.Patch("/{id}/status", h.UpdateStatus)
	r.Patch("/{id}/discount", h.ApplyDiscount)
	r.Patch("/{id}/customer", h.AssignCustomer)
	r.Patch("/{id}/driver", h.AssignDriver)
	r.Patch("/{id}/type", h.ChangeType)
	r.Post("/{id}/payments", h.ProcessPayment)
	r.Post("/{id}/complete", h.Complete)
	r.Delete("/{id}", h.Cancel)
}

// --- Request / Response types ---

type createOrderRequest struct {
	ShiftID     string                   `json:"shift_id"`
	OrderType   string                   `json:"order_type"`
	TableNumber int32                    `json:"table_number"`
	CustomerID  string                   `json:"customer_id"`
	DriverID    string                   `json:"driver_id"`
	Notes       string                   `json:"notes"`
	Total       string                   `json:"total"`
	Items       []createOrderItemRequest `json:"items"`
}

type createOrderItemRequest struct {
	ProductID       string `json:"product_id"`
	Quantity        string `json:"quantity"`
	Discount        string `json:"discount"`
	DiscountPercent string `json:"discount_percent"`
}

type updateItemsRequest struct {
	Items []createOrderItemRequest `json:"items"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

type applyDiscountRequest struct {
	DiscountType string `json:"discount_type"`
	Amount       string `json:"amount"`
}

type assignCustomerRequest struct {
	CustomerID string `json:"customer_id"`
}

type assignDriverRequest struct {
	DriverID string `json:"driver_id"`
}

type changeTypeRequest struct {
	OrderType   string `json:"order_type"`
	TableNumber int32  `json:"table_number"`
}

type processPaymentRequest struct {
	Method string `json:"method"`
	Amount string `json:"amount"`
}

type completeOrderRequest struct {
	Payments []processPaymentRequest `json:"payments"`
}

type orderResponse struct {
	ID              uuid.UUID  `json:"id"`
	ShiftID         uuid.UUID  `json:"shift_id"`
	OrderNumber     int32      `json:"order_number"`
	OrderType       string     `json:"order_type"`
	Status          string     `json:"status"`
	PaymentStatus   string     `json:"payment_status"`
	CustomerID      *uuid.UUID `json:"customer_id"`
	DriverID        *uuid.UUID `json:"driver_id"`
	TableNumber     *int32     `json:"table_number"`
	SubTotal        string     `json:"sub_total"`
	Service         string     `json:"service"`
	Tax             string     `json:"tax"`
	Discount        string     `json:"discount"`
	DiscountPercent string     `json:"discount_percent"`
	Total           string     `json:"total"`
	Profit          string     `json:"profit"`
	Notes           *string    `json:"notes"`
	CreatedBy       uuid.UUID  `json:"created_by"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	CompletedAt     *time.Time `json:"completed_at"`
}

type orderItemResponse struct {
	ID              uuid.UUID `json:"id"`
	ProductID       uuid.UUID `json:"product_id"`
	Quantity        string    `json:"quantity"`
	Price           string    `json:"price"`
	Cost            string    `json:"cost"`
	Discount        string    `json:"discount"`
	DiscountPercent string    `json:"discount_percent"`
	Total           string    `json:"total"`
}

type paymentResponse struct {
	ID        uuid.UUID `json:"id"`
	OrderID   uuid.UUID `json:"order_id"`
	Method    string    `json:"method"`
	Amount    string    `json:"amount"`
	CreatedBy uuid.UUID `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}

// orderDetailResponse extends orderResponse with items and payments for the
// GET detail endpoint.
type orderDetailResponse struct {
	orderResponse
	Items    []orderItemResponse `json:"items"`
	Payments []paymentResponse   `json:"payments"`
}

// orderListResponse wraps a list of orders with pagination metadata.
type orderListResponse struct {
	Orders []orderResponse `json:"orders"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
}

// --- Handlers ---

// Create handles POST /orders.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	shiftID, err := uuid.Parse(req.ShiftID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid shift ID")
		return
	}

	svcItems := make([]service.OrderItemRequest, len(req.Items))
	for i, item := range req.Items {
		svcItems[i] = service.OrderItemRequest{
			ProductID:       item.ProductID,
			Quantity:        item.Quantity,
			Discount:        item.Discount,
			DiscountPercent: item.DiscountPercent,
		}
	}

	order, err := h.svc.CreateOrder(r.Context(), service.CreateOrderRequest{
		ShiftID:     shiftID,
		CreatedBy:   claims.UserID,
		OrderType:   req.OrderType,
		TableNumber: req.TableNumber,
		CustomerID:  req.CustomerID,
		DriverID:    req.DriverID,
		Notes:       req.Notes,
		Total:       req.Total,
		Items:       svcItems,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, dbOrderToResponse(order))
}

// List handles GET /orders.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if s := r.URL.Query().Get("limit"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			limit = v
		}
	}
	if limit > 100 {
		limit = 100
	}

	offset := 0
	if s := r.URL.Query().Get("offset"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v >= 0 {
			offset = v
		}
	}

	params := database.ListOrdersParams{
		Limit:  int32(limit),
		Offset: int32(offset),
	}

	if s := r.URL.Query().Get("shift_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid shift_id")
			return
		}
		params.ShiftID = pgtype.UUID{Bytes: id, Valid: true}
	}
	if s := r.URL.Query().Get("status"); s != "" {
		params.Status = pgtype.Text{String: s, Valid: true}
	}
	if s := r.URL.Query().Get("type"); s != "" {
		params.OrderType = pgtype.Text{String: s, Valid: true}
	}

	orders, err := h.store.ListOrders(r.Context(), params)
	if err != nil {
		log.Printf("ERROR: list orders: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]orderResponse, len(orders))
	for i, o := range orders {
		resp[i] = dbOrderToResponse(o)
	}

	writeJSON(w, http.StatusOK, orderListResponse{
		Orders: resp,
		Limit:  limit,
		Offset: offset,
	})
}

// Get handles GET /orders/{id}.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order ID")
		return
	}

	order, err := h.store.GetOrder(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "order not found")
			return
		}
		log.Printf("ERROR: get order: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	items, err := h.store.ListOrderItemsByOrder(r.Context(), orderID)
	if err != nil {
		log.Printf("ERROR: list order items: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	payments, err := h.store.ListPaymentsByOrder(r.Context(), orderID)
	if err != nil {
		log.Printf("ERROR: list payments: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	itemResps := make([]orderItemResponse, len(items))
	for i, item := range items {
		itemResps[i] = dbOrderItemToResponse(item)
	}

	paymentResps := make([]paymentResponse, len(payments))
	for i, p := range payments {
		paymentResps[i] = dbPaymentToResponse(p)
	}

	writeJSON(w, http.StatusOK, orderDetailResponse{
		orderResponse: dbOrderToResponse(order),
		Items:         itemResps,
		Payments:      paymentResps,
	})
}

// UpdateItems handles PUT /orders/{id}/items.
func (h *OrderHandler) UpdateItems(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order ID")
		return
	}

	var req updateItemsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	svcItems := make([]service.OrderItemRequest, len(req.Items))
	for i, item := range req.Items {
		svcItems[i] = service.OrderItemRequest{
			ProductID:       item.ProductID,
			Quantity:        item.Quantity,
			Discount:        item.Discount,
			DiscountPercent: item.DiscountPercent,
		}
	}

	order, err := h.svc.UpdateItems(r.Context(), orderID, svcItems)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dbOrderToResponse(order))
}

// UpdateStatus handles PATCH /orders/{id}/status.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order ID")
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Status == "" {
		writeError(w, http.StatusBadRequest, "status is required")
		return
	}

	order, err := h.svc.UpdateStatus(r.Context(), orderID, req.Status)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dbOrderToResponse(order))
}

// ApplyDiscount handles PATCH /orders/{id}/discount.
func (h *OrderHandler) ApplyDiscount(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order ID")
		return
	}

	var req applyDiscountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	order, err := h.svc.ApplyDiscount(r.Context(), orderID, req.DiscountType, req.Amount)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dbOrderToResponse(order))
}

// AssignCustomer handles PATCH /orders/{id}/customer.
func (h *OrderHandler) AssignCustomer(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order ID")
		return
	}

	var req assignCustomerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	order, err := h.svc.AssignCustomer(r.Context(), orderID, req.CustomerID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dbOrderToResponse(order))
}

// AssignDriver handles PATCH /orders/{id}/driver.
func (h *OrderHandler) AssignDriver(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order ID")
		return
	}

	var req assignDriverRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	order, err := h.svc.AssignDriver(r.Context(), orderID, req.DriverID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dbOrderToResponse(order))
}

// ChangeType handles PATCH /orders/{id}/type.
func (h *OrderHandler) ChangeType(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order ID")
		return
	}

	var req changeTypeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.OrderType == "" {
		writeError(w, http.StatusBadRequest, "order_type is required")
		return
	}

	order, err := h.svc.ChangeType(r.Context(), orderID, req.OrderType, req.TableNumber)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dbOrderToResponse(order))
}

// ProcessPayment handles POST /orders/{id}/payments.
func (h *OrderHandler) ProcessPayment(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order ID")
		return
	}

	var req processPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	order, err := h.svc.ProcessPayment(r.Context(), orderID, req.Method, req.Amount, claims.UserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dbOrderToResponse(order))
}

// Complete handles POST /orders/{id}/complete.
func (h *OrderHandler) Complete(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order ID")
		return
	}

	// Body is optional: an already-settled order completes with no payments.
	var req completeOrderRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	payments := make([]service.PaymentRequest, 0, len(req.Payments))
	for _, p := range req.Payments {
		amount, err := decimalFromString(p.Amount)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid payment amount")
			return
		}
		payments = append(payments, service.PaymentRequest{
			Method: p.Method,
			Amount: amount,
		})
	}

	order, err := h.svc.Complete(r.Context(), orderID, payments, claims.UserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dbOrderToResponse(order))
}

// Cancel handles DELETE /orders/{id}.
func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order ID")
		return
	}

	order, err := h.svc.Cancel(r.Context(), orderID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dbOrderToResponse(order))
}

// --- Conversion helpers ---

func dbOrderToResponse(o database.Order) orderResponse {
	resp := orderResponse{
		ID:              o.ID,
		ShiftID:         o.ShiftID,
		OrderNumber:     o.OrderNumber,
		OrderType:       o.OrderType,
		Status:          o.Status,
		PaymentStatus:   o.PaymentStatus,
		SubTotal:        numericToString(o.SubTotal),
		Service:         numericToString(o.Service),
		Tax:             numericToString(o.Tax),
		Discount:        numericToString(o.Discount),
		DiscountPercent: numericToString(o.TempDiscountPercent),
		Total:           numericToString(o.Total),
		Profit:          numericToString(o.Profit),
		CreatedBy:       o.CreatedBy,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
	if o.CustomerID.Valid {
		id := uuid.UUID(o.CustomerID.Bytes)
		resp.CustomerID = &id
	}
	if o.DriverID.Valid {
		id := uuid.UUID(o.DriverID.Bytes)
		resp.DriverID = &id
	}
	if o.TableNumber.Valid {
		n := o.TableNumber.Int32
		resp.TableNumber = &n
	}
	if o.Notes.Valid {
		notes := o.Notes.String
		resp.Notes = &notes
	}
	if o.CompletedAt.Valid {
		t := o.CompletedAt.Time
		resp.CompletedAt = &t
	}
	return resp
}

func dbOrderItemToResponse(item database.OrderItem) orderItemResponse {
	return orderItemResponse{
		ID:              item.ID,
		ProductID:       item.ProductID,
		Quantity:        numericToString(item.Quantity),
		Price:           numericToString(item.Price),
		Cost:            numericToString(item.Cost),
		Discount:        numericToString(item.Discount),
		DiscountPercent: numericToString(item.DiscountPercent),
		Total:           numericToString(item.Total),
	}
}

func dbPaymentToResponse(p database.Payment) paymentResponse {
	return paymentResponse{
		ID:        p.ID,
		OrderID:   p.OrderID,
		Method:    p.Method,
		Amount:    numericToString(p.Amount),
		CreatedBy: p.CreatedBy,
		CreatedAt: p.CreatedAt,
	}
}
