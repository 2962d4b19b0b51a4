package handler

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/sajian-pos/api/internal/database"
	"github.com/sajian-pos/api/internal/service"
)

// InventoryServicer defines the service methods needed by inventory handlers.
// Satisfied by *service.InventoryService; narrow interface for testability.
type InventoryServicer interface {
	Adjust(ctx context.Context, req service.AdjustStockRequest) error
}

// OutboxRetrier retries stock adjustments that failed after an order commit.
// Satisfied by *service.OrderService.
type OutboxRetrier interface {
	RetryStockOutbox(ctx context.Context) (int, error)
}

// InventoryStore defines the database methods needed by inventory read
// handlers. Satisfied by *database.Queries; narrow interface for testability.
type InventoryStore interface {
	ListInventoryMovements(ctx context.Context, arg database.ListInventoryMovementsParams) ([]database.InventoryMovement, error)
	ListMovementDays(ctx context.Context, day pgtype.Date) ([]database.InventoryMovementDay, error)
	CloseMovementDay(ctx context.Context, day pgtype.Date) (int64, error)
}

// InventoryHandler handles inventory ledger endpoints.
type InventoryHandler struct {
	svc     InventoryServicer
	retrier OutboxRetrier
	store   InventoryStore
}

// NewInventoryHandler creates a new InventoryHandler.
func NewInventoryHandler(svc InventoryServicer, retrier OutboxRetrier, store InventoryStore) *InventoryHandler {
	return &InventoryHandler{svc: svc, retrier: retrier, store: store}
}

// RegisterRoutes registers inventory endpoints on the given Chi router.
// Expected to be mounted at /inventory.
func (h *InventoryHandler) RegisterRoutes(r chi.Router) {
	r.Get("/movements", h.ListMovements)
	r.Post("/adjustments", h.Adjust)
	r.Get("/days", h.ListDays)
	r.Post("/days/close", h.CloseDay)
	r.Post("/outbox/retry", h.RetryOutbox)
}

// --- Request / Response types ---

type adjustStockRequest struct {
	ProductID string `json:"product_id"`
	Operation string `json:"operation"`
	Quantity  string `json:"quantity"`
	Reason    string `json:"reason"`
	Note      string `json:"note"`
	OriginID  string `json:"origin_id"`
}

type closeDayRequest struct {
	Day string `json:"day"`
}

type movementResponse struct {
	ID         uuid.UUID  `json:"id"`
	ProductID  uuid.UUID  `json:"product_id"`
	Operation  string     `json:"operation"`
	Quantity   string     `json:"quantity"`
	Reason     string     `json:"reason"`
	Note       *string    `json:"note"`
	OriginKind string     `json:"origin_kind"`
	OriginID   *uuid.UUID `json:"origin_id"`
	CreatedAt  time.Time  `json:"created_at"`
}

type movementDayResponse struct {
	ProductID   uuid.UUID  `json:"product_id"`
	Day         string     `json:"day"`
	StartQty    string     `json:"start_qty"`
	Incoming    string     `json:"incoming"`
	Sales       string     `json:"sales"`
	ReturnSales string     `json:"return_sales"`
	ReturnWaste string     `json:"return_waste"`
	EndQty      string     `json:"end_qty"`
	ClosedAt    *time.Time `json:"closed_at"`
}

// --- Handlers ---

// ListMovements handles GET /inventory/movements.
func (h *InventoryHandler) ListMovements(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if s := r.URL.Query().Get("limit"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			limit = v
		}
	}
	if limit > 200 {
		limit = 200
	}

	offset := 0
	if s := r.URL.Query().Get("offset"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v >= 0 {
			offset = v
		}
	}

	params := database.ListInventoryMovementsParams{
		Limit:  int32(limit),
		Offset: int32(offset),
	}
	if s := r.URL.Query().Get("product_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid product_id")
			return
		}
		params.ProductID = pgtype.UUID{Bytes: id, Valid: true}
	}
	if s := r.URL.Query().Get("reason"); s != "" {
		params.Reason = pgtype.Text{String: s, Valid: true}
	}

	movements, err := h.store.ListInventoryMovements(r.Context(), params)
	if err != nil {
		log.Printf("ERROR: list inventory movements: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]movementResponse, len(movements))
	for i, m := range movements {
		resp[i] = dbMovementToResponse(m)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Adjust handles POST /inventory/adjustments. Every manual stock change goes
// through the ledger so the day rollups stay consistent.
func (h *InventoryHandler) Adjust(w http.ResponseWriter, r *http.Request) {
	var req adjustStockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	err := h.svc.Adjust(r.Context(), service.AdjustStockRequest{
		ProductID: req.ProductID,
		Operation: req.Operation,
		Quantity:  req.Quantity,
		Reason:    req.Reason,
		Note:      req.Note,
		OriginID:  req.OriginID,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ListDays handles GET /inventory/days?day=YYYY-MM-DD.
func (h *InventoryHandler) ListDays(w http.ResponseWriter, r *http.Request) {
	day, err := parseDay(r.URL.Query().Get("day"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid day format, use YYYY-MM-DD")
		return
	}

	days, err := h.store.ListMovementDays(r.Context(), day)
	if err != nil {
		log.Printf("ERROR: list movement days: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]movementDayResponse, len(days))
	for i, d := range days {
		resp[i] = dbMovementDayToResponse(d)
	}
	writeJSON(w, http.StatusOK, resp)
}

// CloseDay handles POST /inventory/days/close. Closing freezes every rollup
// row for the day; later movements for that date are rejected.
func (h *InventoryHandler) CloseDay(w http.ResponseWriter, r *http.Request) {
	var req closeDayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	day, err := parseDay(req.Day)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid day format, use YYYY-MM-DD")
		return
	}

	closed, err := h.store.CloseMovementDay(r.Context(), day)
	if err != nil {
		log.Printf("ERROR: close movement day: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]int64{"closed": closed})
}

// RetryOutbox handles POST /inventory/outbox/retry.
func (h *InventoryHandler) RetryOutbox(w http.ResponseWriter, r *http.Request) {
	applied, err := h.retrier.RetryStockOutbox(r.Context())
	if err != nil {
		log.Printf("ERROR: retry stock outbox: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{"applied": applied})
}

// --- Helpers ---

// parseDay parses a YYYY-MM-DD date, defaulting the empty string to today.
func parseDay(s string) (pgtype.Date, error) {
	if s == "" {
		now := time.Now().UTC()
		return pgtype.Date{Time: time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), Valid: true}, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return pgtype.Date{}, err
	}
	return pgtype.Date{Time: t, Valid: true}, nil
}

func dbMovementToResponse(m database.InventoryMovement) movementResponse {
	resp := movementResponse{
		ID:         m.ID,
		ProductID:  m.ProductID,
		Operation:  m.Operation,
		Quantity:   numericToString(m.Quantity),
		Reason:     m.Reason,
		OriginKind: m.OriginKind,
		CreatedAt:  m.CreatedAt,
	}
	if m.Note.Valid {
		note := m.Note.String
		resp.Note = &note
	}
	if m.OriginID.Valid {
		id := uuid.UUID(m.OriginID.Bytes)
		resp.OriginID = &id
	}
	return resp
}

func dbMovementDayToResponse(d database.InventoryMovementDay) movementDayResponse {
	resp := movementDayResponse{
		ProductID:   d.ProductID,
		Day:         d.Day.Time.Format("2006-01-02"),
		StartQty:    numericToString(d.StartQty),
		Incoming:    numericToString(d.Incoming),
		Sales:       numericToString(d.Sales),
		ReturnSales: numericToString(d.ReturnSales),
		ReturnWaste: numericToString(d.ReturnWaste),
		EndQty:      numericToString(d.EndQty),
	}
	if d.ClosedAt.Valid {
		t := d.ClosedAt.Time
		resp.ClosedAt = &t
	}
	return resp
}
