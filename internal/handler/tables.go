package handler

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/sajian-pos/api/internal/database"
)

// TableStore defines the database methods needed by dine table handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type TableStore interface {
	ListDineTables(ctx context.Context) ([]database.DineTable, error)
}

// TableHandler handles dine table endpoints. Tables are claimed and freed by
// the order lifecycle; this surface is read-only.
type TableHandler struct {
	store TableStore
}

// NewTableHandler creates a new TableHandler.
func NewTableHandler(store TableStore) *TableHandler {
	return &TableHandler{store: store}
}

// RegisterRoutes registers table endpoints on the given Chi router.
// Expected to be mounted at /tables.
func (h *TableHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
}

type tableResponse struct {
	TableNumber int32      `json:"table_number"`
	OrderID     *uuid.UUID `json:"order_id"`
	Occupied    bool       `json:"occupied"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// List handles GET /tables.
func (h *TableHandler) List(w http.ResponseWriter, r *http.Request) {
	tables, err := h.store.ListDineTables(r.Context())
	if err != nil {
		log.Printf("ERROR: list dine tables: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]tableResponse, len(tables))
	for i, t := range tables {
		resp[i] = tableResponse{
			TableNumber: t.TableNumber,
			Occupied:    t.OrderID.Valid,
			UpdatedAt:   t.UpdatedAt,
		}
		if t.OrderID.Valid {
			id := uuid.UUID(t.OrderID.Bytes)
			resp[i].OrderID = &id
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
