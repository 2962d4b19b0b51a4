package handler

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/sajian-pos/api/internal/database"
	"github.com/sajian-pos/api/internal/middleware"
)

// ShiftStore defines the database methods needed by shift handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type ShiftStore interface {
	OpenShift(ctx context.Context, openedBy uuid.UUID) (database.Shift, error)
	GetShift(ctx context.Context, id uuid.UUID) (database.Shift, error)
	GetOpenShift(ctx context.Context) (database.Shift, error)
	CloseShift(ctx context.Context, id uuid.UUID) (database.Shift, error)
}

// ShiftHandler handles shift endpoints.
type ShiftHandler struct {
	store ShiftStore
}

// NewShiftHandler creates a new ShiftHandler.
func NewShiftHandler(store ShiftStore) *ShiftHandler {
	return &ShiftHandler{store: store}
}

// RegisterRoutes registers shift endpoints on the given Chi router.
// Expected to be mounted at /shifts.
func (h *ShiftHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Open)
	r.Get("/current", h.Current)
	r.Get("/{id}", h.Get)
	r.Post("/{id}/close", h.Close)
}

type shiftResponse struct {
	ID       uuid.UUID  `json:"id"`
	OpenedBy uuid.UUID  `json:"opened_by"`
	OpenedAt time.Time  `json:"opened_at"`
	ClosedAt *time.Time `json:"closed_at"`
}

// Open handles POST /shifts. At most one shift may be open at a time; the
// partial unique index in the database enforces that.
func (h *ShiftHandler) Open(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	if _, err := h.store.GetOpenShift(r.Context()); err == nil {
		writeError(w, http.StatusConflict, "a shift is already open")
		return
	} else if !errors.Is(err, pgx.ErrNoRows) {
		log.Printf("ERROR: check open shift: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	shift, err := h.store.OpenShift(r.Context(), claims.UserID)
	if err != nil {
		log.Printf("ERROR: open shift: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusCreated, dbShiftToResponse(shift))
}

// Current handles GET /shifts/current.
func (h *ShiftHandler) Current(w http.ResponseWriter, r *http.Request) {
	shift, err := h.store.GetOpenShift(r.Context())
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "no open shift")
			return
		}
		log.Printf("ERROR: get open shift: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, dbShiftToResponse(shift))
}

// Get handles GET /shifts/{id}.
func (h *ShiftHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid shift ID")
		return
	}

	shift, err := h.store.GetShift(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "shift not found")
			return
		}
		log.Printf("ERROR: get shift: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, dbShiftToResponse(shift))
}

// Close handles POST /shifts/{id}/close.
func (h *ShiftHandler) Close(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid shift ID")
		return
	}

	shift, err := h.store.CloseShift(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusConflict, "shift not found or already closed")
			return
		}
		log.Printf("ERROR: close shift: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, dbShiftToResponse(shift))
}

func dbShiftToResponse(s database.Shift) shiftResponse {
	resp := shiftResponse{
		ID:       s.ID,
		OpenedBy: s.OpenedBy,
		OpenedAt: s.OpenedAt,
	}
	if s.ClosedAt.Valid {
		t := s.ClosedAt.Time
		resp.ClosedAt = &t
	}
	return resp
}
