package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/sajian-pos/api/internal/database"
	"github.com/shopspring/decimal"
)

// SettingStore defines the database methods needed by setting handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type SettingStore interface {
	GetSetting(ctx context.Context, key string) (database.Setting, error)
	UpsertSetting(ctx context.Context, key, value string) (database.Setting, error)
}

// SettingHandler handles settings endpoints. Rates stored here feed the
// order total calculation, so writes are admin-only at the router level.
type SettingHandler struct {
	store SettingStore
}

// NewSettingHandler creates a new SettingHandler.
func NewSettingHandler(store SettingStore) *SettingHandler {
	return &SettingHandler{store: store}
}

// RegisterRoutes registers setting endpoints on the given Chi router.
// Expected to be mounted at /settings.
func (h *SettingHandler) RegisterRoutes(r chi.Router) {
	r.Get("/{key}", h.Get)
	r.Put("/{key}", h.Upsert)
}

type upsertSettingRequest struct {
	Value string `json:"value"`
}

type settingResponse struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Get handles GET /settings/{key}.
func (h *SettingHandler) Get(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	setting, err := h.store.GetSetting(r.Context(), key)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "setting not found")
			return
		}
		log.Printf("ERROR: get setting: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, settingResponse{
		Key:       setting.Key,
		Value:     setting.Value,
		UpdatedAt: setting.UpdatedAt,
	})
}

// Upsert handles PUT /settings/{key}. Values must parse as decimals since
// every setting currently in use is a rate.
func (h *SettingHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	var req upsertSettingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if _, err := decimal.NewFromString(req.Value); err != nil {
		writeError(w, http.StatusBadRequest, "value must be a decimal number")
		return
	}

	setting, err := h.store.UpsertSetting(r.Context(), key, req.Value)
	if err != nil {
		log.Printf("ERROR: upsert setting: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, settingResponse{
		Key:       setting.Key,
		Value:     setting.Value,
		UpdatedAt: setting.UpdatedAt,
	})
}
