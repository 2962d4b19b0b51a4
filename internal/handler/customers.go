package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/sajian-pos/api/internal/database"
)

// CustomerStore defines the database methods needed by customer and driver
// handlers. Satisfied by *database.Queries; narrow interface for testability.
type CustomerStore interface {
	CreateCustomer(ctx context.Context, arg database.CreateCustomerParams) (database.Customer, error)
	GetCustomer(ctx context.Context, id uuid.UUID) (database.Customer, error)
	ListCustomers(ctx context.Context) ([]database.Customer, error)
	CreateDriver(ctx context.Context, name string, phone pgtype.Text) (database.Driver, error)
	GetDriver(ctx context.Context, id uuid.UUID) (database.Driver, error)
	ListDrivers(ctx context.Context) ([]database.Driver, error)
}

// CustomerHandler handles customer and driver endpoints.
type CustomerHandler struct {
	store CustomerStore
}

// NewCustomerHandler creates a new CustomerHandler.
func NewCustomerHandler(store CustomerStore) *CustomerHandler {
	return &CustomerHandler{store: store}
}

// RegisterRoutes registers customer endpoints on the given Chi router.
// Expected to be mounted at the protected group root.
func (h *CustomerHandler) RegisterRoutes(r chi.Router) {
	r.Route("/customers", func(r chi.Router) {
		r.Post("/", h.CreateCustomer)
		r.Get("/", h.ListCustomers)
		r.Get("/{id}", h.GetCustomer)
	})
	r.Route("/drivers", func(r chi.Router) {
		r.Post("/", h.CreateDriver)
		r.Get("/", h.ListDrivers)
		r.Get("/{id}", h.GetDriver)
	})
}

// --- Request / Response types ---

type createCustomerRequest struct {
	Name         string `json:"name"`
	Phone        string `json:"phone"`
	Address      string `json:"address"`
	DeliveryCost string `json:"delivery_cost"`
}

type createDriverRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

type customerResponse struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Phone        *string   `json:"phone"`
	Address      *string   `json:"address"`
	DeliveryCost string    `json:"delivery_cost"`
	CreatedAt    time.Time `json:"created_at"`
}

type driverResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Phone     *string   `json:"phone"`
	CreatedAt time.Time `json:"created_at"`
}

// --- Handlers ---

// CreateCustomer handles POST /customers.
func (h *CustomerHandler) CreateCustomer(w http.ResponseWriter, r *http.Request) {
	var req createCustomerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	deliveryCost, err := parseMoney(req.DeliveryCost)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid delivery_cost")
		return
	}

	customer, err := h.store.CreateCustomer(r.Context(), database.CreateCustomerParams{
		Name:         req.Name,
		Phone:        optionalText(req.Phone),
		Address:      optionalText(req.Address),
		DeliveryCost: deliveryCost,
	})
	if err != nil {
		log.Printf("ERROR: create customer: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusCreated, dbCustomerToResponse(customer))
}

// ListCustomers handles GET /customers.
func (h *CustomerHandler) ListCustomers(w http.ResponseWriter, r *http.Request) {
	customers, err := h.store.ListCustomers(r.Context())
	if err != nil {
		log.Printf("ERROR: list customers: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]customerResponse, len(customers))
	for i, c := range customers {
		resp[i] = dbCustomerToResponse(c)
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetCustomer handles GET /customers/{id}.
func (h *CustomerHandler) GetCustomer(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid customer ID")
		return
	}

	customer, err := h.store.GetCustomer(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "customer not found")
			return
		}
		log.Printf("ERROR: get customer: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, dbCustomerToResponse(customer))
}

// CreateDriver handles POST /drivers.
func (h *CustomerHandler) CreateDriver(w http.ResponseWriter, r *http.Request) {
	var req createDriverRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	driver, err := h.store.CreateDriver(r.Context(), req.Name, optionalText(req.Phone))
	if err != nil {
		log.Printf("ERROR: create driver: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusCreated, dbDriverToResponse(driver))
}

// ListDrivers handles GET /drivers.
func (h *CustomerHandler) ListDrivers(w http.ResponseWriter, r *http.Request) {
	drivers, err := h.store.ListDrivers(r.Context())
	if err != nil {
		log.Printf("ERROR: list drivers: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]driverResponse, len(drivers))
	for i, d := range drivers {
		resp[i] = dbDriverToResponse(d)
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetDriver handles GET /drivers/{id}.
func (h *CustomerHandler) GetDriver(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid driver ID")
		return
	}

	driver, err := h.store.GetDriver(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "driver not found")
			return
		}
		log.Printf("ERROR: get driver: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, dbDriverToResponse(driver))
}

// --- Helpers ---

func optionalText(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: s, Valid: true}
}

func dbCustomerToResponse(c database.Customer) customerResponse {
	resp := customerResponse{
		ID:           c.ID,
		Name:         c.Name,
		DeliveryCost: numericToString(c.DeliveryCost),
		CreatedAt:    c.CreatedAt,
	}
	if c.Phone.Valid {
		phone := c.Phone.String
		resp.Phone = &phone
	}
	if c.Address.Valid {
		addr := c.Address.String
		resp.Address = &addr
	}
	return resp
}

func dbDriverToResponse(d database.Driver) driverResponse {
	resp := driverResponse{
		ID:        d.ID,
		Name:      d.Name,
		CreatedAt: d.CreatedAt,
	}
	if d.Phone.Valid {
		phone := d.Phone.String
		resp.Phone = &phone
	}
	return resp
}
