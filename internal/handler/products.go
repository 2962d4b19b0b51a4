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
	"github.com/sajian-pos/api/internal/enum"
	"github.com/shopspring/decimal"
)

// ProductStore defines the database methods needed by product handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type ProductStore interface {
	CreateProduct(ctx context.Context, arg database.CreateProductParams) (database.Product, error)
	GetProduct(ctx context.Context, id uuid.UUID) (database.Product, error)
	ListProducts(ctx context.Context, productType pgtype.Text) ([]database.Product, error)
	UpdateProduct(ctx context.Context, arg database.UpdateProductParams) (database.Product, error)
	ListLowStockProducts(ctx context.Context) ([]database.Product, error)
	CreateProductComponent(ctx context.Context, arg database.CreateProductComponentParams) (database.ProductComponent, error)
	ListComponentsByProduct(ctx context.Context, productID uuid.UUID) ([]database.ProductComponent, error)
	DeleteProductComponent(ctx context.Context, id, productID uuid.UUID) (int64, error)
}

// ProductHandler handles product catalog endpoints.
type ProductHandler struct {
	store ProductStore
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(store ProductStore) *ProductHandler {
	return &ProductHandler{store: store}
}

// RegisterRoutes registers product endpoints on the given Chi router.
// Expected to be mounted at /products.
func (h *ProductHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/low-stock", h.ListLowStock)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Post("/{id}/components", h.AddComponent)
	r.Get("/{id}/components", h.ListComponents)
	r.Delete("/{id}/components/{componentID}", h.RemoveComponent)
}

// --- Request / Response types ---

type createProductRequest struct {
	Name          string `json:"name"`
	ProductType   string `json:"product_type"`
	Price         string `json:"price"`
	Cost          string `json:"cost"`
	StockQuantity string `json:"stock_quantity"`
	MinStock      string `json:"min_stock"`
}

type updateProductRequest struct {
	Name     string `json:"name"`
	Price    string `json:"price"`
	Cost     string `json:"cost"`
	MinStock string `json:"min_stock"`
	Active   *bool  `json:"active"`
}

type addComponentRequest struct {
	ComponentID string `json:"component_id"`
	Quantity    string `json:"quantity"`
}

type productResponse struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	ProductType   string    `json:"product_type"`
	Price         string    `json:"price"`
	Cost          string    `json:"cost"`
	StockQuantity string    `json:"stock_quantity"`
	MinStock      string    `json:"min_stock"`
	Active        bool      `json:"active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type componentResponse struct {
	ID          uuid.UUID `json:"id"`
	ProductID   uuid.UUID `json:"product_id"`
	ComponentID uuid.UUID `json:"component_id"`
	Quantity    string    `json:"quantity"`
}

// --- Handlers ---

// Create handles POST /products.
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if !isValidProductType(req.ProductType) {
		writeError(w, http.StatusBadRequest, "invalid product_type")
		return
	}

	price, err := parseMoney(req.Price)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid price")
		return
	}
	cost, err := parseMoney(req.Cost)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid cost")
		return
	}
	stock, err := parseQuantity(req.StockQuantity)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid stock_quantity")
		return
	}
	minStock, err := parseQuantity(req.MinStock)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid min_stock")
		return
	}

	product, err := h.store.CreateProduct(r.Context(), database.CreateProductParams{
		Name:          req.Name,
		ProductType:   req.ProductType,
		Price:         price,
		Cost:          cost,
		StockQuantity: stock,
		MinStock:      minStock,
	})
	if err != nil {
		log.Printf("ERROR: create product: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusCreated, dbProductToResponse(product))
}

// List handles GET /products. An optional ?type= filter narrows by product type.
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	var productType pgtype.Text
	if s := r.URL.Query().Get("type"); s != "" {
		if !isValidProductType(s) {
			writeError(w, http.StatusBadRequest, "invalid product type")
			return
		}
		productType = pgtype.Text{String: s, Valid: true}
	}

	products, err := h.store.ListProducts(r.Context(), productType)
	if err != nil {
		log.Printf("ERROR: list products: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]productResponse, len(products))
	for i, p := range products {
		resp[i] = dbProductToResponse(p)
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListLowStock handles GET /products/low-stock.
func (h *ProductHandler) ListLowStock(w http.ResponseWriter, r *http.Request) {
	products, err := h.store.ListLowStockProducts(r.Context())
	if err != nil {
		log.Printf("ERROR: list low stock products: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]productResponse, len(products))
	for i, p := range products {
		resp[i] = dbProductToResponse(p)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get handles GET /products/{id}.
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid product ID")
		return
	}

	product, err := h.store.GetProduct(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "product not found")
			return
		}
		log.Printf("ERROR: get product: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, dbProductToResponse(product))
}

// Update handles PUT /products/{id}. Stock is intentionally absent here:
// quantity changes go through inventory adjustments so the ledger stays
// consistent with the stored stock.
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid product ID")
		return
	}

	var req updateProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	current, err := h.store.GetProduct(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "product not found")
			return
		}
		log.Printf("ERROR: get product for update: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	params := database.UpdateProductParams{
		ID:       id,
		Name:     current.Name,
		Price:    current.Price,
		Cost:     current.Cost,
		MinStock: current.MinStock,
		Active:   current.Active,
	}
	if req.Name != "" {
		params.Name = req.Name
	}
	if req.Price != "" {
		if params.Price, err = parseMoney(req.Price); err != nil {
			writeError(w, http.StatusBadRequest, "invalid price")
			return
		}
	}
	if req.Cost != "" {
		if params.Cost, err = parseMoney(req.Cost); err != nil {
			writeError(w, http.StatusBadRequest, "invalid cost")
			return
		}
	}
	if req.MinStock != "" {
		if params.MinStock, err = parseQuantity(req.MinStock); err != nil {
			writeError(w, http.StatusBadRequest, "invalid min_stock")
			return
		}
	}
	if req.Active != nil {
		params.Active = *req.Active
	}

	product, err := h.store.UpdateProduct(r.Context(), params)
	if err != nil {
		log.Printf("ERROR: update product: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, dbProductToResponse(product))
}

// AddComponent handles POST /products/{id}/components. Only manufactured
// products carry a bill of materials.
func (h *ProductHandler) AddComponent(w http.ResponseWriter, r *http.Request) {
	productID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid product ID")
		return
	}

	var req addComponentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	componentID, err := uuid.Parse(req.ComponentID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid component_id")
		return
	}
	if componentID == productID {
		writeError(w, http.StatusBadRequest, "a product cannot be its own component")
		return
	}

	qty, err := decimal.NewFromString(req.Quantity)
	if err != nil || !qty.IsPositive() {
		writeError(w, http.StatusBadRequest, "quantity must be a positive number")
		return
	}

	product, err := h.store.GetProduct(r.Context(), productID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "product not found")
			return
		}
		log.Printf("ERROR: get product for component: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if product.ProductType != enum.ProductTypeManufactured {
		writeError(w, http.StatusBadRequest, "only manufactured products have components")
		return
	}

	if _, err := h.store.GetProduct(r.Context(), componentID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusBadRequest, "component product not found")
			return
		}
		log.Printf("ERROR: get component product: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	var qtyNum pgtype.Numeric
	if err := qtyNum.Scan(qty.String()); err != nil {
		writeError(w, http.StatusBadRequest, "invalid quantity")
		return
	}

	component, err := h.store.CreateProductComponent(r.Context(), database.CreateProductComponentParams{
		ProductID:   productID,
		ComponentID: componentID,
		Quantity:    qtyNum,
	})
	if err != nil {
		log.Printf("ERROR: create product component: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusCreated, dbComponentToResponse(component))
}

// ListComponents handles GET /products/{id}/components.
func (h *ProductHandler) ListComponents(w http.ResponseWriter, r *http.Request) {
	productID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid product ID")
		return
	}

	components, err := h.store.ListComponentsByProduct(r.Context(), productID)
	if err != nil {
		log.Printf("ERROR: list product components: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]componentResponse, len(components))
	for i, c := range components {
		resp[i] = dbComponentToResponse(c)
	}
	writeJSON(w, http.StatusOK, resp)
}

// RemoveComponent handles DELETE /products/{id}/components/{componentID}.
func (h *ProductHandler) RemoveComponent(w http.ResponseWriter, r *http.Request) {
	productID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid product ID")
		return
	}
	componentID, err := uuid.Parse(chi.URLParam(r, "componentID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid component ID")
		return
	}

	deleted, err := h.store.DeleteProductComponent(r.Context(), componentID, productID)
	if err != nil {
		log.Printf("ERROR: delete product component: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if deleted == 0 {
		writeError(w, http.StatusNotFound, "component not found")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// --- Helpers ---

func isValidProductType(t string) bool {
	switch t {
	case enum.ProductTypeManufactured, enum.ProductTypeRawMaterial, enum.ProductTypeConsumable:
		return true
	}
	return false
}

// parseMoney parses a decimal money string, defaulting the empty string to 0.
func parseMoney(s string) (pgtype.Numeric, error) {
	if s == "" {
		s = "0"
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return pgtype.Numeric{}, err
	}
	var n pgtype.Numeric
	if err := n.Scan(d.StringFixed(2)); err != nil {
		return pgtype.Numeric{}, err
	}
	return n, nil
}

// parseQuantity is parseMoney without the two-decimal rounding; stock
// quantities keep their full precision.
func parseQuantity(s string) (pgtype.Numeric, error) {
	if s == "" {
		s = "0"
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return pgtype.Numeric{}, err
	}
	var n pgtype.Numeric
	if err := n.Scan(d.String()); err != nil {
		return pgtype.Numeric{}, err
	}
	return n, nil
}

func dbProductToResponse(p database.Product) productResponse {
	return productResponse{
		ID:            p.ID,
		Name:          p.Name,
		ProductType:   p.ProductType,
		Price:         numericToString(p.Price),
		Cost:          numericToString(p.Cost),
		StockQuantity: numericToString(p.StockQuantity),
		MinStock:      numericToString(p.MinStock),
		Active:        p.Active,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

func dbComponentToResponse(c database.ProductComponent) componentResponse {
	return componentResponse{
		ID:          c.ID,
		ProductID:   c.ProductID,
		ComponentID: c.ComponentID,
		Quantity:    numericToString(c.Quantity),
	}
}
