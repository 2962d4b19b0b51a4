//go:build integration

package handler_test

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
	"github.com/sajian-pos/api/internal/config"
	"github.com/sajian-pos/api/internal/database"
	"github.com/sajian-pos/api/internal/router"
	"github.com/sajian-pos/api/internal/ws"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"golang.org/x/crypto/bcrypt"
)

// TestIntegrationFlow exercises the full order lifecycle against a real
// PostgreSQL database: seed catalog with a bill of materials, open a shift,
// create an order, settle it, and verify the stock ledger moved.
func TestIntegrationFlow(t *testing.T) {
	ctx := context.Background()

	_, connStr, cleanup := setupPostgresContainer(t, ctx)
	defer cleanup()

	runMigrations(t, connStr)

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		t.Fatalf("create pool: %v", err)
	}
	defer pool.Close()

	cfg := &config.Config{
		Port:                   "8082",
		DatabaseURL:            connStr,
		JWTSecret:              "integration-test-secret",
		AllowInsufficientStock: true,
	}
	queries := database.New(pool)
	hub := ws.NewHub()
	// NOTE: hub.Run() goroutine leaks on test exit; Hub has no shutdown
	// mechanism. Acceptable for tests.
	go hub.Run()

	r := router.New(cfg, queries, pool, hub)
	server := httptest.NewServer(r)
	defer server.Close()

	// --- 1. Bootstrap admin user (manual insert) and log in ---
	createAdminUser(t, ctx, pool)
	token := login(t, server, "admin@test.com", "password123")

	// --- 2. Seed catalog through the API: Flour (raw) and Bread (manufactured) ---
	flour := createTestProduct(t, server, token, map[string]interface{}{
		"name":           "Flour",
		"product_type":   "RAW_MATERIAL",
		"cost":           "0.50",
		"stock_quantity": "100",
		"min_stock":      "20",
	})
	bread := createTestProduct(t, server, token, map[string]interface{}{
		"name":         "Bread",
		"product_type": "MANUFACTURED",
		"price":        "8.00",
		"cost":         "1.50",
	})

	resp := doJSON(t, server, token, "POST", "/products/"+bread["id"].(string)+"/components", map[string]interface{}{
		"component_id": flour["id"].(string),
		"quantity":     "3",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("add component: got %d", resp.StatusCode)
	}

	// --- 3. Open a shift ---
	shiftResp := decodeJSON(t, doJSON(t, server, token, "POST", "/shifts", nil))
	shiftID := shiftResp["id"].(string)

	// --- 4. Create a takeaway order: 2 breads ---
	orderResp := decodeJSON(t, doJSON(t, server, token, "POST", "/orders", map[string]interface{}{
		"shift_id":   shiftID,
		"order_type": "TAKEAWAY",
		"items": []map[string]interface{}{
			{"product_id": bread["id"].(string), "quantity": "2"},
		},
	}))
	orderID := orderResp["id"].(string)
	if orderResp["status"] != "PROCESSING" {
		t.Fatalf("order status: got %v, want PROCESSING", orderResp["status"])
	}
	if orderResp["total"] != "16" {
		t.Fatalf("order total: got %v, want 16", orderResp["total"])
	}

	// --- 5. Complete with full payment ---
	completed := decodeJSON(t, doJSON(t, server, token, "POST", "/orders/"+orderID+"/complete", map[string]interface{}{
		"payments": []map[string]interface{}{
			{"method": "CASH", "amount": "16.00"},
		},
	}))
	if completed["status"] != "COMPLETED" {
		t.Fatalf("status after complete: got %v, want COMPLETED", completed["status"])
	}
	if completed["payment_status"] != "FULL" {
		t.Fatalf("payment status: got %v, want FULL", completed["payment_status"])
	}

	// --- 6. BOM expansion deducted the raw material ---
	wantStock := "94" // 100 - 2 breads * 3 flour
	flourAfter := decodeJSON(t, doJSON(t, server, token, "GET", "/products/"+flour["id"].(string), nil))
	if flourAfter["stock_quantity"].(string) != wantStock {
		t.Fatalf("flour stock: got %v, want %v", flourAfter["stock_quantity"], wantStock)
	}

	// --- 7. Ledger rollup exists for today ---
	days := decodeJSONList(t, doJSON(t, server, token, "GET", "/inventory/days", nil))
	if len(days) == 0 {
		t.Fatal("expected at least one movement day row")
	}

	// --- 8. Cancel a second order before completion; no stock movement ---
	second := decodeJSON(t, doJSON(t, server, token, "POST", "/orders", map[string]interface{}{
		"shift_id":   shiftID,
		"order_type": "TAKEAWAY",
		"items": []map[string]interface{}{
			{"product_id": bread["id"].(string), "quantity": "1"},
		},
	}))
	cancelResp := doJSON(t, server, token, "DELETE", "/orders/"+second["id"].(string), nil)
	if cancelResp.StatusCode != http.StatusOK {
		t.Fatalf("cancel: got %d", cancelResp.StatusCode)
	}
	p := decodeJSON(t, doJSON(t, server, token, "GET", "/products/"+flour["id"].(string), nil))
	if p["stock_quantity"].(string) != wantStock {
		t.Fatalf("stock after cancel: got %v, want %v", p["stock_quantity"], wantStock)
	}
}

// --- Infra helpers ---

func setupPostgresContainer(t *testing.T, ctx context.Context) (testcontainers.Container, string, func()) {
	t.Helper()

	pgContainer, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("pos_test"),
		tcpostgres.WithUsername("pos"),
		tcpostgres.WithPassword("pos"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("start postgres container: %v", err)
	}

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("get connection string: %v", err)
	}

	cleanup := func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("terminate container: %v", err)
		}
	}

	return pgContainer, connStr, cleanup
}

func runMigrations(t *testing.T, connStr string) {
	t.Helper()

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		t.Fatalf("open db for migrations: %v", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		t.Fatalf("create migrate driver: %v", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		"file://../../migrations",
		"postgres", driver,
	)
	if err != nil {
		t.Fatalf("create migrate instance: %v", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		t.Fatalf("run migrations: %v", err)
	}
}

func createAdminUser(t *testing.T, ctx context.Context, pool *pgxpool.Pool) {
	t.Helper()

	hashed, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}

	_, err = pool.Exec(ctx, `
		INSERT INTO users (name, email, password_hash, role)
		VALUES ('Admin', 'admin@test.com', $1, 'ADMIN')
	`, string(hashed))
	if err != nil {
		t.Fatalf("insert admin user: %v", err)
	}
}

func login(t *testing.T, server *httptest.Server, email, password string) string {
	t.Helper()

	resp := doJSON(t, server, "", "POST", "/auth/login", map[string]string{
		"email":    email,
		"password": password,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login: got %d", resp.StatusCode)
	}

	body := decodeJSON(t, resp)
	token, ok := body["access_token"].(string)
	if !ok || token == "" {
		t.Fatal("login response missing access_token")
	}
	return token
}

func createTestProduct(t *testing.T, server *httptest.Server, token string, body map[string]interface{}) map[string]interface{} {
	t.Helper()

	resp := doJSON(t, server, token, "POST", "/products", body)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create product %v: got %d", body["name"], resp.StatusCode)
	}
	return decodeJSON(t, resp)
}

func doJSON(t *testing.T, server *httptest.Server, token, method, path string, body interface{}) *http.Response {
	t.Helper()

	var reqBody *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reqBody = bytes.NewReader(b)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, server.URL+path, reqBody)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

func decodeJSON(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	defer resp.Body.Close()
	var body map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return body
}

func decodeJSONList(t *testing.T, resp *http.Response) []map[string]interface{} {
	t.Helper()
	defer resp.Body.Close()
	var body []map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode list body: %v", err)
	}
	return body
}
