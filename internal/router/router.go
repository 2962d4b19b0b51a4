package router

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sajian-pos/api/internal/config"
	"github.com/sajian-pos/api/internal/database"
	"github.com/sajian-pos/api/internal/enum"
	"github.com/sajian-pos/api/internal/handler"
	mw "github.com/sajian-pos/api/internal/middleware"
	"github.com/sajian-pos/api/internal/service"
	"github.com/sajian-pos/api/internal/ws"
)

// New creates a Chi router with all application routes wired up.
// Applies authentication and role-based middleware as needed.
func New(cfg *config.Config, queries *database.Queries, pool *pgxpool.Pool, hub *ws.Hub) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{
			"http://localhost:5173",         // SvelteKit dev server
			"https://pos.sajian.example",    // Production POS
			"https://kitchen.sajian.example", // Kitchen display
		},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","version":"1.0.0"}`))
	})

	// Auth routes (public)
	authHandler := handler.NewAuthHandler(queries, cfg.JWTSecret)
	authHandler.RegisterRoutes(r)

	// WebSocket route (handles auth internally via query param)
	r.Get("/ws/{topic}", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(hub, cfg.JWTSecret, w, r)
	})

	// Services shared by the protected routes. Order mutations broadcast to
	// the ws hub after their transactions commit.
	newStore := func(db database.DBTX) service.Store {
		return database.New(db)
	}
	notifier := ws.NewNotifier(hub)
	orderService := service.NewOrderService(pool, queries, newStore, notifier, cfg.AllowInsufficientStock)
	inventoryService := service.NewInventoryService(pool, newStore)

	// Protected routes (require authentication)
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWTSecret))

		// Shifts
		shiftHandler := handler.NewShiftHandler(queries)
		r.Route("/shifts", shiftHandler.RegisterRoutes)

		// Orders
		orderHandler := handler.NewOrderHandler(orderService, queries)
		r.Route("/orders", orderHandler.RegisterRoutes)

		// Dine tables (read-only; claimed and freed by the order lifecycle)
		tableHandler := handler.NewTableHandler(queries)
		r.Route("/tables", tableHandler.RegisterRoutes)

		// Customers and drivers
		customerHandler := handler.NewCustomerHandler(queries)
		customerHandler.RegisterRoutes(r)

		// Products (catalog reads for everyone; writes gated below)
		productHandler := handler.NewProductHandler(queries)
		r.Route("/products", func(r chi.Router) {
			r.Get("/", productHandler.List)
			r.Get("/low-stock", productHandler.ListLowStock)
			r.Get("/{id}", productHandler.Get)
			r.Get("/{id}/components", productHandler.ListComponents)

			r.Group(func(r chi.Router) {
				r.Use(mw.RequireRole(enum.UserRoleAdmin, enum.UserRoleManager))
				r.Post("/", productHandler.Create)
				r.Put("/{id}", productHandler.Update)
				r.Post("/{id}/components", productHandler.AddComponent)
				r.Delete("/{id}/components/{componentID}", productHandler.RemoveComponent)
			})
		})

		// Inventory ledger (manager and up)
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireRole(enum.UserRoleAdmin, enum.UserRoleManager))
			inventoryHandler := handler.NewInventoryHandler(inventoryService, orderService, queries)
			r.Route("/inventory", inventoryHandler.RegisterRoutes)
		})

		// Admin-only routes
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireRole(enum.UserRoleAdmin))

			userHandler := handler.NewUserHandler(queries)
			r.Route("/users", userHandler.RegisterRoutes)

			settingHandler := handler.NewSettingHandler(queries)
			r.Route("/settings", settingHandler.RegisterRoutes)
		})
	})

	log.Println("Router initialized with all handlers")
	return r
}
