package router

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eggwaffle-pos/api/internal/handler"
	"github.com/eggwaffle-pos/api/internal/service"
	"github.com/eggwaffle-pos/api/internal/store"
	"github.com/eggwaffle-pos/api/internal/ws"
)

// New creates a Chi router with all application routes wired up.
func New(pool *pgxpool.Pool, s *store.Store, feed *store.Feed, hub *ws.Hub) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{
			"http://localhost:5173", // Vite dev server
		},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","version":"1.0.0"}`))
	})

	// WebSocket route, one room per screen
	r.Get("/ws/{screen}", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(hub, w, r)
	})

	// Orders
	orderService := service.NewOrderService(pool, func(db store.DBTX) service.OrderStore {
		return store.New(db)
	}, feed)
	reconciler := service.NewReconciler(pool, func(db store.DBTX) service.CookingStore {
		return store.New(db)
	}, feed)

	orderHandler := handler.NewOrderHandler(orderService, s)
	cookingHandler := handler.NewCookingHandler(reconciler)
	completedHandler := handler.NewCompletedHandler(s)

	r.Route("/orders", func(r chi.Router) {
		// Register the literal route before the {id} routes so Chi
		// matches GET /orders/completed here
		completedHandler.RegisterRoutes(r)
		orderHandler.RegisterRoutes(r)
		cookingHandler.RegisterRoutes(r)
	})

	log.Println("Router initialized with all handlers")
	return r
}
