package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/eggwaffle-pos/api/internal/config"
	"github.com/eggwaffle-pos/api/internal/handler"
	"github.com/eggwaffle-pos/api/internal/router"
	"github.com/eggwaffle-pos/api/internal/service"
	"github.com/eggwaffle-pos/api/internal/store"
	"github.com/eggwaffle-pos/api/internal/ws"
)

func main() {
	// Load .env file in development (ignores error if file doesn't exist)
	// In production, variables should be set directly
	if os.Getenv("ENV") != "production" {
		if err := godotenv.Load(); err != nil {
			log.Printf("Warning: .env file not found, using system environment variables")
		}
	}

	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect to database
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("Unable to ping database: %v", err)
	}
	log.Println("Connected to database")

	s := store.New(pool)

	// Start the WebSocket hub and the snapshot feed
	hub := ws.NewHub()
	go hub.Run()

	feed := store.NewFeed(s)
	go feed.Run(ctx)

	// Push fresh snapshots to the screens whenever orders change
	feed.SubscribePending(func(orders []store.Order) {
		payload, err := json.Marshal(handler.NewOrderResponses(orders))
		if err != nil {
			log.Printf("ERROR: failed to encode pending snapshot: %v", err)
			return
		}
		hub.BroadcastToScreen(ws.ScreenCooking, ws.Event{
			Type:    "pending_snapshot",
			Payload: payload,
		})
	})
	feed.SubscribeCompleted(func(orders []store.Order) {
		groups := service.Aggregate(orders)
		payload, err := json.Marshal(handler.NewGroupedOrderResponses(groups))
		if err != nil {
			log.Printf("ERROR: failed to encode completed snapshot: %v", err)
			return
		}
		hub.BroadcastToScreen(ws.ScreenCompleted, ws.Event{
			Type:    "completed_snapshot",
			Payload: payload,
		})
	})

	r := router.New(pool, s, feed, hub)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		log.Printf("Starting server on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("ERROR: server shutdown: %v", err)
	}
}
