package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/dukerupert/basket/internal/auth"
	"github.com/dukerupert/basket/internal/database"
	"github.com/dukerupert/basket/internal/logging"
	"github.com/dukerupert/basket/internal/server"
)

func main() {
	// A missing .env file is fine; the environment may already be set.
	_ = godotenv.Load()

	logger := logging.Setup(os.Stderr, logging.Options{
		Level:  os.Getenv("BASKET_LOG_LEVEL"),
		Format: os.Getenv("BASKET_LOG_FORMAT"),
	})

	if err := run(logger); err != nil {
		logger.Error("basketd exited", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	port := os.Getenv("BASKET_PORT")
	if port == "" {
		port = "8080"
	}

	dbPath := os.Getenv("BASKET_DB_PATH")
	if dbPath == "" {
		dbPath = "basket.db"
	}

	secret := os.Getenv("BASKET_JWT_SECRET")
	if secret == "" {
		return errors.New("BASKET_JWT_SECRET is required")
	}

	ttl := 30 * 24 * time.Hour
	if v := os.Getenv("BASKET_TOKEN_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse BASKET_TOKEN_TTL: %w", err)
		}
		ttl = d
	}

	db, err := database.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	srv := server.New(db, auth.NewTokens(secret, ttl), logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	httpServer := &http.Server{
		Addr:              ":" + port,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
		// Websocket connections are hijacked and outlive Shutdown; they
		// end when this context is cancelled.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("basketd listening", "addr", httpServer.Addr, "db", dbPath)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})

	for _, l := range srv.Limiters() {
		g.Go(func() error {
			l.Run(gctx, 5*time.Minute)
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}
