package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/digioh-event-services/common/config"
	"github.com/digioh-event-services/common/db"
	"github.com/digioh-event-services/common/logger"
	"github.com/digioh-event-services/common/metrics"
	"github.com/digioh-event-services/common/router"
	authHandler "github.com/digioh-event-services/services/auth-lambda/handler"
	eventHandler "github.com/digioh-event-services/services/event-lambda/handler"
	guestHandler "github.com/digioh-event-services/services/guest-lambda/handler"
)

func main() {
	if err := run(); err != nil {
		logger.Default().Error("%v", err)
		os.Exit(1)
	}
}

func run() error {
	// .env next to the working directory, then next to the binary
	envFiles := []string{".env"}
	if exe, err := os.Executable(); err == nil {
		envFiles = append(envFiles, filepath.Join(filepath.Dir(exe), ".env"))
	}
	config.LoadEnv(envFiles...)
	cfg := config.FromEnv()
	log := logger.Default()

	log.Info("Connecting to MySQL database...")
	if err := db.InitDB(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.CloseDB()

	if cfg.MigrateOnStart {
		if err := db.Migrate(db.GetDB()); err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}
		log.Info("Migrations applied")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return serve(ctx, cfg, newMux(cfg, db.GetDB()))
}

func newMux(cfg *config.AppConfig, conn *sql.DB) *http.ServeMux {
	// ======================= ROUTES =======================
	r := router.New(cfg)
	authHandler.NewAuthHandler().Register(r)
	eventHandler.NewEventHandler().Register(r)
	guestHandler.NewGuestHandler().Register(r)

	mux := http.NewServeMux()
	mux.Handle("/api/", r)
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, req *http.Request) {
		ctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
		defer cancel()
		if conn == nil || conn.PingContext(ctx) != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

// serve runs the HTTP server until ctx is done or listening fails
func serve(ctx context.Context, cfg *config.AppConfig, handler http.Handler) error {
	log := logger.Default()
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Server listening on :%s (base url %s)", cfg.Port, cfg.BaseURL)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("failed to start server: %w", err)
	case <-ctx.Done():
	}

	log.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}
