package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/nesiel/class-bank/api/swagger"
	"github.com/nesiel/class-bank/pkg/config"
	"github.com/nesiel/class-bank/pkg/logger"
)

// @title Class Bank API
// @version 1.0.0
// @description Spreadsheet import and student records for the class behaviour-points bank
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	store, closeStore, err := openStateStore(cfg, logr)
	if err != nil {
		logr.Sugar().Fatalw("failed to open state store", "driver", cfg.State.Driver, "error", err)
	}

	app, err := newApplication(cfg, logr, store, closeStore)
	if err != nil {
		_ = closeStore()
		logr.Sugar().Fatalw("failed to build application", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	app.Start(ctx)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: app.router, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env, "state_driver", cfg.State.Driver, "sync", cfg.Sync.Enabled)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("server shutdown failed", "error", err)
	}
	if err := app.Shutdown(); err != nil {
		logr.Sugar().Errorw("state store close failed", "error", err)
	}
}
