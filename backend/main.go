package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/LoggingNewMemory/VCIAStudentGoogleSheet/backend/config"
	"github.com/LoggingNewMemory/VCIAStudentGoogleSheet/backend/handlers"
	"github.com/LoggingNewMemory/VCIAStudentGoogleSheet/backend/logging"
	"github.com/LoggingNewMemory/VCIAStudentGoogleSheet/backend/service"
	"github.com/LoggingNewMemory/VCIAStudentGoogleSheet/backend/sheets"
)

func main() {
	cfg, err := config.Load(".env", ".env.local")
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	if !cfg.Auth.Configured() {
		slog.Warn("ADMIN_USER, ADMIN_PASS or JWT_SECRET not set; login is disabled")
	}

	progression, err := config.LoadProgression(cfg.BandsFile)
	if err != nil {
		slog.Error("failed to load bands", "file", cfg.BandsFile, "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := sheets.NewClient(ctx, cfg.CredentialsPath)
	if err != nil {
		slog.Error("failed to create sheets client", "error", err)
		os.Exit(1)
	}

	svc := service.NewLogic(client, progression, service.WithClock(cfg.Clock()))
	h := handlers.NewHandler(svc, client, cfg.Auth)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           h.Router(),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown failed", "error", err)
		}
	}()

	slog.Info("server listening", "port", cfg.Port, "bands", len(progression.Bands))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}
