package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/grey-bank-client/internal/config"
	"github.com/josh-kwaku/grey-bank-client/internal/ledgerstub"
	"github.com/josh-kwaku/grey-bank-client/internal/logging"
	"github.com/josh-kwaku/grey-bank-client/internal/server"
)

func main() {
	cfg, err := config.LoadStub()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := logging.Init("mock-ledger", cfg.LogLevel, cfg.AppEnv, os.Stdout)

	maxAmount, err := decimal.NewFromString(cfg.MaxAmount)
	if err != nil || !maxAmount.IsPositive() {
		slog.Error("invalid MAX_AMOUNT", "value", cfg.MaxAmount)
		os.Exit(1)
	}

	ledger := ledgerstub.New(maxAmount)
	idem := ledgerstub.NewIdempotencyCache()

	handler := server.NewHandler(server.Config{
		JWTSecret:  cfg.JWTSecret,
		AccessTTL:  time.Duration(cfg.AccessTokenTTLS) * time.Second,
		RefreshTTL: time.Duration(cfg.RefreshTokenTTLS) * time.Second,
	}, ledger, idem, logger)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	go sweepIdempotency(ctx, idem)

	go func() {
		slog.Info("server started", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")
	stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

func sweepIdempotency(ctx context.Context, idem *ledgerstub.IdempotencyCache) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := idem.CleanExpired(); n > 0 {
				slog.Debug("expired idempotency keys removed", "count", n)
			}
		}
	}
}
