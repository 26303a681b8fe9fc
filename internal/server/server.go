package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/josh-kwaku/grey-bank-client/internal/auth"
	"github.com/josh-kwaku/grey-bank-client/internal/handler"
	"github.com/josh-kwaku/grey-bank-client/internal/ledgerstub"
	"github.com/josh-kwaku/grey-bank-client/internal/middleware"
)

type Config struct {
	JWTSecret  string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// NewHandler assembles the ledger stub's routes. Everything except /health
// lives under /api.
func NewHandler(cfg Config, ledger *ledgerstub.Ledger, idem *ledgerstub.IdempotencyCache, logger *slog.Logger) http.Handler {
	authH := handler.NewAuthHandler(ledger, handler.TokenConfig{
		Secret:     cfg.JWTSecret,
		AccessTTL:  cfg.AccessTTL,
		RefreshTTL: cfg.RefreshTTL,
	})
	accountH := handler.NewAccountHandler(ledger)
	txH := handler.NewTransactionHandler(ledger)

	access := middleware.Auth(cfg.JWTSecret, auth.KindAccess, ledger)
	refresh := middleware.Auth(cfg.JWTSecret, auth.KindRefresh, ledger)
	idempotent := middleware.Idempotency(idem)

	protected := func(h http.HandlerFunc) http.Handler {
		return access(h)
	}
	mutating := func(h http.HandlerFunc) http.Handler {
		return access(idempotent(h))
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", handler.Liveness)

	mux.HandleFunc("POST /api/auth/register", authH.Register)
	mux.HandleFunc("POST /api/auth/login", authH.Login)
	mux.HandleFunc("POST /api/auth/reset-password", authH.ResetPassword)
	mux.Handle("POST /api/auth/refresh", refresh(http.HandlerFunc(authH.Refresh)))
	mux.Handle("GET /api/auth/profile", protected(authH.Profile))
	mux.Handle("POST /api/auth/change-password", protected(authH.ChangePassword))
	mux.Handle("POST /api/auth/logout", protected(authH.Logout))

	mux.Handle("GET /api/accounts", protected(accountH.List))
	mux.Handle("POST /api/accounts", mutating(accountH.Create))
	mux.Handle("GET /api/accounts/{id}", protected(accountH.Get))
	mux.Handle("PUT /api/accounts/{id}", mutating(accountH.Update))
	mux.Handle("DELETE /api/accounts/{id}", mutating(accountH.Delete))
	mux.Handle("GET /api/accounts/{id}/balance", protected(accountH.Balance))
	mux.Handle("GET /api/accounts/{id}/transactions", protected(accountH.Transactions))
	mux.Handle("POST /api/accounts/{id}/deposit", mutating(accountH.Deposit))
	mux.Handle("POST /api/accounts/{id}/withdraw", mutating(accountH.Withdraw))

	mux.Handle("GET /api/transactions", protected(txH.List))
	mux.Handle("GET /api/transactions/stats", protected(txH.Stats))
	mux.Handle("GET /api/transactions/{id}", protected(txH.Get))
	mux.Handle("POST /api/transactions/transfer", mutating(txH.Transfer))

	var h http.Handler = mux
	h = middleware.Recovery(h)
	h = middleware.Logging(logger)(h)
	h = middleware.RequestID(h)
	return h
}
