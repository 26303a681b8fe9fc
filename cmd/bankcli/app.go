package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/josh-kwaku/grey-bank-client/internal/accounts"
	"github.com/josh-kwaku/grey-bank-client/internal/config"
	"github.com/josh-kwaku/grey-bank-client/internal/credstore"
	"github.com/josh-kwaku/grey-bank-client/internal/gateway"
	"github.com/josh-kwaku/grey-bank-client/internal/session"
	"github.com/josh-kwaku/grey-bank-client/internal/transactions"
)

type app struct {
	session *session.Manager
	dir     *accounts.Directory
	orch    *transactions.Orchestrator

	in     *bufio.Reader
	out    io.Writer
	errOut io.Writer
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger, stdin io.Reader, stdout, stderr io.Writer) (*app, func(), error) {
	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	a := &app{in: bufio.NewReader(stdin), out: stdout, errOut: stderr}
	api := gateway.New(cfg.LedgerURL, gateway.TokenFunc(func() string {
		return a.session.AccessToken()
	}), gateway.NewHTTPClient(cfg.HTTPTimeout()))

	a.session = session.NewManager(store, api, logger)
	a.dir = accounts.NewDirectory(api, a.session, logger)
	a.orch = transactions.NewOrchestrator(api, a.dir, a.session, logger)
	return a, closeStore, nil
}

func openStore(ctx context.Context, cfg *config.Config) (credstore.Store, func(), error) {
	switch cfg.CredentialBackend {
	case config.BackendMemory:
		return credstore.NewMemoryStore(), func() {}, nil

	case config.BackendPostgres:
		db, err := credstore.NewPostgresDB(ctx, cfg.DatabaseURL, credstore.PoolConfig{
			MaxOpenConns:     cfg.DBMaxOpenConns,
			MaxIdleConns:     cfg.DBMaxIdleConns,
			ConnMaxLifetimeS: cfg.DBConnMaxLifetimeS,
			ConnMaxIdleTimeS: cfg.DBConnMaxIdleTimeS,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("openStore: %w", err)
		}
		store := credstore.NewPostgresStore(db, cfg.CredentialNamespace)
		if err := store.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("openStore: %w", err)
		}
		return store, func() { db.Close() }, nil

	case config.BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("openStore: redis ping: %w", err)
		}
		return credstore.NewRedisStore(client, cfg.CredentialNamespace), func() { client.Close() }, nil

	default:
		return credstore.NewFileStore(cfg.CredentialFile), func() {}, nil
	}
}
