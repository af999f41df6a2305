package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/catalog"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/config"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/db"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/events"
	httpapi "github.com/andreasstove999/ecommerce-system/storefront-go/internal/http"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/identity"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/logging"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/metrics"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/session"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/store"
)

func main() {
	cfg, err := config.Load()
	logger := logging.New("storefront", cfg.Env, cfg.LogLevel)
	if err != nil {
		logger.Fatal().Err(err).Msg("load config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error().Err(err).Msg("storefront stopped")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger zerolog.Logger) error {
	var closers []func()
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}()

	var pool *pgxpool.Pool
	if cfg.StoreBackend == "postgres" || cfg.DatabaseDSN != "" {
		if cfg.DatabaseDSN == "" {
			return errors.New("DATABASE_DSN is required for the postgres backend")
		}
		if cfg.RunMigrations {
			if _, err := db.RunMigrations(cfg.DatabaseDSN, logger); err != nil {
				return fmt.Errorf("run migrations: %w", err)
			}
		}
		p, err := db.NewPool(ctx, cfg.DatabaseDSN)
		if err != nil {
			return fmt.Errorf("connect db: %w", err)
		}
		pool = p
		closers = append(closers, pool.Close)
	}

	backend, closeBackend, err := openBackend(ctx, cfg, pool)
	if err != nil {
		return err
	}
	closers = append(closers, closeBackend)
	logger.Info().Str("backend", cfg.StoreBackend).Msg("session state backend ready")

	var seq events.SequenceRepository = events.NewMemorySequence()
	if pool != nil {
		seq = events.NewPostgresSequence(pool)
	}

	var publisher cart.Publisher
	if cfg.RabbitMQURL != "" {
		conn, err := events.Dial(cfg.RabbitMQURL)
		if err != nil {
			return err
		}
		closers = append(closers, func() { _ = conn.Close() })

		p, err := events.NewPublisher(conn, seq, events.PublisherOptions{})
		if err != nil {
			return fmt.Errorf("create publisher: %w", err)
		}
		closers = append(closers, func() {
			if err := p.Close(); err != nil {
				logger.Warn().Err(err).Msg("publisher close")
			}
		})
		publisher = p
	} else {
		logger.Warn().Msg("RABBITMQ_URL not set, checkout events are only logged")
		publisher = events.NewLogPublisher(seq, logger)
	}

	querier, err := openCatalog(cfg)
	if err != nil {
		return err
	}

	pricing := cart.DefaultPricing()
	pricing.FreeShippingThreshold = cfg.FreeShippingThreshold
	pricing.ShippingFee = cfg.ShippingFee
	pricing.TaxRate = cfg.TaxRate

	m := metrics.New()
	sessions := session.NewRegistry(backend, pricing, session.WithLogger(logger), session.WithMetrics(m))
	closers = append(closers, sessions.CloseAll)
	go sessions.Run(ctx, cfg.SessionSweepInterval, cfg.SessionTTL)

	handler := httpapi.NewRouter(httpapi.Deps{
		Logger:           logger,
		Catalog:          querier,
		Sessions:         sessions,
		Publisher:        publisher,
		Verifier:         identity.NewVerifier(cfg.JWTSecret, cfg.JWTIssuer),
		Metrics:          m,
		CORSAllowOrigins: cfg.CORSAllowOrigins,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("storefront listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("graceful shutdown error")
	}
	return nil
}

func openBackend(ctx context.Context, cfg config.Config, pool *pgxpool.Pool) (store.Backend, func(), error) {
	noop := func() {}
	switch cfg.StoreBackend {
	case "memory":
		return store.NewMemoryBackend(), noop, nil
	case "file":
		b, err := store.NewFileBackend(cfg.StoreDir)
		if err != nil {
			return nil, noop, fmt.Errorf("open file backend: %w", err)
		}
		return b, noop, nil
	case "redis":
		client := store.NewRedisClient(cfg.RedisAddress, cfg.RedisPassword)
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, noop, fmt.Errorf("ping redis: %w", err)
		}
		return store.NewRedisBackend(client, "storefront:", cfg.StoreTTL), func() { _ = client.Close() }, nil
	case "postgres":
		return store.NewPostgresBackend(pool), noop, nil
	default:
		return nil, noop, fmt.Errorf("unknown STORE_BACKEND %q", cfg.StoreBackend)
	}
}

func openCatalog(cfg config.Config) (catalog.Querier, error) {
	if cfg.CatalogURL == "" {
		return catalog.NewEngine(catalog.GenerateCatalog(cfg.CatalogSeed, cfg.CatalogSize)), nil
	}
	c, err := catalog.NewHTTPClient("catalog", cfg.CatalogURL, &http.Client{Timeout: cfg.UpstreamTimeout})
	if err != nil {
		return nil, fmt.Errorf("catalog client: %w", err)
	}
	return c, nil
}
