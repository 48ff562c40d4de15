package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tokenAuth "github.com/MrEthical07/tokenAuth"
	"github.com/MrEthical07/tokenAuth/httpapi"
	"github.com/MrEthical07/tokenAuth/identity"
	"github.com/MrEthical07/tokenAuth/internal/config"
	"github.com/MrEthical07/tokenAuth/internal/db"
	"github.com/MrEthical07/tokenAuth/internal/logging"
	"github.com/MrEthical07/tokenAuth/internal/telemetry"
	otelexport "github.com/MrEthical07/tokenAuth/metrics/export/otel"
	"github.com/MrEthical07/tokenAuth/session"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

type ServeCmd struct {
	// Migrations
	AutoMigrate bool `help:"apply database migrations before serving" default:"false" env:"TOKENAUTH_AUTO_MIGRATE"`

	// OpenTelemetry
	OTLPEndpoint string `help:"OTLP gRPC endpoint for metrics; empty disables export" default:"" env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTLPInsecure bool   `help:"dial the OTLP endpoint without TLS" default:"false" env:"OTEL_EXPORTER_OTLP_INSECURE"`

	ShutdownTimeout time.Duration `help:"grace period for in-flight requests on shutdown" default:"10s" env:"TOKENAUTH_SHUTDOWN_TIMEOUT"`
}

func (c *ServeCmd) Run(globals *Globals) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logging.Setup(globals.Debug || !cfg.IsProduction())

	engineCfg, err := cfg.ToEngineConfig()
	if err != nil {
		return err
	}

	log.Info().
		Str("version", globals.Version).
		Str("env", cfg.Env).
		Str("session_store", cfg.SessionStore).
		Msg("Starting server")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg, engineCfg, c.AutoMigrate, log)
	if err != nil {
		return err
	}
	defer st.close()

	builder := tokenAuth.New().
		WithConfig(engineCfg).
		WithSessionStore(st.sessions).
		WithUserStore(st.users).
		WithLogger(log)
	if cfg.AuditEnabled {
		builder = builder.WithAuditSink(tokenAuth.NewZerologSink(log))
	}
	engine, err := builder.Build()
	if err != nil {
		return fmt.Errorf("failed to build engine: %w", err)
	}
	defer engine.Close()

	mp, err := telemetry.NewMeterProvider(ctx, c.OTLPEndpoint, "tokenauth", globals.Version, c.OTLPInsecure)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize telemetry, continuing without OTLP metrics")
		mp, _ = telemetry.NewMeterProvider(ctx, "", "tokenauth", globals.Version, false)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := mp.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Failed to shutdown telemetry")
		}
	}()

	exporter, err := otelexport.NewExporter(mp.Meter(otelexport.ScopeName), engine)
	if err != nil {
		return fmt.Errorf("failed to register otel instruments: %w", err)
	}
	defer func() { _ = exporter.Close() }()

	router := httpapi.NewRouter(engine, httpapi.Options{
		Logger:      log,
		CORSOrigins: cfg.CORSOriginList(),
	})
	srv := configureHTTPServer(cfg.Addr, router)

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Addr).Msg("Listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), c.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

type stores struct {
	sessions tokenAuth.SessionStore
	users    tokenAuth.UserStore
	closers  []func()
}

func (s *stores) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

func openStores(ctx context.Context, cfg *config.Config, engineCfg tokenAuth.Config, autoMigrate bool, log zerolog.Logger) (*stores, error) {
	st := &stores{}

	var pool *pgxpool.Pool
	if cfg.DatabaseURL != "" {
		if autoMigrate {
			if err := db.Migrate(cfg.DatabaseURL, db.Up); err != nil {
				return nil, fmt.Errorf("failed to migrate: %w", err)
			}
			log.Info().Msg("Database migrations applied")
		}

		var err error
		pool, err = db.NewPool(ctx, &db.PoolConfig{ConnString: cfg.DatabaseURL})
		if err != nil {
			return nil, err
		}
		st.closers = append(st.closers, pool.Close)
		st.users = identity.NewPostgresStore(pool)
	} else {
		log.Warn().Msg("DATABASE_URL is not set, users are kept in memory and lost on restart")
		st.users = identity.NewMemoryStore()
	}

	switch cfg.SessionStore {
	case config.StoreRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPass,
			DB:       cfg.RedisDB,
		})
		st.closers = append(st.closers, func() { _ = client.Close() })
		if err := client.Ping(ctx).Err(); err != nil {
			st.close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		st.sessions = session.NewRedisStore(client, engineCfg.Session.RedisPrefix, engineCfg.Session.Retention)
	case config.StorePostgres:
		st.sessions = session.NewPostgresStore(pool)
	default:
		st.sessions = session.NewMemoryStore()
	}

	return st, nil
}
