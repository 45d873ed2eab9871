package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	"loancore/internal/audit"
	audithandler "loancore/internal/audit/handler"
	"loancore/internal/audit/outbox"
	"loancore/internal/consent"
	consenthandler "loancore/internal/consent/handler"
	httpapi "loancore/internal/http"
	jwttoken "loancore/internal/jwt_token"
	"loancore/internal/lifecycle"
	lifecyclehandler "loancore/internal/lifecycle/handler"
	lifecycleservice "loancore/internal/lifecycle/service"
	"loancore/internal/platform/config"
	"loancore/internal/platform/httpserver"
	"loancore/internal/platform/logger"
	"loancore/internal/platform/metrics"
	pgschema "loancore/internal/platform/postgres"
	platformredis "loancore/internal/platform/redis"
	"loancore/internal/stats"
	statshandler "loancore/internal/stats/handler"
	txpkg "loancore/pkg/platform/tx"
)

// main wires high-level dependencies and keeps the server lifecycle small.
// Business logic lives in the internal services packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()
	m := metrics.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Storage: Postgres when a DSN is configured, in-memory otherwise.
	var (
		db           *sql.DB
		appStore     lifecycle.Store
		auditStore   audit.Store
		consentStore consent.Store
		runner       txpkg.Runner
		healthChecks = map[string]httpapi.HealthChecker{}
	)
	if cfg.PostgresDSN != "" {
		var err error
		db, err = sql.Open("postgres", cfg.PostgresDSN)
		if err != nil {
			log.Error("open postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			log.Error("ping postgres", "error", err)
			os.Exit(1)
		}
		if cfg.BootstrapSchema {
			if err := pgschema.Bootstrap(ctx, db); err != nil {
				log.Error("bootstrap schema", "error", err)
				os.Exit(1)
			}
		}
		withOutbox := len(cfg.KafkaBrokers) > 0
		appStore = lifecycle.NewPostgresStore(db)
		auditStore = audit.NewPostgresStore(db, withOutbox)
		consentStore = consent.NewPostgresStore(db)
		runner = newPostgresTxRunner(db, cfg.TxTimeout)
		healthChecks["postgres"] = dbHealth{db}
	} else {
		appStore = lifecycle.NewInMemoryStore()
		auditStore = audit.NewInMemoryStore()
		consentStore = consent.NewInMemoryStore()
		runner = txpkg.NewMemoryRunner(cfg.TxTimeout)
	}

	// Statistics cache: Redis when configured, process-local otherwise.
	statsCache := stats.Cache(stats.NewMemoryCache())
	redisClient, err := platformredis.New(cfg)
	if err != nil {
		log.Error("connect redis", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		statsCache = stats.NewRedisCache(redisClient.Client)
		healthChecks["redis"] = redisClient
	}

	ledger := audit.NewService(auditStore, log)
	statsSvc := stats.New(appStore, log, stats.WithCache(statsCache), stats.WithMetrics(m))

	lifecycleSvc, err := lifecycleservice.New(appStore, ledger, runner, log,
		lifecycleservice.WithMetrics(m),
		lifecycleservice.WithStatsInvalidator(statsSvc),
	)
	if err != nil {
		log.Error("build lifecycle service", "error", err)
		os.Exit(1)
	}

	consentSvc, err := consent.New(consentStore, ledger, runner, log, m)
	if err != nil {
		log.Error("build consent service", "error", err)
		os.Exit(1)
	}

	jwtSvc := jwttoken.NewJWTService(cfg.JWTSigningKey, "loancore", "loancore-api")

	router := httpapi.NewRouter(httpapi.Deps{
		Lifecycle:      lifecyclehandler.New(lifecycleSvc, log),
		Audit:          audithandler.New(ledger, log),
		Consent:        consenthandler.New(consentSvc, log),
		Stats:          statshandler.New(statsSvc, log),
		TokenValidator: jwttoken.NewJWTServiceAdapter(jwtSvc),
		Logger:         log,
		Metrics:        m,
		HealthChecks:   healthChecks,
	})

	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("starting loancore", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	// Audit outbox relay: only meaningful with durable storage and brokers.
	if db != nil && len(cfg.KafkaBrokers) > 0 {
		relay, err := outbox.New(db, cfg.KafkaBrokers, cfg.AuditTopic, log)
		if err != nil {
			log.Error("start audit outbox relay", "error", err)
			os.Exit(1)
		}
		g.Go(func() error {
			return relay.Run(gctx)
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
	log.Info("shutdown complete")
}

type dbHealth struct{ db *sql.DB }

func (h dbHealth) Health(ctx context.Context) error { return h.db.PingContext(ctx) }
