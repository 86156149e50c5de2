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

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	cthttp "github.com/chronotrack-io/chronotrack/internal/adapter/http"
	ctnats "github.com/chronotrack-io/chronotrack/internal/adapter/nats"
	"github.com/chronotrack-io/chronotrack/internal/adapter/natskv"
	ctotel "github.com/chronotrack-io/chronotrack/internal/adapter/otel"
	"github.com/chronotrack-io/chronotrack/internal/adapter/postgres"
	"github.com/chronotrack-io/chronotrack/internal/adapter/ristretto"
	"github.com/chronotrack-io/chronotrack/internal/adapter/tiered"
	"github.com/chronotrack-io/chronotrack/internal/config"
	"github.com/chronotrack-io/chronotrack/internal/logger"
	"github.com/chronotrack-io/chronotrack/internal/middleware"
	"github.com/chronotrack-io/chronotrack/internal/port/messagequeue"
	"github.com/chronotrack-io/chronotrack/internal/resilience"
	"github.com/chronotrack-io/chronotrack/internal/service"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "admin" {
		if err := runAdmin(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	flags, err := config.ParseFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if err := run(flags); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(flags config.CLIFlags) error {
	cfg, yamlPath, err := config.LoadWithCLI(flags)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	holder := config.NewHolder(cfg, yamlPath)

	log, logCloser := logger.New(cfg.Logging)
	defer logCloser.Close()
	slog.SetDefault(log)

	log.Info("config loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Logging.Level,
		"nats", cfg.NATS.URL,
	)

	ctx := context.Background()

	shutdownTelemetry, err := ctotel.Setup(ctx, cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			log.Warn("telemetry shutdown", "error", err)
		}
	}()

	// --- Databases ---

	registryPool, err := postgres.NewPool(ctx, cfg.Registry)
	if err != nil {
		return fmt.Errorf("registry pool: %w", err)
	}
	defer registryPool.Close()

	if err := postgres.RunRegistryMigrations(ctx, cfg.Registry.DSN); err != nil {
		return fmt.Errorf("registry migrations: %w", err)
	}

	demoPool, err := postgres.NewPool(ctx, cfg.Demo)
	if err != nil {
		return fmt.Errorf("demo pool: %w", err)
	}
	defer demoPool.Close()

	if err := postgres.RunDemoMigrations(ctx, cfg.Demo.DSN); err != nil {
		return fmt.Errorf("demo migrations: %w", err)
	}

	adminPool, err := postgres.NewPool(ctx, config.Postgres{
		DSN:      cfg.TenantAdmin.DSN,
		MaxConns: 2,
		MinConns: 1,
	})
	if err != nil {
		return fmt.Errorf("tenant admin pool: %w", err)
	}
	defer adminPool.Close()

	log.Info("postgres connected, migrations applied")

	registry := postgres.NewRegistryStore(registryPool)
	demo := postgres.NewDemoStore(demoPool)
	tenantAdmin := postgres.NewTenantAdmin(adminPool, cfg.TenantAdmin.DSN)
	tenantPools := postgres.NewTenantPools(cfg.TenantAdmin.DSN, cfg.TenantAdmin.TenantMaxConns)
	defer tenantPools.Close()

	if err := service.SeedDemoAccounts(ctx, demo, cfg.Auth.BcryptCost, log); err != nil {
		return fmt.Errorf("seed demo accounts: %w", err)
	}

	// --- NATS ---

	queue, err := ctnats.Connect(ctx, cfg.NATS.URL)
	if err != nil {
		return fmt.Errorf("nats: %w", err)
	}
	defer func() {
		if err := queue.Drain(); err != nil {
			log.Warn("nats drain", "error", err)
		}
	}()

	// --- Cache (L1 in-process, L2 shared over JetStream KV) ---

	l1, err := ristretto.New(cfg.Cache.L1MaxSizeMB << 20)
	if err != nil {
		return fmt.Errorf("l1 cache: %w", err)
	}
	defer l1.Close()

	kv, err := queue.KeyValue(ctx, cfg.Cache.L2Bucket, cfg.Cache.L2TTL)
	if err != nil {
		return fmt.Errorf("kv bucket: %w", err)
	}
	identityCache := tiered.New(l1, natskv.New(kv), cfg.Cache.IdentityTTL)

	// --- Services ---

	breaker := resilience.NewBreaker(cfg.Breaker.MaxFailures, cfg.Breaker.Timeout)
	provisioner := service.NewProvisioner(tenantAdmin, tenantPools, breaker, cfg.Provision, log)
	registration := service.NewRegistrationService(registry, provisioner, queue, cfg.Provision, cfg.Auth.BcryptCost, log)
	resolver := service.NewIdentityResolver(registry, demo, identityCache, cfg.Cache.IdentityTTL, log)
	tokens := service.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenExpiry)
	auth := service.NewAuthService(resolver, tokens, log)
	orgs := service.NewOrganizationService(registry, provisioner, tenantPools, queue, log)

	metrics, err := ctotel.NewMetrics()
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}
	cancelMetrics, err := startMetricsConsumer(ctx, queue, metrics, log)
	if err != nil {
		return fmt.Errorf("metrics consumer: %w", err)
	}
	defer cancelMetrics()

	// --- HTTP ---

	handlers := &cthttp.Handlers{
		Auth:          auth,
		Registration:  registration,
		Organizations: orgs,
		ReadyCheck: func(ctx context.Context) error {
			if err := registryPool.Ping(ctx); err != nil {
				return fmt.Errorf("registry: %w", err)
			}
			if err := demoPool.Ping(ctx); err != nil {
				return fmt.Errorf("demo: %w", err)
			}
			if !queue.IsConnected() {
				return fmt.Errorf("nats disconnected")
			}
			return nil
		},
	}

	limiter := middleware.NewRateLimiter(cfg.Rate.RequestsPerSecond, cfg.Rate.Burst)
	stopCleanup := limiter.StartCleanup(cfg.Rate.CleanupInterval, cfg.Rate.MaxIdleTime)
	defer stopCleanup()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))
	r.Use(ctotel.HTTPMiddleware(cfg.Telemetry.ServiceName))
	r.Use(cthttp.Logger)
	r.Use(cthttp.SecurityHeaders)
	r.Use(cthttp.CORS(cfg.Server.CORSOrigin))
	r.Use(limiter.Handler)
	r.Use(middleware.Auth(tokens, resolver))
	r.Use(middleware.Idempotency(identityCache, cfg.Cache.L2TTL))

	cthttp.MountRoutes(r, handlers)

	addr := ":" + holder.Get().Server.Port

	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// SIGHUP reloads the YAML config; only settings read per-request pick
	// up changes without a restart.
	reload := make(chan os.Signal, 1)
	signal.Notify(reload, syscall.SIGHUP)
	go func() {
		for range reload {
			if err := holder.Reload(); err != nil {
				log.Warn("config reload failed, keeping previous", "error", err)
				continue
			}
			log.Info("config reloaded", "path", yamlPath)
		}
	}()

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Info("starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server failed", "error", err)
		}
	}()

	<-done
	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}

// startMetricsConsumer feeds provisioning lifecycle events into the metric
// instruments. Counting off the queue keeps the services free of telemetry
// plumbing and counts events from every core instance.
func startMetricsConsumer(ctx context.Context, queue messagequeue.Queue, m *ctotel.Metrics, log *slog.Logger) (func(), error) {
	cancels := make([]func(), 0, 3)
	subscribe := func(subject string, count func(ctx context.Context)) error {
		cancel, err := queue.Subscribe(ctx, subject, func(ctx context.Context, subject string, data []byte) error {
			count(ctx)
			return nil
		})
		if err != nil {
			return fmt.Errorf("subscribe %s: %w", subject, err)
		}
		cancels = append(cancels, cancel)
		return nil
	}

	err := subscribe(messagequeue.SubjectOrgRegistered, func(ctx context.Context) { m.Registrations.Add(ctx, 1) })
	if err == nil {
		err = subscribe(messagequeue.SubjectOrgProvisionFail, func(ctx context.Context) { m.ProvisionFailures.Add(ctx, 1) })
	}
	if err == nil {
		err = subscribe(messagequeue.SubjectTenantDropped, func(ctx context.Context) { m.TenantsDropped.Add(ctx, 1) })
	}
	if err != nil {
		for _, c := range cancels {
			c()
		}
		return nil, err
	}

	log.Info("metrics consumer started")
	return func() {
		for _, c := range cancels {
			c()
		}
	}, nil
}
