package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/exportwins/winsmi/pkg/api"
	"github.com/exportwins/winsmi/pkg/audit"
	"github.com/exportwins/winsmi/pkg/config"
	"github.com/exportwins/winsmi/pkg/credentials"
	"github.com/exportwins/winsmi/pkg/hawk"
	"github.com/exportwins/winsmi/pkg/ipfilter"
	"github.com/exportwins/winsmi/pkg/middleware"
	"github.com/exportwins/winsmi/pkg/nonce"
	"github.com/exportwins/winsmi/pkg/observability"
	"github.com/exportwins/winsmi/pkg/retry"
	"github.com/exportwins/winsmi/pkg/wins"
)

var version = "dev"

type nonceStore interface {
	hawk.NonceChecker
	HealthCheck(ctx context.Context) error
	Close() error
}

func main() {
	checkConfig := flag.Bool("check-config", false, "Validate configuration and credentials, then exit")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout).
		WithField("service", cfg.Observability.OTelServiceName)

	if *checkConfig {
		creds, err := credentials.LoadFile(cfg.Hawk.CredentialsFile)
		if err != nil {
			logger.WithError(err).Error("Invalid credentials file")
			os.Exit(1)
		}
		logger.Infof("Configuration OK, %d credentials", len(creds))
		return
	}

	if err := run(cfg, logger); err != nil {
		logger.WithError(err).Error("Server exited with error")
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *observability.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = observability.WithLogger(ctx, logger)

	// Redis and Postgres may still be starting alongside us
	connect := retry.NewPolicy(retry.DefaultConfig())

	tp, err := observability.InitTracing(ctx, observability.OTelConfig{
		Enabled:        cfg.Observability.OTelEnabled,
		Endpoint:       cfg.Observability.OTelEndpoint,
		ServiceName:    cfg.Observability.OTelServiceName,
		ServiceVersion: cfg.Observability.OTelServiceVersion,
		Insecure:       cfg.Observability.OTelInsecure,
	}, logger)
	if err != nil {
		return err
	}

	var (
		registry *prometheus.Registry
		metrics  *observability.Metrics
	)
	if cfg.Observability.MetricsEnabled {
		registry = prometheus.NewRegistry()
		registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		metrics = observability.NewMetrics(registry)
	}

	// Credentials
	initial, err := credentials.LoadFile(cfg.Hawk.CredentialsFile)
	if err != nil {
		return err
	}
	credStore, err := credentials.NewStore(initial)
	if err != nil {
		return err
	}
	logger.Infof("Loaded %d Hawk credentials from %s", credStore.Len(), cfg.Hawk.CredentialsFile)
	if metrics != nil {
		metrics.CredentialsLoaded.Set(float64(credStore.Len()))
	}

	// Audit trail
	auditLoggers := []audit.Logger{audit.NewStructuredLogger(logger)}
	if cfg.Observability.AuditLogDir != "" {
		fileCfg := audit.DefaultFileLoggerConfig()
		fileCfg.BasePath = cfg.Observability.AuditLogDir
		fileLogger, err := audit.NewFileLogger(fileCfg)
		if err != nil {
			return err
		}
		auditLoggers = append(auditLoggers, fileLogger)
	}
	auditLogger := audit.NewMultiLogger(auditLoggers...)

	// Nonce cache
	var (
		nonces      nonceStore
		redisClient *redis.Client
	)
	switch cfg.Nonce.Backend {
	case "redis":
		var rs *nonce.RedisStore
		err := connect.Do(ctx, "redis", func(context.Context) error {
			var err error
			rs, err = nonce.NewRedisStore(nonce.RedisConfig{
				URL:        cfg.Nonce.RedisURL,
				Password:   cfg.Nonce.RedisPassword,
				DB:         cfg.Nonce.RedisDB,
				MaxRetries: cfg.Nonce.RedisMaxRetries,
				PoolSize:   cfg.Nonce.RedisPoolSize,
				Skew:       cfg.Hawk.Skew,
			})
			return err
		})
		if err != nil {
			return err
		}
		nonces, redisClient = rs, rs.Client()
		logger.Info("Using Redis nonce cache")
	default:
		ms := nonce.NewMemoryStore(cfg.Nonce.MemorySize, cfg.Hawk.Skew)
		ms.OnEarlyEviction(func() {
			if metrics != nil {
				metrics.NonceEarlyEvictionsTotal.Inc()
			}
		})
		nonces = ms
		logger.WithFields(logrus.Fields{
			"size":     cfg.Nonce.MemorySize,
			"lifetime": nonce.MaxLifetime(cfg.Hawk.Skew).String(),
		}).Warn("Using in-process nonce cache; replays are only detected per instance and are missed once more requests than size arrive within lifetime")
	}

	// Wins database
	var (
		db       *sql.DB
		winStore wins.Store
	)
	if cfg.Database.PostgresURL != "" {
		err = connect.Do(ctx, "postgres", func(ctx context.Context) error {
			var err error
			db, err = wins.OpenPostgres(ctx, wins.PostgresConfig{
				URL:             cfg.Database.PostgresURL,
				MaxOpenConns:    cfg.Database.MaxOpenConns,
				MaxIdleConns:    cfg.Database.MaxIdleConns,
				ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
				QueryTimeout:    cfg.Database.QueryTimeout,
			})
			return err
		})
		if err != nil {
			return err
		}
		winStore = wins.NewPostgresStore(db, cfg.Database.QueryTimeout, metrics)
	} else {
		logger.Warn("WINSMI_POSTGRES_URL not set, serving an empty in-memory wins store")
		winStore = wins.NewMemoryStore()
	}

	var filter *ipfilter.Filter
	if cfg.Hawk.IPCheckEnabled {
		filter, err = ipfilter.New(cfg.Hawk.IPAllowlist, cfg.Hawk.XFFDepth)
		if err != nil {
			return err
		}
	} else {
		logger.Warn("IP allowlist check is disabled")
	}

	var limiter middleware.Limiter
	if cfg.RateLimit.Enabled {
		rlCfg := middleware.RateLimitConfig{
			RequestsPerWindow: cfg.RateLimit.RequestsPerWindow,
			WindowDuration:    cfg.RateLimit.Window,
		}
		if redisClient != nil {
			limiter = middleware.NewDistributedRateLimiter(redisClient, rlCfg, "winsmi:ratelimit")
		} else {
			local := middleware.NewRateLimiter(rlCfg)
			local.StartCleanup(ctx)
			limiter = local
		}
	}

	auth := middleware.NewHawkAuth(middleware.HawkAuthConfig{
		Receiver: hawk.NewReceiver(credStore, nonces, hawk.ReceiverOptions{
			Skew:                   cfg.Hawk.Skew,
			AcceptUntrustedContent: cfg.Hawk.AcceptUntrustedContent,
			TrustForwardedHeaders:  cfg.Hawk.TrustForwardedHeaders,
		}),
		IPFilter:     filter,
		Scopes:       credStore,
		Logger:       logger,
		Metrics:      metrics,
		Audit:        auditLogger,
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
	})

	server := api.NewServer(api.Config{
		Auth: auth,
		Wins: wins.NewHandler(winStore, wins.HandlerOptions{
			PageSize: cfg.API.ActivityStreamPageSize,
			BaseURL:  cfg.API.PublicURL,
		}),
		Logger:  logger,
		Metrics: metrics,
		Limiter: limiter,
		Tracing: tp != nil,
	})

	apiServer := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      server,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	healthServer := &http.Server{
		Addr:    net.JoinHostPort(cfg.Server.Host, cfg.Server.HealthPort),
		Handler: api.NewHealthMux(observability.NewHealthChecker(db, nonces, version), registry),
	}

	shutdown := observability.NewShutdownManager(logger, cfg.Server.ShutdownTimeout, apiServer, healthServer)
	shutdown.RegisterShutdownFunc("nonce cache", func(context.Context) error { return nonces.Close() })
	shutdown.RegisterShutdownFunc("audit log", func(context.Context) error { return auditLogger.Close() })
	if db != nil {
		shutdown.RegisterShutdownFunc("postgres", func(context.Context) error { return db.Close() })
	}
	if tp != nil {
		shutdown.RegisterShutdownFunc("tracing", func(ctx context.Context) error {
			return observability.ShutdownTracing(ctx, tp)
		})
	}

	g, gctx := errgroup.WithContext(ctx)

	if cfg.Hawk.WatchCredentials {
		watcher := credentials.NewWatcher(cfg.Hawk.CredentialsFile, credStore, logger)
		watcher.OnReload(func(err error) {
			event := audit.NewEvent(audit.EventTypeCredentialsReload, audit.EventStatusSuccess)
			if err != nil {
				event.Status = audit.EventStatusFailure
				event.ErrorMessage = err.Error()
			}
			event.Metadata["credentials"] = credStore.Len()
			if logErr := auditLogger.Log(gctx, event); logErr != nil {
				logger.WithError(logErr).Error("Failed to write audit event")
			}
			if metrics != nil {
				metrics.CredentialsReloadsTotal.WithLabelValues(string(event.Status)).Inc()
				metrics.CredentialsLoaded.Set(float64(credStore.Len()))
			}
		})
		g.Go(func() error {
			defer observability.RecoverPanic(logger, "credentials watcher")
			return watcher.Run(gctx)
		})
	}

	g.Go(func() error {
		logger.Infof("Partner API listening on %s", apiServer.Addr)
		if err := apiServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("api server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		logger.Infof("Health server listening on %s", healthServer.Addr)
		if err := healthServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("health server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutdown signal received")
		return shutdown.Shutdown()
	})

	return g.Wait()
}
