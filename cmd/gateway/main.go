// Command gateway runs the healthdir public and admin API gateways in one
// process: two HTTP servers sharing the rate-limit counter store and the
// audit flusher. Business logic lives in the internal packages.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"healthdir/internal/audit"
	auditmemory "healthdir/internal/audit/store/memory"
	auditpostgres "healthdir/internal/audit/store/postgres"
	"healthdir/internal/gateway"
	"healthdir/internal/identity"
	"healthdir/internal/jwttoken"
	"healthdir/internal/platform/config"
	"healthdir/internal/platform/httpserver"
	"healthdir/internal/platform/logger"
	"healthdir/internal/platform/postgres"
	platformredis "healthdir/internal/platform/redis"
	"healthdir/internal/proxy"
	ratelimitservice "healthdir/internal/ratelimit/service"
	ratelimitmemory "healthdir/internal/ratelimit/store/memory"
	ratelimitredis "healthdir/internal/ratelimit/store/redis"
	httptransport "healthdir/internal/transport/http"
)

func main() {
	if err := run(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("gateway exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.FromEnv()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	log := logger.New(slog.LevelInfo)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Shared counter store: Redis when configured, otherwise process-local.
	var limiterStore ratelimitservice.Store
	redisClient, err := platformredis.New(ctx, cfg.Redis)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
		limiterStore = ratelimitredis.New(redisClient.Client)
		log.Info("rate limit counters on redis")
	} else {
		limiterStore = ratelimitmemory.New()
		log.Warn("no redis configured, rate limit counters are process-local")
	}
	limiter := ratelimitservice.New(limiterStore, ratelimitservice.WithLogger(log))

	// Durable audit store: Postgres when configured, otherwise in-memory
	// (development only; zero-loss means nothing without a durable store).
	var auditStore audit.Store
	pool, err := postgres.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	if pool != nil {
		defer pool.Close()
		pgStore := auditpostgres.New(pool)
		if err := pgStore.EnsureSchema(ctx); err != nil {
			return err
		}
		auditStore = pgStore
		log.Info("audit log on postgres")
	} else {
		auditStore = auditmemory.New()
		log.Warn("no postgres configured, admin audit log is in-memory")
	}

	durableRecorder := audit.NewDurableRecorder(auditStore, log, audit.WithQueueSize(cfg.AuditQueueSize))
	bestEffortRecorder := audit.NewLogRecorder(log)

	jwtService := jwttoken.NewJWTService(cfg.JWTSigningKey, cfg.JWTIssuer, cfg.JWTAudience)
	principal := identity.ExtractPrincipal(jwttoken.NewAdapter(jwtService), log)

	publicRouter, err := buildRouter(cfg.Public, cfg.ForwardTimeout, limiter, bestEffortRecorder, principal, nil, log, false)
	if err != nil {
		return err
	}
	adminRouter, err := buildRouter(cfg.Admin, cfg.ForwardTimeout, limiter, durableRecorder, principal, identity.AdminRoutePolicy(), log, true)
	if err != nil {
		return err
	}

	publicSrv := httpserver.New(cfg.Public.Addr, publicRouter)
	adminSrv := httpserver.New(cfg.Admin.Addr, adminRouter)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return durableRecorder.Run(gctx)
	})
	g.Go(func() error {
		return durableRecorder.RunRetention(gctx, 24*time.Hour, cfg.RetentionDays)
	})

	for _, srv := range []*http.Server{publicSrv, adminSrv} {
		srv := srv
		g.Go(func() error {
			log.Info("gateway listening", "addr", srv.Addr)
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
	}

	return g.Wait()
}

func buildRouter(
	gwCfg config.GatewayConfig,
	forwardTimeout time.Duration,
	limiter gateway.Limiter,
	recorder audit.Recorder,
	principal func(http.Handler) http.Handler,
	roles *identity.RoutePolicy,
	log *slog.Logger,
	exposeMetrics bool,
) (http.Handler, error) {
	backend, err := url.Parse(gwCfg.BackendURL)
	if err != nil {
		return nil, fmt.Errorf("gateway %s: parse backend URL: %w", gwCfg.Type, err)
	}

	var opts []gateway.Option
	if roles != nil {
		opts = append(opts, gateway.WithRoutePolicy(roles))
	}
	pipeline, err := gateway.New(gateway.PolicyFromConfig(gwCfg), limiter, recorder, log, opts...)
	if err != nil {
		return nil, fmt.Errorf("gateway %s: %w", gwCfg.Type, err)
	}

	forwarder := proxy.New(backend, &http.Client{Timeout: forwardTimeout}, log)

	return httptransport.NewRouter(httptransport.Deps{
		Pipeline:      pipeline,
		Forwarder:     forwarder,
		Principal:     principal,
		ExposeMetrics: exposeMetrics,
	}), nil
}
