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

	"github.com/hibiken/asynq"

	"github.com/yyupcompany/kyyupgame-sub030/internal/app"
	"github.com/yyupcompany/kyyupgame-sub030/internal/audit"
	audithttp "github.com/yyupcompany/kyyupgame-sub030/internal/audit/http"
	"github.com/yyupcompany/kyyupgame-sub030/internal/auth"
	authhttp "github.com/yyupcompany/kyyupgame-sub030/internal/auth/http"
	"github.com/yyupcompany/kyyupgame-sub030/internal/gate"
	jobmetrics "github.com/yyupcompany/kyyupgame-sub030/internal/jobs"
	"github.com/yyupcompany/kyyupgame-sub030/internal/observability"
	"github.com/yyupcompany/kyyupgame-sub030/internal/platform/cache"
	"github.com/yyupcompany/kyyupgame-sub030/internal/platform/db"
	"github.com/yyupcompany/kyyupgame-sub030/internal/rbac"
	rbachttp "github.com/yyupcompany/kyyupgame-sub030/internal/rbac/http"
	"github.com/yyupcompany/kyyupgame-sub030/internal/users"
	"github.com/yyupcompany/kyyupgame-sub030/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)
	slog.SetDefault(logger)

	dbpool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cache.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	jobMetrics := jobmetrics.NewMetrics(metrics.Registerer())

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}
	jobsClient, err := jobs.NewClient(redisOpts, jobMetrics)
	if err != nil {
		logger.Error("init jobs client", slog.Any("error", err))
		os.Exit(1)
	}
	defer jobsClient.Close()
	inspector := asynq.NewInspector(redisOpts)
	defer inspector.Close()

	rbacStore := rbac.NewPGStore(dbpool, dbpool, logger)
	if err := rbacStore.SyncCatalog(ctx); err != nil {
		logger.Warn("sync permission catalog", slog.Any("error", err))
	}
	roleCache := rbac.NewCachedStore(rbacStore, redisClient, cfg.PermissionCacheTTL, cfg.GateLookupTimeout, logger)
	resolver := rbac.NewResolver(roleCache, logger)
	rbacService := rbac.NewService(rbacStore, roleCache, logger)

	authRepo := auth.NewRepository(dbpool)
	codec := auth.NewTokenCodec(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAccessTTL)
	revoked := auth.NewRedisRevocationList(redisClient)
	verifier := auth.NewVerifier(codec, authRepo, revoked)
	authService := auth.NewService(authRepo, authRepo, codec, revoked, logger)

	emitter := audit.NewEmitter(jobsClient, logger,
		audit.WithFilter(audit.SkipAllowedReads),
		audit.WithTaskOptions(asynq.Queue(jobs.QueueAudit), asynq.MaxRetry(5), asynq.Timeout(30*time.Second)),
	)
	defer emitter.Wait()

	accessGate := gate.New(gate.Config{
		Verifier:       verifier,
		Authorizer:     resolver,
		Logger:         logger,
		Recorder:       emitter,
		Observer:       metrics,
		LookupTimeout:  cfg.GateLookupTimeout,
		UpstreamStatus: cfg.GateUpstreamStatus,
	})

	auditService := audit.NewService(audit.NewPGStore(dbpool), logger)
	usersService := users.NewService(users.NewRepository(dbpool, dbpool), logger)

	router := app.NewRouter(app.RouterParams{
		Logger:       logger,
		Config:       cfg,
		Metrics:      metrics,
		AuthHandler:  authhttp.NewHandler(logger, authService, accessGate, app.RateLimit(cfg.LoginRateLimitPerMinute)),
		RBACHandler:  rbachttp.NewHandler(logger, rbacService, accessGate),
		UsersHandler: users.NewHandler(logger, usersService, accessGate),
		AuditHandler: audithttp.NewHandler(logger, auditService, accessGate),
		JobHandler:   jobs.NewHandler(inspector, logger, accessGate),
		Readiness: map[string]app.ReadinessCheck{
			"postgres": dbpool.Ping,
			"redis":    func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
		},
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
