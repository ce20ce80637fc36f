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

	"github.com/sahel-erp/sahel-erp/internal/advances"
	"github.com/sahel-erp/sahel-erp/internal/app"
	"github.com/sahel-erp/sahel-erp/internal/attendance"
	"github.com/sahel-erp/sahel-erp/internal/audit"
	"github.com/sahel-erp/sahel-erp/internal/auth"
	"github.com/sahel-erp/sahel-erp/internal/observability"
	"github.com/sahel-erp/sahel-erp/internal/platform/cache"
	"github.com/sahel-erp/sahel-erp/internal/platform/db"
	"github.com/sahel-erp/sahel-erp/internal/rbac"
	"github.com/sahel-erp/sahel-erp/internal/roles"
	"github.com/sahel-erp/sahel-erp/internal/shared"
	"github.com/sahel-erp/sahel-erp/internal/users"
	"github.com/sahel-erp/sahel-erp/jobs"
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

	dbpool, err := db.New(ctx, cfg.PGDSN, db.PoolOptions{MaxConns: cfg.PGMaxConn})
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
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
	auditLogger := shared.NewAuditLogger(dbpool)
	approvalRecorder := shared.NewApprovalRecorder(dbpool, logger)
	idempotencyStore := shared.NewIdempotencyStore(dbpool)

	jobClient := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	window, err := auth.NewLoginWindow(cfg.LoginWindowStart, cfg.LoginWindowEnd, cfg.Location())
	if err != nil {
		logger.Error("login window", slog.Any("error", err))
		os.Exit(1)
	}
	tokens := auth.NewTokenService(cfg.JWTSecret, cfg.TokenTTL)
	authService := auth.NewService(auth.NewRepository(dbpool), tokens, auth.NewRedisRevoker(redisClient), window, logger).
		WithObserver(metrics)
	authHandler := auth.NewHandler(logger, authService)

	rbacService := rbac.NewService(rbac.NewRepository(dbpool))
	rbacMiddleware := rbac.Middleware{Service: rbacService, Logger: logger}

	attendanceService := attendance.NewService(attendance.NewRepository(dbpool), attendance.Config{
		Location:   cfg.Location(),
		LateCutoff: cfg.LateCutoffTime(),
	}, metrics, auditLogger, logger)

	usersService := users.NewService(users.NewRepository(dbpool), auditLogger, logger)
	rolesService := roles.NewService(roles.NewRepository(dbpool), auditLogger, logger)
	advancesService := advances.NewService(advances.NewRepository(dbpool), advances.Deps{
		Approvals:   approvalRecorder,
		Audit:       auditLogger,
		Idempotency: idempotencyStore,
		Mailer:      jobClient,
		Logger:      logger,
		Location:    cfg.Location(),
	})

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		AuthService:        authService,
		AuthHandler:        authHandler,
		AttendanceHandler:  attendance.NewHandler(logger, attendanceService, rbacMiddleware),
		ZoneHandler:        attendance.NewZoneHandler(logger, attendanceService, rbacMiddleware),
		UsersHandler:       users.NewHandler(logger, usersService, rbacMiddleware),
		RolesHandler:       roles.NewHandler(logger, rolesService, rbacMiddleware),
		PermissionsHandler: rbac.NewPermissionsHandler(),
		AdvancesHandler:    advances.NewHandler(logger, advancesService, rbacMiddleware),
		AuditHandler:       audit.NewHandler(logger, audit.NewService(audit.NewRepository(dbpool)), rbacMiddleware, cfg.Location()),
		JobHandler:         jobs.NewHandler(inspector, logger),
		Metrics:            metrics,
		Health: map[string]app.Pinger{
			"postgres": dbpool,
			"redis":    app.PingFunc(func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }),
		},
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("login_window", window.String()))
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
