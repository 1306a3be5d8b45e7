package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/clover-lab/clover-api/internal/handler"
	"github.com/clover-lab/clover-api/internal/middleware"
	"github.com/clover-lab/clover-api/internal/repository"
	"github.com/clover-lab/clover-api/internal/service"
	"github.com/clover-lab/clover-api/pkg/cache"
	"github.com/clover-lab/clover-api/pkg/config"
	"github.com/clover-lab/clover-api/pkg/database"
	"github.com/clover-lab/clover-api/pkg/jobs"
	"github.com/clover-lab/clover-api/pkg/logger"
	corsmiddleware "github.com/clover-lab/clover-api/pkg/middleware/cors"
	reqidmiddleware "github.com/clover-lab/clover-api/pkg/middleware/requestid"
	"github.com/clover-lab/clover-api/pkg/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		redisClient = nil
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	classRepo := repository.NewClassRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	activityRepo := repository.NewActivityLogRepository(db)
	errorLogRepo := repository.NewErrorLogRepository(db)
	reportJobRepo := repository.NewReportJobRepository(db)
	consentRepo := repository.NewConsentRepository(db)
	auditRepo := repository.NewAuditLogRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metricsService := service.NewMetricsService()
	cacheService := service.NewCacheService(cacheRepo, metricsService, cfg.Stats.CacheTTL, logr, cfg.Stats.CacheEnabled && redisClient != nil)
	auditService := service.NewAuditService(auditRepo, logr)

	authService := service.NewAuthService(userRepo, auditService, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "clover-api",
	})
	userService := service.NewUserService(userRepo, validate, logr)
	classService := service.NewClassService(classRepo, userRepo, cacheService, validate, logr)
	enrollmentService := service.NewEnrollmentService(enrollmentRepo, classRepo, cacheService, auditService, validate, logr)
	activityService := service.NewActivityLogService(activityRepo, cacheService, metricsService, validate, logr)
	statsService := service.NewStatsService(activityRepo, userRepo, cacheService, metricsService, logr)
	errorLogService := service.NewErrorLogService(errorLogRepo, auditService, validate, logr)
	consentService := service.NewConsentService(consentRepo, auditService, validate, logr)

	uploadStore, err := storage.NewLocalStorage(cfg.Uploads.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init upload storage", "error", err)
	}

	reportStore, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init report storage", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL)

	var reportService *service.ReportService
	reportQueue := jobs.NewQueue("reports", func(jobCtx context.Context, job jobs.Job) error {
		return reportService.Handle(jobCtx, job)
	}, jobs.QueueConfig{
		Workers:    cfg.Reports.WorkerConcurrency,
		MaxRetries: cfg.Reports.WorkerRetries,
		Logger:     logr,
	})
	reportService = service.NewReportService(reportJobRepo, activityRepo, reportQueue, reportStore, signer, metricsService, logr, service.ReportServiceConfig{
		ResultTTL:       cfg.Reports.SignedURLTTL,
		CleanupInterval: cfg.Reports.CleanupInterval,
		MaxAttempts:     cfg.Reports.WorkerRetries,
	})
	if cfg.Reports.Enabled {
		reportQueue.Start(ctx)
		defer reportQueue.Stop()
		reportService.StartCleanup(ctx)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(corsmiddleware.Config{AllowedOrigins: cfg.CORS.AllowedOrigins}))
	r.Use(middleware.Metrics(metricsService))

	handler.RegisterRoutes(r, cfg.APIPrefix, authService, metricsService, handler.Handlers{
		Auth:        handler.NewAuthHandler(authService),
		Users:       handler.NewUserHandler(userService),
		Uploads:     handler.NewUploadHandler(userService, uploadStore, cfg.Uploads),
		Classes:     handler.NewClassHandler(classService),
		Enrollments: handler.NewEnrollmentHandler(enrollmentService),
		ActivityLog: handler.NewActivityLogHandler(activityService),
		Stats:       handler.NewStatsHandler(statsService),
		ErrorLogs:   handler.NewErrorLogHandler(errorLogService),
		Consent:     handler.NewConsentHandler(consentService),
		Reports:     handler.NewReportHandler(reportService),
		AuditLogs:   handler.NewAuditLogHandler(auditService),

		ReportQueueDepth: reportQueue.Depth,
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
