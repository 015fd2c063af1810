package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	_ "github.com/noah-isme/lab-issue-tracker/api/swagger"
	"github.com/noah-isme/lab-issue-tracker/internal/handler"
	"github.com/noah-isme/lab-issue-tracker/internal/policy"
	"github.com/noah-isme/lab-issue-tracker/internal/repository"
	"github.com/noah-isme/lab-issue-tracker/internal/service"
	"github.com/noah-isme/lab-issue-tracker/pkg/cache"
	"github.com/noah-isme/lab-issue-tracker/pkg/config"
	"github.com/noah-isme/lab-issue-tracker/pkg/database"
	"github.com/noah-isme/lab-issue-tracker/pkg/logger"
)

// @title Lab Issue Tracker API
// @version 1.0.0
// @description Equipment fault reporting for labs and classrooms
// @BasePath /api
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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

	ctx := context.Background()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, login throttling disabled", zap.Error(err))
		redisClient = nil
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	validate := validator.New()
	pol := policy.Default()
	metrics := service.NewMetricsService()

	userRepo := repository.NewUserRepository(db)
	labRepo := repository.NewLabRepository(db)
	issueRepo := repository.NewIssueRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	attemptRepo := repository.NewAttemptRepository(redisClient, "login_attempts")

	reconciler := service.NewReconciler(labRepo, issueRepo, metrics, logr)
	issueSvc := service.NewIssueService(issueRepo, labRepo, reconciler, pol, metrics, validate, logr)
	labSvc := service.NewLabService(labRepo, pol, metrics, validate, logr)
	exportSvc := service.NewExportService(issueSvc, pol, logr, nil, nil)
	limiter := service.NewLoginLimiter(attemptRepo, service.LoginLimiterConfig{
		MaxAttempts: cfg.Auth.LoginMaxAttempts,
		Window:      cfg.Auth.LoginAttemptWindow,
	}, logr)
	authSvc := service.NewAuthService(userRepo, auditRepo, limiter, metrics, validate, logr, service.AuthConfig{
		AccessTokenSecret:      cfg.JWT.Secret,
		AccessTokenExpiry:      cfg.JWT.Expiration,
		Issuer:                 cfg.JWT.Issuer,
		AllowAdminRegistration: cfg.Auth.AllowAdminRegistration,
	})

	checks := map[string]handler.ReadinessCheck{
		"postgres": db.PingContext,
	}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}

	router := handler.NewRouter(handler.RouterDeps{
		Config:         cfg,
		Logger:         logr,
		Metrics:        metrics,
		Auth:           authSvc,
		Audit:          auditRepo,
		AuthHandler:    handler.NewAuthHandler(authSvc),
		LabHandler:     handler.NewLabHandler(labSvc),
		IssueHandler:   handler.NewIssueHandler(issueSvc, exportSvc),
		MetricsHandler: handler.NewMetricsHandler(metrics, checks),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env), zap.String("api_prefix", cfg.APIPrefix))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}
