package handler

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/lab-issue-tracker/internal/middleware"
	"github.com/noah-isme/lab-issue-tracker/internal/models"
	"github.com/noah-isme/lab-issue-tracker/internal/repository"
	"github.com/noah-isme/lab-issue-tracker/internal/service"
	"github.com/noah-isme/lab-issue-tracker/pkg/config"
	appErrors "github.com/noah-isme/lab-issue-tracker/pkg/errors"
	"github.com/noah-isme/lab-issue-tracker/pkg/logger"
	corsmiddleware "github.com/noah-isme/lab-issue-tracker/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/lab-issue-tracker/pkg/middleware/requestid"
	"github.com/noah-isme/lab-issue-tracker/pkg/response"
)

// RouterDeps collects what the HTTP layer needs.
type RouterDeps struct {
	Config         *config.Config
	Logger         *zap.Logger
	Metrics        *service.MetricsService
	Auth           *service.AuthService
	Audit          *repository.AuditRepository
	AuthHandler    *AuthHandler
	LabHandler     *LabHandler
	IssueHandler   *IssueHandler
	MetricsHandler *MetricsHandler
}

// NewRouter builds the gin engine with the global middleware chain and every API route.
func NewRouter(deps RouterDeps) *gin.Engine {
	cfg := deps.Config
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(deps.Logger))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(deps.Metrics))

	r.GET("/health", deps.MetricsHandler.Health)
	r.GET("/ready", deps.MetricsHandler.Ready)
	r.GET("/metrics", deps.MetricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	r.NoRoute(func(c *gin.Context) {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "route not found"))
	})

	audit := func(action, resource string) gin.HandlerFunc {
		if deps.Audit == nil {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.Audit(deps.Audit, deps.Logger, action, resource)
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	auth.POST("/register", deps.AuthHandler.Register)
	auth.POST("/login", deps.AuthHandler.Login)
	auth.GET("/profile", middleware.JWT(deps.Auth), deps.AuthHandler.Profile)

	secured := api.Group("")
	secured.Use(middleware.JWT(deps.Auth))

	labs := secured.Group("/labs")
	labs.GET("", deps.LabHandler.List)
	labs.GET("/:id", deps.LabHandler.Get)
	labs.POST("", audit(models.AuditActionLabCreate, "lab"), deps.LabHandler.Create)
	labs.PUT("/:id", audit(models.AuditActionLabUpdate, "lab"), deps.LabHandler.Update)
	labs.DELETE("/:id", audit(models.AuditActionLabDelete, "lab"), deps.LabHandler.Delete)
	labs.PATCH("/:id/status", audit(models.AuditActionLabOverride, "lab"), deps.LabHandler.UpdateStatus)

	issues := secured.Group("/issues")
	issues.GET("", deps.IssueHandler.List)
	issues.GET("/resolved", deps.IssueHandler.ListResolved)
	issues.GET("/export", deps.IssueHandler.Export)
	issues.GET("/lab/:labId", deps.IssueHandler.ListByLab)
	issues.GET("/:id", deps.IssueHandler.Get)
	issues.POST("", audit(models.AuditActionIssueReport, "issue"), deps.IssueHandler.Report)
	issues.PATCH("/:id/resolve", audit(models.AuditActionIssueResolve, "issue"), deps.IssueHandler.Resolve)
	issues.DELETE("/:id", audit(models.AuditActionIssueDelete, "issue"), deps.IssueHandler.Delete)

	return r
}
