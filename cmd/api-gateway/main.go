package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/grid-mediation-api/api/swagger"
	"github.com/noah-isme/grid-mediation-api/internal/handler"
	"github.com/noah-isme/grid-mediation-api/internal/middleware"
	"github.com/noah-isme/grid-mediation-api/internal/models"
	"github.com/noah-isme/grid-mediation-api/internal/repository"
	"github.com/noah-isme/grid-mediation-api/internal/service"
	"github.com/noah-isme/grid-mediation-api/pkg/cache"
	"github.com/noah-isme/grid-mediation-api/pkg/config"
	"github.com/noah-isme/grid-mediation-api/pkg/database"
	"github.com/noah-isme/grid-mediation-api/pkg/export"
	"github.com/noah-isme/grid-mediation-api/pkg/geocode"
	"github.com/noah-isme/grid-mediation-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/grid-mediation-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/grid-mediation-api/pkg/middleware/requestid"
	"github.com/noah-isme/grid-mediation-api/pkg/storage"
)

// @title Grid Mediation API
// @version 1.0.0
// @description Grid-based judicial mediation case management backend
// @BasePath /api/v1
// @schemes http

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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, statistics caching disabled", "error", err)
		redisClient = nil
	}

	store, err := storage.NewLocalStorage(cfg.Uploads.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to prepare upload storage", "error", err)
	}

	signingSecret := cfg.Uploads.URLSigningSecret
	if signingSecret == "" {
		signingSecret = cfg.JWT.Secret
	}
	signer := storage.NewSignedURLSigner(signingSecret, cfg.Uploads.SignedURLTTL)

	// Repositories.
	userRepo := repository.NewUserRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	typeRepo := repository.NewTaskTypeRepository(db)
	gridRepo := repository.NewGridRepository(db)
	attachmentRepo := repository.NewAttachmentRepository(db)
	performanceRepo := repository.NewPerformanceRepository(db)
	articleRepo := repository.NewArticleRepository(db)
	statsRepo := repository.NewStatisticsRepository(db)

	// Services.
	metricsSvc := service.NewMetricsService()

	var cacheSvc *service.CacheService
	if redisClient != nil {
		cacheRepo := repository.NewCacheRepository(redisClient, logr)
		cacheSvc = service.NewCacheService(cacheRepo, metricsSvc, cfg.Statistics.CacheTTL, logr, true)
	} else {
		cacheSvc = service.NewCacheService(nil, metricsSvc, cfg.Statistics.CacheTTL, logr, false)
	}

	geocoder := geocode.New(cfg.Geocoding.BaseURL, cfg.Geocoding.APIKey, &http.Client{Timeout: cfg.Geocoding.Timeout})

	authSvc := service.NewAuthService(userRepo, nil, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "grid-mediation-api",
	})
	userSvc := service.NewUserService(userRepo, gridRepo, nil, logr)
	codes := service.NewTaskCodeGenerator(taskRepo)
	taskSvc := service.NewTaskService(taskRepo, typeRepo, userRepo, attachmentRepo, codes, geocoder, nil, logr, cfg.TaskCodes.MaxRetries)
	typeSvc := service.NewTaskTypeService(typeRepo, nil, logr)
	gridSvc := service.NewGridService(gridRepo, userRepo, taskRepo, statsRepo, nil, logr)
	attachmentSvc := service.NewAttachmentService(attachmentRepo, store, signer, logr, service.AttachmentConfig{
		MaxFileSizeBytes: cfg.Uploads.MaxFileSizeBytes,
		AllowedMIMEs:     cfg.Uploads.AllowedMIMEs,
	})
	performanceSvc := service.NewPerformanceService(performanceRepo, userRepo, nil, logr)
	statsSvc := service.NewStatisticsService(statsRepo, cacheSvc, export.NewCSVExporter(), export.NewPDFExporter(), logr, cfg.Statistics.CacheTTL)
	articleSvc := service.NewArticleService(articleRepo, nil, logr)

	// Handlers.
	authHandler := handler.NewAuthHandler(authSvc, userSvc)
	userHandler := handler.NewUserHandler(userSvc)
	taskHandler := handler.NewTaskHandler(taskSvc)
	typeHandler := handler.NewTaskTypeHandler(typeSvc)
	gridHandler := handler.NewGridHandler(gridSvc)
	attachmentHandler := handler.NewAttachmentHandler(attachmentSvc)
	performanceHandler := handler.NewPerformanceHandler(performanceSvc)
	statsHandler := handler.NewStatisticsHandler(statsSvc)
	articleHandler := handler.NewArticleHandler(articleSvc)
	geoHandler := handler.NewGeoHandler(geocoder)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)
	r.GET("/files/:token", attachmentHandler.DownloadSigned)
	r.Static("/uploads", cfg.Uploads.StorageDir)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	registerRoutes(r, cfg, authSvc, userSvc, userRepo,
		authHandler, userHandler, taskHandler, typeHandler, gridHandler,
		attachmentHandler, performanceHandler, statsHandler, articleHandler, geoHandler)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}

func registerRoutes(
	r *gin.Engine,
	cfg *config.Config,
	authSvc *service.AuthService,
	userSvc *service.UserService,
	userRepo *repository.UserRepository,
	authHandler *handler.AuthHandler,
	userHandler *handler.UserHandler,
	taskHandler *handler.TaskHandler,
	typeHandler *handler.TaskTypeHandler,
	gridHandler *handler.GridHandler,
	attachmentHandler *handler.AttachmentHandler,
	performanceHandler *handler.PerformanceHandler,
	statsHandler *handler.StatisticsHandler,
	articleHandler *handler.ArticleHandler,
	geoHandler *handler.GeoHandler,
) {
	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)

		authed := auth.Group("", middleware.JWT(authSvc))
		authed.POST("/logout", authHandler.Logout)
		authed.POST("/change-password", authHandler.ChangePassword)
		authed.GET("/me", authHandler.Me)
	}

	users := api.Group("/users", middleware.JWT(authSvc))
	{
		users.PUT("/me", userHandler.UpdateProfile)

		admin := users.Group("", middleware.RequireRoles(models.RoleAdmin))
		admin.GET("", userHandler.List)
		admin.POST("", middleware.Audit(userRepo, models.AuditActionUserCreate, "users"), userHandler.Create)
		admin.GET("/:id", userHandler.Get)
		admin.PUT("/:id", middleware.Audit(userRepo, models.AuditActionUserUpdate, "users"), userHandler.Update)
		admin.DELETE("/:id", middleware.Audit(userRepo, models.AuditActionUserDeactivate, "users"), userHandler.Delete)
		admin.POST("/:id/reset-password", middleware.Audit(userRepo, models.AuditActionPasswordReset, "users"), userHandler.ResetPassword)
	}

	tasks := api.Group("/tasks", middleware.JWT(authSvc))
	{
		tasks.POST("", taskHandler.Create)
		tasks.GET("", taskHandler.List)
		tasks.GET("/my-reports", taskHandler.MyReports)
		tasks.GET("/my-assignments", taskHandler.MyAssignments)
		tasks.GET("/my-history", taskHandler.MyHistory)
		tasks.POST("/archive", middleware.RequireRoles(models.RoleAdmin), taskHandler.Archive)
		tasks.GET("/:id", taskHandler.Get)
		tasks.PUT("/:id", taskHandler.Update)
		tasks.POST("/:id/assign", taskHandler.Assign)
		tasks.POST("/:id/process", taskHandler.Process)
		tasks.POST("/:id/complete", taskHandler.Complete)
	}

	taskTypes := api.Group("/task-types", middleware.JWT(authSvc))
	{
		taskTypes.GET("", typeHandler.List)
		taskTypes.POST("", middleware.RequireRoles(models.RoleAdmin), typeHandler.Create)
		taskTypes.PUT("/:id", middleware.RequireRoles(models.RoleAdmin), typeHandler.Update)
	}

	grids := api.Group("/grids", middleware.JWT(authSvc))
	{
		grids.GET("", gridHandler.List)
		grids.GET("/map", gridHandler.MapData)
		grids.GET("/:id", gridHandler.Get)
		grids.GET("/:id/mediators", gridHandler.ListMediators)
		grids.GET("/:id/statistics", gridHandler.Statistics)

		admin := grids.Group("", middleware.RequireRoles(models.RoleAdmin))
		admin.POST("", middleware.Audit(userRepo, models.AuditActionGridCreate, "grids"), gridHandler.Create)
		admin.PUT("/:id", middleware.Audit(userRepo, models.AuditActionGridUpdate, "grids"), gridHandler.Update)
		admin.DELETE("/:id", middleware.Audit(userRepo, models.AuditActionGridDeactivate, "grids"), gridHandler.Delete)
		admin.PUT("/:id/manager", middleware.Audit(userRepo, models.AuditActionGridManager, "grids"), gridHandler.SetManager)
		admin.POST("/:id/mediators", middleware.Audit(userRepo, models.AuditActionGridRoster, "grids"), gridHandler.AddMediator)
		admin.DELETE("/:id/mediators/:mediatorId", middleware.Audit(userRepo, models.AuditActionGridRoster, "grids"), gridHandler.RemoveMediator)
	}

	mapGroup := api.Group("/map", middleware.JWT(authSvc))
	{
		mapGroup.GET("/reverse-geocode", geoHandler.Reverse)
	}

	attachments := api.Group("/attachments", middleware.JWT(authSvc))
	{
		attachments.POST("", attachmentHandler.Upload)
		attachments.GET("/:id/download", attachmentHandler.Download)
		attachments.GET("/:id/url", attachmentHandler.SignedURL)
		attachments.DELETE("/:id", middleware.LoadAccount(userSvc), attachmentHandler.Delete)
	}

	performance := api.Group("/performance", middleware.JWT(authSvc), middleware.LoadAccount(userSvc))
	{
		performance.POST("/scores", performanceHandler.Score)
		performance.GET("/scores", performanceHandler.List)
		performance.GET("/mediators/:id", performanceHandler.History)
	}

	statistics := api.Group("/statistics", middleware.JWT(authSvc), middleware.LoadAccount(userSvc))
	{
		statistics.GET("/overview", statsHandler.Overview)
		statistics.GET("/monthly", statsHandler.Monthly)
		statistics.GET("/monthly/export", statsHandler.Export)
	}

	articles := api.Group("/articles", middleware.JWT(authSvc), middleware.LoadAccount(userSvc))
	{
		articles.GET("", articleHandler.List)
		articles.GET("/:id", articleHandler.Get)

		managed := articles.Group("", middleware.RequireRoles(models.RoleAdmin, models.RoleGridManager))
		managed.POST("", articleHandler.Create)
		managed.PUT("/:id", articleHandler.Update)
		managed.POST("/:id/publish", articleHandler.Publish)
		managed.POST("/:id/archive", articleHandler.Archive)
		managed.DELETE("/:id", articleHandler.Delete)
	}
}
