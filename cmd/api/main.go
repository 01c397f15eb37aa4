package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/GrowlyX/refactorproject-web/internal/config"
	"github.com/GrowlyX/refactorproject-web/internal/database"
	"github.com/GrowlyX/refactorproject-web/internal/handlers"
	"github.com/GrowlyX/refactorproject-web/internal/middleware"
	"github.com/GrowlyX/refactorproject-web/internal/services"
	"github.com/GrowlyX/refactorproject-web/pkg/utils"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	switch cfg.App.Env {
	case "production":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	err = utils.InitLogger(&utils.LogConfig{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	logger := utils.GetLogger()
	logger.Info("Starting refactor dashboard API", utils.LogFields{
		"environment": cfg.App.Env,
		"port":        cfg.App.Port,
	})

	db, err := database.Initialize(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", err)
	}

	if err := database.Migrate(db.DB()); err != nil {
		logger.Fatal("Failed to run migrations", err)
	}
	logger.Info("Database migrations completed")

	var redisClient database.RedisClient
	if cfg.Redis.URL != "" {
		redisClient, err = database.InitializeRedis(cfg.Redis)
		if err != nil {
			logger.Warn("Redis not available, continuing without token cache", utils.LogFields{
				"error": err.Error(),
			})
			redisClient = nil
		}
	}

	appService, err := services.NewGitHubAppService(cfg.GitHub)
	if err != nil {
		logger.Fatal("Failed to initialize GitHub App client", err)
	}

	githubService := services.NewGitHubService(appService)
	store := services.NewSyncStore(db)
	syncService := services.NewSyncService(store, appService, githubService, cfg.Sync)
	installationService := services.NewInstallationService(store, syncService)
	scheduler := services.NewSyncScheduler(syncService)
	jwtService := services.NewJWTService(cfg.Security)
	encryption := services.NewEncryptionService(cfg.Security.EncryptionKey)
	tokenManager := services.NewTokenManager(db, encryption, redisClient)
	workflowService := services.NewWorkflowService(db)

	if cfg.Sync.Enabled {
		scheduler.Start(cfg.Sync.IntervalMinutes)
	}

	router := setupRouter(cfg, routerDeps{
		health:        handlers.NewHealthHandler(db, scheduler, cfg.App.Env),
		webhooks:      handlers.NewWebhookHandler(installationService, appService.WebhookSecret()),
		github:        handlers.NewGitHubHandler(appService, store, syncService, tokenManager),
		sync:          handlers.NewSyncHandler(syncService, scheduler, cfg.Sync.IntervalMinutes),
		organizations: handlers.NewOrganizationHandler(store),
		workflows:     handlers.NewWorkflowHandler(workflowService),
		auth:          middleware.NewJWTMiddleware(jwtService),
	})

	srv := &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.App.Port),
		Handler:        router,
		ReadTimeout:    time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout:   time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:    time.Duration(cfg.Server.IdleTimeout) * time.Second,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	go func() {
		logger.Info("Server starting", utils.LogFields{"addr": srv.Addr})
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server")

	scheduler.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", err)
	}

	if err := db.Close(); err != nil {
		logger.Error("Failed to close database", err)
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logger.Error("Failed to close redis", err)
		}
	}

	logger.Info("Server stopped")
}

type routerDeps struct {
	health        *handlers.HealthHandler
	webhooks      *handlers.WebhookHandler
	github        *handlers.GitHubHandler
	sync          *handlers.SyncHandler
	organizations *handlers.OrganizationHandler
	workflows     *handlers.WorkflowHandler
	auth          *middleware.JWTMiddleware
}

func setupRouter(cfg *config.Config, deps routerDeps) *gin.Engine {
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger(utils.Raw()))
	router.Use(cors.New(corsConfig(cfg)))
	router.Use(func(c *gin.Context) {
		utils.SetSecurityHeaders(c)
		c.Next()
	})

	router.GET("/health", deps.health.Health)
	router.GET("/health/ready", deps.health.Readiness)
	router.GET("/health/live", deps.health.Liveness)

	api := router.Group("/api")
	api.Use(middleware.RateLimitMiddleware(cfg.RateLimit))

	// Webhooks authenticate by HMAC signature, not JWT.
	api.POST("/webhooks/github", deps.webhooks.Handle)

	gh := api.Group("/github")
	{
		gh.GET("/install-url", deps.auth.AuthRequired(), deps.github.InstallURL)
		gh.GET("/oauth/start", deps.auth.AuthRequired(), deps.github.OAuthStart)
		gh.GET("/oauth/callback", deps.auth.AuthRequired(), deps.github.OAuthCallback)
		gh.GET("/installations/pending", deps.auth.AuthRequired(), deps.github.PendingInstallations)
		gh.GET("/token", deps.auth.AuthRequired(), deps.github.TokenStatus)
		gh.DELETE("/token", deps.auth.AuthRequired(), deps.github.UnlinkToken)
	}

	sync := api.Group("/sync")
	sync.Use(deps.auth.AuthRequired())
	{
		sync.POST("/installations/:installationId", deps.sync.SyncInstallation)
		sync.POST("/all", deps.sync.SyncAll)
		sync.GET("/scheduler", deps.sync.SchedulerStatus)
		sync.POST("/scheduler/start", deps.sync.SchedulerStart)
		sync.POST("/scheduler/stop", deps.sync.SchedulerStop)
	}

	orgs := api.Group("/organizations")
	orgs.Use(deps.auth.AuthRequired())
	{
		orgs.GET("", deps.organizations.List)
		orgs.GET("/check", deps.organizations.CheckByName)
		orgs.GET("/:id", deps.organizations.Get)
		orgs.GET("/:id/projects", deps.organizations.Projects)
		orgs.POST("/:id/sync", deps.sync.SyncOrganization)
		orgs.POST("/:id/sync/members", deps.sync.SyncOrganizationMembers)
		orgs.GET("/:id/sync-logs", deps.sync.SyncLogs)
		orgs.POST("/:id/installation-token", deps.sync.InstallationToken)
		orgs.DELETE("/:id/installation", deps.sync.Uninstall)
	}

	workflows := api.Group("/workflows")
	workflows.Use(deps.auth.AuthRequired())
	{
		workflows.POST("", deps.workflows.Create)
		workflows.GET("", deps.workflows.List)
		workflows.GET("/:id", deps.workflows.Get)
		workflows.POST("/:id/transition", deps.workflows.Transition)
	}

	return router
}

func corsConfig(cfg *config.Config) cors.Config {
	corsCfg := cors.DefaultConfig()

	if len(cfg.CORS.AllowedOrigins) > 0 {
		corsCfg.AllowOrigins = cfg.CORS.AllowedOrigins
	} else {
		corsCfg.AllowAllOrigins = true
	}
	if len(cfg.CORS.AllowedMethods) > 0 {
		corsCfg.AllowMethods = cfg.CORS.AllowedMethods
	}
	if len(cfg.CORS.AllowedHeaders) > 0 {
		corsCfg.AllowHeaders = cfg.CORS.AllowedHeaders
	} else {
		corsCfg.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	}
	corsCfg.ExposeHeaders = cfg.CORS.ExposeHeaders
	corsCfg.AllowCredentials = cfg.CORS.AllowCredentials
	corsCfg.MaxAge = time.Duration(cfg.CORS.MaxAge) * time.Second

	return corsCfg
}
