package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/andile-m/brightclass-api/api/swagger"
	"github.com/andile-m/brightclass-api/internal/handler"
	"github.com/andile-m/brightclass-api/internal/middleware"
	"github.com/andile-m/brightclass-api/internal/models"
	"github.com/andile-m/brightclass-api/internal/repository"
	"github.com/andile-m/brightclass-api/internal/service"
	"github.com/andile-m/brightclass-api/pkg/cache"
	"github.com/andile-m/brightclass-api/pkg/config"
	"github.com/andile-m/brightclass-api/pkg/database"
	"github.com/andile-m/brightclass-api/pkg/jobs"
	"github.com/andile-m/brightclass-api/pkg/logger"
	corsmiddleware "github.com/andile-m/brightclass-api/pkg/middleware/cors"
	reqidmiddleware "github.com/andile-m/brightclass-api/pkg/middleware/requestid"
)

// @title BrightClass API
// @version 1.0.0
// @description Live class scheduling and access control service
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
	defer db.Close()

	metricsSvc := service.NewMetricsService()

	var cacheSvc *service.CacheService
	if cfg.Cache.Enabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Fatalw("failed to connect to redis", "error", err)
		}
		cacheRepo := repository.NewCacheRepository(redisClient, logr)
		defer cacheRepo.Close()
		cacheSvc = service.NewCacheService(cacheRepo, metricsSvc, cfg.Cache.TTL, logr, true)
	}

	userRepo := repository.NewUserRepository(db)
	liveClassRepo := repository.NewLiveClassRepository(db)

	authSvc := service.NewAuthService(userRepo, nil, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
	})
	liveClassSvc := service.NewLiveClassService(liveClassRepo, cacheSvc, metricsSvc, nil, logr)

	authHandler := handler.NewAuthHandler(authSvc)
	liveClassHandler := handler.NewLiveClassHandler(liveClassSvc)

	runner := jobs.NewRunner(logr)
	runner.Register(jobs.Task{
		Name:  "purge-expired-refresh-tokens",
		Every: time.Hour,
		Run: func(ctx context.Context) error {
			count, err := userRepo.DeleteExpiredRefreshTokens(ctx, time.Now().UTC())
			if err != nil {
				return err
			}
			if count > 0 {
				logr.Sugar().Infow("purged expired refresh tokens", "count", count)
			}
			return nil
		},
	})
	runner.Start(context.Background())
	defer runner.Stop()

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/logout", middleware.JWT(authSvc), authHandler.Logout)
		auth.GET("/me", middleware.JWT(authSvc), authHandler.Me)
	}

	liveClass := api.Group("/live-class", middleware.JWT(authSvc))
	{
		instructorOnly := middleware.RequireRoles(models.RoleInstructor, models.RoleAdmin)

		liveClass.POST("/create", instructorOnly, liveClassHandler.Create)
		liveClass.GET("/upcoming", liveClassHandler.Upcoming)
		liveClass.GET("/teacher", instructorOnly, liveClassHandler.TeacherClasses)
		liveClass.GET("/join", liveClassHandler.Join)
		liveClass.PUT("/update", instructorOnly, liveClassHandler.Update)
		liveClass.DELETE("/delete", instructorOnly, liveClassHandler.Delete)
		liveClass.GET("/export", instructorOnly, liveClassHandler.Export)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
