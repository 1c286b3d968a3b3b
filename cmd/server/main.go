package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/feedora/backend/internal/config"
	"github.com/feedora/backend/internal/container"
	"github.com/feedora/backend/internal/database"
	"github.com/feedora/backend/internal/logger"
	"github.com/feedora/backend/internal/middleware"
	"github.com/feedora/backend/internal/storage"
	"github.com/feedora/backend/internal/telemetry"
	"github.com/feedora/backend/internal/validation"
	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const serviceName = "feedora-backend"

func main() {
	// Load environment variables; a missing .env is fine outside development.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using process environment")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	if err := logger.Initialize(cfg.LogLevel, cfg.LogFile); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Close()

	ctx := context.Background()

	tp, err := telemetry.InitTracer(ctx, telemetry.Config{
		ServiceName:  serviceName,
		Environment:  cfg.Environment,
		OTLPEndpoint: cfg.OTelEndpoint,
		Enabled:      cfg.OTelEnabled,
		SamplingRate: cfg.OTelSamplingRate,
	})
	if err != nil {
		logger.WarnWithFields("Tracing disabled", err)
	}

	if err := validation.NewServiceValidator(cfg).ValidateServices(ctx); err != nil {
		logger.Log.Fatal("Required service check failed", zap.Error(err))
	}

	if err := database.Initialize(cfg); err != nil {
		logger.Log.Fatal("Failed to connect to database", zap.Error(err))
	}
	if err := database.Migrate(database.DB); err != nil {
		logger.Log.Fatal("Failed to run migrations", zap.Error(err))
	}

	app, err := container.Build(ctx, cfg, database.DB)
	if err != nil {
		logger.Log.Fatal("Failed to build services", zap.Error(err))
	}
	if err := app.Validate(); err != nil {
		logger.Log.Fatal("Service graph incomplete", zap.Error(err))
	}
	app.OnCleanup(func(context.Context) error { return database.Close() })
	if tp != nil {
		app.OnCleanup(tp.Shutdown)
	}

	app.StoryCleanup().Start(ctx)
	app.OnCleanup(func(context.Context) error {
		app.StoryCleanup().Stop()
		return nil
	})

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.GinLoggerMiddleware())
	r.Use(gin.Recovery())
	r.Use(middleware.MetricsMiddleware())
	r.Use(middleware.TracingMiddleware(serviceName)...)
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	r.GET("/health", func(c *gin.Context) {
		hctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := database.Health(hctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "database": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": serviceName})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if local, ok := app.Media().(*storage.LocalStore); ok {
		r.Static(cfg.MediaBaseURL, local.Dir())
	}

	api := r.Group("/api/v1")
	api.Use(middleware.RateLimit(app.Cache(), middleware.DefaultRateLimitConfig(cfg.RateLimitRequests, cfg.RateLimitWindow)))
	h := app.Handlers()
	h.RegisterRoutes(api,
		middleware.RequireAuth(app.Auth()),
		middleware.OptionalAuth(app.Auth()),
		middleware.RateLimit(app.Cache(), middleware.AuthRateLimitConfig()),
	)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Log.Info("Feedora backend starting", zap.String("port", cfg.Port), zap.String("environment", cfg.Environment))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server...")

	// Give outstanding requests 30 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := app.Cleanup(shutdownCtx); err != nil {
		logger.Log.Warn("Cleanup finished with errors", zap.Error(err))
	}

	logger.Log.Info("Server exited")
}
