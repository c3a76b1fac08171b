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

	"github.com/gin-gonic/gin"

	"github.com/anasy333/krishisat-gateway/internal/di"
	"github.com/anasy333/krishisat-gateway/internal/guard"
	"github.com/anasy333/krishisat-gateway/internal/middleware"
	"github.com/anasy333/krishisat-gateway/internal/session"
	"github.com/anasy333/krishisat-gateway/pkg/config"
	"github.com/anasy333/krishisat-gateway/pkg/database"
	"github.com/anasy333/krishisat-gateway/pkg/logger"
	"github.com/anasy333/krishisat-gateway/pkg/redis"
	"github.com/anasy333/krishisat-gateway/pkg/telemetry"
)

const serviceName = "krishisat-gateway"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logCfg := &logger.Config{
		Level:       cfg.Log.Level,
		ServiceName: serviceName,
		Development: cfg.IsDevelopment(),
	}
	if err := logger.Init(logCfg); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	appLog := logger.Get()
	appLog.Info("Starting KrishiSat Gateway...")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize OpenTelemetry
	telemetryCfg := &telemetry.Config{
		Enabled:        cfg.OTel.Enabled,
		ServiceName:    serviceName,
		ServiceVersion: cfg.App.Version,
		Environment:    cfg.App.Environment,
		CollectorAddr:  cfg.OTel.CollectorAddr,
	}
	if _, err := telemetry.Init(ctx, telemetryCfg); err != nil {
		appLog.Warn(fmt.Sprintf("Failed to initialize telemetry: %v", err))
	} else if telemetryCfg.Enabled {
		appLog.Info(fmt.Sprintf("Telemetry initialized (collector: %s)", telemetryCfg.CollectorAddr))
	}
	defer telemetry.Shutdown(context.Background())

	// Connect the infrastructure the configured session backend needs.
	// Redis is also connected for the submit lock whenever configured.
	var redisClient *redis.Client
	if cfg.Session.Backend == config.BackendRedis {
		redisCfg := redis.DefaultConfig()
		redisCfg.Host = cfg.Redis.Host
		redisCfg.Port = cfg.Redis.Port
		redisCfg.Password = cfg.Redis.Password
		redisCfg.DB = cfg.Redis.DB
		if cfg.Redis.PoolSize > 0 {
			redisCfg.PoolSize = cfg.Redis.PoolSize
		}
		redisClient, err = redis.NewClient(ctx, redisCfg)
		if err != nil {
			appLog.Fatal(fmt.Sprintf("Redis connection failed: %v", err))
		}
		appLog.Info(fmt.Sprintf("Redis connected (%s)", redisCfg.Addr()))
	}

	var db *database.PostgresDB
	if cfg.Session.Backend == config.BackendPostgres {
		dbCfg := database.DefaultPostgresConfig()
		dbCfg.Host = cfg.SessionDatabase.Host
		dbCfg.Port = cfg.SessionDatabase.Port
		dbCfg.User = cfg.SessionDatabase.User
		dbCfg.Password = cfg.SessionDatabase.Password
		dbCfg.Database = cfg.SessionDatabase.DBName
		dbCfg.SSLMode = cfg.SessionDatabase.SSLMode
		dbCfg.EnableTracing = cfg.OTel.Enabled
		db, err = database.NewPostgres(ctx, dbCfg)
		if err != nil {
			appLog.Fatal(fmt.Sprintf("Database connection failed: %v", err))
		}
		appLog.Info(fmt.Sprintf("Session database connected (pool: min=%d, max=%d)", dbCfg.MinConns, dbCfg.MaxConns))
	}

	// Build dependency injection container
	container, err := di.NewContainer(ctx, &di.ContainerConfig{
		Config: cfg,
		DB:     db,
		Redis:  redisClient,
	})
	if err != nil {
		appLog.Fatal(fmt.Sprintf("Failed to build container: %v", err))
	}
	defer container.Close()

	if cfg.Upstream.MockAuth {
		appLog.Warn("Mock auth gateway enabled; OTP codes are delivered through the log")
	}

	// Background pruning of stale login attempts
	go container.Flow.Run(ctx)

	// Expired rows are filtered on read; purge them periodically so the
	// table does not grow unbounded
	if pgBox, ok := container.Box.(*session.PostgresBox); ok {
		go func() {
			ticker := time.NewTicker(time.Hour)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					if err := pgBox.PurgeExpired(ctx); err != nil {
						appLog.Warn(fmt.Sprintf("Session purge failed: %v", err))
					}
				}
			}
		}()
	}

	// Setup Gin
	if cfg.IsDevelopment() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.CORS(cfg.Server.AllowedOrigin))
	router.Use(middleware.RequestLogger())
	if cfg.OTel.Enabled {
		router.Use(telemetry.TracingMiddleware(serviceName))
	}
	router.Use(middleware.SessionMiddleware(container.Store, cfg.Session.CookieName, cfg.Session.CookieSecure))
	router.Use(middleware.UnauthorizedSweep(container.Store, container.Publisher, cfg.Session.CookieName, cfg.Session.CookieSecure))
	router.Use(middleware.GuardMiddleware(guard.DefaultTable()))

	// Health check endpoints
	router.GET("/health", container.HealthHandler.Health)
	router.GET("/ready", container.HealthHandler.Ready)

	// Public marketing content
	content := router.Group("/api/content")
	{
		content.GET("/landing", container.ContentHandler.Landing)
		content.GET("/testimonials", container.ContentHandler.Testimonials)
		content.GET("/faqs", container.ContentHandler.FAQs)
		content.GET("/careers", container.ContentHandler.Careers)
	}

	// Auth endpoints. OTP routes carry a per-IP rate limit and, when Redis
	// is available, a cross-instance duplicate submission lock.
	rl := middleware.NewRateLimiter(cfg.RateLimit.AuthRPS, cfg.RateLimit.AuthBurst)
	defer rl.Stop()

	auth := router.Group("/api/auth")
	{
		otp := auth.Group("")
		otp.Use(rl.Middleware())
		if redisClient != nil {
			otp.Use(middleware.SubmitLock(redisClient))
		}
		otp.POST("/send-otp", container.AuthHandler.SendOTP)
		otp.POST("/verify-otp", container.AuthHandler.VerifyOTP)

		auth.POST("/logout", container.AuthHandler.Logout)
		auth.GET("/me", container.AuthHandler.Me)
	}

	// Data pass-through endpoints; access is decided by the route guard
	api := router.Group("/api")
	{
		api.GET("/dashboard/farmer", container.DashboardHandler.FarmerDashboard)
		api.GET("/dashboard/staff", container.DashboardHandler.StaffOverview)
		api.GET("/dashboard/govt", container.DashboardHandler.GovtOverview)

		api.GET("/farms", container.DashboardHandler.Farms)
		api.POST("/farms", container.DashboardHandler.CreateFarm)
		api.GET("/farms/:id", container.DashboardHandler.FarmDetail)
		api.GET("/farms/:id/map", container.DashboardHandler.FarmMap)

		api.GET("/analysis/results", container.DashboardHandler.AnalysisResults)
		api.GET("/crops/dashboard", container.DashboardHandler.CropDashboard)
		api.GET("/reports/pdf", container.DashboardHandler.PDFReport)
		api.GET("/regional/summary", container.DashboardHandler.RegionalSummary)
	}

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		ReadHeaderTimeout: 2 * time.Second,
	}

	// Start server in goroutine
	go func() {
		appLog.Info(fmt.Sprintf("KrishiSat Gateway listening on %s (session backend: %s)", addr, cfg.Session.Backend))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLog.Fatal(fmt.Sprintf("Failed to start server: %v", err))
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLog.Info("Shutting down server...")
	cancel()

	// Give outstanding requests 30 seconds to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLog.Fatal(fmt.Sprintf("Server forced to shutdown: %v", err))
	}

	appLog.Info("Server exited gracefully")
}
