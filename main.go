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

	"github.com/LastCoderBoy/finice-auth/internal/cache"
	"github.com/LastCoderBoy/finice-auth/internal/handler"
	"github.com/LastCoderBoy/finice-auth/internal/middleware"
	"github.com/LastCoderBoy/finice-auth/internal/repository"
	"github.com/LastCoderBoy/finice-auth/internal/service"
	"github.com/LastCoderBoy/finice-auth/internal/token"
	"github.com/LastCoderBoy/finice-auth/internal/worker"
	"github.com/LastCoderBoy/finice-auth/pkg/config"
	"github.com/LastCoderBoy/finice-auth/pkg/database"
	"github.com/LastCoderBoy/finice-auth/pkg/logger"
	"github.com/LastCoderBoy/finice-auth/pkg/redis"
	"github.com/LastCoderBoy/finice-auth/pkg/telemetry"
)

const serviceName = "finice-auth"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logCfg := &logger.Config{
		Level:       cfg.App.LogLevel,
		ServiceName: serviceName,
		Development: cfg.IsDevelopment(),
	}
	if err := logger.Init(logCfg); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	appLog := logger.Get()
	appLog.Info("Starting auth service...")

	ctx := context.Background()

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
	defer telemetry.Shutdown(ctx)

	// Initialize database connection
	dbCfg := &database.PostgresConfig{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		Database:        cfg.Database.DBName,
		SSLMode:         cfg.Database.SSLMode,
		MaxConns:        int32(cfg.Database.MaxOpenConns),
		MinConns:        int32(cfg.Database.MaxIdleConns),
		MaxConnLifetime: cfg.Database.ConnMaxLifetime,
		MaxConnIdleTime: cfg.Database.ConnMaxIdleTime,
		ConnectTimeout:  5 * time.Second,
		MaxRetries:      3,
		RetryInterval:   time.Second,
		EnableTracing:   cfg.OTel.Enabled,
	}
	db, err := database.NewPostgres(ctx, dbCfg)
	if err != nil {
		appLog.Fatal(fmt.Sprintf("Database connection failed: %v", err))
	}
	defer db.Close()
	appLog.Info(fmt.Sprintf("Database connected (pool: min=%d, max=%d)", dbCfg.MinConns, dbCfg.MaxConns))

	// Initialize Redis for the revocation cache
	redisClient, err := redis.NewClient(ctx, &redis.Config{
		Host:          cfg.Redis.Host,
		Port:          cfg.Redis.Port,
		Password:      cfg.Redis.Password,
		DB:            cfg.Redis.DB,
		PoolSize:      cfg.Redis.PoolSize,
		MinIdleConns:  cfg.Redis.MinIdleConns,
		DialTimeout:   cfg.Redis.DialTimeout,
		ReadTimeout:   cfg.Redis.ReadTimeout,
		WriteTimeout:  cfg.Redis.WriteTimeout,
		MaxRetries:    3,
		RetryInterval: time.Second,
	})
	if err != nil {
		appLog.Fatal(fmt.Sprintf("Redis connection failed: %v", err))
	}
	defer redisClient.Close()

	// JWT secret must come from the environment outside development
	jwtSecret := cfg.JWT.Secret
	if jwtSecret == "" {
		jwtSecret = os.Getenv("JWT_SECRET")
	}
	if jwtSecret == "" {
		if cfg.IsDevelopment() {
			jwtSecret = "dev-only-secret-key-do-not-use-in-production"
			appLog.Warn("JWT_SECRET not set, using dev-only default (NEVER use in production)")
		} else {
			appLog.Fatal("JWT_SECRET is required in production")
		}
	}

	// Repositories
	userRepo := repository.NewPostgresUserRepository(db.Pool())
	refreshRepo := repository.NewPostgresRefreshTokenRepository(db.Pool())
	emailTokenRepo := repository.NewPostgresEmailTokenRepository(db.Pool())

	// Background task pool for revocation and email dispatch
	pool := worker.NewPool(&worker.Config{
		Workers:   cfg.Worker.Workers,
		QueueSize: cfg.Worker.QueueSize,
	})
	if err := pool.Start(); err != nil {
		appLog.Fatal(fmt.Sprintf("Failed to start worker pool: %v", err))
	}
	defer pool.Stop()

	// Outbound email
	var sender service.Sender
	if cfg.Email.Enabled {
		sender = service.NewSMTPSender(&service.SMTPConfig{
			Host:     cfg.Email.SMTPHost,
			Port:     cfg.Email.SMTPPort,
			User:     cfg.Email.SMTPUser,
			Password: cfg.Email.SMTPPassword,
			From:     cfg.Email.From,
		})
	} else {
		sender = service.NewNoopSender()
	}
	emailService := service.NewEmailService(sender, &service.EmailConfig{
		VerificationURL: cfg.Email.VerificationURL,
		ResetURL:        cfg.Email.ResetURL,
	})

	// Services
	codec := token.NewCodec(&token.Config{
		Secret: jwtSecret,
		TTL:    cfg.JWT.AccessTokenTTL,
		Issuer: cfg.JWT.Issuer,
	})
	blacklist := cache.NewRevocationCache(redisClient)
	authService := service.NewAuthService(
		userRepo,
		service.NewRefreshTokenService(refreshRepo, cfg.Auth.RefreshTokenTTL),
		service.NewEmailTokenService(emailTokenRepo, &service.EmailTokenConfig{
			VerificationTTL:  cfg.Auth.VerificationTokenTTL,
			PasswordResetTTL: cfg.Auth.PasswordResetTokenTTL,
		}),
		emailService,
		codec,
		blacklist,
		pool,
		&service.AuthServiceConfig{
			LockoutThreshold: cfg.Auth.LockoutThreshold,
			LockoutDuration:  cfg.Auth.LockoutDuration,
			BcryptCost:       cfg.Auth.BcryptCost,
		},
	)

	// Handlers
	authHandler := handler.NewAuthHandler(authService, cfg.Auth.RefreshTokenTTL, cfg.IsProduction())
	emailHandler := handler.NewEmailHandler(authService)
	healthHandler := handler.NewHealthHandler(db, redisClient)

	// Setup Gin
	if cfg.IsDevelopment() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	if cfg.OTel.Enabled {
		router.Use(telemetry.TracingMiddleware(serviceName))
	}

	// Health check endpoints
	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)

	// API routes
	v1 := router.Group("/api/v1")
	{
		auth := v1.Group("/auth")
		{
			// Public endpoints
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.POST("/refresh-token", authHandler.Refresh)
			auth.POST("/logout", authHandler.Logout)
			auth.GET("/verify-email", emailHandler.VerifyEmail)
			auth.POST("/resend-verification", emailHandler.ResendVerification)
			auth.POST("/forgot-password", emailHandler.ForgotPassword)
			auth.POST("/reset-password", emailHandler.ResetPassword)

			// Protected endpoints (require authentication)
			protected := auth.Group("")
			protected.Use(middleware.RequireAuth(authService))
			{
				protected.GET("/profile", authHandler.Profile)
				protected.PATCH("/update", authHandler.Update)
				protected.POST("/change-password", authHandler.ChangePassword)
			}
		}
	}

	// Create HTTP server
	port := cfg.Server.Port
	if port == 0 {
		port = 8080
	}
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, port)
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
		appLog.Info(fmt.Sprintf("Auth service listening on %s", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLog.Fatal(fmt.Sprintf("Failed to start server: %v", err))
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLog.Info("Shutting down server...")

	// Give outstanding requests 30 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLog.Fatal(fmt.Sprintf("Server forced to shutdown: %v", err))
	}

	appLog.Info("Server exited gracefully")
}
