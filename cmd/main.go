package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	configs "github.com/altostack/contactvault/config"
	"github.com/altostack/contactvault/internal/constants"
	"github.com/altostack/contactvault/internal/handler"
	"github.com/altostack/contactvault/internal/middleware"
	"github.com/altostack/contactvault/internal/repository"
	"github.com/altostack/contactvault/internal/router"
	"github.com/altostack/contactvault/internal/service"
	"github.com/altostack/contactvault/pkg/database"
	"github.com/altostack/contactvault/pkg/logger"
	"github.com/altostack/contactvault/pkg/redis"
	"go.uber.org/zap"
)

func main() {
	config, err := configs.LoadConfig()
	if err != nil {
		panic("Failed to load config: " + err.Error())
	}

	// Initialize Zap logger
	if err := logger.InitLogger(config); err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer logger.Sync()

	logger.GetLogger().Info("Application starting",
		zap.String("app_name", config.App.Name),
		zap.String("environment", config.App.Environment),
		zap.String("version", constants.AppVersion),
	)

	// Initialize database
	db, err := database.NewPostgresDB(database.Config{
		Host:            config.Database.Host,
		Port:            config.Database.Port,
		User:            config.Database.User,
		Password:        config.Database.Password,
		Database:        config.Database.Name,
		SSLMode:         config.Database.SSLMode,
		MaxIdleConns:    config.Database.MaxIdleConns,
		MaxOpenConns:    config.Database.MaxOpenConns,
		ConnMaxLifetime: int(config.Database.ConnMaxLifetime.Minutes()),
		ConnMaxIdleTime: int(config.Database.ConnMaxIdleTime.Minutes()),
	})
	if err != nil {
		logger.GetLogger().Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.CloseDB(db)

	// Run auto migrations
	if err := database.AutoMigrate(db); err != nil {
		logger.GetLogger().Fatal("Failed to run database migrations", zap.Error(err))
	}
	logger.GetLogger().Info("Database migrated successfully")

	// Repositories
	userRepo := repository.NewUserRepository(db)
	contactRepo := repository.NewContactRepository(db)

	// Redis client backs the shared revocation set when enabled
	redisClient := redis.NewClient(redis.Config{
		Host:         config.Redis.Host,
		Port:         config.Redis.Port,
		Password:     config.Redis.Password,
		DB:           config.Redis.Database,
		Enabled:      config.Redis.Enabled,
		PoolSize:     config.Redis.PoolSize,
		MinIdleConns: config.Redis.MinIdleConns,
		DialTimeout:  config.Redis.DialTimeout,
		ReadTimeout:  config.Redis.ReadTimeout,
		WriteTimeout: config.Redis.WriteTimeout,
	}, logger.GetLogger())
	defer redisClient.Close()

	// Services
	jwtService := service.NewJWTService(config.JWT.Secret, config.JWT.AccessDuration, config.JWT.RefreshDuration)

	var revocation service.RevocationStore
	if redisClient.IsEnabled() {
		revocation = service.NewRedisRevocationStore(redisClient, jwtService)
		logger.GetLogger().Info("Using Redis-backed token revocation store")
	} else {
		revocation = service.NewMemoryRevocationStore(jwtService, config.JWT.SweepInterval)
		logger.GetLogger().Info("Using in-memory token revocation store",
			zap.Duration("sweep_interval", config.JWT.SweepInterval),
		)
	}
	defer revocation.Close()

	var mailer service.Mailer
	if config.SMTP.Enabled {
		mailer = service.NewSMTPMailer(config.SMTP, config.App.BaseURL)
	} else {
		mailer = service.NewLogMailer()
	}

	userService := service.NewUserService(userRepo, jwtService, revocation, mailer)
	contactService := service.NewContactService(contactRepo)
	transferService := service.NewTransferService(contactRepo)

	// Handlers
	authHandler := handler.NewAuthHandler(userService)
	contactHandler := handler.NewContactHandler(contactService, transferService, config.Upload.MaxFileSize)
	healthHandler := handler.NewHealthHandler(db, redisClient)

	// Middleware
	jwtMiddleware := middleware.NewJWTMiddleware(jwtService, revocation)

	r := router.NewRouter(
		authHandler,
		contactHandler,
		healthHandler,
		jwtMiddleware,
		config,
	).SetupRoutes()

	srv := &http.Server{
		Addr:    ":" + config.App.Port,
		Handler: r,
	}

	go func() {
		logger.GetLogger().Info("Server starting",
			zap.String("port", config.App.Port),
			zap.String("host", "0.0.0.0"),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.GetLogger().Fatal("Failed to start server",
				zap.Error(err),
				zap.String("port", config.App.Port),
			)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.GetLogger().Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.GetLogger().Error("Forced shutdown", zap.Error(err))
	}
}
