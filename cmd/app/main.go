package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/task-api/internal/config"
	"github.com/BuzzLyutic/task-api/internal/database"
	"github.com/BuzzLyutic/task-api/internal/handler"
	"github.com/BuzzLyutic/task-api/internal/logger"
	"github.com/BuzzLyutic/task-api/internal/middleware"
	"github.com/BuzzLyutic/task-api/internal/repo"
	"github.com/BuzzLyutic/task-api/internal/service"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger, err := logger.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	taskRepo, closeRepo := openRepository(cfg, logger)

	taskService := service.NewTaskService(taskRepo)
	taskHandler := handler.NewTaskHandler(taskService, logger)
	router := handler.NewRouter(taskHandler, handler.RouterOptions{
		Logger:  logger,
		Limiter: middleware.NewLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst),
	})

	srv := http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	go func() {
		logger.Info("Server started", zap.String("addr", srv.Addr), zap.String("backend", cfg.DBDriver))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)
	<-quit

	logger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Shutdown error", zap.Error(err))
	}
	closeRepo(ctx)
	logger.Info("Server stopped successfully")
}

// openRepository builds the configured backend. A database that is down at
// startup is not fatal: requests connect lazily and answer 500 until it is up.
func openRepository(cfg config.Config, logger *zap.Logger) (repo.TaskRepository, func(context.Context)) {
	switch cfg.DBDriver {
	case config.DriverPostgres:
		pool, err := database.NewPostgresPool(context.Background(), cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("Failed to configure database", zap.Error(err))
		}
		pgRepo := repo.NewPostgresTaskRepo(pool)

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := pgRepo.EnsureSchema(ctx); err != nil {
			logger.Warn("Failed to apply schema", zap.Error(err))
		}
		return pgRepo, func(context.Context) { pool.Close() }

	default:
		provider := database.NewMongoProvider(database.MongoConfig{
			URI:            cfg.Mongo.URI,
			Database:       cfg.Mongo.Database,
			ConnectTimeout: cfg.Mongo.ConnectTimeout,
		}, logger)

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Mongo.ConnectTimeout)
		defer cancel()
		if err := provider.Connect(ctx); err != nil {
			logger.Warn("Error connecting to MongoDB, will retry on first request", zap.Error(err))
		}
		return repo.NewMongoTaskRepo(provider), func(ctx context.Context) {
			if err := provider.Close(ctx); err != nil {
				logger.Error("Failed to disconnect from MongoDB", zap.Error(err))
			}
		}
	}
}
