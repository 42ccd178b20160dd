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

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"adventure-server/internal/config"
	"adventure-server/internal/engine"
	"adventure-server/internal/gateway"
	"adventure-server/internal/handler"
	"adventure-server/internal/keypool"
	"adventure-server/internal/logger"
	"adventure-server/internal/messaging"
	"adventure-server/internal/session"
	"adventure-server/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zapLogger, err := logger.New(logger.Config{
		Level:    cfg.LogLevel,
		Encoding: cfg.LogEncoding,
	})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()
	zapLogger.Info("Logger initialized", zap.String("logLevel", cfg.LogLevel))

	if err := storage.RunMigrations(cfg.GetDSN(), zapLogger); err != nil {
		zapLogger.Fatal("Failed to apply database migrations", zap.Error(err))
	}

	dbPool, err := setupDatabase(cfg)
	if err != nil {
		zapLogger.Fatal("Failed to connect to PostgreSQL", zap.Error(err))
	}
	defer dbPool.Close()
	zapLogger.Info("Connected to PostgreSQL", zap.String("host", cfg.DBHost))

	saveRepo := storage.NewPgSaveRepository(dbPool, zapLogger)
	fameRepo := storage.NewPgHallOfFameRepository(dbPool, zapLogger)

	events, rabbitConn := setupEventPublisher(cfg, zapLogger)
	if rabbitConn != nil {
		defer rabbitConn.Close()
	}

	keys := keypool.NewFromValues(cfg.AIAPIKeys, zapLogger)
	zapLogger.Info("Credential pool initialized", zap.Int("keys", keys.EnabledCount()))

	aiGateway, err := gateway.New(cfg, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to build AI gateway", zap.Error(err))
	}

	sessions := session.NewManager(saveRepo, fameRepo, zapLogger)
	resolver := engine.NewResolver(aiGateway, keys, events, zapLogger)

	e := echo.New()
	e.HideBanner = true
	e.Use(echoMiddleware.Recover())
	e.Use(echoMiddleware.CORSWithConfig(echoMiddleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
	}))

	e.GET("/healthz", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	handler.NewGameHandler(resolver, sessions, keys, saveRepo, fameRepo, zapLogger).RegisterRoutes(e)

	go func() {
		zapLogger.Info("Adventure server listening", zap.String("port", cfg.Port))
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zapLogger.Info("Shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		zapLogger.Error("Graceful shutdown failed", zap.Error(err))
	}
	zapLogger.Info("Adventure server stopped")
}

func setupDatabase(cfg *config.Config) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to parse DSN: %w", err)
	}
	poolCfg.MaxConns = cfg.DBMaxConns

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	dbPool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := dbPool.Ping(ctx); err != nil {
		dbPool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return dbPool, nil
}

// setupEventPublisher connects to RabbitMQ when configured, falling back to
// the log publisher otherwise. The returned connection is nil for the
// fallback.
func setupEventPublisher(cfg *config.Config, zapLogger *zap.Logger) (messaging.EventPublisher, *amqp.Connection) {
	if cfg.RabbitMQURL == "" {
		zapLogger.Info("RabbitMQ not configured, game events go to the log")
		return messaging.NewLogEventPublisher(zapLogger), nil
	}

	conn, err := connectRabbitMQ(cfg.RabbitMQURL, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to connect to RabbitMQ", zap.Error(err))
	}
	publisher, err := messaging.NewRabbitMQEventPublisher(conn, cfg.GameEventsQueue)
	if err != nil {
		zapLogger.Fatal("Failed to create event publisher", zap.Error(err))
	}
	zapLogger.Info("Connected to RabbitMQ", zap.String("queue", cfg.GameEventsQueue))
	return publisher, conn
}

func connectRabbitMQ(url string, zapLogger *zap.Logger) (*amqp.Connection, error) {
	var conn *amqp.Connection
	var err error
	maxRetries := 5
	retryDelay := 5 * time.Second
	for i := 0; i < maxRetries; i++ {
		conn, err = amqp.Dial(url)
		if err == nil {
			return conn, nil
		}
		zapLogger.Warn("Failed to connect to RabbitMQ, retrying",
			zap.Int("attempt", i+1),
			zap.Int("maxAttempts", maxRetries),
			zap.Duration("retryDelay", retryDelay),
			zap.Error(err),
		)
		time.Sleep(retryDelay)
	}
	return nil, err
}
