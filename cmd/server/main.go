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

	"checkout-service/config"
	"checkout-service/internal/api"
	"checkout-service/internal/auth"
	"checkout-service/internal/broker"
	"checkout-service/internal/redisclient"
	"checkout-service/internal/service"
	"checkout-service/internal/store"
	"checkout-service/internal/util"
	"checkout-service/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func main() {
	// Money is rendered as JSON numbers (25.5) rather than strings ("25.5").
	decimal.MarshalJSONWithoutQuotes = true

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting checkout service", zap.String("env", cfg.Server.Env))

	tp, err := util.InitTracer(cfg.Observ.ServiceName, cfg.Server.Env, cfg.Observ.JaegerEndpoint)
	if err != nil {
		logger.Fatal("Failed to initialize tracer", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			logger.Error("Error shutting down tracer", zap.Error(err))
		}
	}()

	db, err := store.NewStore(cfg.Database.URL)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()
	logger.Info("Database connected")

	if err := db.RunMigrations(cfg.Database.MigrationsPath); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}

	redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()
	logger.Info("Redis connected")

	producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicOrder)
	defer producer.Close()
	eventPublisher := broker.NewEventPublisher(producer)
	logger.Info("Kafka producer initialized", zap.String("topic", cfg.Kafka.TopicOrder))

	cartService := service.NewCartService(db, redisClient, cfg.Business.ProductCacheTTL())
	promotionService := service.NewPromotionService(db, eventPublisher)
	orderService := service.NewOrderService(db, promotionService, redisClient, redisClient, eventPublisher, service.OrderConfig{
		ShippingFee:     cfg.Business.ShippingFee,
		CheckoutTimeout: cfg.Business.CheckoutTimeout(),
		IdempotencyTTL:  cfg.Business.IdempotencyTTL(),
	})
	inventoryService := service.NewInventoryService(db, redisClient)
	orderService.SetRestockFallback(inventoryService)

	authenticator := auth.NewAuthenticator(cfg.Auth.JWTSecret)
	limiter := auth.NewRateLimiter(cfg.Business.RateLimitPerSecond, cfg.Business.RateLimitBurst, 10*time.Minute)

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	go limiter.Run(workerCtx)

	restockConsumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicOrder, cfg.Kafka.ConsumerGroup)
	restockWorker := worker.NewRestockWorker(restockConsumer, inventoryService)
	go func() {
		if err := restockWorker.Start(workerCtx); err != nil && workerCtx.Err() == nil {
			logger.Error("Restock worker error", zap.Error(err))
		}
	}()

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handler := api.NewHandler(cartService, promotionService, orderService, authenticator, limiter)
	handler.AddReadinessProbe("postgres", db)
	handler.AddReadinessProbe("redis", redisClient)
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	workerCancel()
	if err := restockWorker.Stop(); err != nil {
		logger.Error("Error stopping restock worker", zap.Error(err))
	}

	logger.Info("Server exited")
}
