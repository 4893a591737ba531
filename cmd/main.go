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

	"golang-food-checkout/configs"
	"golang-food-checkout/internal/handlers"
	"golang-food-checkout/internal/middleware"
	"golang-food-checkout/internal/models"
	"golang-food-checkout/internal/repositories"
	"golang-food-checkout/internal/services"
	"golang-food-checkout/pkg/apiclient"
	"golang-food-checkout/pkg/auth"
	"golang-food-checkout/pkg/cache"
	"golang-food-checkout/pkg/database"
	"golang-food-checkout/pkg/logger"
	"golang-food-checkout/pkg/messaging"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	config, err := configs.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	zlog, err := logger.New(config.Log.Mode)
	if err != nil {
		log.Fatal("Failed to build logger:", err)
	}
	defer func() { _ = zlog.Sync() }()

	gin.SetMode(config.Server.Mode)

	db, err := database.NewDatabase(config.Database.PostgresURL, config.Database.MongoURL, config.Database.MongoDBName, zlog.Named("database"), config.Server.Mode == gin.DebugMode)
	if err != nil {
		zlog.Fatal("failed to connect to databases", zap.Error(err))
	}
	defer db.Close()

	if err := db.AutoMigrate(&models.OrderReceipt{}); err != nil {
		zlog.Fatal("failed to migrate database", zap.Error(err))
	}

	startup, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	redisCache, err := cache.NewRedisCache(startup, config.Redis.URL, config.Redis.Password, config.Redis.DB)
	cancel()
	if err != nil {
		zlog.Fatal("failed to connect to Redis", zap.Error(err))
	}
	defer redisCache.Close()

	kafkaProducer := messaging.NewKafkaProducer(config.Kafka.Brokers)
	defer kafkaProducer.Close()

	jwtManager := auth.NewJWTManager(config.JWT.SecretKey, config.JWT.ExpiryHours, config.JWT.RefreshExpiryDays)
	vault := auth.NewTokenVault(redisCache, config.Vault.Secret, config.Vault.TokenTTL, cache.ErrCacheMiss)

	backend := apiclient.New(config.Backend.BaseURL, config.Backend.Timeout)

	// Repositories
	receiptRepo := repositories.NewReceiptRepository(db.Postgres)
	journalRepo := repositories.NewNoopJournalRepository()
	if db.MongoDB != nil {
		journalRepo = repositories.NewJournalRepository(db.MongoDB)
	}

	// Services
	sessionService := services.NewSessionService(
		redisCache,
		vault,
		services.ClientFactory(backend),
		services.FlowDeps{
			Receipts:          receiptRepo,
			Journal:           journalRepo,
			Publisher:         kafkaProducer,
			OrderTopic:        config.Kafka.OrderTopic,
			NotificationTopic: config.Kafka.NotificationTopic,
			SubmitCooldown:    config.Checkout.SubmitCooldown,
			Logger:            zlog,
		},
		services.TrackingDeps{
			Receipts:   receiptRepo,
			Publisher:  kafkaProducer,
			OrderTopic: config.Kafka.OrderTopic,
			Logger:     zlog,
		},
		services.SessionConfig{
			TTL:          config.Checkout.SessionTTL,
			PollInterval: config.Checkout.ActiveOrderPollInterval,
		},
		zlog,
	)
	defer sessionService.Close()

	authService := services.NewAuthService(backend, vault, jwtManager, sessionService, zlog)
	reportService := services.NewReportService(receiptRepo)

	authMiddleware := middleware.NewAuthMiddleware(jwtManager)

	// Handlers
	authHandler := handlers.NewAuthHandler(authService)
	cartHandler := handlers.NewCartHandler(sessionService, zlog)
	checkoutHandler := handlers.NewCheckoutHandler(sessionService, zlog)
	orderHandler := handlers.NewOrderHandler(sessionService, reportService, zlog)
	reportHandler := handlers.NewReportHandler(reportService)

	router := gin.New()
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggerMiddleware(zlog.Named("http")))
	router.Use(middleware.RecoveryMiddleware(zlog))
	router.Use(middleware.CORSMiddleware(nil))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "golang-food-checkout",
		})
	})

	api := router.Group("/api/v1")
	authHandler.RegisterRoutes(api, authMiddleware)
	cartHandler.RegisterRoutes(api, authMiddleware)
	checkoutHandler.RegisterRoutes(api, authMiddleware)
	orderHandler.RegisterRoutes(api, authMiddleware)
	reportHandler.RegisterRoutes(api, authMiddleware)

	srv := &http.Server{
		Addr:              config.Server.Host + ":" + config.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zlog.Info("server starting", zap.String("addr", srv.Addr), zap.String("backend", config.Backend.BaseURL))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zlog.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		zlog.Error("server shutdown", zap.Error(err))
	}
}
