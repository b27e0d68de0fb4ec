package main

import (
	"context"
	"os"
	"time"

	"catalog-chat/config"
	"catalog-chat/internal/domain"
	"catalog-chat/internal/handler"
	redisstore "catalog-chat/internal/redis"
	"catalog-chat/internal/repository"
	"catalog-chat/internal/server"
	"catalog-chat/internal/services"
	"catalog-chat/pkg/database"
	"catalog-chat/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

func main() {
	cfg := config.LoadConfig()

	log := logger.New(cfg.AppMode)
	logger.SetGlobalLogger(log)
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Logger.Error("server exited with error", zap.Error(err))
		log.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *logger.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	productsDB, err := database.Open(cfg.ProductsDBDriver, cfg.ProductsDBDSN, cfg.AppMode)
	if err != nil {
		return err
	}
	defer database.Close(productsDB)

	messagesDB, err := database.Open(cfg.MessagesDBDriver, cfg.MessagesDBDSN, cfg.AppMode)
	if err != nil {
		return err
	}
	defer database.Close(messagesDB)

	products := repository.NewProductRepository(productsDB)
	messages := repository.NewMessageRepository(messagesDB)

	// Both tables must exist before the first connection is accepted.
	if err := products.EnsureSchema(ctx); err != nil {
		return err
	}
	if err := messages.EnsureSchema(ctx); err != nil {
		return err
	}
	log.Infof("Stores ready (products=%s, messages=%s)", cfg.ProductsDBDriver, cfg.MessagesDBDriver)

	if cfg.SeedProducts {
		if _, err := services.SeedCatalog(ctx, products, domain.SampleCatalog(), log.Named("seed")); err != nil {
			return err
		}
	}

	wsLogger := server.NewWebSocketLogger(log.Named("websocket"))
	hub := server.NewHub(wsLogger)
	syncService := services.NewSyncService(products, messages, hub, log.Logger)
	identities := services.NewIdentityService(cfg.JWTSecret, time.Duration(cfg.JWTExpiryMin)*time.Minute)

	health := map[string]server.HealthCheck{
		"products": pingCheck(productsDB),
		"messages": pingCheck(messagesDB),
	}

	if cfg.RedisEnabled {
		client, err := redisstore.NewClient(ctx, redisstore.Config{
			Host:     cfg.RedisHost,
			Port:     cfg.RedisPort,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			// events are still served, just without a cap
			log.Warnf("Redis unavailable, event rate limiting disabled: %v", err)
		} else {
			defer client.Close()
			syncService.WithLimiter(redisstore.NewEventLimiter(client, redisstore.RateLimitConfig{
				Limit:  cfg.EventRateLimit,
				Window: time.Duration(cfg.EventRateWindowSec) * time.Second,
			}))
			health["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
		}
	}

	srv := server.New(cfg, log, hub)
	srv.SetupRoutes(&server.Handlers{
		Catalog:   handler.NewCatalogHandler(products, messages),
		WebSocket: server.NewWebSocketHandler(ctx, hub, identities, syncService, cfg.AuthRequired, wsLogger),
		Auth:      identities,
		Health:    health,
	})

	return srv.Start()
}

func pingCheck(db *gorm.DB) server.HealthCheck {
	return func(ctx context.Context) error {
		return database.Ping(ctx, db)
	}
}
