package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"spin-rewards-backend/internal/config"
	"spin-rewards-backend/internal/database"
	"spin-rewards-backend/internal/handlers"
	"spin-rewards-backend/internal/services"
)

const (
	relayQueueSize  = 256
	shutdownTimeout = 15 * time.Second
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	setupLogging(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loc, err := cfg.Location()
	if err != nil {
		log.Fatalf("Failed to load timezone: %v", err)
	}
	clock := services.SystemClock{Location: loc}

	memoryStore := services.NewMemoryStore()
	var (
		accounts services.AccountStore = memoryStore
		sessions services.SessionStore = memoryStore
		limiter  services.RateLimiter  = memoryStore
	)

	if cfg.RedisURL != "" {
		redisService, err := services.NewRedisService(ctx, cfg)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer redisService.Close()

		sessions = redisService
		limiter = redisService
		if cfg.StoreDriver == config.StoreRedis {
			accounts = redisService
		}
	}

	if cfg.StoreDriver == config.StorePostgres {
		if err := database.MigrateUp(cfg.DatabaseURL); err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
		}

		db, err := database.NewConnection(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()

		accounts = services.NewPostgresStore(db)
	}

	log.WithFields(log.Fields{
		"store":    cfg.StoreDriver,
		"timezone": loc.String(),
	}).Info("Account store ready")

	relay := services.NewTelegramRelay(cfg)
	status := relay.Status()
	log.WithFields(log.Fields{
		"main_bot": status.MainBotConfigured,
		"view_bot": status.ViewBotConfigured,
		"admin_id": status.AdminIDConfigured,
	}).Info("Telegram relay configured")

	// Stop drains queued relay jobs at shutdown.
	dispatcher := services.NewDispatcher(relay, relayQueueSize)
	dispatcher.Start(context.Background())

	rewards := services.NewRewardService(accounts, clock, dispatcher)
	jwtService := services.NewJWTService(cfg)

	wsHandler := handlers.NewWebSocketHandler(ctx, rewards)
	rewards.SetBroadcaster(wsHandler)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := handlers.NewRouter(handlers.RouterConfig{
		Auth:      handlers.NewAuthHandler(rewards, sessions, limiter, jwtService, clock, cfg.IsProduction()),
		Game:      handlers.NewGameHandler(rewards, relay),
		WebSocket: wsHandler,
		JWT:       jwtService,
		Sessions:  sessions,
		Limiter:   limiter,
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithField("port", cfg.Port).Info("Server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Server shutdown failed")
	}

	dispatcher.Stop()
	log.Info("Server stopped")
}

func setupLogging(cfg *config.Config) {
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.WithField("level", cfg.LogLevel).Warn("Unknown log level, using info")
		level = log.InfoLevel
	}
	log.SetLevel(level)

	if cfg.IsProduction() {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}
