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

	"go.uber.org/zap"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/quietline/quietline/internal/adapter/handler"
	"github.com/quietline/quietline/internal/adapter/repository"
	"github.com/quietline/quietline/internal/infrastructure/cache"
	"github.com/quietline/quietline/internal/infrastructure/database"
	"github.com/quietline/quietline/internal/infrastructure/storage"
	"github.com/quietline/quietline/internal/usecase/auth"
	"github.com/quietline/quietline/internal/usecase/bridge"
	callusecase "github.com/quietline/quietline/internal/usecase/call"
	"github.com/quietline/quietline/pkg/config"
	"github.com/quietline/quietline/pkg/jwt"
	"github.com/quietline/quietline/pkg/realtime"
	pkgvalidator "github.com/quietline/quietline/pkg/validator"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := zap.NewProduction()
	if cfg.Server.Environment == "development" {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	engineCfg, err := realtime.ConfigFromEnv()
	if err != nil {
		logger.Fatal("failed to load speech engine configuration", zap.Error(err))
	}

	e := echo.New()
	e.Validator = pkgvalidator.New()
	e.HideBanner = true

	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: "${time_rfc3339} | ${status} | ${method} ${uri} | ${latency_human}\n",
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     cfg.Server.AllowedOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		AllowCredentials: true,
	}))

	db, err := database.NewPostgresDB(cfg)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer database.CloseDB(db)

	if err := database.Migrate(db); err != nil {
		logger.Fatal("failed to apply migrations", zap.Error(err))
	}

	var cacheStore cache.Store
	if cfg.Redis.Enabled {
		redisStore, err := cache.NewRedisStore(cfg)
		if err != nil {
			logger.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer redisStore.Close()
		cacheStore = redisStore
	} else {
		logger.Warn("redis disabled, using in-memory cache")
		cacheStore = cache.NewMemoryStore()
	}

	storageClient, err := storage.NewMinIOClient(&cfg.Storage)
	if err != nil {
		logger.Warn("object storage unavailable, recordings disabled", zap.Error(err))
		storageClient = nil
	}

	callRepo := repository.NewCallRepository(db)
	transcriptRepo := repository.NewTranscriptRepository(db)
	bridgeStore := repository.NewBridgeStore(callRepo, transcriptRepo)

	registry := bridge.NewRegistry(logger)

	jwtManager := jwt.NewManager(
		cfg.JWT.AccessSecret,
		cfg.JWT.RefreshSecret,
		cfg.JWT.AccessExpiry,
		cfg.JWT.RefreshExpiry,
	)

	authService := auth.NewAuthService(cfg, jwtManager, logger)
	callService := callusecase.NewCallService(
		callRepo,
		transcriptRepo,
		registry,
		cacheStore,
		storageClient,
		cfg.Storage.URLExpiry,
		logger,
	)

	sessionOpts := realtime.SessionOptions{
		Instructions:    cfg.Persona.Instructions,
		AudioFormat:     "g711_ulaw",
		TranscribeInput: true,
	}
	newEngine := func() bridge.EngineClient {
		return realtime.NewClient(engineCfg, sessionOpts, logger)
	}

	authHandler := handler.NewAuthHandler(authService, logger)
	callHandler := handler.NewCallHandler(callService, int64(cfg.Storage.URLExpiry.Seconds()), logger)
	twilioHandler := handler.NewTwilioHandler(callService, cfg.Server.PublicBaseURL, logger)
	streamHandler := handler.NewStreamHandler(registry, bridgeStore, newEngine, logger)

	router := handler.NewRouter(cfg, jwtManager, authHandler, callHandler, twilioHandler, streamHandler)
	router.Setup(e)

	go func() {
		addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
		logger.Info("starting server",
			zap.String("addr", addr),
			zap.String("environment", cfg.Server.Environment))

		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server stopped", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down",
		zap.Int("active_sessions", registry.Count()))

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.Error("forced shutdown", zap.Error(err))
	}
}
