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

	"github.com/flybeeper/ais-dashboard/internal/aisclient"
	"github.com/flybeeper/ais-dashboard/internal/config"
	"github.com/flybeeper/ais-dashboard/internal/filter"
	"github.com/flybeeper/ais-dashboard/internal/format"
	"github.com/flybeeper/ais-dashboard/internal/handler"
	"github.com/flybeeper/ais-dashboard/internal/metrics"
	"github.com/flybeeper/ais-dashboard/internal/repository"
	"github.com/flybeeper/ais-dashboard/internal/session"
	"github.com/flybeeper/ais-dashboard/pkg/utils"
)

var (
	// Version, Commit и BuildTime устанавливаются при сборке через ldflags
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// sessionStore хранилище сырых списков и кеш буев
type sessionStore interface {
	repository.TrackStore
	repository.BuoyCache
}

func main() {
	// Загружаем конфигурацию
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := utils.NewLogger(config.LogLevel(), config.LogFormat())
	utils.SetDefaultLogger(logger)
	logger.WithFields(map[string]interface{}{
		"version": Version,
		"commit":  Commit,
	}).Info("Starting AIS dashboard backend")

	metrics.SetAppInfo(Version, Commit, BuildTime)
	handler.Version = Version

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	loc, err := format.LoadLocation(cfg.Display.TimeZone)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load time zone")
	}
	order, err := filter.ParseOrderPolicy(cfg.Display.OrderPolicy)
	if err != nil {
		logger.WithError(err).Fatal("Invalid track order policy")
	}

	// Хранилище сырых списков: Redis или память процесса
	var store sessionStore
	if cfg.UseRedis() {
		redisRepo, err := repository.NewRedisRepository(&cfg.Redis, &cfg.Session, logger)
		if err != nil {
			logger.WithError(err).Fatal("Failed to initialize Redis repository")
		}
		defer redisRepo.Close()

		if err := redisRepo.Ping(ctx); err != nil {
			metrics.SetConnectionStatus(metrics.RedisConnectionStatus, false)
			logger.WithError(err).Fatal("Failed to connect to Redis")
		}
		metrics.SetConnectionStatus(metrics.RedisConnectionStatus, true)
		logger.Info("Connected to Redis")
		store = redisRepo
	} else {
		memRepo := repository.NewMemoryRepository(&cfg.Session, logger)
		memRepo.StartCleaner(ctx, time.Minute)
		logger.Info("REDIS_URL is not set, keeping search results in memory")
		store = memRepo
	}

	deps := handler.Dependencies{
		Buoys:    store,
		Location: loc,
	}

	// Каталог буев в MySQL (опционально)
	if cfg.MySQL.DSN != "" {
		mysqlRepo, err := repository.NewMySQLRepository(&cfg.MySQL, logger)
		if err != nil {
			logger.WithError(err).Warn("Failed to initialize MySQL repository")
		} else {
			defer mysqlRepo.Close()
			if err := mysqlRepo.Ping(ctx); err != nil {
				metrics.SetConnectionStatus(metrics.MySQLConnectionStatus, false)
				logger.WithError(err).Warn("Failed to connect to MySQL")
			} else {
				metrics.SetConnectionStatus(metrics.MySQLConnectionStatus, true)
				if err := mysqlRepo.EnsureSchema(ctx); err != nil {
					logger.WithError(err).Warn("Failed to ensure buoy catalog schema")
				}
				logger.Info("Connected to MySQL")
			}
			deps.Catalog = mysqlRepo
		}
	}

	upstream, err := aisclient.New(&cfg.AIS, &cfg.Breaker, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize AIS client")
	}
	deps.Upstream = upstream
	deps.Sessions = session.NewManager(upstream, store, &cfg.Session, order, logger)

	server := handler.NewServer(cfg, deps, logger)

	// Запускаем HTTP сервер в горутине
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("Failed to start HTTP server")
		}
	}()

	// Ждем сигнала остановки
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	logger.WithField("signal", sig.String()).Info("Received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("HTTP server shutdown error")
	}

	logger.Info("Server stopped gracefully")
}
