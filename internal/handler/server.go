package handler

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/flybeeper/ais-dashboard/internal/config"
	"github.com/flybeeper/ais-dashboard/internal/metrics"
	"github.com/flybeeper/ais-dashboard/internal/models"
	"github.com/flybeeper/ais-dashboard/internal/query"
	"github.com/flybeeper/ais-dashboard/internal/repository"
	"github.com/flybeeper/ais-dashboard/internal/session"
	"github.com/flybeeper/ais-dashboard/pkg/utils"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
)

// Version версия API, отдается в /health
var Version = "1.0.0"

// Upstream внешний AIS бэкенд (буи и анализ активности)
type Upstream interface {
	FetchBuoys(ctx context.Context) ([]models.Buoy, error)
	FetchBuoyActivity(ctx context.Context, params query.ActivityParams) (*models.BuoyActivity, error)
	BreakerState() string
}

// Dependencies зависимости HTTP слоя
type Dependencies struct {
	Sessions *session.Manager
	Upstream Upstream
	Buoys    repository.BuoyCache
	Catalog  repository.BuoyCatalog // nil, если MySQL не настроен
	Location *time.Location
}

// Server HTTP сервер
type Server struct {
	router      *gin.Engine
	httpServer  *http.Server
	logger      *utils.Logger
	config      *config.Config
	restHandler *RESTHandler
	wsHandler   *WebSocketHandler
}

// NewServer создает новый HTTP сервер
func NewServer(cfg *config.Config, deps Dependencies, logger *utils.Logger) *Server {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Middleware
	router.Use(LoggerMiddleware(logger))
	router.Use(gin.Recovery())
	if cfg.Monitoring.MetricsEnabled {
		router.Use(metrics.HTTPMetricsMiddleware("/metrics"))
	}
	router.Use(CORSMiddleware(cfg.Server.AllowedOrigins))
	router.Use(RateLimitMiddleware(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
	router.Use(SecurityHeadersMiddleware())

	restHandler := NewRESTHandler(deps, cfg.Features, logger)

	server := &Server{
		router:      router,
		logger:      logger,
		config:      cfg,
		restHandler: restHandler,
		wsHandler:   NewWebSocketHandler(deps.Sessions, deps.Location, cfg.Performance, cfg.Server.AllowedOrigins, logger),
	}

	server.httpServer = &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	server.setupRoutes()

	return server
}

// setupRoutes настраивает маршруты
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.healthCheck)
	if s.config.Monitoring.MetricsEnabled {
		s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	v1 := s.router.Group("/api/v1")
	{
		v1.GET("/gap-options", s.restHandler.GetGapOptions)
		v1.GET("/radius-options", s.restHandler.GetRadiusOptions)

		v1.GET("/history", s.restHandler.GetLatestSearch)
		v1.DELETE("/history", s.restHandler.DiscardSearch)
		v1.GET("/history/search", s.restHandler.SearchHistory)
		v1.POST("/history/search", s.restHandler.SearchHistory)
		v1.GET("/history/:search_id", s.restHandler.GetView)
		v1.GET("/history/:search_id/export", s.restHandler.ExportView)

		v1.GET("/buoys", s.restHandler.GetBuoys)
		v1.GET("/buoys/nearby", s.restHandler.GetNearbyBuoys)
		v1.GET("/areas", s.restHandler.GetAreas)
		v1.GET("/buoy-activity", s.restHandler.GetBuoyActivity)
	}

	s.router.GET("/ws/v1/views", s.wsHandler.HandleWebSocket)
}

// Handler возвращает http.Handler сервера
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start запускает HTTP сервер
func (s *Server) Start() error {
	s.logger.WithFields(map[string]interface{}{
		"address": s.config.Server.Address,
		"mode":    gin.Mode(),
	}).Info("Starting HTTP server")

	return s.httpServer.ListenAndServe()
}

// Shutdown корректное завершение сервера
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	s.wsHandler.CloseAll()
	return s.httpServer.Shutdown(ctx)
}

// Health check endpoint
func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().Unix(),
		"version":   Version,
		"upstream":  s.restHandler.upstream.BreakerState(),
		"websocket": s.wsHandler.ActiveConnections(),
	})
}

// ==================== Middleware ====================

// LoggerMiddleware логирование запросов
func LoggerMiddleware(logger *utils.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		entry := logger.WithFields(map[string]interface{}{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     status,
			"latency_ms": latency.Milliseconds(),
			"client_ip":  c.ClientIP(),
			"user_agent": c.Request.UserAgent(),
		})
		if status >= http.StatusInternalServerError {
			entry.Warn("HTTP request completed")
			return
		}
		entry.Info("HTTP request completed")
	}
}

// CORSMiddleware настройка CORS
func CORSMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", ClientIDHeader},
		ExposeHeaders: []string{"Content-Length", "Content-Disposition"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	}
	return cors.New(cfg)
}

// maxLimitedClients после превышения таблица лимитеров сбрасывается
const maxLimitedClients = 10000

// clientLimiters token bucket на IP клиента
type clientLimiters struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rps      rate.Limit
	burst    int
}

func (l *clientLimiters) get(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	limiter, ok := l.limiters[ip]
	if !ok {
		if len(l.limiters) >= maxLimitedClients {
			l.limiters = make(map[string]*rate.Limiter)
		}
		limiter = rate.NewLimiter(l.rps, l.burst)
		l.limiters[ip] = limiter
	}
	return limiter
}

// RateLimitMiddleware ограничение частоты запросов на клиента. rps <= 0 отключает ограничение.
func RateLimitMiddleware(rps float64, burst int) gin.HandlerFunc {
	if rps <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	if burst <= 0 {
		burst = 1
	}
	limiters := &clientLimiters{
		limiters: make(map[string]*rate.Limiter),
		rps:      rate.Limit(rps),
		burst:    burst,
	}

	return func(c *gin.Context) {
		if !limiters.get(c.ClientIP()).Allow() {
			writeError(c, http.StatusTooManyRequests, "rate_limit_exceeded", "Too many requests")
			c.Abort()
			return
		}
		c.Next()
	}
}

// SecurityHeadersMiddleware заголовки безопасности
func SecurityHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Next()
	}
}
