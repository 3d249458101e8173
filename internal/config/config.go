package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/flybeeper/ais-dashboard/internal/filter"
	"github.com/flybeeper/ais-dashboard/internal/format"
)

// Config содержит конфигурацию приложения
type Config struct {
	Environment string
	Server      ServerConfig
	AIS         AISConfig
	Breaker     BreakerConfig
	Redis       RedisConfig
	MySQL       MySQLConfig
	Session     SessionConfig
	Display     DisplayConfig
	RateLimit   RateLimitConfig
	Performance PerformanceConfig
	Monitoring  MonitoringConfig
	Features    FeaturesConfig
}

// ServerConfig конфигурация HTTP сервера
type ServerConfig struct {
	Address         string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
}

// AISConfig конфигурация внешнего AIS бэкенда
type AISConfig struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
}

// BreakerConfig настройки circuit breaker для AIS бэкенда
type BreakerConfig struct {
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold uint32
}

// RedisConfig конфигурация Redis. Пустой URL — хранение в памяти.
type RedisConfig struct {
	URL          string
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
}

// MySQLConfig конфигурация MySQL (каталог буев)
type MySQLConfig struct {
	DSN          string
	MaxIdleConns int
	MaxOpenConns int
}

// SessionConfig хранение сырых списков поиска
type SessionConfig struct {
	TrackTTL        time.Duration
	MaxMemoryTracks int
	MaxClients      int
	BuoyCacheTTL    time.Duration
}

// DisplayConfig параметры отображения маршрута
type DisplayConfig struct {
	TimeZone    string
	OrderPolicy string
}

// RateLimitConfig ограничение частоты запросов на клиента
type RateLimitConfig struct {
	RPS   float64
	Burst int
}

// PerformanceConfig конфигурация производительности
type PerformanceConfig struct {
	WebSocketPingInterval time.Duration
	WebSocketPongTimeout  time.Duration
	WebSocketMaxMessage   int64
}

// MonitoringConfig конфигурация мониторинга
type MonitoringConfig struct {
	MetricsEnabled bool
}

// FeaturesConfig флаги функций
type FeaturesConfig struct {
	EnableMySQLFallback bool
	AllowAnyRadius      bool
}

// Load загружает конфигурацию из переменных окружения
func Load() (*Config, error) {
	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Address:         getEnv("SERVER_ADDRESS", ":8090"),
			ReadTimeout:     getDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getDuration("SERVER_WRITE_TIMEOUT", 60*time.Second),
			IdleTimeout:     getDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
			ShutdownTimeout: getDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
			AllowedOrigins:  getList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		},
		AIS: AISConfig{
			BaseURL:   getEnv("AIS_BASE_URL", "http://localhost:9001"),
			Timeout:   getDuration("AIS_TIMEOUT", 30*time.Second),
			UserAgent: getEnv("AIS_USER_AGENT", "ais-dashboard/1.0"),
		},
		Breaker: BreakerConfig{
			MaxRequests:      uint32(getInt("BREAKER_MAX_REQUESTS", 3)),
			Interval:         getDuration("BREAKER_INTERVAL", time.Minute),
			Timeout:          getDuration("BREAKER_TIMEOUT", 30*time.Second),
			FailureThreshold: uint32(getInt("BREAKER_FAILURE_THRESHOLD", 5)),
		},
		Redis: RedisConfig{
			URL:          getEnv("REDIS_URL", ""),
			Password:     getEnv("REDIS_PASSWORD", ""),
			DB:           getInt("REDIS_DB", 0),
			PoolSize:     getInt("REDIS_POOL_SIZE", 20),
			MinIdleConns: getInt("REDIS_MIN_IDLE_CONNS", 2),
		},
		MySQL: MySQLConfig{
			DSN:          getEnv("MYSQL_DSN", ""),
			MaxIdleConns: getInt("MYSQL_MAX_IDLE_CONNS", 5),
			MaxOpenConns: getInt("MYSQL_MAX_OPEN_CONNS", 20),
		},
		Session: SessionConfig{
			TrackTTL:        getDuration("TRACK_TTL", 30*time.Minute),
			MaxMemoryTracks: getInt("MAX_MEMORY_TRACKS", 256),
			MaxClients:      getInt("MAX_SEARCH_CLIENTS", 10000),
			BuoyCacheTTL:    getDuration("BUOY_CACHE_TTL", 10*time.Minute),
		},
		Display: DisplayConfig{
			TimeZone:    getEnv("TIME_ZONE", format.DefaultTimeZone),
			OrderPolicy: getEnv("TRACK_ORDER_POLICY", filter.OrderPermissive.String()),
		},
		RateLimit: RateLimitConfig{
			RPS:   getFloat("RATE_LIMIT_RPS", 10),
			Burst: getInt("RATE_LIMIT_BURST", 20),
		},
		Performance: PerformanceConfig{
			WebSocketPingInterval: getDuration("WEBSOCKET_PING_INTERVAL", 30*time.Second),
			WebSocketPongTimeout:  getDuration("WEBSOCKET_PONG_TIMEOUT", 60*time.Second),
			WebSocketMaxMessage:   int64(getInt("WEBSOCKET_MAX_MESSAGE", 4096)),
		},
		Monitoring: MonitoringConfig{
			MetricsEnabled: getBool("METRICS_ENABLED", true),
		},
		Features: FeaturesConfig{
			EnableMySQLFallback: getBool("ENABLE_MYSQL_FALLBACK", false),
			AllowAnyRadius:      getBool("ALLOW_ANY_RADIUS", false),
		},
	}

	// Валидация
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate проверяет корректность конфигурации
func (c *Config) Validate() error {
	if c.Server.Address == "" {
		return fmt.Errorf("SERVER_ADDRESS is required")
	}

	if c.AIS.BaseURL == "" {
		return fmt.Errorf("AIS_BASE_URL is required")
	}
	if u, err := url.Parse(c.AIS.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("AIS_BASE_URL must be an absolute URL")
	}
	if c.AIS.Timeout <= 0 {
		return fmt.Errorf("AIS_TIMEOUT must be positive")
	}

	if c.Breaker.FailureThreshold == 0 {
		return fmt.Errorf("BREAKER_FAILURE_THRESHOLD must be positive")
	}

	if c.Session.TrackTTL <= 0 {
		return fmt.Errorf("TRACK_TTL must be positive")
	}
	if c.Session.MaxClients <= 0 {
		return fmt.Errorf("MAX_SEARCH_CLIENTS must be positive")
	}

	if c.Features.EnableMySQLFallback && c.MySQL.DSN == "" {
		return fmt.Errorf("MYSQL_DSN is required when ENABLE_MYSQL_FALLBACK is set")
	}

	if _, err := format.LoadLocation(c.Display.TimeZone); err != nil {
		return fmt.Errorf("TIME_ZONE is invalid: %w", err)
	}

	if _, err := filter.ParseOrderPolicy(c.Display.OrderPolicy); err != nil {
		return fmt.Errorf("TRACK_ORDER_POLICY is invalid: %w", err)
	}

	if c.RateLimit.RPS <= 0 || c.RateLimit.Burst <= 0 {
		return fmt.Errorf("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive")
	}

	return nil
}

// UseRedis включено ли хранение в Redis
func (c *Config) UseRedis() bool {
	return c.Redis.URL != ""
}

// Helper функции для чтения переменных окружения

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

// LogLevel возвращает уровень логирования
func LogLevel() string {
	return getEnv("LOG_LEVEL", "info")
}

// LogFormat возвращает формат логирования
func LogFormat() string {
	return getEnv("LOG_FORMAT", "json")
}

// IsDevelopment проверяет, запущено ли приложение в режиме разработки
func IsDevelopment() bool {
	return getEnv("APP_ENV", "production") == "development"
}
