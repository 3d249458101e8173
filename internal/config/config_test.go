package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8090", cfg.Server.Address)
	assert.Equal(t, 30*time.Minute, cfg.Session.TrackTTL)
	assert.Equal(t, 10000, cfg.Session.MaxClients)
	assert.Equal(t, "Asia/Ho_Chi_Minh", cfg.Display.TimeZone)
	assert.Equal(t, "permissive", cfg.Display.OrderPolicy)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.False(t, cfg.UseRedis())
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("AIS_BASE_URL", "https://ais.example.com")
	t.Setenv("AIS_TIMEOUT", "5s")
	t.Setenv("REDIS_URL", "redis://localhost:6379/2")
	t.Setenv("TRACK_TTL", "10m")
	t.Setenv("RATE_LIMIT_RPS", "2.5")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com,")
	t.Setenv("TRACK_ORDER_POLICY", "sort")
	t.Setenv("REDIS_DB", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://ais.example.com", cfg.AIS.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.AIS.Timeout)
	assert.True(t, cfg.UseRedis())
	assert.Equal(t, 10*time.Minute, cfg.Session.TrackTTL)
	assert.Equal(t, 2.5, cfg.RateLimit.RPS)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "sort", cfg.Display.OrderPolicy)
	// Некорректное значение заменяется значением по умолчанию
	assert.Equal(t, 0, cfg.Redis.DB)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"relative AIS url", map[string]string{"AIS_BASE_URL": "/ais"}},
		{"fallback without DSN", map[string]string{"ENABLE_MYSQL_FALLBACK": "true"}},
		{"bad time zone", map[string]string{"TIME_ZONE": "Nowhere/Land"}},
		{"bad order policy", map[string]string{"TRACK_ORDER_POLICY": "random"}},
		{"zero breaker threshold", map[string]string{"BREAKER_FAILURE_THRESHOLD": "0"}},
		{"negative rate", map[string]string{"RATE_LIMIT_RPS": "-1"}},
		{"zero search clients", map[string]string{"MAX_SEARCH_CLIENTS": "0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
