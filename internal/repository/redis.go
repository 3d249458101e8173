package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/flybeeper/ais-dashboard/internal/config"
	"github.com/flybeeper/ais-dashboard/internal/metrics"
	"github.com/flybeeper/ais-dashboard/internal/models"
	"github.com/flybeeper/ais-dashboard/pkg/utils"
	"github.com/redis/go-redis/v9"
)

const (
	// Префиксы ключей
	TrackRawPrefix = "track:raw:" // track:raw:{search_id} - сырой список точек (JSON)

	// Буи
	BuoysListKey = "buoys:list" // JSON список буев
	BuoysGeoKey  = "buoys:geo"  // GEO индекс буев

	// TTL по умолчанию
	DefaultTrackTTL = 30 * time.Minute
	DefaultBuoyTTL  = 10 * time.Minute

	// Максимум буев в ответе гео-поиска
	MaxNearbyBuoys = 200

	// Ограничения Redis GEO
	redisGeoMaxLat = 85.05112878
)

// RedisRepository хранит сырые списки поиска и кеш буев в Redis
type RedisRepository struct {
	client   *redis.Client
	logger   *utils.Logger
	trackTTL time.Duration
	buoyTTL  time.Duration
}

// NewRedisRepository создает новый Redis репозиторий
func NewRedisRepository(cfg *config.RedisConfig, session *config.SessionConfig, logger *utils.Logger) (*RedisRepository, error) {
	if cfg == nil {
		return nil, fmt.Errorf("redis config cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	// Парсим Redis URL
	opt, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	// Дополнительные настройки
	if cfg.Password != "" {
		opt.Password = cfg.Password
	}
	if cfg.DB != 0 {
		opt.DB = cfg.DB
	}
	if cfg.PoolSize > 0 {
		opt.PoolSize = cfg.PoolSize
	}
	opt.MinIdleConns = cfg.MinIdleConns
	opt.ConnMaxIdleTime = 30 * time.Minute
	opt.DialTimeout = 10 * time.Second
	opt.ReadTimeout = 3 * time.Second
	opt.WriteTimeout = 3 * time.Second

	repo := &RedisRepository{
		client:   redis.NewClient(opt),
		logger:   logger,
		trackTTL: DefaultTrackTTL,
		buoyTTL:  DefaultBuoyTTL,
	}
	if session != nil {
		if session.TrackTTL > 0 {
			repo.trackTTL = session.TrackTTL
		}
		if session.BuoyCacheTTL > 0 {
			repo.buoyTTL = session.BuoyCacheTTL
		}
	}

	return repo, nil
}

// Ping проверяет соединение с Redis
func (r *RedisRepository) Ping(ctx context.Context) error {
	_, err := r.client.Ping(ctx).Result()
	metrics.SetConnectionStatus(metrics.RedisConnectionStatus, err == nil)
	if err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

// Close закрывает соединение с Redis
func (r *RedisRepository) Close() error {
	return r.client.Close()
}

// SaveTrack сохраняет сырой список точек поиска с TTL
func (r *RedisRepository) SaveTrack(ctx context.Context, searchID string, points []models.TrackPoint) error {
	if searchID == "" {
		return fmt.Errorf("search id cannot be empty")
	}
	if points == nil {
		points = []models.TrackPoint{}
	}

	start := time.Now()
	data, err := json.Marshal(points)
	if err != nil {
		return fmt.Errorf("failed to marshal track: %w", err)
	}

	if err := r.client.Set(ctx, TrackRawPrefix+searchID, data, r.trackTTL).Err(); err != nil {
		metrics.RedisOperationErrors.WithLabelValues("save_track").Inc()
		return fmt.Errorf("failed to save track %s: %w", searchID, err)
	}

	metrics.RedisOperationDuration.WithLabelValues("save_track").Observe(time.Since(start).Seconds())

	r.logger.WithFields(map[string]interface{}{
		"search_id": searchID,
		"points":    len(points),
		"bytes":     len(data),
	}).Debug("Saved raw track")

	return nil
}

// LoadTrack загружает сырой список точек поиска
func (r *RedisRepository) LoadTrack(ctx context.Context, searchID string) ([]models.TrackPoint, error) {
	start := time.Now()

	data, err := r.client.Get(ctx, TrackRawPrefix+searchID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("track %s: %w", searchID, ErrNotFound)
	}
	if err != nil {
		metrics.RedisOperationErrors.WithLabelValues("load_track").Inc()
		return nil, fmt.Errorf("failed to load track %s: %w", searchID, err)
	}

	var points []models.TrackPoint
	if err := json.Unmarshal(data, &points); err != nil {
		return nil, fmt.Errorf("failed to decode track %s: %w", searchID, err)
	}

	metrics.RedisOperationDuration.WithLabelValues("load_track").Observe(time.Since(start).Seconds())
	return points, nil
}

// HasTrack проверяет, что сырой список не истек
func (r *RedisRepository) HasTrack(ctx context.Context, searchID string) (bool, error) {
	n, err := r.client.Exists(ctx, TrackRawPrefix+searchID).Result()
	if err != nil {
		metrics.RedisOperationErrors.WithLabelValues("has_track").Inc()
		return false, fmt.Errorf("failed to check track %s: %w", searchID, err)
	}
	return n > 0, nil
}

// DeleteTrack удаляет сырой список
func (r *RedisRepository) DeleteTrack(ctx context.Context, searchID string) error {
	if err := r.client.Del(ctx, TrackRawPrefix+searchID).Err(); err != nil {
		metrics.RedisOperationErrors.WithLabelValues("delete_track").Inc()
		return fmt.Errorf("failed to delete track %s: %w", searchID, err)
	}
	return nil
}

// SaveBuoys сохраняет список буев и перестраивает GEO индекс
func (r *RedisRepository) SaveBuoys(ctx context.Context, buoys []models.Buoy) error {
	start := time.Now()

	data, err := json.Marshal(buoys)
	if err != nil {
		return fmt.Errorf("failed to marshal buoys: %w", err)
	}

	locations := make([]*redis.GeoLocation, 0, len(buoys))
	for _, b := range buoys {
		pos, err := b.Position()
		if err != nil || math.Abs(pos.Latitude) > redisGeoMaxLat {
			r.logger.WithFields(map[string]interface{}{
				"buoy_id": b.ID,
				"lat":     b.Lat,
				"lng":     b.Lng,
			}).Debug("Skipping buoy with invalid position in geo index")
			continue
		}
		locations = append(locations, &redis.GeoLocation{
			Name:      b.ID,
			Latitude:  pos.Latitude,
			Longitude: pos.Longitude,
		})
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, BuoysListKey, data, r.buoyTTL)
		pipe.Del(ctx, BuoysGeoKey)
		if len(locations) > 0 {
			pipe.GeoAdd(ctx, BuoysGeoKey, locations...)
			pipe.Expire(ctx, BuoysGeoKey, r.buoyTTL)
		}
		return nil
	})
	if err != nil {
		metrics.RedisOperationErrors.WithLabelValues("save_buoys").Inc()
		return fmt.Errorf("failed to save buoys: %w", err)
	}

	metrics.RedisOperationDuration.WithLabelValues("save_buoys").Observe(time.Since(start).Seconds())
	return nil
}

// LoadBuoys возвращает закешированный список буев
func (r *RedisRepository) LoadBuoys(ctx context.Context) ([]models.Buoy, error) {
	data, err := r.client.Get(ctx, BuoysListKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("buoys: %w", ErrNotFound)
	}
	if err != nil {
		metrics.RedisOperationErrors.WithLabelValues("load_buoys").Inc()
		return nil, fmt.Errorf("failed to load buoys: %w", err)
	}

	var buoys []models.Buoy
	if err := json.Unmarshal(data, &buoys); err != nil {
		return nil, fmt.Errorf("failed to decode buoys: %w", err)
	}
	return buoys, nil
}

// NearbyBuoys возвращает буи в радиусе, отсортированные по расстоянию
func (r *RedisRepository) NearbyBuoys(ctx context.Context, center models.GeoPoint, radiusKM float64) ([]NearbyBuoy, error) {
	start := time.Now()

	buoys, err := r.LoadBuoys(ctx)
	if err != nil {
		return nil, err
	}

	// Поиск по геопространственному индексу
	locations, err := r.client.GeoRadius(ctx, BuoysGeoKey, center.Longitude, center.Latitude, &redis.GeoRadiusQuery{
		Radius:   radiusKM,
		Unit:     "km",
		WithDist: true,
		Count:    MaxNearbyBuoys,
		Sort:     "ASC",
	}).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		metrics.RedisOperationErrors.WithLabelValues("nearby_buoys").Inc()
		return nil, fmt.Errorf("failed to get buoys in radius: %w", err)
	}

	byID := make(map[string]models.Buoy, len(buoys))
	for _, b := range buoys {
		byID[b.ID] = b
	}

	result := make([]NearbyBuoy, 0, len(locations))
	for _, loc := range locations {
		b, ok := byID[loc.Name]
		if !ok {
			continue // Буй удален из списка, но еще в гео-индексе
		}
		result = append(result, NearbyBuoy{Buoy: b, DistanceKM: loc.Dist})
	}

	r.logger.WithFields(map[string]interface{}{
		"center_lat": center.Latitude,
		"center_lon": center.Longitude,
		"radius_km":  radiusKM,
		"found":      len(result),
	}).Debug("Retrieved buoys in radius")

	metrics.RedisOperationDuration.WithLabelValues("nearby_buoys").Observe(time.Since(start).Seconds())
	return result, nil
}
