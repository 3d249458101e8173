package repository

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/flybeeper/ais-dashboard/internal/cache"
	"github.com/flybeeper/ais-dashboard/internal/config"
	"github.com/flybeeper/ais-dashboard/internal/models"
	"github.com/flybeeper/ais-dashboard/pkg/utils"
)

const (
	// DefaultMaxMemoryTracks число сырых списков в памяти по умолчанию
	DefaultMaxMemoryTracks = 256

	memoryBuoysKey = "buoys"
)

// MemoryRepository хранит сырые списки и буи в памяти процесса (без Redis)
type MemoryRepository struct {
	tracks *cache.LRUCache[[]models.TrackPoint]
	buoys  *cache.LRUCache[[]models.Buoy]
	logger *utils.Logger
}

// NewMemoryRepository создает хранилище в памяти
func NewMemoryRepository(session *config.SessionConfig, logger *utils.Logger) *MemoryRepository {
	trackTTL := DefaultTrackTTL
	buoyTTL := DefaultBuoyTTL
	capacity := DefaultMaxMemoryTracks
	if session != nil {
		if session.TrackTTL > 0 {
			trackTTL = session.TrackTTL
		}
		if session.BuoyCacheTTL > 0 {
			buoyTTL = session.BuoyCacheTTL
		}
		if session.MaxMemoryTracks > 0 {
			capacity = session.MaxMemoryTracks
		}
	}
	if logger == nil {
		logger = utils.NopLogger()
	}

	return &MemoryRepository{
		tracks: cache.NewLRUCache[[]models.TrackPoint](capacity, trackTTL),
		buoys:  cache.NewLRUCache[[]models.Buoy](1, buoyTTL),
		logger: logger,
	}
}

// StartCleaner периодически удаляет истекшие записи до отмены ctx
func (m *MemoryRepository) StartCleaner(ctx context.Context, interval time.Duration) {
	m.tracks.StartCleaner(ctx, interval)
	m.buoys.StartCleaner(ctx, interval)
}

// SaveTrack сохраняет копию сырого списка
func (m *MemoryRepository) SaveTrack(_ context.Context, searchID string, points []models.TrackPoint) error {
	if searchID == "" {
		return fmt.Errorf("search id cannot be empty")
	}
	stored := make([]models.TrackPoint, len(points))
	copy(stored, points)
	m.tracks.Set(searchID, stored)

	m.logger.WithFields(map[string]interface{}{
		"search_id": searchID,
		"points":    len(points),
	}).Debug("Saved raw track in memory")
	return nil
}

// LoadTrack возвращает сырой список. Вызывающий не должен изменять результат.
func (m *MemoryRepository) LoadTrack(_ context.Context, searchID string) ([]models.TrackPoint, error) {
	points, ok := m.tracks.Get(searchID)
	if !ok {
		return nil, fmt.Errorf("track %s: %w", searchID, ErrNotFound)
	}
	return points, nil
}

// HasTrack проверяет, что сырой список еще хранится
func (m *MemoryRepository) HasTrack(_ context.Context, searchID string) (bool, error) {
	return m.tracks.Has(searchID), nil
}

// DeleteTrack удаляет сырой список
func (m *MemoryRepository) DeleteTrack(_ context.Context, searchID string) error {
	m.tracks.Delete(searchID)
	return nil
}

// SaveBuoys кеширует список буев
func (m *MemoryRepository) SaveBuoys(_ context.Context, buoys []models.Buoy) error {
	stored := make([]models.Buoy, len(buoys))
	copy(stored, buoys)
	m.buoys.Set(memoryBuoysKey, stored)
	return nil
}

// LoadBuoys возвращает закешированный список буев
func (m *MemoryRepository) LoadBuoys(_ context.Context) ([]models.Buoy, error) {
	buoys, ok := m.buoys.Get(memoryBuoysKey)
	if !ok {
		return nil, fmt.Errorf("buoys: %w", ErrNotFound)
	}
	return buoys, nil
}

// NearbyBuoys возвращает буи в радиусе, отсортированные по расстоянию
func (m *MemoryRepository) NearbyBuoys(ctx context.Context, center models.GeoPoint, radiusKM float64) ([]NearbyBuoy, error) {
	buoys, err := m.LoadBuoys(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]NearbyBuoy, 0)
	for _, b := range buoys {
		pos, err := b.Position()
		if err != nil {
			continue
		}
		if d := center.DistanceTo(pos); d <= radiusKM {
			result = append(result, NearbyBuoy{Buoy: b, DistanceKM: d})
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].DistanceKM < result[j].DistanceKM
	})
	if len(result) > MaxNearbyBuoys {
		result = result[:MaxNearbyBuoys]
	}
	return result, nil
}
