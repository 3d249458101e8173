package repository

import (
	"context"
	"errors"

	"github.com/flybeeper/ais-dashboard/internal/models"
)

// ErrNotFound запись отсутствует или истекла
var ErrNotFound = errors.New("not found")

// TrackStore хранит сырые списки точек результата поиска.
// Отфильтрованные представления не хранятся, они пересчитываются из сырого списка.
type TrackStore interface {
	SaveTrack(ctx context.Context, searchID string, points []models.TrackPoint) error
	LoadTrack(ctx context.Context, searchID string) ([]models.TrackPoint, error)
	DeleteTrack(ctx context.Context, searchID string) error
	HasTrack(ctx context.Context, searchID string) (bool, error)
}

// BuoyCache кеш списка буев с гео-поиском
type BuoyCache interface {
	SaveBuoys(ctx context.Context, buoys []models.Buoy) error
	LoadBuoys(ctx context.Context) ([]models.Buoy, error)
	NearbyBuoys(ctx context.Context, center models.GeoPoint, radiusKM float64) ([]NearbyBuoy, error)
}

// BuoyCatalog постоянный каталог буев (fallback при недоступности AIS бэкенда)
type BuoyCatalog interface {
	Ping(ctx context.Context) error
	Close() error
	SaveBuoys(ctx context.Context, buoys []models.Buoy) error
	LoadBuoys(ctx context.Context) ([]models.Buoy, error)
}

// NearbyBuoy буй с расстоянием до точки поиска
type NearbyBuoy struct {
	models.Buoy
	DistanceKM float64 `json:"distance_km"`
}

// Ensure implementations
var _ TrackStore = (*RedisRepository)(nil)
var _ BuoyCache = (*RedisRepository)(nil)
var _ TrackStore = (*MemoryRepository)(nil)
var _ BuoyCache = (*MemoryRepository)(nil)
var _ BuoyCatalog = (*MySQLRepository)(nil)
