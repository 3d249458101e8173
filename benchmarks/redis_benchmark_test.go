package benchmarks

import (
	"context"
	"fmt"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/flybeeper/ais-dashboard/internal/config"
	"github.com/flybeeper/ais-dashboard/internal/models"
	"github.com/flybeeper/ais-dashboard/internal/repository"
	"github.com/flybeeper/ais-dashboard/pkg/utils"
)

// setupRedisRepository репозиторий поверх miniredis
func setupRedisRepository(b *testing.B) *repository.RedisRepository {
	b.Helper()
	server := miniredis.RunT(b)

	repo, err := repository.NewRedisRepository(&config.RedisConfig{URL: "redis://" + server.Addr()}, nil, utils.NopLogger())
	if err != nil {
		b.Fatal(err)
	}
	b.Cleanup(func() { repo.Close() })
	return repo
}

// BenchmarkTrackStore сохранение и чтение сырого списка
func BenchmarkTrackStore(b *testing.B) {
	ctx := context.Background()
	repo := setupRedisRepository(b)

	for _, size := range []int{1000, 8640} {
		points := generateTrack(size)

		b.Run(fmt.Sprintf("Save/points=%d", size), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				if err := repo.SaveTrack(ctx, "bench", points); err != nil {
					b.Fatal(err)
				}
			}
		})

		b.Run(fmt.Sprintf("Load/points=%d", size), func(b *testing.B) {
			if err := repo.SaveTrack(ctx, "bench", points); err != nil {
				b.Fatal(err)
			}
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := repo.LoadTrack(ctx, "bench"); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// BenchmarkNearbyBuoys гео-поиск по индексу буев
func BenchmarkNearbyBuoys(b *testing.B) {
	ctx := context.Background()
	repo := setupRedisRepository(b)

	buoys := make([]models.Buoy, 500)
	for i := range buoys {
		buoys[i] = models.Buoy{
			ID:   fmt.Sprintf("b%d", i),
			Name: fmt.Sprintf("Buoy %d", i),
			Area: fmt.Sprintf("Area %d", i%10),
			Lat:  fmt.Sprintf("%.4f", 8.0+float64(i)*0.02),
			Lng:  fmt.Sprintf("%.4f", 105.0+float64(i%50)*0.05),
		}
	}
	if err := repo.SaveBuoys(ctx, buoys); err != nil {
		b.Fatal(err)
	}
	center := models.GeoPoint{Latitude: 12.0, Longitude: 106.0}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := repo.NearbyBuoys(ctx, center, 50); err != nil {
			b.Fatal(err)
		}
	}
}
