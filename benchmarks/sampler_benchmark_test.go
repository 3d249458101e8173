package benchmarks

import (
	"fmt"
	"testing"
	"time"

	"github.com/flybeeper/ais-dashboard/internal/export"
	"github.com/flybeeper/ais-dashboard/internal/filter"
	"github.com/flybeeper/ais-dashboard/internal/models"
	"github.com/flybeeper/ais-dashboard/pkg/utils"
)

// generateTrack трек с отчетами каждые 10 секунд (сутки ~ 8640 точек)
func generateTrack(n int) []models.TrackPoint {
	points := make([]models.TrackPoint, n)
	for i := range points {
		points[i] = models.TrackPoint{
			Timestamp:  1700000000 + int64(i)*10,
			Latitude:   10.5 + float64(i)*0.0001,
			Longitude:  106.7 + float64(i)*0.0001,
			Heading:    "90",
			Speed:      "8.1",
			DistanceKm: 0.04,
		}
	}
	return points
}

// BenchmarkSample прореживание при разных размерах трека и интервалах
func BenchmarkSample(b *testing.B) {
	for _, size := range []int{1000, 8640, 100000} {
		points := generateTrack(size)
		for _, gap := range []int64{0, 60, 3600} {
			cfg := filter.SampleFilterConfig{MinGapSeconds: gap}
			b.Run(fmt.Sprintf("points=%d/gap=%d", size, gap), func(b *testing.B) {
				b.ReportAllocs()
				b.ResetTimer()
				for i := 0; i < b.N; i++ {
					_ = filter.Sample(points, cfg)
				}
			})
		}
	}
}

// BenchmarkFilterChain полный прогон цепочки с проверкой порядка
func BenchmarkFilterChain(b *testing.B) {
	points := generateTrack(8640)
	logger := utils.NopLogger()

	for _, policy := range []filter.OrderPolicy{filter.OrderPermissive, filter.OrderSort, filter.OrderReject} {
		chain := filter.NewFilterChain(&filter.FilterConfig{
			Sample: filter.SampleFilterConfig{MinGapSeconds: 300},
			Order:  policy,
		}, logger)
		track := &filter.TrackData{MMSI: "574792499", Points: points}

		b.Run(policy.String(), func(b *testing.B) {
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := chain.Filter(track); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// BenchmarkTableView форматирование таблицы (ограничена MaxTableRows)
func BenchmarkTableView(b *testing.B) {
	points := generateTrack(8640)
	loc := time.UTC

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = export.TableView(points, loc)
	}
}
