package filter

import (
	"github.com/flybeeper/ais-dashboard/internal/models"
)

// TrackData трек судна для фильтрации
type TrackData struct {
	MMSI   string              `json:"mmsi"`
	Name   string              `json:"name,omitempty"`
	Points []models.TrackPoint `json:"points"`
}

// FilterResult результат фильтрации
type FilterResult struct {
	OriginalCount int                 `json:"original_count"`
	FilteredCount int                 `json:"filtered_count"`
	Points        []models.TrackPoint `json:"points"`
	Statistics    FilterStats         `json:"statistics"`
}

// FilterStats статистика фильтрации
type FilterStats struct {
	Dropped         int   `json:"dropped"`
	OutOfOrder      int   `json:"out_of_order"`       // Шаги, где время уменьшается
	SpanSeconds     int64 `json:"span_seconds"`       // Длительность исходного трека
	KeptSpanSeconds int64 `json:"kept_span_seconds"`  // Длительность результата
}

// TrackFilter интерфейс для фильтров треков
type TrackFilter interface {
	// Filter применяет фильтр к треку. Входной трек не изменяется.
	Filter(track *TrackData) (*FilterResult, error)

	// Name возвращает имя фильтра
	Name() string

	// Description возвращает описание фильтра
	Description() string
}

// FilterConfig конфигурация цепочки фильтров
type FilterConfig struct {
	Sample SampleFilterConfig `json:"sample"`
	Order  OrderPolicy        `json:"order"`
}

// DefaultFilterConfig возвращает конфигурацию по умолчанию: без прореживания
func DefaultFilterConfig() *FilterConfig {
	return &FilterConfig{
		Sample: SampleFilterConfig{MinGapSeconds: 0},
		Order:  OrderPermissive,
	}
}
