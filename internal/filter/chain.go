package filter

import (
	"fmt"
	"time"

	"github.com/flybeeper/ais-dashboard/internal/models"
	"github.com/flybeeper/ais-dashboard/pkg/utils"
)

// FilterChain цепочка фильтров для последовательного применения
type FilterChain struct {
	filters []TrackFilter
	config  *FilterConfig
	logger  *utils.Logger
}

// NewFilterChain создает новую цепочку фильтров
func NewFilterChain(config *FilterConfig, logger *utils.Logger) *FilterChain {
	chain := &FilterChain{
		filters: make([]TrackFilter, 0),
		config:  config,
		logger:  logger,
	}

	chain.AddFilter(NewTimeGapFilter(config, logger))

	return chain
}

// AddFilter добавляет фильтр в цепочку
func (fc *FilterChain) AddFilter(filter TrackFilter) {
	fc.filters = append(fc.filters, filter)
}

// Filter применяет все фильтры в цепочке. Ошибка любого фильтра прерывает цепочку.
func (fc *FilterChain) Filter(track *TrackData) (*FilterResult, error) {
	if len(track.Points) == 0 {
		return &FilterResult{
			Points: []models.TrackPoint{},
		}, nil
	}

	originalCount := len(track.Points)
	currentTrack := *track // Копируем заголовок трека, точки не изменяются
	combinedStats := FilterStats{
		SpanSeconds: models.TimeSpan(track.Points),
	}

	for _, filter := range fc.filters {
		start := time.Now()

		result, err := filter.Filter(&currentTrack)
		if err != nil {
			fc.logger.WithField("filter", filter.Name()).
				WithField("error", err).
				Warn("Filter failed")
			return nil, fmt.Errorf("%s: %w", filter.Name(), err)
		}

		fc.logger.WithField("filter", filter.Name()).
			WithField("input_points", len(currentTrack.Points)).
			WithField("output_points", len(result.Points)).
			WithField("duration_ms", time.Since(start).Milliseconds()).
			Debug("Filter applied")

		currentTrack.Points = result.Points
		combinedStats.OutOfOrder += result.Statistics.OutOfOrder
	}

	finalCount := len(currentTrack.Points)
	combinedStats.Dropped = originalCount - finalCount
	combinedStats.KeptSpanSeconds = models.TimeSpan(currentTrack.Points)

	return &FilterResult{
		OriginalCount: originalCount,
		FilteredCount: combinedStats.Dropped,
		Points:        currentTrack.Points,
		Statistics:    combinedStats,
	}, nil
}

// Name возвращает имя цепочки фильтров
func (fc *FilterChain) Name() string {
	return "FilterChain"
}

// Description возвращает описание цепочки фильтров
func (fc *FilterChain) Description() string {
	filterNames := make([]string, len(fc.filters))
	for i, filter := range fc.filters {
		filterNames[i] = filter.Name()
	}
	return fmt.Sprintf("Chain of filters: %v", filterNames)
}
