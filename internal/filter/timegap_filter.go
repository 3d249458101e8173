package filter

import (
	"fmt"

	"github.com/flybeeper/ais-dashboard/internal/models"
	"github.com/flybeeper/ais-dashboard/pkg/utils"
)

// TimeGapFilter прореживание трека по минимальному интервалу времени
type TimeGapFilter struct {
	sample SampleFilterConfig
	order  OrderPolicy
	logger *utils.Logger
}

// NewTimeGapFilter создает фильтр прореживания
func NewTimeGapFilter(config *FilterConfig, logger *utils.Logger) *TimeGapFilter {
	sample := config.Sample
	if sample.MinGapSeconds < 0 {
		sample.MinGapSeconds = 0
	}
	return &TimeGapFilter{
		sample: sample,
		order:  config.Order,
		logger: logger,
	}
}

// Filter применяет прореживание к треку
func (f *TimeGapFilter) Filter(track *TrackData) (*FilterResult, error) {
	if len(track.Points) == 0 {
		return &FilterResult{Points: []models.TrackPoint{}}, nil
	}

	outOfOrder := CountOutOfOrder(track.Points)

	points, err := ApplyOrderPolicy(track.Points, f.order)
	if err != nil {
		return nil, fmt.Errorf("time gap filter: %w", err)
	}

	kept := Sample(points, f.sample)

	stats := FilterStats{
		Dropped:         len(track.Points) - len(kept),
		OutOfOrder:      outOfOrder,
		SpanSeconds:     models.TimeSpan(points),
		KeptSpanSeconds: models.TimeSpan(kept),
	}

	if outOfOrder > 0 {
		f.logger.WithField("mmsi", track.MMSI).
			WithField("out_of_order", outOfOrder).
			WithField("policy", f.order.String()).
			Warn("Track points are not in time order")
	}

	f.logger.WithField("mmsi", track.MMSI).
		WithField("min_gap_seconds", f.sample.MinGapSeconds).
		WithField("input_points", len(track.Points)).
		WithField("kept_points", len(kept)).
		Debug("Time gap sampling applied")

	return &FilterResult{
		OriginalCount: len(track.Points),
		FilteredCount: stats.Dropped,
		Points:        kept,
		Statistics:    stats,
	}, nil
}

// Name возвращает имя фильтра
func (f *TimeGapFilter) Name() string {
	return "TimeGapFilter"
}

// Description возвращает описание фильтра
func (f *TimeGapFilter) Description() string {
	return fmt.Sprintf("Keeps the first point and every point at least %ds after the last kept one (order: %s)",
		f.sample.MinGapSeconds, f.order)
}
