package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SamplerPoints количество точек до и после прореживания
	SamplerPoints = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ais_sampler_points_total",
		Help: "Number of track points seen by the sampler, by stage (input/kept)",
	}, []string{"stage"})

	// SamplerOutOfOrder количество шагов назад по времени во входных треках
	SamplerOutOfOrder = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ais_sampler_out_of_order_total",
		Help: "Number of decreasing timestamp steps seen in sampler input",
	})

	// SamplerRejected треки, отклоненные политикой порядка
	SamplerRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ais_sampler_rejected_tracks_total",
		Help: "Number of tracks rejected by the timestamp order policy",
	})

	// TrackPointsFetched размер сырых списков от AIS бэкенда
	TrackPointsFetched = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ais_track_points_fetched",
		Help:    "Number of points in raw history routes",
		Buckets: []float64{0, 10, 100, 500, 1000, 5000, 10000, 50000, 100000},
	})
)

// ObserveSample учитывает один прогон прореживания
func ObserveSample(input, kept, outOfOrder int) {
	SamplerPoints.WithLabelValues("input").Add(float64(input))
	SamplerPoints.WithLabelValues("kept").Add(float64(kept))
	if outOfOrder > 0 {
		SamplerOutOfOrder.Add(float64(outOfOrder))
	}
}
