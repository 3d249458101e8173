package handler

import (
	"time"

	"github.com/flybeeper/ais-dashboard/internal/export"
	"github.com/flybeeper/ais-dashboard/internal/filter"
	"github.com/flybeeper/ais-dashboard/internal/format"
	"github.com/flybeeper/ais-dashboard/internal/models"
	"github.com/flybeeper/ais-dashboard/internal/session"
)

// buoyGeohashPrecision точность geohash для кластеризации маркеров (~1.2 км)
const buoyGeohashPrecision = 6

// viewJSON представление маршрута для карты и таблицы
type viewJSON struct {
	SearchID   string             `json:"search_id"`
	GapSeconds int64              `json:"gap_seconds"`
	Count      int                `json:"count"`
	RawCount   int                `json:"raw_count"`
	Polyline   []models.LatLng    `json:"polyline"`
	Table      export.Table       `json:"table"`
	Stats      filter.FilterStats `json:"stats"`
}

type searchJSON struct {
	SearchID string   `json:"search_id"`
	TotalRaw int      `json:"total_raw"`
	View     viewJSON `json:"view"`
}

type buoyJSON struct {
	models.Buoy
	Label    string         `json:"label"`
	Position *models.LatLng `json:"position,omitempty"` // nil, если координаты не разбираются
	Geohash  string         `json:"geohash,omitempty"`
}

type nearbyBuoyJSON struct {
	buoyJSON
	DistanceKM float64 `json:"distance_km"`
}

// activityJSON анализ активности с линией в формате карты
type activityJSON struct {
	*models.BuoyActivity
	Polyline   []models.LatLng `json:"polyline"`
	TimeInside string          `json:"time_inside"`
}

func convertView(v *session.View, loc *time.Location) viewJSON {
	return viewJSON{
		SearchID:   v.SearchID,
		GapSeconds: v.GapSeconds,
		Count:      len(v.Points),
		RawCount:   v.RawCount,
		Polyline:   models.Polyline(v.Points),
		Table:      export.TableView(v.Points, loc),
		Stats:      v.Stats,
	}
}

func convertBuoy(b models.Buoy) buoyJSON {
	out := buoyJSON{Buoy: b, Label: b.Label()}
	if pos, err := b.Position(); err == nil {
		ll := pos.LatLng()
		out.Position = &ll
		out.Geohash = pos.Geohash(buoyGeohashPrecision)
	}
	return out
}

func convertBuoys(buoys []models.Buoy) []buoyJSON {
	result := make([]buoyJSON, len(buoys))
	for i, b := range buoys {
		result[i] = convertBuoy(b)
	}
	return result
}

func convertActivity(a *models.BuoyActivity) activityJSON {
	return activityJSON{
		BuoyActivity: a,
		Polyline:     a.MapPolyline(),
		TimeInside:   format.DurationMinSec(a.TotalTimeInsideSeconds),
	}
}
