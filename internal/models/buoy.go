package models

import (
	"fmt"
	"strconv"
	"strings"
)

// Buoy фиксированный буй, центр зоны сканирования.
// Координаты бэкенд присылает строками.
type Buoy struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Area string `json:"area"`
	Lat  string `json:"lat"`
	Lng  string `json:"lng"`
}

// Position разбирает координаты буя
func (b Buoy) Position() (GeoPoint, error) {
	lat, err := strconv.ParseFloat(strings.TrimSpace(b.Lat), 64)
	if err != nil {
		return GeoPoint{}, fmt.Errorf("buoy %s: invalid lat %q: %w", b.ID, b.Lat, err)
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(b.Lng), 64)
	if err != nil {
		return GeoPoint{}, fmt.Errorf("buoy %s: invalid lng %q: %w", b.ID, b.Lng, err)
	}

	p := GeoPoint{Latitude: lat, Longitude: lng}
	if err := p.Validate(); err != nil {
		return GeoPoint{}, fmt.Errorf("buoy %s: %w", b.ID, err)
	}
	return p, nil
}

// Label подпись маркера на карте
func (b Buoy) Label() string {
	return b.Area + " - " + b.Name
}

// Areas возвращает уникальные районы в порядке первого появления
func Areas(buoys []Buoy) []string {
	seen := make(map[string]bool, len(buoys))
	areas := make([]string, 0)
	for _, b := range buoys {
		if seen[b.Area] {
			continue
		}
		seen[b.Area] = true
		areas = append(areas, b.Area)
	}
	return areas
}

// FilterByArea возвращает буи района. Пустой area возвращает пустой список.
func FilterByArea(buoys []Buoy, area string) []Buoy {
	result := make([]Buoy, 0)
	if area == "" {
		return result
	}
	for _, b := range buoys {
		if b.Area == area {
			result = append(result, b)
		}
	}
	return result
}

// FindBuoy ищет буй по ID
func FindBuoy(buoys []Buoy, id string) (Buoy, bool) {
	for _, b := range buoys {
		if b.ID == id {
			return b, true
		}
	}
	return Buoy{}, false
}

// BuoyActivity результат анализа активности судна вокруг буя.
// Все величины вычисляет внешний бэкенд.
type BuoyActivity struct {
	BuoyName                string     `json:"buoy_name"`
	Area                    string     `json:"area"`
	MMSI                    FlexString `json:"mmsi"`
	Radius                  float64    `json:"radius"`
	InsideNow               bool       `json:"inside_now"`
	TotalTimeInsideSeconds  float64    `json:"total_time_inside_seconds"`
	AverageSpeedKnotsInside float64    `json:"average_speed_knots_inside"`
	EnterExitCount          int        `json:"enter_exit_count"`
	NearestDistanceMeters   float64    `json:"nearest_distance_meters"`
	Polyline                []GeoPoint `json:"polyline"`
}

// MapPolyline конвертирует {lat,lon} в {lat,lng}
func (a *BuoyActivity) MapPolyline() []LatLng {
	line := make([]LatLng, len(a.Polyline))
	for i, p := range a.Polyline {
		line[i] = p.LatLng()
	}
	return line
}
