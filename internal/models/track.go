package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// TrackPoint точка исторического трека судна в формате AIS бэкенда.
// После получения точка не изменяется.
type TrackPoint struct {
	Timestamp  int64      `json:"utcpos"`   // Unix время отчета (секунды)
	Latitude   float64    `json:"lat"`      // Широта
	Longitude  float64    `json:"lon"`      // Долгота
	Heading    FlexString `json:"cog"`      // Курс над грунтом (градусы)
	Speed      FlexString `json:"sog"`      // Скорость над грунтом (узлы)
	DistanceKm float64    `json:"distance"` // Расстояние от предыдущей точки (км), считает бэкенд
	Name       string     `json:"name,omitempty"`
}

// Position возвращает координаты точки
func (tp TrackPoint) Position() GeoPoint {
	return GeoPoint{Latitude: tp.Latitude, Longitude: tp.Longitude}
}

// Polyline конвертирует точки трека в линию для карты
func Polyline(points []TrackPoint) []LatLng {
	line := make([]LatLng, len(points))
	for i, p := range points {
		line[i] = LatLng{Lat: p.Latitude, Lng: p.Longitude}
	}
	return line
}

// TimeSpan возвращает разницу между последней и первой точкой в секундах
func TimeSpan(points []TrackPoint) int64 {
	if len(points) < 2 {
		return 0
	}
	return points[len(points)-1].Timestamp - points[0].Timestamp
}

// FlexString значение, которое бэкенд присылает то строкой, то числом (cog, sog, mmsi)
type FlexString string

// UnmarshalJSON принимает строку, число или null
func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("flex string: unsupported value %s", string(data))
	}
	*f = FlexString(n.String())
	return nil
}

// String возвращает строковое значение
func (f FlexString) String() string {
	return string(f)
}

// Float пытается разобрать значение как число
func (f FlexString) Float() (float64, bool) {
	v, err := strconv.ParseFloat(string(f), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
