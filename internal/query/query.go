// Package query содержит неизменяемые параметры запросов к AIS бэкенду
// и чистые функции построения query string.
package query

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrInvalidParams параметры запроса некорректны
	ErrInvalidParams = errors.New("invalid query parameters")
)

// RadiusOptions радиусы зоны сканирования на странице анализа (метры)
var RadiusOptions = []int{10, 100, 1000}

const (
	// MinWindowHours минимальная длительность окна анализа
	MinWindowHours = 1
	// MaxWindowHours максимальная длительность окна анализа
	MaxWindowHours = 24
)

// HistoryParams параметры поиска исторического маршрута
type HistoryParams struct {
	MMSI  string
	Name  string
	Begin time.Time // Нулевое значение — без ограничения
	End   time.Time
}

// Validate проверяет параметры
func (p HistoryParams) Validate() error {
	if strings.TrimSpace(p.MMSI) == "" && strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: mmsi or name is required", ErrInvalidParams)
	}
	if !p.Begin.IsZero() && !p.End.IsZero() && p.End.Before(p.Begin) {
		return fmt.Errorf("%w: end is before begin", ErrInvalidParams)
	}
	return nil
}

// Values строит параметры запроса /ais/historyroute. nonce отключает кеширование на стороне бэкенда.
func (p HistoryParams) Values(nonce int64) url.Values {
	v := url.Values{}
	v.Set("mmsi", strings.TrimSpace(p.MMSI))
	v.Set("name", strings.TrimSpace(p.Name))
	v.Set("calsign", "")
	v.Set("imo", "")
	v.Set("begin", unixOrEmpty(p.Begin))
	v.Set("end", unixOrEmpty(p.End))
	v.Set("async", "0")
	v.Set("_", strconv.FormatInt(nonce, 10))
	return v
}

// ActivityParams параметры анализа активности у буя
type ActivityParams struct {
	MMSI         string
	BuoyID       string
	Start        time.Time
	Hours        int
	RadiusMeters int
}

// End конец окна анализа
func (p ActivityParams) End() time.Time {
	return p.Start.Add(time.Duration(p.Hours) * time.Hour)
}

// Validate проверяет параметры. allowAnyRadius снимает ограничение RadiusOptions.
func (p ActivityParams) Validate(allowAnyRadius bool) error {
	if strings.TrimSpace(p.BuoyID) == "" {
		return fmt.Errorf("%w: buoy_id is required", ErrInvalidParams)
	}
	if p.Start.IsZero() {
		return fmt.Errorf("%w: start_time is required", ErrInvalidParams)
	}
	if p.Hours < MinWindowHours || p.Hours > MaxWindowHours {
		return fmt.Errorf("%w: hours must be between %d and %d", ErrInvalidParams, MinWindowHours, MaxWindowHours)
	}
	if p.RadiusMeters <= 0 {
		return fmt.Errorf("%w: radius must be positive", ErrInvalidParams)
	}
	if !allowAnyRadius && !isRadiusOption(p.RadiusMeters) {
		return fmt.Errorf("%w: radius must be one of %v", ErrInvalidParams, RadiusOptions)
	}
	return nil
}

// Values строит параметры запроса /ais/buoy-activity
func (p ActivityParams) Values() url.Values {
	v := url.Values{}
	v.Set("mmsi", strings.TrimSpace(p.MMSI))
	v.Set("buoy_id", strings.TrimSpace(p.BuoyID))
	v.Set("start_time", strconv.FormatInt(p.Start.Unix(), 10))
	v.Set("end_time", strconv.FormatInt(p.End().Unix(), 10))
	v.Set("radius", strconv.Itoa(p.RadiusMeters))
	return v
}

func isRadiusOption(r int) bool {
	for _, opt := range RadiusOptions {
		if opt == r {
			return true
		}
	}
	return false
}

func unixOrEmpty(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return strconv.FormatInt(t.Unix(), 10)
}
