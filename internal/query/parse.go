package query

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DefaultRadiusMeters радиус по умолчанию на странице анализа
const DefaultRadiusMeters = 100

// ParseTime принимает Unix секунды или RFC3339. Пустая строка — нулевое время.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if sec, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(sec, 0).UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: time %q is neither unix seconds nor RFC3339", ErrInvalidParams, s)
	}
	return t, nil
}

// ParseHistoryParams строит HistoryParams из query string
func ParseHistoryParams(v url.Values) (HistoryParams, error) {
	begin, err := ParseTime(v.Get("begin"))
	if err != nil {
		return HistoryParams{}, err
	}
	end, err := ParseTime(v.Get("end"))
	if err != nil {
		return HistoryParams{}, err
	}

	p := HistoryParams{
		MMSI:  v.Get("mmsi"),
		Name:  v.Get("name"),
		Begin: begin,
		End:   end,
	}
	return p, p.Validate()
}

// ParseActivityParams строит ActivityParams из query string.
// Окно задается либо hours, либо end_time (кратно часу от start_time).
func ParseActivityParams(v url.Values, allowAnyRadius bool) (ActivityParams, error) {
	start, err := ParseTime(v.Get("start_time"))
	if err != nil {
		return ActivityParams{}, err
	}

	hours := 0
	switch {
	case v.Get("hours") != "":
		hours, err = strconv.Atoi(v.Get("hours"))
		if err != nil {
			return ActivityParams{}, fmt.Errorf("%w: hours must be an integer", ErrInvalidParams)
		}
	case v.Get("end_time") != "":
		end, err := ParseTime(v.Get("end_time"))
		if err != nil {
			return ActivityParams{}, err
		}
		window := end.Sub(start)
		if window%time.Hour != 0 {
			return ActivityParams{}, fmt.Errorf("%w: end_time must be a whole number of hours after start_time", ErrInvalidParams)
		}
		hours = int(window / time.Hour)
	}

	radius := DefaultRadiusMeters
	if r := v.Get("radius"); r != "" {
		radius, err = strconv.Atoi(r)
		if err != nil {
			return ActivityParams{}, fmt.Errorf("%w: radius must be an integer", ErrInvalidParams)
		}
	}

	p := ActivityParams{
		MMSI:         v.Get("mmsi"),
		BuoyID:       v.Get("buoy_id"),
		Start:        start,
		Hours:        hours,
		RadiusMeters: radius,
	}
	return p, p.Validate(allowAnyRadius)
}
