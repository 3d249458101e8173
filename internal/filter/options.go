package filter

import (
	"fmt"
	"strconv"
	"strings"
)

// GapOption значение селектора интервала прореживания
type GapOption struct {
	Seconds int64  `json:"seconds"`
	Label   string `json:"label"`
}

// GapOptions значения селектора на странице истории
var GapOptions = []GapOption{
	{Seconds: 0, Label: "No filter"},
	{Seconds: 60, Label: "1 min"},
	{Seconds: 180, Label: "3 min"},
	{Seconds: 300, Label: "5 min"},
	{Seconds: 600, Label: "10 min"},
	{Seconds: 900, Label: "15 min"},
	{Seconds: 1800, Label: "30 min"},
	{Seconds: 2700, Label: "45 min"},
	{Seconds: 3600, Label: "1 h"},
	{Seconds: 8100, Label: "3 h"},
	{Seconds: 16200, Label: "6 h"},
	{Seconds: 24300, Label: "9 h"},
	{Seconds: 32400, Label: "12 h"},
}

// ParseGap разбирает интервал в секундах. Пустая строка — 0.
// Допускается любое неотрицательное целое, не только значения селектора.
func ParseGap(s string) (SampleFilterConfig, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return SampleFilterConfig{}, nil
	}

	gap, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return SampleFilterConfig{}, fmt.Errorf("gap must be an integer number of seconds: %q", s)
	}
	if gap < 0 {
		return SampleFilterConfig{}, fmt.Errorf("gap must not be negative: %d", gap)
	}

	return SampleFilterConfig{MinGapSeconds: gap}, nil
}
