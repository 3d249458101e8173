package filter

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/flybeeper/ais-dashboard/internal/models"
)

// ErrOutOfOrder входной трек не упорядочен по времени
var ErrOutOfOrder = errors.New("track points are not in time order")

// SampleFilterConfig параметры прореживания
type SampleFilterConfig struct {
	// Минимальный интервал между сохраненными точками (секунды). 0 — без фильтрации.
	MinGapSeconds int64 `json:"min_gap_seconds"`
}

// Sample прореживает трек: первая точка сохраняется всегда, следующая сохраняется,
// если с момента последней сохраненной прошло не меньше MinGapSeconds.
//
// Разница времени знаковая: точка с временем раньше последней сохраненной
// отбрасывается при любом положительном интервале. MinGapSeconds <= 0 означает
// отсутствие фильтрации, возвращается сам входной срез.
func Sample(points []models.TrackPoint, cfg SampleFilterConfig) []models.TrackPoint {
	if cfg.MinGapSeconds <= 0 {
		return points
	}

	result := make([]models.TrackPoint, 0, estimateKept(points, cfg.MinGapSeconds))
	var lastKept int64
	haveKept := false

	for _, p := range points {
		if !haveKept || p.Timestamp-lastKept >= cfg.MinGapSeconds {
			result = append(result, p)
			lastKept = p.Timestamp
			haveKept = true
		}
	}

	return result
}

// estimateKept оценивает размер результата по длительности трека
func estimateKept(points []models.TrackPoint, gap int64) int {
	if len(points) == 0 {
		return 0
	}
	span := models.TimeSpan(points)
	if span <= 0 {
		return 1
	}
	estimate := span/gap + 1
	if estimate > int64(len(points)) {
		return len(points)
	}
	return int(estimate)
}

// OrderPolicy поведение при нарушении порядка времени во входном треке
type OrderPolicy int

const (
	// OrderPermissive знаковое сравнение без проверки порядка
	OrderPermissive OrderPolicy = iota
	// OrderSort стабильная сортировка копии трека по времени перед прореживанием
	OrderSort
	// OrderReject ошибка ErrOutOfOrder на первом шаге назад во времени
	OrderReject
)

// String возвращает имя политики
func (p OrderPolicy) String() string {
	switch p {
	case OrderPermissive:
		return "permissive"
	case OrderSort:
		return "sort"
	case OrderReject:
		return "reject"
	default:
		return "unknown"
	}
}

// ParseOrderPolicy разбирает имя политики
func ParseOrderPolicy(s string) (OrderPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "permissive":
		return OrderPermissive, nil
	case "sort":
		return OrderSort, nil
	case "reject":
		return OrderReject, nil
	default:
		return OrderPermissive, fmt.Errorf("unknown order policy %q", s)
	}
}

// OutOfOrderError описывает первый шаг назад во времени
type OutOfOrderError struct {
	Index int   // Индекс точки с меньшим временем
	Prev  int64 // Время предыдущей точки
	Curr  int64 // Время точки Index
}

func (e *OutOfOrderError) Error() string {
	return fmt.Sprintf("point %d at %d is before previous point at %d", e.Index, e.Curr, e.Prev)
}

// Unwrap позволяет errors.Is(err, ErrOutOfOrder)
func (e *OutOfOrderError) Unwrap() error {
	return ErrOutOfOrder
}

// CheckOrder возвращает *OutOfOrderError для первого уменьшения времени
func CheckOrder(points []models.TrackPoint) error {
	for i := 1; i < len(points); i++ {
		if points[i].Timestamp < points[i-1].Timestamp {
			return &OutOfOrderError{Index: i, Prev: points[i-1].Timestamp, Curr: points[i].Timestamp}
		}
	}
	return nil
}

// CountOutOfOrder считает шаги назад во времени
func CountOutOfOrder(points []models.TrackPoint) int {
	count := 0
	for i := 1; i < len(points); i++ {
		if points[i].Timestamp < points[i-1].Timestamp {
			count++
		}
	}
	return count
}

// ApplyOrderPolicy подготавливает трек к прореживанию. Входной срез не изменяется.
func ApplyOrderPolicy(points []models.TrackPoint, policy OrderPolicy) ([]models.TrackPoint, error) {
	switch policy {
	case OrderReject:
		if err := CheckOrder(points); err != nil {
			return nil, err
		}
		return points, nil
	case OrderSort:
		if CheckOrder(points) == nil {
			return points, nil
		}
		sorted := make([]models.TrackPoint, len(points))
		copy(sorted, points)
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].Timestamp < sorted[j].Timestamp
		})
		return sorted, nil
	default:
		return points, nil
	}
}
