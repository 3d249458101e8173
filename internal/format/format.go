// Package format отвечает за человекочитаемое представление точек трека
package format

import (
	"fmt"
	"math"
	"time"
	_ "time/tzdata" // база часовых поясов для контейнеров без zoneinfo

	"github.com/flybeeper/ais-dashboard/internal/models"
)

const (
	// NauticalMileKm длина морской мили в километрах
	NauticalMileKm = 1.852
	// TimeLayout формат времени таблицы (ЧЧ:ММ:СС Д/М/ГГГГ)
	TimeLayout = "15:04:05 2/1/2006"
	// DefaultTimeZone часовой пояс дашборда по умолчанию
	DefaultTimeZone = "Asia/Ho_Chi_Minh"
)

// Headers заголовки колонок выгрузки
var Headers = []string{"Time", "Position", "Heading (°)", "Speed (knots)", "Distance"}

// Row одна строка таблицы маршрута. Index показывается только на экране.
type Row struct {
	Index    int    `json:"index"`
	Time     string `json:"time"`
	Position string `json:"position"`
	Heading  string `json:"heading"`
	Speed    string `json:"speed"`
	Distance string `json:"distance"`
}

// Cells значения строки в порядке Headers, без порядкового номера
func (r Row) Cells() []string {
	return []string{r.Time, r.Position, r.Heading, r.Speed, r.Distance}
}

// LoadLocation загружает часовой пояс, пустое имя — DefaultTimeZone
func LoadLocation(name string) (*time.Location, error) {
	if name == "" {
		name = DefaultTimeZone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("load time zone %q: %w", name, err)
	}
	return loc, nil
}

// DMS переводит градусы в формат "D° M′ S.SS″ H".
// Полушарие определяется знаком, градусы и минуты берутся от модуля.
func DMS(deg float64, isLat bool) string {
	hemi := "E"
	switch {
	case isLat && deg >= 0:
		hemi = "N"
	case isLat:
		hemi = "S"
	case deg < 0:
		hemi = "W"
	}

	abs := math.Abs(deg)
	d := math.Floor(abs)
	minFloat := (abs - d) * 60
	m := math.Floor(minFloat)
	s := math.Round((minFloat-m)*60*100) / 100

	// 59.999″ округляется до 60.00″
	if s >= 60 {
		s -= 60
		m++
	}
	if m >= 60 {
		m -= 60
		d++
	}

	return fmt.Sprintf("%d° %d′ %.2f″ %s", int(d), int(m), s, hemi)
}

// Position форматирует пару координат
func Position(lat, lon float64) string {
	return DMS(lat, true) + " " + DMS(lon, false)
}

// Time форматирует Unix время в заданном часовом поясе
func Time(epoch int64, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return time.Unix(epoch, 0).In(loc).Format(TimeLayout)
}

// Distance форматирует километры с пересчетом в морские мили
func Distance(km float64) string {
	return fmt.Sprintf("%.2f km (%.2f nm)", km, km/NauticalMileKm)
}

// DurationMinSec форматирует длительность как "M min S s"
func DurationMinSec(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}
	total := int64(math.Round(seconds))
	return fmt.Sprintf("%d min %d s", total/60, total%60)
}

// MakeRow строит строку таблицы для точки с порядковым номером index (с 1)
func MakeRow(index int, p models.TrackPoint, loc *time.Location) Row {
	return Row{
		Index:    index,
		Time:     Time(p.Timestamp, loc),
		Position: Position(p.Latitude, p.Longitude),
		Heading:  p.Heading.String(),
		Speed:    p.Speed.String(),
		Distance: Distance(p.DistanceKm),
	}
}
