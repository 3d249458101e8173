package format

import (
	"testing"
	"time"

	"github.com/flybeeper/ais-dashboard/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDMS(t *testing.T) {
	tests := []struct {
		name  string
		deg   float64
		isLat bool
		want  string
	}{
		{"north latitude", 21.0285, true, "21° 1′ 42.60″ N"},
		{"south latitude", -33.5, true, "33° 30′ 0.00″ S"},
		{"west longitude", -105.5, false, "105° 30′ 0.00″ W"},
		{"east longitude", 106.25, false, "106° 15′ 0.00″ E"},
		{"zero", 0, true, "0° 0′ 0.00″ N"},
		{"small negative", -0.5, false, "0° 30′ 0.00″ W"},
		{"seconds carry", 10 + 59.0/60 + 59.999/3600, true, "11° 0′ 0.00″ N"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DMS(tt.deg, tt.isLat))
		})
	}
}

func TestPosition(t *testing.T) {
	assert.Equal(t, "10° 30′ 0.00″ N 106° 45′ 0.00″ E", Position(10.5, 106.75))
}

func TestTime(t *testing.T) {
	ict := time.FixedZone("ICT", 7*3600)
	assert.Equal(t, "05:13:20 15/11/2023", Time(1700000000, ict))
	assert.Equal(t, "22:13:20 14/11/2023", Time(1700000000, nil))
}

func TestLoadLocation(t *testing.T) {
	loc, err := LoadLocation("")
	require.NoError(t, err)
	assert.Equal(t, DefaultTimeZone, loc.String())
	assert.Equal(t, "05:13:20 15/11/2023", Time(1700000000, loc))

	_, err = LoadLocation("Mars/Olympus_Mons")
	assert.Error(t, err)
}

func TestDistance(t *testing.T) {
	assert.Equal(t, "10.00 km (5.40 nm)", Distance(10))
	assert.Equal(t, "0.00 km (0.00 nm)", Distance(0))
	assert.Equal(t, "1.85 km (1.00 nm)", Distance(1.852))
}

func TestDurationMinSec(t *testing.T) {
	assert.Equal(t, "2 min 5 s", DurationMinSec(125.4))
	assert.Equal(t, "0 min 59 s", DurationMinSec(59))
	assert.Equal(t, "60 min 0 s", DurationMinSec(3600))
	assert.Equal(t, "0 min 0 s", DurationMinSec(-3))
}

func TestMakeRow(t *testing.T) {
	p := models.TrackPoint{
		Timestamp:  1700000000,
		Latitude:   10.5,
		Longitude:  106.75,
		Heading:    "271",
		Speed:      "8.4",
		DistanceKm: 3.704,
	}

	row := MakeRow(1, p, time.UTC)
	assert.Equal(t, Row{
		Index:    1,
		Time:     "22:13:20 14/11/2023",
		Position: "10° 30′ 0.00″ N 106° 45′ 0.00″ E",
		Heading:  "271",
		Speed:    "8.4",
		Distance: "3.70 km (2.00 nm)",
	}, row)
	assert.Equal(t, []string{
		"22:13:20 14/11/2023",
		"10° 30′ 0.00″ N 106° 45′ 0.00″ E",
		"271",
		"8.4",
		"3.70 km (2.00 nm)",
	}, row.Cells())
	assert.Len(t, Headers, 5)
}
