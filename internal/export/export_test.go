package export

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/flybeeper/ais-dashboard/internal/format"
	"github.com/flybeeper/ais-dashboard/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func makeTrack(n int) []models.TrackPoint {
	points := make([]models.TrackPoint, n)
	for i := range points {
		points[i] = models.TrackPoint{
			Timestamp:  1700000000 + int64(i)*60,
			Latitude:   10.5,
			Longitude:  106.75,
			Heading:    "90",
			Speed:      "7.2",
			DistanceKm: float64(i),
		}
	}
	return points
}

func TestTableView(t *testing.T) {
	t.Run("short track is not truncated", func(t *testing.T) {
		table := TableView(makeTrack(3), time.UTC)
		assert.Len(t, table.Rows, 3)
		assert.Equal(t, 3, table.Total)
		assert.False(t, table.Truncated)
		assert.Empty(t, table.Notice)
		assert.Equal(t, 1, table.Rows[0].Index)
		assert.Equal(t, 3, table.Rows[2].Index)
	})

	t.Run("exactly max rows", func(t *testing.T) {
		table := TableView(makeTrack(MaxTableRows), time.UTC)
		assert.Len(t, table.Rows, MaxTableRows)
		assert.False(t, table.Truncated)
	})

	t.Run("long track is capped with notice", func(t *testing.T) {
		table := TableView(makeTrack(MaxTableRows+5), time.UTC)
		assert.Len(t, table.Rows, MaxTableRows)
		assert.Equal(t, MaxTableRows+5, table.Total)
		assert.True(t, table.Truncated)
		assert.Equal(t, TruncatedNotice, table.Notice)
	})

	t.Run("empty track", func(t *testing.T) {
		table := TableView(nil, time.UTC)
		assert.NotNil(t, table.Rows)
		assert.Empty(t, table.Rows)
	})
}

func TestXLSX(t *testing.T) {
	points := makeTrack(MaxTableRows + 10)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatXLSX, points, time.UTC))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetName}, f.GetSheetList())

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	// Выгрузка не ограничена MaxTableRows
	require.Len(t, rows, len(points)+1)
	assert.Equal(t, format.Headers, rows[0])
	assert.Equal(t, format.MakeRow(1, points[0], time.UTC).Cells(), rows[1])
	for _, row := range rows {
		assert.Len(t, row, 5)
	}
	last := rows[len(rows)-1]
	assert.Equal(t, format.Time(points[len(points)-1].Timestamp, time.UTC), last[0])
	assert.Equal(t, format.Distance(points[len(points)-1].DistanceKm), last[4])
}

func TestCSV(t *testing.T) {
	points := makeTrack(2)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatCSV, points, time.UTC))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"Time", "Position", "Heading (°)", "Speed (knots)", "Distance"}, records[0])
	assert.Equal(t, "22:14:20 14/11/2023", records[2][0])
	assert.Equal(t, "1.00 km (0.54 nm)", records[2][4])
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatXLSX, f)

	f, err = ParseFormat("CSV")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, f)
	assert.Contains(t, f.ContentType(), "text/csv")

	_, err = ParseFormat("pdf")
	assert.Error(t, err)

	assert.Error(t, Write(&bytes.Buffer{}, Format("pdf"), nil, time.UTC))
}

func TestFileName(t *testing.T) {
	now := time.UnixMilli(1700000000123)
	assert.Equal(t, "HistoryRoute_1700000000123.xlsx", FileName(FilePrefix, now, FormatXLSX))
	assert.Equal(t, "HistoryRoute_1700000000123.csv", FileName(FilePrefix, now, FormatCSV))
}
