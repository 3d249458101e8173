// Package export строит табличное представление маршрута и файлы выгрузки
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/flybeeper/ais-dashboard/internal/format"
	"github.com/flybeeper/ais-dashboard/internal/models"
	"github.com/xuri/excelize/v2"
)

const (
	// MaxTableRows максимальное число строк в таблице на экране
	MaxTableRows = 1000
	// SheetName имя листа в XLSX выгрузке
	SheetName = "HistoryRoute"
	// FilePrefix префикс имени файла выгрузки
	FilePrefix = "HistoryRoute"
)

// TruncatedNotice показывается, когда таблица обрезана
var TruncatedNotice = fmt.Sprintf("Only the first %d records are shown, download the xlsx file to see the whole route.", MaxTableRows)

// Format формат файла выгрузки
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
)

// ParseFormat разбирает формат, пустая строка — xlsx
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatXLSX:
		return FormatXLSX, nil
	case FormatCSV:
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", s)
	}
}

// ContentType MIME тип формата
func (f Format) ContentType() string {
	if f == FormatCSV {
		return "text/csv; charset=utf-8"
	}
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

// Table отображаемая часть маршрута
type Table struct {
	Rows      []format.Row `json:"rows"`
	Total     int          `json:"total"`
	Truncated bool         `json:"truncated"`
	Notice    string       `json:"notice,omitempty"`
}

// TableView строит таблицу из первых MaxTableRows точек
func TableView(points []models.TrackPoint, loc *time.Location) Table {
	n := len(points)
	if n > MaxTableRows {
		n = MaxTableRows
	}

	table := Table{
		Rows:  make([]format.Row, n),
		Total: len(points),
	}
	for i := 0; i < n; i++ {
		table.Rows[i] = format.MakeRow(i+1, points[i], loc)
	}
	if len(points) > MaxTableRows {
		table.Truncated = true
		table.Notice = TruncatedNotice
	}
	return table
}

// Write пишет все точки в w в заданном формате
func Write(w io.Writer, f Format, points []models.TrackPoint, loc *time.Location) error {
	switch f {
	case FormatXLSX:
		return XLSX(w, points, loc)
	case FormatCSV:
		return CSV(w, points, loc)
	default:
		return fmt.Errorf("unsupported export format %q", f)
	}
}

// XLSX пишет книгу с листом HistoryRoute: заголовок и строка на каждую точку
func XLSX(w io.Writer, points []models.TrackPoint, loc *time.Location) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	sw, err := f.NewStreamWriter(SheetName)
	if err != nil {
		return fmt.Errorf("create stream writer: %w", err)
	}

	if err := sw.SetRow("A1", toInterfaces(format.Headers)); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, p := range points {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, toInterfaces(format.MakeRow(i+1, p, loc).Cells())); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return fmt.Errorf("flush sheet: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// CSV пишет те же колонки, что и XLSX
func CSV(w io.Writer, points []models.TrackPoint, loc *time.Location) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(format.Headers); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, p := range points {
		if err := cw.Write(format.MakeRow(i+1, p, loc).Cells()); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// FileName имя файла выгрузки: <prefix>_<unix ms>.<ext>
func FileName(prefix string, now time.Time, f Format) string {
	return fmt.Sprintf("%s_%d.%s", prefix, now.UnixMilli(), f)
}

func toInterfaces(cells []string) []interface{} {
	out := make([]interface{}, len(cells))
	for i, c := range cells {
		out[i] = c
	}
	return out
}
