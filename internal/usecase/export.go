package usecase

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"
	"time"

	"go-panel-backend/pkg/apperror"

	"github.com/xuri/excelize/v2"
)

// Export formats.
const (
	FormatXLSX = "xlsx"
	FormatCSV  = "csv"
)

type exportColumn[T any] struct {
	header string
	value  func(T) any
}

// export renders items as xlsx (default) or csv and returns the file bytes
// and a timestamped filename.
func export[T any](format, name string, columns []exportColumn[T], items []T, now time.Time) ([]byte, string, error) {
	stamp := now.Format("20060102_150405")
	switch strings.ToLower(format) {
	case FormatCSV:
		data, err := exportCSV(columns, items)
		if err != nil {
			return nil, "", apperror.Internal(err)
		}
		return data, fmt.Sprintf("%s_%s.csv", name, stamp), nil
	case FormatXLSX, "":
		data, err := exportExcel(name, columns, items)
		if err != nil {
			return nil, "", apperror.Internal(err)
		}
		return data, fmt.Sprintf("%s_%s.xlsx", name, stamp), nil
	default:
		return nil, "", apperror.BadRequest("Formato de exportación no soportado.")
	}
}

func exportExcel[T any](sheet string, columns []exportColumn[T], items []T) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}

	header := make([]any, len(columns))
	for i, col := range columns {
		header[i] = strings.ToUpper(col.header)
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("write header row: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#B45309"}},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("header style: %w", err)
	}
	endCell, err := excelize.CoordinatesToCellName(max(len(columns), 1), 1)
	if err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(sheet, "A1", endCell, headerStyle); err != nil {
		return nil, fmt.Errorf("apply header style: %w", err)
	}

	for rowIdx, item := range items {
		cell, err := excelize.CoordinatesToCellName(1, rowIdx+2)
		if err != nil {
			return nil, err
		}
		row := make([]any, len(columns))
		for i, col := range columns {
			row[i] = inertCell(col.value(item))
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, fmt.Errorf("write row %d: %w", rowIdx+2, err)
		}
	}

	if len(columns) > 0 {
		last, err := excelize.ColumnNumberToName(len(columns))
		if err != nil {
			return nil, err
		}
		if err := f.SetColWidth(sheet, "A", last, 24); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write Excel file: %w", err)
	}
	return buf.Bytes(), nil
}

func exportCSV[T any](columns []exportColumn[T], items []T) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := make([]string, len(columns))
	for i, col := range columns {
		header[i] = col.header
	}
	if err := w.Write(header); err != nil {
		return nil, err
	}

	for _, item := range items {
		row := make([]string, len(columns))
		for i, col := range columns {
			row[i] = cellText(inertCell(col.value(item)))
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

func cellText(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", val)
	}
}

// inertCell prefixes user text that a spreadsheet would evaluate as a
// formula with a quote. Numbers and timestamps pass through.
func inertCell(v any) any {
	s, ok := v.(string)
	if !ok || s == "" {
		return v
	}
	switch s[0] {
	case '=', '+', '-', '@', '\t', '\r':
		return "'" + s
	}
	return v
}

// timeCell keeps empty timestamps blank in spreadsheets.
func timeCell(t *time.Time) any {
	if t == nil {
		return ""
	}
	return t.Local().Format("2006-01-02 15:04:05")
}
