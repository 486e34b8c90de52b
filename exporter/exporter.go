// Package exporter записывает результаты сверки и наборы записей в xlsx, CSV и JSON
package exporter

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"cotejo/matching"
)

// ErrUnsupportedFormat формат экспорта не поддерживается
var ErrUnsupportedFormat = errors.New("unsupported export format")

// Format формат экспорта
type Format string

const (
	FormatJSON  Format = "json"
	FormatCSV   Format = "csv"
	FormatExcel Format = "xlsx"
)

// Имена файлов по умолчанию
const (
	DefaultResultsFile = "cotejamento_resultado.xlsx"
	DefaultSourceFile  = "cliente_exportado.xlsx"
	DefaultTargetFile  = "galileu_exportado.xlsx"
)

// ResultColumns заголовок таблицы результатов
var ResultColumns = []string{
	"cliente_id",
	"galileu_id",
	"cliente_descritivo",
	"galileu_descritivo",
	"status",
	"porcentagem_string",
	"confianca_llm",
	"razao_llm",
}

const maxSheetName = 31

// Table табличные данные для экспорта
type Table struct {
	Name    string
	Columns []string
	Rows    [][]any
}

// ParseFormat разбирает имя формата (json, csv, xlsx, excel)
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(name, ".")) {
	case "json":
		return FormatJSON, nil
	case "csv":
		return FormatCSV, nil
	case "xlsx", "excel":
		return FormatExcel, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, name)
	}
}

// DetectFormat определяет формат по расширению файла
func DetectFormat(path string) (Format, error) {
	return ParseFormat(filepath.Ext(path))
}

// ContentType MIME-тип формата
func (f Format) ContentType() string {
	switch f {
	case FormatJSON:
		return "application/json"
	case FormatCSV:
		return "text/csv; charset=utf-8"
	default:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
}

// ResultsTable строит таблицу из результатов сверки
func ResultsTable(results []matching.MatchResult) Table {
	table := Table{Name: "Resultado", Columns: ResultColumns, Rows: make([][]any, 0, len(results))}
	for _, r := range results {
		var confidence any
		if r.ArbiterConfidence != nil {
			confidence = *r.ArbiterConfidence
		}
		var rationale any
		if r.HasVerdict() {
			rationale = r.ArbiterRationale
		}
		table.Rows = append(table.Rows, []any{
			r.SourceID,
			r.TargetID,
			r.SourceDescription,
			r.TargetDescription,
			r.TargetStatus,
			r.Similarity,
			confidence,
			rationale,
		})
	}
	return table
}

// RecordsTable строит таблицу из записей. Колонки берутся в порядке первого появления.
func RecordsTable(name string, records []*matching.Record) Table {
	table := Table{Name: name, Rows: make([][]any, 0, len(records))}
	seen := make(map[string]bool)
	for _, record := range records {
		for _, column := range record.Columns() {
			if !seen[column] {
				seen[column] = true
				table.Columns = append(table.Columns, column)
			}
		}
	}
	for _, record := range records {
		row := make([]any, len(table.Columns))
		for i, column := range table.Columns {
			row[i], _ = record.Get(column)
		}
		table.Rows = append(table.Rows, row)
	}
	return table
}

// WriteFile записывает таблицу в файл; формат определяется по расширению
func WriteFile(path string, table Table) error {
	format, err := DetectFormat(path)
	if err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	if err := Write(file, format, table); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// Write записывает таблицу в поток
func Write(w io.Writer, format Format, table Table) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, table)
	case FormatCSV:
		return writeCSV(w, table)
	case FormatExcel:
		return writeExcel(w, table)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

func writeJSON(w io.Writer, table Table) error {
	items := make([]*matching.Record, len(table.Rows))
	for i, row := range table.Rows {
		items[i] = matching.NewRecordWithColumns(table.Columns, row)
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	result := map[string]any{
		"exported_at": time.Now().Format(time.RFC3339),
		"total":       len(items),
		"items":       items,
	}
	if err := encoder.Encode(result); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

func writeCSV(w io.Writer, table Table) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(table.Columns); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}
	record := make([]string, len(table.Columns))
	for _, row := range table.Rows {
		for i := range record {
			record[i] = ""
			if i < len(row) {
				record[i] = matching.CellString(row[i])
			}
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

func writeExcel(w io.Writer, table Table) error {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := sheetName(table.Name)
	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}

	// Стиль заголовков
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	for i, header := range table.Columns {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheetName, cell, header); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
		if err := f.SetCellStyle(sheetName, cell, cell, headerStyle); err != nil {
			return fmt.Errorf("failed to style header: %w", err)
		}
	}

	for rowIdx, row := range table.Rows {
		for colIdx, value := range row {
			if value == nil || colIdx >= len(table.Columns) {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheetName, cell, value); err != nil {
				return fmt.Errorf("failed to write cell %s: %w", cell, err)
			}
		}
	}

	for i := range table.Columns {
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(sheetName, col, col, columnWidth(table, i)); err != nil {
			return fmt.Errorf("failed to set column width: %w", err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write Excel file: %w", err)
	}
	return nil
}

// columnWidth ширина по самому длинному значению первых строк, в пределах 10..60
func columnWidth(table Table, col int) float64 {
	width := len([]rune(table.Columns[col]))
	for i, row := range table.Rows {
		if i >= 200 {
			break
		}
		if col < len(row) {
			width = max(width, len([]rune(matching.CellString(row[col]))))
		}
	}
	return float64(min(max(width+2, 10), 60))
}

func sheetName(name string) string {
	name = strings.Map(func(r rune) rune {
		if strings.ContainsRune(`[]:*?/\`, r) {
			return '_'
		}
		return r
	}, strings.TrimSpace(name))
	if name == "" {
		return "Dados"
	}
	if runes := []rune(name); len(runes) > maxSheetName {
		name = string(runes[:maxSheetName])
	}
	return name
}
