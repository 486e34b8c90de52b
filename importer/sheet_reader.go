// Package importer читает табличные наборы данных (xlsx, csv) в записи для сверки
package importer

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"

	"cotejo/matching"
)

var (
	// ErrUnsupportedFormat расширение файла не поддерживается
	ErrUnsupportedFormat = errors.New("unsupported file format")
	// ErrSheetNotFound в книге нет листа с заданным именем
	ErrSheetNotFound = errors.New("sheet not found")
)

// EmptyHeaderPrefix имя для колонок без заголовка: __EMPTY, __EMPTY_1, ...
const EmptyHeaderPrefix = "__EMPTY"

// Format формат табличного файла
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
)

// ReadOptions параметры чтения
type ReadOptions struct {
	Sheet       string // имя листа; пусто = первый лист
	StripMarkup bool   // убирать HTML-разметку из текстовых ячеек
	Comma       rune   // разделитель CSV; 0 = определить по заголовку
}

// Sheet прочитанный лист: заголовок и строки данных
type Sheet struct {
	Name    string
	Columns []string
	Records []*matching.Record
}

// DetectFormat определяет формат по расширению файла
func DetectFormat(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm", ".xltx", ".xltm":
		return FormatXLSX, nil
	case ".csv", ".txt", ".tsv":
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// ReadFile читает файл xlsx или csv
func ReadFile(path string, opts ReadOptions) (*Sheet, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	sheet, err := Read(file, format, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	if sheet.Name == "" {
		sheet.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return sheet, nil
}

// Read читает набор данных из потока заданного формата
func Read(r io.Reader, format Format, opts ReadOptions) (*Sheet, error) {
	switch format {
	case FormatXLSX:
		return ReadExcel(r, opts)
	case FormatCSV:
		return ReadCSV(r, opts)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

// ReadExcel читает лист книги Excel. Первая строка листа считается заголовком.
func ReadExcel(r io.Reader, opts ReadOptions) (*Sheet, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheetName := opts.Sheet
	if sheetName == "" {
		sheetName = f.GetSheetName(0)
	}
	if sheetName == "" {
		return nil, fmt.Errorf("no sheets found in Excel file")
	}
	if idx, err := f.GetSheetIndex(sheetName); err != nil || idx < 0 {
		return nil, fmt.Errorf("%w: %q (available: %s)", ErrSheetNotFound, sheetName, strings.Join(f.GetSheetList(), ", "))
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to get rows: %w", err)
	}

	sheet := buildSheet(rows, opts)
	sheet.Name = sheetName
	return sheet, nil
}

// SheetNames возвращает имена листов книги
func SheetNames(path string) ([]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()
	return f.GetSheetList(), nil
}

// ReadCSV читает CSV. Кодировка: UTF-8 (с BOM или без), иначе Windows-1252.
func ReadCSV(r io.Reader, opts ReadOptions) (*Sheet, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	if !utf8.Valid(data) {
		decoded, err := charmap.Windows1252.NewDecoder().Bytes(data)
		if err != nil {
			return nil, fmt.Errorf("failed to decode CSV: %w", err)
		}
		data = decoded
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = opts.Comma
	if reader.Comma == 0 {
		reader.Comma = detectDelimiter(data)
	}
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse CSV: %w", err)
	}
	return buildSheet(rows, opts), nil
}

// detectDelimiter выбирает самый частый из ; , и табуляции в первой строке
func detectDelimiter(data []byte) rune {
	line := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		line = data[:i]
	}
	best, bestCount := ',', 0
	for _, candidate := range []rune{',', ';', '\t'} {
		if n := bytes.Count(line, []byte(string(candidate))); n > bestCount {
			best, bestCount = candidate, n
		}
	}
	return best
}

// buildSheet превращает строки таблицы в записи; полностью пустые строки пропускаются
func buildSheet(rows [][]string, opts ReadOptions) *Sheet {
	sheet := &Sheet{Records: []*matching.Record{}}
	if len(rows) == 0 {
		return sheet
	}

	width := 0
	for _, row := range rows {
		width = max(width, len(row))
	}
	sheet.Columns = normalizeHeaders(rows[0], width)

	for _, row := range rows[1:] {
		if isBlankRow(row) {
			continue
		}
		values := make([]any, len(sheet.Columns))
		for i := range sheet.Columns {
			if i >= len(row) {
				continue
			}
			cell := row[i]
			if opts.StripMarkup {
				cell = StripMarkup(cell)
			}
			if strings.TrimSpace(cell) == "" {
				continue
			}
			values[i] = cell
		}
		sheet.Records = append(sheet.Records, matching.NewRecordWithColumns(sheet.Columns, values))
	}
	return sheet
}

// normalizeHeaders обрезает пробелы, дает имена пустым заголовкам и разводит повторы суффиксом _N
func normalizeHeaders(header []string, width int) []string {
	columns := make([]string, width)
	seen := make(map[string]int, width)
	empty := 0

	for i := 0; i < width; i++ {
		name := ""
		if i < len(header) {
			name = strings.TrimSpace(header[i])
		}
		if name == "" {
			name = EmptyHeaderPrefix
			if empty > 0 {
				name = fmt.Sprintf("%s_%d", EmptyHeaderPrefix, empty)
			}
			empty++
		}
		base := name
		for seen[name] > 0 {
			name = fmt.Sprintf("%s_%d", base, seen[base])
			seen[base]++
		}
		seen[name]++
		columns[i] = name
	}
	return columns
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
