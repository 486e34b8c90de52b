package matching

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Record одна строка табличного набора данных: упорядоченное отображение
// имя колонки -> значение ячейки (строка, число или пусто).
// Ядро сверки только читает записи; дописывать колонки могут внешние этапы (корректура).
type Record struct {
	columns []string
	values  map[string]any
}

// NewRecord создает пустую запись
func NewRecord() *Record {
	return &Record{values: make(map[string]any)}
}

// NewRecordWithColumns создает запись из параллельных срезов колонок и значений.
// Лишние значения отбрасываются, недостающие считаются пустыми.
func NewRecordWithColumns(columns []string, values []any) *Record {
	r := &Record{
		columns: make([]string, 0, len(columns)),
		values:  make(map[string]any, len(columns)),
	}
	for i, column := range columns {
		var value any
		if i < len(values) {
			value = values[i]
		}
		r.Set(column, value)
	}
	return r
}

// Set устанавливает значение; новая колонка добавляется в конец
func (r *Record) Set(column string, value any) {
	if _, exists := r.values[column]; !exists {
		r.columns = append(r.columns, column)
	}
	r.values[column] = value
}

// Get возвращает сырое значение колонки
func (r *Record) Get(column string) (any, bool) {
	if r == nil {
		return nil, false
	}
	value, ok := r.values[column]
	return value, ok
}

// Has проверяет наличие колонки
func (r *Record) Has(column string) bool {
	_, ok := r.Get(column)
	return ok
}

// String возвращает значение колонки, приведенное к строке; пустая или отсутствующая ячейка дает ""
func (r *Record) String(column string) string {
	value, _ := r.Get(column)
	return CellString(value)
}

// Columns возвращает копию списка колонок в исходном порядке
func (r *Record) Columns() []string {
	if r == nil {
		return nil
	}
	out := make([]string, len(r.columns))
	copy(out, r.columns)
	return out
}

// Len возвращает количество колонок
func (r *Record) Len() int {
	if r == nil {
		return 0
	}
	return len(r.columns)
}

// Clone возвращает независимую копию записи
func (r *Record) Clone() *Record {
	clone := &Record{
		columns: r.Columns(),
		values:  make(map[string]any, len(r.values)),
	}
	for k, v := range r.values {
		clone.values[k] = v
	}
	return clone
}

// MarshalJSON сериализует запись как JSON-объект с сохранением порядка колонок
func (r *Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, column := range r.columns {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(column)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		value, err := json.Marshal(r.values[column])
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", column, err)
		}
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// CellString приводит значение ячейки к строке
func CellString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	case bool:
		return strconv.FormatBool(v)
	case time.Time:
		return v.Format(time.RFC3339)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// Schema описывает, какие колонки наборов данных несут описание, статус и идентификатор
type Schema struct {
	SourceDescription string `json:"source_description" toml:"source_description"`
	SourceID          string `json:"source_id" toml:"source_id"`
	TargetDescription string `json:"target_description" toml:"target_description"`
	TargetStatus      string `json:"target_status" toml:"target_status"`
	TargetID          string `json:"target_id" toml:"target_id"`
}

// Validate проверяет, что все имена колонок заданы
func (s Schema) Validate() error {
	var missing []string
	if strings.TrimSpace(s.SourceDescription) == "" {
		missing = append(missing, "source description")
	}
	if strings.TrimSpace(s.SourceID) == "" {
		missing = append(missing, "source id")
	}
	if strings.TrimSpace(s.TargetDescription) == "" {
		missing = append(missing, "target description")
	}
	if strings.TrimSpace(s.TargetStatus) == "" {
		missing = append(missing, "target status")
	}
	if strings.TrimSpace(s.TargetID) == "" {
		missing = append(missing, "target id")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: column names not set: %s", ErrInvalidOptions, strings.Join(missing, ", "))
	}
	return nil
}

// CheckColumns проверяет, что настроенные колонки есть в первой строке каждого набора.
// Пустой набор не проверяется.
func (s Schema) CheckColumns(source, target []*Record) error {
	var unknown []string
	if len(source) > 0 {
		for _, column := range []string{s.SourceDescription, s.SourceID} {
			if !source[0].Has(column) {
				unknown = append(unknown, fmt.Sprintf("source:%q", column))
			}
		}
	}
	if len(target) > 0 {
		for _, column := range []string{s.TargetDescription, s.TargetStatus, s.TargetID} {
			if !target[0].Has(column) {
				unknown = append(unknown, fmt.Sprintf("target:%q", column))
			}
		}
	}
	if len(unknown) > 0 {
		return fmt.Errorf("%w: %s", ErrUnknownColumn, strings.Join(unknown, ", "))
	}
	return nil
}
