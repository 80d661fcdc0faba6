package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"microclimate-engine/internal/models"
	"microclimate-engine/internal/resample"
)

// Format формат выгрузки
type Format string

const (
	JSON Format = "json"
	CSV  Format = "csv"
)

// ErrUnknownFormat неизвестный формат выгрузки
var ErrUnknownFormat = errors.New("unknown export format")

// ParseFormat разбирает имя формата без учета регистра
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	switch f {
	case JSON, CSV:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q (allowed: json, csv)", ErrUnknownFormat, s)
}

// ContentType MIME-тип формата
func (f Format) ContentType() string {
	if f == CSV {
		return "text/csv; charset=utf-8"
	}
	return "application/json"
}

// Filename имя файла выгрузки: station_data.json или
// station_data_resampled_15min_mean.csv для ресемплированных данных
func Filename(station string, format Format, interval time.Duration, method resample.Method) string {
	name := station + "_data"
	if interval > 0 {
		name += "_resampled_" + intervalLabel(interval) + "_" + string(method)
	}
	return name + "." + string(format)
}

// intervalLabel "15min" для целых минут, иначе запись длительности Go ("90s")
func intervalLabel(interval time.Duration) string {
	if interval%time.Minute == 0 {
		return fmt.Sprintf("%dmin", int64(interval/time.Minute))
	}
	return interval.String()
}

// Write сериализует строки в w
func Write(w io.Writer, format Format, rows []models.Row) error {
	switch format {
	case JSON:
		return WriteJSON(w, rows)
	case CSV:
		return WriteCSV(w, rows)
	}
	return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
}

// WriteJSON пишет массив строк с отступами
func WriteJSON(w io.Writer, rows []models.Row) error {
	if rows == nil {
		rows = []models.Row{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rows); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}

// WriteCSV пишет заголовок из объединения ключей строк (timestamp первым,
// затем известные поля в порядке записи, затем остальные по алфавиту) и строки.
// Пустой вход дает пустой вывод.
func WriteCSV(w io.Writer, rows []models.Row) error {
	if len(rows) == 0 {
		return nil
	}

	header := Header(rows)
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	line := make([]string, len(header))
	for _, row := range rows {
		for i, key := range header {
			line[i] = formatCell(row[key])
		}
		if err := cw.Write(line); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// Header колонки CSV для набора строк
func Header(rows []models.Row) []string {
	seen := make(map[string]bool)
	for _, row := range rows {
		for k := range row {
			seen[k] = true
		}
	}

	header := make([]string, 0, len(seen))
	if seen[models.FieldTimestamp] {
		header = append(header, models.FieldTimestamp)
		delete(seen, models.FieldTimestamp)
	}
	for _, f := range models.NumericFields {
		if seen[f] {
			header = append(header, f)
			delete(seen, f)
		}
	}

	extra := make([]string, 0, len(seen))
	for k := range seen {
		extra = append(extra, k)
	}
	sort.Strings(extra)
	return append(header, extra...)
}

// Bytes сериализует строки в память
func Bytes(format Format, rows []models.Row) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, format, rows); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func formatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}
