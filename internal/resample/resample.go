package resample

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"microclimate-engine/internal/metrics"
	"microclimate-engine/internal/models"
	"microclimate-engine/internal/timecodec"
)

// Method способ свертки значений внутри интервала
type Method string

const (
	Mean  Method = "mean"
	First Method = "first"
	Last  Method = "last"
	Max   Method = "max"
	Min   Method = "min"
)

var (
	// ErrInvalidInterval неположительный интервал ресемплинга
	ErrInvalidInterval = errors.New("resample interval must be positive")
	// ErrUnknownMethod неизвестный метод агрегации
	ErrUnknownMethod = errors.New("unknown aggregation method")
)

// ParseMethod разбирает имя метода без учета регистра
func ParseMethod(s string) (Method, error) {
	m := Method(strings.ToLower(strings.TrimSpace(s)))
	if !m.Valid() {
		return "", fmt.Errorf("%w: %q (allowed: mean, first, last, max, min)", ErrUnknownMethod, s)
	}
	return m, nil
}

// Valid поддерживается ли метод
func (m Method) Valid() bool {
	switch m {
	case Mean, First, Last, Max, Min:
		return true
	}
	return false
}

// Resampler группирует записи по интервалам фиксированной длины
type Resampler struct {
	codec *timecodec.Codec
}

// New создает ресемплер; метки интервалов форматируются кодеком
func New(codec *timecodec.Codec) *Resampler {
	return &Resampler{codec: codec}
}

type point struct {
	t   time.Time
	row models.Row
}

// Resample сворачивает строки в интервалы [t0 + k*interval, t0 + (k+1)*interval),
// где t0 метка самой ранней строки. Пустые интервалы не попадают в результат.
func (r *Resampler) Resample(rows []models.Row, interval time.Duration, method Method, fields []string) ([]models.Row, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInterval, interval)
	}
	if !method.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMethod, method)
	}

	start := time.Now()
	defer func() {
		metrics.ResampleLatency.Observe(time.Since(start).Seconds())
	}()

	points := make([]point, 0, len(rows))
	skipped := 0
	for _, row := range rows {
		t, ok := r.codec.ParseValue(row[models.FieldTimestamp])
		if !ok {
			skipped++
			continue
		}
		points = append(points, point{t: t, row: row})
	}
	if skipped > 0 {
		metrics.InvalidTimestamps.WithLabelValues("resample").Add(float64(skipped))
	}
	if len(points) == 0 {
		return []models.Row{}, nil
	}

	sort.SliceStable(points, func(i, j int) bool {
		return points[i].t.Before(points[j].t)
	})

	t0 := points[0].t
	out := make([]models.Row, 0)

	bucket := make([]models.Row, 0)
	current := int64(0)
	for _, p := range points {
		idx := int64(p.t.Sub(t0) / interval)
		if idx != current && len(bucket) > 0 {
			out = append(out, r.reduce(t0, current, interval, bucket, method, fields))
			bucket = bucket[:0]
		}
		current = idx
		bucket = append(bucket, p.row)
	}
	out = append(out, r.reduce(t0, current, interval, bucket, method, fields))

	metrics.ResampleBuckets.Observe(float64(len(out)))
	return out, nil
}

// Records ресемплирует типизированные записи
func (r *Resampler) Records(records []models.Record, interval time.Duration, method Method, fields []string) ([]models.Row, error) {
	return r.Resample(models.Rows(records), interval, method, fields)
}

func (r *Resampler) reduce(t0 time.Time, idx int64, interval time.Duration, bucket []models.Row, method Method, fields []string) models.Row {
	row := models.Row{
		models.FieldTimestamp: r.codec.Format(t0.Add(time.Duration(idx) * interval)),
	}

	for _, field := range fields {
		if field == models.FieldTimestamp {
			continue
		}
		if v, ok := reduceField(bucket, field, method); ok {
			row[field] = v
		}
	}
	return row
}

// reduceField false означает, что в интервале нет подходящих значений поля
func reduceField(bucket []models.Row, field string, method Method) (any, bool) {
	switch method {
	case First:
		for _, row := range bucket {
			if v, ok := row[field]; ok && v != nil {
				return v, true
			}
		}
		return nil, false

	case Last:
		for i := len(bucket) - 1; i >= 0; i-- {
			if v, ok := bucket[i][field]; ok && v != nil {
				return v, true
			}
		}
		return nil, false
	}

	sum := 0.0
	count := 0
	lo := math.Inf(1)
	hi := math.Inf(-1)
	for _, row := range bucket {
		v, ok := row.Number(field)
		if !ok {
			continue
		}
		sum += v
		count++
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if count == 0 {
		return nil, false
	}

	switch method {
	case Max:
		return hi, true
	case Min:
		return lo, true
	default:
		return sum / float64(count), true
	}
}
