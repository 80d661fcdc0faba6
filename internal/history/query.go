package history

import (
	"time"

	"microclimate-engine/internal/metrics"
	"microclimate-engine/internal/models"
	"microclimate-engine/internal/timecodec"
)

// MostRecent возвращает последние n записей в порядке поступления
func (s *Store) MostRecent(n int) []models.Record {
	if n <= 0 {
		return []models.Record{}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	start := max(0, len(s.records)-n)
	out := make([]models.Record, len(s.records)-start)
	copy(out, s.records[start:])
	return out
}

// InRange возвращает записи с меткой времени в [start, end].
// Записи с нераспознанной меткой пропускаются.
func (s *Store) InRange(start, end time.Time) []models.Record {
	snapshot := s.Snapshot()

	out := make([]models.Record, 0)
	skipped := 0
	for _, r := range snapshot {
		t, ok := s.codec.ParseTolerant(r.Timestamp)
		if !ok {
			skipped++
			continue
		}
		if !t.Before(start) && !t.After(end) {
			out = append(out, r)
		}
	}

	if skipped > 0 {
		metrics.InvalidTimestamps.WithLabelValues("in_range").Add(float64(skipped))
	}
	return out
}

// FilterRows применяет тот же фильтр по времени к слабо типизированным строкам
func FilterRows(rows []models.Row, start, end time.Time, codec *timecodec.Codec) []models.Row {
	out := make([]models.Row, 0)
	skipped := 0
	for _, row := range rows {
		t, ok := codec.ParseValue(row[models.FieldTimestamp])
		if !ok {
			skipped++
			continue
		}
		if !t.Before(start) && !t.After(end) {
			out = append(out, row)
		}
	}

	if skipped > 0 {
		metrics.InvalidTimestamps.WithLabelValues("filter_rows").Add(float64(skipped))
	}
	return out
}
