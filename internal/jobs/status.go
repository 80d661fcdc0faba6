package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"microclimate-engine/internal/models"
)

// StatusSource состояние движка
type StatusSource interface {
	Status() models.Status
}

// SnapshotCounter число записей в опубликованных снимках по станциям
type SnapshotCounter interface {
	Counts(ctx context.Context) (map[string]int, error)
}

// StatusReporter периодически пишет в лог состояние движка и хранилища снимков
type StatusReporter struct {
	source  StatusSource
	counter SnapshotCounter
	timeout time.Duration
	logger  *slog.Logger
}

// NewStatusReporter counter может быть nil
func NewStatusReporter(source StatusSource, counter SnapshotCounter, logger *slog.Logger) *StatusReporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &StatusReporter{
		source:  source,
		counter: counter,
		timeout: 5 * time.Second,
		logger:  logger,
	}
}

// Report один отчет
func (s *StatusReporter) Report(ctx context.Context) {
	st := s.source.Status()
	attrs := []any{
		"mode", st.Mode,
		"streaming", st.Streaming,
		"data_points", st.DataPoints,
		"oldest", st.Oldest,
		"newest", st.Newest,
	}

	if s.counter != nil {
		ctx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()

		counts, err := s.counter.Counts(ctx)
		if err != nil {
			s.logger.Warn("snapshot counts unavailable", "error", err)
		} else {
			for _, station := range models.Stations() {
				attrs = append(attrs, station+"_stored", counts[station])
			}
		}
	}

	s.logger.Info("engine status", attrs...)
}

// Schedule регистрирует отчет в планировщике по расписанию schedule
// ("@every 5m" или стандартное cron-выражение)
func (s *StatusReporter) Schedule(c *cron.Cron, schedule string) (cron.EntryID, error) {
	id, err := c.AddFunc(schedule, func() {
		s.Report(context.Background())
	})
	if err != nil {
		return 0, fmt.Errorf("schedule status job %q: %w", schedule, err)
	}
	return id, nil
}
