package history

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"microclimate-engine/internal/metrics"
	"microclimate-engine/internal/models"
	"microclimate-engine/internal/timecodec"
)

// DefaultMaxSize размер окна истории по умолчанию
const DefaultMaxSize = 1000

var (
	// ErrInvalidStep неположительный шаг генерации
	ErrInvalidStep = errors.New("step must be positive")
	// ErrInvalidPeriod неположительный период живого режима
	ErrInvalidPeriod = errors.New("streaming period must be positive")
)

// Synthesizer создает запись для момента времени
type Synthesizer interface {
	Synthesize(t time.Time) models.Record
}

// Publisher принимает полный снимок истории
type Publisher interface {
	Publish(ctx context.Context, records []models.Record) error
}

// Options параметры хранилища
type Options struct {
	MaxSize      int
	Clock        func() time.Time
	Logger       *slog.Logger
	Publisher    Publisher
	PublishEvery int
	PublishTTL   time.Duration
}

// Store ограниченная упорядоченная по времени история записей
type Store struct {
	mu      sync.RWMutex
	records []models.Record
	maxSize int

	synth  Synthesizer
	codec  *timecodec.Codec
	clock  func() time.Time
	logger *slog.Logger

	publisher    Publisher
	publishEvery int
	publishTTL   time.Duration

	streamMu  sync.Mutex
	streaming bool
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// New создает пустое хранилище
func New(synth Synthesizer, codec *timecodec.Codec, opts Options) *Store {
	if opts.MaxSize <= 0 {
		opts.MaxSize = DefaultMaxSize
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.PublishTTL <= 0 {
		opts.PublishTTL = 5 * time.Second
	}

	return &Store{
		records:      make([]models.Record, 0, opts.MaxSize),
		maxSize:      opts.MaxSize,
		synth:        synth,
		codec:        codec,
		clock:        opts.Clock,
		logger:       opts.Logger,
		publisher:    opts.Publisher,
		publishEvery: opts.PublishEvery,
		publishTTL:   opts.PublishTTL,
	}
}

// MaxSize максимальное число записей в истории
func (s *Store) MaxSize() int {
	return s.maxSize
}

// Initialize заменяет историю записями от start до end включительно с шагом step.
// start > end дает пустую историю без ошибки. Синтезируются только последние MaxSize
// моментов окна, но возвращается число всех моментов окна.
func (s *Store) Initialize(start, end time.Time, step time.Duration) (int, error) {
	if step <= 0 {
		return 0, fmt.Errorf("initialize: %w: %s", ErrInvalidStep, step)
	}

	// синтезируются только записи, которые останутся в окне
	produced := countSteps(start, end, step)
	first := max(0, produced-s.maxSize)

	batch := make([]models.Record, 0, produced-first)
	for i := first; i < produced; i++ {
		batch = append(batch, s.synth.Synthesize(start.Add(time.Duration(i)*step)))
	}

	s.mu.Lock()
	s.records = batch
	size := len(s.records)
	s.mu.Unlock()

	metrics.RecordsSynthesized.WithLabelValues("bulk").Add(float64(size))
	metrics.HistorySize.Set(float64(size))

	s.logger.Info("history initialized",
		"start", s.codec.Format(start),
		"end", s.codec.Format(end),
		"step", step,
		"produced", produced,
		"retained", size,
	)
	return produced, nil
}

// GenerateBulk дописывает count записей с шагом step, заканчивающихся за один шаг до текущего момента
func (s *Store) GenerateBulk(count int, step time.Duration) ([]models.Record, error) {
	if step <= 0 {
		return nil, fmt.Errorf("generate bulk: %w: %s", ErrInvalidStep, step)
	}
	if count <= 0 {
		return []models.Record{}, nil
	}

	now := s.clock()
	batch := make([]models.Record, 0, count)
	for i := 0; i < count; i++ {
		batch = append(batch, s.synth.Synthesize(now.Add(-time.Duration(count-i)*step)))
	}
	metrics.RecordsSynthesized.WithLabelValues("bulk").Add(float64(count))

	s.Append(batch...)
	return batch, nil
}

// Append добавляет записи и вытесняет самые старые при превышении лимита
func (s *Store) Append(records ...models.Record) {
	if len(records) == 0 {
		return
	}

	s.mu.Lock()
	s.records = append(s.records, records...)
	evicted := 0
	if over := len(s.records) - s.maxSize; over > 0 {
		s.records = s.records[over:]
		evicted = over
	}
	size := len(s.records)
	s.mu.Unlock()

	if evicted > 0 {
		metrics.RecordsEvicted.Add(float64(evicted))
	}
	metrics.HistorySize.Set(float64(size))
}

// Clear очищает историю. Живой режим не останавливается.
func (s *Store) Clear() {
	s.mu.Lock()
	s.records = make([]models.Record, 0, s.maxSize)
	s.mu.Unlock()

	metrics.HistorySize.Set(0)
	s.logger.Info("history cleared")
}

// Snapshot возвращает копию истории
func (s *Store) Snapshot() []models.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Record, len(s.records))
	copy(out, s.records)
	return out
}

// Len текущее число записей
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// StartStreaming запускает периодическую генерацию записей для текущего момента.
// Повторный вызов при активном режиме ничего не делает.
func (s *Store) StartStreaming(period time.Duration) error {
	if period <= 0 {
		return fmt.Errorf("start streaming: %w: %s", ErrInvalidPeriod, period)
	}

	s.streamMu.Lock()
	defer s.streamMu.Unlock()

	if s.streaming {
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.streaming = true

	s.wg.Add(1)
	go s.stream(ctx, period)

	metrics.StreamingActive.Set(1)
	s.logger.Info("streaming started", "period", period, "publish_every", s.publishEvery)
	return nil
}

// StopStreaming останавливает живой режим. После возврата новые записи не добавляются.
func (s *Store) StopStreaming() {
	s.streamMu.Lock()
	defer s.streamMu.Unlock()

	if !s.streaming {
		return
	}

	s.cancel()
	s.wg.Wait()
	s.cancel = nil
	s.streaming = false

	metrics.StreamingActive.Set(0)
	s.logger.Info("streaming stopped")
}

// IsStreaming активен ли живой режим
func (s *Store) IsStreaming() bool {
	s.streamMu.Lock()
	defer s.streamMu.Unlock()
	return s.streaming
}

// PublishNow передает текущий снимок публикатору, если он задан
func (s *Store) PublishNow(ctx context.Context) error {
	if s.publisher == nil {
		return nil
	}
	return s.publisher.Publish(ctx, s.Snapshot())
}

// stream цикл живого режима, один на хранилище
func (s *Store) stream(ctx context.Context, period time.Duration) {
	defer s.wg.Done()

	ticker := time.NewTicker(period)
	defer ticker.Stop()

	ticks := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// остановка имеет приоритет над уже сработавшим тиком
			if ctx.Err() != nil {
				return
			}

			record := s.synth.Synthesize(s.clock())
			s.Append(record)
			metrics.RecordsSynthesized.WithLabelValues("stream").Inc()
			s.logger.Debug("record synthesized", "timestamp", record.Timestamp, "temperature", record.Temperature)

			ticks++
			if s.publisher != nil && s.publishEvery > 0 && ticks%s.publishEvery == 0 {
				s.publish(ctx)
			}
		}
	}
}

func (s *Store) publish(ctx context.Context) {
	pubCtx, cancel := context.WithTimeout(ctx, s.publishTTL)
	defer cancel()

	if err := s.publisher.Publish(pubCtx, s.Snapshot()); err != nil {
		s.logger.Warn("snapshot publish failed", "error", err)
	}
}

// countSteps число моментов start, start+step, ... не позже end
func countSteps(start, end time.Time, step time.Duration) int {
	if start.After(end) {
		return 0
	}
	return int(end.Sub(start)/step) + 1
}
