package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"microclimate-engine/internal/generator"
	"microclimate-engine/internal/history"
	"microclimate-engine/internal/models"
	"microclimate-engine/internal/resample"
	"microclimate-engine/internal/timecodec"
)

// Mode режим источника данных; реальные датчики не подключаются
const Mode = "FAKE"

// Sink внешнее хранилище снимков
type Sink interface {
	history.Publisher
	Remove(ctx context.Context) error
	Load(ctx context.Context, station string) ([]models.Row, error)
}

// Options зависимости движка
type Options struct {
	RunID        string
	MaxSize      int
	PublishEvery int
	Clock        func() time.Time
	Logger       *slog.Logger
	// Sink необязателен
	Sink Sink
}

// Engine синтетический источник микроклиматических данных
type Engine struct {
	runID     string
	codec     *timecodec.Codec
	src       generator.Source
	store     *history.Store
	resampler *resample.Resampler
	sink      Sink
	clock     func() time.Time
	logger    *slog.Logger
}

// New создает движок с пустой историей. src используется и синтезатором,
// и разбросом второй станции.
func New(src generator.Source, codec *timecodec.Codec, opts Options) *Engine {
	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	logger := opts.Logger.With("run_id", opts.RunID)

	storeOpts := history.Options{
		MaxSize:      opts.MaxSize,
		Clock:        opts.Clock,
		Logger:       logger,
		PublishEvery: opts.PublishEvery,
	}
	if opts.Sink != nil {
		storeOpts.Publisher = opts.Sink
	}

	return &Engine{
		runID:     opts.RunID,
		codec:     codec,
		src:       src,
		store:     history.New(generator.NewSynthesizer(src, codec), codec, storeOpts),
		resampler: resample.New(codec),
		sink:      opts.Sink,
		clock:     opts.Clock,
		logger:    logger,
	}
}

// RunID идентификатор запуска
func (e *Engine) RunID() string { return e.runID }

// Codec кодек меток времени движка
func (e *Engine) Codec() *timecodec.Codec { return e.codec }

// Now текущее время по часам движка
func (e *Engine) Now() time.Time { return e.clock() }

// Initialize заполняет историю за окно [start, end] с шагом step
func (e *Engine) Initialize(start, end time.Time, step time.Duration) (int, error) {
	return e.store.Initialize(start, end, step)
}

// ForceReinitialize останавливает живой режим, очищает и заново заполняет историю,
// затем снова запускает живой режим с периодом step и публикует снимок.
// Неверный шаг не меняет состояние.
func (e *Engine) ForceReinitialize(ctx context.Context, start, end time.Time, step time.Duration) (int, error) {
	if step <= 0 {
		return 0, fmt.Errorf("reinitialize: %w: %s", history.ErrInvalidStep, step)
	}

	e.store.StopStreaming()
	e.store.Clear()

	produced, err := e.store.Initialize(start, end, step)
	if err != nil {
		return 0, err
	}
	if err := e.store.StartStreaming(step); err != nil {
		return produced, err
	}

	if err := e.store.PublishNow(ctx); err != nil {
		e.logger.Warn("snapshot publish after reinitialize failed", "error", err)
	}

	e.logger.Info("history reinitialized", "produced", produced, "retained", e.store.Len())
	return produced, nil
}

// StartStreaming включает живой режим
func (e *Engine) StartStreaming(period time.Duration) error {
	return e.store.StartStreaming(period)
}

// StopStreaming выключает живой режим
func (e *Engine) StopStreaming() {
	e.store.StopStreaming()
}

// IsStreaming активен ли живой режим
func (e *Engine) IsStreaming() bool {
	return e.store.IsStreaming()
}

// MostRecent последние n записей
func (e *Engine) MostRecent(n int) []models.Record {
	return e.store.MostRecent(n)
}

// InRange записи в окне [start, end]
func (e *Engine) InRange(start, end time.Time) []models.Record {
	return e.store.InRange(start, end)
}

// Resample группирует строки по интервалам
func (e *Engine) Resample(rows []models.Row, interval time.Duration, method resample.Method, fields []string) ([]models.Row, error) {
	return e.resampler.Resample(rows, interval, method, fields)
}

// Snapshot копия всей истории
func (e *Engine) Snapshot() []models.Record {
	return e.store.Snapshot()
}

// Clear очищает историю и удаляет опубликованные снимки
func (e *Engine) Clear(ctx context.Context) error {
	e.store.Clear()
	if e.sink == nil {
		return nil
	}
	return e.sink.Remove(ctx)
}

// GenerateBulk дописывает count записей, заканчивающихся у текущего момента
func (e *Engine) GenerateBulk(ctx context.Context, count int, step time.Duration) ([]models.Record, error) {
	records, err := e.store.GenerateBulk(count, step)
	if err != nil {
		return nil, err
	}
	if err := e.store.PublishNow(ctx); err != nil {
		e.logger.Warn("snapshot publish after bulk generation failed", "error", err)
	}
	return records, nil
}

// Publish принудительно публикует текущий снимок
func (e *Engine) Publish(ctx context.Context) error {
	return e.store.PublishNow(ctx)
}

// StationView последние n записей станции; вторая станция получает разброс
// поверх тех же записей. n <= 0 означает всю историю.
func (e *Engine) StationView(station string, n int) ([]models.Record, error) {
	if !models.ValidStation(station) {
		return nil, fmt.Errorf("%w: %q", models.ErrUnknownStation, station)
	}

	var records []models.Record
	if n <= 0 {
		records = e.store.Snapshot()
	} else {
		records = e.store.MostRecent(n)
	}

	if station == models.StationSecondary {
		return generator.VaryStations(records, e.src), nil
	}
	return records, nil
}

// Stored строки станции из внешнего хранилища снимков
func (e *Engine) Stored(ctx context.Context, station string) ([]models.Row, error) {
	if !models.ValidStation(station) {
		return nil, fmt.Errorf("%w: %q", models.ErrUnknownStation, station)
	}
	if e.sink == nil {
		return []models.Row{}, nil
	}
	return e.sink.Load(ctx, station)
}

// Status текущее состояние движка
func (e *Engine) Status() models.Status {
	snapshot := e.store.Snapshot()

	st := models.Status{
		RunID:          e.runID,
		Mode:           Mode,
		Streaming:      e.store.IsStreaming(),
		DataPoints:     len(snapshot),
		MaxHistorySize: e.store.MaxSize(),
	}
	if len(snapshot) > 0 {
		st.Oldest = snapshot[0].Timestamp
		st.Newest = snapshot[len(snapshot)-1].Timestamp
	}
	return st
}
