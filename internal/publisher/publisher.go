package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"

	"microclimate-engine/internal/cache"
	"microclimate-engine/internal/generator"
	"microclimate-engine/internal/metrics"
	"microclimate-engine/internal/models"
)

const metaKey = "snapshot_meta"

// Key ключ снимка станции в хранилище
func Key(station string) string {
	return station + "_data"
}

// Meta сведения о последней публикации
type Meta struct {
	RunID       string    `json:"run_id"`
	PublishedAt time.Time `json:"published_at"`
	Count       int       `json:"count"`
}

// Publisher записывает полные снимки истории в KV-хранилище
type Publisher struct {
	kv      cache.KV
	src     generator.Source
	runID   string
	breaker *gobreaker.CircuitBreaker[struct{}]
	logger  *slog.Logger
}

// New создает публикатор; src задает разброс для второй станции
func New(kv cache.KV, src generator.Source, runID string, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}

	cb := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        "snapshot-" + kv.Backend(),
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("snapshot store breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})

	return &Publisher{
		kv:      kv,
		src:     src,
		runID:   runID,
		breaker: cb,
		logger:  logger,
	}
}

// Publish записывает снимки обеих станций и метаданные одной операцией
func (p *Publisher) Publish(ctx context.Context, records []models.Record) error {
	start := time.Now()
	defer func() {
		metrics.PublishDuration.Observe(time.Since(start).Seconds())
	}()

	primary, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	secondary, err := json.Marshal(generator.VaryStations(records, p.src))
	if err != nil {
		return fmt.Errorf("failed to marshal station variant: %w", err)
	}
	meta, err := json.Marshal(Meta{RunID: p.runID, PublishedAt: time.Now().UTC(), Count: len(records)})
	if err != nil {
		return fmt.Errorf("failed to marshal meta: %w", err)
	}

	_, err = p.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, p.kv.SetMany(ctx, map[string]string{
			Key(models.StationPrimary):   string(primary),
			Key(models.StationSecondary): string(secondary),
			metaKey:                      string(meta),
		})
	})
	if err != nil {
		metrics.StoreOperations.WithLabelValues(p.kv.Backend(), "publish", "error").Inc()
		return fmt.Errorf("publish snapshot: %w", err)
	}

	metrics.StoreOperations.WithLabelValues(p.kv.Backend(), "publish", "success").Inc()
	p.logger.Debug("snapshot published", "records", len(records), "backend", p.kv.Backend())
	return nil
}

// Remove удаляет опубликованные снимки
func (p *Publisher) Remove(ctx context.Context) error {
	err := p.kv.Remove(ctx, Key(models.StationPrimary), Key(models.StationSecondary), metaKey)
	if err != nil {
		metrics.StoreOperations.WithLabelValues(p.kv.Backend(), "remove", "error").Inc()
		return fmt.Errorf("remove snapshots: %w", err)
	}
	metrics.StoreOperations.WithLabelValues(p.kv.Backend(), "remove", "success").Inc()
	return nil
}

// Load читает опубликованный снимок станции как слабо типизированные строки.
// Отсутствующий снимок дает пустой результат.
func (p *Publisher) Load(ctx context.Context, station string) ([]models.Row, error) {
	if !models.ValidStation(station) {
		return nil, fmt.Errorf("%w: %q", models.ErrUnknownStation, station)
	}

	raw, err := p.kv.Get(ctx, Key(station))
	if errors.Is(err, cache.ErrNotFound) {
		metrics.StoreOperations.WithLabelValues(p.kv.Backend(), "load", "miss").Inc()
		return []models.Row{}, nil
	}
	if err != nil {
		metrics.StoreOperations.WithLabelValues(p.kv.Backend(), "load", "error").Inc()
		return nil, fmt.Errorf("load %s: %w", station, err)
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()

	var rows []models.Row
	if err := dec.Decode(&rows); err != nil {
		metrics.StoreOperations.WithLabelValues(p.kv.Backend(), "load", "error").Inc()
		return nil, fmt.Errorf("decode %s snapshot: %w", station, err)
	}
	if rows == nil {
		rows = []models.Row{}
	}

	metrics.StoreOperations.WithLabelValues(p.kv.Backend(), "load", "success").Inc()
	return rows, nil
}

// LoadMeta читает метаданные последней публикации
func (p *Publisher) LoadMeta(ctx context.Context) (Meta, error) {
	raw, err := p.kv.Get(ctx, metaKey)
	if err != nil {
		return Meta{}, err
	}

	var m Meta
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return Meta{}, fmt.Errorf("decode snapshot meta: %w", err)
	}
	return m, nil
}

// Counts число записей в опубликованных снимках по станциям
func (p *Publisher) Counts(ctx context.Context) (map[string]int, error) {
	counts := make(map[string]int, 2)
	for _, station := range models.Stations() {
		rows, err := p.Load(ctx, station)
		if err != nil {
			return nil, err
		}
		counts[station] = len(rows)
	}
	return counts, nil
}

// BreakerState текущее состояние предохранителя
func (p *Publisher) BreakerState() string {
	return p.breaker.State().String()
}
