package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"microclimate-engine/internal/cache"
	"microclimate-engine/internal/engine"
	"microclimate-engine/internal/export"
	"microclimate-engine/internal/history"
	"microclimate-engine/internal/models"
	"microclimate-engine/internal/resample"
)

const (
	defaultLatest  = 10
	maxBulkCount   = 10000
	maxHistoryDays = 3650
	minStep        = time.Second
)

var errBadRequest = errors.New("bad request")

// Handler обработчик HTTP запросов
type Handler struct {
	engine       *engine.Engine
	kv           cache.KV
	historyDays  int
	historyStep  time.Duration
	streamPeriod time.Duration
	logger       *slog.Logger
}

// Options параметры по умолчанию для запросов без явных значений
type Options struct {
	HistoryDays  int
	HistoryStep  time.Duration
	StreamPeriod time.Duration
	Logger       *slog.Logger
}

// NewHandler создает новый обработчик
func NewHandler(e *engine.Engine, kv cache.KV, opts Options) *Handler {
	if opts.HistoryStep <= 0 {
		opts.HistoryStep = 15 * time.Minute
	}
	if opts.StreamPeriod <= 0 {
		opts.StreamPeriod = opts.HistoryStep
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Handler{
		engine:       e,
		kv:           kv,
		historyDays:  opts.HistoryDays,
		historyStep:  opts.HistoryStep,
		streamPeriod: opts.StreamPeriod,
		logger:       opts.Logger,
	}
}

// Latest обрабатывает GET /api/stations/{station}/latest?n=10
func (h *Handler) Latest(w http.ResponseWriter, r *http.Request) {
	n, err := intParam(r, "n", defaultLatest)
	if err != nil {
		h.fail(w, err)
		return
	}

	records, err := h.engine.StationView(chi.URLParam(r, "station"), n)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

// History обрабатывает GET /api/stations/{station}/history?days=N или ?from=...&to=...
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	rows, err := h.rows(r)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

// Resample обрабатывает GET /api/stations/{station}/resample?interval=15&method=mean&fields=temperature
func (h *Handler) Resample(w http.ResponseWriter, r *http.Request) {
	rows, err := h.rows(r)
	if err != nil {
		h.fail(w, err)
		return
	}

	interval, method, err := resampleParams(r)
	if err != nil {
		h.fail(w, err)
		return
	}
	if interval == 0 {
		h.fail(w, fmt.Errorf("%w: interval is required", errBadRequest))
		return
	}

	out, err := h.engine.Resample(rows, interval, method, fieldsParam(r))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// Export обрабатывает GET /api/stations/{station}/export?format=csv[&interval=15&method=mean]
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(stringParam(r, "format", string(export.JSON)))
	if err != nil {
		h.fail(w, err)
		return
	}

	rows, err := h.rows(r)
	if err != nil {
		h.fail(w, err)
		return
	}

	interval, method, err := resampleParams(r)
	if err != nil {
		h.fail(w, err)
		return
	}
	if interval > 0 {
		rows, err = h.engine.Resample(rows, interval, method, fieldsParam(r))
		if err != nil {
			h.fail(w, err)
			return
		}
	}

	body, err := export.Bytes(format, rows)
	if err != nil {
		h.fail(w, err)
		return
	}

	filename := export.Filename(chi.URLParam(r, "station"), format, interval, method)
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// Status обрабатывает GET /api/status
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{
		"engine":    h.engine.Status(),
		"backend":   h.kv.Backend(),
		"timestamp": time.Now(),
	}
	if rc, ok := h.kv.(*cache.RedisCache); ok {
		resp["redis"] = rc.GetStats()
	}
	writeJSON(w, http.StatusOK, resp)
}

// StartStreaming обрабатывает POST /api/streaming/start?period=15m
func (h *Handler) StartStreaming(w http.ResponseWriter, r *http.Request) {
	period, err := stepParam(r, "period", h.streamPeriod)
	if err != nil {
		h.fail(w, err)
		return
	}
	if err := h.engine.StartStreaming(period); err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.engine.Status())
}

// StopStreaming обрабатывает POST /api/streaming/stop
func (h *Handler) StopStreaming(w http.ResponseWriter, r *http.Request) {
	h.engine.StopStreaming()
	writeJSON(w, http.StatusOK, h.engine.Status())
}

// Reinitialize обрабатывает POST /api/reinitialize?days=7&step=15
func (h *Handler) Reinitialize(w http.ResponseWriter, r *http.Request) {
	days, err := daysParam(r, h.historyDays)
	if err != nil {
		h.fail(w, err)
		return
	}
	step, err := stepParam(r, "step", h.historyStep)
	if err != nil {
		h.fail(w, err)
		return
	}

	end := h.engine.Now()
	start := end.Add(-time.Duration(days) * 24 * time.Hour)

	produced, err := h.engine.ForceReinitialize(r.Context(), start, end, step)
	if err != nil {
		h.fail(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"produced": produced,
		"status":   h.engine.Status(),
	})
}

// Generate обрабатывает POST /api/generate?count=96&step=15
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	count, err := intParam(r, "count", 0)
	if err != nil {
		h.fail(w, err)
		return
	}
	if count <= 0 || count > maxBulkCount {
		h.fail(w, fmt.Errorf("%w: count must be in 1..%d", errBadRequest, maxBulkCount))
		return
	}
	step, err := stepParam(r, "step", h.historyStep)
	if err != nil {
		h.fail(w, err)
		return
	}

	records, err := h.engine.GenerateBulk(r.Context(), count, step)
	if err != nil {
		h.fail(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"generated": len(records),
		"status":    h.engine.Status(),
	})
}

// Clear обрабатывает DELETE /api/data
func (h *Handler) Clear(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.Clear(r.Context()); err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.engine.Status())
}

// HealthCheck обрабатывает GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	storeOK := h.kv.Ping(ctx) == nil

	status := "healthy"
	httpStatus := http.StatusOK

	if !storeOK {
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, map[string]interface{}{
		"status":    status,
		"store":     storeOK,
		"backend":   h.kv.Backend(),
		"streaming": h.engine.IsStreaming(),
		"timestamp": time.Now(),
	})
}

// rows строки станции из памяти или из хранилища снимков (source=stored),
// отфильтрованные по days или from/to
func (h *Handler) rows(r *http.Request) ([]models.Row, error) {
	station := chi.URLParam(r, "station")

	var rows []models.Row
	switch src := stringParam(r, "source", "memory"); src {
	case "memory":
		records, err := h.engine.StationView(station, 0)
		if err != nil {
			return nil, err
		}
		rows = models.Rows(records)
	case "stored":
		stored, err := h.engine.Stored(r.Context(), station)
		if err != nil {
			return nil, err
		}
		rows = stored
	default:
		return nil, fmt.Errorf("%w: unknown source %q (allowed: memory, stored)", errBadRequest, src)
	}

	start, end, ok, err := h.window(r)
	if err != nil {
		return nil, err
	}
	if !ok {
		return rows, nil
	}
	return history.FilterRows(rows, start, end, h.engine.Codec()), nil
}

// window окно выборки; ok=false если ни days, ни from/to не заданы
func (h *Handler) window(r *http.Request) (time.Time, time.Time, bool, error) {
	q := r.URL.Query()
	codec := h.engine.Codec()

	if q.Has("days") {
		days, err := daysParam(r, 0)
		if err != nil {
			return time.Time{}, time.Time{}, false, err
		}
		end := h.engine.Now()
		return end.Add(-time.Duration(days) * 24 * time.Hour), end, true, nil
	}

	if !q.Has("from") && !q.Has("to") {
		return time.Time{}, time.Time{}, false, nil
	}

	start := time.Time{}
	end := h.engine.Now()
	if s := q.Get("from"); s != "" {
		t, ok := codec.ParseTolerant(s)
		if !ok {
			return time.Time{}, time.Time{}, false, fmt.Errorf("%w: invalid from %q", errBadRequest, s)
		}
		start = t
	}
	if s := q.Get("to"); s != "" {
		t, ok := codec.ParseTolerant(s)
		if !ok {
			return time.Time{}, time.Time{}, false, fmt.Errorf("%w: invalid to %q", errBadRequest, s)
		}
		end = t
	}
	return start, end, true, nil
}

// fail отвечает ошибкой с кодом по ее виду
func (h *Handler) fail(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, models.ErrUnknownStation):
		status = http.StatusNotFound
	case errors.Is(err, errBadRequest),
		errors.Is(err, history.ErrInvalidStep),
		errors.Is(err, history.ErrInvalidPeriod),
		errors.Is(err, resample.ErrInvalidInterval),
		errors.Is(err, resample.ErrUnknownMethod),
		errors.Is(err, export.ErrUnknownFormat):
		status = http.StatusBadRequest
	}

	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func stringParam(r *http.Request, name, def string) string {
	if v := strings.TrimSpace(r.URL.Query().Get(name)); v != "" {
		return v
	}
	return def
}

func intParam(r *http.Request, name string, def int) (int, error) {
	s := stringParam(r, name, "")
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %s must be a non-negative integer", errBadRequest, name)
	}
	return n, nil
}

// durationParam принимает число минут ("15") или длительность Go ("90s")
func durationParam(r *http.Request, name string, def time.Duration) (time.Duration, error) {
	s := stringParam(r, name, "")
	if s == "" {
		return def, nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		return time.Duration(n) * time.Minute, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid %s %q", errBadRequest, name, s)
	}
	return d, nil
}

// daysParam глубина окна в днях, не больше maxHistoryDays
func daysParam(r *http.Request, def int) (int, error) {
	days, err := intParam(r, "days", def)
	if err != nil {
		return 0, err
	}
	if days > maxHistoryDays {
		return 0, fmt.Errorf("%w: days must be at most %d", errBadRequest, maxHistoryDays)
	}
	return days, nil
}

// stepParam шаг или период не короче minStep; 0 передается дальше как неверный шаг
func stepParam(r *http.Request, name string, def time.Duration) (time.Duration, error) {
	d, err := durationParam(r, name, def)
	if err != nil {
		return 0, err
	}
	if d > 0 && d < minStep {
		return 0, fmt.Errorf("%w: %s must be at least %s", errBadRequest, name, minStep)
	}
	return d, nil
}

// resampleParams interval=0 означает запрос без ресемплинга
func resampleParams(r *http.Request) (time.Duration, resample.Method, error) {
	interval, err := durationParam(r, "interval", 0)
	if err != nil {
		return 0, "", err
	}
	if !r.URL.Query().Has("interval") {
		return 0, "", nil
	}
	if interval <= 0 || interval%time.Minute != 0 {
		return 0, "", fmt.Errorf("%w: %s (whole minutes expected)", resample.ErrInvalidInterval, interval)
	}

	method, err := resample.ParseMethod(stringParam(r, "method", string(resample.Mean)))
	if err != nil {
		return 0, "", err
	}
	return interval, method, nil
}

// fieldsParam поля через запятую; по умолчанию все числовые
func fieldsParam(r *http.Request) []string {
	s := stringParam(r, "fields", "")
	if s == "" {
		return models.NumericFields
	}

	fields := make([]string, 0)
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f != "" {
			fields = append(fields, f)
		}
	}
	return fields
}
