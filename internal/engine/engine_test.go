package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"microclimate-engine/internal/cache"
	"microclimate-engine/internal/history"
	"microclimate-engine/internal/models"
	"microclimate-engine/internal/publisher"
	"microclimate-engine/internal/resample"
	"microclimate-engine/internal/timecodec"
)

type constSource float64

func (c constSource) Float64() float64 { return float64(c) }

var (
	windowStart = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	windowEnd   = time.Date(2025, 6, 1, 1, 0, 0, 0, time.UTC)
)

func newTestEngine(t *testing.T, sink Sink) *Engine {
	t.Helper()
	e := New(constSource(0.5), timecodec.New(time.UTC), Options{
		RunID: "run-test",
		Clock: func() time.Time { return windowEnd },
		Sink:  sink,
	})
	t.Cleanup(e.StopStreaming)
	return e
}

func newSink() *publisher.Publisher {
	return publisher.New(cache.NewMemoryKV(), constSource(0.5), "run-test", nil)
}

func TestInitializeAndStatus(t *testing.T) {
	e := newTestEngine(t, nil)

	produced, err := e.Initialize(windowStart, windowEnd, 15*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 5, produced)

	st := e.Status()
	assert.Equal(t, "run-test", st.RunID)
	assert.Equal(t, Mode, st.Mode)
	assert.False(t, st.Streaming)
	assert.Equal(t, 5, st.DataPoints)
	assert.Equal(t, history.DefaultMaxSize, st.MaxHistorySize)
	assert.Equal(t, "01-06-25 00:00:00", st.Oldest)
	assert.Equal(t, "01-06-25 01:00:00", st.Newest)
}

func TestNewGeneratesRunID(t *testing.T) {
	e := New(constSource(0.5), timecodec.New(time.UTC), Options{})
	assert.Len(t, e.RunID(), 36)
}

func TestForceReinitialize(t *testing.T) {
	ctx := context.Background()
	sink := newSink()
	e := newTestEngine(t, sink)

	_, err := e.GenerateBulk(ctx, 3, time.Minute)
	require.NoError(t, err)

	produced, err := e.ForceReinitialize(ctx, windowStart, windowEnd, 15*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 5, produced)
	assert.True(t, e.IsStreaming())
	assert.Len(t, e.Snapshot(), 5)

	counts, err := sink.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, counts[models.StationPrimary])
	assert.Equal(t, 5, counts[models.StationSecondary])
}

func TestForceReinitializeInvalidStepKeepsState(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, nil)

	_, err := e.Initialize(windowStart, windowEnd, 15*time.Minute)
	require.NoError(t, err)
	require.NoError(t, e.StartStreaming(time.Hour))

	_, err = e.ForceReinitialize(ctx, windowStart, windowEnd, 0)
	assert.ErrorIs(t, err, history.ErrInvalidStep)
	assert.Len(t, e.Snapshot(), 5)
	assert.True(t, e.IsStreaming())
}

func TestClearRemovesSnapshots(t *testing.T) {
	ctx := context.Background()
	sink := newSink()
	e := newTestEngine(t, sink)

	_, err := e.Initialize(windowStart, windowEnd, 15*time.Minute)
	require.NoError(t, err)
	require.NoError(t, e.Publish(ctx))

	rows, err := e.Stored(ctx, models.StationPrimary)
	require.NoError(t, err)
	assert.Len(t, rows, 5)

	require.NoError(t, e.Clear(ctx))
	assert.Empty(t, e.Snapshot())

	rows, err = e.Stored(ctx, models.StationPrimary)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestStoredWithoutSink(t *testing.T) {
	e := newTestEngine(t, nil)

	rows, err := e.Stored(context.Background(), models.StationSecondary)
	require.NoError(t, err)
	assert.Empty(t, rows)

	_, err = e.Stored(context.Background(), "station9")
	assert.ErrorIs(t, err, models.ErrUnknownStation)
}

func TestStationView(t *testing.T) {
	e := newTestEngine(t, nil)
	_, err := e.Initialize(windowStart, windowEnd, 15*time.Minute)
	require.NoError(t, err)

	primary, err := e.StationView(models.StationPrimary, 2)
	require.NoError(t, err)
	require.Len(t, primary, 2)
	assert.Equal(t, "01-06-25 00:45:00", primary[0].Timestamp)

	// нейтральный источник не дает разброса
	secondary, err := e.StationView(models.StationSecondary, 2)
	require.NoError(t, err)
	assert.Equal(t, primary, secondary)

	all, err := e.StationView(models.StationPrimary, 0)
	require.NoError(t, err)
	assert.Len(t, all, 5)

	_, err = e.StationView("station3", 1)
	assert.ErrorIs(t, err, models.ErrUnknownStation)
}

func TestGenerateBulkEndsBeforeNow(t *testing.T) {
	e := newTestEngine(t, nil)

	records, err := e.GenerateBulk(context.Background(), 4, 15*time.Minute)
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, "01-06-25 00:00:00", records[0].Timestamp)
	assert.Equal(t, "01-06-25 00:45:00", records[3].Timestamp)
	assert.Len(t, e.Snapshot(), 4)

	_, err = e.GenerateBulk(context.Background(), 4, 0)
	assert.ErrorIs(t, err, history.ErrInvalidStep)
}

func TestResampleAndInRange(t *testing.T) {
	e := newTestEngine(t, nil)
	_, err := e.Initialize(windowStart, windowEnd, 15*time.Minute)
	require.NoError(t, err)

	in := e.InRange(windowStart.Add(10*time.Minute), windowStart.Add(50*time.Minute))
	require.Len(t, in, 3)
	assert.Equal(t, "01-06-25 00:15:00", in[0].Timestamp)

	out, err := e.Resample(models.Rows(e.Snapshot()), time.Hour, resample.Max, []string{models.FieldHumidity})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "01-06-25 00:00:00", out[0][models.FieldTimestamp])
	assert.Equal(t, "01-06-25 01:00:00", out[1][models.FieldTimestamp])

	_, err = e.Resample(nil, 0, resample.Mean, nil)
	assert.ErrorIs(t, err, resample.ErrInvalidInterval)
}
