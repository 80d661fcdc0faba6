package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"microclimate-engine/internal/cache"
	"microclimate-engine/internal/models"
)

type halfSource struct{}

func (halfSource) Float64() float64 { return 0.5 }

type failingKV struct {
	*cache.MemoryKV
	calls int
}

func (f *failingKV) SetMany(context.Context, map[string]string) error {
	f.calls++
	return errors.New("connection refused")
}

func sampleRecords() []models.Record {
	return []models.Record{
		{Timestamp: "01-06-25 00:00:00", Temperature: 20, Humidity: 60, AirPressure: 1013, WindAngle: 90, WaterTemperature: 18, SecondaryTemperature: 20.5},
		{Timestamp: "01-06-25 00:15:00", Temperature: 21.5, Humidity: 61, AirPressure: 1012, WindAngle: 95, WaterTemperature: 18.2, SecondaryTemperature: 21},
	}
}

func TestPublishWritesBothStations(t *testing.T) {
	ctx := context.Background()
	kv := cache.NewMemoryKV()
	p := New(kv, halfSource{}, "run-1", nil)

	require.NoError(t, p.Publish(ctx, sampleRecords()))

	raw, err := kv.Get(ctx, "station1_data")
	require.NoError(t, err)
	var primary []models.Record
	require.NoError(t, json.Unmarshal([]byte(raw), &primary))
	assert.Equal(t, sampleRecords(), primary)

	// при r=0.5 разброс нулевой
	raw, err = kv.Get(ctx, "station2_data")
	require.NoError(t, err)
	var secondary []models.Record
	require.NoError(t, json.Unmarshal([]byte(raw), &secondary))
	assert.Equal(t, sampleRecords(), secondary)

	meta, err := p.LoadMeta(ctx)
	require.NoError(t, err)
	assert.Equal(t, "run-1", meta.RunID)
	assert.Equal(t, 2, meta.Count)
}

func TestLoadRows(t *testing.T) {
	ctx := context.Background()
	p := New(cache.NewMemoryKV(), halfSource{}, "run-1", nil)

	rows, err := p.Load(ctx, models.StationPrimary)
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.NotNil(t, rows)

	require.NoError(t, p.Publish(ctx, sampleRecords()))

	rows, err = p.Load(ctx, models.StationSecondary)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "01-06-25 00:15:00", rows[1][models.FieldTimestamp])

	v, ok := rows[1].Number(models.FieldTemperature)
	require.True(t, ok)
	assert.Equal(t, 21.5, v)

	_, err = p.Load(ctx, "station3")
	assert.ErrorIs(t, err, models.ErrUnknownStation)
}

func TestLoadCorruptSnapshot(t *testing.T) {
	ctx := context.Background()
	kv := cache.NewMemoryKV()
	require.NoError(t, kv.Set(ctx, Key(models.StationPrimary), "{not json"))

	p := New(kv, halfSource{}, "run-1", nil)
	_, err := p.Load(ctx, models.StationPrimary)
	assert.Error(t, err)
}

func TestRemoveAndCounts(t *testing.T) {
	ctx := context.Background()
	p := New(cache.NewMemoryKV(), halfSource{}, "run-1", nil)
	require.NoError(t, p.Publish(ctx, sampleRecords()))

	counts, err := p.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{models.StationPrimary: 2, models.StationSecondary: 2}, counts)

	require.NoError(t, p.Remove(ctx))

	counts, err = p.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{models.StationPrimary: 0, models.StationSecondary: 0}, counts)

	_, err = p.LoadMeta(ctx)
	assert.ErrorIs(t, err, cache.ErrNotFound)
}

func TestBreakerOpensAfterFailures(t *testing.T) {
	ctx := context.Background()
	kv := &failingKV{MemoryKV: cache.NewMemoryKV()}
	p := New(kv, halfSource{}, "run-1", nil)

	for i := 0; i < 3; i++ {
		assert.Error(t, p.Publish(ctx, sampleRecords()))
	}
	assert.Equal(t, 3, kv.calls)
	assert.Equal(t, gobreaker.StateOpen.String(), p.BreakerState())

	err := p.Publish(ctx, sampleRecords())
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 3, kv.calls)
}
