package export

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"microclimate-engine/internal/models"
	"microclimate-engine/internal/resample"
)

func TestFilename(t *testing.T) {
	assert.Equal(t, "station1_data.json", Filename("station1", JSON, 0, ""))
	assert.Equal(t, "station2_data_resampled_15min_mean.csv", Filename("station2", CSV, 15*time.Minute, resample.Mean))
	assert.Equal(t, "station1_data_resampled_60min_max.json", Filename("station1", JSON, time.Hour, resample.Max))
	assert.Equal(t, "station1_data_resampled_1m30s_min.csv", Filename("station1", CSV, 90*time.Second, resample.Min))
	assert.Equal(t, "station2_data_resampled_30s_last.json", Filename("station2", JSON, 30*time.Second, resample.Last))
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat(" CSV ")
	require.NoError(t, err)
	assert.Equal(t, CSV, f)
	assert.Equal(t, "text/csv; charset=utf-8", f.ContentType())

	_, err = ParseFormat("xml")
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestWriteCSV(t *testing.T) {
	rows := []models.Row{
		{"temperature": 20.5, "timestamp": "01-06-25 00:00:00", "humidity": 60.0},
		{"timestamp": "01-06-25 00:15:00", "temperature": json.Number("21"), "note": "a,b"},
	}

	out, err := Bytes(CSV, rows)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "timestamp,humidity,temperature,note", lines[0])
	assert.Equal(t, "01-06-25 00:00:00,60,20.5,", lines[1])
	assert.Equal(t, `01-06-25 00:15:00,,21,"a,b"`, lines[2])
}

func TestWriteCSVEmpty(t *testing.T) {
	out, err := Bytes(CSV, nil)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestWriteJSON(t *testing.T) {
	rows := models.Rows([]models.Record{{Timestamp: "01-06-25 00:00:00", Temperature: 20}})

	out, err := Bytes(JSON, rows)
	require.NoError(t, err)
	assert.Contains(t, string(out), "\n  {\n    \"airPressure\": 0,")

	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(out, &decoded))
	require.Len(t, decoded, 1)
	assert.Equal(t, "01-06-25 00:00:00", decoded[0]["timestamp"])

	empty, err := Bytes(JSON, nil)
	require.NoError(t, err)
	assert.Equal(t, "[]\n", string(empty))
}

func TestWriteUnknownFormat(t *testing.T) {
	_, err := Bytes(Format("xml"), nil)
	assert.ErrorIs(t, err, ErrUnknownFormat)
}
