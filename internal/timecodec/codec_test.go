package timecodec

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormat(t *testing.T) {
	c := New(time.UTC)

	ts := time.Date(2025, time.June, 1, 0, 15, 7, 0, time.UTC)
	assert.Equal(t, "01-06-25 00:15:07", c.Format(ts))

	// календарные поля берутся в зоне кодека
	jakarta := time.FixedZone("WIB", 7*60*60)
	assert.Equal(t, "01-06-25 07:15:07", New(jakarta).Format(ts))
}

func TestParseStrictRoundTrip(t *testing.T) {
	zones := []*time.Location{time.UTC, time.FixedZone("WIB", 7*60*60), time.FixedZone("NST", -(3*60*60 + 30*60))}
	instants := []time.Time{
		time.Date(2000, time.January, 2, 0, 0, 0, 0, time.UTC),
		time.Date(2025, time.June, 1, 13, 45, 59, 999_000_000, time.UTC),
		time.Date(2024, time.February, 29, 23, 59, 59, 0, time.UTC),
		time.Date(2099, time.December, 31, 12, 0, 1, 0, time.UTC),
	}

	for _, loc := range zones {
		c := New(loc)
		for _, x := range instants {
			got, err := c.ParseStrict(c.Format(x))
			require.NoError(t, err)
			assert.True(t, got.Equal(x.Truncate(time.Second)), "zone %s: got %v want %v", loc, got, x)
		}
	}
}

func TestParseStrictFourDigitYear(t *testing.T) {
	c := New(time.UTC)
	got, err := c.ParseStrict("1-6-2025 08:00:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, time.June, 1, 8, 0, 0, 0, time.UTC), got)
}

func TestParseStrictWithoutSeconds(t *testing.T) {
	c := New(time.UTC)
	got, err := c.ParseStrict("01-06-25 00:15")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, time.June, 1, 0, 15, 0, 0, time.UTC), got)

	_, err = c.ParseStrict("01-06-25 00")
	assert.ErrorIs(t, err, ErrInvalidTimestamp)
}

func TestParseStrictInvalid(t *testing.T) {
	c := New(time.UTC)
	for _, s := range []string{"", "01-06-25", "01/06/25 00:00:00", "aa-06-25 00:00:00", "01-06-25 25:00:00", "alat rusak"} {
		_, err := c.ParseStrict(s)
		assert.True(t, errors.Is(err, ErrInvalidTimestamp), "input %q", s)
	}
}

func TestParseTolerant(t *testing.T) {
	c := New(time.UTC)
	want := time.Date(2025, time.June, 1, 10, 30, 0, 0, time.UTC)

	cases := map[string]string{
		"rfc3339":      "2025-06-01T10:30:00Z",
		"iso local":    "2025-06-01T10:30:00",
		"iso minutes":  "2025-06-01T10:30",
		"strict":       "01-06-25 10:30:00",
		"strict short": "01-06-25 10:30",
		"space offset": "2025-06-01 10:30:00Z",
		"space iso":    "2025-06-01 10:30:00",
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			got, ok := c.ParseTolerant(in)
			require.True(t, ok)
			assert.True(t, got.Equal(want), "got %v", got)
		})
	}

	got, ok := c.ParseTolerant("2025-06-01")
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC), got)
}

func TestParseTolerantInvalid(t *testing.T) {
	c := New(time.UTC)
	for _, s := range []string{"", "   ", "alat rusak", "server sedang eror", "32-13-25 00:00:00", "2025-13-01"} {
		assert.NotPanics(t, func() {
			_, ok := c.ParseTolerant(s)
			assert.False(t, ok, "input %q", s)
		})
	}
}

func TestParseValue(t *testing.T) {
	c := New(time.UTC)
	ts := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)

	got, ok := c.ParseValue(ts)
	assert.True(t, ok)
	assert.Equal(t, ts, got)

	_, ok = c.ParseValue(42.0)
	assert.False(t, ok)

	_, ok = c.ParseValue(nil)
	assert.False(t, ok)
}

func TestNewNilLocation(t *testing.T) {
	assert.Equal(t, time.Local, New(nil).Location())
}
