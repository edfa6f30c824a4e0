package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testStation = "54511"

func TestParseReading(t *testing.T) {
	expected := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		time string
	}{
		{"minute layout", "2024-06-01 08:00"},
		{"seconds layout", "2024-06-01 08:00:00"},
		{"seconds truncated", "2024-06-01 08:00:42"},
		{"slash layout", "2024/6/1 8:00"},
		{"slash seconds layout", "2024/6/1 8:00:00"},
		{"T separator", "2024-06-01T08:00"},
		{"RFC3339", "2024-06-01T08:00:00Z"},
		{"RFC3339 offset", "2024-06-01T16:00:00+08:00"},
		{"surrounding spaces", "  2024-06-01 08:00 "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := ParseReading(RawReading{Time: tt.time, I30: "1.2", I15: "0.6"}, time.UTC)
			require.NoError(t, err)
			assert.True(t, expected.Equal(r.Time), "got %s", r.Time)
			assert.True(t, dec("1.2").Equal(r.Amount30))
			assert.True(t, dec("0.6").Equal(r.Amount15))
		})
	}
}

func TestParseReading_Location(t *testing.T) {
	cst := time.FixedZone("CST", 8*3600)
	r, err := ParseReading(RawReading{Time: "2024-06-01 08:00", I30: "0", I15: "0"}, cst)
	require.NoError(t, err)
	assert.True(t, time.Date(2024, 6, 1, 8, 0, 0, 0, cst).Equal(r.Time))
	assert.Equal(t, "CST", r.Time.Location().String())
	assert.False(t, r.Wet())
}

func TestParseReading_Malformed(t *testing.T) {
	tests := []struct {
		name string
		raw  RawReading
		msg  string
	}{
		{"header row", RawReading{Time: "time", I30: "I30", I15: "I15"}, "time"},
		{"empty time", RawReading{I30: "1", I15: "1"}, "empty time"},
		{"empty I30", RawReading{Time: "2024-06-01 08:00", I15: "1"}, "empty i30"},
		{"bad I15", RawReading{Time: "2024-06-01 08:00", I30: "1", I15: "n/a"}, "i15"},
		{"negative I30", RawReading{Time: "2024-06-01 08:00", I30: "-0.1", I15: "0"}, "negative i30"},
		{"impossible date", RawReading{Time: "2024-02-30 08:00", I30: "1", I15: "1"}, "time"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseReading(tt.raw, time.UTC)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformedReading))
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestParseSeries(t *testing.T) {
	series := RawSeries{
		StationID: testStation,
		Readings: []RawReading{
			{Time: "time", I30: "I30", I15: "I15"},
			{Time: "2024-06-01 08:00", I30: "2.0", I15: "1.0"},
			{Time: "2024-06-01 08:30", I30: "", I15: ""},
			{Time: "2024-06-01 09:00", I30: "0", I15: "0"},
		},
	}

	readings, skipped := ParseSeries(series, nil)
	assert.Equal(t, 2, skipped)
	require.Len(t, readings, 2)
	assert.Equal(t, time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC), readings[0].Time)
	assert.True(t, readings[0].Wet())
	assert.False(t, readings[1].Wet())
}

func TestParseRawEvent(t *testing.T) {
	t.Run("series payload", func(t *testing.T) {
		raw := RawEvent{
			Key:   []byte("ignored"),
			Value: []byte(`{"station_id":"54511","readings":[{"time":"2024-06-01 08:00","i30":"2.0","i15":"1.0"}]}`),
		}
		series, err := ParseRawEvent(raw)
		require.NoError(t, err)
		assert.Equal(t, testStation, series.StationID)
		require.Len(t, series.Readings, 1)
		assert.Equal(t, RawReading{Time: "2024-06-01 08:00", I30: "2.0", I15: "1.0"}, series.Readings[0])
	})

	t.Run("station from key", func(t *testing.T) {
		raw := RawEvent{Key: []byte("58362"), Value: []byte(`{"readings":[]}`)}
		series, err := ParseRawEvent(raw)
		require.NoError(t, err)
		assert.Equal(t, "58362", series.StationID)
		assert.Empty(t, series.Readings)
	})

	t.Run("invalid JSON", func(t *testing.T) {
		_, err := ParseRawEvent(RawEvent{Value: []byte("{invalid json")})
		require.ErrorIs(t, err, ErrInvalidSeries)
		assert.Contains(t, err.Error(), "parse raw series")
	})
}

func TestNewReport_UsesClock(t *testing.T) {
	fixed := time.Date(2024, 6, 2, 6, 0, 0, 0, time.UTC)
	SetClock(clockwork.NewFakeClockAt(fixed))
	defer SetClock(nil)

	report := NewReport(testStation, Result{}, 0)
	assert.Equal(t, fixed, report.ProcessedAt)
	assert.Zero(t, report.EventCount())
}

func TestSetClock(t *testing.T) {
	t.Run("set custom clock", func(t *testing.T) {
		fixedTime := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		SetClock(clockwork.NewFakeClockAt(fixedTime))
		assert.Equal(t, fixedTime, clock.Now())
		SetClock(nil)
	})

	t.Run("reset to real clock", func(t *testing.T) {
		SetClock(clockwork.NewFakeClockAt(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))
		SetClock(nil)
		assert.True(t, time.Since(clock.Now()) < time.Second)
	})
}
