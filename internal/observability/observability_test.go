package observability

import (
	"context"
	"log/slog"
	"testing"

	"github.com/couchcryptid/rainfall-etl/internal/config"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNewLogger(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	logger := NewLogger(&config.Config{LogLevel: "warn", LogFormat: "text"})
	assert.Same(t, logger, slog.Default())
	assert.False(t, logger.Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, logger.Enabled(context.Background(), slog.LevelWarn))
}

func TestNewMetricsForTesting(t *testing.T) {
	m := NewMetricsForTesting()
	m.SeriesConsumed.Add(3)
	m.RowsProduced.WithLabelValues("event").Add(5)
	m.RowsProduced.WithLabelValues("daily").Add(5)

	assert.InDelta(t, 3, testutil.ToFloat64(m.SeriesConsumed), 0)
	assert.InDelta(t, 5, testutil.ToFloat64(m.RowsProduced.WithLabelValues("event")), 0)

	// A second set must not collide with the first.
	other := NewMetricsForTesting()
	assert.InDelta(t, 0, testutil.ToFloat64(other.SeriesConsumed), 0)
}
