package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/couchcryptid/rainfall-etl/internal/domain"
)

// SeriesTransformer implements Transformer by parsing a series, running the
// partitioner and day aggregator over it, and stamping a report.
type SeriesTransformer struct {
	rules  domain.Rules
	loc    *time.Location
	logger *slog.Logger
}

// NewTransformer creates a SeriesTransformer. Naive reading times are read in
// loc; a nil loc means UTC.
func NewTransformer(rules domain.Rules, loc *time.Location, logger *slog.Logger) *SeriesTransformer {
	if loc == nil {
		loc = time.UTC
	}
	return &SeriesTransformer{rules: rules, loc: loc, logger: logger}
}

func (t *SeriesTransformer) Transform(_ context.Context, raw domain.RawEvent) (domain.Report, error) {
	series, err := domain.ParseRawEvent(raw)
	if err != nil {
		return domain.Report{}, err
	}
	return t.ProcessSeries(series)
}

// ProcessSeries drops malformed readings and processes the rest. Readings
// out of time order fail the whole series.
func (t *SeriesTransformer) ProcessSeries(series domain.RawSeries) (domain.Report, error) {
	readings, skipped := domain.ParseSeries(series, t.loc)
	if skipped > 0 {
		t.logger.Warn("skipped malformed readings",
			"station_id", series.StationID,
			"skipped", skipped,
			"kept", len(readings),
		)
	}

	result, err := domain.Process(readings, t.rules)
	if err != nil {
		return domain.Report{}, err
	}

	report := domain.NewReport(series.StationID, result, skipped)
	t.logger.Debug("series processed",
		"station_id", report.StationID,
		"readings", len(readings),
		"events", report.EventCount(),
		"days", len(report.Days),
	)
	return report, nil
}
