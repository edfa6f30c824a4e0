package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/rainfall-etl/internal/domain"
	"github.com/couchcryptid/rainfall-etl/internal/observability"
	"github.com/couchcryptid/storm-data-shared/retry"
)

// BatchExtractor reads up to batchSize raw series messages from the source.
type BatchExtractor interface {
	ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawEvent, error)
}

// Transformer turns one raw series message into a processed report.
type Transformer interface {
	Transform(ctx context.Context, raw domain.RawEvent) (domain.Report, error)
}

// BatchLoader writes processed reports to a destination.
type BatchLoader interface {
	LoadBatch(ctx context.Context, reports []domain.Report) error
}

const (
	minBackoff = 200 * time.Millisecond
	maxBackoff = 5 * time.Second
)

// backoff doubles from minBackoff up to maxBackoff across consecutive
// extract or load failures and resets after a successful extract.
type backoff struct {
	next time.Duration
}

func (b *backoff) reset() { b.next = minBackoff }

// wait sleeps for the current delay. It returns false if ctx ends first.
func (b *backoff) wait(ctx context.Context) bool {
	if ctx.Err() != nil || !retry.SleepWithContext(ctx, b.next) {
		return false
	}
	b.next = retry.NextBackoff(b.next, maxBackoff)
	return true
}

// Pipeline consumes series messages, processes each into a report, and hands
// the reports of a batch to the loader. Offsets are committed only after the
// batch is loaded; series that cannot be processed are committed and dropped.
type Pipeline struct {
	extractor   BatchExtractor
	transformer Transformer
	loader      BatchLoader
	logger      *slog.Logger
	metrics     *observability.Metrics
	ready       atomic.Bool
	batchSize   int
}

// New creates a Pipeline with the given stages and observability.
func New(e BatchExtractor, t Transformer, l BatchLoader, logger *slog.Logger, metrics *observability.Metrics, batchSize int) *Pipeline {
	return &Pipeline{
		extractor:   e,
		transformer: t,
		loader:      l,
		logger:      logger,
		metrics:     metrics,
		batchSize:   batchSize,
	}
}

// CheckReadiness returns nil once a report has been loaded.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("no report loaded yet")
	}
	return nil
}

// Run executes the batch loop until the context is cancelled.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started", "batch_size", p.batchSize)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	b := &backoff{}
	b.reset()
	for ctx.Err() == nil {
		if !p.step(ctx, b) {
			break
		}
	}
	p.logger.Info("pipeline stopping", "reason", ctx.Err())
	return nil
}

// step runs one extract-transform-load cycle. It returns false when the
// pipeline should stop.
func (p *Pipeline) step(ctx context.Context, b *backoff) bool {
	start := time.Now()

	batch, err := p.extractor.ExtractBatch(ctx, p.batchSize)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		p.logger.Error("extract batch failed", "error", err)
		return b.wait(ctx)
	}
	if len(batch) == 0 {
		return true
	}

	p.metrics.SeriesConsumed.Add(float64(len(batch)))
	p.metrics.BatchSize.Observe(float64(len(batch)))
	b.reset()

	reports, accepted := p.transform(ctx, batch)
	if len(reports) == 0 {
		return true
	}

	if err := p.loader.LoadBatch(ctx, reports); err != nil {
		p.logger.Error("load batch failed", "error", err, "reports", len(reports))
		return b.wait(ctx)
	}

	p.record(reports)
	for _, raw := range accepted {
		p.commit(ctx, raw)
	}
	p.metrics.BatchProcessingDuration.Observe(time.Since(start).Seconds())
	p.ready.Store(true)
	return true
}

// transform processes every message of a batch. Rejected messages are
// committed immediately so they are not redelivered.
func (p *Pipeline) transform(ctx context.Context, batch []domain.RawEvent) ([]domain.Report, []domain.RawEvent) {
	reports := make([]domain.Report, 0, len(batch))
	accepted := make([]domain.RawEvent, 0, len(batch))

	for _, raw := range batch {
		report, err := p.transformer.Transform(ctx, raw)
		if err != nil {
			reason := rejectReason(err)
			p.logger.Warn("series rejected",
				"reason", reason,
				"error", err,
				"key", string(raw.Key),
				"topic", raw.Topic,
				"partition", raw.Partition,
				"offset", raw.Offset,
			)
			p.metrics.TransformErrors.WithLabelValues(reason).Inc()
			p.commit(ctx, raw)
			continue
		}
		reports = append(reports, report)
		accepted = append(accepted, raw)
	}
	return reports, accepted
}

func (p *Pipeline) record(reports []domain.Report) {
	for i := range reports {
		r := &reports[i]
		p.metrics.RowsProduced.WithLabelValues("event").Add(float64(len(r.Events)))
		p.metrics.RowsProduced.WithLabelValues("daily").Add(float64(len(r.Days)))
		p.metrics.EventsDetected.Add(float64(r.EventCount()))
		p.metrics.ReadingsSkipped.Add(float64(r.Skipped))
		p.logger.Debug("report loaded",
			"station_id", r.StationID,
			"events", r.EventCount(),
			"rows", r.RowCount(),
		)
	}
}

func (p *Pipeline) commit(ctx context.Context, raw domain.RawEvent) {
	if raw.Commit == nil {
		return
	}
	if err := raw.Commit(ctx); err != nil {
		p.logger.Warn("commit offset failed", "error", err,
			"topic", raw.Topic, "partition", raw.Partition, "offset", raw.Offset)
	}
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidSeries):
		return "invalid_series"
	case errors.Is(err, domain.ErrOutOfOrder):
		return "out_of_order"
	default:
		return "other"
	}
}
