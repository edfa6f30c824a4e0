package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/rainfall-etl/internal/config"
	"github.com/couchcryptid/rainfall-etl/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Row kinds, carried in the "kind" header.
const (
	KindEvent = "event"
	KindDaily = "daily"
)

// EventRow is the payload of a message on the events topic.
type EventRow struct {
	StationID string `json:"station_id"`
	domain.PartitionedReading
	ProcessedAt time.Time `json:"processed_at"`
}

// DailyRow is the payload of a message on the daily topic.
type DailyRow struct {
	StationID string `json:"station_id"`
	domain.DayAggregatedReading
	ProcessedAt time.Time `json:"processed_at"`
}

// Writer produces one message per output row, routing event rows and daily
// rows to their own topics. It implements pipeline.BatchLoader.
type Writer struct {
	writer      *kafkago.Writer
	eventsTopic string
	dailyTopic  string
	logger      *slog.Logger
}

// NewWriter creates a Kafka producer for the configured events and daily topics.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{
		writer:      w,
		eventsTopic: cfg.KafkaEventsTopic,
		dailyTopic:  cfg.KafkaDailyTopic,
		logger:      logger,
	}
}

// LoadBatch serializes every row of every report and publishes them in a
// single WriteMessages call. Rows of one station share a key, so they land
// on one partition in order.
func (w *Writer) LoadBatch(ctx context.Context, reports []domain.Report) error {
	msgs, err := w.buildMessages(reports)
	if err != nil {
		return err
	}
	if len(msgs) == 0 {
		return nil
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return err
	}
	w.logger.Debug("rows published", "reports", len(reports), "messages", len(msgs))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

func (w *Writer) buildMessages(reports []domain.Report) ([]kafkago.Message, error) {
	var msgs []kafkago.Message
	for i := range reports {
		r := &reports[i]
		for _, e := range r.Events {
			msg, err := serializeToMessage(w.eventsTopic, KindEvent, r, EventRow{
				StationID:          r.StationID,
				PartitionedReading: e,
				ProcessedAt:        r.ProcessedAt,
			})
			if err != nil {
				return nil, err
			}
			msgs = append(msgs, msg)
		}
		for _, d := range r.Days {
			msg, err := serializeToMessage(w.dailyTopic, KindDaily, r, DailyRow{
				StationID:            r.StationID,
				DayAggregatedReading: d,
				ProcessedAt:          r.ProcessedAt,
			})
			if err != nil {
				return nil, err
			}
			msgs = append(msgs, msg)
		}
	}
	return msgs, nil
}

// serializeToMessage marshals one output row into a Kafka message.
func serializeToMessage(topic, kind string, r *domain.Report, row any) (kafkago.Message, error) {
	data, err := json.Marshal(row)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize %s row: %w", kind, err)
	}
	return kafkago.Message{
		Topic: topic,
		Key:   []byte(r.StationID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "station_id", Value: []byte(r.StationID)},
			{Key: "kind", Value: []byte(kind)},
			{Key: "processed_at", Value: []byte(r.ProcessedAt.Format(time.RFC3339))},
		},
	}, nil
}
