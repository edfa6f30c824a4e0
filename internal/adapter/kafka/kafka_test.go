package kafka

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/couchcryptid/rainfall-etl/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapMessageToRawEvent(t *testing.T) {
	now := time.Now()
	msg := kafkago.Message{
		Key:       []byte("54511"),
		Value:     []byte(`{"station_id":"54511","readings":[]}`),
		Topic:     "rainfall-series",
		Partition: 2,
		Offset:    42,
		Time:      now,
		Headers: []kafkago.Header{
			{Key: "source", Value: []byte("gauge")},
		},
	}

	raw := mapMessageToRawEvent(msg)

	assert.Equal(t, []byte("54511"), raw.Key)
	assert.JSONEq(t, `{"station_id":"54511","readings":[]}`, string(raw.Value))
	assert.Equal(t, "rainfall-series", raw.Topic)
	assert.Equal(t, 2, raw.Partition)
	assert.Equal(t, int64(42), raw.Offset)
	assert.Equal(t, now, raw.Timestamp)
	assert.Equal(t, "gauge", raw.Headers["source"])
	assert.Nil(t, raw.Commit)
}

func testReport() domain.Report {
	at := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	reading := domain.Reading{
		Time:     at,
		Amount30: decimal.RequireFromString("2.5"),
		Amount15: decimal.RequireFromString("1.2"),
	}
	return domain.Report{
		StationID: "54511",
		Events:    []domain.PartitionedReading{{Event: 1, Reading: reading}},
		Days: []domain.DayAggregatedReading{{
			Date:     time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
			DayTotal: decimal.RequireFromString("2.5"),
			Reading:  reading,
		}},
		ProcessedAt: time.Date(2024, 6, 2, 6, 0, 0, 0, time.UTC),
	}
}

func TestBuildMessages(t *testing.T) {
	w := &Writer{eventsTopic: "rainfall-events", dailyTopic: "rainfall-daily"}

	msgs, err := w.buildMessages([]domain.Report{testReport()})
	require.NoError(t, err)
	require.Len(t, msgs, 2)

	event := msgs[0]
	assert.Equal(t, "rainfall-events", event.Topic)
	assert.Equal(t, []byte("54511"), event.Key)
	require.Len(t, event.Headers, 3)
	assert.Equal(t, "station_id", event.Headers[0].Key)
	assert.Equal(t, []byte("54511"), event.Headers[0].Value)
	assert.Equal(t, "kind", event.Headers[1].Key)
	assert.Equal(t, []byte(KindEvent), event.Headers[1].Value)
	assert.Equal(t, "processed_at", event.Headers[2].Key)
	assert.Equal(t, []byte("2024-06-02T06:00:00Z"), event.Headers[2].Value)

	var row EventRow
	require.NoError(t, json.Unmarshal(event.Value, &row))
	assert.Equal(t, "54511", row.StationID)
	assert.Equal(t, 1, row.Event)
	assert.True(t, decimal.RequireFromString("2.5").Equal(row.Amount30))
	assert.Contains(t, string(event.Value), `"event":1`)
	assert.Contains(t, string(event.Value), `"i30":"2.5"`)

	daily := msgs[1]
	assert.Equal(t, "rainfall-daily", daily.Topic)
	assert.Equal(t, []byte(KindDaily), daily.Headers[1].Value)
	assert.Contains(t, string(daily.Value), `"day_total":"2.5"`)
	assert.Contains(t, string(daily.Value), `"date":"2024-06-01T00:00:00Z"`)
}

func TestBuildMessages_Empty(t *testing.T) {
	w := &Writer{eventsTopic: "e", dailyTopic: "d"}

	msgs, err := w.buildMessages(nil)
	require.NoError(t, err)
	assert.Empty(t, msgs)

	msgs, err = w.buildMessages([]domain.Report{{StationID: "dry-station"}})
	require.NoError(t, err)
	assert.Empty(t, msgs)
}
