package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// RawReading is one unparsed observation as it arrives from a source: the
// timestamp followed by the 30-minute and 15-minute amounts, all as text.
type RawReading struct {
	Time string `json:"time"`
	I30  string `json:"i30"`
	I15  string `json:"i15"`
}

// RawSeries is the payload of a source message or HTTP request: the readings
// of one station in ascending time order.
type RawSeries struct {
	StationID string       `json:"station_id"`
	Readings  []RawReading `json:"readings"`
}

// RawEvent represents an unprocessed message from the source topic.
type RawEvent struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// Reading is a single rainfall observation. Amount30 decides whether it is
// raining at Time; Amount15 is carried through unchanged.
type Reading struct {
	Time     time.Time       `json:"time"`
	Amount15 decimal.Decimal `json:"i15"`
	Amount30 decimal.Decimal `json:"i30"`
}

// Wet reports whether the reading counts as rain.
func (r Reading) Wet() bool {
	return r.Amount30.IsPositive()
}

// PartitionedReading is a wet reading tagged with the rainfall event it belongs to.
type PartitionedReading struct {
	Event int `json:"event"`
	Reading
}

// DayAggregatedReading is a wet reading tagged with its calendar date and the
// total Amount30 of all wet readings on that date.
type DayAggregatedReading struct {
	Date     time.Time       `json:"date"`
	DayTotal decimal.Decimal `json:"day_total"`
	Reading
}

// Result holds both outputs computed from one input series.
type Result struct {
	Events []PartitionedReading
	Days   []DayAggregatedReading
}

// Report is a processed series ready for a sink.
type Report struct {
	StationID   string                 `json:"station_id"`
	Events      []PartitionedReading   `json:"events"`
	Days        []DayAggregatedReading `json:"daily"`
	Skipped     int                    `json:"skipped"`
	ProcessedAt time.Time              `json:"processed_at"`
}

// EventCount returns the number of distinct event numbers in the report.
func (r Report) EventCount() int {
	count := 0
	last := -1
	for _, e := range r.Events {
		if e.Event != last {
			count++
			last = e.Event
		}
	}
	return count
}

// RowCount returns the total number of output rows across both sequences.
func (r Report) RowCount() int {
	return len(r.Events) + len(r.Days)
}
