// Package report renders processed readings into tables for row sinks.
//
// Repeated event numbers and dates are left blank after their first row, and
// the total column is only filled on that first row, so that spreadsheet sinks
// can merge each group vertically.
package report

import (
	"strconv"

	"github.com/couchcryptid/rainfall-etl/internal/domain"
	"github.com/shopspring/decimal"
)

// Column positions shared by both tables.
const (
	ColKey   = 0
	ColTime  = 1
	ColI30   = 2
	ColI15   = 3
	ColTotal = 4
)

// Table is a header row followed by data rows of rendered cells.
type Table struct {
	Name   string
	Header []string
	Rows   [][]string
}

// Span is an inclusive range of data rows in one column that a sink may merge.
type Span struct {
	Col   int
	Start int
	End   int
}

// EventTable renders partitioned readings. The event number and the event's
// total I30 appear on the first row of each event only.
func EventTable(rows []domain.PartitionedReading) Table {
	totals := make(map[int]decimal.Decimal)
	for _, r := range rows {
		totals[r.Event] = totals[r.Event].Add(r.Amount30)
	}

	t := Table{
		Name:   "events",
		Header: []string{"Event", "Time", "I30", "I15", "Rainfall"},
		Rows:   make([][]string, 0, len(rows)),
	}
	for i, r := range rows {
		key, total := "", ""
		if i == 0 || rows[i-1].Event != r.Event {
			key = strconv.Itoa(r.Event)
			total = totals[r.Event].String()
		}
		t.Rows = append(t.Rows, []string{
			key,
			r.Time.Format(domain.TimeLayout),
			r.Amount30.String(),
			r.Amount15.String(),
			total,
		})
	}
	return t
}

// DayTable renders day-aggregated readings. The date and the day total appear
// on the first row of each date only.
func DayTable(rows []domain.DayAggregatedReading) Table {
	t := Table{
		Name:   "daily",
		Header: []string{"Date", "Time", "I30", "I15", "Rainfall"},
		Rows:   make([][]string, 0, len(rows)),
	}
	for i, r := range rows {
		key, total := "", ""
		if i == 0 || !rows[i-1].Date.Equal(r.Date) {
			key = r.Date.Format(domain.DateLayout)
			total = r.DayTotal.String()
		}
		t.Rows = append(t.Rows, []string{
			key,
			r.Time.Format(domain.TimeLayout),
			r.Amount30.String(),
			r.Amount15.String(),
			total,
		})
	}
	return t
}

// MergeSpans returns the ranges in col where a filled cell is followed by one
// or more blank cells. Single-row groups produce no span.
func (t Table) MergeSpans(col int) []Span {
	var spans []Span
	start := -1
	flush := func(end int) {
		if start >= 0 && end > start {
			spans = append(spans, Span{Col: col, Start: start, End: end})
		}
	}
	for i, row := range t.Rows {
		if col >= len(row) {
			continue
		}
		if row[col] != "" {
			flush(i - 1)
			start = i
		}
	}
	flush(len(t.Rows) - 1)
	return spans
}

// Records returns the header followed by the data rows.
func (t Table) Records() [][]string {
	out := make([][]string, 0, len(t.Rows)+1)
	out = append(out, t.Header)
	out = append(out, t.Rows...)
	return out
}
