package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TimeLayout is the minute-precision layout used when rendering reading times.
const TimeLayout = "2006-01-02 15:04"

// DateLayout is the layout used when rendering calendar dates.
const DateLayout = "2006-01-02"

// timeLayouts are tried in order when parsing a reading timestamp. Layouts
// without a zone are interpreted in the caller's location.
var timeLayouts = []string{
	TimeLayout,
	"2006-01-02 15:04:05",
	"2006/1/2 15:04",
	"2006/1/2 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02T15:04:05",
}

// ParseRawEvent deserializes a RawEvent's value into a RawSeries. A missing
// station ID falls back to the message key.
func ParseRawEvent(raw RawEvent) (RawSeries, error) {
	var series RawSeries
	if err := json.Unmarshal(raw.Value, &series); err != nil {
		return RawSeries{}, fmt.Errorf("%w: parse raw series: %w", ErrInvalidSeries, err)
	}
	if series.StationID == "" {
		series.StationID = string(raw.Key)
	}
	return series, nil
}

// ParseReading converts a raw reading into a Reading, truncating the time to
// the minute. Amounts must be non-negative decimals.
func ParseReading(raw RawReading, loc *time.Location) (Reading, error) {
	t, err := parseTime(raw.Time, loc)
	if err != nil {
		return Reading{}, err
	}
	i30, err := parseAmount("i30", raw.I30)
	if err != nil {
		return Reading{}, err
	}
	i15, err := parseAmount("i15", raw.I15)
	if err != nil {
		return Reading{}, err
	}
	return Reading{Time: t, Amount15: i15, Amount30: i30}, nil
}

// ParseSeries parses every reading of a series, dropping the ones that fail
// to parse. It returns the readings kept and the number skipped.
func ParseSeries(series RawSeries, loc *time.Location) ([]Reading, int) {
	readings := make([]Reading, 0, len(series.Readings))
	skipped := 0
	for _, raw := range series.Readings {
		r, err := ParseReading(raw, loc)
		if err != nil {
			skipped++
			continue
		}
		readings = append(readings, r)
	}
	return readings, skipped
}

func parseTime(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty time", ErrMalformedReading)
	}
	if loc == nil {
		loc = time.UTC
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.In(loc).Truncate(time.Minute), nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t.Truncate(time.Minute), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: time %q", ErrMalformedReading, s)
}

func parseAmount(field, s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Decimal{}, fmt.Errorf("%w: empty %s", ErrMalformedReading, field)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: %s %q", ErrMalformedReading, field, s)
	}
	if d.IsNegative() {
		return decimal.Decimal{}, fmt.Errorf("%w: negative %s %q", ErrMalformedReading, field, s)
	}
	return d, nil
}
