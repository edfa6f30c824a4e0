package domain

import "github.com/jonboulle/clockwork"

// clock is a package-level time source so tests can freeze time via SetClock.
// Production code uses the real clock; tests inject a fake for deterministic output.
var clock = clockwork.NewRealClock()

// SetClock swaps the time source used to stamp reports. Pass nil to reset to real time.
func SetClock(c clockwork.Clock) {
	if c == nil {
		clock = clockwork.NewRealClock()
		return
	}
	clock = c
}

// NewReport stamps a processing result for a station with the current time.
func NewReport(stationID string, result Result, skipped int) Report {
	return Report{
		StationID:   stationID,
		Events:      result.Events,
		Days:        result.Days,
		Skipped:     skipped,
		ProcessedAt: clock.Now().UTC(),
	}
}
