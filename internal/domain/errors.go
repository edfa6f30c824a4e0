package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrOutOfOrder is returned when a reading does not strictly follow the previous one.
	ErrOutOfOrder = errors.New("readings out of order")

	// ErrMalformedReading is returned when a raw reading cannot be parsed.
	ErrMalformedReading = errors.New("malformed reading")

	// ErrInvalidSeries is returned when a message body is not a series at all.
	ErrInvalidSeries = errors.New("invalid series")
)

// OrderError describes the first reading that breaks ascending time order.
type OrderError struct {
	Index    int
	Previous time.Time
	Current  time.Time
}

func (e *OrderError) Error() string {
	return fmt.Sprintf("reading %d at %s does not follow %s",
		e.Index, e.Current.Format(TimeLayout), e.Previous.Format(TimeLayout))
}

func (e *OrderError) Unwrap() error { return ErrOutOfOrder }

// ValidateOrder checks that readings are strictly ascending by time.
func ValidateOrder(readings []Reading) error {
	for i := 1; i < len(readings); i++ {
		if !readings[i].Time.After(readings[i-1].Time) {
			return &OrderError{
				Index:    i,
				Previous: readings[i-1].Time,
				Current:  readings[i].Time,
			}
		}
	}
	return nil
}
