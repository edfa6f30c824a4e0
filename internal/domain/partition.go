package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Rules are the thresholds that split a reading stream into rainfall events.
type Rules struct {
	// Gap is the dry interval, measured from the first dry reading after a
	// wet spell, that must be exceeded for the next wet reading to open a new event.
	Gap time.Duration

	// SplitAfter is how long a wet spell must have run before SplitAmount is checked.
	SplitAfter time.Duration

	// SplitAmount is the accumulated Amount30 of the current event that must be
	// exceeded for a long spell to be split.
	SplitAmount decimal.Decimal

	// OpenFirstEvent makes the first wet reading always open event 1, even when
	// it falls within Gap of the leading dry readings.
	OpenFirstEvent bool
}

// DefaultRules returns the standard erosive-rainfall segmentation thresholds:
// a 6 hour gap, and a split of spells longer than 6 hours carrying more than 1.3.
func DefaultRules() Rules {
	return Rules{
		Gap:         6 * time.Hour,
		SplitAfter:  6 * time.Hour,
		SplitAmount: decimal.RequireFromString("1.3"),
	}
}

// Partitioner assigns event numbers to wet readings one at a time.
// The zero value is not usable; create one with NewPartitioner.
type Partitioner struct {
	rules Rules

	event   int
	raining bool

	// Zero times mean "unset".
	firstWet time.Time
	firstDry time.Time
	lastWet  time.Time

	// eventTotal is the Amount30 already emitted under the current event.
	eventTotal decimal.Decimal
}

// NewPartitioner returns a partitioner in the initial dry state.
func NewPartitioner(rules Rules) *Partitioner {
	return &Partitioner{rules: rules}
}

// Event returns the current event number; 0 until the first event opens.
func (p *Partitioner) Event() int { return p.event }

// Raining reports whether the partitioner is inside a wet spell.
func (p *Partitioner) Raining() bool { return p.raining }

// EventTotal returns the Amount30 emitted so far under the current event.
func (p *Partitioner) EventTotal() decimal.Decimal { return p.eventTotal }

// Step advances the state machine by one reading. It returns the tagged
// reading and true for wet readings, and false for dry ones.
func (p *Partitioner) Step(r Reading) (PartitionedReading, bool) {
	if !r.Wet() {
		p.dry(r.Time)
		return PartitionedReading{}, false
	}

	p.lastWet = r.Time
	if !p.raining {
		if p.opensEvent(r.Time) {
			p.advance()
		}
		p.firstWet = r.Time
		p.raining = true
	} else if p.lastWet.Sub(p.firstWet) >= p.rules.SplitAfter &&
		p.eventTotal.GreaterThan(p.rules.SplitAmount) {
		// firstWet stays at the start of the spell, so once past SplitAfter
		// every further reading is checked against the fresh event's total.
		p.advance()
	}

	p.eventTotal = p.eventTotal.Add(r.Amount30)
	return PartitionedReading{Event: p.event, Reading: r}, true
}

func (p *Partitioner) dry(t time.Time) {
	if p.raining {
		p.raining = false
		p.firstDry = t
		return
	}
	if p.firstDry.IsZero() {
		p.firstDry = t
	}
}

func (p *Partitioner) opensEvent(t time.Time) bool {
	if p.firstDry.IsZero() {
		return true
	}
	if p.rules.OpenFirstEvent && p.event == 0 {
		return true
	}
	return t.Sub(p.firstDry) > p.rules.Gap
}

func (p *Partitioner) advance() {
	p.event++
	p.eventTotal = decimal.Zero
}

// Partition validates ordering and folds a fresh Partitioner over readings,
// returning the wet readings tagged with their event numbers.
func Partition(readings []Reading, rules Rules) ([]PartitionedReading, error) {
	if err := ValidateOrder(readings); err != nil {
		return nil, err
	}
	return partition(readings, rules), nil
}

func partition(readings []Reading, rules Rules) []PartitionedReading {
	p := NewPartitioner(rules)
	out := make([]PartitionedReading, 0, len(readings))
	for _, r := range readings {
		if pr, ok := p.Step(r); ok {
			out = append(out, pr)
		}
	}
	return out
}
