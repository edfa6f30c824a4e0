// Package domain partitions rainfall-intensity readings into erosive rainfall
// events and per-day totals.
//
// # Input
//
// A series is the readings of one rain gauge in ascending time order. Each
// reading carries the precipitation accumulated over the trailing 15 minutes
// (I15) and 30 minutes (I30). Only I30 decides whether it is raining: a
// reading with I30 > 0 is wet, a reading with I30 == 0 is dry regardless of I15.
//
// Source rows are laid out as time, I30, I15:
//
//	2024-06-01 08:00,2.0,1.1
//	2024-06-01 08:30,0,0
//
// Rows that fail to parse are skipped by the source and never reach the core.
// Out-of-order input is rejected with an [OrderError].
//
// # Event rules
//
// Event numbers start at 1 and never decrease.
//
//	R1: a wet reading more than 6h after the first dry reading that ended the
//	    previous spell opens a new event.
//	R2: once a wet spell has run for 6h or more, a wet reading whose event has
//	    already accumulated more than 1.3 of I30 opens a new event.
//
// The spell start used by R2 is not moved when R2 fires, so a long heavy
// spell is re-checked on every reading after the 6h mark. Leading wet
// readings within 6h of the first dry reading keep event number 0 unless
// [Rules.OpenFirstEvent] is set. Both behaviors are kept as found in the
// field tool this package replaces.
//
// # Day totals
//
// Wet readings are grouped by calendar date in the reading's own location and
// each carries the I30 total of its date.
//
// All amounts are [github.com/shopspring/decimal] values so thresholds are
// compared exactly.
package domain
