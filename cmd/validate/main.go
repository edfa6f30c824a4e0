// Command validate performs integrity checks on the CSV outputs of
// cmd/rainfall against the readings they were built from. It verifies row
// counts, event numbering, the blank-cell grouping layout, totals, and that a
// fresh run reproduces the files exactly.
//
// Usage:
//
//	go run ./cmd/validate -input data/mock/readings_54511.csv -dir out/
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/couchcryptid/rainfall-etl/internal/adapter/csvfile"
	"github.com/couchcryptid/rainfall-etl/internal/config"
	"github.com/couchcryptid/rainfall-etl/internal/domain"
	"github.com/couchcryptid/rainfall-etl/internal/pipeline"
	"github.com/couchcryptid/rainfall-etl/internal/report"
	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	input := flag.String("input", "", "readings CSV that was processed")
	dir := flag.String("dir", ".", "directory holding the <station>_events.csv and <station>_daily.csv outputs")
	station := flag.String("station", "", "station ID used for the outputs (default: input file name)")
	flag.Parse()

	if *input == "" {
		flag.Usage()
		os.Exit(1)
	}
	os.Exit(run(*input, *dir, *station))
}

func run(inputPath, dir, station string) int {
	fmt.Println("=== Rainfall Output Validation ===")
	fmt.Println()

	rules, err := config.LoadRules()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		return 1
	}
	loc, err := config.LoadLocation()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		return 1
	}

	series, err := csvfile.ReadFile(inputPath, station)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load input: %v\n", err)
		return 1
	}
	readings, skipped := domain.ParseSeries(series, loc)

	eventsPath, dailyPath := csvfile.OutputPaths(dir, series.StationID)
	events, err := loadCSV(eventsPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load events CSV: %v\n", err)
		return 1
	}
	daily, err := loadCSV(dailyPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load daily CSV: %v\n", err)
		return 1
	}

	wet := 0
	for _, r := range readings {
		if r.Wet() {
			wet++
		}
	}

	phases := []*phase{
		validateSource(readings),
		validateEvents(events, wet),
		validateDaily(daily, events, loc),
		validateRerun(series, rules, loc, events, daily),
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Readings: %d parsed, %d skipped, %d wet; rows: %d events CSV, %d daily CSV\n",
		len(readings), skipped, wet, len(events)-1, len(daily)-1)

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

func loadCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return readAll(f)
}

func readAll(r io.Reader) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 5
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("missing header row")
	}
	return rows, nil
}

// ── Phases ──

func validateSource(readings []domain.Reading) *phase {
	p := &phase{name: "Source readings are in order"}
	if err := domain.ValidateOrder(readings); err != nil {
		p.errorf("%v", err)
	}
	return p
}

// validateEvents checks the event table layout: one row per wet reading,
// non-decreasing event numbers, keys and totals only on group heads, and
// each head total equal to the sum of its group's I30 column.
func validateEvents(rows [][]string, wet int) *phase {
	p := &phase{name: "Events CSV layout and totals"}
	data := rows[1:]
	if len(data) != wet {
		p.errorf("event rows = %d, want %d (one per wet reading)", len(data), wet)
	}

	last := -1
	checkGroups(p, data, func(line int, key string) {
		n, err := strconv.Atoi(key)
		if err != nil {
			p.errorf("line %d: event %q is not a number", line, key)
			return
		}
		if n <= last {
			p.errorf("line %d: event %d does not follow event %d", line, n, last)
		}
		last = n
	})
	return p
}

// validateDaily checks the day table layout and that it carries the same
// readings as the event table in the same order.
func validateDaily(daily, events [][]string, loc *time.Location) *phase {
	p := &phase{name: "Daily CSV layout and totals"}
	data := daily[1:]
	if len(data) != len(events)-1 {
		p.errorf("daily rows = %d, want %d (same as event rows)", len(data), len(events)-1)
	}

	var last time.Time
	checkGroups(p, data, func(line int, key string) {
		d, err := time.ParseInLocation(domain.DateLayout, key, loc)
		if err != nil {
			p.errorf("line %d: date %q: %v", line, key, err)
			return
		}
		if !last.IsZero() && !d.After(last) {
			p.errorf("line %d: date %s does not follow %s", line, key, last.Format(domain.DateLayout))
		}
		last = d
	})

	for i := 1; i <= len(data) && i < len(events); i++ {
		want := events[i][report.ColTime : report.ColI15+1]
		got := data[i-1][report.ColTime : report.ColI15+1]
		if diff := cmp.Diff(want, got); diff != "" {
			p.errorf("line %d: reading differs from events CSV (-events +daily):\n%s", i+1, diff)
		}
	}
	return p
}

// checkGroups walks rows grouped by a key cell that is blank after the
// group's first row. onKey is called for every group head.
func checkGroups(p *phase, data [][]string, onKey func(line int, key string)) {
	var (
		head  = -1
		sum   decimal.Decimal
		total decimal.Decimal
	)
	closeGroup := func() {
		if head >= 0 && !sum.Equal(total) {
			p.errorf("line %d: total %s, want sum of I30 %s", head+2, total, sum)
		}
	}

	for i, row := range data {
		line := i + 2
		if row[report.ColKey] != "" {
			closeGroup()
			head = i
			sum = decimal.Zero
			onKey(line, row[report.ColKey])

			t, err := decimal.NewFromString(row[report.ColTotal])
			if err != nil {
				p.errorf("line %d: total %q: %v", line, row[report.ColTotal], err)
			}
			total = t
		} else {
			if head < 0 {
				p.errorf("line %d: blank key before any group head", line)
			}
			if row[report.ColTotal] != "" {
				p.errorf("line %d: total %q outside a group head", line, row[report.ColTotal])
			}
		}

		v, err := decimal.NewFromString(row[report.ColI30])
		if err != nil || !v.IsPositive() {
			p.errorf("line %d: I30 %q is not a positive amount", line, row[report.ColI30])
			continue
		}
		sum = sum.Add(v)
	}
	closeGroup()
}

// validateRerun processes the input again and compares the rendered tables
// with the files on disk.
func validateRerun(series domain.RawSeries, rules domain.Rules, loc *time.Location, events, daily [][]string) *phase {
	p := &phase{name: "Fresh run reproduces the CSV files"}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r, err := pipeline.NewTransformer(rules, loc, logger).ProcessSeries(series)
	if err != nil {
		p.errorf("process: %v", err)
		return p
	}

	if diff := cmp.Diff(report.EventTable(r.Events).Records(), events); diff != "" {
		p.errorf("events CSV (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(report.DayTable(r.Days).Records(), daily); diff != "" {
		p.errorf("daily CSV (-want +got):\n%s", diff)
	}
	return p
}
