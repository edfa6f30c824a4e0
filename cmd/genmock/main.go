// Command genmock generates rainfall reading fixtures for the test suites.
// It either synthesizes a seeded random series or converts an existing CSV,
// then runs the real transformer so the printed stats match pipeline behavior.
//
// Usage:
//
//	go run ./cmd/genmock -days 3 -seed 7 -csv-out data/mock/readings_synthetic.csv
//	go run ./cmd/genmock -from data/mock/readings_54511.csv -json-out data/mock/series_54511.json
package main

import (
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"time"

	"github.com/couchcryptid/rainfall-etl/internal/adapter/csvfile"
	"github.com/couchcryptid/rainfall-etl/internal/domain"
	"github.com/couchcryptid/rainfall-etl/internal/pipeline"
	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"
)

const step = 30 * time.Minute

type synthOptions struct {
	station string
	start   time.Time
	days    int
	seed    uint64
	wetProb float64
}

func main() {
	if err := run(); err != nil {
		slog.Error("genmock failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	from := flag.String("from", "", "existing readings CSV to convert (skips synthesis)")
	station := flag.String("station", "synthetic", "station ID for synthesized series")
	start := flag.String("start", "2024-07-01", "first day of the synthesized series")
	days := flag.Int("days", 2, "number of days to synthesize")
	seed := flag.Uint64("seed", 1, "random seed")
	wetProb := flag.Float64("wet-prob", 0.15, "probability that a dry half hour starts a wet spell")
	csvOut := flag.String("csv-out", "", "output path for the readings CSV fixture")
	jsonOut := flag.String("json-out", "", "output path for the source message JSON fixture")
	flag.Parse()

	if *csvOut == "" && *jsonOut == "" {
		flag.Usage()
		return fmt.Errorf("missing output flag: -csv-out or -json-out")
	}

	var series domain.RawSeries
	if *from != "" {
		var err error
		if series, err = csvfile.ReadFile(*from, ""); err != nil {
			return err
		}
	} else {
		day, err := time.Parse(domain.DateLayout, *start)
		if err != nil {
			return fmt.Errorf("invalid -start: %w", err)
		}
		if *days < 1 || *wetProb <= 0 || *wetProb >= 1 {
			return fmt.Errorf("-days must be positive and -wet-prob within (0, 1)")
		}
		series = synthesize(synthOptions{
			station: *station,
			start:   day,
			days:    *days,
			seed:    *seed,
			wetProb: *wetProb,
		})
	}
	slog.Info("series ready", "station_id", series.StationID, "readings", len(series.Readings))

	if *csvOut != "" {
		if err := writeFile(*csvOut, func(w io.Writer) error { return writeCSV(w, series) }); err != nil {
			return fmt.Errorf("writing CSV fixture: %w", err)
		}
		slog.Info("wrote CSV fixture", "path", *csvOut)
	}
	if *jsonOut != "" {
		if err := writeFile(*jsonOut, func(w io.Writer) error { return writeJSON(w, series) }); err != nil {
			return fmt.Errorf("writing JSON fixture: %w", err)
		}
		slog.Info("wrote JSON fixture", "path", *jsonOut)
	}

	// Fixed clock for reproducible ProcessedAt timestamps.
	domain.SetClock(clockwork.NewFakeClockAt(time.Date(2024, time.July, 3, 0, 0, 0, 0, time.UTC)))
	defer domain.SetClock(nil)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	report, err := pipeline.NewTransformer(domain.DefaultRules(), time.UTC, logger).ProcessSeries(series)
	if err != nil {
		return fmt.Errorf("processing series: %w", err)
	}
	printStats(report)
	return nil
}

// synthesize builds a half-hourly series of alternating dry stretches and
// wet spells. Amounts are whole tenths so totals stay exact.
func synthesize(opts synthOptions) domain.RawSeries {
	rng := rand.New(rand.NewPCG(opts.seed, opts.seed^0x9e3779b97f4a7c15))
	end := opts.start.AddDate(0, 0, opts.days)

	series := domain.RawSeries{StationID: opts.station}
	spell := 0
	for t := opts.start; t.Before(end); t = t.Add(step) {
		if spell == 0 && rng.Float64() < opts.wetProb {
			spell = 1 + rng.IntN(8)
		}

		i30, i15 := decimal.Zero, decimal.Zero
		if spell > 0 {
			i30 = decimal.New(int64(1+rng.IntN(15)), -1)
			i15 = decimal.New(int64(rng.IntN(int(i30.Shift(1).IntPart())+1)), -1)
			spell--
		}
		series.Readings = append(series.Readings, domain.RawReading{
			Time: t.Format(domain.TimeLayout),
			I30:  i30.StringFixed(1),
			I15:  i15.StringFixed(1),
		})
	}
	return series
}

func writeFile(path string, write func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func writeCSV(w io.Writer, series domain.RawSeries) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"time", "i30", "i15"}); err != nil {
		return err
	}
	for _, r := range series.Readings {
		if err := cw.Write([]string{r.Time, r.I30, r.I15}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeJSON(w io.Writer, series domain.RawSeries) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(series)
}

// printStats prints the numbers the fixture-driven tests assert on.
func printStats(r domain.Report) {
	fmt.Println("\n=== Stats for updating test assertions ===")
	fmt.Printf("Station: %s\n", r.StationID)
	fmt.Printf("Skipped: %d\n", r.Skipped)
	fmt.Printf("Events: %d, event rows: %d, daily rows: %d\n", r.EventCount(), len(r.Events), len(r.Days))

	fmt.Println("\nPer event (rows, total):")
	counts := map[int]int{}
	totals := map[int]decimal.Decimal{}
	var order []int
	for _, e := range r.Events {
		if _, seen := counts[e.Event]; !seen {
			order = append(order, e.Event)
		}
		counts[e.Event]++
		totals[e.Event] = totals[e.Event].Add(e.Amount30)
	}
	for _, n := range order {
		fmt.Printf("  %d: %d rows, %s\n", n, counts[n], totals[n])
	}

	fmt.Println("\nPer day (rows, total):")
	for i := 0; i < len(r.Days); {
		j := i
		for j < len(r.Days) && r.Days[j].Date.Equal(r.Days[i].Date) {
			j++
		}
		fmt.Printf("  %s: %d rows, %s\n", r.Days[i].Date.Format(domain.DateLayout), j-i, r.Days[i].DayTotal)
		i = j
	}
}
