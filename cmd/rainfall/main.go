// Command rainfall partitions reading CSV files into rainfall events and
// day totals, writing <station>_events.csv and <station>_daily.csv for each
// input and optionally pushing both tables to Google Sheets.
//
// Usage:
//
//	go run ./cmd/rainfall -out out/ data/mock/readings_54511.csv
//	go run ./cmd/rainfall -sheets -gap 4h station_a.csv station_b.csv
//
// Rules and the time zone default to the EVENT_* and READING_TIMEZONE
// environment variables (a .env file is loaded if present).
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/couchcryptid/rainfall-etl/internal/adapter/csvfile"
	"github.com/couchcryptid/rainfall-etl/internal/adapter/sheets"
	"github.com/couchcryptid/rainfall-etl/internal/config"
	"github.com/couchcryptid/rainfall-etl/internal/domain"
	"github.com/couchcryptid/rainfall-etl/internal/pipeline"
	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

type options struct {
	outDir    string
	station   string
	toSheets  bool
	workers   int
	verbose   bool
	rules     domain.Rules
	location  *time.Location
	sheetOpts sheets.Options
	credsFile string
	inputs    []string
}

func main() {
	_ = godotenv.Load()

	opts, err := parseFlags()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	level := "info"
	if opts.verbose {
		level = "debug"
	}
	logger := sharedobs.NewLogger(level, "text")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts, logger); err != nil {
		logger.Error("rainfall failed", "error", err)
		os.Exit(1)
	}
}

func parseFlags() (options, error) {
	rules, err := config.LoadRules()
	if err != nil {
		return options{}, err
	}
	loc, err := config.LoadLocation()
	if err != nil {
		return options{}, err
	}

	opts := options{rules: rules, location: loc}
	var tz, splitAmount string

	flag.StringVar(&opts.outDir, "out", ".", "directory for the output CSV files")
	flag.StringVar(&opts.station, "station", "", "station ID (default: input file name)")
	flag.BoolVar(&opts.toSheets, "sheets", false, "also write to Google Sheets (SHEETS_* and GOOGLE_CREDENTIALS_FILE)")
	flag.IntVar(&opts.workers, "workers", 4, "files processed concurrently")
	flag.BoolVar(&opts.verbose, "v", false, "debug logging")
	flag.DurationVar(&opts.rules.Gap, "gap", rules.Gap, "dry time after which a new event starts")
	flag.DurationVar(&opts.rules.SplitAfter, "split-after", rules.SplitAfter, "wet spell length after which an event may split")
	flag.StringVar(&splitAmount, "split-amount", rules.SplitAmount.String(), "event total above which a long spell splits")
	flag.BoolVar(&opts.rules.OpenFirstEvent, "open-first", rules.OpenFirstEvent, "always number the first wet spell as event 1")
	flag.StringVar(&tz, "tz", loc.String(), "IANA time zone of naive reading times")
	flag.Parse()

	opts.inputs = flag.Args()
	if len(opts.inputs) == 0 {
		flag.Usage()
		return options{}, errors.New("no input files")
	}
	if opts.station != "" && len(opts.inputs) > 1 {
		return options{}, errors.New("-station needs exactly one input file")
	}
	if opts.workers < 1 {
		return options{}, errors.New("-workers must be at least 1")
	}
	if opts.rules.Gap <= 0 || opts.rules.SplitAfter <= 0 {
		return options{}, errors.New("-gap and -split-after must be positive")
	}

	opts.rules.SplitAmount, err = decimal.NewFromString(splitAmount)
	if err != nil || opts.rules.SplitAmount.IsNegative() {
		return options{}, fmt.Errorf("invalid -split-amount %q", splitAmount)
	}
	opts.location, err = time.LoadLocation(tz)
	if err != nil {
		return options{}, fmt.Errorf("invalid -tz %q: %w", tz, err)
	}

	opts.sheetOpts = sheets.Options{
		SpreadsheetID: sharedcfg.EnvOrDefault("SHEETS_SPREADSHEET_ID", ""),
		EventsSheet:   sharedcfg.EnvOrDefault("SHEETS_EVENTS_SHEET", "Events"),
		DailySheet:    sharedcfg.EnvOrDefault("SHEETS_DAILY_SHEET", "Daily"),
	}
	opts.credsFile = sharedcfg.EnvOrDefault("GOOGLE_CREDENTIALS_FILE", "")
	return opts, nil
}

func run(ctx context.Context, opts options, logger *slog.Logger) error {
	csvWriter, err := csvfile.NewWriter(opts.outDir)
	if err != nil {
		return err
	}
	loaders := pipeline.Fanout{csvWriter}

	if opts.toSheets {
		clientOpts, err := sheets.CredentialsOptions(opts.credsFile)
		if err != nil {
			return err
		}
		sw, err := sheets.NewWriter(ctx, opts.sheetOpts, logger, clientOpts...)
		if err != nil {
			return err
		}
		loaders = append(loaders, sw)
	}

	transformer := pipeline.NewTransformer(opts.rules, opts.location, logger)

	var (
		mu      sync.Mutex
		reports []domain.Report
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.workers)
	for _, path := range opts.inputs {
		g.Go(func() error {
			logger.Info("processing file", "path", path)
			series, err := csvfile.ReadFile(path, opts.station)
			if err != nil {
				return err
			}
			report, err := transformer.ProcessSeries(series)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			if err := loaders.LoadBatch(gctx, []domain.Report{report}); err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			mu.Lock()
			reports = append(reports, report)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, r := range reports {
		eventsPath, dailyPath := csvWriter.Paths(r.StationID)
		logger.Info("station processed",
			"station_id", r.StationID,
			"events", r.EventCount(),
			"wet_readings", len(r.Events),
			"days", countDays(r.Days),
			"skipped", r.Skipped,
			"events_csv", eventsPath,
			"daily_csv", dailyPath,
		)
	}
	return nil
}

func countDays(days []domain.DayAggregatedReading) int {
	n := 0
	for i := range days {
		if i == 0 || !days[i].Date.Equal(days[i-1].Date) {
			n++
		}
	}
	return n
}
