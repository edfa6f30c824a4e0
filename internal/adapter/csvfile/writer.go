package csvfile

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/couchcryptid/rainfall-etl/internal/domain"
	"github.com/couchcryptid/rainfall-etl/internal/report"
)

// WriteTable writes the table header and rows as CSV.
func WriteTable(w io.Writer, t report.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(t.Records()); err != nil {
		return fmt.Errorf("write %s table: %w", t.Name, err)
	}
	return nil
}

// Writer stores each report as <station>_events.csv and <station>_daily.csv
// in a directory. It implements pipeline.BatchLoader.
type Writer struct {
	dir string
}

// NewWriter creates a Writer rooted at dir, creating it if needed.
func NewWriter(dir string) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	return &Writer{dir: dir}, nil
}

// LoadBatch writes both tables of every report.
func (w *Writer) LoadBatch(ctx context.Context, reports []domain.Report) error {
	for i := range reports {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := w.write(reports[i]); err != nil {
			return err
		}
	}
	return nil
}

// Paths returns the events and daily file paths used for a station.
func (w *Writer) Paths(stationID string) (string, string) {
	return OutputPaths(w.dir, stationID)
}

// OutputPaths returns <dir>/<station>_events.csv and <dir>/<station>_daily.csv.
func OutputPaths(dir, stationID string) (string, string) {
	if stationID == "" {
		stationID = "series"
	}
	return filepath.Join(dir, stationID+"_events.csv"), filepath.Join(dir, stationID+"_daily.csv")
}

func (w *Writer) write(r domain.Report) error {
	eventsPath, dailyPath := w.Paths(r.StationID)
	if err := writeFile(eventsPath, report.EventTable(r.Events)); err != nil {
		return err
	}
	return writeFile(dailyPath, report.DayTable(r.Days))
}

func writeFile(path string, t report.Table) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteTable(f, t); err != nil {
		f.Close()
		return fmt.Errorf("%s: %w", path, err)
	}
	return f.Close()
}
