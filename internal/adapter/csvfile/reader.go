// Package csvfile reads reading series from CSV files and writes report
// tables back out as CSV.
package csvfile

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/couchcryptid/rainfall-etl/internal/domain"
)

// ReadSeries reads a time,I30,I15 CSV into a RawSeries. A leading header row
// is dropped; short rows are padded with empty cells and left for
// domain.ParseSeries to reject.
func ReadSeries(r io.Reader, stationID string) (domain.RawSeries, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	series := domain.RawSeries{StationID: stationID}
	first := true
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return domain.RawSeries{}, fmt.Errorf("read csv: %w", err)
		}
		if first {
			first = false
			if isHeader(rec) {
				continue
			}
		}
		if blank(rec) {
			continue
		}
		series.Readings = append(series.Readings, domain.RawReading{
			Time: cell(rec, 0),
			I30:  cell(rec, 1),
			I15:  cell(rec, 2),
		})
	}
	return series, nil
}

// ReadFile opens path and reads it with ReadSeries. The station ID defaults
// to the file name without its extension.
func ReadFile(path, stationID string) (domain.RawSeries, error) {
	f, err := os.Open(path)
	if err != nil {
		return domain.RawSeries{}, err
	}
	defer f.Close()

	if stationID == "" {
		stationID = StationFromPath(path)
	}
	series, err := ReadSeries(f, stationID)
	if err != nil {
		return domain.RawSeries{}, fmt.Errorf("%s: %w", path, err)
	}
	return series, nil
}

// StationFromPath derives a station ID from a file name.
func StationFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// isHeader treats a first row as a header when its time cell holds no digit.
func isHeader(rec []string) bool {
	return !strings.ContainsFunc(cell(rec, 0), unicode.IsDigit)
}

func blank(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func cell(rec []string, i int) string {
	if i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}
