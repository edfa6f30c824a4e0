package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/couchcryptid/rainfall-etl/internal/adapter/csvfile"
	"github.com/couchcryptid/rainfall-etl/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func header() []string { return []string{"Event", "Time", "I30", "I15", "Rainfall"} }

func TestValidateEvents(t *testing.T) {
	tests := []struct {
		name   string
		rows   [][]string
		wet    int
		errors int
	}{
		{
			name: "valid",
			rows: [][]string{
				header(),
				{"1", "2024-06-01 08:00", "2", "1", "2.5"},
				{"", "2024-06-01 08:30", "0.5", "0", ""},
				{"2", "2024-06-01 15:00", "1", "0.5", "1"},
			},
			wet: 3,
		},
		{
			name: "wrong total",
			rows: [][]string{
				header(),
				{"1", "2024-06-01 08:00", "2", "1", "3"},
			},
			wet:    1,
			errors: 1,
		},
		{
			name: "event number repeats",
			rows: [][]string{
				header(),
				{"1", "2024-06-01 08:00", "2", "1", "2"},
				{"1", "2024-06-01 15:00", "1", "0.5", "1"},
			},
			wet:    2,
			errors: 1,
		},
		{
			name: "total on continuation row",
			rows: [][]string{
				header(),
				{"1", "2024-06-01 08:00", "2", "1", "2.5"},
				{"", "2024-06-01 08:30", "0.5", "0", "0.5"},
			},
			wet:    2,
			errors: 1,
		},
		{
			name: "row count mismatch",
			rows: [][]string{
				header(),
				{"1", "2024-06-01 08:00", "2", "1", "2"},
			},
			wet:    2,
			errors: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validateEvents(tt.rows, tt.wet)
			assert.Len(t, p.errors, tt.errors, p.errors)
		})
	}
}

func TestRun_MockData(t *testing.T) {
	input := filepath.Join("..", "..", "data", "mock", "readings_54511.csv")
	dir := t.TempDir()

	series, err := csvfile.ReadFile(input, "")
	require.NoError(t, err)
	readings, skipped := domain.ParseSeries(series, nil)
	res, err := domain.Process(readings, domain.DefaultRules())
	require.NoError(t, err)

	w, err := csvfile.NewWriter(dir)
	require.NoError(t, err)
	require.NoError(t, w.LoadBatch(t.Context(), []domain.Report{domain.NewReport(series.StationID, res, skipped)}))

	assert.Equal(t, 0, run(input, dir, ""))

	// Tampering with a total must fail validation.
	eventsPath, _ := w.Paths(series.StationID)
	require.NoError(t, os.WriteFile(eventsPath, []byte("Event,Time,I30,I15,Rainfall\n1,2024-07-01 00:30,1,1,9\n"), 0o600))
	assert.Equal(t, 1, run(input, dir, ""))
}
