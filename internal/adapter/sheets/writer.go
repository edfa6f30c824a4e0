// Package sheets writes report tables to a Google Sheets spreadsheet, one
// sheet per table, merging the blank cells under each event number and date.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/couchcryptid/rainfall-etl/internal/domain"
	"github.com/couchcryptid/rainfall-etl/internal/report"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Writer replaces the contents of the events and daily sheets with each
// report it loads. It implements pipeline.BatchLoader.
type Writer struct {
	svc           *gsheet.Service
	spreadsheetID string
	eventsSheet   string
	dailySheet    string
	logger        *slog.Logger
}

// Options configures a Writer.
type Options struct {
	SpreadsheetID string
	EventsSheet   string
	DailySheet    string
}

// CredentialsOptions returns client options for a service account key file.
// An empty path falls back to application default credentials.
func CredentialsOptions(path string) ([]goption.ClientOption, error) {
	if path == "" {
		return []goption.ClientOption{goption.WithScopes(gsheet.SpreadsheetsScope)}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read service account file: %w", err)
	}
	return []goption.ClientOption{
		goption.WithCredentialsJSON(data),
		goption.WithScopes(gsheet.SpreadsheetsScope),
	}, nil
}

// NewWriter creates a Sheets service from the given client options.
func NewWriter(ctx context.Context, opts Options, logger *slog.Logger, clientOpts ...goption.ClientOption) (*Writer, error) {
	if opts.SpreadsheetID == "" {
		return nil, errors.New("missing spreadsheet ID")
	}
	if opts.EventsSheet == "" || opts.DailySheet == "" {
		return nil, errors.New("missing sheet name")
	}
	svc, err := gsheet.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return &Writer{
		svc:           svc,
		spreadsheetID: opts.SpreadsheetID,
		eventsSheet:   opts.EventsSheet,
		dailySheet:    opts.DailySheet,
		logger:        logger,
	}, nil
}

// LoadBatch writes both tables of every report.
func (w *Writer) LoadBatch(ctx context.Context, reports []domain.Report) error {
	for i := range reports {
		r := reports[i]
		if err := w.writeTable(ctx, sheetTitle(w.eventsSheet, r.StationID), report.EventTable(r.Events)); err != nil {
			return err
		}
		if err := w.writeTable(ctx, sheetTitle(w.dailySheet, r.StationID), report.DayTable(r.Days)); err != nil {
			return err
		}
		w.logger.Info("report written to sheets",
			"station_id", r.StationID,
			"events", r.EventCount(),
			"rows", r.RowCount(),
		)
	}
	return nil
}

func (w *Writer) writeTable(ctx context.Context, title string, t report.Table) error {
	sheetID, err := w.ensureSheet(ctx, title)
	if err != nil {
		return err
	}

	rng := quoteTitle(title)
	if _, err := w.svc.Spreadsheets.Values.Clear(w.spreadsheetID, rng, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear sheet %s: %w", title, err)
	}

	vr := &gsheet.ValueRange{Values: toValues(t.Records())}
	if _, err := w.svc.Spreadsheets.Values.Update(w.spreadsheetID, rng+"!A1", vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do(); err != nil {
		return fmt.Errorf("update sheet %s: %w", title, err)
	}

	req := &gsheet.BatchUpdateSpreadsheetRequest{Requests: mergeRequests(sheetID, t)}
	if _, err := w.svc.Spreadsheets.BatchUpdate(w.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("merge cells in sheet %s: %w", title, err)
	}
	return nil
}

// ensureSheet returns the ID of the sheet with the given title, adding it
// when the spreadsheet has none.
func (w *Writer) ensureSheet(ctx context.Context, title string) (int64, error) {
	ss, err := w.svc.Spreadsheets.Get(w.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("get spreadsheet: %w", err)
	}
	for _, s := range ss.Sheets {
		if s.Properties != nil && s.Properties.Title == title {
			return s.Properties.SheetId, nil
		}
	}

	resp, err := w.svc.Spreadsheets.BatchUpdate(w.spreadsheetID, &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			AddSheet: &gsheet.AddSheetRequest{Properties: &gsheet.SheetProperties{Title: title}},
		}},
	}).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("add sheet %s: %w", title, err)
	}
	if len(resp.Replies) == 0 || resp.Replies[0].AddSheet == nil || resp.Replies[0].AddSheet.Properties == nil {
		return 0, fmt.Errorf("add sheet %s: empty reply", title)
	}
	w.logger.Debug("sheet added", "title", title)
	return resp.Replies[0].AddSheet.Properties.SheetId, nil
}

// mergeRequests unmerges the whole sheet, then merges the key and total
// column of every multi-row group. Row indexes are offset by the header.
func mergeRequests(sheetID int64, t report.Table) []*gsheet.Request {
	reqs := []*gsheet.Request{{
		UnmergeCells: &gsheet.UnmergeCellsRequest{Range: &gsheet.GridRange{
			SheetId:         sheetID,
			ForceSendFields: []string{"SheetId"},
		}},
	}}
	for _, col := range []int{report.ColKey, report.ColTotal} {
		for _, s := range t.MergeSpans(col) {
			reqs = append(reqs, &gsheet.Request{
				MergeCells: &gsheet.MergeCellsRequest{
					MergeType: "MERGE_ALL",
					Range: &gsheet.GridRange{
						SheetId:          sheetID,
						StartRowIndex:    int64(s.Start + 1),
						EndRowIndex:      int64(s.End + 2),
						StartColumnIndex: int64(s.Col),
						EndColumnIndex:   int64(s.Col + 1),
						ForceSendFields:  []string{"SheetId", "StartColumnIndex"},
					},
				},
			})
		}
	}
	return reqs
}

func sheetTitle(base, stationID string) string {
	if stationID == "" {
		return base
	}
	return base + " " + stationID
}

func quoteTitle(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}

func toValues(records [][]string) [][]any {
	out := make([][]any, len(records))
	for i, rec := range records {
		row := make([]any, len(rec))
		for j, c := range rec {
			row[j] = c
		}
		out[i] = row
	}
	return out
}
