package sheets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/CirroBio/cirro-annotation/internal/common"
	"github.com/CirroBio/cirro-annotation/internal/model"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// Header is the first row of the exported term table.
var Header = []any{"Term", "Columns", "Process", "File", "Name", "Description"}

// Writer exports terms to a Google Sheet.
type Writer struct {
	service *sheets.Service
	logger  *slog.Logger
	config  Config
}

// NewWriter creates a writer authenticated from config.
func NewWriter(ctx context.Context, config Config, logger *slog.Logger) (*Writer, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	service, err := createSheetsService(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	return newWriter(service, config, logger), nil
}

func newWriter(service *sheets.Service, config Config, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	if config.SheetTitle == "" {
		config.SheetTitle = "Terms"
	}
	return &Writer{
		config:  config,
		service: service,
		logger:  logger,
	}
}

// WriteTerms replaces the sheet contents with one row per term source and
// returns the spreadsheet ID.
func (w *Writer) WriteTerms(ctx context.Context, terms model.Terms) (string, error) {
	w.logger.Info("starting term export", "terms", len(terms))

	target, err := w.resolveTarget(ctx)
	if err != nil {
		return "", err
	}

	retryOpts := common.RetryOptions{
		MaxAttempts:  w.config.RetryAttempts,
		InitialDelay: w.config.RetryDelay,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}
	retry := func(op func() error) error {
		return common.WithRetry(ctx, func() error { return retryClass(op()) }, retryOpts)
	}

	if err := retry(func() error { return w.clearSheet(ctx, target) }); err != nil {
		return "", fmt.Errorf("failed to clear sheet: %w", err)
	}

	values := prepareTermsData(terms)
	if err := retry(func() error { return w.writeData(ctx, target, values) }); err != nil {
		return "", fmt.Errorf("failed to write data: %w", err)
	}

	if w.config.EnableFormatting {
		if err := retry(func() error { return w.applyFormatting(ctx, target, len(values)) }); err != nil {
			// Formatting is cosmetic.
			w.logger.Warn("failed to apply formatting", "error", err)
		}
	}

	w.logger.Info("term export completed",
		"spreadsheet_id", target.spreadsheetID,
		"sheet_id", target.sheetID,
		"rows_written", len(values))

	return target.spreadsheetID, nil
}

// sheetTarget addresses the tab the terms are written to.
type sheetTarget struct {
	spreadsheetID string
	title         string
	sheetID       int64
}

func (t sheetTarget) cells(a1 string) string {
	return fmt.Sprintf("'%s'!%s", strings.ReplaceAll(t.title, "'", "''"), a1)
}

// retryClass marks Sheets API failures for WithRetry: 429 is a rate limit,
// other 4xx responses are permanent and anything else may be retried.
func retryClass(err error) error {
	if common.IsRetryable(err) {
		return err
	}
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return err
	}
	switch {
	case apiErr.Code == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %w", common.ErrRateLimit, err)
	case apiErr.Code >= 400 && apiErr.Code < 500:
		return common.Permanent(err)
	}
	return err
}

// createSheetsService creates a Google Sheets API service.
func createSheetsService(ctx context.Context, config Config) (*sheets.Service, error) {
	var tokenSource oauth2.TokenSource

	if config.ServiceAccountPath != "" {
		jsonKey, err := os.ReadFile(config.ServiceAccountPath)
		if err != nil {
			return nil, fmt.Errorf("unable to read service account key file: %w", err)
		}

		jwtConfig, err := google.JWTConfigFromJSON(jsonKey, sheets.SpreadsheetsScope)
		if err != nil {
			return nil, fmt.Errorf("unable to parse service account key: %w", err)
		}

		tokenSource = jwtConfig.TokenSource(ctx)
	} else {
		client := &oauth2.Config{
			ClientID:     config.ClientID,
			ClientSecret: config.ClientSecret,
			Endpoint:     google.Endpoint,
			Scopes:       []string{sheets.SpreadsheetsScope},
		}

		token := &oauth2.Token{
			RefreshToken: config.RefreshToken,
			TokenType:    "Bearer",
		}

		tokenSource = client.TokenSource(ctx, token)
	}

	httpClient := oauth2.NewClient(ctx, tokenSource)
	srv, err := sheets.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("unable to create sheets service: %w", err)
	}

	return srv, nil
}

// resolveTarget opens the configured spreadsheet, adding the terms tab when
// it is missing, or creates a new spreadsheet when none is configured.
func (w *Writer) resolveTarget(ctx context.Context) (sheetTarget, error) {
	target := sheetTarget{spreadsheetID: w.config.SpreadsheetID, title: w.config.SheetTitle}

	if target.spreadsheetID == "" {
		spreadsheet := &sheets.Spreadsheet{
			Properties: &sheets.SpreadsheetProperties{
				Title:    w.config.SpreadsheetName,
				TimeZone: w.config.TimeZone,
			},
			Sheets: []*sheets.Sheet{
				{
					Properties: &sheets.SheetProperties{
						Title: w.config.SheetTitle,
					},
				},
			},
		}

		created, err := w.service.Spreadsheets.Create(spreadsheet).Context(ctx).Do()
		if err != nil {
			return sheetTarget{}, fmt.Errorf("unable to create spreadsheet: %w", err)
		}
		w.logger.Info("created new spreadsheet",
			"id", created.SpreadsheetId,
			"url", created.SpreadsheetUrl)

		target.spreadsheetID = created.SpreadsheetId
		if id, ok := findSheet(created, target.title); ok {
			target.sheetID = id
		}
		return target, nil
	}

	existing, err := w.service.Spreadsheets.Get(target.spreadsheetID).
		Fields("spreadsheetId", "sheets.properties").
		Context(ctx).Do()
	if err != nil {
		return sheetTarget{}, fmt.Errorf("unable to access spreadsheet %s: %w", target.spreadsheetID, err)
	}
	if id, ok := findSheet(existing, target.title); ok {
		target.sheetID = id
		return target, nil
	}

	resp, err := w.service.Spreadsheets.BatchUpdate(target.spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			AddSheet: &sheets.AddSheetRequest{
				Properties: &sheets.SheetProperties{Title: target.title},
			},
		}},
	}).Context(ctx).Do()
	if err != nil {
		return sheetTarget{}, fmt.Errorf("unable to add sheet %q: %w", target.title, err)
	}
	if len(resp.Replies) > 0 && resp.Replies[0].AddSheet != nil && resp.Replies[0].AddSheet.Properties != nil {
		target.sheetID = resp.Replies[0].AddSheet.Properties.SheetId
	}
	w.logger.Info("added sheet", "title", target.title, "sheet_id", target.sheetID)
	return target, nil
}

func findSheet(spreadsheet *sheets.Spreadsheet, title string) (int64, bool) {
	for _, sheet := range spreadsheet.Sheets {
		if sheet.Properties != nil && sheet.Properties.Title == title {
			return sheet.Properties.SheetId, true
		}
	}
	return 0, false
}

// clearSheet clears the term columns.
func (w *Writer) clearSheet(ctx context.Context, target sheetTarget) error {
	_, err := w.service.Spreadsheets.Values.Clear(target.spreadsheetID, target.cells("A:F"), &sheets.ClearValuesRequest{}).Context(ctx).Do()
	return err
}

// prepareTermsData flattens terms into rows: one per metadata entry, terms
// in key order.
func prepareTermsData(terms model.Terms) [][]any {
	keys := make([]string, 0, len(terms))
	rows := 1
	for key, term := range terms {
		keys = append(keys, key)
		rows += len(term.Metadata)
	}
	sort.Strings(keys)

	values := make([][]any, 0, rows)
	values = append(values, Header)

	for _, key := range keys {
		term := terms[key]
		columns := strings.Join(term.Column, "; ")
		for _, md := range term.Metadata {
			values = append(values, []any{key, columns, md.Process, md.File, md.Name, md.Desc})
		}
	}
	return values
}

// writeData writes the rows in batches of BatchSize.
func (w *Writer) writeData(ctx context.Context, target sheetTarget, values [][]any) error {
	for start := 0; start < len(values); start += w.config.BatchSize {
		batch := values[start:min(start+w.config.BatchSize, len(values))]

		_, err := w.service.Spreadsheets.Values.Update(target.spreadsheetID,
			target.cells(fmt.Sprintf("A%d", start+1)),
			&sheets.ValueRange{Values: batch}).
			ValueInputOption("RAW").
			Context(ctx).
			Do()
		if err != nil {
			return fmt.Errorf("failed to write batch starting at row %d: %w", start+1, err)
		}

		w.logger.Debug("wrote batch", "start_row", start+1, "rows", len(batch))
	}
	return nil
}

// applyFormatting bolds and freezes the header row, adds a filter over the
// written rows and sizes the columns.
func (w *Writer) applyFormatting(ctx context.Context, target sheetTarget, rows int) error {
	columns := int64(len(Header))
	grid := func(endRow int64) *sheets.GridRange {
		return &sheets.GridRange{
			SheetId:         target.sheetID,
			EndRowIndex:     endRow,
			EndColumnIndex:  columns,
			ForceSendFields: []string{"SheetId"},
		}
	}

	requests := []*sheets.Request{
		{
			RepeatCell: &sheets.RepeatCellRequest{
				Range: grid(1),
				Cell: &sheets.CellData{
					UserEnteredFormat: &sheets.CellFormat{
						TextFormat: &sheets.TextFormat{Bold: true},
					},
				},
				Fields: "userEnteredFormat.textFormat",
			},
		},
		{
			UpdateSheetProperties: &sheets.UpdateSheetPropertiesRequest{
				Properties: &sheets.SheetProperties{
					SheetId:         target.sheetID,
					GridProperties:  &sheets.GridProperties{FrozenRowCount: 1},
					ForceSendFields: []string{"SheetId"},
				},
				Fields: "gridProperties.frozenRowCount",
			},
		},
		{
			SetBasicFilter: &sheets.SetBasicFilterRequest{
				Filter: &sheets.BasicFilter{Range: grid(int64(rows))},
			},
		},
		{
			AutoResizeDimensions: &sheets.AutoResizeDimensionsRequest{
				Dimensions: &sheets.DimensionRange{
					SheetId:         target.sheetID,
					Dimension:       "COLUMNS",
					EndIndex:        columns,
					ForceSendFields: []string{"SheetId"},
				},
			},
		},
	}

	_, err := w.service.Spreadsheets.BatchUpdate(target.spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
		Requests: requests,
	}).Context(ctx).Do()
	return err
}
