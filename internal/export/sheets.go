package export

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/Veraticus/retail-flow/internal/common"
	"github.com/Veraticus/retail-flow/internal/table"
)

// maxTabName is the longest tab title the Sheets API accepts.
const maxTabName = 100

// spreadsheetAPI is the subset of the Sheets API the exporter needs.
type spreadsheetAPI interface {
	Tabs(ctx context.Context, spreadsheetID string) ([]string, error)
	Create(ctx context.Context, title, timeZone string, tabs []string) (id, url string, err error)
	AddTabs(ctx context.Context, spreadsheetID string, tabs []string) error
	Clear(ctx context.Context, spreadsheetID, tab string) error
	Update(ctx context.Context, spreadsheetID, rangeStr string, values [][]any) error
}

// SheetsWriter writes each table to its own tab of one spreadsheet.
type SheetsWriter struct {
	api    spreadsheetAPI
	config SheetsConfig
}

// NewSheetsWriter creates a Google Sheets exporter.
func NewSheetsWriter(ctx context.Context, config SheetsConfig) (*SheetsWriter, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	srv, err := createSheetsService(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	return &SheetsWriter{api: &serviceAPI{srv: srv}, config: config}, nil
}

// Export implements Exporter.
func (w *SheetsWriter) Export(ctx context.Context, tables []*table.Table) error {
	secs, err := sections(tables, maxTabName)
	if err != nil {
		return err
	}
	titles := make([]string, len(secs))
	for i, s := range secs {
		titles[i] = s.title
	}

	spreadsheetID, err := w.getOrCreateSpreadsheet(ctx, titles)
	if err != nil {
		return fmt.Errorf("%w: %w", common.ErrExportFailed, err)
	}

	retryOpts := common.RetryOptions{
		MaxAttempts:  w.config.RetryAttempts,
		InitialDelay: w.config.RetryDelay,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}

	total := 0
	for _, sec := range secs {
		err := common.WithRetry(ctx, func() error {
			return w.api.Clear(ctx, spreadsheetID, sec.title)
		}, retryOpts)
		if err != nil {
			return fmt.Errorf("%w: clear tab %q: %w", common.ErrExportFailed, sec.title, err)
		}

		values := sheetValues(sec.table)
		if err := w.writeData(ctx, spreadsheetID, sec.title, values, retryOpts); err != nil {
			return fmt.Errorf("%w: tab %q: %w", common.ErrExportFailed, sec.title, err)
		}
		total += len(values)
	}

	slog.Info("Exported spreadsheet",
		"spreadsheet_id", spreadsheetID,
		"tabs", len(secs),
		"rows_written", total)
	return nil
}

// getOrCreateSpreadsheet returns the configured spreadsheet, adding missing
// tabs, or creates a new one with every tab.
func (w *SheetsWriter) getOrCreateSpreadsheet(ctx context.Context, titles []string) (string, error) {
	if w.config.SpreadsheetID != "" {
		existing, err := w.api.Tabs(ctx, w.config.SpreadsheetID)
		if err != nil {
			return "", fmt.Errorf("unable to access spreadsheet %s: %w", w.config.SpreadsheetID, err)
		}
		have := make(map[string]bool, len(existing))
		for _, t := range existing {
			have[t] = true
		}
		var missing []string
		for _, t := range titles {
			if !have[t] {
				missing = append(missing, t)
			}
		}
		if len(missing) > 0 {
			if err := w.api.AddTabs(ctx, w.config.SpreadsheetID, missing); err != nil {
				return "", fmt.Errorf("unable to add tabs: %w", err)
			}
		}
		return w.config.SpreadsheetID, nil
	}

	id, url, err := w.api.Create(ctx, w.config.SpreadsheetName, w.config.TimeZone, titles)
	if err != nil {
		return "", fmt.Errorf("unable to create spreadsheet: %w", err)
	}
	slog.Info("Created new spreadsheet", "id", id, "url", url)
	return id, nil
}

// writeData writes values to a tab in batches.
func (w *SheetsWriter) writeData(ctx context.Context, spreadsheetID, tab string, values [][]any, opts common.RetryOptions) error {
	for i := 0; i < len(values); i += w.config.BatchSize {
		end := min(i+w.config.BatchSize, len(values))
		batch := values[i:end]
		rangeStr := fmt.Sprintf("%s!A%d", quoteTab(tab), i+1)

		err := common.WithRetry(ctx, func() error {
			return w.api.Update(ctx, spreadsheetID, rangeStr, batch)
		}, opts)
		if err != nil {
			return fmt.Errorf("failed to write batch starting at row %d: %w", i+1, err)
		}
		slog.Debug("Wrote batch", "tab", tab, "start_row", i+1, "rows", len(batch))
	}
	return nil
}

// sheetValues renders the header and rows. Missing values are empty cells.
func sheetValues(t *table.Table) [][]any {
	if len(t.Columns) == 0 {
		return nil
	}
	values := make([][]any, 0, t.Len()+1)
	header := make([]any, len(t.Columns))
	for i, c := range t.Columns {
		header[i] = c
	}
	values = append(values, header)
	for _, row := range t.Rows {
		cells := make([]any, len(row))
		for i, v := range row {
			cells[i] = table.FormatCell(v)
		}
		values = append(values, cells)
	}
	return values
}

// quoteTab quotes a tab title for A1 notation.
func quoteTab(tab string) string {
	return "'" + strings.ReplaceAll(tab, "'", "''") + "'"
}

// createSheetsService creates a Google Sheets API service.
func createSheetsService(ctx context.Context, config SheetsConfig) (*sheets.Service, error) {
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

// serviceAPI adapts *sheets.Service to spreadsheetAPI.
type serviceAPI struct {
	srv *sheets.Service
}

func (a *serviceAPI) Tabs(ctx context.Context, spreadsheetID string) ([]string, error) {
	ss, err := a.srv.Spreadsheets.Get(spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	titles := make([]string, 0, len(ss.Sheets))
	for _, s := range ss.Sheets {
		if s.Properties != nil {
			titles = append(titles, s.Properties.Title)
		}
	}
	return titles, nil
}

func (a *serviceAPI) Create(ctx context.Context, title, timeZone string, tabs []string) (string, string, error) {
	spreadsheet := &sheets.Spreadsheet{
		Properties: &sheets.SpreadsheetProperties{
			Title:    title,
			TimeZone: timeZone,
		},
	}
	for _, t := range tabs {
		spreadsheet.Sheets = append(spreadsheet.Sheets, &sheets.Sheet{
			Properties: &sheets.SheetProperties{Title: t},
		})
	}

	created, err := a.srv.Spreadsheets.Create(spreadsheet).Context(ctx).Do()
	if err != nil {
		return "", "", err
	}
	return created.SpreadsheetId, created.SpreadsheetUrl, nil
}

func (a *serviceAPI) AddTabs(ctx context.Context, spreadsheetID string, tabs []string) error {
	requests := make([]*sheets.Request, 0, len(tabs))
	for _, t := range tabs {
		requests = append(requests, &sheets.Request{
			AddSheet: &sheets.AddSheetRequest{
				Properties: &sheets.SheetProperties{Title: t},
			},
		})
	}
	_, err := a.srv.Spreadsheets.BatchUpdate(spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
		Requests: requests,
	}).Context(ctx).Do()
	return err
}

func (a *serviceAPI) Clear(ctx context.Context, spreadsheetID, tab string) error {
	_, err := a.srv.Spreadsheets.Values.Clear(spreadsheetID, quoteTab(tab), &sheets.ClearValuesRequest{}).Context(ctx).Do()
	return err
}

func (a *serviceAPI) Update(ctx context.Context, spreadsheetID, rangeStr string, values [][]any) error {
	_, err := a.srv.Spreadsheets.Values.Update(spreadsheetID, rangeStr, &sheets.ValueRange{Values: values}).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	return err
}
