package export

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/Veraticus/retail-flow/internal/common"
	"github.com/Veraticus/retail-flow/internal/table"
)

func TestSectionName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "customer_rfm", want: "Customer Rfm"},
		{in: "Customers", want: "Customers"},
		{in: "cleaned_transactions", want: "Cleaned Transactions"},
		{in: `a/b?c<d>e\f:g*h|i"j`, want: "A B C D E F G H I J"},
		{in: "RFM scores", want: "Rfm Scores"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, SectionName(tt.in))
		})
	}
}

func TestSections(t *testing.T) {
	secs, err := sections([]*table.Table{table.New("b_table"), table.New("a_table")}, 0)
	require.NoError(t, err)
	require.Len(t, secs, 2)
	assert.Equal(t, "A Table", secs[0].title)
	assert.Equal(t, "B Table", secs[1].title)

	_, err = sections([]*table.Table{table.New("customer_rfm"), table.New("Customer RFM")}, 0)
	assert.ErrorIs(t, err, common.ErrExportFailed)

	secs, err = sections([]*table.Table{table.New(strings.Repeat("x", 40))}, maxSheetName)
	require.NoError(t, err)
	assert.Len(t, []rune(secs[0].title), maxSheetName)
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat(" XLSX ")
	require.NoError(t, err)
	assert.Equal(t, FormatXLSX, f)

	_, err = ParseFormat("parquet")
	assert.ErrorIs(t, err, common.ErrInvalidConfig)
}

func sampleTables(t *testing.T) []*table.Table {
	t.Helper()
	customers := table.New("Customers", "Customer ID", "TotalSpent(M)", "Segment")
	require.NoError(t, customers.Append([]any{int64(12346), "77183.6", "Big Spenders"}))
	require.NoError(t, customers.Append([]any{int64(12347), nil, "Best Customers"}))
	require.NoError(t, customers.Append([]any{int64(12348), "1797.24", nil}))

	cleaned := table.New("cleaned_transactions", "Invoice", "CancelledOrder")
	require.NoError(t, cleaned.Append([]any{"C489449", true}))

	return []*table.Table{customers, table.New("Products"), cleaned}
}

func columnSet(cols []string) map[string]bool {
	out := make(map[string]bool, len(cols))
	for _, c := range cols {
		out[c] = true
	}
	return out
}

func assertRoundTrip(t *testing.T, written, read []*table.Table) {
	t.Helper()
	byName := make(map[string]*table.Table, len(read))
	for _, r := range read {
		byName[r.Name] = r
	}
	require.Len(t, read, len(written))
	for _, w := range written {
		r, ok := byName[SectionName(w.Name)]
		require.True(t, ok, "section %q missing", w.Name)
		assert.Equal(t, w.Len(), r.Len(), "rows of %q", w.Name)
		assert.Equal(t, columnSet(w.Columns), columnSet(r.Columns), "columns of %q", w.Name)
	}
}

func TestXLSX_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "report.xlsx")
	tables := sampleTables(t)

	require.NoError(t, NewXLSXWriter(path).Export(context.Background(), tables))

	read, err := ReadXLSX(path)
	require.NoError(t, err)
	assertRoundTrip(t, tables, read)

	names := make([]string, len(read))
	for i, r := range read {
		names[i] = r.Name
	}
	assert.Equal(t, []string{"Cleaned Transactions", "Customers", "Products"}, names)

	customers := read[1]
	assert.Equal(t, []any{"12347", nil, "Best Customers"}, customers.Rows[1])
	assert.Equal(t, []any{"12348", "1797.24", nil}, customers.Rows[2])
	assert.Equal(t, []any{"C489449", "true"}, read[0].Rows[0])
}

func TestXLSX_NumericCells(t *testing.T) {
	path := filepath.Join(t.TempDir(), "numbers.xlsx")
	tbl := table.New("Customers", "Customer ID", "TotalSpent(M)", "Segment")
	require.NoError(t, tbl.Append([]any{int64(12346), decimal.RequireFromString("77183.6"), "Big Spenders"}))

	require.NoError(t, NewXLSXWriter(path).Export(context.Background(), []*table.Table{tbl}))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	for _, cell := range []string{"A2", "B2"} {
		typ, err := f.GetCellType("Customers", cell)
		require.NoError(t, err)
		assert.NotEqual(t, excelize.CellTypeSharedString, typ, cell)
		assert.NotEqual(t, excelize.CellTypeInlineString, typ, cell)
	}
	spent, err := f.GetCellValue("Customers", "B2")
	require.NoError(t, err)
	assert.Equal(t, "77183.6", spent)

	read, err := ReadXLSX(path)
	require.NoError(t, err)
	assert.Equal(t, []any{"12346", "77183.6", "Big Spenders"}, read[0].Rows[0])
}

func TestXLSX_Empty(t *testing.T) {
	err := NewXLSXWriter(filepath.Join(t.TempDir(), "x.xlsx")).Export(context.Background(), nil)
	assert.ErrorIs(t, err, common.ErrExportFailed)
}

func TestSQLite_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.db")
	tables := sampleTables(t)
	w := NewSQLiteWriter(path)
	w.now = func() time.Time { return time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC) }

	require.NoError(t, w.Export(context.Background(), tables))
	// A second export replaces the first.
	require.NoError(t, w.Export(context.Background(), tables))

	read, err := ReadSQLite(context.Background(), path)
	require.NoError(t, err)
	assertRoundTrip(t, tables, read)

	customers := read[1]
	assert.Equal(t, "Customers", customers.Name)
	assert.Equal(t, []string{"Customer ID", "TotalSpent(M)", "Segment"}, customers.Columns)
	assert.Equal(t, []any{"12347", nil, "Best Customers"}, customers.Rows[1])

	infos, err := ReadSections(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, infos, 3)
	assert.Equal(t, "Products", infos[2].Name)
	assert.Empty(t, infos[2].Columns)
	assert.Equal(t, 3, infos[1].Rows)
	assert.Equal(t, time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC), infos[0].ExportedAt)
	_, err = uuid.Parse(infos[0].RunID)
	assert.NoError(t, err)
	assert.Equal(t, infos[0].RunID, infos[2].RunID)
}

func TestSQLite_RejectsIndexCollision(t *testing.T) {
	err := NewSQLiteWriter(filepath.Join(t.TempDir(), "r.db")).
		Export(context.Background(), []*table.Table{table.New("sections", "a")})
	assert.ErrorIs(t, err, common.ErrExportFailed)
}

func TestReadSQLite_MissingFile(t *testing.T) {
	_, err := ReadSQLite(context.Background(), filepath.Join(t.TempDir(), "nope.db"))
	assert.Error(t, err)
}

// fakeSpreadsheet records calls made by the Sheets exporter.
type fakeSpreadsheet struct {
	tabs       []string
	updates    map[string][][]any
	cleared    []string
	added      []string
	created    string
	failUpdate int
}

func newFakeSpreadsheet(tabs ...string) *fakeSpreadsheet {
	return &fakeSpreadsheet{tabs: tabs, updates: make(map[string][][]any)}
}

func (f *fakeSpreadsheet) Tabs(_ context.Context, _ string) ([]string, error) {
	return f.tabs, nil
}

func (f *fakeSpreadsheet) Create(_ context.Context, title, _ string, tabs []string) (string, string, error) {
	f.created = title
	f.tabs = append(f.tabs, tabs...)
	return "new-id", "https://example.invalid/new-id", nil
}

func (f *fakeSpreadsheet) AddTabs(_ context.Context, _ string, tabs []string) error {
	f.added = append(f.added, tabs...)
	f.tabs = append(f.tabs, tabs...)
	return nil
}

func (f *fakeSpreadsheet) Clear(_ context.Context, _ string, tab string) error {
	f.cleared = append(f.cleared, tab)
	return nil
}

func (f *fakeSpreadsheet) Update(_ context.Context, _ string, rangeStr string, values [][]any) error {
	if f.failUpdate > 0 {
		f.failUpdate--
		return errors.New("rate limited")
	}
	f.updates[rangeStr] = values
	return nil
}

func testSheetsConfig() SheetsConfig {
	cfg := DefaultSheetsConfig()
	cfg.ServiceAccountPath = "/dev/null"
	cfg.BatchSize = 2
	cfg.RetryDelay = time.Millisecond
	return cfg
}

func TestSheetsWriter_CreatesSpreadsheet(t *testing.T) {
	api := newFakeSpreadsheet()
	w := &SheetsWriter{api: api, config: testSheetsConfig()}

	require.NoError(t, w.Export(context.Background(), sampleTables(t)))

	assert.Equal(t, "Retail Report", api.created)
	assert.Equal(t, []string{"Cleaned Transactions", "Customers", "Products"}, api.tabs)
	assert.Equal(t, []string{"Cleaned Transactions", "Customers", "Products"}, api.cleared)

	// Header plus three rows in batches of two.
	require.Contains(t, api.updates, "'Customers'!A1")
	require.Contains(t, api.updates, "'Customers'!A3")
	assert.Equal(t, []any{"Customer ID", "TotalSpent(M)", "Segment"}, api.updates["'Customers'!A1"][0])
	assert.Equal(t, []any{"12347", "", "Best Customers"}, api.updates["'Customers'!A3"][0])
	assert.NotContains(t, api.updates, "'Products'!A1")
}

func TestSheetsWriter_ExistingSpreadsheetAddsMissingTabs(t *testing.T) {
	api := newFakeSpreadsheet("Customers")
	cfg := testSheetsConfig()
	cfg.SpreadsheetID = "existing"
	w := &SheetsWriter{api: api, config: cfg}

	require.NoError(t, w.Export(context.Background(), sampleTables(t)))
	assert.Empty(t, api.created)
	assert.Equal(t, []string{"Cleaned Transactions", "Products"}, api.added)
}

func TestSheetsWriter_RetriesBatches(t *testing.T) {
	api := newFakeSpreadsheet()
	api.failUpdate = 1
	w := &SheetsWriter{api: api, config: testSheetsConfig()}

	require.NoError(t, w.Export(context.Background(), sampleTables(t)))
	assert.Contains(t, api.updates, "'Cleaned Transactions'!A1")

	api = newFakeSpreadsheet()
	api.failUpdate = 100
	w = &SheetsWriter{api: api, config: testSheetsConfig()}
	err := w.Export(context.Background(), sampleTables(t))
	assert.ErrorIs(t, err, common.ErrExportFailed)
	assert.ErrorIs(t, err, common.ErrMaxRetries)
}

func TestSheetsConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*SheetsConfig)
		wantErr error
	}{
		{name: "service account", mutate: func(c *SheetsConfig) { c.ServiceAccountPath = "/k.json" }},
		{name: "oauth", mutate: func(c *SheetsConfig) {
			c.ClientID, c.ClientSecret, c.RefreshToken = "id", "secret", "token"
		}},
		{name: "no auth", mutate: func(*SheetsConfig) {}, wantErr: common.ErrMissingConfig},
		{name: "both auth", mutate: func(c *SheetsConfig) {
			c.ServiceAccountPath = "/k.json"
			c.ClientID, c.ClientSecret, c.RefreshToken = "id", "secret", "token"
		}, wantErr: common.ErrInvalidConfig},
		{name: "bad batch", mutate: func(c *SheetsConfig) {
			c.ServiceAccountPath = "/k.json"
			c.BatchSize = 0
		}, wantErr: common.ErrInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultSheetsConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr, fmt.Sprint(err))
		})
	}
}
