// Package export writes result tables to flat artifacts: an Excel workbook, a
// SQLite file or a Google Sheets spreadsheet. Every table becomes one named
// section of a single artifact.
package export

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/Veraticus/retail-flow/internal/common"
	"github.com/Veraticus/retail-flow/internal/table"
)

// Format names an export backend.
type Format string

// Supported formats.
const (
	FormatXLSX   Format = "xlsx"
	FormatSQLite Format = "sqlite"
	FormatSheets Format = "sheets"
)

// Exporter writes a set of tables as one artifact.
type Exporter interface {
	Export(ctx context.Context, tables []*table.Table) error
}

var unsafeChars = regexp.MustCompile(`[/?<>\\:*|"]`)

// SectionName renders a table name as a section title: characters that are
// unsafe in sheet and file names become underscores, then underscores become
// spaces and the result is title-cased ("customer_rfm" → "Customer Rfm").
func SectionName(name string) string {
	safe := unsafeChars.ReplaceAllString(name, "_")
	spaced := strings.ReplaceAll(safe, "_", " ")
	return cases.Title(language.Und).String(spaced)
}

// section is a table paired with its rendered title.
type section struct {
	table *table.Table
	title string
}

// sections renders table titles and orders them by title. Two tables that
// render to the same title cannot share an artifact.
func sections(tables []*table.Table, maxLen int) ([]section, error) {
	out := make([]section, 0, len(tables))
	seen := make(map[string]string, len(tables))
	for _, t := range tables {
		title := truncate(SectionName(t.Name), maxLen)
		key := strings.ToLower(title)
		if prev, ok := seen[key]; ok {
			return nil, fmt.Errorf("%w: tables %q and %q both render as section %q",
				common.ErrExportFailed, prev, t.Name, title)
		}
		seen[key] = t.Name
		out = append(out, section{table: t, title: title})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].title < out[j].title
	})
	return out, nil
}

func truncate(s string, maxLen int) string {
	if maxLen <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen])
}

// padRow stretches a row read back from an artifact to width, mapping empty
// cells to missing values.
func padRow(cells []string, width int) []any {
	row := make([]any, width)
	for i := 0; i < width && i < len(cells); i++ {
		if cells[i] != "" {
			row[i] = cells[i]
		}
	}
	return row
}

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatXLSX, FormatSQLite, FormatSheets:
		return f, nil
	default:
		return "", fmt.Errorf("%w: unknown export format %q (want xlsx, sqlite or sheets)", common.ErrInvalidConfig, s)
	}
}

// New returns the exporter for format. path is ignored for Google Sheets and
// sheetsConfig is only used by it.
func New(ctx context.Context, format Format, path string, sheetsConfig SheetsConfig) (Exporter, error) {
	switch format {
	case FormatXLSX:
		return NewXLSXWriter(path), nil
	case FormatSQLite:
		return NewSQLiteWriter(path), nil
	case FormatSheets:
		w, err := NewSheetsWriter(ctx, sheetsConfig)
		if err != nil {
			return nil, err
		}
		return w, nil
	default:
		return nil, fmt.Errorf("%w: unknown export format %q", common.ErrInvalidConfig, format)
	}
}
