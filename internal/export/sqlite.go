package export

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Veraticus/retail-flow/internal/common"
	"github.com/Veraticus/retail-flow/internal/table"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// sectionsTable indexes the sections of an exported database.
const sectionsTable = "sections"

// SQLiteWriter writes each table to its own SQLite table. All columns are
// stored as TEXT.
type SQLiteWriter struct {
	now  func() time.Time
	path string
}

// NewSQLiteWriter creates a database writer for path. An existing file at path
// is replaced.
func NewSQLiteWriter(path string) *SQLiteWriter {
	return &SQLiteWriter{path: path, now: time.Now}
}

func openSQLite(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// quoteIdent quotes a SQLite identifier.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// Export implements Exporter.
func (w *SQLiteWriter) Export(ctx context.Context, tables []*table.Table) error {
	secs, err := sections(tables, 0)
	if err != nil {
		return err
	}
	for _, sec := range secs {
		if strings.EqualFold(sec.title, sectionsTable) {
			return fmt.Errorf("%w: section %q collides with the index table", common.ErrExportFailed, sec.title)
		}
	}

	if err := os.MkdirAll(filepath.Dir(w.path), 0750); err != nil {
		return fmt.Errorf("%w: create output directory: %w", common.ErrExportFailed, err)
	}
	if err := os.Remove(w.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: replace %s: %w", common.ErrExportFailed, w.path, err)
	}

	db, err := openSQLite(w.path)
	if err != nil {
		return fmt.Errorf("%w: %w", common.ErrExportFailed, err)
	}
	defer func() {
		if cerr := db.Close(); cerr != nil {
			slog.Warn("Failed to close database", "error", cerr)
		}
	}()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin transaction: %w", common.ErrExportFailed, err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			slog.Warn("Failed to roll back export", "error", err)
		}
	}()

	if _, err := tx.ExecContext(ctx, `CREATE TABLE `+sectionsTable+` (
		name TEXT PRIMARY KEY,
		position INTEGER NOT NULL,
		columns TEXT NOT NULL,
		row_count INTEGER NOT NULL,
		run_id TEXT NOT NULL,
		exported_at TEXT NOT NULL
	)`); err != nil {
		return fmt.Errorf("%w: create %s: %w", common.ErrExportFailed, sectionsTable, err)
	}

	runID := uuid.NewString()
	exportedAt := w.now().UTC().Format(time.RFC3339)

	for i, sec := range secs {
		if err := writeSQLiteSection(ctx, tx, sec); err != nil {
			return fmt.Errorf("%w: section %q: %w", common.ErrExportFailed, sec.title, err)
		}
		columns, err := json.Marshal(sec.table.Columns)
		if err != nil {
			return fmt.Errorf("%w: encode columns: %w", common.ErrExportFailed, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO `+sectionsTable+` (name, position, columns, row_count, run_id, exported_at) VALUES (?, ?, ?, ?, ?, ?)`,
			sec.title, i, string(columns), sec.table.Len(), runID, exportedAt); err != nil {
			return fmt.Errorf("%w: index section %q: %w", common.ErrExportFailed, sec.title, err)
		}
		slog.Debug("Wrote section", "section", sec.title, "rows", sec.table.Len())
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %w", common.ErrExportFailed, err)
	}

	slog.Info("Exported database", "path", w.path, "sections", len(secs), "run_id", runID)
	return nil
}

// writeSQLiteSection creates and fills one table. A table without columns is
// only recorded in the index.
func writeSQLiteSection(ctx context.Context, tx *sql.Tx, sec section) error {
	cols := sec.table.Columns
	if len(cols) == 0 {
		return nil
	}

	defs := make([]string, len(cols))
	marks := make([]string, len(cols))
	for i, c := range cols {
		defs[i] = quoteIdent(c) + " TEXT"
		marks[i] = "?"
	}
	name := quoteIdent(sec.title)

	if _, err := tx.ExecContext(ctx, "CREATE TABLE "+name+" ("+strings.Join(defs, ", ")+")"); err != nil {
		return fmt.Errorf("create table: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO "+name+" VALUES ("+strings.Join(marks, ", ")+")")
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	args := make([]any, len(cols))
	for r, row := range sec.table.Rows {
		for i := range args {
			args[i] = nil
			if i < len(row) && row[i] != nil {
				args[i] = table.FormatCell(row[i])
			}
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("insert row %d: %w", r+1, err)
		}
	}
	return nil
}

// SectionInfo describes one exported section.
type SectionInfo struct {
	ExportedAt time.Time
	Name       string
	RunID      string
	Columns    []string
	Rows       int
}

// ReadSQLite loads every section of an exported database, in export order.
func ReadSQLite(ctx context.Context, path string) ([]*table.Table, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db, err := openSQLite(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = db.Close() }()

	infos, err := readSections(ctx, db)
	if err != nil {
		return nil, err
	}

	tables := make([]*table.Table, 0, len(infos))
	for _, info := range infos {
		t := table.New(info.Name, info.Columns...)
		if len(info.Columns) > 0 {
			if err := readSectionRows(ctx, db, t); err != nil {
				return nil, fmt.Errorf("section %q: %w", info.Name, err)
			}
		}
		tables = append(tables, t)
	}
	return tables, nil
}

// ReadSections returns the index of an exported database.
func ReadSections(ctx context.Context, path string) ([]SectionInfo, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db, err := openSQLite(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = db.Close() }()
	return readSections(ctx, db)
}

func readSections(ctx context.Context, db *sql.DB) ([]SectionInfo, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT name, columns, row_count, run_id, exported_at FROM `+sectionsTable+` ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("failed to query sections: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var infos []SectionInfo
	for rows.Next() {
		var (
			info       SectionInfo
			columns    string
			exportedAt string
		)
		if err := rows.Scan(&info.Name, &columns, &info.Rows, &info.RunID, &exportedAt); err != nil {
			return nil, fmt.Errorf("failed to scan section: %w", err)
		}
		if err := json.Unmarshal([]byte(columns), &info.Columns); err != nil {
			return nil, fmt.Errorf("section %q: bad column list: %w", info.Name, err)
		}
		if ts, err := time.Parse(time.RFC3339, exportedAt); err == nil {
			info.ExportedAt = ts
		}
		infos = append(infos, info)
	}
	return infos, rows.Err()
}

func readSectionRows(ctx context.Context, db *sql.DB, t *table.Table) error {
	rows, err := db.QueryContext(ctx, "SELECT * FROM "+quoteIdent(t.Name)+" ORDER BY rowid")
	if err != nil {
		return fmt.Errorf("failed to query rows: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		cells := make([]sql.NullString, len(t.Columns))
		dest := make([]any, len(cells))
		for i := range cells {
			dest[i] = &cells[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return fmt.Errorf("failed to scan row: %w", err)
		}
		row := make([]any, len(cells))
		for i, c := range cells {
			if c.Valid {
				row[i] = c.String
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return rows.Err()
}
