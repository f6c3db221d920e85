package sqlite

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bczgroup/tracker/internal/export/types"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

// FileName is the database written into the output directory.
const FileName = "tracker.db"

// batchSize is the number of rows inserted per transaction.
const batchSize = 1000

// Exporter writes sheets as tables of one SQLite database.
type Exporter struct {
	outDir string
}

// New creates a new SQLite exporter instance.
func New(outDir string) *Exporter {
	return &Exporter{outDir: outDir}
}

// Export replaces the database file and writes one table per sheet.
func (e *Exporter) Export(sheets []*types.Sheet) error {
	path := filepath.Join(e.outDir, FileName)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove existing file %s: %w", FileName, err)
	}

	conn, err := sqlite.OpenConn(path, sqlite.OpenCreate|sqlite.OpenReadWrite)
	if err != nil {
		return fmt.Errorf("failed to open SQLite database: %w", err)
	}
	defer conn.Close()

	for _, sheet := range sheets {
		if err := writeTable(conn, sheet); err != nil {
			return fmt.Errorf("failed to export %s: %w", sheet.Name, err)
		}
	}

	return nil
}

func writeTable(conn *sqlite.Conn, sheet *types.Sheet) error {
	defs := make([]string, len(sheet.Columns))
	names := make([]string, len(sheet.Columns))
	marks := make([]string, len(sheet.Columns))

	for i, c := range sheet.Columns {
		defs[i] = fmt.Sprintf("%q %s NOT NULL", c.Name, c.Kind.SQLType())
		names[i] = fmt.Sprintf("%q", c.Name)
		marks[i] = "?"
	}

	err := sqlitex.Execute(conn, fmt.Sprintf("CREATE TABLE %q (%s)", sheet.Name, strings.Join(defs, ", ")), nil)
	if err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}

	insert := fmt.Sprintf("INSERT INTO %q (%s) VALUES (%s)",
		sheet.Name, strings.Join(names, ", "), strings.Join(marks, ", "))

	for i := 0; i < len(sheet.Rows); i += batchSize {
		end := min(i+batchSize, len(sheet.Rows))

		if err := insertBatch(conn, insert, sheet.Rows[i:end]); err != nil {
			return err
		}
	}

	return nil
}

func insertBatch(conn *sqlite.Conn, insert string, rows [][]any) (err error) {
	endFn, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer endFn(&err)

	for _, row := range rows {
		args := make([]any, len(row))
		for i, v := range row {
			args[i] = types.SQLValue(v)
		}

		if err = sqlitex.Execute(conn, insert, &sqlitex.ExecOptions{Args: args}); err != nil {
			return fmt.Errorf("failed to insert row: %w", err)
		}
	}

	return nil
}
