package csv

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bczgroup/tracker/internal/export/types"
)

// Exporter writes each sheet to its own csv file.
type Exporter struct {
	outDir string
}

// New creates a new csv exporter instance.
func New(outDir string) *Exporter {
	return &Exporter{outDir: outDir}
}

// Export writes <sheet>.csv for every sheet, replacing existing files.
func (e *Exporter) Export(sheets []*types.Sheet) error {
	for _, sheet := range sheets {
		if err := e.writeFile(sheet.Name+".csv", sheet); err != nil {
			return fmt.Errorf("failed to export %s: %w", sheet.Name, err)
		}
	}

	return nil
}

func (e *Exporter) writeFile(filename string, sheet *types.Sheet) error {
	file, err := os.Create(filepath.Join(e.outDir, filename))
	if err != nil {
		return fmt.Errorf("failed to create csv file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)

	if err := writer.Write(sheet.Header()); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	record := make([]string, len(sheet.Columns))
	for _, row := range sheet.Rows {
		for i, v := range row {
			record[i] = types.FormatValue(v)
		}

		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record: %w", err)
		}
	}

	writer.Flush()

	return writer.Error()
}
