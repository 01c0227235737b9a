package table

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// Load reads a tabular file into memory, dispatching on extension.
// The first row is always treated as the header.
func Load(ctx context.Context, path string) (*Table, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		f, err := os.Open(path)
		if err != nil {
			return nil, eris.Wrapf(err, "table: open %s", path)
		}
		defer f.Close()
		return ReadCSV(ctx, f)
	case ".xls", ".xlsx":
		return ReadXLSX(ctx, path, 0)
	default:
		return nil, eris.Errorf("table: unsupported file type %q", filepath.Ext(path))
	}
}

// ReadCSV parses CSV from r. Ragged rows are tolerated; fields keep their
// whitespace (transforms trim where they need to).
func ReadCSV(ctx context.Context, r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // allow variable fields
	reader.LazyQuotes = true

	t := &Table{}
	first := true
	for {
		if ctx.Err() != nil {
			return nil, eris.Wrap(ctx.Err(), "table: csv read cancelled")
		}

		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "table: read csv row")
		}

		if first {
			t.Headers = record
			first = false
			continue
		}
		t.Rows = append(t.Rows, record)
	}

	if first {
		return nil, eris.New("table: empty file, no header row")
	}
	return t, nil
}

// ReadXLSX parses the given sheet of an XLS/XLSX workbook.
func ReadXLSX(ctx context.Context, path string, sheetIndex int) (*Table, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "table: open xlsx %s", path)
	}
	if sheetIndex >= len(f.Sheets) {
		return nil, eris.Errorf("table: sheet index %d out of range (file has %d sheets)", sheetIndex, len(f.Sheets))
	}
	sheet := f.Sheets[sheetIndex]

	t := &Table{}
	for i, row := range sheet.Rows {
		if ctx.Err() != nil {
			return nil, eris.Wrap(ctx.Err(), "table: xlsx read cancelled")
		}

		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			cells[j] = cell.String()
		}

		if i == 0 {
			t.Headers = cells
			continue
		}
		t.Rows = append(t.Rows, cells)
	}

	if t.Headers == nil {
		return nil, eris.New("table: empty sheet, no header row")
	}
	return t, nil
}
