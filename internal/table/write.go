package table

import (
	"bytes"
	"encoding/csv"
	"io"

	"github.com/rotisserie/eris"
)

// WriteCSV writes the table as CSV, header first.
func WriteCSV(w io.Writer, t *Table) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(t.Headers); err != nil {
		return eris.Wrap(err, "table: write header")
	}
	for _, row := range t.Rows {
		if err := writer.Write(row); err != nil {
			return eris.Wrap(err, "table: write row")
		}
	}
	writer.Flush()
	return eris.Wrap(writer.Error(), "table: flush csv")
}

// MarshalCSV renders the table to a CSV byte slice.
func MarshalCSV(t *Table) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, t); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
