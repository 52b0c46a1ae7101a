package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"slices"
)

// Field is one named cell of a feed row.
type Field struct {
	Name  string
	Value string
}

// Row is an ordered set of fields; column order is the order fields were added.
type Row []Field

// Columns returns the field names in order.
func (r Row) Columns() []string {
	out := make([]string, len(r))
	for i, f := range r {
		out[i] = f.Name
	}
	return out
}

// ShapeError reports a row whose columns differ from the header row.
type ShapeError struct {
	Index int
	Want  []string
	Got   []string
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("export: row %d has columns %v, header is %v", e.Index, e.Got, e.Want)
}

// WriteCSV writes rows as comma separated values with a header line.
// The header comes from the first row; columns is only used when there are no
// rows, so an empty feed is still a valid header-only file. With neither, nothing is written.
func WriteCSV(w io.Writer, columns []string, rows []Row) error {
	header := columns
	if len(rows) > 0 {
		header = rows[0].Columns()
	}
	if len(header) == 0 {
		return nil
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}

	record := make([]string, len(header))
	for i, r := range rows {
		if cols := r.Columns(); !slices.Equal(cols, header) {
			return &ShapeError{Index: i, Want: header, Got: cols}
		}
		for j, f := range r {
			record[j] = f.Value
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// EncodeCSV is WriteCSV into a string.
func EncodeCSV(columns []string, rows []Row) (string, error) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, columns, rows); err != nil {
		return "", err
	}
	return buf.String(), nil
}
