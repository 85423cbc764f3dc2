package tableio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/JonMunkholm/dataplay/internal/table"
)

// decodeCSV reads a delimited file with a header row.
func decodeCSV(r io.Reader, comma rune, opts Options) (*table.Table, error) {
	cr := csv.NewReader(newUTF8Sanitizer(newBOMReader(r)))
	cr.Comma = comma
	cr.LazyQuotes = true
	cr.FieldsPerRecord = 0

	header, err := cr.Read()
	if err == io.EOF {
		return nil, ErrEmptyFile
	}
	if err != nil {
		return nil, csvError(err)
	}
	names := headerNames(header)

	raw := make([][]string, len(names))
	for rows := 0; ; rows++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, csvError(err)
		}
		if opts.MaxRows > 0 && rows >= opts.MaxRows {
			return nil, fmt.Errorf("%w: more than %d rows", ErrTooManyRows, opts.MaxRows)
		}
		for i, cell := range record {
			raw[i] = append(raw[i], cell)
		}
	}

	in := inferrer{lenient: opts.LenientNumbers}
	cols := make([]*table.Column, len(names))
	for i, name := range names {
		col, err := in.column(name, raw[i])
		if err != nil {
			return nil, err
		}
		cols[i] = col
	}
	return table.New(cols...)
}

func csvError(err error) error {
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		return fmt.Errorf("%w: line %d: %v", ErrInvalidCSV, pe.Line, pe.Err)
	}
	return fmt.Errorf("%w: %v", ErrInvalidCSV, err)
}

// headerNames trims header cells, names blank ones "Unnamed: i" and
// renames repeats "a.1", "a.2".
func headerNames(header []string) []string {
	names := make([]string, len(header))
	taken := make(map[string]bool, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		if h == "" {
			h = "Unnamed: " + strconv.Itoa(i)
		}
		name := h
		for n := 1; taken[name]; n++ {
			name = h + "." + strconv.Itoa(n)
		}
		taken[name] = true
		names[i] = name
	}
	return names
}

// EncodeCSV writes t as CSV with a header row. Nulls are empty cells.
func EncodeCSV(w io.Writer, t *table.Table) error {
	return encodeDelimited(w, t, ',')
}

// EncodeTSV writes t as tab-separated values.
func EncodeTSV(w io.Writer, t *table.Table) error {
	return encodeDelimited(w, t, '\t')
}

func encodeDelimited(w io.Writer, t *table.Table, comma rune) error {
	cw := csv.NewWriter(w)
	cw.Comma = comma
	if err := cw.Write(t.ColumnNames()); err != nil {
		return err
	}

	cols := t.Columns()
	record := make([]string, len(cols))
	for r := 0; r < t.NumRows(); r++ {
		for i, c := range cols {
			record[i] = table.FormatValue(c.Value(r))
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
