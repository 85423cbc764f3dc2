// Package tableio decodes uploaded files into tables and encodes tables
// for download.
//
// CSV (and TSV) uploads get per-column type inference; Parquet uploads keep
// the types recorded in the file. Both paths enforce the upload size limit
// before any parsing happens.
package tableio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/JonMunkholm/dataplay/internal/table"
)

var (
	ErrFileTooLarge      = errors.New("file too large")
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrEmptyFile         = errors.New("file is empty")
	ErrInvalidCSV        = errors.New("invalid csv")
	ErrInvalidParquet    = errors.New("invalid parquet")
	ErrTooManyRows       = errors.New("too many rows")
)

// Options controls decoding.
type Options struct {
	// MaxBytes rejects larger inputs with ErrFileTooLarge; <= 0 means no limit.
	MaxBytes int64
	// MaxRows rejects inputs with more data rows; <= 0 means no limit.
	MaxRows int
	// LenientNumbers accepts "$1,234.50" and "(12)" style numbers in CSV.
	LenientNumbers bool
	// Format overrides detection when set.
	Format Format
}

// Result is a decoded upload.
type Result struct {
	Table  *table.Table
	Format Format
	Bytes  int64
}

// Decode reads r fully (up to opts.MaxBytes), detects the format from the
// file name and content and decodes it.
func Decode(r io.Reader, filename string, opts Options) (*Result, error) {
	cr := &countingReader{r: r, limit: opts.MaxBytes}
	data, err := io.ReadAll(cr)
	if err != nil {
		if errors.Is(err, ErrFileTooLarge) {
			return nil, fmt.Errorf("%w: limit is %d bytes", ErrFileTooLarge, opts.MaxBytes)
		}
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmptyFile
	}

	f := opts.Format
	if f == FormatUnknown {
		f, err = DetectFormat(filename, data)
		if err != nil {
			return nil, err
		}
	}

	var t *table.Table
	switch f {
	case FormatCSV:
		t, err = decodeCSV(bytes.NewReader(data), ',', opts)
	case FormatTSV:
		t, err = decodeCSV(bytes.NewReader(data), '\t', opts)
	case FormatParquet:
		t, err = decodeParquet(data, opts)
	default:
		err = fmt.Errorf("%w: %s", ErrUnsupportedFormat, f)
	}
	if err != nil {
		return nil, err
	}
	return &Result{Table: t, Format: f, Bytes: cr.n}, nil
}

// Encode writes t in the given format.
func Encode(w io.Writer, t *table.Table, f Format) error {
	switch f {
	case FormatCSV:
		return EncodeCSV(w, t)
	case FormatTSV:
		return EncodeTSV(w, t)
	case FormatParquet:
		return EncodeParquet(w, t)
	}
	return fmt.Errorf("%w: %s", ErrUnsupportedFormat, f)
}

// TableName derives a registry name from an upload's file name: the base
// name without its extension.
func TableName(filename string) string {
	base := filepath.Base(strings.ReplaceAll(filename, `\`, "/"))
	stem := strings.TrimSpace(strings.TrimSuffix(base, filepath.Ext(base)))
	if stem == "" || stem == "." || stem == "/" {
		return "table"
	}
	return stem
}
