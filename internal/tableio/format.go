package tableio

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/h2non/filetype"
)

// Format is a supported upload encoding.
type Format int

const (
	FormatUnknown Format = iota
	FormatCSV
	FormatTSV
	FormatParquet
)

func (f Format) String() string {
	switch f {
	case FormatCSV:
		return "csv"
	case FormatTSV:
		return "tsv"
	case FormatParquet:
		return "parquet"
	}
	return "unknown"
}

// Extension returns the file extension including the dot.
func (f Format) Extension() string {
	if f == FormatUnknown {
		return ""
	}
	return "." + f.String()
}

// ContentType returns the MIME type used for downloads.
func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatTSV:
		return "text/tab-separated-values; charset=utf-8"
	case FormatParquet:
		return parquetMIME
	}
	return "application/octet-stream"
}

// ParseFormat accepts a format name or a file extension.
func ParseFormat(s string) (Format, error) {
	switch strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), ".") {
	case "csv", "txt":
		return FormatCSV, nil
	case "tsv", "tab":
		return FormatTSV, nil
	case "parquet", "pq":
		return FormatParquet, nil
	}
	return FormatUnknown, fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
}

const parquetMIME = "application/vnd.apache.parquet"

var parquetMagic = []byte("PAR1")

var (
	registerOnce sync.Once
	parquetType  = filetype.NewType("parquet", parquetMIME)
)

// registerMatchers teaches filetype about Parquet, which it does not know.
func registerMatchers() {
	registerOnce.Do(func() {
		filetype.AddMatcher(parquetType, func(buf []byte) bool {
			return bytes.HasPrefix(buf, parquetMagic)
		})
	})
}

// DetectFormat decides how to decode an upload from its name and leading
// bytes. Magic bytes win over the extension for Parquet; well-known binary
// types (images, archives, media, office documents) are rejected outright.
func DetectFormat(name string, head []byte) (Format, error) {
	registerMatchers()

	if kind, err := filetype.Match(head); err == nil && kind != filetype.Unknown {
		if kind.Extension == parquetType.Extension {
			return FormatParquet, nil
		}
		return FormatUnknown, fmt.Errorf("%w: %s file (%s)", ErrUnsupportedFormat, kind.Extension, kind.MIME.Value)
	}
	if filetype.IsImage(head) || filetype.IsArchive(head) || filetype.IsVideo(head) ||
		filetype.IsAudio(head) || filetype.IsDocument(head) {
		return FormatUnknown, fmt.Errorf("%w: binary file", ErrUnsupportedFormat)
	}

	ext := filepath.Ext(name)
	if ext == "" {
		return FormatCSV, nil
	}
	return ParseFormat(ext)
}
