package tableio

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/dataplay/internal/table"
)

func decodeText(t *testing.T, name, content string, opts Options) *table.Table {
	t.Helper()
	res, err := Decode(strings.NewReader(content), name, opts)
	require.NoError(t, err)
	return res.Table
}

func TestDecodeCSV_InfersTypes(t *testing.T) {
	csv := "id,name,price,active,joined,note\n" +
		"1,Ann,9.5,true,2024-01-02,\n" +
		"2,Bob,NA,False,2024-02-03 10:30:00,x\n" +
		"3,,1e3,TRUE,03/04/2024,NULL\n"

	tbl := decodeText(t, "people.csv", csv, Options{})

	assert.Equal(t, []table.ColumnDescriptor{
		{Name: "id", Type: table.Numeric},
		{Name: "name", Type: table.Text},
		{Name: "price", Type: table.Numeric},
		{Name: "active", Type: table.Boolean},
		{Name: "joined", Type: table.Datetime},
		{Name: "note", Type: table.Text},
	}, tbl.Schema())

	assert.Equal(t, []any{1.0, "Ann", 9.5, true, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), nil}, tbl.Row(0))
	assert.Equal(t, []any{2.0, "Bob", nil, false, time.Date(2024, 2, 3, 10, 30, 0, 0, time.UTC), "x"}, tbl.Row(1))
	assert.Equal(t, []any{3.0, nil, 1000.0, true, time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC), nil}, tbl.Row(2))
}

func TestDecodeCSV_LargeIntegersStayExact(t *testing.T) {
	content := "id,amount\n9007199254740993,10\n9007199254740992,20\n"
	tbl := decodeText(t, "ids.csv", content, Options{})

	c, err := tbl.Column("id")
	require.NoError(t, err)
	assert.Equal(t, table.Numeric, c.Type())
	assert.Equal(t, []any{int64(9007199254740993), 9007199254740992.0}, c.Values())

	var buf bytes.Buffer
	require.NoError(t, EncodeCSV(&buf, tbl))
	assert.Equal(t, content, buf.String())

	buf.Reset()
	require.NoError(t, EncodeParquet(&buf, tbl))
	res, err := Decode(bytes.NewReader(buf.Bytes()), "ids.parquet", Options{})
	require.NoError(t, err)
	assert.Equal(t, tbl.Rows(), res.Table.Rows())
}

func TestDecodeCSV_MixedColumnIsText(t *testing.T) {
	tbl := decodeText(t, "m.csv", "v\n1\ntwo\n3\n", Options{})
	c, err := tbl.Column("v")
	require.NoError(t, err)
	assert.Equal(t, table.Text, c.Type())
	assert.Equal(t, []any{"1", "two", "3"}, c.Values())
}

func TestDecodeCSV_AllNullColumnIsNumeric(t *testing.T) {
	tbl := decodeText(t, "n.csv", "a,b\n1,\n2,NaN\n", Options{})
	c, err := tbl.Column("b")
	require.NoError(t, err)
	assert.Equal(t, table.Numeric, c.Type())
	assert.Equal(t, 2, c.NullCount())
}

func TestDecodeCSV_LenientNumbers(t *testing.T) {
	content := "amount\n\"$1,234.50\"\n(12)\n€7\n"

	strict := decodeText(t, "a.csv", content, Options{})
	c, _ := strict.Column("amount")
	assert.Equal(t, table.Text, c.Type())

	lenient := decodeText(t, "a.csv", content, Options{LenientNumbers: true})
	c, _ = lenient.Column("amount")
	assert.Equal(t, table.Numeric, c.Type())
	assert.Equal(t, []any{1234.5, -12.0, 7.0}, c.Values())
}

func TestDecodeCSV_HeaderCleanup(t *testing.T) {
	tbl := decodeText(t, "h.csv", " a ,a,,a\n1,2,3,4\n", Options{})
	assert.Equal(t, []string{"a", "a.1", "Unnamed: 2", "a.2"}, tbl.ColumnNames())
}

func TestDecodeCSV_BOMAndInvalidUTF8(t *testing.T) {
	content := append([]byte{0xEF, 0xBB, 0xBF}, []byte("name\nca\xfffe\n")...)
	res, err := Decode(bytes.NewReader(content), "b.csv", Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"name"}, res.Table.ColumnNames())
	assert.Equal(t, []any{"ca?fe"}, res.Table.Row(0))
}

func TestDecodeCSV_TSV(t *testing.T) {
	tbl := decodeText(t, "t.tsv", "a\tb\nx\t1\n", Options{})
	assert.Equal(t, []any{"x", 1.0}, tbl.Row(0))
}

func TestDecodeCSV_RaggedRow(t *testing.T) {
	_, err := Decode(strings.NewReader("a,b\n1,2\n3\n"), "r.csv", Options{})
	require.ErrorIs(t, err, ErrInvalidCSV)
	assert.Contains(t, err.Error(), "line 3")
}

func TestDecode_Limits(t *testing.T) {
	_, err := Decode(strings.NewReader("a\n1\n2\n"), "x.csv", Options{MaxBytes: 4})
	assert.ErrorIs(t, err, ErrFileTooLarge)

	_, err = Decode(strings.NewReader("a\n1\n2\n3\n"), "x.csv", Options{MaxRows: 2})
	assert.ErrorIs(t, err, ErrTooManyRows)

	_, err = Decode(strings.NewReader(" \n"), "x.csv", Options{})
	assert.ErrorIs(t, err, ErrEmptyFile)

	res, err := Decode(strings.NewReader("a\n1\n"), "x.csv", Options{MaxBytes: 4})
	require.NoError(t, err)
	assert.Equal(t, int64(4), res.Bytes)
}

func TestDecode_ReadError(t *testing.T) {
	_, err := Decode(iotest.ErrReader(errors.New("boom")), "x.csv", Options{})
	assert.ErrorContains(t, err, "boom")
}

func TestDetectFormat(t *testing.T) {
	png := []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0}

	tests := []struct {
		name    string
		file    string
		head    []byte
		want    Format
		wantErr bool
	}{
		{"csv by extension", "data.csv", []byte("a,b\n"), FormatCSV, false},
		{"upper-case extension", "DATA.CSV", []byte("a,b\n"), FormatCSV, false},
		{"no extension", "data", []byte("a,b\n"), FormatCSV, false},
		{"tsv", "data.tsv", []byte("a\tb\n"), FormatTSV, false},
		{"parquet by magic", "data.csv", []byte("PAR1\x15\x04"), FormatParquet, false},
		{"parquet by extension", "data.parquet", []byte("nope"), FormatParquet, false},
		{"image rejected", "data.csv", png, FormatUnknown, true},
		{"unknown extension", "data.xlsx", []byte("a,b"), FormatUnknown, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DetectFormat(tt.file, tt.head)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnsupportedFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEncodeCSV(t *testing.T) {
	tbl := table.MustNew(
		table.MustColumn("n", table.Numeric, 1, 2.5, nil),
		table.MustColumn("s", table.Text, "a,b", "", "c"),
		table.MustColumn("b", table.Boolean, true, nil, false),
		table.MustColumn("d", table.Datetime,
			time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), nil,
			time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)),
	)
	var buf bytes.Buffer
	require.NoError(t, EncodeCSV(&buf, tbl))
	assert.Equal(t,
		"n,s,b,d\n1,\"a,b\",True,2024-01-02\n2.5,,,\n,c,False,2024-01-02 03:04:05\n",
		buf.String())
}

func TestParquet_RoundTrip(t *testing.T) {
	when := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	tbl := table.MustNew(
		table.MustColumn("zeta", table.Numeric, 1.5, nil, -3),
		table.MustColumn("alpha", table.Text, "x", "y", nil),
		table.MustColumn("kind", table.Category, "k1", "k2", "k1"),
		table.MustColumn("ok", table.Boolean, nil, true, false),
		table.MustColumn("at", table.Datetime, when, nil, when),
	)

	var buf bytes.Buffer
	require.NoError(t, EncodeParquet(&buf, tbl))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("PAR1")))

	res, err := Decode(bytes.NewReader(buf.Bytes()), "out.parquet", Options{})
	require.NoError(t, err)
	assert.Equal(t, FormatParquet, res.Format)
	assert.Equal(t, tbl.Schema(), res.Table.Schema(), "column order and category type survive")

	for r := 0; r < tbl.NumRows(); r++ {
		want, got := tbl.Row(r), res.Table.Row(r)
		for i := range want {
			assert.Equal(t, table.FormatValue(want[i]), table.FormatValue(got[i]), "row %d col %d", r, i)
			assert.Equal(t, want[i] == nil, got[i] == nil, "row %d col %d null", r, i)
		}
	}
}

func TestDecodeParquet_Garbage(t *testing.T) {
	_, err := Decode(strings.NewReader("PAR1 but not really parquet"), "g.parquet", Options{})
	assert.ErrorIs(t, err, ErrInvalidParquet)
}

func TestEncode_Dispatch(t *testing.T) {
	tbl := table.MustNew(table.MustColumn("a", table.Numeric, 1))
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, tbl, FormatTSV))
	assert.Equal(t, "a\n1\n", buf.String())

	assert.ErrorIs(t, Encode(io.Discard, tbl, FormatUnknown), ErrUnsupportedFormat)
}

func TestTableName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"sales.csv", "sales"},
		{"/tmp/upload/q1 data.csv", "q1 data"},
		{`C:\Users\me\orders.parquet`, "orders"},
		{"archive.tar.csv", "archive.tar"},
		{"", "table"},
		{".csv", "table"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, TableName(tt.in), "TableName(%q)", tt.in)
	}
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat(".Parquet")
	require.NoError(t, err)
	assert.Equal(t, FormatParquet, f)
	assert.Equal(t, ".parquet", f.Extension())

	_, err = ParseFormat("xls")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}
