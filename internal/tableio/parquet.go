package tableio

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"math/big"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress/snappy"
	"github.com/parquet-go/parquet-go/format"

	"github.com/JonMunkholm/dataplay/internal/table"
)

// schemaKey holds the column order and declared types of files written by
// EncodeParquet. Group nodes sort their fields by name, so without it the
// original order would be lost.
const schemaKey = "dataplay.schema"

const readBatch = 256

// columnDecoder converts one non-null parquet value.
type columnDecoder func(v parquet.Value) any

type parquetColumn struct {
	name   string
	typ    table.Type
	decode columnDecoder
}

func decodeParquet(data []byte, opts Options) (*table.Table, error) {
	f, err := parquet.OpenFile(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidParquet, err)
	}
	if opts.MaxRows > 0 && f.NumRows() > int64(opts.MaxRows) {
		return nil, fmt.Errorf("%w: %d rows, limit %d", ErrTooManyRows, f.NumRows(), opts.MaxRows)
	}

	fields := f.Schema().Fields()
	cols := make([]parquetColumn, len(fields))
	for i, field := range fields {
		if !field.Leaf() || field.Repeated() {
			return nil, fmt.Errorf("%w: column %q is nested or repeated", ErrUnsupportedFormat, field.Name())
		}
		typ, decode, err := leafDecoder(field.Type())
		if err != nil {
			return nil, fmt.Errorf("%w: column %q: %v", ErrUnsupportedFormat, field.Name(), err)
		}
		cols[i] = parquetColumn{name: field.Name(), typ: typ, decode: decode}
	}

	data2d := make([][]any, len(cols))
	for i := range data2d {
		data2d[i] = make([]any, 0, f.NumRows())
	}
	buf := make([]parquet.Row, readBatch)
	for _, rg := range f.RowGroups() {
		if err := readRowGroup(rg, cols, data2d, buf); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidParquet, err)
		}
	}

	out := make([]*table.Column, len(cols))
	for i, c := range cols {
		col, err := table.NewColumn(c.name, c.typ, data2d[i])
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidParquet, err)
		}
		out[i] = col
	}
	if stored, ok := f.Lookup(schemaKey); ok {
		out = restoreSchema(out, stored)
	}
	return table.New(out...)
}

func readRowGroup(rg parquet.RowGroup, cols []parquetColumn, dst [][]any, buf []parquet.Row) error {
	rows := rg.Rows()
	defer rows.Close()

	for {
		n, err := rows.ReadRows(buf)
		for _, row := range buf[:n] {
			for _, v := range row {
				c := v.Column()
				if c < 0 || c >= len(cols) {
					continue
				}
				if v.IsNull() {
					dst[c] = append(dst[c], nil)
					continue
				}
				dst[c] = append(dst[c], cols[c].decode(v))
			}
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// restoreSchema reorders columns and restores category types recorded by
// EncodeParquet. A stale or foreign entry is ignored.
func restoreSchema(cols []*table.Column, stored string) []*table.Column {
	var schema []table.ColumnDescriptor
	if err := json.Unmarshal([]byte(stored), &schema); err != nil || len(schema) != len(cols) {
		return cols
	}
	byName := make(map[string]*table.Column, len(cols))
	for _, c := range cols {
		byName[c.Name()] = c
	}
	out := make([]*table.Column, 0, len(cols))
	for _, d := range schema {
		c, ok := byName[d.Name]
		if !ok {
			return cols
		}
		delete(byName, d.Name)
		if d.Type == table.Category && c.Type() == table.Text {
			c = table.MustColumn(c.Name(), table.Category, c.Values()...)
		}
		out = append(out, c)
	}
	return out
}

// leafDecoder maps a parquet leaf type to a column type and decoder.
func leafDecoder(t parquet.Type) (table.Type, columnDecoder, error) {
	lt := t.LogicalType()
	kind := t.Kind()

	if lt != nil {
		switch {
		case lt.UTF8 != nil, lt.Json != nil:
			return table.Text, decodeString, nil
		case lt.Enum != nil:
			return table.Category, decodeString, nil
		case lt.UUID != nil:
			return table.Text, decodeUUID, nil
		case lt.Date != nil:
			return table.Datetime, func(v parquet.Value) any {
				return time.Unix(int64(v.Int32())*86400, 0).UTC()
			}, nil
		case lt.Timestamp != nil:
			return table.Datetime, timestampDecoder(lt.Timestamp.Unit), nil
		case lt.Decimal != nil:
			return table.Numeric, decimalDecoder(kind, int(lt.Decimal.Scale)), nil
		}
	}

	switch kind {
	case parquet.Boolean:
		return table.Boolean, func(v parquet.Value) any { return v.Boolean() }, nil
	case parquet.Int32:
		return table.Numeric, func(v parquet.Value) any { return float64(v.Int32()) }, nil
	case parquet.Int64:
		return table.Numeric, func(v parquet.Value) any { return v.Int64() }, nil
	case parquet.Float:
		return table.Numeric, func(v parquet.Value) any { return float64(v.Float()) }, nil
	case parquet.Double:
		return table.Numeric, func(v parquet.Value) any { return v.Double() }, nil
	case parquet.Int96:
		return table.Datetime, decodeInt96, nil
	case parquet.ByteArray, parquet.FixedLenByteArray:
		return table.Text, decodeString, nil
	}
	return table.Text, nil, fmt.Errorf("unsupported physical type %s", kind)
}

func decodeString(v parquet.Value) any { return string(v.ByteArray()) }

func decodeUUID(v parquet.Value) any {
	b := v.ByteArray()
	if len(b) != 16 {
		return string(b)
	}
	return fmt.Sprintf("%x-%x-%x-%x-%x", b[0:4], b[4:6], b[6:8], b[8:10], b[10:16])
}

func timestampDecoder(unit format.TimeUnit) columnDecoder {
	switch {
	case unit.Millis != nil:
		return func(v parquet.Value) any { return time.UnixMilli(v.Int64()).UTC() }
	case unit.Nanos != nil:
		return func(v parquet.Value) any { return time.Unix(0, v.Int64()).UTC() }
	}
	return func(v parquet.Value) any { return time.UnixMicro(v.Int64()).UTC() }
}

// decimalDecoder scales the unscaled integer by 10^-scale. Byte-array
// decimals are big-endian two's complement.
func decimalDecoder(kind parquet.Kind, scale int) columnDecoder {
	div := math.Pow10(scale)
	switch kind {
	case parquet.Int32:
		return func(v parquet.Value) any { return float64(v.Int32()) / div }
	case parquet.Int64:
		return func(v parquet.Value) any { return float64(v.Int64()) / div }
	}
	return func(v parquet.Value) any {
		b := v.ByteArray()
		n := new(big.Int).SetBytes(b)
		if len(b) > 0 && b[0]&0x80 != 0 {
			n.Sub(n, new(big.Int).Lsh(big.NewInt(1), uint(len(b)*8)))
		}
		f, _ := new(big.Float).Quo(new(big.Float).SetInt(n), big.NewFloat(div)).Float64()
		return f
	}
}

// julianUnixEpoch is the Julian day number of 1970-01-01.
const julianUnixEpoch = 2440588

// decodeInt96 reads the legacy Impala timestamp: nanoseconds of day in the
// first eight bytes, Julian day in the last four, all little-endian.
func decodeInt96(v parquet.Value) any {
	b := v.Bytes()
	if len(b) != 12 {
		return nil
	}
	nanos := int64(binary.LittleEndian.Uint64(b[:8]))
	days := int64(binary.LittleEndian.Uint32(b[8:])) - julianUnixEpoch
	return time.Unix(days*86400, nanos).UTC()
}

// EncodeParquet writes t as a snappy-compressed Parquet file with one
// optional column per table column. Datetimes are stored as millisecond
// timestamps in UTC. Numeric columns holding integers beyond 2^53 are
// stored as INT64 when every value is integral, DOUBLE otherwise.
func EncodeParquet(w io.Writer, t *table.Table) error {
	group := make(parquet.Group, t.NumColumns())
	integral := make([]bool, t.NumColumns())
	for i, c := range t.Columns() {
		integral[i] = exactIntegers(c)
		group[c.Name()] = parquet.Optional(parquetNode(c.Type(), integral[i]))
	}
	schema := parquet.NewSchema("dataplay", group)

	meta, err := json.Marshal(t.Schema())
	if err != nil {
		return err
	}

	cols := t.Columns()
	leaf := make([]int, len(cols))
	for i, c := range cols {
		lc, ok := schema.Lookup(c.Name())
		if !ok {
			return fmt.Errorf("parquet schema is missing column %q", c.Name())
		}
		leaf[i] = lc.ColumnIndex
	}

	pw := parquet.NewWriter(w, schema,
		parquet.Compression(&snappy.Codec{}),
		parquet.KeyValueMetadata(schemaKey, string(meta)),
	)

	batch := make([]parquet.Row, 0, readBatch)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if _, err := pw.WriteRows(batch); err != nil {
			return err
		}
		batch = batch[:0]
		return nil
	}
	for r := 0; r < t.NumRows(); r++ {
		row := make(parquet.Row, len(cols))
		for i, c := range cols {
			row[leaf[i]] = encodeValue(c.Value(r), leaf[i], integral[i])
		}
		batch = append(batch, row)
		if len(batch) == cap(batch) {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := flush(); err != nil {
		return err
	}
	return pw.Close()
}

// exactIntegers reports whether c is a Numeric column that needs INT64
// storage: at least one int64 value and no fractional or infinite ones.
func exactIntegers(c *table.Column) bool {
	if c.Type() != table.Numeric {
		return false
	}
	found := false
	for i := 0; i < c.Len(); i++ {
		switch n := c.Value(i).(type) {
		case int64:
			found = true
		case float64:
			if n != math.Trunc(n) || math.IsInf(n, 0) {
				return false
			}
		}
	}
	return found
}

func parquetNode(typ table.Type, integral bool) parquet.Node {
	switch typ {
	case table.Numeric:
		if integral {
			return parquet.Leaf(parquet.Int64Type)
		}
		return parquet.Leaf(parquet.DoubleType)
	case table.Boolean:
		return parquet.Leaf(parquet.BooleanType)
	case table.Datetime:
		return parquet.Timestamp(parquet.Millisecond)
	}
	return parquet.String()
}

func encodeValue(v any, column int, integral bool) parquet.Value {
	var pv parquet.Value
	switch tv := v.(type) {
	case nil:
		return parquet.NullValue().Level(0, 0, column)
	case float64:
		if integral {
			pv = parquet.Int64Value(int64(tv))
		} else {
			pv = parquet.DoubleValue(tv)
		}
	case int64:
		if integral {
			pv = parquet.Int64Value(tv)
		} else {
			pv = parquet.DoubleValue(float64(tv))
		}
	case bool:
		pv = parquet.BooleanValue(tv)
	case string:
		pv = parquet.ByteArrayValue([]byte(tv))
	case time.Time:
		pv = parquet.Int64Value(tv.UnixMilli())
	default:
		pv = parquet.ByteArrayValue([]byte(table.FormatValue(tv)))
	}
	return pv.Level(0, 1, column)
}
