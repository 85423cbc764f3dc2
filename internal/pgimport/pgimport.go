// Package pgimport reads Postgres tables into in-memory tables.
//
// It only ever issues SELECTs: one against information_schema to list what
// can be imported and one bounded "SELECT * ... LIMIT n" per import. Column
// types come from the result's field OIDs, so a numeric column stays numeric
// even when every value in the sample is null.
package pgimport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JonMunkholm/dataplay/internal/table"
)

// DefaultRowLimit caps an import when no limit is configured.
const DefaultRowLimit = 100_000

// ErrInvalidTable is returned for an empty schema or table name.
var ErrInvalidTable = errors.New("invalid source table")

// Querier is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// TableRef names an importable relation.
type TableRef struct {
	Schema string `json:"schema"`
	Name   string `json:"name"`
	Kind   string `json:"kind"` // "BASE TABLE" or "VIEW"
}

func (r TableRef) String() string { return r.Schema + "." + r.Name }

// Import is one imported relation.
type Import struct {
	Table *table.Table
	// Truncated is set when the relation has more rows than the limit.
	Truncated bool
}

// Importer reads relations through a Querier.
type Importer struct {
	db       Querier
	rowLimit int
}

func New(db Querier, rowLimit int) *Importer {
	if rowLimit <= 0 {
		rowLimit = DefaultRowLimit
	}
	return &Importer{db: db, rowLimit: rowLimit}
}

// RowLimit returns the maximum number of rows one import reads.
func (im *Importer) RowLimit() int { return im.rowLimit }

const listTablesSQL = `
SELECT table_schema, table_name, table_type
FROM information_schema.tables
WHERE table_schema NOT IN ('pg_catalog', 'information_schema')
ORDER BY table_schema, table_name`

// ListTables returns the tables and views visible to the connection.
func (im *Importer) ListTables(ctx context.Context) ([]TableRef, error) {
	rows, err := im.db.Query(ctx, listTablesSQL)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	var refs []TableRef
	for rows.Next() {
		var r TableRef
		if err := rows.Scan(&r.Schema, &r.Name, &r.Kind); err != nil {
			return nil, fmt.Errorf("list tables: %w", err)
		}
		refs = append(refs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	return refs, nil
}

// ReadTable imports up to RowLimit rows of schema.name.
func (im *Importer) ReadTable(ctx context.Context, ref TableRef) (*Import, error) {
	if ref.Schema == "" || ref.Name == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTable, ref.String())
	}
	sql := fmt.Sprintf("SELECT * FROM %s LIMIT %d",
		pgx.Identifier{ref.Schema, ref.Name}.Sanitize(), im.rowLimit+1)

	rows, err := im.db.Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("import %s: %w", ref, err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	types := make([]table.Type, len(fields))
	data := make([][]any, len(fields))
	for i, f := range fields {
		types[i] = columnType(f.DataTypeOID)
	}

	n := 0
	truncated := false
	for rows.Next() {
		if n == im.rowLimit {
			truncated = true
			break
		}
		vals, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("import %s: row %d: %w", ref, n+1, err)
		}
		for i, v := range vals {
			data[i] = append(data[i], convertValue(types[i], v))
		}
		n++
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("import %s: %w", ref, err)
	}

	cols := make([]*table.Column, len(fields))
	seen := make(map[string]int, len(fields))
	for i, f := range fields {
		name := f.Name
		if k := seen[name]; k > 0 {
			name += "." + strconv.Itoa(k)
		}
		seen[f.Name]++
		if data[i] == nil {
			data[i] = []any{}
		}
		col, err := table.NewColumn(name, types[i], data[i])
		if err != nil {
			return nil, fmt.Errorf("import %s: %w", ref, err)
		}
		cols[i] = col
	}
	t, err := table.New(cols...)
	if err != nil {
		return nil, fmt.Errorf("import %s: %w", ref, err)
	}
	return &Import{Table: t, Truncated: truncated}, nil
}

// columnType maps a result column OID to a table type. Anything not listed
// (enums, arrays, ranges, user types) is imported as text.
func columnType(oid uint32) table.Type {
	switch oid {
	case pgtype.Int2OID, pgtype.Int4OID, pgtype.Int8OID, pgtype.OIDOID,
		pgtype.Float4OID, pgtype.Float8OID, pgtype.NumericOID:
		return table.Numeric
	case pgtype.BoolOID:
		return table.Boolean
	case pgtype.DateOID, pgtype.TimestampOID, pgtype.TimestamptzOID:
		return table.Datetime
	default:
		return table.Text
	}
}

// convertValue turns a pgx-decoded value into the representation the column
// type expects. Values that cannot be represented (NaN numerics, infinite
// dates) become null.
func convertValue(typ table.Type, v any) any {
	if v == nil {
		return nil
	}
	switch typ {
	case table.Numeric:
		return numericValue(v)
	case table.Boolean:
		if b, ok := v.(bool); ok {
			return b
		}
		return nil
	case table.Datetime:
		switch t := v.(type) {
		case time.Time:
			return t
		case pgtype.Date:
			if t.Valid && t.InfinityModifier == pgtype.Finite {
				return t.Time
			}
		case pgtype.Timestamp:
			if t.Valid && t.InfinityModifier == pgtype.Finite {
				return t.Time
			}
		case pgtype.Timestamptz:
			if t.Valid && t.InfinityModifier == pgtype.Finite {
				return t.Time
			}
		}
		return nil
	default:
		return textValue(v)
	}
}

func numericValue(v any) any {
	switch n := v.(type) {
	case int16:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return n
	case uint32:
		return float64(n)
	case float32:
		return float64(n)
	case float64:
		return n
	case pgtype.Numeric:
		if !n.Valid || n.NaN || n.InfinityModifier != pgtype.Finite {
			return nil
		}
		if n.Exp >= 0 {
			if i, err := n.Int64Value(); err == nil && i.Valid {
				return i.Int64
			}
		}
		f, err := n.Float64Value()
		if err != nil || !f.Valid {
			return nil
		}
		return f.Float64
	case string:
		if f, ok := table.ParseNumber(n); ok {
			return f
		}
		return nil
	}
	return nil
}

func textValue(v any) any {
	switch s := v.(type) {
	case string:
		return s
	case []byte:
		return string(s)
	case [16]byte:
		return uuid.UUID(s).String()
	case fmt.Stringer:
		return s.String()
	case map[string]any, []any:
		b, err := json.Marshal(s)
		if err != nil {
			return fmt.Sprint(s)
		}
		return string(b)
	}
	return fmt.Sprint(v)
}
