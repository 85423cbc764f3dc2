package table

import "fmt"

// Column is a named, typed sequence of values. A nil entry is a null.
// Columns are immutable once built.
type Column struct {
	name string
	typ  Type
	data []any
}

// ColumnDescriptor is a column name plus its declared type.
type ColumnDescriptor struct {
	Name string `json:"name"`
	Type Type   `json:"type"`
}

// NewColumn builds a column, converting values to the canonical
// representation of typ (see normalize). The values slice is copied.
func NewColumn(name string, typ Type, values []any) (*Column, error) {
	if name == "" {
		return nil, fmt.Errorf("column name is empty")
	}
	if _, ok := typeNames[typ]; !ok {
		return nil, fmt.Errorf("column %q: unsupported type %d", name, int(typ))
	}
	data := make([]any, len(values))
	for i, v := range values {
		nv, err := normalize(typ, v)
		if err != nil {
			return nil, fmt.Errorf("column %q row %d: %w", name, i, err)
		}
		data[i] = nv
	}
	return &Column{name: name, typ: typ, data: data}, nil
}

// MustColumn is like NewColumn but panics on error.
func MustColumn(name string, typ Type, values ...any) *Column {
	c, err := NewColumn(name, typ, values)
	if err != nil {
		panic(err)
	}
	return c
}

func (c *Column) Name() string { return c.name }
func (c *Column) Type() Type   { return c.typ }
func (c *Column) Len() int     { return len(c.data) }

// Value returns the value at row i, or nil for a null.
func (c *Column) Value(i int) any { return c.data[i] }

// IsNull reports whether row i is null.
func (c *Column) IsNull(i int) bool { return c.data[i] == nil }

// Values returns a copy of the column data.
func (c *Column) Values() []any {
	out := make([]any, len(c.data))
	copy(out, c.data)
	return out
}

// NullCount returns the number of null entries.
func (c *Column) NullCount() int {
	n := 0
	for _, v := range c.data {
		if v == nil {
			n++
		}
	}
	return n
}

func (c *Column) Descriptor() ColumnDescriptor {
	return ColumnDescriptor{Name: c.name, Type: c.typ}
}

// take gathers rows by index; an index of -1 yields a null.
func (c *Column) take(rows []int) *Column {
	data := make([]any, len(rows))
	for i, r := range rows {
		if r >= 0 {
			data[i] = c.data[r]
		}
	}
	return &Column{name: c.name, typ: c.typ, data: data}
}

func (c *Column) renamed(name string) *Column {
	return &Column{name: name, typ: c.typ, data: c.data}
}

// fromNormalized wraps data that is already in canonical form.
func fromNormalized(name string, typ Type, data []any) *Column {
	return &Column{name: name, typ: typ, data: data}
}
