package table

import "fmt"

// Table is an ordered set of equal-length columns. Tables are immutable:
// every operation in this package returns a new Table.
type Table struct {
	cols  []*Column
	index map[string]int
	rows  int
}

// New assembles a table from columns. Names must be unique and every column
// must have the same length. A table with no columns has zero rows.
func New(cols ...*Column) (*Table, error) {
	t := &Table{
		cols:  make([]*Column, len(cols)),
		index: make(map[string]int, len(cols)),
	}
	for i, c := range cols {
		if c == nil {
			return nil, fmt.Errorf("column %d is nil", i)
		}
		if _, dup := t.index[c.name]; dup {
			return nil, fmt.Errorf("duplicate column name %q", c.name)
		}
		if i == 0 {
			t.rows = c.Len()
		} else if c.Len() != t.rows {
			return nil, fmt.Errorf("column %q has %d rows, want %d", c.name, c.Len(), t.rows)
		}
		t.index[c.name] = i
		t.cols[i] = c
	}
	return t, nil
}

// MustNew is like New but panics on error.
func MustNew(cols ...*Column) *Table {
	t, err := New(cols...)
	if err != nil {
		panic(err)
	}
	return t
}

func (t *Table) NumRows() int    { return t.rows }
func (t *Table) NumColumns() int { return len(t.cols) }

// ColumnNames returns the column names in order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.cols))
	for i, c := range t.cols {
		names[i] = c.name
	}
	return names
}

// Columns returns the columns in order.
func (t *Table) Columns() []*Column {
	out := make([]*Column, len(t.cols))
	copy(out, t.cols)
	return out
}

// HasColumn reports whether name is a column of t.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Column returns the named column or a *LookupError.
func (t *Table) Column(name string) (*Column, error) {
	i, ok := t.index[name]
	if !ok {
		return nil, newLookupError(name, t.ColumnNames())
	}
	return t.cols[i], nil
}

// Schema returns a descriptor per column, in order.
func (t *Table) Schema() []ColumnDescriptor {
	out := make([]ColumnDescriptor, len(t.cols))
	for i, c := range t.cols {
		out[i] = c.Descriptor()
	}
	return out
}

// Row returns the values of row i in column order.
func (t *Table) Row(i int) []any {
	row := make([]any, len(t.cols))
	for j, c := range t.cols {
		row[j] = c.data[i]
	}
	return row
}

// Rows returns every row. Intended for rendering small tables.
func (t *Table) Rows() [][]any {
	out := make([][]any, t.rows)
	for i := range out {
		out[i] = t.Row(i)
	}
	return out
}

// lookup resolves several names at once, failing on the first missing one.
func (t *Table) lookup(names []string) ([]*Column, error) {
	cols := make([]*Column, len(names))
	for i, name := range names {
		c, err := t.Column(name)
		if err != nil {
			return nil, err
		}
		cols[i] = c
	}
	return cols, nil
}

// take builds a new table from the given row indexes.
func (t *Table) take(rows []int) *Table {
	cols := make([]*Column, len(t.cols))
	for i, c := range t.cols {
		cols[i] = c.take(rows)
	}
	return &Table{cols: cols, index: t.index, rows: len(rows)}
}

func sequence(n int) []int {
	rows := make([]int, n)
	for i := range rows {
		rows[i] = i
	}
	return rows
}
