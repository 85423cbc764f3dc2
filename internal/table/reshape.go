package table

import "sort"

// Select projects t onto the named columns, in the order given.
func Select(t *Table, names ...string) (*Table, error) {
	if len(names) == 0 {
		return nil, configErrorf("select", "no columns selected")
	}
	cols, err := t.lookup(names)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		if seen[n] {
			return nil, configErrorf("select", "column %q selected twice", n)
		}
		seen[n] = true
	}
	return New(cols...)
}

// SortKey orders rows by one column.
type SortKey struct {
	Column     string `json:"column"`
	Descending bool   `json:"descending,omitempty"`
}

// Sort orders rows by the keys, first key most significant. The sort is
// stable and nulls go last regardless of direction.
func Sort(t *Table, keys ...SortKey) (*Table, error) {
	if len(keys) == 0 {
		return t, nil
	}
	names := make([]string, len(keys))
	for i, k := range keys {
		names[i] = k.Column
	}
	cols, err := t.lookup(names)
	if err != nil {
		return nil, err
	}

	rows := sequence(t.rows)
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		for k, c := range cols {
			va, vb := c.data[a], c.data[b]
			switch {
			case va == nil && vb == nil:
				continue
			case va == nil:
				return false
			case vb == nil:
				return true
			}
			d := compareValues(va, vb)
			if d == 0 {
				continue
			}
			if keys[k].Descending {
				return d > 0
			}
			return d < 0
		}
		return false
	})
	return t.take(rows), nil
}

// Head returns the first n rows of t (all of them when n exceeds the row
// count). A negative n is treated as zero.
func Head(t *Table, n int) *Table {
	if n < 0 {
		n = 0
	}
	if n >= t.rows {
		return t
	}
	return t.take(sequence(n))
}
