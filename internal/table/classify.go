package table

// Classification partitions column names by declared type. Categorical holds
// both Text and Category columns.
type Classification struct {
	Numeric     []string `json:"numeric"`
	Categorical []string `json:"categorical"`
	Datetime    []string `json:"datetime"`
	Boolean     []string `json:"boolean"`
}

// Classify reads only column metadata; it never scans values.
func Classify(t *Table) Classification {
	c := Classification{
		Numeric:     []string{},
		Categorical: []string{},
		Datetime:    []string{},
		Boolean:     []string{},
	}
	if t == nil {
		return c
	}
	for _, col := range t.cols {
		switch col.typ {
		case Numeric:
			c.Numeric = append(c.Numeric, col.name)
		case Text, Category:
			c.Categorical = append(c.Categorical, col.name)
		case Datetime:
			c.Datetime = append(c.Datetime, col.name)
		case Boolean:
			c.Boolean = append(c.Boolean, col.name)
		}
	}
	return c
}

// Ordered returns the columns that support range filters and sorting in the
// UI: numeric and datetime.
func (c Classification) Ordered() []string {
	out := make([]string, 0, len(c.Numeric)+len(c.Datetime))
	out = append(out, c.Numeric...)
	return append(out, c.Datetime...)
}
