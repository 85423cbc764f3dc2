package core

import (
	"fmt"
	"strings"

	"github.com/JonMunkholm/dataplay/internal/table"
)

// ParseFilterParam converts "op:value" text into a clause typed by the
// column. Text without a known operation prefix is an equals filter on the
// whole text, so "10:30" filters for "10:30". between takes "low,high" and
// in takes a comma-separated list. contains keeps the raw text.
func ParseFilterParam(t *table.Table, column, param string) (table.Clause, error) {
	col, err := t.Column(column)
	if err != nil {
		return table.Clause{}, err
	}

	op, raw := table.OpEquals, param
	if i := strings.IndexByte(param, ':'); i >= 0 {
		if parsed, err := table.ParseOp(param[:i]); err == nil {
			op, raw = parsed, param[i+1:]
		}
	}

	var parts []string
	switch op {
	case table.OpBetween, table.OpIn:
		for _, p := range strings.Split(raw, ",") {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
	default:
		parts = []string{raw}
	}

	operands := make([]any, len(parts))
	for i, p := range parts {
		if op == table.OpContains {
			operands[i] = p
			continue
		}
		v, err := table.ParseValue(col.Type(), p)
		if err != nil {
			return table.Clause{}, &table.ConfigurationError{
				Op:     "filter",
				Reason: fmt.Sprintf("column %q: %v", column, err),
				Err:    err,
			}
		}
		operands[i] = v
	}
	return table.NewClause(column, op, operands...)
}

// ParseWhere parses "column:op:value" (or "column:value" for equals). Column
// names may contain colons; the longest prefix naming a column wins.
func ParseWhere(t *table.Table, expr string) (table.Clause, error) {
	for i := strings.LastIndexByte(expr, ':'); i > 0; i = strings.LastIndexByte(expr[:i], ':') {
		if t.HasColumn(expr[:i]) {
			return ParseFilterParam(t, expr[:i], expr[i+1:])
		}
	}
	name := expr
	if i := strings.IndexByte(expr, ':'); i >= 0 {
		name = expr[:i]
	}
	if _, err := t.Column(name); err != nil {
		return table.Clause{}, err
	}
	return table.Clause{}, &table.ConfigurationError{
		Op:     "filter",
		Reason: fmt.Sprintf("%q is not column:op:value", expr),
	}
}

// Condition is an untyped filter clause as typed into a form, a JSON body or
// the command line. It is resolved against the table it filters, so values
// get the column's type.
type Condition struct {
	Column string `json:"column"`
	// Op is an operation name or alias; empty means Value may carry an
	// "op:" prefix (see ParseFilterParam).
	Op    string `json:"op,omitempty"`
	Value string `json:"value"`
	// Expr is "column:op:value" and, when set, replaces the other fields.
	Expr string `json:"-"`
}

// Clause types the condition against t.
func (c Condition) Clause(t *table.Table) (table.Clause, error) {
	if c.Expr != "" {
		return ParseWhere(t, c.Expr)
	}
	if c.Op == "" {
		return ParseFilterParam(t, c.Column, c.Value)
	}
	op, err := table.ParseOp(c.Op)
	if err != nil {
		return table.Clause{}, err
	}
	return ParseFilterParam(t, c.Column, op.String()+":"+c.Value)
}

// filterSpec appends the typed conditions to the clauses of base.
func filterSpec(t *table.Table, base table.FilterSpec, where []Condition) (table.FilterSpec, error) {
	if len(where) == 0 {
		return base, nil
	}
	clauses := base.Clauses()
	for _, c := range where {
		clause, err := c.Clause(t)
		if err != nil {
			return table.FilterSpec{}, err
		}
		clauses = append(clauses, clause)
	}
	return table.NewFilterSpec(clauses...), nil
}

// ParseSort builds sort keys from column names; a leading "-" sorts that
// column descending.
func ParseSort(specs []string) []table.SortKey {
	var keys []table.SortKey
	for _, s := range specs {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		desc := strings.HasPrefix(s, "-")
		keys = append(keys, table.SortKey{Column: strings.TrimPrefix(s, "-"), Descending: desc})
	}
	return keys
}
