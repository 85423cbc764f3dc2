package table

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
)

// Op is a filter comparison.
type Op int

const (
	OpEquals Op = iota + 1
	OpNotEquals
	OpContains
	OpGreaterThan
	OpLessThan
	OpBetween
	OpIn
)

var opNames = map[Op]string{
	OpEquals:      "equals",
	OpNotEquals:   "not_equals",
	OpContains:    "contains",
	OpGreaterThan: "greater_than",
	OpLessThan:    "less_than",
	OpBetween:     "between",
	OpIn:          "in",
}

// Ops lists every filter operation in display order.
var Ops = []Op{OpEquals, OpNotEquals, OpContains, OpGreaterThan, OpLessThan, OpBetween, OpIn}

func (o Op) String() string {
	if name, ok := opNames[o]; ok {
		return name
	}
	return fmt.Sprintf("op(%d)", int(o))
}

// ParseOp accepts the canonical names plus a few short aliases.
func ParseOp(s string) (Op, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "eq", "=", "==":
		return OpEquals, nil
	case "ne", "neq", "!=":
		return OpNotEquals, nil
	case "gt", ">":
		return OpGreaterThan, nil
	case "lt", "<":
		return OpLessThan, nil
	}
	for op, name := range opNames {
		if name == s {
			return op, nil
		}
	}
	return 0, configErrorf("filter", "unsupported operation %q", s)
}

// arity returns the allowed operand counts; max < 0 means unbounded.
func (o Op) arity() (min, max int) {
	switch o {
	case OpBetween:
		return 2, 2
	case OpIn:
		return 1, -1
	}
	return 1, 1
}

// Clause is one predicate of a filter: column, operation and operands.
type Clause struct {
	column   string
	op       Op
	operands []any
}

// NewClause validates the operation and operand count. Operand types are
// checked against the column when the filter runs.
func NewClause(column string, op Op, operands ...any) (Clause, error) {
	if column == "" {
		return Clause{}, configErrorf("filter", "clause has no column")
	}
	if _, ok := opNames[op]; !ok {
		return Clause{}, configErrorf("filter", "unsupported operation %d", int(op))
	}
	lo, hi := op.arity()
	if len(operands) < lo || (hi >= 0 && len(operands) > hi) {
		return Clause{}, configErrorf("filter", "%s on %q takes %s, got %d", op, column, arityText(lo, hi), len(operands))
	}
	for _, v := range operands {
		if v == nil {
			return Clause{}, configErrorf("filter", "%s on %q has a null comparison value", op, column)
		}
	}
	ops := make([]any, len(operands))
	copy(ops, operands)
	return Clause{column: column, op: op, operands: ops}, nil
}

func arityText(lo, hi int) string {
	switch {
	case lo == hi && lo == 1:
		return "one value"
	case lo == hi:
		return fmt.Sprintf("%d values", lo)
	default:
		return "at least one value"
	}
}

func (c Clause) Column() string { return c.column }
func (c Clause) Op() Op         { return c.op }

// Operands returns a copy of the comparison values.
func (c Clause) Operands() []any {
	out := make([]any, len(c.operands))
	copy(out, c.operands)
	return out
}

func (c Clause) String() string {
	parts := make([]string, len(c.operands))
	for i, v := range c.operands {
		parts[i] = FormatValue(v)
	}
	return fmt.Sprintf("%s %s %s", c.column, c.op, strings.Join(parts, ","))
}

// FilterSpec is an ordered list of clauses combined with AND.
type FilterSpec struct {
	clauses []Clause
}

// NewFilterSpec builds a spec; no clauses means every row passes.
func NewFilterSpec(clauses ...Clause) FilterSpec {
	cs := make([]Clause, len(clauses))
	copy(cs, clauses)
	return FilterSpec{clauses: cs}
}

func (s FilterSpec) Clauses() []Clause {
	out := make([]Clause, len(s.clauses))
	copy(out, s.clauses)
	return out
}

func (s FilterSpec) Len() int { return len(s.clauses) }

type predicate func(v any) bool

// predicateFactory compiles a clause against a column; operands are already
// normalized to the column type (except for contains).
type predicateFactory func(operands []any) predicate

var predicates = map[Op]predicateFactory{
	OpEquals: func(ops []any) predicate {
		return func(v any) bool { return v != nil && compareValues(v, ops[0]) == 0 }
	},
	OpNotEquals: func(ops []any) predicate {
		return func(v any) bool { return v == nil || compareValues(v, ops[0]) != 0 }
	},
	OpContains: func(ops []any) predicate {
		fold := cases.Fold()
		needle := fold.String(ops[0].(string))
		return func(v any) bool {
			return v != nil && strings.Contains(fold.String(FormatValue(v)), needle)
		}
	},
	OpGreaterThan: func(ops []any) predicate {
		return func(v any) bool { return v != nil && compareValues(v, ops[0]) > 0 }
	},
	OpLessThan: func(ops []any) predicate {
		return func(v any) bool { return v != nil && compareValues(v, ops[0]) < 0 }
	},
	OpBetween: func(ops []any) predicate {
		lo, hi := ops[0], ops[1]
		return func(v any) bool {
			return v != nil && compareValues(v, lo) >= 0 && compareValues(v, hi) <= 0
		}
	},
	OpIn: func(ops []any) predicate {
		set := make(map[string]struct{}, len(ops))
		for _, o := range ops {
			set[keyOf(o)] = struct{}{}
		}
		return func(v any) bool {
			if v == nil {
				return false
			}
			_, ok := set[keyOf(v)]
			return ok
		}
	},
}

// compile resolves the clause column and coerces operands to its type.
func (c Clause) compile(t *Table, pos int) (*Column, predicate, error) {
	col, err := t.Column(c.column)
	if err != nil {
		return nil, nil, err
	}
	factory, ok := predicates[c.op]
	if !ok {
		return nil, nil, configErrorf("filter", "unsupported operation %d", int(c.op))
	}

	ops := make([]any, len(c.operands))
	for i, v := range c.operands {
		if c.op == OpContains {
			ops[i] = FormatValue(v)
			continue
		}
		nv, err := normalize(col.typ, v)
		if err != nil || nv == nil {
			return nil, nil, configErrorf("filter", "clause %d: value %v is not a valid %s value for column %q",
				pos+1, v, col.typ, c.column)
		}
		ops[i] = nv
	}
	return col, factory(ops), nil
}

// Filter keeps the rows that satisfy every clause. Clauses are applied in
// order, each one narrowing the rows kept by the previous ones. Row order is
// preserved and columns are unchanged.
//
// All clauses are validated before any row is evaluated.
func Filter(t *Table, spec FilterSpec) (*Table, error) {
	type compiled struct {
		col  *Column
		pred predicate
	}
	steps := make([]compiled, len(spec.clauses))
	for i, c := range spec.clauses {
		col, pred, err := c.compile(t, i)
		if err != nil {
			return nil, err
		}
		steps[i] = compiled{col: col, pred: pred}
	}

	rows := sequence(t.rows)
	for _, step := range steps {
		kept := make([]int, 0, len(rows))
		for _, r := range rows {
			if step.pred(step.col.data[r]) {
				kept = append(kept, r)
			}
		}
		rows = kept
	}
	return t.take(rows), nil
}
