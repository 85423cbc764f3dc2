package table

import (
	"fmt"
	"strings"
)

// AggFunc is a summary statistic computed per group.
type AggFunc int

const (
	AggCount AggFunc = iota + 1
	AggSum
	AggMean
	AggMin
	AggMax
	AggMedian
	AggStd
)

var aggNames = map[AggFunc]string{
	AggCount:  "count",
	AggSum:    "sum",
	AggMean:   "mean",
	AggMin:    "min",
	AggMax:    "max",
	AggMedian: "median",
	AggStd:    "std",
}

// AggFuncs lists every aggregation function in display order.
var AggFuncs = []AggFunc{AggCount, AggSum, AggMean, AggMin, AggMax, AggMedian, AggStd}

func (f AggFunc) String() string {
	if name, ok := aggNames[f]; ok {
		return name
	}
	return fmt.Sprintf("agg(%d)", int(f))
}

// ParseAggFunc maps a function name to an AggFunc.
func ParseAggFunc(s string) (AggFunc, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "standard_deviation", "stddev", "stdev":
		return AggStd, nil
	case "avg", "average":
		return AggMean, nil
	}
	for f, name := range aggNames {
		if name == s {
			return f, nil
		}
	}
	return 0, configErrorf("aggregate", "unsupported aggregation function %q", s)
}

// aggregator computes one statistic over the non-null values of a group.
// numeric aggregators receive Numeric values only.
type aggregator struct {
	numeric bool
	// result reports the output column type for an input column type.
	result func(in Type) Type
	apply  func(vs []any) any
}

func numericResult(Type) Type { return Numeric }
func sameResult(in Type) Type { return in }

var aggregators = map[AggFunc]aggregator{
	AggCount: {
		result: numericResult,
		apply:  func(vs []any) any { return float64(len(vs)) },
	},
	AggSum: {
		numeric: true,
		result:  numericResult,
		apply:   func(vs []any) any { return sum(floats(vs)) },
	},
	AggMean: {
		numeric: true,
		result:  numericResult,
		apply: func(vs []any) any {
			if len(vs) == 0 {
				return nil
			}
			return mean(floats(vs))
		},
	},
	AggMin: {
		result: sameResult,
		apply:  func(vs []any) any { return extreme(vs, -1) },
	},
	AggMax: {
		result: sameResult,
		apply:  func(vs []any) any { return extreme(vs, 1) },
	},
	AggMedian: {
		numeric: true,
		result:  numericResult,
		apply: func(vs []any) any {
			if len(vs) == 0 {
				return nil
			}
			return median(floats(vs))
		},
	},
	AggStd: {
		numeric: true,
		result:  numericResult,
		apply: func(vs []any) any {
			if len(vs) < 2 {
				return nil
			}
			return sampleStd(floats(vs))
		},
	},
}

func floats(vs []any) []float64 {
	out := make([]float64, len(vs))
	for i, v := range vs {
		out[i], _ = Float(v)
	}
	return out
}

// GroupSpec names the key columns, value columns and functions of an
// aggregation. Every function is applied to every value column.
type GroupSpec struct {
	keys   []string
	values []string
	funcs  []AggFunc
}

// NewGroupSpec validates the selection: all three lists non-empty, no
// duplicates, and keys disjoint from values.
func NewGroupSpec(keys, values []string, funcs []AggFunc) (GroupSpec, error) {
	if len(keys) == 0 {
		return GroupSpec{}, configErrorf("aggregate", "no group columns selected")
	}
	if len(values) == 0 {
		return GroupSpec{}, configErrorf("aggregate", "no value columns selected")
	}
	if len(funcs) == 0 {
		return GroupSpec{}, configErrorf("aggregate", "no aggregation functions selected")
	}

	seen := make(map[string]string, len(keys)+len(values))
	for _, k := range keys {
		if k == "" {
			return GroupSpec{}, configErrorf("aggregate", "empty group column name")
		}
		if _, dup := seen[k]; dup {
			return GroupSpec{}, configErrorf("aggregate", "group column %q listed twice", k)
		}
		seen[k] = "group"
	}
	for _, v := range values {
		if v == "" {
			return GroupSpec{}, configErrorf("aggregate", "empty value column name")
		}
		if role, dup := seen[v]; dup {
			if role == "group" {
				return GroupSpec{}, configErrorf("aggregate", "column %q is both a group and a value column", v)
			}
			return GroupSpec{}, configErrorf("aggregate", "value column %q listed twice", v)
		}
		seen[v] = "value"
	}
	fseen := make(map[AggFunc]bool, len(funcs))
	for _, f := range funcs {
		if _, ok := aggregators[f]; !ok {
			return GroupSpec{}, configErrorf("aggregate", "unsupported aggregation function %d", int(f))
		}
		if fseen[f] {
			return GroupSpec{}, configErrorf("aggregate", "function %s listed twice", f)
		}
		fseen[f] = true
	}

	return GroupSpec{
		keys:   append([]string(nil), keys...),
		values: append([]string(nil), values...),
		funcs:  append([]AggFunc(nil), funcs...),
	}, nil
}

func (s GroupSpec) Keys() []string   { return append([]string(nil), s.keys...) }
func (s GroupSpec) Values() []string { return append([]string(nil), s.values...) }
func (s GroupSpec) Funcs() []AggFunc { return append([]AggFunc(nil), s.funcs...) }
func (s GroupSpec) IsZero() bool     { return len(s.keys) == 0 }

// OutputName is the result column name for a value column and function.
func OutputName(value string, f AggFunc) string {
	return value + "_" + f.String()
}

// Aggregate groups t by the key columns and computes every function over
// every value column, ignoring nulls.
//
// Rows with a null in any key column are dropped. Groups appear in the order
// their key tuple first occurs in t. The result has the key columns followed
// by one column per (value, function) pair named "<value>_<func>", value
// major. count of an all-null group is 0 and sum is 0; std needs at least two
// values; every other statistic of an empty group is null.
func Aggregate(t *Table, spec GroupSpec) (*Table, error) {
	if spec.IsZero() {
		return nil, configErrorf("aggregate", "empty group specification")
	}
	keyCols, err := t.lookup(spec.keys)
	if err != nil {
		return nil, err
	}
	valCols, err := t.lookup(spec.values)
	if err != nil {
		return nil, err
	}

	outNames := make(map[string]bool, len(spec.keys))
	for _, k := range spec.keys {
		outNames[k] = true
	}
	for _, vc := range valCols {
		for _, f := range spec.funcs {
			agg := aggregators[f]
			if agg.numeric && vc.typ != Numeric {
				return nil, configErrorf("aggregate", "%s needs a numeric column, %q is %s", f, vc.name, vc.typ)
			}
			name := OutputName(vc.name, f)
			if outNames[name] {
				return nil, configErrorf("aggregate", "output column %q collides with another column", name)
			}
			outNames[name] = true
		}
	}

	// groups[g] holds the input rows of group g; first[g] is its first row.
	groupOf := make(map[string]int)
	var groups [][]int
	keyBuf := make([]any, len(keyCols))
rows:
	for r := 0; r < t.rows; r++ {
		for i, kc := range keyCols {
			v := kc.data[r]
			if v == nil {
				continue rows
			}
			keyBuf[i] = v
		}
		k := keyOf(keyBuf...)
		g, ok := groupOf[k]
		if !ok {
			g = len(groups)
			groupOf[k] = g
			groups = append(groups, nil)
		}
		groups[g] = append(groups[g], r)
	}

	first := make([]int, len(groups))
	for g, members := range groups {
		first[g] = members[0]
	}

	out := make([]*Column, 0, len(keyCols)+len(valCols)*len(spec.funcs))
	for _, kc := range keyCols {
		out = append(out, kc.take(first))
	}

	for _, vc := range valCols {
		// Non-null values per group, gathered once per value column.
		present := make([][]any, len(groups))
		for g, members := range groups {
			vs := make([]any, 0, len(members))
			for _, r := range members {
				if v := vc.data[r]; v != nil {
					vs = append(vs, v)
				}
			}
			present[g] = vs
		}
		for _, f := range spec.funcs {
			agg := aggregators[f]
			data := make([]any, len(groups))
			for g := range groups {
				data[g] = agg.apply(present[g])
			}
			out = append(out, fromNormalized(OutputName(vc.name, f), agg.result(vc.typ), data))
		}
	}

	return New(out...)
}
