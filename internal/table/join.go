package table

import (
	"fmt"
	"strings"
)

// JoinKind selects which unmatched rows a join keeps.
type JoinKind int

const (
	InnerJoin JoinKind = iota + 1
	LeftJoin
	RightJoin
	OuterJoin
)

var joinNames = map[JoinKind]string{
	InnerJoin: "inner",
	LeftJoin:  "left",
	RightJoin: "right",
	OuterJoin: "outer",
}

// JoinKinds lists every join kind in display order.
var JoinKinds = []JoinKind{InnerJoin, LeftJoin, RightJoin, OuterJoin}

func (k JoinKind) String() string {
	if name, ok := joinNames[k]; ok {
		return name
	}
	return fmt.Sprintf("join(%d)", int(k))
}

// ParseJoinKind accepts inner, left, right and outer, plus the *_outer and
// full spellings.
func ParseJoinKind(s string) (JoinKind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "left_outer", "left-outer":
		return LeftJoin, nil
	case "right_outer", "right-outer":
		return RightJoin, nil
	case "full", "full_outer", "full-outer":
		return OuterJoin, nil
	}
	for k, name := range joinNames {
		if name == s {
			return k, nil
		}
	}
	return 0, configErrorf("join", "unsupported join kind %q", s)
}

// keepsLeft reports whether unmatched left rows are emitted.
func (k JoinKind) keepsLeft() bool { return k == LeftJoin || k == OuterJoin }

// keepsRight reports whether unmatched right rows are emitted.
func (k JoinKind) keepsRight() bool { return k == RightJoin || k == OuterJoin }

// Suffixes appended to a non-key column name present on both sides.
const (
	LeftSuffix  = "_x"
	RightSuffix = "_y"
)

// JoinSpec is a join kind plus paired key columns: LeftKeys[i] is compared
// with RightKeys[i].
type JoinSpec struct {
	kind      JoinKind
	leftKeys  []string
	rightKeys []string
}

// NewJoinSpec validates the kind and the key lists.
func NewJoinSpec(kind JoinKind, leftKeys, rightKeys []string) (JoinSpec, error) {
	if _, ok := joinNames[kind]; !ok {
		return JoinSpec{}, configErrorf("join", "unsupported join kind %d", int(kind))
	}
	if len(leftKeys) == 0 || len(rightKeys) == 0 {
		return JoinSpec{}, configErrorf("join", "both sides need at least one key column")
	}
	if len(leftKeys) != len(rightKeys) {
		return JoinSpec{}, configErrorf("join", "%d left keys but %d right keys", len(leftKeys), len(rightKeys))
	}
	sides := []struct {
		name string
		keys []string
	}{{"left", leftKeys}, {"right", rightKeys}}
	for _, s := range sides {
		side, keys := s.name, s.keys
		seen := make(map[string]bool, len(keys))
		for _, k := range keys {
			if k == "" {
				return JoinSpec{}, configErrorf("join", "empty %s key name", side)
			}
			if seen[k] {
				return JoinSpec{}, configErrorf("join", "%s key %q listed twice", side, k)
			}
			seen[k] = true
		}
	}
	return JoinSpec{
		kind:      kind,
		leftKeys:  append([]string(nil), leftKeys...),
		rightKeys: append([]string(nil), rightKeys...),
	}, nil
}

func (s JoinSpec) Kind() JoinKind      { return s.kind }
func (s JoinSpec) LeftKeys() []string  { return append([]string(nil), s.leftKeys...) }
func (s JoinSpec) RightKeys() []string { return append([]string(nil), s.rightKeys...) }

// resolveKeys looks up key columns, reporting a missing one as a
// configuration error that wraps the lookup error.
func resolveKeys(t *Table, names []string, side string) ([]*Column, error) {
	cols, err := t.lookup(names)
	if err != nil {
		return nil, &ConfigurationError{
			Op:     "join",
			Reason: fmt.Sprintf("%s key: %v", side, err),
			Err:    err,
		}
	}
	return cols, nil
}

// hashKey encodes the key tuple of row r, or reports false when any part is
// null.
func hashKey(cols []*Column, r int, buf []any) (string, bool) {
	for i, c := range cols {
		v := c.data[r]
		if v == nil {
			return "", false
		}
		buf[i] = v
	}
	return keyOf(buf...), true
}

func buildIndex(cols []*Column, rows int) map[string][]int {
	idx := make(map[string][]int)
	buf := make([]any, len(cols))
	for r := 0; r < rows; r++ {
		if k, ok := hashKey(cols, r, buf); ok {
			idx[k] = append(idx[k], r)
		}
	}
	return idx
}

// Join combines left and right on equal key tuples. Every matching pair
// produces one row. Null keys never match.
//
// Row order follows the driving side: left for inner, left and outer joins,
// right for right joins. Matches appear in the order of the other side. An
// outer join then appends unmatched right rows in right order.
//
// Columns are all left columns followed by all right columns. A right key
// with the same name as its paired left key is merged into the left key
// column, which then carries the right value on rows that only the right
// side supplied. Any other name present on both sides gets LeftSuffix and
// RightSuffix.
func Join(left, right *Table, spec JoinSpec) (*Table, error) {
	if len(spec.leftKeys) == 0 {
		return nil, configErrorf("join", "empty join specification")
	}
	lkeys, err := resolveKeys(left, spec.leftKeys, "left")
	if err != nil {
		return nil, err
	}
	rkeys, err := resolveKeys(right, spec.rightKeys, "right")
	if err != nil {
		return nil, err
	}
	for i := range lkeys {
		if !compatible(lkeys[i].typ, rkeys[i].typ) {
			return nil, configErrorf("join", "cannot compare %s key %q with %s key %q",
				lkeys[i].typ, lkeys[i].name, rkeys[i].typ, rkeys[i].name)
		}
	}

	// Right key columns folded into their same-named left key.
	merged := make(map[string]int)
	for i := range spec.leftKeys {
		if spec.leftKeys[i] == spec.rightKeys[i] {
			merged[spec.rightKeys[i]] = i
		}
	}

	names, err := joinedNames(left, right, merged)
	if err != nil {
		return nil, err
	}

	lrows, rrows := pairRows(left, right, lkeys, rkeys, spec.kind)

	out := make([]*Column, 0, len(names))
	for _, c := range left.cols {
		col := c.take(lrows)
		if i, ok := keyPosition(spec.leftKeys, c.name, merged); ok {
			fill := rkeys[i]
			for j, r := range lrows {
				if r < 0 && rrows[j] >= 0 {
					col.data[j] = fill.data[rrows[j]]
				}
			}
		}
		out = append(out, col.renamed(names[len(out)]))
	}
	for _, c := range right.cols {
		if _, ok := merged[c.name]; ok {
			continue
		}
		out = append(out, c.take(rrows).renamed(names[len(out)]))
	}
	return New(out...)
}

// keyPosition reports the key pair index of a left column that absorbs its
// right counterpart.
func keyPosition(leftKeys []string, name string, merged map[string]int) (int, bool) {
	i, ok := merged[name]
	if !ok || leftKeys[i] != name {
		return 0, false
	}
	return i, true
}

// joinedNames computes the output column names, suffixing shared names and
// rejecting duplicates the suffixes could not resolve.
func joinedNames(left, right *Table, merged map[string]int) ([]string, error) {
	rightKept := make(map[string]bool, len(right.cols))
	for _, c := range right.cols {
		if _, ok := merged[c.name]; !ok {
			rightKept[c.name] = true
		}
	}

	names := make([]string, 0, len(left.cols)+len(rightKept))
	for _, c := range left.cols {
		name := c.name
		if rightKept[name] {
			name += LeftSuffix
		}
		names = append(names, name)
	}
	for _, c := range right.cols {
		if !rightKept[c.name] {
			continue
		}
		name := c.name
		if left.HasColumn(name) {
			name += RightSuffix
		}
		names = append(names, name)
	}

	seen := make(map[string]bool, len(names))
	for _, n := range names {
		if seen[n] {
			return nil, configErrorf("join", "output column %q appears twice after adding suffixes", n)
		}
		seen[n] = true
	}
	return names, nil
}

// pairRows returns parallel row index slices into left and right; -1 marks
// the side that contributes nulls.
func pairRows(left, right *Table, lkeys, rkeys []*Column, kind JoinKind) ([]int, []int) {
	var lrows, rrows []int

	if kind == RightJoin {
		idx := buildIndex(lkeys, left.rows)
		buf := make([]any, len(rkeys))
		for r := 0; r < right.rows; r++ {
			k, ok := hashKey(rkeys, r, buf)
			matches := idx[k]
			if !ok || len(matches) == 0 {
				lrows = append(lrows, -1)
				rrows = append(rrows, r)
				continue
			}
			for _, l := range matches {
				lrows = append(lrows, l)
				rrows = append(rrows, r)
			}
		}
		return lrows, rrows
	}

	idx := buildIndex(rkeys, right.rows)
	matched := make([]bool, right.rows)
	buf := make([]any, len(lkeys))
	for l := 0; l < left.rows; l++ {
		k, ok := hashKey(lkeys, l, buf)
		matches := idx[k]
		if !ok || len(matches) == 0 {
			if kind.keepsLeft() {
				lrows = append(lrows, l)
				rrows = append(rrows, -1)
			}
			continue
		}
		for _, r := range matches {
			lrows = append(lrows, l)
			rrows = append(rrows, r)
			matched[r] = true
		}
	}
	if kind.keepsRight() {
		for r, m := range matched {
			if !m {
				lrows = append(lrows, -1)
				rrows = append(rrows, r)
			}
		}
	}
	return lrows, rrows
}
