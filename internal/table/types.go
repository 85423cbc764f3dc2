package table

import (
	"cmp"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Type is the declared value type of a column.
type Type int

const (
	Text Type = iota
	Category
	Numeric
	Boolean
	Datetime
)

var typeNames = map[Type]string{
	Text:     "text",
	Category: "category",
	Numeric:  "numeric",
	Boolean:  "boolean",
	Datetime: "datetime",
}

// String returns the lower-case name used in JSON and the UI.
func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("type(%d)", int(t))
}

// MarshalText implements encoding.TextMarshaler.
func (t Type) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Type) UnmarshalText(b []byte) error {
	parsed, err := ParseType(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ParseType converts a type name back to a Type.
func ParseType(s string) (Type, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for t, name := range typeNames {
		if name == s {
			return t, nil
		}
	}
	return Text, fmt.Errorf("unknown column type %q", s)
}

// IsTextual reports whether values of t are strings.
func (t Type) IsTextual() bool {
	return t == Text || t == Category
}

// compatible reports whether values of a and b can be compared for equality.
func compatible(a, b Type) bool {
	return a == b || (a.IsTextual() && b.IsTextual())
}

// normalize converts v to the canonical Go representation for typ:
// float64 or int64 for Numeric (see canonicalNumber), string for Text and
// Category, bool for Boolean and time.Time for Datetime. nil (and NaN)
// become nil.
func normalize(typ Type, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch typ {
	case Numeric:
		n, ok := canonicalNumber(v)
		if !ok {
			return nil, fmt.Errorf("%T is not a numeric value", v)
		}
		return n, nil
	case Text, Category:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("%T is not a %s value", v, typ)
		}
		return s, nil
	case Boolean:
		b, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("%T is not a boolean value", v)
		}
		return b, nil
	case Datetime:
		switch tv := v.(type) {
		case time.Time:
			return tv, nil
		case *time.Time:
			if tv == nil {
				return nil, nil
			}
			return *tv, nil
		}
		return nil, fmt.Errorf("%T is not a datetime value", v)
	}
	return nil, fmt.Errorf("unsupported column type %s", typ)
}

// maxExactFloat is the largest magnitude below which every integer has an
// exact float64 representation.
const maxExactFloat = 1 << 53

// canonicalNumber gives every number exactly one representation. Integers
// with magnitude above 2^53 that fit in int64 are kept as int64; everything
// else is float64. A float64 at or above 2^53 is always integral, so it is
// converted to int64 when in range. NaN becomes nil.
func canonicalNumber(v any) (any, bool) {
	switch n := v.(type) {
	case int:
		return canonicalInt(int64(n)), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return canonicalInt(n), true
	case uint:
		return canonicalUint(uint64(n)), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return canonicalUint(n), true
	case float32:
		return canonicalFloat(float64(n)), true
	case float64:
		return canonicalFloat(n), true
	}
	return nil, false
}

func canonicalInt(n int64) any {
	if n > maxExactFloat || n < -maxExactFloat {
		return n
	}
	return float64(n)
}

func canonicalUint(n uint64) any {
	if n > math.MaxInt64 {
		return float64(n)
	}
	return canonicalInt(int64(n))
}

func canonicalFloat(f float64) any {
	switch {
	case math.IsNaN(f):
		return nil
	case f == 0:
		return 0.0 // drop negative zero
	case f >= -math.MaxInt64 && f < math.MaxInt64 && math.Abs(f) > maxExactFloat:
		return int64(f)
	}
	return f
}

// Float converts a normalized numeric value to float64. Integers above 2^53
// are rounded.
func Float(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	}
	return 0, false
}

// compareNumbers orders two canonical numbers. An int64 always has
// magnitude above 2^53 and a float64 is either within 2^53 or beyond the
// int64 range, so mixed pairs are decided by sign and magnitude.
func compareNumbers(a, b any) int {
	switch av := a.(type) {
	case float64:
		switch bv := b.(type) {
		case float64:
			return cmp.Compare(av, bv)
		case int64:
			return -compareNumbers(bv, av)
		}
	case int64:
		switch bv := b.(type) {
		case int64:
			return cmp.Compare(av, bv)
		case float64:
			// bv is beyond the int64 range.
			if math.Abs(bv) > maxExactFloat {
				if bv > 0 {
					return -1
				}
				return 1
			}
			if av > 0 {
				return 1
			}
			return -1
		}
	}
	panic(fmt.Sprintf("table: cannot compare %T with %T", a, b))
}

// compareValues orders two non-null normalized values of the same type.
// Booleans order false before true; strings compare bytewise.
func compareValues(a, b any) int {
	switch av := a.(type) {
	case float64, int64:
		return compareNumbers(a, b)
	case string:
		return strings.Compare(av, b.(string))
	case bool:
		bv := b.(bool)
		switch {
		case av == bv:
			return 0
		case !av:
			return -1
		default:
			return 1
		}
	case time.Time:
		return av.Compare(b.(time.Time))
	}
	panic(fmt.Sprintf("table: cannot compare %T", a))
}

// writeKey appends an unambiguous encoding of v to b. Text and Category
// values share a tag so they hash alike.
func writeKey(b *strings.Builder, v any) {
	var tag byte
	var payload string
	switch tv := v.(type) {
	case nil:
		b.WriteByte('z')
		return
	case float64:
		tag, payload = 'n', strconv.FormatFloat(tv, 'g', -1, 64)
	case int64:
		tag, payload = 'n', strconv.FormatInt(tv, 10)
	case string:
		tag, payload = 's', tv
	case bool:
		tag, payload = 'b', strconv.FormatBool(tv)
	case time.Time:
		tag, payload = 't', strconv.FormatInt(tv.UnixNano(), 10)
	default:
		tag, payload = '?', fmt.Sprint(tv)
	}
	b.WriteByte(tag)
	b.WriteString(strconv.Itoa(len(payload)))
	b.WriteByte(':')
	b.WriteString(payload)
}

func keyOf(values ...any) string {
	var b strings.Builder
	for _, v := range values {
		writeKey(&b, v)
	}
	return b.String()
}

// FormatValue renders a value for display and CSV output. nil renders empty.
func FormatValue(v any) string {
	switch tv := v.(type) {
	case nil:
		return ""
	case float64:
		return strconv.FormatFloat(tv, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(tv, 10)
	case string:
		return tv
	case bool:
		if tv {
			return "True"
		}
		return "False"
	case time.Time:
		if tv.Hour() == 0 && tv.Minute() == 0 && tv.Second() == 0 && tv.Nanosecond() == 0 {
			return tv.Format(time.DateOnly)
		}
		return tv.Format(time.DateTime)
	}
	return fmt.Sprint(v)
}

// Datetime layouts accepted by ParseValue, most specific first.
var datetimeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	time.DateTime,
	"2006-01-02 15:04",
	time.DateOnly,
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"Jan 2, 2006",
	"2 Jan 2006",
}

// ParseDatetime parses s with the accepted datetime layouts.
func ParseDatetime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range datetimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ParseBool accepts the boolean spellings a user is likely to type.
func ParseBool(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "t", "yes", "y", "1":
		return true, true
	case "false", "f", "no", "n", "0":
		return false, true
	}
	return false, false
}

// ParseValue converts user-entered text to a value of type typ.
func ParseValue(typ Type, s string) (any, error) {
	switch typ {
	case Text, Category:
		return s, nil
	case Numeric:
		n, ok := ParseNumber(s)
		if !ok {
			return nil, fmt.Errorf("%q is not a number", s)
		}
		return n, nil
	case Boolean:
		b, ok := ParseBool(s)
		if !ok {
			return nil, fmt.Errorf("%q is not a boolean", s)
		}
		return b, nil
	case Datetime:
		t, ok := ParseDatetime(s)
		if !ok {
			return nil, fmt.Errorf("%q is not a date", s)
		}
		return t, nil
	}
	return nil, fmt.Errorf("unsupported column type %s", typ)
}

// ParseNumber parses s as a canonical number. Integer literals are parsed
// exactly so identifiers beyond 2^53 keep every digit.
func ParseNumber(s string) (any, bool) {
	s = strings.TrimSpace(s)
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return canonicalInt(i), true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, false
	}
	return canonicalFloat(f), true
}
