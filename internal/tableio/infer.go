package tableio

// infer.go turns CSV text cells into typed column values.
//
// A column's type is the first of boolean, numeric, datetime that accepts
// every non-null cell; anything else is text. A column with no values at
// all is numeric, full of nulls.

import (
	"regexp"
	"strings"
	"time"

	"github.com/JonMunkholm/dataplay/internal/table"
)

// nullTokens are the cell spellings read as a missing value.
var nullTokens = map[string]struct{}{
	"":     {},
	"NA":   {},
	"N/A":  {},
	"n/a":  {},
	"NaN":  {},
	"nan":  {},
	"null": {},
	"NULL": {},
	"None": {},
	"#N/A": {},
	"<NA>": {},
}

func isNull(s string) bool {
	_, ok := nullTokens[strings.TrimSpace(s)]
	return ok
}

// numericRegex matches integers, decimals and scientific notation.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// Extra layouts tried after table.ParseDatetime for uploaded data.
var csvDateLayouts = []string{
	"1-2-2006", "01-02-2006", "1.2.2006", "01.02.2006", "2006.01.02",
	"2006/01/02 15:04:05", "01/02/2006 15:04:05", "1/2/2006 15:04",
}

type inferrer struct {
	lenient bool
}

// parseBool only accepts true/false spellings; 1/0 and yes/no stay numeric
// or text so they are not silently reinterpreted.
func parseBool(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true":
		return true, true
	case "false":
		return false, true
	}
	return false, false
}

// parseNumber validates s before converting it. In lenient mode currency
// symbols, thousands separators and accounting negatives "(12.50)" are
// accepted. Integer literals keep every digit.
func (in inferrer) parseNumber(s string) (any, bool) {
	s = strings.TrimSpace(s)
	if in.lenient {
		s = cleanNumber(s)
	}
	if !numericRegex.MatchString(s) {
		return nil, false
	}
	return table.ParseNumber(s)
}

func cleanNumber(s string) string {
	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, "€", "") // Euro
	s = strings.ReplaceAll(s, "£", "") // Pound
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)
	if negative {
		s = "-" + s
	}
	return s
}

func parseDatetime(s string) (time.Time, bool) {
	if t, ok := table.ParseDatetime(s); ok {
		return t, true
	}
	s = strings.TrimSpace(s)
	for _, layout := range csvDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// column infers the type of raw and returns the typed column.
func (in inferrer) column(name string, raw []string) (*table.Column, error) {
	typ := in.inferType(raw)
	values := make([]any, len(raw))
	for i, s := range raw {
		if isNull(s) {
			continue
		}
		switch typ {
		case table.Boolean:
			values[i], _ = parseBool(s)
		case table.Numeric:
			values[i], _ = in.parseNumber(s)
		case table.Datetime:
			values[i], _ = parseDatetime(s)
		default:
			values[i] = s
		}
	}
	return table.NewColumn(name, typ, values)
}

func (in inferrer) inferType(raw []string) table.Type {
	checks := []struct {
		typ   table.Type
		parse func(string) bool
	}{
		{table.Boolean, func(s string) bool { _, ok := parseBool(s); return ok }},
		{table.Numeric, func(s string) bool { _, ok := in.parseNumber(s); return ok }},
		{table.Datetime, func(s string) bool { _, ok := parseDatetime(s); return ok }},
	}

	// Drop candidates as cells rule them out.
	alive := make([]bool, len(checks))
	for i := range alive {
		alive[i] = true
	}
	seen := false
	for _, s := range raw {
		if isNull(s) {
			continue
		}
		seen = true
		remaining := false
		for i, c := range checks {
			if alive[i] && !c.parse(s) {
				alive[i] = false
			}
			remaining = remaining || alive[i]
		}
		if !remaining {
			return table.Text
		}
	}
	if !seen {
		return table.Numeric
	}
	for i, c := range checks {
		if alive[i] {
			return c.typ
		}
	}
	return table.Text
}
