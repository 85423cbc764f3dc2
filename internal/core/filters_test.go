package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/dataplay/internal/table"
)

func filterTable() *table.Table {
	return table.MustNew(
		table.MustColumn("amount", table.Numeric, 1, 5, 10),
		table.MustColumn("city", table.Text, "Oslo", "Bergen", "Oslo"),
		table.MustColumn("day", table.Datetime,
			time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)),
		table.MustColumn("a:b", table.Text, "x", "y", "z"),
	)
}

func TestParseFilterParam(t *testing.T) {
	tbl := filterTable()
	tests := []struct {
		name     string
		column   string
		param    string
		wantOp   table.Op
		wantVals []any
	}{
		{"bare value is equals", "city", "Oslo", table.OpEquals, []any{"Oslo"}},
		{"typed numeric", "amount", "gt:4", table.OpGreaterThan, []any{4.0}},
		{"between", "amount", "between:2, 8", table.OpBetween, []any{2.0, 8.0}},
		{"in list", "city", "in:Oslo,Bergen", table.OpIn, []any{"Oslo", "Bergen"}},
		{"contains keeps text", "amount", "contains:1", table.OpContains, []any{"1"}},
		{"unknown prefix stays in value", "city", "10:30", table.OpEquals, []any{"10:30"}},
		{"datetime", "day", "lt:2024-02-15", table.OpLessThan, []any{time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := ParseFilterParam(tbl, tt.column, tt.param)
			require.NoError(t, err)
			assert.Equal(t, tt.wantOp, c.Op())
			assert.Equal(t, tt.wantVals, c.Operands())
		})
	}
}

func TestParseFilterParam_Errors(t *testing.T) {
	tbl := filterTable()

	_, err := ParseFilterParam(tbl, "nope", "eq:1")
	assert.ErrorIs(t, err, table.ErrLookup)

	_, err = ParseFilterParam(tbl, "amount", "gt:lots")
	assert.ErrorIs(t, err, table.ErrConfiguration)

	_, err = ParseFilterParam(tbl, "amount", "between:1")
	assert.ErrorIs(t, err, table.ErrConfiguration)
}

func TestParseWhere(t *testing.T) {
	tbl := filterTable()

	c, err := ParseWhere(tbl, "amount:gt:4")
	require.NoError(t, err)
	assert.Equal(t, "amount", c.Column())
	assert.Equal(t, table.OpGreaterThan, c.Op())

	c, err = ParseWhere(tbl, "a:b:eq:y")
	require.NoError(t, err)
	assert.Equal(t, "a:b", c.Column(), "column names may contain colons")

	c, err = ParseWhere(tbl, "city:Oslo")
	require.NoError(t, err)
	assert.Equal(t, table.OpEquals, c.Op())

	_, err = ParseWhere(tbl, "town:eq:Oslo")
	assert.ErrorIs(t, err, table.ErrLookup)

	_, err = ParseWhere(tbl, "city")
	assert.ErrorIs(t, err, table.ErrConfiguration)

	out, err := table.Filter(tbl, table.NewFilterSpec(c))
	require.NoError(t, err)
	assert.Equal(t, 2, out.NumRows())
}

func TestParseSort(t *testing.T) {
	assert.Equal(t, []table.SortKey{
		{Column: "amount", Descending: true},
		{Column: "city"},
	}, ParseSort([]string{"-amount", " city ", ""}))
	assert.Nil(t, ParseSort(nil))
}

func TestCondition_Clause(t *testing.T) {
	tbl := filterTable()
	tests := []struct {
		name   string
		cond   Condition
		column string
		op     table.Op
	}{
		{"explicit op", Condition{Column: "amount", Op: "gt", Value: "4"}, "amount", table.OpGreaterThan},
		{"prefix in value", Condition{Column: "amount", Value: "lt:4"}, "amount", table.OpLessThan},
		{"bare value", Condition{Column: "city", Value: "Oslo"}, "city", table.OpEquals},
		{"expression", Condition{Expr: "city:in:Oslo,Bergen"}, "city", table.OpIn},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := tt.cond.Clause(tbl)
			require.NoError(t, err)
			assert.Equal(t, tt.column, c.Column())
			assert.Equal(t, tt.op, c.Op())
		})
	}

	_, err := Condition{Column: "amount", Op: "roughly", Value: "4"}.Clause(tbl)
	assert.ErrorIs(t, err, table.ErrConfiguration)
}
