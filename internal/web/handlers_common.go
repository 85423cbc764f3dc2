package web

// Shared helpers used across handlers.

import (
	"math"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/dataplay/internal/core"
	"github.com/JonMunkholm/dataplay/internal/table"
)

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}

// parseSorts parses comma-separated sort and dir parameters, e.g.
// sort=region,amount&dir=asc,desc. At most two keys are used.
func parseSorts(r *http.Request) []table.SortKey {
	sortStr := r.URL.Query().Get("sort")
	if sortStr == "" {
		return nil
	}
	cols := strings.Split(sortStr, ",")
	dirs := strings.Split(r.URL.Query().Get("dir"), ",")

	var keys []table.SortKey
	for i, col := range cols {
		col = strings.TrimSpace(col)
		if col == "" {
			continue
		}
		desc := i < len(dirs) && strings.TrimSpace(dirs[i]) == "desc"
		keys = append(keys, table.SortKey{Column: col, Descending: desc})
		if len(keys) >= 2 {
			break
		}
	}
	return keys
}

// parseFilters extracts filter[column]=op:value query parameters in column
// order. Empty values are skipped.
func parseFilters(q url.Values) []core.Condition {
	var conds []core.Condition
	for key, values := range q {
		if !strings.HasPrefix(key, "filter[") || !strings.HasSuffix(key, "]") {
			continue
		}
		col := key[len("filter[") : len(key)-1]
		if col == "" {
			continue
		}
		for _, v := range values {
			if strings.TrimSpace(v) == "" {
				continue
			}
			conds = append(conds, core.Condition{Column: col, Value: v})
		}
	}
	sort.SliceStable(conds, func(i, j int) bool { return conds[i].Column < conds[j].Column })
	return conds
}

// splitList splits a comma-separated parameter, dropping empty items.
func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// nameParam is the {name} route parameter, unescaped.
func nameParam(r *http.Request) string {
	name := chi.URLParam(r, "name")
	if unescaped, err := url.PathUnescape(name); err == nil {
		return unescaped
	}
	return name
}

// TablePayload is a table in API responses, capped at the preview limit.
type TablePayload struct {
	Columns   []table.ColumnDescriptor `json:"columns"`
	Rows      [][]any                  `json:"rows"`
	TotalRows int                      `json:"total_rows"`
	Truncated bool                     `json:"truncated"`
}

// newTablePayload returns at most max rows of t. Infinite numbers and
// integers beyond 2^53 are sent as strings since JSON clients cannot carry
// them.
func newTablePayload(t *table.Table, max int) TablePayload {
	head := table.Head(t, max)
	rows := head.Rows()
	for _, row := range rows {
		for j, v := range row {
			switch n := v.(type) {
			case float64:
				if math.IsInf(n, 0) {
					row[j] = table.FormatValue(n)
				}
			case int64:
				row[j] = table.FormatValue(n)
			}
		}
	}
	return TablePayload{
		Columns:   t.Schema(),
		Rows:      rows,
		TotalRows: t.NumRows(),
		Truncated: head.NumRows() < t.NumRows(),
	}
}

// ViewResponse is an engine result.
type ViewResponse struct {
	core.View
	Data TablePayload `json:"data"`
}

// AggregateResponse is an aggregation with its optional chart.
type AggregateResponse struct {
	core.View
	Chart *core.ChartConfig `json:"chart,omitempty"`
	Data  TablePayload      `json:"data"`
}

// JoinResponse is a join with its input sizes.
type JoinResponse struct {
	core.View
	LeftRows  int          `json:"left_rows"`
	RightRows int          `json:"right_rows"`
	Data      TablePayload `json:"data"`
}

// OverviewResponse is a table overview with its head rows.
type OverviewResponse struct {
	*core.Overview
	Head TablePayload `json:"head"`
}
