package core

import (
	"io"

	"github.com/JonMunkholm/dataplay/internal/table"
)

// TableInfo is one registry entry as listed in the UI.
type TableInfo struct {
	Name    string `json:"name"`
	Rows    int    `json:"rows"`
	Columns int    `json:"columns"`
	Current bool   `json:"current"`
}

// ColumnSummary describes one column in an overview.
type ColumnSummary struct {
	Name  string     `json:"name"`
	Type  table.Type `json:"type"`
	Nulls int        `json:"nulls"`
}

// Overview is the shape, schema and first rows of a table.
type Overview struct {
	Name    string               `json:"name"`
	Rows    int                  `json:"rows"`
	Columns int                  `json:"columns"`
	Schema  []ColumnSummary      `json:"schema"`
	Classes table.Classification `json:"classes"`
	Head    *table.Table         `json:"-"`
}

// View is the result of an engine operation.
type View struct {
	// Label describes the operation, e.g. "filter sales".
	Label string `json:"label"`
	// Source is the registry table the operation ran on.
	Source        string       `json:"source"`
	SuggestedName string       `json:"suggested_name"`
	Table         *table.Table `json:"-"`
	// SavedAs is set when the result was registered.
	SavedAs string `json:"saved_as,omitempty"`
}

// Rows returns the number of result rows.
func (v *View) Rows() int { return v.Table.NumRows() }

// FilterRequest is a filter followed by an optional projection and sort.
// Where conditions are typed against the table and ANDed with Spec.
type FilterRequest struct {
	Spec    table.FilterSpec
	Where   []Condition
	Columns []string
	Sort    []table.SortKey
	SaveAs  string
}

// AggregateRequest groups a table.
type AggregateRequest struct {
	Spec   table.GroupSpec
	SaveAs string
}

// AggregateResult is an aggregation plus a bar chart when the grouping has
// exactly one key and one value column.
type AggregateResult struct {
	View
	Chart *ChartConfig `json:"chart,omitempty"`
}

// JoinRequest joins two registry tables.
type JoinRequest struct {
	Left  string
	Right string
	Spec  table.JoinSpec
	// Save registers the result under SaveAs, or under
	// "<left>_join_<right>" when SaveAs is empty.
	Save   bool
	SaveAs string
}

// JoinResult carries the input sizes alongside the result.
type JoinResult struct {
	View
	LeftRows  int `json:"left_rows"`
	RightRows int `json:"right_rows"`
}

// UploadRequest is one file to load into the workspace.
type UploadRequest struct {
	Filename string
	Body     io.Reader
	// Name overrides the table name derived from Filename.
	Name string
	// Replace overwrites an existing table with the same name.
	Replace bool
}

// ImportRequest names a Postgres relation to load.
type ImportRequest struct {
	Schema  string
	Table   string
	Name    string
	Replace bool
}

// LoadResult describes a table added by an upload or import.
type LoadResult struct {
	Name      string `json:"name"`
	Rows      int    `json:"rows"`
	Columns   int    `json:"columns"`
	Source    string `json:"source"` // csv, tsv, parquet or postgres
	Bytes     int64  `json:"bytes,omitempty"`
	Truncated bool   `json:"truncated,omitempty"`
}

// Export is an encoded table ready for download.
type Export struct {
	Filename    string
	ContentType string
	Data        []byte
}
