package templates

import (
	"context"
	"io"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/dataplay/internal/core"
	"github.com/JonMunkholm/dataplay/internal/table"
)

// DashboardData is the home page: upload form, optional Postgres import and
// the current table's overview.
type DashboardData struct {
	Tables        []core.TableInfo
	Overview      *core.Overview
	Head          Grid
	ImportEnabled bool
	MaxFileSize   int64
}

// Dashboard renders the home page.
func Dashboard(d DashboardData) templ.Component {
	return Layout("Dashboard", d.Tables, templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &html{w: w}
		h.raw(`<section><h1>Load data</h1>`)
		h.raw(`<form class="upload" method="post" action="/upload" enctype="multipart/form-data">`)
		h.raw(`<input type="file" name="file" accept=".csv,.tsv,.txt,.parquet" required>`)
		h.raw(`<input type="text" name="name" placeholder="table name (optional)">`)
		h.raw(`<button type="submit">Upload</button>`)
		h.rawf(`<p class="muted">CSV, TSV or Parquet up to %s</p>`, formatBytes(d.MaxFileSize))
		h.raw("</form>")
		if d.ImportEnabled {
			h.raw(`<form class="import" method="post" action="/import">`)
			h.raw(`<input type="text" name="schema" placeholder="schema (public)">`)
			h.raw(`<input type="text" name="table" placeholder="database table" required>`)
			h.raw(`<button type="submit">Import from Postgres</button></form>`)
		}
		h.raw("</section>")

		if d.Overview != nil {
			h.render(ctx, OverviewPanel(d.Overview, d.Head))
		}
		return h.err
	}))
}

// OverviewPanel shows the shape, schema and head of a table.
func OverviewPanel(ov *core.Overview, head Grid) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &html{w: w}
		h.raw(`<section class="overview"><h2><a`)
		h.attr("href", tableURL(ov.Name))
		h.raw(">")
		h.text(ov.Name)
		h.raw("</a></h2>")
		h.rawf(`<p>%d rows × %d columns</p>`, ov.Rows, ov.Columns)
		h.raw(`<table class="schema"><thead><tr><th>Column</th><th>Type</th><th>Nulls</th></tr></thead><tbody>`)
		for _, c := range ov.Schema {
			h.raw("<tr><td>")
			h.text(c.Name)
			h.raw("</td><td>")
			h.text(c.Type.String())
			h.raw("</td><td>")
			h.raw(itoa(c.Nulls))
			h.raw("</td></tr>")
		}
		h.raw("</tbody></table><h3>First rows</h3>")
		h.render(ctx, DataGrid(head))
		h.raw("</section>")
		return h.err
	})
}

// FilterValue is one prefilled filter input.
type FilterValue struct {
	Column table.ColumnDescriptor
	Value  string
}

// TableViewData is a filtered, sorted view of one table.
type TableViewData struct {
	Name    string
	Tables  []core.TableInfo
	Filters []FilterValue
	Sort    string
	Dir     string
	Grid    Grid
	// SourceRows is the row count before filtering.
	SourceRows int
}

// TableView renders the full table page.
func TableView(d TableViewData) templ.Component {
	return Layout(d.Name, d.Tables, TablePartial(d))
}

// TablePartial renders the filter form and grid; it is also the HTMX
// response when filters change.
func TablePartial(d TableViewData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &html{w: w}
		h.raw(`<section id="table-view"><h1>`)
		h.text(d.Name)
		h.raw("</h1>")
		h.rawf(`<p class="muted">%d of %d rows match</p>`, d.Grid.Total, d.SourceRows)

		h.raw(`<form class="filters" method="get"`)
		h.attr("action", tableURL(d.Name))
		h.raw(`><fieldset><legend>Filters</legend>`)
		for _, f := range d.Filters {
			h.raw("<label>")
			h.text(f.Column.Name)
			h.raw(`<input type="text"`)
			h.attr("name", "filter["+f.Column.Name+"]")
			h.attr("value", f.Value)
			h.attr("placeholder", filterHint(f.Column.Type))
			h.raw("></label>")
		}
		h.raw(`</fieldset><label>Sort by <select name="sort"><option value=""></option>`)
		for _, f := range d.Filters {
			h.raw("<option")
			h.attr("value", f.Column.Name)
			if f.Column.Name == d.Sort {
				h.raw(" selected")
			}
			h.raw(">")
			h.text(f.Column.Name)
			h.raw("</option>")
		}
		h.raw(`</select></label><label><input type="checkbox" name="dir" value="desc"`)
		if d.Dir == "desc" {
			h.raw(" checked")
		}
		h.raw(`> descending</label><button type="submit">Apply</button></form>`)

		h.raw(`<p class="actions"><a`)
		h.attr("href", tableURL(d.Name)+"/aggregate")
		h.raw(">Aggregate</a> <a")
		h.attr("href", apiTableURL(d.Name)+"/export?format=csv")
		h.raw(">Download CSV</a> <a")
		h.attr("href", apiTableURL(d.Name)+"/export?format=parquet")
		h.raw(">Download Parquet</a></p>")

		h.render(ctx, DataGrid(d.Grid))
		h.raw("</section>")
		return h.err
	})
}

func filterHint(t table.Type) string {
	switch t {
	case table.Numeric, table.Datetime:
		return "gt:10, between:1,5"
	case table.Boolean:
		return "true"
	}
	return "value, contains:text, in:a,b"
}

// AggregateViewData is the group-by form and, once submitted, its result.
type AggregateViewData struct {
	Name    string
	Tables  []core.TableInfo
	Columns []table.ColumnDescriptor
	Keys    []string
	Values  []string
	Funcs   []string
	Result  *Grid
	Chart   *core.ChartConfig
	Error   *core.UserMessage
}

// AggregateView renders the aggregation page.
func AggregateView(d AggregateViewData) templ.Component {
	return Layout("Aggregate "+d.Name, d.Tables, templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &html{w: w}
		h.raw("<section><h1>Aggregate <a")
		h.attr("href", tableURL(d.Name))
		h.raw(">")
		h.text(d.Name)
		h.raw("</a></h1><form method=\"get\">")
		names := make([]string, len(d.Columns))
		for i, c := range d.Columns {
			names[i] = c.Name
		}
		multiSelect(h, "Group by", "group", names, d.Keys)
		multiSelect(h, "Values", "values", names, d.Values)
		funcs := make([]string, len(table.AggFuncs))
		for i, f := range table.AggFuncs {
			funcs[i] = f.String()
		}
		multiSelect(h, "Functions", "funcs", funcs, d.Funcs)
		h.raw(`<button type="submit">Run</button></form>`)

		if d.Error != nil {
			h.render(ctx, ErrorAlert(d.Error.Message, d.Error.Action, d.Error.Code))
		}
		if d.Chart != nil {
			h.render(ctx, BarChart(d.Chart))
		}
		if d.Result != nil {
			saveForm(h)
			h.render(ctx, DataGrid(*d.Result))
		}
		h.raw("</section>")
		return h.err
	}))
}

// JoinViewData is the join form and its result.
type JoinViewData struct {
	Tables    []core.TableInfo
	Left      string
	Right     string
	How       string
	LeftOn    string
	RightOn   string
	LeftRows  int
	RightRows int
	Result    *Grid
	Error     *core.UserMessage
}

// JoinView renders the join page.
func JoinView(d JoinViewData) templ.Component {
	return Layout("Join", d.Tables, templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &html{w: w}
		h.raw(`<section><h1>Join tables</h1><form method="get" action="/join">`)
		names := make([]string, len(d.Tables))
		for i, t := range d.Tables {
			names[i] = t.Name
		}
		singleSelect(h, "Left", "left", names, d.Left)
		singleSelect(h, "Right", "right", names, d.Right)
		kinds := make([]string, len(table.JoinKinds))
		for i, k := range table.JoinKinds {
			kinds[i] = k.String()
		}
		singleSelect(h, "How", "how", kinds, d.How)
		textInput(h, "Left keys", "left_on", d.LeftOn)
		textInput(h, "Right keys", "right_on", d.RightOn)
		h.raw(`<button type="submit">Join</button></form>`)

		if d.Error != nil {
			h.render(ctx, ErrorAlert(d.Error.Message, d.Error.Action, d.Error.Code))
		}
		if d.Result != nil {
			h.rawf(`<p>%d left rows, %d right rows, %d result rows</p>`, d.LeftRows, d.RightRows, d.Result.Total)
			saveForm(h)
			h.render(ctx, DataGrid(*d.Result))
		}
		h.raw("</section>")
		return h.err
	}))
}

// saveForm posts the last result to the save handler.
func saveForm(h *html) {
	h.raw(`<form method="post" action="/result/save" class="save">`)
	h.raw(`<input type="text" name="name" placeholder="save as (optional)">`)
	h.raw(`<button type="submit">Save result</button></form>`)
}

func singleSelect(h *html, label, name string, options []string, selected string) {
	h.raw("<label>")
	h.text(label)
	h.raw("<select")
	h.attr("name", name)
	h.raw(">")
	for _, o := range options {
		h.raw("<option")
		h.attr("value", o)
		if o == selected {
			h.raw(" selected")
		}
		h.raw(">")
		h.text(o)
		h.raw("</option>")
	}
	h.raw("</select></label>")
}

func multiSelect(h *html, label, name string, options, selected []string) {
	chosen := make(map[string]bool, len(selected))
	for _, s := range selected {
		chosen[s] = true
	}
	h.raw("<label>")
	h.text(label)
	h.raw("<select multiple")
	h.attr("name", name)
	h.raw(">")
	for _, o := range options {
		h.raw("<option")
		h.attr("value", o)
		if chosen[o] {
			h.raw(" selected")
		}
		h.raw(">")
		h.text(o)
		h.raw("</option>")
	}
	h.raw("</select></label>")
}

func textInput(h *html, label, name, value string) {
	h.raw("<label>")
	h.text(label)
	h.raw(`<input type="text"`)
	h.attr("name", name)
	h.attr("value", value)
	h.raw("></label>")
}

func formatBytes(n int64) string {
	switch {
	case n >= 1<<30 && n%(1<<30) == 0:
		return itoa(int(n>>30)) + " GiB"
	case n >= 1<<20 && n%(1<<20) == 0:
		return itoa(int(n>>20)) + " MiB"
	case n >= 1<<10 && n%(1<<10) == 0:
		return itoa(int(n>>10)) + " KiB"
	}
	return itoa(int(n)) + " bytes"
}
