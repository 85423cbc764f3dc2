package templates

import (
	"context"
	"io"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/dataplay/internal/table"
)

// Grid is a rendered slice of a table.
type Grid struct {
	Columns []table.ColumnDescriptor
	Rows    [][]string
	// Total is the row count before truncation to Rows.
	Total int
}

// NewGrid formats at most max rows of t.
func NewGrid(t *table.Table, max int) Grid {
	head := table.Head(t, max)
	rows := make([][]string, head.NumRows())
	for i := range rows {
		row := head.Row(i)
		cells := make([]string, len(row))
		for j, v := range row {
			cells[j] = table.FormatValue(v)
		}
		rows[i] = cells
	}
	return Grid{Columns: t.Schema(), Rows: rows, Total: t.NumRows()}
}

// DataGrid renders g as an HTML table. Null cells are shown dimmed.
func DataGrid(g Grid) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &html{w: w}
		h.raw(`<div class="grid"><table><thead><tr>`)
		for _, c := range g.Columns {
			h.raw("<th")
			h.attr("title", c.Type.String())
			h.raw(">")
			h.text(c.Name)
			h.raw(`<span class="type">`)
			h.text(c.Type.String())
			h.raw("</span></th>")
		}
		h.raw("</tr></thead><tbody>")
		for _, row := range g.Rows {
			h.raw("<tr>")
			for _, cell := range row {
				if cell == "" {
					h.raw(`<td class="null"></td>`)
					continue
				}
				h.raw("<td>")
				h.text(cell)
				h.raw("</td>")
			}
			h.raw("</tr>")
		}
		h.raw("</tbody></table>")
		if len(g.Rows) < g.Total {
			h.rawf(`<p class="muted">Showing %d of %d rows</p>`, len(g.Rows), g.Total)
		} else {
			h.rawf(`<p class="muted">%d rows</p>`, g.Total)
		}
		h.raw("</div>")
		return h.err
	})
}
