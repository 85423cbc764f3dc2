package templates

import (
	"context"
	"io"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/dataplay/internal/core"
)

// Layout wraps a page body with the document shell and the table sidebar.
func Layout(title string, tables []core.TableInfo, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &html{w: w}
		h.raw("<!DOCTYPE html><html lang=\"en\"><head><meta charset=\"utf-8\">")
		h.raw(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
		h.raw("<title>")
		h.text(title)
		h.raw(" · dataplay</title>")
		h.raw(`<link rel="stylesheet" href="/static/app.css"></head><body>`)
		h.raw(`<header><a class="brand" href="/">dataplay</a></header><div class="shell">`)
		h.render(ctx, Sidebar(tables))
		h.raw(`<main id="main">`)
		h.render(ctx, body)
		h.raw("</main></div></body></html>")
		return h.err
	})
}

// Sidebar lists the loaded tables; the current one is highlighted.
func Sidebar(tables []core.TableInfo) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &html{w: w}
		h.raw(`<nav class="sidebar"><h2>Tables</h2>`)
		if len(tables) == 0 {
			h.raw(`<p class="muted">No tables loaded</p>`)
		}
		h.raw("<ul>")
		for _, t := range tables {
			h.raw("<li")
			if t.Current {
				h.raw(` class="current"`)
			}
			h.raw("><a")
			h.attr("href", tableURL(t.Name))
			h.raw(">")
			h.text(t.Name)
			h.raw("</a> ")
			h.rawf(`<span class="muted">%d × %d</span></li>`, t.Rows, t.Columns)
		}
		h.raw("</ul>")
		if len(tables) >= 2 {
			h.raw(`<a class="button" href="/join">Join tables</a>`)
		}
		h.raw("</nav>")
		return h.err
	})
}

// ErrorAlert renders an error message fragment.
func ErrorAlert(message, action, code string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &html{w: w}
		h.raw(`<div class="alert" role="alert"><strong>`)
		h.text(message)
		h.raw("</strong>")
		if action != "" {
			h.raw("<p>")
			h.text(action)
			h.raw("</p>")
		}
		if code != "" {
			h.raw(`<p class="muted">Code: `)
			h.text(code)
			h.raw("</p>")
		}
		h.raw("</div>")
		return h.err
	})
}
