package web

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/JonMunkholm/dataplay/internal/core"
	"github.com/JonMunkholm/dataplay/internal/session"
	"github.com/JonMunkholm/dataplay/internal/table"
	"github.com/JonMunkholm/dataplay/internal/web/templates"
)

// handleDashboard renders the home page with the current table's overview.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := sessionFrom(r)

	data := templates.DashboardData{
		Tables:        s.service.Tables(sess),
		ImportEnabled: s.service.ImportEnabled(),
		MaxFileSize:   s.cfg.Upload.MaxFileSize,
	}
	ov, err := s.service.Overview(ctx, sess, "", 0)
	switch {
	case err == nil:
		data.Overview = ov
		data.Head = templates.NewGrid(ov.Head, s.cfg.Preview.HeadRows)
	case !errors.Is(err, session.ErrTableNotFound):
		s.fail(w, r, err)
		return
	}

	_ = templates.Dashboard(data).Render(ctx, w)
}

// handleUploadForm handles the dashboard upload form and redirects to the
// new table.
func (s *Server) handleUploadForm(w http.ResponseWriter, r *http.Request) {
	req, done, err := s.readUpload(w, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	defer done()

	res, err := s.service.LoadUpload(r.Context(), sessionFrom(r), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	http.Redirect(w, r, tablePath(res.Name), http.StatusSeeOther)
}

// handleImportForm handles the dashboard Postgres import form.
func (s *Server) handleImportForm(w http.ResponseWriter, r *http.Request) {
	res, err := s.service.ImportPostgres(r.Context(), sessionFrom(r), core.ImportRequest{
		Schema: r.FormValue("schema"),
		Table:  r.FormValue("table"),
		Name:   r.FormValue("name"),
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	http.Redirect(w, r, tablePath(res.Name), http.StatusSeeOther)
}

// handleSaveForm saves the last result and opens it.
func (s *Server) handleSaveForm(w http.ResponseWriter, r *http.Request) {
	name, err := s.service.SaveResult(r.Context(), sessionFrom(r), r.FormValue("name"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	http.Redirect(w, r, tablePath(name), http.StatusSeeOther)
}

// handleTableView renders a table with filter[col]=op:value, sort and dir
// query parameters applied. The table becomes current. HTMX requests get
// only the table partial.
func (s *Server) handleTableView(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := sessionFrom(r)
	name := nameParam(r)

	if err := s.service.SelectTable(ctx, sess, name); err != nil {
		s.fail(w, r, err)
		return
	}
	ov, err := s.service.Overview(ctx, sess, name, s.cfg.Preview.MaxRows)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	query := r.URL.Query()
	conds := parseFilters(query)
	sorts := parseSorts(r)

	var grid templates.Grid
	if len(conds) == 0 && len(sorts) == 0 {
		grid = templates.NewGrid(ov.Head, s.cfg.Preview.MaxRows)
		grid.Total = ov.Rows
	} else {
		view, err := s.service.Filter(ctx, sess, name, core.FilterRequest{Where: conds, Sort: sorts})
		if err != nil {
			s.fail(w, r, err)
			return
		}
		grid = templates.NewGrid(view.Table, s.cfg.Preview.MaxRows)
	}

	data := templates.TableViewData{
		Name:       name,
		Tables:     s.service.Tables(sess),
		Sort:       query.Get("sort"),
		Dir:        query.Get("dir"),
		Grid:       grid,
		SourceRows: ov.Rows,
	}
	for _, c := range ov.Schema {
		data.Filters = append(data.Filters, templates.FilterValue{
			Column: table.ColumnDescriptor{Name: c.Name, Type: c.Type},
			Value:  query.Get("filter[" + c.Name + "]"),
		})
	}

	if isHTMX(r) {
		_ = templates.TablePartial(data).Render(ctx, w)
		return
	}
	_ = templates.TableView(data).Render(ctx, w)
}

// handleAggregateView renders the group-by form; with group, values and
// funcs parameters it also runs the aggregation.
func (s *Server) handleAggregateView(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := sessionFrom(r)
	name := nameParam(r)

	ov, err := s.service.Overview(ctx, sess, name, 1)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	q := r.URL.Query()
	data := templates.AggregateViewData{
		Name:   name,
		Tables: s.service.Tables(sess),
		Keys:   q["group"],
		Values: q["values"],
		Funcs:  q["funcs"],
	}
	for _, c := range ov.Schema {
		data.Columns = append(data.Columns, table.ColumnDescriptor{Name: c.Name, Type: c.Type})
	}

	if len(data.Keys) > 0 {
		res, err := s.runAggregate(r, name, data.Keys, data.Values, data.Funcs)
		if err != nil {
			msg := core.MapError(err)
			data.Error = &msg
			w.WriteHeader(statusFor(err))
		} else {
			grid := templates.NewGrid(res.Table, s.cfg.Preview.MaxRows)
			data.Result, data.Chart = &grid, res.Chart
		}
	}
	_ = templates.AggregateView(data).Render(ctx, w)
}

func (s *Server) runAggregate(r *http.Request, name string, keys, values, funcs []string) (*core.AggregateResult, error) {
	spec, err := groupSpec(keys, values, funcs)
	if err != nil {
		return nil, err
	}
	return s.service.Aggregate(r.Context(), sessionFrom(r), name, core.AggregateRequest{Spec: spec})
}

// handleJoinView renders the join form; with left and right parameters it
// also runs the join. Saving goes through the POST save form.
func (s *Server) handleJoinView(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := sessionFrom(r)
	q := r.URL.Query()

	data := templates.JoinViewData{
		Tables:  s.service.Tables(sess),
		Left:    q.Get("left"),
		Right:   q.Get("right"),
		How:     q.Get("how"),
		LeftOn:  q.Get("left_on"),
		RightOn: q.Get("right_on"),
	}
	if data.Left != "" && data.Right != "" {
		res, err := s.runJoin(r, data)
		if err != nil {
			msg := core.MapError(err)
			data.Error = &msg
			w.WriteHeader(statusFor(err))
		} else {
			grid := templates.NewGrid(res.Table, s.cfg.Preview.MaxRows)
			data.Result = &grid
			data.LeftRows, data.RightRows = res.LeftRows, res.RightRows
		}
	}
	_ = templates.JoinView(data).Render(ctx, w)
}

func (s *Server) runJoin(r *http.Request, d templates.JoinViewData) (*core.JoinResult, error) {
	rightOn := splitList(d.RightOn)
	if len(rightOn) == 0 {
		rightOn = splitList(d.LeftOn)
	}
	spec, err := joinSpec(d.How, splitList(d.LeftOn), rightOn)
	if err != nil {
		return nil, err
	}
	return s.service.Join(r.Context(), sessionFrom(r), core.JoinRequest{
		Left:  d.Left,
		Right: d.Right,
		Spec:  spec,
	})
}

func tablePath(name string) string {
	return "/table/" + url.PathEscape(name)
}
