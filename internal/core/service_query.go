package core

import (
	"context"
	"strings"
	"time"

	"github.com/JonMunkholm/dataplay/internal/session"
	"github.com/JonMunkholm/dataplay/internal/table"
)

// Filter keeps the rows of a table that satisfy every clause, then applies
// the optional projection and sort. An empty name uses the current table.
func (s *Service) Filter(ctx context.Context, sess *session.Session, name string, req FilterRequest) (*View, error) {
	start := time.Now()
	var (
		view    *View
		rowsIn  int
		clauses int
	)
	err := sess.Do(func(ws *session.Workspace) error {
		src, t, err := resolve(ws, name)
		if err != nil {
			return err
		}
		name, rowsIn = src, t.NumRows()

		spec, err := filterSpec(t, req.Spec, req.Where)
		if err != nil {
			return err
		}
		clauses = spec.Len()
		out, err := table.Filter(t, spec)
		if err != nil {
			return err
		}
		if len(req.Columns) > 0 {
			if out, err = table.Select(out, req.Columns...); err != nil {
				return err
			}
		}
		if len(req.Sort) > 0 {
			if out, err = table.Sort(out, req.Sort...); err != nil {
				return err
			}
		}

		view = &View{
			Label:         "filter " + src,
			Source:        src,
			SuggestedName: src + "_filtered",
			Table:         out,
		}
		return s.keep(ws, view, req.SaveAs)
	})
	if err != nil {
		s.finish(ctx, "filter", start, rowsIn, 0, err, "table", name)
		return nil, err
	}
	s.finish(ctx, "filter", start, rowsIn, view.Rows(), nil, "table", name, "clauses", clauses)
	return view, nil
}

// Aggregate groups a table. When the grouping has one key and one value
// column the result includes a bar chart of the first function.
func (s *Service) Aggregate(ctx context.Context, sess *session.Session, name string, req AggregateRequest) (*AggregateResult, error) {
	start := time.Now()
	var (
		res    *AggregateResult
		rowsIn int
	)
	err := sess.Do(func(ws *session.Workspace) error {
		src, t, err := resolve(ws, name)
		if err != nil {
			return err
		}
		name, rowsIn = src, t.NumRows()

		out, err := table.Aggregate(t, req.Spec)
		if err != nil {
			return err
		}
		res = &AggregateResult{
			View: View{
				Label:         "aggregate " + src,
				Source:        src,
				SuggestedName: src + "_by_" + strings.Join(req.Spec.Keys(), "_"),
				Table:         out,
			},
			Chart: barChart(out, req.Spec),
		}
		return s.keep(ws, &res.View, req.SaveAs)
	})
	if err != nil {
		s.finish(ctx, "aggregate", start, rowsIn, 0, err, "table", name)
		return nil, err
	}
	s.finish(ctx, "aggregate", start, rowsIn, res.Rows(), nil,
		"table", name, "keys", req.Spec.Keys(), "funcs", len(req.Spec.Funcs()))
	return res, nil
}

// JoinName is the default registry name of a join result.
func JoinName(left, right string) string {
	return left + "_join_" + right
}

// Join combines two registry tables.
func (s *Service) Join(ctx context.Context, sess *session.Session, req JoinRequest) (*JoinResult, error) {
	start := time.Now()
	var (
		res    *JoinResult
		rowsIn int
	)
	err := sess.Do(func(ws *session.Workspace) error {
		left, err := ws.Get(req.Left)
		if err != nil {
			return err
		}
		right, err := ws.Get(req.Right)
		if err != nil {
			return err
		}
		rowsIn = left.NumRows() + right.NumRows()

		out, err := table.Join(left, right, req.Spec)
		if err != nil {
			return err
		}
		res = &JoinResult{
			View: View{
				Label:         req.Spec.Kind().String() + " join " + req.Left + " with " + req.Right,
				Source:        req.Left,
				SuggestedName: JoinName(req.Left, req.Right),
				Table:         out,
			},
			LeftRows:  left.NumRows(),
			RightRows: right.NumRows(),
		}
		saveAs := req.SaveAs
		if req.Save && saveAs == "" {
			saveAs = res.SuggestedName
		}
		return s.keep(ws, &res.View, saveAs)
	})
	if err != nil {
		s.finish(ctx, "join", start, rowsIn, 0, err, "left", req.Left, "right", req.Right)
		return nil, err
	}
	s.finish(ctx, "join", start, rowsIn, res.Rows(), nil,
		"left", req.Left, "right", req.Right, "how", req.Spec.Kind().String())
	return res, nil
}

// keep registers v when saveAs is set and then stores it as the last
// result. A rejected name leaves the previous result in place.
func (s *Service) keep(ws *session.Workspace, v *View, saveAs string) error {
	if strings.TrimSpace(saveAs) != "" {
		name, err := session.ValidateName(saveAs)
		if err != nil {
			return err
		}
		if err := ws.Add(name, v.Table); err != nil {
			return err
		}
		v.SavedAs = name
	}
	ws.SetResult(session.Result{Label: v.Label, SuggestedName: v.SuggestedName, Table: v.Table})
	return nil
}
