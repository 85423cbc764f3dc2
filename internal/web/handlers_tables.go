package web

import (
	"net/http"
	"strconv"

	"github.com/JonMunkholm/dataplay/internal/core"
	"github.com/JonMunkholm/dataplay/internal/session"
	"github.com/JonMunkholm/dataplay/internal/table"
	"github.com/JonMunkholm/dataplay/internal/tableio"
)

// handleListTables returns the session's tables in load order.
func (s *Server) handleListTables(w http.ResponseWriter, r *http.Request) {
	tables := s.service.Tables(sessionFrom(r))
	if tables == nil {
		tables = []core.TableInfo{}
	}
	writeJSON(w, http.StatusOK, tables)
}

// handleRemoveTable drops a table from the workspace.
func (s *Server) handleRemoveTable(w http.ResponseWriter, r *http.Request) {
	if err := s.service.RemoveTable(r.Context(), sessionFrom(r), nameParam(r)); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleSelectTable makes a table current.
func (s *Server) handleSelectTable(w http.ResponseWriter, r *http.Request) {
	if err := s.service.SelectTable(r.Context(), sessionFrom(r), nameParam(r)); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.service.Tables(sessionFrom(r)))
}

// handleOverview returns shape, schema, classification and head rows.
// ?head=N overrides the configured head size.
func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	head := parseIntParam(r, "head", s.cfg.Preview.HeadRows)
	ov, err := s.service.Overview(r.Context(), sessionFrom(r), nameParam(r), head)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, OverviewResponse{
		Overview: ov,
		Head:     newTablePayload(ov.Head, head),
	})
}

type filterBody struct {
	Where   []core.Condition `json:"where"`
	Columns []string         `json:"columns"`
	Sort    []table.SortKey  `json:"sort"`
	SaveAs  string           `json:"save_as"`
}

// handleFilter filters a table, then projects and sorts the result.
func (s *Server) handleFilter(w http.ResponseWriter, r *http.Request) {
	var body filterBody
	if err := s.schemas.decode(r, "filter", &body); err != nil {
		s.fail(w, r, err)
		return
	}
	view, err := s.service.Filter(r.Context(), sessionFrom(r), nameParam(r), core.FilterRequest{
		Where:   body.Where,
		Columns: body.Columns,
		Sort:    body.Sort,
		SaveAs:  body.SaveAs,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ViewResponse{
		View: *view,
		Data: newTablePayload(view.Table, s.cfg.Preview.MaxRows),
	})
}

type aggregateBody struct {
	GroupBy []string `json:"group_by"`
	Values  []string `json:"values"`
	Funcs   []string `json:"funcs"`
	SaveAs  string   `json:"save_as"`
}

// groupSpec builds a GroupSpec from function names.
func groupSpec(keys, values, funcNames []string) (table.GroupSpec, error) {
	funcs := make([]table.AggFunc, 0, len(funcNames))
	for _, name := range funcNames {
		f, err := table.ParseAggFunc(name)
		if err != nil {
			return table.GroupSpec{}, err
		}
		funcs = append(funcs, f)
	}
	return table.NewGroupSpec(keys, values, funcs)
}

// handleAggregate groups a table.
func (s *Server) handleAggregate(w http.ResponseWriter, r *http.Request) {
	var body aggregateBody
	if err := s.schemas.decode(r, "aggregate", &body); err != nil {
		s.fail(w, r, err)
		return
	}
	spec, err := groupSpec(body.GroupBy, body.Values, body.Funcs)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	res, err := s.service.Aggregate(r.Context(), sessionFrom(r), nameParam(r), core.AggregateRequest{
		Spec:   spec,
		SaveAs: body.SaveAs,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, AggregateResponse{
		View:  res.View,
		Chart: res.Chart,
		Data:  newTablePayload(res.Table, s.cfg.Preview.MaxRows),
	})
}

type joinBody struct {
	Left    string   `json:"left"`
	Right   string   `json:"right"`
	How     string   `json:"how"`
	LeftOn  []string `json:"left_on"`
	RightOn []string `json:"right_on"`
	Save    bool     `json:"save"`
	SaveAs  string   `json:"save_as"`
}

// joinSpec builds a JoinSpec; an empty kind is an inner join.
func joinSpec(how string, leftOn, rightOn []string) (table.JoinSpec, error) {
	kind := table.InnerJoin
	if how != "" {
		var err error
		if kind, err = table.ParseJoinKind(how); err != nil {
			return table.JoinSpec{}, err
		}
	}
	return table.NewJoinSpec(kind, leftOn, rightOn)
}

// handleJoin joins two workspace tables.
func (s *Server) handleJoin(w http.ResponseWriter, r *http.Request) {
	var body joinBody
	if err := s.schemas.decode(r, "join", &body); err != nil {
		s.fail(w, r, err)
		return
	}
	spec, err := joinSpec(body.How, body.LeftOn, body.RightOn)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	res, err := s.service.Join(r.Context(), sessionFrom(r), core.JoinRequest{
		Left:   body.Left,
		Right:  body.Right,
		Spec:   spec,
		Save:   body.Save || body.SaveAs != "",
		SaveAs: body.SaveAs,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, JoinResponse{
		View:      res.View,
		LeftRows:  res.LeftRows,
		RightRows: res.RightRows,
		Data:      newTablePayload(res.Table, s.cfg.Preview.MaxRows),
	})
}

// handleResult returns the last unsaved result.
func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	res, ok := s.service.LastResult(sessionFrom(r))
	if !ok {
		s.respondError(w, r, session.ErrNoResult, http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, ViewResponse{
		View: core.View{Label: res.Label, SuggestedName: res.SuggestedName, Table: res.Table},
		Data: newTablePayload(res.Table, s.cfg.Preview.MaxRows),
	})
}

type saveBody struct {
	Name string `json:"name"`
}

// handleSaveResult registers the last result.
func (s *Server) handleSaveResult(w http.ResponseWriter, r *http.Request) {
	var body saveBody
	if err := s.schemas.decode(r, "save", &body); err != nil {
		s.fail(w, r, err)
		return
	}
	name, err := s.service.SaveResult(r.Context(), sessionFrom(r), body.Name)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"name": name})
}

// handleExportTable downloads a workspace table (?format=csv|parquet).
func (s *Server) handleExportTable(w http.ResponseWriter, r *http.Request) {
	s.export(w, r, nameParam(r))
}

// handleExportResult downloads the last result.
func (s *Server) handleExportResult(w http.ResponseWriter, r *http.Request) {
	s.export(w, r, "")
}

func (s *Server) export(w http.ResponseWriter, r *http.Request, name string) {
	format := tableio.FormatCSV
	if f := r.URL.Query().Get("format"); f != "" {
		var err error
		if format, err = tableio.ParseFormat(f); err != nil {
			s.fail(w, r, err)
			return
		}
	}
	exp, err := s.service.Export(r.Context(), sessionFrom(r), name, format)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", exp.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename=`+strconv.Quote(exp.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(exp.Data)))
	_, _ = w.Write(exp.Data)
}
