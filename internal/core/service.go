package core

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/JonMunkholm/dataplay/internal/config"
	"github.com/JonMunkholm/dataplay/internal/logging"
	"github.com/JonMunkholm/dataplay/internal/metrics"
	"github.com/JonMunkholm/dataplay/internal/pgimport"
	"github.com/JonMunkholm/dataplay/internal/session"
	"github.com/JonMunkholm/dataplay/internal/table"
	"github.com/JonMunkholm/dataplay/internal/tableio"
)

var (
	// ErrImportDisabled is returned by import operations when no database
	// is configured.
	ErrImportDisabled = errors.New("import disabled: no database configured")

	ErrNoFile = errors.New("no file provided")
)

// Source is an external database tables can be imported from.
type Source interface {
	ListTables(ctx context.Context) ([]pgimport.TableRef, error)
	ReadTable(ctx context.Context, ref pgimport.TableRef) (*pgimport.Import, error)
}

// Service runs operations against session workspaces.
type Service struct {
	cfg     *config.Config
	limiter *Limiter
	source  Source
}

// NewService creates a service. source may be nil, which disables imports.
func NewService(cfg *config.Config, source Source) *Service {
	return &Service{
		cfg:     cfg,
		limiter: NewLimiter(cfg.Upload.MaxConcurrent, cfg.Upload.MaxWaitTime),
		source:  source,
	}
}

// Config returns the service configuration.
func (s *Service) Config() *config.Config { return s.cfg }

// ImportEnabled reports whether a database source is configured.
func (s *Service) ImportEnabled() bool { return s.source != nil }

// UploadLimiterStatus returns the current limiter state.
func (s *Service) UploadLimiterStatus() LimiterStatus { return s.limiter.Status() }

// WaitForUploads blocks until in-flight uploads and imports finish.
func (s *Service) WaitForUploads(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}

// logger returns the request logger with client details.
func (s *Service) logger(ctx context.Context, args ...any) *slog.Logger {
	log := logging.WithFields(ctx, args...)
	if c := ClientFromContext(ctx); c.IP != "" {
		log = log.With("client_ip", c.IP)
	}
	return log
}

// finish records one operation in metrics and the log.
func (s *Service) finish(ctx context.Context, op string, start time.Time, rowsIn, rowsOut int, err error, attrs ...any) {
	metrics.ObserveOperation(op, start, rowsIn, rowsOut, err)

	log := s.logger(ctx,
		"operation", op,
		"rows_in", rowsIn,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	if err != nil {
		log.Warn("operation failed", append(attrs, "error", err)...)
		return
	}
	log.Info("operation completed", append(attrs, "rows_out", rowsOut)...)
}

// resolve returns the named table, or the current table when name is empty.
func resolve(ws *session.Workspace, name string) (string, *table.Table, error) {
	if name == "" {
		cur, t, ok := ws.Current()
		if !ok {
			return "", nil, fmt.Errorf("%w: no table loaded", session.ErrTableNotFound)
		}
		return cur, t, nil
	}
	t, err := ws.Get(name)
	if err != nil {
		return "", nil, err
	}
	return name, t, nil
}

// register adds t to the workspace and makes it current. An explicit name
// must be free unless replace is set; a derived name is made unique.
func register(ws *session.Workspace, explicit, derived string, t *table.Table, replace bool) (string, error) {
	name := explicit
	if name == "" {
		name = derived
		if !replace {
			name = ws.UniqueName(derived)
		}
	}
	name, err := session.ValidateName(name)
	if err != nil {
		return "", err
	}
	if replace {
		err = ws.Put(name, t)
	} else {
		err = ws.Add(name, t)
	}
	if err != nil {
		return "", err
	}
	return name, ws.Select(name)
}

// Tables lists the workspace registry in load order.
func (s *Service) Tables(sess *session.Session) []TableInfo {
	var infos []TableInfo
	_ = sess.Do(func(ws *session.Workspace) error {
		current, _, _ := ws.Current()
		for _, name := range ws.Names() {
			t, err := ws.Get(name)
			if err != nil {
				continue
			}
			infos = append(infos, TableInfo{
				Name:    name,
				Rows:    t.NumRows(),
				Columns: t.NumColumns(),
				Current: name == current,
			})
		}
		return nil
	})
	return infos
}

// SelectTable makes name the current table.
func (s *Service) SelectTable(ctx context.Context, sess *session.Session, name string) error {
	return sess.Do(func(ws *session.Workspace) error {
		return ws.Select(name)
	})
}

// RemoveTable drops a table from the registry.
func (s *Service) RemoveTable(ctx context.Context, sess *session.Session, name string) error {
	err := sess.Do(func(ws *session.Workspace) error {
		return ws.Remove(name)
	})
	if err == nil {
		s.logger(ctx).Info("table removed", "table", name)
	}
	return err
}

// Overview describes a table: shape, per-column type and null count,
// column classification and the first head rows. head <= 0 uses the
// configured default.
func (s *Service) Overview(ctx context.Context, sess *session.Session, name string, head int) (*Overview, error) {
	if head <= 0 {
		head = s.cfg.Preview.HeadRows
	}
	var ov *Overview
	err := sess.Do(func(ws *session.Workspace) error {
		name, t, err := resolve(ws, name)
		if err != nil {
			return err
		}
		schema := make([]ColumnSummary, 0, t.NumColumns())
		for _, col := range t.Columns() {
			schema = append(schema, ColumnSummary{
				Name:  col.Name(),
				Type:  col.Type(),
				Nulls: col.NullCount(),
			})
		}
		ov = &Overview{
			Name:    name,
			Rows:    t.NumRows(),
			Columns: t.NumColumns(),
			Schema:  schema,
			Classes: table.Classify(t),
			Head:    table.Head(t, head),
		}
		return nil
	})
	return ov, err
}

// SaveResult registers the last result. An empty name uses the result's
// suggested name.
func (s *Service) SaveResult(ctx context.Context, sess *session.Session, name string) (string, error) {
	var saved string
	err := sess.Do(func(ws *session.Workspace) error {
		var err error
		saved, err = ws.SaveResult(name)
		return err
	})
	if err != nil {
		return "", err
	}
	s.logger(ctx).Info("result saved", "table", saved)
	return saved, nil
}

// LastResult returns the most recent unsaved result, if any.
func (s *Service) LastResult(sess *session.Session) (session.Result, bool) {
	var (
		res session.Result
		ok  bool
	)
	_ = sess.Do(func(ws *session.Workspace) error {
		res, ok = ws.Result()
		return nil
	})
	return res, ok
}

// Export encodes a registry table, or the last result when name is empty.
func (s *Service) Export(ctx context.Context, sess *session.Session, name string, f tableio.Format) (*Export, error) {
	start := time.Now()
	var (
		t    *table.Table
		base string
	)
	err := sess.Do(func(ws *session.Workspace) error {
		if name == "" {
			res, ok := ws.Result()
			if !ok {
				return session.ErrNoResult
			}
			t, base = res.Table, res.SuggestedName
			return nil
		}
		var err error
		t, err = ws.Get(name)
		base = name
		return err
	})
	if err != nil {
		s.finish(ctx, "export", start, 0, 0, err, "table", name)
		return nil, err
	}

	var buf bytes.Buffer
	if err := tableio.Encode(&buf, t, f); err != nil {
		s.finish(ctx, "export", start, t.NumRows(), 0, err, "table", base)
		return nil, fmt.Errorf("export %s: %w", base, err)
	}
	s.finish(ctx, "export", start, t.NumRows(), t.NumRows(), nil, "table", base, "format", f.String(), "bytes", buf.Len())
	return &Export{
		Filename:    base + f.Extension(),
		ContentType: f.ContentType(),
		Data:        buf.Bytes(),
	}, nil
}
