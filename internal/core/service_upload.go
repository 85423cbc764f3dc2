package core

import (
	"context"
	"fmt"
	"time"

	"github.com/JonMunkholm/dataplay/internal/metrics"
	"github.com/JonMunkholm/dataplay/internal/pgimport"
	"github.com/JonMunkholm/dataplay/internal/session"
	"github.com/JonMunkholm/dataplay/internal/table"
	"github.com/JonMunkholm/dataplay/internal/tableio"
)

// LoadUpload decodes an uploaded file and registers it under the file stem
// (or req.Name). The new table becomes current. Decoding waits for a limiter
// slot.
func (s *Service) LoadUpload(ctx context.Context, sess *session.Session, req UploadRequest) (*LoadResult, error) {
	start := time.Now()
	if req.Body == nil {
		s.finish(ctx, "upload", start, 0, 0, ErrNoFile)
		return nil, ErrNoFile
	}

	var decoded *tableio.Result
	err := s.limiter.Do(ctx, func() error {
		var err error
		decoded, err = tableio.Decode(req.Body, req.Filename, tableio.Options{
			MaxBytes:       s.cfg.Upload.MaxFileSize,
			MaxRows:        s.cfg.Upload.MaxRows,
			LenientNumbers: s.cfg.Upload.LenientNumbers,
		})
		return err
	})
	if err != nil {
		err = fmt.Errorf("load %s: %w", req.Filename, err)
		s.finish(ctx, "upload", start, 0, 0, err, "file", req.Filename)
		return nil, err
	}
	metrics.UploadBytes.Add(float64(decoded.Bytes))

	res := &LoadResult{
		Rows:    decoded.Table.NumRows(),
		Columns: decoded.Table.NumColumns(),
		Source:  decoded.Format.String(),
		Bytes:   decoded.Bytes,
	}
	res.Name, err = s.add(sess, req.Name, tableio.TableName(req.Filename), decoded.Table, req.Replace)
	if err != nil {
		s.finish(ctx, "upload", start, res.Rows, 0, err, "file", req.Filename)
		return nil, err
	}
	s.finish(ctx, "upload", start, res.Rows, res.Rows, nil,
		"file", req.Filename, "table", res.Name, "format", res.Source, "bytes", res.Bytes)
	return res, nil
}

func (s *Service) add(sess *session.Session, explicit, derived string, t *table.Table, replace bool) (string, error) {
	var name string
	err := sess.Do(func(ws *session.Workspace) error {
		var err error
		name, err = register(ws, explicit, derived, t, replace)
		return err
	})
	return name, err
}

// ListPostgresTables lists the relations the configured database exposes.
func (s *Service) ListPostgresTables(ctx context.Context) ([]pgimport.TableRef, error) {
	if s.source == nil {
		return nil, ErrImportDisabled
	}
	return s.source.ListTables(ctx)
}

// ImportPostgres reads schema.table (up to the import row limit) and
// registers it like an upload. The default name is the relation name.
func (s *Service) ImportPostgres(ctx context.Context, sess *session.Session, req ImportRequest) (*LoadResult, error) {
	start := time.Now()
	if s.source == nil {
		s.finish(ctx, "import", start, 0, 0, ErrImportDisabled)
		return nil, ErrImportDisabled
	}
	schema := req.Schema
	if schema == "" {
		schema = "public"
	}
	ref := pgimport.TableRef{Schema: schema, Name: req.Table}

	var imp *pgimport.Import
	err := s.limiter.Do(ctx, func() error {
		var err error
		imp, err = s.source.ReadTable(ctx, ref)
		return err
	})
	if err != nil {
		s.finish(ctx, "import", start, 0, 0, err, "source", ref.String())
		return nil, err
	}

	res := &LoadResult{
		Rows:      imp.Table.NumRows(),
		Columns:   imp.Table.NumColumns(),
		Source:    "postgres",
		Truncated: imp.Truncated,
	}
	res.Name, err = s.add(sess, req.Name, req.Table, imp.Table, req.Replace)
	if err != nil {
		s.finish(ctx, "import", start, res.Rows, 0, err, "source", ref.String())
		return nil, err
	}
	s.finish(ctx, "import", start, res.Rows, res.Rows, nil,
		"source", ref.String(), "table", res.Name, "truncated", res.Truncated)
	return res, nil
}
