package web

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/JonMunkholm/dataplay/internal/core"
	"github.com/JonMunkholm/dataplay/internal/pgimport"
	"github.com/JonMunkholm/dataplay/internal/tableio"
)

// multipartOverhead is allowed on top of the file size limit for the other
// form fields and part headers.
const multipartOverhead = 1 << 20

// readUpload parses a multipart upload: "file" plus optional "name" and
// "replace" fields. The caller must close the returned request's file.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (core.UploadRequest, func(), error) {
	maxSize := s.cfg.Upload.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+multipartOverhead)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return core.UploadRequest{}, nil, tableio.ErrFileTooLarge
		}
		return core.UploadRequest{}, nil, core.ErrNoFile
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return core.UploadRequest{}, nil, core.ErrNoFile
	}
	replace, _ := strconv.ParseBool(r.FormValue("replace"))
	return core.UploadRequest{
		Filename: header.Filename,
		Body:     file,
		Name:     r.FormValue("name"),
		Replace:  replace,
	}, func() { file.Close() }, nil
}

// handleUpload loads a CSV, TSV or Parquet file into the workspace.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
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
	writeJSON(w, http.StatusCreated, res)
}

// handleUploadQueueStatus returns the current state of the upload limiter.
// Used for monitoring and to check if the system can accept more uploads.
func (s *Server) handleUploadQueueStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.service.UploadLimiterStatus())
}

// handleListPostgresTables lists the tables available for import.
func (s *Server) handleListPostgresTables(w http.ResponseWriter, r *http.Request) {
	refs, err := s.service.ListPostgresTables(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if refs == nil {
		refs = []pgimport.TableRef{}
	}
	writeJSON(w, http.StatusOK, refs)
}

type importBody struct {
	Schema  string `json:"schema"`
	Table   string `json:"table"`
	Name    string `json:"name"`
	Replace bool   `json:"replace"`
}

// handleImportPostgres loads a database table into the workspace.
func (s *Server) handleImportPostgres(w http.ResponseWriter, r *http.Request) {
	var body importBody
	if err := s.schemas.decode(r, "import", &body); err != nil {
		s.fail(w, r, err)
		return
	}
	res, err := s.service.ImportPostgres(r.Context(), sessionFrom(r), core.ImportRequest{
		Schema:  body.Schema,
		Table:   body.Table,
		Name:    body.Name,
		Replace: body.Replace,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}
