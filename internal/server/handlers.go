package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/deidaraiorek/xmlsql/internal/ingest"
)

const snapshotContentType = "application/vnd.sqlite3"

type loadURLRequest struct {
	URL  string `json:"url"`
	Name string `json:"name"`
}

type selectorRequest struct {
	Selector string `json:"selector"`
}

type sqlRequest struct {
	SQL string `json:"sql"`
}

type textRequest struct {
	Text string `json:"text"`
}

type compileResponse struct {
	SQL string `json:"sql"`
}

type healthResponse struct {
	Status     string `json:"status"`
	Service    string `json:"service"`
	Documents  int64  `json:"documents"`
	Nodes      int64  `json:"nodes"`
	Attributes int64  `json:"attributes"`
}

func (s *Server) readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body := r.Body
	if limit := s.cfg.Server.MaxBodyBytes; limit > 0 {
		body = http.MaxBytesReader(w, r.Body, limit)
	}
	return io.ReadAll(body)
}

func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	data, err := s.readBody(w, r)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	st, err := s.backend.Stats()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{
		Status:     "healthy",
		Service:    "xmlsql",
		Documents:  st.Documents,
		Nodes:      st.Nodes,
		Attributes: st.Attributes,
	})
}

func (s *Server) handleLoadMarkup(load func(text, name string) (*ingest.Result, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := s.readBody(w, r)
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		name := strings.TrimSpace(r.URL.Query().Get("name"))
		if name == "" {
			name = "untitled"
		}

		res, err := load(string(data), name)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, res)
	}
}

func (s *Server) handleLoadURL(w http.ResponseWriter, r *http.Request) {
	var req loadURLRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeBodyError(w, r, err)
		return
	}
	if req.URL == "" {
		badRequest(w, "url is required")
		return
	}

	res, err := s.backend.LoadURL(r.Context(), req.URL, req.Name)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := s.backend.ListDocuments()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, docs)
}

func (s *Server) handleRemoveDocument(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		badRequest(w, "document id must be an integer")
		return
	}
	if err := s.backend.RemoveDocument(id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if err := s.backend.Reset(); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleQuerySelector(w http.ResponseWriter, r *http.Request) {
	var req selectorRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeBodyError(w, r, err)
		return
	}
	result, err := s.backend.QuerySelector(req.Selector)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleCompile(w http.ResponseWriter, r *http.Request) {
	var req selectorRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeBodyError(w, r, err)
		return
	}
	sql, err := s.backend.CompileSelector(req.Selector)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, compileResponse{SQL: sql})
}

func (s *Server) handleExecuteQuery(w http.ResponseWriter, r *http.Request) {
	var req sqlRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeBodyError(w, r, err)
		return
	}
	result, err := s.backend.ExecuteQuery(req.SQL)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleSearchText(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeBodyError(w, r, err)
		return
	}
	result, err := s.backend.SearchText(req.Text)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	data, err := s.backend.ExportStore()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", snapshotContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="xmlsql.db"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	data, err := s.readBody(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.backend.ImportStore(data); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// writeBodyError reports a request body that could not be read or decoded.
func (s *Server) writeBodyError(w http.ResponseWriter, r *http.Request, err error) {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		s.writeError(w, r, err)
		return
	}
	badRequest(w, err.Error())
}
