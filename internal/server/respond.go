package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/deidaraiorek/xmlsql/internal/engine"
	"github.com/deidaraiorek/xmlsql/internal/fetcher"
	"github.com/deidaraiorek/xmlsql/internal/ingest"
	"github.com/deidaraiorek/xmlsql/internal/selector"
	"github.com/deidaraiorek/xmlsql/internal/storage"
)

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Offset  *int64 `json:"offset,omitempty"`
	Token   string `json:"token,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := errorResponse(err)
	if status >= http.StatusInternalServerError {
		s.log.HTTPLogger(r.Method).Error().Err(err).Str("path", r.URL.Path).Msg("Request failed")
	}
	writeJSON(w, status, body)
}

func badRequest(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "bad_request", Message: message})
}

// errorResponse maps an engine error onto a status code and body.
func errorResponse(err error) (int, ErrorResponse) {
	body := ErrorResponse{Message: err.Error()}

	var (
		parseErr  *ingest.ParseError
		syntaxErr *selector.SyntaxError
		execErr   *storage.ExecutionError
		importErr *storage.ImportError
		maxErr    *http.MaxBytesError
	)

	switch {
	case errors.As(err, &parseErr):
		body.Error = "parse_error"
		body.Offset = &parseErr.Offset
		return http.StatusUnprocessableEntity, body
	case errors.As(err, &syntaxErr):
		body.Error = "syntax_error"
		offset := int64(syntaxErr.Offset)
		body.Offset = &offset
		body.Token = syntaxErr.Token
		return http.StatusBadRequest, body
	case errors.As(err, &execErr):
		body.Error = "execution_error"
		return http.StatusBadRequest, body
	case errors.As(err, &importErr):
		body.Error = "import_error"
		return http.StatusBadRequest, body
	case errors.Is(err, storage.ErrDocumentNotFound):
		body.Error = "not_found"
		return http.StatusNotFound, body
	case errors.As(err, &maxErr), errors.Is(err, fetcher.ErrTooLarge):
		body.Error = "too_large"
		return http.StatusRequestEntityTooLarge, body
	case errors.Is(err, fetcher.ErrUpstreamStatus):
		body.Error = "upstream_error"
		return http.StatusBadGateway, body
	case errors.Is(err, fetcher.ErrDisallowed):
		body.Error = "fetch_disallowed"
		return http.StatusForbidden, body
	case errors.Is(err, fetcher.ErrUnsupportedURL):
		body.Error = "bad_request"
		return http.StatusBadRequest, body
	case errors.Is(err, engine.ErrNoFetcher):
		body.Error = "not_configured"
		return http.StatusNotImplemented, body
	}

	body.Error = "internal_error"
	return http.StatusInternalServerError, body
}
