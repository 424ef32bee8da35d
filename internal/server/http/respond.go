package httpserver

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/akulinich/clipshare/internal/errs"
)

// maxJSONBody bounds JSON request bodies; file uploads have their own limit.
const maxJSONBody = 1 << 20

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// respondError maps service errors onto HTTP statuses. Path traversal gets
// a generic body so the response reveals nothing about the layout on disk;
// the violation itself is already logged by the file store.
func (s *Server) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errs.ErrPathTraversal):
		writeJSONError(w, http.StatusBadRequest, "bad request")
	case errors.Is(err, errs.ErrInvalidInput),
		errors.Is(err, errs.ErrUnsupportedType),
		errors.Is(err, errs.ErrFileTooLarge):
		writeJSONError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, errs.ErrUnauthorized):
		writeJSONError(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, errs.ErrAccessDenied):
		writeJSONError(w, http.StatusForbidden, "access denied")
	case errors.Is(err, errs.ErrNotFound):
		writeJSONError(w, http.StatusNotFound, "not found")
	case errors.Is(err, errs.ErrAlreadyExists):
		writeJSONError(w, http.StatusConflict, "already exists")
	case errors.Is(err, errs.ErrDecryption):
		writeJSONError(w, http.StatusInternalServerError, "content unavailable")
	default:
		s.log.Error("request failed", zap.Error(err))
		writeJSONError(w, http.StatusInternalServerError, "internal error")
	}
}

// decodeJSON reads a size-limited JSON body into dst.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	body := http.MaxBytesReader(w, r.Body, maxJSONBody)
	defer func() { _, _ = io.Copy(io.Discard, body) }()
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}
