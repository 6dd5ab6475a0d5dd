package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gyaneshwarpardhi/catalogue-explorer/internal/catalogue"
	"github.com/gyaneshwarpardhi/catalogue-explorer/internal/querybuilder"
	"github.com/gyaneshwarpardhi/catalogue-explorer/internal/querybuilder/editor"
)

const maxBodyBytes = 4 << 20

// writeJSON encodes v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// errorResponse is the standard error envelope.
type errorResponse struct {
	Error    string   `json:"error"`
	Problems []string `json:"problems,omitempty"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeFailure maps a domain or upstream error onto a status code.
func writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	var cfgErr *querybuilder.ConfigurationError
	var valErr *editor.ValidationError
	var httpErr *catalogue.HTTPError
	switch {
	case errors.As(err, &cfgErr):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: "query builder configuration is invalid", Problems: cfgErr.Problems})
	case errors.As(err, &valErr):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: "query is invalid", Problems: valErr.Problems})
	case errors.Is(err, editor.ErrInvalidConfig):
		writeError(w, http.StatusBadRequest, err.Error())
	case catalogue.IsNotFound(err):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &httpErr):
		slog.Warn("upstream request failed", "path", r.URL.Path, "err", err)
		writeError(w, http.StatusBadGateway, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, err.Error())
	default:
		slog.Error("request failed", "path", r.URL.Path, "err", err)
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// decodeJSON reads a bounded JSON body into v, answering 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %s", err))
		return false
	}
	return true
}
