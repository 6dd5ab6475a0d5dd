package api

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gyaneshwarpardhi/catalogue-explorer/internal/bookmark"
	"github.com/gyaneshwarpardhi/catalogue-explorer/internal/condition"
	"github.com/gyaneshwarpardhi/catalogue-explorer/internal/config"
	"github.com/gyaneshwarpardhi/catalogue-explorer/internal/metrics"
	"github.com/gyaneshwarpardhi/catalogue-explorer/internal/querybuilder"
	"github.com/gyaneshwarpardhi/catalogue-explorer/internal/submission"
)

// Deps are the services the HTTP layer exposes.
type Deps struct {
	Loader      *config.Loader
	Builder     *querybuilder.Builder
	Queries     *querybuilder.QueryStore
	Bookmarks   *bookmark.Service
	Submissions *submission.Service
}

// Handler holds all HTTP handler dependencies.
type Handler struct {
	Deps
	mux *http.ServeMux
}

// New creates an HTTP handler and registers all routes.
func New(d Deps) http.Handler {
	h := &Handler{Deps: d, mux: http.NewServeMux()}

	h.mux.HandleFunc("POST /v1/querybuilder/config", h.buildConfig)
	h.mux.HandleFunc("POST /v1/querybuilder/validate", h.validateQuery)
	h.mux.HandleFunc("POST /v1/querybuilder/operators", h.operators)
	h.mux.HandleFunc("POST /v1/querybuilder/edit", h.editQuery)
	h.mux.HandleFunc("POST /v1/querybuilder/preview", h.previewQuery)
	h.mux.HandleFunc("GET /v1/specifications/{id}/query", h.getQuery)
	h.mux.HandleFunc("PUT /v1/specifications/{id}/query", h.putQuery)
	h.mux.HandleFunc("POST /v1/specifications/{id}/submissions", h.submit)
	h.mux.HandleFunc("GET /v1/submissions/{jobId}", h.submissionStatus)
	h.mux.HandleFunc("GET /v1/users/{userId}/bookmarks", h.listBookmarks)
	h.mux.HandleFunc("POST /v1/users/{userId}/bookmarks", h.addBookmark)
	h.mux.HandleFunc("DELETE /v1/users/{userId}/bookmarks/{bookmarkId}", h.removeBookmark)
	h.mux.HandleFunc("POST /v1/config/reload", h.reloadConfig)
	h.mux.HandleFunc("GET /healthz", h.healthz)
	h.mux.HandleFunc("GET /readyz", h.readyz)
	h.mux.Handle("GET /metrics", promhttp.Handler())

	return loggingMiddleware(h.mux)
}

type queryResponse struct {
	Query   *querybuilder.RuleSet `json:"query"`
	Summary string                `json:"summary"`
}

// GET /v1/specifications/{id}/query: Stored query of a specification.
func (h *Handler) getQuery(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	rs, err := h.Queries.Load(r.Context(), id)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	if rs == nil {
		writeError(w, http.StatusNotFound, "no query stored for specification "+id)
		return
	}
	summary, _ := condition.Summary(rs)
	writeJSON(w, http.StatusOK, queryResponse{Query: rs, Summary: summary})
}

// PUT /v1/specifications/{id}/query: Validate and store a query.
func (h *Handler) putQuery(w http.ResponseWriter, r *http.Request) {
	var rs querybuilder.RuleSet
	if !decodeJSON(w, r, &rs) {
		return
	}
	summary, err := condition.Summary(&rs)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.Queries.Save(r.Context(), r.PathValue("id"), &rs); err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, queryResponse{Query: &rs, Summary: summary})
}

type submitRequest struct {
	ProjectID string `json:"projectId"`
}

// POST /v1/specifications/{id}/submissions: Queue a submission.
func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}
	job, err := h.Submissions.Submit(r.PathValue("id"), req.ProjectID)
	if err != nil {
		if errors.Is(err, submission.ErrQueueFull) {
			writeError(w, http.StatusTooManyRequests, err.Error())
			return
		}
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"jobId":  job.ID,
		"status": job.Status,
	})
}

// GET /v1/submissions/{jobId}: Progress of a submission.
func (h *Handler) submissionStatus(w http.ResponseWriter, r *http.Request) {
	job, ok := h.Submissions.Job(r.PathValue("jobId"))
	if !ok {
		writeError(w, http.StatusNotFound, "unknown submission job")
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// GET /v1/users/{userId}/bookmarks
func (h *Handler) listBookmarks(w http.ResponseWriter, r *http.Request) {
	list, err := h.Bookmarks.List(r.Context(), r.PathValue("userId"))
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// POST /v1/users/{userId}/bookmarks: Idempotent add.
func (h *Handler) addBookmark(w http.ResponseWriter, r *http.Request) {
	var b bookmark.Bookmark
	if !decodeJSON(w, r, &b) {
		return
	}
	list, err := h.Bookmarks.Add(r.Context(), r.PathValue("userId"), b)
	if err != nil {
		if errors.Is(err, bookmark.ErrInvalid) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// DELETE /v1/users/{userId}/bookmarks/{bookmarkId}: Idempotent remove by id or path.
func (h *Handler) removeBookmark(w http.ResponseWriter, r *http.Request) {
	list, err := h.Bookmarks.RemoveKey(r.Context(), r.PathValue("userId"), r.PathValue("bookmarkId"))
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// POST /v1/config/reload: Re-read the config file.
func (h *Handler) reloadConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.Loader.Reload()
	if err != nil {
		if errors.Is(err, config.ErrInvalid) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"reloaded": true,
		"version":  cfg.Version,
	})
}

// GET /healthz: Always 200 (liveness probe).
func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GET /readyz: 503 if the submission queue is >80% full.
func (h *Handler) readyz(w http.ResponseWriter, r *http.Request) {
	util := h.Submissions.QueueUtilization()
	metrics.QueueUtilization.Set(util)
	if util > 0.8 {
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":            "overloaded",
			"queue_utilization": util,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":            "ready",
		"queue_utilization": util,
	})
}
