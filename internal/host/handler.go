// Package host exposes the adapter's record operations over JSON/HTTP,
// standing in for the plugin contract of a low-code host platform.
package host

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/openshift-hyperfleet/hyperfleet-bigquery-vtable/internal/adapter"
	"github.com/openshift-hyperfleet/hyperfleet-bigquery-vtable/pkg/errors"
	"github.com/openshift-hyperfleet/hyperfleet-bigquery-vtable/pkg/logger"
)

const (
	contentTypeJSON    = "application/json"
	contentTypeProblem = "application/problem+json"
	maxBodyBytes       = 1 << 20
)

// Service is the set of record operations served by the handler
type Service interface {
	Create(ctx context.Context, rec *adapter.Record) (*adapter.Record, error)
	Retrieve(ctx context.Context, id string) (*adapter.Record, error)
	RetrieveMultiple(ctx context.Context) ([]*adapter.Record, error)
	Update(ctx context.Context, rec *adapter.Record) error
	Delete(ctx context.Context, id string) error
	LogicalName() string
}

// RecordRequest is the body of create and update calls
type RecordRequest struct {
	Attributes map[string]any `json:"attributes"`
}

// RecordList is the body of a list response
type RecordList struct {
	Records []*adapter.Record `json:"records"`
	Count   int               `json:"count"`
}

// Handler routes /records requests to a Service
type Handler struct {
	svc    Service
	logger logger.Logger
	mux    *http.ServeMux
}

// NewHandler creates a handler; a nil logger is replaced by a no-op one
func NewHandler(svc Service, log logger.Logger) *Handler {
	if log == nil {
		log = logger.Nop()
	}

	h := &Handler{
		svc:    svc,
		logger: log,
		mux:    http.NewServeMux(),
	}

	h.mux.HandleFunc("POST /records", h.handleCreate)
	h.mux.HandleFunc("GET /records", h.handleList)
	h.mux.HandleFunc("GET /records/{id}", h.handleRetrieve)
	h.mux.HandleFunc("PATCH /records/{id}", h.handleUpdate)
	h.mux.HandleFunc("DELETE /records/{id}", h.handleDelete)

	return h
}

// ServeHTTP implements http.Handler
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	req, err := decodeRecordRequest(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	created, err := h.svc.Create(r.Context(), &adapter.Record{
		LogicalName: h.svc.LogicalName(),
		Attributes:  req.Attributes,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	w.Header().Set("Location", "/records/"+created.ID)
	h.writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	recs, err := h.svc.RetrieveMultiple(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if recs == nil {
		recs = []*adapter.Record{}
	}
	h.writeJSON(w, http.StatusOK, RecordList{Records: recs, Count: len(recs)})
}

func (h *Handler) handleRetrieve(w http.ResponseWriter, r *http.Request) {
	rec, err := h.svc.Retrieve(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, rec)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	req, err := decodeRecordRequest(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	err = h.svc.Update(r.Context(), &adapter.Record{
		LogicalName: h.svc.LogicalName(),
		ID:          r.PathValue("id"),
		Attributes:  req.Attributes,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), r.PathValue("id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func decodeRecordRequest(r *http.Request) (*RecordRequest, error) {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	dec.UseNumber()

	var req RecordRequest
	if err := dec.Decode(&req); err != nil {
		return nil, errors.Wrap(errors.ErrInvalidFormat, err, "invalid request body")
	}
	return &req, nil
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Warn("Failed to write response", logger.Error(err))
	}
}

// writeError renders err as a redacted problem document
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *errors.Error
	if !errors.As(err, &appErr) {
		appErr = errors.Wrap(errors.ErrInternal, err, "internal error")
	}

	problem := appErr.Redact().WithInstance(r.URL.Path)
	if problem.Status >= http.StatusInternalServerError {
		h.logger.Error("Request failed",
			logger.String("method", r.Method),
			logger.String("path", r.URL.Path),
			logger.Error(err),
		)
	}

	w.Header().Set("Content-Type", contentTypeProblem)
	w.WriteHeader(problem.Status)
	if encErr := json.NewEncoder(w).Encode(problem); encErr != nil {
		h.logger.Warn("Failed to write problem response", logger.Error(encErr))
	}
}
