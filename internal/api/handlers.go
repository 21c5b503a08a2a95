package api

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/matzehuels/taskgraph/pkg/errors"
	"github.com/matzehuels/taskgraph/pkg/flow"
	"github.com/matzehuels/taskgraph/pkg/graph"
	"github.com/matzehuels/taskgraph/pkg/pipeline"
	"github.com/matzehuels/taskgraph/pkg/task"
)

// =============================================================================
// Request and Response Types
// =============================================================================

// LayoutRequest is the body of POST /v1/layout and POST /v1/graph.
type LayoutRequest struct {
	Tasks  []task.Task `json:"tasks"`
	Hidden []string    `json:"hidden,omitempty"`
	Engine string      `json:"engine,omitempty"`
	Theme  *flow.Theme `json:"theme,omitempty"`
}

// LayoutResponse is the body of a successful POST /v1/layout.
type LayoutResponse struct {
	graph.Layout
	UnknownHidden []string `json:"unknown_hidden,omitempty"`
	Cached        bool     `json:"cached"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Code    errors.Code `json:"code"`
	Message string      `json:"message"`
	Detail  string      `json:"detail,omitempty"`
}

// =============================================================================
// Handlers
// =============================================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleEngines(w http.ResponseWriter, r *http.Request) {
	opts := s.defaults
	opts.SetDefaults()
	writeJSON(w, http.StatusOK, map[string]any{
		"engines": pipeline.Engines(),
		"default": opts.Engine,
	})
}

func (s *Server) handleLayout(w http.ResponseWriter, r *http.Request) {
	req, err := s.decode(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	ctx := r.Context()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	res, err := s.runner.Execute(ctx, req.Tasks, s.options(req))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, LayoutResponse{
		Layout:        res.Layout,
		UnknownHidden: res.UnknownHidden,
		Cached:        res.CacheHit,
	})
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	req, err := s.decode(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	opts := s.options(req)
	if err := opts.Validate(); err != nil {
		s.writeError(w, r, err)
		return
	}
	g, _, err := pipeline.BuildGraph(req.Tasks, opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, graph.FromFlow(g))
}

// =============================================================================
// Helpers
// =============================================================================

func (s *Server) decode(w http.ResponseWriter, r *http.Request) (*LayoutRequest, error) {
	body := http.MaxBytesReader(w, r.Body, s.maxBody)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()

	var req LayoutRequest
	if err := dec.Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "request body exceeds %d bytes", s.maxBody)
		}
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode request body")
	}
	return &req, nil
}

// options overlays a request on the server defaults.
func (s *Server) options(req *LayoutRequest) pipeline.Options {
	opts := s.defaults
	opts.Logger = s.logger
	if req.Engine != "" {
		opts.Engine = req.Engine
	}
	if req.Theme != nil {
		opts.Theme = *req.Theme
	}
	opts.Hidden = req.Hidden
	return opts
}

// StatusFor maps an error code to an HTTP status.
func StatusFor(code errors.Code) int {
	switch code {
	case errors.ErrCodeMalformedTaskTree,
		errors.ErrCodeInvalidInput,
		errors.ErrCodeInvalidFormat,
		errors.ErrCodeInvalidConfig,
		errors.ErrCodeInvalidEngine,
		errors.ErrCodeInvalidNodeID:
		return http.StatusBadRequest
	case errors.ErrCodeSizeOverflow:
		return http.StatusUnprocessableEntity
	case errors.ErrCodeLayoutSolver:
		return http.StatusBadGateway
	case errors.ErrCodeNotFound, errors.ErrCodeFileNotFound:
		return http.StatusNotFound
	case errors.ErrCodeUnsupported:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := errors.GetCode(err)
	if code == "" {
		code = errors.ErrCodeInternal
	}
	status := StatusFor(code)
	resp := ErrorResponse{Code: code, Message: errors.UserMessage(err)}
	if status < http.StatusInternalServerError {
		resp.Detail = err.Error()
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "id", RequestID(r.Context()), "code", code, "err", err)
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
