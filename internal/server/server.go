// Package server exposes the engine's operation surface over HTTP:
// status, decision history, statistics, on-demand analysis and manual
// overrides.
package server

import (
	"context"
	"net/http"

	jsoniter "github.com/json-iterator/go"
	"github.com/maxbolgarin/autover/internal/engine"
	"github.com/maxbolgarin/autover/internal/model"
	"github.com/maxbolgarin/autover/internal/model/interfaces"
	"github.com/maxbolgarin/erro"
	"github.com/maxbolgarin/logze/v2"
	"github.com/maxbolgarin/servex/v2"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Server serves the ops API.
type Server struct {
	engine    *engine.Engine
	reporters []interfaces.StatusReporter
	config    Config
	log       logze.Logger
	server    *servex.Server
}

// New creates the ops server. Reporters are polled by /api/v1/status.
func New(cfg Config, eng *engine.Engine, reporters ...interfaces.StatusReporter) (*Server, error) {
	if err := cfg.PrepareAndValidate(); err != nil {
		return nil, erro.Wrap(err, "validate config")
	}

	log := logze.With("module", "server")

	srv, err := servex.NewServer(
		servex.WithReadTimeout(cfg.Timeout),
		servex.WithIdleTimeout(cfg.Timeout*2),
		servex.WithLogger(log),
		servex.WithHealthEndpoint(),
		servex.WithDefaultMetrics(),
		servex.WithCertificate(cfg.Certificate),
	)
	if err != nil {
		return nil, erro.Wrap(err, "failed to create server")
	}

	s := &Server{
		engine:    eng,
		reporters: reporters,
		config:    cfg,
		log:       log,
		server:    srv,
	}

	srv.HandleFunc("/api/v1/status", s.handleStatus)
	srv.HandleFunc("/api/v1/history", s.handleHistory)
	srv.HandleFunc("/api/v1/statistics", s.handleStatistics)
	srv.HandleFunc("/api/v1/analyze", s.handleAnalyze)
	srv.HandleFunc("/api/v1/override", s.handleOverride)

	return s, nil
}

// Start starts the ops server.
func (s *Server) Start(ctx context.Context) error {
	if s.config.EnableHTTPS {
		return s.server.StartHTTPS(s.config.Address)
	}
	return s.server.StartHTTP(s.config.Address)
}

// Stop stops the ops server.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := servex.NewContext(w, r)

	statuses := make([]model.ComponentStatus, 0, len(s.reporters))
	for _, reporter := range s.reporters {
		statuses = append(statuses, reporter.Status())
	}
	ctx.Response(http.StatusOK, statuses)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	ctx := servex.NewContext(w, r)
	ctx.Response(http.StatusOK, s.engine.History())
}

func (s *Server) handleStatistics(w http.ResponseWriter, r *http.Request) {
	ctx := servex.NewContext(w, r)
	ctx.Response(http.StatusOK, s.engine.Statistics())
}

type analyzeRequest struct {
	CommitHash string `json:"commit_hash"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	ctx := servex.NewContext(w, r)
	if r.Method != http.MethodPost {
		ctx.Response(http.StatusMethodNotAllowed)
		return
	}

	body, err := ctx.Read()
	if err != nil {
		ctx.BadRequest(err, "failed to read request body")
		return
	}
	var req analyzeRequest
	if err := json.Unmarshal(body, &req); err != nil || req.CommitHash == "" {
		ctx.BadRequest(err, "commit_hash is required")
		return
	}

	entry, err := s.engine.AnalyzeCommit(r.Context(), req.CommitHash)
	if err != nil {
		s.respondError(ctx, err, "failed to analyze commit")
		return
	}
	ctx.Response(http.StatusOK, entry)
}

type overrideRequest struct {
	CommitHash string `json:"commit_hash"`
	Version    string `json:"version"`
}

func (s *Server) handleOverride(w http.ResponseWriter, r *http.Request) {
	ctx := servex.NewContext(w, r)
	if r.Method != http.MethodPost {
		ctx.Response(http.StatusMethodNotAllowed)
		return
	}

	body, err := ctx.Read()
	if err != nil {
		ctx.BadRequest(err, "failed to read request body")
		return
	}
	var req overrideRequest
	if err := json.Unmarshal(body, &req); err != nil || req.CommitHash == "" || req.Version == "" {
		ctx.BadRequest(err, "commit_hash and version are required")
		return
	}

	entry, err := s.engine.ManualOverride(r.Context(), req.CommitHash, req.Version)
	if err != nil {
		s.respondError(ctx, err, "failed to override version")
		return
	}
	ctx.Response(http.StatusOK, entry)
}

type errorResponse struct {
	Error string           `json:"error"`
	Class model.ErrorClass `json:"class"`
}

// respondError maps the error class to an HTTP status so callers can
// tell a settled conflict from a broken backend.
func (s *Server) respondError(ctx *servex.Context, err error, message string) {
	class := model.ClassifyError(err)
	s.log.Error(message, "class", class, "error", err)

	body := errorResponse{Error: err.Error(), Class: class}
	switch class {
	case model.ErrorConfiguration:
		ctx.Response(http.StatusServiceUnavailable, body)
	case model.ErrorInput:
		ctx.Response(http.StatusBadRequest, body)
	case model.ErrorConflict:
		ctx.Response(http.StatusConflict, body)
	default:
		ctx.Response(http.StatusInternalServerError, body)
	}
}
