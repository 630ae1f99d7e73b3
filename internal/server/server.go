// Package server exposes the dialog engine over HTTP: synchronous and
// streaming reply endpoints, BARS aggregation and the operational
// surface (health, roles, Prometheus metrics).
package server

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/valikhov/intervue/internal/dialog"
	"github.com/valikhov/intervue/internal/scenario"
	"github.com/valikhov/intervue/internal/scoring"
	"go.uber.org/zap"
)

// Server wires the dialog orchestrator to its HTTP surface.
type Server struct {
	engine  *dialog.Orchestrator
	logger  *zap.Logger
	metrics *httpMetrics
}

// New creates the HTTP layer over an assembled orchestrator.
func New(engine *dialog.Orchestrator, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		engine:  engine,
		logger:  log,
		metrics: newHTTPMetrics(),
	}
}

// Router builds the chi mux with the full route table.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(s.metrics.instrument)
	r.Use(chimw.Recoverer)

	r.Post("/reply", s.handleReply)
	r.Post("/reply/stream", s.handleReplyStream)
	r.Post("/bars/aggregate", s.handleAggregate)
	r.Get("/health", s.handleHealth)
	r.Get("/roles", s.handleRoles)
	r.Handle("/metrics", s.metrics.handler())

	return r
}

func (s *Server) handleReply(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeReplyRequest(w, r)
	if !ok {
		return
	}

	outcome := s.engine.Reply(r.Context(), req)
	s.writeJSON(w, http.StatusOK, outcome)
}

func (s *Server) handleReplyStream(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeReplyRequest(w, r)
	if !ok {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	s.engine.Stream(r.Context(), req, func(frame dialog.Frame) error {
		data, err := json.Marshal(frame)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	})
}

type aggregateRequest struct {
	Answers      []scoring.QAnswer  `json:"answers"`
	BlockWeights map[string]float64 `json:"block_weights,omitempty"`
	RoleProfile  string             `json:"role_profile,omitempty"`
}

type aggregateResponse struct {
	scoring.Analysis
	OverallPercent float64 `json:"overall_percent"`
}

func (s *Server) handleAggregate(w http.ResponseWriter, r *http.Request) {
	var req aggregateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := validateAggregate(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	weights := req.BlockWeights
	if len(weights) == 0 {
		weights = scenario.ResolveProfile(req.RoleProfile).BlockWeights()
	}
	if len(weights) == 0 {
		// Neither the caller nor the profile has an opinion: every
		// block present in the answers weighs the same.
		weights = make(map[string]float64)
		for _, a := range req.Answers {
			weights[a.Block] = 1
		}
	}

	analysis := scoring.AnalyzePerformance(req.Answers, weights)
	s.writeJSON(w, http.StatusOK, aggregateResponse{
		Analysis:       analysis,
		OverallPercent: math.Round(analysis.OverallScore*10000) / 100,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "intervue",
	})
}

func (s *Server) handleRoles(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string][]scenario.RoleProfile{
		"roles": scenario.KnownProfiles(),
	})
}

func (s *Server) decodeReplyRequest(w http.ResponseWriter, r *http.Request) (*dialog.ReplyRequest, bool) {
	var req dialog.ReplyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return nil, false
	}
	if strings.TrimSpace(req.Node.ID) == "" || strings.TrimSpace(req.Node.Category) == "" {
		s.writeError(w, http.StatusBadRequest, "node id and category are required")
		return nil, false
	}
	if req.Scores == nil {
		req.Scores = map[string]float64{}
	}
	return &req, true
}

func validateAggregate(req *aggregateRequest) error {
	if len(req.Answers) == 0 {
		return fmt.Errorf("answers are required")
	}
	for _, a := range req.Answers {
		if a.Score < 0 || a.Score > 1 {
			return fmt.Errorf("question %q: score %v out of [0,1]", a.QuestionID, a.Score)
		}
		if a.Weight < 0 || a.Weight > 1 {
			return fmt.Errorf("question %q: weight %v out of [0,1]", a.QuestionID, a.Weight)
		}
		if strings.TrimSpace(a.Block) == "" {
			return fmt.Errorf("question %q: block is required", a.QuestionID)
		}
	}
	for block, weight := range req.BlockWeights {
		if weight < 0 {
			return fmt.Errorf("block %q: negative weight %v", block, weight)
		}
	}
	return nil
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Warn("response encode failed", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}
