// Package api provides the HTTP surface over the adaptive-assessment
// engine: assessment intake, response submission, and quiz generation.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tutu-network/jeevibe-iidp/internal/domain"
	"github.com/tutu-network/jeevibe-iidp/internal/engine"
)

// Server is the IIDP HTTP API server.
type Server struct {
	engine         *engine.Engine
	repo           domain.Repository
	metricsEnabled bool
}

// NewServer creates a new API server over the given engine and repository.
func NewServer(e *engine.Engine, repo domain.Repository) *Server {
	return &Server{engine: e, repo: repo}
}

// EnableMetrics turns on the /metrics Prometheus endpoint.
func (s *Server) EnableMetrics() { s.metricsEnabled = true }

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(corsMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/v1/learners/{learnerID}", func(r chi.Router) {
		r.Post("/assessment", s.handleInitFromAssessment)
		r.Post("/responses", s.handleUpdateAfterResponse)
		r.Post("/quiz", s.handleGenerateQuiz)
		r.Get("/profile", s.handleGetProfile)
		r.Get("/quizzes", s.handleListQuizzes)
	})

	if s.metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	return r
}

// ─── Request/response shapes ─────────────────────────────────────────────

type assessmentResponseIn struct {
	TopicID string `json:"topic_id"`
	Correct bool   `json:"correct"`
}

type initAssessmentRequest struct {
	Responses []assessmentResponseIn `json:"responses"`
}

type submitResponseRequest struct {
	ItemID         string `json:"item_id"`
	Correct        bool   `json:"correct"`
	ElapsedSeconds int    `json:"elapsed_seconds"`
}

func (s *Server) handleInitFromAssessment(w http.ResponseWriter, r *http.Request) {
	learnerID := chi.URLParam(r, "learnerID")

	var req initAssessmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	responses := make([]domain.Response, len(req.Responses))
	for i, in := range req.Responses {
		responses[i] = domain.Response{
			LearnerID: learnerID,
			TopicID:   in.TopicID,
			Correct:   in.Correct,
		}
	}

	profile, err := s.engine.InitFromAssessment(r.Context(), learnerID, responses)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, profile)
}

func (s *Server) handleUpdateAfterResponse(w http.ResponseWriter, r *http.Request) {
	learnerID := chi.URLParam(r, "learnerID")

	var req submitResponseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.ItemID == "" {
		writeError(w, http.StatusBadRequest, "item_id is required")
		return
	}

	resp, err := s.engine.UpdateAfterResponse(r.Context(), learnerID, req.ItemID, req.Correct, req.ElapsedSeconds)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGenerateQuiz(w http.ResponseWriter, r *http.Request) {
	learnerID := chi.URLParam(r, "learnerID")

	quiz, err := s.engine.GenerateQuiz(r.Context(), learnerID)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quiz)
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	learnerID := chi.URLParam(r, "learnerID")

	profile, err := s.repo.GetProfile(r.Context(), learnerID)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (s *Server) handleListQuizzes(w http.ResponseWriter, r *http.Request) {
	learnerID := chi.URLParam(r, "learnerID")

	quizzes, err := s.repo.ListQuizzes(r.Context(), learnerID, 20)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quizzes)
}

// ─── Helpers ──────────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]interface{}{
			"message": msg,
		},
	})
}

// writeEngineError maps a domain sentinel error to its HTTP status.
func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrLearnerNotFound), errors.Is(err, domain.ErrItemNotFound), errors.Is(err, domain.ErrProfileNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrUnknownItem), errors.Is(err, domain.ErrInvalidItemParams):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrDeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, err.Error())
	case errors.Is(err, domain.ErrProfileConflict):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// corsMiddleware adds CORS headers for local development.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
