package httpapi

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/fleetflow/leadflow/internal/errs"
	"github.com/fleetflow/leadflow/internal/model"
	"github.com/fleetflow/leadflow/internal/pipeline"
	"github.com/fleetflow/leadflow/internal/pricing"
)

// Server exposes the lead pipeline and quote engine over HTTP.
type Server struct {
	pipeline *pipeline.Pipeline
	quoter   *pricing.Engine
}

// NewServer wires the handlers. Either dependency may be nil, in which case
// its routes return 503.
func NewServer(p *pipeline.Pipeline, q *pricing.Engine) *Server {
	return &Server{pipeline: p, quoter: q}
}

// Router builds the chi route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/healthz", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/leads/generate", s.handleGenerateLeads)
		r.Post("/quotes", s.handleGenerateQuote)
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type generateLeadsRequest struct {
	States     []string           `json:"states,omitempty"`
	Industries []string           `json:"industries,omitempty"`
	Tier       model.PriorityTier `json:"tier,omitempty"`
	MinScore   float64            `json:"min_score,omitempty"`
	Limit      int                `json:"limit,omitempty"`
}

func (s *Server) handleGenerateLeads(w http.ResponseWriter, r *http.Request) {
	if s.pipeline == nil {
		writeError(w, http.StatusServiceUnavailable, "lead pipeline not configured")
		return
	}

	var req generateLeadsRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.pipeline.GenerateUnifiedLeads(r.Context(), pipeline.Filter{
		States:     req.States,
		Industries: req.Industries,
		Tier:       req.Tier,
		MinScore:   req.MinScore,
		Limit:      req.Limit,
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleGenerateQuote(w http.ResponseWriter, r *http.Request) {
	if s.quoter == nil {
		writeError(w, http.StatusServiceUnavailable, "quote engine not configured")
		return
	}

	var req model.QuoteRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	quote, err := s.quoter.GenerateQuote(r.Context(), req)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quote)
}

// writeDomainError maps the error taxonomy onto HTTP statuses.
func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errs.IsValidation(err):
		writeError(w, http.StatusBadRequest, err.Error())
	case errs.IsNotFound(err):
		writeError(w, http.StatusNotFound, err.Error())
	case errs.IsStaleData(err):
		writeError(w, http.StatusConflict, err.Error())
	case errs.IsExternal(err):
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		zap.L().Error("request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeBody(r *http.Request, v any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && err != io.EOF {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
