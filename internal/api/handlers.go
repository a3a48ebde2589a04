package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/burnbook/burnbook/internal/analysis"
	"github.com/burnbook/burnbook/internal/ingestion"
	"github.com/burnbook/burnbook/internal/models"
	"github.com/burnbook/burnbook/internal/query"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// Server exposes the ingestion, analysis, and query pipelines over HTTP
type Server struct {
	ingestion *ingestion.Service
	analyzer  analysis.Provider
	query     *query.Service
}

// NewServer creates the HTTP surface over the three pipelines
func NewServer(ingestionService *ingestion.Service, analyzer analysis.Provider, queryService *query.Service) *Server {
	return &Server{
		ingestion: ingestionService,
		analyzer:  analyzer,
		query:     queryService,
	}
}

// Router builds the route table
func (s *Server) Router() *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/health", s.healthHandler).Methods("GET")
	router.HandleFunc("/metrics", s.metricsHandler).Methods("GET")
	router.HandleFunc("/api/ingest", s.ingestHandler).Methods("POST")
	router.HandleFunc("/api/analyze", s.analyzeHandler).Methods("POST")
	router.HandleFunc("/api/query", s.queryHandler).Methods("POST")

	return router
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logrus.Errorf("Failed to encode response: %v", err)
	}
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

func (s *Server) metricsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(s.ingestion.GetMetrics()))
}

// ingestHandler runs an ingestion job for a Reddit URL. Job-level failures
// come back as a structured response with success=false, never as a bare
// protocol error.
func (s *Server) ingestHandler(w http.ResponseWriter, r *http.Request) {
	var req models.IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.URL) == "" {
		writeJSON(w, http.StatusBadRequest, models.IngestResponse{
			Success: false,
			Error:   "Please provide either a url or text to analyze",
		})
		return
	}

	resp := s.ingestion.Ingest(r.Context(), req.URL)
	writeJSON(w, http.StatusOK, resp)
}

// analyzeHandler classifies raw text without persisting anything
func (s *Server) analyzeHandler(w http.ResponseWriter, r *http.Request) {
	var req models.AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Text) == "" {
		writeJSON(w, http.StatusBadRequest, models.AnalyzeResponse{
			Success: false,
			Error:   "Please provide either a url or text to analyze",
		})
		return
	}

	score, err := s.analyzer.Classify(r.Context(), req.Text)
	if err != nil {
		logrus.Errorf("Text analysis failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, models.AnalyzeResponse{
			Success: false,
			Error:   "text analysis failed",
		})
		return
	}

	entities, err := s.analyzer.Extract(r.Context(), req.Text)
	if err != nil {
		// Extraction failure never fails the analysis.
		logrus.Warnf("Entity extraction failed: %v", err)
		entities = nil
	}

	writeJSON(w, http.StatusOK, models.AnalyzeResponse{
		Success:        true,
		Sentiment:      score.Sentiment,
		Confidence:     score.Confidence,
		SentimentScore: score.SentimentScore,
		KeyPhrases:     score.KeyPhrases,
		Entities:       entities,
	})
}

// queryHandler answers a natural-language question about the aggregate
func (s *Server) queryHandler(w http.ResponseWriter, r *http.Request) {
	var req models.QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Question) == "" {
		writeJSON(w, http.StatusBadRequest, models.QueryResponse{
			Success: false,
			Error:   "Please provide a question",
		})
		return
	}

	resp := s.query.Answer(r.Context(), req)
	writeJSON(w, http.StatusOK, resp)
}
