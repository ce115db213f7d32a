package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"mcmcref/app"
	"mcmcref/domain/core"
	"mcmcref/internal/logger"
	"mcmcref/ports"
)

// Server is the read-only corpus HTTP API.
type Server struct {
	router  *chi.Mux
	service *app.ReferenceService
	log     *logger.Logger
}

// NewServer creates a corpus API server over a reference service.
func NewServer(service *app.ReferenceService, log *logger.Logger) *Server {
	if log == nil {
		log = logger.Default
	}
	s := &Server{
		router:  chi.NewRouter(),
		service: service,
		log:     log,
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
}

func (s *Server) setupRoutes() {
	s.router.Get("/models", s.handleListModels)
	s.router.Get("/models/{model}/stats", s.handleStats)
	s.router.Get("/models/{model}/diagnostics", s.handleDiagnostics)
	s.router.Get("/models/{model}/meta", s.handleMeta)
	s.router.Get("/pairs", s.handleListPairs)
	s.router.Get("/pairs/{name}", s.handlePair)
}

func (s *Server) handleListModels(w http.ResponseWriter, r *http.Request) {
	models, err := s.service.ListModels()
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, models)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	model := chi.URLParam(r, "model")
	params := splitParam(r.URL.Query().Get("params"))
	backendName := r.URL.Query().Get("backend")
	if backendName == "" {
		backendName = "gonum"
	}
	includeDiag, _ := strconv.ParseBool(r.URL.Query().Get("include_diagnostics"))

	stats, err := s.service.Stats(model, params, backendName, includeDiag)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, ports.ToMetricMap(stats))
}

func (s *Server) handleDiagnostics(w http.ResponseWriter, r *http.Request) {
	model := chi.URLParam(r, "model")
	params := splitParam(r.URL.Query().Get("params"))

	diag, err := s.service.DiagnosticsFor(model, params)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, diag)
}

func (s *Server) handleMeta(w http.ResponseWriter, r *http.Request) {
	meta, err := s.service.Meta(chi.URLParam(r, "model"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, meta)
}

func (s *Server) handleListPairs(w http.ResponseWriter, r *http.Request) {
	names, err := s.service.ListPairs()
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, names)
}

func (s *Server) handlePair(w http.ResponseWriter, r *http.Request) {
	pair, err := s.service.Pair(chi.URLParam(r, "name"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"name":                 pair.Name,
		"description":          pair.Description,
		"description_html":     pair.DescriptionHTML(),
		"bad_variant":          pair.BadVariant,
		"good_variant":         pair.GoodVariant,
		"reference_model":      pair.ReferenceModel,
		"expected_pathologies": pair.ExpectedPathologies,
		"difficulty":           pair.Difficulty,
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log.Error("failed to encode response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if core.IsNotFoundError(err) {
		status = http.StatusNotFound
	}
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

func splitParam(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
