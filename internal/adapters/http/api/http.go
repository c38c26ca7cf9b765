// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/cors"
	service "github.com/okian/inactives/internal/app"
	"github.com/okian/inactives/internal/domain/model"
	"github.com/okian/inactives/pkg/logger"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// FindInactives runs a full inactive search for one world.
	FindInactives(ctx context.Context, q service.Query) ([]model.RankedVillageRow, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler    *HealthHandler
	statsHandler     *StatsHandler
	inactivesHandler *InactivesHandler

	allowedOrigins []string
	logger         logger.Logger
}

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithQueryDefaults sets the values used for omitted query parameters.
func WithQueryDefaults(d QueryDefaults) Option {
	return func(s *Server) {
		s.inactivesHandler.defaults = d
	}
}

// WithAllowedOrigins sets the CORS origins. The default allows any origin.
func WithAllowedOrigins(origins []string) Option {
	return func(s *Server) {
		if len(origins) > 0 {
			s.allowedOrigins = origins
		}
	}
}

// WithLogger sets the logger used for failed requests. The default is the
// global logger named "http".
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	s := &Server{
		healthHandler:    NewHealthHandler(),
		statsHandler:     NewStatsHandler(statsProvider),
		inactivesHandler: NewInactivesHandler(deps),
		allowedOrigins:   []string{"*"},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", s.metricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", s.metricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/inactives", s.metricsMiddleware(s.inactivesHandler.HandleGetInactives, "inactives"))
	mux.HandleFunc("/", s.metricsMiddleware(s.handleRoot, "root"))
}

// Handler wraps next with request ids and CORS.
func (s *Server) Handler(next http.Handler) http.Handler {
	c := cors.Handler(cors.Options{
		AllowedOrigins: s.allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", RequestIDHeader},
		ExposedHeaders: []string{RequestIDHeader},
		MaxAge:         300,
	})
	return RequestIDMiddleware(c(next))
}

func (s *Server) log() logger.Logger {
	if s.logger == nil {
		return logger.Named("http")
	}
	return s.logger
}

// handleRoot serves the search on "/" for older clients that query the root
// path, and 404s every other unmatched path.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	s.inactivesHandler.HandleGetInactives(w, r)
}

// envelope is the body of every /inactives response.
type envelope struct {
	Error   bool                     `json:"error"`
	Message string                   `json:"message"`
	Data    []model.RankedVillageRow `json:"data"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeRows(w http.ResponseWriter, rows []model.RankedVillageRow) {
	if rows == nil {
		rows = []model.RankedVillageRow{}
	}
	writeJSON(w, http.StatusOK, envelope{Data: rows})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	if msg == "" {
		msg = http.StatusText(status)
	}
	writeJSON(w, status, envelope{Error: true, Message: msg, Data: []model.RankedVillageRow{}})
}
