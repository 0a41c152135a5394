package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/jrsteele09/go-tenant-notes/internal/config"
	"github.com/jrsteele09/go-tenant-notes/internal/metrics"
	"github.com/jrsteele09/go-tenant-notes/service"
	"github.com/rs/zerolog/log"
)

// Server exposes the notes service over JSON/HTTP.
type Server struct {
	env          string // Environment (e.g., "DEV", "PROD")
	mux          *http.ServeMux
	routes       []string
	config       config.Config
	notes        *service.NotesService
	metrics      *metrics.NotesMetrics
	loginLimiter *ipRateLimiter
}

func New(config config.Config, notesService *service.NotesService, m *metrics.NotesMetrics) (*Server, error) {
	if notesService == nil {
		return nil, errors.New("[Server New] notes service is required")
	}
	if m == nil {
		return nil, errors.New("[Server New] metrics are required")
	}

	s := &Server{
		env:          config.GetEnv(),
		mux:          http.NewServeMux(),
		config:       config,
		notes:        notesService,
		metrics:      m,
		loginLimiter: newIPRateLimiter(config.GetLoginRatePerSecond(), config.GetLoginBurst(), loginLimiterIdleTTL),
	}

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func logRoute(method, path string) {
	paddedMethod := fmt.Sprintf(" %-7s", method)
	color, ok := methodColors[method]
	if !ok {
		color = Gray
	}
	log.Debug().Msgf("[%-19s] %s", color+paddedMethod+ResetColor, path)
}
