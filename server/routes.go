package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) initRoutes() {
	s.RegisterRouteHandler("GET "+RouteHealth, ChainMiddleware(s.HealthHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteMetrics, promhttp.HandlerFor(s.metrics.Registry, promhttp.HandlerOpts{}))

	// LOGIN
	s.RegisterRouteHandler("POST "+RouteAuthLogin, ChainMiddleware(s.LoginHandler(), s.APIMiddleware(s.RateLimitMiddleware)...))
	s.RegisterRouteHandler("POST "+RouteAuthLogout, ChainMiddleware(s.LogoutHandler(), s.APIMiddleware(s.BearerTokenMiddleware)...))
	s.RegisterRouteHandler("GET "+RouteMe, ChainMiddleware(s.MeHandler(), s.APIMiddleware(s.BearerTokenMiddleware)...))

	// Notes
	s.RegisterRouteHandler("GET "+RouteNotes, ChainMiddleware(s.ListNotesHandler(), s.APIMiddleware(s.BearerTokenMiddleware)...))
	s.RegisterRouteHandler("POST "+RouteNotes, ChainMiddleware(s.CreateNoteHandler(), s.APIMiddleware(s.BearerTokenMiddleware)...))
	s.RegisterRouteHandler("GET "+RouteNote, ChainMiddleware(s.GetNoteHandler(), s.APIMiddleware(s.BearerTokenMiddleware)...))
	s.RegisterRouteHandler("PUT "+RouteNote, ChainMiddleware(s.UpdateNoteHandler(), s.APIMiddleware(s.BearerTokenMiddleware)...))
	s.RegisterRouteHandler("DELETE "+RouteNote, ChainMiddleware(s.DeleteNoteHandler(), s.APIMiddleware(s.BearerTokenMiddleware)...))

	// Tenants and users (admin actions)
	s.RegisterRouteHandler("GET "+RouteTenant, ChainMiddleware(s.GetTenantHandler(), s.APIMiddleware(s.BearerTokenMiddleware)...))
	s.RegisterRouteHandler("POST "+RouteTenantUpgrade, ChainMiddleware(s.UpgradeTenantHandler(), s.APIMiddleware(s.BearerTokenMiddleware)...))
	s.RegisterRouteHandler("POST "+RouteUserInvite, ChainMiddleware(s.InviteUserHandler(), s.APIMiddleware(s.BearerTokenMiddleware)...))

	// CORS preflight for every API path
	s.RegisterRouteHandler("OPTIONS /", ChainMiddleware(http.NotFound, s.APIMiddleware()...))
}
