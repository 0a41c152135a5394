package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	RouteHealth  = "/health"
	RouteMetrics = "/metrics"

	// Auth Routes - Login & Logout
	RouteAuthLogin  = "/auth/login"
	RouteAuthLogout = "/auth/logout"
	RouteMe         = "/me"

	// Note Routes
	RouteNotes = "/notes"
	RouteNote  = "/notes/{id}"

	// Tenant Routes
	RouteTenant        = "/tenants/{slug}"
	RouteTenantUpgrade = "/tenants/{slug}/upgrade"

	// User Routes
	RouteUserInvite = "/users/invite"
)
