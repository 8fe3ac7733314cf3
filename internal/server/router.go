package server

import (
	"net/http"

	gorillahandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/coastwatch-systems/coastwatch/internal/handlers"
	"github.com/coastwatch-systems/coastwatch/internal/middleware"
	"github.com/coastwatch-systems/coastwatch/internal/models"
	"github.com/coastwatch-systems/coastwatch/internal/ratelimit"
)

// RouterDeps bundles everything the router mounts.
type RouterDeps struct {
	Auth      *handlers.AuthHandler
	Reports   *handlers.ReportsHandler
	Dashboard *handlers.DashboardHandler
	Health    *handlers.HealthHandler
	Realtime  http.Handler

	AuthMW      *middleware.AuthMiddleware
	Limiter     ratelimit.Limiter
	CORSOrigins []string
}

// NewRouter assembles the full HTTP surface.
func NewRouter(deps RouterDeps) http.Handler {
	r := mux.NewRouter()

	// The websocket endpoint stays outside the API middleware chain so the
	// connection can be hijacked for the upgrade.
	r.Handle("/ws", deps.Realtime).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(middleware.Metrics)

	api.HandleFunc("/health", deps.Health.Health).Methods(http.MethodGet)

	// Auth
	api.HandleFunc("/auth/register", deps.Auth.Register).Methods(http.MethodPost)
	api.HandleFunc("/auth/login", deps.Auth.Login).Methods(http.MethodPost)
	api.Handle("/auth/me",
		deps.AuthMW.RequireAuth(http.HandlerFunc(deps.Auth.Me))).Methods(http.MethodGet)

	// Reports. Submission is rate limited per client IP.
	rateLimited := ratelimit.Middleware(deps.Limiter, nil)
	analystOrAdmin := deps.AuthMW.RequireRole(models.RoleAnalyst, models.RoleAdmin)

	api.Handle("/reports",
		rateLimited(deps.AuthMW.RequireAuth(http.HandlerFunc(deps.Reports.Create)))).Methods(http.MethodPost)
	api.HandleFunc("/reports", deps.Reports.List).Methods(http.MethodGet)
	api.HandleFunc("/reports/hotspots", deps.Reports.Hotspots).Methods(http.MethodGet)
	api.Handle("/reports/user/mine",
		deps.AuthMW.RequireAuth(http.HandlerFunc(deps.Reports.Mine))).Methods(http.MethodGet)
	api.HandleFunc("/reports/{id}", deps.Reports.Get).Methods(http.MethodGet)
	api.Handle("/reports/{id}",
		deps.AuthMW.RequireAuth(http.HandlerFunc(deps.Reports.Delete))).Methods(http.MethodDelete)
	api.Handle("/reports/{id}/verify",
		analystOrAdmin(http.HandlerFunc(deps.Reports.Verify))).Methods(http.MethodPatch)

	// Dashboard is analyst/admin, raw export admin only.
	api.Handle("/dashboard/stats",
		analystOrAdmin(http.HandlerFunc(deps.Dashboard.Stats))).Methods(http.MethodGet)
	api.Handle("/dashboard/analytics",
		analystOrAdmin(http.HandlerFunc(deps.Dashboard.Analytics))).Methods(http.MethodGet)
	api.Handle("/dashboard/export",
		deps.AuthMW.RequireRole(models.RoleAdmin)(
			http.HandlerFunc(deps.Dashboard.Export))).Methods(http.MethodGet)

	var handler http.Handler = r
	if len(deps.CORSOrigins) > 0 {
		handler = gorillahandlers.CORS(
			gorillahandlers.AllowedOrigins(deps.CORSOrigins),
			gorillahandlers.AllowedMethods([]string{
				http.MethodGet, http.MethodPost, http.MethodPatch,
				http.MethodDelete, http.MethodOptions,
			}),
			gorillahandlers.AllowedHeaders([]string{"Authorization", "Content-Type", "X-Request-ID"}),
		)(handler)
	}
	return middleware.RequestID(handler)
}
