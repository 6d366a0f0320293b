package routes

import (
	"github.com/edlume/authtrail/internal/auth"
	"github.com/edlume/authtrail/internal/handlers"
	"github.com/edlume/authtrail/internal/middleware"
	"github.com/edlume/authtrail/internal/models"
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all application routes
func RegisterRoutes(
	router chi.Router,
	attemptHandler *handlers.AttemptHandler,
	analyticsHandler *handlers.AnalyticsHandler,
	tokenManager *auth.TokenManager,
) {
	ingestRateLimit := middleware.DefaultIngestRateLimit()

	router.Group(func(r chi.Router) {
		r.Use(auth.Middleware(tokenManager))

		// Write path - called by the portal's authentication flow
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireRole(models.RoleService))
			r.With(middleware.RateLimitByIP(ingestRateLimit)).Post("/attempts", attemptHandler.Submit)
			r.Post("/attempts/{id}/close-session", attemptHandler.CloseSession)
		})

		// Admin surface - security analytics and manual reflagging
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireRole(models.RoleAdmin))
			r.Post("/attempts/{id}/reflag", attemptHandler.Reflag)
			r.Get("/analytics/daily", analyticsHandler.DailyStats)
			r.Get("/analytics/suspicious", analyticsHandler.ListSuspicious)
			r.Get("/analytics/failures", analyticsHandler.CountFailures)
			r.Get("/analytics/by-ip", analyticsHandler.ListByIP)
		})
	})
}
