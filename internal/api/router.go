package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/alecgard/wayfare/internal/auth"
	"github.com/alecgard/wayfare/internal/metrics"
	"github.com/alecgard/wayfare/internal/ratelimit"
	"github.com/alecgard/wayfare/internal/trip"
	"github.com/alecgard/wayfare/internal/user"
)

// RouterDeps holds all dependencies for the API router.
type RouterDeps struct {
	TripService    *trip.Service
	UserStore      *user.Store
	Tokens         *auth.Tokens
	LoginLimiter   *ratelimit.Limiter
	Metrics        *metrics.Metrics
	AllowedOrigins []string

	// PingDB reports database reachability for the health endpoint.
	// May be nil, in which case the DB check is skipped.
	PingDB func(ctx context.Context) error
}

// NewRouter builds the chi router with all routes and middleware.
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chimw.Recoverer)
	r.Use(requestIDMiddleware)
	r.Use(secureHeaders)
	r.Use(corsMiddleware(deps.AllowedOrigins))
	r.Use(requestLogger(deps.Metrics))

	// Handlers.
	authh := newAuthHandler(deps.UserStore, deps.Tokens, deps.Metrics)
	users := newUsersHandler(deps.UserStore)
	trips := newTripsHandler(deps.TripService, deps.Metrics)

	lookup := user.NewAuthAdapter(deps.UserStore)
	authed := auth.Middleware(deps.Tokens, lookup, deps.Metrics.IncAuthFailure)

	// Health check.
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		status := "ok"
		code := http.StatusOK
		if deps.PingDB != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := deps.PingDB(ctx); err != nil {
				status = "degraded"
				code = http.StatusServiceUnavailable
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_, _ = w.Write([]byte(`{"status":"` + status + `"}`))
	})

	// Well-known manifest.
	r.Get("/.well-known/wayfare.json", WellKnownHandler)

	// Metrics exposition and operator summary.
	r.Get("/metrics", deps.Metrics.Exposition().ServeHTTP)
	r.Get("/metrics/summary", deps.Metrics.SummaryHandler())

	// Public (unauthenticated) routes.
	r.Route("/api/v1/auth", func(ar chi.Router) {
		ar.Post("/register", authh.Register)

		ar.Group(func(lr chi.Router) {
			lr.Use(ratelimit.PerIP(deps.LoginLimiter, deps.Metrics.IncRateLimitRejection))
			lr.Post("/login", authh.Login)
		})

		ar.Group(func(pr chi.Router) {
			pr.Use(authed)
			pr.Get("/me", authh.Me)
			pr.Post("/logout", authh.Logout)
		})
	})

	// Authenticated routes.
	r.Route("/api/v1", func(ar chi.Router) {
		ar.Use(authed)

		// Users and profiles.
		ar.Get("/users/me/profile", users.GetOwnProfile)
		ar.Put("/users/me/profile", users.UpdateOwnProfile)
		ar.Get("/users/{id}", users.GetUser)

		// Trips.
		ar.Post("/trips", trips.CreateTrip)
		ar.Get("/trips", trips.ListTrips)
		ar.Get("/trips/{id}", trips.GetTrip)
		ar.Put("/trips/{id}", trips.UpdateTrip)
		ar.Delete("/trips/{id}", trips.DeleteTrip)

		// Trip membership.
		ar.Get("/trips/{id}/members", trips.ListMembers)
		ar.Post("/trips/{id}/members", trips.AddMember)
		ar.Delete("/trips/{id}/members/{userID}", trips.RemoveMember)

		// Trip activity feed.
		ar.Get("/trips/{id}/activities", trips.ListActivities)
	})

	return r
}
