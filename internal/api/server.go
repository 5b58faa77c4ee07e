// Package api provides the HTTP API server and handlers for the GoalMate application.
package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/goalmateapp/goalmate-server/internal/ratelimit"
	"github.com/goalmateapp/goalmate-server/internal/service"
)

// Auth endpoints are reachable without a token, so they get a per-IP
// token bucket on top of the regular middleware stack.
const (
	authRatePerSecond = 1
	authRateBurst     = 5
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	authService       *service.AuthService
	goalService       *service.GoalService
	sharingService    *service.SharingService
	attendanceService *service.AttendanceService
	authLimiter       *ratelimit.KeyedLimiter
	router            *chi.Mux
	logger            *slog.Logger
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(
	authService *service.AuthService,
	goalService *service.GoalService,
	sharingService *service.SharingService,
	attendanceService *service.AttendanceService,
	logger *slog.Logger,
) *Server {
	s := &Server{
		authService:       authService,
		goalService:       goalService,
		sharingService:    sharingService,
		attendanceService: attendanceService,
		authLimiter:       ratelimit.New(authRatePerSecond, authRateBurst),
		router:            chi.NewRouter(),
		logger:            logger,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// setupMiddleware configures middleware stack.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	// Health check.
	s.router.Get("/health", s.handleHealthCheck)

	// API v1.
	s.router.Route("/api/v1", func(r chi.Router) {
		// Auth endpoints (public, rate limited per IP).
		r.Route("/auth", func(r chi.Router) {
			r.Use(s.rateLimitByIP(s.authLimiter))
			r.Post("/register", s.handleRegister)
			r.Post("/login", s.handleLogin)
		})

		// Protected user endpoints.
		r.Route("/users", func(r chi.Router) {
			r.Use(s.requireAuth)
			r.Get("/me", s.handleGetCurrentUser)
			r.Patch("/me", s.handleUpdateCurrentUser)
		})

		// Goals (require auth).
		r.Route("/goals", func(r chi.Router) {
			r.Use(s.requireAuth)
			r.Post("/", s.handleCreateGoal)
			r.Get("/", s.handleListGoals)
			r.Get("/{id}", s.handleGetGoal)
			r.Delete("/{id}", s.handleDeleteGoal)
			r.Post("/{id}/refresh", s.handleRefreshGoal)
			r.Post("/{id}/attendance", s.handleMarkAttendance)
			r.Get("/{id}/attendance/today", s.handleAttendanceToday)
			r.Get("/{id}/attendance/history", s.handleAttendanceHistory)
		})

		// Sharings (require auth).
		r.Route("/sharings", func(r chi.Router) {
			r.Use(s.requireAuth)
			r.Post("/", s.handleCreateSharing)
			r.Get("/", s.handleListSharings)
			r.Get("/preview/{code}", s.handlePreviewSharing)
			r.Post("/redeem", s.handleRedeemSharing)
			r.Post("/reject", s.handleRejectSharing)
		})
	})
}
