package api

import (
	"github.com/go-chi/chi/v5"

	"github.com/brightpath-dev/opsdesk/internal/api/activity"
	"github.com/brightpath-dev/opsdesk/internal/api/auth"
	"github.com/brightpath-dev/opsdesk/internal/api/clients"
	"github.com/brightpath-dev/opsdesk/internal/api/departments"
	"github.com/brightpath-dev/opsdesk/internal/api/leads"
	"github.com/brightpath-dev/opsdesk/internal/api/middleware"
	"github.com/brightpath-dev/opsdesk/internal/api/projects"
	"github.com/brightpath-dev/opsdesk/internal/api/reports"
	"github.com/brightpath-dev/opsdesk/internal/api/roles"
	"github.com/brightpath-dev/opsdesk/internal/api/tasks"
	"github.com/brightpath-dev/opsdesk/internal/api/users"
)

// setupRouter creates and configures the chi router with all routes.
func (s *Server) setupRouter() *chi.Mux {
	r := chi.NewRouter()

	// Create JWT service
	jwtService := auth.NewJWTService(s.config.JWTSecret, s.config.AccessTokenTTL)

	// Create lockout tracker
	lockoutTracker := auth.NewLockoutTracker(s.config.LockoutThreshold, s.config.LockoutDuration)

	// Create rate limiters
	ipLimiter := middleware.NewRateLimiter(s.config.RateLimitPerIP)
	userLimiter := middleware.NewRateLimiter(s.config.RateLimitPerUser)

	// Global middleware
	r.Use(middleware.RequestLogger(s.config.Verbose))
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.PrometheusMiddleware)
	r.Use(middleware.Recoverer)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Auth routes (mostly public)
		r.Route("/auth", func(r chi.Router) {
			authHandler := auth.NewHandler(
				s.storage,
				jwtService,
				lockoutTracker,
				s.config.RefreshTokenTTL,
			)

			// Public routes with IP rate limiting
			r.Group(func(r chi.Router) {
				r.Use(middleware.RateLimitByIP(ipLimiter))
				r.Post("/login", authHandler.Login)
				r.Post("/refresh", authHandler.Refresh)
			})

			// Protected routes
			r.Group(func(r chi.Router) {
				r.Use(middleware.JWTAuth(jwtService))
				r.Post("/logout", authHandler.Logout)
			})
		})

		// Everything below requires authentication
		r.Group(func(r chi.Router) {
			r.Use(middleware.JWTAuth(jwtService))
			r.Use(middleware.RateLimitByUser(userLimiter))

			// User routes
			r.Route("/users", func(r chi.Router) {
				userHandler := users.NewHandler(s.storage)

				// Current user endpoints (any authenticated user)
				r.Get("/me", userHandler.GetCurrentUser)
				r.Put("/me/password", userHandler.ChangePassword)

				// Admin-only endpoints
				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireSuperAdmin)
					r.Get("/", userHandler.List)
					r.Post("/", userHandler.Create)
				})

				// Per-user endpoints (admin or self)
				r.Route("/{id}", func(r chi.Router) {
					r.Use(middleware.RequireAdminOrSelf)
					r.Get("/", userHandler.GetByID)
					r.Put("/", userHandler.Update)

					// Delete is admin-only
					r.Group(func(r chi.Router) {
						r.Use(middleware.RequireSuperAdmin)
						r.Delete("/", userHandler.Delete)
					})
				})
			})

			// Fixed role registry
			r.Route("/roles", func(r chi.Router) {
				r.Use(middleware.RequireSuperAdmin)
				r.Get("/", roles.NewHandler().List)
			})

			// Department routes (admin-only, reads included)
			r.Route("/departments", func(r chi.Router) {
				deptHandler := departments.NewHandler(s.storage)

				r.Use(middleware.RequireSuperAdmin)
				r.Get("/", deptHandler.List)
				r.Get("/{id}", deptHandler.GetByID)
				r.Post("/", deptHandler.Create)
				r.Put("/{id}", deptHandler.Update)
				r.Delete("/{id}", deptHandler.Delete)
			})

			// Client routes
			r.Route("/clients", func(r chi.Router) {
				clientHandler := clients.NewHandler(s.storage)

				r.Get("/", clientHandler.List)
				r.Post("/", clientHandler.Create)
				r.Get("/{id}", clientHandler.GetByID)
				r.Put("/{id}", clientHandler.Update)
				r.Delete("/{id}", clientHandler.Delete)
			})

			// Project routes (listing is role-scoped inside the handler)
			r.Route("/projects", func(r chi.Router) {
				projectHandler := projects.NewHandler(s.storage)

				r.Get("/", projectHandler.List)
				r.Get("/{id}", projectHandler.GetByID)
				r.Get("/{id}/members", projectHandler.ListMembers)
				r.Get("/{id}/milestones", projectHandler.ListMilestones)

				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireProjectManager)
					r.Post("/", projectHandler.Create)
					r.Put("/{id}", projectHandler.Update)
					r.Delete("/{id}", projectHandler.Delete)
					r.Post("/{id}/members", projectHandler.AddMember)
					r.Delete("/{id}/members/{userID}", projectHandler.RemoveMember)
					r.Post("/{id}/milestones", projectHandler.AddMilestone)
					r.Put("/{id}/milestones/{milestoneID}", projectHandler.UpdateMilestone)
					r.Delete("/{id}/milestones/{milestoneID}", projectHandler.DeleteMilestone)
				})
			})

			// Task routes (listing is role-scoped inside the handler)
			r.Route("/tasks", func(r chi.Router) {
				taskHandler := tasks.NewHandler(s.storage)

				r.Get("/", taskHandler.List)
				r.Get("/{id}", taskHandler.GetByID)
				r.Get("/{id}/assignments", taskHandler.ListAssignments)
				r.Get("/{id}/comments", taskHandler.ListComments)
				r.Post("/{id}/comments", taskHandler.AddComment)

				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireProjectManager)
					r.Post("/", taskHandler.Create)
					r.Put("/{id}", taskHandler.Update)
					r.Delete("/{id}", taskHandler.Delete)
					r.Post("/{id}/assignments", taskHandler.Assign)
					r.Delete("/{id}/assignments/{employeeID}", taskHandler.Unassign)
				})
			})

			// Lead routes (listing is role-scoped inside the handler:
			// non-sales roles see only leads assigned to them)
			r.Route("/leads", func(r chi.Router) {
				leadHandler := leads.NewHandler(s.storage)

				r.Get("/", leadHandler.List)
				r.Get("/{id}", leadHandler.GetByID)
				r.Get("/{id}/followups", leadHandler.ListFollowups)

				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireSales)
					r.Post("/", leadHandler.Create)
					r.Put("/{id}", leadHandler.Update)
					r.Delete("/{id}", leadHandler.Delete)
					r.Post("/{id}/followups", leadHandler.AddFollowup)
				})

				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireSalesManager)
					r.Post("/{id}/convert", leadHandler.Convert)
					r.Post("/{id}/assign", leadHandler.Assign)
				})
			})

			// Activity log (read-only)
			r.Route("/activity", func(r chi.Router) {
				r.Get("/", activity.NewHandler(s.storage).List)
			})

			// Reports
			r.Route("/reports", func(r chi.Router) {
				r.Get("/dashboard", reports.NewHandler(s.storage).Dashboard)
			})
		})
	})

	// Health checks (public, no rate limit)
	r.Get("/health", s.healthHandler.Health)
	r.Get("/health/live", s.healthHandler.Live)
	r.Get("/health/ready", s.healthHandler.Ready)

	return r
}
