/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request, carried into the request log
  2. Logger:     One logrus entry per request (middleware.go)
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests for the browser UI

ROUTE GROUPS:
  /api/auth/*       Public login endpoints
  /api/employee/*   Employee session required
  /api/admin/*      Admin session required
  /healthz          Liveness and storage ping

SEE ALSO:
  - handlers.go: Handler implementations
  - middleware.go: Access gate
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(h.log))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", LegacyTokenHeader},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
	}))

	r.Get("/healthz", h.Health)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", h.EmployeeLogin)
			r.Post("/admin", h.AdminLogin)
		})

		r.Route("/employee", func(r chi.Router) {
			r.Use(h.RequireEmployee)
			r.Get("/me", h.Me)
			r.Post("/check-in", h.CheckIn)
			r.Post("/check-out", h.CheckOut)
			r.Post("/leave-request", h.SubmitLeaveRequest)
			r.Get("/attendance", h.MyAttendance)
			r.Get("/notifications", h.MyNotifications)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(h.RequireAdmin)
			r.Get("/employees", h.ListEmployees)

			r.Route("/attendance", func(r chi.Router) {
				r.Get("/", h.DailyAttendance)
				r.Get("/monthly", h.MonthlyAttendance)
				r.Get("/summary", h.MonthlySummary)
				r.Get("/export", h.ExportMonthlyWorkbook)
				r.Post("/update", h.UpdateAttendance)
			})

			r.Get("/leave-requests", h.ListLeaveRequests)
			r.Post("/leave-requests/update", h.DecideLeaveRequest)
		})
	})

	return r
}
