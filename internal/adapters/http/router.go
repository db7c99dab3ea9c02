package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/servicedeskhq/auth-service/internal/application"
)

// Handler is the HTTP adapter entrypoint for the auth flows. It owns only the
// application service, the cookie policy, and the readiness check; everything
// else stays in the application layer.
type Handler struct {
	service *application.Service
	cookies CookieConfig
	ready   func(context.Context) error
}

// NewHandler constructs an HTTP handler bound to the application service.
// ready may be nil; readyz then always answers ready.
func NewHandler(service *application.Service, cookies CookieConfig, ready func(context.Context) error) *Handler {
	return &Handler{service: service, cookies: cookies, ready: ready}
}

// NewRouter registers the HTTP routes and middleware stack. Centralizing
// routes here keeps auth gating and error mapping consistent across
// endpoints. allowedOrigins feeds CORS; credentials are allowed because the
// portal rides on cookies.
func NewRouter(handler *Handler, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(recoverMiddleware)
	r.Use(loggingMiddleware)
	if len(allowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   allowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
			ExposedHeaders:   []string{"Set-Cookie", "X-Request-Id"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.Get("/healthz", handler.healthz)
	r.Get("/readyz", handler.readyz)
	r.Get("/openapi.yaml", handler.openAPIContract)
	r.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/docs/", http.StatusMovedPermanently)
	})
	r.Get("/docs/", handler.swaggerUI)

	r.Post("/register", handler.register)
	r.Post("/login", handler.login)
	r.Post("/refresh", handler.refresh)
	r.Get("/verify-email", handler.verifyEmail)
	r.Post("/forgot-password", handler.forgotPassword)
	r.Post("/reset-password", handler.resetPassword)

	r.Post("/request-otp", handler.requestOTP)
	r.Post("/verify-otp", handler.verifyOTP)
	r.Post("/check-auth", handler.checkAuth)

	r.Group(func(r chi.Router) {
		r.Use(handler.authMiddleware)
		r.Post("/logout", handler.logout)
		r.Get("/me", handler.currentUser)
		r.Post("/change-password", handler.changePassword)
		r.Get("/sessions", handler.listSessions)
		r.Post("/sessions/revoke", handler.revokeSession)
		r.Post("/sessions/revoke-all", handler.revokeAllSessions)

		r.Group(func(r chi.Router) {
			r.Use(requirePermission("audit:read"))
			r.Get("/audit/events", handler.auditEvents)
		})
	})

	return r
}
