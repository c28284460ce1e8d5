package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/binkeyit/storefront/internal/api/http/handlers"
	"github.com/binkeyit/storefront/internal/auth"
	"github.com/binkeyit/storefront/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	AuthMiddleware *auth.AuthMiddleware
	Metrics        *observability.Metrics
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	if cfg.Health != nil {
		app.Get("/health/live", cfg.Health.Live)
		app.Get("/health/ready", cfg.Health.Ready)
	}
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))
	}

	user := app.Group("/api/user")
	user.Post("/register", cfg.Users.Register)
	user.Post("/verify-email", cfg.Users.VerifyEmail)
	user.Post("/login", cfg.Users.Login)
	user.Post("/refresh-token", cfg.Users.RefreshToken)
	user.Put("/forgot-password", cfg.Users.ForgotPassword)
	user.Put("/verify-forgot-password-otp", cfg.Users.VerifyForgotPasswordOTP)
	user.Put("/reset-password", cfg.Users.ResetPassword)

	// Guards are attached per route. A prefix group would turn unmatched
	// paths under /api/user into credential failures.
	requireUser := []fiber.Handler{cfg.AuthMiddleware.Handle, auth.RequireActiveUser()}
	user.Get("/logout", append(requireUser, cfg.Users.Logout)...)
	user.Get("/user-details", append(requireUser, cfg.Users.UserDetails)...)
	user.Put("/update-user", append(requireUser, cfg.Users.UpdateUser)...)
}
