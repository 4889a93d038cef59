package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/medhaven/portal-auth/internal/api/http/handlers"
	"github.com/medhaven/portal-auth/internal/auth"
	"github.com/medhaven/portal-auth/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health   *handlers.HealthHandler
	Auth     *handlers.AuthHandler
	Pages    *handlers.PagesHandler
	Records  *handlers.RecordsHandler
	Guard    *auth.Guard
	PageGate *auth.PageGate
	Metrics  fiber.Handler
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", cfg.Metrics)
	}

	authGroup := app.Group("/auth")
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/logout", cfg.Auth.Logout)
	authGroup.Post("/2fa/submit", cfg.Auth.SubmitTwoFactor)
	authGroup.Get("/oauth/start", cfg.Auth.OAuthStart)
	authGroup.Get("/oauth/callback", cfg.Auth.OAuthCallback)

	// Page navigations all pass through the access gate. Auth-flow pages
	// are in the gated set too: rules 2 and 3 of the decision table apply
	// to them.
	gate := cfg.PageGate.Handle
	app.Get(auth.LoginPath, gate, cfg.Pages.Render("login"))
	app.Get(auth.RegisterPath, gate, cfg.Pages.Render("register"))
	app.Get(auth.TwoFactorPath, gate, cfg.Pages.Render("verify-2fa"))
	app.Get("/dashboard", gate, cfg.Pages.Render("dashboard"))
	app.Get("/clinic", gate, cfg.Pages.Render("clinic"))
	app.Get("/pharmacy", gate, cfg.Pages.Render("pharmacy"))
	app.Get("/admin", gate, cfg.Pages.Render("admin"))

	api := app.Group("/api", cfg.Guard.Authenticate)
	api.Get("/me", cfg.Records.Me)
	api.Get("/patients/:id/records",
		cfg.Guard.RequireRole(domain.RolePatient, domain.RoleHealthcare, domain.RoleAdmin),
		cfg.Records.PatientRecords)
	api.Get("/pharmacy/orders",
		cfg.Guard.RequireRole(domain.RolePharmacy),
		cfg.Records.PharmacyOrders)
}
