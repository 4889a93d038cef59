package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/medhaven/portal-auth/internal/domain"
	"github.com/medhaven/portal-auth/internal/observability"
)

// Default page paths for the auth flow.
const (
	LoginPath     = "/login"
	RegisterPath  = "/register"
	TwoFactorPath = "/verify-2fa"
)

// PageGate is the route access middleware for page navigations. It reads
// the session cookie, never mutates it, and either lets the navigation
// proceed or redirects. Redirects are silent: no error body, the
// navigation simply lands elsewhere.
type PageGate struct {
	tokens  *TokenManager
	metrics *observability.Metrics
}

// NewPageGate constructs the middleware.
func NewPageGate(tokens *TokenManager, metrics *observability.Metrics) *PageGate {
	return &PageGate{tokens: tokens, metrics: metrics}
}

// Handle evaluates the access decision table in order:
//
//  1. protected path, no session        -> redirect to login
//  2. session 2FA-pending, non-auth path -> redirect to code submission
//  3. 2FA path but account needs no 2FA  -> redirect to role landing page
//  4. otherwise allow
func (g *PageGate) Handle(c *fiber.Ctx) error {
	path := c.Path()
	authFlow := isAuthFlowPath(path)
	claims := g.session(c)

	if claims == nil && !authFlow {
		return g.redirect(c, LoginPath)
	}

	if claims != nil && StateOf(claims) == StatePending && !authFlow {
		return g.redirect(c, TwoFactorPath)
	}

	if path == TwoFactorPath && claims != nil && !claims.TwoFactorRequired {
		return g.redirect(c, domain.LandingPath(claims.Role))
	}

	return c.Next()
}

// session returns verified claims from the cookie, or nil. An invalid or
// expired cookie is the same as no session.
func (g *PageGate) session(c *fiber.Ctx) *SessionClaims {
	cookie := c.Cookies(CookieName)
	if cookie == "" {
		return nil
	}
	claims, err := g.tokens.Parse(cookie)
	if err != nil {
		return nil
	}
	return claims
}

func (g *PageGate) redirect(c *fiber.Ctx, target string) error {
	g.metrics.RecordPageRedirect(target)
	return c.Redirect(target, fiber.StatusFound)
}

func isAuthFlowPath(path string) bool {
	switch path {
	case LoginPath, RegisterPath, TwoFactorPath:
		return true
	default:
		return false
	}
}
