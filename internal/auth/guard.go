package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/medhaven/portal-auth/internal/domain"
	"github.com/medhaven/portal-auth/internal/observability"
	apperrors "github.com/medhaven/portal-auth/pkg/util"
)

const principalKey = "auth_principal"

// Guard is the authorization wrapper for API routes. It is a pure
// request-time filter: token verification is its only work, so it can be
// applied to any number of handler chains without shared state.
type Guard struct {
	tokens  *TokenManager
	metrics *observability.Metrics
}

// NewGuard constructs the API guard.
func NewGuard(tokens *TokenManager, metrics *observability.Metrics) *Guard {
	return &Guard{tokens: tokens, metrics: metrics}
}

// SessionFromRequest extracts the raw session token from the Authorization
// header, falling back to the session cookie.
func SessionFromRequest(c *fiber.Ctx) (string, bool) {
	if authHeader := c.Get("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") && parts[1] != "" {
			return parts[1], true
		}
		return "", false
	}
	if cookie := c.Cookies(CookieName); cookie != "" {
		return cookie, true
	}
	return "", false
}

// Authenticate enforces a valid, fully verified session. Absent, tampered
// and expired tokens all fail the same way (401). A 2FA-pending session is
// also rejected here: page redirects alone cannot stop a client from
// calling the API directly, so the gate is enforced on both layers.
func (g *Guard) Authenticate(c *fiber.Ctx) error {
	raw, ok := SessionFromRequest(c)
	if !ok {
		g.metrics.RecordGuardDenial("no_session")
		return apperrors.NewUnauthenticated("missing credentials")
	}

	claims, err := g.tokens.Parse(raw)
	if err != nil {
		g.metrics.RecordGuardDenial("invalid_token")
		return apperrors.NewUnauthenticated("invalid session")
	}

	if StateOf(claims) == StatePending {
		g.metrics.RecordGuardDenial("two_factor_pending")
		return apperrors.NewTwoFactorRequired()
	}

	principal := claims.Principal()
	c.Locals(principalKey, &principal)
	return c.Next()
}

// RequireRole ensures the principal's role is in the allowed set. With no
// roles given it only requires an authenticated principal. Per-resource
// ownership stays a handler responsibility; this check is coarse role
// membership only.
func (g *Guard) RequireRole(allowed ...domain.Role) fiber.Handler {
	allowedSet := make(map[domain.Role]struct{}, len(allowed))
	for _, role := range allowed {
		allowedSet[role] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			g.metrics.RecordGuardDenial("no_session")
			return apperrors.NewUnauthenticated("missing credentials")
		}
		if len(allowedSet) == 0 {
			return c.Next()
		}
		if _, exists := allowedSet[principal.Role]; !exists {
			g.metrics.RecordGuardDenial("role_mismatch")
			return apperrors.NewForbidden("insufficient role")
		}
		return c.Next()
	}
}

// PrincipalFromContext retrieves the authenticated principal set by
// Authenticate.
func PrincipalFromContext(c *fiber.Ctx) (*domain.Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*domain.Principal)
	return principal, ok
}
