package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/medhaven/portal-auth/internal/api/dto"
	"github.com/medhaven/portal-auth/internal/auth"
	"github.com/medhaven/portal-auth/internal/domain"
	"github.com/medhaven/portal-auth/internal/service"
	apperrors "github.com/medhaven/portal-auth/pkg/util"
)

const oauthStateCookie = "hc_oauth_state"

// AuthHandler exposes the login, logout, two-factor and provider endpoints.
type AuthHandler struct {
	auth          *service.AuthService
	secureCookies bool
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService, secureCookies bool) *AuthHandler {
	return &AuthHandler{auth: authService, secureCookies: secureCookies}
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewMalformedRequest("invalid payload", nil)
	}
	if req.Email == "" || req.Password == "" {
		return apperrors.NewMalformedRequest("email and password required", nil)
	}

	principal, session, err := h.auth.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}

	h.setSessionCookie(c, session.Token, session.ExpiresAt)
	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"principal": toPrincipalResponse(principal),
			"session":   dto.SessionResponse{Token: session.Token, ExpiresAt: session.ExpiresAt},
		},
	})
}

// SubmitTwoFactor handles POST /auth/2fa/submit. The route cannot sit
// behind the API guard: a 2FA-pending session is exactly what it exists to
// upgrade, so it does its own lenient session extraction.
func (h *AuthHandler) SubmitTwoFactor(c *fiber.Ctx) error {
	raw, ok := auth.SessionFromRequest(c)
	if !ok {
		return apperrors.NewUnauthenticated("missing credentials")
	}

	var req dto.TwoFactorRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewMissingCode()
	}

	principal, session, err := h.auth.SubmitTwoFactorCode(c.UserContext(), raw, req.Code)
	if err != nil {
		return err
	}

	h.setSessionCookie(c, session.Token, session.ExpiresAt)
	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"principal": toPrincipalResponse(principal),
			"session":   dto.SessionResponse{Token: session.Token, ExpiresAt: session.ExpiresAt},
		},
	})
}

// Logout handles POST /auth/logout. Stateless sessions mean the only work
// is clearing the cookie; the token simply stops being presented.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	if err := h.auth.Logout(c.UserContext()); err != nil {
		return err
	}
	h.clearSessionCookie(c)
	return c.JSON(fiber.Map{
		"data": fiber.Map{"message": "logged out"},
	})
}

// OAuthStart handles GET /auth/oauth/start: redirects to the external
// provider with a state nonce pinned in a short-lived cookie.
func (h *AuthHandler) OAuthStart(c *fiber.Ctx) error {
	if !h.auth.ProviderEnabled() {
		return apperrors.NewDomainError("NOT_FOUND", "provider login not configured", fiber.StatusNotFound, nil)
	}

	url, state := h.auth.BeginProviderLogin()
	c.Cookie(&fiber.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Expires:  time.Now().Add(10 * time.Minute),
		HTTPOnly: true,
		Secure:   h.secureCookies,
		SameSite: "Lax",
		Path:     "/",
	})
	return c.Redirect(url, fiber.StatusFound)
}

// OAuthCallback handles GET /auth/oauth/callback. State mismatch fails
// closed before any exchange.
func (h *AuthHandler) OAuthCallback(c *fiber.Ctx) error {
	if !h.auth.ProviderEnabled() {
		return apperrors.NewDomainError("NOT_FOUND", "provider login not configured", fiber.StatusNotFound, nil)
	}

	state := c.Query("state")
	expected := c.Cookies(oauthStateCookie)
	if state == "" || expected == "" || state != expected {
		return apperrors.NewUnauthenticated("oauth state mismatch")
	}
	code := c.Query("code")
	if code == "" {
		return apperrors.NewMalformedRequest("authorization code required", nil)
	}

	principal, session, err := h.auth.CompleteProviderLogin(c.UserContext(), code)
	if err != nil {
		return err
	}

	c.Cookie(&fiber.Cookie{
		Name:     oauthStateCookie,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour),
		HTTPOnly: true,
		Secure:   h.secureCookies,
		SameSite: "Lax",
		Path:     "/",
	})
	h.setSessionCookie(c, session.Token, session.ExpiresAt)

	if !principal.FullyAuthenticated() {
		return c.Redirect(auth.TwoFactorPath, fiber.StatusFound)
	}
	return c.Redirect(domain.LandingPath(principal.Role), fiber.StatusFound)
}

func (h *AuthHandler) setSessionCookie(c *fiber.Ctx, token string, expires time.Time) {
	c.Cookie(&fiber.Cookie{
		Name:     auth.CookieName,
		Value:    token,
		Expires:  expires,
		HTTPOnly: true,
		Secure:   h.secureCookies,
		SameSite: "Lax",
		Path:     "/",
	})
}

func (h *AuthHandler) clearSessionCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour),
		HTTPOnly: true,
		Secure:   h.secureCookies,
		SameSite: "Lax",
		Path:     "/",
	})
}

func toPrincipalResponse(p *domain.Principal) dto.PrincipalResponse {
	return dto.PrincipalResponse{
		ID:                 p.ID,
		Email:              p.Email,
		DisplayName:        p.DisplayName,
		Role:               string(p.Role),
		TwoFactorRequired:  p.TwoFactorRequired,
		TwoFactorSatisfied: p.TwoFactorSatisfied,
	}
}
