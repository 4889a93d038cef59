package auth

import (
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/medhaven/portal-auth/internal/domain"
)

// CookieName carries the session token on browser navigations. API clients
// may send the same token as a bearer header instead.
const CookieName = "hc_session"

// SessionClaims is the signed session payload. The token is the only place
// session state lives; every mutation re-signs and re-emits it.
type SessionClaims struct {
	Email              string      `json:"email"`
	Name               string      `json:"name"`
	Role               domain.Role `json:"role"`
	Bearer             string      `json:"bearer"`
	TwoFactorRequired  bool        `json:"tfa_required"`
	TwoFactorSatisfied bool        `json:"tfa_satisfied"`
	jwt.RegisteredClaims
}

// Principal materializes the claims into the identity handed to handlers.
func (c *SessionClaims) Principal() domain.Principal {
	return domain.Principal{
		ID:                 c.Subject,
		Email:              c.Email,
		DisplayName:        c.Name,
		Role:               c.Role,
		BearerCredential:   c.Bearer,
		TwoFactorRequired:  c.TwoFactorRequired,
		TwoFactorSatisfied: c.TwoFactorSatisfied,
	}
}

// TokenManager handles issuing, validating and refreshing session tokens.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenManager builds a new manager.
func NewTokenManager(secret string, ttlMinutes int) *TokenManager {
	if ttlMinutes <= 0 {
		ttlMinutes = 60
	}
	return &TokenManager{secret: []byte(secret), ttl: time.Duration(ttlMinutes) * time.Minute}
}

// ErrIncompleteIdentity is returned when issuance would produce a partial
// session. No token is emitted in that case.
var ErrIncompleteIdentity = errors.New("identity record missing id or bearer credential")

// Issue mints a session token for a verified identity, whether it came from
// a password login or the external provider. TwoFactorSatisfied always
// starts false: trust is session-scoped, never carried over from an earlier
// session on the same device.
func (tm *TokenManager) Issue(identity *domain.VerifiedIdentity) (string, time.Time, error) {
	if identity == nil || !identity.Complete() {
		return "", time.Time{}, ErrIncompleteIdentity
	}

	now := time.Now()
	expiresAt := now.Add(tm.ttl)
	claims := &SessionClaims{
		Email:              identity.Email,
		Name:               identity.DisplayName,
		Role:               identity.Role,
		Bearer:             identity.BearerCredential,
		TwoFactorRequired:  identity.TwoFactorRequired,
		TwoFactorSatisfied: false,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.ID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	return tm.sign(claims, expiresAt)
}

// Parse validates signature and expiry, then returns claims. An unsigned,
// tampered or expired token is equivalent to no session.
func (tm *TokenManager) Parse(tokenStr string) (*SessionClaims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return tm.secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(*SessionClaims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

// RefreshPatch lists the fields a refresh may override. Nil fields keep
// their current value.
type RefreshPatch struct {
	Email              *string
	Name               *string
	Bearer             *string
	TwoFactorSatisfied *bool
}

// Refresh re-merges and re-signs an existing token. It is the only path
// that can flip TwoFactorSatisfied to true. Expiry and issue time carry
// over unchanged: a refresh is a field update, not a new session.
func (tm *TokenManager) Refresh(tokenStr string, patch RefreshPatch) (string, time.Time, error) {
	claims, err := tm.Parse(tokenStr)
	if err != nil {
		return "", time.Time{}, err
	}

	if patch.Email != nil {
		claims.Email = *patch.Email
	}
	if patch.Name != nil {
		claims.Name = *patch.Name
	}
	if patch.Bearer != nil {
		claims.Bearer = *patch.Bearer
	}
	if patch.TwoFactorSatisfied != nil {
		claims.TwoFactorSatisfied = *patch.TwoFactorSatisfied
	}

	return tm.sign(claims, claims.ExpiresAt.Time)
}

// TTL exposes the configured session lifetime for cookie expiry.
func (tm *TokenManager) TTL() time.Duration {
	return tm.ttl
}

func (tm *TokenManager) sign(claims *SessionClaims, expiresAt time.Time) (string, time.Time, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(tm.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}
