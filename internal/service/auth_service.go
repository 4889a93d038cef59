package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/medhaven/portal-auth/internal/auth"
	"github.com/medhaven/portal-auth/internal/domain"
	"github.com/medhaven/portal-auth/internal/identity"
	"github.com/medhaven/portal-auth/internal/observability"
	apperrors "github.com/medhaven/portal-auth/pkg/util"
)

// Session is an issued token plus its expiry, handed to the transport layer
// for cookie and response-body emission.
type Session struct {
	Token     string
	ExpiresAt time.Time
}

// AuthService coordinates login, two-factor and provider flows.
type AuthService struct {
	verifier identity.Verifier
	tokens   *auth.TokenManager
	limiter  *AttemptLimiter
	provider *identity.Provider
	metrics  *observability.Metrics
	logger   *zap.Logger
}

// AuthDependencies bundles collaborator requirements for the auth service.
type AuthDependencies struct {
	Verifier identity.Verifier
	Tokens   *auth.TokenManager
	Limiter  *AttemptLimiter
	Provider *identity.Provider
	Metrics  *observability.Metrics
	Logger   *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(deps AuthDependencies) *AuthService {
	return &AuthService{
		verifier: deps.Verifier,
		tokens:   deps.Tokens,
		limiter:  deps.Limiter,
		provider: deps.Provider,
		metrics:  deps.Metrics,
		logger:   deps.Logger,
	}
}

// Login verifies credentials and mints a fresh session. The new session
// always starts with the second factor unsatisfied.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.Principal, *Session, error) {
	if err := s.limiter.EnforceLogin(ctx, email); err != nil {
		s.metrics.RecordLogin("rate_limited")
		return nil, nil, err
	}

	verified, err := s.verifier.VerifyCredentials(ctx, email, password)
	if err != nil {
		switch {
		case errors.Is(err, identity.ErrInvalidCredentials):
			s.metrics.RecordLogin("invalid_credentials")
			return nil, nil, apperrors.NewInvalidCredentials()
		case errors.Is(err, identity.ErrUpstream):
			s.metrics.RecordLogin("upstream_error")
			s.logger.Error("login upstream failure", zap.Error(err))
			return nil, nil, apperrors.NewUpstreamError(err)
		default:
			s.metrics.RecordLogin("upstream_error")
			return nil, nil, apperrors.NewInternalError(err)
		}
	}

	token, expiresAt, err := s.tokens.Issue(verified)
	if err != nil {
		s.metrics.RecordLogin("upstream_error")
		s.logger.Error("session issuance failed", zap.Error(err))
		return nil, nil, apperrors.NewInternalError(err)
	}

	s.limiter.ResetLogin(ctx, email)
	s.metrics.RecordLogin("ok")

	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil, nil, apperrors.NewInternalError(err)
	}
	principal := claims.Principal()
	return &principal, &Session{Token: token, ExpiresAt: expiresAt}, nil
}

// SubmitTwoFactorCode drives the pending -> verified transition. Sessions
// already past the gate (no 2FA required, or already verified) short-circuit
// to success without touching the backend, so a repeated correct submission
// is observably idempotent. A failed attempt leaves the session unchanged.
func (s *AuthService) SubmitTwoFactorCode(ctx context.Context, rawToken, code string) (*domain.Principal, *Session, error) {
	claims, err := s.tokens.Parse(rawToken)
	if err != nil {
		s.metrics.RecordTwoFactor("unauthenticated")
		return nil, nil, apperrors.NewUnauthenticated("invalid session")
	}

	switch auth.StateOf(claims) {
	case auth.StateNone, auth.StateVerified:
		principal := claims.Principal()
		return &principal, &Session{Token: rawToken, ExpiresAt: claims.ExpiresAt.Time}, nil
	case auth.StatePending:
		// fall through to verification
	}

	if code == "" {
		s.metrics.RecordTwoFactor("missing_code")
		return nil, nil, apperrors.NewMissingCode()
	}
	if !identity.ValidCodeFormat(code) {
		s.metrics.RecordTwoFactor("invalid_code")
		return nil, nil, apperrors.NewInvalidCode()
	}

	if err := s.limiter.EnforceTwoFactor(ctx, claims.Subject); err != nil {
		s.metrics.RecordTwoFactor("rate_limited")
		return nil, nil, err
	}

	if err := s.verifier.VerifyOneTimeCode(ctx, claims.Subject, claims.Bearer, code); err != nil {
		switch {
		case errors.Is(err, identity.ErrInvalidCode):
			s.metrics.RecordTwoFactor("invalid_code")
			return nil, nil, apperrors.NewInvalidCode()
		case errors.Is(err, identity.ErrUpstream):
			s.metrics.RecordTwoFactor("upstream_error")
			s.logger.Error("2fa upstream failure", zap.Error(err))
			return nil, nil, apperrors.NewUpstreamError(err)
		default:
			s.metrics.RecordTwoFactor("upstream_error")
			return nil, nil, apperrors.NewInternalError(err)
		}
	}

	satisfied := true
	refreshed, expiresAt, err := s.tokens.Refresh(rawToken, auth.RefreshPatch{TwoFactorSatisfied: &satisfied})
	if err != nil {
		return nil, nil, apperrors.NewInternalError(err)
	}

	s.limiter.ResetTwoFactor(ctx, claims.Subject)
	s.metrics.RecordTwoFactor("ok")

	newClaims, err := s.tokens.Parse(refreshed)
	if err != nil {
		return nil, nil, apperrors.NewInternalError(err)
	}
	principal := newClaims.Principal()
	return &principal, &Session{Token: refreshed, ExpiresAt: expiresAt}, nil
}

// ProviderEnabled reports whether the alternate login path is configured.
func (s *AuthService) ProviderEnabled() bool {
	return s.provider != nil
}

// BeginProviderLogin returns the provider redirect URL and the state nonce
// the callback must echo.
func (s *AuthService) BeginProviderLogin() (url, state string) {
	state = uuid.NewString()
	return s.provider.AuthCodeURL(state), state
}

// CompleteProviderLogin exchanges the callback code and mints a session,
// same issuance rules as a password login.
func (s *AuthService) CompleteProviderLogin(ctx context.Context, code string) (*domain.Principal, *Session, error) {
	verified, err := s.provider.Exchange(ctx, code)
	if err != nil {
		switch {
		case errors.Is(err, identity.ErrInvalidCredentials):
			s.metrics.RecordLogin("invalid_credentials")
			return nil, nil, apperrors.NewInvalidCredentials()
		default:
			s.metrics.RecordLogin("upstream_error")
			s.logger.Error("provider login failure", zap.Error(err))
			return nil, nil, apperrors.NewUpstreamError(err)
		}
	}

	token, expiresAt, err := s.tokens.Issue(verified)
	if err != nil {
		return nil, nil, apperrors.NewInternalError(err)
	}
	s.metrics.RecordLogin("ok")

	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil, nil, apperrors.NewInternalError(err)
	}
	principal := claims.Principal()
	return &principal, &Session{Token: token, ExpiresAt: expiresAt}, nil
}

// Logout is a server-side no-op: sessions are stateless, so destroying one
// means the client discards the token. The handler clears the cookie.
func (s *AuthService) Logout(_ context.Context) error {
	return nil
}

// TokenManager exposes the underlying token manager for middleware wiring.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokens
}
