package identity

import (
	"context"
	"errors"
	"regexp"

	"github.com/medhaven/portal-auth/internal/domain"
)

// Typed verifier failures. Callers map these onto the HTTP error taxonomy.
var (
	// ErrInvalidCredentials covers both "wrong password" and "no such
	// account". The two are deliberately indistinguishable.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidCode covers a rejected, malformed or replayed one-time code.
	ErrInvalidCode = errors.New("invalid verification code")
	// ErrUpstream covers transport failures, timeouts and backend 5xx.
	ErrUpstream = errors.New("identity backend unavailable")
)

// Verifier validates credentials and one-time codes against an identity
// backend. Implementations perform a single attempt; retry policy belongs to
// the caller.
type Verifier interface {
	// VerifyCredentials checks an email/password pair and returns the
	// verified identity record on success.
	VerifyCredentials(ctx context.Context, email, password string) (*domain.VerifiedIdentity, error)

	// VerifyOneTimeCode checks a second-factor code for the given principal.
	// The call is authenticated: the session's bearer credential is forwarded
	// to the backend.
	VerifyOneTimeCode(ctx context.Context, principalID, bearer, code string) error
}

var codePattern = regexp.MustCompile(`^[0-9]{6}$`)

// ValidCodeFormat reports whether a submitted code has the required
// six-digit shape. Checked before any backend call.
func ValidCodeFormat(code string) bool {
	return codePattern.MatchString(code)
}
