package domain

// Principal is the authenticated identity resolved from a session token.
// ID and Role are immutable for the life of the session; the two-factor
// flags describe account requirement and session-scoped satisfaction.
type Principal struct {
	ID                string
	Email             string
	DisplayName       string
	Role              Role
	BearerCredential  string
	TwoFactorRequired bool
	// TwoFactorSatisfied is session-scoped: false on every fresh session,
	// flipped true only by a successful code submission.
	TwoFactorSatisfied bool
}

// FullyAuthenticated reports whether the principal has cleared every gate
// required for full access.
func (p Principal) FullyAuthenticated() bool {
	return !p.TwoFactorRequired || p.TwoFactorSatisfied
}
