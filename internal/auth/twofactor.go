package auth

// TwoFactorState is the per-session second-factor state. Transitions are
// monotonic: a session can move from StatePending to StateVerified exactly
// once and never back; StateNone never transitions at all. Only issuing a
// brand-new session resets to StatePending.
type TwoFactorState int

const (
	// StateNone: the account does not require a second factor.
	StateNone TwoFactorState = iota
	// StatePending: the account requires a second factor and this session
	// has not satisfied it yet. Initial state for every fresh session on a
	// 2FA account.
	StatePending
	// StateVerified: the second factor was satisfied for this session.
	StateVerified
)

func (s TwoFactorState) String() string {
	switch s {
	case StateNone:
		return "none"
	case StatePending:
		return "pending"
	case StateVerified:
		return "verified"
	default:
		return "unknown"
	}
}

// Satisfied reports whether the state passes the full-authentication gate.
// StateNone and StateVerified both pass.
func (s TwoFactorState) Satisfied() bool {
	return s != StatePending
}

// StateOf derives the state from signed session claims. Because the state
// lives entirely in the token, concurrent submissions cannot corrupt it:
// each request reads its own immutable snapshot, and a spurious double
// verify is harmless.
func StateOf(claims *SessionClaims) TwoFactorState {
	switch {
	case !claims.TwoFactorRequired:
		return StateNone
	case claims.TwoFactorSatisfied:
		return StateVerified
	default:
		return StatePending
	}
}
