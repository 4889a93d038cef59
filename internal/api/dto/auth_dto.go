package dto

import "time"

// LoginRequest payload for password login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TwoFactorRequest payload for one-time code submission.
type TwoFactorRequest struct {
	Code string `json:"code"`
}

// SessionResponse standard response for session-issuing endpoints.
type SessionResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// PrincipalResponse echoes the authenticated identity. The bearer
// credential is never included: it stays inside the signed token.
type PrincipalResponse struct {
	ID                 string `json:"id"`
	Email              string `json:"email"`
	DisplayName        string `json:"display_name"`
	Role               string `json:"role"`
	TwoFactorRequired  bool   `json:"two_factor_required"`
	TwoFactorSatisfied bool   `json:"two_factor_satisfied"`
}
