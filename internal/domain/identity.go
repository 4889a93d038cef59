package domain

// VerifiedIdentity is the record returned by the credential verifier after a
// successful password or provider login. It is the sole input to session
// issuance.
type VerifiedIdentity struct {
	ID                string
	Email             string
	DisplayName       string
	Role              Role
	BearerCredential  string
	TwoFactorRequired bool
}

// Complete reports whether the record carries the fields session issuance
// cannot proceed without.
func (v VerifiedIdentity) Complete() bool {
	return v.ID != "" && v.BearerCredential != ""
}
