package domain

import "fmt"

// Role enumerates the closed set of platform roles. Assigned at account
// creation by the identity backend; never changed by this service.
type Role string

const (
	RolePatient    Role = "PATIENT"
	RoleHealthcare Role = "HEALTHCARE"
	RolePharmacy   Role = "PHARMACY"
	RoleAdmin      Role = "ADMIN"
)

// ParseRole validates a role string coming from the identity backend or a
// token claim.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RolePatient, RoleHealthcare, RolePharmacy, RoleAdmin:
		return Role(s), nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// LandingPath maps each role to its default authenticated landing page.
// Single exhaustive dispatch table; unknown roles fall back to the patient
// dashboard, which the page gate will re-vet anyway.
func LandingPath(r Role) string {
	switch r {
	case RoleHealthcare:
		return "/clinic"
	case RolePharmacy:
		return "/pharmacy"
	case RoleAdmin:
		return "/admin"
	case RolePatient:
		return "/dashboard"
	default:
		return "/dashboard"
	}
}
