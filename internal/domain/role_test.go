package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole_KnownRoles(t *testing.T) {
	for _, name := range []string{"PATIENT", "HEALTHCARE", "PHARMACY", "ADMIN"} {
		role, err := ParseRole(name)
		require.NoError(t, err)
		assert.Equal(t, Role(name), role)
	}
}

func TestParseRole_RejectsUnknown(t *testing.T) {
	_, err := ParseRole("SUPERUSER")
	assert.Error(t, err)

	_, err = ParseRole("patient")
	assert.Error(t, err, "role names are case sensitive")

	_, err = ParseRole("")
	assert.Error(t, err)
}

func TestLandingPath_PerRole(t *testing.T) {
	assert.Equal(t, "/dashboard", LandingPath(RolePatient))
	assert.Equal(t, "/clinic", LandingPath(RoleHealthcare))
	assert.Equal(t, "/pharmacy", LandingPath(RolePharmacy))
	assert.Equal(t, "/admin", LandingPath(RoleAdmin))
	assert.Equal(t, "/dashboard", LandingPath(Role("BOGUS")))
}

func TestPrincipal_FullyAuthenticated(t *testing.T) {
	assert.True(t, Principal{TwoFactorRequired: false}.FullyAuthenticated())
	assert.False(t, Principal{TwoFactorRequired: true}.FullyAuthenticated())
	assert.True(t, Principal{TwoFactorRequired: true, TwoFactorSatisfied: true}.FullyAuthenticated())
}
