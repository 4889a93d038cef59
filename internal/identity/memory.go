package identity

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/medhaven/portal-auth/internal/domain"
)

// MemoryAccount seeds one account in the in-process backend.
type MemoryAccount struct {
	ID                string
	Email             string
	DisplayName       string
	Role              domain.Role
	PasswordHash      string
	TwoFactorRequired bool
	// Code is the fixed one-time code the account accepts. Real deployments
	// delegate code generation to the external backend; the memory backend
	// only needs a deterministic value.
	Code string
}

// Memory is the in-process verifier used in development mode and tests. It
// mirrors the HTTP client's observable contract, including the
// anti-enumeration behavior of VerifyCredentials.
type Memory struct {
	mu       sync.RWMutex
	byEmail  map[string]*MemoryAccount
	byID     map[string]*MemoryAccount
	bearers  map[string]string
	fallback []byte
}

// NewMemory builds a seeded in-process backend.
func NewMemory(accounts ...MemoryAccount) *Memory {
	m := &Memory{
		byEmail: make(map[string]*MemoryAccount, len(accounts)),
		byID:    make(map[string]*MemoryAccount, len(accounts)),
		bearers: make(map[string]string),
		// Compared against when the email is unknown so both failure paths
		// cost one bcrypt comparison.
		fallback: mustHash("fallback-password"),
	}
	for i := range accounts {
		acct := accounts[i]
		m.byEmail[strings.ToLower(acct.Email)] = &acct
		m.byID[acct.ID] = &acct
	}
	return m
}

// VerifyCredentials implements Verifier.
func (m *Memory) VerifyCredentials(_ context.Context, email, password string) (*domain.VerifiedIdentity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	acct, ok := m.byEmail[strings.ToLower(email)]
	if !ok {
		_ = bcrypt.CompareHashAndPassword(m.fallback, []byte(password))
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	bearer := uuid.NewString()
	m.bearers[acct.ID] = bearer

	return &domain.VerifiedIdentity{
		ID:                acct.ID,
		Email:             acct.Email,
		DisplayName:       acct.DisplayName,
		Role:              acct.Role,
		BearerCredential:  bearer,
		TwoFactorRequired: acct.TwoFactorRequired,
	}, nil
}

// VerifyOneTimeCode implements Verifier. An unknown principal, a stale
// bearer credential and a wrong code all collapse into ErrInvalidCode.
func (m *Memory) VerifyOneTimeCode(_ context.Context, principalID, bearer, code string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	acct, ok := m.byID[principalID]
	if !ok {
		return ErrInvalidCode
	}
	if current, ok := m.bearers[principalID]; !ok || current != bearer {
		return ErrInvalidCode
	}
	if acct.Code == "" || acct.Code != code {
		return ErrInvalidCode
	}
	return nil
}

// HashPassword produces a bcrypt hash for seeding accounts.
func HashPassword(password string) string {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		panic(err)
	}
	return string(hashed)
}

func mustHash(password string) []byte {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		panic(err)
	}
	return hashed
}

// DevAccounts seeds the development backend with one account per role.
// Passwords and codes are fixtures, not secrets.
func DevAccounts() []MemoryAccount {
	return []MemoryAccount{
		{
			ID:                "pat-0001",
			Email:             "patient@medhaven.dev",
			DisplayName:       "Pat Moreno",
			Role:              domain.RolePatient,
			PasswordHash:      HashPassword("patient-pass"),
			TwoFactorRequired: true,
			Code:              "246810",
		},
		{
			ID:           "doc-0001",
			Email:        "doctor@medhaven.dev",
			DisplayName:  "Dr. Idris Okafor",
			Role:         domain.RoleHealthcare,
			PasswordHash: HashPassword("doctor-pass"),
		},
		{
			ID:           "pha-0001",
			Email:        "pharmacy@medhaven.dev",
			DisplayName:  "Central Pharmacy",
			Role:         domain.RolePharmacy,
			PasswordHash: HashPassword("pharmacy-pass"),
		},
		{
			ID:                "adm-0001",
			Email:             "admin@medhaven.dev",
			DisplayName:       "Platform Admin",
			Role:              domain.RoleAdmin,
			PasswordHash:      HashPassword("admin-pass"),
			TwoFactorRequired: true,
			Code:              "135790",
		},
	}
}
