package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/medhaven/portal-auth/internal/api/http/handlers"
	"github.com/medhaven/portal-auth/internal/auth"
	"github.com/medhaven/portal-auth/internal/config"
	"github.com/medhaven/portal-auth/internal/domain"
	"github.com/medhaven/portal-auth/internal/identity"
	"github.com/medhaven/portal-auth/internal/observability"
	"github.com/medhaven/portal-auth/internal/service"
)

func testAccounts() []identity.MemoryAccount {
	return []identity.MemoryAccount{
		{
			ID:                "u1",
			Email:             "pat@example.com",
			DisplayName:       "Pat",
			Role:              domain.RolePatient,
			PasswordHash:      identity.HashPassword("correct-horse"),
			TwoFactorRequired: true,
			Code:              "123456",
		},
		{
			ID:           "d1",
			Email:        "doc@example.com",
			DisplayName:  "Doc",
			Role:         domain.RoleHealthcare,
			PasswordHash: identity.HashPassword("stethoscope"),
		},
		{
			ID:           "p1",
			Email:        "rx@example.com",
			DisplayName:  "Pharmacy",
			Role:         domain.RolePharmacy,
			PasswordHash: identity.HashPassword("mortar-pestle"),
		},
	}
}

func newTestApp(t *testing.T, oauthCfg config.OAuthConfig) *fiber.App {
	t.Helper()

	logger := zap.NewNop()
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	verifier := identity.NewMemory(testAccounts()...)
	tokens := auth.NewTokenManager("test-secret", 60)
	provider := identity.NewProvider(oauthCfg, logger)
	limiter := service.NewAttemptLimiter(nil, config.RateLimitConfig{}, logger)

	authService := service.NewAuthService(service.AuthDependencies{
		Verifier: verifier,
		Tokens:   tokens,
		Limiter:  limiter,
		Provider: provider,
		Metrics:  metrics,
		Logger:   logger,
	})

	app := fiber.New()
	RegisterMiddlewares(app, logger, metrics, 0)
	RegisterRoutes(app, RouteConfig{
		Health:   handlers.NewHealthHandler("portal-auth", "test", nil),
		Auth:     handlers.NewAuthHandler(authService, false),
		Pages:    handlers.NewPagesHandler(),
		Records:  handlers.NewRecordsHandler(),
		Guard:    auth.NewGuard(tokens, metrics),
		PageGate: auth.NewPageGate(tokens, metrics),
	})
	return app
}

func postJSON(t *testing.T, app *fiber.App, path string, payload any, cookie string) *http.Response {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if cookie != "" {
		req.AddCookie(&http.Cookie{Name: auth.CookieName, Value: cookie})
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func get(t *testing.T, app *fiber.App, path, cookie string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if cookie != "" {
		req.AddCookie(&http.Cookie{Name: auth.CookieName, Value: cookie})
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func sessionCookie(t *testing.T, resp *http.Response) string {
	t.Helper()
	for _, cookie := range resp.Cookies() {
		if cookie.Name == auth.CookieName {
			return cookie.Value
		}
	}
	t.Fatal("no session cookie in response")
	return ""
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func errorCode(t *testing.T, resp *http.Response) string {
	t.Helper()
	body := decodeBody(t, resp)
	errObj, ok := body["error"].(map[string]any)
	require.True(t, ok, "expected error envelope, got %v", body)
	code, _ := errObj["code"].(string)
	return code
}

func login(t *testing.T, app *fiber.App, email, password string) (*http.Response, string) {
	t.Helper()
	resp := postJSON(t, app, "/auth/login", map[string]string{
		"email": email, "password": password,
	}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	return resp, sessionCookie(t, resp)
}

func TestLogin_MissingFields(t *testing.T) {
	app := newTestApp(t, config.OAuthConfig{})

	resp := postJSON(t, app, "/auth/login", map[string]string{"email": "pat@example.com"}, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "MALFORMED_REQUEST", errorCode(t, resp))
}

func TestLogin_InvalidCredentials(t *testing.T) {
	app := newTestApp(t, config.OAuthConfig{})

	unknown := postJSON(t, app, "/auth/login", map[string]string{
		"email": "nobody@example.com", "password": "pw",
	}, "")
	wrongPw := postJSON(t, app, "/auth/login", map[string]string{
		"email": "pat@example.com", "password": "wrong",
	}, "")

	assert.Equal(t, http.StatusUnauthorized, unknown.StatusCode)
	assert.Equal(t, http.StatusUnauthorized, wrongPw.StatusCode)
	assert.Equal(t, "INVALID_CREDENTIALS", errorCode(t, unknown))
	assert.Equal(t, "INVALID_CREDENTIALS", errorCode(t, wrongPw))
}

func TestLogin_SetsSessionCookieAndReportsPendingState(t *testing.T) {
	app := newTestApp(t, config.OAuthConfig{})

	resp, cookie := login(t, app, "pat@example.com", "correct-horse")
	assert.NotEmpty(t, cookie)

	body := decodeBody(t, resp)
	data := body["data"].(map[string]any)
	principal := data["principal"].(map[string]any)
	assert.Equal(t, "u1", principal["id"])
	assert.Equal(t, true, principal["two_factor_required"])
	assert.Equal(t, false, principal["two_factor_satisfied"])
}

// TestPatientJourney walks the full flow: login, forced detour to the 2FA
// page, repeated wrong codes, verification, and finally a role-mismatched
// API call.
func TestPatientJourney(t *testing.T) {
	app := newTestApp(t, config.OAuthConfig{})

	_, cookie := login(t, app, "pat@example.com", "correct-horse")

	// Pending session: dashboard detours to the 2FA page.
	nav := get(t, app, "/dashboard", cookie)
	require.Equal(t, http.StatusFound, nav.StatusCode)
	require.Equal(t, auth.TwoFactorPath, nav.Header.Get("Location"))

	// Pending session: guarded API is closed too, not just the pages.
	api := get(t, app, "/api/me", cookie)
	require.Equal(t, http.StatusUnauthorized, api.StatusCode)
	require.Equal(t, "TWO_FACTOR_REQUIRED", errorCode(t, api))

	// Six wrong codes: typed error every time, state unchanged.
	for i := 0; i < 6; i++ {
		bad := postJSON(t, app, "/auth/2fa/submit", map[string]string{"code": "000000"}, cookie)
		require.Equal(t, http.StatusBadRequest, bad.StatusCode)
		require.Equal(t, "INVALID_CODE", errorCode(t, bad))
	}
	stillPending := get(t, app, "/dashboard", cookie)
	require.Equal(t, http.StatusFound, stillPending.StatusCode)

	// Correct code: session upgraded, new cookie emitted.
	ok := postJSON(t, app, "/auth/2fa/submit", map[string]string{"code": "123456"}, cookie)
	require.Equal(t, http.StatusOK, ok.StatusCode)
	verified := sessionCookie(t, ok)
	require.NotEqual(t, cookie, verified)

	// Dashboard now opens.
	opened := get(t, app, "/dashboard", verified)
	assert.Equal(t, http.StatusOK, opened.StatusCode)

	// API opens too.
	me := get(t, app, "/api/me", verified)
	assert.Equal(t, http.StatusOK, me.StatusCode)

	// A pharmacy-only endpoint still refuses the patient role.
	orders := get(t, app, "/api/pharmacy/orders", verified)
	assert.Equal(t, http.StatusForbidden, orders.StatusCode)
	assert.Equal(t, "FORBIDDEN", errorCode(t, orders))
}

func TestTwoFactorSubmit_WithoutSession(t *testing.T) {
	app := newTestApp(t, config.OAuthConfig{})

	resp := postJSON(t, app, "/auth/2fa/submit", map[string]string{"code": "123456"}, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "UNAUTHENTICATED", errorCode(t, resp))
}

func TestTwoFactorSubmit_MissingCode(t *testing.T) {
	app := newTestApp(t, config.OAuthConfig{})
	_, cookie := login(t, app, "pat@example.com", "correct-horse")

	resp := postJSON(t, app, "/auth/2fa/submit", map[string]string{}, cookie)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "MISSING_CODE", errorCode(t, resp))
}

func TestPatientRecords_OwnershipEnforcedInHandler(t *testing.T) {
	app := newTestApp(t, config.OAuthConfig{})

	_, pending := login(t, app, "pat@example.com", "correct-horse")
	ok := postJSON(t, app, "/auth/2fa/submit", map[string]string{"code": "123456"}, pending)
	require.Equal(t, http.StatusOK, ok.StatusCode)
	patient := sessionCookie(t, ok)

	own := get(t, app, "/api/patients/u1/records", patient)
	assert.Equal(t, http.StatusOK, own.StatusCode)

	other := get(t, app, "/api/patients/u2/records", patient)
	assert.Equal(t, http.StatusForbidden, other.StatusCode)

	// A clinician is not bound by ownership.
	_, doctor := login(t, app, "doc@example.com", "stethoscope")
	clinician := get(t, app, "/api/patients/u1/records", doctor)
	assert.Equal(t, http.StatusOK, clinician.StatusCode)
}

func TestPharmacyOrders_AllowedForPharmacyRole(t *testing.T) {
	app := newTestApp(t, config.OAuthConfig{})
	_, pharmacy := login(t, app, "rx@example.com", "mortar-pestle")

	resp := get(t, app, "/api/pharmacy/orders", pharmacy)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestLogout_ClearsSessionCookie(t *testing.T) {
	app := newTestApp(t, config.OAuthConfig{})
	_, cookie := login(t, app, "doc@example.com", "stethoscope")

	resp := postJSON(t, app, "/auth/logout", map[string]string{}, cookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var cleared bool
	for _, c := range resp.Cookies() {
		if c.Name == auth.CookieName {
			cleared = c.Value == ""
		}
	}
	assert.True(t, cleared, "logout must clear the session cookie")
}

func TestOAuthStart_NotConfigured(t *testing.T) {
	app := newTestApp(t, config.OAuthConfig{})

	resp := get(t, app, "/auth/oauth/start", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestOAuthFlow_CallbackIssuesSession(t *testing.T) {
	providerMux := http.NewServeMux()
	providerMux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"provider-tok","token_type":"bearer"}`))
	})
	providerMux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer provider-tok", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"d1","email":"doc@example.com","name":"Doc","role":"HEALTHCARE"}`))
	})
	provider := httptest.NewServer(providerMux)
	t.Cleanup(provider.Close)

	app := newTestApp(t, config.OAuthConfig{
		ClientID:     "client",
		ClientSecret: "secret",
		AuthURL:      provider.URL + "/authorize",
		TokenURL:     provider.URL + "/token",
		RedirectURL:  "http://portal.example.com/auth/oauth/callback",
		UserInfoURL:  provider.URL + "/userinfo",
		Scopes:       []string{"openid"},
	})

	start := get(t, app, "/auth/oauth/start", "")
	require.Equal(t, http.StatusFound, start.StatusCode)
	location := start.Header.Get("Location")
	require.True(t, strings.HasPrefix(location, provider.URL+"/authorize"))

	var state string
	for _, c := range start.Cookies() {
		if c.Name == "hc_oauth_state" {
			state = c.Value
		}
	}
	require.NotEmpty(t, state)

	req := httptest.NewRequest(http.MethodGet, "/auth/oauth/callback?code=abc&state="+state, nil)
	req.AddCookie(&http.Cookie{Name: "hc_oauth_state", Value: state})
	callback, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusFound, callback.StatusCode)
	assert.Equal(t, "/clinic", callback.Header.Get("Location"))
	assert.NotEmpty(t, sessionCookie(t, callback))
}

func TestOAuthCallback_StateMismatchFailsClosed(t *testing.T) {
	app := newTestApp(t, config.OAuthConfig{
		ClientID: "client", AuthURL: "http://idp.example.com/authorize",
		TokenURL: "http://idp.example.com/token",
	})

	req := httptest.NewRequest(http.MethodGet, "/auth/oauth/callback?code=abc&state=one", nil)
	req.AddCookie(&http.Cookie{Name: "hc_oauth_state", Value: "two"})
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "UNAUTHENTICATED", errorCode(t, resp))
}

func TestHealthLive(t *testing.T) {
	app := newTestApp(t, config.OAuthConfig{})

	resp := get(t, app, "/health/live", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
