package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/medhaven/portal-auth/internal/config"
	"github.com/medhaven/portal-auth/internal/domain"
)

// Provider drives the alternate login path through an external OAuth
// identity provider: authorization-code exchange followed by a userinfo
// fetch, producing the same VerifiedIdentity record as a password login.
type Provider struct {
	oauth       *oauth2.Config
	userInfoURL string
	logger      *zap.Logger
}

// NewProvider builds the provider from config. Returns nil when the
// alternate login path is not configured.
func NewProvider(cfg config.OAuthConfig, logger *zap.Logger) *Provider {
	if !cfg.Enabled() {
		return nil
	}
	return &Provider{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       cfg.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  cfg.AuthURL,
				TokenURL: cfg.TokenURL,
			},
		},
		userInfoURL: cfg.UserInfoURL,
		logger:      logger,
	}
}

// AuthCodeURL returns the provider login URL bound to the given state nonce.
func (p *Provider) AuthCodeURL(state string) string {
	return p.oauth.AuthCodeURL(state)
}

type userInfoReply struct {
	ID                string `json:"id"`
	Email             string `json:"email"`
	Name              string `json:"name"`
	Role              string `json:"role"`
	TwoFactorRequired bool   `json:"two_factor_required"`
}

// Exchange trades the authorization code for a token and resolves the
// provider identity. A rejected code surfaces as ErrInvalidCredentials;
// provider outages as ErrUpstream.
func (p *Provider) Exchange(ctx context.Context, code string) (*domain.VerifiedIdentity, error) {
	tok, err := p.oauth.Exchange(ctx, code)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.Response != nil &&
			retrieveErr.Response.StatusCode >= 400 && retrieveErr.Response.StatusCode < 500 {
			return nil, ErrInvalidCredentials
		}
		p.logger.Warn("oauth exchange failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	resp, err := p.oauth.Client(ctx, tok).Do(req)
	if err != nil {
		p.logger.Warn("oauth userinfo failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		p.logger.Warn("oauth userinfo unexpected status", zap.Int("status", resp.StatusCode))
		return nil, ErrUpstream
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	var payload userInfoReply
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	role, err := domain.ParseRole(payload.Role)
	if err != nil {
		p.logger.Error("oauth userinfo unknown role", zap.String("role", payload.Role))
		return nil, ErrUpstream
	}

	identity := &domain.VerifiedIdentity{
		ID:                payload.ID,
		Email:             payload.Email,
		DisplayName:       payload.Name,
		Role:              role,
		BearerCredential:  tok.AccessToken,
		TwoFactorRequired: payload.TwoFactorRequired,
	}
	if !identity.Complete() {
		return nil, ErrUpstream
	}
	return identity, nil
}
