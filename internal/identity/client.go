package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/medhaven/portal-auth/internal/config"
	"github.com/medhaven/portal-auth/internal/domain"
)

// Client talks to the external identity backend over HTTP. Every call is a
// single attempt bounded by the configured timeout; a circuit breaker keeps
// a failing backend from absorbing request capacity.
type Client struct {
	baseURL    string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[backendReply]
	logger     *zap.Logger
}

type backendReply struct {
	status int
	body   []byte
}

// NewClient builds a verifier client for the configured backend.
func NewClient(cfg config.IdentityConfig, logger *zap.Logger) *Client {
	settings := gobreaker.Settings{
		Name:     "identity-backend",
		Interval: 60 * time.Second,
		Timeout:  30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 5 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("identity breaker state change",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	}

	return &Client{
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{Timeout: cfg.Timeout()},
		breaker:    gobreaker.NewCircuitBreaker[backendReply](settings),
		logger:     logger,
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginReply struct {
	ID                string `json:"id"`
	Email             string `json:"email"`
	Name              string `json:"name"`
	Role              string `json:"role"`
	AccessToken       string `json:"access_token"`
	TwoFactorRequired bool   `json:"two_factor_required"`
}

type codeRequest struct {
	Code string `json:"code"`
}

// VerifyCredentials implements Verifier against POST {base}/login.
// Backend 401 and 404 both surface as ErrInvalidCredentials so an unknown
// email is indistinguishable from a wrong password.
func (c *Client) VerifyCredentials(ctx context.Context, email, password string) (*domain.VerifiedIdentity, error) {
	reply, err := c.post(ctx, "/login", "", loginRequest{Email: email, Password: password})
	if err != nil {
		return nil, err
	}

	switch reply.status {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusNotFound:
		return nil, ErrInvalidCredentials
	default:
		c.logger.Error("identity login unexpected status", zap.Int("status", reply.status))
		return nil, ErrUpstream
	}

	var payload loginReply
	if err := json.Unmarshal(reply.body, &payload); err != nil {
		c.logger.Error("identity login malformed body", zap.Error(err))
		return nil, ErrUpstream
	}

	role, err := domain.ParseRole(payload.Role)
	if err != nil {
		c.logger.Error("identity login unknown role", zap.String("role", payload.Role))
		return nil, ErrUpstream
	}

	identity := &domain.VerifiedIdentity{
		ID:                payload.ID,
		Email:             payload.Email,
		DisplayName:       payload.Name,
		Role:              role,
		BearerCredential:  payload.AccessToken,
		TwoFactorRequired: payload.TwoFactorRequired,
	}
	if !identity.Complete() {
		c.logger.Error("identity login incomplete record", zap.String("id", payload.ID))
		return nil, ErrUpstream
	}
	return identity, nil
}

// VerifyOneTimeCode implements Verifier against POST {base}/2fa/verify/{id}.
// The session's bearer credential authenticates the call.
func (c *Client) VerifyOneTimeCode(ctx context.Context, principalID, bearer, code string) error {
	reply, err := c.post(ctx, "/2fa/verify/"+principalID, bearer, codeRequest{Code: code})
	if err != nil {
		return err
	}

	switch reply.status {
	case http.StatusOK, http.StatusNoContent:
		return nil
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden,
		http.StatusNotFound, http.StatusUnprocessableEntity:
		return ErrInvalidCode
	default:
		c.logger.Error("identity 2fa unexpected status", zap.Int("status", reply.status))
		return ErrUpstream
	}
}

func (c *Client) post(ctx context.Context, path, bearer string, payload any) (backendReply, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return backendReply{}, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	reply, err := c.breaker.Execute(func() (backendReply, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
		if err != nil {
			return backendReply{}, err
		}
		req.Header.Set("Content-Type", "application/json")
		if bearer != "" {
			req.Header.Set("Authorization", "Bearer "+bearer)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return backendReply{}, err
		}
		defer resp.Body.Close() //nolint:errcheck

		data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return backendReply{}, err
		}

		reply := backendReply{status: resp.StatusCode, body: data}
		if resp.StatusCode >= http.StatusInternalServerError {
			// Counted as a breaker failure; the reply is discarded and the
			// caller sees ErrUpstream.
			return reply, fmt.Errorf("backend status %d", resp.StatusCode)
		}
		return reply, nil
	})
	if err != nil {
		c.logger.Warn("identity backend call failed", zap.String("path", path), zap.Error(err))
		return backendReply{}, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	return reply, nil
}
