package auth

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/joy-dx/auroraproxy/client/httpclient"
	"github.com/joy-dx/auroraproxy/dto"
)

// LoginConfig describes the upstream login exchange.
type LoginConfig struct {
	URL      string
	Username string
	Password string
	// BodyType application/json or application/x-www-form-urlencoded
	BodyType   string
	Timeout    time.Duration
	SessionTTL time.Duration
}

// LoginProvider implements dto.AuthProvider against the upstream login
// endpoint. It performs exactly one call per Authenticate.
type LoginProvider struct {
	requester dto.Requester
	cfg       LoginConfig
}

func NewLoginProvider(requester dto.Requester, cfg LoginConfig) *LoginProvider {
	if cfg.BodyType == "" {
		cfg.BodyType = "application/json"
	}
	return &LoginProvider{requester: requester, cfg: cfg}
}

func (p *LoginProvider) Authenticate(ctx context.Context) (dto.TokenInfo, error) {
	if p.cfg.Username == "" || p.cfg.Password == "" {
		return dto.TokenInfo{}, dto.ErrMissingCredentials
	}

	reqCfg := httpclient.DefaultHTTPRequestConfig()
	reqCfg.WithMethod(http.MethodPost).
		WithURL(p.cfg.URL).
		WithBodyType(p.cfg.BodyType).
		WithBody(map[string]interface{}{
			"username": p.cfg.Username,
			"password": p.cfg.Password,
		}).
		WithHeader("Accept", "application/json")

	rc := dto.DefaultRequestConfig()
	rc.WithReqConfig(&reqCfg).WithTaskName("login")
	if p.cfg.Timeout > 0 {
		rc.WithTimeout(p.cfg.Timeout)
	}

	resp, err := p.requester.RequestOnce(ctx, &rc)
	if err != nil {
		return dto.TokenInfo{}, fmt.Errorf("login request: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return dto.TokenInfo{}, fmt.Errorf("%w: login returned status %d", dto.ErrAuthenticationFailed, resp.StatusCode)
	}

	tok, err := CaptureCredential(resp, p.cfg.SessionTTL, time.Now())
	if err != nil {
		return dto.TokenInfo{}, fmt.Errorf("%w: %w", dto.ErrAuthenticationFailed, err)
	}
	return tok, nil
}
