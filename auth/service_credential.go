package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/joy-dx/auroraproxy/config"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

var ErrNoServiceCredential = errors.New("no service credential configured")

// ServiceCredential is the proxy's own upstream identity. It implements
// dto.CredentialSource with either an OAuth2 client-credentials token or a
// static API key header.
type ServiceCredential struct {
	apiKeyHeader string
	apiKey       string
	source       oauth2.TokenSource
}

// NewServiceCredential builds the credential. ctx is kept by the token source
// for every refresh and must outlive it.
func NewServiceCredential(ctx context.Context, cfg config.ServiceCredentialConfig, apiKeyHeader string) (*ServiceCredential, error) {
	if !cfg.Enabled() {
		return nil, ErrNoServiceCredential
	}
	if apiKeyHeader == "" {
		apiKeyHeader = config.DefaultAPIKeyHeader
	}
	s := &ServiceCredential{apiKeyHeader: apiKeyHeader, apiKey: cfg.APIKey}
	if cfg.OAuthEnabled() {
		cc := clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
			Scopes:       cfg.Scopes,
		}
		s.source = oauth2.ReuseTokenSource(nil, cc.TokenSource(ctx))
	}
	return s, nil
}

// NewServiceCredentialFromSource wraps an existing token source.
func NewServiceCredentialFromSource(source oauth2.TokenSource) *ServiceCredential {
	return &ServiceCredential{source: source}
}

func (s *ServiceCredential) Header(ctx context.Context) (http.Header, error) {
	h := http.Header{}
	if s.source != nil {
		tok, err := s.source.Token()
		if err != nil {
			return nil, fmt.Errorf("oauth2 token fetch: %w", err)
		}
		h.Set("Authorization", tok.Type()+" "+tok.AccessToken)
		return h, nil
	}
	if s.apiKey == "" {
		return nil, ErrNoServiceCredential
	}
	h.Set(s.apiKeyHeader, s.apiKey)
	return h, nil
}

// Kind names the mechanism for logs and state snapshots.
func (s *ServiceCredential) Kind() string {
	if s.source != nil {
		return "oauth2"
	}
	return "api_key"
}
