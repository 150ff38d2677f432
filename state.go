package auroraproxy

import (
	"context"
	"errors"
	"fmt"

	"github.com/joy-dx/auroraproxy/auth"
	"github.com/joy-dx/auroraproxy/client/httpclient"
	"github.com/joy-dx/auroraproxy/dto"
	"github.com/joy-dx/auroraproxy/identity"
	"github.com/joy-dx/auroraproxy/relays"
)

func (s *ProxySvc) State() *dto.ProxyState {
	state := &dto.ProxyState{
		UpstreamURL:        s.cfg.UpstreamURL,
		RequestTimeout:     s.cfg.RequestTimeout,
		SlowRequestTimeout: s.cfg.SlowRequestTimeout,
		MaxAttempts:        s.cfg.MaxAttempts,
		UserAgent:          s.cfg.UserAgent,
		ExtraHeaders:       s.cfg.ExtraHeaders,
		APIKeyConfigured:   s.cfg.StaticAPIKey() != "",
		IdentityBridging:   s.verifier != nil,
		StreamTypes:        s.catalog.Types(),
		Streams:            s.streamState.GetAll(),
	}
	if s.session != nil {
		if tok, ok := s.session.Cached(); ok {
			state.Authenticated = true
			state.CredentialExpiry = tok.Expiry
		}
	}
	return state
}

// Hydrate wires the upstream client, the session authenticator and the
// optional identity bridge, then loads the stream catalog overlay.
func (s *ProxySvc) Hydrate(ctx context.Context) error {
	if s.cfg == nil {
		return errors.New("no proxy config")
	}
	if s.relay == nil {
		return errors.New("no relay implementation")
	}
	if err := s.cfg.Validate(); err != nil {
		return fmt.Errorf("invalid proxy config: %w", err)
	}

	if _, ok := s.client(dto.UPSTREAM_CLIENT_REF); !ok {
		clientCfg := httpclient.DefaultHTTPClientConfig()
		clientCfg.WithMiddleware(
			httpclient.StaticHeaderMiddleware(s.cfg.ExtraHeaders),
			httpclient.UserAgentMiddleware(s.cfg.UserAgent),
			httpclient.LoggingMiddleware(s.relay),
		)
		s.RegisterClient(dto.UPSTREAM_CLIENT_REF, httpclient.NewHTTPClient(dto.UPSTREAM_CLIENT_REF, &clientCfg))
	}

	username, password, _ := s.cfg.LoginCredentials()
	provider := auth.NewLoginProvider(s, auth.LoginConfig{
		URL:        s.upstreamURL(s.cfg.LoginPath),
		Username:   username,
		Password:   password,
		BodyType:   s.cfg.LoginBodyType,
		Timeout:    s.cfg.RequestTimeout,
		SessionTTL: s.cfg.SessionTTL,
	})
	s.session = auth.NewSessionAuthenticator(provider, auth.NewCredentialCache(s.cfg.RefreshBuffer), s.cfg.SessionTTL, s.relay).
		WithLoginTimeout(s.cfg.RequestTimeout)

	// Key sets and token sources refresh in the background for the life of
	// the service, not of the hydrate call.
	longCtx := context.WithoutCancel(ctx)

	if s.verifier == nil && s.cfg.Identity.Enabled() {
		verifier, err := identity.NewVerifier(longCtx, s.cfg.Identity)
		if err != nil {
			return fmt.Errorf("identity verifier: %w", err)
		}
		s.verifier = verifier
		s.relay.Info(relays.RlyProxyLog{Msg: "Identity bridging enabled using " + verifier.Source() + " keys"})
	}
	if s.service == nil && s.cfg.ServiceCredential.Enabled() {
		cred, err := auth.NewServiceCredential(longCtx, s.cfg.ServiceCredential, s.cfg.APIKeyHeader)
		if err != nil {
			return fmt.Errorf("service credential: %w", err)
		}
		s.service = cred
		s.relay.Info(relays.RlyProxyLog{Msg: "Service credential configured (" + cred.Kind() + ")"})
	}

	if s.cfg.Catalog.Enabled() {
		if err := s.loadCatalogOverlay(ctx); err != nil {
			return err
		}
	}

	if s.cfg.StaticAPIKey() == "" {
		if _, _, ok := s.cfg.LoginCredentials(); !ok {
			s.relay.Warn(relays.RlyProxyLog{Msg: "No upstream API key or session credentials configured"})
		}
	}
	s.relay.Info(relays.RlyProxyLog{Msg: "Proxy service hydrated for " + s.cfg.UpstreamURL})
	return nil
}
