package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/joy-dx/auroraproxy/config"
	"github.com/joy-dx/auroraproxy/dto"
)

var ErrNotConfigured = errors.New("identity verification is not configured")

// Verifier validates platform identity tokens (signed JWTs) presented by
// browsers on stream requests. Keys come from inline PEM, a JWKS URL or
// issuer discovery, in that order of preference.
type Verifier struct {
	verifier *oidc.IDTokenVerifier
	source   string
}

// NewVerifier builds a verifier. ctx is kept by remote key sets for key
// refreshes and must outlive the verifier.
func NewVerifier(ctx context.Context, cfg config.IdentityConfig) (*Verifier, error) {
	oidcCfg := &oidc.Config{
		ClientID:          cfg.Audience,
		SkipClientIDCheck: cfg.Audience == "",
		SkipIssuerCheck:   cfg.Issuer == "",
	}

	switch {
	case cfg.PublicKeysPEM != "":
		keys, err := ParsePublicKeys([]byte(cfg.PublicKeysPEM))
		if err != nil {
			return nil, err
		}
		keySet := &oidc.StaticKeySet{PublicKeys: keys}
		return &Verifier{verifier: oidc.NewVerifier(cfg.Issuer, keySet, oidcCfg), source: "pem"}, nil

	case cfg.JWKSURL != "":
		keySet := oidc.NewRemoteKeySet(ctx, cfg.JWKSURL)
		return &Verifier{verifier: oidc.NewVerifier(cfg.Issuer, keySet, oidcCfg), source: "jwks"}, nil

	case cfg.Issuer != "":
		provider, err := oidc.NewProvider(ctx, cfg.Issuer)
		if err != nil {
			return nil, fmt.Errorf("discover issuer %s: %w", cfg.Issuer, err)
		}
		return &Verifier{verifier: provider.Verifier(oidcCfg), source: "discovery"}, nil

	default:
		return nil, ErrNotConfigured
	}
}

func (v *Verifier) Verify(ctx context.Context, rawToken string) (dto.Identity, error) {
	tok, err := v.verifier.Verify(ctx, rawToken)
	if err != nil {
		return dto.Identity{}, fmt.Errorf("%w: %w", dto.ErrIdentityRejected, err)
	}
	return dto.Identity{
		Subject:  tok.Subject,
		Issuer:   tok.Issuer,
		Audience: tok.Audience,
		Expiry:   tok.Expiry,
	}, nil
}

// Source names where verification keys come from.
func (v *Verifier) Source() string {
	return v.source
}
