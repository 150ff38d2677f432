package auth

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/joy-dx/auroraproxy/dto"
	"github.com/joy-dx/auroraproxy/relays"
	"github.com/joy-dx/auroraproxy/utils"
	relayDTO "github.com/joy-dx/relay/dto"
	"golang.org/x/sync/singleflight"
)

const strategySession = "session"

// SessionAuthenticator owns the process-wide session credential. Concurrent
// logins collapse into one in-flight call; callers that lose a race with an
// invalidation at worst trigger one redundant login.
type SessionAuthenticator struct {
	provider   dto.AuthProvider
	cache      *CredentialCache
	sessionTTL time.Duration
	relay      relayDTO.RelayInterface
	group      singleflight.Group
	logins     atomic.Int64

	loginTimeout time.Duration
}

func NewSessionAuthenticator(provider dto.AuthProvider, cache *CredentialCache, sessionTTL time.Duration, relay relayDTO.RelayInterface) *SessionAuthenticator {
	return &SessionAuthenticator{
		provider:   provider,
		cache:      cache,
		sessionTTL: sessionTTL,
		relay:      relay,
	}
}

// WithLoginTimeout bounds a shared login. Zero leaves it to the provider.
func (a *SessionAuthenticator) WithLoginTimeout(d time.Duration) *SessionAuthenticator {
	a.loginTimeout = d
	return a
}

// EnsureAuthenticated reports whether a usable credential is cached or could
// be obtained.
func (a *SessionAuthenticator) EnsureAuthenticated(ctx context.Context) bool {
	_, err := a.Credential(ctx)
	return err == nil
}

// Credential returns the cached credential, logging in when there is none.
func (a *SessionAuthenticator) Credential(ctx context.Context) (dto.TokenInfo, error) {
	if tok, ok := a.cache.Get(); ok {
		return tok, nil
	}
	return a.Authenticate(ctx)
}

// Authenticate always performs a login, regardless of cache state. Callers
// arriving while a login is in flight share it. The login itself outlives
// any one caller giving up, bounded by the login timeout.
func (a *SessionAuthenticator) Authenticate(ctx context.Context) (dto.TokenInfo, error) {
	flightCtx := context.WithoutCancel(ctx)
	ch := a.group.DoChan("login", func() (interface{}, error) {
		loginCtx := flightCtx
		if a.loginTimeout > 0 {
			var cancel context.CancelFunc
			loginCtx, cancel = context.WithTimeout(flightCtx, a.loginTimeout)
			defer cancel()
		}
		a.logins.Add(1)
		tok, err := a.provider.Authenticate(loginCtx)
		if err != nil {
			a.relay.Warn(relays.RlyAuth{Strategy: strategySession, Msg: "upstream login failed: " + err.Error()})
			return dto.TokenInfo{}, err
		}
		a.cache.Set(tok)
		a.relay.Info(relays.RlyAuth{
			Strategy:    strategySession,
			Fingerprint: utils.Fingerprint(tok.Value()),
			Expiry:      tok.Expiry,
			Msg:         "upstream session established",
		})
		return tok, nil
	})

	select {
	case <-ctx.Done():
		return dto.TokenInfo{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return dto.TokenInfo{}, res.Err
		}
		return res.Val.(dto.TokenInfo), nil
	}
}

// Invalidate drops tok after the upstream rejected it.
func (a *SessionAuthenticator) Invalidate(tok dto.TokenInfo) {
	if a.cache.Invalidate(tok) {
		a.relay.Info(relays.RlyAuth{
			Strategy:    strategySession,
			Fingerprint: utils.Fingerprint(tok.Value()),
			Msg:         "upstream session invalidated",
		})
	}
}

// Capture stores the credential carried by a login response the proxy passed
// through on behalf of a browser.
func (a *SessionAuthenticator) Capture(resp dto.Response) (dto.TokenInfo, error) {
	tok, err := CaptureCredential(resp, a.sessionTTL, time.Now())
	if err != nil {
		return dto.TokenInfo{}, err
	}
	a.cache.Set(tok)
	a.relay.Info(relays.RlyAuth{
		Strategy:    strategySession,
		Fingerprint: utils.Fingerprint(tok.Value()),
		Expiry:      tok.Expiry,
		Msg:         "captured session from login pass-through",
	})
	return tok, nil
}

// Cached returns the current credential without logging in.
func (a *SessionAuthenticator) Cached() (dto.TokenInfo, bool) {
	return a.cache.Get()
}

func (a *SessionAuthenticator) Expiry() time.Time {
	return a.cache.Expiry()
}

// Logins counts login calls issued so far.
func (a *SessionAuthenticator) Logins() int64 {
	return a.logins.Load()
}

// IsConfigurationError separates "nothing to log in with" from a rejected
// login.
func IsConfigurationError(err error) bool {
	return errors.Is(err, dto.ErrMissingCredentials)
}
