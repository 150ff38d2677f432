package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/joy-dx/auroraproxy/dto"
	"github.com/joy-dx/auroraproxy/relays"
	"github.com/joy-dx/auroraproxy/utils"
	relayDTO "github.com/joy-dx/relay/dto"
)

const (
	DefaultLoginPath    = "/api/auth/login"
	DefaultAPIKeyHeader = "X-API-Key"
)

// AuthStrategies toggles the REST proxy's credential strategies. All enabled
// reproduces "API key first, session fallback, re-auth once on 401".
type AuthStrategies struct {
	APIKey               bool `json:"api_key" yaml:"api_key"`
	Session              bool `json:"session" yaml:"session"`
	ReauthOnUnauthorized bool `json:"reauth_on_unauthorized" yaml:"reauth_on_unauthorized"`
}

// IdentityConfig locates the keys used to validate platform identity tokens.
type IdentityConfig struct {
	Issuer   string `json:"issuer" yaml:"issuer"`
	Audience string `json:"audience" yaml:"audience"`
	JWKSURL  string `json:"jwks_url" yaml:"jwks_url"`
	// PublicKeysPEM one or more PEM encoded public keys
	PublicKeysPEM string `json:"-" yaml:"-"`
	// AllowUnverifiedPassthrough forwards a bearer token that failed
	// validation as-is instead of rejecting the stream.
	AllowUnverifiedPassthrough bool `json:"allow_unverified_passthrough" yaml:"allow_unverified_passthrough"`
}

func (c IdentityConfig) Enabled() bool {
	return c.JWKSURL != "" || c.PublicKeysPEM != "" || c.Issuer != ""
}

// ServiceCredentialConfig is the proxy's own upstream identity, substituted
// for validated browser identity tokens. OAuth client credentials win over a
// static key.
type ServiceCredentialConfig struct {
	APIKey       string   `json:"-" yaml:"-"`
	TokenURL     string   `json:"token_url" yaml:"token_url"`
	ClientID     string   `json:"client_id" yaml:"client_id"`
	ClientSecret string   `json:"-" yaml:"-"`
	Scopes       []string `json:"scopes" yaml:"scopes"`
}

func (c ServiceCredentialConfig) OAuthEnabled() bool {
	return c.TokenURL != "" && c.ClientID != ""
}

func (c ServiceCredentialConfig) Enabled() bool {
	return c.OAuthEnabled() || c.APIKey != ""
}

// CatalogConfig points at an optional S3 object holding stream descriptors.
type CatalogConfig struct {
	Bucket         string `json:"bucket" yaml:"bucket"`
	Key            string `json:"key" yaml:"key"`
	Region         string `json:"region" yaml:"region"`
	Endpoint       string `json:"endpoint" yaml:"endpoint"`
	ForcePathStyle bool   `json:"force_path_style" yaml:"force_path_style"`
}

func (c CatalogConfig) Enabled() bool {
	return c.Bucket != "" && c.Key != ""
}

type ProxySvcConfig struct {
	UpstreamURL  string `json:"upstream_url" yaml:"upstream_url"`
	APIKey       string `json:"-" yaml:"-"`
	APIKeyHeader string `json:"api_key_header" yaml:"api_key_header"`
	// CombinedSecretSeparator splits an APIKey of the form user:pass into
	// session credentials
	CombinedSecretSeparator string `json:"combined_secret_separator" yaml:"combined_secret_separator"`
	SessionUsername         string `json:"-" yaml:"-"`
	SessionPassword         string `json:"-" yaml:"-"`
	LoginPath               string `json:"login_path" yaml:"login_path"`
	// LoginBodyType application/json, application/x-www-form-urlencoded
	LoginBodyType string `json:"login_body_type" yaml:"login_body_type"`
	// SessionTTL applies when the login response carries no expiry
	SessionTTL        time.Duration  `json:"session_ttl" yaml:"session_ttl"`
	RefreshBuffer     time.Duration  `json:"refresh_buffer" yaml:"refresh_buffer"`
	SessionCookieName string         `json:"session_cookie_name" yaml:"session_cookie_name"`
	SpliceLoginCookie bool           `json:"splice_login_cookie" yaml:"splice_login_cookie"`
	Strategies        AuthStrategies `json:"strategies" yaml:"strategies"`

	RequestTimeout     time.Duration `json:"request_timeout" yaml:"request_timeout"`
	SlowRequestTimeout time.Duration `json:"slow_request_timeout" yaml:"slow_request_timeout"`
	// SlowPaths upstream path prefixes known to answer slowly
	SlowPaths   []string      `json:"slow_paths" yaml:"slow_paths"`
	MaxAttempts int           `json:"max_attempts" yaml:"max_attempts"`
	RetryStep   time.Duration `json:"retry_step" yaml:"retry_step"`
	RetryJitter time.Duration `json:"retry_jitter" yaml:"retry_jitter"`

	UserAgent    string           `json:"user_agent" yaml:"user_agent"`
	ExtraHeaders dto.ExtraHeaders `json:"extra_headers" yaml:"extra_headers"`

	Identity          IdentityConfig          `json:"identity" yaml:"identity"`
	ServiceCredential ServiceCredentialConfig `json:"service_credential" yaml:"service_credential"`
	Catalog           CatalogConfig           `json:"catalog" yaml:"catalog"`

	ListenAddr string     `json:"listen_addr" yaml:"listen_addr"`
	LogLevel   slog.Level `json:"log_level" yaml:"log_level"`

	relay relayDTO.RelayInterface
}

func DefaultProxySvcConfig() ProxySvcConfig {
	return ProxySvcConfig{
		APIKeyHeader:            DefaultAPIKeyHeader,
		CombinedSecretSeparator: ":",
		LoginPath:               DefaultLoginPath,
		LoginBodyType:           "application/json",
		SessionTTL:              time.Hour,
		RefreshBuffer:           30 * time.Second,
		SessionCookieName:       "session",
		Strategies: AuthStrategies{
			APIKey:               true,
			Session:              true,
			ReauthOnUnauthorized: true,
		},
		RequestTimeout:     30 * time.Second,
		SlowRequestTimeout: 55 * time.Second,
		SlowPaths:          []string{"/api/reports", "/api/analytics"},
		MaxAttempts:        3,
		RetryStep:          time.Second,
		UserAgent:          "aurora-proxy",
		ExtraHeaders:       dto.ExtraHeaders{},
		ListenAddr:         ":8080",
		LogLevel:           slog.LevelInfo,
	}
}

// Relay returns the configured relay, falling back to the process relay
// service logging through slog.Default.
func (c *ProxySvcConfig) Relay() relayDTO.RelayInterface {
	if c.relay == nil {
		c.relay = relays.ProvideRelay(relays.NewSlogSink(slog.Default()))
	}
	return c.relay
}

func (c *ProxySvcConfig) WithRelay(relay relayDTO.RelayInterface) *ProxySvcConfig {
	c.relay = relay
	return c
}

func (c *ProxySvcConfig) WithUpstreamURL(upstream string) *ProxySvcConfig {
	c.UpstreamURL = strings.TrimRight(upstream, "/")
	return c
}

func (c *ProxySvcConfig) WithAPIKey(key string) *ProxySvcConfig {
	c.APIKey = key
	return c
}

func (c *ProxySvcConfig) WithSessionCredentials(username, password string) *ProxySvcConfig {
	c.SessionUsername = username
	c.SessionPassword = password
	return c
}

func (c *ProxySvcConfig) WithStrategies(strategies AuthStrategies) *ProxySvcConfig {
	c.Strategies = strategies
	return c
}

func (c *ProxySvcConfig) WithRequestTimeout(d time.Duration) *ProxySvcConfig {
	c.RequestTimeout = d
	return c
}

func (c *ProxySvcConfig) WithSlowPaths(timeout time.Duration, prefixes ...string) *ProxySvcConfig {
	c.SlowRequestTimeout = timeout
	c.SlowPaths = prefixes
	return c
}

func (c *ProxySvcConfig) WithMaxAttempts(count int) *ProxySvcConfig {
	c.MaxAttempts = count
	return c
}

func (c *ProxySvcConfig) WithRetryStep(step time.Duration) *ProxySvcConfig {
	c.RetryStep = step
	return c
}

func (c *ProxySvcConfig) WithSpliceLoginCookie(splice bool) *ProxySvcConfig {
	c.SpliceLoginCookie = splice
	return c
}

func (c *ProxySvcConfig) WithIdentity(identity IdentityConfig) *ProxySvcConfig {
	c.Identity = identity
	return c
}

func (c *ProxySvcConfig) WithServiceCredential(cred ServiceCredentialConfig) *ProxySvcConfig {
	c.ServiceCredential = cred
	return c
}

func (c *ProxySvcConfig) WithCatalog(catalog CatalogConfig) *ProxySvcConfig {
	c.Catalog = catalog
	return c
}

func (c *ProxySvcConfig) WithExtraHeaders(headers dto.ExtraHeaders) *ProxySvcConfig {
	c.ExtraHeaders = headers
	return c
}

// TimeoutFor picks the request timeout for an upstream path.
func (c *ProxySvcConfig) TimeoutFor(path string) time.Duration {
	for _, prefix := range c.SlowPaths {
		if prefix != "" && strings.HasPrefix(path, prefix) {
			return c.SlowRequestTimeout
		}
	}
	return c.RequestTimeout
}

// LoginCredentials returns the session username and password, splitting a
// combined APIKey when no dedicated pair is configured.
func (c *ProxySvcConfig) LoginCredentials() (username, password string, ok bool) {
	if c.SessionUsername != "" && c.SessionPassword != "" {
		return c.SessionUsername, c.SessionPassword, true
	}
	return utils.SplitCombinedSecret(c.APIKey, c.CombinedSecretSeparator)
}

// StaticAPIKey is the key sent as a header, empty when APIKey is really a
// combined username:password secret.
func (c *ProxySvcConfig) StaticAPIKey() string {
	if c.SessionUsername == "" {
		if _, _, combined := c.LoginCredentials(); combined {
			return ""
		}
	}
	return c.APIKey
}

func (c *ProxySvcConfig) Validate() error {
	var errs []error
	if c.UpstreamURL == "" {
		errs = append(errs, errors.New("upstream url is required"))
	} else if u, err := url.Parse(c.UpstreamURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("upstream url %q must be an absolute http(s) url", c.UpstreamURL))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, errors.New("request timeout must be positive"))
	}
	if c.MaxAttempts < 1 {
		errs = append(errs, errors.New("max attempts must be at least 1"))
	}
	if !strings.HasPrefix(c.LoginPath, "/") {
		errs = append(errs, fmt.Errorf("login path %q must be absolute", c.LoginPath))
	}
	return errors.Join(errs...)
}
