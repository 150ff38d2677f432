package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/joy-dx/auroraproxy/dto"
)

const envPrefix = "AURORA_"

// FromEnv builds a config from AURORA_* variables over the defaults. Unset
// variables keep their default; malformed ones are reported together.
func FromEnv(getenv func(string) string) (ProxySvcConfig, error) {
	cfg := DefaultProxySvcConfig()
	err := cfg.ApplyEnv(getenv)
	return cfg, err
}

// ApplyEnv overlays AURORA_* variables onto c.
func (c *ProxySvcConfig) ApplyEnv(getenv func(string) string) error {
	if getenv == nil {
		getenv = func(string) string { return "" }
	}
	env := func(name string) string {
		return strings.TrimSpace(getenv(envPrefix + name))
	}

	cfg := c
	var errs []error

	str := func(name string, dst *string) {
		if val := env(name); val != "" {
			*dst = val
		}
	}
	dur := func(name string, dst *time.Duration) {
		val := env(name)
		if val == "" {
			return
		}
		parsed, err := time.ParseDuration(val)
		if err != nil || parsed < 0 {
			errs = append(errs, fmt.Errorf("%s%s: invalid duration %q", envPrefix, name, val))
			return
		}
		*dst = parsed
	}
	boolean := func(name string, dst *bool) {
		val := env(name)
		if val == "" {
			return
		}
		parsed, err := strconv.ParseBool(val)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s%s: invalid bool %q", envPrefix, name, val))
			return
		}
		*dst = parsed
	}
	list := func(name string, dst *[]string) {
		val := env(name)
		if val == "" {
			return
		}
		var out []string
		for _, item := range strings.Split(val, ",") {
			if item = strings.TrimSpace(item); item != "" {
				out = append(out, item)
			}
		}
		*dst = out
	}

	if val := env("API_URL"); val != "" {
		cfg.WithUpstreamURL(val)
	}
	str("API_KEY", &cfg.APIKey)
	str("API_KEY_HEADER", &cfg.APIKeyHeader)
	str("USERNAME", &cfg.SessionUsername)
	str("PASSWORD", &cfg.SessionPassword)
	str("LOGIN_PATH", &cfg.LoginPath)
	str("LOGIN_BODY_TYPE", &cfg.LoginBodyType)
	str("SESSION_COOKIE_NAME", &cfg.SessionCookieName)
	dur("SESSION_TTL", &cfg.SessionTTL)
	boolean("SPLICE_LOGIN_COOKIE", &cfg.SpliceLoginCookie)
	boolean("STRATEGY_API_KEY", &cfg.Strategies.APIKey)
	boolean("STRATEGY_SESSION", &cfg.Strategies.Session)
	boolean("STRATEGY_REAUTH", &cfg.Strategies.ReauthOnUnauthorized)

	dur("REQUEST_TIMEOUT", &cfg.RequestTimeout)
	dur("SLOW_REQUEST_TIMEOUT", &cfg.SlowRequestTimeout)
	list("SLOW_PATHS", &cfg.SlowPaths)
	dur("RETRY_STEP", &cfg.RetryStep)
	dur("RETRY_JITTER", &cfg.RetryJitter)
	if val := env("MAX_ATTEMPTS"); val != "" {
		n, err := strconv.Atoi(val)
		if err != nil || n < 1 {
			errs = append(errs, fmt.Errorf("%sMAX_ATTEMPTS: invalid count %q", envPrefix, val))
		} else {
			cfg.MaxAttempts = n
		}
	}

	str("USER_AGENT", &cfg.UserAgent)
	if val := env("EXTRA_HEADERS"); val != "" {
		if cfg.ExtraHeaders == nil {
			cfg.ExtraHeaders = dto.ExtraHeaders{}
		}
		if err := cfg.ExtraHeaders.Set(val); err != nil {
			errs = append(errs, fmt.Errorf("%sEXTRA_HEADERS: %w", envPrefix, err))
		}
	}

	str("IDENTITY_ISSUER", &cfg.Identity.Issuer)
	str("IDENTITY_AUDIENCE", &cfg.Identity.Audience)
	str("IDENTITY_JWKS_URL", &cfg.Identity.JWKSURL)
	if val := getenv(envPrefix + "IDENTITY_PUBLIC_KEYS"); strings.TrimSpace(val) != "" {
		cfg.Identity.PublicKeysPEM = val
	}
	boolean("IDENTITY_ALLOW_PASSTHROUGH", &cfg.Identity.AllowUnverifiedPassthrough)

	str("SERVICE_API_KEY", &cfg.ServiceCredential.APIKey)
	str("SERVICE_TOKEN_URL", &cfg.ServiceCredential.TokenURL)
	str("SERVICE_CLIENT_ID", &cfg.ServiceCredential.ClientID)
	str("SERVICE_CLIENT_SECRET", &cfg.ServiceCredential.ClientSecret)
	list("SERVICE_SCOPES", &cfg.ServiceCredential.Scopes)

	str("CATALOG_S3_BUCKET", &cfg.Catalog.Bucket)
	str("CATALOG_S3_KEY", &cfg.Catalog.Key)
	str("CATALOG_S3_REGION", &cfg.Catalog.Region)
	str("CATALOG_S3_ENDPOINT", &cfg.Catalog.Endpoint)
	boolean("CATALOG_S3_PATH_STYLE", &cfg.Catalog.ForcePathStyle)

	str("LISTEN_ADDR", &cfg.ListenAddr)
	if val := env("LOG_LEVEL"); val != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(val)); err != nil {
			errs = append(errs, fmt.Errorf("%sLOG_LEVEL: %w", envPrefix, err))
		}
	}

	return errors.Join(errs...)
}

// LevelVar is a convenience for hosts wiring the configured level into slog.
func (c *ProxySvcConfig) LevelVar() *slog.LevelVar {
	lv := new(slog.LevelVar)
	lv.Set(c.LogLevel)
	return lv
}
