package dto

import (
	"net/http"
	"strings"
	"time"
)

// TokenInfo is the session credential issued by the upstream login endpoint.
// It supports both header-based tokens and cookie-based sessions.
type TokenInfo struct {
	// AccessToken bearer value from a JSON login body
	AccessToken string
	// TokenType is inferred if not provided (default "Bearer").
	TokenType string
	// Expiry time. Zero means the credential never expires on its own.
	Expiry  time.Time
	Cookies []*http.Cookie
}

// IsExpired returns true if the token is close to or past expiry.
func (t *TokenInfo) IsExpired(buffer time.Duration) bool {
	if t.AccessToken == "" && len(t.Cookies) == 0 {
		return true
	}
	if t.Expiry.IsZero() {
		// Sessions with no expiry are considered indefinitely valid
		return false
	}
	return time.Now().After(t.Expiry.Add(-buffer))
}

// CookieHeader renders the cookies as a Cookie request header value.
func (t *TokenInfo) CookieHeader() string {
	parts := make([]string, 0, len(t.Cookies))
	for _, ck := range t.Cookies {
		if ck == nil || ck.Name == "" {
			continue
		}
		parts = append(parts, ck.Name+"="+ck.Value)
	}
	return strings.Join(parts, "; ")
}

// Value is the opaque bearer string: the session cookie when there is one,
// the access token otherwise.
func (t *TokenInfo) Value() string {
	if cookie := t.CookieHeader(); cookie != "" {
		return cookie
	}
	return t.AccessToken
}

// Apply attaches the credential to outbound headers.
func (t *TokenInfo) Apply(h http.Header) {
	if cookie := t.CookieHeader(); cookie != "" {
		h.Set("Cookie", cookie)
	}
	if t.AccessToken != "" {
		tokenType := t.TokenType
		if tokenType == "" {
			tokenType = "Bearer"
		}
		h.Set("Authorization", tokenType+" "+t.AccessToken)
	}
}
