package auth

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/joy-dx/auroraproxy/dto"
)

type loginBody struct {
	Token       string `json:"token"`
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// CaptureCredential extracts the session credential carried by a successful
// login response. Set-Cookie wins over a JSON token. ttl applies when the
// response states no expiry of its own.
func CaptureCredential(resp dto.Response, ttl time.Duration, now time.Time) (dto.TokenInfo, error) {
	var tok dto.TokenInfo

	if cookies := parseSetCookies(resp.Headers); len(cookies) > 0 {
		for _, ck := range cookies {
			tok.Cookies = storeOrReplaceCookie(tok.Cookies, ck)
			if exp := cookieExpiry(ck, now); !exp.IsZero() && (tok.Expiry.IsZero() || exp.Before(tok.Expiry)) {
				tok.Expiry = exp
			}
		}
	} else {
		var body loginBody
		if len(resp.Body) > 0 && json.Unmarshal(resp.Body, &body) == nil {
			tok.AccessToken = body.Token
			if tok.AccessToken == "" {
				tok.AccessToken = body.AccessToken
			}
			tok.TokenType = normalizeAuthType(body.TokenType)
			if body.ExpiresIn > 0 {
				tok.Expiry = now.Add(time.Duration(body.ExpiresIn) * time.Second)
			}
		}
		if tok.AccessToken == "" {
			return dto.TokenInfo{}, dto.ErrNoCredentialInResponse
		}
	}

	if tok.Expiry.IsZero() && ttl > 0 {
		tok.Expiry = now.Add(ttl)
	}
	return tok, nil
}

// parseSetCookies drops cookies the upstream is deleting.
func parseSetCookies(h http.Header) []*http.Cookie {
	if len(h.Values("Set-Cookie")) == 0 {
		return nil
	}
	resp := &http.Response{Header: h}
	out := make([]*http.Cookie, 0, len(h.Values("Set-Cookie")))
	for _, ck := range resp.Cookies() {
		if ck.MaxAge < 0 || ck.Value == "" {
			continue
		}
		out = append(out, ck)
	}
	return out
}

func cookieExpiry(ck *http.Cookie, now time.Time) time.Time {
	if ck.MaxAge > 0 {
		return now.Add(time.Duration(ck.MaxAge) * time.Second)
	}
	if !ck.Expires.IsZero() {
		return ck.Expires
	}
	return time.Time{}
}

// storeOrReplaceCookie updates or appends a cookie by its name.
func storeOrReplaceCookie(cookies []*http.Cookie, cookie *http.Cookie) []*http.Cookie {
	for i, existing := range cookies {
		if existing.Name == cookie.Name {
			cookies[i] = cookie
			return cookies
		}
	}
	return append(cookies, cookie)
}

// normalizeAuthType ensures proper "Bearer", "Basic", or custom capitalization.
func normalizeAuthType(t string) string {
	switch strings.ToLower(strings.TrimSpace(t)) {
	case "bearer", "":
		return "Bearer"
	case "basic":
		return "Basic"
	default:
		return t
	}
}
