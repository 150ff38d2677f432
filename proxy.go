package auroraproxy

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/joy-dx/auroraproxy/client/httpclient"
	"github.com/joy-dx/auroraproxy/dto"
	"github.com/joy-dx/auroraproxy/relays"
)

// Proxy forwards one dashboard REST call upstream. It never returns an
// error: every failure is rendered as a JSON response.
//
// Credential order: a browser-held session cookie when supplied, otherwise
// the static API key, falling back to the cached session on 401 or when no
// key is set. A 401 on the session triggers one re-login and one replay.
func (s *ProxySvc) Proxy(ctx context.Context, req dto.ProxyRequest) dto.ProxyResponse {
	method := strings.ToUpper(strings.TrimSpace(req.Method))
	if method == "" {
		method = http.MethodGet
	}
	path := strings.TrimSpace(req.Path)
	if !strings.HasPrefix(path, "/") || strings.HasPrefix(path, "//") {
		return dto.NewProxyError(http.StatusBadRequest, dto.ErrorPayload{
			Error:   "Invalid path",
			Details: fmt.Sprintf("path %q must be an absolute upstream path", req.Path),
		}, nil).Response()
	}

	if s.isLoginPath(path) {
		return s.proxyLogin(ctx, path, method, req.Body)
	}

	if req.SessionCookie != "" {
		resp, err := s.exchange(ctx, path, method, req.Body, map[string]string{
			"Cookie": s.sessionCookieHeader(req.SessionCookie),
		})
		return s.render(resp, err)
	}

	strategies := s.cfg.Strategies
	if key := s.cfg.StaticAPIKey(); strategies.APIKey && key != "" {
		resp, err := s.exchange(ctx, path, method, req.Body, map[string]string{
			s.cfg.APIKeyHeader: key,
		})
		if err != nil || resp.StatusCode != http.StatusUnauthorized || !strategies.Session || !s.sessionAvailable() {
			return s.render(resp, err)
		}
		s.relay.Info(relays.RlyAuth{Strategy: "api_key", Msg: "API key rejected, falling back to session"})
	}

	if !strategies.Session || s.session == nil {
		return s.authFailure(dto.ErrMissingCredentials).Response()
	}

	tok, err := s.session.Credential(ctx)
	if err != nil {
		return s.authFailure(err).Response()
	}
	resp, err := s.exchange(ctx, path, method, req.Body, tokenHeaders(tok))
	if err != nil || resp.StatusCode != http.StatusUnauthorized || !strategies.ReauthOnUnauthorized {
		return s.render(resp, err)
	}

	s.session.Invalidate(tok)
	fresh, authErr := s.session.Credential(ctx)
	if authErr != nil {
		s.relay.Warn(relays.RlyAuth{Strategy: "session", Msg: "Re-authentication failed: " + authErr.Error()})
		return s.render(resp, nil)
	}
	resp, err = s.exchange(ctx, path, method, req.Body, tokenHeaders(fresh))
	return s.render(resp, err)
}

// sessionAvailable reports whether a session is cached or could be obtained.
func (s *ProxySvc) sessionAvailable() bool {
	if s.session == nil {
		return false
	}
	if _, ok := s.session.Cached(); ok {
		return true
	}
	_, _, ok := s.cfg.LoginCredentials()
	return ok
}

func tokenHeaders(tok dto.TokenInfo) map[string]string {
	h := http.Header{}
	tok.Apply(h)
	return flattenHeader(h)
}

// exchange runs one logical upstream call through the retry executor.
func (s *ProxySvc) exchange(ctx context.Context, path, method string, body json.RawMessage, headers map[string]string) (dto.Response, error) {
	reqCfg := httpclient.DefaultHTTPRequestConfig()
	reqCfg.WithMethod(method).WithURL(s.upstreamURL(path))
	for k, v := range headers {
		reqCfg.WithHeader(k, v)
	}
	if hasBody(method, body) {
		reqCfg.WithRawBody(compactJSON(body), "application/json")
	}

	rc := dto.DefaultRequestConfig()
	rc.WithClientRef(dto.UPSTREAM_CLIENT_REF).
		WithReqConfig(&reqCfg).
		WithTimeout(s.cfg.TimeoutFor(path)).
		WithMaxAttempts(s.cfg.MaxAttempts).
		WithDelay(s.delay).
		WithTaskName(method + " " + path)
	return s.RequestWithRetry(ctx, &rc)
}

func hasBody(method string, body json.RawMessage) bool {
	if method == http.MethodGet || method == http.MethodHead {
		return false
	}
	trimmed := strings.TrimSpace(string(body))
	return trimmed != "" && trimmed != "null"
}

// render mirrors the upstream status and body. Content-Type defaults to JSON
// and JSON bodies are re-emitted compacted.
func (s *ProxySvc) render(resp dto.Response, err error) dto.ProxyResponse {
	if err != nil {
		return s.transportFailure(err).Response()
	}
	contentType := resp.Headers.Get("Content-Type")
	if contentType == "" {
		contentType = "application/json"
	}
	body := resp.Body
	if isJSONContentType(contentType) {
		body = compactJSON(body)
	}
	h := http.Header{}
	h.Set("Content-Type", contentType)
	return dto.ProxyResponse{Status: resp.StatusCode, Headers: h, Body: body}
}
