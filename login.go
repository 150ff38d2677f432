package auroraproxy

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/joy-dx/auroraproxy/dto"
	"github.com/joy-dx/auroraproxy/relays"
)

// proxyLogin forwards a browser login without any cached credential and
// keeps the session it produces for later calls.
func (s *ProxySvc) proxyLogin(ctx context.Context, path, method string, body json.RawMessage) dto.ProxyResponse {
	resp, err := s.exchange(ctx, path, method, body, nil)
	out := s.render(resp, err)
	if err != nil || resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return out
	}
	if s.session == nil {
		return out
	}

	tok, capErr := s.session.Capture(resp)
	if capErr != nil {
		s.relay.Warn(relays.RlyAuth{Strategy: "session", Msg: "Login pass-through carried no credential"})
		return out
	}
	if s.cfg.SpliceLoginCookie && isJSONContentType(out.Headers.Get("Content-Type")) {
		out.Body = spliceSessionCookie(out.Body, tok.Value())
	}
	return out
}
