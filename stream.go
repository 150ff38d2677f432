package auroraproxy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/joy-dx/auroraproxy/client/httpclient"
	"github.com/joy-dx/auroraproxy/dto"
	"github.com/joy-dx/auroraproxy/relays"
)

// OpenStream resolves a stream type, picks the upstream credential and opens
// the upstream event stream. Failures are *dto.ProxyError.
func (s *ProxySvc) OpenStream(ctx context.Context, req dto.StreamRequest) (*dto.Stream, error) {
	resolved, err := s.catalog.Resolve(req)
	if err != nil {
		return nil, dto.NewProxyError(http.StatusBadRequest, dto.ErrorPayload{
			Error:      "Invalid stream type",
			Details:    err.Error(),
			ValidTypes: s.catalog.Types(),
		}, err)
	}

	if req.Token == "" && req.SessionCookie == "" {
		return nil, dto.NewProxyError(http.StatusUnauthorized, dto.ErrorPayload{
			Error:   "Authentication required",
			Details: "provide a session or token",
		}, dto.ErrMissingCredentials)
	}

	headers, err := s.streamCredential(ctx, req)
	if err != nil {
		return nil, err
	}

	target := s.upstreamURL(resolved.Path)
	if req.ClientID != "" && !resolved.Descriptor.ClientScoped {
		target += "?client_id=" + url.QueryEscape(req.ClientID)
	}

	reqCfg := httpclient.DefaultHTTPRequestConfig()
	reqCfg.WithMethod(http.MethodGet).
		WithURL(target).
		WithHeaders(headers).
		WithHeader("Accept", "text/event-stream").
		WithHeader("Cache-Control", "no-cache")

	rc := dto.DefaultRequestConfig()
	rc.WithClientRef(dto.UPSTREAM_CLIENT_REF).
		WithReqConfig(&reqCfg).
		WithTaskName("stream " + req.Type)

	netClient, ok := s.client(dto.UPSTREAM_CLIENT_REF)
	streamer, canStream := netClient.(dto.StreamClientInterface)
	if !ok || !canStream {
		return nil, dto.NewProxyError(http.StatusInternalServerError, dto.ErrorPayload{
			Error: "Stream proxy unavailable",
		}, fmt.Errorf("client %s cannot stream", dto.UPSTREAM_CLIENT_REF))
	}

	// No timeout: the stream lives as long as the inbound request.
	resp, err := streamer.OpenStream(ctx, &rc)
	if err != nil {
		return nil, s.streamUnavailable("Stream connection failed", err.Error(), err)
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, s.streamUnavailable("Stream unavailable",
			fmt.Sprintf("upstream answered %d", resp.StatusCode), nil)
	}
	if ct := resp.Header.Get("Content-Type"); !isEventStream(ct) {
		_ = resp.Body.Close()
		return nil, s.streamUnavailable("Upstream did not return an event stream",
			fmt.Sprintf("content type %q", ct), nil)
	}

	stream := &dto.Stream{
		ID:           uuid.NewString(),
		Type:         req.Type,
		UpstreamPath: resolved.Path,
		Header:       resp.Header,
		Body:         resp.Body,
	}
	s.publishStreamUpdate(dto.StreamNotification{
		ID:           stream.ID,
		Type:         stream.Type,
		UpstreamPath: stream.UpstreamPath,
		Status:       dto.OPEN,
		OpenedAt:     time.Now(),
	}, 1)
	return stream, nil
}

func (s *ProxySvc) streamUnavailable(msg, details string, cause error) *dto.ProxyError {
	return dto.NewProxyError(http.StatusServiceUnavailable, dto.ErrorPayload{
		Error:    msg,
		Details:  details,
		Fallback: "polling",
	}, cause)
}

// streamCredential picks the outbound credential headers. A bearer token that
// verifies as a platform identity is replaced by the proxy's own credential.
func (s *ProxySvc) streamCredential(ctx context.Context, req dto.StreamRequest) (map[string]string, error) {
	if req.Token == "" {
		return map[string]string{"Cookie": s.sessionCookieHeader(req.SessionCookie)}, nil
	}
	if s.verifier == nil {
		return map[string]string{"Authorization": "Bearer " + req.Token}, nil
	}

	ident, err := s.verifier.Verify(ctx, req.Token)
	if err != nil {
		switch {
		case s.cfg.Identity.AllowUnverifiedPassthrough:
			s.relay.Debug(relays.RlyAuth{Strategy: "identity", Msg: "Forwarding unverified token"})
			return map[string]string{"Authorization": "Bearer " + req.Token}, nil
		case req.SessionCookie != "":
			return map[string]string{"Cookie": s.sessionCookieHeader(req.SessionCookie)}, nil
		default:
			s.relay.Warn(relays.RlyAuth{Strategy: "identity", Msg: "Identity token rejected: " + err.Error()})
			return nil, dto.NewProxyError(http.StatusUnauthorized, dto.ErrorPayload{
				Error:   "Invalid token",
				Details: err.Error(),
				Code:    "identity_rejected",
			}, err)
		}
	}
	s.relay.Debug(relays.RlyAuth{Strategy: "identity", Msg: "Identity verified for " + ident.Subject})

	if s.service != nil {
		h, err := s.service.Header(ctx)
		if err != nil {
			return nil, s.authFailure(err)
		}
		return flattenHeader(h), nil
	}
	if key := s.cfg.StaticAPIKey(); key != "" {
		return map[string]string{s.cfg.APIKeyHeader: key}, nil
	}
	if s.session == nil {
		return nil, s.authFailure(dto.ErrMissingCredentials)
	}
	tok, err := s.session.Credential(ctx)
	if err != nil {
		return nil, s.authFailure(err)
	}
	return tokenHeaders(tok), nil
}

func flattenHeader(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k := range h {
		out[k] = h.Get(k)
	}
	return out
}

// ForwardStream pipes the upstream body to w, flushing after every read, until
// either side goes away. The upstream body is always closed.
func (s *ProxySvc) ForwardStream(ctx context.Context, w http.ResponseWriter, stream *dto.Stream) error {
	if stream == nil || stream.Body == nil {
		return errors.New("nil stream")
	}
	defer stream.Body.Close()

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	rc := http.NewResponseController(w)
	_ = rc.Flush()

	state := dto.StreamNotification{
		ID:           stream.ID,
		Type:         stream.Type,
		UpstreamPath: stream.UpstreamPath,
		Status:       dto.OPEN,
	}
	reader := &countingReader{
		ctx:        ctx,
		reader:     stream.Body,
		lastReport: time.Now(),
		interval:   streamReportInterval,
		onProgress: func(forwarded int64) {
			update := state
			update.Forwarded = forwarded
			s.publishStreamUpdate(update, 0)
		},
	}

	buf := make([]byte, 32*1024)
	var copyErr error
	for {
		n, readErr := reader.Read(buf)
		if n > 0 {
			if _, err := w.Write(buf[:n]); err != nil {
				copyErr = errBrowserGone
				break
			}
			if err := rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
				copyErr = errBrowserGone
				break
			}
		}
		if readErr != nil {
			copyErr = readErr
			break
		}
	}

	state.Forwarded = reader.readSoFar
	switch {
	case errors.Is(copyErr, io.EOF):
		state.Status = dto.CLOSED
		state.Message = "upstream closed the stream"
		copyErr = nil
	case errors.Is(copyErr, errBrowserGone) || ctx.Err() != nil:
		state.Status = dto.STOPPED
		state.Message = "client disconnected"
		copyErr = nil
	default:
		state.Status = dto.ERROR
		state.Message = copyErr.Error()
	}
	s.publishStreamUpdate(state, -1)
	return copyErr
}

var errBrowserGone = errors.New("browser connection gone")
