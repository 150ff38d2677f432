package auroraproxy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/joy-dx/auroraproxy/auth"
	"github.com/joy-dx/auroraproxy/dto"
	"github.com/joy-dx/auroraproxy/relays"
)

// streamReportInterval spaces byte-count updates for open streams.
const streamReportInterval = 10 * time.Second

func (s *ProxySvc) upstreamURL(path string) string {
	return strings.TrimRight(s.cfg.UpstreamURL, "/") + path
}

func (s *ProxySvc) isLoginPath(path string) bool {
	p, _, _ := strings.Cut(path, "?")
	return p == s.cfg.LoginPath
}

// sessionCookieHeader accepts either a bare session value or a full
// name=value cookie string.
func (s *ProxySvc) sessionCookieHeader(v string) string {
	if strings.Contains(v, "=") {
		return v
	}
	return s.cfg.SessionCookieName + "=" + v
}

func isJSONContentType(ct string) bool {
	mediaType, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return false
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}

func isEventStream(ct string) bool {
	mediaType, _, err := mime.ParseMediaType(ct)
	return err == nil && mediaType == "text/event-stream"
}

// compactJSON strips insignificant whitespace, returning the input untouched
// when it is not valid JSON.
func compactJSON(b []byte) []byte {
	if len(b) == 0 {
		return b
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, b); err != nil {
		return b
	}
	return buf.Bytes()
}

// spliceSessionCookie adds a session_cookie field to a JSON object body.
// Anything else is returned unchanged.
func spliceSessionCookie(body []byte, value string) []byte {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err != nil || obj == nil {
		return body
	}
	encoded, err := json.Marshal(value)
	if err != nil {
		return body
	}
	obj["session_cookie"] = encoded
	out, err := json.Marshal(obj)
	if err != nil {
		return body
	}
	return out
}

// transportFailure maps an exhausted upstream exchange onto 503 or 504.
func (s *ProxySvc) transportFailure(err error) *dto.ProxyError {
	var upErr *dto.UpstreamError
	if !errors.As(err, &upErr) {
		return dto.NewProxyError(http.StatusInternalServerError, dto.ErrorPayload{
			Error:   "Proxy request failed",
			Details: err.Error(),
		}, err)
	}
	if upErr.Kind == dto.FailureTimeout {
		return dto.NewProxyError(http.StatusGatewayTimeout, dto.ErrorPayload{
			Error:     "Upstream timeout",
			Details:   err.Error(),
			Retryable: true,
		}, err)
	}
	return dto.NewProxyError(http.StatusServiceUnavailable, dto.ErrorPayload{
		Error:     "Upstream unavailable",
		Details:   err.Error(),
		Retryable: true,
	}, err)
}

// authFailure separates missing configuration from a rejected login.
func (s *ProxySvc) authFailure(err error) *dto.ProxyError {
	var upErr *dto.UpstreamError
	switch {
	case auth.IsConfigurationError(err):
		return dto.NewProxyError(http.StatusUnauthorized, dto.ErrorPayload{
			Error:   "Upstream credentials not configured",
			Details: err.Error(),
			Code:    "missing_credentials",
			Hint:    "set AURORA_API_KEY, or AURORA_USERNAME and AURORA_PASSWORD",
		}, err)
	case errors.As(err, &upErr):
		return s.transportFailure(err)
	default:
		return dto.NewProxyError(http.StatusUnauthorized, dto.ErrorPayload{
			Error:   "Upstream authentication failed",
			Details: err.Error(),
			Code:    "authentication_failed",
		}, err)
	}
}

// publishStreamUpdate is the unified notification function
func (s *ProxySvc) publishStreamUpdate(state dto.StreamNotification, activeDelta int64) {
	state.UpdatedAt = time.Now()

	s.muListeners.Lock()
	s.activeByType[state.Type] += activeDelta
	if s.activeByType[state.Type] <= 0 {
		delete(s.activeByType, state.Type)
	}
	state.Active = s.activeByType[state.Type]
	s.streamState.Set(state.Type, state)

	isTerminal := state.Status == dto.CLOSED ||
		state.Status == dto.ERROR ||
		state.Status == dto.STOPPED

	// Sends happen under muListeners so a concurrent close cannot race them.
	// None of them block: a full lifecycle buffer hands off to a goroutine.
	for _, ch := range s.listenersByType[state.Type] {
		select {
		case ch <- state:
		default:
			if isTerminal || activeDelta != 0 {
				go func(c chan dto.StreamNotification, n dto.StreamNotification) {
					// The listener may be closed before the buffer drains.
					defer func() { _ = recover() }()
					c <- n
				}(ch, state)
			}
			// Byte-count updates can be dropped
		}
	}
	s.muListeners.Unlock()

	if s.relay != nil {
		evt := relays.RlyStream{
			ID:           state.ID,
			Type:         state.Type,
			UpstreamPath: state.UpstreamPath,
			Status:       state.Status,
			Forwarded:    state.Forwarded,
			Msg:          state.Message,
		}
		switch {
		case state.Status == dto.ERROR:
			s.relay.Warn(evt)
		case isTerminal || activeDelta != 0:
			s.relay.Info(evt)
		default:
			s.relay.Debug(evt)
		}
	}
}

// countingReader tracks bytes relayed from an upstream stream and reports
// them at most once per interval.
type countingReader struct {
	ctx        context.Context
	reader     io.Reader
	readSoFar  int64
	lastReport time.Time
	interval   time.Duration
	onProgress func(forwarded int64)
}

func (cr *countingReader) Read(p []byte) (int, error) {
	select {
	case <-cr.ctx.Done():
		return 0, cr.ctx.Err()
	default:
	}

	n, err := cr.reader.Read(p)
	if n > 0 {
		cr.readSoFar += int64(n)
		now := time.Now()
		if cr.onProgress != nil && now.Sub(cr.lastReport) >= cr.interval {
			cr.onProgress(cr.readSoFar)
			cr.lastReport = now
		}
	}
	return n, err
}
