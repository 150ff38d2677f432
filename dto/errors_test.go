package dto

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
)

func TestUpstreamError_Golden(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		err         *UpstreamError
		wantTimeout bool
		wantIs      error
	}{
		{
			name:        "timeout kind",
			err:         &UpstreamError{Kind: FailureTimeout, URL: "http://x", Err: context.DeadlineExceeded},
			wantTimeout: true,
			wantIs:      context.DeadlineExceeded,
		},
		{
			name:   "network kind unwraps cause",
			err:    &UpstreamError{Kind: FailureNetwork, URL: "http://x", Err: context.Canceled},
			wantIs: context.Canceled,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := tt.err.Timeout(); got != tt.wantTimeout {
				t.Fatalf("Timeout()=%v want %v", got, tt.wantTimeout)
			}
			if !errors.Is(tt.err, tt.wantIs) {
				t.Fatalf("errors.Is(%v, %v)=false", tt.err, tt.wantIs)
			}
		})
	}
}

func TestProxyError_Response_Golden(t *testing.T) {
	t.Parallel()

	perr := NewProxyError(http.StatusServiceUnavailable, ErrorPayload{
		Error:     "stream unavailable",
		Fallback:  "polling",
		Retryable: true,
	}, errors.New("boom"))

	resp := perr.Response()
	if resp.Status != http.StatusServiceUnavailable {
		t.Fatalf("status=%d want 503", resp.Status)
	}
	if ct := resp.Headers.Get("Content-Type"); ct != "application/json" {
		t.Fatalf("Content-Type=%q", ct)
	}

	var got map[string]any
	if err := json.Unmarshal(resp.Body, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got["fallback"] != "polling" || got["retryable"] != true || got["error"] != "stream unavailable" {
		t.Fatalf("payload=%v", got)
	}
	if _, ok := got["valid_types"]; ok {
		t.Fatalf("valid_types should be omitted: %v", got)
	}
	if !errors.Is(perr, perr.Err) {
		t.Fatalf("ProxyError should unwrap its cause")
	}
}
