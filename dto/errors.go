package dto

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrMissingCredentials     = errors.New("no upstream credentials configured")
	ErrAuthenticationFailed   = errors.New("upstream authentication failed")
	ErrNoCredentialInResponse = errors.New("login response carried no session cookie or token")
	ErrUnknownStreamType      = errors.New("unknown stream type")
	ErrMissingQualifier       = errors.New("missing stream qualifier")
	ErrIdentityRejected       = errors.New("identity token rejected")
)

type FailureKind string

const (
	FailureTimeout  FailureKind = "timeout"
	FailureNetwork  FailureKind = "network"
	FailureCanceled FailureKind = "canceled"
)

// UpstreamError is a classified transport failure. HTTP statuses, even
// non-2xx, are never reported through it.
type UpstreamError struct {
	Kind FailureKind
	URL  string
	Err  error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream %s %s: %v", e.Kind, e.URL, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

func (e *UpstreamError) Timeout() bool {
	return e.Kind == FailureTimeout
}

// ErrorPayload is the JSON body of every error the proxy produces itself.
type ErrorPayload struct {
	Error      string   `json:"error"`
	Details    string   `json:"details,omitempty"`
	Retryable  bool     `json:"retryable,omitempty"`
	Code       string   `json:"code,omitempty"`
	Hint       string   `json:"hint,omitempty"`
	Fallback   string   `json:"fallback,omitempty"`
	ValidTypes []string `json:"valid_types,omitempty"`
}

// ProxyError carries an HTTP status plus the payload to render for it.
type ProxyError struct {
	Status  int
	Payload ErrorPayload
	Err     error
}

func NewProxyError(status int, payload ErrorPayload, cause error) *ProxyError {
	return &ProxyError{Status: status, Payload: payload, Err: cause}
}

func (e *ProxyError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%d %s: %v", e.Status, e.Payload.Error, e.Err)
	}
	return fmt.Sprintf("%d %s", e.Status, e.Payload.Error)
}

func (e *ProxyError) Unwrap() error {
	return e.Err
}

// Response renders the error as a JSON proxy response.
func (e *ProxyError) Response() ProxyResponse {
	body, err := json.Marshal(e.Payload)
	if err != nil {
		body = []byte(`{"error":"internal error"}`)
	}
	h := http.Header{}
	h.Set("Content-Type", "application/json")
	return ProxyResponse{Status: e.Status, Headers: h, Body: body}
}
