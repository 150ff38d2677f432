package dto

import (
	"encoding/json"
	"io"
	"net/http"
	"time"
)

type NetClientType string

const (
	UPSTREAM_CLIENT_REF = "aurora.upstream"
	CATALOG_CLIENT_REF  = "aurora.catalog"
)

type NetClient struct {
	Name        string        `json:"name" yaml:"name"`
	Ref         string        `json:"ref" yaml:"ref"`
	ClientType  NetClientType `json:"client_type" yaml:"client_type"`
	Description string        `json:"description" yaml:"description"`
}

type Response struct {
	StatusCode int
	Headers    http.Header
	// As well as casting to ResponseObject if set, return as byes
	Body []byte
}

// ProxyRequest is the inbound REST proxy call as posted by the dashboard.
type ProxyRequest struct {
	Path   string          `json:"path"`
	Method string          `json:"method"`
	Body   json.RawMessage `json:"body,omitempty"`
	// SessionCookie is a browser-held upstream session which, when present,
	// is forwarded instead of the proxy's own credentials.
	SessionCookie string `json:"sessionCookie,omitempty"`
}

// ProxyResponse mirrors the upstream status, content type and body.
type ProxyResponse struct {
	Status  int
	Headers http.Header
	Body    []byte
}

type StreamRequest struct {
	Type       string
	ClientID   string
	CommandID  string
	SensorType string
	// Token is a bearer token, either a platform identity token or an
	// upstream token.
	Token         string
	SessionCookie string
}

// Stream is an opened upstream event stream ready to be piped.
type Stream struct {
	ID           string
	Type         string
	UpstreamPath string
	Header       http.Header
	Body         io.ReadCloser
}

type StreamStatus string

const (
	OPEN    StreamStatus = "open"
	CLOSED  StreamStatus = "closed"
	STOPPED StreamStatus = "stopped"
	ERROR   StreamStatus = "error"
)

type StreamNotification struct {
	ID           string       `json:"id" yaml:"id"`
	Type         string       `json:"type" yaml:"type"`
	UpstreamPath string       `json:"upstream_path" yaml:"upstream_path"`
	Status       StreamStatus `json:"status" yaml:"status"`
	Message      string       `json:"message,omitempty" yaml:"message,omitempty"`
	// Forwarded bytes relayed to the browser so far
	Forwarded int64 `json:"forwarded" yaml:"forwarded"`
	// Active streams of this type at the time of the update
	Active    int64     `json:"active" yaml:"active"`
	OpenedAt  time.Time `json:"opened_at" yaml:"opened_at"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

// Identity is the subset of a verified platform token the proxy cares about.
type Identity struct {
	Subject  string
	Issuer   string
	Audience []string
	Expiry   time.Time
}

type ProxyState struct {
	UpstreamURL        string                        `json:"upstream_url" yaml:"upstream_url"`
	RequestTimeout     time.Duration                 `json:"request_timeout" yaml:"request_timeout"`
	SlowRequestTimeout time.Duration                 `json:"slow_request_timeout" yaml:"slow_request_timeout"`
	MaxAttempts        int                           `json:"max_attempts" yaml:"max_attempts"`
	UserAgent          string                        `json:"user_agent,omitempty" yaml:"user_agent,omitempty"`
	ExtraHeaders       ExtraHeaders                  `json:"extra_headers,omitempty" yaml:"extra_headers,omitempty"`
	APIKeyConfigured   bool                          `json:"api_key_configured" yaml:"api_key_configured"`
	Authenticated      bool                          `json:"authenticated" yaml:"authenticated"`
	CredentialExpiry   time.Time                     `json:"credential_expiry,omitempty" yaml:"credential_expiry,omitempty"`
	IdentityBridging   bool                          `json:"identity_bridging" yaml:"identity_bridging"`
	StreamTypes        []string                      `json:"stream_types" yaml:"stream_types"`
	Streams            map[string]StreamNotification `json:"streams,omitempty" yaml:"streams,omitempty"`
}
