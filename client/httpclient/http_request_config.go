package httpclient

import (
	"context"
	"net/http"

	"github.com/joy-dx/auroraproxy/dto"
)

// HTTPRequestConfig is immutable input (safe to reuse across retries).
type HTTPRequestConfig struct {
	Method string                 `json:"method" yaml:"method"`
	URL    string                 `json:"url" yaml:"url"`
	Body   map[string]interface{} `json:"body" yaml:"body"`
	// RawBody is sent as-is and takes precedence over Body
	RawBody []byte `json:"-" yaml:"-"`
	// BodyType application/json, application/x-www-form-urlencoded
	BodyType string            `json:"body_type" yaml:"body_type"`
	Headers  map[string]string `json:"headers" yaml:"headers"`
}

func DefaultHTTPRequestConfig() HTTPRequestConfig {
	return HTTPRequestConfig{
		Method:   http.MethodGet,
		Body:     map[string]interface{}{},
		BodyType: "application/json",
		Headers:  make(map[string]string),
	}
}

func (c *HTTPRequestConfig) Ref() dto.NetClientType {
	return NetClientHTTPRef
}

func (c *HTTPRequestConfig) WithMethod(method string) *HTTPRequestConfig {
	c.Method = method
	return c
}
func (c *HTTPRequestConfig) WithBody(body map[string]interface{}) *HTTPRequestConfig {
	c.Body = body
	return c
}
func (c *HTTPRequestConfig) WithRawBody(body []byte, contentType string) *HTTPRequestConfig {
	c.RawBody = body
	c.BodyType = contentType
	return c
}
func (c *HTTPRequestConfig) WithBodyType(bodyType string) *HTTPRequestConfig {
	c.BodyType = bodyType
	return c
}
func (c *HTTPRequestConfig) WithHeaders(headers map[string]string) *HTTPRequestConfig {
	c.Headers = headers
	return c
}
func (c *HTTPRequestConfig) WithHeader(k, v string) *HTTPRequestConfig {
	if c.Headers == nil {
		c.Headers = make(map[string]string)
	}
	c.Headers[k] = v
	return c
}
func (c *HTTPRequestConfig) WithURL(url string) *HTTPRequestConfig {
	c.URL = url
	return c
}

// NewRequest creates a per-call mutable request object so retries never see
// a previous attempt's middleware changes.
func (c *HTTPRequestConfig) NewRequest(ctx context.Context) (any, error) {
	r := &HTTPRequest{
		Method:   c.Method,
		URL:      c.URL,
		BodyType: c.BodyType,
		Headers:  make(map[string]string, len(c.Headers)),
	}
	for k, v := range c.Headers {
		r.Headers[k] = v
	}
	if len(c.Body) > 0 {
		r.Body = make(map[string]any, len(c.Body))
		for k, v := range c.Body {
			r.Body[k] = v
		}
	}
	if len(c.RawBody) > 0 {
		r.BodyBytes = append([]byte(nil), c.RawBody...)
		r.ContentType = c.BodyType
	}
	return r, nil
}

// HTTPRequest is per-call mutable state.
type HTTPRequest struct {
	Method   string
	URL      string
	Body     map[string]any
	BodyType string
	Headers  map[string]string
	// Finalized wire body (deterministic for tests and retries)
	BodyBytes   []byte
	ContentType string
}

func (r *HTTPRequest) ClientType() dto.NetClientType { return NetClientHTTPRef }

func (r *HTTPRequest) SetHeader(k, v string) {
	if r.Headers == nil {
		r.Headers = map[string]string{}
	}
	r.Headers[k] = v
}

func (r *HTTPRequest) Header(k string) string {
	if r.Headers == nil {
		return ""
	}
	if v, ok := r.Headers[k]; ok {
		return v
	}
	for hk, v := range r.Headers {
		if http.CanonicalHeaderKey(hk) == http.CanonicalHeaderKey(k) {
			return v
		}
	}
	return ""
}
