package httpclient

import (
	"context"
	"net/http"
)

type Middleware func(ctx context.Context, req *HTTPRequest) error

type HTTPClientConfig struct {
	Middlewares []Middleware
	// Transport overrides the pooled default transport
	Transport http.RoundTripper
}

func DefaultHTTPClientConfig() HTTPClientConfig {
	return HTTPClientConfig{
		Middlewares: make([]Middleware, 0),
	}
}

func (c *HTTPClientConfig) WithMiddleware(m ...Middleware) *HTTPClientConfig {
	c.Middlewares = append(c.Middlewares, m...)
	return c
}
func (c *HTTPClientConfig) WithTransport(rt http.RoundTripper) *HTTPClientConfig {
	c.Transport = rt
	return c
}
