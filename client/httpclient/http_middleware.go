package httpclient

import (
	"context"

	"github.com/joy-dx/auroraproxy/relays"
	relayDTO "github.com/joy-dx/relay/dto"
)

// StaticHeaderMiddleware injects static headers into every request.
func StaticHeaderMiddleware(headers map[string]string) Middleware {
	return func(ctx context.Context, r *HTTPRequest) error {
		if r.Headers == nil {
			r.Headers = make(map[string]string)
		}
		for k, v := range headers {
			r.Headers[k] = v
		}
		return nil
	}
}

// DefaultHeaderMiddleware sets headers only where the request has not
// already chosen a value.
func DefaultHeaderMiddleware(headers map[string]string) Middleware {
	return func(ctx context.Context, r *HTTPRequest) error {
		for k, v := range headers {
			if r.Header(k) == "" {
				r.SetHeader(k, v)
			}
		}
		return nil
	}
}

func UserAgentMiddleware(agent string) Middleware {
	return DefaultHeaderMiddleware(map[string]string{"User-Agent": agent})
}

// LoggingMiddleware reports every outbound call at debug level. Headers are
// never logged.
func LoggingMiddleware(relay relayDTO.RelayInterface) Middleware {
	return func(ctx context.Context, r *HTTPRequest) error {
		relay.Debug(relays.RlyUpstream{
			Method: r.Method,
			URL:    r.URL,
			Msg:    "upstream call",
		})
		return nil
	}
}
