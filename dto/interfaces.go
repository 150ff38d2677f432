package dto

import (
	"context"
	"net/http"
)

type ProxyInterface interface {
	Hydrate(ctx context.Context) error
	State() *ProxyState
	Proxy(ctx context.Context, req ProxyRequest) ProxyResponse
	OpenStream(ctx context.Context, req StreamRequest) (*Stream, error)
	ForwardStream(ctx context.Context, w http.ResponseWriter, stream *Stream) error
	RegisterClient(ref string, client NetClientInterface)
	RequestOnce(ctx context.Context, cfg *RequestConfig) (Response, error)
	RequestWithRetry(ctx context.Context, cfg *RequestConfig) (Response, error)
}

// Requester performs a single upstream exchange. The session authenticator
// only needs this slice of the proxy service.
type Requester interface {
	RequestOnce(ctx context.Context, cfg *RequestConfig) (Response, error)
}

// AuthProvider exchanges stored credentials for a session credential.
// Returned TokenInfo may carry cookies, an access token, or both.
type AuthProvider interface {
	Authenticate(ctx context.Context) (TokenInfo, error)
}

// IdentityVerifier validates platform identity tokens presented by browsers.
type IdentityVerifier interface {
	Verify(ctx context.Context, rawToken string) (Identity, error)
}

// CredentialSource yields the headers carrying the proxy's own service
// credential, used in place of a validated browser identity token.
type CredentialSource interface {
	Header(ctx context.Context) (http.Header, error)
}

// NetClientInterface abstracts the outbound clients for mocking
type NetClientInterface interface {
	Ref() string
	Type() NetClientType
	ProcessRequest(ctx context.Context, cfg *RequestConfig) (Response, error)
}

// StreamClientInterface is implemented by clients that can hand back an
// unbuffered response body for long-lived event streams.
type StreamClientInterface interface {
	OpenStream(ctx context.Context, cfg *RequestConfig) (*http.Response, error)
}
