package httpclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/joy-dx/auroraproxy/dto"
)

// HTTPClient performs single HTTP exchanges against the upstream API.
//
// It carries no authentication state: credentials are attached by the
// caller as plain headers. Transport failures are returned as
// *dto.UpstreamError so the retry executor and the proxy can classify them;
// any HTTP status, including 401 and 5xx, is a response and never an error.
//
// The underlying http.Client has no global timeout. Each call is bounded by
// its context, which lets event streams stay open for as long as the caller
// wants them.

const NetClientHTTPRef dto.NetClientType = "net.client.http"

type HTTPClient struct {
	NetClient dto.NetClient `json:"net_client" yaml:"net_client"`
	cfg       *HTTPClientConfig
	client    *http.Client
}

func NewHTTPClient(ref string, cfg *HTTPClientConfig) *HTTPClient {
	if cfg == nil {
		c := DefaultHTTPClientConfig()
		cfg = &c
	}
	transport := cfg.Transport
	if transport == nil {
		transport = &http.Transport{
			MaxIdleConns:        50,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
			DisableKeepAlives:   false,
			Proxy:               http.ProxyFromEnvironment,
		}
	}
	return &HTTPClient{
		cfg: cfg,
		NetClient: dto.NetClient{
			Name:        "HTTP Client",
			Ref:         ref,
			ClientType:  NetClientHTTPRef,
			Description: "Perform single HTTP exchanges and open event streams against the upstream API",
		},
		client: &http.Client{
			Transport: transport,
			// Redirects go back to the browser untouched, along with any
			// Set-Cookie they carry.
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

func (c *HTTPClient) Ref() string {
	return c.NetClient.Ref
}
func (c *HTTPClient) Type() dto.NetClientType {
	return NetClientHTTPRef
}

// ProcessRequest executes exactly one middleware-wrapped call and buffers the
// response body.
func (c *HTTPClient) ProcessRequest(ctx context.Context, inCfg *dto.RequestConfig) (dto.Response, error) {
	httpReq, reqCfg, err := c.buildRequest(ctx, inCfg)
	if err != nil {
		return dto.Response{}, err
	}

	// httpResp may be non-nil with error
	httpResp, reqErr := c.client.Do(httpReq)
	if httpResp != nil {
		defer func() {
			io.Copy(io.Discard, httpResp.Body) // drain fully for connection reuse
			httpResp.Body.Close()
		}()
	}
	if reqErr != nil {
		return dto.Response{}, classifyErr(ctx, reqCfg.URL, reqErr)
	}

	bodyBytes, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return dto.Response{}, classifyErr(ctx, reqCfg.URL, fmt.Errorf("read body: %w", err))
	}

	return dto.Response{
		StatusCode: httpResp.StatusCode,
		Headers:    httpResp.Header.Clone(),
		Body:       bodyBytes,
	}, nil
}

// OpenStream executes one call and returns the live response. The caller owns
// the body and must close it. The body stays readable until ctx is done.
func (c *HTTPClient) OpenStream(ctx context.Context, inCfg *dto.RequestConfig) (*http.Response, error) {
	httpReq, reqCfg, err := c.buildRequest(ctx, inCfg)
	if err != nil {
		return nil, err
	}
	// Compressed event streams are buffered by the decoder.
	if httpReq.Header.Get("Accept-Encoding") == "" {
		httpReq.Header.Set("Accept-Encoding", "identity")
	}

	httpResp, reqErr := c.client.Do(httpReq)
	if reqErr != nil {
		if httpResp != nil {
			httpResp.Body.Close()
		}
		return nil, classifyErr(ctx, reqCfg.URL, reqErr)
	}
	return httpResp, nil
}

func (c *HTTPClient) buildRequest(ctx context.Context, inCfg *dto.RequestConfig) (*http.Request, *HTTPRequest, error) {
	if inCfg == nil || inCfg.ReqConfig == nil {
		return nil, nil, dto.ErrNilReqConfig
	}
	cfg, castOk := inCfg.ReqConfig.(*HTTPRequestConfig)
	if !castOk {
		return nil, nil, errors.New("problem casting to httprequestconfig")
	}

	reqAny, err := cfg.NewRequest(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("build request: %w", err)
	}
	reqCfg, ok := reqAny.(*HTTPRequest)
	if !ok {
		return nil, nil, errors.New("problem casting built request to httprequest")
	}

	for _, mw := range c.cfg.Middlewares {
		if err := mw(ctx, reqCfg); err != nil {
			return nil, nil, fmt.Errorf("middleware aborted: %w", err)
		}
	}

	if err := reqCfg.FinalizeBody(); err != nil {
		return nil, nil, err
	}

	var body io.Reader
	if len(reqCfg.BodyBytes) > 0 {
		body = bytes.NewReader(reqCfg.BodyBytes)
	}
	httpReq, err := http.NewRequestWithContext(ctx, reqCfg.Method, reqCfg.URL, body)
	if err != nil {
		return nil, nil, fmt.Errorf("create request: %w", err)
	}

	for k, v := range reqCfg.Headers {
		httpReq.Header.Set(k, v)
	}
	if reqCfg.ContentType != "" && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", reqCfg.ContentType)
	}
	return httpReq, reqCfg, nil
}
