package auroraproxy

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/joy-dx/auroraproxy/config"
	"github.com/joy-dx/auroraproxy/dto"
)

func decodePayload(t *testing.T, body []byte) dto.ErrorPayload {
	t.Helper()
	var p dto.ErrorPayload
	if err := json.Unmarshal(body, &p); err != nil {
		t.Fatalf("error body %q is not JSON: %v", body, err)
	}
	return p
}

// sessionUpstream issues session=tok<N> on every login and serves /api/data
// through data.
func sessionUpstream(logins *atomic.Int64, data http.HandlerFunc) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		n := logins.Add(1)
		http.SetCookie(w, &http.Cookie{Name: "session", Value: fmt.Sprintf("tok%d", n), Path: "/"})
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	})
	mux.HandleFunc("/api/data", data)
	return mux
}

type upstreamCall struct {
	apiKey, method, path, query, body string
}

func TestProxySvc_Proxy_Golden(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		handler     http.HandlerFunc
		req         dto.ProxyRequest
		wantStatus  int
		wantBody    string
		wantType    string
		wantAPIKey  string
		wantMethod  string
		wantUpBody  string
		wantUpPath  string
		wantUpQuery string
	}{
		{
			name: "dashboard stats",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(`{"total_clients": 5}`))
			},
			req:        dto.ProxyRequest{Path: "/api/dashboard/stats", Method: "GET"},
			wantStatus: 200,
			wantBody:   `{"total_clients":5}`,
			wantType:   "application/json",
			wantAPIKey: "ak_live",
			wantMethod: http.MethodGet,
			wantUpPath: "/api/dashboard/stats",
		},
		{
			name: "echo keeps status and body and defaults content type",
			handler: func(w http.ResponseWriter, r *http.Request) {
				b, _ := io.ReadAll(r.Body)
				w.Header()["Content-Type"] = nil
				w.WriteHeader(http.StatusCreated)
				_, _ = w.Write(b)
			},
			req:        dto.ProxyRequest{Path: "/api/echo", Method: "post", Body: json.RawMessage(`{"a": [1, 2]}`)},
			wantStatus: 201,
			wantBody:   `{"a":[1,2]}`,
			wantType:   "application/json",
			wantAPIKey: "ak_live",
			wantMethod: http.MethodPost,
			wantUpBody: `{"a":[1,2]}`,
			wantUpPath: "/api/echo",
		},
		{
			name: "non json body passes through",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "text/csv")
				_, _ = w.Write([]byte("a, b\n1, 2\n"))
			},
			req:         dto.ProxyRequest{Path: "/api/export?format=csv"},
			wantStatus:  200,
			wantBody:    "a, b\n1, 2\n",
			wantType:    "text/csv",
			wantAPIKey:  "ak_live",
			wantMethod:  http.MethodGet,
			wantUpPath:  "/api/export",
			wantUpQuery: "format=csv",
		},
		{
			name: "upstream 404 mirrored",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusNotFound)
				_, _ = w.Write([]byte(`{"error": "no such sensor"}`))
			},
			req:        dto.ProxyRequest{Path: "/api/sensors/9"},
			wantStatus: 404,
			wantBody:   `{"error":"no such sensor"}`,
			wantType:   "application/json",
			wantAPIKey: "ak_live",
			wantMethod: http.MethodGet,
			wantUpPath: "/api/sensors/9",
		},
		{
			name: "get drops body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				b, _ := io.ReadAll(r.Body)
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(fmt.Sprintf(`{"len":%d}`, len(b))))
			},
			req:        dto.ProxyRequest{Path: "/api/readings", Body: json.RawMessage(`{"x":1}`)},
			wantStatus: 200,
			wantBody:   `{"len":0}`,
			wantType:   "application/json",
			wantAPIKey: "ak_live",
			wantMethod: http.MethodGet,
			wantUpPath: "/api/readings",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			seen := make(chan upstreamCall, 1)
			s := newUpstreamSvc(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				b, _ := io.ReadAll(r.Body)
				seen <- upstreamCall{
					apiKey: r.Header.Get("X-API-Key"),
					method: r.Method,
					path:   r.URL.Path,
					query:  r.URL.RawQuery,
					body:   string(b),
				}
				r.Body = io.NopCloser(strings.NewReader(string(b)))
				tt.handler(w, r)
			}), func(cfg *config.ProxySvcConfig) {
				cfg.WithAPIKey("ak_live")
			})

			out := s.Proxy(context.Background(), tt.req)

			if out.Status != tt.wantStatus {
				t.Fatalf("status=%d want %d (body %s)", out.Status, tt.wantStatus, out.Body)
			}
			if string(out.Body) != tt.wantBody {
				t.Fatalf("body=%q want %q", out.Body, tt.wantBody)
			}
			if ct := out.Headers.Get("Content-Type"); ct != tt.wantType {
				t.Fatalf("content type=%q want %q", ct, tt.wantType)
			}
			got := <-seen
			if got.apiKey != tt.wantAPIKey {
				t.Fatalf("api key=%q want %q", got.apiKey, tt.wantAPIKey)
			}
			if got.method != tt.wantMethod {
				t.Fatalf("method=%q want %q", got.method, tt.wantMethod)
			}
			if got.path != tt.wantUpPath || got.query != tt.wantUpQuery {
				t.Fatalf("upstream path=%q query=%q want %q %q", got.path, got.query, tt.wantUpPath, tt.wantUpQuery)
			}
			if got.body != tt.wantUpBody {
				t.Fatalf("upstream body=%q want %q", got.body, tt.wantUpBody)
			}
		})
	}
}

func TestProxySvc_Proxy_ReauthOnce(t *testing.T) {
	t.Parallel()

	var logins, dataCalls atomic.Int64
	s := newUpstreamSvc(t, sessionUpstream(&logins, func(w http.ResponseWriter, r *http.Request) {
		n := dataCalls.Add(1)
		if n == 1 {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"session expired"}`))
			return
		}
		if ck, err := r.Cookie("session"); err != nil || ck.Value != "tok2" {
			t.Errorf("retry carried cookie %v, want tok2", ck)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok": 1}`))
	}), func(cfg *config.ProxySvcConfig) {
		cfg.WithSessionCredentials("a", "b")
	})

	out := s.Proxy(context.Background(), dto.ProxyRequest{Path: "/api/data"})
	if out.Status != http.StatusOK || string(out.Body) != `{"ok":1}` {
		t.Fatalf("got %d %s, want 200 {\"ok\":1}", out.Status, out.Body)
	}
	if got := logins.Load(); got != 2 {
		t.Fatalf("logins=%d want 2 (initial plus one re-authentication)", got)
	}
	if got := s.Session().Logins(); got != 2 {
		t.Fatalf("authenticator logins=%d want 2", got)
	}
}

func TestProxySvc_Proxy_SecondUnauthorizedPassesThrough(t *testing.T) {
	t.Parallel()

	var logins, dataCalls atomic.Int64
	s := newUpstreamSvc(t, sessionUpstream(&logins, func(w http.ResponseWriter, r *http.Request) {
		dataCalls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"nope"}`))
	}), func(cfg *config.ProxySvcConfig) {
		cfg.WithSessionCredentials("a", "b")
	})

	out := s.Proxy(context.Background(), dto.ProxyRequest{Path: "/api/data"})
	if out.Status != http.StatusUnauthorized || string(out.Body) != `{"error":"nope"}` {
		t.Fatalf("got %d %s", out.Status, out.Body)
	}
	if got := dataCalls.Load(); got != 2 {
		t.Fatalf("data calls=%d want 2", got)
	}
	if got := logins.Load(); got != 2 {
		t.Fatalf("logins=%d want 2", got)
	}
}

func TestProxySvc_Proxy_APIKeyFallsBackToSession(t *testing.T) {
	t.Parallel()

	var logins atomic.Int64
	s := newUpstreamSvc(t, sessionUpstream(&logins, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-API-Key") != "" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if _, err := r.Cookie("session"); err != nil {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"via":"session"}`))
	}), func(cfg *config.ProxySvcConfig) {
		cfg.WithAPIKey("revoked").WithSessionCredentials("a", "b")
	})

	out := s.Proxy(context.Background(), dto.ProxyRequest{Path: "/api/data"})
	if out.Status != http.StatusOK || string(out.Body) != `{"via":"session"}` {
		t.Fatalf("got %d %s", out.Status, out.Body)
	}
	if got := logins.Load(); got != 1 {
		t.Fatalf("logins=%d want 1", got)
	}
}

func TestProxySvc_Proxy_SessionCookieForwarded(t *testing.T) {
	t.Parallel()

	var logins atomic.Int64
	s := newUpstreamSvc(t, sessionUpstream(&logins, func(w http.ResponseWriter, r *http.Request) {
		ck, err := r.Cookie("session")
		if err != nil || ck.Value != "browser" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{}`))
	}), func(cfg *config.ProxySvcConfig) {
		cfg.WithAPIKey("ak_live").WithSessionCredentials("a", "b")
	})

	out := s.Proxy(context.Background(), dto.ProxyRequest{Path: "/api/data", SessionCookie: "browser"})
	if out.Status != http.StatusOK {
		t.Fatalf("status=%d want 200", out.Status)
	}
	if got := logins.Load(); got != 0 {
		t.Fatalf("logins=%d want 0", got)
	}
}

func TestProxySvc_Proxy_LoginCapturesSession(t *testing.T) {
	t.Parallel()

	var dataCookie atomic.Value
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var creds map[string]string
		if err := json.NewDecoder(r.Body).Decode(&creds); err != nil || creds["username"] != "a" || creds["password"] != "b" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if r.Header.Get("X-API-Key") != "" {
			t.Errorf("login pass-through attached the api key")
		}
		w.Header().Set("Set-Cookie", "sess=abc123; Path=/")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"user": "a"}`))
	})
	mux.HandleFunc("/api/data", func(w http.ResponseWriter, r *http.Request) {
		dataCookie.Store(r.Header.Get("Cookie"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{}`))
	})
	s := newUpstreamSvc(t, mux, func(cfg *config.ProxySvcConfig) {
		cfg.WithSpliceLoginCookie(true)
	})

	out := s.Proxy(context.Background(), dto.ProxyRequest{
		Path:   "/api/auth/login",
		Method: "POST",
		Body:   json.RawMessage(`{"username":"a","password":"b"}`),
	})
	if out.Status != http.StatusOK {
		t.Fatalf("status=%d body=%s", out.Status, out.Body)
	}

	tok, ok := s.Session().Cached()
	if !ok || tok.CookieHeader() != "sess=abc123" {
		t.Fatalf("cached=%q ok=%v want sess=abc123", tok.CookieHeader(), ok)
	}

	var body map[string]string
	if err := json.Unmarshal(out.Body, &body); err != nil {
		t.Fatalf("login body: %v", err)
	}
	if body["session_cookie"] != "sess=abc123" || body["user"] != "a" {
		t.Fatalf("spliced body=%v", body)
	}

	if out := s.Proxy(context.Background(), dto.ProxyRequest{Path: "/api/data"}); out.Status != http.StatusOK {
		t.Fatalf("follow-up status=%d", out.Status)
	}
	if got, _ := dataCookie.Load().(string); got != "sess=abc123" {
		t.Fatalf("follow-up cookie=%q want sess=abc123", got)
	}
	if got := s.Session().Logins(); got != 0 {
		t.Fatalf("logins=%d want 0", got)
	}
}

func TestProxySvc_Proxy_Failures(t *testing.T) {
	t.Parallel()

	t.Run("connection refused is 503", func(t *testing.T) {
		t.Parallel()

		dead := httptest.NewServer(http.NotFoundHandler())
		deadURL := dead.URL
		dead.Close()

		cfg := config.DefaultProxySvcConfig()
		cfg.WithRelay(&fakeRelay{}).WithUpstreamURL(deadURL).WithAPIKey("ak_live")
		s := NewProxySvc(&cfg)
		delay := &recordingDelay{}
		s.WithDelay(delay)
		if err := s.Hydrate(context.Background()); err != nil {
			t.Fatalf("Hydrate err: %v", err)
		}

		out := s.Proxy(context.Background(), dto.ProxyRequest{Path: "/api/data"})
		if out.Status != http.StatusServiceUnavailable {
			t.Fatalf("status=%d want 503", out.Status)
		}
		p := decodePayload(t, out.Body)
		if p.Error != "Upstream unavailable" || !p.Retryable || p.Details == "" {
			t.Fatalf("payload=%+v", p)
		}
		if got := delay.Attempts(); len(got) != 2 || got[0] != 1 || got[1] != 2 {
			t.Fatalf("backoff attempts=%v want [1 2]", got)
		}
	})

	t.Run("dropped connections are retried", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int64
		s := newUpstreamSvc(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) <= 2 {
				conn, _, err := http.NewResponseController(w).Hijack()
				if err != nil {
					t.Errorf("hijack: %v", err)
					return
				}
				_ = conn.Close()
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"ok":true}`))
		}), func(cfg *config.ProxySvcConfig) {
			cfg.WithAPIKey("ak_live")
		})
		delay := &recordingDelay{}
		s.WithDelay(delay)

		out := s.Proxy(context.Background(), dto.ProxyRequest{Path: "/api/data"})
		if out.Status != http.StatusOK {
			t.Fatalf("status=%d want 200 body=%s", out.Status, out.Body)
		}
		if got := calls.Load(); got != 3 {
			t.Fatalf("upstream calls=%d want 3", got)
		}
		if got := delay.Attempts(); len(got) != 2 || got[0] != 1 || got[1] != 2 {
			t.Fatalf("backoff attempts=%v want [1 2]", got)
		}
	})

	t.Run("unknown host is not retried", func(t *testing.T) {
		t.Parallel()

		cfg := config.DefaultProxySvcConfig()
		cfg.WithRelay(&fakeRelay{}).
			WithUpstreamURL("http://no-such-host.invalid").
			WithAPIKey("ak_live").
			WithRequestTimeout(2 * time.Second)
		s := NewProxySvc(&cfg)
		delay := &recordingDelay{}
		s.WithDelay(delay)
		if err := s.Hydrate(context.Background()); err != nil {
			t.Fatalf("Hydrate err: %v", err)
		}

		out := s.Proxy(context.Background(), dto.ProxyRequest{Path: "/api/connections"})
		if out.Status < 500 {
			t.Fatalf("status=%d want a 5xx", out.Status)
		}
		if got := delay.Attempts(); len(got) != 0 {
			t.Fatalf("backoff attempts=%v want none", got)
		}
	})

	t.Run("slow upstream is 504", func(t *testing.T) {
		t.Parallel()

		s := newUpstreamSvc(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
		}), func(cfg *config.ProxySvcConfig) {
			cfg.WithAPIKey("ak_live").WithRequestTimeout(50 * time.Millisecond).WithMaxAttempts(2)
		})

		out := s.Proxy(context.Background(), dto.ProxyRequest{Path: "/api/data"})
		if out.Status != http.StatusGatewayTimeout {
			t.Fatalf("status=%d want 504", out.Status)
		}
		if p := decodePayload(t, out.Body); p.Error != "Upstream timeout" || !p.Retryable {
			t.Fatalf("payload=%+v", p)
		}
	})

	t.Run("no credentials configured", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int64
		s := newUpstreamSvc(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
		}), nil)

		out := s.Proxy(context.Background(), dto.ProxyRequest{Path: "/api/data"})
		if out.Status != http.StatusUnauthorized {
			t.Fatalf("status=%d want 401", out.Status)
		}
		p := decodePayload(t, out.Body)
		if p.Code != "missing_credentials" || p.Hint == "" {
			t.Fatalf("payload=%+v", p)
		}
		if calls.Load() != 0 {
			t.Fatalf("upstream called %d times", calls.Load())
		}
	})

	t.Run("rejected login", func(t *testing.T) {
		t.Parallel()

		s := newUpstreamSvc(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		}), func(cfg *config.ProxySvcConfig) {
			cfg.WithSessionCredentials("a", "wrong")
		})

		out := s.Proxy(context.Background(), dto.ProxyRequest{Path: "/api/data"})
		if out.Status != http.StatusUnauthorized {
			t.Fatalf("status=%d want 401", out.Status)
		}
		if p := decodePayload(t, out.Body); p.Code != "authentication_failed" {
			t.Fatalf("payload=%+v", p)
		}
	})

	t.Run("invalid path", func(t *testing.T) {
		t.Parallel()

		s := newTestSvc(t)
		for _, path := range []string{"", "api/data", "//evil.example.com/x"} {
			out := s.Proxy(context.Background(), dto.ProxyRequest{Path: path})
			if out.Status != http.StatusBadRequest {
				t.Fatalf("path %q status=%d want 400", path, out.Status)
			}
		}
	})
}

func TestProxySvc_EnsureAuthenticatedIdempotent(t *testing.T) {
	t.Parallel()

	var logins atomic.Int64
	s := newUpstreamSvc(t, sessionUpstream(&logins, http.NotFound), func(cfg *config.ProxySvcConfig) {
		cfg.WithAPIKey("a:b")
	})

	for i := 0; i < 2; i++ {
		if !s.Session().EnsureAuthenticated(context.Background()) {
			t.Fatalf("call %d: not authenticated", i)
		}
	}
	if got := logins.Load(); got != 1 {
		t.Fatalf("logins=%d want 1", got)
	}
	if !s.State().Authenticated {
		t.Fatalf("state does not report the cached session")
	}
}
