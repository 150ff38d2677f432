// Package handler exposes the proxy service to the dashboard over HTTP.
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/joy-dx/auroraproxy/dto"
	"github.com/joy-dx/auroraproxy/relays"
	relayDTO "github.com/joy-dx/relay/dto"
)

// maxProxyBody bounds the JSON envelope posted to /api/proxy.
const maxProxyBody = 1 << 20

const requestIDHeader = "X-Request-ID"

// Server routes dashboard calls onto a proxy service.
type Server struct {
	svc   dto.ProxyInterface
	relay relayDTO.RelayInterface
	mux   *http.ServeMux
}

func New(svc dto.ProxyInterface, relay relayDTO.RelayInterface) *Server {
	s := &Server{
		svc:   svc,
		relay: relay,
		mux:   http.NewServeMux(),
	}

	s.mux.HandleFunc("POST /api/proxy", s.handleProxy)
	s.mux.HandleFunc("GET /api/stream", s.handleStream)
	s.mux.HandleFunc("GET /api/proxy/state", s.handleState)
	s.mux.HandleFunc("GET /healthz", s.handleHealth)

	return s
}

// Handler returns the routed handler with request IDs attached.
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
			r.Header.Set(requestIDHeader, id)
		}
		w.Header().Set(requestIDHeader, id)
		s.mux.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.State())
}

func (s *Server) handleProxy(w http.ResponseWriter, r *http.Request) {
	var req dto.ProxyRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxProxyBody))
	if err := dec.Decode(&req); err != nil {
		writeError(w, dto.NewProxyError(http.StatusBadRequest, dto.ErrorPayload{
			Error:   "Invalid request",
			Details: err.Error(),
		}, err))
		return
	}

	out := s.svc.Proxy(r.Context(), req)
	for k, vals := range out.Headers {
		for _, v := range vals {
			w.Header().Add(k, v)
		}
	}
	w.WriteHeader(out.Status)
	_, _ = w.Write(out.Body)
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := dto.StreamRequest{
		Type:          q.Get("type"),
		ClientID:      q.Get("client_id"),
		CommandID:     q.Get("command_id"),
		SensorType:    q.Get("sensor_type"),
		Token:         q.Get("token"),
		SessionCookie: q.Get("session"),
	}

	stream, err := s.svc.OpenStream(r.Context(), req)
	if err != nil {
		var pe *dto.ProxyError
		if !errors.As(err, &pe) {
			pe = dto.NewProxyError(http.StatusInternalServerError, dto.ErrorPayload{
				Error:   "Stream proxy failed",
				Details: err.Error(),
			}, err)
		}
		writeError(w, pe)
		return
	}

	if err := s.svc.ForwardStream(r.Context(), w, stream); err != nil {
		s.relay.Warn(relays.RlyStream{
			ID:   stream.ID,
			Type: stream.Type,
			Msg:  fmt.Sprintf("stream %s ended with error: %v", r.Header.Get(requestIDHeader), err),
		})
	}
}

func writeError(w http.ResponseWriter, pe *dto.ProxyError) {
	out := pe.Response()
	w.Header().Set("Content-Type", out.Headers.Get("Content-Type"))
	w.WriteHeader(out.Status)
	_, _ = w.Write(out.Body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
