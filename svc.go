package auroraproxy

import (
	"sync"

	"github.com/joy-dx/auroraproxy/auth"
	"github.com/joy-dx/auroraproxy/config"
	"github.com/joy-dx/auroraproxy/dto"
	"github.com/joy-dx/auroraproxy/utils"
	"github.com/joy-dx/lockablemap"
	relayDTO "github.com/joy-dx/relay/dto"
)

// ProxySvc forwards dashboard REST calls and event streams to the upstream
// telemetry API, attaching whichever upstream credential applies.
type ProxySvc struct {
	cfg   *config.ProxySvcConfig
	relay relayDTO.RelayInterface

	muClients sync.RWMutex
	clients   map[string]dto.NetClientInterface

	session  *auth.SessionAuthenticator
	verifier dto.IdentityVerifier
	service  dto.CredentialSource
	catalog  *dto.StreamCatalog
	delay    utils.RetryDelay

	streamState     lockablemap.LockableMap[string, dto.StreamNotification]
	muListeners     sync.Mutex
	listenersByType map[string][]chan dto.StreamNotification
	activeByType    map[string]int64
}

var _ dto.ProxyInterface = (*ProxySvc)(nil)

func (s *ProxySvc) RegisterClient(ref string, client dto.NetClientInterface) {
	s.muClients.Lock()
	defer s.muClients.Unlock()
	s.clients[ref] = client
}

func (s *ProxySvc) client(ref string) (dto.NetClientInterface, bool) {
	s.muClients.RLock()
	defer s.muClients.RUnlock()
	c, ok := s.clients[ref]
	return c, ok
}

// WithIdentityVerifier replaces the verifier Hydrate would build from config.
func (s *ProxySvc) WithIdentityVerifier(v dto.IdentityVerifier) *ProxySvc {
	s.verifier = v
	return s
}

// WithServiceCredential replaces the credential Hydrate would build from
// config.
func (s *ProxySvc) WithServiceCredential(c dto.CredentialSource) *ProxySvc {
	s.service = c
	return s
}

// WithDelay replaces the backoff between retry attempts.
func (s *ProxySvc) WithDelay(d utils.RetryDelay) *ProxySvc {
	s.delay = d
	return s
}

// Session exposes the session authenticator once hydrated.
func (s *ProxySvc) Session() *auth.SessionAuthenticator {
	return s.session
}

// StreamListener returns a channel of updates for a stream type
func (s *ProxySvc) StreamListener(streamType string) (<-chan dto.StreamNotification, func()) {
	s.muListeners.Lock()
	defer s.muListeners.Unlock()

	ch := make(chan dto.StreamNotification, 10)
	s.listenersByType[streamType] = append(s.listenersByType[streamType], ch)

	var once sync.Once
	unsub := func() {
		once.Do(func() {
			s.muListeners.Lock()
			defer s.muListeners.Unlock()

			chans := s.listenersByType[streamType]
			out := chans[:0]
			found := false
			for _, c := range chans {
				if c != ch {
					out = append(out, c)
				} else {
					found = true
				}
			}
			if len(out) == 0 {
				delete(s.listenersByType, streamType)
			} else {
				s.listenersByType[streamType] = out
			}
			// StreamListenerClose may already have closed it
			if found {
				close(ch)
			}
		})
	}

	return ch, unsub
}

// StreamListenerClose closes all channels for a given stream type manually
func (s *ProxySvc) StreamListenerClose(streamType string) {
	s.muListeners.Lock()
	defer s.muListeners.Unlock()
	if chans, ok := s.listenersByType[streamType]; ok {
		for _, c := range chans {
			close(c)
		}
		delete(s.listenersByType, streamType)
	}
}
