package auroraproxy

import (
	"sync"

	"github.com/joy-dx/auroraproxy/config"
	"github.com/joy-dx/auroraproxy/dto"
	"github.com/joy-dx/auroraproxy/relays"
	"github.com/joy-dx/auroraproxy/utils"
	"github.com/joy-dx/lockablemap"
)

var (
	service     *ProxySvc
	serviceOnce sync.Once
)

// ProvideProxySvc returns the process-wide proxy service.
func ProvideProxySvc(cfg *config.ProxySvcConfig) *ProxySvc {
	serviceOnce.Do(func() {
		service = NewProxySvc(cfg)
	})
	return service
}

// NewProxySvc builds an unhydrated service. Most callers want
// ProvideProxySvc; tests build isolated instances with this.
func NewProxySvc(cfg *config.ProxySvcConfig) *ProxySvc {
	s := &ProxySvc{
		cfg:             cfg,
		relay:           cfg.Relay(),
		clients:         make(map[string]dto.NetClientInterface),
		catalog:         dto.DefaultStreamCatalog(),
		delay:           utils.LinearDelay{Step: cfg.RetryStep, Jitter: cfg.RetryJitter},
		listenersByType: make(map[string][]chan dto.StreamNotification),
		activeByType:    make(map[string]int64),
		streamState:     *lockablemap.NewLockableMap[string, dto.StreamNotification](),
	}
	cfg.Relay().Debug(relays.RlyProxyLog{Msg: "Proxy service started"})
	return s
}
