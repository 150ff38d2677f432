package relays

import (
	"sync"

	"github.com/joy-dx/relay"
	relayConfig "github.com/joy-dx/relay/config"
	relayDTO "github.com/joy-dx/relay/dto"
)

var sinksOnce sync.Once

// ProvideRelay returns the process relay service. The sinks given on the
// first call are the ones registered; later calls return the same service.
func ProvideRelay(sinks ...relayDTO.RelaySinkInterface) *relay.RelaySvc {
	cfg := relayConfig.DefaultRelaySvcConfig()
	cfg.Sinks = sinks
	svc := relay.ProvideRelaySvc(&cfg)
	sinksOnce.Do(func() {
		for _, sink := range sinks {
			svc.RegisterSink(sink)
		}
	})
	return svc
}
