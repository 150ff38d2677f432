package auth

import (
	"context"
	"log/slog"
	"sync"

	"github.com/joy-dx/auroraproxy/dto"
	"github.com/joy-dx/auroraproxy/relays"
	relayDTO "github.com/joy-dx/relay/dto"
)

func discardRelay() relayDTO.RelayInterface {
	return relays.NewSlogSink(slog.New(slog.DiscardHandler))
}

type fakeRequester struct {
	mu    sync.Mutex
	calls []*dto.RequestConfig
	do    func(cfg *dto.RequestConfig) (dto.Response, error)
}

func (f *fakeRequester) RequestOnce(ctx context.Context, cfg *dto.RequestConfig) (dto.Response, error) {
	f.mu.Lock()
	f.calls = append(f.calls, cfg)
	f.mu.Unlock()
	return f.do(cfg)
}

type fakeProvider struct {
	mu    sync.Mutex
	n     int
	block chan struct{}
	issue func(n int) (dto.TokenInfo, error)
}

func (f *fakeProvider) Authenticate(ctx context.Context) (dto.TokenInfo, error) {
	f.mu.Lock()
	f.n++
	n := f.n
	f.mu.Unlock()
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return dto.TokenInfo{}, ctx.Err()
		}
	}
	return f.issue(n)
}

func (f *fakeProvider) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.n
}
