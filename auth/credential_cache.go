package auth

import (
	"sync"
	"time"

	"github.com/joy-dx/auroraproxy/dto"
)

// CredentialCache holds at most one session credential. Get never returns a
// credential that is expired or about to expire within the refresh buffer.
type CredentialCache struct {
	mu     sync.RWMutex
	token  dto.TokenInfo
	buffer time.Duration
}

func NewCredentialCache(refreshBuffer time.Duration) *CredentialCache {
	return &CredentialCache{buffer: refreshBuffer}
}

func (c *CredentialCache) Get() (dto.TokenInfo, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.token.IsExpired(c.buffer) {
		return dto.TokenInfo{}, false
	}
	return c.token, true
}

func (c *CredentialCache) Set(tok dto.TokenInfo) {
	c.mu.Lock()
	c.token = tok
	c.mu.Unlock()
}

// Invalidate clears the cache only while it still holds tok, so a caller
// reporting a stale 401 cannot evict a credential another request just
// obtained.
func (c *CredentialCache) Invalidate(tok dto.TokenInfo) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if tok.Value() == "" || c.token.Value() != tok.Value() {
		return false
	}
	c.token = dto.TokenInfo{}
	return true
}

func (c *CredentialCache) Clear() {
	c.mu.Lock()
	c.token = dto.TokenInfo{}
	c.mu.Unlock()
}

// Expiry reports the cached credential's expiry, zero when empty or unbounded.
func (c *CredentialCache) Expiry() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token.Expiry
}
