package blacklist

import (
	"sync"
	"time"
)

// Blacklist holds access tokens revoked by logout until their natural
// expiry. It is shared by every request handler, constructed once in main.
type Blacklist struct {
	mu      sync.Mutex
	entries map[string]time.Time
}

func New() *Blacklist {
	return &Blacklist{entries: make(map[string]time.Time)}
}

func (b *Blacklist) Add(token string, expiresAt time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries[token] = expiresAt
	b.sweepLocked()
}

func (b *Blacklist) Has(token string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	exp, ok := b.entries[token]
	if !ok {
		return false
	}
	if time.Now().After(exp) {
		delete(b.entries, token)
		return false
	}
	return true
}

func (b *Blacklist) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}

// sweepLocked drops entries for tokens that already expired on their own.
func (b *Blacklist) sweepLocked() {
	now := time.Now()
	for token, exp := range b.entries {
		if now.After(exp) {
			delete(b.entries, token)
		}
	}
}
