package gate

import (
	"sync"
	"time"
)

// BypassTTL is how long a "continue anyway" suppresses the gate for a domain.
const BypassTTL = 5 * time.Minute

// Bypass tracks temporary per-domain gate suppressions. It lives only in
// memory: a process restart clears all windows, which is intentional —
// bypass is meant to be ephemeral.
type Bypass struct {
	mu    sync.Mutex
	until map[string]time.Time
	ttl   time.Duration
	now   func() time.Time
}

// NewBypass creates a Bypass with the standard TTL.
func NewBypass() *Bypass {
	return &Bypass{
		until: make(map[string]time.Time),
		ttl:   BypassTTL,
		now:   time.Now,
	}
}

// SetNow overrides the clock, for tests.
func (b *Bypass) SetNow(now func() time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.now = now
}

// Grant opens a bypass window for domain. Blank domains are ignored.
func (b *Bypass) Grant(domain string) {
	if domain == "" {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.until[domain] = b.now().Add(b.ttl)
}

// Active reports whether domain currently has an open window, evicting it
// once expired.
func (b *Bypass) Active(domain string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	expiry, ok := b.until[domain]
	if !ok {
		return false
	}
	if !b.now().Before(expiry) {
		delete(b.until, domain)
		return false
	}
	return true
}
