package engine

import (
	"sync"
	"time"
)

// domainEntry stores the preferred fetch mode for a host with a TTL.
type domainEntry struct {
	mode      string
	expiresAt time.Time
}

// DomainMemory remembers which hosts needed a rendered fetch, so later
// requests skip the plain attempt. Entries expire after the configured TTL
// and are cleaned up periodically.
type DomainMemory struct {
	store sync.Map // host (string) -> *domainEntry
	ttl   time.Duration
	now   func() time.Time
	done  chan struct{}
	once  sync.Once
}

// NewDomainMemory creates a DomainMemory with the given TTL and starts
// a background goroutine that prunes expired entries every hour.
func NewDomainMemory(ttl time.Duration) *DomainMemory {
	dm := newDomainMemory(ttl, time.Now)
	go dm.cleanupLoop()
	return dm
}

func newDomainMemory(ttl time.Duration, now func() time.Time) *DomainMemory {
	return &DomainMemory{ttl: ttl, now: now, done: make(chan struct{})}
}

// Get returns the remembered mode for a host, or "" if not found / expired.
func (dm *DomainMemory) Get(host string) string {
	val, ok := dm.store.Load(host)
	if !ok {
		return ""
	}
	entry := val.(*domainEntry)
	if dm.now().After(entry.expiresAt) {
		dm.store.Delete(host)
		return ""
	}
	return entry.mode
}

// Set records the mode that produced usable content for a host.
func (dm *DomainMemory) Set(host, mode string) {
	dm.store.Store(host, &domainEntry{
		mode:      mode,
		expiresAt: dm.now().Add(dm.ttl),
	})
}

// Delete forgets a host (e.g. after the remembered mode fails).
func (dm *DomainMemory) Delete(host string) {
	dm.store.Delete(host)
}

// Stop terminates the background cleanup goroutine. Safe to call twice.
func (dm *DomainMemory) Stop() {
	dm.once.Do(func() { close(dm.done) })
}

func (dm *DomainMemory) cleanupLoop() {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-dm.done:
			return
		case <-ticker.C:
			now := dm.now()
			dm.store.Range(func(key, value any) bool {
				if now.After(value.(*domainEntry).expiresAt) {
					dm.store.Delete(key)
				}
				return true
			})
		}
	}
}
