package tunnel

import (
	"sync"
	"time"

	"github.com/jspahr/azfleet/internal/logger"
)

// DefaultIdleTimeout is applied to new entries when the pool was built
// without an explicit idle timeout.
const DefaultIdleTimeout = 5 * time.Minute

// Key identifies one reusable tunnel route. Two requests with the same key
// share a tunnel; different keys never do. The resource group is not part
// of the key: Bastion plus target identity already pin down the route, so
// the group only matters at creation time.
type Key struct {
	Bastion    string
	TargetID   string
	RemotePort int
}

// less orders keys for deterministic eviction tie-breaking.
func (k Key) less(o Key) bool {
	if k.Bastion != o.Bastion {
		return k.Bastion < o.Bastion
	}
	if k.TargetID != o.TargetID {
		return k.TargetID < o.TargetID
	}
	return k.RemotePort < o.RemotePort
}

// Entry wraps a live tunnel handle with usage metadata. Entries are
// read-only to callers; all mutation happens inside the pool under its
// lock.
//
// Handle is set once before the entry is published and is always safe to
// read. The metadata accessors read fields the pool updates on reuse, so
// their values are only meaningful between the caller's own pool
// operations; polling a retained *Entry while other goroutines hit the
// same key races with those updates.
type Entry struct {
	handle      Handle
	createdAt   time.Time
	lastUsed    time.Time
	useCount    int
	idleTimeout time.Duration
}

// Handle returns the tunnel handle for dialing the local listener.
func (e *Entry) Handle() Handle { return e.handle }

// CreatedAt returns when the tunnel was established.
func (e *Entry) CreatedAt() time.Time { return e.createdAt }

// LastUsed returns when the entry was last handed out.
func (e *Entry) LastUsed() time.Time { return e.lastUsed }

// UseCount returns how many times the entry has been reused after
// creation. The creating call does not count.
func (e *Entry) UseCount() int { return e.useCount }

// IdleTimeout returns the idle duration after which the reaper may close
// this tunnel.
func (e *Entry) IdleTimeout() time.Duration { return e.idleTimeout }

// Pool caches established tunnels by route for reuse across fleet
// operations. It enforces an optional capacity bound with least-recently-
// used eviction and replaces entries that fail their health check.
//
// A single mutex guards the whole pool and is held for the entire
// GetOrCreate critical section, including the blocking provider calls.
// That serializes pool operations globally but guarantees that concurrent
// requests for the same route trigger exactly one tunnel creation.
type Pool struct {
	mu          sync.Mutex
	entries     map[Key]*Entry
	provider    Provider
	maxTunnels  int
	idleTimeout time.Duration
	log         logger.Logger
}

// Options configures a Pool.
type Options struct {
	// MaxTunnels bounds the number of live tunnels (0 = unbounded).
	MaxTunnels int

	// IdleTimeout is stamped onto new entries and consulted by the
	// reaper. Zero means DefaultIdleTimeout.
	IdleTimeout time.Duration

	// Logger receives close and health-check failures. Nil means the
	// package default.
	Logger logger.Logger
}

// NewPool creates an empty pool backed by the given provider.
func NewPool(provider Provider, opts Options) *Pool {
	if opts.IdleTimeout == 0 {
		opts.IdleTimeout = DefaultIdleTimeout
	}
	if opts.Logger == nil {
		opts.Logger = logger.NewEnvLogger("[tunnel]")
	}
	return &Pool{
		entries:     make(map[Key]*Entry),
		provider:    provider,
		maxTunnels:  opts.MaxTunnels,
		idleTimeout: opts.IdleTimeout,
		log:         opts.Logger,
	}
}

// GetOrCreate returns a live tunnel entry for the route, creating one if
// no healthy cached entry exists. resourceGroup is passed through to
// tunnel creation only; it is not part of the route key, so if callers
// disagree on the group for an otherwise identical route, the value seen
// at creation time wins.
//
// Creation failures are returned to the caller and never retried by the
// pool. Close and health-check failures are logged and absorbed.
func (p *Pool) GetOrCreate(bastion, resourceGroup, targetID string, remotePort int) (*Entry, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	key := Key{Bastion: bastion, TargetID: targetID, RemotePort: remotePort}

	if entry, ok := p.entries[key]; ok {
		if p.provider.CheckHealth(entry.handle) {
			entry.lastUsed = time.Now()
			entry.useCount++
			return entry, nil
		}
		// Stale tunnel: tear it down and recreate below.
		p.log.Debug("tunnel to %s is unhealthy, replacing", targetID)
		p.closeEntry(key, entry)
	}

	if p.maxTunnels > 0 && len(p.entries) >= p.maxTunnels {
		p.evictOldest()
	}

	localPort, err := p.provider.AllocatePort()
	if err != nil {
		return nil, err
	}

	handle, err := p.provider.Create(bastion, resourceGroup, targetID, localPort, remotePort)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	entry := &Entry{
		handle:      handle,
		createdAt:   now,
		lastUsed:    now,
		idleTimeout: p.idleTimeout,
	}
	p.entries[key] = entry
	return entry, nil
}

// Size returns the number of live tunnels in the pool.
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}

// CloseAll tears down every tunnel and empties the pool. Close failures
// are logged per entry and do not stop the rest from closing. Intended for
// process shutdown so local listeners and tunnel subprocesses aren't
// leaked.
func (p *Pool) CloseAll() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for key, entry := range p.entries {
		p.closeEntry(key, entry)
	}
}

// ReapIdle removes and closes every entry whose idle time exceeds its
// idle timeout. Returns the number of entries reaped. Called by the
// Reaper; safe to call directly.
func (p *Pool) ReapIdle() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now()
	reaped := 0
	for key, entry := range p.entries {
		if now.Sub(entry.lastUsed) > entry.idleTimeout {
			p.log.Debug("reaping idle tunnel to %s", key.TargetID)
			p.closeEntry(key, entry)
			reaped++
		}
	}
	return reaped
}

// evictOldest removes the entry with the smallest lastUsed, breaking ties
// by key order. Caller must hold p.mu and have verified the pool is
// non-empty.
func (p *Pool) evictOldest() {
	var victimKey Key
	var victim *Entry
	for key, entry := range p.entries {
		if victim == nil || entry.lastUsed.Before(victim.lastUsed) ||
			(entry.lastUsed.Equal(victim.lastUsed) && key.less(victimKey)) {
			victimKey = key
			victim = entry
		}
	}
	if victim != nil {
		p.log.Debug("evicting least-recently-used tunnel to %s", victimKey.TargetID)
		p.closeEntry(victimKey, victim)
	}
}

// closeEntry removes an entry from the map and closes its handle.
// The entry is removed even if the close fails; the pool prioritizes
// internal consistency over guaranteed resource reclamation. Caller must
// hold p.mu.
func (p *Pool) closeEntry(key Key, entry *Entry) {
	delete(p.entries, key)
	if err := p.provider.Close(entry.handle); err != nil {
		p.log.Warn("failed to close tunnel to %s: %v", key.TargetID, err)
	}
}
