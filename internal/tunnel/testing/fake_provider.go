// Package testing provides test doubles for the tunnel package.
package testing

import (
	"sync"
	"time"

	"github.com/jspahr/azfleet/internal/tunnel"
)

// FakeHandle is the handle type produced by FakeProvider.
type FakeHandle struct {
	ID   int
	Port int
}

// LocalPort returns the port the fake tunnel pretends to listen on.
func (h *FakeHandle) LocalPort() int { return h.Port }

// CreateCall records one call to Create.
type CreateCall struct {
	Bastion       string
	ResourceGroup string
	TargetID      string
	LocalPort     int
	RemotePort    int
}

// FakeProvider simulates tunnel management for pool tests. It tracks every
// Create and Close call and lets tests script health results and failures.
// Safe for concurrent use.
type FakeProvider struct {
	mu sync.Mutex

	// Configuration
	CreateErr   error         // If set, Create fails with this error
	CloseErr    error         // If set, Close fails with this error
	Unhealthy   bool          // If true, CheckHealth reports false for all handles
	CreateDelay time.Duration // Artificial latency inside Create

	// Call tracking
	CreateCalls []CreateCall
	closeCounts map[*FakeHandle]int
	healthCalls int

	nextID   int
	nextPort int
}

// NewFakeProvider returns a provider that succeeds at everything.
func NewFakeProvider() *FakeProvider {
	return &FakeProvider{
		closeCounts: make(map[*FakeHandle]int),
		nextPort:    50000,
	}
}

// Create returns a fresh FakeHandle, or CreateErr if configured.
func (p *FakeProvider) Create(bastion, resourceGroup, targetID string, localPort, remotePort int) (tunnel.Handle, error) {
	if delay := p.createDelay(); delay > 0 {
		time.Sleep(delay)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.CreateCalls = append(p.CreateCalls, CreateCall{
		Bastion:       bastion,
		ResourceGroup: resourceGroup,
		TargetID:      targetID,
		LocalPort:     localPort,
		RemotePort:    remotePort,
	})
	if p.CreateErr != nil {
		return nil, p.CreateErr
	}

	p.nextID++
	return &FakeHandle{ID: p.nextID, Port: localPort}, nil
}

// Close records the close and returns CloseErr if configured.
func (p *FakeProvider) Close(h tunnel.Handle) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if fh, ok := h.(*FakeHandle); ok {
		p.closeCounts[fh]++
	}
	return p.CloseErr
}

// CheckHealth reports the scripted health state.
func (p *FakeProvider) CheckHealth(h tunnel.Handle) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.healthCalls++
	return !p.Unhealthy
}

// AllocatePort hands out sequential fake ports.
func (p *FakeProvider) AllocatePort() (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.nextPort++
	return p.nextPort, nil
}

// SetUnhealthy scripts the health result for subsequent checks.
func (p *FakeProvider) SetUnhealthy(unhealthy bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Unhealthy = unhealthy
}

// CreateCount returns how many times Create was called.
func (p *FakeProvider) CreateCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.CreateCalls)
}

// CloseCount returns how many times Close was called across all handles.
func (p *FakeProvider) CloseCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	total := 0
	for _, n := range p.closeCounts {
		total += n
	}
	return total
}

// CloseCountFor returns how many times Close was called with h.
func (p *FakeProvider) CloseCountFor(h tunnel.Handle) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	fh, ok := h.(*FakeHandle)
	if !ok {
		return 0
	}
	return p.closeCounts[fh]
}

// HealthCalls returns how many times CheckHealth was called.
func (p *FakeProvider) HealthCalls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.healthCalls
}

func (p *FakeProvider) createDelay() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.CreateDelay
}
