// Package tunnel provides a concurrency-safe pool of Bastion tunnels.
//
// Establishing a tunnel to a private VM is expensive (an az subprocess plus
// a network handshake), so the pool caches one live tunnel per route and
// hands it out to every caller that needs the same route. A background
// reaper closes tunnels nobody has used recently.
package tunnel

// Handle is an opaque reference to an established tunnel. The pool never
// inspects a handle beyond passing it back to the Provider that created it;
// callers use LocalPort to reach the tunnel's local listener.
//
// A handle is owned by whichever component currently holds it: while an
// entry is in the pool the pool owns it, and ownership transfers to the
// code that removes the entry, which must then close it. After Close no
// other code may retain or reuse the handle.
type Handle interface {
	// LocalPort returns the local TCP port the tunnel listens on.
	LocalPort() int
}

// Provider is the capability the pool consumes to manage tunnels.
// All methods may block on subprocess or network I/O.
type Provider interface {
	// Create establishes a tunnel from localPort to remotePort on the
	// target resource, routed through the named Bastion host.
	Create(bastion, resourceGroup, targetID string, localPort, remotePort int) (Handle, error)

	// Close tears down an established tunnel. Safe to call once per
	// handle; the pool never double-closes.
	Close(h Handle) error

	// CheckHealth reports whether the tunnel behind h is still usable.
	// No side effects expected.
	CheckHealth(h Handle) bool

	// AllocatePort returns a locally available port for the next tunnel.
	AllocatePort() (int, error)
}
