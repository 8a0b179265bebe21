// Package fleet fans a command out across VMs in parallel. Each worker
// obtains an SSH route from the shared tunnel pool, so VMs behind the same
// Bastion reuse tunnels instead of opening one per operation.
package fleet

import "time"

// Target is one VM to operate on.
type Target struct {
	// Name of the VM, used for SSH settings resolution and output.
	Name string

	// ResourceID is the full Azure resource ID the tunnel targets.
	ResourceID string
}

// Config holds the settings for one fan-out batch.
type Config struct {
	// Bastion names the host to route tunnels through.
	Bastion string

	// BastionResourceGroup is the group the Bastion host lives in.
	BastionResourceGroup string

	// RemotePort is the SSH port on the VMs (the tunnel's remote port).
	RemotePort int

	// MaxParallel bounds concurrent workers (0 = one per target).
	MaxParallel int

	// FailFast stops dispatching new targets after the first failure.
	FailFast bool

	// Timeout applies per command per VM (0 = no timeout).
	Timeout time.Duration
}

// VMResult is the outcome of the command on one VM.
type VMResult struct {
	VM       string
	ExitCode int
	Output   []byte // Combined stdout+stderr
	Err      error
	Duration time.Duration
}

// Success reports whether the command ran and exited zero.
func (r VMResult) Success() bool {
	return r.Err == nil && r.ExitCode == 0
}

// Result aggregates a whole batch.
type Result struct {
	VMResults []VMResult
	Duration  time.Duration
	Passed    int
	Failed    int
}

// Success reports whether every VM passed.
func (r *Result) Success() bool {
	return r.Failed == 0
}
