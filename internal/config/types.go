package config

import "time"

// CurrentConfigVersion is the schema version for the config file.
// Increment when making breaking changes to the config structure.
const CurrentConfigVersion = 1

// Config represents the complete .azfleet.yaml configuration file.
type Config struct {
	Version       int           `yaml:"version" mapstructure:"version"`
	Subscription  string        `yaml:"subscription" mapstructure:"subscription"`
	ResourceGroup string        `yaml:"resource_group" mapstructure:"resource_group"`
	Bastion       BastionConfig `yaml:"bastion" mapstructure:"bastion"`
	SSH           SSHConfig     `yaml:"ssh" mapstructure:"ssh"`
	Fleet         FleetConfig   `yaml:"fleet" mapstructure:"fleet"`
	Tunnels       TunnelConfig  `yaml:"tunnels" mapstructure:"tunnels"`
}

// BastionConfig pins the Bastion host to route tunnels through. Both
// fields empty means discover one at runtime.
type BastionConfig struct {
	// Name of the Bastion host.
	Name string `yaml:"name" mapstructure:"name"`

	// ResourceGroup the Bastion host lives in (often a shared network
	// group, not the VM group).
	ResourceGroup string `yaml:"resource_group" mapstructure:"resource_group"`
}

// SSHConfig controls how commands are executed over established tunnels.
type SSHConfig struct {
	// User to log in as on the VMs. Empty falls back to ~/.ssh/config
	// and then the local username.
	User string `yaml:"user" mapstructure:"user"`

	// IdentityFile is the private key for VM logins.
	IdentityFile string `yaml:"identity_file" mapstructure:"identity_file"`

	// Port is the SSH port on the VMs themselves (the tunnel's remote
	// port). Defaults to 22.
	Port int `yaml:"port" mapstructure:"port"`
}

// FleetConfig controls parallel fan-out across VMs.
type FleetConfig struct {
	// MaxParallel bounds concurrent VM operations (0 = one worker per VM).
	MaxParallel int `yaml:"max_parallel" mapstructure:"max_parallel"`

	// FailFast stops dispatching new work after the first failure.
	FailFast bool `yaml:"fail_fast" mapstructure:"fail_fast"`

	// Timeout applies per command on each VM (0 = no timeout).
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// TunnelConfig controls the tunnel connection pool.
type TunnelConfig struct {
	// MaxTunnels bounds concurrently open Bastion tunnels (0 = unbounded).
	MaxTunnels int `yaml:"max_tunnels" mapstructure:"max_tunnels"`

	// IdleTimeout is how long an unused tunnel survives before the
	// background reaper closes it.
	IdleTimeout time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout"`

	// CleanupInterval is how often the reaper sweeps for idle tunnels.
	CleanupInterval time.Duration `yaml:"cleanup_interval" mapstructure:"cleanup_interval"`
}

// Default values applied when the config file leaves fields unset.
const (
	DefaultSSHPort         = 22
	DefaultIdleTimeout     = 5 * time.Minute
	DefaultCleanupInterval = 30 * time.Second
	DefaultMaxTunnels      = 16
)

// applyDefaults fills unset fields with working defaults.
func (c *Config) applyDefaults() {
	if c.Version == 0 {
		c.Version = CurrentConfigVersion
	}
	if c.SSH.Port == 0 {
		c.SSH.Port = DefaultSSHPort
	}
	if c.Tunnels.IdleTimeout == 0 {
		c.Tunnels.IdleTimeout = DefaultIdleTimeout
	}
	if c.Tunnels.CleanupInterval == 0 {
		c.Tunnels.CleanupInterval = DefaultCleanupInterval
	}
}
