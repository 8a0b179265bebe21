package config

import (
	"fmt"
	"time"

	"github.com/jspahr/azfleet/internal/errors"
)

// Validate checks the config for values that can't work at runtime.
func (c *Config) Validate() error {
	if c.ResourceGroup == "" {
		return errors.New(errors.ErrConfig,
			"No resource_group configured",
			"Set resource_group in .azfleet.yaml to the group your VMs live in")
	}

	if c.SSH.Port < 1 || c.SSH.Port > 65535 {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("Invalid ssh.port %d", c.SSH.Port),
			"Use a port between 1 and 65535 (usually 22)")
	}

	if c.Tunnels.MaxTunnels < 0 {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("Invalid tunnels.max_tunnels %d", c.Tunnels.MaxTunnels),
			"Use 0 for unbounded or a positive limit")
	}

	if c.Tunnels.IdleTimeout < 0 {
		return errors.New(errors.ErrConfig,
			"tunnels.idle_timeout cannot be negative",
			"Use a duration like 5m or 30s")
	}

	if c.Tunnels.CleanupInterval < time.Second {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("tunnels.cleanup_interval %s is too aggressive", c.Tunnels.CleanupInterval),
			"Use at least 1s between cleanup sweeps")
	}

	if c.Fleet.MaxParallel < 0 {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("Invalid fleet.max_parallel %d", c.Fleet.MaxParallel),
			"Use 0 for one worker per VM or a positive limit")
	}

	return nil
}
