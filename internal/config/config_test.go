package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadValidConfig(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `
version: 1
subscription: my-sub
resource_group: rg-prod
bastion:
  name: bastion-prod
  resource_group: rg-network
ssh:
  user: azureuser
  port: 22
fleet:
  max_parallel: 8
  fail_fast: true
  timeout: 2m
tunnels:
  max_tunnels: 4
  idle_timeout: 10m
  cleanup_interval: 45s
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "my-sub", cfg.Subscription)
	assert.Equal(t, "rg-prod", cfg.ResourceGroup)
	assert.Equal(t, "bastion-prod", cfg.Bastion.Name)
	assert.Equal(t, "rg-network", cfg.Bastion.ResourceGroup)
	assert.Equal(t, "azureuser", cfg.SSH.User)
	assert.Equal(t, 8, cfg.Fleet.MaxParallel)
	assert.True(t, cfg.Fleet.FailFast)
	assert.Equal(t, 2*time.Minute, cfg.Fleet.Timeout)
	assert.Equal(t, 4, cfg.Tunnels.MaxTunnels)
	assert.Equal(t, 10*time.Minute, cfg.Tunnels.IdleTimeout)
	assert.Equal(t, 45*time.Second, cfg.Tunnels.CleanupInterval)
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `
resource_group: rg-prod
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, CurrentConfigVersion, cfg.Version)
	assert.Equal(t, DefaultSSHPort, cfg.SSH.Port)
	assert.Equal(t, DefaultIdleTimeout, cfg.Tunnels.IdleTimeout)
	assert.Equal(t, DefaultCleanupInterval, cfg.Tunnels.CleanupInterval)
	assert.Equal(t, 0, cfg.Tunnels.MaxTunnels)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), ConfigFileName))
	assert.ErrorContains(t, err, "Config file not found")
}

func TestLoadInvalidYAML(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "resource_group: [unclosed")
	_, err := Load(path)
	assert.ErrorContains(t, err, "Failed to read config file")
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		c := &Config{ResourceGroup: "rg-prod"}
		c.applyDefaults()
		return c
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"missing resource group", func(c *Config) { c.ResourceGroup = "" }, "No resource_group"},
		{"bad ssh port", func(c *Config) { c.SSH.Port = 70000 }, "Invalid ssh.port"},
		{"zero ssh port rejected", func(c *Config) { c.SSH.Port = 0 }, "Invalid ssh.port"},
		{"negative max tunnels", func(c *Config) { c.Tunnels.MaxTunnels = -1 }, "max_tunnels"},
		{"negative idle timeout", func(c *Config) { c.Tunnels.IdleTimeout = -time.Second }, "idle_timeout"},
		{"sub-second cleanup interval", func(c *Config) { c.Tunnels.CleanupInterval = 100 * time.Millisecond }, "too aggressive"},
		{"negative max parallel", func(c *Config) { c.Fleet.MaxParallel = -2 }, "max_parallel"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				assert.ErrorContains(t, err, tt.wantErr)
			}
		})
	}
}

func TestFindExplicitPath(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "resource_group: rg\n")

	found, err := Find(path)
	require.NoError(t, err)
	assert.Equal(t, path, found)
}

func TestFindExplicitPathMissing(t *testing.T) {
	_, err := Find(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorContains(t, err, "not found")
}

func TestFindCurrentDirectory(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "resource_group: rg\n")

	cwd, err := os.Getwd()
	require.NoError(t, err)
	defer os.Chdir(cwd) //nolint:errcheck

	require.NoError(t, os.Chdir(dir))

	found, err := Find("")
	require.NoError(t, err)
	// Resolve symlinks before comparing: TempDir may go through /private
	// on macOS.
	wantResolved, _ := filepath.EvalSymlinks(path)
	gotResolved, _ := filepath.EvalSymlinks(found)
	assert.Equal(t, wantResolved, gotResolved)
}

func TestFindAndLoadNoConfig(t *testing.T) {
	dir := t.TempDir()
	cwd, err := os.Getwd()
	require.NoError(t, err)
	defer os.Chdir(cwd) //nolint:errcheck

	require.NoError(t, os.Chdir(dir))
	t.Setenv("HOME", dir)

	_, err = FindAndLoad("")
	assert.ErrorContains(t, err, "No config file found")
}
