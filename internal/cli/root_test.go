package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommandRegistration(t *testing.T) {
	names := make(map[string]bool)
	for _, cmd := range rootCmd.Commands() {
		names[cmd.Name()] = true
	}

	for _, want := range []string{"list", "run", "tunnel", "status", "init", "version", "completion"} {
		assert.True(t, names[want], "expected subcommand %q to be registered", want)
	}
}

func TestRootCommandGlobalFlags(t *testing.T) {
	flags := rootCmd.PersistentFlags()

	assert.NotNil(t, flags.Lookup("config"))
	assert.NotNil(t, flags.Lookup("json"))

	rg := flags.Lookup("resource-group")
	require.NotNil(t, rg)
	assert.Equal(t, "g", rg.Shorthand)
}

func TestLoadConfigAppliesResourceGroupOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".azfleet.yaml")
	content := []byte("version: 1\nresource_group: from-file\n")
	require.NoError(t, os.WriteFile(path, content, 0644))

	origConfig := configFlag
	origRG := resourceGroupFlag
	defer func() {
		configFlag = origConfig
		resourceGroupFlag = origRG
	}()

	configFlag = path
	resourceGroupFlag = ""

	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.ResourceGroup)

	resourceGroupFlag = "from-flag"
	cfg, err = loadConfig()
	require.NoError(t, err)
	assert.Equal(t, "from-flag", cfg.ResourceGroup)
}

func TestLoadConfigMissingFile(t *testing.T) {
	origConfig := configFlag
	defer func() { configFlag = origConfig }()

	configFlag = filepath.Join(t.TempDir(), "nope.yaml")
	_, err := loadConfig()
	assert.Error(t, err)
}
