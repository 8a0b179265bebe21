// Package cli wires the azfleet command tree. Each command file holds the
// cobra definition; the matching *_cmd implementation lives alongside it.
package cli

import (
	stderrors "errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jspahr/azfleet/internal/config"
	"github.com/jspahr/azfleet/internal/errors"
)

// Global flags shared by every command.
var (
	configFlag        string
	resourceGroupFlag string
	jsonFlag          bool
)

var rootCmd = &cobra.Command{
	Use:   "azfleet",
	Short: "Manage a fleet of Azure VMs through Bastion tunnels",
	Long: `azfleet discovers VMs with the az CLI, opens SSH routes to private VMs
through Azure Bastion, and fans commands out across the fleet.

Tunnels are pooled: concurrent operations against the same VM share one
Bastion tunnel, and idle tunnels are closed in the background.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "path to config file (default: .azfleet.yaml)")
	rootCmd.PersistentFlags().StringVarP(&resourceGroupFlag, "resource-group", "g", "", "override the configured resource group")
	rootCmd.PersistentFlags().BoolVar(&jsonFlag, "json", false, "emit machine-readable JSON output")
}

// Execute runs the CLI and exits the process on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		var exitErr *errors.ExitError
		if stderrors.As(err, &exitErr) {
			// Failure already reported inline; just propagate the code.
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig finds and loads the config, applying flag overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.FindAndLoad(configFlag)
	if err != nil {
		return nil, err
	}
	if resourceGroupFlag != "" {
		cfg.ResourceGroup = resourceGroupFlag
	}
	return cfg, nil
}
