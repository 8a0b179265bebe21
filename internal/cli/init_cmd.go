package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/huh"
	"gopkg.in/yaml.v3"

	"github.com/jspahr/azfleet/internal/azure"
	"github.com/jspahr/azfleet/internal/config"
	"github.com/jspahr/azfleet/internal/errors"
	"github.com/jspahr/azfleet/internal/ui"
)

// initCommand creates a new .azfleet.yaml in the current directory.
func initCommand(force bool) error {
	configPath := filepath.Join(".", config.ConfigFileName)

	if _, err := os.Stat(configPath); err == nil && !force {
		var overwrite bool
		form := huh.NewForm(
			huh.NewGroup(
				huh.NewConfirm().
					Title(fmt.Sprintf("Config file '%s' already exists. Overwrite?", config.ConfigFileName)).
					Value(&overwrite),
			),
		)
		if err := form.Run(); err != nil {
			return errors.WrapWithCode(err, errors.ErrConfig,
				"Failed to get user input",
				"Try running with --force to overwrite")
		}
		if !overwrite {
			fmt.Println("Cancelled.")
			return nil
		}
	}

	var resourceGroup, bastionName, sshUser, identityFile string

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Resource group").
				Description("The Azure resource group containing your VMs").
				Placeholder("my-fleet-rg").
				Value(&resourceGroup).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("resource group is required")
					}
					return nil
				}),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Bastion host (optional)").
				Description("Pin a Bastion host by name, or leave empty to discover one").
				Placeholder("leave empty to auto-discover").
				Value(&bastionName),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("SSH user (optional)").
				Description("Login user on the VMs; empty falls back to ~/.ssh/config").
				Placeholder("azureuser").
				Value(&sshUser),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("SSH identity file (optional)").
				Description("Private key for VM logins; empty tries the agent and default keys").
				Placeholder("~/.ssh/id_ed25519").
				Value(&identityFile),
		),
	)

	if err := form.Run(); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to get user input",
			"Check terminal compatibility")
	}

	resourceGroup = strings.TrimSpace(resourceGroup)

	// Probe the resource group so typos surface now, not on first run.
	spinner := ui.NewSpinner("Checking resource group " + resourceGroup)
	spinner.Start()

	runner := azure.NewCLIRunner()
	vms, probeErr := azure.ListVMs(context.Background(), runner, resourceGroup)
	if probeErr != nil {
		spinner.Stop(false, "Couldn't list VMs in "+resourceGroup)

		var saveAnyway bool
		fmt.Printf("\n%s %v\n\n", ui.SymbolFail, probeErr)

		form := huh.NewForm(
			huh.NewGroup(
				huh.NewConfirm().
					Title("Save config anyway? (You can fix access later)").
					Value(&saveAnyway),
			),
		)
		if formErr := form.Run(); formErr != nil || !saveAnyway {
			return errors.WrapWithCode(probeErr, errors.ErrAzure,
				fmt.Sprintf("Couldn't access resource group '%s'", resourceGroup),
				"Check 'az login' and the resource group name")
		}
	} else {
		spinner.Stop(true, fmt.Sprintf("Found %d VM(s) in %s", len(vms), resourceGroup))
		fmt.Println()
	}

	cfg := config.Config{
		Version:       config.CurrentConfigVersion,
		ResourceGroup: resourceGroup,
		Bastion: config.BastionConfig{
			Name: strings.TrimSpace(bastionName),
		},
		SSH: config.SSHConfig{
			User:         strings.TrimSpace(sshUser),
			IdentityFile: strings.TrimSpace(identityFile),
			Port:         config.DefaultSSHPort,
		},
		Tunnels: config.TunnelConfig{
			MaxTunnels:      config.DefaultMaxTunnels,
			IdleTimeout:     config.DefaultIdleTimeout,
			CleanupInterval: config.DefaultCleanupInterval,
		},
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to generate config",
			"This shouldn't happen - please report this bug")
	}

	header := `# azfleet configuration
# Run 'azfleet list' to see your VMs, 'azfleet run <cmd>' to fan out a command.

`
	content := header + string(data)

	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			fmt.Sprintf("Failed to write config file: %s", configPath),
			"Check directory permissions")
	}

	fmt.Printf("%s Created %s\n\n", ui.SymbolSuccess, configPath)
	fmt.Println("Next steps:")
	fmt.Println("  azfleet list         - List VMs in the resource group")
	fmt.Println("  azfleet run <cmd>    - Run a command across the fleet")
	fmt.Println("  azfleet tunnel <vm>  - Open a tunnel to one VM")

	return nil
}
