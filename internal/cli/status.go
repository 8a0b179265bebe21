package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jspahr/azfleet/internal/azure"
	"github.com/jspahr/azfleet/internal/config"
	"github.com/jspahr/azfleet/internal/ui"
)

type statusReport struct {
	ConfigPath    string `json:"config_path"`
	ResourceGroup string `json:"resource_group"`
	Subscription  string `json:"subscription,omitempty"`
	AzVersion     string `json:"az_version,omitempty"`
	AzError       string `json:"az_error,omitempty"`
	Bastion       string `json:"bastion,omitempty"`
	BastionGroup  string `json:"bastion_resource_group,omitempty"`
	BastionError  string `json:"bastion_error,omitempty"`
	MaxTunnels    int    `json:"max_tunnels"`
	IdleTimeout   string `json:"idle_timeout"`
}

func statusCommand() error {
	path, err := config.Find(configFlag)
	if err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	report := statusReport{
		ConfigPath:    path,
		ResourceGroup: cfg.ResourceGroup,
		Subscription:  cfg.Subscription,
		MaxTunnels:    cfg.Tunnels.MaxTunnels,
		IdleTimeout:   cfg.Tunnels.IdleTimeout.String(),
	}

	ctx := context.Background()
	runner := azure.NewCLIRunner()

	if out, err := runner.Version(ctx); err != nil {
		report.AzError = err.Error()
	} else {
		report.AzVersion = azCoreVersion(out)
	}

	if report.AzError == "" {
		if bastion, err := resolveBastion(ctx, runner, cfg); err != nil {
			report.BastionError = err.Error()
		} else {
			report.Bastion = bastion.Name
			report.BastionGroup = bastion.ResourceGroup
		}
	}

	if jsonFlag {
		return printJSON(report)
	}

	fmt.Printf("Config:          %s\n", report.ConfigPath)
	fmt.Printf("Resource group:  %s\n", report.ResourceGroup)
	if report.Subscription != "" {
		fmt.Printf("Subscription:    %s\n", report.Subscription)
	}

	if report.AzError != "" {
		fmt.Printf("az CLI:          %s unavailable\n", ui.StatusSymbol(false))
		fmt.Printf("                 %s\n", report.AzError)
	} else {
		fmt.Printf("az CLI:          %s %s\n", ui.StatusSymbol(true), report.AzVersion)
		if report.BastionError != "" {
			fmt.Printf("Bastion:         %s %s\n", ui.StatusSymbol(false), report.BastionError)
		} else {
			fmt.Printf("Bastion:         %s %s (%s)\n", ui.StatusSymbol(true), report.Bastion, report.BastionGroup)
		}
	}

	fmt.Printf("Tunnels:         max %d, idle timeout %s\n", report.MaxTunnels, report.IdleTimeout)
	return nil
}

// azCoreVersion extracts the azure-cli version from 'az version' output.
func azCoreVersion(out []byte) string {
	var v struct {
		Core string `json:"azure-cli"`
	}
	if err := json.Unmarshal(out, &v); err != nil || v.Core == "" {
		return "installed"
	}
	return "azure-cli " + v.Core
}
