package cli

import (
	"os"

	"github.com/spf13/cobra"
)

// Command-specific flags
var (
	listAllFlag     bool
	runVMsFlag      []string
	runParallelFlag int
	runFailFastFlag bool
	runTimeoutFlag  string
	tunnelPortFlag  int
	initForce       bool
)

// listCmd shows the VMs in the configured resource group
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List VMs in the resource group",
	Long: `List the VMs in the configured resource group with power state and
private IP addresses.

Examples:
  azfleet list
  azfleet list --all
  azfleet list --json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return listCommand(listAllFlag)
	},
}

// runCmd fans a command out across the fleet
var runCmd = &cobra.Command{
	Use:   "run [command]",
	Short: "Run a command on every VM through Bastion tunnels",
	Long: `Execute a command on each running VM in parallel. SSH routes go
through pooled Bastion tunnels, so repeated runs reuse connections.

Examples:
  azfleet run "sudo apt-get update"
  azfleet run --vm web-01 --vm web-02 "systemctl restart app"
  azfleet run --max-parallel 4 --timeout 2m "make deploy"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCommand(args, runVMsFlag, runParallelFlag, runFailFastFlag, runTimeoutFlag)
	},
}

// tunnelCmd holds a single tunnel open for interactive use
var tunnelCmd = &cobra.Command{
	Use:   "tunnel <vm>",
	Short: "Open a Bastion tunnel to one VM and keep it open",
	Long: `Open a tunnel to the named VM and print the local port. The tunnel
stays open until interrupted, for use with ssh, scp, or port forwarding.

Examples:
  azfleet tunnel web-01
  azfleet tunnel db-01 --port 5432`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return tunnelCommand(args[0], tunnelPortFlag)
	},
}

// statusCmd reports configuration and az CLI health
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show configuration and az CLI status",
	Long: `Display the active configuration, whether the az CLI is reachable,
and which Bastion host tunnels will route through.

Examples:
  azfleet status
  azfleet status --json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return statusCommand()
	},
}

// initCmd creates a new .azfleet.yaml configuration
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create .azfleet.yaml configuration",
	Long: `Initialize a new azfleet configuration file in the current directory,
guiding you through resource group and SSH settings with interactive
prompts.

Examples:
  azfleet init
  azfleet init --force`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return initCommand(initForce)
	},
}

// completionCmd generates shell completion scripts
var completionCmd = &cobra.Command{
	Use:       "completion [bash|zsh|fish|powershell]",
	Short:     "Generate shell completion script",
	ValidArgs: []string{"bash", "zsh", "fish", "powershell"},
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		switch args[0] {
		case "bash":
			return rootCmd.GenBashCompletion(os.Stdout)
		case "zsh":
			return rootCmd.GenZshCompletion(os.Stdout)
		case "fish":
			return rootCmd.GenFishCompletion(os.Stdout, true)
		default:
			return rootCmd.GenPowerShellCompletion(os.Stdout)
		}
	},
}

func init() {
	listCmd.Flags().BoolVar(&listAllFlag, "all", false, "include stopped and deallocated VMs")

	runCmd.Flags().StringArrayVar(&runVMsFlag, "vm", nil, "restrict to specific VMs (repeatable)")
	runCmd.Flags().IntVar(&runParallelFlag, "max-parallel", 0, "max concurrent VMs (0 = all at once)")
	runCmd.Flags().BoolVar(&runFailFastFlag, "fail-fast", false, "stop dispatching after the first failure")
	runCmd.Flags().StringVar(&runTimeoutFlag, "timeout", "", "per-VM command timeout (e.g., 30s, 2m)")

	tunnelCmd.Flags().IntVar(&tunnelPortFlag, "port", 0, "remote port to tunnel to (default: configured ssh.port)")

	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "overwrite existing config")

	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(tunnelCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(completionCmd)
}
