package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jspahr/azfleet/internal/azure"
	"github.com/jspahr/azfleet/internal/config"
	"github.com/jspahr/azfleet/internal/errors"
	"github.com/jspahr/azfleet/internal/fleet"
	"github.com/jspahr/azfleet/internal/logger"
	"github.com/jspahr/azfleet/internal/tunnel"
	"github.com/jspahr/azfleet/internal/ui"
	"github.com/jspahr/azfleet/internal/util"
	"github.com/jspahr/azfleet/pkg/sshutil"
)

// sshDialTimeout bounds the SSH handshake through an established tunnel.
const sshDialTimeout = 15 * time.Second

func runCommand(args, onlyVMs []string, maxParallel int, failFast bool, timeoutStr string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	command := joinCommand(args)

	timeout := cfg.Fleet.Timeout
	if timeoutStr != "" {
		timeout, err = time.ParseDuration(timeoutStr)
		if err != nil {
			return errors.New(errors.ErrConfig,
				fmt.Sprintf("Invalid --timeout value '%s'", timeoutStr),
				"Use a Go duration like 30s, 2m, or 1h")
		}
	}
	if maxParallel == 0 {
		maxParallel = cfg.Fleet.MaxParallel
	}
	if !failFast {
		failFast = cfg.Fleet.FailFast
	}

	ctx := context.Background()
	runner := azure.NewCLIRunner()

	targets, err := discoverTargets(ctx, runner, cfg, onlyVMs)
	if err != nil {
		return err
	}

	bastion, err := resolveBastion(ctx, runner, cfg)
	if err != nil {
		return err
	}

	pool := tunnel.NewPool(azure.NewBastionProvider(), tunnel.Options{
		MaxTunnels:  cfg.Tunnels.MaxTunnels,
		IdleTimeout: cfg.Tunnels.IdleTimeout,
	})
	defer pool.CloseAll()

	reaper := tunnel.NewReaper(pool, logger.Default())
	reaper.Start(cfg.Tunnels.CleanupInterval)
	defer reaper.Stop()

	dial := func(vmName string, localPort int) (sshutil.SSHClient, error) {
		settings := sshutil.ResolveSettings(vmName, cfg.SSH.User, cfg.SSH.IdentityFile)
		return sshutil.Dial(vmName, localPort, settings, sshDialTimeout)
	}

	orch := fleet.NewOrchestrator(pool, dial, fleet.Config{
		Bastion:              bastion.Name,
		BastionResourceGroup: bastion.ResourceGroup,
		RemotePort:           cfg.SSH.Port,
		MaxParallel:          maxParallel,
		FailFast:             failFast,
		Timeout:              timeout,
	}, logger.Default())

	fmt.Fprintf(os.Stderr, "Running on %d %s through bastion '%s'...\n",
		len(targets), util.Pluralize(len(targets), "VM", "VMs"), bastion.Name)

	result, err := orch.Run(ctx, targets, command)
	if err != nil {
		return err
	}

	if jsonFlag {
		if err := printRunJSON(command, result); err != nil {
			return err
		}
	} else {
		printRunResult(result)
	}

	if !result.Success() {
		return errors.NewExitError(1)
	}
	return nil
}

// joinCommand rebuilds the remote command line. A single argument is
// passed through verbatim (the common pre-quoted form); multiple
// arguments are re-quoted so the remote shell doesn't resplit them.
func joinCommand(args []string) string {
	if len(args) == 1 {
		return args[0]
	}
	quoted := make([]string, len(args))
	for i, a := range args {
		if a == "" || strings.ContainsAny(a, " \t\"'$&|;<>*?") {
			quoted[i] = util.ShellQuote(a)
		} else {
			quoted[i] = a
		}
	}
	return strings.Join(quoted, " ")
}

// discoverTargets lists running VMs and applies the --vm filter.
func discoverTargets(ctx context.Context, runner azure.Runner, cfg *config.Config, onlyVMs []string) ([]fleet.Target, error) {
	vms, err := azure.ListVMs(ctx, runner, cfg.ResourceGroup)
	if err != nil {
		return nil, err
	}

	wanted := make(map[string]bool, len(onlyVMs))
	for _, name := range onlyVMs {
		wanted[name] = true
	}

	var targets []fleet.Target
	for _, vm := range vms {
		if len(wanted) > 0 && !wanted[vm.Name] {
			continue
		}
		if !vm.Running() {
			if wanted[vm.Name] {
				return nil, errors.New(errors.ErrAzure,
					fmt.Sprintf("VM '%s' is not running (%s)", vm.Name, vm.PowerState),
					"Start it with 'az vm start' or drop it from --vm")
			}
			continue
		}
		targets = append(targets, fleet.Target{Name: vm.Name, ResourceID: vm.ID})
		delete(wanted, vm.Name)
	}

	for _, name := range onlyVMs {
		if wanted[name] {
			return nil, errors.New(errors.ErrAzure,
				fmt.Sprintf("VM '%s' not found in resource group '%s'", name, cfg.ResourceGroup),
				"Run 'azfleet list --all' to see the VMs in this group")
		}
	}

	if len(targets) == 0 {
		return nil, errors.New(errors.ErrAzure,
			fmt.Sprintf("No running VMs in resource group '%s'", cfg.ResourceGroup),
			"Start VMs with 'az vm start', or check the resource group")
	}
	return targets, nil
}

// resolveBastion uses the pinned host from config when set, otherwise
// discovers one through the az CLI.
func resolveBastion(ctx context.Context, runner azure.Runner, cfg *config.Config) (azure.Bastion, error) {
	if cfg.Bastion.Name != "" {
		b := azure.Bastion{Name: cfg.Bastion.Name, ResourceGroup: cfg.Bastion.ResourceGroup}
		if b.ResourceGroup == "" {
			b.ResourceGroup = cfg.ResourceGroup
		}
		return b, nil
	}
	return azure.FindBastion(ctx, runner, cfg.ResourceGroup)
}

// printRunResult renders per-VM outcomes followed by a summary line.
func printRunResult(result *fleet.Result) {
	for _, r := range result.VMResults {
		fmt.Printf("\n%s %s (%s)\n", ui.StatusSymbol(r.Success()), r.VM, r.Duration.Round(time.Millisecond))
		if r.Err != nil {
			fmt.Printf("  %v\n", r.Err)
		}
		if len(r.Output) > 0 {
			for _, line := range strings.Split(strings.TrimRight(string(r.Output), "\n"), "\n") {
				fmt.Printf("  %s\n", line)
			}
		}
		if r.Err == nil && r.ExitCode != 0 {
			fmt.Printf("  exit code %d\n", r.ExitCode)
		}
	}

	fmt.Printf("\n%d passed, %d failed (%s)\n",
		result.Passed, result.Failed, result.Duration.Round(time.Millisecond))
}

type runReport struct {
	Command  string        `json:"command"`
	Passed   int           `json:"passed"`
	Failed   int           `json:"failed"`
	Duration string        `json:"duration"`
	VMs      []vmRunReport `json:"vms"`
}

type vmRunReport struct {
	VM       string `json:"vm"`
	Success  bool   `json:"success"`
	ExitCode int    `json:"exit_code"`
	Output   string `json:"output,omitempty"`
	Error    string `json:"error,omitempty"`
	Duration string `json:"duration"`
}

func printRunJSON(command string, result *fleet.Result) error {
	report := runReport{
		Command:  command,
		Passed:   result.Passed,
		Failed:   result.Failed,
		Duration: result.Duration.Round(time.Millisecond).String(),
	}
	for _, r := range result.VMResults {
		vr := vmRunReport{
			VM:       r.VM,
			Success:  r.Success(),
			ExitCode: r.ExitCode,
			Output:   string(r.Output),
			Duration: r.Duration.Round(time.Millisecond).String(),
		}
		if r.Err != nil {
			vr.Error = r.Err.Error()
		}
		report.VMs = append(report.VMs, vr)
	}
	return printJSON(report)
}
