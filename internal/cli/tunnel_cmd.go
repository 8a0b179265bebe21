package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jspahr/azfleet/internal/azure"
	"github.com/jspahr/azfleet/internal/errors"
	"github.com/jspahr/azfleet/internal/tunnel"
	"github.com/jspahr/azfleet/internal/ui"
	"github.com/jspahr/azfleet/pkg/sshutil"
)

func tunnelCommand(vmName string, port int) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := context.Background()
	runner := azure.NewCLIRunner()

	vm, err := azure.FindVM(ctx, runner, cfg.ResourceGroup, vmName)
	if err != nil {
		return err
	}
	if !vm.Running() {
		return errors.New(errors.ErrAzure,
			fmt.Sprintf("VM '%s' is not running (%s)", vm.Name, vm.PowerState),
			"Start it with 'az vm start' first")
	}

	bastion, err := resolveBastion(ctx, runner, cfg)
	if err != nil {
		return err
	}

	remotePort := port
	if remotePort == 0 {
		remotePort = cfg.SSH.Port
	}

	pool := tunnel.NewPool(azure.NewBastionProvider(), tunnel.Options{
		IdleTimeout: cfg.Tunnels.IdleTimeout,
	})
	defer pool.CloseAll()

	spinner := ui.NewSpinner(fmt.Sprintf("Opening tunnel to %s through %s...", vm.Name, bastion.Name))
	spinner.Start()

	entry, err := pool.GetOrCreate(bastion.Name, bastion.ResourceGroup, vm.ID, remotePort)
	if err != nil {
		spinner.Stop(false, "Tunnel failed")
		return err
	}
	localPort := entry.Handle().LocalPort()
	spinner.Stop(true, fmt.Sprintf("Tunnel open on 127.0.0.1:%d", localPort))

	fmt.Printf("\n  %s:%d → 127.0.0.1:%d\n", vm.Name, remotePort, localPort)
	if remotePort == cfg.SSH.Port {
		settings := sshutil.ResolveSettings(vm.Name, cfg.SSH.User, cfg.SSH.IdentityFile)
		fmt.Printf("  ssh -p %d %s@127.0.0.1\n", localPort, settings.User)
	}
	fmt.Println("\nPress Ctrl-C to close the tunnel.")

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs

	fmt.Fprintln(os.Stderr, "\nClosing tunnel...")
	return nil
}
