package cli

import (
	"context"
	"fmt"

	"github.com/jspahr/azfleet/internal/azure"
	"github.com/jspahr/azfleet/internal/ui"
	"github.com/jspahr/azfleet/internal/util"
)

func listCommand(all bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	runner := azure.NewCLIRunner()
	vms, err := azure.ListVMs(context.Background(), runner, cfg.ResourceGroup)
	if err != nil {
		return err
	}

	if !all {
		running := vms[:0]
		for _, vm := range vms {
			if vm.Running() {
				running = append(running, vm)
			}
		}
		vms = running
	}

	if jsonFlag {
		return printJSON(vms)
	}

	if len(vms) == 0 {
		if all {
			fmt.Printf("No VMs in resource group '%s'\n", cfg.ResourceGroup)
		} else {
			fmt.Printf("No running VMs in resource group '%s' (use --all to include stopped)\n", cfg.ResourceGroup)
		}
		return nil
	}

	columns := []ui.TableColumn{
		{Title: "NAME", Width: 12},
		{Title: "STATE", Width: 10},
		{Title: "PRIVATE IP", Width: 12},
		{Title: "LOCATION", Width: 8},
	}
	rows := make([][]string, 0, len(vms))
	for _, vm := range vms {
		state := vm.PowerState
		if vm.Running() {
			state = ui.StatusSymbol(true) + " running"
		}
		rows = append(rows, []string{vm.Name, state, util.JoinOrDefault(vm.PrivateIPList(), "-"), vm.Location})
	}

	fmt.Print(ui.RenderTable(columns, rows))
	fmt.Printf("\n%d VM(s)\n", len(vms))
	return nil
}
