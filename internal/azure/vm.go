package azure

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jspahr/azfleet/internal/errors"
)

// VM is one virtual machine as reported by 'az vm list -d'.
type VM struct {
	Name          string `json:"name"`
	ID            string `json:"id"`
	ResourceGroup string `json:"resourceGroup"`
	PowerState    string `json:"powerState"`
	PrivateIPs    string `json:"privateIps"`
	Location      string `json:"location"`
}

// Running reports whether the VM is powered on.
func (v VM) Running() bool {
	return strings.EqualFold(v.PowerState, "VM running")
}

// PrivateIPList splits the comma-separated privateIps field az returns.
func (v VM) PrivateIPList() []string {
	if v.PrivateIPs == "" {
		return nil
	}
	parts := strings.Split(v.PrivateIPs, ",")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}

// ListVMs returns the VMs in the resource group, with power state and
// private IPs populated (the -d flag).
func ListVMs(ctx context.Context, r Runner, resourceGroup string) ([]VM, error) {
	out, err := r.Run(ctx, "vm", "list", "-d", "--resource-group", resourceGroup)
	if err != nil {
		return nil, err
	}

	var vms []VM
	if err := json.Unmarshal(out, &vms); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrAzure,
			"Couldn't parse 'az vm list' output",
			"Your az CLI version may be incompatible. Try 'az upgrade'.")
	}
	return vms, nil
}

// FindVM returns the named VM from the resource group.
func FindVM(ctx context.Context, r Runner, resourceGroup, name string) (VM, error) {
	vms, err := ListVMs(ctx, r, resourceGroup)
	if err != nil {
		return VM{}, err
	}
	for _, vm := range vms {
		if vm.Name == name {
			return vm, nil
		}
	}
	return VM{}, errors.New(errors.ErrAzure,
		fmt.Sprintf("VM '%s' not found in resource group '%s'", name, resourceGroup),
		"Run 'azfleet list' to see the VMs in this group")
}
