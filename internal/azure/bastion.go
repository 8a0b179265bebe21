package azure

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jspahr/azfleet/internal/errors"
)

// Bastion is an Azure Bastion host as reported by 'az network bastion list'.
type Bastion struct {
	Name          string `json:"name"`
	ResourceGroup string `json:"resourceGroup"`
	Location      string `json:"location"`
	SKU           struct {
		Name string `json:"name"`
	} `json:"sku"`
}

// TunnelCapable reports whether the Bastion SKU supports native client
// tunneling. Basic SKU hosts only serve the portal.
func (b Bastion) TunnelCapable() bool {
	return !strings.EqualFold(b.SKU.Name, "Basic")
}

// FindBastion locates the Bastion host to route through. A host in the
// given resource group is preferred; otherwise the first tunnel-capable
// host in the subscription is used.
func FindBastion(ctx context.Context, r Runner, resourceGroup string) (Bastion, error) {
	out, err := r.Run(ctx, "network", "bastion", "list")
	if err != nil {
		return Bastion{}, err
	}

	var bastions []Bastion
	if err := json.Unmarshal(out, &bastions); err != nil {
		return Bastion{}, errors.WrapWithCode(err, errors.ErrAzure,
			"Couldn't parse 'az network bastion list' output",
			"Your az CLI version may be incompatible. Try 'az upgrade'.")
	}

	var fallback *Bastion
	for i, b := range bastions {
		if !b.TunnelCapable() {
			continue
		}
		if strings.EqualFold(b.ResourceGroup, resourceGroup) {
			return b, nil
		}
		if fallback == nil {
			fallback = &bastions[i]
		}
	}
	if fallback != nil {
		return *fallback, nil
	}

	return Bastion{}, errors.New(errors.ErrAzure,
		fmt.Sprintf("No tunnel-capable Bastion host found (resource group '%s')", resourceGroup),
		"Deploy a Bastion host with Standard SKU and native client support enabled")
}
