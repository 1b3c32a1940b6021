package sync

import (
	"fmt"

	"github.com/netsyncd/netsync-core/internal/inventory"
)

// Component category names. The set is fixed at process start.
const (
	CategoryInterfaces         = "interfaces"
	CategoryConsolePorts       = "console_ports"
	CategoryConsoleServerPorts = "console_server_ports"
	CategoryPowerPorts         = "power_ports"
	CategoryPowerOutlets       = "power_outlets"
	CategoryFrontPorts         = "front_ports"
	CategoryRearPorts          = "rear_ports"
	CategoryDeviceBays         = "device_bays"
)

// Category describes one component category: which template fields carry
// over to created components and which protection rules apply. Instances
// are immutable; the registry is process-wide read-only configuration.
type Category struct {
	// Name is the unique category key.
	Name string

	// CopiesType reports whether the template's type field carries over.
	// Every category copies name, label, and description.
	CopiesType bool

	// CopyKeys lists the category-specific attribute keys that carry over
	// from template attrs to component attrs. Unknown keys in a template
	// are dropped, never copied blindly.
	CopyKeys []string

	// InterfaceRules enables the interface-specific protection checks
	// (denormalized cable lookup, addressing, VLANs, LAG membership) and
	// the initial operational status on creation.
	InterfaceRules bool
}

// registry is the fixed category set in deterministic processing order.
var registry = []Category{
	{Name: CategoryInterfaces, CopiesType: true, CopyKeys: []string{"mgmt_only"}, InterfaceRules: true},
	{Name: CategoryConsolePorts, CopiesType: true},
	{Name: CategoryConsoleServerPorts, CopiesType: true},
	{Name: CategoryPowerPorts, CopiesType: true, CopyKeys: []string{"maximum_draw", "allocated_draw"}},
	{Name: CategoryPowerOutlets, CopiesType: true, CopyKeys: []string{"feed_leg"}},
	{Name: CategoryFrontPorts, CopiesType: true, CopyKeys: []string{"rear_port_position"}},
	{Name: CategoryRearPorts, CopiesType: true, CopyKeys: []string{"positions"}},
	{Name: CategoryDeviceBays},
}

var categoryIndex = buildCategoryIndex()

func buildCategoryIndex() map[string]Category {
	index := make(map[string]Category, len(registry))
	for _, c := range registry {
		index[c.Name] = c
	}
	return index
}

// LookupCategory returns the category descriptor for a key.
// Returns ErrUnknownCategory for keys outside the fixed set.
func LookupCategory(name string) (Category, error) {
	c, ok := categoryIndex[name]
	if !ok {
		return Category{}, fmt.Errorf("%w: %q", ErrUnknownCategory, name)
	}
	return c, nil
}

// AllCategories returns the full category set in processing order.
func AllCategories() []Category {
	out := make([]Category, len(registry))
	copy(out, registry)
	return out
}

// CategoryNames returns the category keys in processing order.
func CategoryNames() []string {
	names := make([]string, len(registry))
	for i, c := range registry {
		names[i] = c.Name
	}
	return names
}

// NewComponent constructs a component for a device from a template,
// copying only the category's declared fields.
func (c Category) NewComponent(deviceID string, t inventory.ComponentTemplate) inventory.Component {
	comp := inventory.Component{
		DeviceID:    deviceID,
		Category:    c.Name,
		Name:        t.Name,
		Label:       t.Label,
		Description: t.Description,
	}
	if c.CopiesType {
		comp.Type = t.Type
	}
	for _, key := range c.CopyKeys {
		v, ok := t.Attrs[key]
		if !ok {
			continue
		}
		if comp.Attrs == nil {
			comp.Attrs = inventory.Attrs{}
		}
		comp.Attrs[key] = v
	}
	if c.InterfaceRules {
		comp.Status = inventory.ComponentStatusActive
	}
	return comp
}
