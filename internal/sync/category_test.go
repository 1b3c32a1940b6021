package sync

import (
	"errors"
	"testing"

	"github.com/netsyncd/netsync-core/internal/inventory"
)

func TestLookupCategory(t *testing.T) {
	for _, name := range CategoryNames() {
		cat, err := LookupCategory(name)
		if err != nil {
			t.Errorf("LookupCategory(%q): %v", name, err)
		}
		if cat.Name != name {
			t.Errorf("LookupCategory(%q) returned %q", name, cat.Name)
		}
	}

	if _, err := LookupCategory("xyz"); !errors.Is(err, ErrUnknownCategory) {
		t.Errorf("expected ErrUnknownCategory, got %v", err)
	}
}

func TestCategoryRegistryShape(t *testing.T) {
	if len(AllCategories()) != 8 {
		t.Fatalf("expected 8 categories, got %d", len(AllCategories()))
	}

	interfaces, _ := LookupCategory(CategoryInterfaces)
	if !interfaces.InterfaceRules {
		t.Error("interfaces must carry interface protection rules")
	}

	bays, _ := LookupCategory(CategoryDeviceBays)
	if bays.CopiesType {
		t.Error("device bays have no type field to copy")
	}
	if bays.InterfaceRules {
		t.Error("device bays must use generic protection rules")
	}
}

func TestCategoryNewComponent(t *testing.T) {
	template := inventory.ComponentTemplate{
		DeviceTypeID: "dt-1",
		Category:     CategoryInterfaces,
		Name:         "Gi1/0/1",
		Type:         "1000base-t",
		Label:        "uplink",
		Description:  "to core",
		Attrs: inventory.Attrs{
			"mgmt_only":    true,
			"maximum_draw": 715, // not copyable for interfaces
		},
	}

	t.Run("interfaces copy type, declared attrs, and get a status", func(t *testing.T) {
		cat, _ := LookupCategory(CategoryInterfaces)
		c := cat.NewComponent("dev-1", template)

		if c.DeviceID != "dev-1" || c.Category != CategoryInterfaces {
			t.Errorf("parentage wrong: %+v", c)
		}
		if c.Name != "Gi1/0/1" || c.Type != "1000base-t" || c.Label != "uplink" || c.Description != "to core" {
			t.Errorf("copied fields wrong: %+v", c)
		}
		if c.Status != inventory.ComponentStatusActive {
			t.Errorf("status = %q, want active", c.Status)
		}
		if v, ok := c.Attrs["mgmt_only"].(bool); !ok || !v {
			t.Errorf("mgmt_only not copied: %v", c.Attrs)
		}
		if _, ok := c.Attrs["maximum_draw"]; ok {
			t.Error("undeclared attr copied")
		}
	})

	t.Run("device bays drop the type field", func(t *testing.T) {
		bayTemplate := template
		bayTemplate.Category = CategoryDeviceBays
		cat, _ := LookupCategory(CategoryDeviceBays)
		c := cat.NewComponent("dev-1", bayTemplate)

		if c.Type != "" {
			t.Errorf("type copied for device bay: %q", c.Type)
		}
		if c.Status != "" {
			t.Errorf("status defaulted for device bay: %q", c.Status)
		}
		if c.Label != "uplink" || c.Description != "to core" {
			t.Errorf("label and description must still copy: %+v", c)
		}
		if len(c.Attrs) != 0 {
			t.Errorf("device bays copy no attrs, got %v", c.Attrs)
		}
	})

	t.Run("power ports copy draw attrs", func(t *testing.T) {
		psTemplate := inventory.ComponentTemplate{
			Category: CategoryPowerPorts,
			Name:     "PS1",
			Type:     "iec-60320-c14",
			Attrs:    inventory.Attrs{"maximum_draw": 715, "allocated_draw": 400},
		}
		cat, _ := LookupCategory(CategoryPowerPorts)
		c := cat.NewComponent("dev-1", psTemplate)

		if c.Attrs["maximum_draw"] != 715 || c.Attrs["allocated_draw"] != 400 {
			t.Errorf("draw attrs not copied: %v", c.Attrs)
		}
	})
}
