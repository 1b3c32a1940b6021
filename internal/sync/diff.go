package sync

import (
	"context"
	"fmt"
	"sort"

	"github.com/netsyncd/netsync-core/internal/inventory"
)

// TemplateSource reads the desired-state templates for a device type.
type TemplateSource interface {
	ListByDeviceType(ctx context.Context, deviceTypeID, category string) ([]inventory.ComponentTemplate, error)
}

// ComponentSource reads the actual-state components of a device.
type ComponentSource interface {
	ListByDevice(ctx context.Context, deviceID, category string) ([]inventory.Component, error)
}

// CategoryDiff partitions one category of one device by component name:
// every template name lands in exactly one of {ToAdd, Unchanged} and every
// component name in exactly one of {ToRemove, Protected, Unchanged}.
// Matching is by name only, exact and case-sensitive. A component whose
// attributes diverge from its same-named template is still Unchanged.
type CategoryDiff struct {
	ToAdd     []inventory.ComponentTemplate
	ToRemove  []inventory.Component
	Protected []inventory.Component
	Unchanged []inventory.Component
}

// HasChanges reports whether applying the diff would modify the device.
// Protected components are not changes; they are refusals.
func (d CategoryDiff) HasChanges() bool {
	return len(d.ToAdd) > 0 || len(d.ToRemove) > 0
}

// DeviceDiff aggregates the category diffs of one device for one run.
// Built fresh per run and never persisted.
type DeviceDiff struct {
	DeviceID   string
	Categories map[string]CategoryDiff
}

// HasChanges reports whether any category has changes.
func (d DeviceDiff) HasChanges() bool {
	for _, cd := range d.Categories {
		if cd.HasChanges() {
			return true
		}
	}
	return false
}

// Differ computes diffs. Read-only against the store.
type Differ struct {
	templates  TemplateSource
	components ComponentSource
	facts      Facts
}

// NewDiffer creates a diff engine over the given sources.
func NewDiffer(templates TemplateSource, components ComponentSource, facts Facts) *Differ {
	return &Differ{
		templates:  templates,
		components: components,
		facts:      facts,
	}
}

// DiffCategory computes the partition for one device and category. The
// device must carry a type; the orchestrator enforces that precondition.
// Removal candidates are pre-filtered through protection here; the applier
// re-checks inside its transaction.
func (d *Differ) DiffCategory(ctx context.Context, device *inventory.Device, cat Category, pol Policy) (CategoryDiff, error) {
	templates, err := d.templates.ListByDeviceType(ctx, *device.DeviceTypeID, cat.Name)
	if err != nil {
		return CategoryDiff{}, fmt.Errorf("loading %s templates: %w", cat.Name, err)
	}
	components, err := d.components.ListByDevice(ctx, device.ID, cat.Name)
	if err != nil {
		return CategoryDiff{}, fmt.Errorf("loading %s components: %w", cat.Name, err)
	}

	// Duplicate names within one side cannot occur: the store enforces
	// uniqueness on (parent, category, name). Last write wins if a
	// foreign store ever relaxes that.
	templateByName := make(map[string]inventory.ComponentTemplate, len(templates))
	for _, t := range templates {
		templateByName[t.Name] = t
	}
	componentByName := make(map[string]inventory.Component, len(components))
	for _, c := range components {
		componentByName[c.Name] = c
	}

	var diff CategoryDiff

	for name, t := range templateByName {
		if _, exists := componentByName[name]; !exists {
			diff.ToAdd = append(diff.ToAdd, t)
		}
	}

	for name, c := range componentByName {
		if _, desired := templateByName[name]; desired {
			diff.Unchanged = append(diff.Unchanged, c)
			continue
		}
		c := c
		protected, err := IsProtected(ctx, d.facts, cat, &c, pol)
		if err != nil {
			return CategoryDiff{}, fmt.Errorf("evaluating protection for %q: %w", name, err)
		}
		if protected {
			diff.Protected = append(diff.Protected, c)
		} else {
			diff.ToRemove = append(diff.ToRemove, c)
		}
	}

	// Map iteration order is random; sort for deterministic output.
	sort.Slice(diff.ToAdd, func(i, j int) bool { return diff.ToAdd[i].Name < diff.ToAdd[j].Name })
	sort.Slice(diff.ToRemove, func(i, j int) bool { return diff.ToRemove[i].Name < diff.ToRemove[j].Name })
	sort.Slice(diff.Protected, func(i, j int) bool { return diff.Protected[i].Name < diff.Protected[j].Name })
	sort.Slice(diff.Unchanged, func(i, j int) bool { return diff.Unchanged[i].Name < diff.Unchanged[j].Name })

	return diff, nil
}

// DiffDevice computes diffs for the given categories of one device, in
// registry order.
func (d *Differ) DiffDevice(ctx context.Context, device *inventory.Device, cats []Category, pol Policy) (DeviceDiff, error) {
	diff := DeviceDiff{
		DeviceID:   device.ID,
		Categories: make(map[string]CategoryDiff, len(cats)),
	}
	for _, cat := range cats {
		cd, err := d.DiffCategory(ctx, device, cat, pol)
		if err != nil {
			return DeviceDiff{}, err
		}
		diff.Categories[cat.Name] = cd
	}
	return diff, nil
}
