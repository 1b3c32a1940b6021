package sync

import (
	"context"
	"testing"

	"github.com/netsyncd/netsync-core/internal/inventory"
)

func TestApply_AddAndRemove(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	dt := e.addDeviceType(t, "c9300")
	dev := e.addDevice(t, "sw-01", &dt.ID)

	e.addTemplates(t, dt.ID, CategoryInterfaces, "Gi0/1", "Gi0/2")
	e.addComponents(t, dev.ID, CategoryInterfaces, "Gi0/1", "Gi0/3")

	diff, err := e.differ.DiffDevice(ctx, dev, AllCategories(), DefaultPolicy())
	if err != nil {
		t.Fatalf("DiffDevice: %v", err)
	}

	applier := e.newApplier(t, 0)
	changes, err := applier.Apply(ctx, "run-1", dev, diff, ModeSync, DefaultPolicy(), false)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}

	cc := changes[CategoryInterfaces]
	if cc.Added != 1 || !equalNames(cc.AddedNames, []string{"Gi0/2"}) {
		t.Errorf("added = %d %v, want 1 [Gi0/2]", cc.Added, cc.AddedNames)
	}
	if cc.Removed != 1 || !equalNames(cc.RemovedNames, []string{"Gi0/3"}) {
		t.Errorf("removed = %d %v, want 1 [Gi0/3]", cc.Removed, cc.RemovedNames)
	}
	if cc.Protected != 0 {
		t.Errorf("protected = %d, want 0", cc.Protected)
	}

	got := e.componentNames(t, dev.ID, CategoryInterfaces)
	if !equalNames(got, []string{"Gi0/1", "Gi0/2"}) {
		t.Errorf("components after sync = %v, want [Gi0/1 Gi0/2]", got)
	}

	// Created interfaces carry the initial operational status.
	components, err := e.components.ListByDevice(ctx, dev.ID, CategoryInterfaces)
	if err != nil {
		t.Fatalf("ListByDevice: %v", err)
	}
	for _, c := range components {
		if c.Name == "Gi0/2" && c.Status != inventory.ComponentStatusActive {
			t.Errorf("created interface status = %q, want active", c.Status)
		}
	}
}

func TestApply_ModeSelectsSides(t *testing.T) {
	tests := []struct {
		mode        Mode
		wantNames   []string
		wantAdded   int
		wantRemoved int
	}{
		{ModeAdd, []string{"Gi0/1", "Gi0/2", "Gi0/3"}, 1, 0},
		{ModeRemove, []string{"Gi0/1"}, 0, 1},
		{ModeSync, []string{"Gi0/1", "Gi0/2"}, 1, 1},
	}

	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			e := newEngine(t)
			ctx := context.Background()
			dt := e.addDeviceType(t, "c9300")
			dev := e.addDevice(t, "sw-01", &dt.ID)

			e.addTemplates(t, dt.ID, CategoryInterfaces, "Gi0/1", "Gi0/2")
			e.addComponents(t, dev.ID, CategoryInterfaces, "Gi0/1", "Gi0/3")

			diff, err := e.differ.DiffDevice(ctx, dev, AllCategories(), DefaultPolicy())
			if err != nil {
				t.Fatalf("DiffDevice: %v", err)
			}

			changes, err := e.newApplier(t, 0).Apply(ctx, "run-1", dev, diff, tt.mode, DefaultPolicy(), false)
			if err != nil {
				t.Fatalf("Apply: %v", err)
			}

			cc := changes[CategoryInterfaces]
			if cc.Added != tt.wantAdded || cc.Removed != tt.wantRemoved {
				t.Errorf("added/removed = %d/%d, want %d/%d", cc.Added, cc.Removed, tt.wantAdded, tt.wantRemoved)
			}
			got := e.componentNames(t, dev.ID, CategoryInterfaces)
			if !equalNames(got, tt.wantNames) {
				t.Errorf("components = %v, want %v", got, tt.wantNames)
			}
		})
	}
}

func TestApply_Idempotence(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	dt := e.addDeviceType(t, "c9300")
	dev := e.addDevice(t, "sw-01", &dt.ID)

	e.addTemplates(t, dt.ID, CategoryInterfaces, "Gi0/1", "Gi0/2")
	e.addComponents(t, dev.ID, CategoryInterfaces, "Gi0/3")

	applier := e.newApplier(t, 0)
	runSync := func(runID string) map[string]CategoryChanges {
		diff, err := e.differ.DiffDevice(ctx, dev, AllCategories(), DefaultPolicy())
		if err != nil {
			t.Fatalf("DiffDevice: %v", err)
		}
		changes, err := applier.Apply(ctx, runID, dev, diff, ModeSync, DefaultPolicy(), false)
		if err != nil {
			t.Fatalf("Apply: %v", err)
		}
		return changes
	}

	first := runSync("run-1")
	if first[CategoryInterfaces].Added != 2 || first[CategoryInterfaces].Removed != 1 {
		t.Fatalf("first run changes = %+v", first[CategoryInterfaces])
	}

	second := runSync("run-2")
	for name, cc := range second {
		if cc.Added != 0 || cc.Removed != 0 {
			t.Errorf("second run %s: added=%d removed=%d, want 0/0", name, cc.Added, cc.Removed)
		}
	}
}

func TestApply_ForceBypassesProtection(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	dt := e.addDeviceType(t, "c9300")
	dev := e.addDevice(t, "sw-01", &dt.ID)

	e.addTemplates(t, dt.ID, CategoryInterfaces, "Gi0/1")
	components := e.addComponents(t, dev.ID, CategoryInterfaces, "Gi0/1", "Gi0/3")
	e.setDescription(t, components[1].ID, "customer uplink")

	diff, err := e.differ.DiffDevice(ctx, dev, AllCategories(), DefaultPolicy())
	if err != nil {
		t.Fatalf("DiffDevice: %v", err)
	}
	if got := componentNames(diff.Categories[CategoryInterfaces].Protected); !equalNames(got, []string{"Gi0/3"}) {
		t.Fatalf("protected = %v, want [Gi0/3]", got)
	}

	changes, err := e.newApplier(t, 0).Apply(ctx, "run-1", dev, diff, ModeSync, DefaultPolicy(), true)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}

	cc := changes[CategoryInterfaces]
	if !equalNames(cc.RemovedNames, []string{"Gi0/3"}) {
		t.Errorf("removed = %v, want [Gi0/3]", cc.RemovedNames)
	}
	if cc.Protected != 0 {
		t.Errorf("protected = %d, want 0 under force", cc.Protected)
	}

	got := e.componentNames(t, dev.ID, CategoryInterfaces)
	if !equalNames(got, []string{"Gi0/1"}) {
		t.Errorf("components = %v, want [Gi0/1]", got)
	}
}

func TestApply_ProtectionRecheckSkipsSilently(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	dt := e.addDeviceType(t, "c9300")
	dev := e.addDevice(t, "sw-01", &dt.ID)

	components := e.addComponents(t, dev.ID, CategoryInterfaces, "Gi0/3")

	diff, err := e.differ.DiffDevice(ctx, dev, AllCategories(), DefaultPolicy())
	if err != nil {
		t.Fatalf("DiffDevice: %v", err)
	}
	if len(diff.Categories[CategoryInterfaces].ToRemove) != 1 {
		t.Fatalf("expected Gi0/3 removable at diff time")
	}

	// A concurrent writer configures the interface between diff and apply.
	e.setDescription(t, components[0].ID, "hands off")

	changes, err := e.newApplier(t, 0).Apply(ctx, "run-1", dev, diff, ModeSync, DefaultPolicy(), false)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}

	cc := changes[CategoryInterfaces]
	if cc.Removed != 0 {
		t.Errorf("removed = %d, want 0", cc.Removed)
	}
	if cc.Protected != 1 || !equalNames(cc.ProtectedNames, []string{"Gi0/3"}) {
		t.Errorf("protected = %d %v, want 1 [Gi0/3]", cc.Protected, cc.ProtectedNames)
	}

	got := e.componentNames(t, dev.ID, CategoryInterfaces)
	if !equalNames(got, []string{"Gi0/3"}) {
		t.Errorf("components = %v, want [Gi0/3]", got)
	}
}

func TestApply_ExternallyDeletedCandidate(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	dt := e.addDeviceType(t, "c9300")
	dev := e.addDevice(t, "sw-01", &dt.ID)

	components := e.addComponents(t, dev.ID, CategoryInterfaces, "Gi0/3")

	diff, err := e.differ.DiffDevice(ctx, dev, AllCategories(), DefaultPolicy())
	if err != nil {
		t.Fatalf("DiffDevice: %v", err)
	}

	if err := e.components.Delete(ctx, components[0].ID); err != nil {
		t.Fatalf("external delete: %v", err)
	}

	changes, err := e.newApplier(t, 0).Apply(ctx, "run-1", dev, diff, ModeSync, DefaultPolicy(), false)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if cc := changes[CategoryInterfaces]; cc.Removed != 0 || cc.Protected != 0 {
		t.Errorf("changes = %+v, want nothing counted for a vanished candidate", cc)
	}
}

func TestApply_BatchSizeInvariance(t *testing.T) {
	names := make([]string, 0, 7)
	for _, n := range []string{"1", "2", "3", "4", "5", "6", "7"} {
		names = append(names, "Gi0/"+n)
	}

	for _, batchSize := range []int{1, 3, 7, 100} {
		e := newEngine(t)
		ctx := context.Background()
		dt := e.addDeviceType(t, "c9300")
		dev := e.addDevice(t, "sw-01", &dt.ID)
		e.addTemplates(t, dt.ID, CategoryInterfaces, names...)

		diff, err := e.differ.DiffDevice(ctx, dev, AllCategories(), DefaultPolicy())
		if err != nil {
			t.Fatalf("DiffDevice: %v", err)
		}

		changes, err := e.newApplier(t, batchSize).Apply(ctx, "run-1", dev, diff, ModeAdd, DefaultPolicy(), false)
		if err != nil {
			t.Fatalf("Apply with batch size %d: %v", batchSize, err)
		}
		if got := changes[CategoryInterfaces].Added; got != len(names) {
			t.Errorf("batch size %d: added = %d, want %d", batchSize, got, len(names))
		}
		if got := e.componentNames(t, dev.ID, CategoryInterfaces); !equalNames(got, names) {
			t.Errorf("batch size %d: components = %v", batchSize, got)
		}
	}
}

func TestApply_DeviceTransactionRollsBack(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	dt := e.addDeviceType(t, "c9300")
	dev := e.addDevice(t, "sw-01", &dt.ID)

	// interfaces has a removal, power_ports has an add.
	e.addTemplates(t, dt.ID, CategoryPowerPorts, "PS1")
	e.addComponents(t, dev.ID, CategoryInterfaces, "Gi0/3")

	diff, err := e.differ.DiffDevice(ctx, dev, AllCategories(), DefaultPolicy())
	if err != nil {
		t.Fatalf("DiffDevice: %v", err)
	}

	// A concurrent writer creates PS1 after the diff, so the add collides
	// and the whole device transaction must roll back.
	if err := e.components.CreateBatch(ctx, []inventory.Component{{
		DeviceID: dev.ID,
		Category: CategoryPowerPorts,
		Name:     "PS1",
	}}); err != nil {
		t.Fatalf("creating conflicting component: %v", err)
	}

	_, err = e.newApplier(t, 0).Apply(ctx, "run-1", dev, diff, ModeSync, DefaultPolicy(), false)
	if err == nil {
		t.Fatal("expected apply to fail on the colliding add")
	}

	// The interface removal from earlier in the transaction was undone.
	got := e.componentNames(t, dev.ID, CategoryInterfaces)
	if !equalNames(got, []string{"Gi0/3"}) {
		t.Errorf("components = %v, want [Gi0/3] after rollback", got)
	}
}

func TestParseMode(t *testing.T) {
	for _, valid := range []string{"diff", "add", "remove", "sync"} {
		if _, err := ParseMode(valid); err != nil {
			t.Errorf("ParseMode(%q): %v", valid, err)
		}
	}
	if _, err := ParseMode("destroy"); err == nil {
		t.Error("expected error for unknown mode")
	}
}
