package importer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/netsyncd/netsync-core/internal/infrastructure/database"
	"github.com/netsyncd/netsync-core/internal/infrastructure/logging"
	"github.com/netsyncd/netsync-core/internal/inventory"
	"github.com/netsyncd/netsync-core/internal/sync"
	_ "github.com/netsyncd/netsync-core/migrations"
)

const c9300Definition = `---
manufacturer: Cisco
model: Catalyst 9300-24T
slug: cisco-c9300-24t
part_number: C9300-24T
u_height: 1
is_full_depth: true
interfaces:
  - name: GigabitEthernet1/0/1
    type: 1000base-t
  - name: GigabitEthernet1/0/2
    type: 1000base-t
  - name: GigabitEthernet0/0
    type: 1000base-t
    mgmt_only: true
console-ports:
  - name: con0
    type: rj-45
power-ports:
  - name: PS1
    type: iec-60320-c14
    maximum_draw: 715
rear-ports:
  - name: RP1
    type: 110-punch
    positions: 12
`

type harness struct {
	types     *inventory.SQLiteDeviceTypeRepository
	templates *inventory.SQLiteComponentTemplateRepository
	importer  *Importer
	dir       string
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	ctx := context.Background()
	db, err := database.Open(ctx, database.Config{
		Path:        filepath.Join(t.TempDir(), "test.db"),
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	t.Cleanup(func() {
		db.Close()
	})
	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("migrating test database: %v", err)
	}

	types := inventory.NewSQLiteDeviceTypeRepository(db.DB)
	templates := inventory.NewSQLiteComponentTemplateRepository(db.DB)

	return &harness{
		types:     types,
		templates: templates,
		importer:  New(types, templates, logging.Default()),
		dir:       t.TempDir(),
	}
}

// writeDefinition places a definition file under dir/<relative>.
func (h *harness) writeDefinition(t *testing.T, relative, content string) {
	t.Helper()
	path := filepath.Join(h.dir, relative)
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		t.Fatalf("creating definition directory: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("writing definition: %v", err)
	}
}

func TestImport(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.writeDefinition(t, "Cisco/C9300-24T.yaml", c9300Definition)

	result, err := h.importer.Run(ctx, Options{Path: h.dir, Manufacturer: "Cisco"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Created != 1 || result.Updated != 0 {
		t.Errorf("created/updated = %d/%d, want 1/0", result.Created, result.Updated)
	}
	if result.Templates != 6 {
		t.Errorf("templates = %d, want 6", result.Templates)
	}
	if len(result.Errors) != 0 {
		t.Errorf("errors = %v", result.Errors)
	}

	dt, err := h.types.GetBySlug(ctx, "cisco-c9300-24t")
	if err != nil {
		t.Fatalf("GetBySlug: %v", err)
	}
	if dt.Manufacturer != "Cisco" || dt.PartNumber != "C9300-24T" || !dt.IsFullDepth {
		t.Errorf("device type = %+v", dt)
	}

	interfaces, err := h.templates.ListByDeviceType(ctx, dt.ID, sync.CategoryInterfaces)
	if err != nil {
		t.Fatalf("ListByDeviceType: %v", err)
	}
	if len(interfaces) != 3 {
		t.Fatalf("interfaces = %d, want 3", len(interfaces))
	}
	for _, tpl := range interfaces {
		if tpl.Name == "GigabitEthernet0/0" {
			if v, ok := tpl.Attrs["mgmt_only"].(bool); !ok || !v {
				t.Errorf("mgmt_only = %v", tpl.Attrs["mgmt_only"])
			}
		}
	}

	rear, err := h.templates.ListByDeviceType(ctx, dt.ID, sync.CategoryRearPorts)
	if err != nil {
		t.Fatalf("ListByDeviceType: %v", err)
	}
	if len(rear) != 1 {
		t.Fatalf("rear ports = %d, want 1", len(rear))
	}
	if v, ok := rear[0].Attrs["positions"].(float64); !ok || v != 12 {
		t.Errorf("positions = %v, want 12", rear[0].Attrs["positions"])
	}
}

func TestImportConverges(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.writeDefinition(t, "Cisco/C9300-24T.yaml", c9300Definition)

	if _, err := h.importer.Run(ctx, Options{Path: h.dir, AllowAll: true}); err != nil {
		t.Fatalf("first Run: %v", err)
	}

	// The revised file drops an interface and changes the part number.
	revised := `---
manufacturer: Cisco
model: Catalyst 9300-24T
slug: cisco-c9300-24t
part_number: C9300-24T-A
interfaces:
  - name: GigabitEthernet1/0/1
    type: 1000base-t
`
	h.writeDefinition(t, "Cisco/C9300-24T.yaml", revised)

	result, err := h.importer.Run(ctx, Options{Path: h.dir, AllowAll: true})
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if result.Created != 0 || result.Updated != 1 {
		t.Errorf("created/updated = %d/%d, want 0/1", result.Created, result.Updated)
	}

	dt, err := h.types.GetBySlug(ctx, "cisco-c9300-24t")
	if err != nil {
		t.Fatalf("GetBySlug: %v", err)
	}
	if dt.PartNumber != "C9300-24T-A" {
		t.Errorf("part number = %q, want C9300-24T-A", dt.PartNumber)
	}

	interfaces, err := h.templates.ListByDeviceType(ctx, dt.ID, sync.CategoryInterfaces)
	if err != nil {
		t.Fatalf("ListByDeviceType: %v", err)
	}
	if len(interfaces) != 1 || interfaces[0].Name != "GigabitEthernet1/0/1" {
		t.Errorf("interfaces = %v", interfaces)
	}

	power, err := h.templates.ListByDeviceType(ctx, dt.ID, sync.CategoryPowerPorts)
	if err != nil {
		t.Fatalf("ListByDeviceType: %v", err)
	}
	if len(power) != 0 {
		t.Errorf("power ports = %d, want 0 after removal from file", len(power))
	}
}

func TestImportFilters(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.writeDefinition(t, "Cisco/C9300-24T.yaml", c9300Definition)
	h.writeDefinition(t, "Juniper/EX4300-48T.yaml", `---
manufacturer: Juniper
model: EX4300-48T
`)

	t.Run("manufacturer filter", func(t *testing.T) {
		result, err := h.importer.Run(ctx, Options{Path: h.dir, Manufacturer: "Juniper", DryRun: true})
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		if len(result.Files) != 1 || filepath.Base(result.Files[0]) != "EX4300-48T.yaml" {
			t.Errorf("files = %v", result.Files)
		}
	})

	t.Run("file name regex", func(t *testing.T) {
		result, err := h.importer.Run(ctx, Options{Path: h.dir, Filter: `^C9300`, DryRun: true})
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		if len(result.Files) != 1 || filepath.Base(result.Files[0]) != "C9300-24T.yaml" {
			t.Errorf("files = %v", result.Files)
		}
	})

	t.Run("bad regex", func(t *testing.T) {
		if _, err := h.importer.Run(ctx, Options{Path: h.dir, Filter: `([`}); err == nil {
			t.Error("expected error for invalid regex")
		}
	})
}

func TestImportGuards(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	if _, err := h.importer.Run(ctx, Options{Path: filepath.Join(h.dir, "missing")}); !errors.Is(err, ErrPathNotFound) {
		t.Errorf("expected ErrPathNotFound, got %v", err)
	}
	if _, err := h.importer.Run(ctx, Options{Path: h.dir}); !errors.Is(err, ErrNoFilter) {
		t.Errorf("expected ErrNoFilter, got %v", err)
	}
}

func TestImportDryRunWritesNothing(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.writeDefinition(t, "Cisco/C9300-24T.yaml", c9300Definition)

	result, err := h.importer.Run(ctx, Options{Path: h.dir, AllowAll: true, DryRun: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !result.DryRun || len(result.Files) != 1 || result.Created != 0 {
		t.Errorf("result = %+v", result)
	}

	if _, err := h.types.GetBySlug(ctx, "cisco-c9300-24t"); !errors.Is(err, inventory.ErrDeviceTypeNotFound) {
		t.Errorf("dry run must not create device types, got %v", err)
	}
}

func TestImportBadFileContinues(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.writeDefinition(t, "Cisco/C9300-24T.yaml", c9300Definition)
	h.writeDefinition(t, "Cisco/broken.yaml", "model: Nameless\n")

	result, err := h.importer.Run(ctx, Options{Path: h.dir, AllowAll: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Created != 1 {
		t.Errorf("created = %d, want 1", result.Created)
	}
	if len(result.Errors) != 1 {
		t.Errorf("errors = %v, want one", result.Errors)
	}
}
