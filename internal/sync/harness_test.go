package sync

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/netsyncd/netsync-core/internal/infrastructure/database"
	"github.com/netsyncd/netsync-core/internal/infrastructure/logging"
	"github.com/netsyncd/netsync-core/internal/inventory"
	_ "github.com/netsyncd/netsync-core/migrations"
)

// engine bundles a migrated database with repositories and the engine
// parts under test.
type engine struct {
	db         *database.DB
	devices    *inventory.SQLiteDeviceRepository
	types      *inventory.SQLiteDeviceTypeRepository
	templates  *inventory.SQLiteComponentTemplateRepository
	components *inventory.SQLiteComponentRepository
	cables     *inventory.SQLiteCableRepository
	differ     *Differ
}

func newEngine(t *testing.T) *engine {
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

	components := inventory.NewSQLiteComponentRepository(db.DB)
	templates := inventory.NewSQLiteComponentTemplateRepository(db.DB)

	return &engine{
		db:         db,
		devices:    inventory.NewSQLiteDeviceRepository(db.DB),
		types:      inventory.NewSQLiteDeviceTypeRepository(db.DB),
		templates:  templates,
		components: components,
		cables:     inventory.NewSQLiteCableRepository(db.DB),
		differ:     NewDiffer(templates, components, components),
	}
}

func (e *engine) newApplier(t *testing.T, batchSize int) *Applier {
	t.Helper()
	return NewApplier(e.db, e.components, nil, testLogger(), batchSize)
}

func (e *engine) newOrchestrator(t *testing.T, observers ...Observer) *Orchestrator {
	t.Helper()
	return NewOrchestrator(e.devices, e.differ, e.newApplier(t, 0), testLogger(), observers...)
}

func testLogger() *logging.Logger {
	return logging.Default()
}

// addDeviceType inserts a device type and returns it.
func (e *engine) addDeviceType(t *testing.T, slug string) *inventory.DeviceType {
	t.Helper()
	dt := &inventory.DeviceType{
		Manufacturer: "Cisco",
		Model:        "Model " + slug,
		Slug:         slug,
	}
	if err := e.types.Create(context.Background(), dt); err != nil {
		t.Fatalf("creating device type: %v", err)
	}
	return dt
}

// addDevice inserts a device linked to the given type (nil for untyped).
func (e *engine) addDevice(t *testing.T, name string, deviceTypeID *string) *inventory.Device {
	t.Helper()
	d := &inventory.Device{Name: name, DeviceTypeID: deviceTypeID}
	if err := e.devices.Create(context.Background(), d); err != nil {
		t.Fatalf("creating device: %v", err)
	}
	return d
}

// addTemplates inserts interface-shaped templates by name.
func (e *engine) addTemplates(t *testing.T, deviceTypeID, category string, names ...string) {
	t.Helper()
	templates := make([]inventory.ComponentTemplate, len(names))
	for i, name := range names {
		templates[i] = inventory.ComponentTemplate{
			DeviceTypeID: deviceTypeID,
			Category:     category,
			Name:         name,
			Type:         "1000base-t",
		}
	}
	if err := e.templates.CreateBatch(context.Background(), templates); err != nil {
		t.Fatalf("creating templates: %v", err)
	}
}

// addComponents inserts components by name and returns them.
func (e *engine) addComponents(t *testing.T, deviceID, category string, names ...string) []inventory.Component {
	t.Helper()
	components := make([]inventory.Component, len(names))
	for i, name := range names {
		components[i] = inventory.Component{
			DeviceID: deviceID,
			Category: category,
			Name:     name,
			Type:     "1000base-t",
		}
	}
	if err := e.components.CreateBatch(context.Background(), components); err != nil {
		t.Fatalf("creating components: %v", err)
	}
	return components
}

// componentNames lists the current component names of one category.
func (e *engine) componentNames(t *testing.T, deviceID, category string) []string {
	t.Helper()
	components, err := e.components.ListByDevice(context.Background(), deviceID, category)
	if err != nil {
		t.Fatalf("listing components: %v", err)
	}
	names := make([]string, len(components))
	for i, c := range components {
		names[i] = c.Name
	}
	return names
}

// setDescription updates one component's description directly.
func (e *engine) setDescription(t *testing.T, componentID, description string) {
	t.Helper()
	if _, err := e.db.ExecContext(context.Background(),
		"UPDATE components SET description = ? WHERE id = ?", description, componentID); err != nil {
		t.Fatalf("setting description: %v", err)
	}
}

func templateNames(templates []inventory.ComponentTemplate) []string {
	names := make([]string, len(templates))
	for i, t := range templates {
		names[i] = t.Name
	}
	return names
}

func componentNames(components []inventory.Component) []string {
	names := make([]string, len(components))
	for i, c := range components {
		names[i] = c.Name
	}
	return names
}

func equalNames(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}
