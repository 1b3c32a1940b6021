// Package inventory provides the device inventory for netsync-core.
//
// The inventory is the system of record for device types, devices, and the
// components hanging off both sides: component templates on device types
// (desired state) and components on devices (actual state). Reconciliation
// reads both and converges the device side onto the template side.
//
// # Architecture
//
//	┌──────────────────────────────────────────────────────────────────────┐
//	│                             Inventory                                 │
//	│                                                                       │
//	│  ┌────────────────────┐   ┌─────────────────────────┐                 │
//	│  │ DeviceRepository   │   │ ComponentTemplate-      │                 │
//	│  │ DeviceType-        │   │ Repository              │                 │
//	│  │ Repository         │   │  • per-type templates   │                 │
//	│  │  • CRUD            │   │  • importer replace     │                 │
//	│  │  • ListBySelector  │   └─────────────────────────┘                 │
//	│  └────────────────────┘   ┌─────────────────────────┐                 │
//	│  ┌────────────────────┐   │ ComponentRepository     │                 │
//	│  │ CableRepository    │   │  • WithTx binding       │                 │
//	│  │  • terminations    │   │  • batched creates      │                 │
//	│  └────────────────────┘   │  • protection facts     │                 │
//	│                           └─────────────────────────┘                 │
//	└──────────────────────────────────────────────────────────────────────┘
//
// # Key Types
//
//   - DeviceType: canonical device model carrying component templates
//   - Device: concrete device; DeviceTypeID may be nil (not reconcilable)
//   - ComponentTemplate: desired component within (device type, category)
//   - Component: actual component within (device, category), carrying the
//     relational facts deletion protection consults
//   - Selector: device filter for reconciliation runs, ordered by name
//
// # Transactions
//
// The store runs SQLite on a single connection. ComponentRepository.WithTx
// binds a repository to an open transaction so the reconciliation applier
// can re-check protection facts inside the per-device transaction without
// acquiring a second connection.
//
// # Usage
//
//	devices := inventory.NewSQLiteDeviceRepository(db.Conn())
//	components := inventory.NewSQLiteComponentRepository(db.Conn())
//
//	matched, err := devices.ListBySelector(ctx, inventory.Selector{Sites: []string{"ldn-dc1"}})
//	if err != nil {
//	    return err
//	}
//
//	tx, _ := db.BeginTx(ctx)
//	txComponents := components.WithTx(tx)
package inventory
