// Package sync implements the reconciliation engine of netsync-core.
//
// The engine converges the components of managed devices onto the
// component templates of their device types. Matching is by component name
// within a (device, category) scope, exact and case-sensitive; a component
// whose attributes drifted from its same-named template is left alone.
//
// # Architecture
//
//	┌──────────────────────────────────────────────────────────────────────┐
//	│                        Reconciliation Engine                          │
//	│                                                                       │
//	│  ┌──────────────┐   ┌──────────────┐   ┌──────────────────────────┐   │
//	│  │ Orchestrator │──▶│    Differ    │──▶│   Protection (IsProtected)│   │
//	│  │ (run loop,   │   │ (name-keyed  │   │   connected OR configured │   │
//	│  │  budget,     │   │  partition)  │   └──────────────────────────┘   │
//	│  │  isolation)  │   └──────────────┘                                  │
//	│  │              │   ┌──────────────┐   ┌──────────────────────────┐   │
//	│  │              │──▶│   Applier    │──▶│ per-device transaction    │   │
//	│  └──────────────┘   │ (batch adds, │   │ (commit or roll back all  │   │
//	│         │           │  re-checked  │   │  of one device's changes) │   │
//	│         ▼           │  removals)   │   └──────────────────────────┘   │
//	│      Report         └──────────────┘                                  │
//	└──────────────────────────────────────────────────────────────────────┘
//
// # Processing model
//
// Runs are strictly sequential: one device at a time, categories in fixed
// registry order within a device. Each device's changes commit in a single
// transaction; device failures and panics are contained at the device
// boundary and never affect other devices. Cancellation and the wall-clock
// budget are honored between devices only. Devices a run never reached are
// reported as not-attempted, distinct from failed.
//
// # Protection
//
// A component is protected when it is connected (cable attached) or
// configured (addressing, VLANs, LAG membership, or a non-blank
// description), each guard under its own switch. Protection is evaluated
// during diff and re-evaluated inside the apply transaction so components
// configured between the two are not lost. Force bypasses both.
//
// # Usage
//
//	differ := sync.NewDiffer(templateRepo, componentRepo, componentRepo)
//	applier := sync.NewApplier(db, componentRepo, recorder, log, 100)
//	orch := sync.NewOrchestrator(deviceRepo, differ, applier, log)
//
//	report, err := orch.Run(ctx, sync.Options{
//	    Mode:   sync.ModeSync,
//	    Policy: sync.DefaultPolicy(),
//	})
package sync
