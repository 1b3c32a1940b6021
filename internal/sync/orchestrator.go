package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/netsyncd/netsync-core/internal/infrastructure/logging"
	"github.com/netsyncd/netsync-core/internal/inventory"
)

// Default wall-clock budgets for a whole run. Crossing the soft budget
// logs a warning; crossing the hard budget aborts before the next device.
const (
	DefaultSoftBudget = 30 * time.Minute
	DefaultHardBudget = 33 * time.Minute
)

// Options configures one run.
type Options struct {
	// Mode selects what the run applies. ModeDiff reports without writing.
	Mode Mode

	// Categories restricts the run to a subset of the registry.
	// Empty means all categories. Unknown names are skipped with a
	// run-level warning; valid names still process.
	Categories []string

	// Selector narrows the device set. Zero means every device.
	Selector inventory.Selector

	// Policy carries the protection switches.
	Policy Policy

	// Force deletes protected components and disables the pre-delete
	// re-check.
	Force bool

	// SoftBudget and HardBudget bound the run's wall-clock time.
	// Zero values fall back to the defaults.
	SoftBudget time.Duration
	HardBudget time.Duration
}

// DeviceLister resolves the device set for a run. The listing order is the
// processing order.
type DeviceLister interface {
	ListBySelector(ctx context.Context, sel inventory.Selector) ([]inventory.Device, error)
}

// Observer receives run lifecycle events. Implementations must not block;
// the orchestrator calls them inline between devices.
type Observer interface {
	RunStarted(ctx context.Context, report *Report)
	DeviceCompleted(ctx context.Context, report *Report, result DeviceResult)
	RunCompleted(ctx context.Context, report *Report)
}

// Orchestrator drives diff and apply across the selected devices, one
// device at a time. Device failures are isolated: an error or panic while
// processing one device marks it failed and the run moves on.
type Orchestrator struct {
	devices   DeviceLister
	differ    *Differ
	applier   *Applier
	log       *logging.Logger
	observers []Observer

	now func() time.Time
}

// NewOrchestrator creates a run orchestrator.
func NewOrchestrator(devices DeviceLister, differ *Differ, applier *Applier, log *logging.Logger, observers ...Observer) *Orchestrator {
	if log == nil {
		log = logging.Default()
	}
	return &Orchestrator{
		devices:   devices,
		differ:    differ,
		applier:   applier,
		log:       log,
		observers: observers,
		now:       time.Now,
	}
}

// Run executes one reconciliation run and returns its report. The report
// is complete even when the run was cancelled or ran out of budget; the
// Cancelled and BudgetExceeded flags record how it ended. Cancellation and
// budget are checked between devices only, never mid-device, so the
// per-device transaction is never interrupted.
func (o *Orchestrator) Run(ctx context.Context, opts Options) (*Report, error) {
	if _, err := ParseMode(string(opts.Mode)); err != nil {
		return nil, err
	}
	if opts.SoftBudget <= 0 {
		opts.SoftBudget = DefaultSoftBudget
	}
	if opts.HardBudget <= 0 {
		opts.HardBudget = DefaultHardBudget
	}
	if opts.HardBudget < opts.SoftBudget {
		opts.HardBudget = opts.SoftBudget
	}

	cats, warnings := resolveCategories(opts.Categories)
	for _, w := range warnings {
		o.log.Warn("skipping unknown category", "warning", w)
	}

	report := &Report{
		RunID:      "run-" + uuid.NewString()[:8],
		Mode:       opts.Mode,
		Categories: categoryNames(cats),
		Force:      opts.Force,
		StartedAt:  o.now().UTC(),
		Warnings:   warnings,
	}

	devices, err := o.devices.ListBySelector(ctx, opts.Selector)
	if err != nil {
		return nil, fmt.Errorf("resolving device selection: %w", err)
	}

	o.log.Info("reconciliation run started",
		"run_id", report.RunID,
		"mode", string(opts.Mode),
		"devices", len(devices),
		"categories", len(cats),
		"force", opts.Force,
	)
	for _, obs := range o.observers {
		obs.RunStarted(ctx, report)
	}

	softWarned := false
	for i := range devices {
		if ctx.Err() != nil {
			report.Cancelled = true
			o.markNotAttempted(report, devices[i:])
			o.log.Warn("run cancelled", "run_id", report.RunID, "remaining", len(devices)-i)
			break
		}

		elapsed := o.now().Sub(report.StartedAt)
		if elapsed >= opts.HardBudget {
			report.BudgetExceeded = true
			o.markNotAttempted(report, devices[i:])
			o.log.Error("hard time budget exceeded, aborting run",
				"run_id", report.RunID,
				"elapsed", elapsed.String(),
				"remaining", len(devices)-i,
			)
			break
		}
		if !softWarned && elapsed >= opts.SoftBudget {
			softWarned = true
			o.log.Warn("soft time budget exceeded",
				"run_id", report.RunID,
				"elapsed", elapsed.String(),
			)
		}

		result := o.processDevice(ctx, report.RunID, &devices[i], cats, opts)
		report.addDevice(result)
		for _, obs := range o.observers {
			obs.DeviceCompleted(ctx, report, result)
		}
	}

	report.CompletedAt = o.now().UTC()
	for _, obs := range o.observers {
		obs.RunCompleted(ctx, report)
	}

	o.log.Info("reconciliation run completed",
		"run_id", report.RunID,
		"processed", report.Processed,
		"succeeded", report.Succeeded,
		"failed", report.Failed,
		"added", report.TotalAdded,
		"removed", report.TotalRemoved,
		"protected", report.TotalProtected,
		"duration", report.Duration().String(),
	)

	return report, nil
}

// processDevice runs diff and, outside diff mode, apply for one device.
// Panics are contained here so one device can never take down the run.
func (o *Orchestrator) processDevice(ctx context.Context, runID string, device *inventory.Device, cats []Category, opts Options) (result DeviceResult) {
	result = DeviceResult{
		DeviceID:   device.ID,
		DeviceName: device.Name,
		Status:     DeviceSucceeded,
	}
	defer func() {
		if r := recover(); r != nil {
			result.Status = DeviceFailed
			result.Error = fmt.Sprintf("panic: %v", r)
			o.log.Error("panic while processing device",
				"run_id", runID,
				"device", device.Name,
				"panic", fmt.Sprintf("%v", r),
			)
		}
	}()

	if !device.HasType() {
		result.Status = DeviceFailed
		result.Error = ErrNoDeviceType.Error()
		o.log.Warn("device skipped", "run_id", runID, "device", device.Name, "reason", "no device type")
		return result
	}

	diff, err := o.differ.DiffDevice(ctx, device, cats, opts.Policy)
	if err != nil {
		result.Status = DeviceFailed
		result.Error = err.Error()
		o.log.Error("diff failed", "run_id", runID, "device", device.Name, "error", err)
		return result
	}

	if opts.Mode == ModeDiff {
		result.Categories = changesFromDiff(diff)
		result.HasChanges = diff.HasChanges()
		o.log.Info("device diffed",
			"run_id", runID,
			"device", device.Name,
			"has_changes", result.HasChanges,
		)
		return result
	}

	changes, err := o.applier.Apply(ctx, runID, device, diff, opts.Mode, opts.Policy, opts.Force)
	if err != nil {
		result.Status = DeviceFailed
		result.Error = err.Error()
		o.log.Error("apply failed", "run_id", runID, "device", device.Name, "error", err)
		return result
	}

	result.Categories = changes
	for _, cc := range changes {
		if cc.Added > 0 || cc.Removed > 0 {
			result.HasChanges = true
			break
		}
	}

	o.log.Info("device converged",
		"run_id", runID,
		"device", device.Name,
		"has_changes", result.HasChanges,
	)
	return result
}

// markNotAttempted records the remaining devices of an aborted run.
func (o *Orchestrator) markNotAttempted(report *Report, remaining []inventory.Device) {
	for i := range remaining {
		report.addDevice(DeviceResult{
			DeviceID:   remaining[i].ID,
			DeviceName: remaining[i].Name,
			Status:     DeviceNotAttempted,
		})
	}
}

// resolveCategories maps requested names to descriptors in registry order.
// Empty input selects every category. Unknown names become warnings.
func resolveCategories(requested []string) ([]Category, []string) {
	if len(requested) == 0 {
		return AllCategories(), nil
	}

	want := make(map[string]bool, len(requested))
	var warnings []string
	for _, name := range requested {
		if _, err := LookupCategory(name); err != nil {
			warnings = append(warnings, fmt.Sprintf("unknown category %q skipped", name))
			continue
		}
		want[name] = true
	}

	var cats []Category
	for _, c := range AllCategories() {
		if want[c.Name] {
			cats = append(cats, c)
		}
	}
	return cats, warnings
}

func categoryNames(cats []Category) []string {
	names := make([]string, len(cats))
	for i, c := range cats {
		names[i] = c.Name
	}
	return names
}

// changesFromDiff converts a diff into the report shape for diff mode,
// where nothing is applied and counts describe what would happen.
func changesFromDiff(diff DeviceDiff) map[string]CategoryChanges {
	changes := make(map[string]CategoryChanges, len(diff.Categories))
	for name, cd := range diff.Categories {
		cc := CategoryChanges{
			Added:     len(cd.ToAdd),
			Removed:   len(cd.ToRemove),
			Protected: len(cd.Protected),
		}
		for _, t := range cd.ToAdd {
			cc.AddedNames = append(cc.AddedNames, t.Name)
		}
		for _, c := range cd.ToRemove {
			cc.RemovedNames = append(cc.RemovedNames, c.Name)
		}
		for _, c := range cd.Protected {
			cc.ProtectedNames = append(cc.ProtectedNames, c.Name)
		}
		changes[name] = cc
	}
	return changes
}
