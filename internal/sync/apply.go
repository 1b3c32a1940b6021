package sync

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/netsyncd/netsync-core/internal/infrastructure/logging"
	"github.com/netsyncd/netsync-core/internal/inventory"
)

// DefaultBatchSize bounds the size of one component create statement.
// Batching affects statement size only; the outcome is identical to
// creating every component individually.
const DefaultBatchSize = 100

// Change is one applied add or removal, recorded for the audit trail.
type Change struct {
	RunID      string
	DeviceID   string
	DeviceName string
	Action     string
	Category   string
	Name       string
}

// Change actions.
const (
	ActionAdded   = "added"
	ActionRemoved = "removed"
)

// ChangeRecorder persists applied changes. Recording happens after the
// device transaction commits and is best effort: an audit failure never
// rolls back applied changes.
type ChangeRecorder interface {
	Record(ctx context.Context, changes []Change) error
}

// txBeginner opens the per-device transaction. Satisfied by database.DB.
type txBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// Applier executes a device diff against the store. All changes for one
// device commit in a single transaction; a failure partway through rolls
// back every change for that device and only that device.
type Applier struct {
	db         txBeginner
	components inventory.ComponentRepository
	recorder   ChangeRecorder
	log        *logging.Logger
	batchSize  int
}

// NewApplier creates a convergence applier. recorder may be nil to skip
// audit recording. A batchSize below 1 falls back to DefaultBatchSize.
func NewApplier(db txBeginner, components inventory.ComponentRepository, recorder ChangeRecorder, log *logging.Logger, batchSize int) *Applier {
	if batchSize < 1 {
		batchSize = DefaultBatchSize
	}
	if log == nil {
		log = logging.Default()
	}
	return &Applier{
		db:         db,
		components: components,
		recorder:   recorder,
		log:        log,
		batchSize:  batchSize,
	}
}

// Apply converges one device onto its diff. Mode selects the sides to
// process; diff mode never reaches the applier. With force, protected
// components are deleted without re-evaluation and reported as removed.
// Without force, every removal candidate is re-checked inside the
// transaction; candidates that became protected since the diff are skipped
// silently and counted as protected.
func (a *Applier) Apply(ctx context.Context, runID string, device *inventory.Device, diff DeviceDiff, mode Mode, pol Policy, force bool) (map[string]CategoryChanges, error) {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning device transaction: %w", err)
	}
	defer tx.Rollback()

	repo := a.components.WithTx(tx)

	changes := make(map[string]CategoryChanges, len(diff.Categories))
	var audit []Change

	for _, cat := range AllCategories() {
		cd, ok := diff.Categories[cat.Name]
		if !ok {
			continue
		}

		var cc CategoryChanges

		if mode.appliesAdds() {
			added, err := a.applyAdds(ctx, repo, device, cat, cd.ToAdd)
			if err != nil {
				return nil, fmt.Errorf("adding %s: %w", cat.Name, err)
			}
			cc.Added = len(added)
			cc.AddedNames = added
			for _, name := range added {
				audit = append(audit, Change{
					RunID:      runID,
					DeviceID:   device.ID,
					DeviceName: device.Name,
					Action:     ActionAdded,
					Category:   cat.Name,
					Name:       name,
				})
			}
		}

		if mode.appliesRemovals() {
			removed, skipped, err := a.applyRemovals(ctx, repo, device, cat, cd, pol, force)
			if err != nil {
				return nil, fmt.Errorf("removing %s: %w", cat.Name, err)
			}
			cc.Removed = len(removed)
			cc.RemovedNames = removed
			cc.Protected = len(skipped)
			cc.ProtectedNames = skipped
			for _, name := range removed {
				audit = append(audit, Change{
					RunID:      runID,
					DeviceID:   device.ID,
					DeviceName: device.Name,
					Action:     ActionRemoved,
					Category:   cat.Name,
					Name:       name,
				})
			}
		} else {
			// Removals untouched; the diff's protection verdicts are
			// still worth reporting.
			cc.Protected = len(cd.Protected)
			for _, c := range cd.Protected {
				cc.ProtectedNames = append(cc.ProtectedNames, c.Name)
			}
		}

		changes[cat.Name] = cc
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing device transaction: %w", err)
	}

	if a.recorder != nil && len(audit) > 0 {
		if err := a.recorder.Record(ctx, audit); err != nil {
			a.log.Error("recording audit changes failed",
				"device", device.Name,
				"run_id", runID,
				"error", err,
			)
		}
	}

	return changes, nil
}

// applyAdds creates components from templates in batches and returns the
// created names.
func (a *Applier) applyAdds(ctx context.Context, repo inventory.ComponentRepository, device *inventory.Device, cat Category, templates []inventory.ComponentTemplate) ([]string, error) {
	if len(templates) == 0 {
		return nil, nil
	}

	components := make([]inventory.Component, 0, len(templates))
	for _, t := range templates {
		components = append(components, cat.NewComponent(device.ID, t))
	}

	names := make([]string, 0, len(components))
	for start := 0; start < len(components); start += a.batchSize {
		end := min(start+a.batchSize, len(components))
		batch := components[start:end]
		if err := repo.CreateBatch(ctx, batch); err != nil {
			return nil, err
		}
		for _, c := range batch {
			names = append(names, c.Name)
		}
	}

	return names, nil
}

// applyRemovals deletes removal candidates one by one, re-checking
// protection against current state unless force. Returns the removed and
// the protection-skipped names.
func (a *Applier) applyRemovals(ctx context.Context, repo inventory.ComponentRepository, device *inventory.Device, cat Category, cd CategoryDiff, pol Policy, force bool) (removed, skipped []string, err error) {
	candidates := cd.ToRemove
	if force {
		candidates = append(append([]inventory.Component{}, cd.ToRemove...), cd.Protected...)
	}

	for i := range candidates {
		c := &candidates[i]

		if !force {
			fresh, err := repo.GetByID(ctx, c.ID)
			if errors.Is(err, inventory.ErrComponentNotFound) {
				// Deleted externally since the diff. Nothing to do.
				continue
			}
			if err != nil {
				return nil, nil, err
			}

			protected, err := IsProtected(ctx, repo, cat, fresh, pol)
			if err != nil {
				return nil, nil, err
			}
			if protected {
				a.log.Debug("skipping protected component",
					"device", device.Name,
					"category", cat.Name,
					"component", c.Name,
				)
				skipped = append(skipped, c.Name)
				continue
			}
		}

		if err := repo.Delete(ctx, c.ID); err != nil {
			if errors.Is(err, inventory.ErrComponentNotFound) {
				continue
			}
			return nil, nil, err
		}
		removed = append(removed, c.Name)
	}

	// The diff's protected components stay reported unless force deleted
	// them above.
	if !force {
		for _, c := range cd.Protected {
			skipped = append(skipped, c.Name)
		}
	}

	return removed, skipped, nil
}
