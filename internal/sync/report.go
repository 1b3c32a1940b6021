package sync

import (
	"fmt"
	"strconv"
	"time"
)

// Mode selects which side of the diff a run applies.
type Mode string

// Run modes. Diff computes and reports without writing.
const (
	ModeDiff   Mode = "diff"
	ModeAdd    Mode = "add"
	ModeRemove Mode = "remove"
	ModeSync   Mode = "sync"
)

// ParseMode validates a mode string.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeDiff, ModeAdd, ModeRemove, ModeSync:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
	}
}

// appliesAdds reports whether the mode processes the to-add side.
func (m Mode) appliesAdds() bool {
	return m == ModeAdd || m == ModeSync
}

// appliesRemovals reports whether the mode processes the to-remove side.
func (m Mode) appliesRemovals() bool {
	return m == ModeRemove || m == ModeSync
}

// CategoryChanges summarizes one category of one device: what was added
// and removed (or, in diff mode, would be), and what was left protected.
// The name lists carry the same information as the counts; the counts are
// kept explicit for aggregation.
type CategoryChanges struct {
	Added     int `json:"added"`
	Removed   int `json:"removed"`
	Protected int `json:"protected"`

	AddedNames     []string `json:"added_names,omitempty"`
	RemovedNames   []string `json:"removed_names,omitempty"`
	ProtectedNames []string `json:"protected_names,omitempty"`
}

// isEmpty reports whether nothing happened in the category.
func (c CategoryChanges) isEmpty() bool {
	return c.Added == 0 && c.Removed == 0 && c.Protected == 0
}

// Device result statuses.
const (
	DeviceSucceeded    = "succeeded"
	DeviceFailed       = "failed"
	DeviceNotAttempted = "not_attempted"
)

// DeviceResult records the outcome for one device.
type DeviceResult struct {
	DeviceID   string                     `json:"device_id"`
	DeviceName string                     `json:"device_name"`
	Status     string                     `json:"status"`
	HasChanges bool                       `json:"has_changes"`
	Error      string                     `json:"error,omitempty"`
	Warnings   []string                   `json:"warnings,omitempty"`
	Categories map[string]CategoryChanges `json:"categories,omitempty"`
}

// RunError pairs a device identity with a failure message.
type RunError struct {
	DeviceID   string `json:"device_id"`
	DeviceName string `json:"device_name"`
	Message    string `json:"message"`
}

// CategoryTotals accumulates run-wide counts for one category.
type CategoryTotals struct {
	Added     int `json:"added"`
	Removed   int `json:"removed"`
	Protected int `json:"protected"`
}

// Report is the final state of a run, built monotonically while the run
// executes and finalized at the end. It is a pure accumulation: nothing is
// read back from the store at report time.
type Report struct {
	RunID      string   `json:"run_id"`
	Mode       Mode     `json:"mode"`
	Categories []string `json:"categories"`
	Force      bool     `json:"force"`

	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`

	Processed    int `json:"processed"`
	Succeeded    int `json:"succeeded"`
	Failed       int `json:"failed"`
	WithChanges  int `json:"with_changes"`
	NotAttempted int `json:"not_attempted"`

	TotalAdded     int `json:"total_added"`
	TotalRemoved   int `json:"total_removed"`
	TotalProtected int `json:"total_protected"`

	PerCategory map[string]CategoryTotals `json:"per_category,omitempty"`

	Devices []DeviceResult `json:"devices"`
	Errors  []RunError     `json:"errors,omitempty"`

	Warnings       []string `json:"warnings,omitempty"`
	BudgetExceeded bool     `json:"budget_exceeded,omitempty"`
	Cancelled      bool     `json:"cancelled,omitempty"`
}

// addDevice folds a device result into the report tallies.
func (r *Report) addDevice(result DeviceResult) {
	r.Devices = append(r.Devices, result)

	if result.Status == DeviceNotAttempted {
		r.NotAttempted++
		return
	}

	r.Processed++
	switch result.Status {
	case DeviceSucceeded:
		r.Succeeded++
	case DeviceFailed:
		r.Failed++
		r.Errors = append(r.Errors, RunError{
			DeviceID:   result.DeviceID,
			DeviceName: result.DeviceName,
			Message:    result.Error,
		})
	}
	if result.HasChanges {
		r.WithChanges++
	}

	for name, changes := range result.Categories {
		r.TotalAdded += changes.Added
		r.TotalRemoved += changes.Removed
		r.TotalProtected += changes.Protected

		if r.PerCategory == nil {
			r.PerCategory = make(map[string]CategoryTotals)
		}
		totals := r.PerCategory[name]
		totals.Added += changes.Added
		totals.Removed += changes.Removed
		totals.Protected += changes.Protected
		r.PerCategory[name] = totals
	}
}

// Duration returns the wall-clock span of the run.
func (r *Report) Duration() time.Duration {
	return r.CompletedAt.Sub(r.StartedAt)
}

// Flatten serializes the report to a single-level key-value map with
// scalar values only. List entries get indexed keys, so the flattening is
// lossless. Keys are dot-separated paths; device entries are keyed by
// position to survive device names containing dots.
func (r *Report) Flatten() map[string]any {
	flat := map[string]any{
		"run_id":          r.RunID,
		"mode":            string(r.Mode),
		"force":           r.Force,
		"started_at":      r.StartedAt.Format(time.RFC3339),
		"completed_at":    r.CompletedAt.Format(time.RFC3339),
		"processed":       r.Processed,
		"succeeded":       r.Succeeded,
		"failed":          r.Failed,
		"with_changes":    r.WithChanges,
		"not_attempted":   r.NotAttempted,
		"total_added":     r.TotalAdded,
		"total_removed":   r.TotalRemoved,
		"total_protected": r.TotalProtected,
		"budget_exceeded": r.BudgetExceeded,
		"cancelled":       r.Cancelled,
	}

	for i, c := range r.Categories {
		flat["categories."+strconv.Itoa(i)] = c
	}
	for name, totals := range r.PerCategory {
		prefix := "category." + name + "."
		flat[prefix+"added"] = totals.Added
		flat[prefix+"removed"] = totals.Removed
		flat[prefix+"protected"] = totals.Protected
	}

	for i, d := range r.Devices {
		prefix := "devices." + strconv.Itoa(i) + "."
		flat[prefix+"id"] = d.DeviceID
		flat[prefix+"name"] = d.DeviceName
		flat[prefix+"status"] = d.Status
		flat[prefix+"has_changes"] = d.HasChanges
		if d.Error != "" {
			flat[prefix+"error"] = d.Error
		}
		for j, w := range d.Warnings {
			flat[prefix+"warnings."+strconv.Itoa(j)] = w
		}
		for name, changes := range d.Categories {
			cp := prefix + name + "."
			flat[cp+"added"] = changes.Added
			flat[cp+"removed"] = changes.Removed
			flat[cp+"protected"] = changes.Protected
			for j, n := range changes.AddedNames {
				flat[cp+"added_names."+strconv.Itoa(j)] = n
			}
			for j, n := range changes.RemovedNames {
				flat[cp+"removed_names."+strconv.Itoa(j)] = n
			}
			for j, n := range changes.ProtectedNames {
				flat[cp+"protected_names."+strconv.Itoa(j)] = n
			}
		}
	}

	for i, e := range r.Errors {
		prefix := "errors." + strconv.Itoa(i) + "."
		flat[prefix+"device_id"] = e.DeviceID
		flat[prefix+"device_name"] = e.DeviceName
		flat[prefix+"message"] = e.Message
	}
	for i, w := range r.Warnings {
		flat["warnings."+strconv.Itoa(i)] = w
	}

	return flat
}
