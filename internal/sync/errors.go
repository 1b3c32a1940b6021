package sync

import "errors"

// Engine errors. All are device-scoped and non-fatal to a run except
// ErrBudgetExceeded, which aborts the run.
var (
	// ErrUnknownCategory is returned when a requested component category
	// is not in the registry.
	ErrUnknownCategory = errors.New("sync: unknown component category")

	// ErrNoDeviceType is returned when a device carries no device type
	// reference and therefore cannot be reconciled.
	ErrNoDeviceType = errors.New("sync: device has no device type assigned")

	// ErrBudgetExceeded is returned when a run reaches its hard wall-clock
	// ceiling. Devices not yet started are marked not-attempted.
	ErrBudgetExceeded = errors.New("sync: run time budget exceeded")

	// ErrInvalidMode is returned when a run mode is not one of
	// diff, add, remove, sync.
	ErrInvalidMode = errors.New("sync: invalid mode")
)
