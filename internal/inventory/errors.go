package inventory

import "errors"

// Domain errors for the inventory package. Check with errors.Is:
//
//	if errors.Is(err, inventory.ErrDeviceNotFound) {
//	    // handle not found
//	}
var (
	// ErrDeviceNotFound is returned when a device ID does not exist.
	ErrDeviceNotFound = errors.New("inventory: device not found")

	// ErrDeviceExists is returned when creating a device whose ID or name
	// already exists.
	ErrDeviceExists = errors.New("inventory: device already exists")

	// ErrDeviceTypeNotFound is returned when a device type ID or slug does
	// not exist.
	ErrDeviceTypeNotFound = errors.New("inventory: device type not found")

	// ErrDeviceTypeExists is returned when creating a device type whose
	// slug already exists.
	ErrDeviceTypeExists = errors.New("inventory: device type already exists")

	// ErrComponentNotFound is returned when a component ID does not exist.
	ErrComponentNotFound = errors.New("inventory: component not found")

	// ErrComponentExists is returned when creating a component that
	// collides on (device, category, name).
	ErrComponentExists = errors.New("inventory: component already exists")

	// ErrInvalidName is returned when an entity name is empty or too long.
	ErrInvalidName = errors.New("inventory: invalid name")

	// ErrInvalidSlug is returned when a slug format is invalid.
	ErrInvalidSlug = errors.New("inventory: invalid slug")
)
