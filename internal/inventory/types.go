package inventory

import "time"

// DeviceType is the canonical definition of a device model. Its component
// templates describe the components every device of this type should have.
type DeviceType struct {
	ID           string `json:"id"`
	Manufacturer string `json:"manufacturer"`
	Model        string `json:"model"`
	Slug         string `json:"slug"`
	PartNumber   string `json:"part_number,omitempty"`
	UHeight      int    `json:"u_height"`
	IsFullDepth  bool   `json:"is_full_depth"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Device is a concrete managed device. DeviceTypeID may be nil: such a
// device cannot be reconciled and is reported as a precondition failure.
type Device struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	DeviceTypeID *string  `json:"device_type_id,omitempty"`
	Site         string   `json:"site,omitempty"`
	Location     string   `json:"location,omitempty"`
	Role         string   `json:"role,omitempty"`
	Status       string   `json:"status"`
	Serial       string   `json:"serial,omitempty"`
	Tags         []string `json:"tags,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasType reports whether the device carries a device type reference.
func (d *Device) HasType() bool {
	return d.DeviceTypeID != nil && *d.DeviceTypeID != ""
}

// Attrs holds category-specific component attributes as a JSON map
// (mgmt_only, maximum_draw, feed_leg, positions, ...). Which keys are
// meaningful for a category is declared by the sync category registry.
type Attrs map[string]any

// ComponentTemplate is the desired state of one component within a device
// type, identified by Name within its (device type, category) parent.
type ComponentTemplate struct {
	ID           string `json:"id"`
	DeviceTypeID string `json:"device_type_id"`
	Category     string `json:"category"`
	Name         string `json:"name"`
	Type         string `json:"type,omitempty"`
	Label        string `json:"label,omitempty"`
	Description  string `json:"description,omitempty"`
	Attrs        Attrs  `json:"attrs,omitempty"`
}

// Component is the actual state of one component on a device, identified by
// Name within its (device, category) parent. Beyond the template-shaped
// fields it carries the relational facts consulted by deletion protection:
// an attached cable, IP assignments, VLAN membership, and LAG membership.
type Component struct {
	ID          string `json:"id"`
	DeviceID    string `json:"device_id"`
	Category    string `json:"category"`
	Name        string `json:"name"`
	Type        string `json:"type,omitempty"`
	Label       string `json:"label,omitempty"`
	Description string `json:"description,omitempty"`
	Attrs       Attrs  `json:"attrs,omitempty"`
	Status      string `json:"status,omitempty"`

	CableID      *string  `json:"cable_id,omitempty"`
	IPAddresses  []string `json:"ip_addresses,omitempty"`
	UntaggedVLAN *int     `json:"untagged_vlan,omitempty"`
	TaggedVLANs  []int    `json:"tagged_vlans,omitempty"`
	LagID        *string  `json:"lag_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Cable records a physical link between two components, addressed
// denormalized by (device, component name) on each end.
type Cable struct {
	ID        string    `json:"id"`
	ADeviceID string    `json:"a_device_id"`
	AName     string    `json:"a_name"`
	BDeviceID string    `json:"b_device_id"`
	BName     string    `json:"b_name"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// Selector narrows the set of devices a reconciliation run processes.
// A zero Selector matches all devices. Results are always ordered by name.
type Selector struct {
	DeviceIDs     []string `json:"device_ids,omitempty"`
	DeviceTypeIDs []string `json:"device_type_ids,omitempty"`
	Sites         []string `json:"sites,omitempty"`
	Tag           string   `json:"tag,omitempty"`
}

// IsZero reports whether the selector applies no filtering.
func (s Selector) IsZero() bool {
	return len(s.DeviceIDs) == 0 && len(s.DeviceTypeIDs) == 0 && len(s.Sites) == 0 && s.Tag == ""
}

// Device status values. Free-form in the store; these are the common ones.
const (
	StatusActive  = "active"
	StatusPlanned = "planned"
	StatusOffline = "offline"
)

// ComponentStatusActive is the initial operational status given to
// interface components created from templates, when available.
const ComponentStatusActive = "active"
