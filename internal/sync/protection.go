package sync

import (
	"context"
	"fmt"
	"strings"

	"github.com/netsyncd/netsync-core/internal/inventory"
)

// Policy carries the two independent protection switches. Either switch
// alone can protect a component from removal.
type Policy struct {
	ProtectConnected  bool
	ProtectConfigured bool
}

// DefaultPolicy protects both connected and configured components.
func DefaultPolicy() Policy {
	return Policy{ProtectConnected: true, ProtectConfigured: true}
}

// Facts exposes the relational lookups protection needs beyond the
// component row itself. Implemented by inventory.ComponentRepository, so
// the applier can evaluate against its transaction-bound repository.
type Facts interface {
	HasCableTermination(ctx context.Context, deviceID, name string) (bool, error)
	HasLAGMembers(ctx context.Context, componentID string) (bool, error)
}

// IsProtected decides whether a component may be deleted. Read-only; the
// pipeline evaluates it twice, once during diff and again inside the apply
// transaction, because external writers may configure a component between
// the two.
//
// The checks OR together:
//
//   - connected: the row references a cable, or, for interfaces, a cable
//     terminates on (device, name) even if the row lost its reference.
//   - configured: for interfaces, any of IP assignments, untagged VLAN,
//     tagged VLANs, a LAG parent, or LAG members. For every category, a
//     non-blank description.
func IsProtected(ctx context.Context, facts Facts, cat Category, c *inventory.Component, pol Policy) (bool, error) {
	if pol.ProtectConnected {
		connected, err := isConnected(ctx, facts, cat, c)
		if err != nil {
			return false, err
		}
		if connected {
			return true, nil
		}
	}

	if pol.ProtectConfigured {
		configured, err := isConfigured(ctx, facts, cat, c)
		if err != nil {
			return false, err
		}
		if configured {
			return true, nil
		}
	}

	return false, nil
}

func isConnected(ctx context.Context, facts Facts, cat Category, c *inventory.Component) (bool, error) {
	if c.CableID != nil && *c.CableID != "" {
		return true, nil
	}
	if !cat.InterfaceRules {
		return false, nil
	}
	terminated, err := facts.HasCableTermination(ctx, c.DeviceID, c.Name)
	if err != nil {
		return false, fmt.Errorf("checking cable terminations for %q: %w", c.Name, err)
	}
	return terminated, nil
}

func isConfigured(ctx context.Context, facts Facts, cat Category, c *inventory.Component) (bool, error) {
	if cat.InterfaceRules {
		if len(c.IPAddresses) > 0 || c.UntaggedVLAN != nil || len(c.TaggedVLANs) > 0 {
			return true, nil
		}
		if c.LagID != nil && *c.LagID != "" {
			return true, nil
		}
		hasMembers, err := facts.HasLAGMembers(ctx, c.ID)
		if err != nil {
			return false, fmt.Errorf("checking lag members for %q: %w", c.Name, err)
		}
		if hasMembers {
			return true, nil
		}
	}

	return strings.TrimSpace(c.Description) != "", nil
}
