package inventory

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	maxNameLength = 128
	maxSlugLength = 100
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// ValidateDevice checks a device for storage.
func ValidateDevice(d *Device) error {
	if err := validateName(d.Name); err != nil {
		return err
	}
	return nil
}

// ValidateDeviceType checks a device type for storage.
func ValidateDeviceType(dt *DeviceType) error {
	if dt.Manufacturer == "" {
		return fmt.Errorf("%w: manufacturer is required", ErrInvalidName)
	}
	if err := validateName(dt.Model); err != nil {
		return err
	}
	if dt.Slug == "" || !slugPattern.MatchString(dt.Slug) {
		return fmt.Errorf("%w: %q", ErrInvalidSlug, dt.Slug)
	}
	return nil
}

// ValidateComponentName checks the natural key used for reconciliation
// matching. Matching is exact and case-sensitive, so the only constraints
// are non-emptiness and length.
func ValidateComponentName(name string) error {
	return validateName(name)
}

func validateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: empty", ErrInvalidName)
	}
	if len(name) > maxNameLength {
		return fmt.Errorf("%w: longer than %d characters", ErrInvalidName, maxNameLength)
	}
	return nil
}

// GenerateSlug creates a URL-safe slug from a name.
func GenerateSlug(name string) string {
	slug := strings.ToLower(name)
	slug = strings.ReplaceAll(slug, " ", "-")
	slug = strings.ReplaceAll(slug, "_", "-")

	var b strings.Builder
	for _, r := range slug {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
			b.WriteRune(r)
		}
	}
	slug = b.String()

	slug = strings.Trim(slug, "-")
	for strings.Contains(slug, "--") {
		slug = strings.ReplaceAll(slug, "--", "-")
	}

	if len(slug) > maxSlugLength {
		slug = strings.TrimRight(slug[:maxSlugLength], "-")
	}

	return slug
}
