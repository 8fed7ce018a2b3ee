package enums

import "fmt"

// PermissionType scopes what an entity may do within a division.
type PermissionType string

const (
	PermissionSubmit PermissionType = "submit"
	PermissionReview PermissionType = "review"
	PermissionPay    PermissionType = "pay"
	PermissionAdmin  PermissionType = "admin"
)

var validPermissionTypes = []PermissionType{
	PermissionSubmit,
	PermissionReview,
	PermissionPay,
	PermissionAdmin,
}

// ElevatedPermissions are the grants that expose other members' requests.
var ElevatedPermissions = []PermissionType{
	PermissionReview,
	PermissionPay,
}

// String implements fmt.Stringer.
func (p PermissionType) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PermissionType.
func (p PermissionType) IsValid() bool {
	for _, candidate := range validPermissionTypes {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePermissionType converts raw input into a PermissionType.
func ParsePermissionType(value string) (PermissionType, error) {
	for _, candidate := range validPermissionTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid permission type %q", value)
}
