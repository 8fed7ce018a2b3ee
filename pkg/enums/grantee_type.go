package enums

import "fmt"

// GranteeType identifies the kind of entity a permission was granted to.
type GranteeType string

const (
	GranteeUser  GranteeType = "user"
	GranteeGroup GranteeType = "group"
)

var validGranteeTypes = []GranteeType{
	GranteeUser,
	GranteeGroup,
}

// String implements fmt.Stringer.
func (g GranteeType) String() string {
	return string(g)
}

// IsValid reports whether the value is a known GranteeType.
func (g GranteeType) IsValid() bool {
	for _, candidate := range validGranteeTypes {
		if candidate == g {
			return true
		}
	}
	return false
}

// ParseGranteeType converts raw input into a GranteeType.
func ParseGranteeType(value string) (GranteeType, error) {
	for _, candidate := range validGranteeTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid grantee type %q", value)
}
