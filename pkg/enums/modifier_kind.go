package enums

import "fmt"

// ModifierKind distinguishes the two payout adjustment semantics: absolute
// modifiers add a flat ISK amount, relative modifiers scale the running total.
type ModifierKind string

const (
	ModifierKindAbsolute ModifierKind = "absolute"
	ModifierKindRelative ModifierKind = "relative"
)

var validModifierKinds = []ModifierKind{
	ModifierKindAbsolute,
	ModifierKindRelative,
}

// String implements fmt.Stringer.
func (m ModifierKind) String() string {
	return string(m)
}

// IsValid reports whether the value is a known ModifierKind.
func (m ModifierKind) IsValid() bool {
	for _, candidate := range validModifierKinds {
		if candidate == m {
			return true
		}
	}
	return false
}

// ParseModifierKind converts raw input into a ModifierKind.
func ParseModifierKind(value string) (ModifierKind, error) {
	for _, candidate := range validModifierKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid modifier kind %q", value)
}
