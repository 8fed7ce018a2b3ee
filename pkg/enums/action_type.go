package enums

import "fmt"

// ActionType names the entries of a request's audit log. Every value except
// ActionTypeComment doubles as a request status.
type ActionType string

const (
	ActionTypeEvaluating ActionType = "evaluating"
	ActionTypeApproved   ActionType = "approved"
	ActionTypeRejected   ActionType = "rejected"
	ActionTypeIncomplete ActionType = "incomplete"
	ActionTypePaid       ActionType = "paid"
	ActionTypeComment    ActionType = "comment"
)

var validActionTypes = []ActionType{
	ActionTypeEvaluating,
	ActionTypeApproved,
	ActionTypeRejected,
	ActionTypeIncomplete,
	ActionTypePaid,
	ActionTypeComment,
}

// Statuses lists the action types that set a request status.
var Statuses = []ActionType{
	ActionTypeEvaluating,
	ActionTypeApproved,
	ActionTypeRejected,
	ActionTypeIncomplete,
	ActionTypePaid,
}

// String implements fmt.Stringer.
func (a ActionType) String() string {
	return string(a)
}

// IsValid reports whether the value is a known ActionType.
func (a ActionType) IsValid() bool {
	for _, candidate := range validActionTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// IsStatus reports whether the action type changes the request status.
func (a ActionType) IsStatus() bool {
	return a.IsValid() && a != ActionTypeComment
}

// IsFinalized reports whether the value is a reviewed, non-terminal outcome.
// Paid is deliberately excluded: a paid request is immutable.
func (a ActionType) IsFinalized() bool {
	switch a {
	case ActionTypeApproved, ActionTypeRejected, ActionTypeIncomplete:
		return true
	}
	return false
}

// ParseActionType converts raw input into an ActionType.
func ParseActionType(value string) (ActionType, error) {
	for _, candidate := range validActionTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid action type %q", value)
}
