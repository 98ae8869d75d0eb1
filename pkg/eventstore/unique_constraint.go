package eventstore

// ConstraintAction distinguishes claiming a value from releasing it.
type ConstraintAction int32

const (
	ConstraintAdd ConstraintAction = iota
	ConstraintRemove
)

// UniqueConstraint reserves (or frees) a value such as a username or domain
// within the event's instance, or across all instances for global
// constraints. Intents are applied in command order inside the push
// transaction; a colliding add rolls the whole push back.
type UniqueConstraint struct {
	// ConstraintType names the index, e.g. "usernames", "org_domains".
	ConstraintType string

	// Value is the reserved value, already normalized by the caller.
	Value string

	// ErrorCode is the stable code surfaced on violation.
	ErrorCode string

	// Global spans all instances (sentinel instance id in storage).
	Global bool

	Action ConstraintAction
}

// NewAddUniqueConstraint reserves value under constraintType for the
// event's instance.
func NewAddUniqueConstraint(constraintType, value, errorCode string) *UniqueConstraint {
	return &UniqueConstraint{
		ConstraintType: constraintType,
		Value:          value,
		ErrorCode:      errorCode,
		Action:         ConstraintAdd,
	}
}

// NewRemoveUniqueConstraint frees a previously reserved value. Removing a
// value that was never reserved is not an error.
func NewRemoveUniqueConstraint(constraintType, value string) *UniqueConstraint {
	return &UniqueConstraint{
		ConstraintType: constraintType,
		Value:          value,
		Action:         ConstraintRemove,
	}
}

// NewAddGlobalUniqueConstraint reserves value across all instances.
func NewAddGlobalUniqueConstraint(constraintType, value, errorCode string) *UniqueConstraint {
	c := NewAddUniqueConstraint(constraintType, value, errorCode)
	c.Global = true
	return c
}

// NewRemoveGlobalUniqueConstraint frees a global reservation.
func NewRemoveGlobalUniqueConstraint(constraintType, value string) *UniqueConstraint {
	c := NewRemoveUniqueConstraint(constraintType, value)
	c.Global = true
	return c
}
