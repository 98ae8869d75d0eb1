// Package domain holds the value types shared between the command side and
// the projections: state machines, OIDC enums, and the object-details
// result every mutating command returns.
package domain

type OrgState int32

const (
	OrgStateUnspecified OrgState = iota
	OrgStateActive
	OrgStateInactive
	OrgStateRemoved
)

func (s OrgState) Exists() bool {
	return s == OrgStateActive || s == OrgStateInactive
}

type OrgDomainState int32

const (
	OrgDomainStateUnspecified OrgDomainState = iota
	OrgDomainStateActive
	OrgDomainStateRemoved
)

type UserState int32

const (
	UserStateUnspecified UserState = iota
	UserStateActive
	UserStateInactive
	UserStateLocked
	UserStateRemoved
)

func (s UserState) Exists() bool {
	return s != UserStateUnspecified && s != UserStateRemoved
}

type UserType int32

const (
	UserTypeUnspecified UserType = iota
	UserTypeHuman
	UserTypeMachine
)

type MachineKeyState int32

const (
	MachineKeyStateUnspecified MachineKeyState = iota
	MachineKeyStateActive
	MachineKeyStateRemoved
)

// WebAuthnState tracks a single token: registration begins with a
// challenge (NotReady) and completes on attestation (Ready).
type WebAuthnState int32

const (
	WebAuthnStateUnspecified WebAuthnState = iota
	WebAuthnStateNotReady
	WebAuthnStateReady
	WebAuthnStateRemoved
)

type OTPState int32

const (
	OTPStateUnspecified OTPState = iota
	OTPStateReady
	OTPStateRemoved
)

type ProjectState int32

const (
	ProjectStateUnspecified ProjectState = iota
	ProjectStateActive
	ProjectStateInactive
	ProjectStateRemoved
)

func (s ProjectState) Exists() bool {
	return s == ProjectStateActive || s == ProjectStateInactive
}

type AppState int32

const (
	AppStateUnspecified AppState = iota
	AppStateActive
	AppStateInactive
	AppStateRemoved
)

type GrantState int32

const (
	GrantStateUnspecified GrantState = iota
	GrantStateActive
	GrantStateRemoved
)

type PolicyState int32

const (
	PolicyStateUnspecified PolicyState = iota
	PolicyStateActive
	PolicyStateRemoved
)

// AuthRequestState advances strictly forward; Succeeded and Failed are
// terminal.
type AuthRequestState int32

const (
	AuthRequestStateUnspecified AuthRequestState = iota
	AuthRequestStateAdded
	AuthRequestStateUserSelected
	AuthRequestStatePasswordChecked
	AuthRequestStateMFAChecked
	AuthRequestStateSucceeded
	AuthRequestStateFailed
)

func (s AuthRequestState) Terminal() bool {
	return s == AuthRequestStateSucceeded || s == AuthRequestStateFailed
}

type SessionState int32

const (
	SessionStateUnspecified SessionState = iota
	SessionStateActive
	SessionStateTerminated
)

type InstanceState int32

const (
	InstanceStateUnspecified InstanceState = iota
	InstanceStateActive
	InstanceStateRemoved
)
