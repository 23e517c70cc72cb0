// Package authz decides whether a user may perform an action on a resource.
// It combines role-based permission checks with ownership and membership rules.
// Denials are values, never errors: an error from this package always means the
// underlying data could not be read, or the caller invoked it incorrectly.
package authz

import "errors"

// Resource identifies the kind of entity an action targets.
type Resource string

const (
	ResourceUser    Resource = "user"
	ResourceTeam    Resource = "team"
	ResourceProject Resource = "project"
	ResourceTask    Resource = "task"
	ResourceRole    Resource = "role"
)

// Action identifies what the actor wants to do.
type Action string

const (
	ActionView           Action = "view"
	ActionCreate         Action = "create"
	ActionUpdate         Action = "update"
	ActionDelete         Action = "delete"
	ActionManageProjects Action = "manage_projects"
	ActionManageMembers  Action = "manage_members"
	ActionAssignUsers    Action = "assign_users"
)

// DenialReason explains why a Decision denied access.
type DenialReason string

const (
	ReasonNone                   DenialReason = ""
	ReasonNotAuthenticated       DenialReason = "not_authenticated"
	ReasonInsufficientPermission DenialReason = "insufficient_permission"
	ReasonNotOwner               DenialReason = "not_owner"
	ReasonSelfActionForbidden    DenialReason = "self_action_forbidden"
	ReasonHasDependentChildren   DenialReason = "has_dependent_children"
	ReasonUnknown                DenialReason = "unknown"
)

// Decision is the value-typed outcome of an authorization check.
type Decision struct {
	Allowed bool         `json:"allowed"`
	Reason  DenialReason `json:"reason,omitempty"`
}

// Allow returns a granting decision.
func Allow() Decision {
	return Decision{Allowed: true}
}

// Deny returns a denying decision carrying the given reason.
func Deny(reason DenialReason) Decision {
	return Decision{Allowed: false, Reason: reason}
}

// ErrResourceRequired is returned when Decide is called for an action that needs
// a resource instance but none was supplied. This is a caller bug, not a denial.
var ErrResourceRequired = errors.New("authz: resource id required for this action")
