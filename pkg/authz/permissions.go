package authz

import (
	"context"

	"github.com/identra/identra/pkg/apperror"
)

// Permission names follow "{resource}.{action}".
const (
	PermissionOrgWrite       = "org.write"
	PermissionOrgDelete      = "org.delete"
	PermissionUserWrite      = "user.write"
	PermissionUserDelete     = "user.delete"
	PermissionUserCredWrite  = "user.credential.write"
	PermissionProjectWrite   = "project.write"
	PermissionProjectDelete  = "project.delete"
	PermissionAppWrite       = "project.app.write"
	PermissionGrantWrite     = "project.grant.write"
	PermissionPolicyWrite    = "policy.write"
	PermissionSessionWrite   = "session.write"
	PermissionInstanceWrite  = "instance.write"
	PermissionInstanceDelete = "instance.delete"
)

// Well-known roles.
const (
	RoleSystem        = "SYSTEM"
	RoleInstanceOwner = "INSTANCE_OWNER"
	RoleOrgOwner      = "ORG_OWNER"
	RoleSelf          = "SELF"
)

// rolePermissions is the static role to permission mapping. Scope (which
// org or instance the role was granted on) is checked by the Checker, not
// encoded here.
var rolePermissions = map[string][]string{
	RoleSystem: {
		PermissionOrgWrite, PermissionOrgDelete,
		PermissionUserWrite, PermissionUserDelete, PermissionUserCredWrite,
		PermissionProjectWrite, PermissionProjectDelete, PermissionAppWrite, PermissionGrantWrite,
		PermissionPolicyWrite, PermissionSessionWrite,
		PermissionInstanceWrite, PermissionInstanceDelete,
	},
	RoleInstanceOwner: {
		PermissionOrgWrite, PermissionOrgDelete,
		PermissionUserWrite, PermissionUserDelete, PermissionUserCredWrite,
		PermissionProjectWrite, PermissionProjectDelete, PermissionAppWrite, PermissionGrantWrite,
		PermissionPolicyWrite, PermissionSessionWrite,
		PermissionInstanceWrite,
	},
	RoleOrgOwner: {
		PermissionOrgWrite,
		PermissionUserWrite, PermissionUserDelete, PermissionUserCredWrite,
		PermissionProjectWrite, PermissionProjectDelete, PermissionAppWrite, PermissionGrantWrite,
		PermissionPolicyWrite,
	},
	RoleSelf: {
		PermissionUserCredWrite, PermissionSessionWrite,
	},
}

// Checker answers whether the actor in ctx may perform permission on the
// resource owned by resourceOwner.
type Checker interface {
	Check(ctx context.Context, permission, resourceOwner string) error
}

// RoleChecker is the default Checker backed by the static role table.
// A role granted on the actor's org only reaches resources owned by that
// org; instance-level roles reach everything in the instance.
type RoleChecker struct{}

func NewRoleChecker() *RoleChecker { return &RoleChecker{} }

func (c *RoleChecker) Check(ctx context.Context, permission, resourceOwner string) error {
	authCtx := GetContext(ctx)
	if authCtx.ActorID == SystemActor || authCtx.ActorID == "" {
		// Internal callers (setup, projections, tests) bypass RBAC.
		return nil
	}

	for _, role := range authCtx.Roles {
		perms, ok := rolePermissions[role]
		if !ok {
			continue
		}
		if !roleReaches(role, authCtx, resourceOwner) {
			continue
		}
		for _, p := range perms {
			if p == permission {
				return nil
			}
		}
	}

	return apperror.ThrowPermissionDenied(nil, "AUTHZ-Perm01", "permission denied")
}

func roleReaches(role string, authCtx Context, resourceOwner string) bool {
	switch role {
	case RoleSystem, RoleInstanceOwner:
		return true
	case RoleOrgOwner:
		return resourceOwner == "" || resourceOwner == authCtx.OrgID
	case RoleSelf:
		return resourceOwner == "" || resourceOwner == authCtx.OrgID
	default:
		return false
	}
}
