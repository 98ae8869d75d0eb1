// Package authz carries the request identity (instance, actor, roles)
// through context and answers RBAC checks.
package authz

import (
	"context"

	"github.com/identra/identra/pkg/apperror"
)

// SystemActor is recorded as the event creator when no actor is present.
const SystemActor = "system"

type contextKey string

const ctxKey contextKey = "identra_authz"

// Context identifies who is acting, where.
type Context struct {
	// InstanceID is the tenant every read and write is scoped to.
	InstanceID string

	// ActorID is the user or service performing the request.
	ActorID string

	// OrgID is the organisation the actor is acting within, if any.
	OrgID string

	// Roles are the actor's granted roles, resolved by the caller.
	Roles []string
}

// WithContext attaches an authorization context.
func WithContext(ctx context.Context, authCtx Context) context.Context {
	return context.WithValue(ctx, ctxKey, authCtx)
}

// WithInstanceID attaches a bare instance scope with the system actor.
// Used by background workers (projections, setup) that act on their own
// behalf.
func WithInstanceID(ctx context.Context, instanceID string) context.Context {
	return WithContext(ctx, Context{InstanceID: instanceID, ActorID: SystemActor})
}

// GetContext returns the authorization context, or the zero value.
func GetContext(ctx context.Context) Context {
	authCtx, _ := ctx.Value(ctxKey).(Context)
	return authCtx
}

// InstanceID returns the tenant scope of ctx.
func InstanceID(ctx context.Context) string {
	return GetContext(ctx).InstanceID
}

// ActorID returns the acting principal, or SystemActor when absent.
func ActorID(ctx context.Context) string {
	if actor := GetContext(ctx).ActorID; actor != "" {
		return actor
	}
	return SystemActor
}

// RequireInstance returns the instance id or an error when ctx carries no
// tenant scope. All write-side operations demand a tenant.
func RequireInstance(ctx context.Context) (string, error) {
	instanceID := InstanceID(ctx)
	if instanceID == "" {
		return "", apperror.ThrowInvalidArgument(nil, "AUTHZ-Inst01", "instance not set on context")
	}
	return instanceID, nil
}
