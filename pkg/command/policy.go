package command

import (
	"context"

	"github.com/identra/identra/pkg/apperror"
	"github.com/identra/identra/pkg/authz"
	"github.com/identra/identra/pkg/domain"
	"github.com/identra/identra/pkg/eventstore"
)

// LoginPolicyWriteModel folds an org's login policy. IsDefault reports
// whether the org still inherits the instance default.
type LoginPolicyWriteModel struct {
	eventstore.WriteModel

	State                 domain.PolicyState
	AllowUsernamePassword bool
	ForceMFA              bool
}

func NewLoginPolicyWriteModel(orgID string) *LoginPolicyWriteModel {
	return &LoginPolicyWriteModel{
		WriteModel: eventstore.WriteModel{
			AggregateID:   orgID,
			ResourceOwner: orgID,
		},
	}
}

func (wm *LoginPolicyWriteModel) Reduce() error {
	for _, event := range wm.Events {
		switch e := event.(type) {
		case *LoginPolicyAddedEvent:
			wm.State = domain.PolicyStateActive
			wm.AllowUsernamePassword = e.AllowUsernamePassword
			wm.ForceMFA = e.ForceMFA
		case *LoginPolicyChangedEvent:
			wm.AllowUsernamePassword = e.AllowUsernamePassword
			wm.ForceMFA = e.ForceMFA
		case *LoginPolicyRemovedEvent:
			wm.State = domain.PolicyStateRemoved
		}
	}
	return wm.WriteModel.Reduce()
}

func (wm *LoginPolicyWriteModel) IsDefault() bool {
	return wm.State != domain.PolicyStateActive
}

func (c *Commands) loginPolicyWriteModel(ctx context.Context, orgID string) (*LoginPolicyWriteModel, error) {
	wm := NewLoginPolicyWriteModel(orgID)
	builder := eventstore.NewSearchQueryBuilder().
		InstanceID(authz.InstanceID(ctx)).
		ResourceOwner(orgID).
		OrderAsc()
	builder.AddQuery().
		AggregateTypes(OrgAggregateType).
		AggregateIDs(orgID).
		EventTypes(LoginPolicyAddedType, LoginPolicyChangedType, LoginPolicyRemovedType)
	if err := c.es.FilterToReducer(ctx, builder, wm); err != nil {
		return nil, err
	}
	return wm, nil
}

// AddLoginPolicy gives the org its own login policy instead of the
// instance default.
func (c *Commands) AddLoginPolicy(ctx context.Context, orgID string, allowUsernamePassword, forceMFA bool) (*domain.ObjectDetails, error) {
	if err := c.checker.Check(ctx, authz.PermissionPolicyWrite, orgID); err != nil {
		return nil, err
	}

	wm, err := c.loginPolicyWriteModel(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if !wm.IsDefault() {
		return nil, apperror.ThrowAlreadyExists(nil, "COMMAND-Pol10", "login policy already exists")
	}

	aggregate := eventstore.NewAggregate(ctx, orgID, OrgAggregateType, orgID)
	if err := c.pushAppendAndReduce(ctx, wm, NewLoginPolicyAddedEvent(ctx, aggregate, allowUsernamePassword, forceMFA)); err != nil {
		return nil, err
	}
	return writeModelToObjectDetails(&wm.WriteModel), nil
}

func (c *Commands) ChangeLoginPolicy(ctx context.Context, orgID string, allowUsernamePassword, forceMFA bool) (*domain.ObjectDetails, error) {
	if err := c.checker.Check(ctx, authz.PermissionPolicyWrite, orgID); err != nil {
		return nil, err
	}

	wm, err := c.loginPolicyWriteModel(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if wm.IsDefault() {
		return nil, apperror.ThrowNotFound(nil, "COMMAND-Pol20", "login policy not found")
	}
	if wm.AllowUsernamePassword == allowUsernamePassword && wm.ForceMFA == forceMFA {
		return nil, apperror.ThrowPreconditionFailed(nil, "COMMAND-Pol21", "login policy unchanged")
	}

	aggregate := aggregateFromWriteModel(ctx, &wm.WriteModel, OrgAggregateType)
	if err := c.pushAppendAndReduce(ctx, wm, NewLoginPolicyChangedEvent(ctx, aggregate, allowUsernamePassword, forceMFA)); err != nil {
		return nil, err
	}
	return writeModelToObjectDetails(&wm.WriteModel), nil
}

// RemoveLoginPolicy reverts the org to the instance default.
func (c *Commands) RemoveLoginPolicy(ctx context.Context, orgID string) (*domain.ObjectDetails, error) {
	if err := c.checker.Check(ctx, authz.PermissionPolicyWrite, orgID); err != nil {
		return nil, err
	}

	wm, err := c.loginPolicyWriteModel(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if wm.IsDefault() {
		return nil, apperror.ThrowNotFound(nil, "COMMAND-Pol30", "login policy not found")
	}

	aggregate := aggregateFromWriteModel(ctx, &wm.WriteModel, OrgAggregateType)
	if err := c.pushAppendAndReduce(ctx, wm, NewLoginPolicyRemovedEvent(ctx, aggregate)); err != nil {
		return nil, err
	}
	return writeModelToObjectDetails(&wm.WriteModel), nil
}
