package command

import (
	"context"
	"strings"

	"github.com/asaskevich/govalidator"

	"github.com/identra/identra/pkg/apperror"
	"github.com/identra/identra/pkg/authz"
	"github.com/identra/identra/pkg/domain"
	"github.com/identra/identra/pkg/eventstore"
)

// InstanceWriteModel folds the instance lifecycle.
type InstanceWriteModel struct {
	eventstore.WriteModel

	Name    string
	Removed bool
}

func NewInstanceWriteModel(instanceID string) *InstanceWriteModel {
	return &InstanceWriteModel{
		WriteModel: eventstore.WriteModel{AggregateID: instanceID},
	}
}

func (wm *InstanceWriteModel) Reduce() error {
	for _, event := range wm.Events {
		switch e := event.(type) {
		case *InstanceAddedEvent:
			wm.Name = e.Name
		case *InstanceRemovedEvent:
			wm.Removed = true
		}
	}
	return wm.WriteModel.Reduce()
}

// SetupRequest seeds a new instance.
type SetupRequest struct {
	InstanceName string
	OrgName      string

	AdminUsername  string
	AdminFirstName string
	AdminLastName  string
	AdminEmail     string
	AdminPassword  string
}

// SetupResult reports the ids minted during setup.
type SetupResult struct {
	InstanceID  string
	OrgID       string
	AdminUserID string

	Details *domain.ObjectDetails
}

// SetupInstance bootstraps an instance, its default login policy, a
// default org, and an org owner in one transaction. Either everything
// exists afterwards or nothing does.
func (c *Commands) SetupInstance(ctx context.Context, req *SetupRequest) (*SetupResult, error) {
	if strings.TrimSpace(req.InstanceName) == "" {
		return nil, apperror.ThrowInvalidArgument(nil, "COMMAND-Inst10", "instance name must not be empty")
	}
	if strings.TrimSpace(req.OrgName) == "" {
		return nil, apperror.ThrowInvalidArgument(nil, "COMMAND-Inst11", "org name must not be empty")
	}
	if strings.TrimSpace(req.AdminUsername) == "" {
		return nil, apperror.ThrowInvalidArgument(nil, "COMMAND-Inst12", "admin username must not be empty")
	}
	if !govalidator.IsEmail(req.AdminEmail) {
		return nil, apperror.ThrowInvalidArgument(nil, "COMMAND-Inst13", "admin email is invalid")
	}
	if err := c.hasher.ValidateStrength(req.AdminPassword); err != nil {
		return nil, err
	}

	instanceID, err := c.idGen.Next()
	if err != nil {
		return nil, apperror.ThrowInternal(err, "COMMAND-Inst14", "generating instance id")
	}
	orgID, err := c.idGen.Next()
	if err != nil {
		return nil, apperror.ThrowInternal(err, "COMMAND-Inst15", "generating org id")
	}
	adminUserID, err := c.idGen.Next()
	if err != nil {
		return nil, apperror.ThrowInternal(err, "COMMAND-Inst16", "generating user id")
	}

	// Everything below happens inside the instance being created.
	ctx = authz.WithInstanceID(ctx, instanceID)

	instanceAggregate := eventstore.NewAggregate(ctx, instanceID, InstanceAggregateType, instanceID)
	orgAggregate := eventstore.NewAggregate(ctx, orgID, OrgAggregateType, orgID)
	userAggregate := eventstore.NewAggregate(ctx, adminUserID, UserAggregateType, orgID)

	commands, err := c.prepareCommands(ctx,
		func(ctx context.Context, _ FilterFunc, _ []eventstore.Command) ([]eventstore.Command, error) {
			return []eventstore.Command{
				NewInstanceAddedEvent(ctx, instanceAggregate, req.InstanceName),
				NewInstanceLoginPolicyAddedEvent(ctx, instanceAggregate, true, false),
			}, nil
		},
		func(ctx context.Context, _ FilterFunc, _ []eventstore.Command) ([]eventstore.Command, error) {
			return []eventstore.Command{
				NewOrgAddedEvent(ctx, orgAggregate, req.OrgName),
			}, nil
		},
		func(ctx context.Context, _ FilterFunc, _ []eventstore.Command) ([]eventstore.Command, error) {
			passwordHash, err := c.hasher.Hash(req.AdminPassword)
			if err != nil {
				return nil, err
			}
			return []eventstore.Command{
				NewHumanAddedEvent(ctx, userAggregate, req.AdminUsername, req.AdminFirstName, req.AdminLastName, req.AdminEmail, passwordHash),
			}, nil
		},
		func(ctx context.Context, _ FilterFunc, _ []eventstore.Command) ([]eventstore.Command, error) {
			return []eventstore.Command{
				NewOrgMemberAddedEvent(ctx, orgAggregate, adminUserID, []string{authz.RoleOrgOwner}),
			}, nil
		},
	)
	if err != nil {
		return nil, err
	}

	wm := NewInstanceWriteModel(instanceID)
	if err := c.pushAppendAndReduce(ctx, wm, commands...); err != nil {
		return nil, err
	}
	return &SetupResult{
		InstanceID:  instanceID,
		OrgID:       orgID,
		AdminUserID: adminUserID,
		Details:     writeModelToObjectDetails(&wm.WriteModel),
	}, nil
}

// RemoveInstance tears the instance down. The removed event fans out to
// projections, which drop the instance's rows.
func (c *Commands) RemoveInstance(ctx context.Context, instanceID string) (*domain.ObjectDetails, error) {
	if err := c.checker.Check(ctx, authz.PermissionInstanceDelete, ""); err != nil {
		return nil, err
	}

	ctx = authz.WithInstanceID(ctx, instanceID)
	wm := NewInstanceWriteModel(instanceID)
	if err := c.loadWriteModel(ctx, wm, InstanceAggregateType, instanceID, ""); err != nil {
		return nil, err
	}
	if wm.Name == "" || wm.Removed {
		return nil, apperror.ThrowNotFound(nil, "COMMAND-Inst20", "instance not found")
	}

	aggregate := aggregateFromWriteModel(ctx, &wm.WriteModel, InstanceAggregateType)
	if err := c.pushAppendAndReduce(ctx, wm, NewInstanceRemovedEvent(ctx, aggregate)); err != nil {
		return nil, err
	}
	return writeModelToObjectDetails(&wm.WriteModel), nil
}
