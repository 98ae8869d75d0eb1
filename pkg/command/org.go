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

// AddOrg creates an active organisation with a per-instance unique name.
func (c *Commands) AddOrg(ctx context.Context, name string) (string, *domain.ObjectDetails, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", nil, apperror.ThrowInvalidArgument(nil, "COMMAND-Org10", "org name must not be empty")
	}
	if _, err := authz.RequireInstance(ctx); err != nil {
		return "", nil, err
	}
	if err := c.checker.Check(ctx, authz.PermissionOrgWrite, ""); err != nil {
		return "", nil, err
	}

	orgID, err := c.idGen.Next()
	if err != nil {
		return "", nil, apperror.ThrowInternal(err, "COMMAND-Org12", "generating org id")
	}

	wm := NewOrgWriteModel(orgID)
	aggregate := eventstore.NewAggregate(ctx, orgID, OrgAggregateType, orgID)
	if err := c.pushAppendAndReduce(ctx, wm, NewOrgAddedEvent(ctx, aggregate, name)); err != nil {
		return "", nil, err
	}
	return orgID, writeModelToObjectDetails(&wm.WriteModel), nil
}

// ChangeOrg renames an organisation, swapping the name constraint in the
// same push.
func (c *Commands) ChangeOrg(ctx context.Context, orgID, name string) (*domain.ObjectDetails, error) {
	name = strings.TrimSpace(name)
	if orgID == "" {
		return nil, apperror.ThrowInvalidArgument(nil, "COMMAND-Org20", "org id must not be empty")
	}
	if name == "" {
		return nil, apperror.ThrowInvalidArgument(nil, "COMMAND-Org21", "org name must not be empty")
	}
	if err := c.checker.Check(ctx, authz.PermissionOrgWrite, orgID); err != nil {
		return nil, err
	}

	wm, err := c.orgWriteModelByID(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if !wm.State.Exists() {
		return nil, apperror.ThrowNotFound(nil, "COMMAND-Org22", "org not found")
	}
	if wm.Name == name {
		return nil, apperror.ThrowPreconditionFailed(nil, "COMMAND-Org23", "org name unchanged")
	}

	aggregate := aggregateFromWriteModel(ctx, &wm.WriteModel, OrgAggregateType)
	if err := c.pushAppendAndReduce(ctx, wm, NewOrgChangedEvent(ctx, aggregate, wm.Name, name)); err != nil {
		return nil, err
	}
	return writeModelToObjectDetails(&wm.WriteModel), nil
}

// DeactivateOrg moves an active organisation to inactive.
func (c *Commands) DeactivateOrg(ctx context.Context, orgID string) (*domain.ObjectDetails, error) {
	if orgID == "" {
		return nil, apperror.ThrowInvalidArgument(nil, "COMMAND-Org30", "org id must not be empty")
	}
	if err := c.checker.Check(ctx, authz.PermissionOrgWrite, orgID); err != nil {
		return nil, err
	}

	wm, err := c.orgWriteModelByID(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if !wm.State.Exists() {
		return nil, apperror.ThrowNotFound(nil, "COMMAND-Org32", "org not found")
	}
	if wm.State != domain.OrgStateActive {
		return nil, apperror.ThrowPreconditionFailed(nil, "COMMAND-Org31", "org is not active")
	}

	aggregate := aggregateFromWriteModel(ctx, &wm.WriteModel, OrgAggregateType)
	if err := c.pushAppendAndReduce(ctx, wm, NewOrgDeactivatedEvent(ctx, aggregate)); err != nil {
		return nil, err
	}
	return writeModelToObjectDetails(&wm.WriteModel), nil
}

// ReactivateOrg moves an inactive organisation back to active.
func (c *Commands) ReactivateOrg(ctx context.Context, orgID string) (*domain.ObjectDetails, error) {
	if orgID == "" {
		return nil, apperror.ThrowInvalidArgument(nil, "COMMAND-Org40", "org id must not be empty")
	}
	if err := c.checker.Check(ctx, authz.PermissionOrgWrite, orgID); err != nil {
		return nil, err
	}

	wm, err := c.orgWriteModelByID(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if !wm.State.Exists() {
		return nil, apperror.ThrowNotFound(nil, "COMMAND-Org42", "org not found")
	}
	if wm.State != domain.OrgStateInactive {
		return nil, apperror.ThrowPreconditionFailed(nil, "COMMAND-Org41", "org is not inactive")
	}

	aggregate := aggregateFromWriteModel(ctx, &wm.WriteModel, OrgAggregateType)
	if err := c.pushAppendAndReduce(ctx, wm, NewOrgReactivatedEvent(ctx, aggregate)); err != nil {
		return nil, err
	}
	return writeModelToObjectDetails(&wm.WriteModel), nil
}

// RemoveOrg removes the organisation and releases its name and verified
// domains.
func (c *Commands) RemoveOrg(ctx context.Context, orgID string) (*domain.ObjectDetails, error) {
	if orgID == "" {
		return nil, apperror.ThrowInvalidArgument(nil, "COMMAND-Org50", "org id must not be empty")
	}
	if err := c.checker.Check(ctx, authz.PermissionOrgDelete, orgID); err != nil {
		return nil, err
	}

	wm, err := c.orgWriteModelByID(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if !wm.State.Exists() {
		return nil, apperror.ThrowNotFound(nil, "COMMAND-Org51", "org not found")
	}

	aggregate := aggregateFromWriteModel(ctx, &wm.WriteModel, OrgAggregateType)
	event := NewOrgRemovedEvent(ctx, aggregate, wm.Name, wm.VerifiedDomains)
	if err := c.pushAppendAndReduce(ctx, wm, event); err != nil {
		return nil, err
	}
	return writeModelToObjectDetails(&wm.WriteModel), nil
}

// AddOrgDomain registers a domain on the org. The domain stays unverified
// and claims no uniqueness until verified.
func (c *Commands) AddOrgDomain(ctx context.Context, orgID, orgDomain string) (*domain.ObjectDetails, error) {
	orgDomain = domain.NormalizeIdentifier(orgDomain)
	if orgDomain == "" || !govalidator.IsDNSName(orgDomain) {
		return nil, apperror.ThrowInvalidArgument(nil, "COMMAND-Dom10", "domain is invalid")
	}
	if err := c.checker.Check(ctx, authz.PermissionOrgWrite, orgID); err != nil {
		return nil, err
	}

	org, err := c.orgWriteModelByID(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if !org.State.Exists() {
		return nil, apperror.ThrowNotFound(nil, "COMMAND-Dom11", "org not found")
	}

	wm, err := c.orgDomainWriteModel(ctx, orgID, orgDomain)
	if err != nil {
		return nil, err
	}
	if wm.State == domain.OrgDomainStateActive {
		return nil, apperror.ThrowAlreadyExists(nil, "COMMAND-Dom12", "domain already added")
	}

	aggregate := aggregateFromWriteModel(ctx, &wm.WriteModel, OrgAggregateType)
	if err := c.pushAppendAndReduce(ctx, wm, NewOrgDomainAddedEvent(ctx, aggregate, orgDomain)); err != nil {
		return nil, err
	}
	return writeModelToObjectDetails(&wm.WriteModel), nil
}

// VerifyOrgDomain marks the domain verified and claims the instance-wide
// domain constraint.
func (c *Commands) VerifyOrgDomain(ctx context.Context, orgID, orgDomain string) (*domain.ObjectDetails, error) {
	orgDomain = domain.NormalizeIdentifier(orgDomain)
	if err := c.checker.Check(ctx, authz.PermissionOrgWrite, orgID); err != nil {
		return nil, err
	}

	wm, err := c.orgDomainWriteModel(ctx, orgID, orgDomain)
	if err != nil {
		return nil, err
	}
	if wm.State != domain.OrgDomainStateActive {
		return nil, apperror.ThrowNotFound(nil, "COMMAND-Dom20", "domain not found")
	}
	if wm.Verified {
		return nil, apperror.ThrowAlreadyExists(nil, "COMMAND-Dom21", "domain already verified")
	}

	aggregate := aggregateFromWriteModel(ctx, &wm.WriteModel, OrgAggregateType)
	if err := c.pushAppendAndReduce(ctx, wm, NewOrgDomainVerifiedEvent(ctx, aggregate, orgDomain)); err != nil {
		return nil, err
	}
	return writeModelToObjectDetails(&wm.WriteModel), nil
}

// SetPrimaryOrgDomain marks a verified domain as the org's primary one.
func (c *Commands) SetPrimaryOrgDomain(ctx context.Context, orgID, orgDomain string) (*domain.ObjectDetails, error) {
	orgDomain = domain.NormalizeIdentifier(orgDomain)
	if err := c.checker.Check(ctx, authz.PermissionOrgWrite, orgID); err != nil {
		return nil, err
	}

	wm, err := c.orgDomainWriteModel(ctx, orgID, orgDomain)
	if err != nil {
		return nil, err
	}
	if wm.State != domain.OrgDomainStateActive {
		return nil, apperror.ThrowNotFound(nil, "COMMAND-Dom30", "domain not found")
	}
	if !wm.Verified {
		return nil, apperror.ThrowPreconditionFailed(nil, "COMMAND-Dom31", "domain is not verified")
	}

	aggregate := aggregateFromWriteModel(ctx, &wm.WriteModel, OrgAggregateType)
	if err := c.pushAppendAndReduce(ctx, wm, NewOrgDomainPrimarySetEvent(ctx, aggregate, orgDomain)); err != nil {
		return nil, err
	}
	return writeModelToObjectDetails(&wm.WriteModel), nil
}

// RemoveOrgDomain removes a non-primary domain, releasing its constraint
// when it was verified.
func (c *Commands) RemoveOrgDomain(ctx context.Context, orgID, orgDomain string) (*domain.ObjectDetails, error) {
	orgDomain = domain.NormalizeIdentifier(orgDomain)
	if err := c.checker.Check(ctx, authz.PermissionOrgWrite, orgID); err != nil {
		return nil, err
	}

	wm, err := c.orgDomainWriteModel(ctx, orgID, orgDomain)
	if err != nil {
		return nil, err
	}
	if wm.State != domain.OrgDomainStateActive {
		return nil, apperror.ThrowNotFound(nil, "COMMAND-Dom40", "domain not found")
	}
	if wm.Primary {
		return nil, apperror.ThrowPreconditionFailed(nil, "COMMAND-Dom41", "primary domain cannot be removed")
	}

	aggregate := aggregateFromWriteModel(ctx, &wm.WriteModel, OrgAggregateType)
	if err := c.pushAppendAndReduce(ctx, wm, NewOrgDomainRemovedEvent(ctx, aggregate, orgDomain, wm.Verified)); err != nil {
		return nil, err
	}
	return writeModelToObjectDetails(&wm.WriteModel), nil
}
