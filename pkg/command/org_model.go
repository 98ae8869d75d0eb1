package command

import (
	"context"

	"github.com/identra/identra/pkg/domain"
	"github.com/identra/identra/pkg/eventstore"
)

// OrgWriteModel folds the org aggregate's lifecycle and name.
type OrgWriteModel struct {
	eventstore.WriteModel

	Name  string
	State domain.OrgState

	// VerifiedDomains accumulates for constraint release on removal.
	VerifiedDomains []string
}

func NewOrgWriteModel(orgID string) *OrgWriteModel {
	return &OrgWriteModel{
		WriteModel: eventstore.WriteModel{
			AggregateID:   orgID,
			ResourceOwner: orgID,
		},
	}
}

func (wm *OrgWriteModel) Reduce() error {
	for _, event := range wm.Events {
		switch e := event.(type) {
		case *OrgAddedEvent:
			wm.Name = e.Name
			wm.State = domain.OrgStateActive
		case *OrgChangedEvent:
			wm.Name = e.Name
		case *OrgDeactivatedEvent:
			wm.State = domain.OrgStateInactive
		case *OrgReactivatedEvent:
			wm.State = domain.OrgStateActive
		case *OrgRemovedEvent:
			wm.State = domain.OrgStateRemoved
		case *OrgDomainVerifiedEvent:
			wm.VerifiedDomains = append(wm.VerifiedDomains, e.Domain)
		case *OrgDomainRemovedEvent:
			wm.VerifiedDomains = removeString(wm.VerifiedDomains, e.Domain)
		}
	}
	return wm.WriteModel.Reduce()
}

func (c *Commands) orgWriteModelByID(ctx context.Context, orgID string) (*OrgWriteModel, error) {
	wm := NewOrgWriteModel(orgID)
	if err := c.loadWriteModel(ctx, wm, OrgAggregateType, orgID, ""); err != nil {
		return nil, err
	}
	return wm, nil
}

// OrgDomainWriteModel folds a single domain of an org, sub-filtered by the
// domain value: events for other domains advance the sequence but not the
// state.
type OrgDomainWriteModel struct {
	eventstore.WriteModel

	Domain   string
	State    domain.OrgDomainState
	Verified bool
	Primary  bool
}

func NewOrgDomainWriteModel(orgID, orgDomain string) *OrgDomainWriteModel {
	return &OrgDomainWriteModel{
		WriteModel: eventstore.WriteModel{
			AggregateID:   orgID,
			ResourceOwner: orgID,
		},
		Domain: orgDomain,
	}
}

func (wm *OrgDomainWriteModel) Reduce() error {
	for _, event := range wm.Events {
		switch e := event.(type) {
		case *OrgDomainAddedEvent:
			if e.Domain != wm.Domain {
				continue
			}
			wm.State = domain.OrgDomainStateActive
		case *OrgDomainVerifiedEvent:
			if e.Domain != wm.Domain {
				continue
			}
			wm.Verified = true
		case *OrgDomainPrimarySetEvent:
			// The previous primary loses the flag implicitly.
			wm.Primary = e.Domain == wm.Domain
		case *OrgDomainRemovedEvent:
			if e.Domain != wm.Domain {
				continue
			}
			wm.State = domain.OrgDomainStateRemoved
			wm.Verified = false
			wm.Primary = false
		}
	}
	return wm.WriteModel.Reduce()
}

func (c *Commands) orgDomainWriteModel(ctx context.Context, orgID, orgDomain string) (*OrgDomainWriteModel, error) {
	wm := NewOrgDomainWriteModel(orgID, orgDomain)
	if err := c.loadWriteModel(ctx, wm, OrgAggregateType, orgID, orgID); err != nil {
		return nil, err
	}
	return wm, nil
}

func removeString(values []string, value string) []string {
	for i, v := range values {
		if v == value {
			return append(values[:i], values[i+1:]...)
		}
	}
	return values
}
