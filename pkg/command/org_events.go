package command

import (
	"context"

	"github.com/identra/identra/pkg/domain"
	"github.com/identra/identra/pkg/eventstore"
)

const OrgAggregateType eventstore.AggregateType = "org"

const (
	OrgAddedType            eventstore.EventType = "org.added"
	OrgChangedType          eventstore.EventType = "org.changed"
	OrgDeactivatedType      eventstore.EventType = "org.deactivated"
	OrgReactivatedType      eventstore.EventType = "org.reactivated"
	OrgRemovedType          eventstore.EventType = "org.removed"
	OrgDomainAddedType      eventstore.EventType = "org.domain.added"
	OrgDomainVerifiedType   eventstore.EventType = "org.domain.verified"
	OrgDomainPrimarySetType eventstore.EventType = "org.domain.primary.set"
	OrgDomainRemovedType    eventstore.EventType = "org.domain.removed"
	OrgMemberAddedType      eventstore.EventType = "org.member.added"
)

// Unique-constraint index names of the org aggregate.
const (
	UniqueOrgName   = "org_names"
	UniqueOrgDomain = "org_domains"
)

func init() {
	eventstore.RegisterEventMapper(OrgAddedType, eventstore.GenericEventMapper[OrgAddedEvent])
	eventstore.RegisterEventMapper(OrgChangedType, eventstore.GenericEventMapper[OrgChangedEvent])
	eventstore.RegisterEventMapper(OrgDeactivatedType, eventstore.GenericEventMapper[OrgDeactivatedEvent])
	eventstore.RegisterEventMapper(OrgReactivatedType, eventstore.GenericEventMapper[OrgReactivatedEvent])
	eventstore.RegisterEventMapper(OrgRemovedType, eventstore.GenericEventMapper[OrgRemovedEvent])
	eventstore.RegisterEventMapper(OrgDomainAddedType, eventstore.GenericEventMapper[OrgDomainAddedEvent])
	eventstore.RegisterEventMapper(OrgDomainVerifiedType, eventstore.GenericEventMapper[OrgDomainVerifiedEvent])
	eventstore.RegisterEventMapper(OrgDomainPrimarySetType, eventstore.GenericEventMapper[OrgDomainPrimarySetEvent])
	eventstore.RegisterEventMapper(OrgDomainRemovedType, eventstore.GenericEventMapper[OrgDomainRemovedEvent])
	eventstore.RegisterEventMapper(OrgMemberAddedType, eventstore.GenericEventMapper[OrgMemberAddedEvent])
}

type OrgAddedEvent struct {
	eventstore.BaseEvent

	Name string `json:"name"`
}

func NewOrgAddedEvent(ctx context.Context, aggregate *eventstore.Aggregate, name string) *OrgAddedEvent {
	return &OrgAddedEvent{
		BaseEvent: *eventstore.NewBaseEvent(ctx, aggregate, OrgAddedType),
		Name:      name,
	}
}

func (e *OrgAddedEvent) Payload() any { return e }

func (e *OrgAddedEvent) UniqueConstraints() []*eventstore.UniqueConstraint {
	return []*eventstore.UniqueConstraint{
		eventstore.NewAddUniqueConstraint(UniqueOrgName, domain.NormalizeIdentifier(e.Name), "COMMAND-Org11"),
	}
}

type OrgChangedEvent struct {
	eventstore.BaseEvent

	Name string `json:"name"`

	oldName string
}

func NewOrgChangedEvent(ctx context.Context, aggregate *eventstore.Aggregate, oldName, newName string) *OrgChangedEvent {
	return &OrgChangedEvent{
		BaseEvent: *eventstore.NewBaseEvent(ctx, aggregate, OrgChangedType),
		Name:      newName,
		oldName:   oldName,
	}
}

func (e *OrgChangedEvent) Payload() any { return e }

func (e *OrgChangedEvent) UniqueConstraints() []*eventstore.UniqueConstraint {
	if e.oldName == "" {
		return nil
	}
	return []*eventstore.UniqueConstraint{
		eventstore.NewRemoveUniqueConstraint(UniqueOrgName, domain.NormalizeIdentifier(e.oldName)),
		eventstore.NewAddUniqueConstraint(UniqueOrgName, domain.NormalizeIdentifier(e.Name), "COMMAND-Org11"),
	}
}

type OrgDeactivatedEvent struct {
	eventstore.BaseEvent
}

func NewOrgDeactivatedEvent(ctx context.Context, aggregate *eventstore.Aggregate) *OrgDeactivatedEvent {
	return &OrgDeactivatedEvent{BaseEvent: *eventstore.NewBaseEvent(ctx, aggregate, OrgDeactivatedType)}
}

type OrgReactivatedEvent struct {
	eventstore.BaseEvent
}

func NewOrgReactivatedEvent(ctx context.Context, aggregate *eventstore.Aggregate) *OrgReactivatedEvent {
	return &OrgReactivatedEvent{BaseEvent: *eventstore.NewBaseEvent(ctx, aggregate, OrgReactivatedType)}
}

type OrgRemovedEvent struct {
	eventstore.BaseEvent

	name            string
	verifiedDomains []string
}

// NewOrgRemovedEvent releases the org's name and every verified domain in
// the same push.
func NewOrgRemovedEvent(ctx context.Context, aggregate *eventstore.Aggregate, name string, verifiedDomains []string) *OrgRemovedEvent {
	return &OrgRemovedEvent{
		BaseEvent:       *eventstore.NewBaseEvent(ctx, aggregate, OrgRemovedType),
		name:            name,
		verifiedDomains: verifiedDomains,
	}
}

func (e *OrgRemovedEvent) UniqueConstraints() []*eventstore.UniqueConstraint {
	constraints := []*eventstore.UniqueConstraint{
		eventstore.NewRemoveUniqueConstraint(UniqueOrgName, domain.NormalizeIdentifier(e.name)),
	}
	for _, orgDomain := range e.verifiedDomains {
		constraints = append(constraints,
			eventstore.NewRemoveUniqueConstraint(UniqueOrgDomain, domain.NormalizeIdentifier(orgDomain)))
	}
	return constraints
}

type OrgDomainAddedEvent struct {
	eventstore.BaseEvent

	Domain string `json:"domain"`
}

func NewOrgDomainAddedEvent(ctx context.Context, aggregate *eventstore.Aggregate, orgDomain string) *OrgDomainAddedEvent {
	return &OrgDomainAddedEvent{
		BaseEvent: *eventstore.NewBaseEvent(ctx, aggregate, OrgDomainAddedType),
		Domain:    orgDomain,
	}
}

func (e *OrgDomainAddedEvent) Payload() any { return e }

type OrgDomainVerifiedEvent struct {
	eventstore.BaseEvent

	Domain string `json:"domain"`
}

func NewOrgDomainVerifiedEvent(ctx context.Context, aggregate *eventstore.Aggregate, orgDomain string) *OrgDomainVerifiedEvent {
	return &OrgDomainVerifiedEvent{
		BaseEvent: *eventstore.NewBaseEvent(ctx, aggregate, OrgDomainVerifiedType),
		Domain:    orgDomain,
	}
}

func (e *OrgDomainVerifiedEvent) Payload() any { return e }

func (e *OrgDomainVerifiedEvent) UniqueConstraints() []*eventstore.UniqueConstraint {
	return []*eventstore.UniqueConstraint{
		eventstore.NewAddUniqueConstraint(UniqueOrgDomain, domain.NormalizeIdentifier(e.Domain), "COMMAND-Dom22"),
	}
}

type OrgDomainPrimarySetEvent struct {
	eventstore.BaseEvent

	Domain string `json:"domain"`
}

func NewOrgDomainPrimarySetEvent(ctx context.Context, aggregate *eventstore.Aggregate, orgDomain string) *OrgDomainPrimarySetEvent {
	return &OrgDomainPrimarySetEvent{
		BaseEvent: *eventstore.NewBaseEvent(ctx, aggregate, OrgDomainPrimarySetType),
		Domain:    orgDomain,
	}
}

func (e *OrgDomainPrimarySetEvent) Payload() any { return e }

type OrgDomainRemovedEvent struct {
	eventstore.BaseEvent

	Domain string `json:"domain"`

	wasVerified bool
}

func NewOrgDomainRemovedEvent(ctx context.Context, aggregate *eventstore.Aggregate, orgDomain string, wasVerified bool) *OrgDomainRemovedEvent {
	return &OrgDomainRemovedEvent{
		BaseEvent:   *eventstore.NewBaseEvent(ctx, aggregate, OrgDomainRemovedType),
		Domain:      orgDomain,
		wasVerified: wasVerified,
	}
}

func (e *OrgDomainRemovedEvent) Payload() any { return e }

// UniqueConstraints releases the domain only when it was verified: an
// unverified domain never claimed the constraint.
func (e *OrgDomainRemovedEvent) UniqueConstraints() []*eventstore.UniqueConstraint {
	if !e.wasVerified {
		return nil
	}
	return []*eventstore.UniqueConstraint{
		eventstore.NewRemoveUniqueConstraint(UniqueOrgDomain, domain.NormalizeIdentifier(e.Domain)),
	}
}

type OrgMemberAddedEvent struct {
	eventstore.BaseEvent

	UserID string   `json:"userId"`
	Roles  []string `json:"roles"`
}

func NewOrgMemberAddedEvent(ctx context.Context, aggregate *eventstore.Aggregate, userID string, roles []string) *OrgMemberAddedEvent {
	return &OrgMemberAddedEvent{
		BaseEvent: *eventstore.NewBaseEvent(ctx, aggregate, OrgMemberAddedType),
		UserID:    userID,
		Roles:     roles,
	}
}

func (e *OrgMemberAddedEvent) Payload() any { return e }
