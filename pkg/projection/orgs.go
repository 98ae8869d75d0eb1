package projection

import (
	"context"
	"database/sql"

	"github.com/identra/identra/pkg/command"
	"github.com/identra/identra/pkg/domain"
	"github.com/identra/identra/pkg/eventstore"
)

const (
	createOrgsTableStmt = `CREATE TABLE IF NOT EXISTS projections_orgs (
		instance_id TEXT NOT NULL,
		org_id TEXT NOT NULL,
		name TEXT NOT NULL,
		state INTEGER NOT NULL,
		primary_domain TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL,
		changed_at INTEGER NOT NULL,
		sequence INTEGER NOT NULL,
		PRIMARY KEY (instance_id, org_id)
	)`

	createOrgDomainsTableStmt = `CREATE TABLE IF NOT EXISTS projections_org_domains (
		instance_id TEXT NOT NULL,
		org_id TEXT NOT NULL,
		domain TEXT NOT NULL,
		verified INTEGER NOT NULL DEFAULT 0,
		is_primary INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (instance_id, org_id, domain)
	)`

	upsertOrgStmt = `INSERT INTO projections_orgs
			(instance_id, org_id, name, state, created_at, changed_at, sequence)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (instance_id, org_id) DO UPDATE SET
			name = excluded.name,
			changed_at = excluded.changed_at,
			sequence = excluded.sequence`

	updateOrgStateStmt = `UPDATE projections_orgs
		SET state = ?, changed_at = ?, sequence = ?
		WHERE instance_id = ? AND org_id = ?`

	updateOrgNameStmt = `UPDATE projections_orgs
		SET name = ?, changed_at = ?, sequence = ?
		WHERE instance_id = ? AND org_id = ?`

	deleteOrgStmt = `DELETE FROM projections_orgs
		WHERE instance_id = ? AND org_id = ?`

	upsertOrgDomainStmt = `INSERT INTO projections_org_domains
			(instance_id, org_id, domain)
		VALUES (?, ?, ?)
		ON CONFLICT (instance_id, org_id, domain) DO NOTHING`

	verifyOrgDomainStmt = `UPDATE projections_org_domains
		SET verified = 1
		WHERE instance_id = ? AND org_id = ? AND domain = ?`

	setPrimaryOrgDomainStmt = `UPDATE projections_org_domains
		SET is_primary = CASE WHEN domain = ? THEN 1 ELSE 0 END
		WHERE instance_id = ? AND org_id = ?`

	setOrgPrimaryDomainStmt = `UPDATE projections_orgs
		SET primary_domain = ?, changed_at = ?, sequence = ?
		WHERE instance_id = ? AND org_id = ?`

	deleteOrgDomainStmt = `DELETE FROM projections_org_domains
		WHERE instance_id = ? AND org_id = ? AND domain = ?`

	deleteOrgDomainsStmt = `DELETE FROM projections_org_domains
		WHERE instance_id = ? AND org_id = ?`
)

// OrgProjection maintains one row per org plus its domains.
type OrgProjection struct{}

func NewOrgProjection() *OrgProjection { return &OrgProjection{} }

func (*OrgProjection) Name() string { return "orgs" }

func (*OrgProjection) Init(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, createOrgsTableStmt); err != nil {
		return err
	}
	_, err := db.ExecContext(ctx, createOrgDomainsTableStmt)
	return err
}

func (*OrgProjection) Reducers() map[eventstore.AggregateType][]eventstore.EventType {
	return map[eventstore.AggregateType][]eventstore.EventType{
		command.OrgAggregateType: {
			command.OrgAddedType,
			command.OrgChangedType,
			command.OrgDeactivatedType,
			command.OrgReactivatedType,
			command.OrgRemovedType,
			command.OrgDomainAddedType,
			command.OrgDomainVerifiedType,
			command.OrgDomainPrimarySetType,
			command.OrgDomainRemovedType,
		},
		command.InstanceAggregateType: {
			command.InstanceRemovedType,
		},
	}
}

func (p *OrgProjection) Reduce(ctx context.Context, tx *sql.Tx, event eventstore.Event) error {
	aggregate := event.Aggregate()
	changedAt := event.CreatedAt().UnixNano()

	switch e := event.(type) {
	case *command.OrgAddedEvent:
		_, err := tx.ExecContext(ctx, upsertOrgStmt,
			aggregate.InstanceID, aggregate.ID, e.Name, domain.OrgStateActive,
			changedAt, changedAt, event.Sequence())
		return err
	case *command.OrgChangedEvent:
		_, err := tx.ExecContext(ctx, updateOrgNameStmt,
			e.Name, changedAt, event.Sequence(), aggregate.InstanceID, aggregate.ID)
		return err
	case *command.OrgDeactivatedEvent:
		_, err := tx.ExecContext(ctx, updateOrgStateStmt,
			domain.OrgStateInactive, changedAt, event.Sequence(), aggregate.InstanceID, aggregate.ID)
		return err
	case *command.OrgReactivatedEvent:
		_, err := tx.ExecContext(ctx, updateOrgStateStmt,
			domain.OrgStateActive, changedAt, event.Sequence(), aggregate.InstanceID, aggregate.ID)
		return err
	case *command.OrgRemovedEvent:
		if _, err := tx.ExecContext(ctx, deleteOrgDomainsStmt, aggregate.InstanceID, aggregate.ID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, deleteOrgStmt, aggregate.InstanceID, aggregate.ID)
		return err
	case *command.OrgDomainAddedEvent:
		_, err := tx.ExecContext(ctx, upsertOrgDomainStmt,
			aggregate.InstanceID, aggregate.ID, e.Domain)
		return err
	case *command.OrgDomainVerifiedEvent:
		_, err := tx.ExecContext(ctx, verifyOrgDomainStmt,
			aggregate.InstanceID, aggregate.ID, e.Domain)
		return err
	case *command.OrgDomainPrimarySetEvent:
		if _, err := tx.ExecContext(ctx, setPrimaryOrgDomainStmt,
			e.Domain, aggregate.InstanceID, aggregate.ID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, setOrgPrimaryDomainStmt,
			e.Domain, changedAt, event.Sequence(), aggregate.InstanceID, aggregate.ID)
		return err
	case *command.OrgDomainRemovedEvent:
		_, err := tx.ExecContext(ctx, deleteOrgDomainStmt,
			aggregate.InstanceID, aggregate.ID, e.Domain)
		return err
	}
	return nil
}

func (*OrgProjection) CleanupInstance(ctx context.Context, tx *sql.Tx, instanceID string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM projections_org_domains WHERE instance_id = ?`, instanceID); err != nil {
		return err
	}
	_, err := tx.ExecContext(ctx, `DELETE FROM projections_orgs WHERE instance_id = ?`, instanceID)
	return err
}

func (*OrgProjection) Reset(ctx context.Context, tx *sql.Tx) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM projections_org_domains`); err != nil {
		return err
	}
	_, err := tx.ExecContext(ctx, `DELETE FROM projections_orgs`)
	return err
}
