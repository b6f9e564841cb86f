package auth

import (
	"context"
	"time"
)

// ProvisionResult describes what Ensure did for a principal
type ProvisionResult struct {
	Record  *TeamMember
	Created bool
	Linked  bool
}

// ProvisionerOption customizes an IdentityProvisioner
type ProvisionerOption func(*IdentityProvisioner)

// WithProvisionerLogger overrides the logger
func WithProvisionerLogger(logger Logger) ProvisionerOption {
	return func(p *IdentityProvisioner) {
		p.provider, p.logger = ResolveLogger("auth.provisioner", p.provider, logger)
	}
}

// WithProvisionerLoggerProvider overrides the logger provider
func WithProvisionerLoggerProvider(provider LoggerProvider) ProvisionerOption {
	return func(p *IdentityProvisioner) {
		p.provider, p.logger = ResolveLogger("auth.provisioner", provider, nil)
	}
}

// WithProvisionerDefaultRole sets the role given to newly created records
func WithProvisionerDefaultRole(role Role) ProvisionerOption {
	return func(p *IdentityProvisioner) {
		if parsed, ok := ParseRole(role); ok {
			p.defaultRole = parsed
		}
	}
}

// WithProvisionerActivitySink sets the sink notified on create and link
func WithProvisionerActivitySink(sink ActivitySink) ProvisionerOption {
	return func(p *IdentityProvisioner) {
		p.activitySink = normalizeActivitySink(sink)
	}
}

// IdentityProvisioner makes sure every authenticated principal has exactly
// one team member record, linking seeded records or creating new ones.
type IdentityProvisioner struct {
	store        TeamMemberStore
	defaultRole  Role
	logger       Logger
	provider     LoggerProvider
	activitySink ActivitySink
	now          func() time.Time
}

// NewIdentityProvisioner creates a provisioner backed by store
func NewIdentityProvisioner(store TeamMemberStore, opts ...ProvisionerOption) *IdentityProvisioner {
	provider, logger := ResolveLogger("auth.provisioner", nil, nil)
	p := &IdentityProvisioner{
		store:        store,
		defaultRole:  RoleStaff,
		logger:       logger,
		provider:     provider,
		activitySink: noopActivitySink{},
		now:          time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}

	return p
}

// Ensure is idempotent and best effort: failures are logged and never
// returned, provisioning must not fail a login.
func (p *IdentityProvisioner) Ensure(ctx context.Context, principal Principal) ProvisionResult {
	email := principal.NormalizedEmail()
	if principal.ID == "" || email == "" {
		p.logger.Warn("skipping provisioning for incomplete principal", "principal_id", principal.ID)
		return ProvisionResult{}
	}

	existing, err := p.store.FindByEmailOrAuthUser(ctx, email, principal.ID)
	switch {
	case err == nil && existing != nil:
		return p.link(ctx, existing, principal)
	case err != nil && IsNotFound(err):
		p.logger.Debug("no team member found, creating one", "email", email)
	case err != nil:
		// treated as absent, a duplicate insert fails on its own
		p.logger.Error("team member lookup failed, attempting creation", "email", email, "error", err)
	}

	return p.create(ctx, principal)
}

func (p *IdentityProvisioner) link(ctx context.Context, record *TeamMember, principal Principal) ProvisionResult {
	if record.IsLinked() {
		if !record.LinkedTo(principal.ID) {
			p.logger.Warn("team member linked to a different principal",
				"record_id", record.ID.String(),
				"principal_id", principal.ID,
			)
		}
		return ProvisionResult{Record: record}
	}

	updated, err := p.store.LinkAuthUser(ctx, record, principal.ID)
	if err != nil {
		p.logger.Error("failed to link team member", "record_id", record.ID.String(), "error", err)
		return ProvisionResult{Record: record}
	}
	if updated == nil {
		updated = record
	}

	recordActivity(ctx, p.activitySink, p.logger, p.now, ActivityEvent{
		EventType:   ActivityEventIdentityLinked,
		PrincipalID: principal.ID,
		Email:       updated.Email,
		Role:        updated.Role,
	})

	return ProvisionResult{Record: updated, Linked: true}
}

func (p *IdentityProvisioner) create(ctx context.Context, principal Principal) ProvisionResult {
	record := NewTeamMemberFromPrincipal(principal, p.defaultRole)

	created, err := p.store.Create(ctx, record)
	if err != nil {
		p.logger.Error("failed to create team member", "email", record.Email, "error", err)
		return ProvisionResult{}
	}
	if created == nil {
		created = record
	}

	recordActivity(ctx, p.activitySink, p.logger, p.now, ActivityEvent{
		EventType:   ActivityEventIdentityCreated,
		PrincipalID: principal.ID,
		Email:       created.Email,
		Role:        created.Role,
	})

	return ProvisionResult{Record: created, Created: true}
}
