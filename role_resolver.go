package auth

import "context"

// RoleResolverOption customizes a RoleResolver
type RoleResolverOption func(*RoleResolver)

// WithRoleResolverLogger overrides the logger
func WithRoleResolverLogger(logger Logger) RoleResolverOption {
	return func(r *RoleResolver) {
		r.provider, r.logger = ResolveLogger("auth.role_resolver", r.provider, logger)
	}
}

// WithRoleResolverLoggerProvider overrides the logger provider
func WithRoleResolverLoggerProvider(provider LoggerProvider) RoleResolverOption {
	return func(r *RoleResolver) {
		r.provider, r.logger = ResolveLogger("auth.role_resolver", provider, nil)
	}
}

// RoleResolver reads the role of a principal from its team member record
type RoleResolver struct {
	store    TeamMemberStore
	logger   Logger
	provider LoggerProvider
}

// NewRoleResolver creates a resolver backed by store
func NewRoleResolver(store TeamMemberStore, opts ...RoleResolverOption) *RoleResolver {
	provider, logger := ResolveLogger("auth.role_resolver", nil, nil)
	r := &RoleResolver{
		store:    store,
		logger:   logger,
		provider: provider,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}

	return r
}

// Resolve returns the role for email or RoleNone. A missing record is an
// expected outcome, every failure degrades to RoleNone.
func (r *RoleResolver) Resolve(ctx context.Context, email string) Role {
	email = NormalizeEmail(email)
	if email == "" {
		return RoleNone
	}

	record, err := r.store.FindByEmail(ctx, email)
	if err != nil {
		if IsNotFound(err) {
			r.logger.Debug("no team member for email", "email", email)
			return RoleNone
		}
		r.logger.Error("unexpected error resolving role", "email", email, "error", err)
		return RoleNone
	}

	if record == nil {
		return RoleNone
	}

	if record.Role != RoleNone && !IsKnownRole(record.Role) {
		r.logger.Warn("team member has an unknown role", "email", email, "role", record.Role)
	}

	return record.Role
}
