package auth_test

import (
	"context"
	"errors"
	"testing"

	auth "github.com/sandunudayakantha/saloon-auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestRoleResolverResolve(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the record role", func(t *testing.T) {
		store := &MockTeamMemberStore{}
		store.On("FindByEmail", mock.Anything, "owner@example.com").
			Return(&auth.TeamMember{Email: "owner@example.com", Role: auth.RoleOwner}, nil).Once()

		r := auth.NewRoleResolver(store, auth.WithRoleResolverLogger(auth.NopLogger{}))

		assert.Equal(t, auth.RoleOwner, r.Resolve(ctx, " Owner@Example.com "))
		store.AssertExpectations(t)
	})

	t.Run("missing record is not an error", func(t *testing.T) {
		store := &MockTeamMemberStore{}
		logger := &captureLogger{}
		store.On("FindByEmail", mock.Anything, "ghost@example.com").
			Return(nil, auth.ErrIdentityNotFound).Once()

		r := auth.NewRoleResolver(store, auth.WithRoleResolverLogger(logger))

		assert.Equal(t, auth.RoleNone, r.Resolve(ctx, "ghost@example.com"))
		assert.Zero(t, logger.count("error"))
		assert.True(t, logger.has("debug", "no team member for email"))
	})

	t.Run("store failure degrades to none", func(t *testing.T) {
		store := &MockTeamMemberStore{}
		logger := &captureLogger{}
		store.On("FindByEmail", mock.Anything, "jane@example.com").
			Return(nil, errors.New("connection refused")).Once()

		r := auth.NewRoleResolver(store, auth.WithRoleResolverLogger(logger))

		assert.Equal(t, auth.RoleNone, r.Resolve(ctx, "jane@example.com"))
		assert.Equal(t, 1, logger.count("error"))
	})

	t.Run("unknown role is passed through", func(t *testing.T) {
		store := &MockTeamMemberStore{}
		logger := &captureLogger{}
		store.On("FindByEmail", mock.Anything, "jane@example.com").
			Return(&auth.TeamMember{Email: "jane@example.com", Role: "receptionist"}, nil).Once()

		r := auth.NewRoleResolver(store, auth.WithRoleResolverLogger(logger))

		assert.Equal(t, auth.Role("receptionist"), r.Resolve(ctx, "jane@example.com"))
		assert.True(t, logger.has("warn", "team member has an unknown role"))
	})

	t.Run("empty email skips the store", func(t *testing.T) {
		store := &MockTeamMemberStore{}
		r := auth.NewRoleResolver(store, auth.WithRoleResolverLogger(auth.NopLogger{}))

		assert.Equal(t, auth.RoleNone, r.Resolve(ctx, "   "))
		store.AssertNotCalled(t, "FindByEmail", mock.Anything, mock.Anything)
	})
}

func TestRoleIsAtLeast(t *testing.T) {
	assert.True(t, auth.RoleIsAtLeast(auth.RoleOwner, auth.RoleAdmin))
	assert.True(t, auth.RoleIsAtLeast(auth.RoleStaff, auth.RoleStaff))
	assert.False(t, auth.RoleIsAtLeast(auth.RoleStaff, auth.RoleAdmin))
	assert.False(t, auth.RoleIsAtLeast(auth.RoleNone, auth.RoleStaff))
	assert.False(t, auth.RoleIsAtLeast("receptionist", auth.RoleStaff))

	role, ok := auth.ParseRole("admin")
	assert.True(t, ok)
	assert.Equal(t, auth.RoleAdmin, role)

	_, ok = auth.ParseRole("janitor")
	assert.False(t, ok)
	assert.Equal(t, []auth.Role{auth.RoleStaff, auth.RoleAdmin, auth.RoleOwner}, auth.GetAllRoles())
}
