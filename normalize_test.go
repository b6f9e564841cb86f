package auth_test

import (
	"testing"
	"time"

	auth "github.com/sandunudayakantha/saloon-auth"
	"github.com/stretchr/testify/assert"
)

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "jane@example.com", auth.NormalizeEmail("  Jane@Example.COM "))
	assert.Equal(t, "", auth.NormalizeEmail("   "))
}

func TestPrincipalDisplayName(t *testing.T) {
	tests := []struct {
		name      string
		principal auth.Principal
		want      string
	}{
		{"email local part", auth.Principal{Email: "jane@example.com"}, "Jane"},
		{"metadata name", auth.Principal{Email: "jane@example.com", Metadata: map[string]any{"name": "Jane Doe"}}, "Jane Doe"},
		{"full name", auth.Principal{Email: "jd@example.com", Metadata: map[string]any{"full_name": " J. Doe "}}, "J. Doe"},
		{"blank metadata", auth.Principal{Email: "jane@example.com", Metadata: map[string]any{"name": " "}}, "Jane"},
		{"no email", auth.Principal{}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.principal.DisplayName())
		})
	}
}

func TestSessionExpired(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	var nilSession *auth.Session
	assert.False(t, nilSession.Expired(now))
	assert.False(t, (&auth.Session{}).Expired(now))
	assert.True(t, (&auth.Session{ExpiresAt: now}).Expired(now))
	assert.False(t, (&auth.Session{ExpiresAt: now.Add(time.Minute)}).Expired(now))
}

func TestNewTeamMemberFromPrincipal(t *testing.T) {
	record := auth.NewTeamMemberFromPrincipal(auth.Principal{ID: "u1", Email: "Jane@Example.com"}, auth.RoleNone)

	assert.Equal(t, "jane@example.com", record.Email)
	assert.Equal(t, auth.RoleStaff, record.Role)
	assert.Equal(t, "Jane", record.Name)
	assert.True(t, record.LinkedTo("u1"))
	assert.False(t, record.LinkedTo("u2"))
}
