package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("missing", "testdata")
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, "file::memory:?cache=shared", cfg.Database.DSN)
	assert.Equal(t, 5*time.Second, cfg.Database.PingTimeout)
	assert.True(t, cfg.GetProvisionOnBootstrap())
	assert.True(t, cfg.GetProvisionOnSignIn())
	assert.Equal(t, "staff", cfg.GetDefaultRole())
	assert.Equal(t, 6, cfg.GetMinPasswordLength())
	assert.Equal(t, 16, cfg.GetEventBuffer())
	assert.Equal(t, time.Hour, cfg.Provider.TokenTTL)
}

func TestLoad_File(t *testing.T) {
	cfg, err := Load("test", "testdata")
	require.NoError(t, err)

	assert.Equal(t, "test", cfg.Env)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Log.Pretty)
	assert.Equal(t, "file:saloon_test?mode=memory&cache=shared", cfg.Database.DSN)
	assert.True(t, cfg.GetProvisionOnBootstrap())
	assert.False(t, cfg.GetProvisionOnSignIn())
	assert.Equal(t, "admin", cfg.GetDefaultRole())
	assert.Equal(t, "https://app.example.com/welcome", cfg.GetEmailRedirectTo())
	assert.Equal(t, 8, cfg.GetMinPasswordLength())
	assert.Equal(t, "test-key", cfg.Provider.SigningKey)
	assert.Equal(t, 15*time.Minute, cfg.Provider.TokenTTL)
	assert.True(t, cfg.Provider.RequireConfirmation)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SALOON_SESSION_MIN_PASSWORD_LENGTH", "12")
	t.Setenv("SALOON_SESSION_PROVISION_ON_BOOTSTRAP", "false")
	t.Setenv("SALOON_PROVIDER_TOKEN_TTL", "30s")
	t.Setenv("SALOON_LOG_LEVEL", "warn")

	cfg, err := Load("test", "testdata")
	require.NoError(t, err)

	assert.Equal(t, 12, cfg.GetMinPasswordLength())
	assert.False(t, cfg.GetProvisionOnBootstrap())
	assert.Equal(t, 30*time.Second, cfg.Provider.TokenTTL)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoad_UnknownRoleFallsBackToStaff(t *testing.T) {
	t.Setenv("SALOON_SESSION_DEFAULT_ROLE", "janitor")

	cfg, err := Load("test", "testdata")
	require.NoError(t, err)
	assert.Equal(t, "staff", cfg.GetDefaultRole())
}

func TestCanonicalizeEnvKey(t *testing.T) {
	existing := map[string]any{
		"log": map[string]any{"level": "info"},
		"session": map[string]any{
			"provisionOnSignIn": true,
			"eventBuffer":       16,
		},
	}

	tests := []struct {
		raw  string
		want string
	}{
		{"LOG_LEVEL", "log.level"},
		{"SESSION_PROVISION_ON_SIGN_IN", "session.provisionOnSignIn"},
		{"SESSION_EVENT_BUFFER", "session.eventBuffer"},
		{"UNKNOWN_KEY", "unknown.key"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, canonicalizeEnvKey(tt.raw, existing))
		})
	}
}
