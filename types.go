package auth

import (
	"context"
	"strings"
	"time"
)

// EventKind identifies an auth state change notification
type EventKind string

const (
	// EventInitialSession is emitted once per subscription with the current state
	EventInitialSession EventKind = "INITIAL_SESSION"
	// EventSignedIn is emitted after a successful credential sign in
	EventSignedIn EventKind = "SIGNED_IN"
	// EventSignedOut is emitted after sign out, it never carries a session
	EventSignedOut EventKind = "SIGNED_OUT"
	// EventTokenRefreshed is emitted when the provider rotates the session tokens
	EventTokenRefreshed EventKind = "TOKEN_REFRESHED"
	// EventUserUpdated is emitted when the principal attributes change
	EventUserUpdated EventKind = "USER_UPDATED"
	// EventPasswordRecovery is emitted when a recovery link is followed
	EventPasswordRecovery EventKind = "PASSWORD_RECOVERY"
)

// Principal is the signed in user as reported by the identity provider
type Principal struct {
	ID       string         `json:"id"`
	Email    string         `json:"email"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// NormalizedEmail returns the principal email trimmed and lower cased
func (p Principal) NormalizedEmail() string {
	return NormalizeEmail(p.Email)
}

// DisplayName resolves a human friendly name from metadata, falling back
// to the local part of the email address.
func (p Principal) DisplayName() string {
	for _, key := range []string{"name", "full_name", "display_name"} {
		if v, ok := p.Metadata[key].(string); ok {
			if v = strings.TrimSpace(v); v != "" {
				return v
			}
		}
	}
	return localPartName(p.NormalizedEmail())
}

// Session is the token bundle issued by the identity provider. Its
// lifecycle (expiry, refresh, persistence) is owned by the provider.
type Session struct {
	ID           string    `json:"id,omitempty"`
	AccessToken  string    `json:"access_token,omitempty"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ExpiresAt    time.Time `json:"expires_at,omitempty"`
	User         Principal `json:"user"`
}

// Expired reports if the access token is past its expiration
func (s *Session) Expired(now time.Time) bool {
	if s == nil || s.ExpiresAt.IsZero() {
		return false
	}
	return !now.Before(s.ExpiresAt)
}

// AuthEvent is a single auth state change notification
type AuthEvent struct {
	Kind    EventKind `json:"kind"`
	Session *Session  `json:"session,omitempty"`
	At      time.Time `json:"at"`
}

// HasSession reports if the event carries a session
func (e AuthEvent) HasSession() bool {
	return e.Session != nil
}

// AuthEventHandler receives auth state change notifications
type AuthEventHandler func(event AuthEvent)

// Unsubscribe detaches a previously registered AuthEventHandler
type Unsubscribe func()

// SignUpOptions are forwarded to the identity provider on sign up
type SignUpOptions struct {
	EmailRedirectTo string
	Metadata        map[string]any
}

// Credentials is the result of a credential flow. Session is nil when the
// provider requires email confirmation before issuing one.
type Credentials struct {
	User    *Principal `json:"user,omitempty"`
	Session *Session   `json:"session,omitempty"`
}

// IdentityProvider is the gateway to the remote identity service
type IdentityProvider interface {
	GetSession(ctx context.Context) (*Session, error)
	SignInWithPassword(ctx context.Context, email, password string) (*Credentials, error)
	SignUp(ctx context.Context, email, password string, opts SignUpOptions) (*Credentials, error)
	SignOut(ctx context.Context) error
	Subscribe(handler AuthEventHandler) Unsubscribe
}

// Config holds engine options
type Config interface {
	GetProvisionOnBootstrap() bool
	GetProvisionOnSignIn() bool
	GetDefaultRole() string
	GetEmailRedirectTo() string
	GetMinPasswordLength() int
	GetEventBuffer() int
}

// DefaultConfig is used when no Config is provided
type DefaultConfig struct {
	ProvisionOnBootstrap bool
	ProvisionOnSignIn    bool
	DefaultRole          string
	EmailRedirectTo      string
	MinPasswordLength    int
	EventBuffer          int
}

// NewDefaultConfig returns the baseline engine configuration
func NewDefaultConfig() DefaultConfig {
	return DefaultConfig{
		ProvisionOnBootstrap: true,
		ProvisionOnSignIn:    true,
		DefaultRole:          RoleStaff,
		MinPasswordLength:    6,
		EventBuffer:          16,
	}
}

func (c DefaultConfig) GetProvisionOnBootstrap() bool { return c.ProvisionOnBootstrap }
func (c DefaultConfig) GetProvisionOnSignIn() bool    { return c.ProvisionOnSignIn }
func (c DefaultConfig) GetDefaultRole() string        { return c.DefaultRole }
func (c DefaultConfig) GetEmailRedirectTo() string    { return c.EmailRedirectTo }
func (c DefaultConfig) GetMinPasswordLength() int     { return c.MinPasswordLength }
func (c DefaultConfig) GetEventBuffer() int           { return c.EventBuffer }

var _ Config = DefaultConfig{}
