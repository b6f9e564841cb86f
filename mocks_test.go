package auth_test

import (
	"context"
	"fmt"
	"sync"

	auth "github.com/sandunudayakantha/saloon-auth"
	"github.com/stretchr/testify/mock"
)

// MockIdentityProvider implements auth.IdentityProvider. Subscriptions are
// recorded so tests can push events with Emit.
type MockIdentityProvider struct {
	mock.Mock

	mu           sync.Mutex
	handlers     []auth.AuthEventHandler
	unsubscribed int
}

func (m *MockIdentityProvider) GetSession(ctx context.Context) (*auth.Session, error) {
	args := m.Called(ctx)
	if s := args.Get(0); s != nil {
		return s.(*auth.Session), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockIdentityProvider) SignInWithPassword(ctx context.Context, email, password string) (*auth.Credentials, error) {
	args := m.Called(ctx, email, password)
	if c := args.Get(0); c != nil {
		return c.(*auth.Credentials), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockIdentityProvider) SignUp(ctx context.Context, email, password string, opts auth.SignUpOptions) (*auth.Credentials, error) {
	args := m.Called(ctx, email, password, opts)
	if c := args.Get(0); c != nil {
		return c.(*auth.Credentials), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockIdentityProvider) SignOut(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockIdentityProvider) Subscribe(handler auth.AuthEventHandler) auth.Unsubscribe {
	m.mu.Lock()
	m.handlers = append(m.handlers, handler)
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.unsubscribed++
		m.handlers = nil
	}
}

// Emit delivers event to every subscribed handler
func (m *MockIdentityProvider) Emit(event auth.AuthEvent) {
	m.mu.Lock()
	handlers := append([]auth.AuthEventHandler(nil), m.handlers...)
	m.mu.Unlock()

	for _, h := range handlers {
		h(event)
	}
}

func (m *MockIdentityProvider) Unsubscribed() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.unsubscribed
}

func (m *MockIdentityProvider) Subscribers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.handlers)
}

// MockTeamMemberStore implements auth.TeamMemberStore
type MockTeamMemberStore struct {
	mock.Mock
}

func (m *MockTeamMemberStore) FindByEmailOrAuthUser(ctx context.Context, email, principalID string) (*auth.TeamMember, error) {
	args := m.Called(ctx, email, principalID)
	if r := args.Get(0); r != nil {
		return r.(*auth.TeamMember), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockTeamMemberStore) FindByEmail(ctx context.Context, email string) (*auth.TeamMember, error) {
	args := m.Called(ctx, email)
	if r := args.Get(0); r != nil {
		return r.(*auth.TeamMember), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockTeamMemberStore) Create(ctx context.Context, record *auth.TeamMember) (*auth.TeamMember, error) {
	args := m.Called(ctx, record)
	if r := args.Get(0); r != nil {
		return r.(*auth.TeamMember), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockTeamMemberStore) LinkAuthUser(ctx context.Context, record *auth.TeamMember, principalID string) (*auth.TeamMember, error) {
	args := m.Called(ctx, record, principalID)
	if r := args.Get(0); r != nil {
		return r.(*auth.TeamMember), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockProvisioner implements auth.Provisioner
type MockProvisioner struct {
	mock.Mock
}

func (m *MockProvisioner) Ensure(ctx context.Context, principal auth.Principal) auth.ProvisionResult {
	args := m.Called(ctx, principal)
	if r := args.Get(0); r != nil {
		return r.(auth.ProvisionResult)
	}
	return auth.ProvisionResult{}
}

// roleLookupFunc adapts a function to auth.RoleLookup
type roleLookupFunc func(ctx context.Context, email string) auth.Role

func (f roleLookupFunc) Resolve(ctx context.Context, email string) auth.Role {
	return f(ctx, email)
}

// staticRoles resolves roles from a fixed email map
func staticRoles(roles map[string]auth.Role) auth.RoleLookup {
	return roleLookupFunc(func(_ context.Context, email string) auth.Role {
		return roles[auth.NormalizeEmail(email)]
	})
}

type logEntry struct {
	Level string
	Msg   string
	Args  []any
}

// captureLogger records every log call
type captureLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

func (l *captureLogger) Debug(msg string, args ...any) { l.add("debug", msg, args) }
func (l *captureLogger) Info(msg string, args ...any)  { l.add("info", msg, args) }
func (l *captureLogger) Warn(msg string, args ...any)  { l.add("warn", msg, args) }
func (l *captureLogger) Error(msg string, args ...any) { l.add("error", msg, args) }

func (l *captureLogger) add(level, msg string, args []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, logEntry{Level: level, Msg: msg, Args: args})
}

func (l *captureLogger) count(level string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, e := range l.entries {
		if e.Level == level {
			n++
		}
	}
	return n
}

func (l *captureLogger) has(level, msg string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.entries {
		if e.Level == level && e.Msg == msg {
			return true
		}
	}
	return false
}

// captureSink records activity events
type captureSink struct {
	mu     sync.Mutex
	events []auth.ActivityEvent
	err    error
}

func (s *captureSink) Record(_ context.Context, event auth.ActivityEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return s.err
}

func (s *captureSink) types() []auth.ActivityEventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]auth.ActivityEventType, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e.EventType)
	}
	return out
}

func newSession(id, email string) *auth.Session {
	return &auth.Session{
		ID:          "session-" + id,
		AccessToken: fmt.Sprintf("token-%s", id),
		User: auth.Principal{
			ID:    id,
			Email: email,
		},
	}
}
