package auth

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Provisioner ensures a local identity record exists for a principal
type Provisioner interface {
	Ensure(ctx context.Context, principal Principal) ProvisionResult
}

// RoleLookup resolves the role for an email, RoleNone when absent
type RoleLookup interface {
	Resolve(ctx context.Context, email string) Role
}

// Snapshot is the read-only view of the session manager handed to consumers
type Snapshot struct {
	Session    *Session     `json:"session,omitempty"`
	User       *Principal   `json:"user,omitempty"`
	Role       Role         `json:"role"`
	Loading    bool         `json:"loading"`
	State      SessionState `json:"state"`
	Generation uint64       `json:"generation"`
}

// Authenticated reports if the snapshot holds a resolved session
func (s Snapshot) Authenticated() bool {
	return s.State == StateAuthenticated && s.Session != nil
}

// HasRole checks the resolved role against a minimum tier
func (s Snapshot) HasRole(minRole Role) bool {
	return s.Authenticated() && RoleIsAtLeast(s.Role, minRole)
}

// SessionManagerOption customizes a SessionManager
type SessionManagerOption func(*SessionManager)

// WithSessionLogger overrides the logger
func WithSessionLogger(logger Logger) SessionManagerOption {
	return func(m *SessionManager) {
		m.loggerProvider, m.logger = ResolveLogger("auth.session_manager", m.loggerProvider, logger)
	}
}

// WithSessionLoggerProvider overrides the logger provider
func WithSessionLoggerProvider(provider LoggerProvider) SessionManagerOption {
	return func(m *SessionManager) {
		m.loggerProvider, m.logger = ResolveLogger("auth.session_manager", provider, nil)
	}
}

// WithSessionConfig sets the engine configuration
func WithSessionConfig(cfg Config) SessionManagerOption {
	return func(m *SessionManager) {
		if cfg != nil {
			m.config = cfg
		}
	}
}

// WithSessionProvisioner enables identity provisioning. Without one,
// provisioning is disabled regardless of configuration.
func WithSessionProvisioner(p Provisioner) SessionManagerOption {
	return func(m *SessionManager) {
		m.provisioner = p
	}
}

// WithSessionActivitySink sets the ActivitySink used to publish session events.
func WithSessionActivitySink(sink ActivitySink) SessionManagerOption {
	return func(m *SessionManager) {
		m.activitySink = normalizeActivitySink(sink)
	}
}

// WithSessionClock injects a custom clock (useful for tests).
func WithSessionClock(clock func() time.Time) SessionManagerOption {
	return func(m *SessionManager) {
		if clock != nil {
			m.now = clock
		}
	}
}

// SessionManager owns the session life-cycle. Auth events are queued by
// the provider subscription and drained by a single consumer goroutine.
// Role resolution runs asynchronously and every task is tagged with the
// generation it was started for; results from superseded generations are
// dropped.
type SessionManager struct {
	provider       IdentityProvider
	resolver       RoleLookup
	provisioner    Provisioner
	config         Config
	logger         Logger
	loggerProvider LoggerProvider
	activitySink   ActivitySink
	now            func() time.Time

	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	machine    *SessionStateMachine
	session    *Session
	role       Role
	generation uint64
	started    bool
	closed     bool
	observers  map[int]func(Snapshot)
	nextObs    int
	publishSeq uint64

	// notifyMu serializes delivery and is never taken while holding mu
	notifyMu     sync.Mutex
	deliveredSeq uint64

	bootstrapOnce sync.Once
	closeOnce     sync.Once
	events        chan AuthEvent
	done          chan struct{}
	consumerDone  chan struct{}
	unsubscribe   Unsubscribe
	inflight      sync.WaitGroup
}

// NewSessionManager creates a manager for provider. Roles are read through
// resolver.
func NewSessionManager(provider IdentityProvider, resolver RoleLookup, opts ...SessionManagerOption) *SessionManager {
	loggerProvider, logger := ResolveLogger("auth.session_manager", nil, nil)
	ctx, cancel := context.WithCancel(context.Background())

	m := &SessionManager{
		provider:       provider,
		resolver:       resolver,
		config:         NewDefaultConfig(),
		logger:         logger,
		loggerProvider: loggerProvider,
		activitySink:   noopActivitySink{},
		now:            time.Now,
		ctx:            ctx,
		cancel:         cancel,
		machine:        NewSessionStateMachine(),
		observers:      map[int]func(Snapshot){},
		done:           make(chan struct{}),
		consumerDone:   make(chan struct{}),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}

	return m
}

// Start subscribes to provider events, starts the consumer and bootstraps
// the current session. It returns once bootstrap completed.
func (m *SessionManager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrManagerClosed
	}
	if m.started {
		m.mu.Unlock()
		return nil
	}
	m.started = true

	size := m.config.GetEventBuffer()
	if size < 1 {
		size = 1
	}
	m.events = make(chan AuthEvent, size)
	m.mu.Unlock()

	go m.consume()

	unsubscribe := m.provider.Subscribe(m.enqueue)
	m.mu.Lock()
	m.unsubscribe = unsubscribe
	closed := m.closed
	m.mu.Unlock()
	if closed && unsubscribe != nil {
		unsubscribe()
	}

	m.Bootstrap(ctx)
	return nil
}

// Bootstrap fetches the current session once. Without a session the
// manager settles in StateUnauthenticated, otherwise the principal is
// provisioned (when enabled) and its role resolved.
func (m *SessionManager) Bootstrap(ctx context.Context) {
	m.bootstrapOnce.Do(func() {
		m.bootstrap(ctx)
	})
}

func (m *SessionManager) bootstrap(ctx context.Context) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	gen := m.bumpLocked()
	m.transitionLocked(StateResolving)
	m.publishLocked()

	session, err := m.provider.GetSession(ctx)
	if err != nil {
		m.logger.Error("failed to fetch current session", "error", err)
		session = nil
	}

	m.mu.Lock()
	if !m.currentLocked(gen) {
		m.mu.Unlock()
		m.logger.Debug("bootstrap superseded", "generation", gen)
		return
	}

	if session == nil || session.Expired(m.now()) {
		m.session = nil
		m.role = RoleNone
		m.transitionLocked(StateUnauthenticated)
		m.publishLocked()
		m.record(ActivityEvent{EventType: ActivityEventSessionBootstrapped, ToState: StateUnauthenticated})
		return
	}

	m.session = session
	m.publishLocked()

	provision := m.provisioner != nil && m.config.GetProvisionOnBootstrap()
	m.inflight.Add(1)
	m.resolve(gen, session, provision, ActivityEventSessionBootstrapped)
}

// HandleEvent applies a single auth event. Events with a session adopt it
// immediately and resolve its role in the background. Events without a
// session clear the state synchronously.
func (m *SessionManager) HandleEvent(event AuthEvent) {
	if event.Kind == EventInitialSession {
		// initial state is covered by Bootstrap
		m.logger.Debug("ignoring initial session event")
		return
	}

	if !event.HasSession() {
		m.clear(event.Kind)
		return
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	gen := m.bumpLocked()
	session := event.Session
	m.session = session
	m.transitionLocked(StateResolving)
	m.publishLocked()

	provision := event.Kind == EventSignedIn &&
		m.provisioner != nil &&
		m.config.GetProvisionOnSignIn()

	var activity ActivityEventType
	if event.Kind == EventSignedIn {
		activity = ActivityEventSessionSignedIn
	}

	m.inflight.Add(1)
	go m.resolve(gen, session, provision, activity)
}

func (m *SessionManager) clear(kind EventKind) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.bumpLocked()
	principal := m.session
	m.session = nil
	m.role = RoleNone
	from := m.transitionLocked(StateUnauthenticated)
	m.publishLocked()

	if kind == EventSignedOut && principal != nil {
		m.record(ActivityEvent{
			EventType:   ActivityEventSessionSignedOut,
			PrincipalID: principal.User.ID,
			Email:       principal.User.NormalizedEmail(),
			FromState:   from,
			ToState:     StateUnauthenticated,
		})
	}
}

func (m *SessionManager) resolve(gen uint64, session *Session, provision bool, activity ActivityEventType) {
	defer m.inflight.Done()

	role := RoleNone
	func() {
		defer func() {
			if r := recover(); r != nil {
				m.logger.Error("session resolution panicked", "principal_id", session.User.ID, "panic", fmt.Sprint(r))
			}
		}()

		if provision {
			result := m.provisioner.Ensure(m.ctx, session.User)
			m.logger.Debug("provisioned identity",
				"principal_id", session.User.ID,
				"created", result.Created,
				"linked", result.Linked,
			)
		}

		if !m.isCurrent(gen) {
			return
		}

		if m.resolver != nil {
			role = m.resolver.Resolve(m.ctx, session.User.Email)
		}
	}()

	m.mu.Lock()
	if !m.currentLocked(gen) || m.session == nil || m.session.User.ID != session.User.ID {
		m.mu.Unlock()
		m.logger.Debug("discarding superseded role resolution",
			"principal_id", session.User.ID,
			"generation", gen,
		)
		return
	}

	m.role = role
	from := m.transitionLocked(StateAuthenticated)
	m.publishLocked()

	m.record(ActivityEvent{
		EventType:   ActivityEventRoleResolved,
		PrincipalID: session.User.ID,
		Email:       session.User.NormalizedEmail(),
		Role:        role,
		FromState:   from,
		ToState:     StateAuthenticated,
	})
	if activity != "" {
		m.record(ActivityEvent{
			EventType:   activity,
			PrincipalID: session.User.ID,
			Email:       session.User.NormalizedEmail(),
			Role:        role,
			FromState:   from,
			ToState:     StateAuthenticated,
		})
	}
}

// SignIn validates and forwards credentials to the identity provider. It
// never mutates state, the resulting SIGNED_IN event does. A non nil
// error is always an *ErrorResult.
func (m *SessionManager) SignIn(ctx context.Context, email, password string) (*Credentials, error) {
	if m.isClosed() {
		return nil, NewErrorResult(ErrManagerClosed)
	}

	email = NormalizeEmail(email)
	if err := ValidateCredentials(email, password, m.config.GetMinPasswordLength()); err != nil {
		return nil, NewErrorResult(err)
	}

	creds, err := m.provider.SignInWithPassword(ctx, email, password)
	if err != nil {
		m.logger.Info("sign in failed", "email", email, "error", err)
		return nil, NewErrorResult(err)
	}

	return creds, nil
}

// SignUp validates and forwards a registration to the identity provider.
// The returned credentials carry no session when email confirmation is
// pending. A non nil error is always an *ErrorResult.
func (m *SessionManager) SignUp(ctx context.Context, email, password string) (*Credentials, error) {
	if m.isClosed() {
		return nil, NewErrorResult(ErrManagerClosed)
	}

	email = NormalizeEmail(email)
	if err := ValidateCredentials(email, password, m.config.GetMinPasswordLength()); err != nil {
		return nil, NewErrorResult(err)
	}

	creds, err := m.provider.SignUp(ctx, email, password, SignUpOptions{
		EmailRedirectTo: m.config.GetEmailRedirectTo(),
		Metadata: map[string]any{
			"email": email,
		},
	})
	if err != nil {
		m.logger.Info("sign up failed", "email", email, "error", err)
		return nil, NewErrorResult(err)
	}

	return creds, nil
}

// SignOut asks the provider to end the session; the SIGNED_OUT event
// clears local state.
func (m *SessionManager) SignOut(ctx context.Context) error {
	if m.isClosed() {
		return NewErrorResult(ErrManagerClosed)
	}

	if err := m.provider.SignOut(ctx); err != nil {
		m.logger.Error("sign out failed", "error", err)
		return NewErrorResult(err)
	}
	return nil
}

// Snapshot returns the current read-only view
func (m *SessionManager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// State returns the current life-cycle state
func (m *SessionManager) State() SessionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.machine.Current()
}

// OnChange registers an observer called after applied changes, one at a
// time and in publish order. A snapshot that was overtaken by a newer one
// before delivery is skipped. Observers may read the manager but must not
// mutate it or block.
func (m *SessionManager) OnChange(fn func(Snapshot)) (cancel func()) {
	if fn == nil {
		return func() {}
	}

	m.mu.Lock()
	id := m.nextObs
	m.nextObs++
	m.observers[id] = fn
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.observers, id)
			m.mu.Unlock()
		})
	}
}

// Close unsubscribes from the provider exactly once and turns in-flight
// work into no-ops.
func (m *SessionManager) Close() error {
	m.closeOnce.Do(func() {
		m.mu.Lock()
		m.closed = true
		m.generation++
		unsubscribe := m.unsubscribe
		started := m.started
		m.mu.Unlock()

		if unsubscribe != nil {
			unsubscribe()
		}
		close(m.done)
		m.cancel()

		if started {
			<-m.consumerDone
		}
	})
	return nil
}

// Wait blocks until in-flight resolutions finished. Meant for tests and
// orderly shutdown.
func (m *SessionManager) Wait() {
	m.inflight.Wait()
}

func (m *SessionManager) enqueue(event AuthEvent) {
	select {
	case <-m.done:
		return
	default:
	}

	select {
	case m.events <- event:
	case <-m.done:
	}
}

func (m *SessionManager) consume() {
	defer close(m.consumerDone)
	for {
		select {
		case event := <-m.events:
			m.HandleEvent(event)
		case <-m.done:
			return
		}
	}
}

func (m *SessionManager) record(event ActivityEvent) {
	recordActivity(m.ctx, m.activitySink, m.logger, m.now, event)
}

func (m *SessionManager) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *SessionManager) isCurrent(gen uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.currentLocked(gen)
}

func (m *SessionManager) currentLocked(gen uint64) bool {
	return !m.closed && m.generation == gen
}

func (m *SessionManager) bumpLocked() uint64 {
	m.generation++
	return m.generation
}

func (m *SessionManager) transitionLocked(to SessionState) SessionState {
	from, err := m.machine.Transition(to)
	if err != nil {
		m.logger.Error("rejected session transition", "from", from, "to", to, "error", err)
	}
	return from
}

func (m *SessionManager) snapshotLocked() Snapshot {
	snap := Snapshot{
		Session:    m.session,
		Role:       m.role,
		State:      m.machine.Current(),
		Loading:    m.machine.Current().Loading(),
		Generation: m.generation,
	}
	if m.session != nil {
		user := m.session.User
		snap.User = &user
	}
	return snap
}

// publishLocked must be called with mu held. It releases mu before
// delivering, so observers are free to call Snapshot.
func (m *SessionManager) publishLocked() {
	m.publishSeq++
	seq := m.publishSeq
	snap := m.snapshotLocked()
	observers := make([]func(Snapshot), 0, len(m.observers))
	for i := 0; i < m.nextObs; i++ {
		if fn, ok := m.observers[i]; ok {
			observers = append(observers, fn)
		}
	}
	m.mu.Unlock()

	m.notifyMu.Lock()
	defer m.notifyMu.Unlock()
	if seq <= m.deliveredSeq {
		return
	}
	m.deliveredSeq = seq

	for _, fn := range observers {
		fn(snap)
	}
}
