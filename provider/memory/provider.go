package memory

import (
	"context"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	auth "github.com/sandunudayakantha/saloon-auth"
	"golang.org/x/crypto/bcrypt"
)

const (
	TextCodeInvalidCredentials = "invalid_credentials"
	TextCodeUserExists         = "user_already_exists"
	TextCodeEmailNotConfirmed  = "email_not_confirmed"
	TextCodeNoSession          = "session_not_found"
	TextCodeSessionExpired     = "session_expired"
	TextCodeBadToken           = "bad_jwt"
)

// ErrInvalidCredentials is returned for unknown emails and wrong passwords
var ErrInvalidCredentials = goerrors.New("Invalid login credentials", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidCredentials).
	WithCode(goerrors.CodeBadRequest)

// ErrUserExists is returned when signing up an email twice
var ErrUserExists = goerrors.New("User already registered", goerrors.CategoryConflict).
	WithTextCode(TextCodeUserExists).
	WithCode(goerrors.CodeConflict)

// ErrEmailNotConfirmed is returned when signing in before confirmation
var ErrEmailNotConfirmed = goerrors.New("Email not confirmed", goerrors.CategoryAuth).
	WithTextCode(TextCodeEmailNotConfirmed).
	WithCode(goerrors.CodeBadRequest)

// ErrNoSession is returned by operations that need a current session
var ErrNoSession = goerrors.New("Auth session missing", goerrors.CategoryAuth).
	WithTextCode(TextCodeNoSession).
	WithCode(goerrors.CodeUnauthorized)

// ErrSessionExpired is returned for expired access tokens
var ErrSessionExpired = goerrors.New("Session expired", goerrors.CategoryAuth).
	WithTextCode(TextCodeSessionExpired).
	WithCode(goerrors.CodeUnauthorized)

type account struct {
	principal    auth.Principal
	passwordHash string
	confirmed    bool
	redirectTo   string
}

// Option customizes a Provider
type Option func(*Provider)

// WithSigningKey sets the HMAC key used for access tokens
func WithSigningKey(key string) Option {
	return func(p *Provider) {
		if key != "" {
			p.tokens.signingKey = []byte(key)
		}
	}
}

// WithIssuer sets the token issuer
func WithIssuer(issuer string) Option {
	return func(p *Provider) {
		p.tokens.issuer = issuer
	}
}

// WithTokenTTL sets how long access tokens are valid
func WithTokenTTL(ttl time.Duration) Option {
	return func(p *Provider) {
		if ttl > 0 {
			p.tokens.ttl = ttl
		}
	}
}

// WithRequireConfirmation makes SignUp withhold the session until Confirm
func WithRequireConfirmation(required bool) Option {
	return func(p *Provider) {
		p.requireConfirmation = required
	}
}

// WithBcryptCost overrides the password hashing cost
func WithBcryptCost(cost int) Option {
	return func(p *Provider) {
		if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
			p.bcryptCost = cost
		}
	}
}

// WithClock injects a custom clock (useful for tests).
func WithClock(clock func() time.Time) Option {
	return func(p *Provider) {
		if clock != nil {
			p.now = clock
		}
	}
}

// WithLogger overrides the logger
func WithLogger(logger auth.Logger) Option {
	return func(p *Provider) {
		p.loggerProvider, p.logger = auth.ResolveLogger("provider.memory", p.loggerProvider, logger)
	}
}

// Provider is an in-process identity provider. It keeps accounts and the
// single current session in memory and notifies subscribers of every auth
// state change. Handlers are invoked synchronously, after the state change
// is applied, in subscription order.
type Provider struct {
	tokens              tokenIssuer
	requireConfirmation bool
	bcryptCost          int
	now                 func() time.Time
	logger              auth.Logger
	loggerProvider      auth.LoggerProvider

	mu          sync.Mutex
	emitMu      sync.Mutex
	accounts    map[string]*account
	session     *auth.Session
	subscribers map[int]auth.AuthEventHandler
	nextSub     int
}

var _ auth.IdentityProvider = (*Provider)(nil)

// New creates an empty provider
func New(opts ...Option) *Provider {
	loggerProvider, logger := auth.ResolveLogger("provider.memory", nil, nil)
	p := &Provider{
		tokens: tokenIssuer{
			signingKey: []byte(uuid.NewString()),
			issuer:     "saloon-auth/memory",
			ttl:        time.Hour,
		},
		bcryptCost:     bcrypt.DefaultCost,
		now:            time.Now,
		logger:         logger,
		loggerProvider: loggerProvider,
		accounts:       map[string]*account{},
		subscribers:    map[int]auth.AuthEventHandler{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}

	return p
}

// Register seeds a confirmed account
func (p *Provider) Register(email, password string, metadata map[string]any) (*auth.Principal, error) {
	return p.createAccount(email, password, metadata, true, "")
}

func (p *Provider) createAccount(email, password string, metadata map[string]any, confirmed bool, redirectTo string) (*auth.Principal, error) {
	email = auth.NormalizeEmail(email)
	hash, err := hashPassword(password, p.bcryptCost)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.accounts[email]; exists {
		return nil, ErrUserExists
	}

	acc := &account{
		principal: auth.Principal{
			ID:       uuid.NewString(),
			Email:    email,
			Metadata: copyMetadata(metadata),
		},
		passwordHash: hash,
		confirmed:    confirmed,
		redirectTo:   redirectTo,
	}
	p.accounts[email] = acc

	principal := acc.principal
	return &principal, nil
}

// GetSession returns the current session, nil when signed out or expired
func (p *Provider) GetSession(ctx context.Context) (*auth.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.session == nil || p.session.Expired(p.now()) {
		return nil, nil
	}
	return cloneSession(p.session), nil
}

// SignInWithPassword verifies credentials and emits SIGNED_IN
func (p *Provider) SignInWithPassword(ctx context.Context, email, password string) (*auth.Credentials, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	email = auth.NormalizeEmail(email)

	p.mu.Lock()
	acc, ok := p.accounts[email]
	p.mu.Unlock()
	if !ok {
		return nil, ErrInvalidCredentials
	}

	if err := comparePasswordAndHash(password, acc.passwordHash); err != nil {
		return nil, err
	}

	if !acc.confirmed {
		return nil, ErrEmailNotConfirmed
	}

	session, err := p.startSession(acc.principal)
	if err != nil {
		return nil, err
	}

	p.emit(auth.EventSignedIn, session)

	principal := session.User
	return &auth.Credentials{User: &principal, Session: cloneSession(session)}, nil
}

// SignUp creates an account. With confirmation required the returned
// credentials carry no session, otherwise the user is signed in.
func (p *Provider) SignUp(ctx context.Context, email, password string, opts auth.SignUpOptions) (*auth.Credentials, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	principal, err := p.createAccount(email, password, opts.Metadata, !p.requireConfirmation, opts.EmailRedirectTo)
	if err != nil {
		return nil, err
	}

	if p.requireConfirmation {
		p.logger.Info("confirmation pending", "email", principal.Email, "redirect_to", opts.EmailRedirectTo)
		return &auth.Credentials{User: principal}, nil
	}

	session, err := p.startSession(*principal)
	if err != nil {
		return nil, err
	}

	p.emit(auth.EventSignedIn, session)

	return &auth.Credentials{User: principal, Session: cloneSession(session)}, nil
}

// Confirm marks a pending account as confirmed and returns its redirect
// target.
func (p *Provider) Confirm(email string) (string, error) {
	email = auth.NormalizeEmail(email)

	p.mu.Lock()
	defer p.mu.Unlock()

	acc, ok := p.accounts[email]
	if !ok {
		return "", ErrInvalidCredentials
	}
	acc.confirmed = true
	return acc.redirectTo, nil
}

// SignOut drops the current session and emits SIGNED_OUT
func (p *Provider) SignOut(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p.mu.Lock()
	p.session = nil
	p.mu.Unlock()

	p.emit(auth.EventSignedOut, nil)
	return nil
}

// Refresh rotates the current session tokens and emits TOKEN_REFRESHED
func (p *Provider) Refresh(ctx context.Context) (*auth.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	current := p.session
	p.mu.Unlock()
	if current == nil {
		return nil, ErrNoSession
	}

	session, err := p.rotate(current.ID, current.User)
	if err != nil {
		return nil, err
	}

	p.emit(auth.EventTokenRefreshed, session)
	return cloneSession(session), nil
}

// UpdateMetadata merges metadata into the signed in principal and emits
// USER_UPDATED
func (p *Provider) UpdateMetadata(ctx context.Context, metadata map[string]any) (*auth.Principal, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	current := p.session
	if current == nil {
		p.mu.Unlock()
		return nil, ErrNoSession
	}

	acc, ok := p.accounts[current.User.NormalizedEmail()]
	if !ok {
		p.mu.Unlock()
		return nil, ErrNoSession
	}
	if acc.principal.Metadata == nil {
		acc.principal.Metadata = map[string]any{}
	}
	for k, v := range metadata {
		acc.principal.Metadata[k] = v
	}
	principal := acc.principal
	principal.Metadata = copyMetadata(acc.principal.Metadata)
	sessionID := current.ID
	p.mu.Unlock()

	session, err := p.rotate(sessionID, principal)
	if err != nil {
		return nil, err
	}

	p.emit(auth.EventUserUpdated, session)
	return &principal, nil
}

// ValidateAccessToken parses a token issued by this provider
func (p *Provider) ValidateAccessToken(token string) (*SessionClaims, error) {
	return p.tokens.parse(token, p.now())
}

// Subscribe registers handler and immediately delivers INITIAL_SESSION
// with the current state.
func (p *Provider) Subscribe(handler auth.AuthEventHandler) auth.Unsubscribe {
	if handler == nil {
		return func() {}
	}

	p.mu.Lock()
	id := p.nextSub
	p.nextSub++
	p.subscribers[id] = handler
	var session *auth.Session
	if p.session != nil && !p.session.Expired(p.now()) {
		session = cloneSession(p.session)
	}
	p.mu.Unlock()

	handler(auth.AuthEvent{Kind: auth.EventInitialSession, Session: session, At: p.now()})

	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			delete(p.subscribers, id)
			p.mu.Unlock()
		})
	}
}

// SubscriberCount returns the number of registered handlers
func (p *Provider) SubscriberCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.subscribers)
}

func (p *Provider) startSession(principal auth.Principal) (*auth.Session, error) {
	return p.rotate(uuid.NewString(), principal)
}

func (p *Provider) rotate(sessionID string, principal auth.Principal) (*auth.Session, error) {
	session, err := p.tokens.issue(principal, sessionID, p.now())
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.session = session
	p.mu.Unlock()

	return session, nil
}

func (p *Provider) emit(kind auth.EventKind, session *auth.Session) {
	p.emitMu.Lock()
	defer p.emitMu.Unlock()

	p.mu.Lock()
	handlers := make([]auth.AuthEventHandler, 0, len(p.subscribers))
	for i := 0; i < p.nextSub; i++ {
		if h, ok := p.subscribers[i]; ok {
			handlers = append(handlers, h)
		}
	}
	p.mu.Unlock()

	p.logger.Debug("emitting auth event", "kind", kind, "subscribers", len(handlers))

	for _, h := range handlers {
		h(auth.AuthEvent{Kind: kind, Session: cloneSession(session), At: p.now()})
	}
}

func cloneSession(s *auth.Session) *auth.Session {
	if s == nil {
		return nil
	}
	out := *s
	out.User.Metadata = copyMetadata(s.User.Metadata)
	return &out
}

func copyMetadata(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
