package tenant

import (
	"context"
	"sync"

	auth "github.com/sandunudayakantha/saloon-auth"
)

// ShopStore is the record store gateway for the shops table
type ShopStore interface {
	// ListShops returns every shop ordered by creation time, newest first.
	ListShops(ctx context.Context) ([]*Shop, error)
}

// EventSource is the subscription side of the identity provider
type EventSource interface {
	Subscribe(handler auth.AuthEventHandler) auth.Unsubscribe
}

// Snapshot is the read-only view of the registry
type Snapshot struct {
	Tenants []*Shop `json:"tenants"`
	Active  *Shop   `json:"active_tenant,omitempty"`
	Loading bool    `json:"loading"`
}

// Option customizes a Registry
type Option func(*Registry)

// WithLogger overrides the logger
func WithLogger(logger auth.Logger) Option {
	return func(r *Registry) {
		r.provider, r.logger = auth.ResolveLogger("tenant.registry", r.provider, logger)
	}
}

// WithLoggerProvider overrides the logger provider
func WithLoggerProvider(provider auth.LoggerProvider) Option {
	return func(r *Registry) {
		r.provider, r.logger = auth.ResolveLogger("tenant.registry", provider, nil)
	}
}

// WithEventBuffer sets the size of the auth event queue
func WithEventBuffer(size int) Option {
	return func(r *Registry) {
		if size > 0 {
			r.buffer = size
		}
	}
}

// Registry holds the shops visible to the current session and the active
// shop selection. A sign out always clears both, and refresh results that
// were started before it are dropped.
type Registry struct {
	store    ShopStore
	logger   auth.Logger
	provider auth.LoggerProvider
	buffer   int

	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	shops      []*Shop
	active     *Shop
	loading    bool
	generation uint64
	started    bool
	closed     bool
	observers  map[int]func(Snapshot)
	nextObs    int
	publishSeq uint64

	// notifyMu serializes delivery and is never taken while holding mu
	notifyMu     sync.Mutex
	deliveredSeq uint64

	closeOnce    sync.Once
	events       chan auth.AuthEvent
	done         chan struct{}
	consumerDone chan struct{}
	unsubscribe  auth.Unsubscribe
	inflight     sync.WaitGroup
}

// NewRegistry creates a registry reading from store
func NewRegistry(store ShopStore, opts ...Option) *Registry {
	provider, logger := auth.ResolveLogger("tenant.registry", nil, nil)
	ctx, cancel := context.WithCancel(context.Background())

	r := &Registry{
		store:        store,
		logger:       logger,
		provider:     provider,
		buffer:       16,
		ctx:          ctx,
		cancel:       cancel,
		observers:    map[int]func(Snapshot){},
		done:         make(chan struct{}),
		consumerDone: make(chan struct{}),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}

	return r
}

// Start subscribes to auth events and drains them in a consumer goroutine
func (r *Registry) Start(source EventSource) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return auth.ErrManagerClosed
	}
	if r.started {
		r.mu.Unlock()
		return nil
	}
	r.started = true
	r.events = make(chan auth.AuthEvent, r.buffer)
	r.mu.Unlock()

	go r.consume()

	unsubscribe := source.Subscribe(r.enqueue)
	r.mu.Lock()
	r.unsubscribe = unsubscribe
	closed := r.closed
	r.mu.Unlock()
	if closed && unsubscribe != nil {
		unsubscribe()
	}

	return nil
}

// HandleEvent reacts to auth events: a sign in refreshes the shop list in
// the background, a sign out clears it synchronously. Token refreshes and
// user updates do not imply the list changed and are ignored.
func (r *Registry) HandleEvent(event auth.AuthEvent) {
	switch event.Kind {
	case auth.EventSignedIn:
		r.refreshAsync()
	case auth.EventInitialSession:
		if event.HasSession() {
			r.refreshAsync()
		} else {
			r.Clear()
		}
	case auth.EventSignedOut:
		r.Clear()
	default:
		r.logger.Debug("ignoring auth event", "kind", event.Kind)
	}
}

func (r *Registry) refreshAsync() {
	r.inflight.Add(1)
	go func() {
		defer r.inflight.Done()
		r.Refresh(r.ctx)
	}()
}

// Refresh fetches the shop list and reconciles the active selection. A
// failed fetch degrades to an empty list.
func (r *Registry) Refresh(ctx context.Context) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.generation++
	gen := r.generation
	r.loading = true
	r.publishLocked()

	shops, err := r.store.ListShops(ctx)

	r.mu.Lock()
	if r.closed || gen != r.generation {
		r.mu.Unlock()
		r.logger.Debug("discarding superseded shop refresh", "generation", gen)
		return
	}

	if err != nil {
		r.logger.Error("failed to fetch shops", "error", err)
		shops = nil
	}

	r.shops = shops
	r.active = Reconcile(r.active, shops)
	r.loading = false
	r.publishLocked()
}

// Clear drops the shop list and selection without touching the store
func (r *Registry) Clear() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.generation++
	r.shops = nil
	r.active = nil
	r.loading = false
	r.publishLocked()
}

// SetActiveTenant overrides the selection. It holds until the next
// Refresh reconciles it against the latest list.
func (r *Registry) SetActiveTenant(shop *Shop) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.active = shop
	r.publishLocked()
}

// SetActiveTenantByID selects the listed shop with id, reporting if found
func (r *Registry) SetActiveTenantByID(id int64) bool {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return false
	}
	for _, shop := range r.shops {
		if shop != nil && shop.ID == id {
			r.active = shop
			r.publishLocked()
			return true
		}
	}
	r.mu.Unlock()
	return false
}

// ActiveTenantID returns the id of the active shop
func (r *Registry) ActiveTenantID() (int64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active == nil {
		return 0, false
	}
	return r.active.ID, true
}

// Snapshot returns the current read-only view
func (r *Registry) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

// OnChange registers an observer called after applied changes, one at a
// time and in publish order. Snapshots overtaken before delivery are
// skipped. Observers may read the registry but must not mutate it.
func (r *Registry) OnChange(fn func(Snapshot)) (cancel func()) {
	if fn == nil {
		return func() {}
	}

	r.mu.Lock()
	id := r.nextObs
	r.nextObs++
	r.observers[id] = fn
	r.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			delete(r.observers, id)
			r.mu.Unlock()
		})
	}
}

// Wait blocks until background refreshes finished
func (r *Registry) Wait() {
	r.inflight.Wait()
}

// Close unsubscribes exactly once and turns pending refreshes into no-ops
func (r *Registry) Close() error {
	r.closeOnce.Do(func() {
		r.mu.Lock()
		r.closed = true
		r.generation++
		unsubscribe := r.unsubscribe
		started := r.started
		r.mu.Unlock()

		if unsubscribe != nil {
			unsubscribe()
		}
		close(r.done)
		r.cancel()

		if started {
			<-r.consumerDone
		}
	})
	return nil
}

func (r *Registry) enqueue(event auth.AuthEvent) {
	select {
	case <-r.done:
		return
	default:
	}

	select {
	case r.events <- event:
	case <-r.done:
	}
}

func (r *Registry) consume() {
	defer close(r.consumerDone)
	for {
		select {
		case event := <-r.events:
			r.HandleEvent(event)
		case <-r.done:
			return
		}
	}
}

func (r *Registry) snapshotLocked() Snapshot {
	shops := make([]*Shop, len(r.shops))
	copy(shops, r.shops)
	return Snapshot{
		Tenants: shops,
		Active:  r.active,
		Loading: r.loading,
	}
}

// publishLocked releases mu, then notifies observers in order
func (r *Registry) publishLocked() {
	r.publishSeq++
	seq := r.publishSeq
	snap := r.snapshotLocked()
	observers := make([]func(Snapshot), 0, len(r.observers))
	for i := 0; i < r.nextObs; i++ {
		if fn, ok := r.observers[i]; ok {
			observers = append(observers, fn)
		}
	}
	r.mu.Unlock()

	r.notifyMu.Lock()
	defer r.notifyMu.Unlock()
	if seq <= r.deliveredSeq {
		return
	}
	r.deliveredSeq = seq

	for _, fn := range observers {
		fn(snap)
	}
}
