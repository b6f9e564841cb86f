package auth

// SessionState is the life-cycle state of the session manager
type SessionState string

const (
	// StateUninitialized is the state before Bootstrap runs
	StateUninitialized SessionState = "uninitialized"
	// StateResolving covers the session fetch and the role lookup
	StateResolving SessionState = "resolving"
	// StateAuthenticated means a session is held and its role resolved
	StateAuthenticated SessionState = "authenticated"
	// StateUnauthenticated means no session is held
	StateUnauthenticated SessionState = "unauthenticated"
)

// Loading reports if consumers should treat the state as in progress
func (s SessionState) Loading() bool {
	return s == StateResolving
}

// SessionTransitionHook observes every applied transition
type SessionTransitionHook func(from, to SessionState)

// SessionStateMachineOption customizes state machine construction.
type SessionStateMachineOption func(*SessionStateMachine)

// WithSessionTransitionHook adds a hook executed after each transition.
func WithSessionTransitionHook(h SessionTransitionHook) SessionStateMachineOption {
	return func(sm *SessionStateMachine) {
		if h != nil {
			sm.hooks = append(sm.hooks, h)
		}
	}
}

// SessionStateMachine guards the session life-cycle transition graph:
//
//	UNINITIALIZED -> RESOLVING -> {AUTHENTICATED, UNAUTHENTICATED}
//
// looping back to RESOLVING on every auth event. A null session event may
// short circuit any state into UNAUTHENTICATED. It holds no lock, callers
// serialize access.
type SessionStateMachine struct {
	current     SessionState
	transitions map[SessionState]map[SessionState]struct{}
	hooks       []SessionTransitionHook
}

// NewSessionStateMachine returns a machine in StateUninitialized
func NewSessionStateMachine(opts ...SessionStateMachineOption) *SessionStateMachine {
	sm := &SessionStateMachine{
		current: StateUninitialized,
		transitions: map[SessionState]map[SessionState]struct{}{
			StateUninitialized: {
				StateResolving:       {},
				StateUnauthenticated: {},
			},
			StateResolving: {
				StateAuthenticated:   {},
				StateUnauthenticated: {},
			},
			StateAuthenticated: {
				StateResolving:       {},
				StateUnauthenticated: {},
			},
			StateUnauthenticated: {
				StateResolving: {},
			},
		},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(sm)
		}
	}

	return sm
}

// Current returns the current state
func (sm *SessionStateMachine) Current() SessionState {
	return sm.current
}

// CanTransition checks the transition table; staying put is always allowed.
func (sm *SessionStateMachine) CanTransition(to SessionState) bool {
	if sm.current == to {
		return true
	}
	if allowed, ok := sm.transitions[sm.current]; ok {
		_, exists := allowed[to]
		return exists
	}
	return false
}

// Transition moves to the target state, returning the previous one.
func (sm *SessionStateMachine) Transition(to SessionState) (SessionState, error) {
	from := sm.current
	if to == "" {
		return from, ErrInvalidSessionTransition.Clone().WithMetadata(map[string]any{
			"reason": "target state is empty",
		})
	}

	if from == to {
		return from, nil
	}

	if !sm.CanTransition(to) {
		return from, ErrInvalidSessionTransition.Clone().WithMetadata(map[string]any{
			"from": from,
			"to":   to,
		})
	}

	sm.current = to
	for _, hook := range sm.hooks {
		hook(from, to)
	}

	return from, nil
}
