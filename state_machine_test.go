package auth_test

import (
	"testing"

	goerrors "github.com/goliatone/go-errors"
	auth "github.com/sandunudayakantha/saloon-auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionStateMachineHappyPath(t *testing.T) {
	var seen [][2]auth.SessionState
	sm := auth.NewSessionStateMachine(auth.WithSessionTransitionHook(func(from, to auth.SessionState) {
		seen = append(seen, [2]auth.SessionState{from, to})
	}))

	assert.Equal(t, auth.StateUninitialized, sm.Current())

	for _, to := range []auth.SessionState{
		auth.StateResolving,
		auth.StateAuthenticated,
		auth.StateResolving,
		auth.StateUnauthenticated,
		auth.StateResolving,
	} {
		_, err := sm.Transition(to)
		require.NoError(t, err)
	}

	assert.Equal(t, auth.StateResolving, sm.Current())
	require.Len(t, seen, 5)
	assert.Equal(t, [2]auth.SessionState{auth.StateUninitialized, auth.StateResolving}, seen[0])
}

func TestSessionStateMachineRejectsInvalidTransition(t *testing.T) {
	sm := auth.NewSessionStateMachine()

	from, err := sm.Transition(auth.StateAuthenticated)
	require.Error(t, err)
	assert.Equal(t, auth.StateUninitialized, from)
	assert.Equal(t, auth.StateUninitialized, sm.Current())

	var richErr *goerrors.Error
	require.True(t, goerrors.As(err, &richErr))
	assert.Equal(t, auth.TextCodeInvalidTransition, richErr.TextCode)

	_, err = sm.Transition("")
	assert.Error(t, err)
}

func TestSessionStateMachineSelfTransition(t *testing.T) {
	sm := auth.NewSessionStateMachine()
	_, err := sm.Transition(auth.StateUnauthenticated)
	require.NoError(t, err)

	assert.True(t, sm.CanTransition(auth.StateUnauthenticated))
	assert.False(t, sm.CanTransition(auth.StateAuthenticated))

	_, err = sm.Transition(auth.StateUnauthenticated)
	assert.NoError(t, err)
}

func TestSessionStateLoading(t *testing.T) {
	assert.True(t, auth.StateResolving.Loading())
	assert.False(t, auth.StateUninitialized.Loading())
	assert.False(t, auth.StateAuthenticated.Loading())
	assert.False(t, auth.StateUnauthenticated.Loading())
}
