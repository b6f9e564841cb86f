package auth

import (
	"context"
	"time"
)

// ActivityEventType enumerates supported activity categories.
type ActivityEventType string

const (
	ActivityEventSessionBootstrapped ActivityEventType = "session.bootstrapped"
	ActivityEventSessionSignedIn     ActivityEventType = "session.signed_in"
	ActivityEventSessionSignedOut    ActivityEventType = "session.signed_out"
	ActivityEventIdentityCreated     ActivityEventType = "identity.created"
	ActivityEventIdentityLinked      ActivityEventType = "identity.linked"
	ActivityEventRoleResolved        ActivityEventType = "role.resolved"
)

// ActivityEvent captures audit-friendly information about a session change.
type ActivityEvent struct {
	EventType   ActivityEventType
	PrincipalID string
	Email       string
	Role        Role
	FromState   SessionState
	ToState     SessionState
	Metadata    map[string]any
	OccurredAt  time.Time
}

// ActivitySink consumes activity events for auditing/telemetry purposes.
type ActivitySink interface {
	Record(ctx context.Context, event ActivityEvent) error
}

// ActivitySinkFunc adapts a function to the ActivitySink interface.
type ActivitySinkFunc func(ctx context.Context, event ActivityEvent) error

// Record implements ActivitySink.
func (f ActivitySinkFunc) Record(ctx context.Context, event ActivityEvent) error {
	if f == nil {
		return nil
	}
	return f(ctx, event)
}

type noopActivitySink struct{}

func (noopActivitySink) Record(context.Context, ActivityEvent) error {
	return nil
}

func normalizeActivitySink(s ActivitySink) ActivitySink {
	if s == nil {
		return noopActivitySink{}
	}
	return s
}

func recordActivity(ctx context.Context, sink ActivitySink, logger Logger, now func() time.Time, event ActivityEvent) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = now()
	}
	if err := normalizeActivitySink(sink).Record(ctx, event); err != nil {
		logger.Warn("activity sink error", "event", event.EventType, "error", err)
	}
}
