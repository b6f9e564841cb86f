package activitymap_test

import (
	"testing"
	"time"

	auth "github.com/sandunudayakantha/saloon-auth"
	"github.com/sandunudayakantha/saloon-auth/activitymap"
)

func TestNormalizeRoleResolved(t *testing.T) {
	t.Parallel()

	ts := time.Date(2026, 1, 10, 9, 30, 0, 0, time.UTC)
	event := auth.ActivityEvent{
		EventType:   auth.ActivityEventRoleResolved,
		PrincipalID: "u1",
		Email:       " Jane@Example.com ",
		Role:        auth.RoleStaff,
		FromState:   auth.StateResolving,
		ToState:     auth.StateAuthenticated,
		Metadata: map[string]any{
			"shop_id": 7,
		},
		OccurredAt: ts,
	}

	out := activitymap.Normalize(event)

	if out.ActorID != "u1" {
		t.Fatalf("expected actor_id u1, got %q", out.ActorID)
	}
	if out.Verb != "role.resolved" {
		t.Fatalf("expected verb role.resolved, got %q", out.Verb)
	}
	if out.Channel != "role" {
		t.Fatalf("expected channel role, got %q", out.Channel)
	}
	if out.ObjectType != activitymap.ObjectTypeTeamMember {
		t.Fatalf("expected object_type team_member, got %q", out.ObjectType)
	}
	if out.ObjectID != "jane@example.com" {
		t.Fatalf("expected object_id jane@example.com, got %q", out.ObjectID)
	}
	if !out.OccurredAt.Equal(ts) {
		t.Fatalf("expected occurred_at %v, got %v", ts, out.OccurredAt)
	}

	if out.Metadata["shop_id"] != 7 {
		t.Fatalf("expected metadata shop_id 7, got %#v", out.Metadata["shop_id"])
	}
	if out.Metadata[activitymap.MetadataKeyRole] != auth.RoleStaff {
		t.Fatalf("expected metadata role staff, got %#v", out.Metadata[activitymap.MetadataKeyRole])
	}
	if out.Metadata[activitymap.MetadataKeyFromState] != string(auth.StateResolving) {
		t.Fatalf("expected metadata from_state resolving, got %#v", out.Metadata[activitymap.MetadataKeyFromState])
	}
	if out.Metadata[activitymap.MetadataKeyToState] != string(auth.StateAuthenticated) {
		t.Fatalf("expected metadata to_state authenticated, got %#v", out.Metadata[activitymap.MetadataKeyToState])
	}

	if len(event.Metadata) != 1 {
		t.Fatalf("expected source metadata to remain unchanged, got %+v", event.Metadata)
	}
}

func TestNormalizeSessionEventTargetsSession(t *testing.T) {
	t.Parallel()

	out := activitymap.Normalize(auth.ActivityEvent{
		EventType:   auth.ActivityEventSessionSignedOut,
		PrincipalID: "u1",
		Email:       "jane@example.com",
		Metadata: map[string]any{
			activitymap.MetadataKeyEmail: "kept@example.com",
		},
	})

	if out.Channel != "session" {
		t.Fatalf("expected channel session, got %q", out.Channel)
	}
	if out.ObjectType != activitymap.ObjectTypeSession || out.ObjectID != "u1" {
		t.Fatalf("expected session object u1, got %q %q", out.ObjectType, out.ObjectID)
	}
	if out.Metadata[activitymap.MetadataKeyEmail] != "kept@example.com" {
		t.Fatalf("expected existing email preserved, got %#v", out.Metadata[activitymap.MetadataKeyEmail])
	}
	if out.OccurredAt.IsZero() {
		t.Fatalf("expected occurred_at to be set when input is zero")
	}
}

func TestNormalizeActorFallback(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		event  auth.ActivityEvent
		opts   []activitymap.Option
		expect string
	}{
		{
			name:   "uses principal id when present",
			event:  auth.ActivityEvent{PrincipalID: "u2"},
			expect: "u2",
		},
		{
			name:   "uses default fallback without a principal",
			event:  auth.ActivityEvent{EventType: auth.ActivityEventSessionBootstrapped},
			expect: "anonymous",
		},
		{
			name:   "uses configured fallback without a principal",
			event:  auth.ActivityEvent{},
			opts:   []activitymap.Option{activitymap.WithActorFallback("cli")},
			expect: "cli",
		},
		{
			name:   "ignores a blank fallback",
			event:  auth.ActivityEvent{},
			opts:   []activitymap.Option{activitymap.WithActorFallback("  ")},
			expect: "anonymous",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			out := activitymap.Normalize(tc.event, tc.opts...)
			if out.ActorID != tc.expect {
				t.Fatalf("expected actor_id %q, got %q", tc.expect, out.ActorID)
			}
		})
	}
}

func TestRecordLogArgs(t *testing.T) {
	t.Parallel()

	out := activitymap.Normalize(auth.ActivityEvent{
		EventType: auth.ActivityEventSessionBootstrapped,
	}).LogArgs()

	if len(out)%2 != 0 {
		t.Fatalf("expected key/value pairs, got %d values", len(out))
	}
	if len(out) != 8 {
		t.Fatalf("expected only the base fields without object id or metadata, got %v", out)
	}
}
