package activitymap

import (
	"strings"
	"time"

	auth "github.com/sandunudayakantha/saloon-auth"
)

const (
	MetadataKeyEmail     = "email"
	MetadataKeyRole      = "role"
	MetadataKeyFromState = "from_state"
	MetadataKeyToState   = "to_state"
)

const (
	ObjectTypeSession    = "session"
	ObjectTypeTeamMember = "team_member"
)

const defaultActorID = "anonymous"

// Record is the audit shape of an activity event. Channel is the event
// family ("session", "identity", "role").
type Record struct {
	ActorID    string         `json:"actor_id"`
	Verb       string         `json:"verb"`
	Channel    string         `json:"channel"`
	ObjectType string         `json:"object_type"`
	ObjectID   string         `json:"object_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// LogArgs flattens the record into slog style key/value pairs
func (r Record) LogArgs() []any {
	args := []any{
		"verb", r.Verb,
		"channel", r.Channel,
		"actor_id", r.ActorID,
		"object_type", r.ObjectType,
	}
	if r.ObjectID != "" {
		args = append(args, "object_id", r.ObjectID)
	}
	if len(r.Metadata) > 0 {
		args = append(args, "metadata", r.Metadata)
	}
	return args
}

// Option customizes Normalize
type Option func(*options)

type options struct {
	actorFallback string
}

// WithActorFallback sets the actor recorded for events without a principal
func WithActorFallback(actorID string) Option {
	return func(o *options) {
		if actorID = strings.TrimSpace(actorID); actorID != "" {
			o.actorFallback = actorID
		}
	}
}

// Normalize maps an activity event onto a Record. Session events are
// about the session, identity and role events are about the team member
// record keyed by email.
func Normalize(event auth.ActivityEvent, opts ...Option) Record {
	o := options{actorFallback: defaultActorID}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	actorID := strings.TrimSpace(event.PrincipalID)
	if actorID == "" {
		actorID = o.actorFallback
	}

	occurredAt := event.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	verb := string(event.EventType)
	channel, _, _ := strings.Cut(verb, ".")

	record := Record{
		ActorID:    actorID,
		Verb:       verb,
		Channel:    channel,
		ObjectType: ObjectTypeTeamMember,
		ObjectID:   auth.NormalizeEmail(event.Email),
		Metadata:   metadata(event),
		OccurredAt: occurredAt,
	}

	if channel == "session" {
		record.ObjectType = ObjectTypeSession
		record.ObjectID = strings.TrimSpace(event.PrincipalID)
	}

	return record
}

// existing metadata keys win over derived ones
func metadata(event auth.ActivityEvent) map[string]any {
	var out map[string]any
	if len(event.Metadata) > 0 {
		out = make(map[string]any, len(event.Metadata)+4)
		for key, value := range event.Metadata {
			out[key] = value
		}
	}

	set := func(key, value string) {
		if value == "" {
			return
		}
		if out == nil {
			out = map[string]any{}
		}
		if _, exists := out[key]; !exists {
			out[key] = value
		}
	}

	set(MetadataKeyEmail, auth.NormalizeEmail(event.Email))
	set(MetadataKeyRole, event.Role)
	set(MetadataKeyFromState, string(event.FromState))
	set(MetadataKeyToState, string(event.ToState))

	return out
}
