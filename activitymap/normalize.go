// Package activitymap flattens membership activity events into a shape that
// audit stores and message buses can consume without importing the core
// package types.
package activitymap

import (
	"context"
	"strings"
	"time"

	auth "github.com/goliatone/go-membership"
)

const (
	// MetadataKeyActorType stores auth.ActorRef.Type.
	MetadataKeyActorType = "actor_type"
	// MetadataKeyFromRole stores the previous role of a role change.
	MetadataKeyFromRole = "from_role"
	// MetadataKeyToRole stores the new role of a role change or registration.
	MetadataKeyToRole = "to_role"
)

const (
	defaultChannel    = "membership"
	defaultObjectType = "user"
	defaultActorID    = "anonymous"
)

// Normalized is a transport agnostic activity record.
type Normalized struct {
	ActorID    string         `json:"actor_id"`
	Verb       string         `json:"verb"`
	ObjectType string         `json:"object_type,omitempty"`
	ObjectID   string         `json:"object_id,omitempty"`
	Channel    string         `json:"channel,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// Option customizes normalization behavior.
type Option func(*normalizeOptions)

type normalizeOptions struct {
	channel       string
	objectType    string
	actorFallback string
	redactKeys    map[string]struct{}
	now           func() time.Time
}

// Normalize converts an auth.ActivityEvent into a Normalized record. The
// source metadata map is never mutated.
func Normalize(event auth.ActivityEvent, opts ...Option) Normalized {
	options := defaultNormalizeOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}

	occurredAt := event.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = options.now()
	}

	return Normalized{
		ActorID: firstNonEmpty(
			strings.TrimSpace(event.Actor.ID),
			strings.TrimSpace(options.actorFallback),
		),
		Verb:       string(event.EventType),
		ObjectType: options.objectType,
		ObjectID:   strings.TrimSpace(event.UserID),
		Channel:    options.channel,
		Metadata:   normalizeMetadata(event, options.redactKeys),
		OccurredAt: occurredAt.UTC(),
	}
}

// Publisher receives normalized records.
type Publisher func(ctx context.Context, record Normalized) error

// NewSink adapts publish into an auth.ActivitySink.
func NewSink(publish Publisher, opts ...Option) auth.ActivitySink {
	return auth.ActivitySinkFunc(func(ctx context.Context, event auth.ActivityEvent) error {
		if publish == nil {
			return nil
		}
		return publish(ctx, Normalize(event, opts...))
	})
}

// WithChannel sets the channel for normalized records.
func WithChannel(channel string) Option {
	return func(opts *normalizeOptions) {
		opts.channel = strings.TrimSpace(channel)
	}
}

// WithObjectType sets the object type for normalized records.
func WithObjectType(objectType string) Option {
	return func(opts *normalizeOptions) {
		opts.objectType = strings.TrimSpace(objectType)
	}
}

// WithActorFallback sets the actor id used when the event has none, as with
// failed logins for unknown accounts.
func WithActorFallback(actorID string) Option {
	return func(opts *normalizeOptions) {
		opts.actorFallback = strings.TrimSpace(actorID)
	}
}

// WithRedactedKeys drops metadata keys before publishing.
func WithRedactedKeys(keys ...string) Option {
	return func(opts *normalizeOptions) {
		for _, key := range keys {
			opts.redactKeys[key] = struct{}{}
		}
	}
}

// WithClock sets the time source for events that carry no timestamp.
func WithClock(now func() time.Time) Option {
	return func(opts *normalizeOptions) {
		if now != nil {
			opts.now = now
		}
	}
}

func defaultNormalizeOptions() normalizeOptions {
	return normalizeOptions{
		channel:       defaultChannel,
		objectType:    defaultObjectType,
		actorFallback: defaultActorID,
		redactKeys:    map[string]struct{}{},
		now:           time.Now,
	}
}

func normalizeMetadata(event auth.ActivityEvent, redact map[string]struct{}) map[string]any {
	metadata := map[string]any{}
	for key, value := range event.Metadata {
		if _, drop := redact[key]; drop {
			continue
		}
		metadata[key] = value
	}

	if actorType := strings.TrimSpace(event.Actor.Type); actorType != "" {
		if _, exists := metadata[MetadataKeyActorType]; !exists {
			metadata[MetadataKeyActorType] = actorType
		}
	}

	if event.FromRole != "" {
		metadata[MetadataKeyFromRole] = event.FromRole.String()
	}

	if event.ToRole != "" {
		metadata[MetadataKeyToRole] = event.ToRole.String()
	}

	if len(metadata) == 0 {
		return nil
	}
	return metadata
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
