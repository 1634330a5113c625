package activitymap_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auth "github.com/goliatone/go-membership"
	"github.com/goliatone/go-membership/activitymap"
)

func TestNormalizeRoleUpdate(t *testing.T) {
	ts := time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)
	event := auth.ActivityEvent{
		EventType:  auth.ActivityEventRoleUpdated,
		Actor:      auth.ActorRef{ID: "admin-42", Type: "user"},
		UserID:     "user-100",
		FromRole:   auth.RoleMember,
		ToRole:     auth.RoleOperator,
		Metadata:   map[string]any{"ticket": "SEC-204"},
		OccurredAt: ts,
	}

	out := activitymap.Normalize(event)

	assert.Equal(t, "admin-42", out.ActorID)
	assert.Equal(t, string(auth.ActivityEventRoleUpdated), out.Verb)
	assert.Equal(t, "user", out.ObjectType)
	assert.Equal(t, "user-100", out.ObjectID)
	assert.Equal(t, "membership", out.Channel)
	assert.True(t, out.OccurredAt.Equal(ts))

	assert.Equal(t, "SEC-204", out.Metadata["ticket"])
	assert.Equal(t, "user", out.Metadata[activitymap.MetadataKeyActorType])
	assert.Equal(t, "MEMBER", out.Metadata[activitymap.MetadataKeyFromRole])
	assert.Equal(t, "OPERATOR", out.Metadata[activitymap.MetadataKeyToRole])

	assert.Len(t, event.Metadata, 1)
}

func TestNormalizeOptions(t *testing.T) {
	fixed := time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC)
	event := auth.ActivityEvent{
		EventType: auth.ActivityEventPasswordResetSuccess,
		Actor:     auth.ActorRef{Type: "user"},
		UserID:    "user-200",
		Metadata: map[string]any{
			"token_id":                       "jti-1",
			activitymap.MetadataKeyActorType: "existing",
		},
	}

	out := activitymap.Normalize(event,
		activitymap.WithChannel("security"),
		activitymap.WithObjectType("account"),
		activitymap.WithActorFallback("system"),
		activitymap.WithRedactedKeys("token_id"),
		activitymap.WithClock(func() time.Time { return fixed }),
	)

	assert.Equal(t, "security", out.Channel)
	assert.Equal(t, "account", out.ObjectType)
	assert.Equal(t, "system", out.ActorID)
	assert.NotContains(t, out.Metadata, "token_id")
	assert.Equal(t, "existing", out.Metadata[activitymap.MetadataKeyActorType])
	assert.Equal(t, fixed, out.OccurredAt)
}

func TestNormalizeAnonymousFailure(t *testing.T) {
	out := activitymap.Normalize(auth.ActivityEvent{EventType: auth.ActivityEventLoginFailure})
	assert.Equal(t, "anonymous", out.ActorID)
	assert.Empty(t, out.ObjectID)
	assert.Nil(t, out.Metadata)
	assert.False(t, out.OccurredAt.IsZero())
}

func TestNewSink(t *testing.T) {
	var got []activitymap.Normalized
	sink := activitymap.NewSink(func(_ context.Context, record activitymap.Normalized) error {
		got = append(got, record)
		return nil
	}, activitymap.WithChannel("audit"))

	require.NoError(t, sink.Record(context.Background(), auth.ActivityEvent{
		EventType: auth.ActivityEventUserRegistered,
		Actor:     auth.ActorRef{ID: "u1", Type: "user"},
		UserID:    "u1",
		ToRole:    auth.RoleMember,
	}))

	require.Len(t, got, 1)
	assert.Equal(t, "audit", got[0].Channel)
	assert.Equal(t, "MEMBER", got[0].Metadata[activitymap.MetadataKeyToRole])

	failing := activitymap.NewSink(func(context.Context, activitymap.Normalized) error {
		return errors.New("bus down")
	})
	assert.Error(t, failing.Record(context.Background(), auth.ActivityEvent{}))

	assert.NoError(t, activitymap.NewSink(nil).Record(context.Background(), auth.ActivityEvent{}))
}
