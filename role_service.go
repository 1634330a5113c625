package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// RoleService exposes the role operations guarded by the policy in Decide.
type RoleService struct {
	users    UserRepository
	clock    Clock
	activity ActivitySink
	logger   Logger
}

// NewRoleService returns a RoleService over users.
func NewRoleService(users UserRepository) *RoleService {
	return &RoleService{
		users:    users,
		clock:    SystemClock,
		activity: noopActivitySink{},
		logger:   defLogger{},
	}
}

// WithLogger overrides the logger
func (s *RoleService) WithLogger(logger Logger) *RoleService {
	s.logger = normalizeLogger(logger)
	return s
}

// WithActivitySink sets the sink used to emit audit events.
func (s *RoleService) WithActivitySink(sink ActivitySink) *RoleService {
	s.activity = normalizeActivitySink(sink)
	return s
}

// WithClock sets the clock used to stamp activity events.
func (s *RoleService) WithClock(clock Clock) *RoleService {
	s.clock = normalizeClock(clock)
	return s
}

// ViewRole returns the role of targetID as seen by actor.
func (s *RoleService) ViewRole(ctx context.Context, actor *Principal, targetID string) (Role, error) {
	if err := requireActor(actor); err != nil {
		return "", err
	}

	input := DecisionInput{
		ActorRole: actor.Role,
		ActorID:   actor.ID,
		TargetID:  targetID,
		Operation: OperationViewRole,
	}

	// Decisions that do not depend on the target role run before the lookup.
	if !NeedsTargetRole(actor.Role, actor.ID, targetID, OperationViewRole) {
		if err := Authorize(input); err != nil {
			s.denied(ctx, ActivityEventRoleViewDenied, actor, targetID, err)
			return "", err
		}
	}

	target, err := s.findTarget(ctx, targetID)
	if err != nil {
		return "", err
	}

	role := target.Role
	input.TargetRole = &role
	if err := Authorize(input); err != nil {
		s.denied(ctx, ActivityEventRoleViewDenied, actor, targetID, err)
		return "", err
	}

	return target.Role, nil
}

// UpdateRole sets the role of targetID. Only ADMIN actors are permitted;
// setting the current role again is a no-op that still succeeds.
func (s *RoleService) UpdateRole(ctx context.Context, actor *Principal, targetID string, newRole Role) (Role, error) {
	if err := requireActor(actor); err != nil {
		return "", err
	}

	if err := Authorize(DecisionInput{
		ActorRole: actor.Role,
		ActorID:   actor.ID,
		TargetID:  targetID,
		Operation: OperationUpdateRole,
	}); err != nil {
		s.denied(ctx, ActivityEventRoleUpdateDenied, actor, targetID, err)
		return "", err
	}

	if !newRole.IsValid() {
		return "", validationError("unknown role").
			WithMetadata(map[string]any{"role": string(newRole)})
	}

	target, err := s.findTarget(ctx, targetID)
	if err != nil {
		return "", err
	}

	previous := target.Role
	if previous == newRole {
		return newRole, nil
	}

	saved, err := s.users.UpdateRole(ctx, target.SubjectID(), newRole)
	if err != nil {
		if IsNotFoundError(err) {
			return "", ErrUserNotFound
		}
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update role")
	}

	s.logger.Info("role updated", "actor", actor.ID, "target", targetID, "from", previous, "to", saved.Role)
	emitActivity(ctx, s.activity, s.logger, ActivityEvent{
		EventType:  ActivityEventRoleUpdated,
		Actor:      actorFromPrincipal(actor),
		UserID:     saved.SubjectID(),
		FromRole:   previous,
		ToRole:     saved.Role,
		OccurredAt: s.now(),
	})

	return saved.Role, nil
}

// UpdateRoleFromString parses raw before calling UpdateRole.
func (s *RoleService) UpdateRoleFromString(ctx context.Context, actor *Principal, targetID, raw string) (Role, error) {
	role, err := ParseRole(raw)
	if err != nil {
		return "", err
	}
	return s.UpdateRole(ctx, actor, targetID, role)
}

func (s *RoleService) findTarget(ctx context.Context, targetID string) (*User, error) {
	target, err := s.users.FindByID(ctx, targetID)
	if err != nil {
		if IsNotFoundError(err) {
			return nil, ErrUserNotFound
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user")
	}
	if target == nil {
		return nil, ErrUserNotFound
	}
	return target, nil
}

func (s *RoleService) denied(ctx context.Context, event ActivityEventType, actor *Principal, targetID string, err error) {
	s.logger.Info("role operation denied", "actor", actor.ID, "target", targetID, "error", err)
	emitActivity(ctx, s.activity, s.logger, ActivityEvent{
		EventType:  event,
		Actor:      actorFromPrincipal(actor),
		UserID:     targetID,
		Metadata:   map[string]any{"reason": err.Error()},
		OccurredAt: s.now(),
	})
}

func (s *RoleService) now() time.Time {
	return normalizeClock(s.clock).Now()
}

func requireActor(actor *Principal) error {
	if actor == nil || actor.ID == "" {
		return ErrInvalidCredential
	}
	if !actor.IsActive {
		return ErrAccountInactive
	}
	return nil
}
