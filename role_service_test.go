package auth_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	auth "github.com/goliatone/go-membership"
)

type roleFixture struct {
	admin, operator, member, otherAdmin *auth.User
	users                               *memoryUsers
	sink                                *recordingSink
	roles                               *auth.RoleService
}

func newRoleFixture(t *testing.T) *roleFixture {
	t.Helper()
	f := &roleFixture{
		admin:      &auth.User{Email: "admin@b.com", Username: "admin", Role: auth.RoleAdmin, IsActive: true},
		otherAdmin: &auth.User{Email: "root@b.com", Username: "root", Role: auth.RoleAdmin, IsActive: true},
		operator:   &auth.User{Email: "ops@b.com", Username: "ops", Role: auth.RoleOperator, IsActive: true},
		member:     &auth.User{Email: "m@b.com", Username: "member", Role: auth.RoleMember, IsActive: true},
		sink:       &recordingSink{},
	}
	f.users = newMemoryUsers(f.admin, f.otherAdmin, f.operator, f.member)
	f.roles = auth.NewRoleService(f.users).
		WithLogger(auth.NoopLogger()).
		WithActivitySink(f.sink).
		WithClock(newFixedClock(testNow))
	return f
}

func TestRoleService_ViewRole(t *testing.T) {
	f := newRoleFixture(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		actor   *auth.User
		target  *auth.User
		want    auth.Role
		allowed bool
		reason  string
	}{
		{"member self", f.member, f.member, auth.RoleMember, true, ""},
		{"member other", f.member, f.operator, "", false, "own role"},
		{"operator self", f.operator, f.operator, auth.RoleOperator, true, ""},
		{"operator member", f.operator, f.member, auth.RoleMember, true, ""},
		{"operator admin", f.operator, f.admin, "", false, "admin roles"},
		{"admin admin", f.admin, f.otherAdmin, auth.RoleAdmin, true, ""},
		{"admin member", f.admin, f.member, auth.RoleMember, true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			role, err := f.roles.ViewRole(ctx, auth.PrincipalFromUser(tt.actor), tt.target.SubjectID())
			if tt.allowed {
				require.NoError(t, err)
				assert.Equal(t, tt.want, role)
				return
			}
			require.Error(t, err)
			assert.True(t, auth.IsPermissionError(err))
			assert.Contains(t, err.Error(), tt.reason)
			assert.Empty(t, role)
		})
	}

	assert.Contains(t, f.sink.Types(), auth.ActivityEventRoleViewDenied)
}

func TestRoleService_ViewRoleUnknownTarget(t *testing.T) {
	f := newRoleFixture(t)

	_, err := f.roles.ViewRole(context.Background(), auth.PrincipalFromUser(f.admin), "f47ac10b-58cc-4372-a567-0e02b2c3d479")
	assert.True(t, auth.IsNotFoundError(err))

	// a member asking about anyone else is refused before the lookup
	_, err = f.roles.ViewRole(context.Background(), auth.PrincipalFromUser(f.member), "f47ac10b-58cc-4372-a567-0e02b2c3d479")
	assert.True(t, auth.IsPermissionError(err))
}

func TestRoleService_RequiresActiveActor(t *testing.T) {
	f := newRoleFixture(t)
	target := f.member.SubjectID()

	_, err := f.roles.ViewRole(context.Background(), nil, target)
	assert.ErrorIs(t, err, auth.ErrInvalidCredential)

	inactive := auth.PrincipalFromUser(f.admin)
	inactive.IsActive = false
	_, err = f.roles.ViewRole(context.Background(), inactive, target)
	assert.ErrorIs(t, err, auth.ErrAccountInactive)

	_, err = f.roles.UpdateRole(context.Background(), inactive, target, auth.RoleOperator)
	assert.ErrorIs(t, err, auth.ErrAccountInactive)
}

func TestRoleService_UpdateRole(t *testing.T) {
	f := newRoleFixture(t)
	ctx := context.Background()

	role, err := f.roles.UpdateRole(ctx, auth.PrincipalFromUser(f.admin), f.member.SubjectID(), auth.RoleOperator)
	require.NoError(t, err)
	assert.Equal(t, auth.RoleOperator, role)

	stored, err := f.users.FindByID(ctx, f.member.SubjectID())
	require.NoError(t, err)
	assert.Equal(t, auth.RoleOperator, stored.Role)

	require.Len(t, f.sink.events, 1)
	event := f.sink.events[0]
	assert.Equal(t, auth.ActivityEventRoleUpdated, event.EventType)
	assert.Equal(t, auth.RoleMember, event.FromRole)
	assert.Equal(t, auth.RoleOperator, event.ToRole)
	assert.Equal(t, f.admin.SubjectID(), event.Actor.ID)
	assert.Equal(t, testNow, event.OccurredAt)
}

func TestRoleService_UpdateRoleSameRoleIsNoop(t *testing.T) {
	f := newRoleFixture(t)

	role, err := f.roles.UpdateRole(context.Background(), auth.PrincipalFromUser(f.admin), f.operator.SubjectID(), auth.RoleOperator)
	require.NoError(t, err)
	assert.Equal(t, auth.RoleOperator, role)
	assert.Empty(t, f.sink.Types())
}

func TestRoleService_UpdateRoleAdminOnly(t *testing.T) {
	f := newRoleFixture(t)

	for _, actor := range []*auth.User{f.operator, f.member} {
		for _, target := range []*auth.User{f.operator, f.member, f.admin} {
			_, err := f.roles.UpdateRole(context.Background(), auth.PrincipalFromUser(actor), target.SubjectID(), auth.RoleAdmin)
			require.Error(t, err)
			assert.True(t, auth.IsPermissionError(err))
			assert.Contains(t, err.Error(), auth.ReasonNotAuthorized)
		}
	}

	stored, err := f.users.FindByID(context.Background(), f.member.SubjectID())
	require.NoError(t, err)
	assert.Equal(t, auth.RoleMember, stored.Role)

	for _, typ := range f.sink.Types() {
		assert.Equal(t, auth.ActivityEventRoleUpdateDenied, typ)
	}
}

func TestRoleService_UpdateRoleValidation(t *testing.T) {
	f := newRoleFixture(t)
	admin := auth.PrincipalFromUser(f.admin)

	_, err := f.roles.UpdateRole(context.Background(), admin, f.member.SubjectID(), auth.Role("ROOT"))
	assert.True(t, auth.IsValidationError(err))

	_, err = f.roles.UpdateRoleFromString(context.Background(), admin, f.member.SubjectID(), "superuser")
	assert.True(t, auth.IsValidationError(err))

	role, err := f.roles.UpdateRoleFromString(context.Background(), admin, f.member.SubjectID(), " admin ")
	require.NoError(t, err)
	assert.Equal(t, auth.RoleAdmin, role)

	_, err = f.roles.UpdateRole(context.Background(), admin, "f47ac10b-58cc-4372-a567-0e02b2c3d479", auth.RoleMember)
	assert.True(t, auth.IsNotFoundError(err))
}

func TestRoleService_UpdateRoleStoreFailure(t *testing.T) {
	target := &auth.User{ID: uuid.New(), Email: "m@b.com", Username: "member", Role: auth.RoleMember, IsActive: true}

	repo := &MockUserRepository{}
	repo.On("FindByID", mock.Anything, target.SubjectID()).Return(target, nil)
	repo.On("UpdateRole", mock.Anything, target.SubjectID(), auth.RoleOperator).Return(nil, errors.New("disk full"))

	roles := auth.NewRoleService(repo).WithLogger(auth.NoopLogger())
	admin := &auth.Principal{ID: "admin", Role: auth.RoleAdmin, IsActive: true}

	_, err := roles.UpdateRole(context.Background(), admin, target.SubjectID(), auth.RoleOperator)
	require.Error(t, err)
	assert.False(t, auth.IsPermissionError(err))
	repo.AssertExpectations(t)
	repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}
