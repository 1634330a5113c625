package auth

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Users is the bun backed UserRepository.
type Users interface {
	UserRepository

	SaveTx(ctx context.Context, tx bun.IDB, user *User) (*User, error)
	ExistsTx(ctx context.Context, tx bun.IDB, email string) (bool, error)
}

type users struct {
	repo  repository.Repository[*User]
	db    *bun.DB
	clock Clock
}

var _ Users = (*users)(nil)

// UsersOption configures NewUsersRepository.
type UsersOption func(*users)

// WithUsersClock sets the clock used for created_at and updated_at.
func WithUsersClock(clock Clock) UsersOption {
	return func(u *users) {
		u.clock = normalizeClock(clock)
	}
}

// NewUsersRepository returns a Users repository over db.
func NewUsersRepository(db *bun.DB, opts ...UsersOption) Users {
	repo := repository.NewRepository[*User](db, repository.ModelHandlers[*User]{
		NewRecord: func() *User { return &User{} },
		GetID: func(u *User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	repoUsers := &users{
		repo:  repo,
		db:    db,
		clock: SystemClock,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(repoUsers)
		}
	}

	return repoUsers
}

func (a *users) FindByEmail(ctx context.Context, email string) (*User, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return nil, ErrUserNotFound
	}

	user, err := a.repo.GetByIdentifier(ctx, email)
	if err != nil {
		return nil, lookupError(err, "email", email)
	}
	return user, nil
}

func (a *users) FindByID(ctx context.Context, id string) (*User, error) {
	id = strings.TrimSpace(id)
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrUserNotFound
	}

	user, err := a.repo.GetByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "id", id)
	}
	return user, nil
}

func (a *users) Exists(ctx context.Context, email string) (bool, error) {
	return a.ExistsTx(ctx, a.db, email)
}

func (a *users) ExistsTx(ctx context.Context, tx bun.IDB, email string) (bool, error) {
	exists, err := tx.NewSelect().
		Model((*User)(nil)).
		Where("?TableAlias.email = ?", NormalizeEmail(email)).
		Exists(ctx)
	if err != nil {
		return false, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check account existence")
	}
	return exists, nil
}

// Save inserts user when its ID is unknown and overwrites every column
// otherwise. Unique constraint violations are reported as ErrDuplicateAccount.
func (a *users) Save(ctx context.Context, user *User) (*User, error) {
	var saved *User
	err := a.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		saved, err = a.SaveTx(ctx, tx, user)
		return err
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

func (a *users) SaveTx(ctx context.Context, tx bun.IDB, user *User) (*User, error) {
	if user == nil {
		return nil, validationError("user is required")
	}

	prepareUserDefaults(user)
	now := a.clock.Now().UTC()

	found, err := tx.NewSelect().
		Model((*User)(nil)).
		Where("?TableAlias.id = ?", user.ID).
		Exists(ctx)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to look up user")
	}

	if !found {
		if user.CreatedAt == nil {
			user.CreatedAt = &now
		}
		user.UpdatedAt = &now

		created, err := a.repo.CreateTx(ctx, tx, user)
		if err != nil {
			return nil, persistError(err, "failed to create user")
		}
		return created, nil
	}

	user.UpdatedAt = &now
	if _, err := tx.NewUpdate().
		Model(user).
		ExcludeColumn("created_at").
		WherePK().
		Exec(ctx); err != nil {
		return nil, persistError(err, "failed to update user")
	}

	return user, nil
}

// UpdateRole writes user_role and updated_at only, then returns the stored row.
func (a *users) UpdateRole(ctx context.Context, id string, role Role) (*User, error) {
	uid, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return nil, ErrUserNotFound
	}

	updated := &User{}
	err = a.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := a.updateColumns(ctx, tx, uid, map[string]any{"user_role": string(role)}); err != nil {
			return err
		}
		return tx.NewSelect().
			Model(updated).
			Where("?TableAlias.id = ?", uid).
			Scan(ctx)
	})
	if err != nil {
		return nil, lookupError(err, "id", id)
	}
	return updated, nil
}

// UpdatePassword writes password_hash and updated_at, plus is_verified when
// markVerified is set.
func (a *users) UpdatePassword(ctx context.Context, id, digest string, markVerified bool) error {
	uid, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return ErrUserNotFound
	}

	columns := map[string]any{"password_hash": digest}
	if markVerified {
		columns["is_verified"] = true
	}
	return a.updateColumns(ctx, a.db, uid, columns)
}

func (a *users) updateColumns(ctx context.Context, db bun.IDB, id uuid.UUID, columns map[string]any) error {
	q := db.NewUpdate().
		Model((*User)(nil)).
		Set("updated_at = ?", a.clock.Now().UTC())
	for _, name := range sortedKeys(columns) {
		q = q.Set("? = ?", bun.Ident(name), columns[name])
	}

	res, err := q.Where("?TableAlias.id = ?", id).Exec(ctx)
	if err != nil {
		return persistError(err, "failed to update user")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update user")
	}
	if n == 0 {
		return ErrUserNotFound
	}
	return nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func lookupError(err error, field, value string) error {
	if repository.IsRecordNotFound(err) || goerrors.IsNotFound(err) || errors.Is(err, sql.ErrNoRows) {
		return ErrUserNotFound
	}
	return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user").
		WithMetadata(map[string]any{field: value})
}

func persistError(err error, msg string) error {
	if isUniqueViolation(err) {
		return duplicateError(err)
	}
	return goerrors.Wrap(err, goerrors.CategoryInternal, msg)
}

// isUniqueViolation walks the chain since the repository layer may wrap the
// driver error under its own message.
func isUniqueViolation(err error) bool {
	if hasCategory(err, goerrors.CategoryConflict) {
		return true
	}
	for ; err != nil; err = errors.Unwrap(err) {
		msg := strings.ToLower(err.Error())
		if strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key") {
			return true
		}
	}
	return false
}

func duplicateError(err error) *goerrors.Error {
	field := "email"
	for e := err; e != nil; e = errors.Unwrap(e) {
		if strings.Contains(strings.ToLower(e.Error()), "username") {
			field = "username"
			break
		}
	}
	return goerrors.Wrap(err, goerrors.CategoryConflict, "an account with this "+field+" already exists").
		WithCode(goerrors.CodeConflict).
		WithTextCode(TextCodeDuplicate).
		WithMetadata(map[string]any{"field": field})
}
