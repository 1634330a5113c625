package auth

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// User is the user model
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Email         string     `bun:"email,notnull,unique" json:"email,omitempty"`
	Username      string     `bun:"username,notnull,unique" json:"username,omitempty"`
	PasswordHash  string     `bun:"password_hash,notnull" json:"-"`
	Role          Role       `bun:"user_role,notnull" json:"role,omitempty"`
	IsActive      bool       `bun:"is_active,notnull" json:"is_active"`
	IsVerified    bool       `bun:"is_verified,notnull" json:"is_verified"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// SubjectID is the value carried in the sub claim
func (u *User) SubjectID() string {
	if u == nil || u.ID == uuid.Nil {
		return ""
	}
	return u.ID.String()
}

// Principal is the resolved identity for a single request. It is built by
// Gate and never persisted.
type Principal struct {
	ID       string
	Role     Role
	IsActive bool
}

// PrincipalFromUser builds a Principal from a persisted user.
func PrincipalFromUser(user *User) *Principal {
	if user == nil {
		return nil
	}
	return &Principal{
		ID:       user.SubjectID(),
		Role:     user.Role,
		IsActive: user.IsActive,
	}
}

// NormalizeEmail lower cases and trims an email so lookups are stable.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func prepareUserDefaults(record *User) {
	if record == nil {
		return
	}

	if record.Role == "" {
		record.Role = DefaultRole
	}

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}

	record.Email = NormalizeEmail(record.Email)
}
