package models

import (
	"slices"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is a back-office account. Buyers have no accounts; orders carry
// their email instead.
type User struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	FullName   string             `bson:"full_name" json:"full_name"`
	FullNameCI string             `bson:"full_name_ci" json:"-"`
	Email      string             `bson:"email" json:"email"` // lowercase, unique
	AuthMethod string             `bson:"auth_method" json:"auth_method"`

	// Set only for AuthPassword accounts.
	PasswordHash *string `bson:"password_hash,omitempty" json:"-"`

	Role   string `bson:"role" json:"role"`
	Status string `bson:"status,omitempty" json:"status,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// Roles. Only admins may change the catalog or read orders.
const (
	RoleAdmin = "admin"
	RoleStaff = "staff"
)

const (
	StatusActive   = "active"
	StatusDisabled = "disabled"
)

// Sign-in methods.
const (
	AuthPassword = "password"
	AuthGoogle   = "google"
)

var (
	roles       = []string{RoleAdmin, RoleStaff}
	statuses    = []string{StatusActive, StatusDisabled}
	authMethods = []string{AuthPassword, AuthGoogle}
)

func IsValidRole(v string) bool       { return slices.Contains(roles, v) }
func IsValidStatus(v string) bool     { return slices.Contains(statuses, v) }
func IsValidAuthMethod(v string) bool { return slices.Contains(authMethods, v) }

// Disabled reports whether the account is barred from signing in.
func (u *User) Disabled() bool { return u.Status == StatusDisabled }

// IsAdmin reports whether the account may perform admin writes.
func (u *User) IsAdmin() bool { return u.Role == RoleAdmin && !u.Disabled() }
