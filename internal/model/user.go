package model

import (
	"time"

	"github.com/jwalitptl/radiology-api/pkg/privilege"
)

// User represents a system user (the authorization principal)
type User struct {
	Base
	Username          string            `json:"username" db:"username"`
	Email             string            `json:"email" db:"email"`
	Password          string            `json:"password,omitempty" db:"-"`
	PasswordHash      string            `json:"-" db:"password_hash"`
	PhoneNumber       *string           `json:"phone_number,omitempty" db:"phone_number"`
	IsActive          bool              `json:"is_active" db:"is_active"`
	IsSuperAdmin      bool              `json:"is_super_admin" db:"is_super_admin"`
	Privileges        []privilege.Grant `json:"privileges" db:"-"`
	TwoFactorEnabled  bool              `json:"two_factor_enabled" db:"two_factor_enabled"`
	TwoFactorSecret   string            `json:"-" db:"two_factor_secret"`
	LastLoginAt       *time.Time        `json:"last_login_at,omitempty" db:"last_login_at"`
	PasswordChangedAt *time.Time        `json:"-" db:"password_changed_at"`
}

// Principal returns the authorization view of the user.
func (u *User) Principal() *privilege.Principal {
	return &privilege.Principal{
		ID:         u.ID,
		Active:     u.IsActive,
		SuperAdmin: u.IsSuperAdmin,
		Grants:     u.Privileges,
	}
}

// ChangedPasswordAfter reports whether the password was changed after the
// given token issue time. Credentials issued before the most recent password
// change are void regardless of their own expiry.
func (u *User) ChangedPasswordAfter(issuedAt time.Time) bool {
	if u.PasswordChangedAt == nil {
		return false
	}
	// Compare at second precision, matching JWT iat granularity.
	return u.PasswordChangedAt.Truncate(time.Second).After(issuedAt.Truncate(time.Second))
}

// CreateUserRequest represents user creation parameters
type CreateUserRequest struct {
	Username    string  `json:"username" binding:"required,min=3,max=30"`
	Email       string  `json:"email" binding:"required,email"`
	Password    string  `json:"password" binding:"required,min=8"`
	PhoneNumber *string `json:"phone_number" binding:"omitempty,phone"`
}

// UpdateUserRequest represents user update parameters
type UpdateUserRequest struct {
	Username    *string `json:"username" binding:"omitempty,min=3,max=30"`
	Email       *string `json:"email" binding:"omitempty,email"`
	PhoneNumber *string `json:"phone_number"`
	IsActive    *bool   `json:"is_active"`
}

// GrantRequest represents a privilege grant payload. Module and operation
// values are restricted to the capability registry enumeration and rejected
// before any state change.
type GrantRequest struct {
	Module     privilege.Module      `json:"module" binding:"required"`
	Operations []privilege.Operation `json:"operations" binding:"required,min=1"`
}

// RevokeRequest represents a privilege revoke payload. An empty operation
// list removes the whole grant for the module.
type RevokeRequest struct {
	Module     privilege.Module      `json:"module" binding:"required"`
	Operations []privilege.Operation `json:"operations"`
}

type UserFilters struct {
	ListParams
	IsActive *bool  `form:"is_active"`
	Search   string `form:"search"`
}
