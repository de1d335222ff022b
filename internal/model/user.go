// Package model defines domain entities for the application.
package model

import (
	"errors"
	"slices"
	"strings"
	"time"
)

// Role is a user's authorization role. Only the constants below are valid.
type Role string

// Role constants.
const (
	RoleAdmin  Role = "admin"
	RoleEditor Role = "editor"
	RoleViewer Role = "viewer"
)

// ValidRoles contains all valid role values.
var ValidRoles = []Role{RoleAdmin, RoleEditor, RoleViewer}

// AdminRoles is the capability set allowed on admin routes.
var AdminRoles = []Role{RoleAdmin, RoleEditor}

// ErrInvalidRole is returned when text does not name a known role.
var ErrInvalidRole = errors.New("invalid role")

// ParseRole converts stored or user-supplied text into a Role.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !slices.Contains(ValidRoles, r) {
		return "", ErrInvalidRole
	}
	return r, nil
}

func (r Role) String() string { return string(r) }

// In reports whether the role belongs to the given capability set.
func (r Role) In(set []Role) bool {
	return slices.Contains(set, r)
}

// User represents an account that may sign in to the admin area.
type User struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"` // Never serialize
	Name         string     `json:"name"`
	Role         Role       `json:"role"`
	Active       bool       `json:"active"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// IsAdmin reports whether the user may access admin routes.
func (u *User) IsAdmin() bool {
	return u.Role.In(AdminRoles)
}

// NormalizeEmail lower-cases and trims an email for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// UserResponse is the public profile returned by the API.
type UserResponse struct {
	ID        string     `json:"id"`
	Email     string     `json:"email"`
	Name      string     `json:"name"`
	Role      Role       `json:"role"`
	Active    bool       `json:"active"`
	LastLogin *time.Time `json:"last_login,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// ToResponse converts a User to UserResponse.
func (u *User) ToResponse() UserResponse {
	return UserResponse{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Role:      u.Role,
		Active:    u.Active,
		LastLogin: u.LastLogin,
		CreatedAt: u.CreatedAt,
	}
}
