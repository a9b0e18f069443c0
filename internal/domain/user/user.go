package user

import (
	"fmt"
	"strings"
	"time"

	"github.com/droppit-app/service-booking/internal/domain"
	"github.com/google/uuid"
)

// Role represents what an authenticated actor is allowed to do. It is assigned
// at signup and never changes afterwards.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleCourier  Role = "courier"
	RoleAdmin    Role = "admin"
)

// IsValid returns true if the role is a recognized user role.
func (r Role) IsValid() bool {
	switch r {
	case RoleCustomer, RoleCourier, RoleAdmin:
		return true
	}
	return false
}

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// ParseRole converts a string to a Role, returning an error if invalid.
func ParseRole(s string) (Role, error) {
	role := Role(s)
	if !role.IsValid() {
		return "", fmt.Errorf("invalid user role: %s", s)
	}
	return role, nil
}

// Address is an optional mailing address attached to a profile.
type Address struct {
	Street string `json:"street"`
	City   string `json:"city"`
	State  string `json:"state"`
	Zip    string `json:"zip"`
}

// User is the aggregate root for the user domain.
type User struct {
	id              uuid.UUID
	name            string
	email           string
	phone           string
	passwordHash    string
	role            Role
	profileImageRef string
	address         *Address
	createdAt       time.Time
	updatedAt       time.Time
}

// NewUser creates a new User aggregate. The email is normalized to lower case
// so uniqueness checks are case-insensitive.
func NewUser(name, email, phone, passwordHash string, role Role) (*User, error) {
	if name == "" {
		return nil, domain.NewValidationError("name is required")
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, domain.NewValidationError("a valid email is required")
	}
	if passwordHash == "" {
		return nil, domain.NewValidationError("password hash is required")
	}
	if !role.IsValid() {
		return nil, domain.NewValidationError(fmt.Sprintf("invalid role: %s", role))
	}

	now := time.Now().UTC()
	return &User{
		id:           uuid.New(),
		name:         name,
		email:        email,
		phone:        phone,
		passwordHash: passwordHash,
		role:         role,
		createdAt:    now,
		updatedAt:    now,
	}, nil
}

// Reconstruct rebuilds a User from persistence data (no validation).
func Reconstruct(
	id uuid.UUID,
	name, email, phone, passwordHash string,
	role Role,
	profileImageRef string,
	address *Address,
	createdAt, updatedAt time.Time,
) *User {
	return &User{
		id:              id,
		name:            name,
		email:           email,
		phone:           phone,
		passwordHash:    passwordHash,
		role:            role,
		profileImageRef: profileImageRef,
		address:         address,
		createdAt:       createdAt,
		updatedAt:       updatedAt,
	}
}

// ID returns the user's unique identifier.
func (u *User) ID() uuid.UUID { return u.id }

// Name returns the user's display name.
func (u *User) Name() string { return u.name }

// Email returns the user's lower-cased email address.
func (u *User) Email() string { return u.email }

// Phone returns the user's phone number.
func (u *User) Phone() string { return u.phone }

// PasswordHash returns the bcrypt hash of the user's password.
func (u *User) PasswordHash() string { return u.passwordHash }

// Role returns the user's role. Roles are immutable after signup.
func (u *User) Role() Role { return u.role }

// ProfileImageRef returns the storage reference of the profile image, or "".
func (u *User) ProfileImageRef() string { return u.profileImageRef }

// Address returns the user's mailing address, or nil if not set.
func (u *User) Address() *Address { return u.address }

// CreatedAt returns the creation timestamp.
func (u *User) CreatedAt() time.Time { return u.createdAt }

// UpdatedAt returns the last-updated timestamp.
func (u *User) UpdatedAt() time.Time { return u.updatedAt }

// UpdateProfile changes the mutable profile fields. Email and role are
// deliberately not part of this: neither may change after signup.
func (u *User) UpdateProfile(name, phone, profileImageRef string, address *Address) error {
	if name == "" {
		return domain.NewValidationError("name is required")
	}
	u.name = name
	u.phone = phone
	u.profileImageRef = profileImageRef
	u.address = address
	u.updatedAt = time.Now().UTC()
	return nil
}

// ChangePasswordHash replaces the stored password hash.
func (u *User) ChangePasswordHash(hash string) error {
	if hash == "" {
		return domain.NewValidationError("password hash is required")
	}
	u.passwordHash = hash
	u.updatedAt = time.Now().UTC()
	return nil
}
