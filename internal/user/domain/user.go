package domain

import (
	"errors"
	"time"
)

// UserType is the account kind; it selects the permission set and whether logins bind a device.
type UserType string

const (
	UserTypeCustomer   UserType = "customer"
	UserTypePartner    UserType = "partner"
	UserTypeAdmin      UserType = "admin"
	UserTypeSuperAdmin UserType = "super_admin"
)

// BindsDevice reports whether a login by this user type records the push-notification device.
func (t UserType) BindsDevice() bool {
	return t == UserTypeCustomer || t == UserTypePartner
}

// Valid reports whether t is a known user type.
func (t UserType) Valid() bool {
	switch t {
	case UserTypeCustomer, UserTypePartner, UserTypeAdmin, UserTypeSuperAdmin:
		return true
	}
	return false
}

// User is the core user entity.
type User struct {
	ID           string
	MobileNumber string
	Email        string
	Name         string
	PasswordHash string
	SecurePIN    string // plaintext; see security.SecurePINEqual
	IsActive     bool
	UserType     UserType
	LastLoginAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Validate validates the user for persistence. Returns an error describing the first validation failure.
func (u *User) Validate() error {
	if u.MobileNumber == "" {
		return errors.New("mobile number is required")
	}
	if u.Email == "" {
		return errors.New("email is required")
	}
	if !u.UserType.Valid() {
		return errors.New("user type is invalid")
	}
	return nil
}

// Profile is the user as returned to clients: no password hash, no PIN.
type Profile struct {
	ID           string     `json:"_id"`
	MobileNumber string     `json:"mobile_number"`
	Email        string     `json:"email"`
	Name         string     `json:"name,omitempty"`
	UserType     UserType   `json:"user_type"`
	IsActive     bool       `json:"is_active"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// Sanitize returns the client-safe view of u.
func (u *User) Sanitize() Profile {
	return Profile{
		ID:           u.ID,
		MobileNumber: u.MobileNumber,
		Email:        u.Email,
		Name:         u.Name,
		UserType:     u.UserType,
		IsActive:     u.IsActive,
		LastLoginAt:  u.LastLoginAt,
		CreatedAt:    u.CreatedAt,
	}
}
