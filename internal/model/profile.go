package model

import (
	"fmt"
	"time"
)

// Role is the kind of actor a profile represents.
type Role string

// Roles.
const (
	RoleStudent Role = "student"
	RoleAdmin   Role = "admin"
)

// ParseRole converts s into a Role, rejecting unknown values.
func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleStudent, RoleAdmin:
		return r, nil
	}
	return "", fmt.Errorf("%w: unknown role %q", ErrValidation, s)
}

// Profile is an actor: a student who borrows or an admin who runs a club.
type Profile struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	StudentID    string    `json:"student_id,omitempty"`
	DOB          string    `json:"dob,omitempty"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// MinPasswordLength is the shortest password accepted for a profile.
const MinPasswordLength = 8

// ValidatePassword checks a new password against the length policy.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", ErrValidation, MinPasswordLength)
	}
	return nil
}
