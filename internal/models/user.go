package models

import (
	"strings"
	"time"
)

// Role is the platform role attached to every user profile
type Role string

const (
	RoleStudent Role = "student"
	RoleTutor   Role = "tutor"
	RoleAdmin   Role = "admin"
)

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleTutor, RoleAdmin:
		return true
	}
	return false
}

// User is an account together with its profile
type User struct {
	ID           int64      `json:"id"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"` // Never serialize
	FirstName    string     `json:"first_name,omitempty"`
	LastName     string     `json:"last_name,omitempty"`
	Role         Role       `json:"role"`
	Bio          string     `json:"bio,omitempty"`
	Phone        string     `json:"phone,omitempty"`
	BirthDate    *time.Time `json:"birth_date,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// IsAdmin reports whether the user has the admin role
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// IsTutorOrAdmin reports whether the user may author courses
func (u *User) IsTutorOrAdmin() bool {
	return u != nil && (u.Role == RoleTutor || u.Role == RoleAdmin)
}

// FullName returns "First Last", falling back to the username
func (u *User) FullName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Username
	}
	return name
}

// Age returns the user's age in whole years at now.
// The second result is false when no birth date is known.
func (u *User) Age(now time.Time) (int, bool) {
	if u.BirthDate == nil {
		return 0, false
	}
	b := *u.BirthDate
	age := now.Year() - b.Year()
	if now.Month() < b.Month() || (now.Month() == b.Month() && now.Day() < b.Day()) {
		age--
	}
	return age, true
}

// IsAdult reports whether the user is at least 18 at now
func (u *User) IsAdult(now time.Time) bool {
	age, ok := u.Age(now)
	return ok && age >= 18
}
