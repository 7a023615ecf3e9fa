package models

import "time"

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleAdmin   UserRole = "admin"
	RoleTeacher UserRole = "teacher"
	RoleStudent UserRole = "student"
)

// Roles lists every role in lookup order. Login scans partitions in this
// order, so an id colliding across partitions resolves to the most
// privileged account.
var Roles = []UserRole{RoleAdmin, RoleTeacher, RoleStudent}

// ValidRole reports whether the raw value names a known role.
func ValidRole(raw string) bool {
	switch UserRole(raw) {
	case RoleAdmin, RoleTeacher, RoleStudent:
		return true
	default:
		return false
	}
}

// User represents a portal account. Students carry the academic scope
// fields; teachers and admins leave them empty.
type User struct {
	ID            string    `json:"id"`
	PasswordHash  string    `json:"passwordHash"`
	FirstName     string    `json:"firstName,omitempty"`
	LastName      string    `json:"lastName,omitempty"`
	FullName      string    `json:"fullName"`
	Email         string    `json:"email,omitempty"`
	Phone         string    `json:"phone,omitempty"`
	Role          UserRole  `json:"role"`
	Department    string    `json:"department,omitempty"`
	Semester      string    `json:"semester,omitempty"`
	Shift         string    `json:"shift,omitempty"`
	Roll          string    `json:"roll,omitempty"`
	Address       string    `json:"address,omitempty"`
	GuardianName  string    `json:"guardianName,omitempty"`
	GuardianPhone string    `json:"guardianPhone,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Public returns the wire representation without credentials.
func (u *User) Public() UserInfo {
	return UserInfo{
		ID:         u.ID,
		FullName:   u.FullName,
		Email:      u.Email,
		Role:       u.Role,
		Department: u.Department,
		Semester:   u.Semester,
		Shift:      u.Shift,
	}
}

// UserInfo describes a user in responses.
type UserInfo struct {
	ID         string   `json:"id"`
	FullName   string   `json:"fullName"`
	Email      string   `json:"email,omitempty"`
	Role       UserRole `json:"role"`
	Department string   `json:"department,omitempty"`
	Semester   string   `json:"semester,omitempty"`
	Shift      string   `json:"shift,omitempty"`
}
