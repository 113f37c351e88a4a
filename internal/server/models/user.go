package models

import (
	"strings"
	"time"
)

// Role separates catalog administrators from students.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// User is an account. Username, StudentID and Email are unique under
// FoldKey; admins may have no StudentID or Email.
type User struct {
	ID            string
	Username      string
	FullName      string
	Email         string
	StudentID     string
	Career        string
	Semester      int
	Phone         string
	PhoneVerified bool
	PasswordHash  string
	Role          Role
	IsActive      bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// FoldKey is the case-insensitive identity of a username, student id or
// email. Every backend stores and compares this value, so uniqueness never
// depends on how a database folds non-ASCII letters.
func FoldKey(s string) string {
	return strings.ToLower(s)
}

// HasCompleteProfile reports whether the user carries every field a
// registration snapshots.
func (u *User) HasCompleteProfile() bool {
	return u.StudentID != "" && u.Career != "" && u.Semester > 0 && u.Phone != ""
}

// Student returns the profile snapshot used for enrollment.
func (u *User) Student() Student {
	return Student{
		FullName:  u.FullName,
		StudentID: u.StudentID,
		Email:     u.Email,
		Career:    u.Career,
		Semester:  u.Semester,
		Phone:     u.Phone,
	}
}
