package models

import "time"

// SignupVerification is a self-registration waiting for its SMS code. The
// account only exists once the code is confirmed.
type SignupVerification struct {
	ID        string
	Code      string
	FullName  string
	StudentID string
	Email     string
	Career    string
	Semester  int
	Phone     string
	Attempts  int
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Expired reports whether the code can no longer be used at now.
func (v *SignupVerification) Expired(now time.Time) bool {
	return !now.Before(v.ExpiresAt)
}
