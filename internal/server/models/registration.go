package models

import "time"

// RegistrationStatus is the lifecycle state of an enrollment.
type RegistrationStatus string

const (
	StatusRegistered RegistrationStatus = "registered"
	StatusCancelled  RegistrationStatus = "cancelled"
)

// Student is the profile snapshot copied into a registration.
type Student struct {
	FullName  string
	StudentID string
	Email     string
	Career    string
	Semester  int
	Phone     string
}

// Registration links a student to an event. There is at most one row per
// (EventID, FoldKey(StudentID)); cancelling flips Status and re-enrolling flips it
// back on the same row.
type Registration struct {
	ID        string
	EventID   string
	FullName  string
	StudentID string
	Email     string
	Career    string
	Semester  int
	Phone     string
	Status    RegistrationStatus
	CreatedAt time.Time
}

// Apply overwrites the snapshot fields with s.
func (r *Registration) Apply(s Student) {
	r.FullName = s.FullName
	r.StudentID = s.StudentID
	r.Email = s.Email
	r.Career = s.Career
	r.Semester = s.Semester
	r.Phone = s.Phone
}

// RegistrationFilter narrows a registration listing. Empty fields mean "any";
// StudentID compares under FoldKey.
type RegistrationFilter struct {
	EventID   string
	StudentID string
}

// StudentRegistration pairs a registration with its event for "my events".
type StudentRegistration struct {
	Registration Registration
	Event        Event
}

// RegistrationAfter orders registrations newest first, id descending on ties.
func RegistrationAfter(a, b *Registration) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}
