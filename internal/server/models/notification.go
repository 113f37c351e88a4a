package models

import "time"

// NotificationKind names what the SMS is about.
type NotificationKind string

const (
	NotifyRegistered NotificationKind = "registration.registered"
	NotifyCancelled  NotificationKind = "registration.cancelled"
	NotifySignupCode NotificationKind = "signup.verification"
)

// Notification is published after a change commits. Delivery to the
// student (SMS, mail) is up to whoever consumes it. Code is only set on
// signup.verification messages.
type Notification struct {
	Kind           NotificationKind `json:"kind"`
	RegistrationID string           `json:"registration_id,omitempty"`
	VerificationID string           `json:"verification_id,omitempty"`
	EventID        string           `json:"event_id,omitempty"`
	EventName      string           `json:"event_name,omitempty"`
	StudentID      string           `json:"student_id"`
	FullName       string           `json:"full_name"`
	Phone          string           `json:"phone,omitempty"`
	Code           string           `json:"code,omitempty"`
	SpotsLeft      int              `json:"spots_left"`
	At             time.Time        `json:"at"`
}
