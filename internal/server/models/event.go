package models

import "time"

// DateLayout is the wire and storage form of an event date.
const DateLayout = "2006-01-02"

// EventType tells whether an event happens in person or online.
type EventType string

const (
	EventOnsite EventType = "onsite"
	EventOnline EventType = "online"
)

// Valid reports whether t is one of the known event types.
func (t EventType) Valid() bool {
	return t == EventOnsite || t == EventOnline
}

// Event is a catalog entry. Spots is the remaining capacity and never
// drops below zero.
type Event struct {
	ID           string
	Name         string
	Image        string
	Place        string
	Location     string
	Summary      string
	Agenda       []string
	Requirements []string
	// Date is a calendar day stored as UTC midnight.
	Date      time.Time
	Time      string
	Type      EventType
	Spots     int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Clone returns a deep copy of e. Agenda and Requirements of the copy are
// never nil.
func (e *Event) Clone() *Event {
	c := *e
	c.Agenda = append([]string{}, e.Agenda...)
	c.Requirements = append([]string{}, e.Requirements...)
	return &c
}

// DateString formats Date with DateLayout.
func (e *Event) DateString() string {
	return e.Date.Format(DateLayout)
}

// EventFilter narrows a catalog listing. Zero values mean "any".
type EventFilter struct {
	Type  EventType
	Month int
}

// Matches reports whether e passes every set criterion.
func (f EventFilter) Matches(e *Event) bool {
	if f.Type != "" && e.Type != f.Type {
		return false
	}
	if f.Month != 0 && int(e.Date.Month()) != f.Month {
		return false
	}
	return true
}

// EventBefore orders events by date, then time, then id.
func EventBefore(a, b *Event) bool {
	if !a.Date.Equal(b.Date) {
		return a.Date.Before(b.Date)
	}
	if a.Time != b.Time {
		return a.Time < b.Time
	}
	return a.ID < b.ID
}

// ParseDate parses a YYYY-MM-DD string into a UTC midnight time.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}
