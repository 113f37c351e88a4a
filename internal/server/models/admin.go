package models

// EventStats is one row of the admin top-events table.
type EventStats struct {
	EventID            string
	EventName          string
	TotalRegistrations int
	AvailableSpots     int
}

// AdminSummary aggregates catalog activity for the dashboard.
type AdminSummary struct {
	TotalUsers         int
	TotalEvents        int
	TotalRegistrations int
	RegistrationsToday int
	TopEvents          []EventStats
}
