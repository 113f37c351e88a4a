package httpapi

import (
	"time"

	"github.com/dmitrijs2005/eventhub/internal/server/models"
)

type userResponse struct {
	ID            string      `json:"id"`
	Username      string      `json:"username"`
	FullName      string      `json:"full_name"`
	Email         *string     `json:"email"`
	Role          models.Role `json:"role"`
	StudentID     *string     `json:"student_id"`
	Career        *string     `json:"career"`
	Semester      *int        `json:"semester"`
	Phone         *string     `json:"phone"`
	PhoneVerified bool        `json:"phone_verified"`
	IsActive      bool        `json:"is_active"`
}

func optional[T comparable](v T) *T {
	var zero T
	if v == zero {
		return nil
	}
	return &v
}

func toUser(u *models.User) userResponse {
	return userResponse{
		ID:            u.ID,
		Username:      u.Username,
		FullName:      u.FullName,
		Email:         optional(u.Email),
		Role:          u.Role,
		StudentID:     optional(u.StudentID),
		Career:        optional(u.Career),
		Semester:      optional(u.Semester),
		Phone:         optional(u.Phone),
		PhoneVerified: u.PhoneVerified,
		IsActive:      u.IsActive,
	}
}

type loginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

type signupResponse struct {
	VerificationID string `json:"verification_id"`
	ExpiresIn      int    `json:"expires_in_seconds"`
	SMSDestination string `json:"sms_destination"`
	DevSMSCode     string `json:"dev_sms_code,omitempty"`
	Message        string `json:"message"`
}

type loginResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	User        userResponse `json:"user"`
}

type eventSummary struct {
	ID       string           `json:"id"`
	Image    string           `json:"image"`
	Name     string           `json:"name"`
	Date     string           `json:"date"`
	Time     string           `json:"time"`
	Place    string           `json:"place"`
	Location string           `json:"location"`
	Spots    int              `json:"spots"`
	Type     models.EventType `json:"type"`
	Summary  string           `json:"summary"`
}

type eventDetail struct {
	eventSummary
	Agenda       []string `json:"agenda"`
	Requirements []string `json:"requirements"`
}

func toEventSummary(e *models.Event) eventSummary {
	return eventSummary{
		ID:       e.ID,
		Image:    e.Image,
		Name:     e.Name,
		Date:     e.DateString(),
		Time:     e.Time,
		Place:    e.Place,
		Location: e.Location,
		Spots:    e.Spots,
		Type:     e.Type,
		Summary:  e.Summary,
	}
}

func toEventDetail(e *models.Event) eventDetail {
	c := e.Clone()
	return eventDetail{
		eventSummary: toEventSummary(c),
		Agenda:       c.Agenda,
		Requirements: c.Requirements,
	}
}

type registrationResponse struct {
	ID        string                    `json:"id"`
	EventID   string                    `json:"event_id"`
	FullName  string                    `json:"full_name"`
	StudentID string                    `json:"student_id"`
	Email     string                    `json:"email"`
	Phone     string                    `json:"phone"`
	Career    string                    `json:"career"`
	Semester  int                       `json:"semester"`
	Status    models.RegistrationStatus `json:"status"`
	CreatedAt time.Time                 `json:"created_at"`
}

func toRegistration(r *models.Registration) registrationResponse {
	return registrationResponse{
		ID:        r.ID,
		EventID:   r.EventID,
		FullName:  r.FullName,
		StudentID: r.StudentID,
		Email:     r.Email,
		Phone:     r.Phone,
		Career:    r.Career,
		Semester:  r.Semester,
		Status:    r.Status,
		CreatedAt: r.CreatedAt,
	}
}

func toRegistrations(list []*models.Registration) []registrationResponse {
	out := make([]registrationResponse, 0, len(list))
	for _, r := range list {
		out = append(out, toRegistration(r))
	}
	return out
}

type myRegistrationResponse struct {
	Registration registrationResponse `json:"registration"`
	Event        eventSummary         `json:"event"`
}

type enrollRequest struct {
	EventID string `json:"event_id"`
}

type imageUploadRequest struct {
	FileName string `json:"file_name"`
}

type imageUploadResponse struct {
	EventID   string    `json:"event_id"`
	Key       string    `json:"key"`
	URL       string    `json:"url"`
	Method    string    `json:"method"`
	ExpiresAt time.Time `json:"expires_at"`
}

type eventStatsResponse struct {
	EventID            string `json:"event_id"`
	EventName          string `json:"event_name"`
	TotalRegistrations int    `json:"total_registrations"`
	AvailableSpots     int    `json:"available_spots"`
}

type adminSummaryResponse struct {
	TotalUsers         int                  `json:"total_users"`
	TotalEvents        int                  `json:"total_events"`
	TotalRegistrations int                  `json:"total_registrations"`
	RegistrationsToday int                  `json:"registrations_today"`
	TopEvents          []eventStatsResponse `json:"top_events"`
}

func toAdminSummary(s *models.AdminSummary) adminSummaryResponse {
	out := adminSummaryResponse{
		TotalUsers:         s.TotalUsers,
		TotalEvents:        s.TotalEvents,
		TotalRegistrations: s.TotalRegistrations,
		RegistrationsToday: s.RegistrationsToday,
		TopEvents:          make([]eventStatsResponse, 0, len(s.TopEvents)),
	}
	for _, e := range s.TopEvents {
		out.TopEvents = append(out.TopEvents, eventStatsResponse(e))
	}
	return out
}

type setActiveRequest struct {
	Active *bool `json:"active"`
}
