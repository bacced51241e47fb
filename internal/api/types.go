package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/praxiskit/clinic-scheduling/internal/clinic"
)

// AppointmentRequest is the booking/update payload. Patient, practitioner,
// room and service accept either a bare uuid string or an embedded object,
// matching what the calendar UI sends.
type AppointmentRequest struct {
	Start           string                 `json:"start" validate:"required"`
	DurationMinutes int                    `json:"duration_minutes" validate:"required,gt=0"`
	Patient         clinic.PatientRef      `json:"patient"`
	Practitioner    clinic.PractitionerRef `json:"practitioner"`
	Room            clinic.RoomRef         `json:"room"`
	Service         clinic.ServiceRef      `json:"service"`
	Status          string                 `json:"status,omitempty"`
	Channel         string                 `json:"channel,omitempty"`
	Notes           string                 `json:"notes,omitempty"`
}

type StatusChangeRequest struct {
	Status string `json:"status" validate:"required"`
}

type SelectServiceRequest struct {
	Start           string `json:"start,omitempty"`
	DurationMinutes int    `json:"duration_minutes,omitempty"`
}

type AuthTokenRequest struct {
	Token string `json:"token" validate:"required"`
}

type AppointmentResponse struct {
	ID              uuid.UUID              `json:"id"`
	Start           time.Time              `json:"start"`
	End             time.Time              `json:"end"`
	DurationMinutes int                    `json:"duration_minutes"`
	Patient         clinic.PatientRef      `json:"patient"`
	Practitioner    clinic.PractitionerRef `json:"practitioner"`
	Room            clinic.RoomRef         `json:"room"`
	Service         clinic.ServiceRef      `json:"service"`
	Status          string                 `json:"status"`
	Channel         string                 `json:"channel"`
	Color           string                 `json:"color,omitempty"`
	LegacyTypeCode  string                 `json:"legacy_type_code,omitempty"`
	Notes           string                 `json:"notes,omitempty"`
}

func toAppointmentResponse(a clinic.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:              a.ID,
		Start:           a.Start,
		End:             a.End,
		DurationMinutes: a.DurationMinutes,
		Patient:         a.Patient,
		Practitioner:    a.Practitioner,
		Room:            a.Room,
		Service:         a.Service,
		Status:          string(a.Status),
		Channel:         string(a.Channel),
		Color:           a.Color,
		LegacyTypeCode:  a.LegacyTypeCode,
		Notes:           a.Notes,
	}
}

type CalendarSlotResponse struct {
	Appointment AppointmentResponse `json:"appointment"`
	Column      int                 `json:"column"`
	TopPx       int                 `json:"top_px"`
	HeightPx    int                 `json:"height_px"`
}

type DayBucketResponse struct {
	Day          string                `json:"day"`
	Appointments []AppointmentResponse `json:"appointments"`
}

type CalendarResponse struct {
	View  string                 `json:"view"`
	Date  string                 `json:"date"`
	Slots []CalendarSlotResponse `json:"slots,omitempty"`
	Days  []DayBucketResponse    `json:"days,omitempty"`
}

type VisitListEntryResponse struct {
	AppointmentID uuid.UUID `json:"appointment_id"`
	PatientName   string    `json:"patient_name"`
	Phone         string    `json:"phone,omitempty"`
	Reason        string    `json:"reason,omitempty"`
	Priority      string    `json:"priority"`
	EnteredAt     time.Time `json:"entered_at"`
}

func toVisitListResponse(entries []clinic.VisitListEntry) []VisitListEntryResponse {
	out := make([]VisitListEntryResponse, len(entries))
	for i, e := range entries {
		out[i] = VisitListEntryResponse{
			AppointmentID: e.AppointmentID,
			PatientName:   e.PatientName,
			Phone:         e.Phone,
			Reason:        e.Reason,
			Priority:      string(e.Priority),
			EnteredAt:     e.EnteredAt,
		}
	}
	return out
}

type ServiceResponse struct {
	ID              uuid.UUID `json:"id"`
	Code            string    `json:"code"`
	Name            string    `json:"name"`
	DurationMinutes int       `json:"duration_minutes"`
	Color           string    `json:"color,omitempty"`
	PriceCents      int64     `json:"price_cents"`
	BookableOnline  bool      `json:"bookable_online"`
	RequiresRoom    bool      `json:"requires_room"`
	Favorite        bool      `json:"favorite"`
}

func toServiceResponse(s clinic.ServiceCatalogEntry) ServiceResponse {
	return ServiceResponse{
		ID:              s.ID,
		Code:            s.Code,
		Name:            s.Name,
		DurationMinutes: s.DurationMinutes,
		Color:           s.Color,
		PriceCents:      s.PriceCents,
		BookableOnline:  s.BookableOnline,
		RequiresRoom:    s.RequiresRoom,
		Favorite:        s.Favorite,
	}
}

type PatientResponse struct {
	ID            uuid.UUID `json:"id"`
	FirstName     string    `json:"first_name"`
	LastName      string    `json:"last_name"`
	BirthDate     *string   `json:"birth_date,omitempty"`
	Phone         *string   `json:"phone,omitempty"`
	Email         *string   `json:"email,omitempty"`
	Allergies     []string  `json:"allergies,omitempty"`
	Conditions    []string  `json:"conditions,omitempty"`
	Medications   []string  `json:"medications,omitempty"`
	Pregnant      bool      `json:"pregnant"`
	Breastfeeding bool      `json:"breastfeeding"`
	HasImplant    bool      `json:"has_implant"`
}

func toPatientResponse(p clinic.Patient) PatientResponse {
	resp := PatientResponse{
		ID:            p.ID,
		FirstName:     p.FirstName,
		LastName:      p.LastName,
		Phone:         p.Phone,
		Email:         p.Email,
		Allergies:     p.Allergies,
		Conditions:    p.Conditions,
		Medications:   p.Medications,
		Pregnant:      p.Pregnant,
		Breastfeeding: p.Breastfeeding,
		HasImplant:    p.HasImplant,
	}
	if p.BirthDate != nil {
		d := p.BirthDate.Format("2006-01-02")
		resp.BirthDate = &d
	}
	return resp
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
