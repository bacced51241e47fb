package clinic

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	StatusPlanned     AppointmentStatus = "planned"
	StatusConfirmed   AppointmentStatus = "confirmed"
	StatusWaiting     AppointmentStatus = "waiting"
	StatusInTreatment AppointmentStatus = "in_treatment"
	StatusCompleted   AppointmentStatus = "completed"
	StatusCancelled   AppointmentStatus = "cancelled"
	StatusRescheduled AppointmentStatus = "rescheduled"
)

func (s AppointmentStatus) Valid() bool {
	switch s {
	case StatusPlanned, StatusConfirmed, StatusWaiting, StatusInTreatment,
		StatusCompleted, StatusCancelled, StatusRescheduled:
		return true
	}
	return false
}

type BookingChannel string

const (
	ChannelFrontDesk BookingChannel = "front_desk"
	ChannelOnline    BookingChannel = "online"
	ChannelPhone     BookingChannel = "phone"
)

type VisitPriority string

const (
	PriorityNormal VisitPriority = "normal"
	PriorityUrgent VisitPriority = "urgent"
)

var ErrInvalidDuration = errors.New("appointment duration must be a positive number of minutes")

type Patient struct {
	ID            uuid.UUID
	FirstName     string
	LastName      string
	BirthDate     *time.Time
	Phone         *string
	Email         *string
	Allergies     []string
	Conditions    []string
	Medications   []string
	Pregnant      bool
	Breastfeeding bool
	HasImplant    bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (p Patient) DisplayName() string {
	switch {
	case p.FirstName == "" && p.LastName == "":
		return ""
	case p.FirstName == "":
		return p.LastName
	case p.LastName == "":
		return p.FirstName
	}
	return p.FirstName + " " + p.LastName
}

type Practitioner struct {
	ID        uuid.UUID
	Name      string
	Specialty *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Room struct {
	ID        uuid.UUID
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type ServiceCatalogEntry struct {
	ID              uuid.UUID
	Code            string
	Name            string
	DurationMinutes int
	Color           string
	PriceCents      int64
	BookableOnline  bool
	RequiresRoom    bool
	Favorite        bool
	RoomIDs         []uuid.UUID
	DeviceIDs       []uuid.UUID
	StaffIDs        []uuid.UUID
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Appointment is the authoritative scheduling record. Patient, practitioner,
// room and service arrive from callers either as bare ids or as embedded
// objects; Normalize settles them into embedded form.
type Appointment struct {
	ID              uuid.UUID
	Start           time.Time
	End             time.Time
	DurationMinutes int
	Patient         PatientRef
	Practitioner    PractitionerRef
	Room            RoomRef
	Service         ServiceRef
	Status          AppointmentStatus
	Channel         BookingChannel
	Color           string
	LegacyTypeCode  string
	Notes           string
	Deleted         bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// NewAppointment derives End from Start plus duration so the
// end = start + duration invariant holds from construction on.
func NewAppointment(start time.Time, durationMinutes int) (*Appointment, error) {
	if durationMinutes <= 0 {
		return nil, ErrInvalidDuration
	}
	return &Appointment{
		ID:              uuid.New(),
		Start:           start,
		End:             start.Add(time.Duration(durationMinutes) * time.Minute),
		DurationMinutes: durationMinutes,
		Status:          StatusPlanned,
		Channel:         ChannelFrontDesk,
	}, nil
}

// Reschedule moves the time window, keeping End consistent with Start.
func (a *Appointment) Reschedule(start time.Time, durationMinutes int) error {
	if durationMinutes <= 0 {
		return ErrInvalidDuration
	}
	a.Start = start
	a.DurationMinutes = durationMinutes
	a.End = start.Add(time.Duration(durationMinutes) * time.Minute)
	return nil
}

// VisitListEntry is a projection of an Appointment shown on the waiting,
// in-treatment and completed boards. Not independently persisted.
type VisitListEntry struct {
	AppointmentID uuid.UUID
	PatientName   string
	Phone         string
	Reason        string
	Priority      VisitPriority
	EnteredAt     time.Time
}

type EventLog struct {
	ID            int64
	EventType     string
	AppointmentID *uuid.UUID
	Payload       []byte
	CreatedAt     time.Time
}
