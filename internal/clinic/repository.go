package clinic

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrPatientNotFound      = errors.New("patient not found")
	ErrPractitionerNotFound = errors.New("practitioner not found")
	ErrRoomNotFound         = errors.New("room not found")
	ErrServiceNotFound      = errors.New("service catalog entry not found")
	ErrAppointmentNotFound  = errors.New("appointment not found")
)

// Repository contains all DB interactions needed by the service.
type Repository interface {
	GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	ListPatients(ctx context.Context, limit, offset int) ([]Patient, error)

	GetPractitionerByID(ctx context.Context, id uuid.UUID) (*Practitioner, error)
	ListPractitioners(ctx context.Context) ([]Practitioner, error)

	GetRoomByID(ctx context.Context, id uuid.UUID) (*Room, error)
	ListRooms(ctx context.Context) ([]Room, error)

	GetServiceByID(ctx context.Context, id uuid.UUID) (*ServiceCatalogEntry, error)
	ListServiceCatalog(ctx context.Context) ([]ServiceCatalogEntry, error)

	CreateAppointment(ctx context.Context, a *Appointment) (*Appointment, error)
	UpdateAppointment(ctx context.Context, a *Appointment) (*Appointment, error)
	GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error)

	// ListAppointments returns all live appointments whose start falls in
	// [from, to). The in-memory filter pipeline runs on top of this.
	ListAppointments(ctx context.Context, from, to time.Time) ([]Appointment, error)

	// UpdateAppointmentStatus performs a compare-and-set on the previous
	// status so concurrent transitions cannot silently overwrite each other.
	UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from, to AppointmentStatus) (*Appointment, error)

	// SoftDeleteAppointment marks the record deleted; it stays out of every
	// listing from then on.
	SoftDeleteAppointment(ctx context.Context, id uuid.UUID) error

	InsertEvent(ctx context.Context, ev EventLog) error
}
