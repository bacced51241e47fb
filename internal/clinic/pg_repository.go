package clinic

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// Helpers

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(
		&p.ID,
		&p.FirstName,
		&p.LastName,
		&p.BirthDate,
		&p.Phone,
		&p.Email,
		&p.Allergies,
		&p.Conditions,
		&p.Medications,
		&p.Pregnant,
		&p.Breastfeeding,
		&p.HasImplant,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}
	return &p, nil
}

func scanPractitioner(row pgx.Row) (*Practitioner, error) {
	var p Practitioner
	err := row.Scan(&p.ID, &p.Name, &p.Specialty, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPractitionerNotFound
		}
		return nil, err
	}
	return &p, nil
}

func scanRoom(row pgx.Row) (*Room, error) {
	var rm Room
	err := row.Scan(&rm.ID, &rm.Name, &rm.CreatedAt, &rm.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}
	return &rm, nil
}

func scanService(row pgx.Row) (*ServiceCatalogEntry, error) {
	var s ServiceCatalogEntry
	err := row.Scan(
		&s.ID,
		&s.Code,
		&s.Name,
		&s.DurationMinutes,
		&s.Color,
		&s.PriceCents,
		&s.BookableOnline,
		&s.RequiresRoom,
		&s.Favorite,
		&s.RoomIDs,
		&s.DeviceIDs,
		&s.StaffIDs,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrServiceNotFound
		}
		return nil, err
	}
	return &s, nil
}

const appointmentColumns = `
	a.id, a.start_time, a.end_time, a.duration_minutes,
	a.patient_id, a.practitioner_id, a.room_id, a.service_id,
	a.status, a.channel, a.color, a.legacy_type_code, a.notes, a.deleted,
	a.created_at, a.updated_at,
	p.id, p.first_name, p.last_name, p.phone,
	d.id, d.name,
	r.id, r.name,
	s.id, s.code, s.name, s.duration_minutes, s.color, s.favorite`

const appointmentJoins = `
	FROM appointments a
	LEFT JOIN patients p ON p.id = a.patient_id
	LEFT JOIN practitioners d ON d.id = a.practitioner_id
	LEFT JOIN rooms r ON r.id = a.room_id
	LEFT JOIN service_catalog s ON s.id = a.service_id`

// scanAppointment hydrates the joined refs when the referenced row still
// exists; otherwise the ref keeps its bare id and Normalize substitutes
// placeholders downstream.
func scanAppointment(row pgx.Row) (*Appointment, error) {
	var (
		a         Appointment
		patientID *uuid.UUID
		practID   *uuid.UUID
		roomID    *uuid.UUID
		serviceID *uuid.UUID
		pID       *uuid.UUID
		pFirst    *string
		pLast     *string
		pPhone    *string
		dID       *uuid.UUID
		dName     *string
		rID       *uuid.UUID
		rName     *string
		sID       *uuid.UUID
		sCode     *string
		sName     *string
		sDuration *int
		sColor    *string
		sFavorite *bool
	)

	err := row.Scan(
		&a.ID, &a.Start, &a.End, &a.DurationMinutes,
		&patientID, &practID, &roomID, &serviceID,
		&a.Status, &a.Channel, &a.Color, &a.LegacyTypeCode, &a.Notes, &a.Deleted,
		&a.CreatedAt, &a.UpdatedAt,
		&pID, &pFirst, &pLast, &pPhone,
		&dID, &dName,
		&rID, &rName,
		&sID, &sCode, &sName, &sDuration, &sColor, &sFavorite,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	if patientID != nil {
		a.Patient.ID = *patientID
	}
	if pID != nil {
		a.Patient.Embedded = &Patient{ID: *pID, Phone: pPhone}
		if pFirst != nil {
			a.Patient.Embedded.FirstName = *pFirst
		}
		if pLast != nil {
			a.Patient.Embedded.LastName = *pLast
		}
	}

	if practID != nil {
		a.Practitioner.ID = *practID
	}
	if dID != nil {
		a.Practitioner.Embedded = &Practitioner{ID: *dID}
		if dName != nil {
			a.Practitioner.Embedded.Name = *dName
		}
	}

	if roomID != nil {
		a.Room.ID = *roomID
	}
	if rID != nil {
		a.Room.Embedded = &Room{ID: *rID}
		if rName != nil {
			a.Room.Embedded.Name = *rName
		}
	}

	if serviceID != nil {
		a.Service.ID = *serviceID
	}
	if sID != nil {
		svc := &ServiceCatalogEntry{ID: *sID}
		if sCode != nil {
			svc.Code = *sCode
		}
		if sName != nil {
			svc.Name = *sName
		}
		if sDuration != nil {
			svc.DurationMinutes = *sDuration
		}
		if sColor != nil {
			svc.Color = *sColor
		}
		if sFavorite != nil {
			svc.Favorite = *sFavorite
		}
		a.Service.Embedded = svc
	}

	return &a, nil
}

// Interface methods

func (r *PgRepository) GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, first_name, last_name, birth_date, phone, email,
		       allergies, conditions, medications,
		       pregnant, breastfeeding, has_implant,
		       created_at, updated_at
		FROM patients
		WHERE id = $1
	`, id)
	return scanPatient(row)
}

func (r *PgRepository) ListPatients(ctx context.Context, limit, offset int) ([]Patient, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, first_name, last_name, birth_date, phone, email,
		       allergies, conditions, medications,
		       pregnant, breastfeeding, has_implant,
		       created_at, updated_at
		FROM patients
		ORDER BY last_name, first_name
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *p)
	}
	return result, rows.Err()
}

func (r *PgRepository) GetPractitionerByID(ctx context.Context, id uuid.UUID) (*Practitioner, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, specialty, created_at, updated_at
		FROM practitioners
		WHERE id = $1
	`, id)
	return scanPractitioner(row)
}

func (r *PgRepository) ListPractitioners(ctx context.Context) ([]Practitioner, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, specialty, created_at, updated_at
		FROM practitioners
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Practitioner
	for rows.Next() {
		p, err := scanPractitioner(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *p)
	}
	return result, rows.Err()
}

func (r *PgRepository) GetRoomByID(ctx context.Context, id uuid.UUID) (*Room, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, created_at, updated_at
		FROM rooms
		WHERE id = $1
	`, id)
	return scanRoom(row)
}

func (r *PgRepository) ListRooms(ctx context.Context) ([]Room, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, created_at, updated_at
		FROM rooms
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Room
	for rows.Next() {
		rm, err := scanRoom(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *rm)
	}
	return result, rows.Err()
}

func (r *PgRepository) GetServiceByID(ctx context.Context, id uuid.UUID) (*ServiceCatalogEntry, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, code, name, duration_minutes, color, price_cents,
		       bookable_online, requires_room, favorite,
		       room_ids, device_ids, staff_ids,
		       created_at, updated_at
		FROM service_catalog
		WHERE id = $1
	`, id)
	return scanService(row)
}

func (r *PgRepository) ListServiceCatalog(ctx context.Context) ([]ServiceCatalogEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, code, name, duration_minutes, color, price_cents,
		       bookable_online, requires_room, favorite,
		       room_ids, device_ids, staff_ids,
		       created_at, updated_at
		FROM service_catalog
		ORDER BY code
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []ServiceCatalogEntry
	for rows.Next() {
		s, err := scanService(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *s)
	}
	return result, rows.Err()
}

func (r *PgRepository) CreateAppointment(ctx context.Context, a *Appointment) (*Appointment, error) {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO appointments (
			id, start_time, end_time, duration_minutes,
			patient_id, practitioner_id, room_id, service_id,
			status, channel, color, legacy_type_code, notes, deleted,
			created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, false, now(), now())
	`,
		a.ID, a.Start, a.End, a.DurationMinutes,
		nilIfZero(a.Patient.ResolvedID()), nilIfZero(a.Practitioner.ResolvedID()),
		nilIfZero(a.Room.ResolvedID()), nilIfZero(a.Service.ResolvedID()),
		a.Status, a.Channel, a.Color, a.LegacyTypeCode, a.Notes,
	)
	if err != nil {
		return nil, fmt.Errorf("insert appointment: %w", err)
	}
	return r.GetAppointmentByID(ctx, a.ID)
}

func (r *PgRepository) UpdateAppointment(ctx context.Context, a *Appointment) (*Appointment, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE appointments
		SET start_time = $2,
		    end_time = $3,
		    duration_minutes = $4,
		    patient_id = $5,
		    practitioner_id = $6,
		    room_id = $7,
		    service_id = $8,
		    status = $9,
		    channel = $10,
		    color = $11,
		    legacy_type_code = $12,
		    notes = $13,
		    updated_at = now()
		WHERE id = $1
		  AND deleted = false
	`,
		a.ID, a.Start, a.End, a.DurationMinutes,
		nilIfZero(a.Patient.ResolvedID()), nilIfZero(a.Practitioner.ResolvedID()),
		nilIfZero(a.Room.ResolvedID()), nilIfZero(a.Service.ResolvedID()),
		a.Status, a.Channel, a.Color, a.LegacyTypeCode, a.Notes,
	)
	if err != nil {
		return nil, fmt.Errorf("update appointment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrAppointmentNotFound
	}
	return r.GetAppointmentByID(ctx, a.ID)
}

func (r *PgRepository) GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+appointmentJoins+`
		WHERE a.id = $1
		  AND a.deleted = false
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) ListAppointments(ctx context.Context, from, to time.Time) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+appointmentJoins+`
		WHERE a.deleted = false
		  AND a.start_time >= $1
		  AND a.start_time < $2
		ORDER BY a.start_time
	`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}
	return result, rows.Err()
}

func (r *PgRepository) UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from, to AppointmentStatus) (*Appointment, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE appointments
		SET status = $2,
		    updated_at = now()
		WHERE id = $1
		  AND status = $3
		  AND deleted = false
	`, id, to, from)
	if err != nil {
		return nil, fmt.Errorf("update appointment status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrAppointmentNotFound
	}
	return r.GetAppointmentByID(ctx, id)
}

func (r *PgRepository) SoftDeleteAppointment(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE appointments
		SET deleted = true,
		    updated_at = now()
		WHERE id = $1
		  AND deleted = false
	`, id)
	if err != nil {
		return fmt.Errorf("soft delete appointment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAppointmentNotFound
	}
	return nil
}

func (r *PgRepository) InsertEvent(ctx context.Context, ev EventLog) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO event_logs (event_type, appointment_id, payload, created_at)
		VALUES ($1, $2, $3, COALESCE($4, now()))
	`, ev.EventType, ev.AppointmentID, ev.Payload, nullableTime(ev.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert event log: %w", err)
	}
	return nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func nilIfZero(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}
