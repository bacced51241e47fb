package clinic

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// The backend historically returned patient/practitioner/room/service either
// as a bare id string or as an embedded object, and callers still send both.
// Each ref type keeps that duality at the wire boundary; Normalize is the one
// place that resolves it.

const (
	placeholderPatientFirst = "Unknown"
	placeholderPatientLast  = "Patient"
	placeholderPractitioner = "Dr. Unknown"
	placeholderRoom         = "Treatment Room 1"
)

type PatientRef struct {
	ID       uuid.UUID
	Embedded *Patient
}

type PractitionerRef struct {
	ID       uuid.UUID
	Embedded *Practitioner
}

type RoomRef struct {
	ID       uuid.UUID
	Embedded *Room
}

type ServiceRef struct {
	ID       uuid.UUID
	Embedded *ServiceCatalogEntry
}

func refID(id uuid.UUID, embeddedID uuid.UUID, hasEmbedded bool) uuid.UUID {
	if hasEmbedded && embeddedID != uuid.Nil {
		return embeddedID
	}
	return id
}

func (r PatientRef) ResolvedID() uuid.UUID {
	if r.Embedded != nil {
		return refID(r.ID, r.Embedded.ID, true)
	}
	return r.ID
}

func (r PractitionerRef) ResolvedID() uuid.UUID {
	if r.Embedded != nil {
		return refID(r.ID, r.Embedded.ID, true)
	}
	return r.ID
}

func (r RoomRef) ResolvedID() uuid.UUID {
	if r.Embedded != nil {
		return refID(r.ID, r.Embedded.ID, true)
	}
	return r.ID
}

func (r ServiceRef) ResolvedID() uuid.UUID {
	if r.Embedded != nil {
		return refID(r.ID, r.Embedded.ID, true)
	}
	return r.ID
}

// unmarshalRef decodes either a quoted uuid or an embedded object into dst.
// dst must be a pointer to the embedded struct type.
func unmarshalRef(data []byte, dst any) (uuid.UUID, bool, error) {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s == "" {
			return uuid.Nil, false, nil
		}
		id, err := uuid.Parse(s)
		if err != nil {
			return uuid.Nil, false, fmt.Errorf("ref id %q: %w", s, err)
		}
		return id, false, nil
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return uuid.Nil, false, fmt.Errorf("ref object: %w", err)
	}
	return uuid.Nil, true, nil
}

func (r *PatientRef) UnmarshalJSON(data []byte) error {
	var p Patient
	id, embedded, err := unmarshalRef(data, &p)
	if err != nil {
		return err
	}
	if embedded {
		*r = PatientRef{ID: p.ID, Embedded: &p}
		return nil
	}
	*r = PatientRef{ID: id}
	return nil
}

func (r PatientRef) MarshalJSON() ([]byte, error) {
	if r.Embedded != nil {
		return json.Marshal(r.Embedded)
	}
	return json.Marshal(r.ID.String())
}

func (r *PractitionerRef) UnmarshalJSON(data []byte) error {
	var p Practitioner
	id, embedded, err := unmarshalRef(data, &p)
	if err != nil {
		return err
	}
	if embedded {
		*r = PractitionerRef{ID: p.ID, Embedded: &p}
		return nil
	}
	*r = PractitionerRef{ID: id}
	return nil
}

func (r PractitionerRef) MarshalJSON() ([]byte, error) {
	if r.Embedded != nil {
		return json.Marshal(r.Embedded)
	}
	return json.Marshal(r.ID.String())
}

func (r *RoomRef) UnmarshalJSON(data []byte) error {
	var rm Room
	id, embedded, err := unmarshalRef(data, &rm)
	if err != nil {
		return err
	}
	if embedded {
		*r = RoomRef{ID: rm.ID, Embedded: &rm}
		return nil
	}
	*r = RoomRef{ID: id}
	return nil
}

func (r RoomRef) MarshalJSON() ([]byte, error) {
	if r.Embedded != nil {
		return json.Marshal(r.Embedded)
	}
	return json.Marshal(r.ID.String())
}

func (r *ServiceRef) UnmarshalJSON(data []byte) error {
	var s ServiceCatalogEntry
	id, embedded, err := unmarshalRef(data, &s)
	if err != nil {
		return err
	}
	if embedded {
		*r = ServiceRef{ID: s.ID, Embedded: &s}
		return nil
	}
	*r = ServiceRef{ID: id}
	return nil
}

func (r ServiceRef) MarshalJSON() ([]byte, error) {
	if r.Embedded != nil {
		return json.Marshal(r.Embedded)
	}
	return json.Marshal(r.ID.String())
}

// Normalize returns a copy of the appointment whose patient, practitioner and
// room refs are always embedded. Where only an id was available a placeholder
// record is substituted. Pure and idempotent: normalizing twice yields the
// same value, and an already embedded ref passes through untouched.
func Normalize(a Appointment) Appointment {
	if a.Patient.Embedded == nil {
		a.Patient.Embedded = &Patient{
			ID:        a.Patient.ID,
			FirstName: placeholderPatientFirst,
			LastName:  placeholderPatientLast,
		}
	}
	a.Patient.ID = a.Patient.Embedded.ID

	if a.Practitioner.Embedded == nil {
		a.Practitioner.Embedded = &Practitioner{
			ID:   a.Practitioner.ID,
			Name: placeholderPractitioner,
		}
	}
	a.Practitioner.ID = a.Practitioner.Embedded.ID

	if a.Room.Embedded == nil {
		a.Room.Embedded = &Room{
			ID:   a.Room.ID,
			Name: placeholderRoom,
		}
	}
	a.Room.ID = a.Room.Embedded.ID

	return a
}

// PatientName resolves the display name of the appointment's patient,
// falling back to the placeholder when nothing is embedded.
func (a Appointment) PatientName() string {
	if a.Patient.Embedded != nil {
		return a.Patient.Embedded.DisplayName()
	}
	return placeholderPatientFirst + " " + placeholderPatientLast
}
