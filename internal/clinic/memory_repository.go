package clinic

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository is an in-process Repository for tests and local demos
// without Postgres.
type MemoryRepository struct {
	mu            sync.RWMutex
	patients      map[uuid.UUID]Patient
	practitioners map[uuid.UUID]Practitioner
	rooms         map[uuid.UUID]Room
	services      map[uuid.UUID]ServiceCatalogEntry
	appointments  map[uuid.UUID]Appointment
	events        []EventLog
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		patients:      make(map[uuid.UUID]Patient),
		practitioners: make(map[uuid.UUID]Practitioner),
		rooms:         make(map[uuid.UUID]Room),
		services:      make(map[uuid.UUID]ServiceCatalogEntry),
		appointments:  make(map[uuid.UUID]Appointment),
	}
}

func (r *MemoryRepository) PutPatient(p Patient) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.patients[p.ID] = p
}

func (r *MemoryRepository) PutPractitioner(p Practitioner) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.practitioners[p.ID] = p
}

func (r *MemoryRepository) PutRoom(rm Room) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rooms[rm.ID] = rm
}

func (r *MemoryRepository) PutService(s ServiceCatalogEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.services[s.ID] = s
}

// Events returns a copy of the recorded event log.
func (r *MemoryRepository) Events() []EventLog {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]EventLog(nil), r.events...)
}

func (r *MemoryRepository) GetPatientByID(_ context.Context, id uuid.UUID) (*Patient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.patients[id]
	if !ok {
		return nil, ErrPatientNotFound
	}
	return &p, nil
}

func (r *MemoryRepository) ListPatients(_ context.Context, limit, offset int) ([]Patient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]Patient, 0, len(r.patients))
	for _, p := range r.patients {
		all = append(all, p)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].LastName != all[j].LastName {
			return all[i].LastName < all[j].LastName
		}
		return all[i].FirstName < all[j].FirstName
	})

	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

func (r *MemoryRepository) GetPractitionerByID(_ context.Context, id uuid.UUID) (*Practitioner, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.practitioners[id]
	if !ok {
		return nil, ErrPractitionerNotFound
	}
	return &p, nil
}

func (r *MemoryRepository) ListPractitioners(_ context.Context) ([]Practitioner, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	all := make([]Practitioner, 0, len(r.practitioners))
	for _, p := range r.practitioners {
		all = append(all, p)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })
	return all, nil
}

func (r *MemoryRepository) GetRoomByID(_ context.Context, id uuid.UUID) (*Room, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rm, ok := r.rooms[id]
	if !ok {
		return nil, ErrRoomNotFound
	}
	return &rm, nil
}

func (r *MemoryRepository) ListRooms(_ context.Context) ([]Room, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	all := make([]Room, 0, len(r.rooms))
	for _, rm := range r.rooms {
		all = append(all, rm)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })
	return all, nil
}

func (r *MemoryRepository) GetServiceByID(_ context.Context, id uuid.UUID) (*ServiceCatalogEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.services[id]
	if !ok {
		return nil, ErrServiceNotFound
	}
	return &s, nil
}

func (r *MemoryRepository) ListServiceCatalog(_ context.Context) ([]ServiceCatalogEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	all := make([]ServiceCatalogEntry, 0, len(r.services))
	for _, s := range r.services {
		all = append(all, s)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Code < all[j].Code })
	return all, nil
}

// hydrate mirrors the SQL joins: refs pick up embedded objects when the
// referenced record exists.
func (r *MemoryRepository) hydrate(a Appointment) Appointment {
	if p, ok := r.patients[a.Patient.ResolvedID()]; ok {
		pc := p
		a.Patient.Embedded = &pc
	}
	if d, ok := r.practitioners[a.Practitioner.ResolvedID()]; ok {
		dc := d
		a.Practitioner.Embedded = &dc
	}
	if rm, ok := r.rooms[a.Room.ResolvedID()]; ok {
		rc := rm
		a.Room.Embedded = &rc
	}
	if s, ok := r.services[a.Service.ResolvedID()]; ok {
		sc := s
		a.Service.Embedded = &sc
	}
	return a
}

func (r *MemoryRepository) CreateAppointment(_ context.Context, a *Appointment) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	now := time.Now()
	stored := *a
	stored.CreatedAt = now
	stored.UpdatedAt = now
	r.appointments[stored.ID] = stored

	out := r.hydrate(stored)
	return &out, nil
}

func (r *MemoryRepository) UpdateAppointment(_ context.Context, a *Appointment) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.appointments[a.ID]
	if !ok || existing.Deleted {
		return nil, ErrAppointmentNotFound
	}
	stored := *a
	stored.CreatedAt = existing.CreatedAt
	stored.UpdatedAt = time.Now()
	r.appointments[stored.ID] = stored

	out := r.hydrate(stored)
	return &out, nil
}

func (r *MemoryRepository) GetAppointmentByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.appointments[id]
	if !ok || a.Deleted {
		return nil, ErrAppointmentNotFound
	}
	out := r.hydrate(a)
	return &out, nil
}

func (r *MemoryRepository) ListAppointments(_ context.Context, from, to time.Time) ([]Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []Appointment
	for _, a := range r.appointments {
		if a.Deleted {
			continue
		}
		if a.Start.Before(from) || !a.Start.Before(to) {
			continue
		}
		result = append(result, r.hydrate(a))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Start.Before(result[j].Start) })
	return result, nil
}

func (r *MemoryRepository) UpdateAppointmentStatus(_ context.Context, id uuid.UUID, from, to AppointmentStatus) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.appointments[id]
	if !ok || a.Deleted || a.Status != from {
		return nil, ErrAppointmentNotFound
	}
	a.Status = to
	a.UpdatedAt = time.Now()
	r.appointments[id] = a

	out := r.hydrate(a)
	return &out, nil
}

func (r *MemoryRepository) SoftDeleteAppointment(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.appointments[id]
	if !ok || a.Deleted {
		return ErrAppointmentNotFound
	}
	a.Deleted = true
	a.UpdatedAt = time.Now()
	r.appointments[id] = a
	return nil
}

func (r *MemoryRepository) InsertEvent(_ context.Context, ev EventLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ev.ID = int64(len(r.events) + 1)
	r.events = append(r.events, ev)
	return nil
}
