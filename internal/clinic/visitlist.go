package clinic

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// VisitBoard holds the derived waiting / in-treatment / completed lists.
// An appointment id lives in at most one list at a time. The board is fed
// from two paths that must agree: optimistic updates on every local status
// change, and full rebuilds from the authoritative appointment collection.
// A monotonic version counter on the rebuild path discards snapshots that
// predate a later one, so a slow refetch cannot clobber newer state.
type VisitBoard struct {
	mu          sync.Mutex
	version     uint64
	waiting     []VisitListEntry
	inTreatment []VisitListEntry
	completed   []VisitListEntry
}

func NewVisitBoard() *VisitBoard {
	return &VisitBoard{}
}

func visitEntry(a Appointment, enteredAt time.Time) VisitListEntry {
	e := VisitListEntry{
		AppointmentID: a.ID,
		PatientName:   a.PatientName(),
		Reason:        a.Notes,
		Priority:      PriorityNormal,
		EnteredAt:     enteredAt,
	}
	if a.Patient.Embedded != nil && a.Patient.Embedded.Phone != nil {
		e.Phone = *a.Patient.Embedded.Phone
	}
	if a.Service.Embedded != nil && e.Reason == "" {
		e.Reason = a.Service.Embedded.Name
	}
	return e
}

// Apply routes the appointment into the list matching its status: waiting,
// in_treatment and completed each upsert into their own list and evict from
// the other two; any other status evicts from all three.
func (b *VisitBoard) Apply(a Appointment) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch a.Status {
	case StatusWaiting:
		b.waiting = upsert(b.waiting, a)
		b.inTreatment = remove(b.inTreatment, a.ID)
		b.completed = remove(b.completed, a.ID)
	case StatusInTreatment:
		b.inTreatment = upsert(b.inTreatment, a)
		b.waiting = remove(b.waiting, a.ID)
		b.completed = remove(b.completed, a.ID)
	case StatusCompleted:
		b.completed = upsert(b.completed, a)
		b.waiting = remove(b.waiting, a.ID)
		b.inTreatment = remove(b.inTreatment, a.ID)
	default:
		b.waiting = remove(b.waiting, a.ID)
		b.inTreatment = remove(b.inTreatment, a.ID)
		b.completed = remove(b.completed, a.ID)
	}
}

// Remove evicts the appointment from every list, used when an appointment
// is deleted.
func (b *VisitBoard) Remove(appointmentID uuid.UUID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.waiting = remove(b.waiting, appointmentID)
	b.inTreatment = remove(b.inTreatment, appointmentID)
	b.completed = remove(b.completed, appointmentID)
}

// Rebuild replaces the board from the authoritative appointment collection.
// The snapshot is dropped when its version predates one already applied;
// the return value reports whether it was taken.
func (b *VisitBoard) Rebuild(version uint64, appointments []Appointment) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if version < b.version {
		return false
	}
	b.version = version

	b.waiting = nil
	b.inTreatment = nil
	b.completed = nil
	for _, a := range appointments {
		if a.Deleted {
			continue
		}
		entered := a.UpdatedAt
		if entered.IsZero() {
			entered = time.Now()
		}
		switch a.Status {
		case StatusWaiting:
			b.waiting = append(b.waiting, visitEntry(a, entered))
		case StatusInTreatment:
			b.inTreatment = append(b.inTreatment, visitEntry(a, entered))
		case StatusCompleted:
			b.completed = append(b.completed, visitEntry(a, entered))
		}
	}
	return true
}

// Version returns the latest applied snapshot version.
func (b *VisitBoard) Version() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.version
}

// Waiting returns a copy of the waiting list in insertion order.
func (b *VisitBoard) Waiting() []VisitListEntry {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]VisitListEntry(nil), b.waiting...)
}

func (b *VisitBoard) InTreatment() []VisitListEntry {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]VisitListEntry(nil), b.inTreatment...)
}

func (b *VisitBoard) Completed() []VisitListEntry {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]VisitListEntry(nil), b.completed...)
}

// upsert updates the existing entry in place, preserving its position and
// entered-at timestamp, or appends a fresh one.
func upsert(list []VisitListEntry, a Appointment) []VisitListEntry {
	for i := range list {
		if list[i].AppointmentID == a.ID {
			entered := list[i].EnteredAt
			list[i] = visitEntry(a, entered)
			return list
		}
	}
	return append(list, visitEntry(a, time.Now()))
}

func remove(list []VisitListEntry, id uuid.UUID) []VisitListEntry {
	out := list[:0]
	for _, e := range list {
		if e.AppointmentID != id {
			out = append(out, e)
		}
	}
	return out
}
