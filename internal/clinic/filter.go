package clinic

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Filter carries the appointment list filters as picked in the UI. Zero
// values mean "no restriction". Kept as a domain type so handlers and the
// repository layer share one shape.
type Filter struct {
	Search    string
	Status    AppointmentStatus
	ServiceID uuid.UUID
	PatientID uuid.UUID
	View      View
	Date      time.Time
}

// Apply runs the filter over the collection. Predicates are ANDed; every
// predicate is evaluated for each appointment even after one has failed,
// which keeps the individual predicates observable in isolation.
func (f Filter) Apply(appointments []Appointment) []Appointment {
	out := make([]Appointment, 0, len(appointments))
	for _, a := range appointments {
		matched := f.matchSearch(a)
		matched = f.matchStatus(a) && matched
		matched = f.matchService(a) && matched
		matched = f.matchPatient(a) && matched
		matched = f.matchWindow(a) && matched
		if matched {
			out = append(out, a)
		}
	}
	return out
}

// matchSearch matches case-insensitively against the resolved patient
// display name and the notes field.
func (f Filter) matchSearch(a Appointment) bool {
	if f.Search == "" {
		return true
	}
	needle := strings.ToLower(f.Search)
	if strings.Contains(strings.ToLower(a.PatientName()), needle) {
		return true
	}
	return strings.Contains(strings.ToLower(a.Notes), needle)
}

func (f Filter) matchStatus(a Appointment) bool {
	return f.Status == "" || a.Status == f.Status
}

func (f Filter) matchService(a Appointment) bool {
	return f.ServiceID == uuid.Nil || a.Service.ResolvedID() == f.ServiceID
}

func (f Filter) matchPatient(a Appointment) bool {
	return f.PatientID == uuid.Nil || a.Patient.ResolvedID() == f.PatientID
}

// matchWindow evaluates the date window per the active view. The month
// predicate uses the plain calendar month, not the padded display range the
// month grid renders.
func (f Filter) matchWindow(a Appointment) bool {
	if !f.View.Valid() || f.Date.IsZero() {
		return true
	}
	if !hasValidWindow(a) {
		return false
	}
	switch f.View {
	case ViewDay:
		return sameDay(a.Start, f.Date)
	case ViewWeek:
		from := WeekStart(f.Date)
		to := from.AddDate(0, 0, 7)
		return !a.Start.Before(from) && a.Start.Before(to)
	case ViewMonth:
		from, to := MonthRange(f.Date)
		return !a.Start.Before(from) && a.Start.Before(to)
	}
	return true
}
