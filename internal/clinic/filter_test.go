package clinic

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func namedAppointment(t *testing.T, name, start string, duration int) Appointment {
	t.Helper()
	a := mustAppointment(t, start, duration)
	first, last := name, ""
	for i := 0; i < len(name); i++ {
		if name[i] == ' ' {
			first, last = name[:i], name[i+1:]
			break
		}
	}
	a.Patient = PatientRef{Embedded: &Patient{ID: uuid.New(), FirstName: first, LastName: last}}
	return a
}

func TestFilterSearch(t *testing.T) {
	mustermann := namedAppointment(t, "Max Mustermann", "2024-01-15T09:00:00", 30)
	schmidt := namedAppointment(t, "Anna Schmidt", "2024-01-15T10:00:00", 30)
	schmidt.Notes = "Patient erschien nicht"

	all := []Appointment{mustermann, schmidt}

	t.Run("matches patient name case-insensitively", func(t *testing.T) {
		for _, needle := range []string{"Mustermann", "mustermann", "MUSTERMANN"} {
			got := Filter{Search: needle}.Apply(all)
			require.Len(t, got, 1, "search %q", needle)
			assert.Equal(t, mustermann.ID, got[0].ID)
		}
	})

	t.Run("matches notes", func(t *testing.T) {
		got := Filter{Search: "erschien"}.Apply(all)
		require.Len(t, got, 1)
		assert.Equal(t, schmidt.ID, got[0].ID)
	})

	t.Run("no match on unrelated text", func(t *testing.T) {
		got := Filter{Search: "Mustermann"}.Apply([]Appointment{schmidt})
		assert.Empty(t, got)
	})

	t.Run("placeholder name is searchable", func(t *testing.T) {
		bare := mustAppointment(t, "2024-01-15T11:00:00", 30)
		got := Filter{Search: "unknown patient"}.Apply([]Appointment{bare})
		assert.Len(t, got, 1)
	})
}

func TestFilterPredicatesAreANDed(t *testing.T) {
	a := namedAppointment(t, "Max Mustermann", "2024-01-15T09:00:00", 30)
	a.Status = StatusWaiting

	got := Filter{Search: "Mustermann", Status: StatusCompleted}.Apply([]Appointment{a})
	assert.Empty(t, got)

	got = Filter{Search: "Mustermann", Status: StatusWaiting}.Apply([]Appointment{a})
	assert.Len(t, got, 1)
}

func TestFilterStatusAndPatient(t *testing.T) {
	waiting := namedAppointment(t, "Max Mustermann", "2024-01-15T09:00:00", 30)
	waiting.Status = StatusWaiting
	planned := namedAppointment(t, "Anna Schmidt", "2024-01-15T10:00:00", 30)
	planned.Status = StatusPlanned

	all := []Appointment{waiting, planned}

	got := Filter{Status: StatusWaiting}.Apply(all)
	require.Len(t, got, 1)
	assert.Equal(t, waiting.ID, got[0].ID)

	got = Filter{PatientID: planned.Patient.ResolvedID()}.Apply(all)
	require.Len(t, got, 1)
	assert.Equal(t, planned.ID, got[0].ID)
}

func TestFilterDateWindow(t *testing.T) {
	jan15 := mustAppointment(t, "2024-01-15T09:00:00", 30) // Monday
	jan19 := mustAppointment(t, "2024-01-19T09:00:00", 30) // Friday same week
	jan30 := mustAppointment(t, "2024-01-30T09:00:00", 30)
	feb02 := mustAppointment(t, "2024-02-02T09:00:00", 30)

	all := []Appointment{jan15, jan19, jan30, feb02}

	t.Run("day view matches the exact calendar day", func(t *testing.T) {
		got := Filter{View: ViewDay, Date: time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)}.Apply(all)
		require.Len(t, got, 1)
		assert.Equal(t, jan15.ID, got[0].ID)
	})

	t.Run("week view is Monday rooted", func(t *testing.T) {
		got := Filter{View: ViewWeek, Date: time.Date(2024, 1, 17, 0, 0, 0, 0, time.UTC)}.Apply(all)
		assert.Len(t, got, 2)
	})

	t.Run("month view uses the unpadded calendar month", func(t *testing.T) {
		// Jan 30 sits in February's padded display range but must not
		// pass the February month filter.
		got := Filter{View: ViewMonth, Date: time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC)}.Apply(all)
		require.Len(t, got, 1)
		assert.Equal(t, feb02.ID, got[0].ID)
	})

	t.Run("invalid time window never matches a dated view", func(t *testing.T) {
		invalid := Appointment{DurationMinutes: 30}
		got := Filter{View: ViewDay, Date: time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)}.Apply([]Appointment{invalid})
		assert.Empty(t, got)
	})
}
