package clinic

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	t.Run("substitutes placeholders for bare ids", func(t *testing.T) {
		a := Appointment{
			Patient:      PatientRef{ID: uuid.New()},
			Practitioner: PractitionerRef{ID: uuid.New()},
			Room:         RoomRef{ID: uuid.New()},
		}

		n := Normalize(a)

		require.NotNil(t, n.Patient.Embedded)
		assert.Equal(t, "Unknown Patient", n.Patient.Embedded.DisplayName())
		require.NotNil(t, n.Practitioner.Embedded)
		assert.Equal(t, "Dr. Unknown", n.Practitioner.Embedded.Name)
		require.NotNil(t, n.Room.Embedded)
		assert.Equal(t, "Treatment Room 1", n.Room.Embedded.Name)
	})

	t.Run("keeps embedded data untouched", func(t *testing.T) {
		patient := &Patient{ID: uuid.New(), FirstName: "Max", LastName: "Mustermann"}
		a := Appointment{Patient: PatientRef{Embedded: patient}}

		n := Normalize(a)

		assert.Equal(t, "Max Mustermann", n.Patient.Embedded.DisplayName())
		assert.Equal(t, patient.ID, n.Patient.ID)
	})

	t.Run("is idempotent", func(t *testing.T) {
		a := Appointment{
			Patient:      PatientRef{ID: uuid.New()},
			Practitioner: PractitionerRef{Embedded: &Practitioner{ID: uuid.New(), Name: "Dr. Weber"}},
		}

		once := Normalize(a)
		twice := Normalize(once)

		assert.Equal(t, once, twice)
	})
}

func TestRefUnmarshal(t *testing.T) {
	id := uuid.New()

	t.Run("bare id string", func(t *testing.T) {
		var ref PatientRef
		err := json.Unmarshal([]byte(`"`+id.String()+`"`), &ref)
		require.NoError(t, err)
		assert.Equal(t, id, ref.ID)
		assert.Nil(t, ref.Embedded)
	})

	t.Run("embedded object", func(t *testing.T) {
		raw := `{"ID":"` + id.String() + `","FirstName":"Erika","LastName":"Musterfrau"}`
		var ref PatientRef
		err := json.Unmarshal([]byte(raw), &ref)
		require.NoError(t, err)
		require.NotNil(t, ref.Embedded)
		assert.Equal(t, id, ref.ID)
		assert.Equal(t, "Erika Musterfrau", ref.Embedded.DisplayName())
	})

	t.Run("empty string leaves nil ref", func(t *testing.T) {
		var ref RoomRef
		err := json.Unmarshal([]byte(`""`), &ref)
		require.NoError(t, err)
		assert.Equal(t, uuid.Nil, ref.ID)
	})

	t.Run("invalid id is rejected", func(t *testing.T) {
		var ref ServiceRef
		err := json.Unmarshal([]byte(`"not-a-uuid"`), &ref)
		assert.Error(t, err)
	})
}

func TestRefMarshal(t *testing.T) {
	id := uuid.New()

	t.Run("id only marshals as string", func(t *testing.T) {
		out, err := json.Marshal(PractitionerRef{ID: id})
		require.NoError(t, err)
		assert.JSONEq(t, `"`+id.String()+`"`, string(out))
	})

	t.Run("embedded marshals as object", func(t *testing.T) {
		out, err := json.Marshal(RoomRef{ID: id, Embedded: &Room{ID: id, Name: "Treatment Room 2"}})
		require.NoError(t, err)
		assert.Contains(t, string(out), "Treatment Room 2")
	})
}

func TestAppointmentEndInvariant(t *testing.T) {
	start := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)

	a, err := NewAppointment(start, 30)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 15, 9, 30, 0, 0, time.UTC), a.End)

	require.NoError(t, a.Reschedule(start, 45))
	assert.Equal(t, start.Add(45*time.Minute), a.End)
	assert.Equal(t, 45, a.DurationMinutes)

	_, err = NewAppointment(start, 0)
	assert.ErrorIs(t, err, ErrInvalidDuration)
	assert.ErrorIs(t, a.Reschedule(start, -15), ErrInvalidDuration)
}
