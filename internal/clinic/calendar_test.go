package clinic

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustAppointment(t *testing.T, start string, duration int) Appointment {
	t.Helper()
	ts, err := time.Parse("2006-01-02T15:04:05", start)
	require.NoError(t, err)
	a, err := NewAppointment(ts, duration)
	require.NoError(t, err)
	return *a
}

func TestGeometry(t *testing.T) {
	cases := []struct {
		name     string
		start    string
		duration int
		top      int
		height   int
	}{
		{
			name:     "nine o'clock half hour",
			start:    "2024-01-15T09:00:00",
			duration: 30,
			top:      80,
			height:   40,
		},
		{
			name:     "day start",
			start:    "2024-01-15T08:00:00",
			duration: 60,
			top:      0,
			height:   80,
		},
		{
			name:     "quarter past with uneven duration",
			start:    "2024-01-15T10:30:00",
			duration: 45,
			top:      200,
			height:   60,
		},
		{
			name:     "short visit floors at one row",
			start:    "2024-01-15T14:00:00",
			duration: 10,
			top:      480,
			height:   40,
		},
		{
			name:     "before visible window yields negative top",
			start:    "2024-01-15T07:00:00",
			duration: 30,
			top:      -80,
			height:   40,
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			a := mustAppointment(t, c.start, c.duration)
			top, height := Geometry(a)
			assert.Equal(t, c.top, top)
			assert.Equal(t, c.height, height)
		})
	}
}

func TestGeometryHeightFloor(t *testing.T) {
	// Malformed records keep a clickable height even when the duration
	// field is nonsense.
	a := Appointment{
		Start:           time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC),
		End:             time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC),
		DurationMinutes: 0,
	}
	_, height := Geometry(a)
	assert.Equal(t, RowHeightPx, height)
}

func TestWeekStart(t *testing.T) {
	cases := []struct {
		day      string
		expected string
	}{
		{"2024-01-15", "2024-01-15"}, // a Monday maps to itself
		{"2024-01-17", "2024-01-15"}, // Wednesday
		{"2024-01-21", "2024-01-15"}, // Sunday still belongs to Monday's week
		{"2024-01-22", "2024-01-22"}, // next Monday
	}

	for _, c := range cases {
		day, err := time.Parse("2006-01-02", c.day)
		require.NoError(t, err)
		expected, err := time.Parse("2006-01-02", c.expected)
		require.NoError(t, err)
		assert.Equal(t, expected, WeekStart(day), "week start of %s", c.day)
	}
}

func TestMonthRanges(t *testing.T) {
	date := time.Date(2024, 2, 14, 12, 0, 0, 0, time.UTC)

	from, to := MonthRange(date)
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), from)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), to)

	// February 2024 starts on a Thursday and ends on a Thursday; the
	// display range pads back to Monday Jan 29 and forward through Sunday
	// Mar 3.
	dispFrom, dispTo := MonthDisplayRange(date)
	assert.Equal(t, time.Date(2024, 1, 29, 0, 0, 0, 0, time.UTC), dispFrom)
	assert.Equal(t, time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC), dispTo)
}

func TestInView(t *testing.T) {
	a := mustAppointment(t, "2024-01-31T09:00:00", 30)

	day := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	assert.True(t, InView(a, ViewDay, day))
	assert.False(t, InView(a, ViewDay, day.AddDate(0, 0, 1)))

	// Jan 31 2024 is a Wednesday; its week runs Jan 29 - Feb 4.
	assert.True(t, InView(a, ViewWeek, time.Date(2024, 2, 2, 0, 0, 0, 0, time.UTC)))
	assert.False(t, InView(a, ViewWeek, time.Date(2024, 2, 5, 0, 0, 0, 0, time.UTC)))

	// The padded February display range reaches back to Jan 29, so a
	// Jan 31 appointment shows on the February month grid.
	assert.True(t, InView(a, ViewMonth, time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC)))

	invalid := Appointment{DurationMinutes: 30}
	assert.False(t, InView(invalid, ViewDay, day))
}

func TestProjectDay(t *testing.T) {
	day := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	later := mustAppointment(t, "2024-01-15T11:00:00", 30)
	earlier := mustAppointment(t, "2024-01-15T09:00:00", 60)
	otherDay := mustAppointment(t, "2024-01-16T09:00:00", 30)
	invalid := Appointment{DurationMinutes: 30}

	slots := ProjectDay([]Appointment{later, invalid, otherDay, earlier}, day)

	require.Len(t, slots, 2)
	assert.Equal(t, earlier.ID, slots[0].Appointment.ID)
	assert.Equal(t, 80, slots[0].TopPx)
	assert.Equal(t, 80, slots[0].HeightPx)
	assert.Equal(t, later.ID, slots[1].Appointment.ID)
	assert.Equal(t, 0, slots[1].Column)
}

func TestProjectWeek(t *testing.T) {
	monday := mustAppointment(t, "2024-01-15T08:30:00", 30)
	thursday := mustAppointment(t, "2024-01-18T10:00:00", 30)
	nextWeek := mustAppointment(t, "2024-01-22T08:00:00", 30)

	slots := ProjectWeek([]Appointment{thursday, nextWeek, monday}, time.Date(2024, 1, 17, 0, 0, 0, 0, time.UTC))

	require.Len(t, slots, 2)
	assert.Equal(t, monday.ID, slots[0].Appointment.ID)
	assert.Equal(t, 0, slots[0].Column)
	assert.Equal(t, thursday.ID, slots[1].Appointment.ID)
	assert.Equal(t, 3, slots[1].Column)
}

func TestMonthBuckets(t *testing.T) {
	date := time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC)
	inMonth := mustAppointment(t, "2024-02-10T09:00:00", 30)
	paddedDay := mustAppointment(t, "2024-01-30T09:00:00", 30) // padded week before Feb 1
	outside := mustAppointment(t, "2024-03-10T09:00:00", 30)

	buckets := MonthBuckets([]Appointment{inMonth, paddedDay, outside}, date)

	// Jan 29 through Mar 3 is five full weeks.
	require.Len(t, buckets, 35)
	assert.Equal(t, time.Date(2024, 1, 29, 0, 0, 0, 0, time.UTC), buckets[0].Day)

	var found, foundPadded bool
	for _, b := range buckets {
		for _, a := range b.Appointments {
			switch a.ID {
			case inMonth.ID:
				found = true
				assert.Equal(t, time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC), b.Day)
			case paddedDay.ID:
				foundPadded = true
			case outside.ID:
				t.Fatalf("appointment outside the display range must not be bucketed")
			}
		}
	}
	assert.True(t, found)
	assert.True(t, foundPadded)
}
