package clinic

import (
	"sort"
	"time"
)

// Calendar grid geometry. The visible day runs 08:00-18:00 in half-hour rows
// of 40px each.
const (
	DayStartHour   = 8
	DayEndHour     = 18
	SlotMinutes    = 30
	RowHeightPx    = 40
	dayStartMinute = DayStartHour * 60
)

type View string

const (
	ViewDay   View = "day"
	ViewWeek  View = "week"
	ViewMonth View = "month"
)

func (v View) Valid() bool {
	return v == ViewDay || v == ViewWeek || v == ViewMonth
}

// CalendarSlot is the geometric projection of one appointment onto the
// day/week grid. Column is the day offset within the projected range
// (always 0 for a single-day projection). Derived on every request, never
// persisted.
type CalendarSlot struct {
	Appointment Appointment
	Column      int
	TopPx       int
	HeightPx    int
}

// Geometry computes the pixel offset and height for an appointment.
// Height is floored at one row so zero-duration or malformed records stay
// visible and clickable.
func Geometry(a Appointment) (topPx, heightPx int) {
	startMin := a.Start.Hour()*60 + a.Start.Minute()
	topPx = (startMin - dayStartMinute) * RowHeightPx / SlotMinutes
	heightPx = a.DurationMinutes * RowHeightPx / SlotMinutes
	if heightPx < RowHeightPx {
		heightPx = RowHeightPx
	}
	return topPx, heightPx
}

// hasValidWindow reports whether the appointment's parsed time window is
// usable. Records failing this are silently excluded from projections
// rather than surfaced as errors.
func hasValidWindow(a Appointment) bool {
	return !a.Start.IsZero() && !a.End.IsZero()
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// startOfDay truncates to midnight in t's location.
func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// WeekStart returns the Monday of the week containing t, at midnight.
func WeekStart(t time.Time) time.Time {
	day := startOfDay(t)
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}

// MonthRange returns the first instant of t's month and the first instant of
// the next month. This is the unpadded range the filter pipeline uses.
func MonthRange(t time.Time) (from, to time.Time) {
	y, m, _ := t.Date()
	from = time.Date(y, m, 1, 0, 0, 0, 0, t.Location())
	return from, from.AddDate(0, 1, 0)
}

// MonthDisplayRange returns the month range padded to full Monday-rooted
// weeks, as rendered by the month grid. Deliberately wider than MonthRange:
// the filter pipeline keeps the unpadded month while the grid shows the
// padded one.
func MonthDisplayRange(t time.Time) (from, to time.Time) {
	first, next := MonthRange(t)
	from = WeekStart(first)
	last := next.AddDate(0, 0, -1)
	to = WeekStart(last).AddDate(0, 0, 7)
	return from, to
}

// InView reports whether the appointment belongs to the window anchored at
// date for the given view. Day and week views match on the start day; month
// view matches the padded display range.
func InView(a Appointment, view View, date time.Time) bool {
	if !hasValidWindow(a) {
		return false
	}
	switch view {
	case ViewDay:
		return sameDay(a.Start, date)
	case ViewWeek:
		from := WeekStart(date)
		to := from.AddDate(0, 0, 7)
		return !a.Start.Before(from) && a.Start.Before(to)
	case ViewMonth:
		from, to := MonthDisplayRange(date)
		return !a.Start.Before(from) && a.Start.Before(to)
	}
	return false
}

// ProjectDay lays the appointments of a single day onto grid geometry,
// ordered by start time. Invalid time windows are skipped.
func ProjectDay(appointments []Appointment, day time.Time) []CalendarSlot {
	slots := make([]CalendarSlot, 0, len(appointments))
	for _, a := range appointments {
		if !hasValidWindow(a) || !sameDay(a.Start, day) {
			continue
		}
		top, height := Geometry(a)
		slots = append(slots, CalendarSlot{
			Appointment: a,
			Column:      0,
			TopPx:       top,
			HeightPx:    height,
		})
	}
	sort.Slice(slots, func(i, j int) bool {
		return slots[i].Appointment.Start.Before(slots[j].Appointment.Start)
	})
	return slots
}

// ProjectWeek lays appointments onto a Monday-rooted 7-column grid.
func ProjectWeek(appointments []Appointment, date time.Time) []CalendarSlot {
	from := WeekStart(date)
	to := from.AddDate(0, 0, 7)

	slots := make([]CalendarSlot, 0, len(appointments))
	for _, a := range appointments {
		if !hasValidWindow(a) {
			continue
		}
		if a.Start.Before(from) || !a.Start.Before(to) {
			continue
		}
		top, height := Geometry(a)
		slots = append(slots, CalendarSlot{
			Appointment: a,
			Column:      daysBetween(from, startOfDay(a.Start)),
			TopPx:       top,
			HeightPx:    height,
		})
	}
	sort.Slice(slots, func(i, j int) bool {
		if slots[i].Column != slots[j].Column {
			return slots[i].Column < slots[j].Column
		}
		return slots[i].Appointment.Start.Before(slots[j].Appointment.Start)
	})
	return slots
}

// MonthBuckets groups appointments by calendar day over the padded month
// display range. Days without appointments still get an entry so the grid
// renders a full cell for them.
func MonthBuckets(appointments []Appointment, date time.Time) []DayBucket {
	from, to := MonthDisplayRange(date)
	nDays := daysBetween(from, to)

	buckets := make([]DayBucket, nDays)
	for i := range buckets {
		buckets[i].Day = from.AddDate(0, 0, i)
	}
	for _, a := range appointments {
		if !hasValidWindow(a) {
			continue
		}
		if a.Start.Before(from) || !a.Start.Before(to) {
			continue
		}
		idx := daysBetween(from, startOfDay(a.Start))
		buckets[idx].Appointments = append(buckets[idx].Appointments, a)
	}
	for i := range buckets {
		b := buckets[i].Appointments
		sort.Slice(b, func(x, y int) bool { return b[x].Start.Before(b[y].Start) })
	}
	return buckets
}

type DayBucket struct {
	Day          time.Time
	Appointments []Appointment
}

func daysBetween(from, to time.Time) int {
	days := 0
	for d := from; d.Before(to); d = d.AddDate(0, 0, 1) {
		days++
	}
	return days
}
