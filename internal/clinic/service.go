package clinic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/praxiskit/clinic-scheduling/internal/kv"
	redisclient "github.com/praxiskit/clinic-scheduling/internal/redis"
)

const (
	EventAppointmentCreated       = "APPOINTMENT_CREATED"
	EventAppointmentUpdated       = "APPOINTMENT_UPDATED"
	EventAppointmentStatusChanged = "APPOINTMENT_STATUS_CHANGED"
	EventAppointmentDeleted       = "APPOINTMENT_DELETED"
)

var (
	ErrMissingPatient  = errors.New("appointment requires a patient")
	ErrMissingService  = errors.New("appointment requires a service")
	ErrMissingStart    = errors.New("appointment requires a start time")
	ErrInvalidStatus   = errors.New("unknown appointment status")
	ErrStatusConflict  = errors.New("appointment status changed concurrently")
	ErrAppointmentBusy = errors.New("appointment is currently being updated, please retry")
)

// Service owns the appointment collection and the state derived from it:
// the visit board, calendar projections and the ranked service catalog.
// Derived state is recomputed from the authoritative list on every fetch
// and updated optimistically on every local mutation; the board's version
// counter keeps the two paths from fighting.
type Service struct {
	repo    Repository
	locker  redisclient.Locker
	board   *VisitBoard
	recent  *RecentServices
	log     zerolog.Logger
	fetches atomic.Uint64
}

func NewService(repo Repository, locker redisclient.Locker, store kv.Store, log zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		locker: locker,
		board:  NewVisitBoard(),
		recent: NewRecentServices(store),
		log:    log,
	}
}

func (s *Service) Board() *VisitBoard { return s.board }

// validateDraft enforces the pre-save checks: patient, start time and
// service must be selected before anything reaches storage.
func validateDraft(a *Appointment) error {
	if a.Patient.ResolvedID() == uuid.Nil {
		return ErrMissingPatient
	}
	if a.Start.IsZero() {
		return ErrMissingStart
	}
	if a.Service.ResolvedID() == uuid.Nil {
		return ErrMissingService
	}
	if a.DurationMinutes <= 0 {
		return ErrInvalidDuration
	}
	return nil
}

// CreateAppointment books a new appointment. End is re-derived from start
// plus duration so the construction invariant holds no matter what the
// caller sent.
func (s *Service) CreateAppointment(ctx context.Context, draft *Appointment) (*Appointment, error) {
	if err := validateDraft(draft); err != nil {
		return nil, err
	}
	if err := draft.Reschedule(draft.Start, draft.DurationMinutes); err != nil {
		return nil, err
	}
	if draft.Status == "" {
		draft.Status = StatusPlanned
	}
	if !draft.Status.Valid() {
		return nil, ErrInvalidStatus
	}
	if draft.Channel == "" {
		draft.Channel = ChannelFrontDesk
	}

	created, err := s.repo.CreateAppointment(ctx, draft)
	if err != nil {
		return nil, fmt.Errorf("create appointment: %w", err)
	}

	normalized := Normalize(*created)
	s.board.Apply(normalized)

	s.logEvent(ctx, created.ID, EventAppointmentCreated, map[string]any{
		"patient_id": created.Patient.ResolvedID().String(),
		"service_id": created.Service.ResolvedID().String(),
		"start":      created.Start,
	})

	return &normalized, nil
}

// UpdateAppointment rewrites an existing appointment with the same
// validation and invariant enforcement as creation.
func (s *Service) UpdateAppointment(ctx context.Context, draft *Appointment) (*Appointment, error) {
	if err := validateDraft(draft); err != nil {
		return nil, err
	}
	if err := draft.Reschedule(draft.Start, draft.DurationMinutes); err != nil {
		return nil, err
	}
	if !draft.Status.Valid() {
		return nil, ErrInvalidStatus
	}

	updated, err := s.repo.UpdateAppointment(ctx, draft)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("update appointment: %w", err)
	}

	normalized := Normalize(*updated)
	s.board.Apply(normalized)

	s.logEvent(ctx, updated.ID, EventAppointmentUpdated, map[string]any{
		"start": updated.Start,
	})

	return &normalized, nil
}

// ChangeStatus transitions an appointment and routes it through the visit
// board. The per-appointment lock keeps the status write and the board
// update from interleaving with a concurrent transition on this node;
// across nodes the next authoritative refetch wins.
func (s *Service) ChangeStatus(ctx context.Context, id uuid.UUID, to AppointmentStatus) (*Appointment, error) {
	if !to.Valid() {
		return nil, ErrInvalidStatus
	}

	var result *Appointment

	err := s.locker.WithAppointmentLock(ctx, id, func(lockCtx context.Context) error {
		current, err := s.repo.GetAppointmentByID(lockCtx, id)
		if err != nil {
			return err
		}

		updated, err := s.repo.UpdateAppointmentStatus(lockCtx, id, current.Status, to)
		if err != nil {
			if errors.Is(err, ErrAppointmentNotFound) {
				return ErrStatusConflict
			}
			return fmt.Errorf("transition status: %w", err)
		}

		normalized := Normalize(*updated)
		s.board.Apply(normalized)
		result = &normalized

		s.logEvent(lockCtx, id, EventAppointmentStatusChanged, map[string]any{
			"from": string(current.Status),
			"to":   string(to),
		})
		return nil
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrAppointmentBusy
		}
		return nil, err
	}

	return result, nil
}

// DeleteAppointment soft-removes the record and evicts it from every
// derived list.
func (s *Service) DeleteAppointment(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.SoftDeleteAppointment(ctx, id); err != nil {
		return err
	}
	s.board.Remove(id)
	s.logEvent(ctx, id, EventAppointmentDeleted, map[string]any{})
	return nil
}

func (s *Service) GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	a, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, err
	}
	normalized := Normalize(*a)
	return &normalized, nil
}

// fetchWindow widens the filter's view window to the range worth loading
// from storage. The month view loads the padded display range; the filter
// pipeline then re-restricts to the unpadded month.
func fetchWindow(f Filter) (time.Time, time.Time) {
	if !f.View.Valid() || f.Date.IsZero() {
		now := time.Now()
		return now.AddDate(-1, 0, 0), now.AddDate(1, 0, 0)
	}
	switch f.View {
	case ViewDay:
		from := startOfDay(f.Date)
		return from, from.AddDate(0, 0, 1)
	case ViewWeek:
		from := WeekStart(f.Date)
		return from, from.AddDate(0, 0, 7)
	default:
		return MonthDisplayRange(f.Date)
	}
}

// ListAppointments loads the authoritative collection for the filter's
// window, rebuilds the visit board from it, and returns the filtered view.
func (s *Service) ListAppointments(ctx context.Context, f Filter) ([]Appointment, error) {
	from, to := fetchWindow(f)
	raw, err := s.repo.ListAppointments(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}

	all := make([]Appointment, len(raw))
	for i, a := range raw {
		all[i] = Normalize(a)
	}

	// Authoritative refetch path for the visit board. Only unwindowed
	// fetches see every visit, so only those rebuild.
	if !f.View.Valid() || f.Date.IsZero() {
		version := s.fetches.Add(1)
		if !s.board.Rebuild(version, all) {
			s.log.Debug().Uint64("version", version).Msg("stale visit board snapshot discarded")
		}
	}

	return f.Apply(all), nil
}

// RefreshVisitBoard rebuilds the board from storage, used by the periodic
// worker.
func (s *Service) RefreshVisitBoard(ctx context.Context) error {
	now := time.Now()
	raw, err := s.repo.ListAppointments(ctx, now.AddDate(0, 0, -7), now.AddDate(0, 0, 1))
	if err != nil {
		return fmt.Errorf("load appointments for visit board: %w", err)
	}
	all := make([]Appointment, len(raw))
	for i, a := range raw {
		all[i] = Normalize(a)
	}
	version := s.fetches.Add(1)
	s.board.Rebuild(version, all)
	return nil
}

// CalendarProjection is the server-side rendering model for one calendar
// request. Day and week views carry positioned slots; the month view
// carries day buckets over the padded display range.
type CalendarProjection struct {
	View    View
	Date    time.Time
	Slots   []CalendarSlot
	Buckets []DayBucket
}

func (s *Service) Calendar(ctx context.Context, view View, date time.Time) (*CalendarProjection, error) {
	if !view.Valid() {
		return nil, fmt.Errorf("unknown calendar view %q", view)
	}

	from, to := fetchWindow(Filter{View: view, Date: date})
	raw, err := s.repo.ListAppointments(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("load calendar appointments: %w", err)
	}
	all := make([]Appointment, len(raw))
	for i, a := range raw {
		all[i] = Normalize(a)
	}

	proj := &CalendarProjection{View: view, Date: date}
	switch view {
	case ViewDay:
		proj.Slots = ProjectDay(all, date)
	case ViewWeek:
		proj.Slots = ProjectWeek(all, date)
	case ViewMonth:
		proj.Buckets = MonthBuckets(all, date)
	}
	return proj, nil
}

// ListServices returns the catalog ranked favorites first, then recently
// used, then the rest.
func (s *Service) ListServices(ctx context.Context) ([]ServiceCatalogEntry, error) {
	entries, err := s.repo.ListServiceCatalog(ctx)
	if err != nil {
		return nil, fmt.Errorf("list service catalog: %w", err)
	}
	recent, err := s.recent.List(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("recent services unavailable, ranking favorites only")
		recent = nil
	}
	return RankServices(entries, recent), nil
}

// SelectService resolves a catalog entry into the draft and records the
// selection in the recently-used list.
func (s *Service) SelectService(ctx context.Context, draft *Appointment, serviceID uuid.UUID) error {
	entry, err := s.repo.GetServiceByID(ctx, serviceID)
	if err != nil {
		return err
	}
	if err := ApplyService(draft, *entry); err != nil {
		return err
	}
	if err := s.recent.Record(ctx, serviceID); err != nil {
		// Selection state is convenience only; the booking proceeds.
		s.log.Warn().Err(err).Stringer("service_id", serviceID).Msg("failed to record recent service")
	}
	return nil
}

func (s *Service) GetPatient(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.repo.GetPatientByID(ctx, id)
}

func (s *Service) ListPatients(ctx context.Context, limit, offset int) ([]Patient, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListPatients(ctx, limit, offset)
}

func (s *Service) ListPractitioners(ctx context.Context) ([]Practitioner, error) {
	return s.repo.ListPractitioners(ctx)
}

func (s *Service) ListRooms(ctx context.Context) ([]Room, error) {
	return s.repo.ListRooms(ctx)
}

func (s *Service) logEvent(ctx context.Context, appointmentID uuid.UUID, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.log.Error().Err(err).Str("event", eventType).Msg("failed to marshal event payload")
		data = nil
	}

	apptID := appointmentID

	ev := EventLog{
		EventType:     eventType,
		AppointmentID: &apptID,
		Payload:       data,
		CreatedAt:     time.Now(),
	}

	if err := s.repo.InsertEvent(ctx, ev); err != nil {
		s.log.Error().Err(err).Str("event", eventType).Stringer("appointment_id", appointmentID).Msg("failed to insert event log")
	}
}
