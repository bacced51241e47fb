package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/praxiskit/clinic-scheduling/internal/clinic"
	redisclient "github.com/praxiskit/clinic-scheduling/internal/redis"
)

var validate = validator.New()

// parseTime accepts the timestamp shapes the calendar UI produces: RFC3339,
// a zoneless local timestamp, or a bare date.
func parseTime(s string) (time.Time, bool) {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func decodeAppointment(r *http.Request) (*clinic.Appointment, string, bool) {
	var req AppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, "could not parse JSON", false
	}
	if err := validate.Struct(req); err != nil {
		return nil, err.Error(), false
	}

	start, ok := parseTime(req.Start)
	if !ok {
		return nil, "start must be a valid timestamp", false
	}

	draft := &clinic.Appointment{
		Start:           start,
		DurationMinutes: req.DurationMinutes,
		Patient:         req.Patient,
		Practitioner:    req.Practitioner,
		Room:            req.Room,
		Service:         req.Service,
		Status:          clinic.AppointmentStatus(req.Status),
		Channel:         clinic.BookingChannel(req.Channel),
		Notes:           req.Notes,
	}
	return draft, "", true
}

func createAppointmentHandler(svc *clinic.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		draft, msg, ok := decodeAppointment(r)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_request_body", msg)
			return
		}

		appt, err := svc.CreateAppointment(r.Context(), draft)
		if err != nil {
			handleAppointmentError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toAppointmentResponse(*appt))
	}
}

func updateAppointmentHandler(svc *clinic.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		draft, msg, ok := decodeAppointment(r)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_request_body", msg)
			return
		}
		draft.ID = id

		appt, err := svc.UpdateAppointment(r.Context(), draft)
		if err != nil {
			handleAppointmentError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(*appt))
	}
}

func getAppointmentHandler(svc *clinic.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		appt, err := svc.GetAppointment(r.Context(), id)
		if err != nil {
			handleAppointmentError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(*appt))
	}
}

func listAppointmentsHandler(svc *clinic.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		f := clinic.Filter{
			Search: q.Get("search"),
			Status: clinic.AppointmentStatus(q.Get("status")),
			View:   clinic.View(q.Get("view")),
		}
		if v := q.Get("service_id"); v != "" {
			id, err := uuid.Parse(v)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_service_id", "service_id must be a valid UUID")
				return
			}
			f.ServiceID = id
		}
		if v := q.Get("patient_id"); v != "" {
			id, err := uuid.Parse(v)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_patient_id", "patient_id must be a valid UUID")
				return
			}
			f.PatientID = id
		}
		if v := q.Get("date"); v != "" {
			date, ok := parseTime(v)
			if !ok {
				writeError(w, http.StatusBadRequest, "invalid_date", "date must be a valid timestamp")
				return
			}
			f.Date = date
		}

		appointments, err := svc.ListAppointments(r.Context(), f)
		if err != nil {
			handleAppointmentError(w, err)
			return
		}

		out := make([]AppointmentResponse, len(appointments))
		for i, a := range appointments {
			out[i] = toAppointmentResponse(a)
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func deleteAppointmentHandler(svc *clinic.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		if err := svc.DeleteAppointment(r.Context(), id); err != nil {
			handleAppointmentError(w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func changeStatusHandler(svc *clinic.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		var req StatusChangeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		if err := validate.Struct(req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", err.Error())
			return
		}

		appt, err := svc.ChangeStatus(r.Context(), id, clinic.AppointmentStatus(req.Status))
		if err != nil {
			handleAppointmentError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(*appt))
	}
}

func calendarHandler(svc *clinic.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		view := clinic.View(q.Get("view"))
		if view == "" {
			view = clinic.ViewDay
		}
		if !view.Valid() {
			writeError(w, http.StatusBadRequest, "invalid_view", "view must be day, week or month")
			return
		}

		date := time.Now()
		if v := q.Get("date"); v != "" {
			parsed, ok := parseTime(v)
			if !ok {
				writeError(w, http.StatusBadRequest, "invalid_date", "date must be a valid timestamp")
				return
			}
			date = parsed
		}

		proj, err := svc.Calendar(r.Context(), view, date)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		resp := CalendarResponse{
			View: string(proj.View),
			Date: proj.Date.Format("2006-01-02"),
		}
		for _, s := range proj.Slots {
			resp.Slots = append(resp.Slots, CalendarSlotResponse{
				Appointment: toAppointmentResponse(s.Appointment),
				Column:      s.Column,
				TopPx:       s.TopPx,
				HeightPx:    s.HeightPx,
			})
		}
		for _, b := range proj.Buckets {
			day := DayBucketResponse{Day: b.Day.Format("2006-01-02")}
			for _, a := range b.Appointments {
				day.Appointments = append(day.Appointments, toAppointmentResponse(a))
			}
			resp.Days = append(resp.Days, day)
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

func visitListHandler(svc *clinic.Service, list string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var entries []clinic.VisitListEntry
		switch list {
		case "waiting":
			entries = svc.Board().Waiting()
		case "in-treatment":
			entries = svc.Board().InTreatment()
		case "completed":
			entries = svc.Board().Completed()
		}
		writeJSON(w, http.StatusOK, toVisitListResponse(entries))
	}
}

func listServicesHandler(svc *clinic.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entries, err := svc.ListServices(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		out := make([]ServiceResponse, len(entries))
		for i, e := range entries {
			out[i] = toServiceResponse(e)
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// selectServiceHandler resolves a catalog entry into a draft appointment:
// default duration, color and legacy code, plus the first pre-assigned room.
// The selection is recorded in the recently-used list as a side effect.
func selectServiceHandler(svc *clinic.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		serviceID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_service_id", "id must be a valid UUID")
			return
		}

		var req SelectServiceRequest
		if r.ContentLength > 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
				return
			}
		}

		draft := &clinic.Appointment{DurationMinutes: req.DurationMinutes}
		if req.Start != "" {
			start, ok := parseTime(req.Start)
			if !ok {
				writeError(w, http.StatusBadRequest, "invalid_start", "start must be a valid timestamp")
				return
			}
			draft.Start = start
		}

		if err := svc.SelectService(r.Context(), draft, serviceID); err != nil {
			handleAppointmentError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(*draft))
	}
}

func listPatientsHandler(svc *clinic.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

		patients, err := svc.ListPatients(r.Context(), limit, offset)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		out := make([]PatientResponse, len(patients))
		for i, p := range patients {
			out[i] = toPatientResponse(p)
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func getPatientHandler(svc *clinic.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", "id must be a valid UUID")
			return
		}

		p, err := svc.GetPatient(r.Context(), id)
		if err != nil {
			handleAppointmentError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toPatientResponse(*p))
	}
}

func listPractitionersHandler(svc *clinic.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		practitioners, err := svc.ListPractitioners(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}
		writeJSON(w, http.StatusOK, practitioners)
	}
}

func listRoomsHandler(svc *clinic.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rooms, err := svc.ListRooms(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}
		writeJSON(w, http.StatusOK, rooms)
	}
}

func saveAuthTokenHandler(tokens *clinic.TokenStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AuthTokenRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		if err := validate.Struct(req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", err.Error())
			return
		}

		if err := tokens.Save(r.Context(), req.Token); err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleAppointmentError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, clinic.ErrMissingPatient),
		errors.Is(err, clinic.ErrMissingService),
		errors.Is(err, clinic.ErrMissingStart),
		errors.Is(err, clinic.ErrInvalidDuration),
		errors.Is(err, clinic.ErrInvalidStatus):
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
	case errors.Is(err, clinic.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	case errors.Is(err, clinic.ErrPatientNotFound):
		writeError(w, http.StatusNotFound, "patient_not_found", err.Error())
	case errors.Is(err, clinic.ErrServiceNotFound):
		writeError(w, http.StatusNotFound, "service_not_found", err.Error())
	case errors.Is(err, clinic.ErrStatusConflict):
		writeError(w, http.StatusConflict, "status_conflict", err.Error())
	case errors.Is(err, clinic.ErrAppointmentBusy),
		errors.Is(err, redisclient.ErrLockNotAcquired):
		writeError(w, http.StatusConflict, "appointment_busy", "appointment is currently being updated, please retry shortly")
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details})
}
