package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/praxiskit/clinic-scheduling/internal/clinic"
	"github.com/praxiskit/clinic-scheduling/internal/kv"
	redisclient "github.com/praxiskit/clinic-scheduling/internal/redis"
)

type apiFixture struct {
	router  http.Handler
	repo    *clinic.MemoryRepository
	patient clinic.Patient
	entry   clinic.ServiceCatalogEntry
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	repo := clinic.NewMemoryRepository()

	phone := "+49 30 1234567"
	patient := clinic.Patient{ID: uuid.New(), FirstName: "Max", LastName: "Mustermann", Phone: &phone}
	entry := clinic.ServiceCatalogEntry{
		ID:              uuid.New(),
		Code:            "GP-01",
		Name:            "Allgemeine Untersuchung",
		DurationMinutes: 30,
		Color:           "#2e7d32",
	}
	repo.PutPatient(patient)
	repo.PutPractitioner(clinic.Practitioner{ID: uuid.New(), Name: "Dr. Weber"})
	repo.PutRoom(clinic.Room{ID: uuid.New(), Name: "Treatment Room 2"})
	repo.PutService(entry)

	store := kv.NewMemoryStore()
	svc := clinic.NewService(repo, redisclient.NoopLocker{}, store, zerolog.Nop())

	router := NewRouter(RouterConfig{
		Service: svc,
		Tokens:  clinic.NewTokenStore(store),
		Log:     zerolog.Nop(),
		Env:     "test",
		Version: "test",
	})

	return &apiFixture{router: router, repo: repo, patient: patient, entry: entry}
}

func (f *apiFixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *apiFixture) createAppointment(t *testing.T, start string) AppointmentResponse {
	t.Helper()

	rec := f.do(t, http.MethodPost, "/appointments", map[string]any{
		"start":            start,
		"duration_minutes": 30,
		"patient":          f.patient.ID.String(),
		"service":          f.entry.ID.String(),
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp AppointmentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestCreateAppointment(t *testing.T) {
	f := newAPIFixture(t)

	resp := f.createAppointment(t, "2024-01-15T09:00:00Z")

	assert.Equal(t, 30, resp.DurationMinutes)
	assert.Equal(t, resp.Start.Add(30*time.Minute), resp.End)
	assert.Equal(t, "planned", resp.Status)
	require.NotNil(t, resp.Patient.Embedded)
	assert.Equal(t, "Mustermann", resp.Patient.Embedded.LastName)
}

func TestCreateAppointmentRejectsBadPayloads(t *testing.T) {
	f := newAPIFixture(t)

	tests := []struct {
		name string
		body map[string]any
	}{
		{"missing start", map[string]any{
			"duration_minutes": 30,
			"patient":          f.patient.ID.String(),
			"service":          f.entry.ID.String(),
		}},
		{"zero duration", map[string]any{
			"start":   "2024-01-15T09:00:00Z",
			"patient": f.patient.ID.String(),
			"service": f.entry.ID.String(),
		}},
		{"unparseable start", map[string]any{
			"start":            "whenever",
			"duration_minutes": 30,
			"patient":          f.patient.ID.String(),
			"service":          f.entry.ID.String(),
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, "/appointments", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestCreateAppointmentMissingPatient(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPost, "/appointments", map[string]any{
		"start":            "2024-01-15T09:00:00Z",
		"duration_minutes": 30,
		"service":          f.entry.ID.String(),
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var errResp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errResp))
	assert.Equal(t, "validation_failed", errResp.Error)
}

func TestGetAppointment(t *testing.T) {
	f := newAPIFixture(t)
	created := f.createAppointment(t, "2024-01-15T09:00:00Z")

	rec := f.do(t, http.MethodGet, "/appointments/"+created.ID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/appointments/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodGet, "/appointments/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStatusChangeFlowsIntoVisitLists(t *testing.T) {
	f := newAPIFixture(t)
	created := f.createAppointment(t, "2024-01-15T09:00:00Z")

	rec := f.do(t, http.MethodPost, fmt.Sprintf("/appointments/%s/status", created.ID), StatusChangeRequest{Status: "waiting"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = f.do(t, http.MethodGet, "/visits/waiting", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var waiting []VisitListEntryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &waiting))
	require.Len(t, waiting, 1)
	assert.Equal(t, created.ID, waiting[0].AppointmentID)
	assert.Equal(t, "Max Mustermann", waiting[0].PatientName)

	rec = f.do(t, http.MethodPost, fmt.Sprintf("/appointments/%s/status", created.ID), StatusChangeRequest{Status: "in_treatment"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/visits/waiting", nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &waiting))
	assert.Empty(t, waiting)

	var treating []VisitListEntryResponse
	rec = f.do(t, http.MethodGet, "/visits/in-treatment", nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &treating))
	require.Len(t, treating, 1)
	assert.Equal(t, created.ID, treating[0].AppointmentID)
}

func TestStatusChangeRejectsUnknownStatus(t *testing.T) {
	f := newAPIFixture(t)
	created := f.createAppointment(t, "2024-01-15T09:00:00Z")

	rec := f.do(t, http.MethodPost, fmt.Sprintf("/appointments/%s/status", created.ID), StatusChangeRequest{Status: "teleported"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteAppointment(t *testing.T) {
	f := newAPIFixture(t)
	created := f.createAppointment(t, "2024-01-15T09:00:00Z")

	rec := f.do(t, http.MethodDelete, "/appointments/"+created.ID.String(), nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = f.do(t, http.MethodGet, "/appointments/"+created.ID.String(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCalendarDayGeometry(t *testing.T) {
	f := newAPIFixture(t)
	f.createAppointment(t, "2024-01-15T09:00:00Z")

	rec := f.do(t, http.MethodGet, "/calendar?view=day&date=2024-01-15", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp CalendarResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "day", resp.View)
	require.Len(t, resp.Slots, 1)
	assert.Equal(t, 80, resp.Slots[0].TopPx)
	assert.Equal(t, 40, resp.Slots[0].HeightPx)
}

func TestCalendarMonthBuckets(t *testing.T) {
	f := newAPIFixture(t)
	f.createAppointment(t, "2024-01-15T09:00:00Z")

	rec := f.do(t, http.MethodGet, "/calendar?view=month&date=2024-01-15", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp CalendarResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Empty(t, resp.Slots)
	require.NotEmpty(t, resp.Days)

	var found bool
	for _, d := range resp.Days {
		if d.Day == "2024-01-15" {
			found = true
			assert.Len(t, d.Appointments, 1)
		}
	}
	assert.True(t, found, "booked day missing from month grid")
}

func TestCalendarRejectsUnknownView(t *testing.T) {
	f := newAPIFixture(t)
	rec := f.do(t, http.MethodGet, "/calendar?view=agenda", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListAppointmentsFilter(t *testing.T) {
	f := newAPIFixture(t)

	// Anchored near now so the unwindowed search fetch sees both bookings.
	day1 := time.Now().UTC().AddDate(0, 0, 1)
	day2 := day1.AddDate(0, 0, 1)
	f.createAppointment(t, day1.Format("2006-01-02")+"T09:00:00Z")
	f.createAppointment(t, day2.Format("2006-01-02")+"T10:00:00Z")

	rec := f.do(t, http.MethodGet, "/appointments?view=day&date="+day1.Format("2006-01-02"), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var list []AppointmentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list, 1)

	rec = f.do(t, http.MethodGet, "/appointments?search=mustermann", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list, 2)

	rec = f.do(t, http.MethodGet, "/appointments?patient_id=not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSelectService(t *testing.T) {
	f := newAPIFixture(t)

	path := fmt.Sprintf("/service-catalog/%s/select", f.entry.ID)
	rec := f.do(t, http.MethodPost, path, SelectServiceRequest{Start: "2024-01-15T09:00:00Z"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp AppointmentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 30, resp.DurationMinutes)
	assert.Equal(t, "GP-01", resp.LegacyTypeCode)
	assert.Equal(t, "#2e7d32", resp.Color)

	rec = f.do(t, http.MethodPost, fmt.Sprintf("/service-catalog/%s/select", uuid.NewString()), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListServicesRanked(t *testing.T) {
	f := newAPIFixture(t)

	extra := clinic.ServiceCatalogEntry{ID: uuid.New(), Code: "PT-02", Name: "Physiotherapie", DurationMinutes: 45}
	f.repo.PutService(extra)

	rec := f.do(t, http.MethodPost, fmt.Sprintf("/service-catalog/%s/select", extra.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/service-catalog", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var services []ServiceResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &services))
	require.Len(t, services, 2)
	assert.Equal(t, extra.ID, services[0].ID, "recently selected service ranks first")
}

func TestPatientEndpoints(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodGet, "/patients", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var patients []PatientResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &patients))
	require.Len(t, patients, 1)
	assert.Equal(t, f.patient.ID, patients[0].ID)

	rec = f.do(t, http.MethodGet, "/patients/"+f.patient.ID.String(), nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/patients/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSaveAuthToken(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPut, "/settings/auth-token", AuthTokenRequest{Token: "bearer-abc"})
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = f.do(t, http.MethodPut, "/settings/auth-token", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
