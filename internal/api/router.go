package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/praxiskit/clinic-scheduling/internal/clinic"
)

type RouterConfig struct {
	Service     *clinic.Service
	Tokens      *clinic.TokenStore
	PgPool      *pgxpool.Pool
	Redis       *redis.Client
	Log         zerolog.Logger
	Env         string
	Version     string
	RateLimit   int
	CORSOrigins []string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	if cfg.RateLimit > 0 {
		r.Use(httprate.LimitByIP(cfg.RateLimit, time.Minute))
	}

	// Health endpoints
	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	// Appointment endpoints
	r.Post("/appointments", createAppointmentHandler(cfg.Service))
	r.Get("/appointments", listAppointmentsHandler(cfg.Service))
	r.Get("/appointments/{id}", getAppointmentHandler(cfg.Service))
	r.Put("/appointments/{id}", updateAppointmentHandler(cfg.Service))
	r.Delete("/appointments/{id}", deleteAppointmentHandler(cfg.Service))
	r.Post("/appointments/{id}/status", changeStatusHandler(cfg.Service))

	// Calendar projection
	r.Get("/calendar", calendarHandler(cfg.Service))

	// Derived visit lists
	r.Get("/visits/waiting", visitListHandler(cfg.Service, "waiting"))
	r.Get("/visits/in-treatment", visitListHandler(cfg.Service, "in-treatment"))
	r.Get("/visits/completed", visitListHandler(cfg.Service, "completed"))

	// Service catalog
	r.Get("/service-catalog", listServicesHandler(cfg.Service))
	r.Post("/service-catalog/{id}/select", selectServiceHandler(cfg.Service))

	// Reference data
	r.Get("/patients", listPatientsHandler(cfg.Service))
	r.Get("/patients/{id}", getPatientHandler(cfg.Service))
	r.Get("/practitioners", listPractitionersHandler(cfg.Service))
	r.Get("/rooms", listRoomsHandler(cfg.Service))

	// Session settings
	r.Put("/settings/auth-token", saveAuthTokenHandler(cfg.Tokens))

	return r
}
