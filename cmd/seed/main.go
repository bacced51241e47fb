package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/praxiskit/clinic-scheduling/internal/db"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Str("service", "seed").Logger()

func main() {
	logger.Info().Msg("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		logger.Fatal().Msg("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect postgres")
	}
	defer pool.Close()

	gofakeit.Seed(time.Now().UnixNano())

	if err := seedPractitioners(context.Background(), pool, 20); err != nil {
		logger.Fatal().Err(err).Msg("seed practitioners")
	}
	if err := seedRooms(context.Background(), pool, 8); err != nil {
		logger.Fatal().Err(err).Msg("seed rooms")
	}
	if err := seedServiceCatalog(context.Background(), pool); err != nil {
		logger.Fatal().Err(err).Msg("seed service catalog")
	}
	if err := seedPatients(context.Background(), pool, 2000); err != nil {
		logger.Fatal().Err(err).Msg("seed patients")
	}

	logger.Info().Msg("seed complete")
}

func seedPractitioners(ctx context.Context, pool *pgxpool.Pool, count int) error {
	logger.Info().Int("count", count).Msg("seeding practitioners")

	specialties := []string{
		"Dermatology",
		"Cardiology",
		"General Practice",
		"Orthopedics",
		"Endocrinology",
		"Neurology",
		"Pediatrics",
		"Gynecology",
		"Ophthalmology",
		"ENT",
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for i := 0; i < count; i++ {
		id := uuid.New()
		name := "Dr. " + gofakeit.Name()
		spec := specialties[gofakeit.Number(0, len(specialties)-1)]

		_, err := tx.Exec(ctx, `
			INSERT INTO practitioners (id, name, specialty, created_at, updated_at)
			VALUES ($1, $2, $3, now(), now())
		`, id, name, spec)
		if err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	logger.Info().Msg("practitioners seeded")
	return nil
}

func seedRooms(ctx context.Context, pool *pgxpool.Pool, count int) error {
	logger.Info().Int("count", count).Msg("seeding rooms")

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for i := 1; i <= count; i++ {
		_, err := tx.Exec(ctx, `
			INSERT INTO rooms (id, name, created_at, updated_at)
			VALUES ($1, $2, now(), now())
		`, uuid.New(), fmt.Sprintf("Treatment Room %d", i))
		if err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	logger.Info().Msg("rooms seeded")
	return nil
}

func seedServiceCatalog(ctx context.Context, pool *pgxpool.Pool) error {
	type entry struct {
		code     string
		name     string
		duration int
		color    string
		price    int64
		online   bool
		room     bool
		favorite bool
	}

	entries := []entry{
		{"GP-01", "Initial Consultation", 30, "#4f8df7", 6500, true, true, true},
		{"GP-02", "Follow-up Consultation", 15, "#4f8df7", 3500, true, true, true},
		{"GP-03", "Telephone Consultation", 10, "#9aa7b8", 2000, true, false, false},
		{"LAB-01", "Blood Draw", 10, "#e05c5c", 1800, false, true, true},
		{"LAB-02", "Full Blood Panel", 15, "#e05c5c", 7400, false, true, false},
		{"IMG-01", "Ultrasound Abdomen", 30, "#57c27a", 9800, false, true, false},
		{"IMG-02", "X-Ray", 20, "#57c27a", 8200, false, true, false},
		{"DERM-01", "Skin Screening", 30, "#d9a441", 5600, true, true, false},
		{"VAC-01", "Vaccination", 10, "#8a6fd1", 2400, true, false, true},
		{"CHK-01", "Annual Check-up", 45, "#4f8df7", 12000, true, true, false},
	}

	logger.Info().Int("count", len(entries)).Msg("seeding service catalog")

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, e := range entries {
		_, err := tx.Exec(ctx, `
			INSERT INTO service_catalog (
				id, code, name, duration_minutes, color, price_cents,
				bookable_online, requires_room, favorite,
				room_ids, device_ids, staff_ids, created_at, updated_at
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, '{}', '{}', '{}', now(), now())
		`, uuid.New(), e.code, e.name, e.duration, e.color, e.price, e.online, e.room, e.favorite)
		if err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	logger.Info().Msg("service catalog seeded")
	return nil
}

func seedPatients(ctx context.Context, pool *pgxpool.Pool, count int) error {
	logger.Info().Int("count", count).Msg("seeding patients")

	const batchSize = 500

	allergies := []string{"penicillin", "pollen", "latex", "nuts", "iodine"}
	conditions := []string{"hypertension", "diabetes type 2", "asthma", "hypothyroidism"}

	for offset := 0; offset < count; offset += batchSize {
		end := offset + batchSize
		if end > count {
			end = count
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}

		for i := offset; i < end; i++ {
			id := uuid.New()
			first := gofakeit.FirstName()
			last := gofakeit.LastName()
			email := gofakeit.Email()
			phone := gofakeit.Phone()
			birth := gofakeit.DateRange(
				time.Date(1935, 1, 1, 0, 0, 0, 0, time.UTC),
				time.Date(2018, 12, 31, 0, 0, 0, 0, time.UTC),
			)

			var pAllergies, pConditions []string
			if gofakeit.Number(0, 4) == 0 {
				pAllergies = append(pAllergies, allergies[gofakeit.Number(0, len(allergies)-1)])
			}
			if gofakeit.Number(0, 3) == 0 {
				pConditions = append(pConditions, conditions[gofakeit.Number(0, len(conditions)-1)])
			}

			_, err := tx.Exec(ctx, `
				INSERT INTO patients (
					id, first_name, last_name, birth_date, phone, email,
					allergies, conditions, medications,
					pregnant, breastfeeding, has_implant,
					created_at, updated_at
				)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, '{}', false, false, $9, now(), now())
			`, id, first, last, birth, phone, email, pAllergies, pConditions, gofakeit.Number(0, 9) == 0)
			if err != nil {
				_ = tx.Rollback(ctx)
				return err
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return err
		}

		logger.Info().Int("seeded", end).Int("total", count).Msg("patients batch committed")
	}

	logger.Info().Msg("patients seeded")
	return nil
}
