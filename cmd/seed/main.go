package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/clinicore/consultation-service/internal/consultation"
	"github.com/clinicore/consultation-service/internal/db"
	"github.com/clinicore/consultation-service/internal/logging"
)

func main() {
	logging.Init("seed", "dev")
	log.Info().Msg("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal().Msg("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		log.Fatal().Err(err).Msg("connect postgres")
	}
	defer pool.Close()

	gofakeit.Seed(time.Now().UnixNano())

	seedCtx := context.Background()

	clinics, err := seedClinics(seedCtx, pool, 5)
	if err != nil {
		log.Fatal().Err(err).Msg("seed clinics")
	}
	doctors, err := seedDoctors(seedCtx, pool, 40)
	if err != nil {
		log.Fatal().Err(err).Msg("seed doctors")
	}
	if err := seedPatients(seedCtx, pool, 400); err != nil {
		log.Fatal().Err(err).Msg("seed patients")
	}
	if err := seedConsultations(seedCtx, pool, clinics, doctors, 600); err != nil {
		log.Fatal().Err(err).Msg("seed consultations")
	}

	log.Info().Msg("seed complete")
}

func seedClinics(ctx context.Context, pool *pgxpool.Pool, count int) ([]uuid.UUID, error) {
	log.Info().Int("count", count).Msg("seeding clinics")

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	ids := make([]uuid.UUID, 0, count)
	for i := 0; i < count; i++ {
		id := uuid.New()

		_, err := tx.Exec(ctx, `
			INSERT INTO clinics (id, name, legal_address, actual_address, created_at, updated_at)
			VALUES ($1, $2, $3, $4, now(), now())
		`, id, gofakeit.Company()+" Clinic", gofakeit.Address().Address, gofakeit.Address().Address)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	return ids, tx.Commit(ctx)
}

var specialities = []string{
	"Dermatology",
	"Cardiology",
	"General Practice",
	"Orthopedics",
	"Endocrinology",
	"Neurology",
	"Pediatrics",
	"Psychiatry",
	"Ophthalmology",
	"ENT",
}

func seedDoctors(ctx context.Context, pool *pgxpool.Pool, count int) ([]uuid.UUID, error) {
	log.Info().Int("count", count).Msg("seeding doctors")

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	ids := make([]uuid.UUID, 0, count)
	for i := 0; i < count; i++ {
		userID := uuid.New()
		doctorID := uuid.New()
		email := fmt.Sprintf("doctor%d.%s", i, gofakeit.Email())

		_, err := tx.Exec(ctx, `
			INSERT INTO users (id, email, first_name, middle_name, last_name, role, is_staff, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, 'doctor', false, now(), now())
		`, userID, email, gofakeit.FirstName(), gofakeit.MiddleName(), gofakeit.LastName())
		if err != nil {
			return nil, err
		}

		spec := specialities[gofakeit.Number(0, len(specialities)-1)]
		_, err = tx.Exec(ctx, `
			INSERT INTO doctors (id, user_id, speciality, created_at, updated_at)
			VALUES ($1, $2, $3, now(), now())
		`, doctorID, userID, spec)
		if err != nil {
			return nil, err
		}
		ids = append(ids, doctorID)
	}

	return ids, tx.Commit(ctx)
}

func seedPatients(ctx context.Context, pool *pgxpool.Pool, count int) error {
	log.Info().Int("count", count).Msg("seeding patients")

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for i := 0; i < count; i++ {
		userID := uuid.New()
		email := fmt.Sprintf("patient%d.%s", i, gofakeit.Email())

		_, err := tx.Exec(ctx, `
			INSERT INTO users (id, email, first_name, middle_name, last_name, role, is_staff, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, 'patient', false, now(), now())
		`, userID, email, gofakeit.FirstName(), gofakeit.MiddleName(), gofakeit.LastName())
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO patients (id, user_id, phone, created_at, updated_at)
			VALUES ($1, $2, $3, now(), now())
		`, uuid.New(), userID, gofakeit.Phone())
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// seedConsultations creates open slots spread over the next two weeks.
func seedConsultations(ctx context.Context, pool *pgxpool.Pool, clinics, doctors []uuid.UUID, count int) error {
	log.Info().Int("count", count).Msg("seeding consultations")

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	now := time.Now()
	for i := 0; i < count; i++ {
		clinic := clinics[gofakeit.Number(0, len(clinics)-1)]
		doctor := doctors[gofakeit.Number(0, len(doctors)-1)]

		start := now.
			Add(time.Duration(gofakeit.Number(1, 14*24)) * time.Hour).
			Truncate(30 * time.Minute)
		end := start.Add(30 * time.Minute)

		_, err := tx.Exec(ctx, `
			INSERT INTO consultations (id, clinic_id, doctor_id, patient_id, status, start_date, end_date, created_at)
			VALUES ($1, $2, $3, NULL, $4, $5, $6, now())
		`, uuid.New(), clinic, doctor, consultation.StatusCreated, start, end)
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}
