package main

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/clinicore/consultation-service/internal/config"
	"github.com/clinicore/consultation-service/internal/db"
	"github.com/clinicore/consultation-service/internal/identity"
	"github.com/clinicore/consultation-service/internal/logging"
)

// Load simulator: patients race to self-register for open slots while other
// callers browse the listing. Useful for watching the conditional claim hold
// up under contention.

type simPool struct {
	patients      []uuid.UUID // user ids of patient accounts
	consultations []uuid.UUID // open slot ids
}

func main() {
	logging.Init("simulate", "dev")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load error")
	}
	if cfg.JWTSecret == "" {
		log.Fatal().Msg("JWT_SECRET is required")
	}

	baseURL := os.Getenv("API_BASE_URL")
	if baseURL == "" {
		baseURL = "http://127.0.0.1:" + cfg.HTTPPort
	}

	duration := 30 * time.Second
	if v := os.Getenv("SIM_DURATION"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			duration = d
		}
	}
	workers := 8

	ctx, cancel := context.WithTimeout(context.Background(), duration+30*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("connect postgres")
	}
	defer pool.Close()

	data, err := loadSimPool(ctx, pool)
	if err != nil {
		log.Fatal().Err(err).Msg("load simulation data")
	}
	if len(data.patients) == 0 || len(data.consultations) == 0 {
		log.Fatal().Msg("run cmd/seed first: need patients and open consultations")
	}

	log.Info().
		Int("patients", len(data.patients)).
		Int("open_slots", len(data.consultations)).
		Dur("duration", duration).
		Msg("simulation starting")

	var browses, registers, failures atomic.Int64
	client := &http.Client{Timeout: 5 * time.Second}
	deadline := time.Now().Add(duration)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))

			for time.Now().Before(deadline) {
				userID := data.patients[rng.Intn(len(data.patients))]
				token, err := identity.SignToken(cfg.JWTSecret, userID, time.Minute)
				if err != nil {
					failures.Add(1)
					continue
				}

				if rng.Float64() < 0.7 {
					slotID := data.consultations[rng.Intn(len(data.consultations))]
					if doRequest(client, http.MethodPost, fmt.Sprintf("%s/consultations/%s/register", baseURL, slotID), token) {
						registers.Add(1)
					} else {
						failures.Add(1)
					}
				} else {
					if doRequest(client, http.MethodGet, baseURL+"/consultations", token) {
						browses.Add(1)
					} else {
						failures.Add(1)
					}
				}
			}
		}(int64(i) + time.Now().UnixNano())
	}
	wg.Wait()

	claimed, err := countClaimed(ctx, pool, data.consultations)
	if err != nil {
		log.Error().Err(err).Msg("count claimed slots")
	}

	log.Info().
		Int64("browses", browses.Load()).
		Int64("register_attempts", registers.Load()).
		Int64("failures", failures.Load()).
		Int("slots_claimed", claimed).
		Msg("simulation complete")
}

func doRequest(client *http.Client, method, url, token string) bool {
	req, err := http.NewRequest(method, url, nil)
	if err != nil {
		return false
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode < 500
}

func loadSimPool(ctx context.Context, pool *pgxpool.Pool) (*simPool, error) {
	data := &simPool{}

	rows, err := pool.Query(ctx, `
		SELECT u.id FROM users u JOIN patients p ON p.user_id = u.id LIMIT 500
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		data.patients = append(data.patients, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	slotRows, err := pool.Query(ctx, `
		SELECT id FROM consultations WHERE patient_id IS NULL AND start_date > now() LIMIT 1000
	`)
	if err != nil {
		return nil, err
	}
	defer slotRows.Close()
	for slotRows.Next() {
		var id uuid.UUID
		if err := slotRows.Scan(&id); err != nil {
			return nil, err
		}
		data.consultations = append(data.consultations, id)
	}

	return data, slotRows.Err()
}

func countClaimed(ctx context.Context, pool *pgxpool.Pool, ids []uuid.UUID) (int, error) {
	var n int
	err := pool.QueryRow(ctx, `
		SELECT count(*) FROM consultations WHERE id = ANY($1) AND patient_id IS NOT NULL
	`, ids).Scan(&n)
	return n, err
}
