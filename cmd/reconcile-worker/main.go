package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/clinicore/consultation-service/internal/config"
	"github.com/clinicore/consultation-service/internal/consultation"
	"github.com/clinicore/consultation-service/internal/db"
	"github.com/clinicore/consultation-service/internal/logging"
	"github.com/clinicore/consultation-service/internal/scheduler"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Init("reconcile-worker", "dev")
		log.Fatal().Err(err).Msg("config load error")
	}
	logging.Init("reconcile-worker", cfg.Env)

	log.Info().
		Str("env", cfg.Env).
		Dur("interval", cfg.WorkerInterval).
		Msg("reconcile-worker starting up")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect Postgres
	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		log.Fatal().Err(err).Msg("postgres connection error")
	}
	defer pgPool.Close()
	log.Info().Msg("connected to Postgres")

	// The worker never claims slots, so it runs without the redis locker.
	repo := consultation.NewPgRepository(pgPool)
	svc := consultation.NewService(repo, nil, cfg)

	scheduler.Run(rootCtx, cfg.WorkerInterval, 20*time.Second, "reconcile", svc.Reconcile)
}
