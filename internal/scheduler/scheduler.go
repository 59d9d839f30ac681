// Package scheduler runs a job on a fixed cadence. The job is injected, so
// nothing registers itself globally; the worker binary wires the reconcile
// function in explicitly.
package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

type Job func(ctx context.Context) error

// Run executes the job once immediately and then on every tick until the
// context is cancelled. Each run gets its own timeout; a failed run is
// logged and the next tick retries, which is sufficient because the job is
// idempotent.
func Run(ctx context.Context, interval, runTimeout time.Duration, name string, job Job) {
	runOnce(ctx, runTimeout, name, job)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("job", name).Msg("scheduler stopping")
			return
		case <-ticker.C:
			runOnce(ctx, runTimeout, name, job)
		}
	}
}

func runOnce(ctx context.Context, timeout time.Duration, name string, job Job) {
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	if err := job(runCtx); err != nil {
		log.Error().Err(err).Str("job", name).Msg("run failed")
		return
	}
	log.Info().
		Str("job", name).
		Dur("duration", time.Since(start)).
		Msg("run complete")
}
