package consultation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// StatusAt computes the time-derived status for a consultation: ended means
// completed, underway means started, otherwise the stored status stands.
func StatusAt(c Consultation, now time.Time) Status {
	if c.EndDate.Before(now) {
		return StatusCompleted
	}
	if !c.StartDate.After(now) {
		return StatusStarted
	}
	return c.Status
}

// PruneExpired deletes unclaimed slots still in the created status whose
// start has passed. Each delete re-checks eligibility in the store, so a
// slot claimed between scan and delete survives. Per-record failures are
// logged and skipped.
func (s *Service) PruneExpired(ctx context.Context) error {
	now := s.now()

	candidates, err := s.repo.FindExpiredUnclaimed(ctx, now)
	if err != nil {
		return fmt.Errorf("find expired unclaimed consultations: %w", err)
	}

	for _, c := range candidates {
		deleted, err := s.repo.DeleteIfUnclaimedExpired(ctx, c.ID, now)
		if err != nil {
			log.Error().
				Err(err).
				Str("consultation_id", c.ID.String()).
				Msg("prune consultation")
			continue
		}
		if !deleted {
			continue
		}
		s.logEvent(ctx, c.ID, EventConsultationPruned, map[string]any{
			"start_date": c.StartDate,
		})
	}

	return nil
}

// MarkElapsed recomputes every consultation's status from the current time
// and writes only the ones that changed, keeping repeated runs no-ops.
// Per-record failures are logged and skipped.
func (s *Service) MarkElapsed(ctx context.Context) error {
	now := s.now()

	all, err := s.repo.ListForReconcile(ctx)
	if err != nil {
		return fmt.Errorf("list consultations for reconcile: %w", err)
	}

	for _, c := range all {
		next := StatusAt(c, now)
		if next == c.Status {
			continue
		}
		if err := s.repo.SetConsultationStatus(ctx, c.ID, next); err != nil {
			if errors.Is(err, ErrConsultationNotFound) {
				continue
			}
			log.Error().
				Err(err).
				Str("consultation_id", c.ID.String()).
				Str("status", string(next)).
				Msg("reconcile consultation status")
			continue
		}
		s.logEvent(ctx, c.ID, EventStatusReconciled, map[string]any{
			"from": string(c.Status),
			"to":   string(next),
		})
	}

	return nil
}

// Reconcile is the periodic job: prune stale unclaimed slots, then bring
// every remaining status in line with the clock. Pruning runs first so a
// stale created slot disappears instead of being marked started or
// completed by the same run; each pass reads storage truth and the
// composition is idempotent.
func (s *Service) Reconcile(ctx context.Context) error {
	if err := s.PruneExpired(ctx); err != nil {
		return err
	}
	return s.MarkElapsed(ctx)
}
