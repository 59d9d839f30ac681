package consultation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusAt(t *testing.T) {
	now := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		start  time.Time
		end    time.Time
		status Status
		want   Status
	}{
		{
			name:   "ended consultation becomes completed",
			start:  now.Add(-2 * time.Hour),
			end:    now.Add(-90 * time.Minute),
			status: StatusConfirmed,
			want:   StatusCompleted,
		},
		{
			name:   "underway consultation becomes started",
			start:  now.Add(-10 * time.Minute),
			end:    now.Add(20 * time.Minute),
			status: StatusConfirmed,
			want:   StatusStarted,
		},
		{
			name:   "start exactly now counts as started",
			start:  now,
			end:    now.Add(30 * time.Minute),
			status: StatusPending,
			want:   StatusStarted,
		},
		{
			name:   "future consultation keeps its status",
			start:  now.Add(time.Hour),
			end:    now.Add(90 * time.Minute),
			status: StatusPending,
			want:   StatusPending,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Consultation{Status: tt.status, StartDate: tt.start, EndDate: tt.end}
			assert.Equal(t, tt.want, StatusAt(c, now))
		})
	}
}

func TestReconcileTransitions(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	ended := f.addConsultation(f.doctor.ID, &f.patient.ID, StatusConfirmed, f.now.Add(-2*time.Hour))
	underway := f.addConsultation(f.doctor.ID, &f.patient.ID, StatusConfirmed, f.now.Add(-10*time.Minute))
	future := f.addConsultation(f.doctor.ID, &f.patient.ID, StatusConfirmed, f.now.Add(time.Hour))

	require.NoError(t, f.svc.Reconcile(ctx))

	assert.Equal(t, StatusCompleted, f.repo.consultations[ended.ID].Status)
	assert.Equal(t, StatusStarted, f.repo.consultations[underway.ID].Status)
	assert.Equal(t, StatusConfirmed, f.repo.consultations[future.ID].Status)
}

func TestReconcileIdempotent(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.addConsultation(f.doctor.ID, &f.patient.ID, StatusConfirmed, f.now.Add(-2*time.Hour))
	f.addConsultation(f.doctor.ID, &f.patient.ID, StatusConfirmed, f.now.Add(-10*time.Minute))
	f.addConsultation(f.doctor.ID, nil, StatusCreated, f.now.Add(-time.Hour))

	require.NoError(t, f.svc.Reconcile(ctx))

	snapshot := make(map[string]Status)
	for id, c := range f.repo.consultations {
		snapshot[id.String()] = c.Status
	}
	eventsAfterFirst := len(f.repo.events)

	// Second run with no elapsed time must not change or log anything.
	require.NoError(t, f.svc.Reconcile(ctx))

	assert.Len(t, f.repo.consultations, len(snapshot))
	for id, c := range f.repo.consultations {
		assert.Equal(t, snapshot[id.String()], c.Status)
	}
	assert.Equal(t, eventsAfterFirst, len(f.repo.events))
}

func TestPruneDeletesOnlyStaleCreated(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	stale := f.addConsultation(f.doctor.ID, nil, StatusCreated, f.now.Add(-time.Hour))
	pending := f.addConsultation(f.doctor.ID, nil, StatusPending, f.now.Add(-time.Hour))
	futureOpen := f.addConsultation(f.doctor.ID, nil, StatusCreated, f.now.Add(time.Hour))

	require.NoError(t, f.svc.Reconcile(ctx))

	_, ok := f.repo.consultations[stale.ID]
	assert.False(t, ok, "stale created slot should be pruned")

	kept, ok := f.repo.consultations[pending.ID]
	require.True(t, ok, "pending slot with the same timestamps must survive")
	// MarkElapsed still applies time-derived status to the survivor.
	assert.Equal(t, StatusCompleted, kept.Status)

	_, ok = f.repo.consultations[futureOpen.ID]
	assert.True(t, ok, "future open slot must survive")
}

func TestReconcileIsolatesPerRecordFailures(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	broken := f.addConsultation(f.doctor.ID, &f.patient.ID, StatusConfirmed, f.now.Add(-2*time.Hour))
	healthy := f.addConsultation(f.doctor.ID, &f.patient.ID, StatusConfirmed, f.now.Add(-90*time.Minute))
	f.repo.failStatusFor[broken.ID] = true

	require.NoError(t, f.svc.Reconcile(ctx))

	assert.Equal(t, StatusConfirmed, f.repo.consultations[broken.ID].Status)
	assert.Equal(t, StatusCompleted, f.repo.consultations[healthy.ID].Status)
}

func TestPruneSkipsSlotClaimedBetweenScanAndDelete(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	// Claimed slots are never eligible even if status lags at created.
	c := f.addConsultation(f.doctor.ID, &f.patient.ID, StatusCreated, f.now.Add(-time.Hour))

	require.NoError(t, f.svc.PruneExpired(ctx))

	_, ok := f.repo.consultations[c.ID]
	assert.True(t, ok)
}
