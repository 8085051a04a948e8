package cron

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/lunamercado/storefront-backend/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

type stubExpirer struct {
	batches []int
	err     error
	calls   int
}

func (s *stubExpirer) ExpireDue(ctx context.Context, batch int) (int, error) {
	if s.calls < len(s.batches) {
		released := s.batches[s.calls]
		s.calls++
		return released, s.err
	}
	s.calls++
	return 0, s.err
}

type stubPruner struct {
	pruned int64
	err    error
	cutoff time.Time
}

func (s *stubPruner) DeleteTerminalBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	s.cutoff = cutoff
	return s.pruned, s.err
}

func newSweepJob(t *testing.T, expirer *stubExpirer, pruner *stubPruner, batch int) Job {
	t.Helper()
	job, err := NewReservationSweepJob(ReservationSweepJobParams{
		Logger:       testLogger(),
		Reservations: expirer,
		Pruner:       pruner,
		BatchSize:    batch,
	})
	if err != nil {
		t.Fatalf("new sweep job: %v", err)
	}
	return job
}

func TestSweepDrainsFullBatches(t *testing.T) {
	t.Parallel()

	// Two full batches then a partial one: the job keeps going until the
	// backlog is drained.
	expirer := &stubExpirer{batches: []int{5, 5, 2}}
	job := newSweepJob(t, expirer, &stubPruner{}, 5)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if expirer.calls != 3 {
		t.Fatalf("expected 3 expire calls, got %d", expirer.calls)
	}
}

func TestSweepCombinesPhaseErrors(t *testing.T) {
	t.Parallel()

	expireErr := errors.New("expire boom")
	pruneErr := errors.New("prune boom")
	expirer := &stubExpirer{err: expireErr}
	pruner := &stubPruner{err: pruneErr}
	job := newSweepJob(t, expirer, pruner, 5)

	err := job.Run(context.Background())
	if err == nil {
		t.Fatal("expected combined error")
	}
	// A failed expiry phase must not stop the retention phase.
	if !errors.Is(err, expireErr) || !errors.Is(err, pruneErr) {
		t.Fatalf("expected both phase errors, got %v", err)
	}
}

func TestSweepPruneCutoff(t *testing.T) {
	t.Parallel()

	pruner := &stubPruner{pruned: 7}
	job := newSweepJob(t, &stubExpirer{}, pruner, 5)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	wantBefore := time.Now().UTC().Add(-terminalRetentionDays * 24 * time.Hour)
	if pruner.cutoff.After(wantBefore.Add(time.Minute)) || pruner.cutoff.Before(wantBefore.Add(-time.Minute)) {
		t.Fatalf("unexpected prune cutoff %s", pruner.cutoff)
	}
}
