package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/lunamercado/storefront-backend/pkg/logger"
)

const (
	// terminalRetentionDays is how long released reservations are kept
	// before the sweep prunes them.
	terminalRetentionDays = 90

	// maxSweepBatches caps one job run so a huge backlog cannot hold the
	// cron lock for an entire cycle.
	maxSweepBatches = 20
)

type reservationExpirer interface {
	ExpireDue(ctx context.Context, batch int) (int, error)
}

type reservationPruner interface {
	DeleteTerminalBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// ReservationSweepJobParams configure the reservation sweep.
type ReservationSweepJobParams struct {
	Logger       *logger.Logger
	Reservations reservationExpirer
	Pruner       reservationPruner
	BatchSize    int
}

type reservationSweepJob struct {
	logg         *logger.Logger
	reservations reservationExpirer
	pruner       reservationPruner
	batch        int
	now          func() time.Time
}

// NewReservationSweepJob builds the job that expires overdue stock holds and
// prunes long-terminal reservation rows.
func NewReservationSweepJob(params ReservationSweepJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Reservations == nil {
		return nil, fmt.Errorf("reservations service required")
	}
	if params.Pruner == nil {
		return nil, fmt.Errorf("reservations repository required")
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = 200
	}
	return &reservationSweepJob{
		logg:         params.Logger,
		reservations: params.Reservations,
		pruner:       params.Pruner,
		batch:        batch,
		now:          time.Now,
	}, nil
}

func (j *reservationSweepJob) Name() string { return "reservation-sweep" }

func (j *reservationSweepJob) Run(ctx context.Context) error {
	var errs []error
	if err := j.expireDueHolds(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := j.pruneTerminal(ctx); err != nil {
		errs = append(errs, err)
	}
	return multierr.Combine(errs...)
}

func (j *reservationSweepJob) expireDueHolds(ctx context.Context) error {
	total := 0
	for i := 0; i < maxSweepBatches; i++ {
		released, err := j.reservations.ExpireDue(ctx, j.batch)
		total += released
		if err != nil {
			return fmt.Errorf("expire reservations (after %d released): %w", total, err)
		}
		if released < j.batch {
			break
		}
	}
	logCtx := j.logg.WithField(ctx, "released", total)
	j.logg.Info(logCtx, "reservation expiry sweep complete")
	return nil
}

func (j *reservationSweepJob) pruneTerminal(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-terminalRetentionDays * 24 * time.Hour)
	pruned, err := j.pruner.DeleteTerminalBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("prune terminal reservations: %w", err)
	}
	logCtx := j.logg.WithField(ctx, "pruned", pruned)
	j.logg.Info(logCtx, "reservation retention sweep complete")
	return nil
}
