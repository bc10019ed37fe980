package otp

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

const sweepTimeout = 30 * time.Second

// Reaper periodically removes expired verifications from stores that do not
// expire records natively.
type Reaper struct {
	sweeper Sweeper
	cron    *cron.Cron
	logger  *slog.Logger
	now     func() time.Time
}

// NewReaper schedules sweeps of store on the given cron spec (for example
// "@every 1m"). It returns nil when store implements no Sweeper.
func NewReaper(store Store, schedule string, logger *slog.Logger) (*Reaper, error) {
	sweeper, ok := store.(Sweeper)
	if !ok {
		return nil, nil
	}
	r := &Reaper{
		sweeper: sweeper,
		cron:    cron.New(),
		logger:  logger,
		now:     time.Now,
	}
	if _, err := r.cron.AddFunc(schedule, r.run); err != nil {
		return nil, fmt.Errorf("invalid reaper schedule %q: %w", schedule, err)
	}
	return r, nil
}

// Start begins the schedule in the background.
func (r *Reaper) Start() {
	r.cron.Start()
}

// Stop halts the schedule and waits for a running sweep to finish or ctx to end.
func (r *Reaper) Stop(ctx context.Context) {
	select {
	case <-r.cron.Stop().Done():
	case <-ctx.Done():
	}
}

// Sweep removes every verification that expired more than ExpiredRetention ago.
func (r *Reaper) Sweep(ctx context.Context) (int64, error) {
	return r.sweeper.DeleteExpired(ctx, r.now().Add(-ExpiredRetention))
}

func (r *Reaper) run() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()
	n, err := r.Sweep(ctx)
	if err != nil {
		r.logger.Error("otp reaper sweep failed", slog.Any("error", err))
		return
	}
	if n > 0 {
		r.logger.Info("otp reaper removed expired verifications", slog.Int64("count", n))
	}
}
