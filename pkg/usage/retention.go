package usage

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/nestfind/nestfind/pkg/logger"
)

// Retention periodically deletes provider calls older than a fixed age.
type Retention struct {
	log    Log
	maxAge time.Duration
	cron   *cron.Cron
	logger *zap.Logger
	now    func() time.Time
}

// NewRetention schedules cleanup of log on a standard cron expression such as
// "@daily" or "0 3 * * *". Call Start to begin running.
func NewRetention(log Log, schedule string, maxAge time.Duration, l *zap.Logger) (*Retention, error) {
	r := &Retention{
		log:    log,
		maxAge: maxAge,
		cron:   cron.New(),
		logger: logger.OrNop(l),
		now:    time.Now,
	}
	if _, err := r.cron.AddFunc(schedule, r.run); err != nil {
		return nil, fmt.Errorf("usage retention schedule %q: %w", schedule, err)
	}
	return r, nil
}

// Start runs the scheduler in its own goroutine.
func (r *Retention) Start() {
	r.cron.Start()
}

// Stop halts the scheduler and waits for a running cleanup to finish.
func (r *Retention) Stop() {
	<-r.cron.Stop().Done()
}

// RunOnce deletes expired calls immediately.
func (r *Retention) RunOnce(ctx context.Context) (int64, error) {
	return r.log.Cleanup(ctx, r.now().Add(-r.maxAge))
}

func (r *Retention) run() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	n, err := r.RunOnce(ctx)
	if err != nil {
		r.logger.Error("usage retention failed", zap.Error(err))
		return
	}
	r.logger.Info("usage retention", zap.Int64("deleted", n), zap.Duration("max_age", r.maxAge))
}
