// Package quota caps the number of provider calls per UTC day.
package quota

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nestfind/nestfind/pkg/models"
)

// ErrQuotaExceeded is returned when today's call count has reached the cap.
var ErrQuotaExceeded = errors.New("daily provider quota exceeded")

// Counter reports how many provider calls were made since a point in time.
type Counter interface {
	CountSince(ctx context.Context, since time.Time) (int64, error)
}

// Enforcer checks provider usage against a daily cap.
type Enforcer struct {
	limit   int64
	counter Counter
	now     func() time.Time
}

// New creates an Enforcer allowing dailyCalls calls per UTC day.
func New(dailyCalls int64, c Counter) *Enforcer {
	return &Enforcer{limit: dailyCalls, counter: c, now: time.Now}
}

// Allow returns ErrQuotaExceeded once today's calls reach the cap.
func (e *Enforcer) Allow(ctx context.Context) error {
	used, err := e.counter.CountSince(ctx, dayStart(e.now()))
	if err != nil {
		return fmt.Errorf("quota check: %w", err)
	}
	if used >= e.limit {
		return ErrQuotaExceeded
	}
	return nil
}

// Status returns today's usage against the cap.
func (e *Enforcer) Status(ctx context.Context) (models.QuotaStatus, error) {
	used, err := e.counter.CountSince(ctx, dayStart(e.now()))
	if err != nil {
		return models.QuotaStatus{}, fmt.Errorf("quota status: %w", err)
	}
	return models.QuotaStatus{
		Limit:     e.limit,
		Used:      used,
		Remaining: max(e.limit-used, 0),
	}, nil
}

func dayStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
