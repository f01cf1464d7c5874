// Package budget caps how many translator calls may run per day. The cache
// exists because translation is expensive; the budget is the backstop when
// the cache cannot absorb the load.
package budget

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/roastlab/brewfind/pkg/models"
)

// ErrBudgetExceeded is returned when the daily translator-call cap is reached.
var ErrBudgetExceeded = errors.New("translation budget exceeded")

// Counter reports how many translator calls were recorded since an instant.
// Satisfied by *translog.Logger.
type Counter interface {
	CountSince(ctx context.Context, since time.Time) (int64, error)
}

// Enforcer checks translator usage against a daily cap.
type Enforcer struct {
	maxPerDay int64
	counter   Counter
}

// New creates an Enforcer. maxPerDay <= 0 means unlimited.
func New(maxPerDay int64, c Counter) *Enforcer {
	return &Enforcer{maxPerDay: maxPerDay, counter: c}
}

// Check returns ErrBudgetExceeded if today's translator calls have reached
// the cap. Safe to call on a nil Enforcer.
func (e *Enforcer) Check(ctx context.Context) error {
	if e == nil || e.maxPerDay <= 0 {
		return nil
	}
	used, err := e.counter.CountSince(ctx, dayStart())
	if err != nil {
		return fmt.Errorf("budget check: %w", err)
	}
	if used >= e.maxPerDay {
		return ErrBudgetExceeded
	}
	return nil
}

// Status reports today's consumption against the cap.
func (e *Enforcer) Status(ctx context.Context) (models.BudgetStatus, error) {
	if e == nil || e.maxPerDay <= 0 {
		return models.BudgetStatus{}, nil
	}
	used, err := e.counter.CountSince(ctx, dayStart())
	if err != nil {
		return models.BudgetStatus{}, fmt.Errorf("budget status: %w", err)
	}
	remaining := e.maxPerDay - used
	if remaining < 0 {
		remaining = 0
	}
	return models.BudgetStatus{MaxPerDay: e.maxPerDay, Used: used, Remaining: remaining}, nil
}

func dayStart() time.Time {
	now := time.Now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}
