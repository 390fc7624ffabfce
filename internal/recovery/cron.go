package recovery

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/adhocore/gronx"
)

// ValidateCron accepts 5-field cron expressions only.
func ValidateCron(expr string) error {
	if len(strings.Fields(expr)) != 5 || !gronx.IsValid(expr) {
		return fmt.Errorf("invalid cron expression %q, expected minute hour day-of-month month day-of-week", expr)
	}
	return nil
}

// NextRun returns the next tick of expr strictly after from.
func NextRun(expr string, from time.Time) (time.Time, error) {
	return gronx.NextTickAfter(expr, from, false)
}

// RunPeriodic triggers a reconciliation on every tick of expr until ctx is
// done. An empty expr disables the loop.
func (c *Coordinator) RunPeriodic(ctx context.Context, expr string) error {
	if expr == "" {
		return nil
	}
	if err := ValidateCron(expr); err != nil {
		return err
	}

	for {
		next, err := NextRun(expr, c.clock())
		if err != nil {
			return err
		}
		c.log().Info("next periodic reconcile at %s", next.Format(time.RFC3339))

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
			if err := c.Trigger(ctx, ReasonPeriodic); err != nil {
				c.log().Error("periodic trigger: %v", err)
			}
		}
	}
}
