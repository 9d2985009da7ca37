package batch

import (
	"context"
	"time"
)

// Reset clears every enrollment's daily presence flag at midnight so the
// next school day starts clean.
type Reset struct {
	store Store
}

// NewReset creates the job.
func NewReset(store Store) *Reset {
	return &Reset{store: store}
}

// Run performs the reset.
func (r *Reset) Run(ctx context.Context, _ time.Time) error {
	if err := r.store.ResetAttendanceFlags(ctx); err != nil {
		return err
	}
	batchRuns.WithLabelValues("reset").Inc()
	return nil
}
