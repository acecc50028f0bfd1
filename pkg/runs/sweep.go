package runs

import (
	"context"
	"fmt"

	"github.com/rpapostolis/agentic-workflow-evals-sub000/pkg/models"
)

// SweepOrphans forces any run left in pending or running (from a prior
// process that was interrupted) to cancelled (§4.5 "Cleanup (startup)",
// §4.7). Called once by StartupReconciler before the server starts
// accepting new launches.
func (c *Coordinator) SweepOrphans(ctx context.Context) (int, error) {
	swept := 0
	for _, status := range []models.RunStatus{models.RunStatusPending, models.RunStatusRunning} {
		orphans, err := c.store.ListRunsByStatus(ctx, status)
		if err != nil {
			return swept, fmt.Errorf("list %s runs: %w", status, err)
		}
		for _, run := range orphans {
			run.Status = models.RunStatusCancelled
			run = appendHistory(run, "cancelled on restart—server had been interrupted")
			if err := c.store.UpdateRun(ctx, run); err != nil {
				return swept, fmt.Errorf("cancel orphaned run %s: %w", run.ID, err)
			}
			swept++
		}
	}
	return swept, nil
}
