package interfaces

import (
	"context"

	"github.com/martien2kk/workflow-scheduler/internal/models"
)

// JobProgress is the runtime's channel back into the state store for tile
// accounting. Implemented by the state store; workers never touch job
// fields directly.
type JobProgress interface {
	// SetTilesTotal records the planned tile count and resets tiles_done.
	SetTilesTotal(jobID string, total int) (*models.Job, error)

	// TileDone increments tiles_done, recomputes progress and returns a
	// snapshot for the progress sidecar.
	TileDone(jobID string) (*models.Job, error)
}

// JobWorker executes one job type end to end. Workers run on the lifecycle
// controller's goroutine, outside the scheduler lock.
type JobWorker interface {
	// Type returns the job type this worker executes.
	Type() models.JobType

	// Execute runs the job to completion. A nil return means SUCCEEDED; an
	// error collapses the job to FAILED with the error text.
	Execute(ctx context.Context, job *models.Job) error
}
