// -----------------------------------------------------------------------
// Worker Registry - routes jobs to workers by job type
// -----------------------------------------------------------------------

package workers

import (
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/martien2kk/workflow-scheduler/internal/interfaces"
	"github.com/martien2kk/workflow-scheduler/internal/models"
)

// Registry maps job types to their workers. Registration happens during
// application wiring; lookups afterwards are read-only.
type Registry struct {
	workers map[models.JobType]interfaces.JobWorker
	logger  arbor.ILogger
}

// NewRegistry creates an empty worker registry
func NewRegistry(logger arbor.ILogger) *Registry {
	return &Registry{
		workers: make(map[models.JobType]interfaces.JobWorker),
		logger:  logger,
	}
}

// Register registers a worker for its job type
func (r *Registry) Register(worker interfaces.JobWorker) {
	r.workers[worker.Type()] = worker
	r.logger.Debug().
		Str("job_type", string(worker.Type())).
		Msg("Job worker registered")
}

// Get returns the worker for a job type
func (r *Registry) Get(jobType models.JobType) (interfaces.JobWorker, error) {
	worker, ok := r.workers[jobType]
	if !ok {
		return nil, fmt.Errorf("no worker registered for job type %q", jobType)
	}
	return worker, nil
}
