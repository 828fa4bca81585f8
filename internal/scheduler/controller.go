// -----------------------------------------------------------------------
// Job Lifecycle Controller - one per admitted job
// -----------------------------------------------------------------------

package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/martien2kk/workflow-scheduler/internal/common"
	"github.com/martien2kk/workflow-scheduler/internal/interfaces"
	"github.com/martien2kk/workflow-scheduler/internal/models"
)

// executeJob wraps one job's execution: it runs the worker, catches every
// failure including panics, flips the job to its terminal state, persists
// the final progress sidecar, archives the terminal record, and releases
// the admission slots. Slot release is guaranteed on all paths.
func (s *Scheduler) executeJob(job *models.Job) {
	released := false
	release := func() {
		if released {
			return
		}
		released = true
		s.store.ReleaseJob(job.ID)
	}
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().
				Str("job_id", job.ID).
				Str("panic", fmt.Sprintf("%v", r)).
				Str("stack", common.GetStackTrace()).
				Msg("PANIC RECOVERED in job termination path")
		}
		release()
	}()

	runErr := s.runWorker(job)

	snapshot, err := s.store.CompleteRunning(job.ID, runErr)
	if err != nil {
		// The job left RUNNING underneath us; nothing further to record.
		s.logger.Error().Err(err).Str("job_id", job.ID).Msg("Terminal transition failed")
		return
	}

	if runErr != nil {
		s.logger.Warn().
			Str("job_id", job.ID).
			Err(runErr).
			Msg("Job failed")
	} else {
		s.logger.Info().
			Str("job_id", job.ID).
			Int("tiles_done", snapshot.TilesDone).
			Msg("Job succeeded")
	}

	if err := s.results.SaveProgress(snapshot); err != nil {
		s.logger.Warn().Err(err).Str("job_id", job.ID).Msg("Failed to persist final progress sidecar")
	}

	s.archiveRecord(snapshot)

	// Release before notifying so observers of the finished event see the
	// slots already freed.
	release()

	s.publish(interfaces.Event{
		Type: interfaces.EventJobFinished,
		Payload: map[string]interface{}{
			"job_id": snapshot.ID,
			"status": string(snapshot.Status),
			"error":  snapshot.Error,
		},
	})
}

// runWorker executes the job's worker with panic capture. The returned
// error, if any, becomes the job's FAILED error text.
func (s *Scheduler) runWorker(job *models.Job) (runErr error) {
	defer func() {
		if r := recover(); r != nil {
			runErr = fmt.Errorf("panic: %v", r)
			s.logger.Error().
				Str("job_id", job.ID).
				Str("panic", fmt.Sprintf("%v", r)).
				Str("stack", common.GetStackTrace()).
				Msg("PANIC RECOVERED in job worker")
		}
	}()

	worker, err := s.registry.Get(job.JobType)
	if err != nil {
		return err
	}
	start := time.Now()
	err = worker.Execute(s.ctx, job)
	s.logger.Debug().
		Str("job_id", job.ID).
		Dur("duration", time.Since(start)).
		Msg("Worker execution finished")
	return err
}

// archiveRecord persists the terminal job snapshot to the archive. Archive
// failures are logged, never fatal to the job outcome.
func (s *Scheduler) archiveRecord(job *models.Job) {
	if s.archive == nil {
		return
	}
	record := &interfaces.JobRecord{
		ID:         job.ID,
		WorkflowID: job.WorkflowID,
		BranchID:   job.BranchID,
		UserID:     job.UserID,
		JobType:    job.JobType,
		Status:     job.Status,
		Progress:   job.Progress,
		TilesDone:  job.TilesDone,
		TilesTotal: job.TilesTotal,
		Error:      job.Error,
		CreatedAt:  job.CreatedAt,
		StartedAt:  job.StartedAt,
		FinishedAt: job.FinishedAt,
		ArchivedAt: time.Now().UTC(),
	}
	if err := s.archive.SaveRecord(context.Background(), record); err != nil {
		s.logger.Warn().Err(err).Str("job_id", job.ID).Msg("Failed to archive terminal job record")
	}
}
