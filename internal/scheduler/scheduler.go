// -----------------------------------------------------------------------
// Admission Scheduler - periodic promotion of eligible PENDING jobs
// -----------------------------------------------------------------------

package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/martien2kk/workflow-scheduler/internal/common"
	"github.com/martien2kk/workflow-scheduler/internal/interfaces"
	"github.com/martien2kk/workflow-scheduler/internal/state"
	"github.com/martien2kk/workflow-scheduler/internal/workers"
)

// Scheduler runs the cooperative admission loop. Each pass promotes, under
// the scheduler lock, the runnable branch heads that fit below the global
// worker cap and the concurrent-active-user cap, then spawns one lifecycle
// controller goroutine per admitted job.
//
// Candidates are iterated in branch-map insertion order; starvation is
// bounded because running jobs terminate and every branch with a PENDING
// head is a candidate again on the next pass.
type Scheduler struct {
	store    *state.Store
	registry *workers.Registry
	results  interfaces.ResultStore
	archive  interfaces.ArchiveStorage
	events   interfaces.EventService
	cfg      common.SchedulerConfig
	logger   arbor.ILogger

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
}

// New creates the scheduler. The archive may be nil; events may be nil in
// tests.
func New(
	store *state.Store,
	registry *workers.Registry,
	results interfaces.ResultStore,
	archive interfaces.ArchiveStorage,
	events interfaces.EventService,
	cfg common.SchedulerConfig,
	logger arbor.ILogger,
) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		store:    store,
		registry: registry,
		results:  results,
		archive:  archive,
		events:   events,
		cfg:      cfg,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start launches the admission loop.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		s.logger.Warn().Msg("Scheduler already running")
		return
	}
	s.running = true

	s.wg.Add(1)
	go s.run()

	s.logger.Info().
		Int("max_workers", s.cfg.MaxWorkers).
		Int("max_active_users", s.cfg.MaxActiveUsers).
		Dur("interval", s.cfg.IntervalDuration()).
		Msg("Admission scheduler started")
}

// Stop halts the admission loop and waits for running job controllers to
// finish their termination bookkeeping.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
	s.logger.Info().Msg("Admission scheduler stopped")
}

func (s *Scheduler) run() {
	defer s.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().
				Str("panic", fmt.Sprintf("%v", r)).
				Str("stack", common.GetStackTrace()).
				Msg("PANIC RECOVERED in scheduler loop - loop stopped")
		}
	}()

	ticker := time.NewTicker(s.cfg.IntervalDuration())
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.ScheduleOnce()
		}
	}
}

// ScheduleOnce executes a single admission pass and spawns a lifecycle
// controller for every admitted job. Controllers execute outside the
// scheduler lock.
func (s *Scheduler) ScheduleOnce() {
	admitted := s.store.AdmitEligible(s.cfg.MaxWorkers, s.cfg.MaxActiveUsers)
	for _, job := range admitted {
		job := job
		s.logger.Info().
			Str("job_id", job.ID).
			Str("workflow_id", job.WorkflowID).
			Str("branch_id", job.BranchID).
			Str("user_id", job.UserID).
			Str("job_type", string(job.JobType)).
			Msg("Job admitted")

		s.publish(interfaces.Event{
			Type: interfaces.EventJobAdmitted,
			Payload: map[string]interface{}{
				"job_id":      job.ID,
				"workflow_id": job.WorkflowID,
				"branch_id":   job.BranchID,
				"user_id":     job.UserID,
			},
		})

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.executeJob(job)
		}()
	}
}

func (s *Scheduler) publish(event interfaces.Event) {
	if s.events == nil {
		return
	}
	_ = s.events.Publish(s.ctx, event)
}
