// -----------------------------------------------------------------------
// State Store - process-wide registries for workflows, jobs and admission
// -----------------------------------------------------------------------

package state

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"

	"github.com/martien2kk/workflow-scheduler/internal/common"
	"github.com/martien2kk/workflow-scheduler/internal/models"
)

// Store owns every registry the scheduler operates on: workflows, jobs, the
// per-branch job orderings, the set of RUNNING jobs and the set of users
// with at least one RUNNING job. One coarse mutex (the scheduler lock)
// guards all admission-relevant fields; it is never held across blocking
// work.
//
// External components hold job ids, not references. Reads hand out clones.
type Store struct {
	mu sync.Mutex // the scheduler lock

	workflows map[string]*models.Workflow
	jobs      map[string]*models.Job
	branches  map[models.BranchKey][]string

	// branchOrder preserves branch-map insertion order so that candidate
	// iteration during admission is deterministic and arrival-biased.
	branchOrder []models.BranchKey

	running     map[string]struct{}
	activeUsers map[string]struct{}

	validate *validator.Validate
	logger   arbor.ILogger
}

// New creates an empty store.
func New(logger arbor.ILogger) *Store {
	return &Store{
		workflows:   make(map[string]*models.Workflow),
		jobs:        make(map[string]*models.Job),
		branches:    make(map[models.BranchKey][]string),
		running:     make(map[string]struct{}),
		activeUsers: make(map[string]struct{}),
		validate:    validator.New(),
		logger:      logger,
	}
}

// CreateWorkflow validates the spec, allocates ids, inserts every job as
// PENDING and appends it to its branch in spec order.
func (s *Store) CreateWorkflow(userID string, spec *models.WorkflowSpec) (*models.Workflow, error) {
	if err := s.validate.Struct(spec); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrInvalidSpec, err)
	}
	for _, branch := range spec.Branches {
		if len(branch.Jobs) == 0 {
			return nil, fmt.Errorf("%w: branch %q has no jobs", models.ErrInvalidSpec, branch.BranchID)
		}
	}

	now := time.Now().UTC()
	wf := &models.Workflow{
		ID:        common.NewWorkflowID(),
		Name:      spec.Name,
		UserID:    userID,
		CreatedAt: now,
		JobIDs:    make([]string, 0),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.workflows[wf.ID] = wf
	for _, branch := range spec.Branches {
		key := models.BranchKey{WorkflowID: wf.ID, BranchID: branch.BranchID}
		if _, exists := s.branches[key]; !exists {
			s.branches[key] = make([]string, 0, len(branch.Jobs))
			s.branchOrder = append(s.branchOrder, key)
		}
		for _, jobSpec := range branch.Jobs {
			job := &models.Job{
				ID:         common.NewJobID(),
				WorkflowID: wf.ID,
				BranchID:   branch.BranchID,
				UserID:     userID,
				JobType:    jobSpec.JobType,
				Params:     jobSpec.Params,
				Status:     models.JobStatusPending,
				CreatedAt:  now,
			}
			if job.Params == nil {
				job.Params = make(map[string]interface{})
			}
			if _, exists := s.jobs[job.ID]; exists {
				return nil, fmt.Errorf("%w: job id collision %s", models.ErrInvalidSpec, job.ID)
			}
			s.jobs[job.ID] = job
			wf.JobIDs = append(wf.JobIDs, job.ID)
			s.branches[key] = append(s.branches[key], job.ID)
		}
	}

	s.logger.Info().
		Str("workflow_id", wf.ID).
		Str("user_id", userID).
		Int("branches", len(spec.Branches)).
		Int("jobs", len(wf.JobIDs)).
		Msg("Workflow created")

	return s.cloneWorkflowLocked(wf), nil
}

// GetWorkflow returns the workflow if and only if it belongs to the user.
func (s *Store) GetWorkflow(userID, workflowID string) (*models.Workflow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	wf, ok := s.workflows[workflowID]
	if !ok || wf.UserID != userID {
		return nil, fmt.Errorf("workflow %s: %w", workflowID, models.ErrNotFound)
	}
	return s.cloneWorkflowLocked(wf), nil
}

// ListWorkflowsForUser returns the user's workflows in creation order.
func (s *Store) ListWorkflowsForUser(userID string) []*models.Workflow {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*models.Workflow, 0)
	for _, wf := range s.workflows {
		if wf.UserID == userID {
			out = append(out, s.cloneWorkflowLocked(wf))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// GetJob returns the job if and only if it belongs to the user. Missing and
// cross-user both yield NotFound so existence does not leak.
func (s *Store) GetJob(userID, jobID string) (*models.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok || job.UserID != userID {
		return nil, fmt.Errorf("job %s: %w", jobID, models.ErrNotFound)
	}
	return job.Clone(), nil
}

// ListJobsForWorkflow returns the workflow's jobs in insertion order, with
// the same ownership predicate as GetWorkflow.
func (s *Store) ListJobsForWorkflow(userID, workflowID string) ([]*models.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	wf, ok := s.workflows[workflowID]
	if !ok || wf.UserID != userID {
		return nil, fmt.Errorf("workflow %s: %w", workflowID, models.ErrNotFound)
	}
	out := make([]*models.Job, 0, len(wf.JobIDs))
	for _, id := range wf.JobIDs {
		out = append(out, s.jobs[id].Clone())
	}
	return out, nil
}

// CancelPending transitions a PENDING job to CANCELLED and resets its tile
// accounting. Any other current status fails with NotCancellable.
func (s *Store) CancelPending(userID, jobID string) (*models.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok || job.UserID != userID {
		return nil, fmt.Errorf("job %s: %w", jobID, models.ErrNotFound)
	}
	if job.Status != models.JobStatusPending {
		return nil, fmt.Errorf("job %s is %s: %w", jobID, job.Status, models.ErrNotCancellable)
	}
	job.Status = models.JobStatusCancelled
	job.Progress = 0
	job.TilesDone = 0
	job.TilesTotal = 0

	s.logger.Info().
		Str("job_id", jobID).
		Str("user_id", userID).
		Msg("Pending job cancelled")

	return job.Clone(), nil
}

// WorkflowView assembles the API view with the mean progress of the member
// jobs.
func (s *Store) WorkflowView(wf *models.Workflow) *models.WorkflowView {
	s.mu.Lock()
	defer s.mu.Unlock()

	view := &models.WorkflowView{
		ID:        wf.ID,
		Name:      wf.Name,
		UserID:    wf.UserID,
		CreatedAt: wf.CreatedAt,
		JobIDs:    wf.JobIDs,
	}
	if len(wf.JobIDs) == 0 {
		return view
	}
	sum := 0.0
	for _, id := range wf.JobIDs {
		if job, ok := s.jobs[id]; ok {
			sum += job.Progress
		}
	}
	view.OverallProgress = sum / float64(len(wf.JobIDs))
	return view
}

// ActiveUsersView reports the current RunningSet and ActiveUserSet.
func (s *Store) ActiveUsersView() *models.ActiveUsersView {
	s.mu.Lock()
	defer s.mu.Unlock()

	view := &models.ActiveUsersView{
		ActiveUsers: make([]string, 0, len(s.activeUsers)),
		RunningJobs: make([]string, 0, len(s.running)),
	}
	for user := range s.activeUsers {
		view.ActiveUsers = append(view.ActiveUsers, user)
	}
	for id := range s.running {
		view.RunningJobs = append(view.RunningJobs, id)
	}
	sort.Strings(view.ActiveUsers)
	sort.Strings(view.RunningJobs)
	view.CountActiveUsers = len(view.ActiveUsers)
	view.CountRunningJobs = len(view.RunningJobs)
	return view
}

// AdmitEligible runs one admission pass under the scheduler lock: it
// collects the runnable head of every branch in branch insertion order and
// promotes candidates to RUNNING while both caps hold. A user already in
// the active set does not count against MaxActiveUsers again.
//
// Returned jobs are RUNNING snapshots; the caller spawns one lifecycle
// controller per job outside the lock.
func (s *Store) AdmitEligible(maxWorkers, maxActiveUsers int) []*models.Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.running) >= maxWorkers {
		return nil
	}

	admitted := make([]*models.Job, 0)
	for _, jobID := range s.runnableHeadsLocked() {
		if len(s.running) >= maxWorkers {
			break
		}
		job := s.jobs[jobID]

		if _, active := s.activeUsers[job.UserID]; !active && len(s.activeUsers) >= maxActiveUsers {
			// Another branch may still yield an admissible candidate.
			continue
		}
		if job.Status != models.JobStatusPending {
			// Cancelled since the candidate was collected.
			continue
		}

		now := time.Now().UTC()
		job.Status = models.JobStatusRunning
		job.StartedAt = &now
		job.Progress = 0
		s.running[job.ID] = struct{}{}
		s.activeUsers[job.UserID] = struct{}{}
		admitted = append(admitted, job.Clone())
	}
	return admitted
}

// runnableHeadsLocked returns, per branch, the first PENDING job whose
// predecessors are all finished. CANCELLED and FAILED predecessors do not
// block successors. At most one candidate per branch.
func (s *Store) runnableHeadsLocked() []string {
	runnable := make([]string, 0)

	for _, key := range s.branchOrder {
		jobIDs := s.branches[key]
		for idx, jobID := range jobIDs {
			job := s.jobs[jobID]
			if job.Status != models.JobStatusPending {
				continue
			}
			blocking := false
			for _, prevID := range jobIDs[:idx] {
				prev := s.jobs[prevID]
				if prev.Status == models.JobStatusPending || prev.Status == models.JobStatusRunning {
					blocking = true
					break
				}
			}
			if !blocking {
				runnable = append(runnable, jobID)
			}
			break // only the first PENDING job per branch is considered
		}
	}
	return runnable
}

// CompleteRunning flips a RUNNING job to its terminal state and stamps
// finished_at. A nil runErr means SUCCEEDED with progress forced to 1.0
// (also when tiles_total is 0, as for untiled jobs); otherwise FAILED with
// the error text. Jobs not RUNNING are left untouched.
func (s *Store) CompleteRunning(jobID string, runErr error) (*models.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return nil, fmt.Errorf("job %s: %w", jobID, models.ErrNotFound)
	}
	if job.Status != models.JobStatusRunning {
		return nil, fmt.Errorf("job %s is %s, not RUNNING: %w", jobID, job.Status, models.ErrNotFound)
	}

	now := time.Now().UTC()
	job.FinishedAt = &now
	if runErr == nil {
		job.Status = models.JobStatusSucceeded
		job.Progress = 1.0
	} else {
		job.Status = models.JobStatusFailed
		job.Error = runErr.Error()
	}
	return job.Clone(), nil
}

// ReleaseJob removes a terminated job from the RunningSet and, when it was
// the user's last running job, the user from the ActiveUserSet. Called by
// the lifecycle controller on every termination path.
func (s *Store) ReleaseJob(jobID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[jobID]
	delete(s.running, jobID)
	if !ok {
		return
	}

	for id := range s.running {
		if other, exists := s.jobs[id]; exists && other.UserID == job.UserID {
			return
		}
	}
	delete(s.activeUsers, job.UserID)
}

// SetTilesTotal records the planned tile count for a job and resets
// tiles_done. Implements interfaces.JobProgress.
func (s *Store) SetTilesTotal(jobID string, total int) (*models.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return nil, fmt.Errorf("job %s: %w", jobID, models.ErrNotFound)
	}
	job.TilesTotal = total
	job.TilesDone = 0
	job.Progress = 0
	return job.Clone(), nil
}

// TileDone increments tiles_done and recomputes progress. Implements
// interfaces.JobProgress. The lifecycle controller of the running job is
// the only caller, which keeps the progress signal monotone.
func (s *Store) TileDone(jobID string) (*models.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return nil, fmt.Errorf("job %s: %w", jobID, models.ErrNotFound)
	}
	job.TilesDone++
	if job.TilesTotal > 0 {
		job.Progress = float64(job.TilesDone) / float64(job.TilesTotal)
	} else {
		job.Progress = 0
	}
	return job.Clone(), nil
}

// RunningCount returns the current size of the RunningSet.
func (s *Store) RunningCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.running)
}

func (s *Store) cloneWorkflowLocked(wf *models.Workflow) *models.Workflow {
	c := *wf
	c.JobIDs = append([]string(nil), wf.JobIDs...)
	return &c
}
