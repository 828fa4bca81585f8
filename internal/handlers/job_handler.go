// -----------------------------------------------------------------------
// Job Handler - job inspection, cancellation and result routes
// -----------------------------------------------------------------------

package handlers

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/martien2kk/workflow-scheduler/internal/interfaces"
	"github.com/martien2kk/workflow-scheduler/internal/models"
	"github.com/martien2kk/workflow-scheduler/internal/state"
)

// JobHandler handles job-related API requests
type JobHandler struct {
	store   *state.Store
	results interfaces.ResultStore
	archive interfaces.ArchiveStorage
	logger  arbor.ILogger
}

// NewJobHandler creates a new job handler. The archive may be nil.
func NewJobHandler(store *state.Store, results interfaces.ResultStore, archive interfaces.ArchiveStorage, logger arbor.ILogger) *JobHandler {
	return &JobHandler{
		store:   store,
		results: results,
		archive: archive,
		logger:  logger,
	}
}

// GetJobHandler returns a single job by ID.
// GET /jobs/{id}
func (h *JobHandler) GetJobHandler(w http.ResponseWriter, r *http.Request, jobID string) {
	userID, ok := RequireUserID(w, r)
	if !ok {
		return
	}

	job, err := h.store.GetJob(userID, jobID)
	if err != nil {
		WriteKindError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, job)
}

// ListJobsForWorkflowHandler lists the jobs of one workflow.
// GET /jobs/workflow/{workflow_id}
func (h *JobHandler) ListJobsForWorkflowHandler(w http.ResponseWriter, r *http.Request, workflowID string) {
	userID, ok := RequireUserID(w, r)
	if !ok {
		return
	}

	jobs, err := h.store.ListJobsForWorkflow(userID, workflowID)
	if err != nil {
		WriteKindError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, jobs)
}

// CancelJobHandler cancels a PENDING job.
// POST /jobs/{id}/cancel
func (h *JobHandler) CancelJobHandler(w http.ResponseWriter, r *http.Request, jobID string) {
	userID, ok := RequireUserID(w, r)
	if !ok {
		return
	}

	job, err := h.store.CancelPending(userID, jobID)
	if err != nil {
		WriteKindError(w, err)
		return
	}

	// CANCELLED is terminal, so the record goes to the archive here; the
	// lifecycle controller only sees jobs that reached RUNNING.
	if h.archive != nil {
		record := &interfaces.JobRecord{
			ID:         job.ID,
			WorkflowID: job.WorkflowID,
			BranchID:   job.BranchID,
			UserID:     job.UserID,
			JobType:    job.JobType,
			Status:     job.Status,
			CreatedAt:  job.CreatedAt,
			ArchivedAt: time.Now().UTC(),
		}
		if err := h.archive.SaveRecord(context.Background(), record); err != nil {
			h.logger.Warn().Err(err).Str("job_id", job.ID).Msg("Failed to archive cancelled job record")
		}
	}

	WriteJSON(w, http.StatusOK, job)
}

// GetJobResultHandler returns the persisted result payload.
// GET /jobs/{id}/result
func (h *JobHandler) GetJobResultHandler(w http.ResponseWriter, r *http.Request, jobID string) {
	userID, ok := RequireUserID(w, r)
	if !ok {
		return
	}

	job, err := h.store.GetJob(userID, jobID)
	if err != nil {
		WriteKindError(w, err)
		return
	}
	if job.Status != models.JobStatusSucceeded && job.Status != models.JobStatusFailed {
		WriteKindError(w, models.ErrNotFinished)
		return
	}

	data, err := h.results.LoadResult(jobID)
	if err != nil {
		WriteKindError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, models.JobResult{JobID: jobID, Data: data})
}

// GetMaskHandler serves the mask artifact PNG.
// GET /jobs/{id}/result/mask
func (h *JobHandler) GetMaskHandler(w http.ResponseWriter, r *http.Request, jobID string) {
	h.serveArtifact(w, r, jobID, "mask.png", "tissue_mask.png")
}

// GetOverlayHandler serves the overlay artifact PNG.
// GET /jobs/{id}/result/overlay
func (h *JobHandler) GetOverlayHandler(w http.ResponseWriter, r *http.Request, jobID string) {
	h.serveArtifact(w, r, jobID, "overlay.png", "tissue_overlay.png")
}

func (h *JobHandler) serveArtifact(w http.ResponseWriter, r *http.Request, jobID, cellName, tissueName string) {
	userID, ok := RequireUserID(w, r)
	if !ok {
		return
	}

	job, err := h.store.GetJob(userID, jobID)
	if err != nil {
		WriteKindError(w, err)
		return
	}

	name := cellName
	if job.JobType == models.JobTypeTissueMask {
		name = tissueName
	}
	path := h.results.ArtifactPath(jobID, name)
	if _, err := os.Stat(path); err != nil {
		WriteError(w, http.StatusNotFound, name+" not found")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	http.ServeFile(w, r, path)
}

// ListArchiveHandler lists the calling user's archived terminal jobs,
// newest first.
// GET /jobs/archive
func (h *JobHandler) ListArchiveHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := RequireUserID(w, r)
	if !ok {
		return
	}
	if h.archive == nil {
		WriteJSON(w, http.StatusOK, []*interfaces.JobRecord{})
		return
	}

	records, err := h.archive.ListRecordsForUser(r.Context(), userID, 100)
	if err != nil {
		h.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to list archived jobs")
		WriteError(w, http.StatusInternalServerError, "failed to list archived jobs")
		return
	}
	WriteJSON(w, http.StatusOK, records)
}
