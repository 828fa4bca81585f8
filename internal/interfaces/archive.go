package interfaces

import (
	"context"
	"time"

	"github.com/martien2kk/workflow-scheduler/internal/models"
)

// JobRecord is the immutable snapshot of a job archived when it reaches a
// terminal state. Live scheduling state stays process-local; the archive is
// an audit trail that survives restarts.
type JobRecord struct {
	ID         string           `json:"id" badgerhold:"key"`
	WorkflowID string           `json:"workflow_id"`
	BranchID   string           `json:"branch_id"`
	UserID     string           `json:"user_id"`
	JobType    models.JobType   `json:"job_type"`
	Status     models.JobStatus `json:"status"`
	Progress   float64          `json:"progress"`
	TilesDone  int              `json:"tiles_done"`
	TilesTotal int              `json:"tiles_total"`
	Error      string           `json:"error,omitempty"`
	CreatedAt  time.Time        `json:"created_at"`
	StartedAt  *time.Time       `json:"started_at"`
	FinishedAt *time.Time       `json:"finished_at"`
	ArchivedAt time.Time        `json:"archived_at"`
}

// ArchiveStorage persists terminal job records.
type ArchiveStorage interface {
	SaveRecord(ctx context.Context, record *JobRecord) error
	GetRecord(ctx context.Context, jobID string) (*JobRecord, error)
	ListRecordsForUser(ctx context.Context, userID string, limit int) ([]*JobRecord, error)
	DeleteRecordsBefore(ctx context.Context, cutoff time.Time) (int, error)
}
