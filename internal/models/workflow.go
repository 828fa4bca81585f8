// -----------------------------------------------------------------------
// Workflow Model - user-owned container of branch-ordered jobs
// -----------------------------------------------------------------------

package models

import (
	"time"
)

// Workflow is a user-owned container of jobs. It is never mutated after
// creation beyond the job ids appended while building it.
type Workflow struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	JobIDs    []string  `json:"job_ids"`
}

// BranchKey addresses the ordered job list of one branch.
type BranchKey struct {
	WorkflowID string
	BranchID   string
}

// WorkflowSpec is the inbound creation payload.
type WorkflowSpec struct {
	Name     string       `json:"name" validate:"required"`
	Branches []BranchSpec `json:"branches" validate:"required,min=1,dive"`
}

// BranchSpec declares one serial branch of jobs.
type BranchSpec struct {
	BranchID string    `json:"branch_id" validate:"required"`
	Jobs     []JobSpec `json:"jobs" validate:"required,min=1,dive"`
}

// JobSpec declares one job inside a branch.
type JobSpec struct {
	JobType JobType                `json:"job_type" validate:"required,oneof=cell_segmentation tissue_mask"`
	Params  map[string]interface{} `json:"params"`
}

// WorkflowView is the API representation of a workflow. OverallProgress is
// the arithmetic mean of the member jobs' progress (0 if empty).
type WorkflowView struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	UserID          string    `json:"user_id"`
	CreatedAt       time.Time `json:"created_at"`
	JobIDs          []string  `json:"job_ids"`
	OverallProgress float64   `json:"overall_progress"`
}

// ActiveUsersView reports which users currently have RUNNING jobs.
type ActiveUsersView struct {
	ActiveUsers      []string `json:"active_users"`
	RunningJobs      []string `json:"running_jobs"`
	CountActiveUsers int      `json:"count_active_users"`
	CountRunningJobs int      `json:"count_running_jobs"`
}

// JobResult wraps the persisted result payload for the result endpoint.
type JobResult struct {
	JobID string      `json:"job_id"`
	Data  interface{} `json:"data"`
}
