package interfaces

import "context"

// EventType represents different event types in the system
type EventType string

const (
	// EventWorkflowCreated is published when a workflow and its jobs are
	// registered. Payload keys: workflow_id, user_id, job_count.
	EventWorkflowCreated EventType = "workflow_created"

	// EventJobAdmitted is published when the scheduler promotes a job to
	// RUNNING. Payload keys: job_id, workflow_id, branch_id, user_id.
	EventJobAdmitted EventType = "job_admitted"

	// EventJobProgress is published after each processed tile.
	// Payload keys: job_id, tiles_done, tiles_total, progress.
	EventJobProgress EventType = "job_progress"

	// EventJobFinished is published when a job that reached RUNNING enters
	// its terminal state. Cancelling a PENDING job publishes no event.
	// Payload keys: job_id, status, error.
	EventJobFinished EventType = "job_finished"
)

// Event is a message published through the event service
type Event struct {
	Type    EventType
	Payload map[string]interface{}
}

// EventHandler processes a published event
type EventHandler func(ctx context.Context, event Event) error

// EventService provides in-process pub/sub for job lifecycle events
type EventService interface {
	Subscribe(eventType EventType, handler EventHandler) error
	Publish(ctx context.Context, event Event) error
	PublishSync(ctx context.Context, event Event) error
}
