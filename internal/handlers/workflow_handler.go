// -----------------------------------------------------------------------
// Workflow Handler - workflow creation and inspection routes
// -----------------------------------------------------------------------

package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/ternarybob/arbor"

	"github.com/martien2kk/workflow-scheduler/internal/interfaces"
	"github.com/martien2kk/workflow-scheduler/internal/models"
	"github.com/martien2kk/workflow-scheduler/internal/state"
)

// WorkflowHandler handles workflow-related API requests
type WorkflowHandler struct {
	store  *state.Store
	events interfaces.EventService
	logger arbor.ILogger
}

// NewWorkflowHandler creates a new workflow handler
func NewWorkflowHandler(store *state.Store, events interfaces.EventService, logger arbor.ILogger) *WorkflowHandler {
	return &WorkflowHandler{
		store:  store,
		events: events,
		logger: logger,
	}
}

// CreateWorkflowHandler creates a workflow and inserts its jobs as PENDING.
// POST /workflows
func (h *WorkflowHandler) CreateWorkflowHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := RequireUserID(w, r)
	if !ok {
		return
	}

	var spec models.WorkflowSpec
	if err := json.NewDecoder(r.Body).Decode(&spec); err != nil {
		WriteError(w, http.StatusUnprocessableEntity, "invalid workflow spec payload")
		return
	}

	wf, err := h.store.CreateWorkflow(userID, &spec)
	if err != nil {
		h.logger.Warn().Err(err).Str("user_id", userID).Msg("Workflow creation rejected")
		WriteKindError(w, err)
		return
	}

	if h.events != nil {
		_ = h.events.Publish(r.Context(), interfaces.Event{
			Type: interfaces.EventWorkflowCreated,
			Payload: map[string]interface{}{
				"workflow_id": wf.ID,
				"user_id":     userID,
				"job_count":   len(wf.JobIDs),
			},
		})
	}

	WriteJSON(w, http.StatusCreated, h.store.WorkflowView(wf))
}

// ListWorkflowsHandler lists the calling user's workflows.
// GET /workflows
func (h *WorkflowHandler) ListWorkflowsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := RequireUserID(w, r)
	if !ok {
		return
	}

	workflows := h.store.ListWorkflowsForUser(userID)
	views := make([]*models.WorkflowView, 0, len(workflows))
	for _, wf := range workflows {
		views = append(views, h.store.WorkflowView(wf))
	}
	WriteJSON(w, http.StatusOK, views)
}

// GetWorkflowHandler returns a single workflow by ID.
// GET /workflows/{id}
func (h *WorkflowHandler) GetWorkflowHandler(w http.ResponseWriter, r *http.Request, workflowID string) {
	userID, ok := RequireUserID(w, r)
	if !ok {
		return
	}

	wf, err := h.store.GetWorkflow(userID, workflowID)
	if err != nil {
		WriteKindError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, h.store.WorkflowView(wf))
}
