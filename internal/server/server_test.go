package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/martien2kk/workflow-scheduler/internal/app"
	"github.com/martien2kk/workflow-scheduler/internal/common"
	"github.com/martien2kk/workflow-scheduler/internal/handlers"
	"github.com/martien2kk/workflow-scheduler/internal/models"
	"github.com/martien2kk/workflow-scheduler/internal/services/events"
	"github.com/martien2kk/workflow-scheduler/internal/state"
	"github.com/martien2kk/workflow-scheduler/internal/storage/results"
)

type httpRig struct {
	store   *state.Store
	results *results.Store
	handler http.Handler
}

func newHTTPRig(t *testing.T) *httpRig {
	t.Helper()
	logger := common.GetLogger()
	cfg := common.DefaultConfig()

	store := state.New(logger)
	resultStore, err := results.New(t.TempDir(), logger)
	require.NoError(t, err)
	eventService := events.NewService(logger)

	application := &app.App{
		Config:          cfg,
		Logger:          logger,
		Store:           store,
		ResultStore:     resultStore,
		OutputsDir:      resultStore.BaseDir(),
		EventService:    eventService,
		APIHandler:      handlers.NewAPIHandler(logger),
		WorkflowHandler: handlers.NewWorkflowHandler(store, eventService, logger),
		JobHandler:      handlers.NewJobHandler(store, resultStore, nil, logger),
		UserHandler:     handlers.NewUserHandler(store, logger),
		WSHandler:       handlers.NewWebSocketHandler(eventService, logger),
	}

	srv := New(application)
	return &httpRig{store: store, results: resultStore, handler: srv.Handler()}
}

func (r *httpRig) do(t *testing.T, method, path, user string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if user != "" {
		req.Header.Set("X-User-ID", user)
	}
	rec := httptest.NewRecorder()
	r.handler.ServeHTTP(rec, req)
	return rec
}

func workflowBody(jobs int) map[string]interface{} {
	jobSpecs := make([]map[string]interface{}, jobs)
	for i := range jobSpecs {
		jobSpecs[i] = map[string]interface{}{
			"job_type": "cell_segmentation",
			"params":   map[string]interface{}{"wsi_path": "/slides/a.png"},
		}
	}
	return map[string]interface{}{
		"name": "analysis",
		"branches": []map[string]interface{}{
			{"branch_id": "b1", "jobs": jobSpecs},
		},
	}
}

func TestMissingUserHeaderIs422(t *testing.T) {
	rig := newHTTPRig(t)

	for _, tc := range []struct{ method, path string }{
		{"POST", "/workflows"},
		{"GET", "/workflows"},
		{"GET", "/jobs/job_x"},
		{"GET", "/users/me"},
	} {
		rec := rig.do(t, tc.method, tc.path, "", workflowBody(1))
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, "%s %s", tc.method, tc.path)
	}
}

func TestActiveUsersRequiresNoHeader(t *testing.T) {
	rig := newHTTPRig(t)
	rec := rig.do(t, "GET", "/users/active", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var view models.ActiveUsersView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Zero(t, view.CountActiveUsers)
	assert.Zero(t, view.CountRunningJobs)
}

func TestCreateAndFetchWorkflow(t *testing.T) {
	rig := newHTTPRig(t)

	rec := rig.do(t, "POST", "/workflows", "alice", workflowBody(2))
	require.Equal(t, http.StatusCreated, rec.Code)

	var view models.WorkflowView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, "analysis", view.Name)
	assert.Equal(t, "alice", view.UserID)
	assert.Len(t, view.JobIDs, 2)
	assert.Zero(t, view.OverallProgress)

	rec = rig.do(t, "GET", "/workflows/"+view.ID, "alice", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = rig.do(t, "GET", "/workflows", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []models.WorkflowView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list, 1)

	// Cross-user access yields 404, indistinguishable from missing.
	rec = rig.do(t, "GET", "/workflows/"+view.ID, "bob", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = rig.do(t, "GET", "/workflows/wf_nonexistent", "alice", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateWorkflow_InvalidSpecIs422(t *testing.T) {
	rig := newHTTPRig(t)

	rec := rig.do(t, "POST", "/workflows", "alice", map[string]interface{}{
		"name":     "broken",
		"branches": []map[string]interface{}{{"branch_id": "b1", "jobs": []interface{}{}}},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestJobRoutes(t *testing.T) {
	rig := newHTTPRig(t)

	rec := rig.do(t, "POST", "/workflows", "alice", workflowBody(2))
	require.Equal(t, http.StatusCreated, rec.Code)
	var view models.WorkflowView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	jobID := view.JobIDs[0]

	rec = rig.do(t, "GET", "/jobs/"+jobID, "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var job models.Job
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &job))
	assert.Equal(t, models.JobStatusPending, job.Status)

	rec = rig.do(t, "GET", "/jobs/workflow/"+view.ID, "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var jobs []models.Job
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &jobs))
	assert.Len(t, jobs, 2)

	// Cross-user access is a 404.
	rec = rig.do(t, "GET", "/jobs/"+jobID, "bob", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCancelJobRoute(t *testing.T) {
	rig := newHTTPRig(t)

	rec := rig.do(t, "POST", "/workflows", "alice", workflowBody(1))
	require.Equal(t, http.StatusCreated, rec.Code)
	var view models.WorkflowView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	jobID := view.JobIDs[0]

	rec = rig.do(t, "POST", "/jobs/"+jobID+"/cancel", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var job models.Job
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &job))
	assert.Equal(t, models.JobStatusCancelled, job.Status)

	// Cancelling a terminal job is a 400.
	rec = rig.do(t, "POST", "/jobs/"+jobID+"/cancel", "alice", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestJobResultRoute(t *testing.T) {
	rig := newHTTPRig(t)

	rec := rig.do(t, "POST", "/workflows", "alice", workflowBody(1))
	require.Equal(t, http.StatusCreated, rec.Code)
	var view models.WorkflowView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	jobID := view.JobIDs[0]

	// Not finished yet.
	rec = rig.do(t, "GET", "/jobs/"+jobID+"/result", "alice", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Drive the job to SUCCEEDED and persist a result payload.
	admitted := rig.store.AdmitEligible(4, 3)
	require.Len(t, admitted, 1)
	payload := map[string]interface{}{"type": "tissue_mask", "wsi_path": "/slides/a.png"}
	require.NoError(t, rig.results.SaveResult(admitted[0], payload))
	_, err := rig.store.CompleteRunning(jobID, nil)
	require.NoError(t, err)
	rig.store.ReleaseJob(jobID)

	rec = rig.do(t, "GET", "/jobs/"+jobID+"/result", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// Round-trip: the response wraps the persisted payload untouched.
	var wrapped struct {
		JobID string                 `json:"job_id"`
		Data  map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &wrapped))
	assert.Equal(t, jobID, wrapped.JobID)
	assert.Equal(t, payload, wrapped.Data)

	// Artifacts were never written: the image endpoints are 404.
	rec = rig.do(t, "GET", "/jobs/"+jobID+"/result/mask", "alice", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = rig.do(t, "GET", "/jobs/"+jobID+"/result/overlay", "alice", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFailedJobWithoutResultIs404(t *testing.T) {
	rig := newHTTPRig(t)

	rec := rig.do(t, "POST", "/workflows", "alice", workflowBody(1))
	require.Equal(t, http.StatusCreated, rec.Code)
	var view models.WorkflowView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	jobID := view.JobIDs[0]

	admitted := rig.store.AdmitEligible(4, 3)
	require.Len(t, admitted, 1)
	_, err := rig.store.CompleteRunning(jobID, assert.AnError)
	require.NoError(t, err)
	rig.store.ReleaseJob(jobID)

	// FAILED status still reads fine from the status endpoint.
	rec = rig.do(t, "GET", "/jobs/"+jobID, "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var job models.Job
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &job))
	assert.Equal(t, models.JobStatusFailed, job.Status)
	assert.NotEmpty(t, job.Error)

	// But a job that never produced result.json is a 404 on the result
	// endpoint.
	rec = rig.do(t, "GET", "/jobs/"+jobID+"/result", "alice", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUsersMe(t *testing.T) {
	rig := newHTTPRig(t)
	rec := rig.do(t, "GET", "/users/me", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "alice", body["user_id"])
}

func TestSystemEndpoints(t *testing.T) {
	rig := newHTTPRig(t)

	rec := rig.do(t, "GET", "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = rig.do(t, "GET", "/api/version", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = rig.do(t, "GET", "/api/unknown", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
