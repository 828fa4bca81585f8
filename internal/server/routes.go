// -----------------------------------------------------------------------
// Routes - HTTP route table and path dispatch
// -----------------------------------------------------------------------

package server

import (
	"net/http"
	"strings"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// API routes - Workflows
	mux.HandleFunc("/workflows", s.handleWorkflowsRoute) // GET (list), POST (create)
	mux.HandleFunc("/workflows/", s.handleWorkflowRoutes)

	// API routes - Jobs
	mux.HandleFunc("/jobs/", s.handleJobRoutes) // Handles /jobs/{id} and subpaths

	// API routes - Users
	mux.HandleFunc("/users/me", s.app.UserHandler.GetMeHandler)
	mux.HandleFunc("/users/active", s.app.UserHandler.GetActiveUsersHandler)

	// WebSocket route (job lifecycle event stream)
	mux.HandleFunc("/ws", s.app.WSHandler.HandleWebSocket)

	// Output artifacts (mask.png, overlay.png, result.json, progress.json)
	mux.Handle("/outputs/", http.StripPrefix("/outputs/",
		http.FileServer(http.Dir(s.app.OutputsDir))))

	// API routes - System
	mux.HandleFunc("/api/health", s.app.APIHandler.HealthHandler)
	mux.HandleFunc("/api/version", s.app.APIHandler.VersionHandler)
	mux.HandleFunc("/api/shutdown", s.ShutdownHandler) // Graceful shutdown endpoint (dev mode)

	// 404 handler for unmatched API routes
	mux.HandleFunc("/api/", s.app.APIHandler.NotFoundHandler)

	return mux
}

// handleWorkflowsRoute routes /workflows requests (list and create)
func (s *Server) handleWorkflowsRoute(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case "GET":
		s.app.WorkflowHandler.ListWorkflowsHandler(w, r)
	case "POST":
		s.app.WorkflowHandler.CreateWorkflowHandler(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleWorkflowRoutes routes /workflows/{id} requests
func (s *Server) handleWorkflowRoutes(w http.ResponseWriter, r *http.Request) {
	workflowID := strings.TrimPrefix(r.URL.Path, "/workflows/")
	if workflowID == "" || strings.Contains(workflowID, "/") {
		http.Error(w, "Workflow ID is required", http.StatusBadRequest)
		return
	}
	if r.Method != "GET" {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.app.WorkflowHandler.GetWorkflowHandler(w, r, workflowID)
}

// handleJobRoutes routes job-related requests to the appropriate handler
func (s *Server) handleJobRoutes(w http.ResponseWriter, r *http.Request) {
	suffix := strings.TrimPrefix(r.URL.Path, "/jobs/")
	if suffix == "" {
		http.Error(w, "Job ID is required", http.StatusBadRequest)
		return
	}

	// GET /jobs/archive
	if suffix == "archive" {
		if r.Method != "GET" {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		s.app.JobHandler.ListArchiveHandler(w, r)
		return
	}

	// GET /jobs/workflow/{workflow_id}
	if workflowID, ok := strings.CutPrefix(suffix, "workflow/"); ok {
		if r.Method != "GET" {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		s.app.JobHandler.ListJobsForWorkflowHandler(w, r, workflowID)
		return
	}

	// POST /jobs/{id}/cancel
	if jobID, ok := strings.CutSuffix(suffix, "/cancel"); ok {
		if r.Method != "POST" {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		s.app.JobHandler.CancelJobHandler(w, r, jobID)
		return
	}

	// GET /jobs/{id}/result/mask and /jobs/{id}/result/overlay
	if jobID, ok := strings.CutSuffix(suffix, "/result/mask"); ok {
		s.app.JobHandler.GetMaskHandler(w, r, jobID)
		return
	}
	if jobID, ok := strings.CutSuffix(suffix, "/result/overlay"); ok {
		s.app.JobHandler.GetOverlayHandler(w, r, jobID)
		return
	}

	// GET /jobs/{id}/result
	if jobID, ok := strings.CutSuffix(suffix, "/result"); ok {
		s.app.JobHandler.GetJobResultHandler(w, r, jobID)
		return
	}

	// GET /jobs/{id}
	if r.Method != "GET" || strings.Contains(suffix, "/") {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.app.JobHandler.GetJobHandler(w, r, suffix)
}
