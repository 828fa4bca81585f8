// -----------------------------------------------------------------------
// API Handler - system endpoints (health, version)
// -----------------------------------------------------------------------

package handlers

import (
	"net/http"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/martien2kk/workflow-scheduler/internal/common"
)

// APIHandler handles system API requests
type APIHandler struct {
	startTime time.Time
	logger    arbor.ILogger
}

// NewAPIHandler creates a new API handler
func NewAPIHandler(logger arbor.ILogger) *APIHandler {
	return &APIHandler{
		startTime: time.Now(),
		logger:    logger,
	}
}

// HealthHandler reports service liveness.
// GET /api/health
func (h *APIHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status": "healthy",
		"uptime": time.Since(h.startTime).String(),
	})
}

// VersionHandler reports build information.
// GET /api/version
func (h *APIHandler) VersionHandler(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{
		"version": common.GetVersion(),
		"build":   common.GetBuild(),
	})
}

// NotFoundHandler is the fallback for unmatched API routes.
func (h *APIHandler) NotFoundHandler(w http.ResponseWriter, r *http.Request) {
	WriteError(w, http.StatusNotFound, "endpoint not found")
}
