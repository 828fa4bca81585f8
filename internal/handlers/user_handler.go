// -----------------------------------------------------------------------
// User Handler - identity echo and active-user reporting
// -----------------------------------------------------------------------

package handlers

import (
	"net/http"

	"github.com/ternarybob/arbor"

	"github.com/martien2kk/workflow-scheduler/internal/state"
)

// UserHandler handles user-related API requests
type UserHandler struct {
	store  *state.Store
	logger arbor.ILogger
}

// NewUserHandler creates a new user handler
func NewUserHandler(store *state.Store, logger arbor.ILogger) *UserHandler {
	return &UserHandler{
		store:  store,
		logger: logger,
	}
}

// GetMeHandler echoes the caller-asserted identity.
// GET /users/me
func (h *UserHandler) GetMeHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := RequireUserID(w, r)
	if !ok {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"user_id": userID})
}

// GetActiveUsersHandler reports users with RUNNING jobs. The only endpoint
// that does not require X-User-ID.
// GET /users/active
func (h *UserHandler) GetActiveUsersHandler(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.store.ActiveUsersView())
}
