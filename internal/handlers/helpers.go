package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/martien2kk/workflow-scheduler/internal/models"
)

// userIDHeader carries the caller-asserted user identity.
const userIDHeader = "X-User-ID"

// RequireUserID extracts the X-User-ID header. A missing header yields
// 422 Unprocessable and false.
func RequireUserID(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := r.Header.Get(userIDHeader)
	if userID == "" {
		WriteError(w, http.StatusUnprocessableEntity, "X-User-ID header is required")
		return "", false
	}
	return userID, true
}

// WriteJSON writes a JSON response with the specified status code and data.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(data)
}

// WriteError writes a standard error JSON response.
func WriteError(w http.ResponseWriter, statusCode int, message string) error {
	return WriteJSON(w, statusCode, map[string]string{
		"status": "error",
		"error":  message,
	})
}

// WriteKindError maps a store/runtime error kind to its transport code.
// Unknown kinds collapse to 500 Internal.
func WriteKindError(w http.ResponseWriter, err error) error {
	switch {
	case errors.Is(err, models.ErrNotFound):
		return WriteError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, models.ErrInvalidSpec):
		return WriteError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, models.ErrNotCancellable):
		return WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, models.ErrNotFinished):
		return WriteError(w, http.StatusBadRequest, err.Error())
	default:
		return WriteError(w, http.StatusInternalServerError, err.Error())
	}
}
