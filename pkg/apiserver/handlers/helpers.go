package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/foshrdd/grievance/pkg/lifecycle"
	"github.com/foshrdd/grievance/pkg/store/postgres"
)

func parseLimit(value string, fallback int) int {
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

// statusForError maps lifecycle and store sentinels onto HTTP statuses;
// anything unrecognized is an internal error.
func statusForError(err error) int {
	switch {
	case errors.Is(err, lifecycle.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, postgres.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, lifecycle.ErrSendFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
