// Package handlers contains the HTTP handlers for the coastwatch API.
package handlers

import (
	"errors"
	"net/http"

	"github.com/coastwatch-systems/coastwatch/internal/httputil"
	"github.com/coastwatch-systems/coastwatch/internal/repository"
	"github.com/coastwatch-systems/coastwatch/internal/service"
)

// writeServiceError maps service and store errors to HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		httputil.WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrInvalidCredentials):
		httputil.WriteError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, service.ErrForbidden):
		httputil.WriteError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, repository.ErrReportNotFound),
		errors.Is(err, repository.ErrUserNotFound):
		httputil.WriteError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, repository.ErrAlreadyVerified),
		errors.Is(err, repository.ErrUserExists):
		httputil.WriteError(w, http.StatusConflict, err.Error())
	default:
		httputil.WriteError(w, http.StatusInternalServerError, "internal server error")
	}
}
