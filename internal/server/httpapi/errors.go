package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/authkeeper/internal/common"
)

var errBadForm = errors.New("invalid form")

// statuses is checked in order; the first match wins.
var statuses = []struct {
	err    error
	status int
}{
	{errBadForm, http.StatusBadRequest},
	{common.ErrPasswordTooLong, http.StatusBadRequest},
	{common.ErrInvalidCredentials, http.StatusUnauthorized},
	{common.ErrTokenExpired, http.StatusUnauthorized},
	{common.ErrTokenMalformed, http.StatusUnauthorized},
	{common.ErrTokenTypeMismatch, http.StatusUnauthorized},
	{common.ErrTokenRevoked, http.StatusForbidden},
	{common.ErrNotActive, http.StatusForbidden},
	{common.ErrUserNotFound, http.StatusNotFound},
	{common.ErrUserAlreadyExists, http.StatusConflict},
}

// statusFor maps a service error kind to an HTTP status.
func statusFor(err error) int {
	for _, s := range statuses {
		if errors.Is(err, s.err) {
			return s.status
		}
	}
	return http.StatusInternalServerError
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError renders err as JSON. Internal failures never leak their cause.
func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = common.ErrorInternal.Error()
	}
	writeJSON(w, status, errorResponse{Error: msg})
}
