package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/LoggingNewMemory/VCIAStudentGoogleSheet/backend/logging"
	"github.com/LoggingNewMemory/VCIAStudentGoogleSheet/backend/service"
	"github.com/LoggingNewMemory/VCIAStudentGoogleSheet/backend/sheets"
)

// ErrorResponse is the JSON body of every failed API call.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// statusFor maps an error from the core or a workbook backend to an HTTP
// status and a stable code.
func statusFor(err error) (int, string) {
	var rae *sheets.RemoteAccessError
	switch {
	case errors.Is(err, sheets.ErrNotNativeSpreadsheet):
		return http.StatusUnprocessableEntity, "excel_file"
	case errors.Is(err, sheets.ErrNotSpreadsheet):
		return http.StatusUnprocessableEntity, "not_a_spreadsheet"
	case errors.Is(err, service.ErrEmptyRecord):
		return http.StatusBadRequest, "empty_record"
	case errors.As(err, &rae):
		switch rae.Code {
		case http.StatusNotFound:
			return http.StatusNotFound, "not_found"
		case http.StatusForbidden:
			return http.StatusForbidden, "permission_denied"
		case http.StatusUnauthorized:
			return http.StatusBadGateway, "credentials_expired"
		}
		return http.StatusBadGateway, "remote_access"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

// userMessage prefers the backend's explanation over the raw error.
func userMessage(err error) string {
	var rae *sheets.RemoteAccessError
	if errors.As(err, &rae) && rae.Message != "" {
		return rae.Message
	}
	return err.Error()
}

func respondError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)
	logError(r, status, err)
	respondJSON(w, status, ErrorResponse{Error: userMessage(err), Code: code})
}

func respondBadRequest(w http.ResponseWriter, r *http.Request, msg string, err error) {
	logError(r, http.StatusBadRequest, err)
	respondJSON(w, http.StatusBadRequest, ErrorResponse{Error: msg, Code: "bad_request"})
}

func logError(r *http.Request, status int, err error) {
	level := slog.LevelWarn
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	logging.FromContext(r.Context()).Log(r.Context(), level, "request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
	)
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
