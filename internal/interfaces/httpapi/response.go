package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"kilometers.ai/standin/internal/application/services"
	"kilometers.ai/standin/internal/infrastructure/host"
)

// SuccessResponse wraps every successful payload
type SuccessResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// ErrorPayload describes a failure
type ErrorPayload struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// ErrorResponse wraps every failure
type ErrorResponse struct {
	Status string       `json:"status"`
	Error  ErrorPayload `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeSuccess(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, SuccessResponse{Status: "success", Message: message, Data: data})
}

func writeError(w http.ResponseWriter, status int, code, message, requestID string) {
	writeJSON(w, status, ErrorResponse{Status: "error", Error: ErrorPayload{Code: code, Message: message, RequestID: requestID}})
}

func mapLaunchError(err error) (int, string) {
	var pending host.ErrRequestCodePending
	switch {
	case err == nil:
		return http.StatusOK, ""
	case errors.Is(err, services.ErrNoLauncher):
		return http.StatusServiceUnavailable, "no_launcher"
	case errors.As(err, &pending):
		return http.StatusConflict, "request_code_pending"
	default:
		return http.StatusBadGateway, "host_launch_failed"
	}
}
