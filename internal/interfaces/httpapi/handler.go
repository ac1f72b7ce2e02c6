package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"kilometers.ai/standin/internal/application/services"
	"kilometers.ai/standin/internal/core/component"
	"kilometers.ai/standin/internal/core/launch"
	"kilometers.ai/standin/internal/core/redirect"
)

// maxBodyBytes bounds request bodies
const maxBodyBytes = 1 << 20

// BindingsResponse lists the registry contents
type BindingsResponse struct {
	Bindings    []redirect.Binding `json:"bindings"`
	Unreachable []component.Name   `json:"unreachable"`
}

// LaunchRequest asks for a launch; RequestCode selects a launch for result
type LaunchRequest struct {
	Request     *launch.Request `json:"request"`
	RequestCode *int            `json:"request_code,omitempty"`
}

type Handler struct{ service *services.RedirectService }

func NewHandler(service *services.RedirectService) *Handler { return &Handler{service: service} }

func (h *Handler) listBindings(w http.ResponseWriter, _ *http.Request) {
	unreachable := h.service.Unreachable()
	if unreachable == nil {
		unreachable = []component.Name{}
	}
	writeSuccess(w, http.StatusOK, "", BindingsResponse{Bindings: h.service.Bindings(), Unreachable: unreachable})
}

func (h *Handler) resolve(w http.ResponseWriter, r *http.Request) {
	className := chi.URLParam(r, "class")
	resolution, ok := h.service.Resolve(className)
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "no plugin component named "+className, requestIDFromContext(r.Context()))
		return
	}
	writeSuccess(w, http.StatusOK, "", resolution)
}

func (h *Handler) convert(w http.ResponseWriter, r *http.Request) {
	var req launch.Request
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error(), requestIDFromContext(r.Context()))
		return
	}
	writeSuccess(w, http.StatusOK, "", h.service.Convert(&req))
}

func (h *Handler) launch(w http.ResponseWriter, r *http.Request) {
	var body LaunchRequest
	if err := decodeBody(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error(), requestIDFromContext(r.Context()))
		return
	}
	if body.Request == nil {
		writeError(w, http.StatusBadRequest, "invalid_input", "request is required", requestIDFromContext(r.Context()))
		return
	}

	result, err := h.service.Launch(r.Context(), body.Request, body.RequestCode)
	if err != nil {
		status, code := mapLaunchError(err)
		writeError(w, status, code, err.Error(), requestIDFromContext(r.Context()))
		return
	}

	message := "launched"
	if !result.Handled {
		message = "not a plugin component"
	}
	writeSuccess(w, http.StatusOK, message, result)
}

// ResultResponse acknowledges a delivered result
type ResultResponse struct {
	RequestCode int `json:"request_code"`
}

func (h *Handler) completeResult(w http.ResponseWriter, r *http.Request) {
	requestID := requestIDFromContext(r.Context())
	code, err := strconv.Atoi(chi.URLParam(r, "code"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", "request code must be an integer", requestID)
		return
	}

	delivered, err := h.service.CompleteResult(code)
	switch {
	case errors.Is(err, services.ErrNoLauncher):
		writeError(w, http.StatusServiceUnavailable, "no_launcher", err.Error(), requestID)
	case errors.Is(err, services.ErrResultsUntracked):
		writeError(w, http.StatusNotImplemented, "results_untracked", err.Error(), requestID)
	case err != nil:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error(), requestID)
	case !delivered:
		writeError(w, http.StatusNotFound, "not_pending", "no result pending for request code "+strconv.Itoa(code), requestID)
	default:
		writeSuccess(w, http.StatusOK, "result delivered", ResultResponse{RequestCode: code})
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
