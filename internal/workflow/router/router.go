package router

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/salesops/workflow/internal/workflow/routing"
	"github.com/salesops/workflow/internal/workflow/service"
)

// errorResponse is the body written for every failed request.
type errorResponse struct {
	Error     string `json:"error"`
	Reason    string `json:"reason,omitempty"`
	ProductID string `json:"productId,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// writeServiceError maps service errors onto status codes. Validation failures carry their
// message unchanged so the approver can correct the form.
func writeServiceError(w http.ResponseWriter, r *http.Request, action string, err error) {
	var verr *routing.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
			Error:     verr.Message,
			Reason:    verr.Reason,
			ProductID: verr.ProductID,
		})
	case errors.Is(err, service.ErrNotFound):
		writeError(w, http.StatusNotFound, fmt.Sprintf("failed to %s: %v", action, err))
	case errors.Is(err, service.ErrStageAlreadyDecided), errors.Is(err, service.ErrStageNotOpen):
		writeError(w, http.StatusConflict, fmt.Sprintf("failed to %s: %v", action, err))
	case errors.Is(err, service.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, fmt.Sprintf("failed to %s: %v", action, err))
	default:
		slog.ErrorContext(r.Context(), "request failed",
			"method", r.Method, "path", r.URL.Path, "action", action, "error", err)
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to %s", action))
	}
}

// decodeJSON reads the request body into v, writing a 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return false
	}
	return true
}

// pathID parses a uuid path value, writing a 400 on failure.
func pathID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	raw := r.PathValue(name)
	if raw == "" {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("missing %s in path", name))
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid %s: %v", name, err))
		return uuid.Nil, false
	}
	return id, true
}

// pagination reads the optional offset and limit query parameters.
func pagination(w http.ResponseWriter, r *http.Request) (offset, limit *int, ok bool) {
	for _, p := range []struct {
		name string
		dst  **int
	}{{"offset", &offset}, {"limit", &limit}} {
		raw := r.URL.Query().Get(p.name)
		if raw == "" {
			continue
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid '%s' query parameter, must be an integer", p.name))
			return nil, nil, false
		}
		*p.dst = &v
	}
	return offset, limit, true
}
