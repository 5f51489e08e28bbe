// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/devquest-io/analytics/internal/dispatch"
)

// InvalidateHandler handles cache invalidation requests.
type InvalidateHandler struct {
	deps Dependencies
}

// NewInvalidateHandler creates a new invalidate handler.
func NewInvalidateHandler(deps Dependencies) *InvalidateHandler {
	return &InvalidateHandler{deps: deps}
}

// HandleInvalidate handles DELETE /cache/{user} requests. Invalidation is
// idempotent: deleting an absent entry still answers 204.
func (h *InvalidateHandler) HandleInvalidate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.NotFound(w, r)
		return
	}

	user := strings.TrimPrefix(r.URL.Path, "/cache/")
	if user == "" || strings.Contains(user, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}

	if err := h.deps.InvalidateUser(r.Context(), user); err != nil {
		if errors.Is(err, dispatch.ErrEmptyKey) {
			writeError(w, http.StatusBadRequest, "bad_request", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
