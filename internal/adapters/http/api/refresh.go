// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/devquest-io/analytics/internal/adapters/leetcode"
	"github.com/devquest-io/analytics/internal/dispatch"
)

// RefreshHandler handles on-demand refresh requests.
type RefreshHandler struct {
	deps Dependencies
}

// NewRefreshHandler creates a new refresh handler.
func NewRefreshHandler(deps Dependencies) *RefreshHandler {
	return &RefreshHandler{deps: deps}
}

// HandleRefresh handles POST /refresh/{user} requests. The response is the
// current snapshot, freshly fetched unless the cache already held a live
// entry.
func (h *RefreshHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	user := strings.TrimPrefix(r.URL.Path, "/refresh/")
	if user == "" || strings.Contains(user, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}

	rec, err := h.deps.Refresh(r.Context(), user)
	if err != nil {
		writeUpstreamError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// writeUpstreamError maps refresh failures onto response codes: unknown
// users and other terminal upstream answers are the client's problem, an
// exhausted or unreachable upstream is a gateway failure.
func writeUpstreamError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, dispatch.ErrEmptyKey):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	case errors.Is(err, leetcode.ErrUnknownUser):
		writeError(w, http.StatusNotFound, "unknown_user", err)
	case leetcode.IsPermanent(err):
		writeError(w, http.StatusBadGateway, "upstream_rejected", err)
	case errors.Is(err, leetcode.ErrRetriesExhausted), leetcode.IsTransient(err):
		writeError(w, http.StatusBadGateway, "upstream_unavailable", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}
