package api

import (
	"net/http"
	"strconv"

	"github.com/netsyncd/netsync-core/internal/audit"
)

// handleListChanges returns the change trail with optional filters.
//
// Query parameters:
//   - run_id, device_id, action, category: optional filters
//   - limit, offset: pagination (default 50, max 200)
func (s *Server) handleListChanges(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := audit.Filter{
		RunID:    q.Get("run_id"),
		DeviceID: q.Get("device_id"),
		Action:   q.Get("action"),
		Category: q.Get("category"),
	}

	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			writeBadRequest(w, "invalid limit")
			return
		}
		filter.Limit = limit
	}
	if v := q.Get("offset"); v != "" {
		offset, err := strconv.Atoi(v)
		if err != nil || offset < 0 {
			writeBadRequest(w, "invalid offset")
			return
		}
		filter.Offset = offset
	}

	result, err := s.changes.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("failed to list changes", "error", err)
		writeInternalError(w, "failed to list changes")
		return
	}

	writeJSON(w, http.StatusOK, result)
}
