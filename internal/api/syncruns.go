package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/netsyncd/netsync-core/internal/inventory"
	"github.com/netsyncd/netsync-core/internal/sync"
)

// syncRunRequest is the request body for POST /sync/runs. Every field is
// optional; omitted fields fall back to the configured defaults.
type syncRunRequest struct {
	Mode              string             `json:"mode,omitempty"`
	Categories        []string           `json:"categories,omitempty"`
	Selector          inventory.Selector `json:"selector,omitempty"`
	ProtectConnected  *bool              `json:"protect_connected,omitempty"`
	ProtectConfigured *bool              `json:"protect_configured,omitempty"`
	Force             bool               `json:"force,omitempty"`
}

// handleSyncRun executes a reconciliation run and returns the report.
//
// The run executes synchronously; clients needing progress should watch
// the WebSocket run events instead of polling. Only one run may execute
// at a time; a concurrent request gets 409.
//
// With ?format=flat the report is returned in its flattened
// single-level form.
func (s *Server) handleSyncRun(w http.ResponseWriter, r *http.Request) {
	var req syncRunRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeBadRequest(w, "invalid JSON body")
			return
		}
	}

	opts, err := s.buildRunOptions(req)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	if !s.runMu.TryLock() {
		writeConflict(w, "a reconciliation run is already in progress")
		return
	}
	defer s.runMu.Unlock()

	report, err := s.runner.Run(r.Context(), opts)
	if err != nil {
		if errors.Is(err, sync.ErrInvalidMode) {
			writeBadRequest(w, err.Error())
			return
		}
		s.logger.Error("reconciliation run failed", "error", err)
		writeInternalError(w, "reconciliation run failed")
		return
	}

	if r.URL.Query().Get("format") == "flat" {
		writeJSON(w, http.StatusOK, report.Flatten())
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// buildRunOptions merges the request with the configured sync defaults.
func (s *Server) buildRunOptions(req syncRunRequest) (sync.Options, error) {
	mode := req.Mode
	if mode == "" {
		mode = s.syncCfg.Mode
	}
	parsed, err := sync.ParseMode(mode)
	if err != nil {
		return sync.Options{}, err
	}

	categories := req.Categories
	if categories == nil {
		categories = s.syncCfg.Categories
	}

	policy := sync.Policy{
		ProtectConnected:  s.syncCfg.ProtectConnected,
		ProtectConfigured: s.syncCfg.ProtectConfigured,
	}
	if req.ProtectConnected != nil {
		policy.ProtectConnected = *req.ProtectConnected
	}
	if req.ProtectConfigured != nil {
		policy.ProtectConfigured = *req.ProtectConfigured
	}

	return sync.Options{
		Mode:       parsed,
		Categories: categories,
		Selector:   req.Selector,
		Policy:     policy,
		Force:      req.Force || s.syncCfg.Force,
		SoftBudget: s.syncCfg.SoftTimeLimit,
		HardBudget: s.syncCfg.HardTimeLimit,
	}, nil
}
