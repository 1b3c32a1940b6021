package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/netsyncd/netsync-core/internal/inventory"
)

// handleListDevices returns devices matching the optional query filters.
//
// Query parameters:
//   - site: filter by site (repeatable)
//   - type: filter by device type ID (repeatable)
//   - tag: filter by tag
func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	sel := inventory.Selector{
		Sites:         q["site"],
		DeviceTypeIDs: q["type"],
		Tag:           q.Get("tag"),
	}

	devices, err := s.devices.ListBySelector(r.Context(), sel)
	if err != nil {
		s.logger.Error("failed to list devices", "error", err)
		writeInternalError(w, "failed to list devices")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"devices": devices,
		"count":   len(devices),
	})
}

// handleGetDevice returns a single device by ID.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	device, err := s.devices.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, inventory.ErrDeviceNotFound) {
			writeNotFound(w, "device not found")
			return
		}
		s.logger.Error("failed to get device", "id", id, "error", err)
		writeInternalError(w, "failed to get device")
		return
	}

	writeJSON(w, http.StatusOK, device)
}

// handleListDeviceTypes returns all device types.
func (s *Server) handleListDeviceTypes(w http.ResponseWriter, r *http.Request) {
	types, err := s.deviceTypes.List(r.Context())
	if err != nil {
		s.logger.Error("failed to list device types", "error", err)
		writeInternalError(w, "failed to list device types")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"device_types": types,
		"count":        len(types),
	})
}

// handleGetDeviceType returns a single device type by slug.
func (s *Server) handleGetDeviceType(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	dt, err := s.deviceTypes.GetBySlug(r.Context(), slug)
	if err != nil {
		if errors.Is(err, inventory.ErrDeviceTypeNotFound) {
			writeNotFound(w, "device type not found")
			return
		}
		s.logger.Error("failed to get device type", "slug", slug, "error", err)
		writeInternalError(w, "failed to get device type")
		return
	}

	writeJSON(w, http.StatusOK, dt)
}
