package api

import (
	"context"

	"github.com/netsyncd/netsync-core/internal/sync"
)

// HubObserver broadcasts run lifecycle events to WebSocket clients. It
// implements sync.Observer over a Hub.
type HubObserver struct {
	hub *Hub
}

// NewHubObserver creates an observer broadcasting through the given hub.
func NewHubObserver(hub *Hub) *HubObserver {
	return &HubObserver{hub: hub}
}

// RunStarted broadcasts a run announcement on ChannelRunStarted.
func (o *HubObserver) RunStarted(_ context.Context, report *sync.Report) {
	o.hub.Broadcast(ChannelRunStarted, map[string]any{
		"run_id":     report.RunID,
		"mode":       report.Mode,
		"categories": report.Categories,
		"force":      report.Force,
		"started_at": report.StartedAt,
	})
}

// DeviceCompleted broadcasts the device outcome on ChannelDeviceSynced or
// ChannelDeviceFailed. Not-attempted devices are skipped.
func (o *HubObserver) DeviceCompleted(_ context.Context, report *sync.Report, result sync.DeviceResult) {
	channel := ChannelDeviceSynced
	if result.Status == sync.DeviceFailed {
		channel = ChannelDeviceFailed
	}
	if result.Status == sync.DeviceNotAttempted {
		return
	}

	o.hub.Broadcast(channel, map[string]any{
		"run_id":      report.RunID,
		"device_id":   result.DeviceID,
		"device_name": result.DeviceName,
		"status":      result.Status,
		"has_changes": result.HasChanges,
		"error":       result.Error,
		"categories":  result.Categories,
	})
}

// RunCompleted broadcasts the final report on ChannelRunCompleted.
func (o *HubObserver) RunCompleted(_ context.Context, report *sync.Report) {
	o.hub.Broadcast(ChannelRunCompleted, report)
}
