package influxdb

import (
	"context"
	"time"

	"github.com/netsyncd/netsync-core/internal/sync"
)

// RunRecorder writes run and device outcomes to InfluxDB. It implements
// sync.Observer; because the client's writes are non-blocking, the
// recorder adds no latency to a run.
type RunRecorder struct {
	sink metricSink
}

// metricSink is the slice of Client the recorder needs.
type metricSink interface {
	WriteRunSummary(runID string, mode string, completedAt time.Time, fields map[string]interface{})
	WriteDeviceOutcome(runID string, deviceName string, status string, fields map[string]interface{})
}

// NewRunRecorder creates a recorder over a connected client.
func NewRunRecorder(client *Client) *RunRecorder {
	return &RunRecorder{sink: client}
}

// RunStarted is a no-op; only outcomes are recorded.
func (r *RunRecorder) RunStarted(context.Context, *sync.Report) {}

// DeviceCompleted records the device outcome with its change counts.
func (r *RunRecorder) DeviceCompleted(_ context.Context, report *sync.Report, result sync.DeviceResult) {
	if result.Status == sync.DeviceNotAttempted {
		return
	}

	var added, removed, protected int
	for _, cc := range result.Categories {
		added += cc.Added
		removed += cc.Removed
		protected += cc.Protected
	}

	r.sink.WriteDeviceOutcome(report.RunID, result.DeviceName, result.Status, map[string]interface{}{
		"added":       added,
		"removed":     removed,
		"protected":   protected,
		"has_changes": result.HasChanges,
	})
}

// RunCompleted records the run summary.
func (r *RunRecorder) RunCompleted(_ context.Context, report *sync.Report) {
	r.sink.WriteRunSummary(report.RunID, string(report.Mode), report.CompletedAt, map[string]interface{}{
		"processed":       report.Processed,
		"succeeded":       report.Succeeded,
		"failed":          report.Failed,
		"with_changes":    report.WithChanges,
		"not_attempted":   report.NotAttempted,
		"total_added":     report.TotalAdded,
		"total_removed":   report.TotalRemoved,
		"total_protected": report.TotalProtected,
		"duration_ms":     report.Duration().Milliseconds(),
		"budget_exceeded": report.BudgetExceeded,
		"cancelled":       report.Cancelled,
	})
}
