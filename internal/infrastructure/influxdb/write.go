package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteRunSummary records a completed reconciliation run.
//
// Tags carry the run identity and mode for filtering; fields carry the
// counts. The point is timestamped with the run's completion time. The
// write is non-blocking and silently dropped when disconnected.
func (c *Client) WriteRunSummary(runID string, mode string, completedAt time.Time, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"sync_run",
		map[string]string{
			"run_id": runID,
			"mode":   mode,
		},
		fields,
		completedAt,
	)

	c.writeAPI.WritePoint(point)
}

// WriteDeviceOutcome records one device's result within a run.
func (c *Client) WriteDeviceOutcome(runID string, deviceName string, status string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"sync_device",
		map[string]string{
			"run_id": runID,
			"device": deviceName,
			"status": status,
		},
		fields,
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
// Tags should stay low cardinality.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}
