package influxdb

import (
	"context"
	"testing"
	"time"

	"github.com/netsyncd/netsync-core/internal/sync"
)

type capturePoint struct {
	measurement string
	runID       string
	fields      map[string]interface{}
}

type captureMetricSink struct {
	points []capturePoint
}

func (s *captureMetricSink) WriteRunSummary(runID string, _ string, _ time.Time, fields map[string]interface{}) {
	s.points = append(s.points, capturePoint{measurement: "sync_run", runID: runID, fields: fields})
}

func (s *captureMetricSink) WriteDeviceOutcome(runID string, _ string, _ string, fields map[string]interface{}) {
	s.points = append(s.points, capturePoint{measurement: "sync_device", runID: runID, fields: fields})
}

func TestRunRecorderDeviceCompleted(t *testing.T) {
	sink := &captureMetricSink{}
	rec := &RunRecorder{sink: sink}

	report := &sync.Report{RunID: "run-ab12cd34", Mode: sync.ModeSync}
	result := sync.DeviceResult{
		DeviceID:   "dev-11112222",
		DeviceName: "sw-core-01",
		Status:     sync.DeviceSucceeded,
		HasChanges: true,
		Categories: map[string]sync.CategoryChanges{
			"interfaces":  {Added: 2, Protected: 1},
			"power_ports": {Removed: 1},
		},
	}

	rec.DeviceCompleted(context.Background(), report, result)

	if len(sink.points) != 1 {
		t.Fatalf("recorded %d points, want 1", len(sink.points))
	}
	p := sink.points[0]
	if p.measurement != "sync_device" {
		t.Errorf("measurement = %q", p.measurement)
	}
	if p.fields["added"] != 2 || p.fields["removed"] != 1 || p.fields["protected"] != 1 {
		t.Errorf("fields = %v", p.fields)
	}
}

func TestRunRecorderSkipsNotAttempted(t *testing.T) {
	sink := &captureMetricSink{}
	rec := &RunRecorder{sink: sink}

	rec.DeviceCompleted(context.Background(), &sync.Report{RunID: "run-ab12cd34"}, sync.DeviceResult{
		Status: sync.DeviceNotAttempted,
	})

	if len(sink.points) != 0 {
		t.Errorf("recorded %d points for not-attempted device, want 0", len(sink.points))
	}
}

func TestRunRecorderRunCompleted(t *testing.T) {
	sink := &captureMetricSink{}
	rec := &RunRecorder{sink: sink}

	started := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	report := &sync.Report{
		RunID:       "run-ab12cd34",
		Mode:        sync.ModeSync,
		StartedAt:   started,
		CompletedAt: started.Add(90 * time.Second),
		Processed:   3,
		Succeeded:   2,
		Failed:      1,
		TotalAdded:  5,
	}

	rec.RunCompleted(context.Background(), report)

	if len(sink.points) != 1 {
		t.Fatalf("recorded %d points, want 1", len(sink.points))
	}
	p := sink.points[0]
	if p.measurement != "sync_run" {
		t.Errorf("measurement = %q", p.measurement)
	}
	if p.runID != "run-ab12cd34" {
		t.Errorf("runID = %q", p.runID)
	}
	if p.fields["processed"] != 3 || p.fields["failed"] != 1 {
		t.Errorf("fields = %v", p.fields)
	}
	if p.fields["duration_ms"] != int64(90000) {
		t.Errorf("duration_ms = %v, want 90000", p.fields["duration_ms"])
	}
}
