package mqtt

import (
	"context"
	"encoding/json"
	"time"

	"github.com/netsyncd/netsync-core/internal/infrastructure/logging"
	"github.com/netsyncd/netsync-core/internal/sync"
)

// EventPublisher forwards run lifecycle events to the MQTT broker. It
// implements sync.Observer. Publish failures are logged and swallowed;
// event delivery must never affect a run's outcome.
type EventPublisher struct {
	sink eventSink
	log  *logging.Logger
}

// eventSink is the slice of Client the publisher needs.
type eventSink interface {
	PublishJSON(topic string, payload []byte) error
}

// NewEventPublisher creates a publisher over an established client.
func NewEventPublisher(client *Client, log *logging.Logger) *EventPublisher {
	if log == nil {
		log = logging.Default()
	}
	return &EventPublisher{sink: client, log: log}
}

// runStartedEvent is the payload published when a run begins.
type runStartedEvent struct {
	RunID      string    `json:"run_id"`
	Mode       string    `json:"mode"`
	Categories []string  `json:"categories"`
	Force      bool      `json:"force"`
	StartedAt  time.Time `json:"started_at"`
}

// deviceChangesEvent is the payload published per completed device.
type deviceChangesEvent struct {
	RunID      string                          `json:"run_id"`
	DeviceID   string                          `json:"device_id"`
	DeviceName string                          `json:"device_name"`
	Status     string                          `json:"status"`
	HasChanges bool                            `json:"has_changes"`
	Error      string                          `json:"error,omitempty"`
	Categories map[string]sync.CategoryChanges `json:"categories,omitempty"`
}

// RunStarted publishes the run announcement.
func (p *EventPublisher) RunStarted(_ context.Context, report *sync.Report) {
	p.publish(Topics{}.RunStarted(report.RunID), runStartedEvent{
		RunID:      report.RunID,
		Mode:       string(report.Mode),
		Categories: report.Categories,
		Force:      report.Force,
		StartedAt:  report.StartedAt,
	})
}

// DeviceCompleted publishes the device's outcome to its changes topic.
// Not-attempted devices are skipped; nothing happened to them.
func (p *EventPublisher) DeviceCompleted(_ context.Context, report *sync.Report, result sync.DeviceResult) {
	if result.Status == sync.DeviceNotAttempted {
		return
	}

	p.publish(Topics{}.DeviceChanges(result.DeviceName), deviceChangesEvent{
		RunID:      report.RunID,
		DeviceID:   result.DeviceID,
		DeviceName: result.DeviceName,
		Status:     result.Status,
		HasChanges: result.HasChanges,
		Error:      result.Error,
		Categories: result.Categories,
	})
}

// RunCompleted publishes the full report as the run summary.
func (p *EventPublisher) RunCompleted(_ context.Context, report *sync.Report) {
	p.publish(Topics{}.RunSummary(report.RunID), report)
}

func (p *EventPublisher) publish(topic string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		p.log.Error("failed to marshal mqtt event", "topic", topic, "error", err)
		return
	}

	if err := p.sink.PublishJSON(topic, data); err != nil {
		p.log.Warn("failed to publish mqtt event", "topic", topic, "error", err)
	}
}
