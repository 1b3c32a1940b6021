package mqtt

import "fmt"

// Topic prefixes. All netsync topics live under a single root so brokers
// shared with other systems can scope ACLs to netsync/#.
const (
	// TopicPrefix is the base for all netsync topics.
	TopicPrefix = "netsync"

	// TopicPrefixSystem is the base for system lifecycle topics.
	TopicPrefixSystem = "netsync/system"

	// TopicPrefixRuns is the base for reconciliation run topics.
	TopicPrefixRuns = "netsync/runs"

	// TopicPrefixDevices is the base for per-device topics.
	TopicPrefixDevices = "netsync/devices"
)

// Topics provides builders for netsync MQTT topics. Using the helpers
// keeps topic naming consistent across publishers and subscribers.
type Topics struct{}

// SystemStatus returns the service status topic carrying online/offline
// payloads and the LWT.
//
// Example: netsync/system/status
func (Topics) SystemStatus() string {
	return TopicPrefixSystem + "/status"
}

// RunSummary returns the topic for a run's final summary.
//
// Example: netsync/runs/run-ab12cd34/summary
func (Topics) RunSummary(runID string) string {
	return fmt.Sprintf("%s/%s/summary", TopicPrefixRuns, runID)
}

// RunStarted returns the topic announcing a run has begun.
//
// Example: netsync/runs/run-ab12cd34/started
func (Topics) RunStarted(runID string) string {
	return fmt.Sprintf("%s/%s/started", TopicPrefixRuns, runID)
}

// RunTrigger returns the topic external systems publish to in order to
// request a reconciliation run.
//
// Example: netsync/runs/trigger
func (Topics) RunTrigger() string {
	return TopicPrefixRuns + "/trigger"
}

// DeviceChanges returns the topic for one device's applied changes.
//
// Example: netsync/devices/sw-core-01/changes
func (Topics) DeviceChanges(deviceName string) string {
	return fmt.Sprintf("%s/%s/changes", TopicPrefixDevices, deviceName)
}
