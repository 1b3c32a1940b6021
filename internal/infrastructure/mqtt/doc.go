// Package mqtt provides MQTT event publishing for NetSync.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - Last Will and Testament (LWT) for offline detection
//   - Run lifecycle events via EventPublisher
//
// # Architecture
//
// NetSync publishes reconciliation events to MQTT so monitoring systems
// and automation pipelines can react without polling the API. The broker
// also carries the run trigger topic, letting external schedulers start
// runs by publishing a message.
//
//	NetSync Core → MQTT Broker → Monitoring / Automation
//	NetSync Core ← MQTT Broker ← External schedulers (run trigger)
//
// # Topic Structure
//
//	netsync/system/status              service online/offline + LWT
//	netsync/runs/trigger               inbound run requests
//	netsync/runs/{run_id}/started      run announcement
//	netsync/runs/{run_id}/summary      final run report
//	netsync/devices/{name}/changes     per-device outcome
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Forward run events to the broker
//	publisher := mqtt.NewEventPublisher(client, log)
//	orch := sync.NewOrchestrator(devices, differ, applier, log, publisher)
//
//	// Accept externally triggered runs
//	err = client.Subscribe(mqtt.Topics{}.RunTrigger(), 1,
//	    func(topic string, payload []byte) error {
//	        return handleTrigger(payload)
//	    })
package mqtt
