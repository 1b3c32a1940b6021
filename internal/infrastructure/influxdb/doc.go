// Package influxdb provides time-series recording of reconciliation runs.
//
// This package manages:
//   - Connection to InfluxDB v2 with token authentication
//   - Non-blocking, batched point writes
//   - Run and per-device outcome measurements via RunRecorder
//   - Connection health monitoring
//
// # Measurements
//
//	sync_run      one point per completed run
//	              tags: run_id, mode
//	              fields: processed, succeeded, failed, with_changes,
//	                      not_attempted, total_added, total_removed,
//	                      total_protected, duration_ms, budget_exceeded,
//	                      cancelled
//
//	sync_device   one point per attempted device
//	              tags: run_id, device, status
//	              fields: added, removed, protected, has_changes
//
// # Write Semantics
//
// Writes are asynchronous and batched by the underlying client. When the
// connection is down, points are dropped rather than queued without bound.
// Async write errors surface through the SetOnError callback.
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    if errors.Is(err, influxdb.ErrDisabled) {
//	        // run without metrics
//	    }
//	}
//	defer client.Close()
//
//	recorder := influxdb.NewRunRecorder(client)
//	orch := sync.NewOrchestrator(devices, differ, applier, log, recorder)
package influxdb
