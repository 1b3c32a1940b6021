// Package config loads and validates netsync-core configuration.
//
// Configuration comes from three layers, later layers overriding earlier ones:
// hardcoded defaults, a YAML file, and NETSYNC_* environment variables.
// Secrets (JWT signing key, broker credentials, InfluxDB token) should be
// supplied through the environment rather than the file.
package config
