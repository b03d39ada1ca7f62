// Beacon is a visitor telemetry collector.
//
// It accepts browser fingerprint reports over HTTP, rate-limits abusive
// clients with a sliding admission window, validates every field, and
// stores admitted visits in SQLite for querying, aggregation, and export.
//
// Usage:
//
//	# Start with default configuration
//	beacon run
//
//	# Start with a custom configuration file
//	beacon run --config /etc/beacon/beacon.yaml
//
//	# Override the listen address
//	beacon run --listen 0.0.0.0:8090
//
//	# Validate configuration without starting
//	beacon run --dry-run
//
//	# Show version information
//	beacon version
package main

func main() {
	Execute()
}
