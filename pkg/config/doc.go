// Package config provides configuration loading, validation, and hot
// reload for Beacon.
//
// # Loading
//
// Configuration is read from a YAML file, defaulted, and validated:
//
//	cfg, err := config.LoadConfig("beacon.yaml")
//
// LoadConfigWithEnvOverrides additionally applies BEACON_* environment
// variables on top of the file, for container deployments:
//
//	BEACON_SERVER_LISTEN_ADDRESS=0.0.0.0:8090
//	BEACON_STORAGE_BACKEND=memory
//	BEACON_LIMITS_MAX_PER_WINDOW=200
//
// # Validation
//
// Validate collects every rule violation into a single ValidationError
// rather than stopping at the first, so a broken file can be fixed in
// one pass.
//
// # Hot Reload
//
// Watcher observes the configuration file and invokes a callback with
// the freshly loaded configuration after each change. Reloads that fail
// validation are dropped and the previous configuration stays in effect.
// Only settings the callback chooses to apply take effect at runtime;
// storage backend and listen address changes require a restart.
package config
