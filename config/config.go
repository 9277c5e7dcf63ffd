// Package config loads, validates, and hot-reloads the arena process
// configuration: one yaml file per Config implementation, watched with
// fsnotify, with environment-variable overrides.
package config

// Config interface defines the basic configuration contract
type Config interface {
	GetName() string
	Validate() error
}

// ConfigChangeListener is notified after a watched configuration file is
// reloaded and validated. Components that cache config (the transport, the
// logger) implement this to pick up new settings without a restart.
type ConfigChangeListener interface {
	// OnConfigChanged is called with the freshly loaded configuration and
	// the one it replaces. Returning an error is logged but does not undo
	// the reload.
	OnConfigChanged(configName string, newConfig, oldConfig Config) error

	// GetConfigName returns the configuration name the listener cares
	// about; changes to other names are not delivered.
	GetConfigName() string
}
