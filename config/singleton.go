package config

import "sync"

var (
	instance ConfigManager
	once     sync.Once
)

// GetInstance returns the process-wide configuration manager, creating it on
// first use. Components that do not take an explicit manager fall back to
// this one.
func GetInstance() ConfigManager {
	once.Do(func() {
		instance = NewConfigManager()
	})
	return instance
}

// SetInstance replaces the process-wide manager. Intended for tests and for
// hosts that build a customized manager before anything else touches
// configuration.
func SetInstance(cm ConfigManager) {
	once.Do(func() {})
	instance = cm
}
